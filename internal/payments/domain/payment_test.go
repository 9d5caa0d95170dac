package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from PaymentStatus
		to   PaymentStatus
		want bool
	}{
		{"pending to completed", StatusPending, StatusCompleted, true},
		{"pending to failed", StatusPending, StatusFailed, true},
		{"pending to refunded", StatusPending, StatusRefunded, false},
		{"completed to refunded", StatusCompleted, StatusRefunded, true},
		{"completed to partially refunded", StatusCompleted, StatusPartiallyRefunded, true},
		{"completed to pending", StatusCompleted, StatusPending, false},
		{"completed to failed", StatusCompleted, StatusFailed, false},
		{"partially refunded to refunded", StatusPartiallyRefunded, StatusRefunded, true},
		{"partially refunded to completed", StatusPartiallyRefunded, StatusCompleted, false},
		{"failed is terminal", StatusFailed, StatusCompleted, false},
		{"refunded is terminal", StatusRefunded, StatusCompleted, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Payment{Status: tt.from}
			assert.Equal(t, tt.want, p.CanTransitionTo(tt.to))
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, (&Payment{Status: StatusPending}).IsTerminal())
	assert.False(t, (&Payment{Status: StatusCompleted}).IsTerminal())
	assert.False(t, (&Payment{Status: StatusPartiallyRefunded}).IsTerminal())
	assert.True(t, (&Payment{Status: StatusFailed}).IsTerminal())
	assert.True(t, (&Payment{Status: StatusRefunded}).IsTerminal())
}

func TestRemainingRefundable(t *testing.T) {
	p := &Payment{
		Amount:       decimal.NewFromInt(500),
		RefundAmount: decimal.NewFromInt(300),
	}
	assert.True(t, p.RemainingRefundable().Equal(decimal.NewFromInt(200)))

	p.RefundAmount = decimal.NewFromInt(500)
	assert.True(t, p.RemainingRefundable().IsZero())
}
