package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	tests := []struct {
		amount string
		want   int64
	}{
		{"1000", 100000},
		{"3333", 333300},
		{"0.01", 1},
		{"99.99", 9999},
		{"10.005", 1001}, // half rounds up
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			amount, err := decimal.NewFromString(tt.amount)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, MinorUnits(amount))
		})
	}
}

func TestApplicationFee(t *testing.T) {
	pct := decimal.NewFromFloat(2.5)

	tests := []struct {
		name        string
		amountMinor int64
		want        int64
	}{
		{"1000 major units", 100000, 2500},
		{"half rounds up", 333300, 8333}, // 8332.5
		{"small amount", 100, 3},         // 2.5 rounds to 3
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplicationFee(tt.amountMinor, pct))
		})
	}
}

func TestWithinTolerance(t *testing.T) {
	a := decimal.NewFromFloat(100.00)
	assert.True(t, WithinTolerance(a, decimal.NewFromFloat(100.00)))
	assert.True(t, WithinTolerance(a, decimal.NewFromFloat(100.01)))
	assert.True(t, WithinTolerance(a, decimal.NewFromFloat(99.99)))
	assert.False(t, WithinTolerance(a, decimal.NewFromFloat(100.02)))
	assert.False(t, WithinTolerance(a, decimal.NewFromFloat(99.98)))
}
