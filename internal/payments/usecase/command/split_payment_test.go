package command

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/apperrors"
)

func TestSplitPayment(t *testing.T) {
	repo := newMemoryRepo()
	handler := NewSplitPaymentHandler(repo, paymentlog.New(100, nil))

	payment, err := handler.Handle(context.Background(), SplitPaymentCommand{
		TenantID:    "salon-1",
		UserID:      "user-1",
		TotalAmount: decimal.NewFromInt(500),
		Splits: []SplitItem{
			{Amount: decimal.NewFromInt(300), Method: domain.MethodCash},
			{Amount: decimal.NewFromInt(200), Method: domain.MethodCard, CardLast4: "4242"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.MethodSplit, payment.Method)
	assert.Equal(t, domain.StatusCompleted, payment.Status)

	splits, err := repo.ListSplitsSecure(context.Background(), payment.ID, "salon-1")
	require.NoError(t, err)
	require.Len(t, splits, 2)
	assert.Equal(t, payment.ID, splits[0].PaymentID)
}

func TestSplitPaymentSumValidation(t *testing.T) {
	handler := NewSplitPaymentHandler(newMemoryRepo(), paymentlog.New(100, nil))
	ctx := context.Background()

	t.Run("sum mismatch rejected", func(t *testing.T) {
		_, err := handler.Handle(ctx, SplitPaymentCommand{
			TenantID:    "salon-1",
			TotalAmount: decimal.NewFromInt(500),
			Splits: []SplitItem{
				{Amount: decimal.NewFromInt(300), Method: domain.MethodCash},
				{Amount: decimal.NewFromInt(150), Method: domain.MethodCard},
			},
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))
		assert.Equal(t, "errors.split_sum_mismatch", apperrors.FromError(err).MessageKey)
	})

	t.Run("rounding drift within tolerance accepted", func(t *testing.T) {
		_, err := handler.Handle(ctx, SplitPaymentCommand{
			TenantID:    "salon-1",
			TotalAmount: decimal.NewFromFloat(100.00),
			Splits: []SplitItem{
				{Amount: decimal.NewFromFloat(33.33), Method: domain.MethodCash},
				{Amount: decimal.NewFromFloat(33.33), Method: domain.MethodCard},
				{Amount: decimal.NewFromFloat(33.33), Method: domain.MethodVipps},
			},
		})
		assert.NoError(t, err)
	})

	t.Run("no splits rejected", func(t *testing.T) {
		_, err := handler.Handle(ctx, SplitPaymentCommand{
			TenantID:    "salon-1",
			TotalAmount: decimal.NewFromInt(100),
		})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))
	})

	t.Run("non-positive split rejected", func(t *testing.T) {
		_, err := handler.Handle(ctx, SplitPaymentCommand{
			TenantID:    "salon-1",
			TotalAmount: decimal.NewFromInt(100),
			Splits: []SplitItem{
				{Amount: decimal.NewFromInt(100), Method: domain.MethodCash},
				{Amount: decimal.Zero, Method: domain.MethodCard},
			},
		})
		assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))
	})
}
