package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/apperrors"
)

// GetPaymentQuery fetches one payment within the caller's tenant
type GetPaymentQuery struct {
	TenantID  string
	PaymentID uuid.UUID
}

// PaymentDetail bundles a payment with its splits
type PaymentDetail struct {
	Payment domain.Payment       `json:"payment"`
	Splits  []domain.PaymentSplit `json:"splits,omitempty"`
}

type GetPaymentHandler struct {
	repo domain.PaymentRepository
}

func NewGetPaymentHandler(repo domain.PaymentRepository) *GetPaymentHandler {
	return &GetPaymentHandler{repo: repo}
}

func (h *GetPaymentHandler) Handle(ctx context.Context, q GetPaymentQuery) (*PaymentDetail, error) {
	payment, err := h.repo.FindPaymentSecure(ctx, q.PaymentID, q.TenantID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperrors.NotFound("errors.payment_not_found", "payment not found")
	}

	detail := &PaymentDetail{Payment: *payment}
	if payment.Method == domain.MethodSplit {
		splits, err := h.repo.ListSplitsSecure(ctx, payment.ID, q.TenantID)
		if err != nil {
			return nil, err
		}
		detail.Splits = splits
	}
	return detail, nil
}
