package query

import (
	"context"

	"github.com/salonos/payments/internal/payments/domain"
)

// ListPaymentsQuery pages through the tenant's payments
type ListPaymentsQuery struct {
	TenantID string
	Limit    int
	Offset   int
}

type ListPaymentsHandler struct {
	repo domain.PaymentRepository
}

func NewListPaymentsHandler(repo domain.PaymentRepository) *ListPaymentsHandler {
	return &ListPaymentsHandler{repo: repo}
}

func (h *ListPaymentsHandler) Handle(ctx context.Context, q ListPaymentsQuery) ([]domain.Payment, error) {
	return h.repo.ListPayments(ctx, q.TenantID, q.Limit, q.Offset)
}
