package query

import (
	"context"

	"github.com/salonos/payments/internal/payments/domain"
)

// ListRefundsQuery pages through the tenant's refunds, owner/admin only
type ListRefundsQuery struct {
	TenantID string
	Limit    int
	Offset   int
}

type ListRefundsHandler struct {
	repo domain.PaymentRepository
}

func NewListRefundsHandler(repo domain.PaymentRepository) *ListRefundsHandler {
	return &ListRefundsHandler{repo: repo}
}

func (h *ListRefundsHandler) Handle(ctx context.Context, q ListRefundsQuery) ([]domain.Refund, error) {
	return h.repo.ListRefunds(ctx, q.TenantID, q.Limit, q.Offset)
}
