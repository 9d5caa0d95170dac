package query

import (
	"context"

	"github.com/salonos/payments/internal/payments/domain"
)

// GetSettingsQuery returns the tenant's payment configuration, falling
// back to defaults when no row exists
type GetSettingsQuery struct {
	TenantID string
}

type GetSettingsHandler struct {
	repo domain.SettingsRepository
}

func NewGetSettingsHandler(repo domain.SettingsRepository) *GetSettingsHandler {
	return &GetSettingsHandler{repo: repo}
}

func (h *GetSettingsHandler) Handle(ctx context.Context, q GetSettingsQuery) (*domain.PaymentSettings, error) {
	return h.repo.FindSettings(ctx, q.TenantID)
}
