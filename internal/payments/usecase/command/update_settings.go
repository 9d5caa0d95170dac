package command

import (
	"context"

	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/apperrors"
)

// UpdateSettingsCommand applies a partial patch to the tenant's payment
// configuration
type UpdateSettingsCommand struct {
	TenantID string
	Patch    domain.SettingsPatch
}

type UpdateSettingsHandler struct {
	repo domain.SettingsRepository
}

func NewUpdateSettingsHandler(repo domain.SettingsRepository) *UpdateSettingsHandler {
	return &UpdateSettingsHandler{repo: repo}
}

func (h *UpdateSettingsHandler) Handle(ctx context.Context, cmd UpdateSettingsCommand) (*domain.PaymentSettings, error) {
	if cmd.TenantID == "" {
		return nil, apperrors.Forbidden("errors.tenant_required", "tenant context is required")
	}
	return h.repo.UpsertSettings(ctx, cmd.TenantID, cmd.Patch)
}
