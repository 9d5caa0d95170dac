package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salonos/payments/internal/tenant/domain"
	"github.com/salonos/payments/pkg/apperrors"
)

// GormTenantRepository backs the plan limiter and subscription webhooks
type GormTenantRepository struct {
	db *gorm.DB
}

func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

func (r *GormTenantRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&domain.Tenant{},
		&domain.Staff{},
		&domain.Plan{},
		&domain.Subscription{},
	)
}

func (r *GormTenantRepository) FindTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	var tenant domain.Tenant
	err := r.db.WithContext(ctx).Where("id = ?", tenantID).First(&tenant).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &tenant, nil
}

func (r *GormTenantRepository) UpdateTenantStatus(ctx context.Context, tenantID string, status domain.TenantStatus) error {
	if err := r.db.WithContext(ctx).
		Model(&domain.Tenant{}).
		Where("id = ?", tenantID).
		Update("status", status).Error; err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}

// CountActiveStaff is the live count behind the plan employee limit,
// recomputed on every request rather than cached.
func (r *GormTenantRepository) CountActiveStaff(ctx context.Context, tenantID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Staff{}).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return count, nil
}

func (r *GormTenantRepository) FindSubscription(ctx context.Context, tenantID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &sub, nil
}

func (r *GormTenantRepository) FindPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	var plan domain.Plan
	err := r.db.WithContext(ctx).Where("id = ?", planID).First(&plan).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &plan, nil
}

func (r *GormTenantRepository) FindSubscriptionByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*domain.Subscription, error) {
	var sub domain.Subscription
	err := r.db.WithContext(ctx).
		Where("gateway_subscription_id = ?", gatewaySubscriptionID).
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &sub, nil
}

func (r *GormTenantRepository) UpsertSubscription(ctx context.Context, sub *domain.Subscription) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan_id", "status", "period_start", "period_end",
				"gateway_subscription_id", "cancel_at_period_end", "updated_at",
			}),
		}).
		Create(sub).Error
	if err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}
