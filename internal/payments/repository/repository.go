package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/apperrors"
	"github.com/salonos/payments/pkg/logger"
)

// GormPaymentRepository is the tenant-scoped data access layer. Every
// secure lookup carries the caller tenant in the WHERE clause; a
// cross-tenant id resolves to a plain miss, indistinguishable from a
// nonexistent record.
type GormPaymentRepository struct {
	db *gorm.DB
}

func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

func (r *GormPaymentRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&domain.Payment{},
		&domain.PaymentSplit{},
		&domain.Refund{},
		&domain.RefundAttempt{},
		&domain.PaymentSettings{},
		&domain.Order{},
	)
}

func (r *GormPaymentRepository) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}

// FindPaymentSecure returns the payment only when it belongs to the caller
// tenant. A miss and a cross-tenant hit both return (nil, nil).
func (r *GormPaymentRepository) FindPaymentSecure(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &payment, nil
}

// FindPaymentForUpdate performs a locking read inside the surrounding
// transaction, serializing concurrent refunds against the same payment.
func (r *GormPaymentRepository) FindPaymentForUpdate(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &payment, nil
}

// FindPaymentByGatewayID is used by the webhook receiver, which carries no
// tenant context of its own; the tenant is read off the returned record.
func (r *GormPaymentRepository) FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	var payment domain.Payment
	err := r.db.WithContext(ctx).
		Where("gateway_payment_id = ?", gatewayPaymentID).
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &payment, nil
}

// ListPayments degrades gracefully: a store failure yields an empty page
// rather than an error, so dashboards can still render.
func (r *GormPaymentRepository) ListPayments(ctx context.Context, tenantID string, limit, offset int) ([]domain.Payment, error) {
	if limit <= 0 {
		limit = 50
	}
	var payments []domain.Payment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&payments).Error
	if err != nil {
		logger.Warn(ctx).Err(err).Str("tenant_id", tenantID).Msg("Payment list query failed")
		return []domain.Payment{}, nil
	}
	return payments, nil
}

func (r *GormPaymentRepository) UpdatePayment(ctx context.Context, payment *domain.Payment) error {
	if err := r.db.WithContext(ctx).
		Model(&domain.Payment{}).
		Where("id = ? AND tenant_id = ?", payment.ID, payment.TenantID).
		Select("status", "refund_amount", "refunded_at", "refund_reason", "card_last4", "card_brand", "gateway_payment_id", "session_id").
		Updates(payment).Error; err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}

func (r *GormPaymentRepository) CreateSplits(ctx context.Context, splits []domain.PaymentSplit) error {
	if len(splits) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&splits).Error; err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}

func (r *GormPaymentRepository) ListSplitsSecure(ctx context.Context, paymentID uuid.UUID, tenantID string) ([]domain.PaymentSplit, error) {
	var splits []domain.PaymentSplit
	err := r.db.WithContext(ctx).
		Where("payment_id = ? AND tenant_id = ?", paymentID, tenantID).
		Order("created_at ASC").
		Find(&splits).Error
	if err != nil {
		logger.Warn(ctx).Err(err).Str("tenant_id", tenantID).Msg("Split list query failed")
		return []domain.PaymentSplit{}, nil
	}
	return splits, nil
}

func (r *GormPaymentRepository) CreateRefund(ctx context.Context, refund *domain.Refund) error {
	if err := r.db.WithContext(ctx).Create(refund).Error; err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}

func (r *GormPaymentRepository) ListRefunds(ctx context.Context, tenantID string, limit, offset int) ([]domain.Refund, error) {
	if limit <= 0 {
		limit = 50
	}
	var refunds []domain.Refund
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&refunds).Error
	if err != nil {
		logger.Warn(ctx).Err(err).Str("tenant_id", tenantID).Msg("Refund list query failed")
		return []domain.Refund{}, nil
	}
	return refunds, nil
}

func (r *GormPaymentRepository) CreateRefundAttempt(ctx context.Context, attempt *domain.RefundAttempt) error {
	if err := r.db.WithContext(ctx).Create(attempt).Error; err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}

func (r *GormPaymentRepository) FindRefundAttempt(ctx context.Context, idempotencyKey string) (*domain.RefundAttempt, error) {
	var attempt domain.RefundAttempt
	err := r.db.WithContext(ctx).
		Where("idempotency_key = ?", idempotencyKey).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &attempt, nil
}

func (r *GormPaymentRepository) CountRefundAttempts(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.RefundAttempt{}).
		Where("payment_id = ?", paymentID).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return count, nil
}

func (r *GormPaymentRepository) UpdateRefundAttempt(ctx context.Context, attempt *domain.RefundAttempt) error {
	if err := r.db.WithContext(ctx).
		Model(&domain.RefundAttempt{}).
		Where("id = ?", attempt.ID).
		Select("status", "gateway_refund_id").
		Updates(attempt).Error; err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}

func (r *GormPaymentRepository) FindOrderSecure(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &order, nil
}

func (r *GormPaymentRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, tenantID string, status domain.OrderStatus) error {
	if err := r.db.WithContext(ctx).
		Model(&domain.Order{}).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Update("status", status).Error; err != nil {
		return apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return nil
}

func (r *GormPaymentRepository) FindSettings(ctx context.Context, tenantID string) (*domain.PaymentSettings, error) {
	var settings domain.PaymentSettings
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.DefaultSettings(tenantID), nil
	}
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return &settings, nil
}

func (r *GormPaymentRepository) UpsertSettings(ctx context.Context, tenantID string, patch domain.SettingsPatch) (*domain.PaymentSettings, error) {
	var out *domain.PaymentSettings
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var settings domain.PaymentSettings
		err := tx.Where("tenant_id = ?", tenantID).First(&settings).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			settings = *domain.DefaultSettings(tenantID)
			patch.Apply(&settings)
			if err := tx.Create(&settings).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			patch.Apply(&settings)
			if err := tx.Save(&settings).Error; err != nil {
				return err
			}
		}
		out = &settings
		return nil
	})
	if err != nil {
		return nil, apperrors.Internal("errors.database_unavailable", "database not available", err)
	}
	return out, nil
}

// WithinTransaction runs fn against a repository bound to one transaction
func (r *GormPaymentRepository) WithinTransaction(ctx context.Context, fn func(tx domain.PaymentRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormPaymentRepository(tx))
	})
}
