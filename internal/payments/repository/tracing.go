package repository

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/salonos/payments/internal/payments/domain"
)

var tracer = otel.Tracer("payments-repository")

// GormPaymentRepositoryWithTracing wraps GormPaymentRepository with spans
// around the money-moving operations
type GormPaymentRepositoryWithTracing struct {
	*GormPaymentRepository
}

func NewGormPaymentRepositoryWithTracing(db *gorm.DB) *GormPaymentRepositoryWithTracing {
	return &GormPaymentRepositoryWithTracing{
		GormPaymentRepository: NewGormPaymentRepository(db),
	}
}

func (r *GormPaymentRepositoryWithTracing) CreatePayment(ctx context.Context, payment *domain.Payment) error {
	ctx, span := tracer.Start(ctx, "repository.CreatePayment",
		trace.WithAttributes(
			attribute.String("tenant.id", payment.TenantID),
			attribute.String("payment.method", string(payment.Method)),
			attribute.String("payment.currency", payment.Currency),
		),
	)
	defer span.End()

	err := r.GormPaymentRepository.CreatePayment(ctx, payment)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	span.SetAttributes(attribute.String("payment.id", payment.ID.String()))
	return nil
}

func (r *GormPaymentRepositoryWithTracing) FindPaymentSecure(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Payment, error) {
	ctx, span := tracer.Start(ctx, "repository.FindPaymentSecure",
		trace.WithAttributes(
			attribute.String("payment.id", id.String()),
			attribute.String("tenant.id", tenantID),
		),
	)
	defer span.End()

	payment, err := r.GormPaymentRepository.FindPaymentSecure(ctx, id, tenantID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Bool("payment.found", payment != nil))
	return payment, nil
}

func (r *GormPaymentRepositoryWithTracing) CreateRefund(ctx context.Context, refund *domain.Refund) error {
	ctx, span := tracer.Start(ctx, "repository.CreateRefund",
		trace.WithAttributes(
			attribute.String("tenant.id", refund.TenantID),
			attribute.String("payment.id", refund.PaymentID.String()),
			attribute.String("refund.method", string(refund.Method)),
		),
	)
	defer span.End()

	err := r.GormPaymentRepository.CreateRefund(ctx, refund)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (r *GormPaymentRepositoryWithTracing) WithinTransaction(ctx context.Context, fn func(tx domain.PaymentRepository) error) error {
	ctx, span := tracer.Start(ctx, "repository.WithinTransaction")
	defer span.End()

	err := r.GormPaymentRepository.WithinTransaction(ctx, fn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}
