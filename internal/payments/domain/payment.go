package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus represents the lifecycle state of a payment
type PaymentStatus string

const (
	StatusPending           PaymentStatus = "pending"
	StatusCompleted         PaymentStatus = "completed"
	StatusFailed            PaymentStatus = "failed"
	StatusRefunded          PaymentStatus = "refunded"
	StatusPartiallyRefunded PaymentStatus = "partially_refunded"
)

// PaymentMethod represents how a payment was settled
type PaymentMethod string

const (
	MethodCash   PaymentMethod = "cash"
	MethodCard   PaymentMethod = "card"
	MethodVipps  PaymentMethod = "vipps"
	MethodStripe PaymentMethod = "stripe"
	MethodSplit  PaymentMethod = "split"
)

// legalTransitions encodes the payment state machine. Failures are
// failures-to-create: once completed, a payment only moves via refund.
var legalTransitions = map[PaymentStatus][]PaymentStatus{
	StatusPending:           {StatusCompleted, StatusFailed},
	StatusCompleted:         {StatusRefunded, StatusPartiallyRefunded},
	StatusPartiallyRefunded: {StatusRefunded},
	StatusFailed:            {},
	StatusRefunded:          {},
}

// Payment is a single money-movement record. TenantID is immutable after
// creation and is the leading filter on every non-PK lookup.
type Payment struct {
	ID               uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID         string          `json:"tenant_id" gorm:"not null;index:idx_payments_tenant"`
	OrderID          *uuid.UUID      `json:"order_id,omitempty" gorm:"type:uuid;index"`
	AppointmentID    *uuid.UUID      `json:"appointment_id,omitempty" gorm:"type:uuid"`
	Amount           decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency         string          `json:"currency" gorm:"default:'NOK'"`
	Method           PaymentMethod   `json:"payment_method" gorm:"not null"`
	Status           PaymentStatus   `json:"status" gorm:"default:'pending';index:idx_payments_tenant"`
	SessionID        string          `json:"session_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty" gorm:"index"`
	CardLast4        string          `json:"card_last4,omitempty"`
	CardBrand        string          `json:"card_brand,omitempty"`
	RefundAmount     decimal.Decimal `json:"refund_amount" gorm:"type:numeric(12,2);default:0"`
	RefundedAt       *time.Time      `json:"refunded_at,omitempty"`
	RefundReason     string          `json:"refund_reason,omitempty"`
	ProcessedBy      string          `json:"processed_by"`
	ProcessedAt      time.Time       `json:"processed_at"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// CanTransitionTo reports whether moving to the given status is legal
func (p *Payment) CanTransitionTo(next PaymentStatus) bool {
	for _, s := range legalTransitions[p.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (p *Payment) IsTerminal() bool {
	return len(legalTransitions[p.Status]) == 0
}

// RemainingRefundable returns the amount still eligible for refund
func (p *Payment) RemainingRefundable() decimal.Decimal {
	return p.Amount.Sub(p.RefundAmount)
}

// PaymentSplit is a sub-record of a multi-method payment. The sum of all
// splits for a payment equals the parent amount, enforced at creation time.
type PaymentSplit struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      string          `json:"tenant_id" gorm:"not null;index"`
	PaymentID     uuid.UUID       `json:"payment_id" gorm:"type:uuid;not null;index"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty" gorm:"type:uuid"`
	Amount        decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Method        PaymentMethod   `json:"payment_method" gorm:"not null"`
	TransactionID string          `json:"transaction_id,omitempty"`
	CardLast4     string          `json:"card_last4,omitempty"`
	CardBrand     string          `json:"card_brand,omitempty"`
	Status        PaymentStatus   `json:"status" gorm:"default:'completed'"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (PaymentSplit) TableName() string {
	return "payment_splits"
}

// RefundMethod distinguishes gateway-side refunds from manual reversals
type RefundMethod string

const (
	RefundMethodStripe RefundMethod = "stripe"
	RefundMethodManual RefundMethod = "manual"
)

// Refund records a reversal against a payment
type Refund struct {
	ID              uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        string          `json:"tenant_id" gorm:"not null;index"`
	PaymentID       uuid.UUID       `json:"payment_id" gorm:"type:uuid;not null;index"`
	OrderID         *uuid.UUID      `json:"order_id,omitempty" gorm:"type:uuid"`
	AppointmentID   *uuid.UUID      `json:"appointment_id,omitempty" gorm:"type:uuid"`
	Amount          decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Reason          string          `json:"reason,omitempty"`
	Method          RefundMethod    `json:"refund_method" gorm:"not null"`
	Status          string          `json:"status" gorm:"default:'completed'"`
	GatewayRefundID string          `json:"gateway_refund_id,omitempty"`
	ProcessedBy     string          `json:"processed_by"`
	ProcessedAt     time.Time       `json:"processed_at"`
	CreatedAt       time.Time       `json:"created_at"`
}

func (Refund) TableName() string {
	return "refunds"
}

// RefundAttempt is the intent row written before any external refund call.
// A retried refund checks the attempt first, so a gateway call that
// succeeded upstream is never re-executed with a fresh idempotency key.
// The transaction that commits a refund marks its attempt consumed so a
// later refund of the same amount opens a new attempt.
type RefundAttempt struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID        string    `json:"tenant_id" gorm:"not null;index"`
	PaymentID       uuid.UUID `json:"payment_id" gorm:"type:uuid;not null;index"`
	AmountMinor     int64     `json:"amount_minor" gorm:"not null"`
	Attempt         int       `json:"attempt" gorm:"not null"`
	IdempotencyKey  string    `json:"idempotency_key" gorm:"uniqueIndex;not null"`
	Status          string    `json:"status" gorm:"default:'pending'"` // pending, succeeded, consumed, failed
	GatewayRefundID string    `json:"gateway_refund_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (RefundAttempt) TableName() string {
	return "refund_attempts"
}

// PaymentRepository defines tenant-scoped payment data access. Secure
// lookups take the caller tenant and answer a plain miss on cross-tenant
// access, never an error that confirms existence.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *Payment) error
	FindPaymentSecure(ctx context.Context, id uuid.UUID, tenantID string) (*Payment, error)
	FindPaymentForUpdate(ctx context.Context, id uuid.UUID, tenantID string) (*Payment, error)
	FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*Payment, error)
	ListPayments(ctx context.Context, tenantID string, limit, offset int) ([]Payment, error)
	UpdatePayment(ctx context.Context, payment *Payment) error

	CreateSplits(ctx context.Context, splits []PaymentSplit) error
	ListSplitsSecure(ctx context.Context, paymentID uuid.UUID, tenantID string) ([]PaymentSplit, error)

	CreateRefund(ctx context.Context, refund *Refund) error
	ListRefunds(ctx context.Context, tenantID string, limit, offset int) ([]Refund, error)

	CreateRefundAttempt(ctx context.Context, attempt *RefundAttempt) error
	FindRefundAttempt(ctx context.Context, idempotencyKey string) (*RefundAttempt, error)
	CountRefundAttempts(ctx context.Context, paymentID uuid.UUID) (int64, error)
	UpdateRefundAttempt(ctx context.Context, attempt *RefundAttempt) error

	// WithinTransaction runs fn against a repository bound to a single
	// database transaction; all writes commit or roll back together.
	WithinTransaction(ctx context.Context, fn func(tx PaymentRepository) error) error

	OrderRepository
	SettingsRepository
}
