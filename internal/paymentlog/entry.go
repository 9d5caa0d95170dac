package paymentlog

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salonos/payments/internal/payments/domain"
)

// Level is the severity of a payment event
type Level string

const (
	LevelInfo     Level = "info"
	LevelWarning  Level = "warning"
	LevelError    Level = "error"
	LevelCritical Level = "critical"
)

// Category tags the lifecycle stage or subsystem an event belongs to
type Category string

const (
	CategoryPaymentCreated   Category = "payment_created"
	CategoryPaymentCompleted Category = "payment_completed"
	CategoryPaymentFailed    Category = "payment_failed"
	CategoryPaymentRefunded  Category = "payment_refunded"
	CategoryStripeConnect    Category = "stripe_connect"
	CategoryStripeWebhook    Category = "stripe_webhook"
	CategorySecurityBreach   Category = "security_breach"
	CategoryTenantIsolation  Category = "tenant_isolation"
	CategoryPlanLimit        Category = "plan_limit"
)

// Details is a string-keyed bag reserved for genuinely heterogeneous
// gateway payloads. Structured fields (amount, method, error code) live as
// typed columns on the entry itself.
type Details map[string]any

func (d Details) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

func (d *Details) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("unsupported details column type %T", value)
	}
	return json.Unmarshal(b, d)
}

// Entry is an immutable payment event. Entries are never mutated or
// deleted; the in-memory buffer is bounded and durable writes are
// best-effort.
type Entry struct {
	ID            uuid.UUID            `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID      string               `json:"tenant_id" gorm:"not null;index:idx_payment_log_tenant"`
	Level         Level                `json:"level" gorm:"not null"`
	Category      Category             `json:"category" gorm:"not null;index:idx_payment_log_tenant"`
	Message       string               `json:"message"`
	PaymentID     *uuid.UUID           `json:"payment_id,omitempty" gorm:"type:uuid"`
	OrderID       *uuid.UUID           `json:"order_id,omitempty" gorm:"type:uuid"`
	AppointmentID *uuid.UUID           `json:"appointment_id,omitempty" gorm:"type:uuid"`
	UserID        string               `json:"user_id,omitempty"`
	Amount        *decimal.Decimal     `json:"amount,omitempty" gorm:"type:numeric(12,2)"`
	Method        domain.PaymentMethod `json:"payment_method,omitempty"`
	ErrorCode     string               `json:"error_code,omitempty" gorm:"index"`
	ErrorMessage  string               `json:"error_message,omitempty"`
	Details       Details              `json:"details,omitempty" gorm:"type:jsonb"`
	CreatedAt     time.Time            `json:"created_at" gorm:"index"`
}

func (Entry) TableName() string {
	return "payment_log_entries"
}
