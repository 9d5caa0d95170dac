package kafka

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// processOrigin tags events published by this process. The consumer
// skips self-originated events: their lifecycle entries were already
// appended to the local payment log when the command ran.
var processOrigin = uuid.New().String()

// PaymentEvent is published on every payment lifecycle transition
type PaymentEvent struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Origin        string          `json:"origin,omitempty"`
	TenantID      string          `json:"tenant_id"`
	PaymentID     uuid.UUID       `json:"payment_id"`
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	ErrorCode     string          `json:"error_code,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Event types
const (
	EventTypePaymentCompleted = "payment.completed"
	EventTypePaymentFailed    = "payment.failed"
	EventTypePaymentRefunded  = "payment.refunded"
)

// Kafka topics
const (
	TopicPaymentEvents = "payment-events"
)
