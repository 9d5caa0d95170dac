package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderStatus mirrors the payment outcome on the linked POS order
type OrderStatus string

const (
	OrderPending           OrderStatus = "pending"
	OrderCompleted         OrderStatus = "completed"
	OrderRefunded          OrderStatus = "refunded"
	OrderPartiallyRefunded OrderStatus = "partially_refunded"
)

// Order is the minimal view of a POS order the payment flows need: the
// booking engine owns the rest of the record.
type Order struct {
	ID          uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID    string          `json:"tenant_id" gorm:"not null;index"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2)"`
	Status      OrderStatus     `json:"status" gorm:"default:'pending'"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderRepository provides tenant-scoped order access for payment flows
type OrderRepository interface {
	FindOrderSecure(ctx context.Context, id uuid.UUID, tenantID string) (*Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, tenantID string, status OrderStatus) error
}
