package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TenantStatus tracks the business lifecycle of a salon account
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantCanceled  TenantStatus = "canceled"
)

// Tenant is an isolated salon/business unit. Its id is the primary
// isolation key carried by every financial record.
type Tenant struct {
	ID        string       `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"not null"`
	Email     string       `json:"email" gorm:"not null"`
	Status    TenantStatus `json:"status" gorm:"default:'active'"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (Tenant) TableName() string {
	return "tenants"
}

// Staff is an employee of a tenant; the live count backs the plan
// employee limit.
type Staff struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID  string    `json:"tenant_id" gorm:"not null;index"`
	Name      string    `json:"name" gorm:"not null"`
	Email     string    `json:"email"`
	Role      string    `json:"role" gorm:"default:'employee'"`
	Active    bool      `json:"active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Staff) TableName() string {
	return "staff"
}

// Plan defines subscription limits. Nil limits mean unlimited.
type Plan struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	MaxEmployees *int      `json:"max_employees,omitempty"`
	MaxLocations *int      `json:"max_locations,omitempty"`
	SMSQuota     *int      `json:"sms_quota,omitempty"`
	Features     []string  `json:"features" gorm:"serializer:json"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Plan) TableName() string {
	return "plans"
}

// HasFeature reports whether the plan includes the named feature
func (p *Plan) HasFeature(feature string) bool {
	for _, f := range p.Features {
		if f == feature {
			return true
		}
	}
	return false
}

// SubscriptionStatus mirrors the gateway-side subscription state
type SubscriptionStatus string

const (
	SubscriptionActive   SubscriptionStatus = "active"
	SubscriptionPastDue  SubscriptionStatus = "past_due"
	SubscriptionCanceled SubscriptionStatus = "canceled"
	SubscriptionTrialing SubscriptionStatus = "trialing"
)

// Subscription links a tenant to a plan and to the gateway-side
// subscription object that drives its lifecycle.
type Subscription struct {
	ID                    uuid.UUID          `json:"id" gorm:"type:uuid;primaryKey"`
	TenantID              string             `json:"tenant_id" gorm:"uniqueIndex;not null"`
	PlanID                string             `json:"plan_id" gorm:"not null"`
	Status                SubscriptionStatus `json:"status" gorm:"default:'active'"`
	PeriodStart           time.Time          `json:"period_start"`
	PeriodEnd             time.Time          `json:"period_end"`
	GatewaySubscriptionID string             `json:"gateway_subscription_id" gorm:"index"`
	CancelAtPeriodEnd     bool               `json:"cancel_at_period_end" gorm:"default:false"`
	CreatedAt             time.Time          `json:"created_at"`
	UpdatedAt             time.Time          `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

// Repository provides tenant-scoped access to tenants, staff and
// subscriptions
type Repository interface {
	FindTenant(ctx context.Context, tenantID string) (*Tenant, error)
	UpdateTenantStatus(ctx context.Context, tenantID string, status TenantStatus) error

	CountActiveStaff(ctx context.Context, tenantID string) (int64, error)

	FindSubscription(ctx context.Context, tenantID string) (*Subscription, error)
	FindPlan(ctx context.Context, planID string) (*Plan, error)
	FindSubscriptionByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*Subscription, error)
	UpsertSubscription(ctx context.Context, sub *Subscription) error
}
