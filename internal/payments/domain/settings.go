package domain

import (
	"context"
	"time"
)

// StripeAccountStatus reflects the stored connection state of a tenant's
// Stripe Connect account
type StripeAccountStatus string

const (
	StripeAccountConnected    StripeAccountStatus = "connected"
	StripeAccountDisconnected StripeAccountStatus = "disconnected"
	StripeAccountPending      StripeAccountStatus = "pending"
)

// PaymentSettings is the per-tenant payment configuration, one row per tenant
type PaymentSettings struct {
	TenantID               string              `json:"tenant_id" gorm:"uniqueIndex;not null"`
	VippsEnabled           bool                `json:"vipps_enabled" gorm:"default:false"`
	CardEnabled            bool                `json:"card_enabled" gorm:"default:false"`
	CashEnabled            bool                `json:"cash_enabled" gorm:"default:true"`
	PayAtSalonEnabled      bool                `json:"pay_at_salon_enabled" gorm:"default:true"`
	StripeAccountID        *string             `json:"stripe_account_id,omitempty"`
	StripeAccountStatus    StripeAccountStatus `json:"stripe_account_status" gorm:"default:'disconnected'"`
	StripeChargesEnabled   bool                `json:"stripe_charges_enabled" gorm:"default:false"`
	StripePayoutsEnabled   bool                `json:"stripe_payouts_enabled" gorm:"default:false"`
	StripeDetailsSubmitted bool                `json:"stripe_details_submitted" gorm:"default:false"`
	StripeConnectedAt      *time.Time          `json:"stripe_connected_at,omitempty"`
	DefaultMethod          PaymentMethod       `json:"default_payment_method" gorm:"default:'cash'"`
	CreatedAt              time.Time           `json:"created_at"`
	UpdatedAt              time.Time           `json:"updated_at"`
}

func (PaymentSettings) TableName() string {
	return "payment_settings"
}

// DefaultSettings returns the configuration applied when a tenant has no
// stored row: cash and pay-at-salon enabled, everything else off.
func DefaultSettings(tenantID string) *PaymentSettings {
	return &PaymentSettings{
		TenantID:            tenantID,
		CashEnabled:         true,
		PayAtSalonEnabled:   true,
		StripeAccountStatus: StripeAccountDisconnected,
		DefaultMethod:       MethodCash,
	}
}

// SettingsPatch is a partial update; nil fields leave the stored value
// untouched.
type SettingsPatch struct {
	VippsEnabled           *bool
	CardEnabled            *bool
	CashEnabled            *bool
	PayAtSalonEnabled      *bool
	StripeAccountID        *string
	StripeAccountStatus    *StripeAccountStatus
	StripeChargesEnabled   *bool
	StripePayoutsEnabled   *bool
	StripeDetailsSubmitted *bool
	StripeConnectedAt      *time.Time
	DefaultMethod          *PaymentMethod
}

// Apply merges the patch into settings
func (p SettingsPatch) Apply(s *PaymentSettings) {
	if p.VippsEnabled != nil {
		s.VippsEnabled = *p.VippsEnabled
	}
	if p.CardEnabled != nil {
		s.CardEnabled = *p.CardEnabled
	}
	if p.CashEnabled != nil {
		s.CashEnabled = *p.CashEnabled
	}
	if p.PayAtSalonEnabled != nil {
		s.PayAtSalonEnabled = *p.PayAtSalonEnabled
	}
	if p.StripeAccountID != nil {
		s.StripeAccountID = p.StripeAccountID
	}
	if p.StripeAccountStatus != nil {
		s.StripeAccountStatus = *p.StripeAccountStatus
	}
	if p.StripeChargesEnabled != nil {
		s.StripeChargesEnabled = *p.StripeChargesEnabled
	}
	if p.StripePayoutsEnabled != nil {
		s.StripePayoutsEnabled = *p.StripePayoutsEnabled
	}
	if p.StripeDetailsSubmitted != nil {
		s.StripeDetailsSubmitted = *p.StripeDetailsSubmitted
	}
	if p.StripeConnectedAt != nil {
		s.StripeConnectedAt = p.StripeConnectedAt
	}
	if p.DefaultMethod != nil {
		s.DefaultMethod = *p.DefaultMethod
	}
}

// SettingsRepository manages the per-tenant settings row
type SettingsRepository interface {
	// FindSettings returns stored settings, or defaults when no row exists.
	FindSettings(ctx context.Context, tenantID string) (*PaymentSettings, error)
	// UpsertSettings merges the patch with the stored row, creating it
	// from defaults if absent.
	UpsertSettings(ctx context.Context, tenantID string, patch SettingsPatch) (*PaymentSettings, error)
}
