package stripeconnect

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/apperrors"
	"github.com/salonos/payments/pkg/logger"
)

// Client is the slice of the Stripe API the adapter depends on. The live
// implementation delegates to stripe-go; tests inject a fake.
type Client interface {
	ExchangeOAuthCode(ctx context.Context, code string) (accountID string, err error)
	GetAccount(ctx context.Context, accountID string) (*stripe.Account, error)
	NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	NewRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
	NewAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error)
	NewLoginLink(ctx context.Context, accountID string) (*stripe.LoginLink, error)
}

// Config holds the platform-level Stripe configuration
type Config struct {
	ClientID          string
	RedirectURL       string
	ApplicationFeePct decimal.Decimal
	AuthorizeBaseURL  string
}

// DefaultConfig applies the platform defaults (2.5% application fee)
func DefaultConfig(clientID, redirectURL string) Config {
	return Config{
		ClientID:          clientID,
		RedirectURL:       redirectURL,
		ApplicationFeePct: domain.DefaultApplicationFeePercent,
		AuthorizeBaseURL:  "https://connect.stripe.com/oauth/authorize",
	}
}

// Adapter isolates all Stripe Connect calls behind a stable interface.
// Tenant money always flows to the tenant's own connected account via
// destination charges; the platform never holds tenant funds.
type Adapter struct {
	cfg      Config
	client   Client
	settings domain.SettingsRepository
	log      *paymentlog.Log
}

func NewAdapter(cfg Config, client Client, settings domain.SettingsRepository, log *paymentlog.Log) *Adapter {
	if cfg.ApplicationFeePct.IsZero() {
		cfg.ApplicationFeePct = domain.DefaultApplicationFeePercent
	}
	if cfg.AuthorizeBaseURL == "" {
		cfg.AuthorizeBaseURL = "https://connect.stripe.com/oauth/authorize"
	}
	return &Adapter{cfg: cfg, client: client, settings: settings, log: log}
}

// ConnectAuthURL builds the OAuth authorization URL. The tenant id rides
// along as the opaque state parameter and is verified on callback. No
// network call is made.
func (a *Adapter) ConnectAuthURL(tenantID string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", a.cfg.ClientID)
	q.Set("scope", "read_write")
	q.Set("state", tenantID)
	q.Set("redirect_uri", a.cfg.RedirectURL)
	return a.cfg.AuthorizeBaseURL + "?" + q.Encode()
}

// HandleConnectCallback exchanges the authorization code for a connected
// account id, pulls the account capability flags and persists them. On
// any failure the tenant remains disconnected.
func (a *Adapter) HandleConnectCallback(ctx context.Context, code, tenantID string) (*domain.PaymentSettings, error) {
	accountID, err := a.client.ExchangeOAuthCode(ctx, code)
	if err != nil {
		logger.Error(ctx).Err(err).Str("tenant_id", tenantID).Msg("Stripe OAuth code exchange failed")
		return nil, apperrors.PreconditionFailed(
			"errors.stripe_connect_failed",
			fmt.Sprintf("stripe authorization code exchange failed: %v", err),
		)
	}

	acct, err := a.client.GetAccount(ctx, accountID)
	if err != nil {
		logger.Error(ctx).Err(err).Str("tenant_id", tenantID).Str("account_id", accountID).
			Msg("Stripe account retrieval failed after exchange")
		return nil, apperrors.PreconditionFailed(
			"errors.stripe_connect_failed",
			fmt.Sprintf("stripe account lookup failed: %v", err),
		)
	}

	now := time.Now().UTC()
	status := domain.StripeAccountPending
	if acct.ChargesEnabled {
		status = domain.StripeAccountConnected
	}

	settings, err := a.settings.UpsertSettings(ctx, tenantID, domain.SettingsPatch{
		StripeAccountID:        &accountID,
		StripeAccountStatus:    &status,
		StripeChargesEnabled:   boolPtr(acct.ChargesEnabled),
		StripePayoutsEnabled:   boolPtr(acct.PayoutsEnabled),
		StripeDetailsSubmitted: boolPtr(acct.DetailsSubmitted),
		StripeConnectedAt:      &now,
		CardEnabled:            boolPtr(true),
	})
	if err != nil {
		return nil, err
	}

	a.log.Append(ctx, paymentlog.Entry{
		TenantID: tenantID,
		Level:    paymentlog.LevelInfo,
		Category: paymentlog.CategoryStripeConnect,
		Message:  "Stripe account connected",
		Details: paymentlog.Details{
			"account_id":      accountID,
			"charges_enabled": acct.ChargesEnabled,
			"payouts_enabled": acct.PayoutsEnabled,
		},
	})

	return settings, nil
}

// ConnectStatus reports the live connection state for a tenant. Gateway
// query failures degrade to a "connected but status query failed" result
// so the rest of the system can still render something.
type ConnectStatus struct {
	Connected         bool       `json:"connected"`
	AccountID         string     `json:"account_id,omitempty"`
	Status            string     `json:"status"`
	ChargesEnabled    bool       `json:"charges_enabled"`
	PayoutsEnabled    bool       `json:"payouts_enabled"`
	DetailsSubmitted  bool       `json:"details_submitted"`
	Requirements      []string   `json:"requirements,omitempty"`
	ConnectedAt       *time.Time `json:"connected_at,omitempty"`
	StatusQueryFailed bool       `json:"status_query_failed,omitempty"`
}

const (
	statusDisconnected = "disconnected"
	statusPending      = "pending"
	statusRestricted   = "restricted"
	statusConnected    = "connected"
)

// DeriveStatus maps account capability flags to the external status:
// charges enabled wins; details submitted without charges means Stripe
// rejected or wants more information; everything else is onboarding.
func DeriveStatus(chargesEnabled, detailsSubmitted bool) string {
	switch {
	case chargesEnabled:
		return statusConnected
	case detailsSubmitted:
		return statusRestricted
	default:
		return statusPending
	}
}

func (a *Adapter) ConnectStatus(ctx context.Context, tenantID string) (*ConnectStatus, error) {
	settings, err := a.settings.FindSettings(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if settings.StripeAccountID == nil || *settings.StripeAccountID == "" {
		return &ConnectStatus{Connected: false, Status: statusDisconnected}, nil
	}

	acct, err := a.client.GetAccount(ctx, *settings.StripeAccountID)
	if err != nil {
		logger.Warn(ctx).Err(err).Str("tenant_id", tenantID).Msg("Stripe account status query failed")
		return &ConnectStatus{
			Connected:         true,
			AccountID:         *settings.StripeAccountID,
			Status:            string(settings.StripeAccountStatus),
			ChargesEnabled:    settings.StripeChargesEnabled,
			PayoutsEnabled:    settings.StripePayoutsEnabled,
			DetailsSubmitted:  settings.StripeDetailsSubmitted,
			ConnectedAt:       settings.StripeConnectedAt,
			StatusQueryFailed: true,
		}, nil
	}

	var requirements []string
	if acct.Requirements != nil {
		requirements = acct.Requirements.CurrentlyDue
	}

	return &ConnectStatus{
		Connected:        true,
		AccountID:        acct.ID,
		Status:           DeriveStatus(acct.ChargesEnabled, acct.DetailsSubmitted),
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
		Requirements:     requirements,
		ConnectedAt:      settings.StripeConnectedAt,
	}, nil
}

// CanAcceptPayments reports whether destination charges may be created
// for the tenant, with a human-readable reason when they cannot.
func (a *Adapter) CanAcceptPayments(ctx context.Context, tenantID string) (bool, string, error) {
	settings, err := a.settings.FindSettings(ctx, tenantID)
	if err != nil {
		return false, "", err
	}
	if settings.StripeAccountID == nil || *settings.StripeAccountID == "" {
		return false, "no Stripe account connected", nil
	}

	acct, err := a.client.GetAccount(ctx, *settings.StripeAccountID)
	if err != nil {
		// Fall back to the stored flags rather than blocking on a
		// transient gateway failure.
		if settings.StripeChargesEnabled {
			return true, "", nil
		}
		return false, "Stripe account status unavailable", nil
	}

	if !acct.ChargesEnabled {
		if !acct.DetailsSubmitted {
			return false, "Stripe onboarding incomplete: missing requirements", nil
		}
		return false, "Stripe account pending verification", nil
	}
	return true, "", nil
}

// DisconnectAccount clears the stored connection. Idempotent: a second
// call on a disconnected tenant is a no-op.
func (a *Adapter) DisconnectAccount(ctx context.Context, tenantID string) error {
	settings, err := a.settings.FindSettings(ctx, tenantID)
	if err != nil {
		return err
	}
	if settings.StripeAccountID == nil || *settings.StripeAccountID == "" {
		return nil
	}

	accountID := *settings.StripeAccountID
	empty := ""
	disconnected := domain.StripeAccountDisconnected
	var clearedAt *time.Time

	if _, err := a.settings.UpsertSettings(ctx, tenantID, domain.SettingsPatch{
		StripeAccountID:        &empty,
		StripeAccountStatus:    &disconnected,
		StripeChargesEnabled:   boolPtr(false),
		StripePayoutsEnabled:   boolPtr(false),
		StripeDetailsSubmitted: boolPtr(false),
		StripeConnectedAt:      clearedAt,
		CardEnabled:            boolPtr(false),
	}); err != nil {
		return err
	}

	a.log.Append(ctx, paymentlog.Entry{
		TenantID: tenantID,
		Level:    paymentlog.LevelInfo,
		Category: paymentlog.CategoryStripeConnect,
		Message:  "Stripe account disconnected",
		Details:  paymentlog.Details{"account_id": accountID},
	})
	return nil
}

// CreateAccountLink returns an onboarding-completion deep link. Requires
// a connected account.
func (a *Adapter) CreateAccountLink(ctx context.Context, tenantID, refreshURL, returnURL string) (string, error) {
	settings, err := a.settings.FindSettings(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if settings.StripeAccountID == nil || *settings.StripeAccountID == "" {
		return "", apperrors.PreconditionFailed("errors.stripe_not_connected", "no Stripe account connected")
	}

	link, err := a.client.NewAccountLink(ctx, &stripe.AccountLinkParams{
		Account:    settings.StripeAccountID,
		RefreshURL: stripe.String(refreshURL),
		ReturnURL:  stripe.String(returnURL),
		Type:       stripe.String("account_onboarding"),
	})
	if err != nil {
		return "", apperrors.Internal("errors.stripe_unavailable", "failed to create account link", err)
	}
	return link.URL, nil
}

// CreateDashboardLink returns an Express dashboard login link. Requires a
// connected account.
func (a *Adapter) CreateDashboardLink(ctx context.Context, tenantID string) (string, error) {
	settings, err := a.settings.FindSettings(ctx, tenantID)
	if err != nil {
		return "", err
	}
	if settings.StripeAccountID == nil || *settings.StripeAccountID == "" {
		return "", apperrors.PreconditionFailed("errors.stripe_not_connected", "no Stripe account connected")
	}

	link, err := a.client.NewLoginLink(ctx, *settings.StripeAccountID)
	if err != nil {
		return "", apperrors.Internal("errors.stripe_unavailable", "failed to create dashboard link", err)
	}
	return link.URL, nil
}

func boolPtr(b bool) *bool { return &b }
