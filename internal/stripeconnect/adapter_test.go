package stripeconnect

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/apperrors"
	"github.com/salonos/payments/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("stripeconnect-test", false)
	os.Exit(m.Run())
}

// fakeClient scripts gateway responses per test
type fakeClient struct {
	account      *stripe.Account
	accountErr   error
	exchangeID   string
	exchangeErr  error
	intentResult *stripe.PaymentIntent
	intentErr    error
	intentParams *stripe.PaymentIntentParams
	refundResult *stripe.Refund
	refundErr    error
	refundParams *stripe.RefundParams
}

func (f *fakeClient) ExchangeOAuthCode(ctx context.Context, code string) (string, error) {
	return f.exchangeID, f.exchangeErr
}

func (f *fakeClient) GetAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	return f.account, f.accountErr
}

func (f *fakeClient) NewPaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	f.intentParams = params
	return f.intentResult, f.intentErr
}

func (f *fakeClient) NewRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	f.refundParams = params
	return f.refundResult, f.refundErr
}

func (f *fakeClient) NewAccountLink(ctx context.Context, params *stripe.AccountLinkParams) (*stripe.AccountLink, error) {
	return &stripe.AccountLink{URL: "https://connect.stripe.com/setup/fake"}, nil
}

func (f *fakeClient) NewLoginLink(ctx context.Context, accountID string) (*stripe.LoginLink, error) {
	return &stripe.LoginLink{URL: "https://connect.stripe.com/express/fake"}, nil
}

// fakeSettings is an in-memory settings repository
type fakeSettings struct {
	rows map[string]*domain.PaymentSettings
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{rows: make(map[string]*domain.PaymentSettings)}
}

func (f *fakeSettings) FindSettings(ctx context.Context, tenantID string) (*domain.PaymentSettings, error) {
	if s, ok := f.rows[tenantID]; ok {
		copied := *s
		return &copied, nil
	}
	return domain.DefaultSettings(tenantID), nil
}

func (f *fakeSettings) UpsertSettings(ctx context.Context, tenantID string, patch domain.SettingsPatch) (*domain.PaymentSettings, error) {
	s, ok := f.rows[tenantID]
	if !ok {
		s = domain.DefaultSettings(tenantID)
		f.rows[tenantID] = s
	}
	patch.Apply(s)
	copied := *s
	return &copied, nil
}

func newTestAdapter(client Client, settings domain.SettingsRepository) *Adapter {
	return NewAdapter(DefaultConfig("ca_test123", "https://app.example.com/callback"), client, settings, paymentlog.New(100, nil))
}

func connectedSettings(accountID string) *domain.PaymentSettings {
	s := domain.DefaultSettings("salon-1")
	s.StripeAccountID = &accountID
	s.StripeAccountStatus = domain.StripeAccountConnected
	s.StripeChargesEnabled = true
	s.StripeDetailsSubmitted = true
	return s
}

func TestConnectAuthURL(t *testing.T) {
	adapter := newTestAdapter(&fakeClient{}, newFakeSettings())

	raw := adapter.ConnectAuthURL("salon-1")
	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(raw, "https://connect.stripe.com/oauth/authorize?"))
	q := parsed.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "ca_test123", q.Get("client_id"))
	assert.Equal(t, "read_write", q.Get("scope"))
	assert.Equal(t, "salon-1", q.Get("state"))
	assert.Equal(t, "https://app.example.com/callback", q.Get("redirect_uri"))
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name             string
		chargesEnabled   bool
		detailsSubmitted bool
		want             string
	}{
		{"charges enabled wins", true, true, "connected"},
		{"charges without details", true, false, "connected"},
		{"details without charges", false, true, "restricted"},
		{"neither", false, false, "pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.chargesEnabled, tt.detailsSubmitted))
		})
	}
}

func TestHandleConnectCallback(t *testing.T) {
	t.Run("persists capability flags", func(t *testing.T) {
		settings := newFakeSettings()
		client := &fakeClient{
			exchangeID: "acct_new",
			account:    &stripe.Account{ID: "acct_new", ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true},
		}
		adapter := newTestAdapter(client, settings)

		result, err := adapter.HandleConnectCallback(context.Background(), "ac_code", "salon-1")
		require.NoError(t, err)

		require.NotNil(t, result.StripeAccountID)
		assert.Equal(t, "acct_new", *result.StripeAccountID)
		assert.Equal(t, domain.StripeAccountConnected, result.StripeAccountStatus)
		assert.True(t, result.StripeChargesEnabled)
		assert.True(t, result.CardEnabled)
		require.NotNil(t, result.StripeConnectedAt)
	})

	t.Run("exchange failure leaves tenant disconnected", func(t *testing.T) {
		settings := newFakeSettings()
		client := &fakeClient{exchangeErr: errors.New("invalid code")}
		adapter := newTestAdapter(client, settings)

		_, err := adapter.HandleConnectCallback(context.Background(), "ac_bad", "salon-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodePreconditionFailed))
		assert.Empty(t, settings.rows)
	})
}

func TestCanAcceptPaymentsReasons(t *testing.T) {
	t.Run("no account connected", func(t *testing.T) {
		adapter := newTestAdapter(&fakeClient{}, newFakeSettings())

		ok, reason, err := adapter.CanAcceptPayments(context.Background(), "salon-1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "no Stripe account connected", reason)
	})

	t.Run("onboarding incomplete", func(t *testing.T) {
		settings := newFakeSettings()
		settings.rows["salon-1"] = connectedSettings("acct_1")
		client := &fakeClient{account: &stripe.Account{ID: "acct_1", ChargesEnabled: false, DetailsSubmitted: false}}
		adapter := newTestAdapter(client, settings)

		ok, reason, err := adapter.CanAcceptPayments(context.Background(), "salon-1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "Stripe onboarding incomplete: missing requirements", reason)
	})

	t.Run("pending verification", func(t *testing.T) {
		settings := newFakeSettings()
		settings.rows["salon-1"] = connectedSettings("acct_1")
		client := &fakeClient{account: &stripe.Account{ID: "acct_1", ChargesEnabled: false, DetailsSubmitted: true}}
		adapter := newTestAdapter(client, settings)

		ok, reason, err := adapter.CanAcceptPayments(context.Background(), "salon-1")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, "Stripe account pending verification", reason)
	})

	t.Run("gateway failure falls back to stored flags", func(t *testing.T) {
		settings := newFakeSettings()
		settings.rows["salon-1"] = connectedSettings("acct_1")
		client := &fakeClient{accountErr: errors.New("stripe unreachable")}
		adapter := newTestAdapter(client, settings)

		ok, reason, err := adapter.CanAcceptPayments(context.Background(), "salon-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Empty(t, reason)
	})
}

func TestCreateDestinationPaymentIntent(t *testing.T) {
	settings := newFakeSettings()
	settings.rows["salon-1"] = connectedSettings("acct_1")
	client := &fakeClient{
		account:      &stripe.Account{ID: "acct_1", ChargesEnabled: true, DetailsSubmitted: true},
		intentResult: &stripe.PaymentIntent{ID: "pi_1", ClientSecret: "secret_1"},
	}
	adapter := newTestAdapter(client, settings)

	result, err := adapter.CreateDestinationPaymentIntent(context.Background(), IntentInput{
		TenantID: "salon-1",
		Amount:   decimal.NewFromInt(3333),
		Currency: "nok",
	})
	require.NoError(t, err)

	assert.Equal(t, "pi_1", result.IntentID)
	assert.Equal(t, int64(333300), result.AmountMinor)
	assert.Equal(t, int64(8333), result.ApplicationFee) // 8332.5 rounds up
	assert.Equal(t, "acct_1", result.DestinationAcct)

	require.NotNil(t, client.intentParams)
	assert.Equal(t, int64(333300), *client.intentParams.Amount)
	assert.Equal(t, int64(8333), *client.intentParams.ApplicationFeeAmount)
	assert.Equal(t, "acct_1", *client.intentParams.TransferData.Destination)
}

func TestCreateIntentRejectedWhenNotReady(t *testing.T) {
	adapter := newTestAdapter(&fakeClient{}, newFakeSettings())

	_, err := adapter.CreateDestinationPaymentIntent(context.Background(), IntentInput{
		TenantID: "salon-1",
		Amount:   decimal.NewFromInt(100),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodePreconditionFailed))
}

func TestTerminalIntentUsesCardPresent(t *testing.T) {
	settings := newFakeSettings()
	settings.rows["salon-1"] = connectedSettings("acct_1")
	client := &fakeClient{
		account:      &stripe.Account{ID: "acct_1", ChargesEnabled: true, DetailsSubmitted: true},
		intentResult: &stripe.PaymentIntent{ID: "pi_term", ClientSecret: "secret"},
	}
	adapter := newTestAdapter(client, settings)

	_, err := adapter.CreateTerminalDestinationPaymentIntent(context.Background(), IntentInput{
		TenantID: "salon-1",
		Amount:   decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	require.NotNil(t, client.intentParams)
	require.Len(t, client.intentParams.PaymentMethodTypes, 1)
	assert.Equal(t, "card_present", *client.intentParams.PaymentMethodTypes[0])
	assert.Equal(t, string(stripe.PaymentIntentCaptureMethodManual), *client.intentParams.CaptureMethod)
}

func TestRefundIdempotencyKeyDeterministic(t *testing.T) {
	a := RefundIdempotencyKey("pay-1", 30000, 1)
	b := RefundIdempotencyKey("pay-1", 30000, 1)
	assert.Equal(t, a, b)

	assert.NotEqual(t, a, RefundIdempotencyKey("pay-1", 30000, 2))
	assert.NotEqual(t, a, RefundIdempotencyKey("pay-1", 30001, 1))
	assert.NotEqual(t, a, RefundIdempotencyKey("pay-2", 30000, 1))
}

func TestProcessRefundRequiresIdempotencyKey(t *testing.T) {
	adapter := newTestAdapter(&fakeClient{}, newFakeSettings())

	_, err := adapter.ProcessRefund(context.Background(), "salon-1", "pi_1", nil, "", "")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeBadRequest))
}

func TestDisconnectAccountIdempotent(t *testing.T) {
	settings := newFakeSettings()
	settings.rows["salon-1"] = connectedSettings("acct_1")
	adapter := newTestAdapter(&fakeClient{}, settings)

	require.NoError(t, adapter.DisconnectAccount(context.Background(), "salon-1"))

	stored := settings.rows["salon-1"]
	assert.Equal(t, domain.StripeAccountDisconnected, stored.StripeAccountStatus)
	assert.False(t, stored.StripeChargesEnabled)
	assert.False(t, stored.CardEnabled)

	// Second disconnect on an already-disconnected tenant is a no-op.
	require.NoError(t, adapter.DisconnectAccount(context.Background(), "salon-1"))
}
