package webhook

import (
	"context"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripewebhook "github.com/stripe/stripe-go/v80/webhook"

	"github.com/salonos/payments/internal/paymentlog"
	paydomain "github.com/salonos/payments/internal/payments/domain"
	tenantdomain "github.com/salonos/payments/internal/tenant/domain"
	"github.com/salonos/payments/pkg/logger"
)

const testSecret = "whsec_test"

func TestMain(m *testing.M) {
	logger.Init("webhook-test", false)
	os.Exit(m.Run())
}

// fakePayments tracks whether the handler touched storage
type fakePayments struct {
	paydomain.PaymentRepository

	payments map[string]*paydomain.Payment
	touched  bool
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: make(map[string]*paydomain.Payment)}
}

func (f *fakePayments) FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*paydomain.Payment, error) {
	f.touched = true
	p, ok := f.payments[gatewayPaymentID]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (f *fakePayments) UpdatePayment(ctx context.Context, p *paydomain.Payment) error {
	f.touched = true
	copied := *p
	f.payments[p.GatewayPaymentID] = &copied
	return nil
}

type fakeTenants struct {
	tenantdomain.Repository

	subs     map[string]*tenantdomain.Subscription
	statuses map[string]tenantdomain.TenantStatus
	touched  bool
}

func newFakeTenants() *fakeTenants {
	return &fakeTenants{
		subs:     make(map[string]*tenantdomain.Subscription),
		statuses: make(map[string]tenantdomain.TenantStatus),
	}
}

func (f *fakeTenants) FindSubscriptionByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*tenantdomain.Subscription, error) {
	f.touched = true
	s, ok := f.subs[gatewaySubscriptionID]
	if !ok {
		return nil, nil
	}
	copied := *s
	return &copied, nil
}

func (f *fakeTenants) UpsertSubscription(ctx context.Context, sub *tenantdomain.Subscription) error {
	f.touched = true
	copied := *sub
	f.subs[sub.GatewaySubscriptionID] = &copied
	return nil
}

func (f *fakeTenants) UpdateTenantStatus(ctx context.Context, tenantID string, status tenantdomain.TenantStatus) error {
	f.touched = true
	f.statuses[tenantID] = status
	return nil
}

func signedRequest(t *testing.T, payload string) *http.Request {
	t.Helper()
	now := time.Now()
	sig := stripewebhook.ComputeSignature(now, []byte(payload), testSecret)
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
	req.Header.Set("Stripe-Signature", fmt.Sprintf("t=%d,v1=%s", now.Unix(), hex.EncodeToString(sig)))
	return req
}

func TestRejectsBadSignatureBeforeAnySideEffect(t *testing.T) {
	payments := newFakePayments()
	tenants := newFakeTenants()
	handler := NewHandler(testSecret, payments, tenants, paymentlog.New(100, nil))

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`

	t.Run("missing signature", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("tampered payload", func(t *testing.T) {
		signed := signedRequest(t, payload)
		tampered := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload+" "))
		tampered.Header.Set("Stripe-Signature", signed.Header.Get("Stripe-Signature"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, tampered)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	assert.False(t, payments.touched, "rejected deliveries must not reach storage")
	assert.False(t, tenants.touched)
}

func TestPaymentIntentSucceededCompletesPayment(t *testing.T) {
	payments := newFakePayments()
	log := paymentlog.New(100, nil)
	handler := NewHandler(testSecret, payments, newFakeTenants(), log)

	payments.payments["pi_123"] = &paydomain.Payment{
		ID:               uuid.New(),
		TenantID:         "salon-1",
		Amount:           decimal.NewFromInt(500),
		Method:           paydomain.MethodStripe,
		Status:           paydomain.StatusPending,
		GatewayPaymentID: "pi_123",
	}

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, paydomain.StatusCompleted, payments.payments["pi_123"].Status)

	entries := log.Recent("salon-1", 10, "", paymentlog.CategoryPaymentCompleted)
	require.Len(t, entries, 1)
}

func TestPaymentIntentFailedRecordsErrorCode(t *testing.T) {
	payments := newFakePayments()
	log := paymentlog.New(100, nil)
	handler := NewHandler(testSecret, payments, newFakeTenants(), log)

	payments.payments["pi_123"] = &paydomain.Payment{
		ID:               uuid.New(),
		TenantID:         "salon-1",
		Amount:           decimal.NewFromInt(500),
		Method:           paydomain.MethodStripe,
		Status:           paydomain.StatusPending,
		GatewayPaymentID: "pi_123",
	}

	payload := `{"id":"evt_1","type":"payment_intent.payment_failed","data":{"object":{"id":"pi_123","last_payment_error":{"code":"card_declined","message":"Your card was declined."}}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, paydomain.StatusFailed, payments.payments["pi_123"].Status)

	entries := log.Recent("salon-1", 10, paymentlog.LevelError, "")
	require.Len(t, entries, 1)
	assert.Equal(t, "card_declined", entries[0].ErrorCode)
}

func TestReplayedDeliveryLeavesSettledPaymentAlone(t *testing.T) {
	payments := newFakePayments()
	log := paymentlog.New(100, nil)
	handler := NewHandler(testSecret, payments, newFakeTenants(), log)

	processedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	payments.payments["pi_123"] = &paydomain.Payment{
		ID:               uuid.New(),
		TenantID:         "salon-1",
		Amount:           decimal.NewFromInt(500),
		Method:           paydomain.MethodStripe,
		Status:           paydomain.StatusCompleted,
		GatewayPaymentID: "pi_123",
		ProcessedAt:      processedAt,
	}

	payload := `{"id":"evt_1","type":"payment_intent.succeeded","data":{"object":{"id":"pi_123"}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, payload))

	// Acked so Stripe stops retrying, but the payment is untouched.
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, processedAt, payments.payments["pi_123"].ProcessedAt)
	assert.Empty(t, log.Recent("salon-1", 10, "", ""))
}

func TestUnknownEventTypeAcked(t *testing.T) {
	handler := NewHandler(testSecret, newFakePayments(), newFakeTenants(), paymentlog.New(100, nil))

	payload := `{"id":"evt_1","type":"charge.updated","data":{"object":{}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestInvoicePaymentFailedSuspendsTenant(t *testing.T) {
	tenants := newFakeTenants()
	log := paymentlog.New(100, nil)
	handler := NewHandler(testSecret, newFakePayments(), tenants, log)

	tenants.subs["sub_1"] = &tenantdomain.Subscription{
		ID:                    uuid.New(),
		TenantID:              "salon-1",
		PlanID:                "pro",
		Status:                tenantdomain.SubscriptionActive,
		GatewaySubscriptionID: "sub_1",
	}

	payload := `{"id":"evt_1","type":"invoice.payment_failed","data":{"object":{"id":"in_1","subscription":"sub_1"}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenantdomain.SubscriptionPastDue, tenants.subs["sub_1"].Status)
	assert.Equal(t, tenantdomain.TenantSuspended, tenants.statuses["salon-1"])

	entries := log.Recent("salon-1", 10, paymentlog.LevelWarning, "")
	require.Len(t, entries, 1)
}

func TestSubscriptionDeletedCancelsTenant(t *testing.T) {
	tenants := newFakeTenants()
	handler := NewHandler(testSecret, newFakePayments(), tenants, paymentlog.New(100, nil))

	tenants.subs["sub_1"] = &tenantdomain.Subscription{
		ID:                    uuid.New(),
		TenantID:              "salon-1",
		PlanID:                "pro",
		Status:                tenantdomain.SubscriptionActive,
		GatewaySubscriptionID: "sub_1",
	}

	payload := `{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","status":"canceled"}}}`
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, signedRequest(t, payload))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, tenantdomain.SubscriptionCanceled, tenants.subs["sub_1"].Status)
	assert.Equal(t, tenantdomain.TenantCanceled, tenants.statuses["salon-1"])
}
