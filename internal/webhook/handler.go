package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v80"
	stripewebhook "github.com/stripe/stripe-go/v80/webhook"

	"github.com/salonos/payments/internal/paymentlog"
	paydomain "github.com/salonos/payments/internal/payments/domain"
	tenantdomain "github.com/salonos/payments/internal/tenant/domain"
	"github.com/salonos/payments/pkg/logger"
)

// Payload size guard recommended by Stripe
const maxBodyBytes = int64(65536)

// Handler receives Stripe webhook events. Every request is signature
// verified before any parsing or database access; an unsigned or
// tampered payload is rejected without side effects.
type Handler struct {
	signingSecret string
	payments      paydomain.PaymentRepository
	tenants       tenantdomain.Repository
	log           *paymentlog.Log
}

func NewHandler(signingSecret string, payments paydomain.PaymentRepository, tenants tenantdomain.Repository, log *paymentlog.Log) *Handler {
	return &Handler{
		signingSecret: signingSecret,
		payments:      payments,
		tenants:       tenants,
		log:           log,
	}
}

// ServeHTTP verifies and dispatches one webhook delivery. Unhandled
// event types are acknowledged so Stripe stops retrying them.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error(ctx).Err(err).Msg("Failed to read webhook payload")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := stripewebhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.signingSecret)
	if err != nil {
		logger.Warn(ctx).Err(err).Msg("Webhook signature verification failed")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		err = h.handleCheckoutCompleted(ctx, event)
	case "payment_intent.succeeded":
		err = h.handlePaymentIntent(ctx, event, paydomain.StatusCompleted)
	case "payment_intent.payment_failed":
		err = h.handlePaymentIntent(ctx, event, paydomain.StatusFailed)
	case "customer.subscription.updated", "customer.subscription.deleted":
		err = h.handleSubscription(ctx, event)
	case "invoice.payment_succeeded":
		err = h.handleInvoice(ctx, event, true)
	case "invoice.payment_failed":
		err = h.handleInvoice(ctx, event, false)
	default:
		logger.Debug(ctx).Str("event_type", string(event.Type)).Msg("Ignoring unhandled webhook event type")
	}

	if err != nil {
		logger.Error(ctx).Err(err).Str("event_type", string(event.Type)).Msg("Webhook handling failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return err
	}

	var intentID string
	if session.PaymentIntent != nil {
		intentID = session.PaymentIntent.ID
	}
	if intentID == "" {
		return nil
	}
	return h.completeByGatewayID(ctx, intentID, "checkout session completed")
}

func (h *Handler) handlePaymentIntent(ctx context.Context, event stripe.Event, target paydomain.PaymentStatus) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return err
	}

	payment, err := h.payments.FindPaymentByGatewayID(ctx, intent.ID)
	if err != nil {
		return err
	}
	if payment == nil {
		logger.Warn(ctx).
			Str("gateway_payment_id", intent.ID).
			Msg("Webhook for unknown payment intent")
		return nil
	}

	if !payment.CanTransitionTo(target) {
		// Replays and out-of-order deliveries land here; already-settled
		// payments are left untouched.
		logger.Debug(ctx).
			Str("payment_id", payment.ID.String()).
			Str("status", string(payment.Status)).
			Str("target", string(target)).
			Msg("Ignoring webhook transition for settled payment")
		return nil
	}

	payment.Status = target
	payment.ProcessedAt = time.Now().UTC()
	if intent.LatestCharge != nil && intent.LatestCharge.PaymentMethodDetails != nil &&
		intent.LatestCharge.PaymentMethodDetails.Card != nil {
		payment.CardLast4 = intent.LatestCharge.PaymentMethodDetails.Card.Last4
		payment.CardBrand = string(intent.LatestCharge.PaymentMethodDetails.Card.Brand)
	}
	if err := h.payments.UpdatePayment(ctx, payment); err != nil {
		return err
	}

	entry := paymentlog.Entry{
		TenantID:  payment.TenantID,
		Level:     paymentlog.LevelInfo,
		Category:  paymentlog.CategoryPaymentCompleted,
		Message:   "payment confirmed by gateway webhook",
		PaymentID: &payment.ID,
		Amount:    &payment.Amount,
		Method:    payment.Method,
	}
	if target == paydomain.StatusFailed {
		entry.Level = paymentlog.LevelError
		entry.Category = paymentlog.CategoryPaymentFailed
		entry.Message = "payment failed at gateway"
		if intent.LastPaymentError != nil {
			entry.ErrorCode = string(intent.LastPaymentError.Code)
			entry.ErrorMessage = intent.LastPaymentError.Msg
		}
	}
	h.log.Append(ctx, entry)
	return nil
}

func (h *Handler) completeByGatewayID(ctx context.Context, gatewayPaymentID, message string) error {
	payment, err := h.payments.FindPaymentByGatewayID(ctx, gatewayPaymentID)
	if err != nil {
		return err
	}
	if payment == nil || !payment.CanTransitionTo(paydomain.StatusCompleted) {
		return nil
	}
	payment.Status = paydomain.StatusCompleted
	payment.ProcessedAt = time.Now().UTC()
	if err := h.payments.UpdatePayment(ctx, payment); err != nil {
		return err
	}
	h.log.Append(ctx, paymentlog.Entry{
		TenantID:  payment.TenantID,
		Level:     paymentlog.LevelInfo,
		Category:  paymentlog.CategoryPaymentCompleted,
		Message:   message,
		PaymentID: &payment.ID,
		Amount:    &payment.Amount,
		Method:    payment.Method,
	})
	return nil
}

func subscriptionStatus(s stripe.SubscriptionStatus) tenantdomain.SubscriptionStatus {
	switch s {
	case stripe.SubscriptionStatusActive:
		return tenantdomain.SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return tenantdomain.SubscriptionPastDue
	case stripe.SubscriptionStatusTrialing:
		return tenantdomain.SubscriptionTrialing
	default:
		return tenantdomain.SubscriptionCanceled
	}
}

func (h *Handler) handleSubscription(ctx context.Context, event stripe.Event) error {
	var stripeSub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &stripeSub); err != nil {
		return err
	}

	sub, err := h.tenants.FindSubscriptionByGatewayID(ctx, stripeSub.ID)
	if err != nil {
		return err
	}
	if sub == nil {
		logger.Warn(ctx).
			Str("gateway_subscription_id", stripeSub.ID).
			Msg("Webhook for unknown subscription")
		return nil
	}

	if event.Type == "customer.subscription.deleted" {
		sub.Status = tenantdomain.SubscriptionCanceled
	} else {
		sub.Status = subscriptionStatus(stripeSub.Status)
	}
	sub.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd
	sub.PeriodStart = time.Unix(stripeSub.CurrentPeriodStart, 0).UTC()
	sub.PeriodEnd = time.Unix(stripeSub.CurrentPeriodEnd, 0).UTC()
	if err := h.tenants.UpsertSubscription(ctx, sub); err != nil {
		return err
	}

	if sub.Status == tenantdomain.SubscriptionCanceled {
		if err := h.tenants.UpdateTenantStatus(ctx, sub.TenantID, tenantdomain.TenantCanceled); err != nil {
			return err
		}
	}

	h.log.Append(ctx, paymentlog.Entry{
		TenantID: sub.TenantID,
		Level:    paymentlog.LevelInfo,
		Category: paymentlog.CategoryStripeWebhook,
		Message:  "subscription updated from gateway",
		Details: paymentlog.Details{
			"gateway_subscription_id": stripeSub.ID,
			"status":                  string(sub.Status),
		},
	})
	return nil
}

func (h *Handler) handleInvoice(ctx context.Context, event stripe.Event, paid bool) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return err
	}

	var subID string
	if invoice.Subscription != nil {
		subID = invoice.Subscription.ID
	}
	if subID == "" {
		return nil
	}
	sub, err := h.tenants.FindSubscriptionByGatewayID(ctx, subID)
	if err != nil {
		return err
	}
	if sub == nil {
		return nil
	}

	if paid {
		sub.Status = tenantdomain.SubscriptionActive
		if err := h.tenants.UpsertSubscription(ctx, sub); err != nil {
			return err
		}
		if err := h.tenants.UpdateTenantStatus(ctx, sub.TenantID, tenantdomain.TenantActive); err != nil {
			return err
		}
		h.log.Append(ctx, paymentlog.Entry{
			TenantID: sub.TenantID,
			Level:    paymentlog.LevelInfo,
			Category: paymentlog.CategoryStripeWebhook,
			Message:  "subscription invoice paid",
		})
		return nil
	}

	sub.Status = tenantdomain.SubscriptionPastDue
	if err := h.tenants.UpsertSubscription(ctx, sub); err != nil {
		return err
	}
	if err := h.tenants.UpdateTenantStatus(ctx, sub.TenantID, tenantdomain.TenantSuspended); err != nil {
		return err
	}
	h.log.Append(ctx, paymentlog.Entry{
		TenantID: sub.TenantID,
		Level:    paymentlog.LevelWarning,
		Category: paymentlog.CategoryStripeWebhook,
		Message:  "subscription invoice payment failed, tenant suspended",
		Details:  paymentlog.Details{"gateway_subscription_id": subID},
	})
	return nil
}
