package stripeconnect

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/stripe/stripe-go/v80"

	"github.com/salonos/payments/pkg/apperrors"
	"github.com/salonos/payments/pkg/logger"
)

// RefundResult reports the gateway-side refund outcome
type RefundResult struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id,omitempty"`
}

// RefundIdempotencyKey derives a deterministic key from the payment id,
// the minor-unit amount and the attempt number. A retried call with the
// same inputs reuses the key, so the gateway executes the refund at most
// once.
func RefundIdempotencyKey(paymentID string, amountMinor int64, attempt int64) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("refund:%s:%d:%d", paymentID, amountMinor, attempt)))
	return hex.EncodeToString(sum[:])
}

// ProcessRefund creates a gateway-side refund against the original payment
// intent. A nil amountMinor means full refund. The idempotency key is
// mandatory: a timed-out call must never be blindly retried with a fresh
// key, since the upstream refund may have succeeded.
func (a *Adapter) ProcessRefund(ctx context.Context, tenantID, gatewayPaymentID string, amountMinor *int64, reason, idempotencyKey string) (*RefundResult, error) {
	if idempotencyKey == "" {
		return nil, apperrors.BadRequest("errors.refund_idempotency_required", "refund idempotency key is required")
	}

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(gatewayPaymentID),
	}
	if amountMinor != nil {
		params.Amount = stripe.Int64(*amountMinor)
	}
	if reason != "" {
		params.AddMetadata("reason", reason)
	}
	params.SetIdempotencyKey(idempotencyKey)

	ref, err := a.client.NewRefund(ctx, params)
	if err != nil {
		logger.Error(ctx).
			Err(err).
			Str("tenant_id", tenantID).
			Str("gateway_payment_id", gatewayPaymentID).
			Str("error_code", gatewayErrorCode(err)).
			Msg("Stripe refund failed")
		return nil, apperrors.Internal("errors.refund_gateway_failed", "payment gateway refund failed", err)
	}

	logger.Info(ctx).
		Str("tenant_id", tenantID).
		Str("gateway_payment_id", gatewayPaymentID).
		Str("refund_id", ref.ID).
		Msg("Stripe refund created")

	return &RefundResult{Success: true, RefundID: ref.ID}, nil
}
