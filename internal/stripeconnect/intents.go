package stripeconnect

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v80"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/apperrors"
)

// ErrCodeAccountNotReady tags intent failures caused by the tenant's
// account not being chargeable yet
const ErrCodeAccountNotReady = "ACCOUNT_NOT_READY"

// IntentInput describes a destination charge in major currency units
type IntentInput struct {
	TenantID    string
	Amount      decimal.Decimal
	Currency    string
	Description string
	OrderID     string
	UserID      string
}

// IntentResult is the created gateway intent plus the fee arithmetic that
// produced it
type IntentResult struct {
	IntentID        string `json:"intent_id"`
	ClientSecret    string `json:"client_secret"`
	AmountMinor     int64  `json:"amount_minor"`
	ApplicationFee  int64  `json:"application_fee"`
	DestinationAcct string `json:"destination_account"`
}

// CreateDestinationPaymentIntent creates an online destination charge.
// Amount is converted once to minor units; the application fee is computed
// from the minor-unit amount with round-half-up. The intent-created log
// entry precedes the durable payment row: the orchestrator assigns the
// real payment id after local persistence, so the entry carries a
// placeholder id of 0.
func (a *Adapter) CreateDestinationPaymentIntent(ctx context.Context, in IntentInput) (*IntentResult, error) {
	return a.createIntent(ctx, in, false)
}

// CreateTerminalDestinationPaymentIntent is the in-person variant,
// restricted to card_present payment methods.
func (a *Adapter) CreateTerminalDestinationPaymentIntent(ctx context.Context, in IntentInput) (*IntentResult, error) {
	return a.createIntent(ctx, in, true)
}

func (a *Adapter) createIntent(ctx context.Context, in IntentInput, terminal bool) (*IntentResult, error) {
	ok, reason, err := a.CanAcceptPayments(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}
	if !ok {
		a.log.Append(ctx, paymentlog.Entry{
			TenantID:     in.TenantID,
			Level:        paymentlog.LevelError,
			Category:     paymentlog.CategoryPaymentFailed,
			Message:      "Payment intent rejected: " + reason,
			Amount:       &in.Amount,
			ErrorCode:    ErrCodeAccountNotReady,
			ErrorMessage: reason,
			UserID:       in.UserID,
		})
		return nil, apperrors.PreconditionFailed("errors.stripe_account_not_ready", reason)
	}

	settings, err := a.settings.FindSettings(ctx, in.TenantID)
	if err != nil {
		return nil, err
	}

	amountMinor := domain.MinorUnits(in.Amount)
	fee := domain.ApplicationFee(amountMinor, a.cfg.ApplicationFeePct)

	currency := in.Currency
	if currency == "" {
		currency = "nok"
	}

	params := &stripe.PaymentIntentParams{
		Amount:               stripe.Int64(amountMinor),
		Currency:             stripe.String(currency),
		ApplicationFeeAmount: stripe.Int64(fee),
		TransferData: &stripe.PaymentIntentTransferDataParams{
			Destination: settings.StripeAccountID,
		},
	}
	if in.Description != "" {
		params.Description = stripe.String(in.Description)
	}
	if terminal {
		params.PaymentMethodTypes = stripe.StringSlice([]string{"card_present"})
		params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	}
	params.AddMetadata("tenant_id", in.TenantID)
	if in.OrderID != "" {
		params.AddMetadata("order_id", in.OrderID)
	}

	pi, err := a.client.NewPaymentIntent(ctx, params)
	if err != nil {
		errorCode := gatewayErrorCode(err)
		a.log.Append(ctx, paymentlog.Entry{
			TenantID:     in.TenantID,
			Level:        paymentlog.LevelError,
			Category:     paymentlog.CategoryPaymentFailed,
			Message:      "Stripe payment intent creation failed",
			Amount:       &in.Amount,
			ErrorCode:    errorCode,
			ErrorMessage: err.Error(),
			UserID:       in.UserID,
		})
		// The gateway error detail stays in the log; the caller gets a
		// generic failure.
		return nil, apperrors.Internal("errors.payment_gateway_failed", "payment gateway request failed", err)
	}

	a.log.Append(ctx, paymentlog.Entry{
		TenantID: in.TenantID,
		Level:    paymentlog.LevelInfo,
		Category: paymentlog.CategoryPaymentCreated,
		Message:  "Stripe payment intent created",
		Amount:   &in.Amount,
		Method:   domain.MethodStripe,
		UserID:   in.UserID,
		Details: paymentlog.Details{
			"payment_id":      0, // assigned by the orchestrator after local persistence
			"intent_id":       pi.ID,
			"amount_minor":    amountMinor,
			"application_fee": fee,
			"terminal":        terminal,
		},
	})

	return &IntentResult{
		IntentID:        pi.ID,
		ClientSecret:    pi.ClientSecret,
		AmountMinor:     amountMinor,
		ApplicationFee:  fee,
		DestinationAcct: derefString(settings.StripeAccountID),
	}, nil
}

func gatewayErrorCode(err error) string {
	if stripeErr, ok := err.(*stripe.Error); ok {
		if stripeErr.Code != "" {
			return string(stripeErr.Code)
		}
		return string(stripeErr.Type)
	}
	return "GATEWAY_ERROR"
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
