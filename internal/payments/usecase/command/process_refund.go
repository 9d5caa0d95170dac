package command

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/internal/stripeconnect"
	"github.com/salonos/payments/pkg/apperrors"
)

// RefundGateway is the slice of the gateway adapter the refund flow needs
type RefundGateway interface {
	ProcessRefund(ctx context.Context, tenantID, gatewayPaymentID string, amountMinor *int64, reason, idempotencyKey string) (*stripeconnect.RefundResult, error)
}

// OwnershipGuard re-verifies that a row read under lock belongs to the
// caller's tenant and records the breach when it does not
type OwnershipGuard interface {
	ValidateTenantOwnership(ctx context.Context, requestedTenant, actualTenant, resourceType, resourceID string) error
}

// ProcessRefundCommand reverses part or all of a completed payment. A nil
// Amount means full refund of whatever remains refundable.
type ProcessRefundCommand struct {
	TenantID  string
	UserID    string
	PaymentID uuid.UUID
	Amount    *decimal.Decimal
	Reason    string
}

// ProcessRefundHandler handles the refund command with a two-phase
// external call: an intent row is committed before Stripe is called, and
// a retry reconciles against that row instead of re-executing the call.
type ProcessRefundHandler struct {
	repo    domain.PaymentRepository
	gateway RefundGateway
	guard   OwnershipGuard
	log     *paymentlog.Log
}

func NewProcessRefundHandler(repo domain.PaymentRepository, gateway RefundGateway, guard OwnershipGuard, log *paymentlog.Log) *ProcessRefundHandler {
	return &ProcessRefundHandler{repo: repo, gateway: gateway, guard: guard, log: log}
}

func (h *ProcessRefundHandler) Handle(ctx context.Context, cmd ProcessRefundCommand) (*domain.Refund, error) {
	if cmd.TenantID == "" {
		return nil, apperrors.Forbidden("errors.tenant_required", "tenant context is required")
	}

	// Tenant-scoped lookup: absent and cross-tenant both read as not found.
	payment, err := h.repo.FindPaymentSecure(ctx, cmd.PaymentID, cmd.TenantID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, apperrors.NotFound("errors.payment_not_found", "payment not found")
	}

	if payment.Status != domain.StatusCompleted && payment.Status != domain.StatusPartiallyRefunded {
		return nil, apperrors.PreconditionFailed(
			"errors.payment_not_refundable",
			"only completed payments can be refunded",
		)
	}

	refundAmount := payment.Amount
	if cmd.Amount != nil {
		refundAmount = *cmd.Amount
	}
	if !refundAmount.IsPositive() {
		return nil, apperrors.BadRequest("errors.amount_positive", "refund amount must be greater than 0")
	}
	if refundAmount.GreaterThan(payment.Amount) {
		return nil, apperrors.BadRequest("errors.refund_exceeds_amount", "refund amount exceeds original payment amount")
	}
	if refundAmount.GreaterThan(payment.RemainingRefundable()) {
		return nil, apperrors.BadRequest("errors.refund_exceeds_remaining", "cumulative refunds would exceed the original payment amount")
	}

	refundMethod := domain.RefundMethodManual
	var gatewayRefundID string
	var gatewayAttempt *domain.RefundAttempt

	// Gateway-processed payments are refunded externally first. The call
	// is guarded by an intent row so that a crash or timeout between the
	// external refund and the local transaction is reconciled on retry
	// rather than double-refunded.
	if payment.GatewayPaymentID != "" {
		refundMethod = domain.RefundMethodStripe
		gatewayAttempt, err = h.externalRefund(ctx, payment, refundAmount, cmd.Reason)
		if err != nil {
			return nil, err
		}
		gatewayRefundID = gatewayAttempt.GatewayRefundID
	}

	now := time.Now().UTC()
	refund := &domain.Refund{
		ID:              uuid.New(),
		TenantID:        cmd.TenantID,
		PaymentID:       payment.ID,
		OrderID:         payment.OrderID,
		AppointmentID:   payment.AppointmentID,
		Amount:          refundAmount,
		Reason:          cmd.Reason,
		Method:          refundMethod,
		Status:          "completed",
		GatewayRefundID: gatewayRefundID,
		ProcessedBy:     cmd.UserID,
		ProcessedAt:     now,
	}

	err = h.repo.WithinTransaction(ctx, func(tx domain.PaymentRepository) error {
		// Locking read: the cumulative bound is re-validated inside the
		// transaction that writes the refund, so concurrent refunds
		// against the same payment serialize on the row lock.
		locked, err := tx.FindPaymentForUpdate(ctx, payment.ID, cmd.TenantID)
		if err != nil {
			return err
		}
		if locked == nil {
			return apperrors.NotFound("errors.payment_not_found", "payment not found")
		}
		if err := h.guard.ValidateTenantOwnership(ctx, cmd.TenantID, locked.TenantID, "payment", locked.ID.String()); err != nil {
			// The guard has recorded the breach; the caller sees a plain miss.
			return apperrors.NotFound("errors.payment_not_found", "payment not found")
		}
		if refundAmount.GreaterThan(locked.RemainingRefundable()) {
			return apperrors.BadRequest("errors.refund_exceeds_remaining", "cumulative refunds would exceed the original payment amount")
		}

		if err := tx.CreateRefund(ctx, refund); err != nil {
			return err
		}

		// The attempt is consumed by this refund; a later refund of the
		// same amount opens a fresh attempt and calls the gateway again.
		if gatewayAttempt != nil {
			gatewayAttempt.Status = "consumed"
			if err := tx.UpdateRefundAttempt(ctx, gatewayAttempt); err != nil {
				return err
			}
		}

		locked.RefundAmount = locked.RefundAmount.Add(refundAmount)
		locked.RefundReason = cmd.Reason
		fullyRefunded := locked.RefundAmount.Equal(locked.Amount)
		if fullyRefunded {
			locked.Status = domain.StatusRefunded
			locked.RefundedAt = &now
		}
		if err := tx.UpdatePayment(ctx, locked); err != nil {
			return err
		}

		if locked.OrderID != nil {
			orderStatus := domain.OrderPartiallyRefunded
			if fullyRefunded {
				orderStatus = domain.OrderRefunded
			}
			if err := tx.UpdateOrderStatus(ctx, *locked.OrderID, cmd.TenantID, orderStatus); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if gatewayRefundID != "" {
			// The external refund exists but the local write failed. The
			// succeeded attempt row carries the gateway refund id; a
			// retried command will skip the external call and complete
			// the local side.
			h.log.Append(ctx, paymentlog.Entry{
				TenantID:     cmd.TenantID,
				Level:        paymentlog.LevelCritical,
				Category:     paymentlog.CategoryPaymentRefunded,
				Message:      "External refund succeeded but local persistence failed",
				PaymentID:    &payment.ID,
				Amount:       &refundAmount,
				ErrorCode:    "REFUND_RECONCILE_REQUIRED",
				ErrorMessage: err.Error(),
				Details:      paymentlog.Details{"gateway_refund_id": gatewayRefundID},
			})
		}
		return nil, err
	}

	h.log.Append(ctx, paymentlog.Entry{
		TenantID:  cmd.TenantID,
		Level:     paymentlog.LevelInfo,
		Category:  paymentlog.CategoryPaymentRefunded,
		Message:   "Payment refunded",
		PaymentID: &payment.ID,
		OrderID:   payment.OrderID,
		Amount:    &refundAmount,
		Method:    payment.Method,
		UserID:    cmd.UserID,
		Details:   paymentlog.Details{"refund_method": string(refundMethod)},
	})

	return refund, nil
}

// externalRefund runs the intent-row protocol around the gateway call and
// returns the attempt carrying the gateway refund id.
func (h *ProcessRefundHandler) externalRefund(ctx context.Context, payment *domain.Payment, amount decimal.Decimal, reason string) (*domain.RefundAttempt, error) {
	amountMinor := domain.MinorUnits(amount)

	attempts, err := h.repo.CountRefundAttempts(ctx, payment.ID)
	if err != nil {
		return nil, err
	}

	// Reconcile: a succeeded attempt is an orphan from a run that crashed
	// before its refund committed, so its result is reused instead of
	// calling out again. Once a committed refund marks the attempt
	// consumed it never short-circuits a later refund of the same amount.
	if attempts > 0 {
		key := stripeconnect.RefundIdempotencyKey(payment.ID.String(), amountMinor, attempts)
		prev, err := h.repo.FindRefundAttempt(ctx, key)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			switch prev.Status {
			case "succeeded":
				return prev, nil
			case "pending":
				// Outcome unknown: retry with the same idempotency key so
				// the gateway deduplicates.
				return h.callGateway(ctx, payment, amountMinor, reason, prev)
			}
		}
	}

	attempt := &domain.RefundAttempt{
		ID:             uuid.New(),
		TenantID:       payment.TenantID,
		PaymentID:      payment.ID,
		AmountMinor:    amountMinor,
		Attempt:        int(attempts) + 1,
		IdempotencyKey: stripeconnect.RefundIdempotencyKey(payment.ID.String(), amountMinor, attempts+1),
		Status:         "pending",
	}
	// Committed before the external call, outside the main transaction.
	if err := h.repo.CreateRefundAttempt(ctx, attempt); err != nil {
		return nil, err
	}

	return h.callGateway(ctx, payment, amountMinor, reason, attempt)
}

func (h *ProcessRefundHandler) callGateway(ctx context.Context, payment *domain.Payment, amountMinor int64, reason string, attempt *domain.RefundAttempt) (*domain.RefundAttempt, error) {
	result, err := h.gateway.ProcessRefund(ctx, payment.TenantID, payment.GatewayPaymentID, &amountMinor, reason, attempt.IdempotencyKey)
	if err != nil {
		attempt.Status = "failed"
		if updateErr := h.repo.UpdateRefundAttempt(ctx, attempt); updateErr != nil {
			return nil, updateErr
		}
		return nil, err
	}

	attempt.Status = "succeeded"
	attempt.GatewayRefundID = result.RefundID
	if err := h.repo.UpdateRefundAttempt(ctx, attempt); err != nil {
		// The gateway refund exists; surface the attempt anyway so the
		// local refund row still records its id.
		return attempt, nil
	}
	return attempt, nil
}
