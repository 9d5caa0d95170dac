package command

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/apperrors"
)

// RecordPaymentCommand records a completed payment post-hoc. Cash and
// manual card flows are recorded after the money moved, not
// pre-authorized, so the row is inserted directly in completed state.
type RecordPaymentCommand struct {
	TenantID         string
	UserID           string
	OrderID          *uuid.UUID
	AppointmentID    *uuid.UUID
	Amount           decimal.Decimal
	Currency         string
	Method           domain.PaymentMethod
	GatewayPaymentID string
	SessionID        string
	CardLast4        string
	CardBrand        string
}

// RecordPaymentHandler handles the record payment command
type RecordPaymentHandler struct {
	repo domain.PaymentRepository
	log  *paymentlog.Log
}

func NewRecordPaymentHandler(repo domain.PaymentRepository, log *paymentlog.Log) *RecordPaymentHandler {
	return &RecordPaymentHandler{repo: repo, log: log}
}

// Handle validates the command and persists the payment plus the linked
// order status change in one transaction.
func (h *RecordPaymentHandler) Handle(ctx context.Context, cmd RecordPaymentCommand) (*domain.Payment, error) {
	if cmd.TenantID == "" {
		return nil, apperrors.Forbidden("errors.tenant_required", "tenant context is required")
	}
	if !cmd.Amount.IsPositive() {
		return nil, apperrors.BadRequest("errors.amount_positive", "amount must be greater than 0")
	}
	if cmd.Method == "" {
		return nil, apperrors.BadRequest("errors.payment_method_required", "payment method is required")
	}
	if cmd.Currency == "" {
		cmd.Currency = "NOK"
	}

	// An order id supplied by the caller must resolve within the caller's
	// tenant; a cross-tenant id is indistinguishable from a missing one.
	if cmd.OrderID != nil {
		order, err := h.repo.FindOrderSecure(ctx, *cmd.OrderID, cmd.TenantID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, apperrors.NotFound("errors.order_not_found", "order not found")
		}
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:               uuid.New(),
		TenantID:         cmd.TenantID,
		OrderID:          cmd.OrderID,
		AppointmentID:    cmd.AppointmentID,
		Amount:           cmd.Amount,
		Currency:         cmd.Currency,
		Method:           cmd.Method,
		Status:           domain.StatusCompleted,
		GatewayPaymentID: cmd.GatewayPaymentID,
		SessionID:        cmd.SessionID,
		CardLast4:        cmd.CardLast4,
		CardBrand:        cmd.CardBrand,
		RefundAmount:     decimal.Zero,
		ProcessedBy:      cmd.UserID,
		ProcessedAt:      now,
	}

	err := h.repo.WithinTransaction(ctx, func(tx domain.PaymentRepository) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if cmd.OrderID != nil {
			return tx.UpdateOrderStatus(ctx, *cmd.OrderID, cmd.TenantID, domain.OrderCompleted)
		}
		return nil
	})
	if err != nil {
		h.log.Append(ctx, paymentlog.Entry{
			TenantID:     cmd.TenantID,
			Level:        paymentlog.LevelError,
			Category:     paymentlog.CategoryPaymentFailed,
			Message:      "Payment insertion failed",
			Amount:       &cmd.Amount,
			Method:       cmd.Method,
			OrderID:      cmd.OrderID,
			UserID:       cmd.UserID,
			ErrorCode:    "DB_ERROR",
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	h.log.Append(ctx, paymentlog.Entry{
		TenantID:  cmd.TenantID,
		Level:     paymentlog.LevelInfo,
		Category:  paymentlog.CategoryPaymentCompleted,
		Message:   "Payment recorded",
		PaymentID: &payment.ID,
		OrderID:   cmd.OrderID,
		Amount:    &cmd.Amount,
		Method:    cmd.Method,
		UserID:    cmd.UserID,
	})

	return payment, nil
}
