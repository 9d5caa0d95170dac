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

// SplitItem is one leg of a multi-method payment
type SplitItem struct {
	Amount        decimal.Decimal
	Method        domain.PaymentMethod
	TransactionID string
	CardLast4     string
	CardBrand     string
}

// SplitPaymentCommand settles one logical payment across several methods
type SplitPaymentCommand struct {
	TenantID      string
	UserID        string
	OrderID       *uuid.UUID
	AppointmentID *uuid.UUID
	TotalAmount   decimal.Decimal
	Currency      string
	Splits        []SplitItem
}

// SplitPaymentHandler handles the split payment command
type SplitPaymentHandler struct {
	repo domain.PaymentRepository
	log  *paymentlog.Log
}

func NewSplitPaymentHandler(repo domain.PaymentRepository, log *paymentlog.Log) *SplitPaymentHandler {
	return &SplitPaymentHandler{repo: repo, log: log}
}

// Handle validates that the split sum matches the total within tolerance,
// then creates the parent payment and one split row per leg in a single
// transaction. A mismatch is a caller error, not a server fault.
func (h *SplitPaymentHandler) Handle(ctx context.Context, cmd SplitPaymentCommand) (*domain.Payment, error) {
	if cmd.TenantID == "" {
		return nil, apperrors.Forbidden("errors.tenant_required", "tenant context is required")
	}
	if len(cmd.Splits) == 0 {
		return nil, apperrors.BadRequest("errors.splits_required", "at least one split is required")
	}
	if !cmd.TotalAmount.IsPositive() {
		return nil, apperrors.BadRequest("errors.amount_positive", "total amount must be greater than 0")
	}

	sum := decimal.Zero
	for _, s := range cmd.Splits {
		if !s.Amount.IsPositive() {
			return nil, apperrors.BadRequest("errors.split_amount_positive", "split amounts must be greater than 0")
		}
		sum = sum.Add(s.Amount)
	}
	if !domain.WithinTolerance(sum, cmd.TotalAmount) {
		return nil, apperrors.BadRequest("errors.split_sum_mismatch", "split amounts do not sum to the total amount")
	}

	if cmd.OrderID != nil {
		order, err := h.repo.FindOrderSecure(ctx, *cmd.OrderID, cmd.TenantID)
		if err != nil {
			return nil, err
		}
		if order == nil {
			return nil, apperrors.NotFound("errors.order_not_found", "order not found")
		}
	}

	if cmd.Currency == "" {
		cmd.Currency = "NOK"
	}

	now := time.Now().UTC()
	payment := &domain.Payment{
		ID:            uuid.New(),
		TenantID:      cmd.TenantID,
		OrderID:       cmd.OrderID,
		AppointmentID: cmd.AppointmentID,
		Amount:        cmd.TotalAmount,
		Currency:      cmd.Currency,
		Method:        domain.MethodSplit,
		Status:        domain.StatusCompleted,
		RefundAmount:  decimal.Zero,
		ProcessedBy:   cmd.UserID,
		ProcessedAt:   now,
	}

	splits := make([]domain.PaymentSplit, 0, len(cmd.Splits))
	for _, s := range cmd.Splits {
		splits = append(splits, domain.PaymentSplit{
			ID:            uuid.New(),
			TenantID:      cmd.TenantID,
			PaymentID:     payment.ID,
			OrderID:       cmd.OrderID,
			Amount:        s.Amount,
			Method:        s.Method,
			TransactionID: s.TransactionID,
			CardLast4:     s.CardLast4,
			CardBrand:     s.CardBrand,
			Status:        domain.StatusCompleted,
		})
	}

	err := h.repo.WithinTransaction(ctx, func(tx domain.PaymentRepository) error {
		if err := tx.CreatePayment(ctx, payment); err != nil {
			return err
		}
		if err := tx.CreateSplits(ctx, splits); err != nil {
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
			Message:      "Split payment insertion failed",
			Amount:       &cmd.TotalAmount,
			Method:       domain.MethodSplit,
			OrderID:      cmd.OrderID,
			UserID:       cmd.UserID,
			ErrorCode:    "DB_ERROR",
			ErrorMessage: err.Error(),
		})
		return nil, err
	}

	// One aggregate entry for the whole split, not one per leg.
	h.log.Append(ctx, paymentlog.Entry{
		TenantID:  cmd.TenantID,
		Level:     paymentlog.LevelInfo,
		Category:  paymentlog.CategoryPaymentCompleted,
		Message:   "Split payment recorded",
		PaymentID: &payment.ID,
		OrderID:   cmd.OrderID,
		Amount:    &cmd.TotalAmount,
		Method:    domain.MethodSplit,
		UserID:    cmd.UserID,
		Details:   paymentlog.Details{"split_count": len(splits)},
	})

	return payment, nil
}
