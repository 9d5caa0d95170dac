package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/salonos/payments/internal/monitoring"
	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/internal/payments/usecase/command"
	"github.com/salonos/payments/internal/payments/usecase/query"
	"github.com/salonos/payments/internal/plan"
	"github.com/salonos/payments/internal/stripeconnect"
	"github.com/salonos/payments/kafka"
	"github.com/salonos/payments/pkg/apperrors"
	"github.com/salonos/payments/pkg/auth"
	"github.com/salonos/payments/pkg/logger"
)

// PaymentHandler handles HTTP requests for payments using CQRS pattern
type PaymentHandler struct {
	// Command handlers
	recordHandler   *command.RecordPaymentHandler
	splitHandler    *command.SplitPaymentHandler
	refundHandler   *command.ProcessRefundHandler
	settingsHandler *command.UpdateSettingsHandler

	// Query handlers
	getHandler         *query.GetPaymentHandler
	listHandler        *query.ListPaymentsHandler
	listRefundsHandler *query.ListRefundsHandler
	getSettingsHandler *query.GetSettingsHandler

	stripe         *stripeconnect.Adapter
	limiter        *plan.Limiter
	analyzer       *monitoring.Analyzer
	dashboard      *monitoring.Dashboard
	log            *paymentlog.Log
	kafkaPublisher *kafka.Publisher
}

// NewPaymentHandler wires the handler with its command and query sides
func NewPaymentHandler(
	recordHandler *command.RecordPaymentHandler,
	splitHandler *command.SplitPaymentHandler,
	refundHandler *command.ProcessRefundHandler,
	settingsHandler *command.UpdateSettingsHandler,
	getHandler *query.GetPaymentHandler,
	listHandler *query.ListPaymentsHandler,
	listRefundsHandler *query.ListRefundsHandler,
	getSettingsHandler *query.GetSettingsHandler,
	stripe *stripeconnect.Adapter,
	limiter *plan.Limiter,
	analyzer *monitoring.Analyzer,
	dashboard *monitoring.Dashboard,
	log *paymentlog.Log,
	kafkaPublisher *kafka.Publisher,
) *PaymentHandler {
	return &PaymentHandler{
		recordHandler:      recordHandler,
		splitHandler:       splitHandler,
		refundHandler:      refundHandler,
		settingsHandler:    settingsHandler,
		getHandler:         getHandler,
		listHandler:        listHandler,
		listRefundsHandler: listRefundsHandler,
		getSettingsHandler: getSettingsHandler,
		stripe:             stripe,
		limiter:            limiter,
		analyzer:           analyzer,
		dashboard:          dashboard,
		log:                log,
		kafkaPublisher:     kafkaPublisher,
	}
}

type Response struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message,omitempty"`
	MessageKey string      `json:"message_key,omitempty"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func respondError(w http.ResponseWriter, err error) {
	appErr := apperrors.FromError(err)
	respondJSON(w, appErr.HTTPStatus(), Response{
		Success:    false,
		MessageKey: appErr.MessageKey,
		Error:      appErr.Message,
	})
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func identity(r *http.Request) (tenantID, userID string, ok bool) {
	tenantID, ok = auth.TenantFromContext(r.Context())
	userID, _ = auth.UserFromContext(r.Context())
	return tenantID, userID, ok
}

type paymentRequest struct {
	OrderID          *uuid.UUID      `json:"order_id,omitempty"`
	AppointmentID    *uuid.UUID      `json:"appointment_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	PaymentMethod    string          `json:"payment_method"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	SessionID        string          `json:"session_id,omitempty"`
	CardLast4        string          `json:"card_last4,omitempty"`
	CardBrand        string          `json:"card_brand,omitempty"`
}

// RecordPayment handles POST /api/payments
func (h *PaymentHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	payment, err := h.recordHandler.Handle(r.Context(), command.RecordPaymentCommand{
		TenantID:         tenantID,
		UserID:           userID,
		OrderID:          req.OrderID,
		AppointmentID:    req.AppointmentID,
		Amount:           req.Amount,
		Currency:         req.Currency,
		Method:           domain.PaymentMethod(req.PaymentMethod),
		GatewayPaymentID: req.GatewayPaymentID,
		SessionID:        req.SessionID,
		CardLast4:        req.CardLast4,
		CardBrand:        req.CardBrand,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	h.publishEvent(r, kafka.EventTypePaymentCompleted, payment, "")

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Payment recorded successfully",
		Data:    payment,
	})
}

type splitRequest struct {
	OrderID       *uuid.UUID      `json:"order_id,omitempty"`
	AppointmentID *uuid.UUID      `json:"appointment_id,omitempty"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	Splits        []struct {
		Amount        decimal.Decimal `json:"amount"`
		PaymentMethod string          `json:"payment_method"`
		TransactionID string          `json:"transaction_id,omitempty"`
		CardLast4     string          `json:"card_last4,omitempty"`
		CardBrand     string          `json:"card_brand,omitempty"`
	} `json:"splits"`
}

// SplitPayment handles POST /api/payments/split
func (h *PaymentHandler) SplitPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	var req splitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	items := make([]command.SplitItem, 0, len(req.Splits))
	for _, s := range req.Splits {
		items = append(items, command.SplitItem{
			Amount:        s.Amount,
			Method:        domain.PaymentMethod(s.PaymentMethod),
			TransactionID: s.TransactionID,
			CardLast4:     s.CardLast4,
			CardBrand:     s.CardBrand,
		})
	}

	payment, err := h.splitHandler.Handle(r.Context(), command.SplitPaymentCommand{
		TenantID:      tenantID,
		UserID:        userID,
		OrderID:       req.OrderID,
		AppointmentID: req.AppointmentID,
		TotalAmount:   req.TotalAmount,
		Currency:      req.Currency,
		Splits:        items,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	h.publishEvent(r, kafka.EventTypePaymentCompleted, payment, "")

	respondJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Split payment recorded successfully",
		Data:    payment,
	})
}

type refundRequest struct {
	Amount *decimal.Decimal `json:"amount,omitempty"`
	Reason string           `json:"reason,omitempty"`
}

// ProcessRefund handles POST /api/payments/{id}/refund
func (h *PaymentHandler) ProcessRefund(w http.ResponseWriter, r *http.Request) {
	tenantID, userID, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	paymentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid payment ID"})
		return
	}

	var req refundRequest
	if r.Body != nil {
		// An empty body means a full refund.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	refund, err := h.refundHandler.Handle(r.Context(), command.ProcessRefundCommand{
		TenantID:  tenantID,
		UserID:    userID,
		PaymentID: paymentID,
		Amount:    req.Amount,
		Reason:    req.Reason,
	})
	if err != nil {
		refundCounter.WithLabelValues("failed").Inc()
		respondError(w, err)
		return
	}
	refundCounter.WithLabelValues("succeeded").Inc()

	h.publishRefundEvent(r, tenantID, refund)

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Refund processed successfully",
		Data:    refund,
	})
}

// GetPayment handles GET /api/payments/{id}
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	paymentID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid payment ID"})
		return
	}

	detail, err := h.getHandler.Handle(r.Context(), query.GetPaymentQuery{
		TenantID:  tenantID,
		PaymentID: paymentID,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: detail})
}

// ListPayments handles GET /api/payments
func (h *PaymentHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	limit, offset := pagination(r)
	payments, err := h.listHandler.Handle(r.Context(), query.ListPaymentsQuery{
		TenantID: tenantID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: payments})
}

// ListRefunds handles GET /api/refunds
func (h *PaymentHandler) ListRefunds(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	limit, offset := pagination(r)
	refunds, err := h.listRefundsHandler.Handle(r.Context(), query.ListRefundsQuery{
		TenantID: tenantID,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: refunds})
}

// GetSettings handles GET /api/payments/settings
func (h *PaymentHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	settings, err := h.getSettingsHandler.Handle(r.Context(), query.GetSettingsQuery{TenantID: tenantID})
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: settings})
}

type settingsRequest struct {
	VippsEnabled      *bool   `json:"vipps_enabled,omitempty"`
	CardEnabled       *bool   `json:"card_enabled,omitempty"`
	CashEnabled       *bool   `json:"cash_enabled,omitempty"`
	PayAtSalonEnabled *bool   `json:"pay_at_salon_enabled,omitempty"`
	DefaultMethod     *string `json:"default_payment_method,omitempty"`
}

// UpdateSettings handles PUT /api/payments/settings
func (h *PaymentHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}

	patch := domain.SettingsPatch{
		VippsEnabled:      req.VippsEnabled,
		CardEnabled:       req.CardEnabled,
		CashEnabled:       req.CashEnabled,
		PayAtSalonEnabled: req.PayAtSalonEnabled,
	}
	if req.DefaultMethod != nil {
		method := domain.PaymentMethod(*req.DefaultMethod)
		patch.DefaultMethod = &method
	}

	settings, err := h.settingsHandler.Handle(r.Context(), command.UpdateSettingsCommand{
		TenantID: tenantID,
		Patch:    patch,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	h.dashboard.Invalidate(r.Context(), tenantID)

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Settings updated successfully",
		Data:    settings,
	})
}

// publishEvent emits a payment lifecycle event; delivery is best-effort
// and never fails the request
func (h *PaymentHandler) publishEvent(r *http.Request, eventType string, payment *domain.Payment, errorCode string) {
	if h.kafkaPublisher == nil {
		return
	}
	event := kafka.PaymentEvent{
		EventType:     eventType,
		TenantID:      payment.TenantID,
		PaymentID:     payment.ID,
		OrderID:       payment.OrderID,
		Amount:        payment.Amount,
		Currency:      payment.Currency,
		PaymentMethod: string(payment.Method),
		ErrorCode:     errorCode,
	}
	if err := h.kafkaPublisher.PublishPaymentEvent(r.Context(), event); err != nil {
		logger.Warn(r.Context()).
			Err(err).
			Str("tenant_id", payment.TenantID).
			Str("payment_id", payment.ID.String()).
			Msg("Failed to publish payment event")
	}
}

func (h *PaymentHandler) publishRefundEvent(r *http.Request, tenantID string, refund *domain.Refund) {
	if h.kafkaPublisher == nil {
		return
	}
	event := kafka.PaymentEvent{
		EventType:     kafka.EventTypePaymentRefunded,
		TenantID:      tenantID,
		PaymentID:     refund.PaymentID,
		OrderID:       refund.OrderID,
		Amount:        refund.Amount,
		PaymentMethod: string(refund.Method),
	}
	if err := h.kafkaPublisher.PublishPaymentEvent(r.Context(), event); err != nil {
		logger.Warn(r.Context()).
			Err(err).
			Str("tenant_id", tenantID).
			Str("payment_id", refund.PaymentID.String()).
			Msg("Failed to publish refund event")
	}
}
