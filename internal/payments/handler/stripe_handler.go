package handler

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/salonos/payments/internal/plan"
	"github.com/salonos/payments/internal/stripeconnect"
	"github.com/salonos/payments/pkg/apperrors"
)

// ConnectStripe handles GET /api/stripe/connect: returns the OAuth
// authorization URL for the caller's tenant
func (h *PaymentHandler) ConnectStripe(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	if err := h.limiter.EnforceFeature(r.Context(), tenantID, plan.FeatureOnlinePayments); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    map[string]string{"authorize_url": h.stripe.ConnectAuthURL(tenantID)},
	})
}

// StripeCallback handles GET /api/stripe/callback. The tenant id arrives
// in the OAuth state parameter set by ConnectStripe.
func (h *PaymentHandler) StripeCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	tenantID := r.URL.Query().Get("state")
	if code == "" || tenantID == "" {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Missing code or state parameter"})
		return
	}

	settings, err := h.stripe.HandleConnectCallback(r.Context(), code, tenantID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Stripe account connected",
		Data:    settings,
	})
}

// StripeStatus handles GET /api/stripe/status
func (h *PaymentHandler) StripeStatus(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	status, err := h.stripe.ConnectStatus(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: status})
}

// DisconnectStripe handles POST /api/stripe/disconnect, owner/admin only
func (h *PaymentHandler) DisconnectStripe(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	if err := h.stripe.DisconnectAccount(r.Context(), tenantID); err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Stripe account disconnected",
	})
}

type accountLinkRequest struct {
	RefreshURL string `json:"refresh_url"`
	ReturnURL  string `json:"return_url"`
}

// CreateAccountLink handles POST /api/stripe/account-link
func (h *PaymentHandler) CreateAccountLink(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	var req accountLinkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshURL == "" || req.ReturnURL == "" {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "refresh_url and return_url are required"})
		return
	}

	linkURL, err := h.stripe.CreateAccountLink(r.Context(), tenantID, req.RefreshURL, req.ReturnURL)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"url": linkURL}})
}

// CreateDashboardLink handles GET /api/stripe/dashboard-link
func (h *PaymentHandler) CreateDashboardLink(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	linkURL, err := h.stripe.CreateDashboardLink(r.Context(), tenantID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]string{"url": linkURL}})
}

type intentRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
	OrderID     string          `json:"order_id,omitempty"`
}

func (h *PaymentHandler) createIntent(w http.ResponseWriter, r *http.Request, terminal bool) {
	tenantID, userID, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	feature := plan.FeatureOnlinePayments
	if terminal {
		feature = plan.FeatureTerminalPayments
	}
	if err := h.limiter.EnforceFeature(r.Context(), tenantID, feature); err != nil {
		respondError(w, err)
		return
	}

	var req intentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
		return
	}
	if !req.Amount.IsPositive() {
		respondError(w, apperrors.BadRequest("errors.amount_positive", "amount must be greater than 0"))
		return
	}

	in := stripeconnect.IntentInput{
		TenantID:    tenantID,
		Amount:      req.Amount,
		Currency:    req.Currency,
		Description: req.Description,
		OrderID:     req.OrderID,
		UserID:      userID,
	}

	var result *stripeconnect.IntentResult
	var err error
	if terminal {
		result, err = h.stripe.CreateTerminalDestinationPaymentIntent(r.Context(), in)
	} else {
		result, err = h.stripe.CreateDestinationPaymentIntent(r.Context(), in)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, Response{Success: true, Data: result})
}

// CreatePaymentIntent handles POST /api/payments/intent
func (h *PaymentHandler) CreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	h.createIntent(w, r, false)
}

// CreateTerminalIntent handles POST /api/payments/terminal-intent
func (h *PaymentHandler) CreateTerminalIntent(w http.ResponseWriter, r *http.Request) {
	h.createIntent(w, r, true)
}
