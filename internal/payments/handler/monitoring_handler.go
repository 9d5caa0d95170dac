package handler

import (
	"net/http"
	"strconv"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/pkg/apperrors"
)

func hoursBack(r *http.Request) int {
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 168 {
			return n
		}
	}
	return 24
}

// SuccessRate handles GET /api/monitoring/success-rate
func (h *PaymentHandler) SuccessRate(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.analyzer.SuccessRate(r.Context(), tenantID, hoursBack(r)),
	})
}

// FailureSummary handles GET /api/monitoring/failures
func (h *PaymentHandler) FailureSummary(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.analyzer.FailureSummary(r.Context(), tenantID, hoursBack(r)),
	})
}

// PaymentHealth handles GET /api/monitoring/health
func (h *PaymentHandler) PaymentHealth(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.analyzer.Health(r.Context(), tenantID),
	})
}

// Alerts handles GET /api/monitoring/alerts
func (h *PaymentHandler) Alerts(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	alerting, alert := h.analyzer.ShouldAlert(r.Context(), tenantID)
	data := map[string]interface{}{"alerting": alerting}
	if alert != nil {
		data["alert"] = alert
	}
	respondJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// MonitoringDashboard handles GET /api/monitoring/dashboard
func (h *PaymentHandler) MonitoringDashboard(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}
	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.dashboard.Summary(r.Context(), tenantID),
	})
}

// PaymentLogs handles GET /api/monitoring/logs
func (h *PaymentHandler) PaymentLogs(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := identity(r)
	if !ok {
		respondError(w, apperrors.Forbidden("errors.tenant_required", "tenant context is required"))
		return
	}

	limit, _ := pagination(r)
	level := paymentlog.Level(r.URL.Query().Get("level"))
	category := paymentlog.Category(r.URL.Query().Get("category"))

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Data:    h.log.Recent(tenantID, limit, level, category),
	})
}
