package handler

import (
	"database/sql"
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterMiddlewares installs the shared middleware chain on the router
func RegisterMiddlewares(router *mux.Router) {
	router.Use(LoggingMiddleware)
	router.Use(func(next http.Handler) http.Handler {
		return TracingMiddleware("http-request", next)
	})
}

func authed(endpoint string, h http.HandlerFunc) http.Handler {
	return metricsMiddleware(endpoint, func(w http.ResponseWriter, r *http.Request) {
		AuthMiddleware(h).ServeHTTP(w, r)
	})
}

func managed(endpoint string, h http.HandlerFunc) http.Handler {
	return metricsMiddleware(endpoint, func(w http.ResponseWriter, r *http.Request) {
		AuthMiddleware(ManagerMiddleware(h)).ServeHTTP(w, r)
	})
}

// RegisterRoutes binds the payment surface to the router. Refunds,
// settings writes, gateway account management and monitoring require the
// owner or admin role; recording and reading payments is open to any
// authenticated staff member.
func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	// Payments
	router.Handle("/api/payments", authed("/api/payments", h.RecordPayment)).Methods("POST")
	router.Handle("/api/payments", authed("/api/payments", h.ListPayments)).Methods("GET")
	router.Handle("/api/payments/split", authed("/api/payments/split", h.SplitPayment)).Methods("POST")
	router.Handle("/api/payments/settings", authed("/api/payments/settings", h.GetSettings)).Methods("GET")
	router.Handle("/api/payments/settings", managed("/api/payments/settings", h.UpdateSettings)).Methods("PUT")
	router.Handle("/api/payments/intent", authed("/api/payments/intent", h.CreatePaymentIntent)).Methods("POST")
	router.Handle("/api/payments/terminal-intent", authed("/api/payments/terminal-intent", h.CreateTerminalIntent)).Methods("POST")
	router.Handle("/api/payments/{id}", authed("/api/payments/{id}", h.GetPayment)).Methods("GET")
	router.Handle("/api/payments/{id}/refund", managed("/api/payments/{id}/refund", h.ProcessRefund)).Methods("POST")

	// Refund reports
	router.Handle("/api/refunds", managed("/api/refunds", h.ListRefunds)).Methods("GET")

	// Stripe Connect account management
	router.Handle("/api/stripe/connect", managed("/api/stripe/connect", h.ConnectStripe)).Methods("GET")
	router.Handle("/api/stripe/callback", metricsMiddleware("/api/stripe/callback", h.StripeCallback)).Methods("GET")
	router.Handle("/api/stripe/status", authed("/api/stripe/status", h.StripeStatus)).Methods("GET")
	router.Handle("/api/stripe/disconnect", managed("/api/stripe/disconnect", h.DisconnectStripe)).Methods("POST")
	router.Handle("/api/stripe/account-link", managed("/api/stripe/account-link", h.CreateAccountLink)).Methods("POST")
	router.Handle("/api/stripe/dashboard-link", managed("/api/stripe/dashboard-link", h.CreateDashboardLink)).Methods("GET")

	// Monitoring, owner/admin only
	router.Handle("/api/monitoring/success-rate", managed("/api/monitoring/success-rate", h.SuccessRate)).Methods("GET")
	router.Handle("/api/monitoring/failures", managed("/api/monitoring/failures", h.FailureSummary)).Methods("GET")
	router.Handle("/api/monitoring/health", managed("/api/monitoring/health", h.PaymentHealth)).Methods("GET")
	router.Handle("/api/monitoring/alerts", managed("/api/monitoring/alerts", h.Alerts)).Methods("GET")
	router.Handle("/api/monitoring/dashboard", managed("/api/monitoring/dashboard", h.MonitoringDashboard)).Methods("GET")
	router.Handle("/api/monitoring/logs", managed("/api/monitoring/logs", h.PaymentLogs)).Methods("GET")
}

// RegisterHealthCheck exposes liveness and readiness endpoints
func (h *PaymentHandler) RegisterHealthCheck(router *mux.Router, db *sql.DB) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, Response{Success: true, Message: "ok"})
	}).Methods("GET")

	router.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, Response{Success: false, Error: "database unavailable"})
			return
		}
		respondJSON(w, http.StatusOK, Response{Success: true, Message: "ready"})
	}).Methods("GET")
}
