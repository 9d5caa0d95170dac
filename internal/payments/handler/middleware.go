package handler

import (
	"net/http"
	"strings"

	"github.com/salonos/payments/pkg/auth"
	"github.com/salonos/payments/pkg/logger"
)

// AuthMiddleware validates the bearer token and installs the caller
// identity on the request context. Every payment route runs behind it;
// a token without a tenant claim never reaches business logic.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			respondJSON(w, http.StatusUnauthorized, Response{
				Success: false,
				Error:   "Missing or invalid authorization header",
			})
			return
		}

		claims, err := auth.ValidateToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			logger.Warn(r.Context()).Err(err).Msg("Token validation failed")
			respondJSON(w, http.StatusUnauthorized, Response{
				Success: false,
				Error:   "Invalid token",
			})
			return
		}

		ctx := auth.WithIdentity(r.Context(), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ManagerMiddleware restricts a route to owner/admin roles
func ManagerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsManager(r.Context()) {
			respondJSON(w, http.StatusForbidden, Response{
				Success:    false,
				MessageKey: "errors.manager_required",
				Error:      "Owner or admin role required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
