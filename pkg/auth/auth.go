package auth

import (
	"context"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	TenantIDKey contextKey = "tenant_id"
	UserIDKey   contextKey = "user_id"
	RoleKey     contextKey = "role"
)

// Roles understood by the payment surface. Owner and admin may manage
// settings, disconnect the gateway account and read refund reports.
const (
	RoleOwner    = "owner"
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// Claims is the identity contract every request-facing operation consumes.
// TenantID is the isolation key; its absence is a hard failure before any
// business logic runs.
type Claims struct {
	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "dev-secret-change-me"
	}
	return []byte(secret)
}

// ValidateToken parses and verifies a signed token
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.TenantID == "" {
		return nil, fmt.Errorf("token missing tenant_id claim")
	}
	return claims, nil
}

// GenerateToken signs a token for the given identity. Used by tests and
// local tooling; production tokens come from the auth service.
func GenerateToken(tenantID, userID, role string) (string, error) {
	claims := &Claims{
		TenantID: tenantID,
		UserID:   userID,
		Role:     role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

// WithIdentity stores the caller identity on the context
func WithIdentity(ctx context.Context, claims *Claims) context.Context {
	ctx = context.WithValue(ctx, TenantIDKey, claims.TenantID)
	ctx = context.WithValue(ctx, UserIDKey, claims.UserID)
	ctx = context.WithValue(ctx, RoleKey, claims.Role)
	return ctx
}

// TenantFromContext returns the authenticated tenant id
func TenantFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(TenantIDKey).(string)
	return tenantID, ok && tenantID != ""
}

// UserFromContext returns the authenticated user id
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// RoleFromContext returns the caller role
func RoleFromContext(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

// IsManager reports whether the caller may perform owner/admin operations
func IsManager(ctx context.Context) bool {
	role, ok := RoleFromContext(ctx)
	return ok && (role == RoleOwner || role == RoleAdmin)
}
