package repository

import (
	"context"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/pkg/apperrors"
)

// TenantGuard is the defense-in-depth check behind the scoped queries.
// The scoped WHERE clauses already make cross-tenant reads impossible;
// the guard exists for code paths that obtain a record first and verify
// ownership second, and it records the attempt for operators.
type TenantGuard struct {
	log *paymentlog.Log
}

func NewTenantGuard(log *paymentlog.Log) *TenantGuard {
	return &TenantGuard{log: log}
}

// ValidateTenantOwnership raises on mismatch and writes a critical
// security_breach entry carrying both tenant ids and the resource type.
// Callers surface the failure as an ordinary NOT_FOUND so an attacker
// learns nothing about the record's existence.
func (g *TenantGuard) ValidateTenantOwnership(ctx context.Context, requestedTenant, actualTenant, resourceType, resourceID string) error {
	if requestedTenant == actualTenant {
		return nil
	}

	g.log.Append(ctx, paymentlog.Entry{
		TenantID: actualTenant,
		Level:    paymentlog.LevelCritical,
		Category: paymentlog.CategorySecurityBreach,
		Message:  "Cross-tenant access attempt blocked",
		Details: paymentlog.Details{
			"requested_tenant_id": requestedTenant,
			"actual_tenant_id":    actualTenant,
			"resource_type":       resourceType,
			"resource_id":         resourceID,
		},
	})

	return apperrors.Forbidden("errors.resource_not_found", "resource does not belong to caller tenant")
}
