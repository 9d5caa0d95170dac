package plan

import (
	"context"
	"fmt"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/tenant/domain"
	"github.com/salonos/payments/pkg/apperrors"
)

// Features gated behind paid plans. Tenants without a subscription row
// fall back to the free tier, which only carries the basics.
const (
	FeatureOnlinePayments   = "online_payments"
	FeatureTerminalPayments = "terminal_payments"
	FeatureSMSReminders     = "sms_reminders"
	FeatureAdvancedReports  = "advanced_reports"
	FeatureMultiLocation    = "multi_location"
)

var freeTierFeatures = map[string]bool{
	FeatureOnlinePayments: true,
}

// QuotaPolicy describes how a quota check was resolved
type QuotaPolicy string

const (
	// PolicyUnbounded means no enforcement rule exists for the quota;
	// callers must not treat it as "within limit".
	PolicyUnbounded QuotaPolicy = "unbounded"
	PolicyEnforced  QuotaPolicy = "enforced"
)

// QuotaDecision is the result of a quota check
type QuotaDecision struct {
	Policy    QuotaPolicy `json:"policy"`
	Allowed   bool        `json:"allowed"`
	Limit     int         `json:"limit,omitempty"`
	Remaining int         `json:"remaining,omitempty"`
}

// Limiter resolves plan limits against live tenant data
type Limiter struct {
	repo domain.Repository
	log  *paymentlog.Log
}

func NewLimiter(repo domain.Repository, log *paymentlog.Log) *Limiter {
	return &Limiter{repo: repo, log: log}
}

// planFor loads the tenant's subscription and plan. A missing
// subscription or plan row resolves to (nil, nil): free tier.
func (l *Limiter) planFor(ctx context.Context, tenantID string) (*domain.Plan, error) {
	sub, err := l.repo.FindSubscription(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.Status == domain.SubscriptionCanceled {
		return nil, nil
	}
	return l.repo.FindPlan(ctx, sub.PlanID)
}

// CanAddEmployee checks the live active staff count against the plan's
// employee limit. Nil limit means unlimited.
func (l *Limiter) CanAddEmployee(ctx context.Context, tenantID string) (bool, int, error) {
	plan, err := l.planFor(ctx, tenantID)
	if err != nil {
		return false, 0, err
	}
	if plan == nil || plan.MaxEmployees == nil {
		return true, 0, nil
	}
	count, err := l.repo.CountActiveStaff(ctx, tenantID)
	if err != nil {
		return false, 0, err
	}
	return count < int64(*plan.MaxEmployees), *plan.MaxEmployees, nil
}

// EnforceEmployeeLimit raises a FORBIDDEN error carrying the limit when
// the tenant is at capacity
func (l *Limiter) EnforceEmployeeLimit(ctx context.Context, tenantID string) error {
	ok, limit, err := l.CanAddEmployee(ctx, tenantID)
	if err != nil {
		return err
	}
	if !ok {
		l.log.Append(ctx, paymentlog.Entry{
			TenantID: tenantID,
			Level:    paymentlog.LevelWarning,
			Category: paymentlog.CategoryPlanLimit,
			Message:  "employee limit reached",
			Details:  paymentlog.Details{"limit": limit},
		})
		return apperrors.Forbidden("errors.plan_employee_limit",
			fmt.Sprintf("plan allows at most %d active employees", limit))
	}
	return nil
}

// HasFeatureAccess reports whether the tenant's plan includes a feature.
// Free-tier tenants get only the free-tier allowlist.
func (l *Limiter) HasFeatureAccess(ctx context.Context, tenantID, feature string) (bool, error) {
	plan, err := l.planFor(ctx, tenantID)
	if err != nil {
		return false, err
	}
	if plan == nil {
		return freeTierFeatures[feature], nil
	}
	return plan.HasFeature(feature), nil
}

// EnforceFeature raises FORBIDDEN when the plan lacks the feature
func (l *Limiter) EnforceFeature(ctx context.Context, tenantID, feature string) error {
	ok, err := l.HasFeatureAccess(ctx, tenantID, feature)
	if err != nil {
		return err
	}
	if !ok {
		l.log.Append(ctx, paymentlog.Entry{
			TenantID: tenantID,
			Level:    paymentlog.LevelWarning,
			Category: paymentlog.CategoryPlanLimit,
			Message:  "feature not included in plan",
			Details:  paymentlog.Details{"feature": feature},
		})
		return apperrors.Forbidden("errors.plan_feature_unavailable",
			fmt.Sprintf("feature %q is not included in the current plan", feature))
	}
	return nil
}

// SMSQuota resolves the tenant's SMS allowance. No usage counter exists
// yet, so a plan quota cannot be enforced: the decision comes back
// PolicyUnbounded with a logged warning instead of a silent pass.
func (l *Limiter) SMSQuota(ctx context.Context, tenantID string) (QuotaDecision, error) {
	plan, err := l.planFor(ctx, tenantID)
	if err != nil {
		return QuotaDecision{}, err
	}
	if plan == nil || plan.SMSQuota == nil {
		return QuotaDecision{Policy: PolicyUnbounded, Allowed: true}, nil
	}
	l.log.Append(ctx, paymentlog.Entry{
		TenantID: tenantID,
		Level:    paymentlog.LevelWarning,
		Category: paymentlog.CategoryPlanLimit,
		Message:  "sms quota configured but usage tracking is not wired; quota not enforced",
		Details:  paymentlog.Details{"quota": *plan.SMSQuota},
	})
	return QuotaDecision{Policy: PolicyUnbounded, Allowed: true, Limit: *plan.SMSQuota}, nil
}
