package monitoring

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
)

// Alerting thresholds. A tenant with too few attempts in the window is
// never alerted on; small samples produce noisy rates.
const (
	AlertFailureRateThreshold = 20.0
	AlertMinAttempts          = 5
	AlertWindow               = time.Hour
)

// Health score bands
const (
	healthyFloor = 80
	warningFloor = 50
)

// Analyzer derives tenant-scoped health metrics from the payment event
// log. All reads go through the log's windowed query, so the analysis
// degrades with the log rather than failing.
type Analyzer struct {
	log *paymentlog.Log
}

func NewAnalyzer(log *paymentlog.Log) *Analyzer {
	return &Analyzer{log: log}
}

// RateSummary is the success/failure breakdown for a time window
type RateSummary struct {
	TenantID    string  `json:"tenant_id"`
	WindowHours int     `json:"window_hours"`
	Attempts    int     `json:"attempts"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"success_rate"`
	FailureRate float64 `json:"failure_rate"`
}

// attempts are completed + failed entries; created entries are in-flight
// and excluded from rate math
func (a *Analyzer) rates(ctx context.Context, tenantID string, window time.Duration) RateSummary {
	since := time.Now().UTC().Add(-window)
	entries := a.log.Window(ctx, tenantID, since)

	summary := RateSummary{
		TenantID:    tenantID,
		WindowHours: int(window.Hours()),
	}
	for _, e := range entries {
		switch e.Category {
		case paymentlog.CategoryPaymentCompleted:
			summary.Succeeded++
		case paymentlog.CategoryPaymentFailed:
			summary.Failed++
		}
	}
	summary.Attempts = summary.Succeeded + summary.Failed
	if summary.Attempts > 0 {
		summary.SuccessRate = float64(summary.Succeeded) / float64(summary.Attempts) * 100
		summary.FailureRate = float64(summary.Failed) / float64(summary.Attempts) * 100
	}
	return summary
}

// SuccessRate reports the payment success rate over the past hoursBack
// hours. A window with no attempts reports 0 attempts and zero rates.
func (a *Analyzer) SuccessRate(ctx context.Context, tenantID string, hoursBack int) RateSummary {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	return a.rates(ctx, tenantID, time.Duration(hoursBack)*time.Hour)
}

// FailureGroup is one slice of the failure breakdown
type FailureGroup struct {
	ErrorCode string               `json:"error_code"`
	Method    domain.PaymentMethod `json:"payment_method,omitempty"`
	Count     int                  `json:"count"`
	LastSeen  time.Time            `json:"last_seen"`
}

// FailureSummary groups the window's failures by error code and payment
// method, most frequent first
func (a *Analyzer) FailureSummary(ctx context.Context, tenantID string, hoursBack int) []FailureGroup {
	if hoursBack <= 0 {
		hoursBack = 24
	}
	since := time.Now().UTC().Add(-time.Duration(hoursBack) * time.Hour)
	entries := a.log.Window(ctx, tenantID, since)

	type key struct {
		code   string
		method domain.PaymentMethod
	}
	groups := make(map[key]*FailureGroup)
	for _, e := range entries {
		if e.Category != paymentlog.CategoryPaymentFailed {
			continue
		}
		code := e.ErrorCode
		if code == "" {
			code = "UNKNOWN"
		}
		k := key{code: code, method: e.Method}
		g, ok := groups[k]
		if !ok {
			g = &FailureGroup{ErrorCode: code, Method: e.Method}
			groups[k] = g
		}
		g.Count++
		if e.CreatedAt.After(g.LastSeen) {
			g.LastSeen = e.CreatedAt
		}
	}

	out := make([]FailureGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ErrorCode < out[j].ErrorCode
	})
	return out
}

// HealthLevel buckets the score for dashboards
type HealthLevel string

const (
	HealthHealthy  HealthLevel = "healthy"
	HealthWarning  HealthLevel = "warning"
	HealthCritical HealthLevel = "critical"
)

// HealthStatus is a 0-100 score with operator-facing recommendations
type HealthStatus struct {
	TenantID        string      `json:"tenant_id"`
	Score           int         `json:"score"`
	Level           HealthLevel `json:"level"`
	Rates           RateSummary `json:"rates"`
	Recommendations []string    `json:"recommendations"`
}

var recommendationsByCode = map[string]string{
	"card_declined":           "High rate of declined cards: offer alternative payment methods at checkout",
	"insufficient_funds":      "Cards are failing on insufficient funds: suggest smaller deposits or pay-at-salon",
	"expired_card":            "Expired-card failures: prompt customers to update saved cards",
	"ACCOUNT_NOT_READY":       "Stripe account cannot accept payments: finish Stripe onboarding",
	"DB_ERROR":                "Payment writes are failing on the database: check database availability",
	"authentication_required": "3DS authentication failures: verify Stripe Radar and SCA settings",
}

// Health computes the tenant's payment health over the past 24h. The
// score starts from the success rate and is dragged down by critical
// log entries in the window.
func (a *Analyzer) Health(ctx context.Context, tenantID string) HealthStatus {
	rates := a.rates(ctx, tenantID, 24*time.Hour)

	score := 100
	if rates.Attempts > 0 {
		score = int(rates.SuccessRate)
	}

	since := time.Now().UTC().Add(-24 * time.Hour)
	criticals := 0
	for _, e := range a.log.Window(ctx, tenantID, since) {
		if e.Level == paymentlog.LevelCritical {
			criticals++
		}
	}
	score -= criticals * 10
	if score < 0 {
		score = 0
	}

	status := HealthStatus{
		TenantID: tenantID,
		Score:    score,
		Rates:    rates,
	}
	switch {
	case score >= healthyFloor:
		status.Level = HealthHealthy
	case score >= warningFloor:
		status.Level = HealthWarning
	default:
		status.Level = HealthCritical
	}

	seen := make(map[string]bool)
	for _, g := range a.FailureSummary(ctx, tenantID, 24) {
		rec, ok := recommendationsByCode[g.ErrorCode]
		if ok && !seen[rec] {
			status.Recommendations = append(status.Recommendations, rec)
			seen[rec] = true
		}
	}
	if criticals > 0 {
		status.Recommendations = append(status.Recommendations,
			fmt.Sprintf("%d critical events in the last 24h: review the payment log", criticals))
	}
	return status
}

// Alert is raised when a tenant's short-window failure rate crosses the
// alerting threshold
type Alert struct {
	TenantID    string    `json:"tenant_id"`
	FailureRate float64   `json:"failure_rate"`
	Attempts    int       `json:"attempts"`
	Failed      int       `json:"failed"`
	Threshold   float64   `json:"threshold"`
	RaisedAt    time.Time `json:"raised_at"`
}

// ShouldAlert checks the one-hour failure rate against the threshold.
// Fewer than AlertMinAttempts attempts never alerts.
func (a *Analyzer) ShouldAlert(ctx context.Context, tenantID string) (bool, *Alert) {
	rates := a.rates(ctx, tenantID, AlertWindow)
	if rates.Attempts < AlertMinAttempts {
		return false, nil
	}
	if rates.FailureRate <= AlertFailureRateThreshold {
		return false, nil
	}
	return true, &Alert{
		TenantID:    tenantID,
		FailureRate: rates.FailureRate,
		Attempts:    rates.Attempts,
		Failed:      rates.Failed,
		Threshold:   AlertFailureRateThreshold,
		RaisedAt:    time.Now().UTC(),
	}
}
