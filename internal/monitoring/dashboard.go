package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/pkg/logger"
)

const dashboardCacheTTL = 30 * time.Second

// DashboardSummary bundles the per-tenant monitoring views served to
// the admin dashboard
type DashboardSummary struct {
	Health        HealthStatus       `json:"health"`
	Failures      []FailureGroup     `json:"failures"`
	RecentEntries []paymentlog.Entry `json:"recent_entries"`
	GeneratedAt   time.Time          `json:"generated_at"`
	FromCache     bool               `json:"from_cache,omitempty"`
}

// Dashboard serves summaries with a short redis cache in front of the
// analyzer. Cache failures are logged and bypassed; the summary is
// always computable from the log.
type Dashboard struct {
	analyzer *Analyzer
	log      *paymentlog.Log
	redis    *redis.Client
}

func NewDashboard(analyzer *Analyzer, log *paymentlog.Log, redisClient *redis.Client) *Dashboard {
	return &Dashboard{analyzer: analyzer, log: log, redis: redisClient}
}

func dashboardCacheKey(tenantID string) string {
	return fmt.Sprintf("monitoring:dashboard:%s", tenantID)
}

// Summary returns the cached dashboard for the tenant, recomputing and
// re-caching on miss
func (d *Dashboard) Summary(ctx context.Context, tenantID string) DashboardSummary {
	if d.redis != nil {
		cached, err := d.redis.Get(ctx, dashboardCacheKey(tenantID)).Result()
		if err == nil {
			var summary DashboardSummary
			if jsonErr := json.Unmarshal([]byte(cached), &summary); jsonErr == nil {
				summary.FromCache = true
				return summary
			}
		} else if err != redis.Nil {
			logger.Warn(ctx).Err(err).Str("tenant_id", tenantID).Msg("Dashboard cache read failed")
		}
	}

	summary := DashboardSummary{
		Health:        d.analyzer.Health(ctx, tenantID),
		Failures:      d.analyzer.FailureSummary(ctx, tenantID, 24),
		RecentEntries: d.log.Recent(tenantID, 20, "", ""),
		GeneratedAt:   time.Now().UTC(),
	}

	if d.redis != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := d.redis.Set(ctx, dashboardCacheKey(tenantID), data, dashboardCacheTTL).Err(); err != nil {
				logger.Warn(ctx).Err(err).Str("tenant_id", tenantID).Msg("Dashboard cache write failed")
			}
		}
	}
	return summary
}

// Invalidate drops the cached summary, used after settings changes
func (d *Dashboard) Invalidate(ctx context.Context, tenantID string) {
	if d.redis == nil {
		return
	}
	if err := d.redis.Del(ctx, dashboardCacheKey(tenantID)).Err(); err != nil {
		logger.Warn(ctx).Err(err).Str("tenant_id", tenantID).Msg("Dashboard cache invalidation failed")
	}
}
