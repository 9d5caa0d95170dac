package monitoring

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("monitoring-test", false)
	os.Exit(m.Run())
}

func appendOutcomes(log *paymentlog.Log, tenantID string, completed, failed int, errorCode string) {
	ctx := context.Background()
	for i := 0; i < completed; i++ {
		log.Append(ctx, paymentlog.Entry{
			TenantID: tenantID,
			Category: paymentlog.CategoryPaymentCompleted,
			Method:   domain.MethodCard,
		})
	}
	for i := 0; i < failed; i++ {
		log.Append(ctx, paymentlog.Entry{
			TenantID:  tenantID,
			Level:     paymentlog.LevelError,
			Category:  paymentlog.CategoryPaymentFailed,
			Method:    domain.MethodStripe,
			ErrorCode: errorCode,
		})
	}
}

func TestSuccessRate(t *testing.T) {
	log := paymentlog.New(100, nil)
	analyzer := NewAnalyzer(log)
	ctx := context.Background()

	appendOutcomes(log, "salon-1", 8, 2, "card_declined")
	// Created entries are in-flight and excluded from rate math.
	log.Append(ctx, paymentlog.Entry{TenantID: "salon-1", Category: paymentlog.CategoryPaymentCreated})

	rates := analyzer.SuccessRate(ctx, "salon-1", 24)
	assert.Equal(t, 10, rates.Attempts)
	assert.Equal(t, 8, rates.Succeeded)
	assert.Equal(t, 2, rates.Failed)
	assert.InDelta(t, 80.0, rates.SuccessRate, 0.001)
	assert.InDelta(t, 20.0, rates.FailureRate, 0.001)
}

func TestSuccessRateEmptyWindow(t *testing.T) {
	analyzer := NewAnalyzer(paymentlog.New(100, nil))

	rates := analyzer.SuccessRate(context.Background(), "salon-1", 24)
	assert.Zero(t, rates.Attempts)
	assert.Zero(t, rates.SuccessRate)
	assert.Zero(t, rates.FailureRate)
}

func TestFailureSummaryGrouping(t *testing.T) {
	log := paymentlog.New(100, nil)
	analyzer := NewAnalyzer(log)
	ctx := context.Background()

	appendOutcomes(log, "salon-1", 0, 3, "card_declined")
	appendOutcomes(log, "salon-1", 0, 1, "expired_card")
	log.Append(ctx, paymentlog.Entry{
		TenantID: "salon-1",
		Category: paymentlog.CategoryPaymentFailed,
		Method:   domain.MethodCard,
	})

	groups := analyzer.FailureSummary(ctx, "salon-1", 24)
	require.Len(t, groups, 3)

	// Most frequent first, ties broken by error code.
	assert.Equal(t, "card_declined", groups[0].ErrorCode)
	assert.Equal(t, 3, groups[0].Count)
	assert.Equal(t, "UNKNOWN", groups[1].ErrorCode)
	assert.Equal(t, "expired_card", groups[2].ErrorCode)
}

func TestHealthLevels(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		failed    int
		criticals int
		wantScore int
		wantLevel HealthLevel
	}{
		{"no traffic is healthy", 0, 0, 0, 100, HealthHealthy},
		{"all succeeded", 10, 0, 0, 100, HealthHealthy},
		{"80 percent is healthy", 8, 2, 0, 80, HealthHealthy},
		{"criticals drag the score", 8, 2, 2, 60, HealthWarning},
		{"mostly failing is critical", 2, 8, 0, 20, HealthCritical},
		{"score clamps at zero", 0, 5, 3, 0, HealthCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := paymentlog.New(100, nil)
			analyzer := NewAnalyzer(log)
			ctx := context.Background()

			appendOutcomes(log, "salon-1", tt.completed, tt.failed, "card_declined")
			for i := 0; i < tt.criticals; i++ {
				log.Append(ctx, paymentlog.Entry{
					TenantID: "salon-1",
					Level:    paymentlog.LevelCritical,
					Category: paymentlog.CategoryPaymentRefunded,
				})
			}

			health := analyzer.Health(ctx, "salon-1")
			assert.Equal(t, tt.wantScore, health.Score)
			assert.Equal(t, tt.wantLevel, health.Level)
		})
	}
}

func TestHealthRecommendations(t *testing.T) {
	log := paymentlog.New(100, nil)
	analyzer := NewAnalyzer(log)
	ctx := context.Background()

	appendOutcomes(log, "salon-1", 5, 3, "card_declined")

	health := analyzer.Health(ctx, "salon-1")
	require.NotEmpty(t, health.Recommendations)
	assert.Contains(t, health.Recommendations[0], "declined cards")
}

func TestShouldAlert(t *testing.T) {
	tests := []struct {
		name      string
		completed int
		failed    int
		want      bool
	}{
		{"above threshold with enough attempts", 3, 2, true}, // 40% of 5
		{"too few attempts never alerts", 1, 3, false},       // 75% of 4
		{"exactly at threshold does not alert", 4, 1, false}, // 20% of 5
		{"healthy traffic", 20, 1, false},
		{"no traffic", 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := paymentlog.New(100, nil)
			analyzer := NewAnalyzer(log)

			appendOutcomes(log, "salon-1", tt.completed, tt.failed, "card_declined")

			alerting, alert := analyzer.ShouldAlert(context.Background(), "salon-1")
			assert.Equal(t, tt.want, alerting)
			if tt.want {
				require.NotNil(t, alert)
				assert.Equal(t, tt.failed, alert.Failed)
				assert.Equal(t, AlertFailureRateThreshold, alert.Threshold)
			} else {
				assert.Nil(t, alert)
			}
		})
	}
}

func TestAnalysisIsTenantScoped(t *testing.T) {
	log := paymentlog.New(100, nil)
	analyzer := NewAnalyzer(log)

	appendOutcomes(log, "salon-1", 0, 10, "card_declined")
	appendOutcomes(log, "salon-2", 10, 0, "")

	alerting, _ := analyzer.ShouldAlert(context.Background(), "salon-2")
	assert.False(t, alerting, "neighbor failures must not leak into this tenant's rates")

	rates := analyzer.SuccessRate(context.Background(), "salon-2", 24)
	assert.Equal(t, 10, rates.Attempts)
	assert.InDelta(t, 100.0, rates.SuccessRate, 0.001)
}
