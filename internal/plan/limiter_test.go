package plan

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/internal/tenant/domain"
	"github.com/salonos/payments/pkg/apperrors"
	"github.com/salonos/payments/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("plan-test", false)
	os.Exit(m.Run())
}

// fakeTenantRepo is an in-memory tenant repository for limiter tests
type fakeTenantRepo struct {
	tenants       map[string]*domain.Tenant
	staffCount    map[string]int64
	subscriptions map[string]*domain.Subscription
	plans         map[string]*domain.Plan
}

func newFakeTenantRepo() *fakeTenantRepo {
	return &fakeTenantRepo{
		tenants:       make(map[string]*domain.Tenant),
		staffCount:    make(map[string]int64),
		subscriptions: make(map[string]*domain.Subscription),
		plans:         make(map[string]*domain.Plan),
	}
}

func (f *fakeTenantRepo) FindTenant(ctx context.Context, tenantID string) (*domain.Tenant, error) {
	return f.tenants[tenantID], nil
}

func (f *fakeTenantRepo) UpdateTenantStatus(ctx context.Context, tenantID string, status domain.TenantStatus) error {
	if t, ok := f.tenants[tenantID]; ok {
		t.Status = status
	}
	return nil
}

func (f *fakeTenantRepo) CountActiveStaff(ctx context.Context, tenantID string) (int64, error) {
	return f.staffCount[tenantID], nil
}

func (f *fakeTenantRepo) FindSubscription(ctx context.Context, tenantID string) (*domain.Subscription, error) {
	return f.subscriptions[tenantID], nil
}

func (f *fakeTenantRepo) FindPlan(ctx context.Context, planID string) (*domain.Plan, error) {
	return f.plans[planID], nil
}

func (f *fakeTenantRepo) FindSubscriptionByGatewayID(ctx context.Context, gatewaySubscriptionID string) (*domain.Subscription, error) {
	for _, s := range f.subscriptions {
		if s.GatewaySubscriptionID == gatewaySubscriptionID {
			return s, nil
		}
	}
	return nil, nil
}

func (f *fakeTenantRepo) UpsertSubscription(ctx context.Context, sub *domain.Subscription) error {
	f.subscriptions[sub.TenantID] = sub
	return nil
}

func intPtr(n int) *int { return &n }

func subscribe(repo *fakeTenantRepo, tenantID, planID string, status domain.SubscriptionStatus, plan *domain.Plan) {
	repo.subscriptions[tenantID] = &domain.Subscription{TenantID: tenantID, PlanID: planID, Status: status}
	if plan != nil {
		plan.ID = planID
		repo.plans[planID] = plan
	}
}

func newTestLimiter(repo *fakeTenantRepo) *Limiter {
	return NewLimiter(repo, paymentlog.New(100, nil))
}

func TestCanAddEmployee(t *testing.T) {
	ctx := context.Background()

	t.Run("under the limit", func(t *testing.T) {
		repo := newFakeTenantRepo()
		subscribe(repo, "salon-1", "pro", domain.SubscriptionActive, &domain.Plan{MaxEmployees: intPtr(5)})
		repo.staffCount["salon-1"] = 4

		ok, limit, err := newTestLimiter(repo).CanAddEmployee(ctx, "salon-1")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 5, limit)
	})

	t.Run("at the limit", func(t *testing.T) {
		repo := newFakeTenantRepo()
		subscribe(repo, "salon-1", "pro", domain.SubscriptionActive, &domain.Plan{MaxEmployees: intPtr(5)})
		repo.staffCount["salon-1"] = 5

		ok, _, err := newTestLimiter(repo).CanAddEmployee(ctx, "salon-1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("nil limit means unlimited", func(t *testing.T) {
		repo := newFakeTenantRepo()
		subscribe(repo, "salon-1", "enterprise", domain.SubscriptionActive, &domain.Plan{})
		repo.staffCount["salon-1"] = 500

		ok, _, err := newTestLimiter(repo).CanAddEmployee(ctx, "salon-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("no subscription means unlimited employees", func(t *testing.T) {
		repo := newFakeTenantRepo()
		repo.staffCount["salon-1"] = 50

		ok, _, err := newTestLimiter(repo).CanAddEmployee(ctx, "salon-1")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestEnforceEmployeeLimit(t *testing.T) {
	repo := newFakeTenantRepo()
	subscribe(repo, "salon-1", "basic", domain.SubscriptionActive, &domain.Plan{MaxEmployees: intPtr(2)})
	repo.staffCount["salon-1"] = 2
	log := paymentlog.New(100, nil)
	limiter := NewLimiter(repo, log)

	err := limiter.EnforceEmployeeLimit(context.Background(), "salon-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

	entries := log.Recent("salon-1", 10, "", paymentlog.CategoryPlanLimit)
	require.Len(t, entries, 1)
}

func TestFeatureAccess(t *testing.T) {
	ctx := context.Background()

	t.Run("free tier allows only online payments", func(t *testing.T) {
		limiter := newTestLimiter(newFakeTenantRepo())

		ok, err := limiter.HasFeatureAccess(ctx, "salon-1", FeatureOnlinePayments)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = limiter.HasFeatureAccess(ctx, "salon-1", FeatureTerminalPayments)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("canceled subscription falls back to free tier", func(t *testing.T) {
		repo := newFakeTenantRepo()
		subscribe(repo, "salon-1", "pro", domain.SubscriptionCanceled, &domain.Plan{
			Features: []string{FeatureOnlinePayments, FeatureTerminalPayments},
		})
		limiter := newTestLimiter(repo)

		ok, err := limiter.HasFeatureAccess(ctx, "salon-1", FeatureTerminalPayments)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("plan features apply", func(t *testing.T) {
		repo := newFakeTenantRepo()
		subscribe(repo, "salon-1", "pro", domain.SubscriptionActive, &domain.Plan{
			Features: []string{FeatureOnlinePayments, FeatureSMSReminders},
		})
		limiter := newTestLimiter(repo)

		ok, err := limiter.HasFeatureAccess(ctx, "salon-1", FeatureSMSReminders)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = limiter.HasFeatureAccess(ctx, "salon-1", FeatureAdvancedReports)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestEnforceFeature(t *testing.T) {
	limiter := newTestLimiter(newFakeTenantRepo())

	err := limiter.EnforceFeature(context.Background(), "salon-1", FeatureAdvancedReports)
	require.Error(t, err)
	assert.Equal(t, "errors.plan_feature_unavailable", apperrors.FromError(err).MessageKey)
}

func TestSMSQuota(t *testing.T) {
	ctx := context.Background()

	t.Run("no quota configured", func(t *testing.T) {
		decision, err := newTestLimiter(newFakeTenantRepo()).SMSQuota(ctx, "salon-1")
		require.NoError(t, err)
		assert.Equal(t, PolicyUnbounded, decision.Policy)
		assert.True(t, decision.Allowed)
		assert.Zero(t, decision.Limit)
	})

	t.Run("configured quota is reported but not enforced", func(t *testing.T) {
		repo := newFakeTenantRepo()
		subscribe(repo, "salon-1", "pro", domain.SubscriptionActive, &domain.Plan{SMSQuota: intPtr(200)})
		log := paymentlog.New(100, nil)
		limiter := NewLimiter(repo, log)

		decision, err := limiter.SMSQuota(ctx, "salon-1")
		require.NoError(t, err)
		assert.Equal(t, PolicyUnbounded, decision.Policy)
		assert.True(t, decision.Allowed)
		assert.Equal(t, 200, decision.Limit)

		// The unenforceable quota leaves a trail.
		entries := log.Recent("salon-1", 10, paymentlog.LevelWarning, "")
		require.Len(t, entries, 1)
	})
}
