package repository

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salonos/payments/internal/paymentlog"
	"github.com/salonos/payments/pkg/apperrors"
	"github.com/salonos/payments/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("repository-test", false)
	os.Exit(m.Run())
}

func TestValidateTenantOwnership(t *testing.T) {
	log := paymentlog.New(100, nil)
	guard := NewTenantGuard(log)
	ctx := context.Background()

	t.Run("matching tenant passes silently", func(t *testing.T) {
		err := guard.ValidateTenantOwnership(ctx, "salon-1", "salon-1", "payment", "pay-1")
		require.NoError(t, err)
		assert.Empty(t, log.Recent("salon-1", 10, "", ""))
	})

	t.Run("mismatch raises and records the attempt", func(t *testing.T) {
		err := guard.ValidateTenantOwnership(ctx, "salon-2", "salon-1", "payment", "pay-1")
		require.Error(t, err)
		assert.True(t, apperrors.IsCode(err, apperrors.CodeForbidden))

		// The breach entry lands on the owning tenant's log.
		entries := log.Recent("salon-1", 10, paymentlog.LevelCritical, paymentlog.CategorySecurityBreach)
		require.Len(t, entries, 1)
		assert.Equal(t, "salon-2", entries[0].Details["requested_tenant_id"])
		assert.Equal(t, "payment", entries[0].Details["resource_type"])
	})
}
