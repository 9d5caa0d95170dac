package paymentlog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/salonos/payments/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("paymentlog-test", false)
	os.Exit(m.Run())
}

func TestAppendAssignsDefaults(t *testing.T) {
	log := New(10, nil)

	entry := log.Append(context.Background(), Entry{
		TenantID: "salon-1",
		Category: CategoryPaymentCompleted,
		Message:  "payment recorded",
	})

	assert.NotEqual(t, entry.ID.String(), "00000000-0000-0000-0000-000000000000")
	assert.False(t, entry.CreatedAt.IsZero())
	assert.Equal(t, LevelInfo, entry.Level)
	assert.Equal(t, 1, log.Len())
}

func TestRingBufferEvictsOldest(t *testing.T) {
	log := New(3, nil)
	ctx := context.Background()

	for _, msg := range []string{"first", "second", "third", "fourth"} {
		log.Append(ctx, Entry{TenantID: "salon-1", Message: msg})
	}

	assert.Equal(t, 3, log.Len())

	entries := log.Recent("salon-1", 10, "", "")
	assert.Len(t, entries, 3)
	// Newest first; "first" was evicted.
	assert.Equal(t, "fourth", entries[0].Message)
	assert.Equal(t, "third", entries[1].Message)
	assert.Equal(t, "second", entries[2].Message)
}

func TestRecentFiltersByTenant(t *testing.T) {
	log := New(10, nil)
	ctx := context.Background()

	log.Append(ctx, Entry{TenantID: "salon-1", Message: "mine"})
	log.Append(ctx, Entry{TenantID: "salon-2", Message: "theirs"})

	entries := log.Recent("salon-1", 10, "", "")
	assert.Len(t, entries, 1)
	assert.Equal(t, "mine", entries[0].Message)
}

func TestRecentFiltersByLevelAndCategory(t *testing.T) {
	log := New(10, nil)
	ctx := context.Background()

	log.Append(ctx, Entry{TenantID: "salon-1", Level: LevelInfo, Category: CategoryPaymentCompleted})
	log.Append(ctx, Entry{TenantID: "salon-1", Level: LevelError, Category: CategoryPaymentFailed})
	log.Append(ctx, Entry{TenantID: "salon-1", Level: LevelCritical, Category: CategorySecurityBreach})

	assert.Len(t, log.Recent("salon-1", 10, LevelError, ""), 1)
	assert.Len(t, log.Recent("salon-1", 10, "", CategorySecurityBreach), 1)
	assert.Len(t, log.Recent("salon-1", 10, LevelError, CategoryPaymentCompleted), 0)
	assert.Len(t, log.Recent("salon-1", 10, "", ""), 3)
}

func TestWindowFallsBackToMemory(t *testing.T) {
	// No store configured: Window serves from the ring buffer.
	log := New(10, nil)
	ctx := context.Background()

	old := Entry{TenantID: "salon-1", Message: "old", CreatedAt: time.Now().UTC().Add(-2 * time.Hour)}
	recent := Entry{TenantID: "salon-1", Message: "recent"}
	log.Append(ctx, old)
	log.Append(ctx, recent)

	entries := log.Window(ctx, "salon-1", time.Now().UTC().Add(-time.Hour))
	assert.Len(t, entries, 1)
	assert.Equal(t, "recent", entries[0].Message)
}

func TestWindowIsTenantScoped(t *testing.T) {
	log := New(10, nil)
	ctx := context.Background()

	log.Append(ctx, Entry{TenantID: "salon-1", Message: "a"})
	log.Append(ctx, Entry{TenantID: "salon-2", Message: "b"})

	entries := log.Window(ctx, "salon-2", time.Now().UTC().Add(-time.Hour))
	assert.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].Message)
}
