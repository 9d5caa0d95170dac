package paymentlog

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/salonos/payments/pkg/logger"
)

const DefaultCapacity = 1000

// Store is the durable sink for entries. Persistence is attempted per
// entry but never guaranteed; a failed write degrades to memory-only.
type Store interface {
	Persist(ctx context.Context, entry *Entry) error
	QueryRecent(ctx context.Context, tenantID string, limit int, level Level, category Category) ([]Entry, error)
	QueryWindow(ctx context.Context, tenantID string, since time.Time) ([]Entry, error)
}

// Log is the process-scoped payment event log: a mutex-guarded bounded
// ring buffer for fast recent-activity queries, backed by a best-effort
// durable store. One instance is constructed at startup and injected into
// every component that records payment events.
type Log struct {
	mu    sync.Mutex
	buf   []Entry
	next  int
	count int

	store Store
}

// New creates a log with the given ring capacity. A nil store disables
// durable writes, which tests use.
func New(capacity int, store Store) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		buf:   make([]Entry, capacity),
		store: store,
	}
}

// Append records an event. The in-memory write always succeeds; the
// durable write may not, and a lost entry is acceptable for the buffer's
// purpose. The entry is also mirrored to the structured logger so payment
// events show up in the operational log stream.
func (l *Log) Append(ctx context.Context, entry Entry) Entry {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Level == "" {
		entry.Level = LevelInfo
	}

	l.mu.Lock()
	l.buf[l.next] = entry
	l.next = (l.next + 1) % len(l.buf)
	if l.count < len(l.buf) {
		l.count++
	}
	l.mu.Unlock()

	l.mirror(ctx, entry)

	if l.store != nil {
		if err := l.store.Persist(ctx, &entry); err != nil {
			logger.Warn(ctx).
				Err(err).
				Str("tenant_id", entry.TenantID).
				Str("category", string(entry.Category)).
				Msg("Failed to persist payment log entry")
		}
	}

	return entry
}

func (l *Log) mirror(ctx context.Context, entry Entry) {
	var evt *zerolog.Event
	switch entry.Level {
	case LevelCritical, LevelError:
		evt = logger.Error(ctx)
	case LevelWarning:
		evt = logger.Warn(ctx)
	default:
		evt = logger.Info(ctx)
	}
	evt = evt.
		Str("tenant_id", entry.TenantID).
		Str("category", string(entry.Category)).
		Str("level", string(entry.Level))
	if entry.PaymentID != nil {
		evt = evt.Str("payment_id", entry.PaymentID.String())
	}
	if entry.ErrorCode != "" {
		evt = evt.Str("error_code", entry.ErrorCode)
	}
	evt.Msg(entry.Message)
}

// Recent returns up to limit entries for the tenant, newest first,
// optionally filtered by level and category. Empty filter values match
// everything. Served from the ring buffer only.
func (l *Log) Recent(tenantID string, limit int, level Level, category Category) []Entry {
	if limit <= 0 {
		limit = 50
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, limit)
	for i := 0; i < l.count && len(out) < limit; i++ {
		idx := (l.next - 1 - i + len(l.buf)) % len(l.buf)
		e := l.buf[idx]
		if e.TenantID != tenantID {
			continue
		}
		if level != "" && e.Level != level {
			continue
		}
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Window returns all entries for the tenant since the given time, oldest
// first. The durable store is preferred because the ring buffer may have
// evicted older entries; on store failure the read degrades to memory.
func (l *Log) Window(ctx context.Context, tenantID string, since time.Time) []Entry {
	if l.store != nil {
		entries, err := l.store.QueryWindow(ctx, tenantID, since)
		if err == nil {
			return entries
		}
		logger.Warn(ctx).
			Err(err).
			Str("tenant_id", tenantID).
			Msg("Durable payment log query failed, falling back to in-memory buffer")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Entry, 0, l.count)
	for i := l.count - 1; i >= 0; i-- {
		idx := (l.next - 1 - i + len(l.buf)) % len(l.buf)
		e := l.buf[idx]
		if e.TenantID == tenantID && !e.CreatedAt.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of buffered entries
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}
