package command

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/salonos/payments/internal/payments/domain"
	"github.com/salonos/payments/internal/stripeconnect"
	"github.com/salonos/payments/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Init("command-test", false)
	os.Exit(m.Run())
}

// memoryRepo is an in-memory PaymentRepository. WithinTransaction runs
// the callback against the same store; a callback error discards nothing,
// so failure-path tests inject errors before any write happens.
type memoryRepo struct {
	payments map[uuid.UUID]*domain.Payment
	splits   []domain.PaymentSplit
	refunds  []domain.Refund
	attempts map[string]*domain.RefundAttempt
	orders   map[uuid.UUID]*domain.Order
	settings map[string]*domain.PaymentSettings

	failCreateRefund bool

	// forUpdateTenantOverride makes the locking read return a row owned
	// by a different tenant, simulating a lookup bypassing tenant scoping.
	forUpdateTenantOverride string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		payments: make(map[uuid.UUID]*domain.Payment),
		attempts: make(map[string]*domain.RefundAttempt),
		orders:   make(map[uuid.UUID]*domain.Order),
		settings: make(map[string]*domain.PaymentSettings),
	}
}

func (r *memoryRepo) CreatePayment(ctx context.Context, p *domain.Payment) error {
	copied := *p
	r.payments[p.ID] = &copied
	return nil
}

func (r *memoryRepo) FindPaymentSecure(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Payment, error) {
	p, ok := r.payments[id]
	if !ok || p.TenantID != tenantID {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *memoryRepo) FindPaymentForUpdate(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Payment, error) {
	if r.forUpdateTenantOverride != "" {
		p, ok := r.payments[id]
		if !ok {
			return nil, nil
		}
		copied := *p
		copied.TenantID = r.forUpdateTenantOverride
		return &copied, nil
	}
	return r.FindPaymentSecure(ctx, id, tenantID)
}

func (r *memoryRepo) FindPaymentByGatewayID(ctx context.Context, gatewayPaymentID string) (*domain.Payment, error) {
	for _, p := range r.payments {
		if p.GatewayPaymentID == gatewayPaymentID {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryRepo) ListPayments(ctx context.Context, tenantID string, limit, offset int) ([]domain.Payment, error) {
	var out []domain.Payment
	for _, p := range r.payments {
		if p.TenantID == tenantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryRepo) UpdatePayment(ctx context.Context, p *domain.Payment) error {
	copied := *p
	r.payments[p.ID] = &copied
	return nil
}

func (r *memoryRepo) CreateSplits(ctx context.Context, splits []domain.PaymentSplit) error {
	r.splits = append(r.splits, splits...)
	return nil
}

func (r *memoryRepo) ListSplitsSecure(ctx context.Context, paymentID uuid.UUID, tenantID string) ([]domain.PaymentSplit, error) {
	var out []domain.PaymentSplit
	for _, s := range r.splits {
		if s.PaymentID == paymentID && s.TenantID == tenantID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateRefund(ctx context.Context, refund *domain.Refund) error {
	if r.failCreateRefund {
		return errors.New("database write failed")
	}
	r.refunds = append(r.refunds, *refund)
	return nil
}

func (r *memoryRepo) ListRefunds(ctx context.Context, tenantID string, limit, offset int) ([]domain.Refund, error) {
	var out []domain.Refund
	for _, ref := range r.refunds {
		if ref.TenantID == tenantID {
			out = append(out, ref)
		}
	}
	return out, nil
}

func (r *memoryRepo) CreateRefundAttempt(ctx context.Context, attempt *domain.RefundAttempt) error {
	copied := *attempt
	r.attempts[attempt.IdempotencyKey] = &copied
	return nil
}

func (r *memoryRepo) FindRefundAttempt(ctx context.Context, idempotencyKey string) (*domain.RefundAttempt, error) {
	a, ok := r.attempts[idempotencyKey]
	if !ok {
		return nil, nil
	}
	copied := *a
	return &copied, nil
}

func (r *memoryRepo) CountRefundAttempts(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	var n int64
	for _, a := range r.attempts {
		if a.PaymentID == paymentID {
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) UpdateRefundAttempt(ctx context.Context, attempt *domain.RefundAttempt) error {
	copied := *attempt
	r.attempts[attempt.IdempotencyKey] = &copied
	return nil
}

func (r *memoryRepo) WithinTransaction(ctx context.Context, fn func(tx domain.PaymentRepository) error) error {
	return fn(r)
}

func (r *memoryRepo) FindOrderSecure(ctx context.Context, id uuid.UUID, tenantID string) (*domain.Order, error) {
	o, ok := r.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil, nil
	}
	copied := *o
	return &copied, nil
}

func (r *memoryRepo) UpdateOrderStatus(ctx context.Context, id uuid.UUID, tenantID string, status domain.OrderStatus) error {
	o, ok := r.orders[id]
	if !ok || o.TenantID != tenantID {
		return nil
	}
	o.Status = status
	return nil
}

func (r *memoryRepo) FindSettings(ctx context.Context, tenantID string) (*domain.PaymentSettings, error) {
	if s, ok := r.settings[tenantID]; ok {
		copied := *s
		return &copied, nil
	}
	return domain.DefaultSettings(tenantID), nil
}

func (r *memoryRepo) UpsertSettings(ctx context.Context, tenantID string, patch domain.SettingsPatch) (*domain.PaymentSettings, error) {
	s, ok := r.settings[tenantID]
	if !ok {
		s = domain.DefaultSettings(tenantID)
		r.settings[tenantID] = s
	}
	patch.Apply(s)
	copied := *s
	return &copied, nil
}

// fakeGateway records refund calls and replays scripted results
type fakeGateway struct {
	calls   int
	lastKey string
	keys    []string
	result  *stripeconnect.RefundResult
	err     error
}

func (g *fakeGateway) ProcessRefund(ctx context.Context, tenantID, gatewayPaymentID string, amountMinor *int64, reason, idempotencyKey string) (*stripeconnect.RefundResult, error) {
	g.calls++
	g.lastKey = idempotencyKey
	g.keys = append(g.keys, idempotencyKey)
	if g.err != nil {
		return nil, g.err
	}
	if g.result != nil {
		return g.result, nil
	}
	return &stripeconnect.RefundResult{Success: true, RefundID: "re_fake"}, nil
}
