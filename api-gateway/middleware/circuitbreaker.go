package middleware

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/salonos/payments/pkg/logger"
)

// CircuitState represents the state of a circuit breaker
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// CircuitBreaker trips after consecutive backend failures and probes for
// recovery after a cool-down
type CircuitBreaker struct {
	name            string
	maxFailures     int
	timeout         time.Duration
	state           CircuitState
	failures        int
	successCount    int
	lastStateChange time.Time
	mu              sync.RWMutex
}

// NewCircuitBreaker creates a breaker in the closed state
func NewCircuitBreaker(name string, maxFailures int, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:            name,
		maxFailures:     maxFailures,
		timeout:         timeout,
		state:           StateClosed,
		lastStateChange: time.Now(),
	}
}

// Allow reports whether a request may pass, transitioning open breakers
// to half-open after the cool-down
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastStateChange) > cb.timeout {
			cb.state = StateHalfOpen
			cb.successCount = 0
			logger.Logger.Info().
				Str("circuit", cb.name).
				Msg("Circuit breaker transitioning to half-open")
			return true
		}
		return false
	}
	return true
}

// Record feeds a request outcome into the breaker
func (cb *CircuitBreaker) Record(failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if failed {
		cb.failures++
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			if cb.state != StateOpen {
				cb.state = StateOpen
				cb.lastStateChange = time.Now()
				logger.Logger.Error().
					Str("circuit", cb.name).
					Int("failures", cb.failures).
					Msg("Circuit breaker opened")
			}
		}
		return
	}

	if cb.state == StateHalfOpen {
		cb.successCount++
		if cb.successCount >= 3 {
			cb.state = StateClosed
			cb.failures = 0
			cb.lastStateChange = time.Now()
			logger.Logger.Info().
				Str("circuit", cb.name).
				Msg("Circuit breaker closed after recovery")
		}
		return
	}
	cb.failures = 0
}

// State returns the current state
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

// CircuitBreakerManager holds one breaker per backend
type CircuitBreakerManager struct {
	breakers map[string]*CircuitBreaker
	mu       sync.Mutex
}

// NewCircuitBreakerManager creates an empty manager
func NewCircuitBreakerManager() *CircuitBreakerManager {
	return &CircuitBreakerManager{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// Get returns the breaker for a backend, creating it on first use
// (5 consecutive failures, 30s cool-down)
func (m *CircuitBreakerManager) Get(backend string) *CircuitBreaker {
	m.mu.Lock()
	defer m.mu.Unlock()

	cb, ok := m.breakers[backend]
	if !ok {
		cb = NewCircuitBreaker(backend, 5, 30*time.Second)
		m.breakers[backend] = cb
	}
	return cb
}

// Stats reports all breaker states
func (m *CircuitBreakerManager) Stats() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]string, len(m.breakers))
	for name, cb := range m.breakers {
		out[name] = string(cb.State())
	}
	return out
}

// CircuitBreakerMiddleware guards a backend behind its breaker. 5xx
// responses count as failures; 4xx responses are the caller's problem
// and leave the breaker alone.
func CircuitBreakerMiddleware(m *CircuitBreakerManager, backend string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		cb := m.Get(backend)
		if !cb.Allow() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": fmt.Sprintf("Service '%s' temporarily unavailable", backend),
			})
		}

		err := c.Next()
		cb.Record(err != nil || c.Response().StatusCode() >= 500)
		return err
	}
}
