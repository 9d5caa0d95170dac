package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/salonos/payments/api-gateway/config"
)

// BackendHealth is the health report of one upstream instance
type BackendHealth struct {
	Backend  string `json:"backend"`
	Instance string `json:"instance"`
	Healthy  bool   `json:"healthy"`
	Latency  string `json:"latency,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Status aggregates backend health for the readiness probe
type Status struct {
	Status   string          `json:"status"`
	Backends []BackendHealth `json:"backends"`
}

// Checker probes backend health endpoints
type Checker struct {
	cfg    *config.GatewayConfig
	client *http.Client
}

// NewChecker creates a health checker
func NewChecker(cfg *config.GatewayConfig) *Checker {
	return &Checker{
		cfg: cfg,
		client: &http.Client{
			Timeout: 3 * time.Second,
		},
	}
}

// QuickCheck reports gateway liveness without probing backends
func (hc *Checker) QuickCheck() map[string]string {
	return map[string]string{
		"status":  "healthy",
		"service": "payments-gateway",
	}
}

// CheckAll probes every instance of every backend concurrently
func (hc *Checker) CheckAll(ctx context.Context) Status {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results []BackendHealth
	)

	for name, backend := range hc.cfg.Backends {
		for _, instance := range backend.Instances {
			wg.Add(1)
			go func(name, instance, healthPath string) {
				defer wg.Done()
				result := hc.probe(ctx, name, instance, healthPath)
				mu.Lock()
				results = append(results, result)
				mu.Unlock()
			}(name, instance, backend.HealthCheck)
		}
	}
	wg.Wait()

	status := "healthy"
	for _, r := range results {
		if !r.Healthy {
			status = "unhealthy"
			break
		}
	}
	return Status{Status: status, Backends: results}
}

func (hc *Checker) probe(ctx context.Context, name, instance, healthPath string) BackendHealth {
	result := BackendHealth{Backend: name, Instance: instance}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instance+healthPath, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	start := time.Now()
	resp, err := hc.client.Do(req)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	result.Latency = time.Since(start).Round(time.Millisecond).String()
	result.Healthy = resp.StatusCode == http.StatusOK
	return result
}
