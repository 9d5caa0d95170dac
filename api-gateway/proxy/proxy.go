package proxy

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/salonos/payments/api-gateway/config"
	"github.com/salonos/payments/api-gateway/loadbalancer"
	"github.com/salonos/payments/pkg/logger"
)

// ReverseProxy forwards gateway requests to backend instances
type ReverseProxy struct {
	config        *config.GatewayConfig
	client        *http.Client
	loadBalancers map[string]*loadbalancer.RoundRobin
}

// NewReverseProxy creates a proxy with one balancer per backend
func NewReverseProxy(cfg *config.GatewayConfig) *ReverseProxy {
	loadBalancers := make(map[string]*loadbalancer.RoundRobin)
	for name, backend := range cfg.Backends {
		loadBalancers[name] = loadbalancer.NewRoundRobin(backend.Instances)
	}

	return &ReverseProxy{
		config:        cfg,
		loadBalancers: loadBalancers,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ProxyRequest forwards the request to the named backend. GET and HEAD
// requests retry once against the next instance on connection failure;
// writes are never retried, a duplicate refund is worse than an error.
func (p *ReverseProxy) ProxyRequest(c *fiber.Ctx, backendName string) error {
	lb, ok := p.loadBalancers[backendName]
	if !ok {
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": fmt.Sprintf("Unknown backend '%s'", backendName),
		})
	}

	attempts := 1
	if c.Method() == fiber.MethodGet || c.Method() == fiber.MethodHead {
		attempts = 2
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		serverURL := lb.Next()
		if serverURL == "" {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
				"error": fmt.Sprintf("No available instances for '%s'", backendName),
			})
		}

		resp, err := p.forward(c, serverURL)
		if err != nil {
			lastErr = err
			logger.Logger.Warn().
				Err(err).
				Str("backend", backendName).
				Str("target_url", serverURL).
				Int("attempt", i+1).
				Msg("Backend request failed")
			continue
		}
		return p.writeResponse(c, resp)
	}

	return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
		"error":   "Failed to reach backend service",
		"backend": backendName,
		"details": lastErr.Error(),
	})
}

func (p *ReverseProxy) forward(c *fiber.Ctx, serverURL string) (*http.Response, error) {
	path := string(c.Request().URI().Path())
	queryString := string(c.Request().URI().QueryString())
	if queryString != "" {
		queryString = "?" + queryString
	}

	req, err := http.NewRequestWithContext(
		c.UserContext(),
		c.Method(),
		serverURL+path+queryString,
		bytes.NewReader(c.Body()),
	)
	if err != nil {
		return nil, err
	}

	c.Request().Header.VisitAll(func(key, value []byte) {
		if strings.EqualFold(string(key), "host") {
			return
		}
		req.Header.Set(string(key), string(value))
	})
	req.Header.Set("X-Forwarded-For", c.IP())
	req.Header.Set("X-Forwarded-Proto", c.Protocol())
	req.Header.Set("X-Forwarded-Host", c.Hostname())

	return p.client.Do(req)
}

func (p *ReverseProxy) writeResponse(c *fiber.Ctx, resp *http.Response) error {
	defer resp.Body.Close()

	for key, values := range resp.Header {
		if strings.EqualFold(key, "content-length") {
			continue
		}
		for _, value := range values {
			c.Set(key, value)
		}
	}
	c.Status(resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to read backend response",
		})
	}
	return c.Send(body)
}
