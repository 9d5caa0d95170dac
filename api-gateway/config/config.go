package config

import (
	"os"
	"strings"
	"time"
)

// BackendConfig holds configuration for one upstream service
type BackendConfig struct {
	Name        string
	Instances   []string
	Timeout     time.Duration
	HealthCheck string
}

// GatewayConfig holds the gateway configuration
type GatewayConfig struct {
	Port     string
	Backends map[string]BackendConfig
}

// LoadConfig builds the gateway configuration from the environment.
// PAYMENTS_SERVICE_URLS accepts a comma-separated instance list for
// load balancing across replicas.
func LoadConfig() *GatewayConfig {
	return &GatewayConfig{
		Port: getEnv("GATEWAY_PORT", "8000"),
		Backends: map[string]BackendConfig{
			"payments": {
				Name:        "payments-service",
				Instances:   splitList(getEnv("PAYMENTS_SERVICE_URLS", "http://localhost:8083")),
				Timeout:     30 * time.Second,
				HealthCheck: "/health",
			},
		},
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
