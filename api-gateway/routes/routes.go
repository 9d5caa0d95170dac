package routes

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/salonos/payments/api-gateway/config"
	"github.com/salonos/payments/api-gateway/health"
	"github.com/salonos/payments/api-gateway/middleware"
	"github.com/salonos/payments/api-gateway/proxy"
)

// RouteDefinition maps a path prefix to a backend
type RouteDefinition struct {
	Prefix         string
	Backend        string
	Description    string
	RequireAuth    bool
	RequireManager bool
}

// Routes holds the gateway route table. Webhooks and the Stripe OAuth
// callback are public: Stripe authenticates them itself (signature,
// authorization code).
var Routes = []RouteDefinition{
	{
		Prefix:      "/webhooks/stripe",
		Backend:     "payments",
		Description: "Stripe webhook delivery (signature verified downstream)",
	},
	{
		Prefix:      "/api/stripe/callback",
		Backend:     "payments",
		Description: "Stripe Connect OAuth callback",
	},
	{
		Prefix:      "/api/payments",
		Backend:     "payments",
		Description: "Payment recording and queries",
		RequireAuth: true,
	},
	{
		Prefix:         "/api/refunds",
		Backend:        "payments",
		Description:    "Refund reports",
		RequireAuth:    true,
		RequireManager: true,
	},
	{
		Prefix:      "/api/stripe",
		Backend:     "payments",
		Description: "Stripe Connect account management",
		RequireAuth: true,
	},
	{
		Prefix:         "/api/monitoring",
		Backend:        "payments",
		Description:    "Payment monitoring and alerting",
		RequireAuth:    true,
		RequireManager: true,
	},
}

// SetupRoutes configures all gateway routes
func SetupRoutes(app *fiber.App, cfg *config.GatewayConfig, cbManager *middleware.CircuitBreakerManager, redisClient *redis.Client) {
	reverseProxy := proxy.NewReverseProxy(cfg)
	healthChecker := health.NewChecker(cfg)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(healthChecker.QuickCheck())
	})

	app.Get("/health/live", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "alive"})
	})

	app.Get("/health/ready", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		status := healthChecker.CheckAll(ctx)
		statusCode := fiber.StatusOK
		if status.Status == "unhealthy" {
			statusCode = fiber.StatusServiceUnavailable
		}
		return c.Status(statusCode).JSON(status)
	})

	app.Get("/health/circuits", func(c *fiber.Ctx) error {
		return c.JSON(cbManager.Stats())
	})

	for _, route := range Routes {
		registerBackendRoutes(app, route, reverseProxy, cbManager, redisClient)
	}
}

func registerBackendRoutes(app *fiber.App, route RouteDefinition, reverseProxy *proxy.ReverseProxy, cbManager *middleware.CircuitBreakerManager, redisClient *redis.Client) {
	handler := func(c *fiber.Ctx) error {
		return reverseProxy.ProxyRequest(c, route.Backend)
	}

	var middlewares []fiber.Handler
	if route.RequireAuth {
		middlewares = append(middlewares, middleware.AuthMiddleware())
	}
	if route.RequireManager {
		middlewares = append(middlewares, middleware.ManagerMiddleware())
	}
	if redisClient != nil {
		middlewares = append(middlewares, middleware.CacheMiddleware(redisClient, middleware.DefaultCacheConfig()))
	}
	middlewares = append(middlewares, middleware.CircuitBreakerMiddleware(cbManager, route.Backend))

	group := app.Group(route.Prefix, middlewares...)
	group.All("/*", handler)
	app.All(route.Prefix, append(middlewares, handler)...)
}
