package middleware

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/salonos/payments/pkg/logger"
)

// CacheConfig holds response cache configuration
type CacheConfig struct {
	DefaultTTL      time.Duration
	CacheablePaths  []string
	CacheableStatus []int
}

// DefaultCacheConfig caches only read-heavy monitoring and status
// routes, briefly. Payment and refund reads are never cached; a stale
// refund amount is worse than a slow read.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		DefaultTTL: 30 * time.Second,
		CacheablePaths: []string{
			"/api/monitoring/",
			"/api/stripe/status",
		},
		CacheableStatus: []int{200},
	}
}

// CacheMiddleware caches GET responses in Redis, partitioned by tenant.
// The cache key includes the tenant id so one tenant's dashboard can
// never be served to another.
func CacheMiddleware(redisClient *redis.Client, config CacheConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if redisClient == nil || c.Method() != fiber.MethodGet {
			return c.Next()
		}
		if !isPathCacheable(c.Path(), config.CacheablePaths) {
			return c.Next()
		}

		cacheKey := tenantCacheKey(c)
		ctx := c.UserContext()

		cached, err := redisClient.Get(ctx, cacheKey).Bytes()
		if err == nil && len(cached) > 0 {
			c.Set("X-Cache", "HIT")
			c.Set("Content-Type", "application/json")
			return c.Send(cached)
		}

		err = c.Next()

		statusCode := c.Response().StatusCode()
		if isStatusCacheable(statusCode, config.CacheableStatus) {
			body := c.Response().Body()
			if setErr := redisClient.Set(ctx, cacheKey, body, config.DefaultTTL).Err(); setErr != nil {
				logger.Logger.Warn().
					Err(setErr).
					Str("cache_key", cacheKey).
					Msg("Failed to cache response")
			}
			c.Set("X-Cache", "MISS")
		}

		return err
	}
}

// tenantCacheKey hashes tenant, path and query into the cache key
func tenantCacheKey(c *fiber.Ctx) string {
	tenantID, _ := c.Locals("tenant_id").(string)
	components := fmt.Sprintf("%s:%s:%s",
		tenantID,
		c.Path(),
		string(c.Request().URI().QueryString()),
	)
	hash := sha256.Sum256([]byte(components))
	return fmt.Sprintf("gwcache:%s", hex.EncodeToString(hash[:]))
}

func isPathCacheable(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) || path == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}

func isStatusCacheable(status int, cacheable []int) bool {
	for _, s := range cacheable {
		if s == status {
			return true
		}
	}
	return false
}
