// Package middleware holds the global fiber middleware stack.
package middleware

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"

	"textpdf/internal/config"
	"textpdf/internal/infra/logging"
)

// Health endpoints.
const (
	LivenessPath  = "/ops/health"
	ReadinessPath = "/ops/ready"
)

// Probe reports whether a dependency is ready to serve traffic.
type Probe func() bool

// Register attaches global middleware to app. The readiness endpoint
// succeeds only while every probe does.
func Register(app *fiber.App, cfg config.Config, probes ...Probe) {
	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New(healthcheck.Config{
		LivenessEndpoint:  LivenessPath,
		ReadinessEndpoint: ReadinessPath,
		ReadinessProbe: func(*fiber.Ctx) bool {
			for _, p := range probes {
				if !p() {
					return false
				}
			}
			return true
		},
	}))

	if cfg.RateLimiter.UserLimit > 0 {
		app.Use(userRateLimit(cfg, rateLimitStorage(cfg)))
	}

	app.Use(func(c *fiber.Ctx) error {
		logging.Info("Incoming request",
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		)
		return c.Next()
	})
}

// rateLimitStorage prefers Redis and falls back to process memory.
func rateLimitStorage(cfg config.Config) (store fiber.Storage) {
	store = memoryStorage.New()
	if cfg.Cache.RedisHost == "" {
		return store
	}

	defer func() {
		if r := recover(); r != nil {
			logging.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Cache.RedisHost},
		Database: cfg.Cache.RateLimitDB,
	})
	logging.Info("Using Redis for rate limiting", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.RateLimitDB)
	return store
}

func clientKey(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
	return hex.EncodeToString(sum[:])
}

// userRateLimit limits each client, identified by IP and User-Agent, with a
// sliding window.
func userRateLimit(cfg config.Config, store fiber.Storage) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               cfg.RateLimiter.UserLimit,
		Expiration:        cfg.RateLimiter.Interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           store,
		KeyGenerator:      clientKey,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		LimitReached: func(c *fiber.Ctx) error {
			logging.Warn("Rate limit exceeded", "client", clientKey(c), "path", c.Path())
			return JSONError(c, fiber.StatusTooManyRequests, "Too Many Requests")
		},
	})
}

// JSONError writes the service's error envelope.
func JSONError(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": msg,
		},
	})
}
