package app

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/healthcheck"
	"github.com/gofiber/fiber/v2/middleware/keyauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	memoryStorage "github.com/gofiber/storage/memory/v2"
	redisStorage "github.com/gofiber/storage/redis/v2"
	"github.com/rs/xid"

	"docconv/internal/handlers"
	u "docconv/internal/utils"
)

const apiKeyLocal = "api_key"

// rateLimits builds sliding-window limiters on a shared storage. Token
// limiters are created per distinct limit value and reused.
type rateLimits struct {
	store    fiber.Storage
	interval time.Duration

	mu      sync.RWMutex
	byLimit map[int]fiber.Handler
}

func newRateLimits(store fiber.Storage, interval time.Duration) *rateLimits {
	return &rateLimits{store: store, interval: interval, byLimit: make(map[int]fiber.Handler)}
}

// newRateLimitStore prefers Redis and falls back to process memory when no
// host is configured or the Redis store cannot be created.
func newRateLimitStore(cfg u.Config) (store fiber.Storage) {
	store = memoryStorage.New()
	if cfg.Cache.RedisHost == "" {
		u.Info("Using in-memory store for rate limiting")
		return store
	}

	defer func() {
		if r := recover(); r != nil {
			u.Error("Redis limiter store init panicked, falling back to memory", "panic", r)
		}
	}()
	store = redisStorage.New(redisStorage.Config{
		Addrs:    []string{cfg.Cache.RedisHost},
		Database: cfg.Cache.RateLimitDB,
	})
	u.Info("Using Redis for rate limiting", "addr", cfg.Cache.RedisHost, "db", cfg.Cache.RateLimitDB)
	return store
}

func apiKey(c *fiber.Ctx) string {
	token, _ := c.Locals(apiKeyLocal).(string)
	return token
}

func clientKey(c *fiber.Ctx) string {
	sum := sha256.Sum256([]byte(c.IP() + c.Get(fiber.HeaderUserAgent)))
	return hex.EncodeToString(sum[:])
}

func (rl *rateLimits) tokenLimiter(limit int) fiber.Handler {
	rl.mu.RLock()
	h, ok := rl.byLimit[limit]
	rl.mu.RUnlock()
	if ok {
		return h
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if h, ok := rl.byLimit[limit]; ok {
		return h
	}
	h = limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        rl.interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           rl.store,
		KeyGenerator:      apiKey,
		LimitReached: func(c *fiber.Ctx) error {
			u.Warn("Rate limit exceeded", "token", u.TokenLabel(apiKey(c)), "path", c.Path())
			return writeError(c, fiber.StatusTooManyRequests, "Too Many Requests", "")
		},
	})
	rl.byLimit[limit] = h
	return h
}

// tokenMiddleware applies the limit stored with the API key. Anonymous
// requests and tokens without a limit pass through.
func (rl *rateLimits) tokenMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := apiKey(c)
		if token == "" {
			return c.Next()
		}
		limit := u.GetRateLimit(token)
		if limit <= 0 {
			return c.Next()
		}
		return rl.tokenLimiter(limit)(c)
	}
}

// clientMiddleware limits anonymous requests by client IP and user agent.
// Authenticated requests are governed by their token limit only.
func (rl *rateLimits) clientMiddleware(limit int) fiber.Handler {
	if limit <= 0 {
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}
	clientLimiter := limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        rl.interval,
		LimiterMiddleware: limiter.SlidingWindow{},
		Storage:           rl.store,
		KeyGenerator:      clientKey,
		LimitReached: func(c *fiber.Ctx) error {
			u.Warn("Rate limit exceeded", "client", clientKey(c), "path", c.Path())
			return writeError(c, fiber.StatusTooManyRequests, "Too Many Requests", "")
		},
	})
	return func(c *fiber.Ctx) error {
		if apiKey(c) != "" {
			return c.Next()
		}
		return clientLimiter(c)
	}
}

func apiKeyAuth() fiber.Handler {
	return keyauth.New(keyauth.Config{
		KeyLookup:  "header:X-API-Key",
		ContextKey: apiKeyLocal,
		Validator: func(c *fiber.Ctx, key string) (bool, error) {
			if !u.TokensReady() {
				return false, u.ErrTokenStoreNotReady
			}
			if !u.ValidateToken(key) {
				return false, u.ErrInvalidAPIKey
			}
			return true, nil
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || c.Get("X-API-Key") == ""
		},
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// keyauth may pass a nil error.
			if err == nil {
				err = fiber.ErrUnauthorized
			}
			status := fiber.StatusUnauthorized
			if errors.Is(err, u.ErrTokenStoreNotReady) {
				status = fiber.StatusServiceUnavailable
			}
			return writeError(c, status, err.Error(), "")
		},
	})
}

func requestLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			// The app error handler has not written the response yet.
			status, _, _ = handlers.ErrorResponse(err)
		}
		u.Info("Request handled",
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"token", u.TokenLabel(apiKey(c)),
			"request_id", c.GetRespHeader(fiber.HeaderXRequestID))
		return err
	}
}

// RegisterMiddleware attaches global middleware to the app
func RegisterMiddleware(app *fiber.App, cfg u.Config) {
	limits := newRateLimits(newRateLimitStore(cfg), cfg.RateLimiter.Interval)

	app.Use(cors.New())

	app.Use(requestid.New(requestid.Config{
		Generator: func() string {
			return xid.New().String()
		},
	}))

	app.Use(healthcheck.New())

	app.Use(apiKeyAuth())

	app.Use(limits.tokenMiddleware())

	if cfg.RateLimiter.EnableUserLimiter || cfg.RateLimiter.UserLimit > 0 {
		app.Use(limits.clientMiddleware(cfg.RateLimiter.UserLimit))
	}

	app.Use(requestLogger())
}
