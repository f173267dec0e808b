package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	memoryStorage "github.com/gofiber/storage/memory/v2"

	u "docconv/internal/utils"
)

func limitedApp(rl *rateLimits, clientLimit int) *fiber.App {
	app := fiber.New()
	app.Use(apiKeyAuth())
	app.Use(rl.tokenMiddleware())
	app.Use(rl.clientMiddleware(clientLimit))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	return app
}

func clientRequest(token string) *http.Request {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("User-Agent", "test-agent")
	req.RemoteAddr = "1.2.3.4:5678"
	if token != "" {
		req.Header.Set("X-API-Key", token)
	}
	return req
}

func expectStatus(t *testing.T, app *fiber.App, req *http.Request, want int) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != want {
		t.Fatalf("expected %d but got %d", want, resp.StatusCode)
	}
}

func TestTokenRateLimit(t *testing.T) {
	u.LoadTokensFromMap(map[string]int{"limited": 2, "unlimited": 0})
	rl := newRateLimits(memoryStorage.New(), time.Hour)
	app := limitedApp(rl, 0)

	for i := 0; i < 2; i++ {
		expectStatus(t, app, clientRequest("limited"), fiber.StatusOK)
	}
	expectStatus(t, app, clientRequest("limited"), fiber.StatusTooManyRequests)

	for i := 0; i < 5; i++ {
		expectStatus(t, app, clientRequest("unlimited"), fiber.StatusOK)
	}
}

func TestTokenLimiterReusedPerLimit(t *testing.T) {
	rl := newRateLimits(memoryStorage.New(), time.Hour)
	rl.tokenLimiter(5)
	rl.tokenLimiter(5)
	rl.tokenLimiter(7)
	if len(rl.byLimit) != 2 {
		t.Fatalf("expected 2 cached limiters, got %d", len(rl.byLimit))
	}
}

func TestClientRateLimit(t *testing.T) {
	rl := newRateLimits(memoryStorage.New(), time.Hour)
	app := limitedApp(rl, 2)

	for i := 0; i < 2; i++ {
		expectStatus(t, app, clientRequest(""), fiber.StatusOK)
	}
	expectStatus(t, app, clientRequest(""), fiber.StatusTooManyRequests)
}

func TestTokenBypassesClientLimit(t *testing.T) {
	u.LoadTokensFromMap(map[string]int{"test-token": 100})
	rl := newRateLimits(memoryStorage.New(), time.Hour)
	app := limitedApp(rl, 2)

	for i := 0; i < 2; i++ {
		expectStatus(t, app, clientRequest(""), fiber.StatusOK)
	}
	expectStatus(t, app, clientRequest(""), fiber.StatusTooManyRequests)

	// Same client, now authenticated: only the token limit applies.
	expectStatus(t, app, clientRequest("test-token"), fiber.StatusOK)
}

func TestAPIKeyAuth_RejectsUnknownKey(t *testing.T) {
	u.LoadTokensFromMap(map[string]int{"known": 0})
	app := limitedApp(newRateLimits(memoryStorage.New(), time.Hour), 0)

	expectStatus(t, app, clientRequest("unknown"), fiber.StatusUnauthorized)
	expectStatus(t, app, clientRequest("known"), fiber.StatusOK)
	expectStatus(t, app, clientRequest(""), fiber.StatusOK)
}

func TestNewRateLimitStore_MemoryWithoutRedisHost(t *testing.T) {
	store := newRateLimitStore(u.DefaultConfig())
	if err := store.Set("k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := store.Get("k")
	if err != nil || string(v) != "v" {
		t.Fatalf("expected stored value, got %q %v", v, err)
	}
}
