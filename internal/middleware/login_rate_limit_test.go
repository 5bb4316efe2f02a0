package middleware

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

func TestLoginRateLimitPerEmail(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	app := fiber.New()
	app.Post("/sessions", LoginRateLimit(cache, 2), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})

	post := func(email string) int {
		t.Helper()
		req := httptest.NewRequest(fiber.MethodPost, "/sessions", strings.NewReader(`{"email":"`+email+`"}`))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		return resp.StatusCode
	}

	if got := post("Ann@Example.com"); got != fiber.StatusCreated {
		t.Fatalf("attempt 1: got %d", got)
	}
	if got := post("ann@example.com"); got != fiber.StatusCreated {
		t.Fatalf("attempt 2: got %d", got)
	}
	if got := post("ann@example.com"); got != fiber.StatusTooManyRequests {
		t.Fatalf("attempt 3: expected 429, got %d", got)
	}
	if got := post("ben@example.com"); got != fiber.StatusCreated {
		t.Fatalf("other email should not be limited, got %d", got)
	}

	mr.FastForward(61 * time.Second)
	if got := post("ann@example.com"); got != fiber.StatusCreated {
		t.Fatalf("limit should reset after a minute, got %d", got)
	}
}

func TestLoginRateLimitWithoutRedis(t *testing.T) {
	app := fiber.New()
	app.Post("/sessions", LoginRateLimit(nil, 1), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusCreated)
	})
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodPost, "/sessions", nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusCreated {
			t.Fatalf("expected pass-through, got %d", resp.StatusCode)
		}
	}
}
