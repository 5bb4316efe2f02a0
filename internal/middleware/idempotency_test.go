package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/payvo/payvo/internal/logging"
)

type idemHarness struct {
	app   *fiber.App
	mr    *miniredis.Miniredis
	calls int
	fail  bool
}

func newIdemHarness(t *testing.T) *idemHarness {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		cache.Close()
		mr.Close()
	})

	h := &idemHarness{app: fiber.New(), mr: mr}
	h.app.Use(Idempotency(cache, time.Minute, logging.Discard()))
	h.app.Post("/deposit", func(c *fiber.Ctx) error {
		h.calls++
		if h.fail {
			return c.Status(fiber.StatusServiceUnavailable).SendString("try later")
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"call": h.calls})
	})
	h.app.Post("/withdraw", func(c *fiber.Ctx) error {
		h.calls++
		return c.SendStatus(fiber.StatusCreated)
	})
	return h
}

func (h *idemHarness) post(t *testing.T, path, key string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, path, strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	resp, err := h.app.Test(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, string(body)
}

func TestIdempotencyWithoutHeaderPassesThrough(t *testing.T) {
	h := newIdemHarness(t)
	h.post(t, "/deposit", "")
	h.post(t, "/deposit", "")
	if h.calls != 2 {
		t.Fatalf("expected handler to run twice, ran %d", h.calls)
	}
}

func TestIdempotencyKeysAreScopedToPath(t *testing.T) {
	h := newIdemHarness(t)
	h.post(t, "/deposit", "same-key")
	h.post(t, "/withdraw", "same-key")
	if h.calls != 2 {
		t.Fatalf("expected both paths to reach their handlers, got %d calls", h.calls)
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	h := newIdemHarness(t)

	first, firstBody := h.post(t, "/deposit", "abc123")
	if first.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected %d got %d", fiber.StatusCreated, first.StatusCode)
	}
	if first.Header.Get(idempotencyReplayHeader) != "" {
		t.Fatalf("first response must not be marked as a replay")
	}

	second, secondBody := h.post(t, "/deposit", "abc123")
	if second.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected replayed status %d got %d", fiber.StatusCreated, second.StatusCode)
	}
	if secondBody != firstBody {
		t.Fatalf("expected replayed body %s got %s", firstBody, secondBody)
	}
	if second.Header.Get(idempotencyReplayHeader) != "true" {
		t.Fatalf("expected replay header")
	}
	if !strings.HasPrefix(second.Header.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
		t.Fatalf("unexpected content type %q", second.Header.Get(fiber.HeaderContentType))
	}
	if h.calls != 1 {
		t.Fatalf("expected handler to run once, ran %d", h.calls)
	}
}

func TestIdempotencyRejectsRequestStillInFlight(t *testing.T) {
	h := newIdemHarness(t)
	if err := h.mr.Set(idempotencyPrefix+"POST:/deposit:busy", inProgressMarker); err != nil {
		t.Fatalf("seed marker: %v", err)
	}

	resp, _ := h.post(t, "/deposit", "busy")
	if resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("expected %d got %d", fiber.StatusConflict, resp.StatusCode)
	}
	if h.calls != 0 {
		t.Fatalf("handler must not run while the key is in flight")
	}
}

func TestIdempotencyDoesNotStoreServerErrors(t *testing.T) {
	h := newIdemHarness(t)
	h.fail = true
	if resp, _ := h.post(t, "/deposit", "retry-me"); resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", resp.StatusCode)
	}

	h.fail = false
	if resp, _ := h.post(t, "/deposit", "retry-me"); resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected retry to reach the handler, got %d", resp.StatusCode)
	}
	if h.calls != 2 {
		t.Fatalf("expected two handler runs, got %d", h.calls)
	}
}
