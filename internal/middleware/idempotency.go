package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/payvo/payvo/internal/metrics"
)

const (
	idempotencyKeyHeader    = "Idempotency-Key"
	idempotencyReplayHeader = "Idempotent-Replayed"
	idempotencyPrefix       = "idempotency:v2:"
	inProgressMarker        = "__in_progress__"
	cacheOpTimeout          = 2 * time.Second
)

var errDuplicateInFlight = fiber.NewError(fiber.StatusConflict, "duplicate request currently processing")

type replay struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type replayCache struct {
	client *redis.Client
	ttl    time.Duration
}

func (rc replayCache) do(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	return fn(ctx)
}

// lookup returns the stored replay, nil when the key is new, or
// errDuplicateInFlight while the first request is still running.
func (rc replayCache) lookup(key string) (*replay, error) {
	var raw string
	err := rc.do(func(ctx context.Context) (err error) {
		raw, err = rc.client.Get(ctx, key).Result()
		return err
	})
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, err
	case raw == inProgressMarker:
		return nil, errDuplicateInFlight
	}
	var r replay
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (rc replayCache) reserve(key string) (bool, error) {
	var ok bool
	err := rc.do(func(ctx context.Context) (err error) {
		ok, err = rc.client.SetNX(ctx, key, inProgressMarker, rc.ttl).Result()
		return err
	})
	return ok, err
}

func (rc replayCache) save(key string, r replay) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return rc.do(func(ctx context.Context) error {
		return rc.client.Set(ctx, key, payload, rc.ttl).Err()
	})
}

func (rc replayCache) release(key string) {
	_ = rc.do(func(ctx context.Context) error {
		return rc.client.Del(ctx, key).Err()
	})
}

// Idempotency replays the stored response for a repeated Idempotency-Key on
// unsafe methods. Keys are scoped to method and path. Requests without a key
// pass through, so a voice client that cannot retry safely simply omits it.
// Errors and 5xx responses are not stored, leaving the key free for a retry.
func Idempotency(cache *redis.Client, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	rc := replayCache{client: cache, ttl: ttl}
	return func(c *fiber.Ctx) error {
		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions:
			return c.Next()
		}
		key := c.Get(idempotencyKeyHeader)
		if key == "" {
			return c.Next()
		}
		cacheKey := idempotencyPrefix + c.Method() + ":" + c.Path() + ":" + key

		stored, err := rc.lookup(cacheKey)
		if errors.Is(err, errDuplicateInFlight) {
			return err
		}
		if err != nil {
			logger.Error("idempotency lookup failed", "key", key, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency store failure")
		}
		if stored != nil {
			metrics.IdempotentReplays.Inc()
			c.Set(idempotencyReplayHeader, "true")
			if stored.ContentType != "" {
				c.Set(fiber.HeaderContentType, stored.ContentType)
			}
			return c.Status(stored.Status).Send(stored.Body)
		}

		reserved, err := rc.reserve(cacheKey)
		if err != nil {
			logger.Error("idempotency reservation failed", "key", key, "error", err)
			return fiber.NewError(fiber.StatusInternalServerError, "idempotency reservation failure")
		}
		if !reserved {
			return errDuplicateInFlight
		}

		if err := c.Next(); err != nil {
			rc.release(cacheKey)
			return err
		}
		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			rc.release(cacheKey)
			return nil
		}

		r := replay{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := rc.save(cacheKey, r); err != nil {
			logger.Error("failed to persist idempotent response", "key", key, "error", err)
			rc.release(cacheKey)
		}
		return nil
	}
}
