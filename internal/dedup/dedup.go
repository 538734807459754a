// Package dedup suppresses locally generated duplicate reports of the
// same logical conversion. The guard is advisory: the receiving
// platforms deduplicate on event id themselves, so a Redis outage
// degrades to dispatching normally, never to dropping events.
package dedup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultTTL is how long an event id is remembered.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "beacon:event:"
)

// Guard remembers recently dispatched event ids. A nil *Guard is valid
// and considers every event first-seen.
type Guard struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// New connects to Redis and returns a Guard.
func New(ctx context.Context, redisURL string, logger *slog.Logger) (*Guard, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse Redis URL: %w", err)
	}

	opt.PoolSize = 10
	opt.MinIdleConns = 2
	opt.PoolTimeout = 4 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping Redis: %w", err)
	}

	return &Guard{
		client: client,
		ttl:    DefaultTTL,
		logger: logger.With("component", "dedup.guard"),
	}, nil
}

// FirstSeen atomically records eventID and reports whether this process
// saw it for the first time. Errors count as first-seen: a flaky guard
// must never suppress a dispatch.
func (g *Guard) FirstSeen(ctx context.Context, eventID string) bool {
	if g == nil || eventID == "" {
		return true
	}

	ok, err := g.client.SetNX(ctx, keyPrefix+eventID, 1, g.ttl).Result()
	if err != nil {
		g.logger.Warn("dedup check failed, treating event as first-seen",
			"event_id", eventID,
			"error", err,
		)
		return true
	}
	return ok
}

// Ping checks Redis connectivity.
func (g *Guard) Ping(ctx context.Context) error {
	if g == nil {
		return nil
	}
	return g.client.Ping(ctx).Err()
}

// Close closes the Redis client.
func (g *Guard) Close() error {
	if g == nil {
		return nil
	}
	return g.client.Close()
}
