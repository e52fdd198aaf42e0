package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	applog "storefront/internal/log"
)

// ErrGuardHeld means another submission for the same user is in flight.
var ErrGuardHeld = errors.New("checkout already in progress")

// CheckoutGuard admits at most one order submission per user at a time.
// The returned release func must be called exactly once.
type CheckoutGuard interface {
	Acquire(ctx context.Context, userID string) (release func(), err error)
}

// MemoryGuard serves a single process.
type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard { return &MemoryGuard{held: map[string]struct{}{}} }

func (g *MemoryGuard) Acquire(_ context.Context, userID string) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[userID]; busy {
		return nil, ErrGuardHeld
	}
	g.held[userID] = struct{}{}
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.held, userID)
			g.mu.Unlock()
		})
	}, nil
}

// releaseScript deletes the key only if it still holds our token, so an
// expired-and-reacquired lock is never released by the old holder.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0`)

// RedisGuard shares the guard across instances with SETNX + TTL. The TTL
// bounds how long a crashed holder can block its user.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisGuard{client: client, ttl: ttl, prefix: "storefront:checkout:"}
}

// NewRedisGuardFromURL parses url, pings the server and returns the guard.
func NewRedisGuardFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisGuard, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return NewRedisGuard(client, ttl), nil
}

func (g *RedisGuard) Acquire(ctx context.Context, userID string) (func(), error) {
	key := g.prefix + userID
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire checkout guard: %w", err)
	}
	if !ok {
		return nil, ErrGuardHeld
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// Detached from the request so a cancelled request still releases.
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(rctx, g.client, []string{key}, token).Err(); err != nil {
				applog.Event(applog.LevelWarn, "checkout.guard.release_failed", err, map[string]any{"user_id": userID})
			}
		})
	}, nil
}

func (g *RedisGuard) Close() error { return g.client.Close() }
