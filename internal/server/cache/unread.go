// Package cache holds short-lived per-user counters, such as the unread
// notification count that clients poll.
package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Counter is a read-through cache guarded by a per-user generation. Readers
// take the generation before loading from the source of truth and pass it to
// Set; an Invalidate in between bumps the generation and the stale value is
// dropped instead of cached.
type Counter interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, userID string) (int, bool, error)
	Generation(ctx context.Context, userID string) (int64, error)
	// Set stores n only while the generation is still gen.
	Set(ctx context.Context, userID string, n int, gen int64) error
	Invalidate(ctx context.Context, userID string) error
}

const (
	unreadKeyPrefix = "bazaar:unread:"
	unreadGenPrefix = "bazaar:unread:gen:"

	// genTTL only has to outlive any in-flight read.
	genTTL = 24 * time.Hour
)

type RedisCounter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCounter(client *redis.Client, ttl time.Duration) *RedisCounter {
	return &RedisCounter{client: client, ttl: ttl}
}

func (c *RedisCounter) Get(ctx context.Context, userID string) (int, bool, error) {
	v, err := c.client.Get(ctx, unreadKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		// garbage under our key: treat as a miss
		return 0, false, nil
	}
	return n, true, nil
}

func (c *RedisCounter) Generation(ctx context.Context, userID string) (int64, error) {
	return generation(ctx, c.client, userID)
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func generation(ctx context.Context, cmd getter, userID string) (int64, error) {
	gen, err := cmd.Get(ctx, unreadGenPrefix+userID).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCounter) Set(ctx context.Context, userID string, n int, gen int64) error {
	genKey := unreadGenPrefix + userID

	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := generation(ctx, tx, userID)
		if err != nil {
			return err
		}
		if cur != gen {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, unreadKeyPrefix+userID, n, c.ttl)
			return nil
		})
		return err
	}, genKey)

	// an invalidation raced the write; the value is stale anyway
	if errors.Is(err, redis.TxFailedErr) {
		return nil
	}
	return err
}

func (c *RedisCounter) Invalidate(ctx context.Context, userID string) error {
	genKey := unreadGenPrefix + userID
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, genTTL)
		pipe.Del(ctx, unreadKeyPrefix+userID)
		return nil
	})
	return err
}

// MemoryCounter is the single-instance fallback when Redis is not configured.
type MemoryCounter struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]memoryEntry
	gens    map[string]int64
}

type memoryEntry struct {
	value   int
	expires time.Time
}

func NewMemoryCounter(ttl time.Duration) *MemoryCounter {
	return &MemoryCounter{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]memoryEntry),
		gens:    make(map[string]int64),
	}
}

func (c *MemoryCounter) Get(_ context.Context, userID string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[userID]
	if !ok {
		return 0, false, nil
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, userID)
		return 0, false, nil
	}
	return e.value, true, nil
}

func (c *MemoryCounter) Generation(_ context.Context, userID string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[userID], nil
}

func (c *MemoryCounter) Set(_ context.Context, userID string, n int, gen int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[userID] != gen {
		return nil
	}
	c.entries[userID] = memoryEntry{value: n, expires: c.now().Add(c.ttl)}
	return nil
}

func (c *MemoryCounter) Invalidate(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gens[userID]++
	delete(c.entries, userID)
	return nil
}
