package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// TokenCache stores an adapter's access token until it expires or is invalidated.
type TokenCache interface {
	Get(ctx context.Context, key string) (Token, bool, error)
	Set(ctx context.Context, key string, tok Token) error
	Invalidate(ctx context.Context, key string) error
}

type MemoryTokenCache struct {
	mu     sync.Mutex
	tokens map[string]Token
	now    func() time.Time
}

func NewMemoryTokenCache() *MemoryTokenCache {
	return &MemoryTokenCache{tokens: make(map[string]Token), now: time.Now}
}

func (c *MemoryTokenCache) Get(_ context.Context, key string) (Token, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tok, ok := c.tokens[key]
	if !ok || !tok.Valid(c.now()) {
		delete(c.tokens, key)
		return Token{}, false, nil
	}
	return tok, true, nil
}

func (c *MemoryTokenCache) Set(_ context.Context, key string, tok Token) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[key] = tok
	return nil
}

func (c *MemoryTokenCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, key)
	return nil
}

// RedisTokenCache shares tokens across processes; Redis TTL enforces expiry.
type RedisTokenCache struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisTokenCache(rdb *redis.Client) *RedisTokenCache {
	return &RedisTokenCache{rdb: rdb, prefix: "psp:token:"}
}

func (c *RedisTokenCache) Get(ctx context.Context, key string) (Token, bool, error) {
	k := c.prefix + key
	val, err := c.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		return Token{}, false, nil
	}
	if err != nil {
		return Token{}, false, err
	}
	return Token{Value: val}, true, nil
}

func (c *RedisTokenCache) Set(ctx context.Context, key string, tok Token) error {
	var ttl time.Duration
	if !tok.ExpiresAt.IsZero() {
		ttl = time.Until(tok.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	return c.rdb.Set(ctx, c.prefix+key, tok.Value, ttl).Err()
}

func (c *RedisTokenCache) Invalidate(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, c.prefix+key).Err()
}
