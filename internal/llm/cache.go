package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheTier es un nivel de la cadena de cache de embeddings.
type CacheTier interface {
	Name() string
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// CacheKey identifica un texto para un modelo dado.
func CacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	vec     []float32
	expires time.Time
}

type memoryCache struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[string]memoryEntry
}

// NewMemoryCache guarda vectores en proceso con vencimiento.
func NewMemoryCache(ttl time.Duration) CacheTier {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &memoryCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]memoryEntry),
	}
}

func (c *memoryCache) Name() string { return "memory" }

func (c *memoryCache) Get(_ context.Context, key string) ([]float32, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.items[key]
	if !ok {
		return nil, false, nil
	}
	if c.now().After(e.expires) {
		delete(c.items, key)
		return nil, false, nil
	}
	return e.vec, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, vec []float32) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memoryEntry{vec: vec, expires: c.now().Add(c.ttl)}
	return nil
}

// redisKV es el subconjunto de go-redis que usa la cache.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

type redisCache struct {
	client  redisKV
	prefix  string
	ttl     time.Duration
	timeout time.Duration
}

// NewRedisCache comparte vectores entre procesos. Devuelve nil sin cliente.
func NewRedisCache(client *redis.Client, ttl time.Duration) CacheTier {
	if client == nil {
		return nil
	}
	return newRedisCache(client, ttl)
}

func newRedisCache(client redisKV, ttl time.Duration) *redisCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &redisCache{
		client:  client,
		prefix:  "emb:",
		ttl:     ttl,
		timeout: 500 * time.Millisecond,
	}
}

func (c *redisCache) Name() string { return "redis" }

func (c *redisCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var vec []float32
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, vec []float32) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.client.Set(ctx, c.prefix+key, raw, c.ttl).Err()
}
