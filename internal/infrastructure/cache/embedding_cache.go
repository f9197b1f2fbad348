package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/janhq/jan-workspace/internal/domain/embedding"
	"github.com/janhq/jan-workspace/internal/infrastructure/redisconn"
	"github.com/janhq/jan-workspace/internal/metrics"
)

const (
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeNoop   = "noop"
)

// Cache stores embeddings by key.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, value []float32)
	Name() string
}

type Config struct {
	Type      string
	RedisURL  string
	KeyPrefix string
	MaxSize   int
	TTL       time.Duration
}

func NewCache(cfg Config) (Cache, error) {
	switch cfg.Type {
	case TypeRedis:
		return NewRedisCache(cfg.RedisURL, cfg.KeyPrefix, cfg.TTL)
	case TypeMemory, "":
		return NewMemoryCache(cfg.MaxSize, cfg.TTL)
	case TypeNoop:
		return NoopCache{}, nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// ===============================================
// Redis
// ===============================================

type RedisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisCache(redisURL, prefix string, ttl time.Duration) (*RedisCache, error) {
	client, err := redisconn.NewClient(redisURL)
	if err != nil {
		return nil, err
	}
	log.Info().Str("prefix", prefix).Msg("Successfully connected to Redis embedding cache")
	return NewRedisCacheWithClient(client, prefix, ttl), nil
}

func NewRedisCacheWithClient(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, prefix: prefix, ttl: ttl}
}

func (c *RedisCache) Name() string { return TypeRedis }

func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Warn().Err(err).Msg("embedding cache read failed")
		}
		return nil, false
	}
	return decodeVector(data), true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []float32) {
	if err := c.client.Set(ctx, c.prefix+key, encodeVector(value), c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("embedding cache write failed")
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func encodeVector(value []float32) []byte {
	data := make([]byte, len(value)*4)
	for i, f := range value {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(f))
	}
	return data
}

func decodeVector(data []byte) []float32 {
	vector := make([]float32, len(data)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vector
}

// ===============================================
// In-memory LRU
// ===============================================

type MemoryCache struct {
	cache *lru.Cache
	ttl   time.Duration
	mu    sync.Mutex
	now   func() time.Time
}

type cacheEntry struct {
	value     []float32
	expiresAt time.Time
}

func NewMemoryCache(maxSize int, ttl time.Duration) (*MemoryCache, error) {
	if maxSize <= 0 {
		maxSize = 10000
	}
	c, err := lru.New(maxSize)
	if err != nil {
		return nil, err
	}
	return &MemoryCache{cache: c, ttl: ttl, now: time.Now}, nil
}

func (c *MemoryCache) Name() string { return TypeMemory }

func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	entry := val.(cacheEntry)
	if c.ttl > 0 && c.now().After(entry.expiresAt) {
		c.cache.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (c *MemoryCache) Set(_ context.Context, key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)})
}

// ===============================================
// Noop
// ===============================================

type NoopCache struct{}

func (NoopCache) Name() string { return TypeNoop }

func (NoopCache) Get(context.Context, string) ([]float32, bool) { return nil, false }

func (NoopCache) Set(context.Context, string, []float32) {}

// ===============================================
// Cached embedder
// ===============================================

// CachedEmbedder serves repeated inputs from the cache and only sends misses to the backend.
type CachedEmbedder struct {
	next  embedding.Embedder
	cache Cache
	model string
}

var _ embedding.Embedder = (*CachedEmbedder)(nil)

func NewCachedEmbedder(next embedding.Embedder, cache Cache, model string) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: cache, model: model}
}

func (c *CachedEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	results := make([][]float32, len(inputs))
	var missIdx []int
	var missTexts []string

	for i, text := range inputs {
		if v, ok := c.cache.Get(ctx, c.key(text)); ok {
			metrics.RecordCacheHit(c.cache.Name())
			results[i] = v
			continue
		}
		metrics.RecordCacheMiss(c.cache.Name())
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return results, nil
	}

	vectors, err := c.next.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, embedding.ErrEmbeddingCountMismatch
	}
	for i, idx := range missIdx {
		results[idx] = vectors[i]
		c.cache.Set(ctx, c.key(missTexts[i]), vectors[i])
	}
	return results, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(c.model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
