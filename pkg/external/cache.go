package external

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// CacheClient wraps Redis with get/set helpers for generated explanations.
// Explanations are deterministic functions of the generation context, so a
// shared cache is safe across processes.
type CacheClient struct {
	redis      *redis.Client
	defaultTTL time.Duration
}

// cachedExplanation carries the payload with its own expiry metadata so a
// Redis configured without eviction still ages entries out.
type cachedExplanation struct {
	Explanation *domain.Explanation `json:"explanation"`
	CachedAt    time.Time           `json:"cached_at"`
	ExpiresAt   time.Time           `json:"expires_at"`
}

// NewCacheClient creates a Redis-backed explanation cache and verifies the
// connection before returning.
func NewCacheClient(config domain.CacheConfig) (*CacheClient, error) {
	opts, err := redis.ParseURL(config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing Redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	ttl := config.DefaultTTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}

	return &CacheClient{
		redis:      client,
		defaultTTL: ttl,
	}, nil
}

// GetExplanation retrieves a cached explanation; the second return value
// reports a hit. Corrupt or expired entries are deleted and treated as
// misses.
func (c *CacheClient) GetExplanation(ctx context.Context, genCtx domain.GenerationContext) (*domain.Explanation, bool, error) {
	key := ExplanationCacheKey(genCtx)

	val, err := c.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("getting explanation cache: %w", err)
	}

	var cached cachedExplanation
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	if time.Now().After(cached.ExpiresAt) {
		c.redis.Del(ctx, key)
		return nil, false, nil
	}

	return cached.Explanation, true, nil
}

// SetExplanation caches an explanation under the context's identity key.
func (c *CacheClient) SetExplanation(ctx context.Context, genCtx domain.GenerationContext, explanation *domain.Explanation) error {
	cached := cachedExplanation{
		Explanation: explanation,
		CachedAt:    time.Now(),
		ExpiresAt:   time.Now().Add(c.defaultTTL),
	}

	data, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("marshaling explanation cache entry: %w", err)
	}

	return c.redis.Set(ctx, ExplanationCacheKey(genCtx), data, c.defaultTTL).Err()
}

// Close releases the underlying Redis connection pool.
func (c *CacheClient) Close() error {
	return c.redis.Close()
}

// ExplanationCacheKey derives a stable key from the fields that determine
// the explanation content. Two contexts with the same verdict and detected
// variants share an entry regardless of patient identity.
func ExplanationCacheKey(genCtx domain.GenerationContext) string {
	identity := strings.Join([]string{
		genCtx.Drug.String(),
		genCtx.Gene,
		genCtx.Diplotype,
		genCtx.Phenotype.String(),
		genCtx.RiskLabel.String(),
		genCtx.Severity.String(),
		genCtx.Action,
		strings.Join(genCtx.DetectedRSIDs, ","),
	}, "|")

	hash := sha256.Sum256([]byte(identity))
	return fmt.Sprintf("pharmagenie:explanation:%x", hash)
}
