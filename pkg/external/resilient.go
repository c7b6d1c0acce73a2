package external

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/Neon01602/PharmaGenie-RIFT/internal/domain"
)

// ResilientGenerator layers a circuit breaker, a process-local LRU tier and
// an optional shared Redis tier over the raw generator client. Cache lookup
// order is memory, then Redis, then the upstream call; the breaker guards
// only the upstream call.
type ResilientGenerator struct {
	client  *GeneratorClient
	cache   *CacheClient
	memory  *lru.Cache
	breaker *gobreaker.CircuitBreaker
	logger  *logrus.Logger
}

// NewResilientGenerator wraps the generator client. The Redis cache may be
// nil, which disables the shared tier without changing behavior otherwise.
func NewResilientGenerator(client *GeneratorClient, cache *CacheClient, memoryItems int, logger *logrus.Logger) (*ResilientGenerator, error) {
	if memoryItems <= 0 {
		memoryItems = 256
	}

	memory, err := lru.New(memoryItems)
	if err != nil {
		return nil, fmt.Errorf("creating memory cache: %w", err)
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ExplanationGenerator",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	return &ResilientGenerator{
		client:  client,
		cache:   cache,
		memory:  memory,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Generate resolves an explanation through the cache tiers and the breaker.
// An open breaker surfaces as an error so the analyzer applies its
// deterministic fallback instead of blocking on a known-bad upstream.
func (g *ResilientGenerator) Generate(ctx context.Context, genCtx domain.GenerationContext) (*domain.Explanation, error) {
	key := ExplanationCacheKey(genCtx)

	if cached, ok := g.memory.Get(key); ok {
		if explanation, ok := cached.(*domain.Explanation); ok {
			return explanation, nil
		}
	}

	if g.cache != nil {
		explanation, hit, err := g.cache.GetExplanation(ctx, genCtx)
		if err != nil {
			g.logger.WithError(err).Warn("Redis explanation lookup failed; continuing to upstream")
		} else if hit {
			g.memory.Add(key, explanation)
			return explanation, nil
		}
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.client.Generate(ctx, genCtx)
	})
	if err != nil {
		return nil, fmt.Errorf("generating explanation: %w", err)
	}

	explanation := result.(*domain.Explanation)
	g.memory.Add(key, explanation)

	if g.cache != nil {
		if err := g.cache.SetExplanation(ctx, genCtx, explanation); err != nil {
			g.logger.WithError(err).Warn("Failed to cache explanation in Redis")
		}
	}

	return explanation, nil
}
