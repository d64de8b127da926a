package llm

import (
	"context"

	"go.uber.org/zap"
)

// LookupObserver recibe cada consulta a un nivel de cache.
type LookupObserver func(tier string, hit bool)

// CachedEmbedder consulta los niveles en orden (proceso, Redis, Postgres) y
// solo llama al proveedor si ninguno tiene el vector. Un acierto en un nivel
// lento rellena los niveles anteriores. Los errores de cache se registran y
// cuentan como fallo de cache, nunca cortan la llamada.
type CachedEmbedder struct {
	tiers    []CacheTier
	provider Embedder
	model    string
	logger   *zap.Logger
	observe  LookupObserver
}

// NewCachedEmbedder ignora los niveles nil.
func NewCachedEmbedder(provider Embedder, model string, logger *zap.Logger, observe LookupObserver, tiers ...CacheTier) *CachedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	active := make([]CacheTier, 0, len(tiers))
	for _, t := range tiers {
		if t != nil {
			active = append(active, t)
		}
	}
	return &CachedEmbedder{
		tiers:    active,
		provider: provider,
		model:    model,
		logger:   logger,
		observe:  observe,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := CacheKey(c.model, text)

	for i, tier := range c.tiers {
		vec, ok, err := tier.Get(ctx, key)
		if err != nil {
			c.logger.Warn("embedding cache read failed", zap.String("tier", tier.Name()), zap.Error(err))
		}
		hit := err == nil && ok && len(vec) > 0
		c.record(tier.Name(), hit)
		if hit {
			c.fill(ctx, c.tiers[:i], key, vec)
			return vec, nil
		}
	}

	vec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, c.tiers, key, vec)
	return vec, nil
}

func (c *CachedEmbedder) fill(ctx context.Context, tiers []CacheTier, key string, vec []float32) {
	for _, tier := range tiers {
		if err := tier.Set(ctx, key, vec); err != nil {
			c.logger.Warn("embedding cache write failed", zap.String("tier", tier.Name()), zap.Error(err))
		}
	}
}

func (c *CachedEmbedder) record(tier string, hit bool) {
	if c.observe != nil {
		c.observe(tier, hit)
	}
}
