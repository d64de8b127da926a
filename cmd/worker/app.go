package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"relnet/internal/config"
	"relnet/internal/db"
	"relnet/internal/graph"
	"relnet/internal/insight"
	"relnet/internal/jobs"
	"relnet/internal/llm"
	"relnet/internal/observability"
	"relnet/internal/repository"
	"relnet/internal/service"
)

// app reune las dependencias cableadas del worker.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	pool      *pgxpool.Pool
	redis     *redis.Client
	collector *observability.Collector
	queue     *jobs.Queue

	metrics  *service.MetricsService
	insights *service.InsightService
	matcher  *service.MatchingService
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	redisClient := db.NewRedis(ctx, cfg, logger)

	collector := observability.NewCollector("relnet")

	personRepo := repository.NewPgPersonRepository(pool)
	edgeRepo := repository.NewPgEdgeRepository(pool)
	encounterRepo := repository.NewPgEncounterRepository(pool)
	claimRepo := repository.NewPgClaimRepository(pool)
	goalRepo := repository.NewPgGoalRepository(pool)
	metricRepo := repository.NewPgMetricRepository(pool)
	insightRepo := repository.NewPgInsightRepository(pool)
	suggestionRepo := repository.NewPgSuggestionRepository(pool)

	embedder := newEmbedder(cfg, logger, redisClient, repository.NewPgEmbeddingRepository(pool), collector)

	a := &app{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		collector: collector,
		queue:     jobs.NewQueue(redisClient, cfg.JobsQueue),
		metrics: service.NewMetricsService(
			personRepo, edgeRepo, encounterRepo, metricRepo, suggestionRepo,
			graph.BetweennessOptions{Workers: cfg.GraphWorkers, SampleSize: cfg.BetweennessSampleSize},
			logger,
		),
		insights: service.NewInsightService(
			personRepo, metricRepo, goalRepo, claimRepo, insightRepo,
			insight.NewGenerator(), collector, logger,
		),
		matcher: service.NewMatchingService(
			goalRepo, personRepo, edgeRepo, encounterRepo, claimRepo, suggestionRepo,
			embedder, collector,
			service.MatchOptions{
				MinScore:        cfg.MatchMinScore,
				MaxSuggestions:  cfg.MatchMaxSuggestions,
				Workers:         cfg.GraphWorkers,
				SemanticTimeout: cfg.SemanticTimeout,
			},
			logger,
		),
	}
	return a, nil
}

// newEmbedder arma la cadena proceso -> Redis -> Postgres -> proveedor
// protegido. Sin clave devuelve nil y la similitud semantica queda neutra.
func newEmbedder(cfg *config.Config, logger *zap.Logger, redisClient *redis.Client, pgTier llm.CacheTier, collector *observability.Collector) llm.Embedder {
	if !cfg.EmbeddingsEnabled() {
		logger.Warn("embedding provider not configured, semantic similarity stays neutral")
		return nil
	}

	provider := llm.NewOpenAIEmbedder(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, cfg.EmbeddingDimensions)

	var shared llm.DistributedLimiter
	if cfg.EmbeddingRPS > 0 {
		shared = llm.NewRedisLimiter(redisClient, time.Minute, int(math.Ceil(cfg.EmbeddingRPS*60)))
	}
	guarded := llm.NewGuardedEmbedder(
		provider,
		llm.NewLocalLimiter(cfg.EmbeddingRPS, cfg.EmbeddingBurst),
		shared,
		llm.DefaultBreakerConfig(),
		logger,
		collector.SetBreakerState,
	)

	return llm.NewCachedEmbedder(
		guarded,
		provider.Model(),
		logger,
		collector.CacheLookup,
		llm.NewMemoryCache(cfg.EmbeddingCacheTTL),
		llm.NewRedisCache(redisClient, cfg.EmbeddingCacheTTL),
		pgTier,
	)
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	a.pool.Close()
}
