package llm

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrRateLimited indica que el cupo distribuido se agoto.
var ErrRateLimited = errors.New("embedding rate limit exceeded")

// BreakerConfig configura el circuit breaker del proveedor.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig corta tras un 60% de fallas con al menos 5 llamadas.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:             "embeddings",
		MaxRequests:      1,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      5,
	}
}

// StateObserver recibe los cambios de estado del breaker (0 cerrado,
// 1 semiabierto, 2 abierto).
type StateObserver func(name string, state float64)

// GuardedEmbedder protege al proveedor con limite local, cupo distribuido y
// circuit breaker.
type GuardedEmbedder struct {
	next    Embedder
	local   *rate.Limiter
	shared  DistributedLimiter
	breaker *gobreaker.CircuitBreaker
}

// NewGuardedEmbedder envuelve next. local y shared pueden ser nil.
func NewGuardedEmbedder(next Embedder, local *rate.Limiter, shared DistributedLimiter, cfg BreakerConfig, logger *zap.Logger, observe StateObserver) *GuardedEmbedder {
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			if observe != nil {
				observe(name, breakerStateValue(to))
			}
		},
		IsSuccessful: func(err error) bool {
			// Un contexto cancelado por el llamador no es culpa del proveedor.
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return &GuardedEmbedder{
		next:    next,
		local:   local,
		shared:  shared,
		breaker: breaker,
	}
}

func breakerStateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func (g *GuardedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if g.local != nil {
		if err := g.local.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if g.shared != nil && !g.shared.Allow(ctx) {
		return nil, ErrRateLimited
	}

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return g.next.Embed(ctx, text)
	})
	if err != nil {
		return nil, err
	}
	return out.([]float32), nil
}

// State devuelve el estado actual del breaker.
func (g *GuardedEmbedder) State() gobreaker.State {
	return g.breaker.State()
}
