package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"relnet/internal/domain"
	"relnet/internal/observability"
	"relnet/internal/service"
)

type MetricsRecomputer interface {
	Recompute(ctx context.Context, workspaceID string) (service.RecomputeResult, error)
}

type InsightRegenerator interface {
	Regenerate(ctx context.Context, workspaceID string) ([]domain.Insight, error)
}

type GoalMatcher interface {
	Match(ctx context.Context, workspaceID, goalID string) ([]service.MatchResult, error)
}

// Consumer procesa trabajos de a uno. No hay reintentos: un trabajo fallido
// se registra y se cuenta.
type Consumer struct {
	queue     *Queue
	metrics   MetricsRecomputer
	insights  InsightRegenerator
	matcher   GoalMatcher
	collector *observability.Collector
	logger    *zap.Logger
	backoff   time.Duration
}

func NewConsumer(queue *Queue, metrics MetricsRecomputer, insights InsightRegenerator, matcher GoalMatcher, collector *observability.Collector, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		queue:     queue,
		metrics:   metrics,
		insights:  insights,
		matcher:   matcher,
		collector: collector,
		logger:    logger,
		backoff:   time.Second,
	}
}

// Run consume hasta que se cancele ctx.
func (c *Consumer) Run(ctx context.Context) error {
	if c.queue == nil {
		return errors.New("job queue not configured")
	}
	c.logger.Info("job consumer started", zap.String("queue", c.queue.key))
	for {
		if ctx.Err() != nil {
			c.logger.Info("job consumer stopped")
			return nil
		}
		payload, err := c.queue.Pop(ctx)
		switch {
		case errors.Is(err, ErrQueueEmpty):
			continue
		case err != nil:
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("job queue read failed", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(c.backoff):
			}
			continue
		}
		_ = c.Handle(ctx, payload)
	}
}

// Handle decodifica y ejecuta un payload. Devuelve el error para tests y
// para el comando de CLI; Run lo descarta despues de registrarlo.
func (c *Consumer) Handle(ctx context.Context, payload string) error {
	job, err := ParseJob(payload)
	if err != nil {
		c.logger.Warn("discarding invalid job", zap.String("payload", payload), zap.Error(err))
		c.collector.ObserveJob("invalid", "rejected", 0)
		return err
	}

	start := time.Now()
	err = c.Dispatch(ctx, job)
	status := "ok"
	if err != nil {
		status = "error"
		c.logger.Error("job failed",
			zap.String("type", job.Type),
			zap.String("workspace_id", job.WorkspaceID),
			zap.String("goal_id", job.GoalID),
			zap.Error(err),
		)
	}
	c.collector.ObserveJob(job.Type, status, time.Since(start))
	return err
}

// Dispatch ejecuta un trabajo ya validado.
func (c *Consumer) Dispatch(ctx context.Context, job Job) error {
	switch job.Type {
	case TypeMetrics:
		if c.metrics == nil {
			return fmt.Errorf("%w: no metrics handler", ErrInvalidJob)
		}
		_, err := c.metrics.Recompute(ctx, job.WorkspaceID)
		return err
	case TypeInsights:
		if c.insights == nil {
			return fmt.Errorf("%w: no insights handler", ErrInvalidJob)
		}
		_, err := c.insights.Regenerate(ctx, job.WorkspaceID)
		return err
	case TypeMatch:
		if c.matcher == nil {
			return fmt.Errorf("%w: no match handler", ErrInvalidJob)
		}
		_, err := c.matcher.Match(ctx, job.WorkspaceID, job.GoalID)
		return err
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidJob, job.Type)
	}
}
