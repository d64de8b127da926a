package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"relnet/internal/domain"
	"relnet/internal/insight"
	"relnet/internal/observability"
	"relnet/internal/repository"
)

var ErrInsightServiceNotConfigured = errors.New("insight service not configured")

// InsightService regenera los insights de un workspace a partir de las
// metricas ya persistidas.
type InsightService struct {
	people    repository.PersonRepository
	metrics   repository.MetricRepository
	goals     repository.GoalRepository
	claims    repository.ClaimRepository
	insights  repository.InsightRepository
	generator *insight.Generator
	collector *observability.Collector
	logger    *zap.Logger
	now       func() time.Time
}

func NewInsightService(
	people repository.PersonRepository,
	metrics repository.MetricRepository,
	goals repository.GoalRepository,
	claims repository.ClaimRepository,
	insights repository.InsightRepository,
	generator *insight.Generator,
	collector *observability.Collector,
	logger *zap.Logger,
) *InsightService {
	if generator == nil {
		generator = insight.NewGenerator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightService{
		people:    people,
		metrics:   metrics,
		goals:     goals,
		claims:    claims,
		insights:  insights,
		generator: generator,
		collector: collector,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Regenerate corre todas las reglas y reemplaza los insights del workspace.
// Una regla que falla se registra y se cuenta; las demas siguen.
func (s *InsightService) Regenerate(ctx context.Context, workspaceID string) ([]domain.Insight, error) {
	if s == nil || s.people == nil || s.metrics == nil || s.goals == nil || s.claims == nil || s.insights == nil {
		return nil, ErrInsightServiceNotConfigured
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return nil, domain.ErrEmptyWorkspace
	}

	people, err := s.people.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load people: %w", err)
	}
	metrics, err := s.metrics.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load metrics: %w", err)
	}
	goals, err := s.goals.ListActive(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	claims, err := s.claims.ListPersonClaims(ctx, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("load claims: %w", err)
	}

	insights, failures := s.generator.Generate(insight.Input{
		WorkspaceID: workspaceID,
		People:      people,
		Metrics:     metrics,
		Goals:       goals,
		Claims:      claims,
		Now:         s.now(),
	})
	for _, f := range failures {
		s.logger.Warn("insight rule failed",
			zap.String("workspace_id", workspaceID),
			zap.String("rule", f.Rule),
			zap.Error(f.Err),
		)
		s.collector.RuleFailed(f.Rule)
	}

	if err := s.insights.ReplaceForWorkspace(ctx, workspaceID, insights); err != nil {
		return nil, fmt.Errorf("replace insights: %w", err)
	}
	s.logger.Info("insights regenerated",
		zap.String("workspace_id", workspaceID),
		zap.Int("insights", len(insights)),
		zap.Int("failed_rules", len(failures)),
	)
	return insights, nil
}
