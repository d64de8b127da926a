package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"relnet/internal/domain"
	"relnet/internal/graph"
	"relnet/internal/repository"
)

var ErrMetricsServiceNotConfigured = errors.New("metrics service not configured")

// RecomputeResult resume un recalculo para logs y CLI.
type RecomputeResult struct {
	People       int
	Edges        int
	SkippedEdges int
	Communities  int
	Metrics      int
}

// MetricsService recalcula y reemplaza las metricas de grafo de un workspace.
type MetricsService struct {
	people      repository.PersonRepository
	edges       repository.EdgeRepository
	encounters  repository.EncounterRepository
	metrics     repository.MetricRepository
	suggestions repository.SuggestionRepository
	opts        graph.BetweennessOptions
	logger      *zap.Logger
	now         func() time.Time
}

func NewMetricsService(
	people repository.PersonRepository,
	edges repository.EdgeRepository,
	encounters repository.EncounterRepository,
	metrics repository.MetricRepository,
	suggestions repository.SuggestionRepository,
	opts graph.BetweennessOptions,
	logger *zap.Logger,
) *MetricsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsService{
		people:      people,
		edges:       edges,
		encounters:  encounters,
		metrics:     metrics,
		suggestions: suggestions,
		opts:        opts,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Recompute carga la foto del workspace, calcula todo en memoria y reemplaza
// las metricas en una sola transaccion. Cualquier error deja intacto el
// snapshot anterior.
func (s *MetricsService) Recompute(ctx context.Context, workspaceID string) (RecomputeResult, error) {
	var res RecomputeResult
	if s == nil || s.people == nil || s.edges == nil || s.encounters == nil || s.metrics == nil {
		return res, ErrMetricsServiceNotConfigured
	}
	workspaceID = strings.TrimSpace(workspaceID)
	if workspaceID == "" {
		return res, domain.ErrEmptyWorkspace
	}

	people, err := s.people.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return res, fmt.Errorf("load people: %w", err)
	}
	edges, err := s.edges.ListByWorkspace(ctx, workspaceID)
	if err != nil {
		return res, fmt.Errorf("load edges: %w", err)
	}
	ids := make([]string, 0, len(people))
	for _, p := range people {
		ids = append(ids, p.ID)
	}
	last, err := s.encounters.LastEncounters(ctx, workspaceID, ids)
	if err != nil {
		return res, fmt.Errorf("load last encounters: %w", err)
	}

	now := s.now()
	snap, err := graph.Compute(ctx, graph.Input{
		PersonIDs:     ids,
		Edges:         edges,
		LastEncounter: last,
		Now:           now,
		Betweenness:   s.opts,
	})
	if err != nil {
		return res, fmt.Errorf("compute graph metrics: %w", err)
	}
	rows, err := snap.Metrics(workspaceID, now)
	if err != nil {
		return res, err
	}

	if s.suggestions != nil {
		conns, err := s.suggestions.ListGoalConnections(ctx, workspaceID)
		if err != nil {
			return res, fmt.Errorf("load goal connections: %w", err)
		}
		extra, err := goalConnectionMetrics(workspaceID, conns, snap.Graph, now)
		if err != nil {
			return res, err
		}
		rows = append(rows, extra...)
	}

	if err := s.metrics.ReplaceForWorkspace(ctx, workspaceID, rows); err != nil {
		return res, fmt.Errorf("replace metrics: %w", err)
	}

	res = RecomputeResult{
		People:       len(people),
		Edges:        len(edges),
		SkippedEdges: snap.Graph.Skipped(),
		Communities:  len(snap.Communities),
		Metrics:      len(rows),
	}
	s.logger.Info("graph metrics recomputed",
		zap.String("workspace_id", workspaceID),
		zap.Int("people", res.People),
		zap.Int("edges", res.Edges),
		zap.Int("skipped_edges", res.SkippedEdges),
		zap.Int("communities", res.Communities),
		zap.Int("metrics", res.Metrics),
	)
	return res, nil
}

// goalConnectionMetrics deja constancia de que persona ya participa en
// sugerencias de cada meta. Se ignoran personas fuera del workspace.
func goalConnectionMetrics(workspaceID string, conns []domain.GoalConnection, g *graph.Graph, at time.Time) ([]domain.GraphMetric, error) {
	out := make([]domain.GraphMetric, 0, len(conns))
	for _, c := range conns {
		if _, ok := g.Index(c.PersonID); !ok || c.Suggestions <= 0 {
			continue
		}
		raw, err := json.Marshal(domain.GoalConnectionValue{GoalID: c.GoalID, Suggestions: c.Suggestions})
		if err != nil {
			return nil, fmt.Errorf("marshal goal connection for %s: %w", c.PersonID, err)
		}
		out = append(out, domain.GraphMetric{
			WorkspaceID:  workspaceID,
			PersonID:     c.PersonID,
			Metric:       domain.MetricGoalConnection,
			Value:        raw,
			CalculatedAt: at,
		})
	}
	return out, nil
}
