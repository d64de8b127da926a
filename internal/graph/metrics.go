package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"relnet/internal/domain"
)

// Input es la foto de un workspace necesaria para recalcular metricas.
type Input struct {
	PersonIDs     []string
	Edges         []domain.Edge
	LastEncounter map[string]time.Time
	Now           time.Time
	Betweenness   BetweennessOptions
}

// Snapshot es el resultado puro del recalculo, antes de persistirlo.
type Snapshot struct {
	Graph       *Graph
	Degree      []float64
	Betweenness []float64
	Communities []Community
	Freshness   map[string]Freshness
}

// Compute valida las aristas y calcula todas las metricas estructurales.
// Cualquier error aborta el recalculo completo.
func Compute(ctx context.Context, in Input) (*Snapshot, error) {
	if err := domain.ValidateEdges(in.Edges); err != nil {
		return nil, err
	}

	g := Build(in.PersonIDs, in.Edges)
	between, err := Betweenness(ctx, g, in.Betweenness)
	if err != nil {
		return nil, fmt.Errorf("betweenness: %w", err)
	}

	return &Snapshot{
		Graph:       g,
		Degree:      DegreeCentrality(g),
		Betweenness: between,
		Communities: DetectCommunities(g),
		Freshness:   ComputeFreshness(g.LinkedIDs(), in.LastEncounter, in.Now),
	}, nil
}

// Metrics traduce el snapshot a filas de graph_metrics. El orden es estable:
// por persona en orden de indice, luego por metrica.
func (s *Snapshot) Metrics(workspaceID string, calculatedAt time.Time) ([]domain.GraphMetric, error) {
	g := s.Graph
	adj := g.Adjacency()

	communityOf := make(map[string]Community, g.Len())
	for _, c := range s.Communities {
		for _, m := range c.Members {
			communityOf[m] = c
		}
	}

	metrics := make([]domain.GraphMetric, 0, g.Len()*4)
	add := func(personID, name string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s for %s: %w", name, personID, err)
		}
		metrics = append(metrics, domain.GraphMetric{
			WorkspaceID:  workspaceID,
			PersonID:     personID,
			Metric:       name,
			Value:        raw,
			CalculatedAt: calculatedAt,
		})
		return nil
	}

	for i := 0; i < g.Len(); i++ {
		id := g.ID(i)
		node := adj[id]
		if err := add(id, domain.MetricDegreeCentrality, domain.CentralityValue{
			Value:       s.Degree[i],
			Connections: len(node.Connections),
			InDegree:    node.InDegree,
			OutDegree:   node.OutDegree,
		}); err != nil {
			return nil, err
		}
		if err := add(id, domain.MetricBetweennessCentrality, domain.CentralityValue{Value: s.Betweenness[i]}); err != nil {
			return nil, err
		}
		if c, ok := communityOf[id]; ok {
			if err := add(id, domain.MetricCommunity, domain.CommunityValue{CommunityID: c.ID, Size: c.Size}); err != nil {
				return nil, err
			}
		}
		if f, ok := s.Freshness[id]; ok {
			if err := add(id, domain.MetricFreshness, domain.FreshnessValue{
				DaysSince:       f.DaysSince,
				LastEncounterAt: f.LastEncounterAt,
			}); err != nil {
				return nil, err
			}
		}
	}
	return metrics, nil
}
