package service

import (
	"context"
	"time"

	"relnet/internal/domain"
)

type mockPersonRepo struct {
	people []domain.Person
	err    error
}

func (m *mockPersonRepo) ListByWorkspace(_ context.Context, _ string) ([]domain.Person, error) {
	return m.people, m.err
}

type mockEdgeRepo struct {
	edges []domain.Edge
	err   error
}

func (m *mockEdgeRepo) ListByWorkspace(_ context.Context, _ string) ([]domain.Edge, error) {
	return m.edges, m.err
}

type mockEncounterRepo struct {
	encounters []domain.Encounter
	last       map[string]time.Time
	lastIDs    []string
}

func (m *mockEncounterRepo) ListByWorkspace(_ context.Context, _ string) ([]domain.Encounter, error) {
	return m.encounters, nil
}

func (m *mockEncounterRepo) LastEncounters(_ context.Context, _ string, personIDs []string) (map[string]time.Time, error) {
	m.lastIDs = personIDs
	return m.last, nil
}

type mockClaimRepo struct {
	claims []domain.Claim
}

func (m *mockClaimRepo) ListPersonClaims(_ context.Context, _ string) ([]domain.Claim, error) {
	return m.claims, nil
}

type mockGoalRepo struct {
	goals []domain.Goal
}

func (m *mockGoalRepo) GetByID(_ context.Context, _ string, goalID string) (*domain.Goal, error) {
	for _, g := range m.goals {
		if g.ID == goalID {
			g := g
			return &g, nil
		}
	}
	return nil, domain.ErrGoalNotFound
}

func (m *mockGoalRepo) ListActive(_ context.Context, _ string) ([]domain.Goal, error) {
	var out []domain.Goal
	for _, g := range m.goals {
		if g.IsActive() {
			out = append(out, g)
		}
	}
	return out, nil
}

type mockMetricRepo struct {
	stored       []domain.GraphMetric
	replaced     []domain.GraphMetric
	replaceCalls int
	replaceErr   error
}

func (m *mockMetricRepo) ReplaceForWorkspace(_ context.Context, _ string, metrics []domain.GraphMetric) error {
	m.replaceCalls++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	m.replaced = metrics
	return nil
}

func (m *mockMetricRepo) ListByWorkspace(_ context.Context, _ string) ([]domain.GraphMetric, error) {
	return m.stored, nil
}

type mockInsightRepo struct {
	replaced     []domain.Insight
	replaceCalls int
}

func (m *mockInsightRepo) ReplaceForWorkspace(_ context.Context, _ string, insights []domain.Insight) error {
	m.replaceCalls++
	m.replaced = insights
	return nil
}

type mockSuggestionRepo struct {
	created []domain.SuggestionCandidate
	conns   []domain.GoalConnection
}

func (m *mockSuggestionRepo) CreateBatch(_ context.Context, suggestions []domain.SuggestionCandidate) error {
	m.created = append(m.created, suggestions...)
	return nil
}

func (m *mockSuggestionRepo) ListGoalConnections(_ context.Context, _ string) ([]domain.GoalConnection, error) {
	return m.conns, nil
}

var fixedNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
