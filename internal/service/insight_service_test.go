package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"relnet/internal/domain"
	"relnet/internal/insight"
	"relnet/internal/observability"
)

func TestInsightServiceIsolatesFailingRules(t *testing.T) {
	rules := []insight.Rule{
		{Name: "ok", Eval: func(in *insight.Input) ([]domain.Insight, error) {
			return []domain.Insight{{Type: domain.InsightCluster, Title: "cluster", Score: 150}}, nil
		}},
		{Name: "broken", Eval: func(in *insight.Input) ([]domain.Insight, error) {
			return nil, errors.New("bad metric payload")
		}},
		{Name: "panics", Eval: func(in *insight.Input) ([]domain.Insight, error) {
			panic("nil map")
		}},
	}
	ids := 0
	gen := insight.NewGeneratorWithRules(rules, func() string {
		ids++
		return "ins-" + string(rune('0'+ids))
	})
	collector := observability.NewCollector("relnet_test")
	repo := &mockInsightRepo{}

	svc := NewInsightService(&mockPersonRepo{}, &mockMetricRepo{}, &mockGoalRepo{}, &mockClaimRepo{}, repo, gen, collector, nil)
	svc.now = func() time.Time { return fixedNow }

	out, err := svc.Regenerate(context.Background(), "ws")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || repo.replaceCalls != 1 || len(repo.replaced) != 1 {
		t.Fatalf("expected the surviving insight to be stored, got out=%d calls=%d", len(out), repo.replaceCalls)
	}
	got := repo.replaced[0]
	if got.ID != "ins-1" || got.WorkspaceID != "ws" || got.Score != 100 || got.State != domain.InsightStateActive {
		t.Fatalf("unexpected insight %+v", got)
	}
	if !got.ExpiresAt.Equal(fixedNow.Add(domain.InsightTTL)) {
		t.Fatalf("unexpected expiry %v", got.ExpiresAt)
	}
	if v := testutil.ToFloat64(collector.RuleFailures.WithLabelValues("broken")); v != 1 {
		t.Fatalf("expected broken rule counted once, got %v", v)
	}
	if v := testutil.ToFloat64(collector.RuleFailures.WithLabelValues("panics")); v != 1 {
		t.Fatalf("expected panicking rule counted once, got %v", v)
	}
}

func TestInsightServiceDefaultRules(t *testing.T) {
	metrics := []domain.GraphMetric{
		{PersonID: "a", Metric: domain.MetricBetweennessCentrality, Value: []byte(`{"value":0.8}`)},
		{PersonID: "a", Metric: domain.MetricDegreeCentrality, Value: []byte(`{"value":0.2}`)},
	}
	repo := &mockInsightRepo{}
	svc := NewInsightService(
		&mockPersonRepo{people: []domain.Person{{ID: "a", FullName: "Ada"}}},
		&mockMetricRepo{stored: metrics},
		&mockGoalRepo{},
		&mockClaimRepo{},
		repo,
		nil,
		nil,
		nil,
	)
	svc.now = func() time.Time { return fixedNow }

	out, err := svc.Regenerate(context.Background(), "ws")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	found := false
	for _, ins := range out {
		if ins.Type == domain.InsightBridgeBuilder && ins.PersonID != nil && *ins.PersonID == "a" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected bridge builder insight for a, got %+v", out)
	}
}

func TestInsightServiceRequiresWorkspace(t *testing.T) {
	svc := NewInsightService(&mockPersonRepo{}, &mockMetricRepo{}, &mockGoalRepo{}, &mockClaimRepo{}, &mockInsightRepo{}, nil, nil, nil)
	if _, err := svc.Regenerate(context.Background(), ""); !errors.Is(err, domain.ErrEmptyWorkspace) {
		t.Fatalf("expected empty workspace error, got %v", err)
	}
}
