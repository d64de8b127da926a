package repository

import (
	"database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"relnet/internal/domain"
)

type fakeRows struct {
	data   [][]interface{}
	pos    int
	err    error
	closed bool
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.data) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...interface{}) error {
	row := f.data[f.pos-1]
	if len(dest) != len(row) {
		return errors.New("column count mismatch")
	}
	for i, d := range dest {
		if row[i] == nil {
			continue
		}
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

func (f *fakeRows) Err() error { return f.err }
func (f *fakeRows) Close()     { f.closed = true }

func TestScanEncounters(t *testing.T) {
	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rows := &fakeRows{data: [][]interface{}{
		{"e1", "ws", at, "meeting", []string{"a", "b"}},
		{"e2", "ws", at.Add(time.Hour), "call", []string{}},
	}}

	got, err := scanAll(rows, scanEncounter)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || !got[0].HasParticipant("b") || got[1].Kind != "call" {
		t.Fatalf("unexpected encounters %+v", got)
	}
	if !rows.closed {
		t.Fatalf("expected rows to be closed")
	}
}

func TestScanAllPropagatesRowsError(t *testing.T) {
	boom := errors.New("conn reset")
	rows := &fakeRows{err: boom}
	if _, err := scanAll(rows, scanEdge); !errors.Is(err, boom) {
		t.Fatalf("expected rows error, got %v", err)
	}
}

func TestScanLastEncounters(t *testing.T) {
	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rows := &fakeRows{data: [][]interface{}{
		{"a", at},
		{"b", at.Add(-48 * time.Hour)},
	}}
	out := map[string]time.Time{}
	if err := scanLastEncounters(rows, out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || !out["b"].Equal(at.Add(-48*time.Hour)) {
		t.Fatalf("unexpected map %v", out)
	}
}

func TestScanClaimNullSource(t *testing.T) {
	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	rows := &fakeRows{data: [][]interface{}{
		{"p1", "person", "expertise", "go", 90, sql.NullString{}, at},
		{"p1", "person", "title", "CTO", 70, sql.NullString{String: "linkedin", Valid: true}, at},
	}}
	got, err := scanAll(rows, scanClaim)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Source != "" || got[1].Source != "linkedin" || got[1].Confidence != 70 {
		t.Fatalf("unexpected claims %+v", got)
	}

	grouped := GroupBySubject(got)
	if len(grouped["p1"]) != 2 || grouped["p1"][0].Key != "expertise" {
		t.Fatalf("unexpected grouping %+v", grouped)
	}
}

func TestScanGoalConnection(t *testing.T) {
	rows := &fakeRows{data: [][]interface{}{{"p1", "g1", int64(3)}}}
	got, err := scanAll(rows, scanGoalConnection)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Suggestions != 3 {
		t.Fatalf("unexpected connections %+v", got)
	}
}

func TestMetricBatch(t *testing.T) {
	metrics := []domain.GraphMetric{
		{WorkspaceID: "ws", PersonID: "a", Metric: domain.MetricDegreeCentrality, Value: []byte(`{"value":1}`)},
		{WorkspaceID: "ws", PersonID: "a", Metric: domain.MetricFreshness, Value: []byte(`{"days_since":3}`)},
	}
	if n := metricBatch(metrics).Len(); n != 2 {
		t.Fatalf("expected 2 queued statements, got %d", n)
	}
	if n := metricBatch(nil).Len(); n != 0 {
		t.Fatalf("expected empty batch, got %d", n)
	}
}

func TestInsightBatch(t *testing.T) {
	pid := "p1"
	batch, err := insightBatch([]domain.Insight{
		{ID: "i1", WorkspaceID: "ws", Type: domain.InsightBridgeBuilder, PersonID: &pid, Score: 80},
		{ID: "i2", WorkspaceID: "ws", Type: domain.InsightCluster, Score: 70},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if batch.Len() != 2 {
		t.Fatalf("expected 2 queued statements, got %d", batch.Len())
	}
}
