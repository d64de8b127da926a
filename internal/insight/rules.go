package insight

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/elliotchance/pie/v2"

	"relnet/internal/domain"
)

const (
	opportunityDegreeMin  = 0.7
	opportunityStaleDays  = 60
	opportunityScoreCap   = 90
	bridgeBetweennessMin  = 0.5
	bridgeScoreCap        = 85
	clusterMinSize        = 5
	clusterScoreCap       = 75
	goalAlignmentGapScore = 70
)

// goalClaimKeys son las claves de claim que pueden revelar afinidad con una meta.
var goalClaimKeys = []string{"expertise", "company", "title", "industry"}

// decodeMetric indexa por persona los valores de una metrica. Devuelve los
// ids ordenados para que la salida sea estable.
func decodeMetric[T any](metrics []domain.GraphMetric, name string) (map[string]T, []string, error) {
	values := make(map[string]T)
	for _, m := range metrics {
		if m.Metric != name {
			continue
		}
		var v T
		if err := json.Unmarshal(m.Value, &v); err != nil {
			return nil, nil, fmt.Errorf("decode %s for %s: %w", name, m.PersonID, err)
		}
		values[m.PersonID] = v
	}
	ids := make([]string, 0, len(values))
	for id := range values {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return values, ids, nil
}

func displayName(in *Input, personID string) string {
	for _, p := range in.People {
		if p.ID == personID && strings.TrimSpace(p.FullName) != "" {
			return p.FullName
		}
	}
	return personID
}

func ptr(s string) *string { return &s }

// opportunityGap: contactos muy conectados con los que no hay encuentros
// hace mas de 60 dias.
func opportunityGap(in *Input) ([]domain.Insight, error) {
	degree, ids, err := decodeMetric[domain.CentralityValue](in.Metrics, domain.MetricDegreeCentrality)
	if err != nil {
		return nil, err
	}
	freshness, _, err := decodeMetric[domain.FreshnessValue](in.Metrics, domain.MetricFreshness)
	if err != nil {
		return nil, err
	}

	var out []domain.Insight
	for _, id := range ids {
		c := degree[id].Value
		f, ok := freshness[id]
		if !ok || c <= opportunityDegreeMin || f.DaysSince <= opportunityStaleDays {
			continue
		}
		score := math.Min(opportunityScoreCap, 50+c*40+float64(f.DaysSince)/10)
		name := displayName(in, id)
		out = append(out, domain.Insight{
			Type:     domain.InsightOpportunityGap,
			Title:    fmt.Sprintf("Reconnect with %s", name),
			Detail:   fmt.Sprintf("%s is one of the most connected people in your network, but you have not met in %d days.", name, f.DaysSince),
			PersonID: ptr(id),
			Score:    roundScore(score),
			Provenance: domain.Provenance{
				Metric: domain.MetricDegreeCentrality,
				Value:  c,
				Reason: fmt.Sprintf("degree centrality %.2f with %d days since last encounter", c, f.DaysSince),
			},
		})
	}
	return out, nil
}

// bridgeBuilder: personas que conectan partes de la red.
func bridgeBuilder(in *Input) ([]domain.Insight, error) {
	between, ids, err := decodeMetric[domain.CentralityValue](in.Metrics, domain.MetricBetweennessCentrality)
	if err != nil {
		return nil, err
	}

	var out []domain.Insight
	for _, id := range ids {
		b := between[id].Value
		if b <= bridgeBetweennessMin {
			continue
		}
		name := displayName(in, id)
		out = append(out, domain.Insight{
			Type:     domain.InsightBridgeBuilder,
			Title:    fmt.Sprintf("%s bridges groups in your network", name),
			Detail:   fmt.Sprintf("%s sits on many of the shortest paths between your contacts and is well placed to make introductions.", name),
			PersonID: ptr(id),
			Score:    roundScore(math.Min(bridgeScoreCap, 60+b*25)),
			Provenance: domain.Provenance{
				Metric: domain.MetricBetweennessCentrality,
				Value:  b,
				Reason: fmt.Sprintf("betweenness centrality %.2f above %.2f", b, bridgeBetweennessMin),
			},
		})
	}
	return out, nil
}

// clusterInsight: un insight por comunidad de al menos 5 miembros.
func clusterInsight(in *Input) ([]domain.Insight, error) {
	membership, ids, err := decodeMetric[domain.CommunityValue](in.Metrics, domain.MetricCommunity)
	if err != nil {
		return nil, err
	}

	type cluster struct {
		id      string
		members []string
	}
	var clusters []*cluster
	byID := make(map[string]*cluster)
	for _, pid := range ids {
		cid := membership[pid].CommunityID
		c, ok := byID[cid]
		if !ok {
			c = &cluster{id: cid}
			byID[cid] = c
			clusters = append(clusters, c)
		}
		c.members = append(c.members, pid)
	}

	var out []domain.Insight
	for _, c := range clusters {
		size := len(c.members)
		if size < clusterMinSize {
			continue
		}
		out = append(out, domain.Insight{
			Type:   domain.InsightCluster,
			Title:  fmt.Sprintf("A group of %d closely connected people", size),
			Detail: fmt.Sprintf("Community %s groups %d people who mostly know each other, including %s.", c.id, size, displayName(in, c.members[0])),
			Score:  roundScore(math.Min(clusterScoreCap, 40+float64(size)*5)),
			Provenance: domain.Provenance{
				Metric: domain.MetricCommunity,
				Value:  float64(size),
				Reason: fmt.Sprintf("community %s has %d members", c.id, size),
			},
		})
	}
	return out, nil
}

// goalAlignmentGap: personas cuyos claims encajan con una meta activa y que
// todavia no forman parte de ninguna sugerencia para esa meta. Una meta sin
// palabras clave se salta con error sin cortar las demas.
func goalAlignmentGap(in *Input) ([]domain.Insight, error) {
	connected := make(map[[2]string]struct{})
	for _, m := range in.Metrics {
		if m.Metric != domain.MetricGoalConnection {
			continue
		}
		var v domain.GoalConnectionValue
		if err := json.Unmarshal(m.Value, &v); err != nil {
			return nil, fmt.Errorf("decode %s for %s: %w", m.Metric, m.PersonID, err)
		}
		connected[[2]string{m.PersonID, v.GoalID}] = struct{}{}
	}

	var (
		out  []domain.Insight
		errs []error
	)
	for _, goal := range in.Goals {
		if !goal.IsActive() {
			continue
		}
		keywords := goal.Keywords()
		if len(keywords) == 0 {
			errs = append(errs, fmt.Errorf("%w: goal %s has no keywords", domain.ErrMalformedGoal, goal.ID))
			continue
		}

		emitted := make(map[string]struct{})
		for _, c := range in.Claims {
			if c.SubjectType != domain.SubjectTypePerson || !pie.Contains(goalClaimKeys, strings.ToLower(c.Key)) {
				continue
			}
			if _, done := emitted[c.SubjectID]; done {
				continue
			}
			if _, ok := connected[[2]string{c.SubjectID, goal.ID}]; ok {
				continue
			}
			value := strings.ToLower(c.Value)
			kw, ok := firstMatch(value, keywords)
			if !ok {
				continue
			}
			emitted[c.SubjectID] = struct{}{}
			name := displayName(in, c.SubjectID)
			out = append(out, domain.Insight{
				Type:     domain.InsightGoalAlignmentGap,
				Title:    fmt.Sprintf("%s could help with \"%s\"", name, goal.Title),
				Detail:   fmt.Sprintf("%s has %s \"%s\", which matches this goal, but is not part of any introduction for it yet.", name, c.Key, c.Value),
				PersonID: ptr(c.SubjectID),
				GoalID:   ptr(goal.ID),
				Score:    goalAlignmentGapScore,
				Provenance: domain.Provenance{
					Metric: domain.MetricGoalConnection,
					Value:  0,
					Reason: fmt.Sprintf("claim %s matches goal keyword %q", c.Key, kw),
				},
			})
		}
	}
	return out, errors.Join(errs...)
}

func firstMatch(value string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(value, kw) {
			return kw, true
		}
	}
	return "", false
}
