package matching

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relnet/internal/domain"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func claim(subject, key, value string) domain.Claim {
	return domain.Claim{SubjectID: subject, SubjectType: domain.SubjectTypePerson, Key: key, Value: value, Confidence: 80}
}

func encounter(id, kind string, daysAgo int, participants ...string) domain.Encounter {
	return domain.Encounter{ID: id, Kind: kind, OccurredAt: testNow.AddDate(0, 0, -daysAgo), ParticipantIDs: participants}
}

func strongPair() PairInput {
	goal := &domain.Goal{ID: "g1", Kind: domain.GoalKindHireEngineer, Title: "Hire a senior engineer", Status: domain.GoalStatusActive}
	return PairInput{
		A: Profile{PersonID: "a", Claims: []domain.Claim{claim("a", "expertise", "engineer")}, Neighbors: []string{"b"}},
		B: Profile{PersonID: "b", Claims: []domain.Claim{claim("b", "expertise", "engineer")}, Neighbors: []string{"a"}},
		Encounters: []domain.Encounter{
			encounter("e1", "meeting", 9, "a", "b"),
			encounter("e2", "meeting", 5, "a", "b"),
			encounter("e3", "meeting", 1, "a", "b", "z"),
			encounter("e4", "call", 2, "a", "z"),
		},
		Edges: []domain.Edge{{ID: "x", FromID: "a", ToID: "b", Kind: "colleague", Strength: 8}},
		Goal:  goal,
		Now:   testNow,
	}
}

func TestStrongPairScenario(t *testing.T) {
	f, err := Extract(strongPair())
	require.NoError(t, err)

	assert.Equal(t, 3, f.SharedEncounters)
	assert.Equal(t, 8.0, f.Vector.Affiliation)
	assert.Equal(t, 10.0, f.Vector.GoalAlignment)
	assert.Equal(t, 3.0, f.Vector.MutualInterests)
	assert.Equal(t, 7.5, f.Vector.CommunicationPatterns)
	assert.InDelta(t, 10.0, f.Vector.TemporalPatterns, 1e-9)
	assert.Equal(t, 5.0, f.Vector.SemanticSimilarity)
	assert.Equal(t, []string{"engineer"}, f.MutualInterests)

	score := Score(f.Vector)
	assert.Greater(t, score.Score, 70)

	reasons := Explain(f.Vector)
	assert.Contains(t, reasons, "They share a strong direct connection")
	assert.Contains(t, reasons, "Strong alignment with the goal")
}

func TestEmptyPairScenario(t *testing.T) {
	empty, err := Extract(PairInput{
		A:   Profile{PersonID: "a"},
		B:   Profile{PersonID: "b"},
		Now: testNow,
	})
	require.NoError(t, err)

	v := empty.Vector
	for _, x := range []float64{v.Recency, v.Frequency, v.Affiliation, v.MutualInterests, v.NetworkOverlap, v.CommunicationPatterns, v.ExpertiseComplementarity, v.SocialInfluence} {
		assert.Zero(t, x)
	}
	assert.Empty(t, Explain(v))

	strong, err := Extract(strongPair())
	require.NoError(t, err)
	emptyScore := Score(v)
	assert.Less(t, emptyScore.Score, 30)
	assert.Less(t, emptyScore.Score, Score(strong.Vector).Score-40)
	assert.Equal(t, 33, emptyScore.Confidence)
}

func TestExtractRejectsBadPairs(t *testing.T) {
	_, err := Extract(PairInput{A: Profile{PersonID: "a"}, B: Profile{PersonID: "a"}})
	require.ErrorIs(t, err, ErrPairSkipped)

	bad := claim("a", "expertise", "go")
	bad.Confidence = 140
	_, err = Extract(PairInput{A: Profile{PersonID: "a", Claims: []domain.Claim{bad}}, B: Profile{PersonID: "b"}})
	require.ErrorIs(t, err, ErrPairSkipped)
}

func TestAffiliationFallsBackToMutualNeighbors(t *testing.T) {
	f, err := Extract(PairInput{
		A:   Profile{PersonID: "a", Neighbors: []string{"c", "d", "e"}},
		B:   Profile{PersonID: "b", Neighbors: []string{"c", "d"}},
		Now: testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, 4.0, f.Vector.Affiliation)
	assert.Equal(t, 4.0, f.Vector.NetworkOverlap)
	assert.Equal(t, 1.25, f.Vector.SocialInfluence)
}

func TestLocationProximity(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"Berlin, Germany", "berlin, germany", 10},
		{"Berlin", "Berlin, Germany", 8},
		{"Berlin, DE", "Berlin, Germany", 7},
		{"Paris", "Rome", 3},
		{"", "Rome", 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, locationProximity(tc.a, tc.b), "%q vs %q", tc.a, tc.b)
	}
}

func TestExpertiseComplementarity(t *testing.T) {
	a := []domain.Claim{claim("a", "title", "Backend Engineer")}
	b := []domain.Claim{claim("b", "title", "Head of Sales")}
	assert.Equal(t, 2.0, expertiseComplementarity(a, b))

	same := []domain.Claim{claim("b", "expertise", "software development")}
	assert.Zero(t, expertiseComplementarity(a, same))
}

func TestTemporalPatterns(t *testing.T) {
	irregular := []domain.Encounter{
		encounter("e1", "call", 30),
		encounter("e2", "call", 29),
		encounter("e3", "call", 0),
	}
	assert.InDelta(t, 5+5.0/3, temporalPatterns(irregular), 1e-9)
	assert.Equal(t, 5.0, temporalPatterns(irregular[:1]))
}

func TestGoalAlignmentDomainRuleFromText(t *testing.T) {
	goal := &domain.Goal{Kind: domain.GoalKindOther, Title: "Looking for a mentor", Status: domain.GoalStatusActive}
	a := []domain.Claim{claim("a", "title", "Founder")}
	assert.Equal(t, 8.0, goalAlignment(a, nil, goal))
	assert.Equal(t, 5.0, goalAlignment(a, nil, nil))
}

func TestGoalAlignmentDomainBonusOncePerPair(t *testing.T) {
	goal := &domain.Goal{Kind: domain.GoalKindHireEngineer, Title: "Grow the team", Status: domain.GoalStatusActive}
	a := []domain.Claim{claim("a", "role", "Developer")}
	b := []domain.Claim{claim("b", "title", "Engineer")}

	assert.Equal(t, 8.0, goalAlignment(a, b, goal))
	assert.Equal(t, 8.0, goalAlignment(a, nil, goal))
	assert.Equal(t, 8.0, goalAlignment(nil, b, goal))
	assert.Equal(t, 5.0, goalAlignment([]domain.Claim{claim("a", "role", "designer")}, nil, goal))
}

func TestSemanticSimilarity(t *testing.T) {
	assert.InDelta(t, 10.0, semanticSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3}), 1e-9)
	assert.Zero(t, semanticSimilarity([]float32{1, 0}, []float32{0, 1}))
	assert.Zero(t, semanticSimilarity([]float32{1, 0}, []float32{-1, 0}))
	assert.Equal(t, 5.0, semanticSimilarity(nil, []float32{1}))
}

func randomVector(r *rand.Rand) FeatureVector {
	v := func() float64 { return float64(r.Intn(101)) / 10 }
	return FeatureVector{
		Recency: v(), Frequency: v(), Affiliation: v(), MutualInterests: v(),
		GoalAlignment: v(), LocationProximity: v(), NetworkOverlap: v(), CommunicationPatterns: v(),
		ExpertiseComplementarity: v(), SocialInfluence: v(), TemporalPatterns: v(), SemanticSimilarity: v(),
	}
}

func raise(v FeatureVector, r *rand.Rand) FeatureVector {
	bump := func(x float64) float64 { return min(10, x+float64(r.Intn(40))/10) }
	return FeatureVector{
		Recency: bump(v.Recency), Frequency: bump(v.Frequency), Affiliation: bump(v.Affiliation),
		MutualInterests: bump(v.MutualInterests), GoalAlignment: bump(v.GoalAlignment),
		LocationProximity: bump(v.LocationProximity), NetworkOverlap: bump(v.NetworkOverlap),
		CommunicationPatterns: bump(v.CommunicationPatterns), ExpertiseComplementarity: bump(v.ExpertiseComplementarity),
		SocialInfluence: bump(v.SocialInfluence), TemporalPatterns: bump(v.TemporalPatterns),
		SemanticSimilarity: bump(v.SemanticSimilarity),
	}
}

func TestScoreBoundsAndMonotonicity(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	for i := 0; i < 500; i++ {
		low := randomVector(r)
		high := raise(low, r)

		sl, sh := Score(low), Score(high)
		require.GreaterOrEqual(t, sl.Score, 0)
		require.LessOrEqual(t, sh.Score, 100)
		require.GreaterOrEqual(t, sl.Confidence, 0)
		require.LessOrEqual(t, sl.Confidence, 100)
		require.GreaterOrEqual(t, sh.Score, sl.Score, "iteration %d", i)
	}
}

func TestScoreWeightsAreNormalized(t *testing.T) {
	s := Score(FeatureVector{Affiliation: 9, Recency: 8})
	total := 0.0
	for _, w := range s.Weights {
		total += w
	}
	assert.InDelta(t, 1.0, total, 1e-9)
	assert.Greater(t, s.Weights["affiliation"], baseWeights[Affiliation])
	assert.Len(t, s.Weights, int(NumFeatures))
}

func TestScoreExtremes(t *testing.T) {
	assert.Equal(t, 0, Score(FeatureVector{}).Score)
	assert.Equal(t, 0, Score(FeatureVector{}).Confidence)

	full := FeatureVector{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}
	s := Score(full)
	assert.Equal(t, 100, s.Score)
	assert.Equal(t, 100, s.Confidence)
}

func TestExplainLimitsAndThresholds(t *testing.T) {
	full := FeatureVector{10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10}
	reasons := Explain(full)
	require.Len(t, reasons, maxReasons)
	for i := 0; i < maxReasons; i++ {
		assert.Equal(t, reasonRules[i].text, reasons[i])
	}

	byText := make(map[string]reasonRule, len(reasonRules))
	for _, rr := range reasonRules {
		byText[rr.text] = rr
	}
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 300; i++ {
		v := randomVector(r)
		values := v.Values()
		got := Explain(v)
		require.LessOrEqual(t, len(got), maxReasons)
		for _, reason := range got {
			rule := byText[reason]
			assert.Greater(t, values[rule.feature], rule.threshold)
		}
	}
}

func TestWhy(t *testing.T) {
	f, err := Extract(strongPair())
	require.NoError(t, err)
	why := Why(f, strongPair().Goal)
	assert.Equal(t, []string{"engineer"}, why.MutualInterests)
	assert.Equal(t, "Goal: Hire a senior engineer; 3 shared encounters", why.Context)
	assert.NotEmpty(t, why.Reasons)

	empty := Why(Features{}, nil)
	assert.NotNil(t, empty.MutualInterests)
	assert.Equal(t, "no shared encounters", empty.Context)
}

func TestPrefilterPairs(t *testing.T) {
	people := []domain.Person{
		{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}, {ID: "e"},
		{ID: "f", Location: "Paris, FR"}, {ID: "g", Location: "paris"}, {ID: "h"},
	}
	pairs := PrefilterPairs(PrefilterInput{
		People: people,
		Edges: []domain.Edge{
			{FromID: "a", ToID: "b", Strength: 5},
			{FromID: "b", ToID: "c", Strength: 5},
			{FromID: "a", ToID: "ghost", Strength: 5},
		},
		Claims: map[string][]domain.Claim{
			"d": {claim("d", "expertise", "Go ")},
			"e": {claim("e", "skill", "go")},
		},
	})

	assert.Equal(t, []Pair{
		{A: "a", B: "b"},
		{A: "a", B: "c"},
		{A: "b", B: "c"},
		{A: "d", B: "e"},
		{A: "f", B: "g"},
	}, pairs)
}

func TestPrefilterSharedEncounter(t *testing.T) {
	pairs := PrefilterPairs(PrefilterInput{
		People:     []domain.Person{{ID: "x"}, {ID: "y"}, {ID: "z"}},
		Encounters: []domain.Encounter{encounter("e1", "call", 3, "z", "x", "outsider")},
	})
	assert.Equal(t, []Pair{{A: "x", B: "z"}}, pairs)
}
