package matching

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/elliotchance/pie/v2"

	"relnet/internal/domain"
)

// ErrPairSkipped marca un par que no se pudo puntuar. El lote sigue.
var ErrPairSkipped = errors.New("pair skipped")

// Feature identifica una dimension del vector de features.
type Feature int

const (
	Recency Feature = iota
	Frequency
	Affiliation
	MutualInterests
	GoalAlignment
	LocationProximity
	NetworkOverlap
	CommunicationPatterns
	ExpertiseComplementarity
	SocialInfluence
	TemporalPatterns
	SemanticSimilarity
	NumFeatures
)

var featureNames = [NumFeatures]string{
	"recency",
	"frequency",
	"affiliation",
	"mutual_interests",
	"goal_alignment",
	"location_proximity",
	"network_overlap",
	"communication_patterns",
	"expertise_complementarity",
	"social_influence",
	"temporal_patterns",
	"semantic_similarity",
}

func (f Feature) String() string {
	if f < 0 || f >= NumFeatures {
		return fmt.Sprintf("feature(%d)", int(f))
	}
	return featureNames[f]
}

// FeatureVector describe un par de personas en 12 dimensiones de 0 a 10.
type FeatureVector struct {
	Recency                  float64 `json:"recency"`
	Frequency                float64 `json:"frequency"`
	Affiliation              float64 `json:"affiliation"`
	MutualInterests          float64 `json:"mutual_interests"`
	GoalAlignment            float64 `json:"goal_alignment"`
	LocationProximity        float64 `json:"location_proximity"`
	NetworkOverlap           float64 `json:"network_overlap"`
	CommunicationPatterns    float64 `json:"communication_patterns"`
	ExpertiseComplementarity float64 `json:"expertise_complementarity"`
	SocialInfluence          float64 `json:"social_influence"`
	TemporalPatterns         float64 `json:"temporal_patterns"`
	SemanticSimilarity       float64 `json:"semantic_similarity"`
}

// Values devuelve el vector en el orden de Feature.
func (v FeatureVector) Values() [NumFeatures]float64 {
	return [NumFeatures]float64{
		v.Recency,
		v.Frequency,
		v.Affiliation,
		v.MutualInterests,
		v.GoalAlignment,
		v.LocationProximity,
		v.NetworkOverlap,
		v.CommunicationPatterns,
		v.ExpertiseComplementarity,
		v.SocialInfluence,
		v.TemporalPatterns,
		v.SemanticSimilarity,
	}
}

// Profile es lo que el extractor sabe de una persona.
type Profile struct {
	PersonID  string
	Location  string
	Claims    []domain.Claim
	Neighbors []string
	// Embedding nil significa que el proveedor no respondio.
	Embedding []float32
}

// PairInput agrupa los datos de un par. Encounters y Edges pueden traer
// registros ajenos al par: el extractor filtra los compartidos.
type PairInput struct {
	A          Profile
	B          Profile
	Encounters []domain.Encounter
	Edges      []domain.Edge
	Goal       *domain.Goal
	Now        time.Time
}

// Features es el resultado del extractor.
type Features struct {
	Vector           FeatureVector
	MutualInterests  []string
	SharedEncounters int
}

const neutralScore = 5.0

var interestKeys = []string{"skill", "skills", "interest", "interests", "expertise"}

var expertiseKeys = []string{"skill", "skills", "expertise", "title", "role"}

// Extract calcula las 12 features de un par.
func Extract(in PairInput) (Features, error) {
	if in.A.PersonID == "" || in.B.PersonID == "" || in.A.PersonID == in.B.PersonID {
		return Features{}, fmt.Errorf("%w: invalid pair %q/%q", ErrPairSkipped, in.A.PersonID, in.B.PersonID)
	}
	for _, p := range []Profile{in.A, in.B} {
		for _, c := range p.Claims {
			if err := domain.ValidateClaim(c); err != nil {
				return Features{}, fmt.Errorf("%w: %v", ErrPairSkipped, err)
			}
		}
	}

	shared := sharedEncounters(in.Encounters, in.A.PersonID, in.B.PersonID)
	mutual := mutualNeighbors(in.A, in.B)
	interests := matchInterests(in.A.Claims, in.B.Claims)

	v := FeatureVector{
		Recency:                  recency(shared, in.Now),
		Frequency:                frequency(shared, in.Now),
		Affiliation:              affiliation(in.Edges, in.A.PersonID, in.B.PersonID, len(mutual)),
		MutualInterests:          capTen(3 * float64(len(interests))),
		GoalAlignment:            goalAlignment(in.A.Claims, in.B.Claims, in.Goal),
		LocationProximity:        locationProximity(in.A.Location, in.B.Location),
		NetworkOverlap:           capTen(2 * float64(len(mutual))),
		CommunicationPatterns:    communicationPatterns(shared, in.Now),
		ExpertiseComplementarity: expertiseComplementarity(in.A.Claims, in.B.Claims),
		SocialInfluence:          socialInfluence(len(in.A.Neighbors), len(in.B.Neighbors)),
		TemporalPatterns:         temporalPatterns(shared),
		SemanticSimilarity:       semanticSimilarity(in.A.Embedding, in.B.Embedding),
	}
	return Features{Vector: v, MutualInterests: interests, SharedEncounters: len(shared)}, nil
}

func capTen(v float64) float64 {
	return math.Min(10, math.Max(0, v))
}

func daysAgo(t, now time.Time) float64 {
	d := now.Sub(t).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// sharedEncounters devuelve los encuentros con ambos participantes,
// ordenados del mas antiguo al mas reciente.
func sharedEncounters(encounters []domain.Encounter, a, b string) []domain.Encounter {
	shared := pie.Filter(encounters, func(e domain.Encounter) bool {
		return e.HasParticipant(a) && e.HasParticipant(b)
	})
	slices.SortStableFunc(shared, func(x, y domain.Encounter) int {
		return x.OccurredAt.Compare(y.OccurredAt)
	})
	return shared
}

func recency(shared []domain.Encounter, now time.Time) float64 {
	if len(shared) == 0 {
		return 0
	}
	last := shared[len(shared)-1].OccurredAt
	return capTen(10 * math.Exp(-daysAgo(last, now)/30))
}

func frequency(shared []domain.Encounter, now time.Time) float64 {
	sum := 0.0
	for _, e := range shared {
		sum += math.Exp(-daysAgo(e.OccurredAt, now) / 90)
	}
	return capTen(sum * 2)
}

func affiliation(edges []domain.Edge, a, b string, mutualCount int) float64 {
	direct := -1.0
	for _, e := range edges {
		if (e.FromID == a && e.ToID == b) || (e.FromID == b && e.ToID == a) {
			direct = math.Max(direct, e.Strength)
		}
	}
	if direct >= 0 {
		return capTen(direct)
	}
	return capTen(2 * float64(mutualCount))
}

func mutualNeighbors(a, b Profile) []string {
	inB := make(map[string]struct{}, len(b.Neighbors))
	for _, id := range b.Neighbors {
		inB[id] = struct{}{}
	}
	var mutual []string
	seen := make(map[string]struct{})
	for _, id := range a.Neighbors {
		if id == a.PersonID || id == b.PersonID {
			continue
		}
		if _, ok := inB[id]; !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		mutual = append(mutual, id)
	}
	return mutual
}

func claimValues(claims []domain.Claim, keys []string) []string {
	var values []string
	for _, c := range claims {
		if !pie.Contains(keys, strings.ToLower(c.Key)) {
			continue
		}
		if v := strings.TrimSpace(c.Value); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// matchInterests devuelve los valores de A que coinciden por subcadena con
// algun valor de B, sin distinguir mayusculas.
func matchInterests(a, b []domain.Claim) []string {
	valuesB := claimValues(b, interestKeys)
	var matched []string
	seen := make(map[string]struct{})
	for _, va := range claimValues(a, interestKeys) {
		la := strings.ToLower(va)
		if _, dup := seen[la]; dup {
			continue
		}
		for _, vb := range valuesB {
			lb := strings.ToLower(vb)
			if strings.Contains(la, lb) || strings.Contains(lb, la) {
				seen[la] = struct{}{}
				matched = append(matched, va)
				break
			}
		}
	}
	return matched
}

// domainRule premia perfiles que encajan con el tipo de meta.
type domainRule struct {
	roles     []string
	goalKind  string
	goalMatch func(text string) bool
}

var domainRules = []domainRule{
	{
		roles:    []string{"investor", "venture", "angel"},
		goalKind: domain.GoalKindRaiseFunds,
		goalMatch: func(text string) bool {
			return containsAny(text, "fundrais", "raise", "funding", "investment")
		},
	},
	{
		roles:    []string{"engineer", "developer"},
		goalKind: domain.GoalKindHireEngineer,
		goalMatch: func(text string) bool {
			return containsAny(text, "hire", "hiring", "recruit") && containsAny(text, "engineer", "developer")
		},
	},
	{
		roles:    []string{"founder", "ceo"},
		goalKind: domain.GoalKindFindMentor,
		goalMatch: func(text string) bool {
			return containsAny(text, "mentor")
		},
	},
}

func containsAny(text string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(text, t) {
			return true
		}
	}
	return false
}

func goalAlignment(a, b []domain.Claim, goal *domain.Goal) float64 {
	if goal == nil {
		return neutralScore
	}
	keywords := goal.Keywords()
	text := goal.Text()

	score := neutralScore
	for _, claims := range [][]domain.Claim{a, b} {
		for _, c := range claims {
			if containsAny(strings.ToLower(c.Value), keywords...) {
				score += 2
			}
		}
	}

	// El bono de dominio suma una vez por par.
	if matchesDomainRule(a, goal.Kind, text) || matchesDomainRule(b, goal.Kind, text) {
		score += 3
	}
	return capTen(score)
}

func matchesDomainRule(claims []domain.Claim, kind, goalText string) bool {
	for _, rule := range domainRules {
		if kind != rule.goalKind && !rule.goalMatch(goalText) {
			continue
		}
		for _, c := range claims {
			if containsAny(strings.ToLower(c.Value), rule.roles...) {
				return true
			}
		}
	}
	return false
}

func locationProximity(a, b string) float64 {
	la := strings.ToLower(strings.TrimSpace(a))
	lb := strings.ToLower(strings.TrimSpace(b))
	switch {
	case la == "" || lb == "":
		return neutralScore
	case la == lb:
		return 10
	case strings.Contains(la, lb) || strings.Contains(lb, la):
		return 8
	case CityToken(la) != "" && CityToken(la) == CityToken(lb):
		return 7
	default:
		return 3
	}
}

// CityToken normaliza la parte de una ubicacion antes de la primera coma.
func CityToken(location string) string {
	city, _, _ := strings.Cut(location, ",")
	return strings.ToLower(strings.TrimSpace(city))
}

func communicationPatterns(shared []domain.Encounter, now time.Time) float64 {
	if len(shared) == 0 {
		return 0
	}
	kinds := make(map[string]struct{})
	recent := 0
	for _, e := range shared {
		kinds[strings.ToLower(e.Kind)] = struct{}{}
		if daysAgo(e.OccurredAt, now) <= 30 {
			recent++
		}
	}
	return capTen(neutralScore + float64(len(kinds)) + 0.5*float64(recent))
}

type expertiseGroup int

const (
	groupTechnical expertiseGroup = iota
	groupBusiness
	groupDesign
	groupLeadership
)

var groupTerms = map[expertiseGroup][]string{
	groupTechnical:  {"engineer", "developer", "software", "backend", "frontend", "data", "devops", "cloud", "security", "machine", "programming", "infrastructure", "ml", "ai"},
	groupBusiness:   {"sales", "marketing", "business", "finance", "strategy", "operations", "growth", "investor", "fundraising", "partnership"},
	groupDesign:     {"design", "designer", "ux", "ui", "product", "brand", "creative"},
	groupLeadership: {"ceo", "cto", "cfo", "coo", "founder", "cofounder", "director", "manager", "head", "lead", "leadership", "executive", "vp"},
}

var relatedGroups = map[[2]expertiseGroup]bool{
	{groupTechnical, groupBusiness}:   true,
	{groupTechnical, groupDesign}:     true,
	{groupBusiness, groupLeadership}:  true,
	{groupTechnical, groupLeadership}: true,
	{groupDesign, groupBusiness}:      true,
}

func related(x, y expertiseGroup) bool {
	return relatedGroups[[2]expertiseGroup{x, y}] || relatedGroups[[2]expertiseGroup{y, x}]
}

// groupsOf clasifica un valor por tokens: los terminos cortos exigen token
// exacto, los largos aceptan prefijo ("engineering" cuenta como engineer).
func groupsOf(value string) []expertiseGroup {
	tokens := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var groups []expertiseGroup
	for g := groupTechnical; g <= groupLeadership; g++ {
		if slices.ContainsFunc(tokens, func(tok string) bool {
			return slices.ContainsFunc(groupTerms[g], func(term string) bool {
				if len(term) < 4 {
					return tok == term
				}
				return strings.HasPrefix(tok, term)
			})
		}) {
			groups = append(groups, g)
		}
	}
	return groups
}

func expertiseComplementarity(a, b []domain.Claim) float64 {
	valuesB := claimValues(b, expertiseKeys)
	groupsB := make([][]expertiseGroup, len(valuesB))
	for i, v := range valuesB {
		groupsB[i] = groupsOf(v)
	}

	pairs := 0
	for _, va := range claimValues(a, expertiseKeys) {
		ga := groupsOf(va)
		for _, gb := range groupsB {
			if complementary(ga, gb) {
				pairs++
			}
		}
	}
	return capTen(2 * float64(pairs))
}

func complementary(ga, gb []expertiseGroup) bool {
	for _, x := range ga {
		for _, y := range gb {
			if x != y && related(x, y) {
				return true
			}
		}
	}
	return false
}

func socialInfluence(degreeA, degreeB int) float64 {
	a := capTen(0.5 * float64(degreeA))
	b := capTen(0.5 * float64(degreeB))
	return (a + b) / 2
}

// temporalPatterns premia encuentros regulares: menor desvio entre los
// intervalos da mas puntaje.
func temporalPatterns(shared []domain.Encounter) float64 {
	if len(shared) < 2 {
		return neutralScore
	}
	gaps := make([]float64, 0, len(shared)-1)
	for i := 1; i < len(shared); i++ {
		gaps = append(gaps, shared[i].OccurredAt.Sub(shared[i-1].OccurredAt).Hours()/24)
	}
	mean := 0.0
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))
	variance := 0.0
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	sigma := math.Sqrt(variance / float64(len(gaps)))
	return capTen(neutralScore + 5/(1+sigma/7))
}

func semanticSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return neutralScore
	}
	return capTen(CosineSimilarity(a, b) * 10)
}

// CosineSimilarity calcula la similitud coseno entre dos vectores.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
