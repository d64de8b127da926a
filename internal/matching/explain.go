package matching

import (
	"fmt"
	"strings"

	"relnet/internal/domain"
)

const maxReasons = 5

type reasonRule struct {
	feature   Feature
	threshold float64
	text      string
}

// reasonRules esta en orden de prioridad.
var reasonRules = []reasonRule{
	{Recency, 7, "They interacted recently"},
	{Frequency, 6, "They meet frequently"},
	{Affiliation, 7, "They share a strong direct connection"},
	{MutualInterests, 5, "They have overlapping interests"},
	{GoalAlignment, 8, "Strong alignment with the goal"},
	{CommunicationPatterns, 6, "They communicate actively across channels"},
	{ExpertiseComplementarity, 7, "Their expertise is complementary"},
	{SocialInfluence, 6, "Both are well connected in the network"},
	{LocationProximity, 7, "They are based in the same area"},
	{NetworkOverlap, 5, "They share several mutual connections"},
}

// Explain devuelve hasta 5 razones legibles, solo para features que superan
// su umbral.
func Explain(v FeatureVector) []string {
	values := v.Values()
	reasons := make([]string, 0, maxReasons)
	for _, r := range reasonRules {
		if values[r.feature] <= r.threshold {
			continue
		}
		reasons = append(reasons, r.text)
		if len(reasons) == maxReasons {
			break
		}
	}
	return reasons
}

// Why arma la explicacion que acompana a una sugerencia.
func Why(f Features, goal *domain.Goal) domain.SuggestionWhy {
	interests := f.MutualInterests
	if interests == nil {
		interests = []string{}
	}
	return domain.SuggestionWhy{
		Reasons:         Explain(f.Vector),
		MutualInterests: interests,
		Context:         describeContext(f, goal),
	}
}

func describeContext(f Features, goal *domain.Goal) string {
	var parts []string
	if goal != nil && strings.TrimSpace(goal.Title) != "" {
		parts = append(parts, fmt.Sprintf("Goal: %s", strings.TrimSpace(goal.Title)))
	}
	switch f.SharedEncounters {
	case 0:
		parts = append(parts, "no shared encounters")
	case 1:
		parts = append(parts, "1 shared encounter")
	default:
		parts = append(parts, fmt.Sprintf("%d shared encounters", f.SharedEncounters))
	}
	return strings.Join(parts, "; ")
}
