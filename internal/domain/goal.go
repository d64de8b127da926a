package domain

import (
	"strings"
	"unicode"

	"github.com/elliotchance/pie/v2"
)

const (
	GoalKindRaiseFunds    = "raise_funds"
	GoalKindHireEngineer  = "hire_engineer"
	GoalKindFindMentor    = "find_mentor"
	GoalKindFindCustomers = "find_customers"
	GoalKindFindPartner   = "find_partner"
	GoalKindLearn         = "learn"
	GoalKindOther         = "other"

	GoalStatusActive    = "active"
	GoalStatusCompleted = "completed"
	GoalStatusArchived  = "archived"
)

// maxGoalKeywords limita las palabras clave que se usan para emparejar claims.
const maxGoalKeywords = 10

type Goal struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	Kind        string `json:"kind"`    // Ej: "hire_engineer"
	Title       string `json:"title"`   // Ej: "Contratar un ingeniero senior"
	Details     string `json:"details"` // Texto libre del usuario
	Status      string `json:"status"`  // "active", "completed", "archived"
}

// IsActive indica si la meta participa en el matching y en los insights.
func (g Goal) IsActive() bool {
	return g.Status == GoalStatusActive
}

// Text devuelve titulo y detalle en minusculas.
func (g Goal) Text() string {
	return strings.ToLower(strings.TrimSpace(g.Title + " " + g.Details))
}

// Keywords extrae tokens en minusculas de mas de 3 caracteres del titulo y
// detalle, sin repetir, quedandose con los primeros 10.
func (g Goal) Keywords() []string {
	tokens := strings.FieldsFunc(g.Text(), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	long := pie.Filter(tokens, func(tok string) bool {
		return len([]rune(tok)) > 3
	})

	seen := make(map[string]struct{}, len(long))
	keywords := make([]string, 0, maxGoalKeywords)
	for _, tok := range long {
		if _, ok := seen[tok]; ok {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
		if len(keywords) == maxGoalKeywords {
			break
		}
	}
	return keywords
}
