package insight

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"relnet/internal/domain"
)

// Input es la foto de un workspace sobre la que corren las reglas. No hay
// acceso a base de datos durante la generacion.
type Input struct {
	WorkspaceID string
	People      []domain.Person
	Metrics     []domain.GraphMetric
	Goals       []domain.Goal
	Claims      []domain.Claim
	Now         time.Time
}

// Rule produce cero o mas insights. Puede devolver insights parciales junto
// con un error: se conservan ambos.
type Rule struct {
	Name string
	Eval func(in *Input) ([]domain.Insight, error)
}

// RuleFailure describe una regla que fallo o entro en panic.
type RuleFailure struct {
	Rule string
	Err  error
}

func (f RuleFailure) Error() string {
	return fmt.Sprintf("insight rule %s: %v", f.Rule, f.Err)
}

// Generator ejecuta las reglas de forma aislada: una regla rota no frena a
// las demas.
type Generator struct {
	rules []Rule
	newID func() string
}

// NewGenerator construye el generador con las cuatro reglas estandar.
func NewGenerator() *Generator {
	return &Generator{
		rules: DefaultRules(),
		newID: uuid.NewString,
	}
}

// NewGeneratorWithRules permite reemplazar las reglas (tests, experimentos).
func NewGeneratorWithRules(rules []Rule, newID func() string) *Generator {
	if newID == nil {
		newID = uuid.NewString
	}
	return &Generator{rules: rules, newID: newID}
}

// DefaultRules devuelve las reglas en su orden de ejecucion.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "opportunity_gap", Eval: opportunityGap},
		{Name: "bridge_builder", Eval: bridgeBuilder},
		{Name: "cluster", Eval: clusterInsight},
		{Name: "goal_alignment_gap", Eval: goalAlignmentGap},
	}
}

// Generate corre todas las reglas. Los insights salen con id, workspace,
// estado activo, puntaje en 1-100 y vencimiento a 30 dias de in.Now.
func (g *Generator) Generate(in Input) ([]domain.Insight, []RuleFailure) {
	var (
		out      []domain.Insight
		failures []RuleFailure
	)
	for _, rule := range g.rules {
		insights, err := runRule(rule, &in)
		if err != nil {
			failures = append(failures, RuleFailure{Rule: rule.Name, Err: err})
		}
		for _, ins := range insights {
			ins.ID = g.newID()
			ins.WorkspaceID = in.WorkspaceID
			ins.State = domain.InsightStateActive
			ins.Score = clampScore(ins.Score)
			ins.CreatedAt = in.Now
			ins.ExpiresAt = in.Now.Add(domain.InsightTTL)
			out = append(out, ins)
		}
	}
	return out, failures
}

func runRule(rule Rule, in *Input) (insights []domain.Insight, err error) {
	defer func() {
		if r := recover(); r != nil {
			insights = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return rule.Eval(in)
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 100 {
		return 100
	}
	return score
}

func roundScore(v float64) int {
	return int(math.Round(v))
}
