package domain

import (
	"encoding/json"
	"time"
)

// Person es un nodo de la red de relaciones. La identidad es inmutable; los
// atributos cambian via Claims.
type Person struct {
	ID          string `json:"id"`
	WorkspaceID string `json:"workspace_id"`
	FullName    string `json:"full_name"`
	Location    string `json:"location,omitempty"`
}

// Edge es una relacion dirigida tal como se almacena.
type Edge struct {
	ID          string  `json:"id"`
	WorkspaceID string  `json:"workspace_id"`
	FromID      string  `json:"from_id" validate:"required"`
	ToID        string  `json:"to_id" validate:"required"`
	Kind        string  `json:"kind"`
	Strength    float64 `json:"strength" validate:"gte=0,lte=10"`
}

// Encounter es una interaccion registrada (reunion, llamada, nota de voz).
type Encounter struct {
	ID             string    `json:"id"`
	WorkspaceID    string    `json:"workspace_id"`
	OccurredAt     time.Time `json:"occurred_at"`
	Kind           string    `json:"kind"`
	ParticipantIDs []string  `json:"participant_ids"`
}

// HasParticipant indica si la persona estuvo presente.
func (e Encounter) HasParticipant(personID string) bool {
	for _, id := range e.ParticipantIDs {
		if id == personID {
			return true
		}
	}
	return false
}

const (
	SubjectTypePerson = "person"
	SubjectTypeOrg    = "org"
)

// Claim es un hecho con fuente y confianza sobre una persona u organizacion.
// Pueden coexistir varios claims para la misma clave.
type Claim struct {
	SubjectID   string    `json:"subject_id" validate:"required"`
	SubjectType string    `json:"subject_type" validate:"oneof=person org"`
	Key         string    `json:"key" validate:"required"`
	Value       string    `json:"value"`
	Confidence  int       `json:"confidence" validate:"gte=0,lte=100"`
	Source      string    `json:"source,omitempty"`
	ObservedAt  time.Time `json:"observed_at"`
}

// Metricas persistidas por el recalculo del grafo.
const (
	MetricDegreeCentrality      = "degree_centrality"
	MetricBetweennessCentrality = "betweenness_centrality"
	MetricFreshness             = "freshness"
	MetricCommunity             = "community"
	MetricGoalConnection        = "goal_connection"
)

// GraphMetric es una fila derivada y efimera: un recalculo completo reemplaza
// todas las metricas del workspace.
type GraphMetric struct {
	WorkspaceID  string          `json:"workspace_id"`
	PersonID     string          `json:"person_id"`
	Metric       string          `json:"metric"`
	Value        json.RawMessage `json:"value"`
	CalculatedAt time.Time       `json:"calculated_at"`
}

// Valores JSON de cada metrica.
type CentralityValue struct {
	Value       float64 `json:"value"`
	Connections int     `json:"connections,omitempty"`
	InDegree    int     `json:"in_degree,omitempty"`
	OutDegree   int     `json:"out_degree,omitempty"`
}

type FreshnessValue struct {
	DaysSince       int        `json:"days_since"`
	LastEncounterAt *time.Time `json:"last_encounter_at,omitempty"`
}

type CommunityValue struct {
	CommunityID string `json:"community_id"`
	Size        int    `json:"size"`
}

type GoalConnectionValue struct {
	GoalID      string `json:"goal_id"`
	Suggestions int    `json:"suggestions"`
}

const (
	InsightOpportunityGap   = "opportunity_gap"
	InsightBridgeBuilder    = "bridge_builder"
	InsightCluster          = "cluster"
	InsightGoalAlignmentGap = "goal_alignment_gap"
	InsightStateActive      = "active"
	InsightStateDismissed   = "dismissed"
	InsightStateActedUpon   = "acted_upon"
	InsightTTL              = 30 * 24 * time.Hour
)

// Provenance explica de donde sale un insight.
type Provenance struct {
	Metric string  `json:"metric"`
	Value  float64 `json:"value"`
	Reason string  `json:"reason"`
}

type Insight struct {
	ID          string     `json:"id"`
	WorkspaceID string     `json:"workspace_id"`
	Type        string     `json:"type"`
	Title       string     `json:"title"`
	Detail      string     `json:"detail"`
	PersonID    *string    `json:"person_id,omitempty"`
	GoalID      *string    `json:"goal_id,omitempty"`
	Score       int        `json:"score"`
	Provenance  Provenance `json:"provenance"`
	State       string     `json:"state"`
	ExpiresAt   time.Time  `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
}

const (
	SuggestionProposed  = "proposed"
	SuggestionReady     = "ready"
	SuggestionAccepted  = "accepted"
	SuggestionSent      = "sent"
	SuggestionCompleted = "completed"
	SuggestionRejected  = "rejected"
)

// SuggestionWhy acompana al candidato con la explicacion legible.
type SuggestionWhy struct {
	Reasons         []string `json:"reasons"`
	MutualInterests []string `json:"mutual_interests"`
	Context         string   `json:"context"`
}

// SuggestionCandidate es lo que el motor entrega al sistema que lo rodea.
type SuggestionCandidate struct {
	ID          string        `json:"id"`
	WorkspaceID string        `json:"workspace_id"`
	GoalID      string        `json:"goal_id"`
	PersonAID   string        `json:"person_a_id"`
	PersonBID   string        `json:"person_b_id"`
	Score       int           `json:"score"`
	Confidence  int           `json:"confidence"`
	Why         SuggestionWhy `json:"why"`
	Status      string        `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
}

// GoalConnection indica que una persona ya forma parte de una sugerencia para la meta.
type GoalConnection struct {
	PersonID    string
	GoalID      string
	Suggestions int
}
