package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"relnet/internal/domain"
)

type EncounterRepository interface {
	ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Encounter, error)
	LastEncounters(ctx context.Context, workspaceID string, personIDs []string) (map[string]time.Time, error)
}

type PgEncounterRepository struct {
	pool *pgxpool.Pool
}

func NewPgEncounterRepository(pool *pgxpool.Pool) *PgEncounterRepository {
	return &PgEncounterRepository{pool: pool}
}

func (r *PgEncounterRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Encounter, error) {
	const query = `
		SELECT e.id, e.workspace_id, e.occurred_at, e.kind,
			COALESCE(array_agg(a.person_id ORDER BY a.person_id) FILTER (WHERE a.person_id IS NOT NULL), '{}')
		FROM encounters e
		LEFT JOIN encounter_attendees a ON a.encounter_id = e.id
		WHERE e.workspace_id = $1
		GROUP BY e.id
		ORDER BY e.occurred_at, e.id
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanEncounter)
}

func scanEncounter(rows pgxRows) (domain.Encounter, error) {
	var e domain.Encounter
	err := rows.Scan(&e.ID, &e.WorkspaceID, &e.OccurredAt, &e.Kind, &e.ParticipantIDs)
	return e, err
}

// LastEncounters devuelve, en una sola consulta, el encuentro mas reciente de
// cada persona. Las personas sin encuentros no aparecen en el mapa.
func (r *PgEncounterRepository) LastEncounters(ctx context.Context, workspaceID string, personIDs []string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(personIDs))
	if len(personIDs) == 0 {
		return out, nil
	}
	const query = `
		SELECT DISTINCT ON (a.person_id) a.person_id, e.occurred_at
		FROM encounter_attendees a
		JOIN encounters e ON e.id = a.encounter_id
		WHERE e.workspace_id = $1 AND a.person_id = ANY($2)
		ORDER BY a.person_id, e.occurred_at DESC
	`
	rows, err := r.pool.Query(ctx, query, workspaceID, personIDs)
	if err != nil {
		return nil, err
	}
	if err := scanLastEncounters(rows, out); err != nil {
		return nil, err
	}
	return out, nil
}

func scanLastEncounters(rows pgxRows, out map[string]time.Time) error {
	defer rows.Close()
	for rows.Next() {
		var (
			personID string
			at       time.Time
		)
		if err := rows.Scan(&personID, &at); err != nil {
			return err
		}
		out[personID] = at
	}
	return rows.Err()
}
