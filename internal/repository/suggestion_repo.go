package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relnet/internal/domain"
)

type SuggestionRepository interface {
	CreateBatch(ctx context.Context, suggestions []domain.SuggestionCandidate) error
	ListGoalConnections(ctx context.Context, workspaceID string) ([]domain.GoalConnection, error)
}

type PgSuggestionRepository struct {
	pool *pgxpool.Pool
}

func NewPgSuggestionRepository(pool *pgxpool.Pool) *PgSuggestionRepository {
	return &PgSuggestionRepository{pool: pool}
}

// CreateBatch inserta las sugerencias en una transaccion. Un par ya sugerido
// para la misma meta no se duplica.
func (r *PgSuggestionRepository) CreateBatch(ctx context.Context, suggestions []domain.SuggestionCandidate) error {
	if len(suggestions) == 0 {
		return nil
	}
	const query = `
		INSERT INTO suggestions (id, workspace_id, goal_id, person_a_id, person_b_id, score, confidence, why, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (goal_id, person_a_id, person_b_id) DO NOTHING
	`
	batch := &pgx.Batch{}
	for _, s := range suggestions {
		why, err := json.Marshal(s.Why)
		if err != nil {
			return fmt.Errorf("marshal why for %s: %w", s.ID, err)
		}
		batch.Queue(query, s.ID, s.WorkspaceID, s.GoalID, s.PersonAID, s.PersonBID, s.Score, s.Confidence, why, s.Status, s.CreatedAt)
	}
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		return execBatch(ctx, tx, batch)
	})
}

// ListGoalConnections cuenta, por persona y meta, en cuantas sugerencias no
// rechazadas participa.
func (r *PgSuggestionRepository) ListGoalConnections(ctx context.Context, workspaceID string) ([]domain.GoalConnection, error) {
	const query = `
		SELECT person_id, goal_id, COUNT(*)
		FROM (
			SELECT person_a_id AS person_id, goal_id FROM suggestions
			WHERE workspace_id = $1 AND status <> 'rejected'
			UNION ALL
			SELECT person_b_id AS person_id, goal_id FROM suggestions
			WHERE workspace_id = $1 AND status <> 'rejected'
		) s
		GROUP BY person_id, goal_id
		ORDER BY person_id, goal_id
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanGoalConnection)
}

func scanGoalConnection(rows pgxRows) (domain.GoalConnection, error) {
	var (
		gc    domain.GoalConnection
		count int64
	)
	if err := rows.Scan(&gc.PersonID, &gc.GoalID, &count); err != nil {
		return gc, err
	}
	gc.Suggestions = int(count)
	return gc, nil
}
