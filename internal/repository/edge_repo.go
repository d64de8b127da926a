package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"relnet/internal/domain"
)

type EdgeRepository interface {
	ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Edge, error)
}

type PgEdgeRepository struct {
	pool *pgxpool.Pool
}

func NewPgEdgeRepository(pool *pgxpool.Pool) *PgEdgeRepository {
	return &PgEdgeRepository{pool: pool}
}

func (r *PgEdgeRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Edge, error) {
	const query = `
		SELECT id, workspace_id, from_id, to_id, kind, strength
		FROM edges
		WHERE workspace_id = $1
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanEdge)
}

func scanEdge(rows pgxRows) (domain.Edge, error) {
	var e domain.Edge
	err := rows.Scan(&e.ID, &e.WorkspaceID, &e.FromID, &e.ToID, &e.Kind, &e.Strength)
	return e, err
}
