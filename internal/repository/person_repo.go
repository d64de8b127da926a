package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"relnet/internal/domain"
)

type PersonRepository interface {
	ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Person, error)
}

type PgPersonRepository struct {
	pool *pgxpool.Pool
}

func NewPgPersonRepository(pool *pgxpool.Pool) *PgPersonRepository {
	return &PgPersonRepository{pool: pool}
}

func (r *PgPersonRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.Person, error) {
	const query = `
		SELECT id, workspace_id, full_name, COALESCE(location, '')
		FROM people
		WHERE workspace_id = $1
		ORDER BY created_at, id
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanPerson)
}

func scanPerson(rows pgxRows) (domain.Person, error) {
	var p domain.Person
	err := rows.Scan(&p.ID, &p.WorkspaceID, &p.FullName, &p.Location)
	return p, err
}
