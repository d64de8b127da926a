package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relnet/internal/domain"
)

type GoalRepository interface {
	GetByID(ctx context.Context, workspaceID, goalID string) (*domain.Goal, error)
	ListActive(ctx context.Context, workspaceID string) ([]domain.Goal, error)
}

type PgGoalRepository struct {
	pool *pgxpool.Pool
}

func NewPgGoalRepository(pool *pgxpool.Pool) *PgGoalRepository {
	return &PgGoalRepository{pool: pool}
}

const goalColumns = `id, workspace_id, kind, title, COALESCE(details, ''), status`

func (r *PgGoalRepository) GetByID(ctx context.Context, workspaceID, goalID string) (*domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE workspace_id = $1 AND id = $2`

	var g domain.Goal
	err := r.pool.QueryRow(ctx, query, workspaceID, goalID).Scan(&g.ID, &g.WorkspaceID, &g.Kind, &g.Title, &g.Details, &g.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGoalNotFound
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *PgGoalRepository) ListActive(ctx context.Context, workspaceID string) ([]domain.Goal, error) {
	query := `SELECT ` + goalColumns + ` FROM goals WHERE workspace_id = $1 AND status = 'active' ORDER BY created_at, id`

	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanGoal)
}

func scanGoal(rows pgxRows) (domain.Goal, error) {
	var g domain.Goal
	err := rows.Scan(&g.ID, &g.WorkspaceID, &g.Kind, &g.Title, &g.Details, &g.Status)
	return g, err
}
