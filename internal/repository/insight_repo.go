package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relnet/internal/domain"
)

type InsightRepository interface {
	ReplaceForWorkspace(ctx context.Context, workspaceID string, insights []domain.Insight) error
}

type PgInsightRepository struct {
	pool *pgxpool.Pool
}

func NewPgInsightRepository(pool *pgxpool.Pool) *PgInsightRepository {
	return &PgInsightRepository{pool: pool}
}

func (r *PgInsightRepository) ReplaceForWorkspace(ctx context.Context, workspaceID string, insights []domain.Insight) error {
	batch, err := insightBatch(insights)
	if err != nil {
		return err
	}
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM insights WHERE workspace_id = $1`, workspaceID); err != nil {
			return fmt.Errorf("delete insights: %w", err)
		}
		if err := execBatch(ctx, tx, batch); err != nil {
			return fmt.Errorf("insert insights: %w", err)
		}
		return nil
	})
}

func insightBatch(insights []domain.Insight) (*pgx.Batch, error) {
	const query = `
		INSERT INTO insights (id, workspace_id, type, title, detail, person_id, goal_id, score, provenance, state, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	batch := &pgx.Batch{}
	for _, ins := range insights {
		provenance, err := json.Marshal(ins.Provenance)
		if err != nil {
			return nil, fmt.Errorf("marshal provenance for %s: %w", ins.ID, err)
		}
		batch.Queue(query,
			ins.ID,
			ins.WorkspaceID,
			ins.Type,
			ins.Title,
			ins.Detail,
			ins.PersonID,
			ins.GoalID,
			ins.Score,
			provenance,
			ins.State,
			ins.ExpiresAt,
			ins.CreatedAt,
		)
	}
	return batch, nil
}
