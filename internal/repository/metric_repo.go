package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"relnet/internal/domain"
)

type MetricRepository interface {
	ReplaceForWorkspace(ctx context.Context, workspaceID string, metrics []domain.GraphMetric) error
	ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.GraphMetric, error)
}

type PgMetricRepository struct {
	pool *pgxpool.Pool
}

func NewPgMetricRepository(pool *pgxpool.Pool) *PgMetricRepository {
	return &PgMetricRepository{pool: pool}
}

// ReplaceForWorkspace borra e inserta todas las metricas en una transaccion:
// el workspace nunca queda sin snapshot.
func (r *PgMetricRepository) ReplaceForWorkspace(ctx context.Context, workspaceID string, metrics []domain.GraphMetric) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM graph_metrics WHERE workspace_id = $1`, workspaceID); err != nil {
			return fmt.Errorf("delete metrics: %w", err)
		}
		if err := execBatch(ctx, tx, metricBatch(metrics)); err != nil {
			return fmt.Errorf("insert metrics: %w", err)
		}
		return nil
	})
}

func metricBatch(metrics []domain.GraphMetric) *pgx.Batch {
	const query = `
		INSERT INTO graph_metrics (workspace_id, person_id, metric, value, calculated_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(query, m.WorkspaceID, m.PersonID, m.Metric, []byte(m.Value), m.CalculatedAt)
	}
	return batch
}

func (r *PgMetricRepository) ListByWorkspace(ctx context.Context, workspaceID string) ([]domain.GraphMetric, error) {
	const query = `
		SELECT workspace_id, person_id, metric, value, calculated_at
		FROM graph_metrics
		WHERE workspace_id = $1
		ORDER BY person_id, metric
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanMetric)
}

func scanMetric(rows pgxRows) (domain.GraphMetric, error) {
	var (
		m   domain.GraphMetric
		raw []byte
	)
	if err := rows.Scan(&m.WorkspaceID, &m.PersonID, &m.Metric, &raw, &m.CalculatedAt); err != nil {
		return m, err
	}
	m.Value = raw
	return m, nil
}
