package repository

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"relnet/internal/domain"
)

type ClaimRepository interface {
	ListPersonClaims(ctx context.Context, workspaceID string) ([]domain.Claim, error)
}

type PgClaimRepository struct {
	pool *pgxpool.Pool
}

func NewPgClaimRepository(pool *pgxpool.Pool) *PgClaimRepository {
	return &PgClaimRepository{pool: pool}
}

// ListPersonClaims trae los claims sobre personas del workspace.
func (r *PgClaimRepository) ListPersonClaims(ctx context.Context, workspaceID string) ([]domain.Claim, error) {
	const query = `
		SELECT c.subject_id, c.subject_type, c.key, c.value, c.confidence, c.source, c.observed_at
		FROM claims c
		JOIN people p ON p.id = c.subject_id
		WHERE p.workspace_id = $1 AND c.subject_type = 'person'
		ORDER BY c.subject_id, c.key, c.observed_at DESC
	`
	rows, err := r.pool.Query(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	return scanAll(rows, scanClaim)
}

func scanClaim(rows pgxRows) (domain.Claim, error) {
	var (
		c      domain.Claim
		source sql.NullString
	)
	if err := rows.Scan(&c.SubjectID, &c.SubjectType, &c.Key, &c.Value, &c.Confidence, &source, &c.ObservedAt); err != nil {
		return c, err
	}
	c.Source = source.String
	return c, nil
}

// GroupBySubject indexa claims por persona conservando el orden.
func GroupBySubject(claims []domain.Claim) map[string][]domain.Claim {
	out := make(map[string][]domain.Claim)
	for _, c := range claims {
		out[c.SubjectID] = append(out[c.SubjectID], c)
	}
	return out
}
