package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

// EmbeddingRepository es el nivel persistente de la cache de embeddings,
// indexado por el hash del texto y el modelo.
type EmbeddingRepository interface {
	Name() string
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

type PgEmbeddingRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPgEmbeddingRepository(pool *pgxpool.Pool) *PgEmbeddingRepository {
	return &PgEmbeddingRepository{pool: pool, now: time.Now}
}

func (r *PgEmbeddingRepository) Name() string { return "postgres" }

func (r *PgEmbeddingRepository) Get(ctx context.Context, key string) ([]float32, bool, error) {
	const query = `SELECT embedding FROM text_embeddings WHERE content_hash = $1`

	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx, query, key).Scan(&vec)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return vec.Slice(), true, nil
}

func (r *PgEmbeddingRepository) Set(ctx context.Context, key string, vec []float32) error {
	const query = `
		INSERT INTO text_embeddings (content_hash, embedding, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (content_hash) DO UPDATE SET embedding = EXCLUDED.embedding
	`
	_, err := r.pool.Exec(ctx, query, key, pgvector.NewVector(vec), r.now().UTC())
	return err
}
