package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/facetrack/internal/config"
	"github.com/your-org/facetrack/internal/models"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Identities ---

func (s *PostgresStore) CreateIdentity(ctx context.Context, personID uuid.UUID, name string, embedding []float32, imageKey string) (*models.Identity, error) {
	id := &models.Identity{
		ID:        personID,
		Name:      name,
		Embedding: embedding,
		ImageKey:  imageKey,
	}
	vec := pgvector.NewVector(embedding)
	err := s.pool.QueryRow(ctx,
		`INSERT INTO identities (id, name, embedding, image_key) VALUES ($1, $2, $3, $4) RETURNING created_at, updated_at`,
		id.ID, id.Name, vec, id.ImageKey,
	).Scan(&id.CreatedAt, &id.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create identity: %w", err)
	}
	return id, nil
}

func (s *PostgresStore) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	ident := &models.Identity{}
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, embedding, image_key, created_at, updated_at FROM identities WHERE id = $1`, id,
	).Scan(&ident.ID, &ident.Name, &vec, &ident.ImageKey, &ident.CreatedAt, &ident.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get identity: %w", err)
	}
	ident.Embedding = vec.Slice()
	return ident, nil
}

func (s *PostgresStore) DeleteIdentity(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete identity: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) CountIdentities(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM identities`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count identities: %w", err)
	}
	return count, nil
}

// ListIdentityVectors loads every enrolled embedding. Used to warm the
// brute-force match cache when the vector index is unavailable.
func (s *PostgresStore) ListIdentityVectors(ctx context.Context) ([]models.IdentityVector, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, embedding FROM identities`)
	if err != nil {
		return nil, fmt.Errorf("list identity vectors: %w", err)
	}
	defer rows.Close()

	var out []models.IdentityVector
	for rows.Next() {
		var iv models.IdentityVector
		var vec pgvector.Vector
		if err := rows.Scan(&iv.ID, &iv.Name, &vec); err != nil {
			return nil, fmt.Errorf("scan identity vector: %w", err)
		}
		iv.Embedding = vec.Slice()
		out = append(out, iv)
	}
	return out, rows.Err()
}

// SearchIdentities runs a cosine-distance search directly in Postgres.
// The match engine uses it as its second tier when the vector index is
// unreachable, ahead of the in-memory scan.
func (s *PostgresStore) SearchIdentities(ctx context.Context, embedding []float32, threshold float64, limit int) ([]SearchMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	vec := pgvector.NewVector(embedding)

	rows, err := s.pool.Query(ctx,
		`SELECT id, name, 1 - (embedding <=> $1) AS score
		 FROM identities
		 WHERE 1 - (embedding <=> $1) >= $2
		 ORDER BY embedding <=> $1
		 LIMIT $3`, vec, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("search identities: %w", err)
	}
	defer rows.Close()

	var matches []SearchMatch
	for rows.Next() {
		var m SearchMatch
		if err := rows.Scan(&m.PersonID, &m.Name, &m.Score); err != nil {
			return nil, fmt.Errorf("scan search match: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

type SearchMatch struct {
	PersonID uuid.UUID `json:"person_id"`
	Name     string    `json:"name"`
	Score    float64   `json:"score"`
}
