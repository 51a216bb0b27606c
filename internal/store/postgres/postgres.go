// Package postgres implements the identity store on PostgreSQL with the
// pgvector extension, holding the embedding in a native vector column.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/facegate/facegate/internal/store"
)

type Store struct {
	pool *pgxpool.Pool
}

// Open connects to PostgreSQL and runs migrations for embeddings of the
// given dimensionality.
func Open(ctx context.Context, dsn string, dim int) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.migrate(ctx, dim); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context, dim int) error {
	if _, err := s.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("creating vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS identities (
			id         BIGINT PRIMARY KEY,
			name       TEXT NOT NULL,
			embedding  vector(%d) NOT NULL,
			created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`, dim)
	if _, err := s.pool.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("creating identities table: %w", err)
	}

	_, err := s.pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS identities_name_idx ON identities(name)`)
	if err != nil {
		return fmt.Errorf("creating name index: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, id int64, name string, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (id, name, embedding)
		VALUES ($1, $2, $3)
	`, id, name, pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("inserting identity %q: %w", name, err)
	}
	return nil
}

func (s *Store) DeleteByName(ctx context.Context, name string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("deleting identity %q: %w", name, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) LoadAll(ctx context.Context) ([]store.Record, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, name, embedding FROM identities`)
	if err != nil {
		return nil, fmt.Errorf("loading identities: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var rec store.Record
		var vec pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.Name, &vec); err != nil {
			return nil, err
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM identities`); err != nil {
		return fmt.Errorf("resetting identities: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
