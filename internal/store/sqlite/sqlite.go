// Package sqlite implements the identity store on an embedded SQLite file.
// It is the default backend; no external service is needed on the door host.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/facegate/facegate/internal/store"
)

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the identity database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening identity database: %w", err)
	}

	// A single writer keeps SQLite happy; reads share the connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS identities (
			id        INTEGER PRIMARY KEY,
			name      TEXT NOT NULL,
			embedding BLOB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("creating identities table: %w", err)
	}
	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS identities_name_idx ON identities(name)`)
	if err != nil {
		return fmt.Errorf("creating name index: %w", err)
	}
	return nil
}

func (s *Store) Insert(ctx context.Context, id int64, name string, embedding []float32) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO identities (id, name, embedding) VALUES (?, ?, ?)`,
		id, name, store.EncodeEmbedding(embedding),
	)
	if err != nil {
		return fmt.Errorf("inserting identity %q: %w", name, err)
	}
	return nil
}

func (s *Store) DeleteByName(ctx context.Context, name string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM identities WHERE name = ?`, name)
	if err != nil {
		return 0, fmt.Errorf("deleting identity %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *Store) LoadAll(ctx context.Context) ([]store.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, embedding FROM identities`)
	if err != nil {
		return nil, fmt.Errorf("loading identities: %w", err)
	}
	defer rows.Close()

	var records []store.Record
	for rows.Next() {
		var rec store.Record
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.Name, &blob); err != nil {
			return nil, err
		}
		if rec.Embedding, err = store.DecodeEmbedding(blob); err != nil {
			return nil, fmt.Errorf("identity %d: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM identities`); err != nil {
		return fmt.Errorf("resetting identities: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
