// Package postgres is the document-database backend. Menu trees are stored
// whole as JSONB documents.
package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"menuforge/internal/ports"
	"menuforge/internal/templates"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *pgxpool.Pool
}

var _ ports.Store = (*Store)(nil)

func New(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Connect opens a pool for dsn, pings it and applies the schema.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	s := New(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates missing tables and seeds an empty template table with the
// default entry. It is safe to run on every start.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres migrate: %w", err)
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO templates (name, value, position)
		SELECT $1, $2, 0
		WHERE NOT EXISTS (SELECT 1 FROM templates)
	`, templates.DefaultName, templates.DefaultBody)
	if err != nil {
		return fmt.Errorf("postgres seed templates: %w", err)
	}
	return nil
}

func (s *Store) Backend() string { return "postgres" }

func (s *Store) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *Store) Close() { s.db.Close() }

// PoolStats reports connection pool usage for the deep health check.
func (s *Store) PoolStats() map[string]any {
	stats := s.db.Stat()
	return map[string]any{
		"total_conns":    stats.TotalConns(),
		"idle_conns":     stats.IdleConns(),
		"acquired_conns": stats.AcquiredConns(),
	}
}
