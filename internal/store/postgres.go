package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

const slotsSchema = `
CREATE TABLE IF NOT EXISTS slots (
	name TEXT PRIMARY KEY,
	data JSONB NOT NULL
)`

// PostgresBackend keeps each slot as one row of a two-column table. Useful
// when the deployment already runs Postgres and no Redis is available for
// slot storage (the bus still needs Redis to cross processes).
type PostgresBackend struct {
	db *sqlx.DB
}

// NewPostgresBackend connects and ensures the slots table exists.
func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if _, err := db.Exec(slotsSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure slots table: %w", err)
	}
	log.Println("[Store] Postgres backend ready")
	return &PostgresBackend{db: db}, nil
}

// NewPostgresBackendFromDB wraps an existing connection. Used by tests.
func NewPostgresBackendFromDB(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db}
}

func (b *PostgresBackend) Load(ctx context.Context, slot string) ([]byte, bool, error) {
	var data []byte
	err := b.db.GetContext(ctx, &data, `SELECT data FROM slots WHERE name = $1`, slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select slot %s: %w", slot, err)
	}
	return data, true, nil
}

func (b *PostgresBackend) Save(ctx context.Context, slot string, data []byte) error {
	_, err := b.db.ExecContext(ctx,
		`INSERT INTO slots (name, data) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET data = EXCLUDED.data`,
		slot, data)
	if err != nil {
		return fmt.Errorf("upsert slot %s: %w", slot, err)
	}
	return nil
}

func (b *PostgresBackend) Delete(ctx context.Context, slot string) error {
	if _, err := b.db.ExecContext(ctx, `DELETE FROM slots WHERE name = $1`, slot); err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	return b.db.Close()
}
