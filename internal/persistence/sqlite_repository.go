package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure Go sqlite driver
)

// sqliteRepository stores every record as one row of the records table.
type sqliteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository opens (or creates) the SQLite database and creates the
// records table if it doesn't exist.
func NewSQLiteRepository(dataSourceName string) (RecordStore, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serializes writers; sqlite allows only one anyway.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err = createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &sqliteRepository{db: db}, nil
}

func createTables(db *sql.DB) error {
	createRecordsTableSQL := `
	CREATE TABLE IF NOT EXISTS records (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);`

	_, err := db.Exec(createRecordsTableSQL)
	return err
}

// Put creates or replaces the row for key.
func (r *sqliteRepository) Put(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	query := `
	INSERT INTO records (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at;`

	if _, err := r.db.ExecContext(ctx, query, key, string(data), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to save record %s: %w", key, err)
	}
	return nil
}

// Get reads the row for key.
func (r *sqliteRepository) Get(ctx context.Context, key string, dest any) (bool, error) {
	var raw string
	err := r.db.QueryRowContext(ctx, "SELECT value FROM records WHERE key = ?;", key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load record %s: %w", key, err)
	}
	if raw == "" {
		return false, ErrEmptyValue
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, err
	}
	return true, nil
}

func (r *sqliteRepository) Close() error {
	return r.db.Close()
}
