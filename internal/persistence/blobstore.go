package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Record is one encoded snapshot headed for durable storage.
type Record struct {
	SchemaVersion int
	Data          []byte
	CreatedAt     time.Time
}

// ErrNoSnapshot is returned by Load when the store holds no snapshot yet
// (fresh deployment).
var ErrNoSnapshot = errors.New("no snapshot stored")

// BlobStore stores opaque snapshot documents. Save replaces or supersedes the
// previous snapshot; Load returns the most recent one.
type BlobStore interface {
	Save(ctx context.Context, rec Record) error
	Load(ctx context.Context) (Record, error)
	Close() error
}

// SQLStore is a BlobStore over database/sql. The dialect-specific statements
// are fixed at construction; see NewPostgresStore and NewSQLiteStore.
type SQLStore struct {
	db        *sql.DB
	insertSQL string
	selectSQL string
	schemaSQL string
}

// NewPostgresStore opens a BlobStore on PostgreSQL (lib/pq).
func NewPostgresStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db: db,
		insertSQL: `INSERT INTO stake_snapshots (schema_version, data, size_bytes, created_at)
			VALUES ($1, $2, $3, $4)`,
		selectSQL: `SELECT schema_version, data, created_at FROM stake_snapshots
			ORDER BY id DESC LIMIT 1`,
		schemaSQL: `CREATE TABLE IF NOT EXISTS stake_snapshots (
			id BIGSERIAL PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			data BYTEA NOT NULL,
			size_bytes BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
	}
}

// NewSQLiteStore opens a BlobStore on SQLite (modernc.org/sqlite), for
// single-node deployments without a database server.
func NewSQLiteStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db: db,
		insertSQL: `INSERT INTO stake_snapshots (schema_version, data, size_bytes, created_at)
			VALUES (?, ?, ?, ?)`,
		selectSQL: `SELECT schema_version, data, created_at FROM stake_snapshots
			ORDER BY id DESC LIMIT 1`,
		schemaSQL: `CREATE TABLE IF NOT EXISTS stake_snapshots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			schema_version INTEGER NOT NULL,
			data BLOB NOT NULL,
			size_bytes INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
	}
}

// EnsureSchema creates the snapshot table if it does not exist. For Postgres
// the migrate command is the managed path; this covers dev and SQLite setups.
func (s *SQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.schemaSQL); err != nil {
		return fmt.Errorf("create snapshot table: %w", err)
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, s.insertSQL,
		rec.SchemaVersion, rec.Data, len(rec.Data), rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *SQLStore) Load(ctx context.Context) (Record, error) {
	var rec Record
	row := s.db.QueryRowContext(ctx, s.selectSQL)
	if err := row.Scan(&rec.SchemaVersion, &rec.Data, &rec.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNoSnapshot
		}
		return Record{}, fmt.Errorf("load snapshot: %w", err)
	}
	return rec, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Prune deletes all but the newest n snapshots. Snapshots are full-state, so
// history beyond a small window is only useful for manual recovery.
func (s *SQLStore) Prune(ctx context.Context, keep int) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM stake_snapshots WHERE id NOT IN (
		SELECT id FROM stake_snapshots ORDER BY id DESC LIMIT `+fmt.Sprint(keep)+`)`)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}
