package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kotbarsikow/Shed-parser-nuwee/internal/models"
)

const snapshotSchema = `CREATE TABLE IF NOT EXISTS schedule_snapshots (
	scope TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
)`

// SnapshotSQLRepository keeps one schedule snapshot per scope in schedule_snapshots.
// It works against PostgreSQL and SQLite alike.
type SnapshotSQLRepository struct {
	db    *sqlx.DB
	scope string
}

// NewSnapshotSQLRepository constructs the repository.
func NewSnapshotSQLRepository(db *sqlx.DB, scope string) *SnapshotSQLRepository {
	if scope == "" {
		scope = "default"
	}
	return &SnapshotSQLRepository{db: db, scope: scope}
}

// EnsureSchema creates the snapshot table when missing.
func (r *SnapshotSQLRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("create schedule_snapshots: %w", err)
	}
	return nil
}

// Load returns the snapshot of the scope, or an empty schedule when no row exists.
func (r *SnapshotSQLRepository) Load(ctx context.Context) ([]models.LessonRecord, error) {
	query := r.db.Rebind(`SELECT payload FROM schedule_snapshots WHERE scope = ?`)
	var payload string
	if err := r.db.GetContext(ctx, &payload, query, r.scope); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []models.LessonRecord{}, nil
		}
		return nil, fmt.Errorf("load schedule snapshot: %w", err)
	}
	return decodeSnapshot([]byte(payload))
}

// Persist replaces the snapshot of the scope.
func (r *SnapshotSQLRepository) Persist(ctx context.Context, records []models.LessonRecord) error {
	payload, err := encodeSnapshot(records, false)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`INSERT INTO schedule_snapshots (scope, payload, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (scope)
DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`)
	if _, err := r.db.ExecContext(ctx, query, r.scope, string(payload), time.Now().UTC()); err != nil {
		return fmt.Errorf("persist schedule snapshot: %w", err)
	}
	return nil
}
