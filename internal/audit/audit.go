// Package audit persists a trail of the bridge's remote side effects.
//
// Every update written to either system and every schema enumeration the
// bridge extends lands in Postgres, so destructive-leaning behavior can
// be reviewed and replayed after the fact.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_updates (
	id          BIGSERIAL PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	direction   TEXT NOT NULL,
	target      TEXT NOT NULL,
	fields      JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS enum_extensions (
	id          BIGSERIAL PRIMARY KEY,
	occurred_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	entity_type TEXT NOT NULL,
	field_name  TEXT NOT NULL,
	value       TEXT NOT NULL
);
`

// Store is a Postgres-backed audit trail.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Open connects to the audit database and creates the tables if needed.
func Open(ctx context.Context, databaseURL string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect audit database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create audit tables: %w", err)
	}
	return &Store{pool: pool, logger: logger.With("component", "audit")}, nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// RecordUpdate stores one batch of field values written to a target,
// identified as "PROJ-123" for issues or "Task:456" for entities.
func (s *Store) RecordUpdate(ctx context.Context, direction, target string, fields map[string]any) error {
	payload, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("encode audit fields: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sync_updates (direction, target, fields) VALUES ($1, $2, $3)`,
		direction, target, payload)
	if err != nil {
		return fmt.Errorf("record update: %w", err)
	}
	return nil
}

// RecordEnumExtension stores one value added to a closed Shotgun list
// field. Extensions change the schema for every entity of the type, so
// they get their own table.
func (s *Store) RecordEnumExtension(ctx context.Context, entityType, fieldName, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO enum_extensions (entity_type, field_name, value) VALUES ($1, $2, $3)`,
		entityType, fieldName, value)
	if err != nil {
		return fmt.Errorf("record enum extension: %w", err)
	}
	return nil
}

// UpdateRecord is one row of the sync_updates table.
type UpdateRecord struct {
	ID         int64
	OccurredAt time.Time
	Direction  string
	Target     string
	Fields     map[string]any
}

// RecentUpdates returns the newest update records, newest first.
func (s *Store) RecentUpdates(ctx context.Context, limit int) ([]*UpdateRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, occurred_at, direction, target, fields
		 FROM sync_updates ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	var records []*UpdateRecord
	for rows.Next() {
		var rec UpdateRecord
		var payload []byte
		if err := rows.Scan(&rec.ID, &rec.OccurredAt, &rec.Direction, &rec.Target, &payload); err != nil {
			return nil, fmt.Errorf("scan update row: %w", err)
		}
		if err := json.Unmarshal(payload, &rec.Fields); err != nil {
			return nil, fmt.Errorf("decode update fields: %w", err)
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}
