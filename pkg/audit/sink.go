package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/meshgate/core/pkg/types"
)

// Sink is the pluggable persistence interface the stream hands flushed
// batches to, off the hot path.
type Sink interface {
	Persist(ctx context.Context, entries []types.AuditEntry) error
}

// NoopSink discards every entry. This is the zero-durability default
// implied by the durability non-goal: audit persistence is illustrative,
// not required.
type NoopSink struct{}

func (NoopSink) Persist(ctx context.Context, entries []types.AuditEntry) error { return nil }

var _ Sink = NoopSink{}

const createAuditTableSQL = `
CREATE TABLE IF NOT EXISTS meshgate_audit_entries (
    id VARCHAR(255) PRIMARY KEY,
    trace_id VARCHAR(255) NOT NULL,
    request_id VARCHAR(255) NOT NULL,
    event_type VARCHAR(64) NOT NULL,
    severity VARCHAR(16) NOT NULL,
    entry_json TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
)`

const createAuditTraceIndexSQL = `
CREATE INDEX IF NOT EXISTS idx_meshgate_audit_trace_id ON meshgate_audit_entries(trace_id)`

// SQLSink persists audit entries as JSON blobs, adapted from the
// teacher's task-store pattern: a dialect-switched upsert over
// database/sql, demonstrated against three real drivers.
type SQLSink struct {
	db      *sql.DB
	dialect string
}

// NewSQLSink wraps db for the given dialect ("postgres", "mysql", or
// "sqlite") and bootstraps the audit table if it doesn't exist.
func NewSQLSink(db *sql.DB, dialect string) (*SQLSink, error) {
	if db == nil {
		return nil, fmt.Errorf("audit sink: database connection is required")
	}
	normalized := dialect
	if dialect == "sqlite3" {
		normalized = "sqlite"
	}
	switch normalized {
	case "postgres", "mysql", "sqlite":
	default:
		return nil, fmt.Errorf("audit sink: unsupported dialect %q (supported: postgres, mysql, sqlite)", dialect)
	}

	s := &SQLSink{db: db, dialect: normalized}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("audit sink: init schema: %w", err)
	}
	return s, nil
}

func (s *SQLSink) initSchema() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.db.ExecContext(ctx, createAuditTableSQL); err != nil {
		return fmt.Errorf("create meshgate_audit_entries table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, createAuditTraceIndexSQL); err != nil {
		return fmt.Errorf("create trace_id index: %w", err)
	}
	return nil
}

func (s *SQLSink) Persist(ctx context.Context, entries []types.AuditEntry) error {
	for _, entry := range entries {
		if err := s.persistOne(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLSink) persistOne(ctx context.Context, entry types.AuditEntry) error {
	blob, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal audit entry %s: %w", entry.ID, err)
	}

	query := `
INSERT INTO meshgate_audit_entries (id, trace_id, request_id, event_type, severity, entry_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE entry_json = VALUES(entry_json)
`
	args := []any{entry.ID, entry.TraceID, entry.RequestID, string(entry.EventType), string(entry.Severity), string(blob), entry.Timestamp}

	switch s.dialect {
	case "postgres":
		query = `
INSERT INTO meshgate_audit_entries (id, trace_id, request_id, event_type, severity, entry_json, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET entry_json = EXCLUDED.entry_json
`
	case "sqlite":
		query = `
INSERT INTO meshgate_audit_entries (id, trace_id, request_id, event_type, severity, entry_json, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET entry_json = excluded.entry_json
`
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("persist audit entry %s: %w", entry.ID, err)
	}
	return nil
}

var _ Sink = (*SQLSink)(nil)
