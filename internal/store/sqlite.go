// Package store implements the SQLite-backed local record keeper each
// profile's home directory owns: one row per flow run and one row per
// multiparty session, mirroring the authoritative state that otherwise
// lives only in the shared tree's files (spec §3, §4.3, §4.4).
package store

import (
	"context"
	"database/sql"
	"time"

	_ "modernc.org/sqlite"

	"github.com/openmined/biovault-desktop/internal/bverrors"
)

// Store wraps a profile-scoped SQLite database.
//
// Database location: {home}/biovault.db
//
//   - WAL mode for concurrent readers while the daemon writes.
//   - Foreign key constraints enabled.
//   - A small connection pool: up to five connections, two kept idle.
type Store struct {
	db *sql.DB
}

// Open opens (creating if absent) the SQLite database at path and runs
// migrations.
func Open(path string) (*Store, error) {
	connStr := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)"

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, bverrors.Wrap(bverrors.KindIO, "store.Open", "open database", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, bverrors.Wrap(bverrors.KindIO, "store.Open", "connect to database", err)
	}

	s := &Store{db: db}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS flow_runs (
			id TEXT PRIMARY KEY,
			flow_id TEXT NOT NULL,
			results_dir TEXT NOT NULL,
			working_dir TEXT NOT NULL,
			status TEXT NOT NULL,
			metadata_json TEXT NOT NULL DEFAULT '{}',
			container_id TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_flow_runs_flow_id ON flow_runs(flow_id)`,
		`CREATE TABLE IF NOT EXISTS multiparty_sessions (
			id TEXT PRIMARY KEY,
			flow TEXT NOT NULL,
			local_email TEXT NOT NULL,
			local_role TEXT NOT NULL,
			status TEXT NOT NULL,
			session_dir TEXT NOT NULL,
			local_run_id TEXT,
			thread_id TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now')),
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
		`CREATE TABLE IF NOT EXISTS bridge_audit_log (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			command TEXT NOT NULL,
			caller TEXT,
			success INTEGER NOT NULL,
			detail TEXT,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		)`,
	}

	for _, stmt := range migrations {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return bverrors.Wrap(bverrors.KindIO, "store.migrate", "apply migration", err)
		}
	}
	return nil
}

// UpsertFlowRun inserts or updates a flow run's persisted row.
func (s *Store) UpsertFlowRun(ctx context.Context, id, flowID, resultsDir, workingDir, status, metadataJSON, containerID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO flow_runs (id, flow_id, results_dir, working_dir, status, metadata_json, container_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			metadata_json = excluded.metadata_json,
			container_id = excluded.container_id,
			updated_at = datetime('now')
	`, id, flowID, resultsDir, workingDir, status, metadataJSON, containerID)
	if err != nil {
		return bverrors.Wrap(bverrors.KindIO, "store.UpsertFlowRun", "upsert flow run", err)
	}
	return nil
}

// UpsertSession inserts or updates a multiparty session's persisted row.
func (s *Store) UpsertSession(ctx context.Context, id, flow, localEmail, localRole, status, sessionDir string, localRunID, threadID *string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO multiparty_sessions (id, flow, local_email, local_role, status, session_dir, local_run_id, thread_id, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			local_run_id = excluded.local_run_id,
			thread_id = excluded.thread_id,
			updated_at = datetime('now')
	`, id, flow, localEmail, localRole, status, sessionDir, localRunID, threadID)
	if err != nil {
		return bverrors.Wrap(bverrors.KindIO, "store.UpsertSession", "upsert session", err)
	}
	return nil
}

// AppendAuditEntry records one bridge command invocation for the audit
// trail as a queryable table. It is separate from the bridge's
// agent_bridge_audit.jsonl file, which bridge.AuditLog writes on its own.
func (s *Store) AppendAuditEntry(ctx context.Context, command, caller string, success bool, detail string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bridge_audit_log (command, caller, success, detail) VALUES (?, ?, ?, ?)
	`, command, caller, success, detail)
	if err != nil {
		return bverrors.Wrap(bverrors.KindIO, "store.AppendAuditEntry", "insert audit entry", err)
	}
	return nil
}
