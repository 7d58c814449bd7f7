package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SchemaVersion is the current audit schema version.
const SchemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id           TEXT PRIMARY KEY,
	run_id       TEXT NOT NULL,
	recorded_at  INTEGER NOT NULL,
	policy_id    TEXT NOT NULL,
	trigger_kind TEXT NOT NULL,
	phase        TEXT NOT NULL,
	node_id      TEXT,
	action       TEXT NOT NULL,
	rationale    TEXT,
	detail       TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_run_id      ON audit_records(run_id);
CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_records(recorded_at);
CREATE INDEX IF NOT EXISTS idx_audit_policy_id   ON audit_records(policy_id);

CREATE TABLE IF NOT EXISTS schema_version (
	version    INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);
`

const insertSchemaVersion = `
INSERT OR IGNORE INTO schema_version (version, applied_at) VALUES (?, strftime('%s','now'));
`

const getSchemaVersion = `
SELECT MAX(version) FROM schema_version;
`

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite audit backend. It initializes the
// schema and enables WAL mode if configured.
func NewSQLiteStorage(config *SQLiteConfig) (*SQLiteStorage, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)

	s := &SQLiteStorage{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite audit storage initialized",
		"path", config.Path,
		"wal_mode", config.WALMode,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(getSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

// Store persists an audit record.
func (s *SQLiteStorage) Store(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO audit_records (
			id, run_id, recorded_at,
			policy_id, trigger_kind, phase, node_id,
			action, rationale, detail
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID,
		record.RunID,
		record.RecordedAt.Unix(),
		record.PolicyID,
		record.Trigger,
		record.Phase,
		record.NodeID,
		record.Action,
		record.Rationale,
		record.Detail,
	)
	if err != nil {
		return NewStorageError("sqlite", "store", err)
	}

	return nil
}

// Query returns matching records, newest first.
func (s *SQLiteStorage) Query(ctx context.Context, q *Query) ([]*Record, error) {
	if q == nil {
		q = &Query{}
	}

	var (
		conds []string
		args  []any
	)

	if q.RunID != "" {
		conds = append(conds, "run_id = ?")
		args = append(args, q.RunID)
	}
	if q.PolicyID != "" {
		conds = append(conds, "policy_id = ?")
		args = append(args, q.PolicyID)
	}
	if q.Action != "" {
		conds = append(conds, "action = ?")
		args = append(args, q.Action)
	}
	if !q.Since.IsZero() {
		conds = append(conds, "recorded_at >= ?")
		args = append(args, q.Since.Unix())
	}
	if !q.Until.IsZero() {
		conds = append(conds, "recorded_at < ?")
		args = append(args, q.Until.Unix())
	}

	query := `
		SELECT id, run_id, recorded_at,
		       policy_id, trigger_kind, phase, node_id,
		       action, rationale, detail
		FROM audit_records
	`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY recorded_at DESC"

	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var (
			r          Record
			recordedAt int64
		)
		err := rows.Scan(
			&r.ID, &r.RunID, &recordedAt,
			&r.PolicyID, &r.Trigger, &r.Phase, &r.NodeID,
			&r.Action, &r.Rationale, &r.Detail,
		)
		if err != nil {
			return nil, NewStorageError("sqlite", "scan", err)
		}
		r.RecordedAt = time.Unix(recordedAt, 0).UTC()
		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, NewStorageError("sqlite", "query", err)
	}

	return records, nil
}

// DeleteBefore removes records recorded before the cutoff.
func (s *SQLiteStorage) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_records WHERE recorded_at < ?", cutoff.Unix())
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("sqlite", "delete", err)
	}

	return deleted, nil
}

// Count returns the total number of stored records.
func (s *SQLiteStorage) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_records").Scan(&count); err != nil {
		return 0, NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("sqlite", "close", err)
	}
	return nil
}
