package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// schemaVersion identifies the decisions table layout.
const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS decisions (
	id                 TEXT PRIMARY KEY,
	request_id         TEXT NOT NULL,
	timestamp          TIMESTAMP NOT NULL,
	final              TEXT NOT NULL,
	source             TEXT NOT NULL,
	rule_outcome       TEXT NOT NULL,
	matched_rule_id    TEXT,
	matched_rule_name  TEXT,
	ai_analyzed        INTEGER NOT NULL DEFAULT 0,
	ai_recommendation  TEXT,
	ai_confidence      REAL NOT NULL DEFAULT 0,
	reasoning          TEXT,
	input              TEXT,
	evaluation_path    TEXT,
	processing_time_ms REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_decisions_timestamp ON decisions (timestamp);
CREATE INDEX IF NOT EXISTS idx_decisions_final ON decisions (final);
CREATE INDEX IF NOT EXISTS idx_decisions_request_id ON decisions (request_id);
`

// SQLiteConfig contains configuration for the SQLite audit backend.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections. Default 10.
	MaxOpenConns int

	// BusyTimeout is how long to wait on a locked database. Default 5s.
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/audit.db",
		MaxOpenConns: 10,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore implements Storage on a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStore opens the database, enables WAL mode and initializes the
// schema.
func NewSQLiteStore(config *SQLiteConfig, logger *slog.Logger) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, NewStorageError("open", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger.With("component", "audit.sqlite"),
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("audit storage initialized",
		"path", config.Path,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize enables WAL mode and creates the schema.
func (s *SQLiteStore) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return NewStorageError("enable_wal", err)
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return NewStorageError("set_busy_timeout", err)
	}

	if _, err := s.db.Exec(schema); err != nil {
		return NewStorageError("create_schema", err)
	}

	var version int
	err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return NewStorageError("insert_schema_version", err)
		}
	case err != nil:
		return NewStorageError("get_schema_version", err)
	case version != schemaVersion:
		return NewStorageError("schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", schemaVersion, version))
	}

	return nil
}

// Store persists one decision record.
func (s *SQLiteStore) Store(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO decisions (
			id, request_id, timestamp, final, source, rule_outcome,
			matched_rule_id, matched_rule_name,
			ai_analyzed, ai_recommendation, ai_confidence, reasoning,
			input, evaluation_path, processing_time_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		record.ID, record.RequestID, record.Timestamp, record.Final, record.Source, record.RuleOutcome,
		nullable(record.MatchedRuleID), nullable(record.MatchedRuleName),
		record.AIAnalyzed, nullable(record.AIRecommendation), record.AIConfidence, nullable(record.Reasoning),
		record.Input, record.EvaluationPath, record.ProcessingTimeMs,
	)
	if err != nil {
		return NewStorageError("store", err)
	}

	return nil
}

// Query retrieves decision records matching the filters, newest first.
func (s *SQLiteStore) Query(ctx context.Context, query *Query) ([]*Record, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT id, request_id, timestamp, final, source, rule_outcome, " +
		"matched_rule_id, matched_rule_name, ai_analyzed, ai_recommendation, " +
		"ai_confidence, reasoning, input, evaluation_path, processing_time_ms FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " ORDER BY timestamp DESC"

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, NewStorageError("query", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, NewStorageError("scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError("query", err)
	}

	return records, nil
}

// Count returns the number of records matching the filters.
func (s *SQLiteStore) Count(ctx context.Context, query *Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM decisions"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, NewStorageError("count", err)
	}

	return count, nil
}

// DeleteBefore removes records older than the cutoff and returns the count
// deleted.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM decisions WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, NewStorageError("delete", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, NewStorageError("delete", err)
	}

	return count, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return NewStorageError("close", err)
	}
	return nil
}

// buildWhereClause builds the WHERE clause (without the keyword) and its
// arguments from the query filters.
func buildWhereClause(query *Query) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if query.StartTime != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, *query.StartTime)
	}
	if query.EndTime != nil {
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, *query.EndTime)
	}
	if query.Final != "" {
		conditions = append(conditions, "final = ?")
		args = append(args, query.Final)
	}
	if query.Source != "" {
		conditions = append(conditions, "source = ?")
		args = append(args, query.Source)
	}
	if query.RequestID != "" {
		conditions = append(conditions, "request_id = ?")
		args = append(args, query.RequestID)
	}

	return strings.Join(conditions, " AND "), args
}

// scanRow scans one decisions row into a Record.
func scanRow(rows *sql.Rows) (*Record, error) {
	var record Record
	var matchedRuleID, matchedRuleName, aiRecommendation, reasoning sql.NullString

	err := rows.Scan(
		&record.ID, &record.RequestID, &record.Timestamp, &record.Final, &record.Source, &record.RuleOutcome,
		&matchedRuleID, &matchedRuleName, &record.AIAnalyzed, &aiRecommendation,
		&record.AIConfidence, &reasoning, &record.Input, &record.EvaluationPath, &record.ProcessingTimeMs,
	)
	if err != nil {
		return nil, err
	}

	record.MatchedRuleID = matchedRuleID.String
	record.MatchedRuleName = matchedRuleName.String
	record.AIRecommendation = aiRecommendation.String
	record.Reasoning = reasoning.String

	return &record, nil
}

// nullable maps empty strings to NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
