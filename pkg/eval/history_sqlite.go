package eval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteHistoryStore persists eval history in SQLite.
type SQLiteHistoryStore struct {
	db *sql.DB
}

// NewSQLiteHistoryStore wraps db and ensures the schema exists.
func NewSQLiteHistoryStore(db *sql.DB) (*SQLiteHistoryStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureHistorySchema(db); err != nil {
		return nil, err
	}
	return &SQLiteHistoryStore{db: db}, nil
}

// busyTimeoutMs bounds how long a writer waits on a locked database.
const busyTimeoutMs = 5000

// OpenSQLiteHistory opens (or creates) the database at path. Writers share a
// single connection so parallel eval runs queue instead of failing with
// SQLITE_BUSY.
func OpenSQLiteHistory(path string) (*SQLiteHistoryStore, func() error, error) {
	db, err := sql.Open("sqlite", historyDSN(path))
	if err != nil {
		return nil, nil, fmt.Errorf("open history db: %w", err)
	}
	db.SetMaxOpenConns(1)
	store, err := NewSQLiteHistoryStore(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	return store, db.Close, nil
}

// historyDSN appends the busy timeout pragma, keeping any query the caller
// already set.
func historyDSN(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", path, sep, busyTimeoutMs)
}

// Record stores one entry.
func (s *SQLiteHistoryStore) Record(ctx context.Context, e HistoryEntry) error {
	checks, err := encodeChecks(e.Checks)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO eval_history (
			eval_id, run_id, pack, provider, passed, converged, cycles, fact_count,
			duration_ms, error_text, checks_json, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.EvalID,
		e.RunID,
		e.Pack,
		e.Provider,
		e.Passed,
		e.Converged,
		e.Cycles,
		e.FactCount,
		e.DurationMs,
		e.Error,
		checks,
		normalizeTime(e.RecordedAt),
	)
	return err
}

// List returns entries matching filter, newest first.
func (s *SQLiteHistoryStore) List(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	query := `
		SELECT eval_id, run_id, pack, provider, passed, converged, cycles, fact_count,
			duration_ms, error_text, checks_json, recorded_at
		FROM eval_history
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.EvalID != "" {
		addFilter("eval_id = ?", filter.EvalID)
	}
	if filter.FailedOnly {
		addFilter("passed = ?", false)
	}
	query += where + " ORDER BY recorded_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			e          HistoryEntry
			provider   sql.NullString
			errText    sql.NullString
			checksJSON sql.NullString
			recorded   sql.NullTime
		)
		if err := rows.Scan(
			&e.EvalID,
			&e.RunID,
			&e.Pack,
			&provider,
			&e.Passed,
			&e.Converged,
			&e.Cycles,
			&e.FactCount,
			&e.DurationMs,
			&errText,
			&checksJSON,
			&recorded,
		); err != nil {
			return nil, err
		}
		e.Provider = provider.String
		e.Error = errText.String
		if checks, err := decodeChecks(checksJSON.String); err == nil {
			e.Checks = checks
		}
		if recorded.Valid {
			e.RecordedAt = recorded.Time.UTC()
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func ensureHistorySchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS eval_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			eval_id TEXT NOT NULL,
			run_id TEXT NOT NULL,
			pack TEXT NOT NULL,
			provider TEXT,
			passed BOOLEAN NOT NULL,
			converged BOOLEAN NOT NULL,
			cycles INTEGER NOT NULL,
			fact_count INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			error_text TEXT,
			checks_json TEXT,
			recorded_at TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_eval_history_eval ON eval_history(eval_id);
		CREATE INDEX IF NOT EXISTS idx_eval_history_recorded ON eval_history(recorded_at);
	`)
	return err
}
