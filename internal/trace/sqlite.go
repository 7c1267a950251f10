package trace

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteSink persists evaluation events to a local SQLite audit database.
type SQLiteSink struct {
	db *sql.DB
}

// NewSQLiteSink opens (or creates) the audit database at dsn and configures
// WAL mode.
func NewSQLiteSink(dsn string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "trace: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "trace: exec %s", pragma)
		}
	}

	s := &SQLiteSink{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS decisions (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	section     TEXT NOT NULL,
	iteration   INTEGER NOT NULL DEFAULT 0,
	context     TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	reasoning   TEXT,
	confidence  REAL NOT NULL,
	recorded_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS metrics (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	value       REAL NOT NULL,
	tags        TEXT,
	recorded_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_session ON decisions(session_id);
CREATE INDEX IF NOT EXISTS idx_metrics_name ON metrics(name);
`

func (s *SQLiteSink) migrate() error {
	_, err := s.db.Exec(sqliteMigration)
	return eris.Wrap(err, "trace: migrate")
}

func (s *SQLiteSink) RecordDecision(ctx context.Context, ev DecisionEvent) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decisions (session_id, section, iteration, context, outcome, reasoning, confidence, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.SessionID, ev.Section, ev.Iteration, ev.Context, ev.Outcome, ev.Reasoning, ev.Confidence, ev.Timestamp,
	)
	return eris.Wrap(err, "trace: insert decision")
}

func (s *SQLiteSink) RecordMetric(ctx context.Context, ev MetricEvent) error {
	tagsJSON, err := json.Marshal(ev.Tags)
	if err != nil {
		return eris.Wrap(err, "trace: marshal tags")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO metrics (name, value, tags, recorded_at) VALUES (?, ?, ?, ?)`,
		ev.Name, ev.Value, string(tagsJSON), ev.Timestamp,
	)
	return eris.Wrap(err, "trace: insert metric")
}

// SessionSummary aggregates the recorded decisions for one session.
type SessionSummary struct {
	SessionID   string
	Sections    int
	Decisions   int
	LastOutcome string
	LastAt      time.Time
}

// RecentSessions returns per-session decision summaries, most recent first.
func (s *SQLiteSink) RecentSessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.session_id,
		       COUNT(DISTINCT d.section),
		       COUNT(*),
		       (SELECT outcome FROM decisions WHERE session_id = d.session_id ORDER BY id DESC LIMIT 1),
		       MAX(d.recorded_at)
		FROM decisions d
		GROUP BY d.session_id
		ORDER BY MAX(d.recorded_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "trace: query sessions")
	}
	defer rows.Close() //nolint:errcheck

	var out []SessionSummary
	for rows.Next() {
		var (
			sum    SessionSummary
			lastAt string
		)
		if err := rows.Scan(&sum.SessionID, &sum.Sections, &sum.Decisions, &sum.LastOutcome, &lastAt); err != nil {
			return nil, eris.Wrap(err, "trace: scan session summary")
		}
		// Aggregates lose the column's declared type, so the timestamp
		// comes back as text.
		sum.LastAt = parseRecordedAt(lastAt)
		out = append(out, sum)
	}
	return out, eris.Wrap(rows.Err(), "trace: iterate sessions")
}

var recordedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
}

func parseRecordedAt(s string) time.Time {
	for _, layout := range recordedAtLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts
		}
	}
	return time.Time{}
}

// Close closes the underlying database.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
