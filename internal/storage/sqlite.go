// Package storage journals dashboard sessions to SQLite so past session
// logs survive a restart.
package storage

import (
	"database/sql"
	"fmt"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

type Storage struct {
	db *sql.DB
}

func New(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// One writer; the TUI journals from several command goroutines.
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at TIMESTAMP NOT NULL,
		ended_at TIMESTAMP,
		base_url TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		created_at TIMESTAMP NOT NULL,
		message TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id INTEGER NOT NULL REFERENCES sessions(id),
		created_at TIMESTAMP NOT NULL,
		script TEXT NOT NULL,
		field TEXT NOT NULL,
		from_status TEXT NOT NULL,
		to_status TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_session_log_session ON session_log(session_id);
	CREATE INDEX IF NOT EXISTS idx_transitions_script ON transitions(script);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

func (s *Storage) CreateSession(baseURL string, startedAt time.Time) (int64, error) {
	result, err := s.db.Exec(
		`INSERT INTO sessions (started_at, base_url) VALUES (?, ?)`,
		startedAt.UTC(), baseURL,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (s *Storage) EndSession(id int64, endedAt time.Time) error {
	_, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, endedAt.UTC(), id)
	return err
}

func (s *Storage) AppendSessionLog(sessionID int64, at time.Time, message string) error {
	_, err := s.db.Exec(
		`INSERT INTO session_log (session_id, created_at, message) VALUES (?, ?, ?)`,
		sessionID, at.UTC(), message,
	)
	return err
}

// ListSessionLog returns the newest limit lines across all sessions, oldest
// first.
func (s *Storage) ListSessionLog(limit int) ([]*models.LogEntry, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, created_at, message FROM session_log ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*models.LogEntry
	for rows.Next() {
		var e models.LogEntry
		if err := rows.Scan(&e.ID, &e.SessionID, &e.CreatedAt, &e.Message); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	return entries, nil
}

func (s *Storage) RecordTransition(sessionID int64, at time.Time, t models.Transition) error {
	_, err := s.db.Exec(
		`INSERT INTO transitions (session_id, created_at, script, field, from_status, to_status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, at.UTC(), t.Script, t.Field, t.From, t.To,
	)
	return err
}

// ListTransitions returns the newest limit transitions for script, newest
// first. An empty script matches every script.
func (s *Storage) ListTransitions(script string, limit int) ([]*models.Transition, error) {
	rows, err := s.db.Query(
		`SELECT id, session_id, created_at, script, field, from_status, to_status
		 FROM transitions WHERE (? = '' OR script = ?) ORDER BY id DESC LIMIT ?`,
		script, script, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Transition
	for rows.Next() {
		var t models.Transition
		if err := rows.Scan(&t.ID, &t.SessionID, &t.CreatedAt, &t.Script, &t.Field, &t.From, &t.To); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (s *Storage) ListSessions(limit int) ([]*models.Session, error) {
	rows, err := s.db.Query(
		`SELECT s.id, s.started_at, s.ended_at, s.base_url,
		        (SELECT COUNT(*) FROM session_log l WHERE l.session_id = s.id)
		 FROM sessions s ORDER BY s.id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var sess models.Session
		var endedAt sql.NullTime
		if err := rows.Scan(&sess.ID, &sess.StartedAt, &endedAt, &sess.BaseURL, &sess.Lines); err != nil {
			return nil, err
		}
		if endedAt.Valid {
			sess.EndedAt = &endedAt.Time
		}
		sessions = append(sessions, &sess)
	}
	return sessions, rows.Err()
}

// DeleteSession removes a session and everything journaled under it.
func (s *Storage) DeleteSession(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM session_log WHERE session_id = ?`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM transitions WHERE session_id = ?`, id); err != nil {
		return err
	}
	res, err := tx.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("session %d not found", id)
	}

	return tx.Commit()
}

// FormatTimeAgo renders t relative to now for listings.
func FormatTimeAgo(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return t.Format("Jan 2")
	}
}
