package models

import "time"

// Session is one dashboard run against a backend.
type Session struct {
	ID        int64
	StartedAt time.Time
	EndedAt   *time.Time
	BaseURL   string
	Lines     int
}

// LogEntry is a session log panel line as journaled.
type LogEntry struct {
	ID        int64
	SessionID int64
	CreatedAt time.Time
	Message   string
}

// Transition is a journaled status change of one script.
type Transition struct {
	ID        int64
	SessionID int64
	CreatedAt time.Time
	Script    string
	Field     string
	From      string
	To        string
}
