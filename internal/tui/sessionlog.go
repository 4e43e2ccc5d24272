package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
)

// maxSessionLines caps the panel; older lines live on in the journal.
const maxSessionLines = 1000

// SessionLog is the dashboard-wide activity panel. New lines are stamped
// with the local time and the view follows the newest line.
type SessionLog struct {
	lines []string
	vp    viewport.Model
}

func NewSessionLog() *SessionLog {
	return &SessionLog{vp: viewport.New(80, 6)}
}

// Append stamps msg and adds it at the bottom.
func (s *SessionLog) Append(at time.Time, msg string) {
	s.lines = append(s.lines, "["+at.Format("15:04:05")+"] "+msg)
	s.trim()
	s.refresh()
}

// Backfill puts lines the backend already logged before anything received
// during this session. They keep their own timestamps.
func (s *SessionLog) Backfill(lines []string) {
	if len(lines) == 0 {
		return
	}
	s.lines = append(append([]string(nil), lines...), s.lines...)
	s.trim()
	s.refresh()
}

func (s *SessionLog) Lines() []string {
	return s.lines
}

func (s *SessionLog) SetSize(width, height int) {
	s.vp.Width = width
	if height < 1 {
		height = 1
	}
	s.vp.Height = height
	s.refresh()
}

func (s *SessionLog) View() string {
	return s.vp.View()
}

func (s *SessionLog) trim() {
	if over := len(s.lines) - maxSessionLines; over > 0 {
		s.lines = append(s.lines[:0], s.lines[over:]...)
	}
}

func (s *SessionLog) refresh() {
	s.vp.SetContent(strings.Join(s.lines, "\n"))
	s.vp.GotoBottom()
}
