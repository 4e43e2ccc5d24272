// Package appmon tracks the companion application the backend supervises.
package appmon

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

type API interface {
	AppStatus(ctx context.Context) (models.AppStatusResponse, error)
	AppStart(ctx context.Context) (models.CommandResult, error)
	AppStop(ctx context.Context) (models.CommandResult, error)
}

type Op int

const (
	OpPoll Op = iota
	OpStart
	OpStop
)

// Result is produced off the UI goroutine and applied with Monitor.Apply.
type Result struct {
	Op    Op
	State models.AppState
	// Line goes to the session log when non-empty.
	Line   string
	Repoll bool
	Err    error
}

// Monitor holds the last known application state. Poll, Start and Stop only
// talk to the backend; Apply is the single place the state changes.
type Monitor struct {
	api    API
	logger zerolog.Logger
	state  models.AppState
}

func New(api API, logger zerolog.Logger) *Monitor {
	return &Monitor{api: api, logger: logger}
}

func (m *Monitor) State() models.AppState {
	return m.state
}

func (m *Monitor) Poll(ctx context.Context) Result {
	resp, err := m.api.AppStatus(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("checking app status")
		return Result{Op: OpPoll, Err: err}
	}
	if resp.Status == string(models.AppStateRunning) {
		return Result{Op: OpPoll, State: models.AppStateRunning}
	}
	if resp.Status == "error" {
		m.logger.Warn().Str("message", resp.Message).Msg("backend could not inspect app")
	}
	return Result{Op: OpPoll, State: models.AppStateStopped}
}

func (m *Monitor) Start(ctx context.Context) Result {
	resp, err := m.api.AppStart(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("starting app")
		return Result{Op: OpStart, Err: err, Line: "Error starting application"}
	}
	switch resp.Status {
	case "started":
		return Result{Op: OpStart, Repoll: true, Line: "Application started successfully"}
	case "already_running":
		return Result{Op: OpStart, Repoll: true, Line: "Application is already running"}
	}
	m.logger.Warn().Str("status", resp.Status).Str("message", resp.Message).Msg("app start refused")
	if resp.Message != "" {
		return Result{Op: OpStart, Line: "Error starting application: " + resp.Message}
	}
	return Result{Op: OpStart, Line: "Error starting application"}
}

// Stop asks the backend to stop the application. A confirmed stop forces the
// indicator to Stopped without waiting for the next poll.
func (m *Monitor) Stop(ctx context.Context) Result {
	resp, err := m.api.AppStop(ctx)
	if err != nil {
		m.logger.Error().Err(err).Msg("stopping app")
		return Result{Op: OpStop, Err: err, Line: "Error stopping application"}
	}
	switch resp.Status {
	case "stopped":
		return Result{Op: OpStop, State: models.AppStateStopped, Repoll: true, Line: "Application stopped successfully"}
	case "not_running":
		return Result{Op: OpStop, State: models.AppStateStopped, Line: "Application was not running"}
	}
	m.logger.Warn().Str("status", resp.Status).Str("message", resp.Message).Msg("app stop refused")
	if resp.Message != "" {
		return Result{Op: OpStop, Line: "Error stopping application: " + resp.Message}
	}
	return Result{Op: OpStop, Line: "Error stopping application"}
}

// Apply records the state carried by r. Failed requests and results without
// a state leave the indicator as it was. It reports whether the state moved.
func (m *Monitor) Apply(r Result) bool {
	if r.Err != nil || r.State == models.AppStateUnknown || r.State == m.state {
		return false
	}
	m.state = r.State
	return true
}
