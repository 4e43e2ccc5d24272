// Package dispatch issues start/stop commands against the script manager and
// turns the answers into session log lines.
package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

// API is the slice of the backend client the dispatcher needs.
type API interface {
	Start(ctx context.Context, script string) (models.CommandResult, error)
	Stop(ctx context.Context, script string) (models.CommandResult, error)
}

// Outcome is the result of one command. Line is what the session log shows;
// it is empty when there is nothing worth telling the user.
type Outcome struct {
	Script string
	OK     bool
	Line   string
	Err    error
}

type StopAllResult struct {
	Lines    []string
	Outcomes []Outcome
	// Refetch is false when nothing was sent.
	Refetch bool
}

type Dispatcher struct {
	api    API
	logger zerolog.Logger
	limit  int
}

// New returns a dispatcher. limit caps concurrent stop requests in StopAll;
// zero or less means one request per running script at once.
func New(api API, logger zerolog.Logger, limit int) *Dispatcher {
	return &Dispatcher{api: api, logger: logger, limit: limit}
}

// Start launches one script. The caller re-fetches whatever the outcome.
func (d *Dispatcher) Start(ctx context.Context, script string) Outcome {
	result, err := d.api.Start(ctx, script)
	if err != nil {
		d.logger.Error().Err(err).Str("script", script).Msg("start request failed")
		return Outcome{Script: script, Err: err, Line: fmt.Sprintf("Error starting script %s", script)}
	}
	if !result.OK() && result.Status != "" {
		return Outcome{Script: script, Line: fmt.Sprintf("Error starting script %s: %s", script, result.Message)}
	}
	return Outcome{Script: script, OK: true}
}

// StartAll asks the backend to queue every script.
func (d *Dispatcher) StartAll(ctx context.Context) Outcome {
	result, err := d.api.Start(ctx, "")
	if err != nil {
		d.logger.Error().Err(err).Msg("start-all request failed")
		return Outcome{Err: err, Line: "Error starting scripts"}
	}
	if !result.OK() && result.Status != "" {
		return Outcome{Line: "Error starting scripts: " + result.Message}
	}
	return Outcome{OK: true}
}

func (d *Dispatcher) Stop(ctx context.Context, script string) Outcome {
	result, err := d.api.Stop(ctx, script)
	if err != nil {
		d.logger.Error().Err(err).Str("script", script).Msg("stop request failed")
		return Outcome{Script: script, Err: err, Line: fmt.Sprintf("Error stopping script %s", script)}
	}
	if result.OK() {
		return Outcome{Script: script, OK: true, Line: fmt.Sprintf("Script %s stopped successfully", script)}
	}
	return Outcome{Script: script, Line: fmt.Sprintf("Error stopping script %s: %s", script, result.Message)}
}

// StopAll stops every script in running concurrently. A failing request is
// logged and does not cancel the others. Lines come back in input order.
func (d *Dispatcher) StopAll(ctx context.Context, running []string) StopAllResult {
	if len(running) == 0 {
		return StopAllResult{Lines: []string{"No running scripts to stop"}}
	}

	outcomes := make([]Outcome, len(running))
	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}
	for i, script := range running {
		g.Go(func() error {
			outcomes[i] = d.Stop(ctx, script)
			return nil
		})
	}
	_ = g.Wait()

	lines := make([]string, 0, len(running)+2)
	lines = append(lines, fmt.Sprintf("Stopping %d running scripts...", len(running)))
	for _, o := range outcomes {
		lines = append(lines, o.Line)
	}
	lines = append(lines, "All stop requests completed")
	return StopAllResult{Lines: lines, Outcomes: outcomes, Refetch: true}
}
