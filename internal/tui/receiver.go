package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrAliAmani/bids-scraping/internal/models"
	"github.com/MrAliAmani/bids-scraping/internal/push"
	"github.com/MrAliAmani/bids-scraping/internal/status"
)

type connState int

const (
	connConnecting connState = iota
	connLive
	connDown
	connError
	connOff
)

// maxEventBatch bounds how many queued push events one update applies.
const maxEventBatch = 64

type pushMsg struct {
	events []push.Event
	ok     bool
}

// waitForEvents blocks for the next push event and drains whatever else is
// already queued so a burst costs one redraw.
func waitForEvents(ch <-chan push.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return pushMsg{ok: false}
		}

		events := make([]push.Event, 0, maxEventBatch)
		events = append(events, event)
		for len(events) < maxEventBatch {
			select {
			case next, ok := <-ch:
				if !ok {
					return pushMsg{events: events, ok: true}
				}
				events = append(events, next)
			default:
				return pushMsg{events: events, ok: true}
			}
		}
		return pushMsg{events: events, ok: true}
	}
}

// receive merges one push event into the store. It returns the session log
// lines the event produces and any status transitions it caused. Events for
// scripts the store does not know change nothing but may still log.
func (a *App) receive(ev push.Event) ([]string, []status.Change) {
	switch ev.Name {
	case models.EventScriptOutput:
		var data models.ScriptOutputEvent
		if err := ev.Decode(&data); err != nil {
			a.logger.Warn().Err(err).Msg("dropping push event")
			return nil, nil
		}
		a.store.AppendLog(data.Script, data.Output)
		return []string{data.Output}, nil

	case models.EventProgressUpdate:
		var data models.ProgressUpdateEvent
		if err := ev.Decode(&data); err != nil {
			a.logger.Warn().Err(err).Msg("dropping push event")
			return nil, nil
		}
		var patch status.Patch
		progress := data.Progress
		if data.Type == models.ProgressTypeExcel {
			if data.Status != "" {
				excel := models.ExcelStatus(data.Status)
				patch.ExcelStatus = &excel
			}
			patch.ExcelProgress = &progress
		} else {
			patch.Progress = &progress
		}
		changes, _ := a.store.PatchByName(data.Script, patch)
		if data.Message == "" {
			return nil, changes
		}
		a.store.AppendLog(data.Script, data.Message)
		return []string{data.Message}, changes

	case models.EventScriptUpdate:
		var data models.ScriptUpdateEvent
		if err := ev.Decode(&data); err != nil {
			a.logger.Warn().Err(err).Msg("dropping push event")
			return nil, nil
		}
		patch := status.Patch{ExcelProgress: &data.ExcelProgress, Progress: data.Progress}
		if data.Status != "" {
			st := models.ScriptStatus(data.Status)
			patch.Status = &st
		}
		if data.ExcelStatus != "" {
			excel := models.ExcelStatus(data.ExcelStatus)
			patch.ExcelStatus = &excel
		}
		changes, ok := a.store.PatchByName(data.Script, patch)
		if !ok {
			a.logger.Debug().Str("script", data.Script).Msg("script_update for unknown script")
		}
		if ok && data.Message != "" {
			a.store.AppendLog(data.Script, data.Message)
		}
		return nil, changes

	case models.EventMainLog:
		var data models.MainLogEvent
		if err := ev.Decode(&data); err != nil {
			a.logger.Warn().Err(err).Msg("dropping push event")
			return nil, nil
		}
		return []string{data.Message}, nil

	case models.EventConnect:
		a.conn = connLive
		a.logger.Info().Msg("push channel connected")

	case models.EventConnectError:
		a.conn = connError
		a.logger.Error().Err(ev.Err).Msg("push channel connection error")

	case models.EventDisconnect:
		a.conn = connDown
		a.logger.Warn().Err(ev.Err).Msg("push channel disconnected")

	default:
		a.logger.Debug().Str("event", ev.Name).Msg("ignoring push event")
	}
	return nil, nil
}
