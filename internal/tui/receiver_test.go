package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrAliAmani/bids-scraping/internal/models"
	"github.com/MrAliAmani/bids-scraping/internal/push"
)

func seeded(t *testing.T) *App {
	t.Helper()
	backend := &fakeBackend{scripts: []models.Script{
		{Name: "a.py", Status: "Running", Progress: 10, ExcelStatus: "Pending"},
	}}
	a := newTestApp(backend, Options{Events: make(chan push.Event)})
	refresh(a)
	return a
}

func TestExcelProgressTouchesOnlyExcelFields(t *testing.T) {
	a := seeded(t)

	a.Update(pushMsg{ok: true, events: []push.Event{
		event(t, models.EventProgressUpdate, map[string]any{
			"script": "a.py", "type": "excel_processing", "status": "Running", "progress": 55, "message": "row 11 of 20",
		}),
	}})

	rec, _ := a.store.Get("a.py")
	assert.Equal(t, models.ScriptStatusRunning, rec.Status)
	assert.Equal(t, models.Percent(10), rec.Progress)
	assert.Equal(t, models.ExcelStatusRunning, rec.ExcelStatus)
	assert.Equal(t, models.Percent(55), rec.ExcelProgress)
	assert.Equal(t, []string{"row 11 of 20"}, rec.Logs)
}

func TestExcelProgressWithoutStatusKeepsExcelStatus(t *testing.T) {
	a := seeded(t)

	a.Update(pushMsg{ok: true, events: []push.Event{
		event(t, models.EventProgressUpdate, map[string]any{
			"script": "a.py", "type": "excel_processing", "progress": 20, "message": "working",
		}),
	}})

	rec, _ := a.store.Get("a.py")
	assert.Equal(t, models.ExcelStatusPending, rec.ExcelStatus)
	assert.Equal(t, models.Percent(20), rec.ExcelProgress)
}

func TestPrimaryProgressUpdate(t *testing.T) {
	a := seeded(t)

	a.Update(pushMsg{ok: true, events: []push.Event{
		event(t, models.EventProgressUpdate, map[string]any{"script": "a.py", "progress": 80, "message": "page 8"}),
	}})

	rec, _ := a.store.Get("a.py")
	assert.Equal(t, models.Percent(80), rec.Progress)
	assert.Equal(t, models.Percent(0), rec.ExcelProgress)
	assert.Contains(t, a.session.Lines()[0], "page 8")
}

func TestEventsForUnknownScriptsCreateNothing(t *testing.T) {
	a := seeded(t)

	a.Update(pushMsg{ok: true, events: []push.Event{
		event(t, models.EventScriptUpdate, map[string]any{"script": "ghost.py", "status": "Running", "excel_status": "Done", "excel_progress": 100}),
		event(t, models.EventProgressUpdate, map[string]any{"script": "ghost.py", "progress": 5, "message": "boo"}),
		event(t, models.EventScriptOutput, map[string]any{"script": "ghost.py", "output": "hello"}),
	}})

	assert.Equal(t, 1, a.store.Len())
	_, ok := a.store.Get("ghost.py")
	assert.False(t, ok)
	assert.Len(t, a.session.Lines(), 2, "messages still reach the session log")
}

func TestScriptOutputAndMainLog(t *testing.T) {
	a := seeded(t)

	a.Update(pushMsg{ok: true, events: []push.Event{
		event(t, models.EventScriptOutput, map[string]any{"script": "a.py", "output": "fetched 3 bids"}),
		event(t, models.EventMainLog, map[string]any{"message": "Processing Excel files"}),
	}})

	rec, _ := a.store.Get("a.py")
	assert.Equal(t, []string{"fetched 3 bids"}, rec.Logs)
	lines := a.session.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "[12:00:00] fetched 3 bids", lines[0])
	assert.Equal(t, "[12:00:00] Processing Excel files", lines[1])
}

func TestScriptUpdateFullPatch(t *testing.T) {
	a := seeded(t)

	a.Update(pushMsg{ok: true, events: []push.Event{
		event(t, models.EventScriptUpdate, map[string]any{
			"script": "a.py", "status": "success", "excel_status": "Done", "excel_progress": 100.0,
		}),
	}})

	rec, _ := a.store.Get("a.py")
	assert.Equal(t, models.ScriptStatusSuccess, rec.Status)
	assert.Equal(t, models.ExcelStatusDone, rec.ExcelStatus)
	assert.Equal(t, models.Percent(100), rec.ExcelProgress)
	assert.Equal(t, models.Percent(10), rec.Progress)
}

func TestMalformedEventIsDropped(t *testing.T) {
	a := seeded(t)

	a.Update(pushMsg{ok: true, events: []push.Event{
		{Name: models.EventScriptUpdate, Data: []byte(`{"script": 5`)},
	}})

	rec, _ := a.store.Get("a.py")
	assert.Equal(t, models.ScriptStatusRunning, rec.Status)
}

func TestConnectionIndicator(t *testing.T) {
	a := seeded(t)
	assert.Contains(t, a.View(), "Connecting")

	a.Update(pushMsg{ok: true, events: []push.Event{{Name: models.EventConnect}}})
	assert.Contains(t, a.View(), "Live")

	a.Update(pushMsg{ok: true, events: []push.Event{{Name: models.EventDisconnect}}})
	assert.Contains(t, a.View(), "Reconnecting")

	_, cmd := a.Update(pushMsg{ok: false})
	assert.Nil(t, cmd)
	assert.Nil(t, a.events)
}

func TestWaitForEventsBatches(t *testing.T) {
	ch := make(chan push.Event, 3)
	ch <- push.Event{Name: models.EventConnect}
	ch <- push.Event{Name: models.EventMainLog}
	ch <- push.Event{Name: models.EventMainLog}

	msg := waitForEvents(ch)().(pushMsg)
	assert.True(t, msg.ok)
	assert.Len(t, msg.events, 3)

	close(ch)
	done := make(chan pushMsg, 1)
	go func() { done <- waitForEvents(ch)().(pushMsg) }()
	select {
	case msg := <-done:
		assert.False(t, msg.ok)
	case <-time.After(time.Second):
		t.Fatal("closed channel did not end the wait")
	}
}

func TestScriptUpdateMessageStaysOnRecord(t *testing.T) {
	a := seeded(t)

	a.Update(pushMsg{ok: true, events: []push.Event{
		event(t, models.EventScriptUpdate, map[string]any{"script": "a.py", "status": "Running", "message": "page 2 of 9"}),
		event(t, models.EventScriptUpdate, map[string]any{"script": "ghost.py", "status": "Running", "message": "lost"}),
	}})

	rec, _ := a.store.Get("a.py")
	assert.Equal(t, []string{"page 2 of 9"}, rec.Logs)
	assert.Empty(t, a.session.Lines())
}
