package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrAliAmani/bids-scraping/internal/appmon"
	"github.com/MrAliAmani/bids-scraping/internal/client"
	"github.com/MrAliAmani/bids-scraping/internal/dispatch"
	"github.com/MrAliAmani/bids-scraping/internal/storage"
)

type backend struct {
	mu      sync.Mutex
	stopped []string
}

func (b *backend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/scripts", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"name": "scrapers/very_long_example_script_name.py", "status": "Running", "progress": 40, "runtime": "0:01:02.123"},
			{"name": "scrapers/short.py", "status": "Success", "progress": 100, "excel_status": "Done", "excel_progress": 100},
		})
	})
	mux.HandleFunc("/api/master/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"running": 1, "completed": 1})
	})
	mux.HandleFunc("/api/stop", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Script string `json:"script"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		b.mu.Lock()
		b.stopped = append(b.stopped, body.Script)
		b.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	})
	mux.HandleFunc("/api/logs/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"status": "error", "message": "Log file not found"})
	})
	mux.HandleFunc("/api/app/status", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "running", "pid": 4242})
	})
	return mux
}

func TestPrintStatus(t *testing.T) {
	srv := httptest.NewServer((&backend{}).handler())
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, printStatus(context.Background(), &out, client.New(srv.URL, time.Second)))

	text := out.String()
	assert.Contains(t, text, "very_long_example_scri...")
	assert.Contains(t, text, "0:01:02")
	assert.NotContains(t, text, "0:01:02.123")
	assert.Contains(t, text, "Excel: Pending")
	assert.Contains(t, text, "Excel: Done")
	assert.Contains(t, text, "Total 2")
}

func TestStopAllOnlyStopsRunning(t *testing.T) {
	b := &backend{}
	srv := httptest.NewServer(b.handler())
	defer srv.Close()

	api := client.New(srv.URL, time.Second)
	var out bytes.Buffer
	require.NoError(t, stopAll(context.Background(), &out, api, dispatch.New(api, zerolog.Nop(), 2)))

	assert.Equal(t, []string{"scrapers/very_long_example_script_name.py"}, b.stopped)
	assert.Contains(t, out.String(), "Stopping 1 running scripts...")
	assert.Contains(t, out.String(), "All stop requests completed")
}

func TestPrintLogsMissing(t *testing.T) {
	srv := httptest.NewServer((&backend{}).handler())
	defer srv.Close()

	var out bytes.Buffer
	require.NoError(t, printLogs(context.Background(), &out, client.New(srv.URL, time.Second), "scrapers/short.py"))
	assert.Equal(t, "Log file not found\n", out.String())
}

func TestAppStatus(t *testing.T) {
	srv := httptest.NewServer((&backend{}).handler())
	defer srv.Close()

	m := appmon.New(client.New(srv.URL, time.Second), zerolog.Nop())
	var out bytes.Buffer
	require.NoError(t, runAppOp(context.Background(), &out, m, appmon.OpPoll))
	assert.Equal(t, "App Running\n", out.String())
}

func TestPrintHistory(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	var out bytes.Buffer
	require.NoError(t, printHistory(&out, store, 10))
	assert.Contains(t, out.String(), "No journaled session log lines.")

	id, err := store.CreateSession("http://localhost:5000", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.AppendSessionLog(id, time.Now(), "Script a.py stopped successfully"))

	out.Reset()
	require.NoError(t, printHistory(&out, store, 10))
	assert.Contains(t, out.String(), "Script a.py stopped successfully")

	out.Reset()
	require.NoError(t, printSessions(&out, store, 10))
	assert.Contains(t, out.String(), "just now")
	assert.Contains(t, out.String(), "open")
}

func TestDeleteSession(t *testing.T) {
	store, err := storage.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer store.Close()

	id, err := store.CreateSession("http://localhost:5000", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.AppendSessionLog(id, time.Now(), "Started all scripts"))

	var out bytes.Buffer
	require.NoError(t, deleteSession(&out, store, id))
	assert.Equal(t, fmt.Sprintf("Deleted session #%d\n", id), out.String())

	out.Reset()
	require.NoError(t, printSessions(&out, store, 10))
	assert.Equal(t, "No sessions found.\n", out.String())

	assert.Error(t, deleteSession(&out, store, id))
}
