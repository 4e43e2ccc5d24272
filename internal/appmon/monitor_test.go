package appmon

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

type fakeAPI struct {
	status   models.AppStatusResponse
	start    models.CommandResult
	stop     models.CommandResult
	err      error
	requests []string
}

func (f *fakeAPI) AppStatus(ctx context.Context) (models.AppStatusResponse, error) {
	f.requests = append(f.requests, "status")
	return f.status, f.err
}

func (f *fakeAPI) AppStart(ctx context.Context) (models.CommandResult, error) {
	f.requests = append(f.requests, "start")
	return f.start, f.err
}

func (f *fakeAPI) AppStop(ctx context.Context) (models.CommandResult, error) {
	f.requests = append(f.requests, "stop")
	return f.stop, f.err
}

func TestPoll(t *testing.T) {
	api := &fakeAPI{status: models.AppStatusResponse{Status: "running", PID: 42}}
	m := New(api, zerolog.Nop())
	assert.Equal(t, models.AppStateUnknown, m.State())

	assert.True(t, m.Apply(m.Poll(context.Background())))
	assert.Equal(t, models.AppStateRunning, m.State())

	api.status = models.AppStatusResponse{Status: "error", Message: "access denied"}
	assert.True(t, m.Apply(m.Poll(context.Background())))
	assert.Equal(t, models.AppStateStopped, m.State())
}

func TestPollFailureKeepsState(t *testing.T) {
	api := &fakeAPI{status: models.AppStatusResponse{Status: "running"}}
	m := New(api, zerolog.Nop())
	m.Apply(m.Poll(context.Background()))

	api.err = errors.New("connection refused")
	res := m.Poll(context.Background())
	require.Error(t, res.Err)
	assert.False(t, m.Apply(res))
	assert.Equal(t, models.AppStateRunning, m.State())
}

func TestStart(t *testing.T) {
	api := &fakeAPI{start: models.CommandResult{Status: "started"}}
	m := New(api, zerolog.Nop())

	res := m.Start(context.Background())
	assert.Equal(t, "Application started successfully", res.Line)
	assert.True(t, res.Repoll)
	assert.False(t, m.Apply(res), "start waits for the re-poll to change the indicator")

	api.err = errors.New("timeout")
	res = m.Start(context.Background())
	assert.Equal(t, "Error starting application", res.Line)
	assert.False(t, res.Repoll)
}

func TestStopForcesStopped(t *testing.T) {
	api := &fakeAPI{
		status: models.AppStatusResponse{Status: "running"},
		stop:   models.CommandResult{Status: "stopped", Message: "App and all scripts stopped successfully"},
	}
	m := New(api, zerolog.Nop())
	m.Apply(m.Poll(context.Background()))
	require.Equal(t, models.AppStateRunning, m.State())

	res := m.Stop(context.Background())
	assert.Equal(t, "Application stopped successfully", res.Line)
	assert.True(t, res.Repoll)
	assert.True(t, m.Apply(res))
	assert.Equal(t, models.AppStateStopped, m.State())
	assert.Equal(t, []string{"status", "stop"}, api.requests)
}

func TestStopFailure(t *testing.T) {
	api := &fakeAPI{status: models.AppStatusResponse{Status: "running"}}
	m := New(api, zerolog.Nop())
	m.Apply(m.Poll(context.Background()))

	api.err = errors.New("timeout")
	res := m.Stop(context.Background())
	assert.Equal(t, "Error stopping application", res.Line)
	assert.False(t, m.Apply(res))
	assert.Equal(t, models.AppStateRunning, m.State())
}

func TestRefusedCommandsCarryMessage(t *testing.T) {
	api := &fakeAPI{
		start: models.CommandResult{Status: "error", Message: "python not found"},
		stop:  models.CommandResult{Status: "not_running", Message: "App was not running"},
	}
	m := New(api, zerolog.Nop())

	assert.Equal(t, "Error starting application: python not found", m.Start(context.Background()).Line)

	res := m.Stop(context.Background())
	assert.Equal(t, "Application was not running", res.Line)
	assert.Equal(t, models.AppStateStopped, res.State)
}
