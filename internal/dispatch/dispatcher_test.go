package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrAliAmani/bids-scraping/internal/models"
)

type fakeAPI struct {
	mu      sync.Mutex
	starts  []string
	stops   []string
	stopErr map[string]error
	stopMsg map[string]models.CommandResult
}

func (f *fakeAPI) Start(ctx context.Context, script string) (models.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, script)
	return models.CommandResult{Status: "success"}, nil
}

func (f *fakeAPI) Stop(ctx context.Context, script string) (models.CommandResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops = append(f.stops, script)
	if err := f.stopErr[script]; err != nil {
		return models.CommandResult{}, err
	}
	if res, ok := f.stopMsg[script]; ok {
		return res, nil
	}
	return models.CommandResult{Status: "success"}, nil
}

func TestStopAllWithNothingRunningMakesNoCalls(t *testing.T) {
	api := &fakeAPI{}
	d := New(api, zerolog.Nop(), 0)

	res := d.StopAll(context.Background(), nil)
	assert.Empty(t, api.stops)
	assert.False(t, res.Refetch)
	assert.Equal(t, []string{"No running scripts to stop"}, res.Lines)
}

func TestStopAllIsolatesFailures(t *testing.T) {
	api := &fakeAPI{
		stopErr: map[string]error{"b.py": errors.New("connection reset")},
		stopMsg: map[string]models.CommandResult{"c.py": {Status: "error", Message: "Script not running"}},
	}
	d := New(api, zerolog.Nop(), 2)

	res := d.StopAll(context.Background(), []string{"a.py", "b.py", "c.py"})
	require.True(t, res.Refetch)
	assert.ElementsMatch(t, []string{"a.py", "b.py", "c.py"}, api.stops)
	assert.Equal(t, []string{
		"Stopping 3 running scripts...",
		"Script a.py stopped successfully",
		"Error stopping script b.py",
		"Error stopping script c.py: Script not running",
		"All stop requests completed",
	}, res.Lines)
	require.Len(t, res.Outcomes, 3)
	assert.True(t, res.Outcomes[0].OK)
	assert.Error(t, res.Outcomes[1].Err)
	assert.False(t, res.Outcomes[2].OK)
}

func TestStopSingle(t *testing.T) {
	api := &fakeAPI{}
	d := New(api, zerolog.Nop(), 0)
	out := d.Stop(context.Background(), "a.py")
	assert.True(t, out.OK)
	assert.Equal(t, "Script a.py stopped successfully", out.Line)
}

func TestStartAndStartAll(t *testing.T) {
	api := &fakeAPI{}
	d := New(api, zerolog.Nop(), 0)

	assert.True(t, d.Start(context.Background(), "a.py").OK)
	assert.True(t, d.StartAll(context.Background()).OK)
	assert.Equal(t, []string{"a.py", ""}, api.starts)
}
