package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("BIDSDASH_DATA_DIR", dir)
	for _, key := range []string{"BIDSDASH_URL", "BIDSDASH_LOG_LEVEL", "BIDSDASH_HOOKS", "BIDSDASH_JOURNAL"} {
		if v, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}
	return dir
}

func TestDefaults(t *testing.T) {
	dir := isolate(t)

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.BaseURL)
	assert.Equal(t, 2*time.Second, c.PollInterval)
	assert.Equal(t, 5*time.Second, c.AppPollInterval)
	assert.Equal(t, 30*time.Second, c.RequestTimeout)
	assert.Equal(t, filepath.Join(dir, "journal.db"), c.DBPath)
	assert.Equal(t, filepath.Join(dir, "bidsdash.log"), c.LogPath)
	assert.True(t, c.Journal)
	assert.NoError(t, c.Validate())
}

func TestFileThenEnv(t *testing.T) {
	dir := isolate(t)
	yaml := `
base_url: http://scraper.local:8080/
poll_interval: 500ms
app_poll_interval: 10s
request_timeout: 3s
stop_concurrency: 2
hooks_file: hooks.lua
log_level: debug
journal: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	c, err := New("")
	require.NoError(t, err)
	assert.Equal(t, "http://scraper.local:8080", c.BaseURL)
	assert.Equal(t, 500*time.Millisecond, c.PollInterval)
	assert.Equal(t, 10*time.Second, c.AppPollInterval)
	assert.Equal(t, 3*time.Second, c.RequestTimeout)
	assert.Equal(t, 2, c.StopConcurrency)
	assert.Equal(t, filepath.Join(dir, "hooks.lua"), c.HooksFile)
	assert.Equal(t, "debug", c.LogLevel)
	assert.False(t, c.Journal)

	t.Setenv("BIDSDASH_URL", "https://other:9000")
	t.Setenv("BIDSDASH_JOURNAL", "true")
	c, err = New("")
	require.NoError(t, err)
	assert.Equal(t, "https://other:9000", c.BaseURL)
	assert.True(t, c.Journal)
}

func TestExplicitFileMustExist(t *testing.T) {
	dir := isolate(t)
	_, err := New(filepath.Join(dir, "nope.yaml"))
	assert.Error(t, err)
}

func TestBadYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval: [oops"), 0o644))
	_, err := New(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	isolate(t)
	c, err := New("")
	require.NoError(t, err)

	c.BaseURL = "localhost:5000"
	assert.Error(t, c.Validate())

	c.BaseURL = DefaultBaseURL
	c.PollInterval = 0
	assert.Error(t, c.Validate())
}
