package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBaseURL         = "http://localhost:5000"
	DefaultPollInterval    = 2 * time.Second
	DefaultAppPollInterval = 5 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultStopConcurrency = 4
)

type Config struct {
	DataDir    string
	DBPath     string
	LogPath    string
	ConfigPath string

	BaseURL         string
	PollInterval    time.Duration
	AppPollInterval time.Duration
	RequestTimeout  time.Duration
	StopConcurrency int
	HooksFile       string
	LogLevel        string
	Journal         bool
}

// fileConfig mirrors config.yaml. Pointers tell "absent" from zero.
type fileConfig struct {
	BaseURL         string         `yaml:"base_url"`
	PollInterval    *time.Duration `yaml:"poll_interval"`
	AppPollInterval *time.Duration `yaml:"app_poll_interval"`
	RequestTimeout  *time.Duration `yaml:"request_timeout"`
	StopConcurrency *int           `yaml:"stop_concurrency"`
	HooksFile       string         `yaml:"hooks_file"`
	LogLevel        string         `yaml:"log_level"`
	Journal         *bool          `yaml:"journal"`
}

// New returns the configuration from defaults, the config file and the
// environment, in that order of precedence. An empty path means config.yaml
// in the data directory, which may be absent; an explicit path must exist.
func New(path string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	dataDir := getEnv("BIDSDASH_DATA_DIR", filepath.Join(homeDir, ".bidsdash"))

	c := &Config{
		DataDir:         dataDir,
		DBPath:          filepath.Join(dataDir, "journal.db"),
		LogPath:         filepath.Join(dataDir, "bidsdash.log"),
		ConfigPath:      filepath.Join(dataDir, "config.yaml"),
		BaseURL:         DefaultBaseURL,
		PollInterval:    DefaultPollInterval,
		AppPollInterval: DefaultAppPollInterval,
		RequestTimeout:  DefaultRequestTimeout,
		StopConcurrency: DefaultStopConcurrency,
		LogLevel:        "info",
		Journal:         true,
	}

	required := path != ""
	if required {
		c.ConfigPath = path
	}
	if err := c.loadFile(required); err != nil {
		return nil, err
	}

	c.BaseURL = getEnv("BIDSDASH_URL", c.BaseURL)
	c.LogLevel = getEnv("BIDSDASH_LOG_LEVEL", c.LogLevel)
	c.HooksFile = getEnv("BIDSDASH_HOOKS", c.HooksFile)
	if v, ok := os.LookupEnv("BIDSDASH_JOURNAL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BIDSDASH_JOURNAL %q: %w", v, err)
		}
		c.Journal = b
	}

	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.HooksFile != "" && !filepath.IsAbs(c.HooksFile) {
		c.HooksFile = filepath.Join(filepath.Dir(c.ConfigPath), c.HooksFile)
	}

	return c, nil
}

func (c *Config) loadFile(required bool) error {
	data, err := os.ReadFile(c.ConfigPath)
	if err != nil {
		if !required && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config YAML: %w", err)
	}

	if fc.BaseURL != "" {
		c.BaseURL = fc.BaseURL
	}
	if fc.PollInterval != nil {
		c.PollInterval = *fc.PollInterval
	}
	if fc.AppPollInterval != nil {
		c.AppPollInterval = *fc.AppPollInterval
	}
	if fc.RequestTimeout != nil {
		c.RequestTimeout = *fc.RequestTimeout
	}
	if fc.StopConcurrency != nil {
		c.StopConcurrency = *fc.StopConcurrency
	}
	if fc.HooksFile != "" {
		c.HooksFile = fc.HooksFile
	}
	if fc.LogLevel != "" {
		c.LogLevel = fc.LogLevel
	}
	if fc.Journal != nil {
		c.Journal = *fc.Journal
	}
	return nil
}

// Validate reports the first setting the dashboard cannot run with.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", c.BaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid base_url %q: scheme must be http or https", c.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid base_url %q: missing host", c.BaseURL)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.PollInterval)
	}
	if c.AppPollInterval <= 0 {
		return fmt.Errorf("app_poll_interval must be positive, got %s", c.AppPollInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	return nil
}

func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0755)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
