package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/MrAliAmani/bids-scraping/internal/client"
	"github.com/MrAliAmani/bids-scraping/internal/config"
	"github.com/MrAliAmani/bids-scraping/internal/diag"
	"github.com/MrAliAmani/bids-scraping/internal/hooks"
	"github.com/MrAliAmani/bids-scraping/internal/push"
	"github.com/MrAliAmani/bids-scraping/internal/storage"
	"github.com/MrAliAmani/bids-scraping/internal/tui"
)

var (
	flagURL    string
	flagConfig string

	timeNow = time.Now
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bidsdash",
		Short: "Dashboard for the bids scraping script manager",
		Long: "bidsdash shows the scraping scripts run by the backend, their progress and\n" +
			"Excel post-processing, and starts or stops them and the companion app.",
		SilenceUsage: true,
		RunE:         runTUI,
	}

	rootCmd.PersistentFlags().StringVar(&flagURL, "url", "", "backend base URL (overrides config and BIDSDASH_URL)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default $BIDSDASH_DATA_DIR/config.yaml)")

	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newStartCommand())
	rootCmd.AddCommand(newStopCommand())
	rootCmd.AddCommand(newLogsCommand())
	rootCmd.AddCommand(newAppCommand())
	rootCmd.AddCommand(newHistoryCommand())
	return rootCmd
}

// loadConfig applies the global flags on top of file and environment.
func loadConfig() (*config.Config, error) {
	cfg, err := config.New(flagConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if flagURL != "" {
		cfg.BaseURL = flagURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cliLogger is what one-shot commands log with; their output is the
// terminal, so only warnings and worse show up.
func cliLogger(cfg *config.Config) zerolog.Logger {
	level, err := diag.ParseLevel(cfg.LogLevel)
	if err != nil || level < zerolog.WarnLevel {
		level = zerolog.WarnLevel
	}
	return diag.Console(level)
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	level, err := diag.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger, logFile, err := diag.OpenFile(cfg.LogPath, level)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger.Info().Str("url", cfg.BaseURL).Msg("dashboard starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := client.New(cfg.BaseURL, cfg.RequestTimeout)
	opts := tui.Options{
		Logger:          logger,
		PollInterval:    cfg.PollInterval,
		AppPollInterval: cfg.AppPollInterval,
		StopConcurrency: cfg.StopConcurrency,
	}

	if cfg.Journal {
		store, err := storage.New(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer store.Close()

		sessionID, err := store.CreateSession(cfg.BaseURL, time.Now())
		if err != nil {
			return fmt.Errorf("failed to start journal session: %w", err)
		}
		defer func() {
			if err := store.EndSession(sessionID, time.Now()); err != nil {
				logger.Error().Err(err).Msg("closing journal session")
			}
		}()
		opts.Journal = store
		opts.SessionID = sessionID
	}

	if cfg.HooksFile != "" {
		if !hooks.IsHookFile(cfg.HooksFile) {
			return fmt.Errorf("hooks file must be a .lua script: %s", cfg.HooksFile)
		}
		rt, err := hooks.Load(cfg.HooksFile)
		if err != nil {
			return err
		}
		defer rt.Close()
		opts.Hooks = rt

		reload := make(chan struct{}, 1)
		if err := hooks.Watch(ctx, cfg.HooksFile, logger, reload); err != nil {
			logger.Warn().Err(err).Msg("hook reload disabled")
		} else {
			opts.HookReload = reload
		}
	}

	pc, err := push.New(cfg.BaseURL, push.WithLogger(logger))
	if err != nil {
		logger.Warn().Err(err).Msg("push channel disabled, polling only")
	} else {
		events := make(chan push.Event, 256)
		go func() {
			if err := pc.Run(ctx, events); err != nil && ctx.Err() == nil {
				logger.Error().Err(err).Msg("push channel stopped")
			}
		}()
		opts.Events = events
	}

	app := tui.NewApp(api, opts)
	defer app.Close()

	p := tea.NewProgram(app, tea.WithAltScreen())
	_, err = p.Run()
	logger.Info().Msg("dashboard stopped")
	return err
}
