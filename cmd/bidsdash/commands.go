package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrAliAmani/bids-scraping/internal/appmon"
	"github.com/MrAliAmani/bids-scraping/internal/client"
	"github.com/MrAliAmani/bids-scraping/internal/dispatch"
	"github.com/MrAliAmani/bids-scraping/internal/logview"
	"github.com/MrAliAmani/bids-scraping/internal/models"
	"github.com/MrAliAmani/bids-scraping/internal/status"
	"github.com/MrAliAmani/bids-scraping/internal/storage"
	"github.com/MrAliAmani/bids-scraping/internal/view"
)

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print every script's status once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			api := client.New(cfg.BaseURL, cfg.RequestTimeout)
			return printStatus(cmd.Context(), cmd.OutOrStdout(), api)
		},
	}
}

func printStatus(ctx context.Context, out io.Writer, api *client.Client) error {
	scripts, err := api.Scripts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch scripts: %w", err)
	}

	if len(scripts) == 0 {
		fmt.Fprintln(out, "No scripts reported.")
	}
	for _, s := range scripts {
		s.Normalize()
		card := view.NewCard(s)
		fmt.Fprintf(out, "%-25s %-8s %3d%%  %-14s %3d%%  %s\n",
			card.Title, card.Status, card.Progress,
			card.ExcelLabel, card.ExcelProgress, card.Runtime)
	}

	master, err := api.MasterStatus(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch master status: %w", err)
	}
	total := master.Total
	if total == 0 {
		total = len(scripts)
	}
	fmt.Fprintf(out, "\nRunning %d  Pending %d  Completed %d  Failed %d  Total %d\n",
		master.Running, master.Pending, master.Completed, master.Failed, total)
	return nil
}

func newStartCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "start [script]",
		Short: "Start one script, or queue all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d := dispatch.New(client.New(cfg.BaseURL, cfg.RequestTimeout), cliLogger(cfg), cfg.StopConcurrency)

			var out dispatch.Outcome
			if len(args) == 1 {
				out = d.Start(cmd.Context(), args[0])
			} else {
				out = d.StartAll(cmd.Context())
			}
			if !out.OK {
				fmt.Fprintln(cmd.OutOrStdout(), out.Line)
				return errors.New("start failed")
			}
			if len(args) == 1 {
				fmt.Fprintf(cmd.OutOrStdout(), "Started %s\n", args[0])
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Started all scripts")
			}
			return nil
		},
	}
}

func newStopCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop [script]",
		Short: "Stop one script, or every running one with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			all, _ := cmd.Flags().GetBool("all")
			if all == (len(args) == 1) {
				return errors.New("give either a script name or --all")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			api := client.New(cfg.BaseURL, cfg.RequestTimeout)
			d := dispatch.New(api, cliLogger(cfg), cfg.StopConcurrency)

			if !all {
				out := d.Stop(cmd.Context(), args[0])
				fmt.Fprintln(cmd.OutOrStdout(), out.Line)
				if !out.OK {
					return errors.New("stop failed")
				}
				return nil
			}
			return stopAll(cmd.Context(), cmd.OutOrStdout(), api, d)
		},
	}
	cmd.Flags().Bool("all", false, "stop every running script")
	return cmd
}

func stopAll(ctx context.Context, out io.Writer, api *client.Client, d *dispatch.Dispatcher) error {
	scripts, err := api.Scripts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch scripts: %w", err)
	}
	store := status.NewStore()
	store.ReplaceAll(1, scripts)

	res := d.StopAll(ctx, store.Running())
	for _, line := range res.Lines {
		fmt.Fprintln(out, line)
	}
	for _, o := range res.Outcomes {
		if !o.OK {
			return errors.New("some scripts could not be stopped")
		}
	}
	return nil
}

func newLogsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logs <script>",
		Short: "Print a script's log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			api := client.New(cfg.BaseURL, cfg.RequestTimeout)
			return printLogs(cmd.Context(), cmd.OutOrStdout(), api, args[0])
		},
	}
}

func printLogs(ctx context.Context, out io.Writer, api logview.API, script string) error {
	res := logview.Fetch(ctx, api, 0, script, timeNow())
	switch res.Kind {
	case logview.KindContent:
		fmt.Fprintf(out, "Log file: %s\n\n", res.Path)
		fmt.Fprintln(out, res.Content)
	case logview.KindError:
		return fmt.Errorf("%s: %w", res.Message, res.Err)
	default:
		fmt.Fprintln(out, res.Message)
	}
	return nil
}

func newAppCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "app",
		Short: "Check, start or stop the companion application",
	}

	run := func(op appmon.Op) func(cmd *cobra.Command, args []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			m := appmon.New(client.New(cfg.BaseURL, cfg.RequestTimeout), cliLogger(cfg))
			return runAppOp(cmd.Context(), cmd.OutOrStdout(), m, op)
		}
	}

	cmd.AddCommand(&cobra.Command{Use: "status", Short: "Show whether the app is running", Args: cobra.NoArgs, RunE: run(appmon.OpPoll)})
	cmd.AddCommand(&cobra.Command{Use: "start", Short: "Start the app", Args: cobra.NoArgs, RunE: run(appmon.OpStart)})
	cmd.AddCommand(&cobra.Command{Use: "stop", Short: "Stop the app and every script", Args: cobra.NoArgs, RunE: run(appmon.OpStop)})
	return cmd
}

func runAppOp(ctx context.Context, out io.Writer, m *appmon.Monitor, op appmon.Op) error {
	var res appmon.Result
	switch op {
	case appmon.OpStart:
		res = m.Start(ctx)
	case appmon.OpStop:
		res = m.Stop(ctx)
	default:
		res = m.Poll(ctx)
		if res.Err != nil {
			return fmt.Errorf("failed to check app status: %w", res.Err)
		}
		if res.State == models.AppStateRunning {
			fmt.Fprintln(out, "App Running")
		} else {
			fmt.Fprintln(out, "App Stopped")
		}
		return nil
	}
	fmt.Fprintln(out, res.Line)
	if res.Err != nil {
		return res.Err
	}
	return nil
}

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print journaled session log lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			sessions, _ := cmd.Flags().GetBool("sessions")
			script, _ := cmd.Flags().GetString("script")
			deleteID, _ := cmd.Flags().GetInt64("delete")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDataDir(); err != nil {
				return err
			}

			store, err := storage.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("failed to open journal: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			switch {
			case deleteID > 0:
				return deleteSession(out, store, deleteID)
			case sessions:
				return printSessions(out, store, limit)
			case script != "":
				return printTransitions(out, store, script, limit)
			default:
				return printHistory(out, store, limit)
			}
		},
	}
	cmd.Flags().Int("limit", 50, "number of entries to show")
	cmd.Flags().Bool("sessions", false, "list dashboard sessions instead of log lines")
	cmd.Flags().String("script", "", "show status transitions of one script")
	cmd.Flags().Int64("delete", 0, "delete a journaled session and everything recorded under it")
	return cmd
}

func printHistory(out io.Writer, store *storage.Storage, limit int) error {
	entries, err := store.ListSessionLog(limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "No journaled session log lines.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(out, "#%-3d [%s] %s\n", e.SessionID, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Message)
	}
	return nil
}

func printSessions(out io.Writer, store *storage.Storage, limit int) error {
	sessions, err := store.ListSessions(limit)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}
	now := timeNow()
	for _, s := range sessions {
		state := "open"
		if s.EndedAt != nil {
			state = "closed"
		}
		fmt.Fprintf(out, "#%-3d %-8s %-6s %4d lines  %s\n",
			s.ID, storage.FormatTimeAgo(s.StartedAt, now), state, s.Lines, s.BaseURL)
	}
	return nil
}

func deleteSession(out io.Writer, store *storage.Storage, id int64) error {
	if err := store.DeleteSession(id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	fmt.Fprintf(out, "Deleted session #%d\n", id)
	return nil
}

func printTransitions(out io.Writer, store *storage.Storage, script string, limit int) error {
	transitions, err := store.ListTransitions(script, limit)
	if err != nil {
		return err
	}
	if len(transitions) == 0 {
		fmt.Fprintf(out, "No transitions recorded for %s.\n", script)
		return nil
	}
	for _, t := range transitions {
		fmt.Fprintf(out, "[%s] %s %s: %s -> %s\n",
			t.CreatedAt.Local().Format("2006-01-02 15:04:05"), t.Script, t.Field, t.From, t.To)
	}
	return nil
}
