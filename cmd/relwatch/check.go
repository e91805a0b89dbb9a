package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dikkadev/relwatch/pkg/checker"
	"github.com/dikkadev/relwatch/pkg/config"
	"github.com/dikkadev/relwatch/pkg/render"
	"github.com/dikkadev/relwatch/pkg/scheduler"
	"github.com/dikkadev/relwatch/pkg/storage"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Check all programs for updates once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			setCurrent, _ := cmd.Flags().GetBool("set-current-version")
			allowNotification, _ := cmd.Flags().GetBool("allow-notification")
			send, _ := cmd.Flags().GetBool("notify")

			c, err := a.checker(cmd.Context())
			if err != nil {
				return err
			}
			updated, err := c.CheckForUpdates(cmd.Context(), checker.Manual, checker.Options{
				SetCurrentVersion: setCurrent,
				AllowNotification: allowNotification || send,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(updated) == 0 {
				fmt.Fprintln(out, "All programs are up to date")
			}
			for _, p := range updated {
				if setCurrent {
					fmt.Fprintf(out, "%s: updated to %s\n", p.Name, p.LatestVersion)
				} else {
					fmt.Fprintf(out, "%s: %s -> %s\n", p.Name, p.CurrentVersion, p.LatestVersion)
				}
			}

			if !send || len(updated) == 0 || setCurrent {
				return nil
			}
			d, err := a.dispatcher(cmd.Context())
			if err != nil {
				return err
			}
			return d.NotifyUpdates(cmd.Context(), updated)
		},
	}
	cmd.Flags().Bool("set-current-version", false, "treat newly found versions as installed")
	cmd.Flags().Bool("allow-notification", false, "leave found updates to be notified by the next timed check")
	cmd.Flags().Bool("notify", false, "send a notification for found updates right away")
	cmd.Flags().String("ntfy-topic", "", "ntfy topic to notify")
	cmd.MarkFlagsMutuallyExclusive("set-current-version", "notify")
	return cmd
}

func newRunTimedCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run-timed",
		Short: "Check for updates on a schedule and send notifications",
		Long: `Check for updates on a schedule and send notifications through ntfy.

The first check runs right away. Stop with SIGINT or SIGTERM; a check that is
already running is finished first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			skipInitial, _ := cmd.Flags().GetBool("skip-initial")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.runTimed(ctx, skipInitial)
		},
	}
	cmd.Flags().String("ntfy-topic", "", "ntfy topic to notify")
	cmd.Flags().String("ntfy-server", config.DefaultNtfyServer, "ntfy server")
	cmd.Flags().Int("check-interval", config.DefaultInterval, "seconds between checks")
	cmd.Flags().String("cron", "", "cron expression for checks, overrides --check-interval")
	cmd.Flags().Int("pass-timeout", 0, "maximum seconds for one check, 0 for no limit")
	cmd.Flags().Bool("skip-initial", false, "wait for the schedule before the first check")
	return cmd
}

// runTimed blocks until ctx is cancelled
func (a *app) runTimed(ctx context.Context, skipInitial bool) error {
	logger := a.logger("scheduler")

	c, err := a.checker(ctx)
	if err != nil {
		return err
	}
	d, err := a.dispatcher(ctx)
	if err != nil {
		return err
	}
	store, err := a.storage(ctx)
	if err != nil {
		return err
	}

	s, err := scheduler.New(store, c, d, scheduler.Config{
		Interval:    a.cfg.Schedule.Interval,
		Cron:        a.cfg.Schedule.Cron,
		PassTimeout: a.cfg.Schedule.PassTimeout,
		SkipInitial: skipInitial,
	}, scheduler.WithLogger(logger))
	if err != nil {
		return err
	}

	watched, err := s.Preflight(ctx)
	if err != nil {
		return err
	}
	if len(watched) > 0 {
		logger.Printf("Watched programs:\n%s", render.Programs(watched))
	}

	<-s.Start(ctx)
	logger.Printf("Shutdown signal received, exiting")
	return nil
}

func newLatestCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "latest-check",
		Short: "Show the result of the most recent update check",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}
			entry, err := store.LatestUpdateCheck(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if entry == nil {
				fmt.Fprintln(out, "No update check has been performed yet")
				return nil
			}
			fmt.Fprintf(out, "Last update check: %s (%s)\n", entry.Date.Local().Format(render.DateFormat), entry.Kind)
			if entry.UpdatesAvailable == 0 {
				fmt.Fprintln(out, "No updates were available")
				return nil
			}
			fmt.Fprintf(out, "%d updates available: %s\n", entry.UpdatesAvailable, entry.Programs)
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past update checks, or performed updates with --updates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			updates, _ := cmd.Flags().GetBool("updates")
			limit, _ := cmd.Flags().GetInt("max")
			if limit <= 0 {
				return fmt.Errorf("--max must be positive")
			}

			store, err := a.storage(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if updates {
				entries, err := store.ListPerformedUpdates(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(out, "No updates have been performed yet")
					return nil
				}
				fmt.Fprintln(out, render.Updates(entries))
				return nil
			}

			entries, err := store.ListUpdateChecks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No update check has been performed yet")
				return nil
			}
			fmt.Fprintln(out, render.UpdateChecks(entries))
			return nil
		},
	}
	cmd.Flags().Bool("updates", false, "show performed updates instead of update checks")
	cmd.Flags().Int("max", storage.DefaultHistoryLimit, "maximum number of entries")
	return cmd
}
