package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"suffixguard/internal/updater"

	"github.com/spf13/cobra"
)

func newUpdateCmd(a *app) *cobra.Command {
	var keepRunning bool

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Fetch the configured rule sources into the database",
		Long: `Downloads every source under lists.sources and replaces its stored
rules. Sources that answer 304 Not Modified are left alone.

With --loop the update repeats every app.update_interval_hours until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if !keepRunning {
				return reportUpdate(out, updater.Run(ctx, db, a.cfg.Lists.Sources))
			}

			interval := time.Duration(a.cfg.App.UpdateInterval) * time.Hour
			err = updater.Loop(ctx, db, a.cfg.Lists.Sources, interval, func(results []updater.Result) {
				// Failures are logged by the updater; keep looping.
				_ = reportUpdate(out, results)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&keepRunning, "loop", false, "keep updating every app.update_interval_hours")
	return cmd
}

// reportUpdate prints one line per source and fails if every source failed.
func reportUpdate(out io.Writer, results []updater.Result) error {
	failed := 0
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(out, "%s\terror: %v\n", r.Source, r.Err)
		case r.NotModified:
			fmt.Fprintf(out, "%s\tnot modified\n", r.Source)
		default:
			fmt.Fprintf(out, "%s\t%d rules\n", r.Source, r.Count)
		}
	}

	if len(results) > 0 && failed == len(results) {
		return fmt.Errorf("all %d sources failed", failed)
	}
	return nil
}
