package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"timesync/internal/app"
	"timesync/internal/config"
	"timesync/internal/usecase"
)

var (
	syncForce bool
	syncFrom  string
	syncTo    string
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a single sync across all configured providers and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := slog.Default()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, log, cfg)
		if err != nil {
			return err
		}
		defer application.Close()

		opts := usecase.SyncOptions{Force: syncForce}
		if syncFrom != "" {
			t, err := parseBoundary(syncFrom, false)
			if err != nil {
				return err
			}
			opts.Start = &t
		}
		if syncTo != "" {
			t, err := parseBoundary(syncTo, true)
			if err != nil {
				return err
			}
			opts.End = &t
		}

		report, err := application.Sync(ctx, opts)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

// parseBoundary accepts RFC3339 or YYYY-MM-DD. A date-only end boundary is
// inclusive: it becomes next-day midnight UTC.
func parseBoundary(val string, end bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return t, nil
	}
	if d, err := time.ParseInLocation("2006-01-02", val, time.UTC); err == nil {
		if end {
			return d.Add(24 * time.Hour), nil
		}
		return d, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected RFC3339 or YYYY-MM-DD", val)
}

func init() {
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "bypass the response cache")
	syncCmd.Flags().StringVar(&syncFrom, "from", "", "custom range start (RFC3339 or YYYY-MM-DD)")
	syncCmd.Flags().StringVar(&syncTo, "to", "", "custom range end (RFC3339 or YYYY-MM-DD, inclusive)")
	rootCmd.AddCommand(syncCmd)
}
