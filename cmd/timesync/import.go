package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"timesync/internal/app"
	"timesync/internal/config"
	"timesync/internal/csvimport"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import time entries from a CSV file (columns: date,hours,project,description)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log := slog.Default()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		entries, rowErrs, err := csvimport.Parse(f)
		if err != nil {
			return err
		}
		for _, re := range rowErrs {
			log.Warn("skipping invalid row", slog.String("error", re.Error()))
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		application, err := app.New(ctx, log, cfg)
		if err != nil {
			return err
		}
		defer application.Close()

		res, err := application.ImportEntries(ctx, entries)
		if err != nil {
			return err
		}
		fmt.Printf("imported %d entries (%d rows skipped)\n", res.Inserted, len(rowErrs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
