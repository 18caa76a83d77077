package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/i474232898/datacycle/internal/config"
	"github.com/i474232898/datacycle/internal/cycle"
	"github.com/i474232898/datacycle/internal/logger"
	"github.com/i474232898/datacycle/internal/store"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	faint  = color.New(color.Faint)
)

func createLaunchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "launches",
		Short: "Print the launch log from the local store",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			defer logger.Setup(logger.Config{File: cfg.LogFile}).Close()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			st, err := store.OpenSQLite(ctx, cfg.StorePath)
			if err != nil {
				return err
			}
			defer st.Close()

			records, err := st.ListLaunches(ctx)
			if err != nil {
				return fmt.Errorf("list launches: %w", err)
			}
			printLaunches(cmd.OutOrStdout(), records)
			return nil
		},
	}
}

func printLaunches(w io.Writer, records []cycle.LaunchRecord) {
	if len(records) == 0 {
		_, _ = yellow.Fprintln(w, "No launches recorded")
		return
	}
	for _, r := range records {
		_, _ = green.Fprintf(w, "%s", r.FirstSeenAt.Local().Format(time.DateTime))
		if r.LastRefreshedAt != nil {
			_, _ = fmt.Fprintf(w, "  last refresh %s", r.LastRefreshedAt.Local().Format(time.DateTime))
		}
		_, _ = faint.Fprintf(w, "  %s\n", r.ID)
	}
}
