package main

import (
	"context"
	"log"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/i474232898/datacycle/internal/config"
	"github.com/i474232898/datacycle/internal/logger"
	"github.com/i474232898/datacycle/internal/tui"
)

func createTUICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive terminal client",
		Long: `Open the interactive terminal client. The data screen keeps the refresh
cycle active while it is shown. Logs go to LOG_FILE only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			// The terminal belongs to the UI.
			defer logger.Setup(logger.Config{File: cfg.LogFile}).Close()
			return runTUI(cmd.Context(), cfg)
		},
	}
}

func runTUI(ctx context.Context, cfg *config.AppConfig) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	m := tui.New(a.cycle, a.loc, a.renderer)
	defer m.Close()

	go func() {
		if _, err := a.cycle.Initialize(ctx); err != nil {
			log.Printf("WARN: initial load failed: %v", err)
		}
	}()

	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
