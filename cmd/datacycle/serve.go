package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"

	httpapi "github.com/i474232898/datacycle/internal/api/http"
	"github.com/i474232898/datacycle/internal/config"
	"github.com/i474232898/datacycle/internal/logger"
	"github.com/i474232898/datacycle/internal/metrics"
)

func createServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API with periodic refresh enabled",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			defer logger.Setup(logger.Config{File: cfg.LogFile, Console: true}).Close()
			return serve(cfg)
		},
	}
}

func serve(cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	// A failed first fetch is not fatal; the timer retries.
	if _, err := a.cycle.Initialize(ctx); err != nil {
		log.Printf("WARN: initial load failed: %v", err)
	}
	if err := a.cycle.Activate(); err != nil {
		return err
	}

	app := newFiberApp()
	httpapi.RegisterRoutes(app, a.cycle, a.loc, a.renderer)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
	return nil
}

func newFiberApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "datacycle",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Refresh waits for the fetch.
		WriteTimeout: 60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(fiberlogger.New(fiberlogger.Config{Output: log.Writer()}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "datacycle",
		})
	})
	return app
}
