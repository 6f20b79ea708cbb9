package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	cobra "github.com/spf13/cobra"

	httpapi "github.com/i474232898/forecast-telemetry/internal/api/http"
	"github.com/i474232898/forecast-telemetry/internal/bus"
	"github.com/i474232898/forecast-telemetry/internal/config"
	"github.com/i474232898/forecast-telemetry/internal/logging"
	"github.com/i474232898/forecast-telemetry/internal/scheduler"
	"github.com/i474232898/forecast-telemetry/internal/store"
	"github.com/i474232898/forecast-telemetry/internal/weather"
	"github.com/i474232898/forecast-telemetry/internal/weather/providers"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the forecast service with its HTTP and MQTT surfaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(parent context.Context, cfg *config.AppConfig) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.New(cfg, version, appName)
	slog.SetDefault(logger)
	logger.Info("starting",
		"version", version,
		"env", cfg.AppEnv,
		"log_level", cfg.LogLevel.String(),
	)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// In-memory batch history with configured retention.
	history := store.NewMemoryStore(cfg.StoreMaxHistory, cfg.StoreMaxAge)
	health := weather.NewHealth(logger)

	publishers := []weather.Publisher{history}
	var mqttBus *bus.Bus
	if cfg.MQTTEnabled() {
		mqttBus = bus.NewBus(cfg, logger)
		publishers = append(publishers, mqttBus)
	}

	service := weather.NewService(
		providers.NewOpenWeatherProvider(httpClient),
		weather.WithPublishers(publishers...),
		weather.WithStatusReporter(health),
		weather.WithLogger(logger),
		weather.WithFetchTimeout(2*cfg.HTTPTimeout),
	)

	if mqttBus != nil {
		mqttBus.SetSink(service)
		connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := mqttBus.Connect(connectCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to mqtt broker: %w", err)
		}
		defer mqttBus.Disconnect()
	}

	if _, err := service.Initialize(cfg.OpenWeatherAPIKey, cfg.View, cfg.Params()); err != nil {
		// The HTTP surface stays up so the status endpoint can report the problem.
		logger.Error("forecast not configured; fetches disabled", "error", err)
	}

	// Timer that keeps refreshing when position updates stop.
	sched := scheduler.New(service.Settings().RefreshInterval, service, logger)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logging.RequestLogger(logger))
	app.Use(recover.New())

	httpapi.RegisterRoutes(app, httpapi.Deps{Service: service, History: history, Health: health})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "port", cfg.Port)
		errCh <- app.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("fiber server stopped: %w", err)
		}
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("error during shutdown", "error", err)
	}
	service.Wait()
	return nil
}
