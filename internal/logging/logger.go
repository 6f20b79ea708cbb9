package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/lmittmann/tint"

	"github.com/i474232898/forecast-telemetry/internal/config"
)

// New returns a colored text logger in dev and a JSON logger otherwise.
func New(cfg *config.AppConfig, version, appName string) *slog.Logger {
	return newLogger(os.Stdout, cfg, version, appName)
}

func newLogger(w io.Writer, cfg *config.AppConfig, version, appName string) *slog.Logger {
	if cfg.AppEnv == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.LogLevel,
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})
	return slog.New(h).With(
		"app", appName,
		"version", version,
		"env", cfg.AppEnv,
	)
}

// RequestLogger returns fiber's request logger writing one debug record per
// request through the given logger's handler.
func RequestLogger(l *slog.Logger) fiber.Handler {
	return fiberlogger.New(fiberlogger.Config{
		Format:     "${status} ${method} ${path} ${latency}\n",
		TimeFormat: time.RFC3339,
		Output:     slog.NewLogLogger(l.Handler(), slog.LevelDebug).Writer(),
	})
}
