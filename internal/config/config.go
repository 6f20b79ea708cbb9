package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/i474232898/forecast-telemetry/internal/common"
	"github.com/i474232898/forecast-telemetry/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey string

	// Forecast selection.
	View           weather.View `validate:"oneof=simple full"`
	OffsetHours    int
	HorizonHours   int
	PublishCurrent bool
	PartialFields  []string

	// RefreshInterval is the minimum time between two provider calls.
	RefreshInterval time.Duration `validate:"gte=1m"`
	HTTPTimeout     time.Duration `validate:"gt=0"`

	// In-memory store retention.
	StoreMaxHistory int           `validate:"gte=0"` // max number of batches per kind (0 = unlimited)
	StoreMaxAge     time.Duration `validate:"gte=0"` // max age of batches (0 = unlimited)

	Port string `validate:"required,numeric"`

	// MQTT bus adapter; an empty broker disables it.
	MQTTBroker      string
	MQTTPort        int    `validate:"min=1,max=65535"`
	MQTTClientID    string `validate:"required"`
	MQTTTopicPrefix string `validate:"required"`

	AppEnv   string     `validate:"oneof=dev test prod"`
	LogLevel slog.Level `validate:"-"`
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	view, err := weather.ParseView(getenvDefault("VIEW_MODE", string(weather.ViewSimple)))
	if err != nil {
		return nil, fmt.Errorf("invalid VIEW_MODE: %w", err)
	}
	cfg.View = view
	cfg.OffsetHours = getenvInt("FORECAST_OFFSET_HOURS", weather.MinOffsetHours)
	cfg.HorizonHours = getenvInt("FORECAST_HORIZON_HOURS", 24)
	cfg.PublishCurrent = getenvBool("PUBLISH_CURRENT", false)
	cfg.PartialFields = common.SplitList(os.Getenv("PARTIAL_FIELDS"))

	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", weather.DefaultRefreshInterval); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 15*time.Second); err != nil {
		return nil, err
	}

	// Store retention: two days of hourly refreshes.
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", 48)
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", 48*time.Hour); err != nil {
		return nil, err
	}
	cfg.Port = getenvDefault("PORT", "8080")

	cfg.MQTTBroker = os.Getenv("MQTT_BROKER")
	cfg.MQTTPort = getenvInt("MQTT_PORT", 1883)
	cfg.MQTTClientID = getenvDefault("MQTT_CLIENT_ID", "forecast-telemetry-"+uuid.NewString()[:8])
	cfg.MQTTTopicPrefix = strings.Trim(getenvDefault("MQTT_TOPIC_PREFIX", "signalk"), "/")

	cfg.AppEnv = strings.ToLower(getenvDefault("APP_ENV", "dev"))
	if err := cfg.LogLevel.UnmarshalText([]byte(getenvDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags and reports every offending variable.
func (c *AppConfig) Validate() error {
	err := validator.New().Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
}

// MQTTEnabled reports whether a broker is configured.
func (c *AppConfig) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// Params returns the forecast parameters for weather.Service.Initialize.
func (c *AppConfig) Params() weather.Params {
	return weather.Params{
		OffsetHours:     c.OffsetHours,
		HorizonHours:    c.HorizonHours,
		PublishCurrent:  c.PublishCurrent,
		PartialFields:   c.PartialFields,
		RefreshInterval: c.RefreshInterval,
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
