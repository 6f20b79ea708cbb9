package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/forecast-telemetry/internal/weather"
)

// OpenWeatherProvider implements weather.Provider on top of the OpenWeather One Call API.
type OpenWeatherProvider struct {
	name    string
	baseURL string
	lang    string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// OpenWeatherOption customises an OpenWeatherProvider.
type OpenWeatherOption func(*OpenWeatherProvider)

// WithBaseURL points the provider at another endpoint (tests, proxies).
func WithBaseURL(u string) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		p.baseURL = u
	}
}

// WithBackoff overrides the retry policy.
func WithBackoff(b BackoffConfig) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		p.httpCfg.Backoff = b
	}
}

// WithLanguage sets the language of weather descriptions.
func WithLanguage(lang string) OpenWeatherOption {
	return func(p *OpenWeatherProvider) {
		p.lang = lang
	}
}

// NewOpenWeatherProvider creates a One Call provider that sends requests through client.
func NewOpenWeatherProvider(client *http.Client, opts ...OpenWeatherOption) *OpenWeatherProvider {
	p := &OpenWeatherProvider{
		name:    "openweathermap",
		baseURL: "https://api.openweathermap.org/data/3.0/onecall",
		lang:    "en",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      2,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: newCircuitBreaker("openweather"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Fetch requests current conditions and the hourly forecast for req.Position.
// Values are requested in standard units (K, hPa, m/s).
func (p *OpenWeatherProvider) Fetch(ctx context.Context, req weather.FetchRequest) (weather.Response, error) {
	if req.APIKey == "" {
		return weather.Response{}, fmt.Errorf("%w: openweather api key is not configured", weather.ErrConfiguration)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("appid", req.APIKey)
		values.Set("lat", strconv.FormatFloat(req.Position.Latitude, 'f', 6, 64))
		values.Set("lon", strconv.FormatFloat(req.Position.Longitude, 'f', 6, 64))
		values.Set("units", "standard")
		values.Set("exclude", "minutely,daily,alerts")
		values.Set("lang", p.lang)

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Response{}, err
	}
	defer resp.Body.Close()

	var payload weather.Response
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Response{}, fmt.Errorf("decode onecall response: %w", err)
	}
	if payload.Current == nil && len(payload.Hourly) == 0 {
		return weather.Response{}, fmt.Errorf("onecall response carries neither current nor hourly data")
	}

	return payload, nil
}
