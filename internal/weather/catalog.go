package weather

import "github.com/i474232898/forecast-telemetry/internal/units"

// DefaultSchema is the measurement catalogue for the OpenWeather One Call payload.
func DefaultSchema() *Schema {
	s, err := NewSchema("epoch",
		Group{
			Name:      "time",
			Scope:     ScopeForecast,
			SimpleKey: "time",
			Descriptors: []Descriptor{
				{Name: "epoch", Source: "dt", SourceUnit: "s"},
				{Name: "time", Leaf: "time", Source: "dt", SourceUnit: units.UnixDate, Kind: KindText,
					Description: "Time of the forecast"},
				{Name: "time.sunrise", Leaf: "time.sunrise", Source: "sunrise", SourceUnit: units.UnixDate, Kind: KindText,
					FromCurrent: true, Description: "Time of sunrise"},
				{Name: "time.sunset", Leaf: "time.sunset", Source: "sunset", SourceUnit: units.UnixDate, Kind: KindText,
					FromCurrent: true, Description: "Time of sunset"},
			},
		},
		Group{
			Name:      "temperature",
			Scope:     ScopeForecast,
			SimpleKey: "temperature",
			Descriptors: []Descriptor{
				{Name: "temperature", Leaf: "temperature", Source: "temp", SourceUnit: "K", DisplayUnit: "°C",
					Description: "Forecast air temperature"},
				{Name: "temperature.minimum", Leaf: "temperature.minimum", Source: "today:min", SourceUnit: "K", DisplayUnit: "°C",
					Description: "Lowest temperature of the day"},
				{Name: "temperature.maximum", Leaf: "temperature.maximum", Source: "today:max", SourceUnit: "K", DisplayUnit: "°C",
					Description: "Highest temperature of the day"},
				{Name: "temperature.feelslike", Leaf: "temperature.feelslike", Source: "feels_like", SourceUnit: "K", DisplayUnit: "°C",
					Description: "Forecast apparent temperature"},
				{Name: "temperature.dewpoint", Leaf: "temperature.dewpoint", Source: "dew_point", SourceUnit: "K", DisplayUnit: "°C",
					Description: "Forecast dew point"},
			},
		},
		Group{
			Name:      "pressure",
			Scope:     ScopeForecast,
			SimpleKey: "pressure",
			Descriptors: []Descriptor{
				{Name: "pressure", Leaf: "pressure", Source: "pressure", SourceUnit: "hPa", DisplayUnit: "hPa",
					CompensateWith: "temperature", Description: "Forecast barometric pressure at station elevation"},
			},
		},
		Group{
			Name:      "humidity",
			Scope:     ScopeForecast,
			SimpleKey: "relativeHumidity",
			Descriptors: []Descriptor{
				{Name: "relativeHumidity", Leaf: "relativeHumidity", Source: "humidity", SourceUnit: "%", DisplayUnit: "%",
					Description: "Forecast relative humidity"},
			},
		},
		Group{
			Name:      "wind",
			Scope:     ScopeForecast,
			SimpleKey: "wind.speed",
			Descriptors: []Descriptor{
				{Name: "wind.speed", Leaf: "wind.speed", Source: "wind_speed", SourceUnit: "m/s", DisplayUnit: "kn",
					Description: "Forecast wind speed"},
				{Name: "wind.direction", Leaf: "wind.direction", Source: "wind_deg", SourceUnit: "°", DisplayUnit: "deg",
					Description: "Forecast true wind direction"},
				{Name: "wind.gust", Leaf: "wind.gust", Source: "wind_gust", SourceUnit: "m/s", DisplayUnit: "kn",
					Description: "Forecast wind gust speed"},
			},
		},
		Group{
			Name:      "precipitation",
			Scope:     ScopeForecast,
			SimpleKey: "precipitation.rain",
			Descriptors: []Descriptor{
				{Name: "precipitation.rain", Leaf: "precipitation.rain", Source: "rain:1h", SourceUnit: "mm",
					Description: "Forecast rain volume for the hour"},
				{Name: "precipitation.snow", Leaf: "precipitation.snow", Source: "snow:1h", SourceUnit: "mm",
					Description: "Forecast snow volume for the hour"},
				{Name: "precipitation.probability", Leaf: "precipitation.probability", Source: "max:pop", SourceUnit: "ratio", DisplayUnit: "%",
					Description: "Highest probability of precipitation within the forecast horizon"},
			},
		},
		Group{
			Name:      "conditions",
			Scope:     ScopeForecast,
			SimpleKey: "weather.desc",
			Descriptors: []Descriptor{
				{Name: "weather.desc", Leaf: "weather.desc", Source: "0:weather.description", SourceUnit: units.Text, Kind: KindDescription,
					Description: "Forecast weather description"},
				{Name: "weather.main", Leaf: "weather.main", Source: "0:weather.main", SourceUnit: units.Text, Kind: KindText,
					Description: "Forecast weather group"},
				{Name: "weather.icon", Leaf: "weather.icon", Source: "0:weather.icon", SourceUnit: units.Text, Kind: KindText,
					Description: "Forecast weather icon id"},
				{Name: "weather.uvindex", Leaf: "weather.uvindex", Source: "uvi",
					Description: "Forecast UV index"},
				{Name: "weather.clouds", Leaf: "weather.clouds", Source: "clouds", SourceUnit: "%", DisplayUnit: "%",
					Description: "Forecast cloud cover"},
				{Name: "weather.visibility", Leaf: "weather.visibility", Source: "visibility", SourceUnit: "m", DisplayUnit: "nm",
					Description: "Forecast visibility"},
			},
		},
		Group{
			Name:      "code",
			Scope:     ScopeForecast,
			SimpleKey: "weather.code",
			Descriptors: []Descriptor{
				{Name: "weather.code", Leaf: "weather.code", Source: "0:weather.id",
					Description: "Forecast weather condition code"},
			},
		},
		Group{
			Name:  "current",
			Scope: ScopeCurrent,
			Descriptors: []Descriptor{
				{Name: "outside.temperature", Leaf: "temperature", Source: "temp", SourceUnit: "K", DisplayUnit: "°C",
					Description: "Current outside temperature"},
				{Name: "outside.pressure", Leaf: "pressure", Source: "pressure", SourceUnit: "hPa", DisplayUnit: "hPa",
					CompensateWith: "outside.temperature", Description: "Current barometric pressure at station elevation"},
				{Name: "outside.relativeHumidity", Leaf: "relativeHumidity", Source: "humidity", SourceUnit: "%", DisplayUnit: "%",
					Description: "Current relative humidity"},
				{Name: "outside.temperature.feelslike", Leaf: "temperature.feelslike", Source: "feels_like", SourceUnit: "K", DisplayUnit: "°C",
					Description: "Current apparent temperature"},
				{Name: "outside.temperature.dewpoint", Leaf: "temperature.dewpoint", Source: "dew_point", SourceUnit: "K", DisplayUnit: "°C",
					Description: "Current dew point"},
			},
		},
	)
	if err != nil {
		panic(err)
	}
	return s
}
