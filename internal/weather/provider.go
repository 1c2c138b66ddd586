package weather

import (
	"context"
)

// OpenWeatherAPI is the OpenWeatherMap surface the client consumes: geocoding
// plus the three data endpoints.
type OpenWeatherAPI interface {
	Geocode(ctx context.Context, city string) (lat, lon float64, err error)
	Current(ctx context.Context, lat, lon float64) (*CurrentConditions, error)
	Forecast(ctx context.Context, lat, lon float64) ([]ForecastEntry, error)
	AirQuality(ctx context.Context, lat, lon float64) (*AirQuality, error)
}

// OpenMeteoAPI is the Open-Meteo surface the client consumes.
type OpenMeteoAPI interface {
	Current(ctx context.Context, lat, lon float64) (*OpenMeteoCurrent, error)
}
