package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/cybercats/meteo-assistant/internal/weather"
)

// OpenMeteoProvider wraps Open-Meteo's current-weather endpoint (no API key).
type OpenMeteoProvider struct {
	name    string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		client:  client,
		circuit: newBreaker("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Current fetches and normalizes Open-Meteo's current weather block.
func (p *OpenMeteoProvider) Current(ctx context.Context, lat, lon float64) (*weather.OpenMeteoCurrent, error) {
	values := url.Values{}
	values.Set("latitude", fmt.Sprintf("%f", lat))
	values.Set("longitude", fmt.Sprintf("%f", lon))
	values.Set("current_weather", "true")
	values.Set("timezone", "auto")

	var payload struct {
		CurrentWeather *struct {
			Temperature   float64 `json:"temperature"`
			WindSpeed     float64 `json:"windspeed"`
			WindDirection float64 `json:"winddirection"`
			Time          string  `json:"time"`
			WeatherCode   int     `json:"weathercode"`
		} `json:"current_weather"`
	}

	if err := getJSON(ctx, p.client, p.circuit, p.baseURL+"?"+values.Encode(), &payload); err != nil {
		return nil, err
	}
	if payload.CurrentWeather == nil {
		return nil, fmt.Errorf("open-meteo response missing current_weather block")
	}

	return &weather.OpenMeteoCurrent{
		Temperature:   payload.CurrentWeather.Temperature,
		WindSpeed:     payload.CurrentWeather.WindSpeed,
		WindDirection: payload.CurrentWeather.WindDirection,
		Time:          payload.CurrentWeather.Time,
		WeatherCode:   payload.CurrentWeather.WeatherCode,
	}, nil
}
