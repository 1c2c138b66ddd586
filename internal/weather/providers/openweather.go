package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sony/gobreaker"

	"github.com/cybercats/meteo-assistant/internal/weather"
)

// OpenWeatherProvider wraps the OpenWeatherMap REST endpoints: geocoding,
// current conditions, 5-day forecast and air pollution.
type OpenWeatherProvider struct {
	name        string
	apiKey      string
	geoURL      string
	currentURL  string
	forecastURL string
	airURL      string
	client      *http.Client
	circuit     *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:        "openweathermap",
		apiKey:      apiKey,
		geoURL:      "https://api.openweathermap.org/geo/1.0/direct",
		currentURL:  "https://api.openweathermap.org/data/2.5/weather",
		forecastURL: "https://api.openweathermap.org/data/2.5/forecast",
		airURL:      "https://api.openweathermap.org/data/2.5/air_pollution",
		client:      client,
		circuit:     newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// Geocode resolves a free-form city name to coordinates, taking the first hit.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, city string) (lat, lon float64, err error) {
	if p.apiKey == "" {
		return 0, 0, fmt.Errorf("openweather api key is not configured")
	}

	values := url.Values{}
	values.Set("q", city)
	values.Set("limit", "1")
	values.Set("appid", p.apiKey)

	var payload []struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	}
	if err := getJSON(ctx, p.client, p.circuit, p.geoURL+"?"+values.Encode(), &payload); err != nil {
		return 0, 0, fmt.Errorf("geocode %q: %w", city, err)
	}
	if len(payload) == 0 {
		return 0, 0, fmt.Errorf("no coordinates found for %q", city)
	}

	return payload[0].Lat, payload[0].Lon, nil
}

// Current fetches and normalizes the current conditions at the coordinates.
func (p *OpenWeatherProvider) Current(ctx context.Context, lat, lon float64) (*weather.CurrentConditions, error) {
	var payload struct {
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
			Pressure  float64 `json:"pressure"`
		} `json:"main"`
		Wind struct {
			Speed float64 `json:"speed"`
			Deg   float64 `json:"deg"`
		} `json:"wind"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := getJSON(ctx, p.client, p.circuit, p.coordURL(p.currentURL, lat, lon, true), &payload); err != nil {
		return nil, err
	}

	cond := &weather.CurrentConditions{
		Temperature:   payload.Main.Temp,
		FeelsLike:     payload.Main.FeelsLike,
		Humidity:      payload.Main.Humidity,
		Pressure:      payload.Main.Pressure,
		WindSpeed:     payload.Wind.Speed,
		WindDirection: payload.Wind.Deg,
		Description:   "N/A",
	}
	if len(payload.Weather) > 0 && payload.Weather[0].Description != "" {
		cond.Description = payload.Weather[0].Description
	}

	return cond, nil
}

// Forecast fetches the 5-day / 3-hour forecast and flattens each slot.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, lat, lon float64) ([]weather.ForecastEntry, error) {
	var payload struct {
		List []struct {
			DtTxt string `json:"dt_txt"`
			Main  struct {
				Temp      float64 `json:"temp"`
				FeelsLike float64 `json:"feels_like"`
				Humidity  float64 `json:"humidity"`
				Pressure  float64 `json:"pressure"`
			} `json:"main"`
			Weather []struct {
				Description string `json:"description"`
			} `json:"weather"`
		} `json:"list"`
	}

	if err := getJSON(ctx, p.client, p.circuit, p.coordURL(p.forecastURL, lat, lon, true), &payload); err != nil {
		return nil, err
	}
	if len(payload.List) == 0 {
		return nil, fmt.Errorf("forecast response has no entries")
	}

	entries := make([]weather.ForecastEntry, 0, len(payload.List))
	for _, item := range payload.List {
		entry := weather.ForecastEntry{
			Datetime:    item.DtTxt,
			Temperature: item.Main.Temp,
			FeelsLike:   item.Main.FeelsLike,
			Humidity:    item.Main.Humidity,
			Pressure:    item.Main.Pressure,
		}
		if len(item.Weather) > 0 {
			entry.Description = item.Weather[0].Description
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// AirQuality fetches the air-pollution sample for the coordinates.
func (p *OpenWeatherProvider) AirQuality(ctx context.Context, lat, lon float64) (*weather.AirQuality, error) {
	var payload struct {
		List []struct {
			Main struct {
				AQI int `json:"aqi"`
			} `json:"main"`
			Components struct {
				CO   float64 `json:"co"`
				NO2  float64 `json:"no2"`
				O3   float64 `json:"o3"`
				PM25 float64 `json:"pm2_5"`
				PM10 float64 `json:"pm10"`
			} `json:"components"`
		} `json:"list"`
	}

	if err := getJSON(ctx, p.client, p.circuit, p.coordURL(p.airURL, lat, lon, false), &payload); err != nil {
		return nil, err
	}
	if len(payload.List) == 0 {
		return nil, fmt.Errorf("air pollution response has no samples")
	}

	sample := payload.List[0]
	return &weather.AirQuality{
		AQI:  sample.Main.AQI,
		CO:   sample.Components.CO,
		NO2:  sample.Components.NO2,
		O3:   sample.Components.O3,
		PM25: sample.Components.PM25,
		PM10: sample.Components.PM10,
	}, nil
}

func (p *OpenWeatherProvider) coordURL(base string, lat, lon float64, metric bool) string {
	values := url.Values{}
	values.Set("lat", fmt.Sprintf("%f", lat))
	values.Set("lon", fmt.Sprintf("%f", lon))
	values.Set("appid", p.apiKey)
	if metric {
		values.Set("units", "metric")
	}
	return base + "?" + values.Encode()
}
