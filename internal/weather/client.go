package weather

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Client gathers everything the pipeline knows about a city's weather in one
// best-effort pass. Geocoding is the only required step; each data endpoint
// degrades to a nil record on failure without aborting the others.
type Client struct {
	openWeather OpenWeatherAPI
	openMeteo   OpenMeteoAPI
}

// NewClient creates a new Client over the two upstream providers.
func NewClient(openWeather OpenWeatherAPI, openMeteo OpenMeteoAPI) *Client {
	return &Client{
		openWeather: openWeather,
		openMeteo:   openMeteo,
	}
}

// FetchAll resolves the city and fans out to all data endpoints concurrently.
// It returns an error only when geocoding itself failed; a snapshot with every
// provider record nil is still returned if the city resolved.
func (c *Client) FetchAll(ctx context.Context, city string) (*AggregatedWeatherData, error) {
	lat, lon, err := c.openWeather.Geocode(ctx, city)
	if err != nil {
		log.Printf("geocoding failed for %q: %v", city, err)
		return nil, fmt.Errorf("resolve city %q: %w", city, err)
	}

	data := &AggregatedWeatherData{
		City:      city,
		Timestamp: time.Now().UTC(),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex

	wg.Add(1)
	go func() {
		defer wg.Done()
		current, err := c.openWeather.Current(ctx, lat, lon)
		if err != nil {
			log.Printf("openweathermap current fetch failed for %s: %v", city, err)
			return
		}
		mu.Lock()
		// The air-quality goroutine may have landed first with a stub record.
		if data.OpenWeatherMap != nil && data.OpenWeatherMap.AirQuality != nil {
			current.AirQuality = data.OpenWeatherMap.AirQuality
		}
		data.OpenWeatherMap = current
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		entries, err := c.openWeather.Forecast(ctx, lat, lon)
		if err != nil {
			log.Printf("openweathermap forecast fetch failed for %s: %v", city, err)
			return
		}
		mu.Lock()
		data.ForecastFiveDay = entries
		mu.Unlock()
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		air, err := c.openWeather.AirQuality(ctx, lat, lon)
		if err != nil {
			log.Printf("openweathermap air quality fetch failed for %s: %v", city, err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		// The pollution sample rides along on the current-conditions record;
		// keep it even when the current call itself failed.
		if data.OpenWeatherMap == nil {
			data.OpenWeatherMap = &CurrentConditions{Description: "N/A"}
		}
		data.OpenWeatherMap.AirQuality = air
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		current, err := c.openMeteo.Current(ctx, lat, lon)
		if err != nil {
			log.Printf("open-meteo current fetch failed for %s: %v", city, err)
			return
		}
		mu.Lock()
		data.OpenMeteo = current
		mu.Unlock()
	}()

	wg.Wait()

	return data, nil
}
