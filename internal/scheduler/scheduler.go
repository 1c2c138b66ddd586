package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/cybercats/meteo-assistant/internal/weather"
)

// CitySource lists the cities worth refreshing in a digest run.
type CitySource interface {
	AllCities() ([]string, error)
}

// Scheduler periodically fetches a weather digest for the cities users care
// about and logs a one-line summary per city. It is an observability aid:
// failures are logged and nothing is stored.
type Scheduler struct {
	scheduler *gocron.Scheduler
	client    *weather.Client
	sources   []CitySource
	interval  time.Duration
}

// New creates a Scheduler over the given city sources.
func New(client *weather.Client, interval time.Duration, sources ...CitySource) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		client:    client,
		sources:   sources,
		interval:  interval,
	}
}

// Start schedules the digest job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	interval := s.interval
	if interval <= 0 {
		interval = 24 * time.Hour
	}

	_, err := s.scheduler.Every(interval).Do(func() {
		cities := s.collectCities()
		if len(cities) == 0 {
			log.Println("scheduler: no saved cities; skipping digest")
			return
		}

		log.Printf("scheduler: running weather digest for %d cities", len(cities))

		var wg sync.WaitGroup
		for _, city := range cities {
			city := city
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				data, err := s.client.FetchAll(ctx, city)
				if err != nil {
					log.Printf("scheduler: digest fetch failed for %s: %v", city, err)
					return
				}
				log.Printf("scheduler: %s", digestLine(data))
			}()
		}
		wg.Wait()
		log.Println("scheduler: completed weather digest")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) collectCities() []string {
	seen := make(map[string]bool)
	var cities []string
	for _, src := range s.sources {
		list, err := src.AllCities()
		if err != nil {
			log.Printf("scheduler: city source failed: %v", err)
			continue
		}
		for _, c := range list {
			key := strings.ToLower(c)
			if !seen[key] {
				seen[key] = true
				cities = append(cities, c)
			}
		}
	}
	return cities
}

// digestLine renders one city's snapshot as a log line, preferring the
// OpenWeatherMap record and falling back to Open-Meteo.
func digestLine(data *weather.AggregatedWeatherData) string {
	var b strings.Builder
	b.WriteString(data.City)
	b.WriteString(": ")

	switch {
	case data.OpenWeatherMap != nil:
		b.WriteString(formatTemp(data.OpenWeatherMap.Temperature))
		if data.OpenWeatherMap.Description != "" && data.OpenWeatherMap.Description != "N/A" {
			b.WriteString(", ")
			b.WriteString(data.OpenWeatherMap.Description)
		}
	case data.OpenMeteo != nil:
		b.WriteString(formatTemp(data.OpenMeteo.Temperature))
	default:
		b.WriteString("no data")
	}
	return b.String()
}

func formatTemp(c float64) string {
	return fmt.Sprintf("%.1f°C", c)
}
