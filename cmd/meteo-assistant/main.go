package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/cybercats/meteo-assistant/internal/api/http"
	"github.com/cybercats/meteo-assistant/internal/assistant"
	"github.com/cybercats/meteo-assistant/internal/composer"
	"github.com/cybercats/meteo-assistant/internal/config"
	"github.com/cybercats/meteo-assistant/internal/llm"
	"github.com/cybercats/meteo-assistant/internal/parser"
	"github.com/cybercats/meteo-assistant/internal/scheduler"
	"github.com/cybercats/meteo-assistant/internal/store"
	"github.com/cybercats/meteo-assistant/internal/weather"
	"github.com/cybercats/meteo-assistant/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider and model calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Language model used by both the parser and the composer.
	model := &llm.Client{
		Host:       cfg.OllamaHost,
		Model:      cfg.OllamaModel,
		HTTPClient: httpClient,
	}

	// Upstream weather providers behind circuit breakers.
	openWeather := providers.NewOpenWeatherProvider(httpClient, cfg.OpenWeatherAPIKey)
	openMeteo := providers.NewOpenMeteoProvider(httpClient)
	client := weather.NewClient(openWeather, openMeteo)

	// Flat-file user store and the in-memory answered-cities ring.
	users := store.NewUsers(cfg.UsersFile)
	recent := store.NewRecentCities(0)

	// Core pipeline: parse -> validate -> fetch -> compose.
	svc := assistant.NewService(
		parser.New(model, cfg.MaxUtteranceLen),
		client,
		composer.New(model),
		recent,
	)

	// Scheduler that periodically logs a digest for saved cities.
	sched := scheduler.New(client, cfg.DigestInterval, users, recent)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "meteo-assistant",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute, // parse + fetch + compose can be slow
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "meteo-assistant",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, svc, users)

	// Start server with graceful shutdown
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
