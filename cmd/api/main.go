package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/wayfarelabs/wayfare/internal/adapters/catalog"
	"github.com/wayfarelabs/wayfare/internal/adapters/elevenlabs"
	genaiadapter "github.com/wayfarelabs/wayfare/internal/adapters/genai"
	"github.com/wayfarelabs/wayfare/internal/adapters/http"
	"github.com/wayfarelabs/wayfare/internal/adapters/memcache"
	natsadapter "github.com/wayfarelabs/wayfare/internal/adapters/nats"
	"github.com/wayfarelabs/wayfare/internal/adapters/places"
	"github.com/wayfarelabs/wayfare/internal/adapters/valkey"
	"github.com/wayfarelabs/wayfare/internal/adapters/wikipedia"
	"github.com/wayfarelabs/wayfare/internal/core/domain"
	"github.com/wayfarelabs/wayfare/internal/core/ports"
	"github.com/wayfarelabs/wayfare/internal/core/usecases"
	"github.com/wayfarelabs/wayfare/internal/pkg/config"
	"github.com/wayfarelabs/wayfare/internal/pkg/logging"
	"github.com/wayfarelabs/wayfare/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("wayfare-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Curated POI catalog (embedded)
	poiCatalog, err := catalog.New()
	if err != nil {
		log.Fatalf("catalog: %v", err)
	}

	// Cache: valkey when reachable, bounded in-process map otherwise
	var cache ports.CacheService
	if vk, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, using in-process cache", "error", err)
		cache = memcache.New(0)
	} else {
		defer vk.Close()
		cache = vk
	}

	// NATS
	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer publisher.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// External providers
	maps := places.New(cfg.Google.MapsAPIKey)
	knowledge := wikipedia.New()

	var generator ports.TextGenerator
	if cfg.Gemini.APIKey != "" {
		g, err := genaiadapter.NewGenerator(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
		if err != nil {
			slog.Warn("gemini unavailable, narration and intent extraction degraded", "error", err)
		} else {
			generator = g
		}
	} else {
		slog.Warn("no Gemini API key configured, narration and intent extraction degraded")
	}

	var tts ports.SpeechSynthesizer
	if cfg.ElevenLabs.APIKey != "" {
		tts = elevenlabs.New(cfg.ElevenLabs.APIKey)
	}

	defaultStart := domain.GeoPoint{Lat: cfg.Tour.DefaultStartLat, Lng: cfg.Tour.DefaultStartLng}

	// Use cases
	candidateSvc := usecases.NewCandidateService(maps, poiCatalog)
	routeSvc := usecases.NewRouteService(candidateSvc, maps)
	replanSvc := usecases.NewReplanService(generator, maps, routeSvc, defaultStart)
	narrationSvc := usecases.NewNarrationService(generator, knowledge, cache)
	speechSvc := usecases.NewSpeechService(tts, cache)

	var eventPublisher ports.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}
	tourSvc := usecases.NewTourService(routeSvc, eventPublisher, defaultStart,
		cfg.Tour.ProximityMeters, cfg.Tour.DynamicSearchByDflt)

	deps := &http.Dependencies{
		Tours:     tourSvc,
		Routes:    routeSvc,
		Replans:   replanSvc,
		Narration: narrationSvc,
		Speech:    speechSvc,
		Catalog:   poiCatalog,
		Places:    maps,
		NATS:      natsConn,
		Cache:     cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Wayfare API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
