// Command api is the Siouxland Civic Alerts API server.
//
// Usage:
//
//	siouxland-api
//	API_PORT=8080 siouxland-api

// @title Siouxland Civic Alerts API
// @version 1.0.0
// @description Watches weather, river level, air quality, and traffic for the Siouxland area, classifies anomalies, and pushes notifications to subscribers and registered devices.
// @host localhost:8000
// @BasePath /
// @schemes http https
// @contact.name Siouxland Civic Alerts
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"

	"github.com/albapepper/siouxland-alerts/internal/api"
	"github.com/albapepper/siouxland-alerts/internal/cache"
	"github.com/albapepper/siouxland-alerts/internal/config"
	"github.com/albapepper/siouxland-alerts/internal/db"
	"github.com/albapepper/siouxland-alerts/internal/dispatch"
	"github.com/albapepper/siouxland-alerts/internal/ledger"
	"github.com/albapepper/siouxland-alerts/internal/observability"
	"github.com/albapepper/siouxland-alerts/internal/pipeline"
	"github.com/albapepper/siouxland-alerts/internal/source"
	"github.com/albapepper/siouxland-alerts/internal/subs"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Connect to database
	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	// Apply schema
	if err := pool.RunMigrations(ctx); err != nil {
		logger.Error("Failed to apply schema", "error", err)
		os.Exit(1)
	}

	// Snapshot cache (optional)
	redisAddr := cfg.RedisAddr
	if !cfg.CacheEnabled {
		redisAddr = ""
	}
	snapshots := cache.New(redisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.StatusTTL)
	logger.Info("Snapshot cache initialized", "enabled", snapshots.Enabled())

	// Delivery channels
	var webPush dispatch.WebPusher
	if wp := dispatch.NewWebPushSender(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubject); wp != nil {
		webPush = wp
	} else {
		logger.Info("Web push disabled (no VAPID keys)")
	}
	expo := dispatch.NewExpoSender(cfg.ExpoPushURL)

	store := subs.New(pool.Pool)
	sender := dispatch.New(store, webPush, expo, logger)

	// Pipeline
	metrics := observability.NewMetrics()
	orch := pipeline.New(pipeline.Deps{
		Weather:   source.NewWeatherClient(cfg.NWSBaseURL, cfg.NWSZone, cfg.NWSStation, cfg.NWSUserAgent),
		River:     source.NewRiverClient(cfg.NWPSBaseURL, cfg.RiverGaugeID),
		Air:       source.NewAirQualityClient(cfg.AirNowBase, cfg.AirNowAPIKey, cfg.AirNowZip),
		Traffic:   source.NewTrafficClient(cfg.TrafficFeed),
		Subs:      store,
		Ledger:    ledger.New(pool.Pool, clockwork.NewRealClock()),
		Sender:    sender,
		Snapshots: snapshots,
	}, cfg.LedgerRetention, logger, metrics)

	// Create router
	router := api.NewRouter(pool.Pool, snapshots, orch, cfg)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // cron runs block on four upstream fetches
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Siouxland Civic Alerts API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
