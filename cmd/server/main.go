package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"renewshare/internal/config"
	"renewshare/internal/handlers"
	"renewshare/internal/providers/entsoe"
	"renewshare/internal/providers/openmeteo"
	"renewshare/internal/providers/smard"
	"renewshare/internal/repository"
	"renewshare/internal/services"
	"renewshare/pkg/database"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("renewshare-api", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting renewable share API server", logging.Fields{
		"version":     "1.0.0",
		"server_host": cfg.Server.Host,
		"server_port": cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("renewshare")

	// Initialize database
	db, err := database.NewDB(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository
	stateRepo := repository.NewStateRepository(db, logger, metricsCollector)

	// Initialize fetch adapters
	generation, err := entsoe.New(entsoe.Config{
		BaseURL:     cfg.Entsoe.BaseURL,
		APIKey:      cfg.Entsoe.APIKey,
		BiddingZone: cfg.Entsoe.BiddingZone,
		Timeout:     cfg.Entsoe.Timeout,
		MaxRetries:  cfg.Entsoe.MaxRetries,
	}, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to initialize generation source", logging.Fields{}, err)
	}

	consumption := smard.New(smard.Config{
		BaseURL:    cfg.Smard.BaseURL,
		FilterID:   cfg.Smard.FilterID,
		Region:     cfg.Smard.Region,
		Timeout:    cfg.Smard.Timeout,
		MaxRetries: cfg.Smard.MaxRetries,
	}, logger, metricsCollector)

	cities := make([]openmeteo.City, 0, len(cfg.Weather.Cities))
	for _, c := range cfg.Weather.Cities {
		cities = append(cities, openmeteo.City{Name: c.Name, Latitude: c.Latitude, Longitude: c.Longitude})
	}
	weather, err := openmeteo.New(openmeteo.Config{
		BaseURL:    cfg.Weather.BaseURL,
		Timezone:   cfg.Weather.Timezone,
		Timeout:    cfg.Weather.Timeout,
		MaxRetries: cfg.Weather.MaxRetries,
		Cities:     cities,
	}, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to initialize weather source", logging.Fields{}, err)
	}

	// Initialize services
	yearlyService := services.NewYearlyService(generation, consumption, stateRepo, cfg.Aggregate, logger, metricsCollector)
	shareService := services.NewShareService(generation, consumption, weather, yearlyService, cfg.Comparison, cfg.Cache, logger, metricsCollector)

	// Initialize handlers
	shareHandler := handlers.NewShareHandler(shareService, yearlyService, stateRepo, logger, metricsCollector)

	// Setup router
	router := mux.NewRouter()
	router.Use(handlers.RequestIDMiddleware)

	// Register routes
	shareHandler.RegisterRoutes(router)

	// API documentation
	router.HandleFunc("/api/docs", handlers.SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", handlers.OpenAPISpec).Methods("GET")

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
