package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"renewshare/internal/config"
	"renewshare/internal/models"
	"renewshare/internal/providers/entsoe"
	"renewshare/internal/providers/smard"
	"renewshare/internal/repository"
	"renewshare/internal/services"
	"renewshare/pkg/database"
	"renewshare/pkg/logging"
	"renewshare/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file")
	dateStr := flag.String("date", "", "Run the update as of this date (YYYY-MM-DD, default today)")
	lagDays := flag.Int("lag-days", 0, "Finalization lag override (default from configuration)")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := logging.NewStructuredLogger("renewshare-updater", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()

	today := time.Now().UTC()
	if *dateStr != "" {
		parsed, err := models.ParseDate("date", *dateStr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid -date: %v\n", err)
			os.Exit(1)
		}
		today = parsed
	}

	logger.Info(ctx, "[UPDATER_START] Starting yearly aggregate update", logging.Fields{
		"date":     today.Format("2006-01-02"),
		"lag_days": *lagDays,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("renewshare_updater")

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
		logger.Fatal(ctx, "[UPDATER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Initialize repository and sources
	stateRepo := repository.NewStateRepository(db, logger, metricsCollector)

	generation, err := entsoe.New(entsoe.Config{
		BaseURL:     cfg.Entsoe.BaseURL,
		APIKey:      cfg.Entsoe.APIKey,
		BiddingZone: cfg.Entsoe.BiddingZone,
		Timeout:     cfg.Entsoe.Timeout,
		MaxRetries:  cfg.Entsoe.MaxRetries,
	}, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[UPDATER_ERROR] Failed to initialize generation source", logging.Fields{}, err)
	}

	consumption := smard.New(smard.Config{
		BaseURL:    cfg.Smard.BaseURL,
		FilterID:   cfg.Smard.FilterID,
		Region:     cfg.Smard.Region,
		Timeout:    cfg.Smard.Timeout,
		MaxRetries: cfg.Smard.MaxRetries,
	}, logger, metricsCollector)

	yearlyService := services.NewYearlyService(generation, consumption, stateRepo, cfg.Aggregate, logger, metricsCollector)

	// Run the update
	start := time.Now()
	state, err := yearlyService.Update(ctx, today, *lagDays)
	duration := time.Since(start)

	if err != nil {
		var implausible *services.ImplausibleResultError
		if errors.As(err, &implausible) {
			fmt.Println(strings.Repeat("=", 80))
			fmt.Println("UPDATE REJECTED")
			fmt.Println(strings.Repeat("=", 80))
			fmt.Printf("Blended Share:      %.2f%%\n", implausible.SharePercent)
			fmt.Printf("Plausibility Floor: %.2f%%\n", implausible.FloorPercent)
			fmt.Println("Persisted state was left untouched.")
			os.Exit(2)
		}
		logger.Fatal(ctx, "[UPDATER_ERROR] Update failed", logging.Fields{
			"date": today.Format("2006-01-02"),
		}, err)
	}

	// Print results
	finalized := "none"
	if state.FinalizedDate != nil {
		finalized = state.FinalizedDate.Format("2006-01-02")
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("UPDATE COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Year:                %d\n", state.Year)
	fmt.Printf("Finalized Through:   %s\n", finalized)
	fmt.Printf("Renewable Total:     %.2f MWh\n", state.FinalizedRenewableMWh)
	fmt.Printf("Consumption Total:   %.2f MWh\n", state.FinalizedConsumptionMWh)
	fmt.Printf("Renewable Share:     %.2f%%\n", state.RenewableSharePercent)
	fmt.Printf("State Version:       %d\n", state.Version)
	fmt.Printf("Duration:            %v\n", duration)

	logger.Info(ctx, "[UPDATER_COMPLETE] Yearly aggregate update finished", logging.Fields{
		"year":             state.Year,
		"share_percent":    state.RenewableSharePercent,
		"duration_seconds": duration.Seconds(),
	})
}
