package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/n0hyd/energy-app-sub001/internal/app"
	"github.com/n0hyd/energy-app-sub001/internal/database"
	"github.com/n0hyd/energy-app-sub001/internal/eia"
)

const (
	defaultBaseURL = "https://api.eia.gov/v2"
	syncTimeout    = 2 * time.Minute
)

// One-shot price sync for cron jobs and manual backfills. The server runs
// the same sync on a ticker; this binary exists for deployments that prefer
// an external scheduler.
func main() {
	var (
		databaseURL = flag.String("database", os.Getenv("DATABASE_URL"), "Postgres URL (or set DATABASE_URL env)")
		apiKey      = flag.String("api-key", os.Getenv("EIA_API_KEY"), "EIA API key (or set EIA_API_KEY env)")
		baseURL     = flag.String("base-url", os.Getenv("EIA_BASE_URL"), "EIA API base URL (or set EIA_BASE_URL env)")
		verbose     = flag.Bool("verbose", false, "Verbose logging")
	)
	flag.Parse()

	if *databaseURL == "" {
		log.Fatal("Postgres URL required (--database or DATABASE_URL env)")
	}
	if *apiKey == "" {
		log.Fatal("EIA API key required (--api-key or EIA_API_KEY env)")
	}
	if *baseURL == "" {
		*baseURL = defaultBaseURL
	}

	// Configure logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()

	pool, err := database.Connect(ctx, *databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	fetcher := eia.NewClient(*baseURL, *apiKey)
	syncer := app.NewPriceSyncer(fetcher, database.NewPriceRepo(pool), clockwork.NewRealClock(), 0)

	start := time.Now()
	result, err := syncer.Sync(ctx)
	if err != nil {
		log.Fatalf("Price sync failed: %v", err)
	}

	slog.Info("Price sync complete",
		"electric", result.Electric,
		"gas", result.Gas,
		"duration_ms", time.Since(start).Milliseconds())
}
