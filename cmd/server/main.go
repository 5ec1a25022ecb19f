package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/n0hyd/energy-app-sub001/internal/app"
	"github.com/n0hyd/energy-app-sub001/internal/config"
	"github.com/n0hyd/energy-app-sub001/internal/database"
	"github.com/n0hyd/energy-app-sub001/internal/eia"
	"github.com/n0hyd/energy-app-sub001/internal/espm"
	"github.com/n0hyd/energy-app-sub001/internal/logging"
	"github.com/n0hyd/energy-app-sub001/internal/metrics"
	"github.com/n0hyd/energy-app-sub001/internal/server"
	"github.com/n0hyd/energy-app-sub001/internal/version"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(cfg *config.Config) *pgxpool.Pool {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if err := database.RunMigrationsWithLock(ctx, pool); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	return pool
}

func runGracefulShutdown(srv *server.Server, syncer *app.PriceSyncer) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		if syncer != nil {
			syncer.Stop()
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	// Initialize structured logging
	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Version, info.Commit, info.BuildTime, info.GoVersion).Set(1)

	pool := setupDB(cfg)
	defer pool.Close()

	priceRepo := database.NewPriceRepo(pool)
	repos := app.Repositories{
		Users:     database.NewUserRepo(pool),
		Orgs:      database.NewOrgRepo(pool),
		Buildings: database.NewBuildingRepo(pool),
		Meters:    database.NewMeterRepo(pool),
		Bills:     database.NewBillRepo(pool),
		Uploads:   database.NewUploadRepo(pool),
		Prices:    priceRepo,
		Dashboard: database.NewDashboardRepo(pool),
	}
	appSvc := app.NewService(repos, clock)

	// Start the background price sync if an API key is configured
	var syncer *app.PriceSyncer
	if cfg.PriceSyncEnabled() {
		fetcher := eia.NewClient(cfg.EIABaseURL, cfg.EIAAPIKey)
		syncer = app.NewPriceSyncer(fetcher, priceRepo, clock, cfg.PriceSyncInterval)
		go syncer.Start(context.Background())
	}

	var benchmark *espm.Client
	if cfg.ESPMConfigured() {
		benchmark = espm.NewClient(cfg.ESPMBaseURL, cfg.ESPMUsername, cfg.ESPMPassword)
	}

	healthChecks := []server.HealthCheck{
		{Name: "postgres", Check: pool.Ping},
	}

	// Pass nil explicitly for disabled integrations to avoid typed-nil interfaces
	var (
		srv    *server.Server
		srvErr error
	)
	switch {
	case syncer != nil && benchmark != nil:
		srv, srvErr = server.NewServer(cfg, appSvc, syncer, benchmark, healthChecks)
	case syncer != nil:
		srv, srvErr = server.NewServer(cfg, appSvc, syncer, nil, healthChecks)
	case benchmark != nil:
		srv, srvErr = server.NewServer(cfg, appSvc, nil, benchmark, healthChecks)
	default:
		srv, srvErr = server.NewServer(cfg, appSvc, nil, nil, healthChecks)
	}
	if srvErr != nil {
		slog.Error("Failed to create server", "error", srvErr)
		os.Exit(1)
	}

	done := runGracefulShutdown(srv, syncer)

	slog.Info("Server starting", "port", cfg.Port)
	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
