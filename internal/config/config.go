package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	SessionSecret string        `env:"SESSION_SECRET"`
	SessionMaxAge time.Duration `env:"SESSION_MAX_AGE" default:"168h"` // 7 days

	// Hosted identity provider (OAuth code flow)
	AuthIssuerURL    string `env:"AUTH_ISSUER_URL"`
	AuthClientID     string `env:"AUTH_CLIENT_ID"`
	AuthClientSecret string `env:"AUTH_CLIENT_SECRET"`
	AuthRedirectURI  string `env:"AUTH_REDIRECT_URI"`

	// Building-benchmarking service (Basic auth + XML). All three must be
	// set together; left empty the proxy routes answer 503.
	ESPMBaseURL  string `env:"ESPM_BASE_URL"`
	ESPMUsername string `env:"ESPM_USERNAME"`
	ESPMPassword string `env:"ESPM_PASSWORD"`

	// Energy price API. An empty key disables the price sync.
	EIABaseURL        string        `env:"EIA_BASE_URL" default:"https://api.eia.gov/v2"`
	EIAAPIKey         string        `env:"EIA_API_KEY"`
	PriceSyncInterval time.Duration `env:"PRICE_SYNC_INTERVAL" default:"24h"`

	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":       cfg.DatabaseURL,
		"SESSION_SECRET":     cfg.SessionSecret,
		"AUTH_ISSUER_URL":    cfg.AuthIssuerURL,
		"AUTH_CLIENT_ID":     cfg.AuthClientID,
		"AUTH_CLIENT_SECRET": cfg.AuthClientSecret,
		"AUTH_REDIRECT_URI":  cfg.AuthRedirectURI,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.SessionSecret) < 32 {
		return errors.New("SESSION_SECRET must be at least 32 characters")
	}

	// Benchmarking credentials are all-or-nothing.
	espmSet := 0
	for _, v := range []string{cfg.ESPMBaseURL, cfg.ESPMUsername, cfg.ESPMPassword} {
		if v != "" {
			espmSet++
		}
	}
	if espmSet != 0 && espmSet != 3 {
		return errors.New("ESPM_BASE_URL, ESPM_USERNAME and ESPM_PASSWORD must be set together")
	}

	if cfg.PriceSyncInterval < 0 {
		return errors.New("PRICE_SYNC_INTERVAL must not be negative")
	}

	return nil
}

// ESPMConfigured reports whether the benchmarking proxy can be used.
func (c *Config) ESPMConfigured() bool {
	return c.ESPMBaseURL != "" && c.ESPMUsername != "" && c.ESPMPassword != ""
}

// PriceSyncEnabled reports whether the background price sync should run.
func (c *Config) PriceSyncEnabled() bool {
	return c.EIAAPIKey != "" && c.PriceSyncInterval > 0
}
