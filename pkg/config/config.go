package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL   string
	Port          string
	IsProduction  bool
	DisableAuth   bool
	RateLimit     string // ulule/limiter format, e.g. "100-M"
	SweepInterval time.Duration
}

// LoadConfig loads configuration from environment variables and a .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("DISABLE_AUTH", false)
	viper.SetDefault("RATE_LIMIT", "100-M")
	viper.SetDefault("IDEMPOTENCY_SWEEP_INTERVAL", "1h")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")

	cfg.DisableAuth = viper.GetBool("DISABLE_AUTH")
	if cfg.DisableAuth {
		log.Println("Warning: DISABLE_AUTH is set. API key authentication is OFF.")
	}

	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	sweepStr := viper.GetString("IDEMPOTENCY_SWEEP_INTERVAL")
	sweep, err := time.ParseDuration(sweepStr)
	if err != nil {
		log.Printf("Warning: Invalid value for IDEMPOTENCY_SWEEP_INTERVAL ('%s'). Defaulting to 1h.\n", sweepStr)
		sweep = time.Hour
	}
	cfg.SweepInterval = sweep

	return cfg, nil
}
