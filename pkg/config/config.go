package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL  string
	Port         string
	IsProduction bool

	// RateLimitRate is a ulule/limiter formatted rate, e.g. "300-M".
	RateLimitRate string

	// Dispatch pool sizing for asynchronous batch processing.
	SimCoreWorkers   int
	SimMaxWorkers    int
	SimQueueCapacity int
	SimKeepAlive     time.Duration

	// ShutdownDrainTimeout bounds how long shutdown waits for in-flight
	// simulations before force-stopping the pool.
	ShutdownDrainTimeout time.Duration
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("RATE_LIMIT_RATE", "300-M")
	viper.SetDefault("SIM_CORE_WORKERS", 50)
	viper.SetDefault("SIM_MAX_WORKERS", 200)
	viper.SetDefault("SIM_QUEUE_CAPACITY", 15000)
	viper.SetDefault("SIM_KEEP_ALIVE", "60s")
	viper.SetDefault("SHUTDOWN_DRAIN_TIMEOUT", "60s")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.RateLimitRate = viper.GetString("RATE_LIMIT_RATE")

	cfg.SimCoreWorkers = viper.GetInt("SIM_CORE_WORKERS")
	cfg.SimMaxWorkers = viper.GetInt("SIM_MAX_WORKERS")
	cfg.SimQueueCapacity = viper.GetInt("SIM_QUEUE_CAPACITY")
	if cfg.SimMaxWorkers < cfg.SimCoreWorkers {
		log.Printf("Warning: SIM_MAX_WORKERS (%d) below SIM_CORE_WORKERS (%d); raising it.\n", cfg.SimMaxWorkers, cfg.SimCoreWorkers)
		cfg.SimMaxWorkers = cfg.SimCoreWorkers
	}

	keepAliveStr := viper.GetString("SIM_KEEP_ALIVE")
	keepAlive, err := time.ParseDuration(keepAliveStr)
	if err != nil {
		keepAlive = time.Minute
		log.Printf("Warning: Invalid value for SIM_KEEP_ALIVE (%q). Defaulting to %s.\n", keepAliveStr, keepAlive)
	}
	cfg.SimKeepAlive = keepAlive

	drainStr := viper.GetString("SHUTDOWN_DRAIN_TIMEOUT")
	drain, err := time.ParseDuration(drainStr)
	if err != nil {
		drain = time.Minute
		log.Printf("Warning: Invalid value for SHUTDOWN_DRAIN_TIMEOUT (%q). Defaulting to %s.\n", drainStr, drain)
	}
	cfg.ShutdownDrainTimeout = drain

	return cfg, nil
}
