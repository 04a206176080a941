// Package engine parses engine command flags and launches the engine runtime.
package engine

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/sakshi-health/sakshi/internal/platform/cmd"
	engineserver "github.com/sakshi-health/sakshi/internal/therapy/app"
)

// Config holds engine command configuration.
type Config struct {
	Port             int           `env:"SAKSHI_ENGINE_PORT" envDefault:"8094"`
	HealthPort       int           `env:"SAKSHI_ENGINE_HEALTH_PORT" envDefault:"8095"`
	DBPath           string        `env:"SAKSHI_ENGINE_DB_PATH" envDefault:"data/engine.db"`
	OracleAPIKey     string        `env:"SAKSHI_ENGINE_ORACLE_API_KEY"`
	OracleModel      string        `env:"SAKSHI_ENGINE_ORACLE_MODEL" envDefault:"gpt-4o-mini"`
	OracleURL        string        `env:"SAKSHI_ENGINE_ORACLE_URL"`
	WatchInterval    time.Duration `env:"SAKSHI_ENGINE_WATCH_INTERVAL" envDefault:"5s"`
	MaxContextTokens int           `env:"SAKSHI_ENGINE_MAX_CONTEXT_TOKENS" envDefault:"4096"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The engine HTTP API port")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "The engine health gRPC server port")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The engine SQLite database path")
	fs.StringVar(&cfg.OracleAPIKey, "oracle-api-key", cfg.OracleAPIKey, "API key for the language model oracle")
	fs.StringVar(&cfg.OracleModel, "oracle-model", cfg.OracleModel, "Language model used for session guidance")
	fs.StringVar(&cfg.OracleURL, "oracle-url", cfg.OracleURL, "Override for the oracle responses endpoint")
	fs.DurationVar(&cfg.WatchInterval, "watch-interval", cfg.WatchInterval, "Session expiry sweep interval")
	fs.IntVar(&cfg.MaxContextTokens, "max-context-tokens", cfg.MaxContextTokens, "Conversation context token budget")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the engine runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceEngine, func(context.Context) error {
		return engineserver.Run(ctx, engineserver.RuntimeConfig{
			Port:             cfg.Port,
			HealthPort:       cfg.HealthPort,
			DBPath:           cfg.DBPath,
			OracleAPIKey:     cfg.OracleAPIKey,
			OracleModel:      cfg.OracleModel,
			OracleURL:        cfg.OracleURL,
			WatchInterval:    cfg.WatchInterval,
			MaxContextTokens: cfg.MaxContextTokens,
		})
	})
}
