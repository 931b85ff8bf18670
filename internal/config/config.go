// Package config loads process configuration from the environment, reading a .env
// file first when one exists.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrParsingConfig = errors.New("failed to parse config")

type Config struct {
	TableName           string        `env:"TABLE_NAME"`
	TokenSecret         string        `env:"TOKEN_SECRET" envDefault:"notifications"`
	DeliveryTimeout     time.Duration `env:"DELIVERY_TIMEOUT" envDefault:"10s"`
	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY" envDefault:"8"`
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`
	CorsOrigins         []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
}

// Persistent reports whether subscribers are stored in DynamoDB.
func (c Config) Persistent() bool {
	return strings.TrimSpace(c.TableName) != ""
}

func Load() (Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	return cfg, nil
}

func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	return cfg
}

// ConfigureLogging sets the global zerolog level and output format.
func (c Config) ConfigureLogging() {
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if c.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}
}
