// Package config loads runtime configuration from the environment and an
// optional .env file. Flag values take precedence over everything here; the
// CLI merges them after loading.
package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the environment-derived settings of a run.
type Config struct {
	GithubToken       string        `mapstructure:"GITHUB_TOKEN"`
	LogLevel          string        `mapstructure:"LOG_LEVEL"`
	LogPretty         bool          `mapstructure:"LOG_PRETTY"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	CacheTTL          time.Duration `mapstructure:"CACHE_TTL"`
	RequestsPerSecond float64       `mapstructure:"REQUESTS_PER_SECOND"`
	MetricsAddr       string        `mapstructure:"METRICS_ADDR"`
}

// Load reads the .env file when present, then the environment.
func Load() (*Config, error) {
	// Missing .env is the normal case, not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetDefault("GITHUB_TOKEN", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_PRETTY", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("CACHE_TTL", time.Hour)
	v.SetDefault("REQUESTS_PER_SECOND", 2.0)
	v.SetDefault("METRICS_ADDR", "")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
