package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.CacheTTL != time.Hour {
		t.Errorf("CacheTTL = %v, want 1h", cfg.CacheTTL)
	}
	if cfg.RequestsPerSecond != 2.0 {
		t.Errorf("RequestsPerSecond = %v, want 2", cfg.RequestsPerSecond)
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CACHE_TTL", "30m")
	t.Setenv("REDIS_URL", "localhost:6379")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.GithubToken != "ghp_test" {
		t.Errorf("GithubToken = %q", cfg.GithubToken)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.CacheTTL != 30*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
	if cfg.RedisURL != "localhost:6379" {
		t.Errorf("RedisURL = %q", cfg.RedisURL)
	}
}
