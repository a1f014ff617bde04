// Copyright 2025 Certen Protocol
//
// Configuration loader for the pre-handle and signature-verification core.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the pre-handle service.
type Config struct {
	// Service identification
	NodeID   string
	LogLevel string

	// Transport
	ListenAddr  string
	MetricsAddr string
	HealthAddr  string

	// Worker pool sizing: a fixed-size pre-handle pool and a separate
	// CPU-bound signature verification pool.
	PreHandleWorkers int
	SigVerifyWorkers int

	// Per-signature-verification timeout. Validate requires it to be
	// positive, but no component of this module reads it: the dispatch
	// pool applies no timeout to a SignatureVerificationFuture.
	VerificationTimeout time.Duration

	// Maximum nesting depth accepted for scheduled (inner) transactions.
	MaxNestedContextDepth int
}

// Load reads configuration from environment variables, falling back to
// defaults safe for local development and tests.
func Load() (*Config, error) {
	cfg := &Config{
		NodeID:   getEnv("NODE_ID", "node-0"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ListenAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("API_PORT", "8080"),
		MetricsAddr: getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("METRICS_PORT", "9090"),
		HealthAddr:  getEnv("API_HOST", "0.0.0.0") + ":" + getEnv("HEALTH_PORT", "8081"),

		PreHandleWorkers: getEnvInt("PREHANDLE_WORKERS", 8),
		SigVerifyWorkers: getEnvInt("SIGVERIFY_WORKERS", 16),

		VerificationTimeout: getEnvDuration("VERIFICATION_TIMEOUT", 10*time.Second),

		MaxNestedContextDepth: getEnvInt("MAX_NESTED_CONTEXT_DEPTH", 2),
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	var errs []string

	if c.PreHandleWorkers <= 0 {
		errs = append(errs, "PREHANDLE_WORKERS must be positive")
	}
	if c.SigVerifyWorkers <= 0 {
		errs = append(errs, "SIGVERIFY_WORKERS must be positive")
	}
	if c.VerificationTimeout <= 0 {
		errs = append(errs, "VERIFICATION_TIMEOUT must be positive")
	}
	if c.MaxNestedContextDepth < 1 {
		errs = append(errs, "MAX_NESTED_CONTEXT_DEPTH must be at least 1")
	}
	if c.NodeID == "" {
		errs = append(errs, "NODE_ID must not be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
