// Package config loads and validates the server/worker process
// environment.
package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config is the full environment-derived process configuration shared by
// cmd/server and cmd/migrate.
type Config struct {
	Port        string `envconfig:"PORT" default:"3000"`
	BaseURL     string `envconfig:"BASE_URL" required:"true"`
	AuthSecret  string `envconfig:"AUTH_SECRET" required:"true"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	DBHost     string `envconfig:"DB_HOST" default:"localhost"`
	DBPort     int    `envconfig:"DB_PORT" default:"5432"`
	DBUser     string `envconfig:"DB_USER" default:"crawlee"`
	DBPassword string `envconfig:"DB_PASSWORD" default:"password"`
	DBName     string `envconfig:"DB_NAME" default:"crawlee"`
	DBSSLMode  string `envconfig:"DB_SSLMODE" default:"disable"`

	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT" default:"localhost:9000"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY" default:""`
	S3SecretKey string `envconfig:"S3_SECRET_KEY" default:""`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"crawlee-cloud"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3UseSSL    bool   `envconfig:"S3_USE_SSL" default:"false"`

	// ContainerRuntime selects the ContainerRuntime backend: "docker",
	// "k8s", or "local" (test/dev only).
	ContainerRuntime string `envconfig:"CONTAINER_RUNTIME" default:"docker"`
	K8sNamespace     string `envconfig:"K8S_NAMESPACE" default:"crawlee-cloud"`

	MaxConcurrentRuns int           `envconfig:"MAX_CONCURRENT_RUNS" default:"10"`
	DispatchPollEvery time.Duration `envconfig:"DISPATCH_POLL_INTERVAL" default:"1s"`
	JanitorGrace      time.Duration `envconfig:"JANITOR_GRACE" default:"30s"`
	JanitorInterval   time.Duration `envconfig:"JANITOR_INTERVAL" default:"30s"`
	StopGracePeriod   time.Duration `envconfig:"STOP_GRACE_PERIOD" default:"10s"`

	DefaultImageMemoryMbytes int `envconfig:"DEFAULT_MEMORY_MBYTES" default:"1024"`
	DefaultTimeoutSecs       int `envconfig:"DEFAULT_TIMEOUT_SECS" default:"300"`

	SessionTokenTTL time.Duration `envconfig:"SESSION_TOKEN_TTL" default:"1h"`
}

// Load reads .env (outside production), then the process environment, and
// validates the result.
func Load() (*Config, error) {
	if os.Getenv("ENVIRONMENT") != "production" {
		if err := godotenv.Load(); err != nil {
			log.Println("no .env file found")
		} else {
			log.Println("loaded .env file")
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if errs := cfg.validate(); len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n%s", strings.Join(errs, "\n"))
	}

	return &cfg, nil
}

func (c *Config) validate() []string {
	var errs []string

	if len(c.AuthSecret) < 32 {
		errs = append(errs, "  AUTH_SECRET must be at least 32 characters")
	}
	if _, err := url.ParseRequestURI(c.BaseURL); err != nil {
		errs = append(errs, "  BASE_URL must be a valid URL")
	}
	switch c.ContainerRuntime {
	case "docker", "k8s", "local":
	default:
		errs = append(errs, fmt.Sprintf("  CONTAINER_RUNTIME %q is not one of docker|k8s|local", c.ContainerRuntime))
	}
	if c.MaxConcurrentRuns <= 0 {
		errs = append(errs, "  MAX_CONCURRENT_RUNS must be positive")
	}

	return errs
}

// MaskSecret redacts all but the first/last 4 characters of a secret for logging.
func MaskSecret(secret string) string {
	if secret == "" {
		return "<not set>"
	}
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:4] + "..." + secret[len(secret)-4:]
}

// Print logs a human-readable configuration summary via fmtr (e.g. log.Printf).
func (c *Config) Print(fmtr func(string, ...interface{})) {
	fmtr("configuration:\n")
	fmtr("  environment: %s\n", c.Environment)
	fmtr("  port: %s\n", c.Port)
	fmtr("  base url: %s\n", c.BaseURL)
	fmtr("  auth secret: %s\n", MaskSecret(c.AuthSecret))
	fmtr("  database: %s@%s:%d/%s (sslmode=%s)\n", c.DBUser, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
	fmtr("  redis: %s (db %d)\n", c.RedisAddr, c.RedisDB)
	fmtr("  blob store: %s/%s (ssl=%v)\n", c.S3Endpoint, c.S3Bucket, c.S3UseSSL)
	fmtr("  container runtime: %s\n", c.ContainerRuntime)
	fmtr("  max concurrent runs: %d\n", c.MaxConcurrentRuns)
}
