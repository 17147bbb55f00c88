// Package config provides centralized configuration for the flowcheck harness.
// It loads configuration from CLI flags and environment variables, validates
// required fields, and provides sensible defaults.
//
// CLI flags control run behavior (--target, --headless, --retries); environment
// variables provide service configuration such as artifact storage credentials.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultStepTimeout bounds every single wait or assertion.
	DefaultStepTimeout = 5 * time.Second

	// DefaultScenarioTimeout bounds one whole scenario.
	DefaultScenarioTimeout = 60 * time.Second
)

// Config holds all harness configuration.
type Config struct {
	// TargetURL is the base URL of the application under verification.
	// Empty means self-host the built-in demo application for the run.
	TargetURL string

	// Pattern filters scenarios by substring match on chain/scenario name.
	Pattern string

	// Browser settings
	Headless        bool
	StepTimeout     time.Duration // per-wait bound
	ScenarioTimeout time.Duration // per-scenario bound

	// Retries is the number of whole-scenario retries after a failure.
	// Assertion failures are never retried inside a scenario.
	Retries int

	// ReadySelector overrides the hydration readiness selector. Empty means
	// the harness default.
	ReadySelector string

	// ArtifactsDir is the local directory for failure screenshots and the
	// run report. Empty disables local artifacts.
	ArtifactsDir string

	// S3 artifact storage (optional; uses AWS_ env vars)
	S3Endpoint        string // AWS_ENDPOINT_URL_S3
	S3Region          string // AWS_REGION
	S3AccessKeyID     string // AWS_ACCESS_KEY_ID
	S3SecretAccessKey string // AWS_SECRET_ACCESS_KEY
	S3Bucket          string // ARTIFACT_BUCKET
	S3PublicURL       string // ARTIFACT_PUBLIC_URL

	// Demo application settings (flowcheck demo, or self-hosted target)
	DemoListenAddr string
	DemoDataDir    string
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Flags holds the CLI flag values that feed into Load.
type Flags struct {
	Target       string
	Headless     bool
	Retries      int
	ArtifactsDir string
	Addr         string
}

// Load builds configuration from environment variables and CLI flag values.
// The pattern argument comes from the CLI positional argument, not a flag.
func Load(flags Flags, pattern string) (*Config, error) {
	cfg := &Config{}

	cfg.TargetURL = strings.TrimRight(strings.TrimSpace(flags.Target), "/")
	if cfg.TargetURL == "" {
		cfg.TargetURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FLOWCHECK_TARGET")), "/")
	}
	cfg.Pattern = strings.TrimSpace(pattern)

	cfg.Headless = flags.Headless
	cfg.StepTimeout = parseDurationOrDefault("FLOWCHECK_STEP_TIMEOUT", DefaultStepTimeout)
	cfg.ScenarioTimeout = parseDurationOrDefault("FLOWCHECK_SCENARIO_TIMEOUT", DefaultScenarioTimeout)
	cfg.Retries = flags.Retries
	cfg.ReadySelector = strings.TrimSpace(os.Getenv("FLOWCHECK_READY_SELECTOR"))

	cfg.ArtifactsDir = strings.TrimSpace(flags.ArtifactsDir)
	if cfg.ArtifactsDir == "" {
		cfg.ArtifactsDir = strings.TrimSpace(os.Getenv("FLOWCHECK_ARTIFACTS_DIR"))
	}

	// S3 artifact storage (AWS_ env vars, same shape `fly storage create` emits)
	cfg.S3Endpoint = strings.TrimSpace(os.Getenv("AWS_ENDPOINT_URL_S3"))
	cfg.S3Region = getEnvOrDefault("AWS_REGION", "auto")
	cfg.S3AccessKeyID = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	cfg.S3SecretAccessKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	cfg.S3Bucket = strings.TrimSpace(os.Getenv("ARTIFACT_BUCKET"))
	cfg.S3PublicURL = strings.TrimSpace(os.Getenv("ARTIFACT_PUBLIC_URL"))
	if cfg.S3PublicURL == "" && cfg.S3Endpoint != "" && cfg.S3Bucket != "" {
		cfg.S3PublicURL = strings.TrimRight(cfg.S3Endpoint, "/") + "/" + cfg.S3Bucket
	}

	// Demo application
	cfg.DemoListenAddr = getEnvOrDefault("FLOWCHECK_DEMO_ADDR", ":8080")
	if flags.Addr != "" {
		cfg.DemoListenAddr = flags.Addr
	}
	cfg.DemoDataDir = getEnvOrDefault("FLOWCHECK_DEMO_DATA_DIR", "")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that all required configuration is present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.TargetURL != "" {
		u, err := url.Parse(c.TargetURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Sprintf("--target must be an absolute http(s) URL, got %q", c.TargetURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errs = append(errs, fmt.Sprintf("--target scheme must be http or https, got %q", u.Scheme))
		}
	}

	if c.StepTimeout <= 0 {
		errs = append(errs, "FLOWCHECK_STEP_TIMEOUT must be positive")
	}
	if c.ScenarioTimeout <= 0 {
		errs = append(errs, "FLOWCHECK_SCENARIO_TIMEOUT must be positive")
	}
	if c.ScenarioTimeout < c.StepTimeout {
		errs = append(errs, "FLOWCHECK_SCENARIO_TIMEOUT must be at least FLOWCHECK_STEP_TIMEOUT")
	}
	if c.Retries < 0 {
		errs = append(errs, "--retries must not be negative")
	}

	// S3 settings are all-or-nothing: a partially configured bucket would
	// fail mid-run, after scenarios already executed.
	s3Fields := []string{c.S3Endpoint, c.S3Bucket, c.S3AccessKeyID, c.S3SecretAccessKey}
	any, all := false, true
	for _, f := range s3Fields {
		if f == "" {
			all = false
		} else {
			any = true
		}
	}
	if any && !all {
		errs = append(errs, "artifact S3 storage requires AWS_ENDPOINT_URL_S3, ARTIFACT_BUCKET, AWS_ACCESS_KEY_ID, and AWS_SECRET_ACCESS_KEY together")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// S3Enabled reports whether S3 artifact storage is fully configured.
func (c *Config) S3Enabled() bool {
	return c.S3Endpoint != "" && c.S3Bucket != "" && c.S3AccessKeyID != "" && c.S3SecretAccessKey != ""
}

// SelfHost reports whether the run should boot the built-in demo application.
func (c *Config) SelfHost() bool {
	return c.TargetURL == ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
