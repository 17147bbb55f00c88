package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(Flags{Headless: true}, "")
	if err != nil {
		t.Fatalf("Load with defaults should succeed: %v", err)
	}
	if !cfg.SelfHost() {
		t.Error("empty target should mean self-hosted demo app")
	}
	if cfg.StepTimeout != DefaultStepTimeout {
		t.Errorf("StepTimeout = %v, want %v", cfg.StepTimeout, DefaultStepTimeout)
	}
	if cfg.ScenarioTimeout != DefaultScenarioTimeout {
		t.Errorf("ScenarioTimeout = %v, want %v", cfg.ScenarioTimeout, DefaultScenarioTimeout)
	}
	if cfg.S3Enabled() {
		t.Error("S3 should be disabled without credentials")
	}
}

func TestLoad_TargetValidation(t *testing.T) {
	tests := []struct {
		name   string
		target string
		ok     bool
	}{
		{"valid http", "http://localhost:3000", true},
		{"valid https with trailing slash", "https://staging.example.com/", true},
		{"relative path", "/login", false},
		{"bare host", "localhost:3000", false},
		{"bad scheme", "ftp://example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(Flags{Target: tt.target, Headless: true}, "")
			if tt.ok && err != nil {
				t.Errorf("Load(%q) failed: %v", tt.target, err)
			}
			if !tt.ok && err == nil {
				t.Errorf("Load(%q) should have failed validation", tt.target)
			}
		})
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	cfg, err := Load(Flags{Target: "http://localhost:3000/", Headless: true}, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.TargetURL != "http://localhost:3000" {
		t.Errorf("TargetURL = %q, want trailing slash trimmed", cfg.TargetURL)
	}
}

func TestLoad_PartialS3ConfigRejected(t *testing.T) {
	t.Setenv("AWS_ENDPOINT_URL_S3", "https://fake.s3.example.com")
	t.Setenv("ARTIFACT_BUCKET", "flow-artifacts")
	// Access key and secret deliberately unset.
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	_, err := Load(Flags{Headless: true}, "")
	if err == nil {
		t.Fatal("partial S3 configuration should fail validation")
	}
	verr, ok := err.(*ValidationError)
	if !ok {
		t.Fatalf("expected *ValidationError, got %T", err)
	}
	if !strings.Contains(verr.Error(), "artifact S3 storage") {
		t.Errorf("error should point at S3 settings, got: %v", verr)
	}
}

func TestLoad_FullS3Config(t *testing.T) {
	t.Setenv("AWS_ENDPOINT_URL_S3", "https://fake.s3.example.com")
	t.Setenv("ARTIFACT_BUCKET", "flow-artifacts")
	t.Setenv("AWS_ACCESS_KEY_ID", "key")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")

	cfg, err := Load(Flags{Headless: true}, "")
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.S3Enabled() {
		t.Error("S3 should be enabled with full configuration")
	}
	if cfg.S3PublicURL != "https://fake.s3.example.com/flow-artifacts" {
		t.Errorf("derived public URL = %q", cfg.S3PublicURL)
	}
}

func TestLoad_TimeoutEnvOverrides(t *testing.T) {
	t.Setenv("FLOWCHECK_STEP_TIMEOUT", "2s")
	t.Setenv("FLOWCHECK_SCENARIO_TIMEOUT", "30")

	cfg, err := Load(Flags{Headless: true}, "")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.StepTimeout != 2*time.Second {
		t.Errorf("StepTimeout = %v, want 2s", cfg.StepTimeout)
	}
	if cfg.ScenarioTimeout != 30*time.Second {
		t.Errorf("ScenarioTimeout = %v, want 30s (bare integer is seconds)", cfg.ScenarioTimeout)
	}
}

func TestLoad_ScenarioTimeoutMustCoverStepTimeout(t *testing.T) {
	t.Setenv("FLOWCHECK_STEP_TIMEOUT", "10s")
	t.Setenv("FLOWCHECK_SCENARIO_TIMEOUT", "5s")

	if _, err := Load(Flags{Headless: true}, ""); err == nil {
		t.Fatal("scenario timeout below step timeout should fail validation")
	}
}

func TestLoad_NegativeRetriesRejected(t *testing.T) {
	if _, err := Load(Flags{Headless: true, Retries: -1}, ""); err == nil {
		t.Fatal("negative retries should fail validation")
	}
}
