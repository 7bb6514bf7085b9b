package config_test

import (
	"testing"

	"github.com/railyard/factotum/internal/config"
)

func TestFromEnvAppliesDefaults(t *testing.T) {
	for _, key := range []string{
		"FACTOTUM_ADDR", "FACTOTUM_MAX_JOBS", "FACTOTUM_MAX_WORKERS",
		"FACTOTUM_KV_PATH", "FACTOTUM_WEBHOOK_URI", "FACTOTUM_NO_COLOUR",
		"FACTOTUM_BIN_PATH", "FACTOTUM_INSTANCE_ID", "FACTOTUM_NAMESPACE", "FACTOTUM_VERSION",
	} {
		t.Setenv(key, "")
	}

	cfg := config.FromEnv()
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.MaxJobs != 1000 {
		t.Errorf("MaxJobs = %d, want 1000", cfg.MaxJobs)
	}
	if cfg.MaxWorkers != 20 {
		t.Errorf("MaxWorkers = %d, want 20", cfg.MaxWorkers)
	}
	if cfg.Namespace != "factotum" {
		t.Errorf("Namespace = %q, want factotum", cfg.Namespace)
	}
	if cfg.InstanceID == "" {
		t.Errorf("InstanceID should fall back to the hostname, got empty string")
	}
}

func TestFromEnvHonorsOverrides(t *testing.T) {
	t.Setenv("FACTOTUM_ADDR", ":9090")
	t.Setenv("FACTOTUM_MAX_JOBS", "42")
	t.Setenv("FACTOTUM_NO_COLOUR", "true")
	t.Setenv("FACTOTUM_MAX_WORKERS", "not-a-number")

	cfg := config.FromEnv()
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.MaxJobs != 42 {
		t.Errorf("MaxJobs = %d, want 42", cfg.MaxJobs)
	}
	if !cfg.NoColour {
		t.Errorf("NoColour = false, want true")
	}
	if cfg.MaxWorkers != 20 {
		t.Errorf("MaxWorkers = %d, want the default 20 when the env var is unparseable", cfg.MaxWorkers)
	}
}
