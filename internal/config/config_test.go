//go:build !integration

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadConfigDefaults(t *testing.T) {
	p := writeConfig(t, `
database:
  url: postgres://localhost:5432/inspections
analysis:
  base_url: http://ml-service:8000
`)
	cfg, err := LoadConfig(p, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("server port default: %d", cfg.Server.Port)
	}
	if cfg.Retry.BaseDelay != time.Second || cfg.Retry.CapDelay != 30*time.Second || cfg.Retry.MaxRetries != 3 {
		t.Errorf("retry defaults: %+v", cfg.Retry)
	}
	if cfg.Progress.Initial != 5 || cfg.Progress.Handoff != 20 || cfg.Progress.Step != 5 ||
		cfg.Progress.Interval != 10*time.Second || cfg.Progress.Ceiling != 85 {
		t.Errorf("progress defaults: %+v", cfg.Progress)
	}
	if cfg.Reconciler.StaleAfter != 30*time.Minute {
		t.Errorf("reconciler defaults: %+v", cfg.Reconciler)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	p := writeConfig(t, `
server:
  port: 9000
  upload_dir: /srv/uploads
database:
  url: postgres://localhost:5432/inspections
  pool_size: 25
analysis:
  base_url: http://ml-service:8000
  process_timeout: 10m
retry:
  base_delay: 2s
  max_retries: 5
`)
	cfg, err := LoadConfig(p, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9000 || cfg.Server.UploadDir != "/srv/uploads" {
		t.Errorf("server: %+v", cfg.Server)
	}
	if cfg.Database.PoolSize != 25 {
		t.Errorf("pool size: %d", cfg.Database.PoolSize)
	}
	if cfg.Analysis.ProcessTimeout != 10*time.Minute {
		t.Errorf("process timeout: %v", cfg.Analysis.ProcessTimeout)
	}
	if cfg.Retry.BaseDelay != 2*time.Second || cfg.Retry.MaxRetries != 5 {
		t.Errorf("retry: %+v", cfg.Retry)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	t.Run("database url required", func(t *testing.T) {
		p := writeConfig(t, `
analysis:
  base_url: http://ml-service:8000
`)
		t.Setenv("DATABASE_URL", "")
		if _, err := LoadConfig(p, false); err == nil {
			t.Error("expected error for missing database url")
		}
	})

	t.Run("database url from env", func(t *testing.T) {
		p := writeConfig(t, `
analysis:
  base_url: http://ml-service:8000
`)
		t.Setenv("DATABASE_URL", "postgres://env-host:5432/inspections")
		cfg, err := LoadConfig(p, false)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		if cfg.Database.URL != "postgres://env-host:5432/inspections" {
			t.Errorf("got %q", cfg.Database.URL)
		}
	})

	t.Run("analysis url required outside dev", func(t *testing.T) {
		p := writeConfig(t, `
database:
  url: postgres://localhost:5432/inspections
`)
		if _, err := LoadConfig(p, false); err == nil {
			t.Error("expected error for missing analysis base url")
		}
		if _, err := LoadConfig(p, true); err != nil {
			t.Errorf("dev mode must allow a missing analysis url: %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
			t.Error("expected error for missing file")
		}
	})
}
