package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"todosync/internal/config"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, config.ConfigFile), []byte(body), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Dir != dir {
		t.Errorf("expected dir %q, got %q", dir, cfg.Dir)
	}
	if cfg.Backend != config.BackendREST {
		t.Errorf("expected backend %q, got %q", config.BackendREST, cfg.Backend)
	}
	if cfg.BaseURL != config.DefaultBaseURL {
		t.Errorf("expected base url %q, got %q", config.DefaultBaseURL, cfg.BaseURL)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("expected timeout %s, got %s", config.DefaultTimeout, cfg.Timeout)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base_url: http://tasks.internal:9000\ntimeout: 2s\n")

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://tasks.internal:9000" {
		t.Errorf("expected base url from file, got %q", cfg.BaseURL)
	}
	if cfg.Timeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %s", cfg.Timeout)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "base_url: http://from-file:9000\n")
	t.Setenv("TODOSYNC_BASE_URL", "http://from-env:9000")

	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.BaseURL != "http://from-env:9000" {
		t.Errorf("expected env to win, got %q", cfg.BaseURL)
	}
}

func TestLoad_InvalidBackend(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "backend: carrier-pigeon\n")

	_, err := config.Load(dir)
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("expected unknown backend error, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr bool
	}{
		{"defaults", func(c *config.Config) {}, false},
		{"relative url", func(c *config.Config) { c.BaseURL = "localhost:8000" }, true},
		{"zero timeout", func(c *config.Config) { c.Timeout = 0 }, true},
		{"googletasks", func(c *config.Config) { c.Backend = config.BackendGoogleTasks }, false},
		{"googletasks without list", func(c *config.Config) {
			c.Backend = config.BackendGoogleTasks
			c.TaskList = ""
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(t.TempDir())
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigDir_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	if got, want := config.DefaultConfigDir(), filepath.Join("/tmp/xdg", config.AppName); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestLoadServer(t *testing.T) {
	t.Setenv("TASKSERVER_ADDR", ":9999")
	t.Setenv("SHUTDOWN_TIMEOUT", "3")

	cfg, err := config.LoadServer()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Errorf("expected addr :9999, got %q", cfg.Addr)
	}
	if cfg.Storage != config.StorageMemory {
		t.Errorf("expected memory storage, got %q", cfg.Storage)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("expected 3s shutdown timeout, got %s", cfg.ShutdownTimeout)
	}

	t.Setenv("TASKSERVER_STORAGE", "tape")
	if _, err := config.LoadServer(); err == nil {
		t.Error("expected error for unknown storage")
	}
}
