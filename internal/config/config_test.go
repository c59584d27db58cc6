package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadDefaults verifies a missing config file falls back to defaults.
func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.GetServerAddr() != "0.0.0.0:8086" {
		t.Errorf("GetServerAddr() = %q", cfg.GetServerAddr())
	}
	if cfg.Printer.Connection != "FILE" || cfg.Printer.TCP.Port != 9100 {
		t.Errorf("printer = %+v", cfg.Printer)
	}
	if cfg.Job.DPI != 360 || cfg.Job.Paper != "LETTER" || cfg.Job.Margin.Top != 3 {
		t.Errorf("job = %+v", cfg.Job)
	}
	if cfg.Printer.USB.Timeout != 30*time.Second {
		t.Errorf("usb timeout = %v, want 30s", cfg.Printer.USB.Timeout)
	}
	if cfg.Job.MaxImagePixels != 64_000_000 {
		t.Errorf("job max image pixels = %d", cfg.Job.MaxImagePixels)
	}
	if cfg.Job.Retention != 7*24*time.Hour {
		t.Errorf("job retention = %v, want 168h", cfg.Job.Retention)
	}
}

// TestLoadFileAndEnv verifies file values and environment overrides.
func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "service.yaml")
	content := "printer:\n  connection: tcp\n  tcp:\n    host: 192.168.1.20\njob:\n  dpi: 720\n  paper: a4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ESCPR_SERVICE_SERVER_PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Printer.Connection != "TCP" || cfg.Printer.TCP.Host != "192.168.1.20" {
		t.Errorf("printer = %+v", cfg.Printer)
	}
	if cfg.Job.DPI != 720 || cfg.Job.Paper != "a4" {
		t.Errorf("job = %+v", cfg.Job)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("server.port = %q, want 9090", cfg.Server.Port)
	}
}

// TestLoadValidation verifies invalid values are rejected.
func TestLoadValidation(t *testing.T) {
	tests := map[string]string{
		"connection": "printer:\n  connection: bluetooth\n",
		"dpi":        "job:\n  dpi: 1440\n",
		"level":      "logging:\n  level: verbose\n",
		"env":        "app:\n  environment: qa\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "service.yaml")
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Errorf("Load() accepted %q", content)
			}
		})
	}
}

// TestLoadMissingExplicitFile verifies an explicit path must exist.
func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}
