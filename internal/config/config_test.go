package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"trackbuf/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "trackbuf")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.DatabasePath() != filepath.Join(wantData, config.DatabaseFileName) {
		t.Fatalf("unexpected database path: %q", cfg.DatabasePath())
	}
	if cfg.Uploader.Enabled {
		t.Fatal("expected uploader disabled by default")
	}
	if cfg.Buffer.HighWatermark != config.Default().Buffer.HighWatermark {
		t.Fatalf("unexpected high watermark: %d", cfg.Buffer.HighWatermark)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
}

func TestLoadReadsTOMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trackbuf.toml")

	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(dir, "data")
	cfgVal.Paths.LogDir = filepath.Join(dir, "logs")
	cfgVal.Buffer.ElevatedWatermark = 10
	cfgVal.Buffer.HighWatermark = 20
	cfgVal.Uploader.Enabled = true
	cfgVal.Uploader.CollectorURL = "https://collector.example/api/ride/telemetry"
	cfgVal.Logging.Format = "JSON"

	data, err := toml.Marshal(cfgVal)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected existing config at %q, got %q exists=%v", path, resolved, exists)
	}
	if cfg.Buffer.HighWatermark != 20 || cfg.Buffer.ElevatedWatermark != 10 {
		t.Fatalf("unexpected buffer config: %+v", cfg.Buffer)
	}
	if !cfg.Uploader.Enabled {
		t.Fatal("expected uploader enabled")
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized json format, got %q", cfg.Logging.Format)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("TRACKBUF_PATHS_DATA_DIR", filepath.Join(dir, "override"))
	t.Setenv("TRACKBUF_BUFFER_HIGH_WATERMARK", "900")
	t.Setenv("TRACKBUF_UPLOADER_RIDE_SECRET", " secret ")

	cfg, _, _, err := config.Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DataDir != filepath.Join(dir, "override") {
		t.Fatalf("expected env data dir, got %q", cfg.Paths.DataDir)
	}
	if cfg.Buffer.HighWatermark != 900 {
		t.Fatalf("expected env high watermark, got %d", cfg.Buffer.HighWatermark)
	}
	if cfg.Uploader.RideSecret != "secret" {
		t.Fatalf("expected trimmed ride secret, got %q", cfg.Uploader.RideSecret)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero high watermark", func(c *config.Config) { c.Buffer.HighWatermark = 0 }, "buffer.high_watermark"},
		{"inverted watermarks", func(c *config.Config) { c.Buffer.ElevatedWatermark = c.Buffer.HighWatermark + 1 }, "greater than or equal"},
		{"zero poll interval", func(c *config.Config) { c.Uploader.PollInterval = 0 }, "uploader.poll_interval"},
		{"escalated slower than poll", func(c *config.Config) { c.Uploader.EscalatedInterval = c.Uploader.PollInterval + 1 }, "escalated_interval"},
		{"enabled without url", func(c *config.Config) {
			c.Uploader.Enabled = true
			c.Uploader.CollectorURL = ""
		}, "collector_url must be set"},
		{"enabled with bad scheme", func(c *config.Config) {
			c.Uploader.Enabled = true
			c.Uploader.CollectorURL = "ftp://collector.example"
		}, "http or https"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := filepath.Join(dir, "nested", "config.toml")

	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample file to exist")
	}
	if cfg.Uploader.PollInterval != 30 {
		t.Fatalf("unexpected sample poll interval: %d", cfg.Uploader.PollInterval)
	}
}
