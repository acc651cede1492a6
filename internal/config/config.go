package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir" env:"DATA_DIR"`
	LogDir  string `toml:"log_dir" env:"LOG_DIR"`
}

// Buffer contains queue depth thresholds used for backpressure decisions.
type Buffer struct {
	// ElevatedWatermark is the depth at which the uploader escalates sync urgency.
	ElevatedWatermark int `toml:"elevated_watermark" env:"ELEVATED_WATERMARK"`
	// HighWatermark is the depth at which producers should pause sampling.
	HighWatermark int `toml:"high_watermark" env:"HIGH_WATERMARK"`
}

// Uploader contains configuration for delivering buffered samples to the collector.
type Uploader struct {
	Enabled           bool   `toml:"enabled" env:"ENABLED"`
	CollectorURL      string `toml:"collector_url" env:"COLLECTOR_URL"`
	RideSecret        string `toml:"ride_secret" env:"RIDE_SECRET"`
	SessionID         string `toml:"session_id" env:"SESSION_ID"`
	PollInterval      int    `toml:"poll_interval" env:"POLL_INTERVAL"`
	EscalatedInterval int    `toml:"escalated_interval" env:"ESCALATED_INTERVAL"`
	RequestTimeout    int    `toml:"request_timeout" env:"REQUEST_TIMEOUT"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format" env:"FORMAT"`
	Level  string `toml:"level" env:"LEVEL"`
}

// Config encapsulates all configuration values for trackbuf.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - Buffer: backpressure watermarks
//   - Uploader: collector endpoint, credentials, and polling cadence
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths" envPrefix:"PATHS_"`
	Buffer   Buffer   `toml:"buffer" envPrefix:"BUFFER_"`
	Uploader Uploader `toml:"uploader" envPrefix:"UPLOADER_"`
	Logging  Logging  `toml:"logging" envPrefix:"LOG_"`
}

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "TRACKBUF_"

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. Environment
// overrides are applied after the file is decoded. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, "", false, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("trackbuf.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DatabasePath returns the location of the telemetry buffer database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, DatabaseFileName)
}

// LockPath returns the location of the daemon single-instance lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "trackbuf.lock")
}

// PollInterval returns the relaxed uploader cadence.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Uploader.PollInterval) * time.Second
}

// EscalatedInterval returns the uploader cadence used while the buffer is under pressure.
func (c *Config) EscalatedInterval() time.Duration {
	return time.Duration(c.Uploader.EscalatedInterval) * time.Second
}

// RequestTimeout returns the per-request collector timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Uploader.RequestTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
