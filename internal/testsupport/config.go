package testsupport

import (
	"path/filepath"
	"testing"

	"trackbuf/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Uploader.SessionID = "test-session"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithWatermarks overrides the backpressure thresholds on the test config.
func WithWatermarks(elevated, high int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Buffer.ElevatedWatermark = elevated
		b.cfg.Buffer.HighWatermark = high
	}
}

// WithCollector enables the uploader against the provided collector URL.
func WithCollector(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Uploader.Enabled = true
		b.cfg.Uploader.CollectorURL = url
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
