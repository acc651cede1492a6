package config

const (
	defaultConfigPath        = "~/.config/trackbuf/config.toml"
	defaultDataDir           = "~/.local/share/trackbuf"
	defaultLogDir            = "~/.local/share/trackbuf/logs"
	defaultElevatedWatermark = 500
	defaultHighWatermark     = 5000
	defaultPollInterval      = 30
	defaultEscalatedInterval = 5
	defaultRequestTimeout    = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultCollectorURL      = "http://127.0.0.1:3000/api/ride/telemetry"
)

// DatabaseFileName is the telemetry buffer database file inside paths.data_dir.
const DatabaseFileName = "telemetry.db"

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Buffer: Buffer{
			ElevatedWatermark: defaultElevatedWatermark,
			HighWatermark:     defaultHighWatermark,
		},
		Uploader: Uploader{
			Enabled:           false,
			CollectorURL:      defaultCollectorURL,
			PollInterval:      defaultPollInterval,
			EscalatedInterval: defaultEscalatedInterval,
			RequestTimeout:    defaultRequestTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
