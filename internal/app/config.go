package app

// Config holds the application configuration
type Config struct {
	// Debug enables verbose logging
	Debug bool

	// Silent suppresses all log output
	Silent bool

	// ConfigPath is the path to the configuration file (optional).
	// When empty, the default location under the user config directory is used.
	ConfigPath string
}

// NewConfig creates a new application configuration
func NewConfig(debug, silent bool, configPath string) *Config {
	return &Config{
		Debug:      debug,
		Silent:     silent,
		ConfigPath: configPath,
	}
}
