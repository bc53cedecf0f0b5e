package config

// Config represents the complete msreplay configuration
type Config struct {
	Version  string   `yaml:"version"`
	Settings Settings `yaml:"settings"`
}

// Settings contains global configuration settings
type Settings struct {
	LogLevel string  `yaml:"log_level"`
	LogFile  string  `yaml:"log_file,omitempty"`
	Archive  Archive `yaml:"archive,omitempty"`
	Replay   Replay  `yaml:"replay,omitempty"`
}

// Archive configures the local replay archive
type Archive struct {
	// Path is the SQLite database file holding archived replays.
	Path string `yaml:"path,omitempty"`
	// CompressionLevel maps onto zstd encoder levels 1 (fastest) to 4 (best).
	CompressionLevel int `yaml:"compression_level,omitempty"`
}

// Replay configures replay analysis defaults
type Replay struct {
	// CellPixelSize overrides the cell edge length assumed for recordings
	// that do not carry one. Zero keeps the format default.
	CellPixelSize int `yaml:"cell_pixel_size,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Version: "1",
		Settings: Settings{
			LogLevel: "info",
			Archive: Archive{
				CompressionLevel: 2,
			},
		},
	}
}
