// Package config handles mesh loader configuration loading and management.
package config

// Config holds all loader settings.
type Config struct {
	Content ContentConfig `yaml:"content"`
	Texture TextureConfig `yaml:"texture"`
	Logging LoggingConfig `yaml:"logging"`
}

// ContentConfig holds where relative model paths are resolved.
type ContentConfig struct {
	Root     string   `yaml:"root"`     // Declared content root for relative paths
	Archives []string `yaml:"archives"` // GRF archives searched after Root
}

// TextureConfig holds texture decoding settings.
type TextureConfig struct {
	ChannelOrder   string `yaml:"channel_order"`   // "bgra" or "rgba"
	LoadCompanions bool   `yaml:"load_companions"` // Probe <name>_T.png / <name>_N.png
	CacheSize      int    `yaml:"cache_size"`      // Decoded images kept in memory (0 disables)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`    // debug, info, warn or error
	Format  string `yaml:"format"`   // console or json
	LogFile string `yaml:"log_file"` // Rotated by size; empty logs to stderr only
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Content: ContentConfig{
			Root: "content",
		},
		Texture: TextureConfig{
			ChannelOrder:   "bgra",
			LoadCompanions: true,
			CacheSize:      32,
		},
		Logging: LoggingConfig{
			Level:   "info",
			Format:  "console",
			LogFile: "",
		},
	}
}
