package config

import "flag"

var (
	flagConfig       = flag.String("config", "", "Path to config file")
	flagDebug        = flag.Bool("debug", false, "Enable debug logging")
	flagContentRoot  = flag.String("content-root", "", "Directory relative model paths resolve against")
	flagChannelOrder = flag.String("channel-order", "", "Decoded texture channel order (bgra or rgba)")
	flagLogFile      = flag.String("log-file", "", "Write logs to this file as well")
	flagLogFormat    = flag.String("log-format", "", "Log encoding (console or json)")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagContentRoot != "" {
		cfg.Content.Root = *flagContentRoot
	}
	if *flagChannelOrder != "" {
		cfg.Texture.ChannelOrder = *flagChannelOrder
	}
	if *flagLogFile != "" {
		cfg.Logging.LogFile = *flagLogFile
	}
	if *flagLogFormat != "" {
		cfg.Logging.Format = *flagLogFormat
	}
}
