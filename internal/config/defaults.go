package config

const (
	defaultDataDir             = "~/.local/share/reelcat"
	defaultLogDir              = "~/.local/share/reelcat/logs"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultProbeTimeoutSeconds = 30
	defaultAnalyzerMode        = "heuristic"
	defaultAnalyzerTimeout     = 120
	defaultScanWorkers         = 1
	defaultWatchDebounceMillis = 1500
)

var defaultExtensions = []string{
	".mkv", ".mp4", ".m4v", ".avi", ".mov", ".wmv", ".ts", ".m2ts", ".webm", ".mpg", ".mpeg",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Scan: Scan{
			Extensions: append([]string(nil), defaultExtensions...),
			Recursive:  true,
			Workers:    defaultScanWorkers,
		},
		Probe: Probe{
			TimeoutSeconds: defaultProbeTimeoutSeconds,
		},
		Analyzer: Analyzer{
			Mode:           defaultAnalyzerMode,
			TimeoutSeconds: defaultAnalyzerTimeout,
		},
		Watch: Watch{
			DebounceMillis: defaultWatchDebounceMillis,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
