package log

import (
	"fmt"
	"path/filepath"
)

// LogCfg configures the logger: output destinations, minimum level and the
// file rotation policy. A zero value is not usable; start from DefaultCfg.
type LogCfg struct {
	// LogPath is the target file for the file appender.
	LogPath string `yaml:"path" mapstructure:"path"`

	// LogLevel is the minimum level that will be written.
	LogLevel Level `yaml:"-" mapstructure:"-"`

	// LevelName is the textual form of LogLevel as it appears in config files.
	LevelName string `yaml:"level" mapstructure:"level"`

	// FileSplitMB rotates the log file once it exceeds this size.
	FileSplitMB int `yaml:"splitMB" mapstructure:"splitMB"`

	// FileSplitHour rotates the log file daily at this hour (0-23).
	FileSplitHour int `yaml:"splitHour" mapstructure:"splitHour"`

	// FileAppender enables output to LogPath.
	FileAppender bool `yaml:"fileAppender" mapstructure:"fileAppender"`

	// ConsoleAppender enables output to stdout.
	ConsoleAppender bool `yaml:"consoleAppender" mapstructure:"consoleAppender"`
}

// DefaultCfg returns the configuration used when none is supplied:
// console only, debug level.
func DefaultCfg() *LogCfg {
	return &LogCfg{
		LogPath:         "./nmc.log",
		LogLevel:        DebugLevel,
		FileSplitMB:     50,
		FileSplitHour:   0,
		ConsoleAppender: true,
	}
}

// Validate checks the configuration and normalizes the level and path fields.
func (cfg *LogCfg) Validate() error {
	// LevelName from a config file wins over a programmatically set level.
	if cfg.LevelName != "" {
		cfg.LogLevel = ParseLevel(cfg.LevelName)
	} else if cfg.LogLevel == 0 {
		cfg.LogLevel = ParseLevel("")
	}
	if cfg.LogLevel < TraceLevel || cfg.LogLevel > FatalLevel {
		return fmt.Errorf("invalid log level %d", cfg.LogLevel)
	}
	if cfg.FileSplitMB < 1 || cfg.FileSplitMB > 1024 {
		return fmt.Errorf("file split size must be within [1,1024] MB, got %d", cfg.FileSplitMB)
	}
	if cfg.FileSplitHour < 0 || cfg.FileSplitHour > 23 {
		return fmt.Errorf("file split hour must be within [0,23], got %d", cfg.FileSplitHour)
	}
	if cfg.FileAppender {
		if cfg.LogPath == "" {
			return fmt.Errorf("log path required when file appender is enabled")
		}
		cfg.LogPath = filepath.Clean(cfg.LogPath)
	}
	if !cfg.FileAppender && !cfg.ConsoleAppender {
		return fmt.Errorf("at least one appender must be enabled")
	}
	return nil
}
