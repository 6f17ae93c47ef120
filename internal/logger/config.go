// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"errors"
	"strings"
)

// Config defines the logger configuration.
type Config struct {
	Level  string     `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string     `mapstructure:"format" yaml:"format"` // console, json
	Output string     `mapstructure:"output" yaml:"output"` // console, file, both
	File   FileConfig `mapstructure:"file" yaml:"file"`
}

// FileConfig defines rotating file output.
type FileConfig struct {
	Filename   string `mapstructure:"filename" yaml:"filename"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`   // days
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DefaultConfig logs warnings and above to stderr in console format.
func DefaultConfig() *Config {
	return &Config{
		Level:  "warn",
		Format: "console",
		Output: "console",
		File: FileConfig{
			Filename:   "logs/get-papers-list.log",
			MaxSize:    10,
			MaxAge:     14,
			MaxBackups: 3,
			Compress:   true,
		},
	}
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate checks level, format, output and, when a file is written, the
// rotation settings.
func (c *Config) Validate() error {
	levelValid := false
	for _, level := range validLevels {
		if strings.ToLower(c.Level) == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return errors.New("invalid log level, must be one of: debug, info, warn, error")
	}

	if c.Format != "json" && c.Format != "console" {
		return errors.New("invalid log format, must be 'json' or 'console'")
	}

	if c.Output != "console" && c.Output != "file" && c.Output != "both" {
		return errors.New("invalid log output, must be 'console', 'file' or 'both'")
	}

	if c.Output == "file" || c.Output == "both" {
		if c.File.Filename == "" {
			return errors.New("log file filename is required when output is 'file' or 'both'")
		}
		if c.File.MaxSize <= 0 {
			return errors.New("log file max_size must be greater than 0")
		}
		if c.File.MaxAge < 0 || c.File.MaxBackups < 0 {
			return errors.New("log file max_age and max_backups must not be negative")
		}
	}
	return nil
}
