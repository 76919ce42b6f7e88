package app

import "strings"

import "github.com/courtlink/playerfinder/pkg/logger"

// ConfigureLogging initialises the global logger with the provided level, defaulting to info.
func ConfigureLogging(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "info"
	}
	return logger.Init(level)
}

// ConfigureConsoleLogging initialises console-friendly logging for the CLI.
func ConfigureConsoleLogging(level string) error {
	level = strings.TrimSpace(level)
	if level == "" {
		level = "warn"
	}
	return logger.InitConsole(level)
}
