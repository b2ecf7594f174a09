// Package config provides configuration helpers for go-cloak commands.
package config

import (
	"os"
	"strings"
)

// Environment variables read by the commands. Flags win over these.
const (
	EnvConfig   = "CLOAK_CONFIG"
	EnvDevice   = "CLOAK_DEVICE"
	EnvLogLevel = "LOG_LEVEL"
)

// DefaultLogLevel is used when neither the settings file nor LOG_LEVEL set one.
const DefaultLogLevel = "info"

// Path returns the settings file path from CLOAK_CONFIG.
// Falls back to the provided default if not set.
func Path(defaultPath string) string {
	return getenv(EnvConfig, defaultPath)
}

// Device returns the capture device from CLOAK_DEVICE or the default.
func Device(defaultDevice string) string {
	return getenv(EnvDevice, defaultDevice)
}

// LogLevel returns the log level from LOG_LEVEL or the default.
func LogLevel(defaultLevel string) string {
	return getenv(EnvLogLevel, defaultLevel)
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
