// Package config provides configuration helpers for go-clap commands:
// environment variables with defaults and the YAML config file.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables.
const (
	EnvThreshold = "CLAP_THRESHOLD"
	EnvPort      = "CLAP_PORT"
	EnvBackend   = "CLAP_BACKEND"
	EnvLogLevel  = "CLAP_LOG_LEVEL"
	EnvServer    = "CLAP_SERVER"
)

// Defaults.
const (
	DefaultPort   = "8080"
	DefaultServer = "http://localhost:" + DefaultPort
)

// String returns the value of key, or def when it is unset or empty.
func String(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Float returns key parsed as a float64, or def when it is unset.
func Float(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

// Port returns the control surface port from CLAP_PORT.
func Port(def string) string {
	return String(EnvPort, def)
}

// Backend returns the audio backend from CLAP_BACKEND.
func Backend(def string) string {
	return String(EnvBackend, def)
}

// LogLevel returns the log level from CLAP_LOG_LEVEL.
func LogLevel(def string) string {
	return String(EnvLogLevel, def)
}

// Server returns the clapd base URL for clients from CLAP_SERVER.
func Server() string {
	return String(EnvServer, DefaultServer)
}

// Threshold returns the detection threshold from CLAP_THRESHOLD.
func Threshold(def float64) (float64, error) {
	return Float(EnvThreshold, def)
}
