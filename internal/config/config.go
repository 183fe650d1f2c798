// Package config provides configuration management for the agent bridge.
// It loads settings from environment variables with the BRIDGE_ prefix and
// provides sensible defaults for all options. The resulting Config is passed
// explicitly into the store and the servers — there is no implicit global
// state, so tests can point a store at a temporary or in-memory database.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config holds all configuration for the bridge binaries.
type Config struct {
	Storage StorageConfig
	Bridge  BridgeConfig
}

// StorageConfig locates the embedded database file.
type StorageConfig struct {
	DataPath string // Directory holding the database (default: ~/.agent-bridge)
	DBFile   string // Database file name inside DataPath (default: bridge.db)
}

// BridgeConfig contains operational defaults for the coordination store.
type BridgeConfig struct {
	DefaultLockTTL   time.Duration // Lock TTL when none is given (default: 30m)
	InboxLimit       int           // Default inbox page size (default: 20)
	RecallLimit      int           // Default recall result cap (default: 5)
	StrictRecipients bool          // Reject sends to unregistered agents (default: true)
}

// LoadConfig loads configuration from environment variables with defaults.
// All environment variables use the BRIDGE_ prefix.
func LoadConfig() (*Config, error) {
	return &Config{
		Storage: StorageConfig{
			DataPath: getEnv("BRIDGE_DATA_PATH", defaultDataPath()),
			DBFile:   getEnv("BRIDGE_DB_FILE", "bridge.db"),
		},
		Bridge: BridgeConfig{
			DefaultLockTTL:   time.Duration(getEnvInt("BRIDGE_DEFAULT_TTL_SECONDS", 1800)) * time.Second,
			InboxLimit:       getEnvInt("BRIDGE_INBOX_LIMIT", 20),
			RecallLimit:      getEnvInt("BRIDGE_RECALL_LIMIT", 5),
			StrictRecipients: getEnvBool("BRIDGE_STRICT_RECIPIENTS", true),
		},
	}, nil
}

// DBPath returns the full path of the database file.
func (c *Config) DBPath() string {
	return filepath.Join(c.Storage.DataPath, c.Storage.DBFile)
}

// defaultDataPath is ~/.agent-bridge, falling back to the current directory
// when the home directory cannot be determined.
func defaultDataPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".agent-bridge"
	}
	return filepath.Join(home, ".agent-bridge")
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default
// value. If the variable exists but cannot be parsed, the default is used.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default
// value. It recognizes "true", "1", "yes" and "false", "0", "no".
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
