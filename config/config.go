// Package config handles client configuration.
//
// Settings come from three layers, later layers winning:
//   - Defaults: Default()
//   - Config file: key = value lines in <datadir>/ldpos.conf
//   - Command-line flags
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// StoreBackend selects where key indices are persisted.
type StoreBackend string

const (
	StoreBadger StoreBackend = "badger"
	StoreBolt   StoreBackend = "bolt"
	StoreFile   StoreBackend = "file"
	StoreMemory StoreBackend = "memory"
)

// Config holds client runtime configuration.
type Config struct {
	// Core
	NetworkSymbol string `conf:"network.symbol"`
	DataDir       string `conf:"datadir"`

	// Node connection
	RPC RPCConfig

	// Key index safety offsets
	Keys KeysConfig

	// Key index persistence
	Store StoreConfig

	// Logging
	Log LogConfig
}

// RPCConfig holds the node JSON-RPC endpoint settings.
type RPCConfig struct {
	URL     string        `conf:"rpc.url"`
	Module  string        `conf:"rpc.module"` // Procedure prefix, e.g. ldpos_chain
	Timeout time.Duration `conf:"rpc.timeout"`
}

// KeysConfig holds the offsets added to each domain's starting key index.
type KeysConfig struct {
	SigOffset      uint64 `conf:"keys.sig_offset"`
	MultisigOffset uint64 `conf:"keys.multisig_offset"`
	ForgingOffset  uint64 `conf:"keys.forging_offset"`
}

// StoreConfig holds key index persistence settings.
type StoreConfig struct {
	Backend StoreBackend `conf:"store.backend"`
	Path    string       `conf:"store.path"` // Empty means <datadir>/keyindex
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `conf:"log.level"`
	File  string `conf:"log.file"`
	JSON  bool   `conf:"log.json"`
}

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.ldpos
//	macOS:   ~/Library/Application Support/LDPoS
//	Windows: %APPDATA%\LDPoS
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".ldpos"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "LDPoS")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "LDPoS")
		}
		return filepath.Join(home, "AppData", "Roaming", "LDPoS")
	default:
		return filepath.Join(home, ".ldpos")
	}
}

// StorePath returns the key index store location.
func (c *Config) StorePath() string {
	if c.Store.Path != "" {
		return c.Store.Path
	}
	return filepath.Join(c.DataDir, "keyindex")
}

// KeystoreDir returns the wallet keystore directory.
func (c *Config) KeystoreDir() string {
	return filepath.Join(c.DataDir, "keystore")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "ldpos.conf")
}
