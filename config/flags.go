package config

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// Flags holds parsed global command-line flags.
type Flags struct {
	Help bool

	// Core
	NetworkSymbol string
	DataDir       string
	Config        string

	// RPC
	RPCURL    string
	RPCModule string

	// Store
	StoreBackend string

	// Logging
	LogLevel string
	LogFile  string
	LogJSON  bool

	// Command and its arguments
	Args []string

	// Explicitly-set bool flags (for true/false overrides).
	SetLogJSON bool
}

// ParseFlags parses global flags from args. Parsing stops at the first
// non-flag argument, which starts Args.
func ParseFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("ldpos-cli", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.BoolVar(&f.Help, "help", false, "Show help message")
	fs.BoolVar(&f.Help, "h", false, "Show help message (shorthand)")

	fs.StringVar(&f.NetworkSymbol, "network-symbol", "", "Network symbol (address prefix)")
	fs.StringVar(&f.DataDir, "datadir", "", "Data directory path")
	fs.StringVar(&f.Config, "config", "", "Config file path")
	fs.StringVar(&f.Config, "c", "", "Config file path (shorthand)")

	fs.StringVar(&f.RPCURL, "rpc", "", "Node JSON-RPC URL")
	fs.StringVar(&f.RPCModule, "rpc-module", "", "Chain module procedure prefix")

	fs.StringVar(&f.StoreBackend, "store", "", "Key index store: badger, bolt, file or memory")

	fs.StringVar(&f.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&f.LogFile, "log-file", "", "Log file path")
	fs.BoolVar(&f.LogJSON, "log-json", false, "Output logs as JSON")

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			f.Help = true
			return f, nil
		}
		return nil, err
	}
	f.SetLogJSON = isFlagSet(fs, "log-json")
	f.Args = fs.Args()
	return f, nil
}

// ApplyFlags applies command-line flags to a Config struct.
func ApplyFlags(cfg *Config, f *Flags) {
	if f.NetworkSymbol != "" {
		cfg.NetworkSymbol = f.NetworkSymbol
	}
	if f.DataDir != "" {
		cfg.DataDir = f.DataDir
	}
	if f.RPCURL != "" {
		cfg.RPC.URL = f.RPCURL
	}
	if f.RPCModule != "" {
		cfg.RPC.Module = f.RPCModule
	}
	if f.StoreBackend != "" {
		cfg.Store.Backend = StoreBackend(f.StoreBackend)
	}
	if f.LogLevel != "" {
		cfg.Log.Level = f.LogLevel
	}
	if f.LogFile != "" {
		cfg.Log.File = f.LogFile
	}
	if f.SetLogJSON {
		cfg.Log.JSON = f.LogJSON
	}
}

// isFlagSet checks if a flag was explicitly set.
func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// PrintUsage writes the global usage text to w.
func PrintUsage(w io.Writer) {
	fmt.Fprint(w, `LDPoS Client - hash-based identity and signing client

Usage:
  ldpos-cli [global options] <command> [args]

Global Options:
  --config, -c       Config file path (default: <datadir>/ldpos.conf)
  --datadir          Data directory (default: ~/.ldpos)
  --network-symbol   Network symbol (default: ldpos)
  --rpc              Node JSON-RPC URL
  --rpc-module       Chain module procedure prefix (default: ldpos_chain)
  --store            Key index store: badger, bolt, file or memory
  --log-level        Log level: debug, info, warn, error (default: info)
  --log-file         Log file path (default: stderr)
  --log-json         Output logs as JSON
`)
}

// Load loads configuration with the following precedence:
// 1. Default values
// 2. Config file
// 3. Command-line flags
//
// The result is validated.
func Load(args []string) (*Config, *Flags, error) {
	flags, err := ParseFlags(args)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing flags: %w", err)
	}

	cfg := Default()
	if flags.DataDir != "" {
		cfg.DataDir = flags.DataDir
	}

	configPath := flags.Config
	if configPath == "" {
		configPath = cfg.ConfigFile()
	}
	fileValues, err := LoadFile(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config file: %w", err)
	}
	if err := ApplyFileConfig(cfg, fileValues); err != nil {
		return nil, nil, fmt.Errorf("applying config file: %w", err)
	}

	ApplyFlags(cfg, flags)
	if err := Validate(cfg); err != nil {
		return nil, nil, err
	}
	return cfg, flags, nil
}

// EnsureDataDirs creates the data directory structure and a default config
// file if they don't already exist.
func EnsureDataDirs(cfg *Config) error {
	dirs := []string{
		cfg.DataDir,
		cfg.KeystoreDir(),
		cfg.LogsDir(),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	configPath := cfg.ConfigFile()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := WriteDefaultConfig(configPath); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
	}
	return nil
}
