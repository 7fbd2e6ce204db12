package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoadFile loads client configuration from a .conf file.
// Format: key = value (one per line, # for comments)
func LoadFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, err
	}
	defer file.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("line %d: invalid format (expected key = value)", lineNum)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		values[key] = value
	}

	return values, scanner.Err()
}

// ApplyFileConfig applies file configuration to a Config struct.
func ApplyFileConfig(cfg *Config, values map[string]string) error {
	for key, value := range values {
		if err := setConfigValue(cfg, key, value); err != nil {
			return fmt.Errorf("config key %q: %w", key, err)
		}
	}
	return nil
}

func setConfigValue(cfg *Config, key, value string) error {
	switch key {
	// Core
	case "network.symbol", "network":
		cfg.NetworkSymbol = value
	case "datadir":
		cfg.DataDir = value

	// RPC
	case "rpc.url", "rpc":
		cfg.RPC.URL = value
	case "rpc.module":
		cfg.RPC.Module = value
	case "rpc.timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		cfg.RPC.Timeout = d

	// Keys
	case "keys.sig_offset":
		return parseOffset(value, &cfg.Keys.SigOffset)
	case "keys.multisig_offset":
		return parseOffset(value, &cfg.Keys.MultisigOffset)
	case "keys.forging_offset":
		return parseOffset(value, &cfg.Keys.ForgingOffset)

	// Store
	case "store.backend":
		cfg.Store.Backend = StoreBackend(strings.ToLower(value))
	case "store.path":
		cfg.Store.Path = value

	// Logging
	case "log.level":
		cfg.Log.Level = value
	case "log.file":
		cfg.Log.File = value
	case "log.json":
		cfg.Log.JSON = parseBool(value)

	default:
		// Unknown keys are ignored
	}
	return nil
}

func parseOffset(value string, dst *uint64) error {
	n, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

// parseBool parses a boolean value.
func parseBool(s string) bool {
	s = strings.ToLower(s)
	return s == "true" || s == "1" || s == "yes" || s == "on"
}

// WriteDefaultConfig writes a default client configuration file.
func WriteDefaultConfig(path string) error {
	d := Default()
	content := `# LDPoS Client Configuration

# Network symbol, the prefix of every wallet address. Leave unset to ask
# the node.
network.symbol = ` + d.NetworkSymbol + `

# Data directory (default: ~/.ldpos)
# datadir = ~/.ldpos

# ============================================================================
# Node RPC
# ============================================================================

rpc.url = ` + d.RPC.URL + `
rpc.module = ` + d.RPC.Module + `
rpc.timeout = ` + d.RPC.Timeout.String() + `

# ============================================================================
# Key indices
# ============================================================================

# Keys skipped on connect, per domain. Each must be below ` + strconv.Itoa(MaxKeyIndexOffset) + `.
keys.sig_offset = ` + strconv.Itoa(DefaultSigOffset) + `
keys.multisig_offset = ` + strconv.Itoa(DefaultMultisigOffset) + `
keys.forging_offset = ` + strconv.Itoa(DefaultForgingOffset) + `

# Key index store: badger, bolt, file or memory
store.backend = ` + string(d.Store.Backend) + `
# store.path = ~/.ldpos/keyindex

# ============================================================================
# Logging
# ============================================================================

log.level = info
# log.file =
log.json = false
`
	return os.WriteFile(path, []byte(content), 0644)
}
