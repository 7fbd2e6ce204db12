package config

import (
	"errors"
	"fmt"
	"net/url"
)

// ErrInvalidConfig is wrapped by every configuration error.
var ErrInvalidConfig = errors.New("invalid configuration")

// Validate checks client config for operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: config is nil", ErrInvalidConfig)
	}
	offsets := []struct {
		name  string
		value uint64
	}{
		{"keys.sig_offset", cfg.Keys.SigOffset},
		{"keys.multisig_offset", cfg.Keys.MultisigOffset},
		{"keys.forging_offset", cfg.Keys.ForgingOffset},
	}
	for _, o := range offsets {
		if o.value >= MaxKeyIndexOffset {
			return fmt.Errorf("%w: %s must be below %d, got %d", ErrInvalidConfig, o.name, MaxKeyIndexOffset, o.value)
		}
	}

	switch cfg.Store.Backend {
	case StoreBadger, StoreBolt, StoreFile, StoreMemory:
	default:
		return fmt.Errorf("%w: store.backend must be badger, bolt, file or memory, got %q", ErrInvalidConfig, cfg.Store.Backend)
	}

	if cfg.RPC.URL != "" {
		u, err := url.Parse(cfg.RPC.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: rpc.url must be an http(s) URL, got %q", ErrInvalidConfig, cfg.RPC.URL)
		}
	}
	if cfg.RPC.Timeout < 0 {
		return fmt.Errorf("%w: rpc.timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}
