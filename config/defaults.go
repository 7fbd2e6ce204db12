package config

import (
	"time"

	"github.com/Klingon-tech/ldpos-client/pkg/mss"
)

// Protocol constants.
const (
	// LeafCount is the number of one-time keys in each Merkle tree.
	LeafCount = mss.DefaultLeafCount

	// MaxKeyIndexOffset is the exclusive upper bound of every offset.
	MaxKeyIndexOffset = LeafCount / 2
)

// Default key index offsets.
const (
	DefaultSigOffset      = 3
	DefaultMultisigOffset = 10
	DefaultForgingOffset  = 2
)

// DefaultChainModule is the procedure prefix of the chain module.
const DefaultChainModule = "ldpos_chain"

// Default returns the default client configuration.
func Default() *Config {
	return &Config{
		NetworkSymbol: "ldpos",
		DataDir:       DefaultDataDir(),
		RPC: RPCConfig{
			URL:     "http://127.0.0.1:8010/rpc",
			Module:  DefaultChainModule,
			Timeout: 10 * time.Second,
		},
		Keys: KeysConfig{
			SigOffset:      DefaultSigOffset,
			MultisigOffset: DefaultMultisigOffset,
			ForgingOffset:  DefaultForgingOffset,
		},
		Store: StoreConfig{
			Backend: StoreBadger,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}
