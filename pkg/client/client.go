// Package client implements an LDPoS identity session: wallet address
// derivation, one-time key management across the sig, multisig and
// forging domains, transaction and block signing, key index sync and a
// capability-checked view of the network adapter.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/ldpos-client/config"
	"github.com/Klingon-tech/ldpos-client/internal/log"
	"github.com/Klingon-tech/ldpos-client/internal/wallet"
	"github.com/Klingon-tech/ldpos-client/pkg/adapter"
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/mss"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// Options configure a Client.
type Options struct {
	// Config supplies the network symbol and key index offsets. Nil means
	// config.Default().
	Config *config.Config

	// Adapter is the network the client talks to. Required.
	Adapter adapter.Adapter

	// Store persists key indices. Required.
	Store keys.Store

	// Scheme is the signature scheme; nil means mss.Default().
	Scheme *mss.Scheme

	// Logger overrides the client component logger.
	Logger *zerolog.Logger
}

// ConnectOptions carry the passphrases of a session. Domain passphrases
// are optional; an empty one falls back to Passphrase.
type ConnectOptions struct {
	Passphrase         string
	SigPassphrase      string
	MultisigPassphrase string
	ForgingPassphrase  string
}

// Client is one identity session. All per-identity state lives here; several
// clients may run in one process.
type Client struct {
	cfg     *config.Config
	adapter adapter.Adapter
	store   keys.Store
	scheme  *mss.Scheme
	log     zerolog.Logger
	now     func() time.Time

	mu            sync.RWMutex
	connected     bool
	networkSymbol string
	address       types.Address
	domains       [3]*keys.Manager
}

// New validates opts and returns a disconnected client.
func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("%w: no network adapter", config.ErrInvalidConfig)
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("%w: no key index store", config.ErrInvalidConfig)
	}
	scheme := opts.Scheme
	if scheme == nil {
		scheme = mss.Default()
	}
	if max(cfg.Keys.SigOffset, cfg.Keys.MultisigOffset, cfg.Keys.ForgingOffset) >= uint64(scheme.LeafCount()/2) {
		return nil, fmt.Errorf("%w: key index offsets must be below %d", config.ErrInvalidConfig, scheme.LeafCount()/2)
	}
	logger := log.Client
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Client{
		cfg:     cfg,
		adapter: opts.Adapter,
		store:   opts.Store,
		scheme:  scheme,
		log:     logger,
		now:     time.Now,
	}, nil
}

// ComputeWalletAddress derives the wallet address of passphrase on the
// network with the given symbol, without any network access.
func ComputeWalletAddress(scheme *mss.Scheme, passphrase, networkSymbol string) (types.Address, error) {
	if scheme == nil {
		scheme = mss.Default()
	}
	seed, err := wallet.PassphraseToSeed(passphrase)
	if err != nil {
		return "", err
	}
	defer clear(seed)
	return addressFromSeed(scheme, seed, networkSymbol), nil
}

// addressFromSeed returns the symbol followed by the hex prefix of the root
// of the first sig tree.
func addressFromSeed(scheme *mss.Scheme, seed []byte, networkSymbol string) types.Address {
	tree := keys.DeriveTree(scheme, seed, networkSymbol, keys.Sig, 0)
	defer tree.Wipe()
	return types.NewAddress(networkSymbol, tree.Root())
}

// Connect derives the session seeds and address, then initializes every key
// domain at max(local, network) + offset. Network-reported key indices are
// checked against the local seeds first; a mismatch fails the connect with
// a *KeyIndexMismatchError. Connecting an already connected client replaces
// the previous session.
func (c *Client) Connect(ctx context.Context, opts ConnectOptions) error {
	// ── 1. Seeds ────────────────────────────────────────────────────
	mainSeed, err := wallet.PassphraseToSeed(opts.Passphrase)
	if err != nil {
		return fmt.Errorf("passphrase: %w", err)
	}
	defer clear(mainSeed)

	var seeds [3][]byte
	defer func() {
		for _, s := range seeds {
			clear(s)
		}
	}()
	for _, d := range keys.Domains() {
		p := domainPassphrase(opts, d)
		if p == "" {
			seeds[d] = append([]byte(nil), mainSeed...)
			continue
		}
		if seeds[d], err = wallet.PassphraseToSeed(p); err != nil {
			return fmt.Errorf("%s passphrase: %w", d, err)
		}
	}

	// ── 2. Network symbol and address ───────────────────────────────
	symbol, err := c.resolveNetworkSymbol(ctx)
	if err != nil {
		return err
	}
	address := addressFromSeed(c.scheme, mainSeed, symbol)
	logger := log.WithAddress(c.log, string(address))

	// ── 3. Local and network key state ──────────────────────────────
	var managers [3]*keys.Manager
	closeAll := func() {
		for _, m := range managers {
			if m != nil {
				m.Close()
			}
		}
	}
	for _, d := range keys.Domains() {
		managers[d], err = keys.NewManager(keys.Config{
			Domain:        d,
			NetworkSymbol: symbol,
			Address:       address,
			Offset:        c.offset(d),
			Store:         c.store,
			Scheme:        c.scheme,
			Logger:        log.WithAddress(log.Keys, string(address)),
		})
		if err != nil {
			return err
		}
	}

	var local [3]uint64
	var account *adapter.Account
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range keys.Domains() {
		g.Go(func() error {
			idx, err := managers[d].LoadPersisted(gctx)
			local[d] = idx
			return err
		})
	}
	g.Go(func() error {
		acct, err := c.adapter.GetAccount(gctx, address)
		if errors.Is(err, adapter.ErrAccountNotFound) {
			logger.Info().Msg("Account not found on network, starting as a fresh account")
			return nil
		}
		if err != nil {
			return fmt.Errorf("get account: %w", err)
		}
		account = acct
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	// ── 4. Verify and initialize domains ────────────────────────────
	for _, d := range keys.Domains() {
		var network uint64
		if account != nil {
			info := account.KeyInfo(d)
			if !keys.VerifyKeyIndex(c.scheme, seeds[d], symbol, d, info.NextKeyIndex, info.PublicKey, info.NextPublicKey) {
				logger.Warn().Str("domain", d.String()).Uint64("key_index", info.NextKeyIndex).
					Msg("Network key index does not match local seed")
				closeAll()
				return &KeyIndexMismatchError{Domain: d, KeyIndex: info.NextKeyIndex}
			}
			network = info.NextKeyIndex
		}
		start := keys.StartingKeyIndex(local[d], network, c.offset(d))
		if err := managers[d].Initialize(ctx, seeds[d], start); err != nil {
			closeAll()
			return fmt.Errorf("initialize %s domain: %w", d, err)
		}
	}

	c.mu.Lock()
	old := c.domains
	c.domains = managers
	c.networkSymbol = symbol
	c.address = address
	c.connected = true
	c.mu.Unlock()
	for _, m := range old {
		if m != nil {
			m.Close()
		}
	}

	logger.Info().Str("network", symbol).Msg("Connected")
	return nil
}

func domainPassphrase(opts ConnectOptions, d keys.Domain) string {
	switch d {
	case keys.Multisig:
		return opts.MultisigPassphrase
	case keys.Forging:
		return opts.ForgingPassphrase
	default:
		return opts.SigPassphrase
	}
}

func (c *Client) offset(d keys.Domain) uint64 {
	switch d {
	case keys.Multisig:
		return c.cfg.Keys.MultisigOffset
	case keys.Forging:
		return c.cfg.Keys.ForgingOffset
	default:
		return c.cfg.Keys.SigOffset
	}
}

// resolveNetworkSymbol asks the adapter for its network symbol. A configured
// symbol that disagrees with the network is a configuration error.
func (c *Client) resolveNetworkSymbol(ctx context.Context) (string, error) {
	symbol, err := c.adapter.GetNetworkSymbol(ctx)
	if err != nil {
		return "", fmt.Errorf("get network symbol: %w", err)
	}
	if symbol == "" {
		symbol = c.cfg.NetworkSymbol
	}
	if symbol == "" {
		return "", fmt.Errorf("%w: no network symbol", config.ErrInvalidConfig)
	}
	if c.cfg.NetworkSymbol != "" && c.cfg.NetworkSymbol != symbol {
		return "", fmt.Errorf("%w: configured network %q, node reports %q",
			config.ErrInvalidConfig, c.cfg.NetworkSymbol, symbol)
	}
	return symbol, nil
}

// WalletAddress returns the address of the connected identity.
func (c *Client) WalletAddress() (types.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return "", ErrNotConnected
	}
	return c.address, nil
}

// NetworkSymbol returns the symbol of the connected network.
func (c *Client) NetworkSymbol() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return "", ErrNotConnected
	}
	return c.networkSymbol, nil
}

// KeyIndex returns the next unused key index of domain d.
func (c *Client) KeyIndex(d keys.Domain) (uint64, error) {
	m, _, err := c.domain(d)
	if err != nil {
		return 0, err
	}
	return m.KeyIndex()
}

// Connected reports whether the client has an active session.
func (c *Client) Connected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Disconnect ends the session, zeroing seeds and trees. The adapter is
// closed if it implements io.Closer.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	domains := c.domains
	c.domains = [3]*keys.Manager{}
	c.connected = false
	c.address = ""
	c.networkSymbol = ""
	c.mu.Unlock()

	for _, m := range domains {
		if m != nil {
			m.Close()
		}
	}
	if closer, ok := c.adapter.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			return fmt.Errorf("close adapter: %w", err)
		}
	}
	c.log.Info().Msg("Disconnected")
	return nil
}

// domain returns the manager of d and the session address.
func (c *Client) domain(d keys.Domain) (*keys.Manager, types.Address, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.connected {
		return nil, "", ErrNotConnected
	}
	if int(d) < 0 || int(d) >= len(c.domains) {
		return nil, "", fmt.Errorf("unknown key domain %d", d)
	}
	return c.domains[d], c.address, nil
}
