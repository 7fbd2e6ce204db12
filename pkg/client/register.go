package client

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/ldpos-client/internal/wallet"
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// TxOptions are the common fields of a transaction built by the client.
type TxOptions struct {
	Fee       string
	Timestamp int64
	Message   string
}

// RegisterDetailsOptions configure a key details registration.
type RegisterDetailsOptions struct {
	TxOptions

	// Passphrase derives the announced trees. Empty means the domain's
	// current seed.
	Passphrase string

	// KeyIndex is the next unused key index the account will report once
	// the registration is applied.
	KeyIndex uint64
}

// PrepareRegisterSigDetails builds and signs a transaction announcing the
// sig domain keys for opts.KeyIndex.
func (c *Client) PrepareRegisterSigDetails(ctx context.Context, opts RegisterDetailsOptions) (*tx.Transaction, error) {
	return c.prepareRegisterDetails(ctx, keys.Sig, tx.TypeRegisterSigDetails, opts)
}

// PrepareRegisterMultisigDetails builds and signs a transaction announcing
// the multisig domain keys for opts.KeyIndex.
func (c *Client) PrepareRegisterMultisigDetails(ctx context.Context, opts RegisterDetailsOptions) (*tx.Transaction, error) {
	return c.prepareRegisterDetails(ctx, keys.Multisig, tx.TypeRegisterMultisigDetails, opts)
}

// PrepareRegisterForgingDetails builds and signs a transaction announcing
// the forging domain keys for opts.KeyIndex.
func (c *Client) PrepareRegisterForgingDetails(ctx context.Context, opts RegisterDetailsOptions) (*tx.Transaction, error) {
	return c.prepareRegisterDetails(ctx, keys.Forging, tx.TypeRegisterForgingDetails, opts)
}

func (c *Client) prepareRegisterDetails(ctx context.Context, d keys.Domain, typ tx.Type, opts RegisterDetailsOptions) (*tx.Transaction, error) {
	m, _, err := c.domain(d)
	if err != nil {
		return nil, err
	}
	symbol, err := c.NetworkSymbol()
	if err != nil {
		return nil, err
	}

	var seed []byte
	if opts.Passphrase != "" {
		seed, err = wallet.PassphraseToSeed(opts.Passphrase)
	} else {
		seed, err = m.Seed()
	}
	if err != nil {
		return nil, fmt.Errorf("register %s details: %w", d, err)
	}
	pub, nextPub := keys.PublicKeysFor(c.scheme, seed, symbol, d, opts.KeyIndex)
	clear(seed)

	b := tx.RegisterDetails(typ, pub, nextPub, opts.KeyIndex)
	applyTxOptions(b, opts.TxOptions)
	t, err := b.Build()
	if err != nil {
		return nil, err
	}
	c.log.Info().Str("domain", d.String()).Uint64("key_index", opts.KeyIndex).Msg("Registering key details")
	return c.PrepareTransaction(ctx, t)
}

// PrepareRegisterMultisigWallet builds and signs a transaction turning the
// connected wallet into a multisig wallet with the given members.
func (c *Client) PrepareRegisterMultisigWallet(ctx context.Context, members []types.Address, requiredSignatureCount int, opts TxOptions) (*tx.Transaction, error) {
	b := tx.RegisterMultisigWallet(members, requiredSignatureCount)
	applyTxOptions(b, opts)
	t, err := b.Build()
	if err != nil {
		return nil, err
	}
	return c.PrepareTransaction(ctx, t)
}

func applyTxOptions(b *tx.Builder, opts TxOptions) {
	if opts.Fee != "" {
		b.Fee(opts.Fee)
	}
	if opts.Timestamp != 0 {
		b.Timestamp(opts.Timestamp)
	}
	if opts.Message != "" {
		b.Message(opts.Message)
	}
}
