package client

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/Klingon-tech/ldpos-client/internal/log"
	"github.com/Klingon-tech/ldpos-client/pkg/adapter"
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// SyncKeyIndex moves domain d forward to the key index the network reports,
// after checking the reported public keys against the local seed. It
// reports whether the domain advanced; it never moves backwards. A mismatch
// is returned as a *KeyIndexMismatchError and leaves local state untouched.
func (c *Client) SyncKeyIndex(ctx context.Context, d keys.Domain) (bool, error) {
	m, address, err := c.domain(d)
	if err != nil {
		return false, err
	}
	account, err := c.fetchAccount(ctx, address)
	if err != nil || account == nil {
		return false, err
	}
	return c.syncDomain(ctx, m, account)
}

// SyncAllKeyIndexes syncs every domain against one account lookup. The
// domains are synced concurrently; the result reports which advanced.
func (c *Client) SyncAllKeyIndexes(ctx context.Context) (map[keys.Domain]bool, error) {
	managers := make([]*keys.Manager, 0, 3)
	var address types.Address
	for _, d := range keys.Domains() {
		m, addr, err := c.domain(d)
		if err != nil {
			return nil, err
		}
		managers = append(managers, m)
		address = addr
	}

	advanced := make(map[keys.Domain]bool, len(managers))
	account, err := c.fetchAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	if account == nil {
		for _, m := range managers {
			advanced[m.Domain()] = false
		}
		return advanced, nil
	}

	results := make([]bool, len(managers))
	g, gctx := errgroup.WithContext(ctx)
	for i, m := range managers {
		g.Go(func() error {
			ok, err := c.syncDomain(gctx, m, account)
			results[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, m := range managers {
		advanced[m.Domain()] = results[i]
	}
	return advanced, nil
}

// fetchAccount returns nil without error for an account the network does
// not know yet.
func (c *Client) fetchAccount(ctx context.Context, address types.Address) (*adapter.Account, error) {
	account, err := c.adapter.GetAccount(ctx, address)
	if errors.Is(err, adapter.ErrAccountNotFound) {
		log.Sync.Debug().Str("address", string(address)).Msg("Account not on network, nothing to sync")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

func (c *Client) syncDomain(ctx context.Context, m *keys.Manager, account *adapter.Account) (bool, error) {
	d := m.Domain()
	info := account.KeyInfo(d)
	logger := log.Sync.With().Str("domain", d.String()).Uint64("network_key_index", info.NextKeyIndex).Logger()

	ok, err := m.VerifyKeyIndex(info.NextKeyIndex, info.PublicKey, info.NextPublicKey)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.Warn().Msg("Network key index does not match local seed")
		return false, &KeyIndexMismatchError{Domain: d, KeyIndex: info.NextKeyIndex}
	}

	advanced, err := m.AdvanceTo(ctx, info.NextKeyIndex)
	if err != nil {
		return false, fmt.Errorf("sync %s key index: %w", d, err)
	}
	if advanced {
		logger.Info().Msg("Key index synced from network")
	}
	return advanced, nil
}
