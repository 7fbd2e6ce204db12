package client

import (
	"context"

	"github.com/Klingon-tech/ldpos-client/pkg/adapter"
	"github.com/Klingon-tech/ldpos-client/pkg/block"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// capability returns the adapter as T, or an *adapter.UnsupportedMethodError
// naming method if the adapter does not implement it.
func capability[T any](c *Client, method string) (T, error) {
	a, ok := c.adapter.(T)
	if !ok {
		var zero T
		return zero, &adapter.UnsupportedMethodError{Method: method}
	}
	return a, nil
}

// GetAccount returns the network's view of address.
func (c *Client) GetAccount(ctx context.Context, address types.Address) (*adapter.Account, error) {
	return c.adapter.GetAccount(ctx, address)
}

// PostTransaction submits a signed transaction.
func (c *Client) PostTransaction(ctx context.Context, t *tx.Transaction) error {
	a, err := capability[adapter.TransactionPoster](c, "postTransaction")
	if err != nil {
		return err
	}
	return a.PostTransaction(ctx, t)
}

// GetTransaction returns a transaction by ID.
func (c *Client) GetTransaction(ctx context.Context, id string) (*tx.Transaction, error) {
	a, err := capability[adapter.TransactionQuerier](c, "getTransaction")
	if err != nil {
		return nil, err
	}
	return a.GetTransaction(ctx, id)
}

// GetTransactionsByTimestamp pages through transactions ordered by time.
func (c *Client) GetTransactionsByTimestamp(ctx context.Context, offset, limit int, order adapter.Order) ([]*tx.Transaction, error) {
	a, err := capability[adapter.TransactionQuerier](c, "getTransactionsByTimestamp")
	if err != nil {
		return nil, err
	}
	return a.GetTransactionsByTimestamp(ctx, offset, limit, order)
}

// GetInboundTransactions returns transactions received by address.
func (c *Client) GetInboundTransactions(ctx context.Context, address types.Address, fromTimestamp int64, limit int) ([]*tx.Transaction, error) {
	a, err := capability[adapter.TransactionQuerier](c, "getInboundTransactions")
	if err != nil {
		return nil, err
	}
	return a.GetInboundTransactions(ctx, address, fromTimestamp, limit)
}

// GetOutboundTransactions returns transactions sent by address.
func (c *Client) GetOutboundTransactions(ctx context.Context, address types.Address, fromTimestamp int64, limit int) ([]*tx.Transaction, error) {
	a, err := capability[adapter.TransactionQuerier](c, "getOutboundTransactions")
	if err != nil {
		return nil, err
	}
	return a.GetOutboundTransactions(ctx, address, fromTimestamp, limit)
}

// GetPendingTransactionCount returns the size of the pending pool.
func (c *Client) GetPendingTransactionCount(ctx context.Context) (int, error) {
	a, err := capability[adapter.TransactionQuerier](c, "getPendingTransactionCount")
	if err != nil {
		return 0, err
	}
	return a.GetPendingTransactionCount(ctx)
}

// PostBlock submits a forged block.
func (c *Client) PostBlock(ctx context.Context, b *block.Block) error {
	a, err := capability[adapter.BlockPoster](c, "postBlock")
	if err != nil {
		return err
	}
	return a.PostBlock(ctx, b)
}

// GetBlock returns a block by ID.
func (c *Client) GetBlock(ctx context.Context, id string) (*block.Block, error) {
	a, err := capability[adapter.BlockQuerier](c, "getBlock")
	if err != nil {
		return nil, err
	}
	return a.GetBlock(ctx, id)
}

// GetBlockAtHeight returns the block at height.
func (c *Client) GetBlockAtHeight(ctx context.Context, height uint64) (*block.Block, error) {
	a, err := capability[adapter.BlockQuerier](c, "getBlockAtHeight")
	if err != nil {
		return nil, err
	}
	return a.GetBlockAtHeight(ctx, height)
}

// GetBlocksFromHeight returns up to limit blocks starting at height.
func (c *Client) GetBlocksFromHeight(ctx context.Context, height uint64, limit int) ([]*block.Block, error) {
	a, err := capability[adapter.BlockQuerier](c, "getBlocksFromHeight")
	if err != nil {
		return nil, err
	}
	return a.GetBlocksFromHeight(ctx, height, limit)
}

// GetMaxBlockHeight returns the height of the chain tip.
func (c *Client) GetMaxBlockHeight(ctx context.Context) (uint64, error) {
	a, err := capability[adapter.BlockQuerier](c, "getMaxBlockHeight")
	if err != nil {
		return 0, err
	}
	return a.GetMaxBlockHeight(ctx)
}

// GetDelegatesByVoteWeight pages through delegates ordered by vote weight.
func (c *Client) GetDelegatesByVoteWeight(ctx context.Context, offset, limit int, order adapter.Order) ([]*adapter.Delegate, error) {
	a, err := capability[adapter.DelegateQuerier](c, "getDelegatesByVoteWeight")
	if err != nil {
		return nil, err
	}
	return a.GetDelegatesByVoteWeight(ctx, offset, limit, order)
}

// GetAccountVotes returns the delegates address votes for.
func (c *Client) GetAccountVotes(ctx context.Context, address types.Address) ([]types.Address, error) {
	a, err := capability[adapter.DelegateQuerier](c, "getAccountVotes")
	if err != nil {
		return nil, err
	}
	return a.GetAccountVotes(ctx, address)
}

// GetAccountsByBalance pages through accounts ordered by balance.
func (c *Client) GetAccountsByBalance(ctx context.Context, offset, limit int, order adapter.Order) ([]*adapter.Account, error) {
	a, err := capability[adapter.DelegateQuerier](c, "getAccountsByBalance")
	if err != nil {
		return nil, err
	}
	return a.GetAccountsByBalance(ctx, offset, limit, order)
}

// GetMultisigWalletMembers returns the members of a multisig wallet.
func (c *Client) GetMultisigWalletMembers(ctx context.Context, address types.Address) ([]types.Address, error) {
	a, err := capability[adapter.DelegateQuerier](c, "getMultisigWalletMembers")
	if err != nil {
		return nil, err
	}
	return a.GetMultisigWalletMembers(ctx, address)
}
