// Package adapter defines the capabilities a network adapter can offer the
// client. Only Adapter is required; the optional groups are discovered with
// type assertions.
package adapter

import (
	"context"

	"github.com/Klingon-tech/ldpos-client/pkg/block"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// Order is the sort direction of range queries.
type Order string

// Sort orders.
const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Adapter is the required capability set: network identity and account
// lookup. GetAccount returns ErrAccountNotFound for an address the network
// has never seen.
type Adapter interface {
	GetNetworkSymbol(ctx context.Context) (string, error)
	GetAccount(ctx context.Context, address types.Address) (*Account, error)
}

// TransactionPoster submits signed transactions.
type TransactionPoster interface {
	PostTransaction(ctx context.Context, t *tx.Transaction) error
}

// TransactionQuerier reads confirmed and pending transactions.
type TransactionQuerier interface {
	GetTransaction(ctx context.Context, id string) (*tx.Transaction, error)
	GetTransactionsByTimestamp(ctx context.Context, offset, limit int, order Order) ([]*tx.Transaction, error)
	GetInboundTransactions(ctx context.Context, address types.Address, fromTimestamp int64, limit int) ([]*tx.Transaction, error)
	GetOutboundTransactions(ctx context.Context, address types.Address, fromTimestamp int64, limit int) ([]*tx.Transaction, error)
	GetPendingTransactionCount(ctx context.Context) (int, error)
}

// BlockPoster submits forged blocks.
type BlockPoster interface {
	PostBlock(ctx context.Context, b *block.Block) error
}

// BlockQuerier reads blocks.
type BlockQuerier interface {
	GetBlock(ctx context.Context, id string) (*block.Block, error)
	GetBlockAtHeight(ctx context.Context, height uint64) (*block.Block, error)
	GetBlocksFromHeight(ctx context.Context, height uint64, limit int) ([]*block.Block, error)
	GetMaxBlockHeight(ctx context.Context) (uint64, error)
}

// DelegateQuerier reads delegates, votes and multisig membership.
type DelegateQuerier interface {
	GetDelegatesByVoteWeight(ctx context.Context, offset, limit int, order Order) ([]*Delegate, error)
	GetAccountVotes(ctx context.Context, address types.Address) ([]types.Address, error)
	GetAccountsByBalance(ctx context.Context, offset, limit int, order Order) ([]*Account, error)
	GetMultisigWalletMembers(ctx context.Context, address types.Address) ([]types.Address, error)
}
