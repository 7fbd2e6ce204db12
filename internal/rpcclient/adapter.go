package rpcclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Klingon-tech/ldpos-client/config"
	"github.com/Klingon-tech/ldpos-client/internal/log"
	"github.com/Klingon-tech/ldpos-client/pkg/adapter"
	"github.com/Klingon-tech/ldpos-client/pkg/block"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// CodeAccountNotFound is the error code a node returns for an address it
// has no account for.
const CodeAccountNotFound = -32004

// accountNotFoundName is the error name older nodes send in the message.
const accountNotFoundName = "AccountDidNotExistError"

// Adapter talks to the chain module of an LDPoS node. Every action is
// invoked as the JSON-RPC method "<module>:<action>".
type Adapter struct {
	client *Client
	module string
	log    zerolog.Logger
}

var (
	_ adapter.Adapter            = (*Adapter)(nil)
	_ adapter.TransactionPoster  = (*Adapter)(nil)
	_ adapter.TransactionQuerier = (*Adapter)(nil)
	_ adapter.BlockPoster        = (*Adapter)(nil)
	_ adapter.BlockQuerier       = (*Adapter)(nil)
	_ adapter.DelegateQuerier    = (*Adapter)(nil)
)

// NewAdapter returns an adapter over client. An empty module selects the
// default chain module.
func NewAdapter(client *Client, module string) *Adapter {
	if module == "" {
		module = config.DefaultChainModule
	}
	return &Adapter{
		client: client,
		module: module,
		log:    log.Adapter.With().Str("module", module).Logger(),
	}
}

// FromConfig builds an adapter from the RPC section of cfg.
func FromConfig(cfg *config.Config) *Adapter {
	return NewAdapter(NewWithTimeout(cfg.RPC.URL, cfg.RPC.Timeout), cfg.RPC.Module)
}

func (a *Adapter) invoke(ctx context.Context, action string, params, result any) error {
	method := a.module + ":" + action
	err := a.client.Call(ctx, method, params, result)
	if err != nil {
		a.log.Debug().Err(err).Str("method", method).Msg("RPC call failed")
		return fmt.Errorf("%s: %w", method, err)
	}
	return nil
}

// GetNetworkSymbol returns the symbol of the node's network.
func (a *Adapter) GetNetworkSymbol(ctx context.Context) (string, error) {
	var symbol string
	if err := a.invoke(ctx, "getNetworkSymbol", nil, &symbol); err != nil {
		return "", err
	}
	return symbol, nil
}

// GetAccount returns the account at address, or adapter.ErrAccountNotFound.
func (a *Adapter) GetAccount(ctx context.Context, address types.Address) (*adapter.Account, error) {
	var acct adapter.Account
	err := a.invoke(ctx, "getAccount", map[string]any{"walletAddress": address}, &acct)
	if err != nil {
		if isAccountNotFound(err) {
			return nil, fmt.Errorf("%w: %s", adapter.ErrAccountNotFound, address)
		}
		return nil, err
	}
	return &acct, nil
}

func isAccountNotFound(err error) bool {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Code == CodeAccountNotFound || rpcErr.Message == accountNotFoundName
}

// PostTransaction submits a signed transaction.
func (a *Adapter) PostTransaction(ctx context.Context, t *tx.Transaction) error {
	return a.invoke(ctx, "postTransaction", map[string]any{"transaction": t}, nil)
}

// GetTransaction returns a transaction by ID.
func (a *Adapter) GetTransaction(ctx context.Context, id string) (*tx.Transaction, error) {
	var t tx.Transaction
	if err := a.invoke(ctx, "getTransaction", map[string]any{"transactionId": id}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTransactionsByTimestamp pages through transactions ordered by time.
func (a *Adapter) GetTransactionsByTimestamp(ctx context.Context, offset, limit int, order adapter.Order) ([]*tx.Transaction, error) {
	var txs []*tx.Transaction
	params := map[string]any{"offset": offset, "limit": limit, "order": order}
	if err := a.invoke(ctx, "getTransactionsByTimestamp", params, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetInboundTransactions returns transactions received by address.
func (a *Adapter) GetInboundTransactions(ctx context.Context, address types.Address, fromTimestamp int64, limit int) ([]*tx.Transaction, error) {
	return a.accountTransactions(ctx, "getInboundTransactions", address, fromTimestamp, limit)
}

// GetOutboundTransactions returns transactions sent by address.
func (a *Adapter) GetOutboundTransactions(ctx context.Context, address types.Address, fromTimestamp int64, limit int) ([]*tx.Transaction, error) {
	return a.accountTransactions(ctx, "getOutboundTransactions", address, fromTimestamp, limit)
}

func (a *Adapter) accountTransactions(ctx context.Context, action string, address types.Address, fromTimestamp int64, limit int) ([]*tx.Transaction, error) {
	var txs []*tx.Transaction
	params := map[string]any{"walletAddress": address, "fromTimestamp": fromTimestamp, "limit": limit}
	if err := a.invoke(ctx, action, params, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}

// GetPendingTransactionCount returns the size of the node's pending pool.
func (a *Adapter) GetPendingTransactionCount(ctx context.Context) (int, error) {
	var n int
	if err := a.invoke(ctx, "getPendingTransactionCount", nil, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// PostBlock submits a forged block.
func (a *Adapter) PostBlock(ctx context.Context, b *block.Block) error {
	return a.invoke(ctx, "postBlock", map[string]any{"block": b}, nil)
}

// GetBlock returns a block by ID.
func (a *Adapter) GetBlock(ctx context.Context, id string) (*block.Block, error) {
	var b block.Block
	if err := a.invoke(ctx, "getBlock", map[string]any{"blockId": id}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBlockAtHeight returns the block at height.
func (a *Adapter) GetBlockAtHeight(ctx context.Context, height uint64) (*block.Block, error) {
	var b block.Block
	if err := a.invoke(ctx, "getBlockAtHeight", map[string]any{"height": height}, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// GetBlocksFromHeight returns up to limit blocks starting at height.
func (a *Adapter) GetBlocksFromHeight(ctx context.Context, height uint64, limit int) ([]*block.Block, error) {
	var blocks []*block.Block
	if err := a.invoke(ctx, "getBlocksFromHeight", map[string]any{"height": height, "limit": limit}, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

// GetMaxBlockHeight returns the height of the node's chain tip.
func (a *Adapter) GetMaxBlockHeight(ctx context.Context) (uint64, error) {
	var h uint64
	if err := a.invoke(ctx, "getMaxBlockHeight", nil, &h); err != nil {
		return 0, err
	}
	return h, nil
}

// GetDelegatesByVoteWeight pages through delegates ordered by vote weight.
func (a *Adapter) GetDelegatesByVoteWeight(ctx context.Context, offset, limit int, order adapter.Order) ([]*adapter.Delegate, error) {
	var ds []*adapter.Delegate
	params := map[string]any{"offset": offset, "limit": limit, "order": order}
	if err := a.invoke(ctx, "getDelegatesByVoteWeight", params, &ds); err != nil {
		return nil, err
	}
	return ds, nil
}

// GetAccountVotes returns the delegates address votes for.
func (a *Adapter) GetAccountVotes(ctx context.Context, address types.Address) ([]types.Address, error) {
	return a.addressList(ctx, "getAccountVotes", address)
}

// GetAccountsByBalance pages through accounts ordered by balance.
func (a *Adapter) GetAccountsByBalance(ctx context.Context, offset, limit int, order adapter.Order) ([]*adapter.Account, error) {
	var accts []*adapter.Account
	params := map[string]any{"offset": offset, "limit": limit, "order": order}
	if err := a.invoke(ctx, "getAccountsByBalance", params, &accts); err != nil {
		return nil, err
	}
	return accts, nil
}

// GetMultisigWalletMembers returns the member addresses of a multisig wallet.
func (a *Adapter) GetMultisigWalletMembers(ctx context.Context, address types.Address) ([]types.Address, error) {
	return a.addressList(ctx, "getMultisigWalletMembers", address)
}

func (a *Adapter) addressList(ctx context.Context, action string, address types.Address) ([]types.Address, error) {
	var addrs []types.Address
	if err := a.invoke(ctx, action, map[string]any{"walletAddress": address}, &addrs); err != nil {
		return nil, err
	}
	return addrs, nil
}

// Close releases the underlying HTTP connections.
func (a *Adapter) Close() error {
	return a.client.Close()
}
