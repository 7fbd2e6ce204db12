package block

import (
	"errors"
	"fmt"
)

// MaxTransactions is the most transactions a block may carry.
const MaxTransactions = 300

// Validation errors.
var (
	ErrZeroHeight       = errors.New("block height is zero")
	ErrZeroTimestamp    = errors.New("block timestamp is zero")
	ErrMissingPrevious  = errors.New("missing previous block id")
	ErrTooManyTxs       = errors.New("too many transactions in block")
	ErrNilTransaction   = errors.New("nil transaction in block")
	ErrDuplicateTx      = errors.New("duplicate transaction in block")
	ErrMissingTxID      = errors.New("transaction has no id")
	ErrMissingForger    = errors.New("missing forger address")
	ErrMissingForgerKey = errors.New("missing forging public key")
)

// Validate checks block structure. It does not check IDs or signatures.
// Only the first block may omit its previous block ID.
func (b *Block) Validate() error {
	if b.Height == 0 {
		return ErrZeroHeight
	}
	if b.Timestamp == 0 {
		return ErrZeroTimestamp
	}
	if b.Height > 1 && b.PreviousBlockID == "" {
		return ErrMissingPrevious
	}
	if len(b.Transactions) > MaxTransactions {
		return fmt.Errorf("%w: %d txs, max %d", ErrTooManyTxs, len(b.Transactions), MaxTransactions)
	}

	seen := make(map[string]bool, len(b.Transactions))
	for i, t := range b.Transactions {
		if t == nil {
			return fmt.Errorf("tx %d: %w", i, ErrNilTransaction)
		}
		if t.ID == "" {
			return fmt.Errorf("tx %d: %w", i, ErrMissingTxID)
		}
		if seen[t.ID] {
			return fmt.Errorf("tx %d: %w", i, ErrDuplicateTx)
		}
		seen[t.ID] = true
		if err := t.Validate(); err != nil {
			return fmt.Errorf("tx %d: %w", i, err)
		}
	}

	if b.ForgerAddress == "" {
		return ErrMissingForger
	}
	if err := b.ForgerAddress.Validate(""); err != nil {
		return fmt.Errorf("forger: %w", err)
	}
	if b.ForgingPublicKey == "" || b.NextForgingPublicKey == "" {
		return ErrMissingForgerKey
	}
	return nil
}
