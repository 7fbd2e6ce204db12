package tx

import (
	"fmt"
	"time"

	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// Builder constructs transactions incrementally.
type Builder struct {
	tx  *Transaction
	now func() time.Time
}

// NewBuilder creates a builder for a transaction of the given type.
func NewBuilder(typ Type) *Builder {
	return &Builder{
		tx:  &Transaction{Type: typ, Fee: "0"},
		now: time.Now,
	}
}

// Transfer starts a transfer of amount to recipient.
func Transfer(recipient types.Address, amount string) *Builder {
	b := NewBuilder(TypeTransfer)
	b.tx.RecipientAddress = recipient
	b.tx.Amount = amount
	return b
}

// Vote starts a vote for delegate.
func Vote(delegate types.Address) *Builder {
	b := NewBuilder(TypeVote)
	b.tx.DelegateAddress = delegate
	return b
}

// Unvote starts the withdrawal of a vote for delegate.
func Unvote(delegate types.Address) *Builder {
	b := NewBuilder(TypeUnvote)
	b.tx.DelegateAddress = delegate
	return b
}

// RegisterMultisigWallet starts a registration turning the sender into a
// multisig wallet with the given members.
func RegisterMultisigWallet(members []types.Address, required int) *Builder {
	b := NewBuilder(TypeRegisterMultisigWallet)
	b.tx.MemberAddresses = append([]types.Address(nil), members...)
	b.tx.RequiredSignatureCount = required
	return b
}

// RegisterDetails starts a registration of the public keys for one key
// domain. typ selects the domain; nextKeyIndex is the next unused key index
// the account reports afterwards.
func RegisterDetails(typ Type, publicKey, nextPublicKey string, nextKeyIndex uint64) *Builder {
	b := NewBuilder(typ)
	idx := nextKeyIndex
	switch typ {
	case TypeRegisterSigDetails:
		b.tx.NewSigPublicKey, b.tx.NewNextSigPublicKey, b.tx.NewNextSigKeyIndex = publicKey, nextPublicKey, &idx
	case TypeRegisterMultisigDetails:
		b.tx.NewMultisigPublicKey, b.tx.NewNextMultisigPublicKey, b.tx.NewNextMultisigKeyIndex = publicKey, nextPublicKey, &idx
	case TypeRegisterForgingDetails:
		b.tx.NewForgingPublicKey, b.tx.NewNextForgingPublicKey, b.tx.NewNextForgingKeyIndex = publicKey, nextPublicKey, &idx
	}
	return b
}

// Fee sets the fee in base units.
func (b *Builder) Fee(fee string) *Builder {
	b.tx.Fee = fee
	return b
}

// Timestamp sets the timestamp in milliseconds since the Unix epoch.
func (b *Builder) Timestamp(ms int64) *Builder {
	b.tx.Timestamp = ms
	return b
}

// Message sets the free-form message.
func (b *Builder) Message(msg string) *Builder {
	b.tx.Message = msg
	return b
}

// Sender sets the sender address. Signers overwrite it with their own
// address; multisig transactions keep it as the wallet address.
func (b *Builder) Sender(addr types.Address) *Builder {
	b.tx.SenderAddress = addr
	return b
}

// Build validates and returns the transaction. A zero timestamp is set to
// the current time.
func (b *Builder) Build() (*Transaction, error) {
	t := b.tx.Clone()
	if t.Timestamp == 0 {
		t.Timestamp = b.now().UnixMilli()
	}
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("build %s transaction: %w", t.Type, err)
	}
	return t, nil
}
