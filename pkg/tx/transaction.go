// Package tx defines LDPoS transaction payloads, their signable views and
// structural validation.
package tx

import (
	"github.com/Klingon-tech/ldpos-client/pkg/canonical"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// Type identifies what a transaction does.
type Type string

// Transaction types.
const (
	TypeTransfer                Type = "transfer"
	TypeVote                    Type = "vote"
	TypeUnvote                  Type = "unvote"
	TypeRegisterMultisigWallet  Type = "registerMultisigWallet"
	TypeRegisterSigDetails      Type = "registerSigDetails"
	TypeRegisterMultisigDetails Type = "registerMultisigDetails"
	TypeRegisterForgingDetails  Type = "registerForgingDetails"
)

// Known reports whether t is a transaction type the network accepts.
func (t Type) Known() bool {
	switch t {
	case TypeTransfer, TypeVote, TypeUnvote, TypeRegisterMultisigWallet,
		TypeRegisterSigDetails, TypeRegisterMultisigDetails, TypeRegisterForgingDetails:
		return true
	}
	return false
}

// Transaction is the wire payload of an LDPoS transaction. Amounts and fees
// are decimal strings in base units. Optional fields are omitted from the
// canonical encoding when empty.
type Transaction struct {
	Type      Type   `json:"type"`
	Fee       string `json:"fee"`
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message,omitempty"`

	SenderAddress    types.Address `json:"senderAddress,omitempty"`
	RecipientAddress types.Address `json:"recipientAddress,omitempty"`
	Amount           string        `json:"amount,omitempty"`

	// vote, unvote
	DelegateAddress types.Address `json:"delegateAddress,omitempty"`

	// registerMultisigWallet
	MemberAddresses        []types.Address `json:"memberAddresses,omitempty"`
	RequiredSignatureCount int             `json:"requiredSignatureCount,omitempty"`

	// registerSigDetails
	NewSigPublicKey     string  `json:"newSigPublicKey,omitempty"`
	NewNextSigPublicKey string  `json:"newNextSigPublicKey,omitempty"`
	NewNextSigKeyIndex  *uint64 `json:"newNextSigKeyIndex,omitempty"`

	// registerMultisigDetails
	NewMultisigPublicKey     string  `json:"newMultisigPublicKey,omitempty"`
	NewNextMultisigPublicKey string  `json:"newNextMultisigPublicKey,omitempty"`
	NewNextMultisigKeyIndex  *uint64 `json:"newNextMultisigKeyIndex,omitempty"`

	// registerForgingDetails
	NewForgingPublicKey     string  `json:"newForgingPublicKey,omitempty"`
	NewNextForgingPublicKey string  `json:"newNextForgingPublicKey,omitempty"`
	NewNextForgingKeyIndex  *uint64 `json:"newNextForgingKeyIndex,omitempty"`

	// Single-signer identity, set by the signer.
	SigPublicKey     string `json:"sigPublicKey,omitempty"`
	NextSigPublicKey string `json:"nextSigPublicKey,omitempty"`
	NextSigKeyIndex  uint64 `json:"nextSigKeyIndex,omitempty"`

	ID              string            `json:"id,omitempty"`
	SenderSignature string            `json:"senderSignature,omitempty"`
	Signatures      []SignaturePacket `json:"signatures,omitempty"`
}

// SignaturePacket is a multisig co-signer's signature together with the
// meta fields it commits to.
type SignaturePacket struct {
	SignerAddress         types.Address `json:"signerAddress"`
	MultisigPublicKey     string        `json:"multisigPublicKey"`
	NextMultisigPublicKey string        `json:"nextMultisigPublicKey"`
	NextMultisigKeyIndex  uint64        `json:"nextMultisigKeyIndex"`
	Signature             string        `json:"signature,omitempty"`
}

// Meta returns the packet without its signature: the meta object bound into
// the co-signer's payload.
func (p SignaturePacket) Meta() SignaturePacket {
	p.Signature = ""
	return p
}

// Clone returns a deep copy of the transaction.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.MemberAddresses != nil {
		c.MemberAddresses = append([]types.Address(nil), t.MemberAddresses...)
	}
	if t.Signatures != nil {
		c.Signatures = append([]SignaturePacket{}, t.Signatures...)
	}
	c.NewNextSigKeyIndex = cloneIndex(t.NewNextSigKeyIndex)
	c.NewNextMultisigKeyIndex = cloneIndex(t.NewNextMultisigKeyIndex)
	c.NewNextForgingKeyIndex = cloneIndex(t.NewNextForgingKeyIndex)
	return &c
}

func cloneIndex(p *uint64) *uint64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IDView returns the projection the transaction ID is computed over: every
// field except the ID and the signatures.
func (t *Transaction) IDView() *Transaction {
	v := t.SignableView()
	v.ID = ""
	return v
}

// SignableView returns the projection signers commit to: every field except
// the signatures.
func (t *Transaction) SignableView() *Transaction {
	v := t.Clone()
	v.SenderSignature = ""
	v.Signatures = nil
	return v
}

// ComputeID returns the content ID of the transaction.
func (t *Transaction) ComputeID() (string, error) {
	return canonical.ContentID(t.IDView())
}

// SigningPayload returns the canonical bytes a single signer signs.
func (t *Transaction) SigningPayload() ([]byte, error) {
	s, err := canonical.Canonicalize(t.SignableView())
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// MultisigPayload returns the canonical bytes a co-signer signs for the
// given meta packet.
func (t *Transaction) MultisigPayload(meta SignaturePacket) ([]byte, error) {
	s, err := canonical.CanonicalizeWithMeta(t.SignableView(), meta.Meta())
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
