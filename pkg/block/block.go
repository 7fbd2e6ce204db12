// Package block defines LDPoS block payloads, forger and co-signer
// signature packets, and block validation.
package block

import (
	"github.com/Klingon-tech/ldpos-client/pkg/canonical"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// Block is the wire payload of a forged block.
type Block struct {
	Height          uint64            `json:"height"`
	Timestamp       int64             `json:"timestamp"`
	PreviousBlockID string            `json:"previousBlockId,omitempty"`
	Transactions    []*tx.Transaction `json:"transactions"`

	ForgerAddress        types.Address `json:"forgerAddress,omitempty"`
	ForgingPublicKey     string        `json:"forgingPublicKey,omitempty"`
	NextForgingPublicKey string        `json:"nextForgingPublicKey,omitempty"`
	NextForgingKeyIndex  uint64        `json:"nextForgingKeyIndex,omitempty"`

	ID              string      `json:"id,omitempty"`
	ForgerSignature string      `json:"forgerSignature,omitempty"`
	Signatures      []Signature `json:"signatures,omitempty"`
}

// Signature is a forging co-signer's signature bound to a block ID.
type Signature struct {
	BlockID              string        `json:"blockId"`
	SignerAddress        types.Address `json:"signerAddress"`
	ForgingPublicKey     string        `json:"forgingPublicKey"`
	NextForgingPublicKey string        `json:"nextForgingPublicKey"`
	NextForgingKeyIndex  uint64        `json:"nextForgingKeyIndex"`
	Signature            string        `json:"signature,omitempty"`
}

// Meta returns the packet without its signature.
func (s Signature) Meta() Signature {
	s.Signature = ""
	return s
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	c := *b
	if b.Transactions != nil {
		c.Transactions = make([]*tx.Transaction, len(b.Transactions))
		for i, t := range b.Transactions {
			if t != nil {
				c.Transactions[i] = t.Clone()
			}
		}
	}
	if b.Signatures != nil {
		c.Signatures = append([]Signature{}, b.Signatures...)
	}
	return &c
}

// IDView returns the projection the block ID is computed over.
func (b *Block) IDView() *Block {
	v := b.SignableView()
	v.ID = ""
	return v
}

// SignableView returns the block without the forger and co-signer
// signatures.
func (b *Block) SignableView() *Block {
	v := b.Clone()
	v.ForgerSignature = ""
	v.Signatures = nil
	return v
}

// ComputeID returns the content ID of the block.
func (b *Block) ComputeID() (string, error) {
	return canonical.ContentID(b.IDView())
}

// SigningPayload returns the canonical bytes the forger signs.
func (b *Block) SigningPayload() ([]byte, error) {
	s, err := canonical.Canonicalize(b.SignableView())
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// CosignPayload returns the canonical bytes a co-signer signs for the given
// meta packet.
func (b *Block) CosignPayload(meta Signature) ([]byte, error) {
	s, err := canonical.CanonicalizeWithMeta(b.SignableView(), meta.Meta())
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}
