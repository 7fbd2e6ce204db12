package client

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/ldpos-client/pkg/block"
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
)

// PrepareBlock signs b as its forger. The result carries the forger address,
// the forging domain keys, the ID and the forger signature. The forging
// domain advances by one key.
func (c *Client) PrepareBlock(ctx context.Context, b *block.Block) (*block.Block, error) {
	m, address, err := c.domain(keys.Forging)
	if err != nil {
		return nil, err
	}

	out := b.Clone()
	out.ForgerAddress = address
	out.ID = ""
	out.ForgerSignature = ""
	out.Signatures = nil
	if out.Timestamp == 0 {
		out.Timestamp = c.now().UnixMilli()
	}

	sig, _, err := m.Sign(ctx, func(st keys.KeyState) ([]byte, error) {
		out.ForgingPublicKey = st.PublicKey
		out.NextForgingPublicKey = st.NextPublicKey
		out.NextForgingKeyIndex = st.NextKeyIndex
		if err := out.Validate(); err != nil {
			return nil, err
		}
		id, err := out.ComputeID()
		if err != nil {
			return nil, err
		}
		out.ID = id
		return out.SigningPayload()
	})
	if err != nil {
		return nil, fmt.Errorf("prepare block: %w", err)
	}
	out.ForgerSignature = sig
	return out, nil
}

// SignBlock co-signs a prepared block with the forging domain and returns
// the signature packet, bound to the block ID. The forging domain advances
// by one key.
func (c *Client) SignBlock(ctx context.Context, b *block.Block) (block.Signature, error) {
	m, address, err := c.domain(keys.Forging)
	if err != nil {
		return block.Signature{}, err
	}
	if b == nil || b.ID == "" {
		return block.Signature{}, fmt.Errorf("sign block: %w", ErrNotPrepared)
	}

	var packet block.Signature
	sig, _, err := m.Sign(ctx, func(st keys.KeyState) ([]byte, error) {
		packet = block.Signature{
			BlockID:              b.ID,
			SignerAddress:        address,
			ForgingPublicKey:     st.PublicKey,
			NextForgingPublicKey: st.NextPublicKey,
			NextForgingKeyIndex:  st.NextKeyIndex,
		}
		return b.CosignPayload(packet)
	})
	if err != nil {
		return block.Signature{}, fmt.Errorf("sign block: %w", err)
	}
	packet.Signature = sig
	return packet, nil
}

// VerifyBlockID reports whether b.ID is the content ID of b.
func (c *Client) VerifyBlockID(b *block.Block) bool {
	if b == nil || b.ID == "" {
		return false
	}
	id, err := b.ComputeID()
	return err == nil && id == b.ID
}

// VerifyBlockSignature reports whether packet is a valid co-signature of b.
func (c *Client) VerifyBlockSignature(b *block.Block, packet block.Signature) bool {
	if b == nil || packet.BlockID != b.ID || packet.Signature == "" || packet.ForgingPublicKey == "" {
		return false
	}
	payload, err := b.CosignPayload(packet)
	if err != nil {
		return false
	}
	return c.scheme.Verify(payload, packet.Signature, packet.ForgingPublicKey)
}

// VerifyBlock reports whether b has a correct ID and a forger signature by
// its forgingPublicKey.
func (c *Client) VerifyBlock(b *block.Block) bool {
	if b == nil {
		return false
	}
	return c.VerifyBlockWithKey(b, b.ForgingPublicKey, b.PreviousBlockID)
}

// VerifyBlockWithKey is VerifyBlock against a trusted forging public key and
// the expected previous block ID.
func (c *Client) VerifyBlockWithKey(b *block.Block, forgingPublicKey, previousBlockID string) bool {
	if !c.VerifyBlockID(b) || b.PreviousBlockID != previousBlockID {
		return false
	}
	if b.ForgerSignature == "" || forgingPublicKey == "" {
		return false
	}
	payload, err := b.SigningPayload()
	if err != nil {
		return false
	}
	return c.scheme.Verify(payload, b.ForgerSignature, forgingPublicKey)
}
