package client

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
)

// PrepareTransaction signs t as the connected wallet. The result carries
// the sender address, the sig domain keys, the ID and the sender signature;
// t itself is not modified. The sig domain advances by one key.
func (c *Client) PrepareTransaction(ctx context.Context, t *tx.Transaction) (*tx.Transaction, error) {
	m, address, err := c.domain(keys.Sig)
	if err != nil {
		return nil, err
	}

	out := t.Clone()
	out.SenderAddress = address
	out.ID = ""
	out.SenderSignature = ""
	out.Signatures = nil
	if out.Timestamp == 0 {
		out.Timestamp = c.now().UnixMilli()
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("prepare transaction: %w", err)
	}

	sig, _, err := m.Sign(ctx, func(st keys.KeyState) ([]byte, error) {
		out.SigPublicKey = st.PublicKey
		out.NextSigPublicKey = st.NextPublicKey
		out.NextSigKeyIndex = st.NextKeyIndex
		id, err := out.ComputeID()
		if err != nil {
			return nil, err
		}
		out.ID = id
		return out.SigningPayload()
	})
	if err != nil {
		return nil, fmt.Errorf("prepare transaction: %w", err)
	}
	out.SenderSignature = sig
	return out, nil
}

// VerifyTransactionID reports whether t.ID is the content ID of t.
func (c *Client) VerifyTransactionID(t *tx.Transaction) bool {
	if t == nil || t.ID == "" {
		return false
	}
	id, err := t.ComputeID()
	return err == nil && id == t.ID
}

// VerifyTransaction reports whether t has a correct ID and a sender
// signature by its sigPublicKey over everything but the signatures.
func (c *Client) VerifyTransaction(t *tx.Transaction) bool {
	if !c.VerifyTransactionID(t) || t.SenderSignature == "" || t.SigPublicKey == "" {
		return false
	}
	payload, err := t.SigningPayload()
	if err != nil {
		return false
	}
	return c.scheme.Verify(payload, t.SenderSignature, t.SigPublicKey)
}
