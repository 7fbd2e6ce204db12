package client

import (
	"context"
	"fmt"

	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/tx"
)

// PrepareMultisigTransaction fixes the content of a multisig wallet
// transaction and assigns its ID. No key is consumed. An empty sender
// address defaults to the connected wallet.
func (c *Client) PrepareMultisigTransaction(t *tx.Transaction) (*tx.Transaction, error) {
	out := t.Clone()
	if out.SenderAddress == "" {
		address, err := c.WalletAddress()
		if err != nil {
			return nil, err
		}
		out.SenderAddress = address
	}
	if err := out.SenderAddress.Validate(""); err != nil {
		return nil, fmt.Errorf("prepare multisig transaction: sender: %w", err)
	}
	out.SigPublicKey = ""
	out.NextSigPublicKey = ""
	out.NextSigKeyIndex = 0
	out.SenderSignature = ""
	out.Signatures = []tx.SignaturePacket{}
	if out.Timestamp == 0 {
		out.Timestamp = c.now().UnixMilli()
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("prepare multisig transaction: %w", err)
	}

	id, err := out.ComputeID()
	if err != nil {
		return nil, fmt.Errorf("prepare multisig transaction: %w", err)
	}
	out.ID = id
	return out, nil
}

// SignMultisigTransaction co-signs a prepared multisig transaction with the
// multisig domain and returns the signature packet. The multisig domain
// advances by one key.
func (c *Client) SignMultisigTransaction(ctx context.Context, t *tx.Transaction) (tx.SignaturePacket, error) {
	m, address, err := c.domain(keys.Multisig)
	if err != nil {
		return tx.SignaturePacket{}, err
	}
	if t == nil || t.ID == "" {
		return tx.SignaturePacket{}, fmt.Errorf("sign multisig transaction: %w", ErrNotPrepared)
	}

	var packet tx.SignaturePacket
	sig, _, err := m.Sign(ctx, func(st keys.KeyState) ([]byte, error) {
		packet = tx.SignaturePacket{
			SignerAddress:         address,
			MultisigPublicKey:     st.PublicKey,
			NextMultisigPublicKey: st.NextPublicKey,
			NextMultisigKeyIndex:  st.NextKeyIndex,
		}
		return t.MultisigPayload(packet)
	})
	if err != nil {
		return tx.SignaturePacket{}, fmt.Errorf("sign multisig transaction: %w", err)
	}
	packet.Signature = sig
	return packet, nil
}

// AttachMultisigTransactionSignature appends packet to t's signatures.
// Attachment order does not affect verification.
func (c *Client) AttachMultisigTransactionSignature(t *tx.Transaction, packet tx.SignaturePacket) {
	t.Signatures = append(t.Signatures, packet)
}

// VerifyMultisigTransactionID reports whether t.ID is the content ID of t.
// Attached signatures are not part of the ID.
func (c *Client) VerifyMultisigTransactionID(t *tx.Transaction) bool {
	return c.VerifyTransactionID(t)
}

// VerifyMultisigTransactionSignature reports whether packet is a valid
// co-signature of t by packet.MultisigPublicKey.
func (c *Client) VerifyMultisigTransactionSignature(t *tx.Transaction, packet tx.SignaturePacket) bool {
	if t == nil || packet.Signature == "" || packet.MultisigPublicKey == "" {
		return false
	}
	payload, err := t.MultisigPayload(packet)
	if err != nil {
		return false
	}
	return c.scheme.Verify(payload, packet.Signature, packet.MultisigPublicKey)
}

// VerifyMultisigTransaction reports whether t has a correct ID and at least
// requiredSignatureCount valid co-signatures from distinct signers. Any
// invalid packet fails the whole transaction.
func (c *Client) VerifyMultisigTransaction(t *tx.Transaction, requiredSignatureCount int) bool {
	if !c.VerifyMultisigTransactionID(t) {
		return false
	}
	signers := make(map[string]bool, len(t.Signatures))
	for _, p := range t.Signatures {
		if signers[string(p.SignerAddress)] || !c.VerifyMultisigTransactionSignature(t, p) {
			return false
		}
		signers[string(p.SignerAddress)] = true
	}
	return len(signers) >= max(requiredSignatureCount, 1)
}
