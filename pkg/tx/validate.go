package tx

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// MaxMessageLength is the longest free-form message a transaction may carry.
const MaxMessageLength = 256

// Validation errors.
var (
	ErrUnknownType          = errors.New("unknown transaction type")
	ErrInvalidFee           = errors.New("invalid fee")
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrMissingRecipient     = errors.New("missing recipient address")
	ErrMissingDelegate      = errors.New("missing delegate address")
	ErrMessageTooLong       = errors.New("message too long")
	ErrNoMembers            = errors.New("multisig wallet has no members")
	ErrDuplicateMember      = errors.New("duplicate multisig member")
	ErrInvalidRequiredCount = errors.New("invalid required signature count")
	ErrMissingPublicKey     = errors.New("missing public key")
	ErrMissingKeyIndex      = errors.New("missing next key index")
	ErrInvalidEncoding      = errors.New("field is not valid UTF-8")
)

// Validate checks the transaction's type-specific structure. It does not
// check IDs or signatures.
func (t *Transaction) Validate() error {
	if err := t.checkEncoding(); err != nil {
		return err
	}
	if !t.Type.Known() {
		return fmt.Errorf("%w: %q", ErrUnknownType, t.Type)
	}
	if !isAmount(t.Fee) {
		return fmt.Errorf("%w: %q", ErrInvalidFee, t.Fee)
	}
	if len(t.Message) > MaxMessageLength {
		return fmt.Errorf("%w: %d bytes, max %d", ErrMessageTooLong, len(t.Message), MaxMessageLength)
	}

	switch t.Type {
	case TypeTransfer:
		if t.RecipientAddress == "" {
			return ErrMissingRecipient
		}
		if err := t.RecipientAddress.Validate(""); err != nil {
			return fmt.Errorf("recipient: %w", err)
		}
		if !isAmount(t.Amount) {
			return fmt.Errorf("%w: %q", ErrInvalidAmount, t.Amount)
		}
	case TypeVote, TypeUnvote:
		if t.DelegateAddress == "" {
			return ErrMissingDelegate
		}
		if err := t.DelegateAddress.Validate(""); err != nil {
			return fmt.Errorf("delegate: %w", err)
		}
	case TypeRegisterMultisigWallet:
		if len(t.MemberAddresses) == 0 {
			return ErrNoMembers
		}
		seen := make(map[types.Address]bool, len(t.MemberAddresses))
		for i, m := range t.MemberAddresses {
			if err := m.Validate(""); err != nil {
				return fmt.Errorf("member %d: %w", i, err)
			}
			if seen[m] {
				return fmt.Errorf("member %d: %w", i, ErrDuplicateMember)
			}
			seen[m] = true
		}
		if t.RequiredSignatureCount < 1 || t.RequiredSignatureCount > len(t.MemberAddresses) {
			return fmt.Errorf("%w: %d of %d members",
				ErrInvalidRequiredCount, t.RequiredSignatureCount, len(t.MemberAddresses))
		}
	case TypeRegisterSigDetails:
		return checkDetails("sig", t.NewSigPublicKey, t.NewNextSigPublicKey, t.NewNextSigKeyIndex)
	case TypeRegisterMultisigDetails:
		return checkDetails("multisig", t.NewMultisigPublicKey, t.NewNextMultisigPublicKey, t.NewNextMultisigKeyIndex)
	case TypeRegisterForgingDetails:
		return checkDetails("forging", t.NewForgingPublicKey, t.NewNextForgingPublicKey, t.NewNextForgingKeyIndex)
	}
	return nil
}

// checkEncoding rejects any string field that is not valid UTF-8. The
// canonical encoding cannot represent such bytes faithfully.
func (t *Transaction) checkEncoding() error {
	fields := []struct {
		name  string
		value string
	}{
		{"type", string(t.Type)},
		{"fee", t.Fee},
		{"message", t.Message},
		{"senderAddress", string(t.SenderAddress)},
		{"recipientAddress", string(t.RecipientAddress)},
		{"amount", t.Amount},
		{"delegateAddress", string(t.DelegateAddress)},
		{"newSigPublicKey", t.NewSigPublicKey},
		{"newNextSigPublicKey", t.NewNextSigPublicKey},
		{"newMultisigPublicKey", t.NewMultisigPublicKey},
		{"newNextMultisigPublicKey", t.NewNextMultisigPublicKey},
		{"newForgingPublicKey", t.NewForgingPublicKey},
		{"newNextForgingPublicKey", t.NewNextForgingPublicKey},
		{"sigPublicKey", t.SigPublicKey},
		{"nextSigPublicKey", t.NextSigPublicKey},
		{"id", t.ID},
		{"senderSignature", t.SenderSignature},
	}
	for _, f := range fields {
		if !utf8.ValidString(f.value) {
			return fmt.Errorf("%s: %w", f.name, ErrInvalidEncoding)
		}
	}
	for i, m := range t.MemberAddresses {
		if !utf8.ValidString(string(m)) {
			return fmt.Errorf("member %d: %w", i, ErrInvalidEncoding)
		}
	}
	for i, p := range t.Signatures {
		for _, v := range []string{string(p.SignerAddress), p.MultisigPublicKey, p.NextMultisigPublicKey, p.Signature} {
			if !utf8.ValidString(v) {
				return fmt.Errorf("signature %d: %w", i, ErrInvalidEncoding)
			}
		}
	}
	return nil
}

func checkDetails(domain, publicKey, nextPublicKey string, nextKeyIndex *uint64) error {
	if publicKey == "" || nextPublicKey == "" {
		return fmt.Errorf("%s details: %w", domain, ErrMissingPublicKey)
	}
	if nextKeyIndex == nil {
		return fmt.Errorf("%s details: %w", domain, ErrMissingKeyIndex)
	}
	return nil
}

// isAmount reports whether s is a non-negative decimal integer without
// leading zeros.
func isAmount(s string) bool {
	if s == "" {
		return false
	}
	if len(s) > 1 && s[0] == '0' {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
