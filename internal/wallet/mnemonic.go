// Package wallet holds LDPoS wallet passphrases: BIP-39 mnemonic
// generation, seed derivation and an encrypted on-disk keystore.
package wallet

import (
	"fmt"
	"strings"

	"github.com/tyler-smith/go-bip39"
)

// MnemonicEntropyBits is the entropy of a generated passphrase (12 words).
const MnemonicEntropyBits = 128

// GenerateMnemonic creates a new 12-word BIP-39 passphrase.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic reports whether mnemonic is a BIP-39 phrase with a valid
// word list and checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// NormalizeMnemonic collapses runs of whitespace so pasted or prompted
// passphrases derive the same seed.
func NormalizeMnemonic(mnemonic string) string {
	return strings.Join(strings.Fields(mnemonic), " ")
}
