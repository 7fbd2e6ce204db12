package wallet

import (
	"errors"
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of a derived seed in bytes.
const SeedSize = 64

// ErrInvalidMnemonic is returned for a passphrase that is not valid BIP-39.
var ErrInvalidMnemonic = errors.New("invalid mnemonic passphrase")

// PassphraseToSeed derives the 512-bit key seed of an LDPoS passphrase.
// Every key domain tree is derived from this seed.
func PassphraseToSeed(passphrase string) ([]byte, error) {
	return SeedFromMnemonic(passphrase, "")
}

// SeedFromMnemonic derives a seed from a mnemonic and an optional BIP-39
// password using PBKDF2-SHA512.
func SeedFromMnemonic(mnemonic, password string) ([]byte, error) {
	mnemonic = NormalizeMnemonic(mnemonic)
	if !ValidateMnemonic(mnemonic) {
		return nil, ErrInvalidMnemonic
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, password)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
