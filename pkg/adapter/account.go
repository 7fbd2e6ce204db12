package adapter

import (
	"github.com/Klingon-tech/ldpos-client/pkg/keys"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// Account is the network's view of a wallet.
type Account struct {
	Address types.Address `json:"address"`
	Type    string        `json:"type,omitempty"`
	Balance string        `json:"balance"`

	SigPublicKey     string `json:"sigPublicKey,omitempty"`
	NextSigPublicKey string `json:"nextSigPublicKey,omitempty"`
	NextSigKeyIndex  uint64 `json:"nextSigKeyIndex"`

	MultisigPublicKey     string `json:"multisigPublicKey,omitempty"`
	NextMultisigPublicKey string `json:"nextMultisigPublicKey,omitempty"`
	NextMultisigKeyIndex  uint64 `json:"nextMultisigKeyIndex"`

	ForgingPublicKey     string `json:"forgingPublicKey,omitempty"`
	NextForgingPublicKey string `json:"nextForgingPublicKey,omitempty"`
	NextForgingKeyIndex  uint64 `json:"nextForgingKeyIndex"`

	RequiredSignatureCount int    `json:"requiredSignatureCount,omitempty"`
	UpdateHeight           uint64 `json:"updateHeight,omitempty"`
}

// KeyInfo is the key state the network reports for one domain.
type KeyInfo struct {
	NextKeyIndex  uint64
	PublicKey     string
	NextPublicKey string
}

// KeyInfo returns the account's reported key state for d.
func (a *Account) KeyInfo(d keys.Domain) KeyInfo {
	switch d {
	case keys.Multisig:
		return KeyInfo{a.NextMultisigKeyIndex, a.MultisigPublicKey, a.NextMultisigPublicKey}
	case keys.Forging:
		return KeyInfo{a.NextForgingKeyIndex, a.ForgingPublicKey, a.NextForgingPublicKey}
	default:
		return KeyInfo{a.NextSigKeyIndex, a.SigPublicKey, a.NextSigPublicKey}
	}
}

// Delegate is a forging candidate and the vote weight behind it.
type Delegate struct {
	Address    types.Address `json:"address"`
	VoteWeight string        `json:"voteWeight"`
}
