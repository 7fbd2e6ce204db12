// Package keys manages the one-time key lifecycle of the three LDPoS key
// domains: tree derivation, leaf-index tracking, persist-before-advance
// rotation and verification of network-reported key indices.
package keys

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Klingon-tech/ldpos-client/pkg/mss"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

// Domain is one of the independent key sequences of an account.
type Domain int

// Key domains.
const (
	Sig Domain = iota
	Multisig
	Forging
)

// Domains lists every key domain in a fixed order.
func Domains() []Domain {
	return []Domain{Sig, Multisig, Forging}
}

// String returns the domain name used in storage keys and tree names.
func (d Domain) String() string {
	switch d {
	case Sig:
		return "sig"
	case Multisig:
		return "multisig"
	case Forging:
		return "forging"
	default:
		return "domain(" + strconv.Itoa(int(d)) + ")"
	}
}

// ParseDomain returns the domain with the given name.
func ParseDomain(s string) (Domain, error) {
	for _, d := range Domains() {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown key domain %q", s)
}

// StorageKey returns the persistence key holding the domain's key index for
// the given wallet address.
func (d Domain) StorageKey(address types.Address) string {
	return string(address) + "-" + d.String() + "KeyIndex"
}

// TreeName returns the name a domain tree is derived under. The network
// symbol and domain in the name keep trees from one seed distinct across
// networks and domains.
func TreeName(networkSymbol string, d Domain, treeIndex uint64) string {
	return networkSymbol + "-" + d.String() + "-" + strconv.FormatUint(treeIndex, 10)
}

// DeriveTree derives the domain tree at treeIndex from seed.
func DeriveTree(scheme *mss.Scheme, seed []byte, networkSymbol string, d Domain, treeIndex uint64) *mss.Tree {
	return scheme.GenerateTree(seed, TreeName(networkSymbol, d, treeIndex))
}

// StartingKeyIndex returns the index a domain starts at: the greater of the
// locally persisted and network-reported indices plus the safety offset.
func StartingKeyIndex(local, network, offset uint64) uint64 {
	return max(local, network) + offset
}

// ReportedTreeIndex returns the tree an account's reported public keys
// belong to when its next unused key index is nextKeyIndex: the tree of the
// last used index, or tree 0 for an account that has never signed.
func ReportedTreeIndex(nextKeyIndex uint64, leafCount int) uint64 {
	if nextKeyIndex == 0 {
		return 0
	}
	return (nextKeyIndex - 1) / uint64(leafCount)
}

// PublicKeysFor returns the public and next public root hashes an account
// reports while nextKeyIndex is its next unused key index. Registration
// transactions announce these for a chosen index.
func PublicKeysFor(scheme *mss.Scheme, seed []byte, networkSymbol string, d Domain, nextKeyIndex uint64) (publicKey, nextPublicKey string) {
	t := ReportedTreeIndex(nextKeyIndex, scheme.LeafCount())
	cur := DeriveTree(scheme, seed, networkSymbol, d, t)
	next := DeriveTree(scheme, seed, networkSymbol, d, t+1)
	publicKey, nextPublicKey = cur.PublicRootHash(), next.PublicRootHash()
	cur.Wipe()
	next.Wipe()
	return publicKey, nextPublicKey
}

// VerifyKeyIndex reports whether publicKey and nextPublicKey are what seed
// produces for an account reporting nextKeyIndex. An account that has never
// signed may report no keys at all.
func VerifyKeyIndex(scheme *mss.Scheme, seed []byte, networkSymbol string, d Domain, nextKeyIndex uint64, publicKey, nextPublicKey string) bool {
	if nextKeyIndex == 0 && publicKey == "" && nextPublicKey == "" {
		return true
	}
	pub, nextPub := PublicKeysFor(scheme, seed, networkSymbol, d, nextKeyIndex)
	return pub == publicKey && nextPub == nextPublicKey
}

// Store is the durable key-value contract key indices are persisted with.
// LoadItem reports found=false for an absent key.
type Store interface {
	SaveItem(ctx context.Context, key, value string) error
	LoadItem(ctx context.Context, key string) (value string, found bool, err error)
	DeleteItem(ctx context.Context, key string) error
}
