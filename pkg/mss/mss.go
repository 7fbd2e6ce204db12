// Package mss implements a deterministic Merkle signature scheme built from
// Lamport one-time signatures.
//
// Every leaf of a tree is a Lamport key pair derived from the tree seed, and
// the tree root is the reusable public key. A leaf must sign at most one
// message: signing two different messages with the same leaf reveals both
// preimages for every differing bit.
package mss

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Klingon-tech/ldpos-client/pkg/crypto"
	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

const (
	// DefaultLeafCount is the number of one-time leaves per tree.
	DefaultLeafCount = 32

	// keyBits is the number of message digest bits signed by one leaf.
	keyBits = 256

	// sigHeaderSize is leafIndex(4) + auth path length(1).
	sigHeaderSize = 5
)

var (
	ErrInvalidLeafCount = errors.New("mss: leaf count must be a power of two >= 2")
	ErrLeafOutOfRange   = errors.New("mss: leaf index out of range")
	ErrNilTree          = errors.New("mss: nil tree")
	ErrWipedTree        = errors.New("mss: tree secret has been wiped")
)

// Scheme generates trees and signs or verifies messages for a fixed leaf count.
// A Scheme holds no mutable state and is safe for concurrent use.
type Scheme struct {
	leafCount int
	height    int
}

// New returns a scheme producing trees with leafCount leaves.
func New(leafCount int) (*Scheme, error) {
	if leafCount < 2 || leafCount&(leafCount-1) != 0 {
		return nil, ErrInvalidLeafCount
	}
	height := 0
	for 1<<height < leafCount {
		height++
	}
	return &Scheme{leafCount: leafCount, height: height}, nil
}

// Default returns a scheme with DefaultLeafCount leaves.
func Default() *Scheme {
	s, _ := New(DefaultLeafCount)
	return s
}

// LeafCount returns the number of leaves per tree.
func (s *Scheme) LeafCount() int {
	return s.leafCount
}

// Tree is a materialized Merkle tree of Lamport leaves.
type Tree struct {
	name      string
	secret    types.Hash
	leafCount int
	// nodes is 1-indexed: nodes[1] is the root, leaves live at
	// [leafCount, 2*leafCount).
	nodes []types.Hash
}

// Name returns the name the tree was derived under.
func (t *Tree) Name() string {
	return t.name
}

// Root returns the raw root hash.
func (t *Tree) Root() types.Hash {
	return t.nodes[1]
}

// PublicRootHash returns the base64 root hash, the tree's public key.
func (t *Tree) PublicRootHash() string {
	return t.nodes[1].Base64()
}

// LeafCount returns the number of leaves in the tree.
func (t *Tree) LeafCount() int {
	return t.leafCount
}

// Wipe zeroes the tree secret. The tree can no longer sign afterwards.
func (t *Tree) Wipe() {
	t.secret = types.Hash{}
}

// GenerateTree derives the tree named name from seed. Identical inputs
// always produce an identical tree.
func (s *Scheme) GenerateTree(seed []byte, name string) *Tree {
	var seedLen [4]byte
	binary.BigEndian.PutUint32(seedLen[:], uint32(len(seed)))

	t := &Tree{
		name:      name,
		secret:    crypto.HashParts(seedLen[:], seed, []byte(name)),
		leafCount: s.leafCount,
		nodes:     make([]types.Hash, 2*s.leafCount),
	}
	for i := 0; i < s.leafCount; i++ {
		t.nodes[s.leafCount+i] = t.leafHash(uint32(i))
	}
	for i := s.leafCount - 1; i >= 1; i-- {
		t.nodes[i] = crypto.HashConcat(t.nodes[2*i], t.nodes[2*i+1])
	}
	return t
}

// Sign produces a base64 signature of message with the leaf at leafIndex.
func (s *Scheme) Sign(message []byte, tree *Tree, leafIndex int) (string, error) {
	if tree == nil {
		return "", ErrNilTree
	}
	if tree.secret.IsZero() {
		return "", ErrWipedTree
	}
	if leafIndex < 0 || leafIndex >= tree.leafCount {
		return "", fmt.Errorf("%w: %d not in [0, %d)", ErrLeafOutOfRange, leafIndex, tree.leafCount)
	}
	digest := crypto.Hash(message)
	height := s.heightOf(tree.leafCount)
	leaf := uint32(leafIndex)

	out := make([]byte, sigHeaderSize, sigHeaderSize+2*keyBits*types.HashSize+height*types.HashSize)
	binary.BigEndian.PutUint32(out[:4], leaf)
	out[4] = byte(height)

	revealed := make([]byte, 0, keyBits*types.HashSize)
	others := make([]byte, 0, keyBits*types.HashSize)
	for i := 0; i < keyBits; i++ {
		b := bitAt(digest, i)
		pre := tree.preimage(leaf, i, b)
		other := crypto.Hash(tree.preimage(leaf, i, 1-b))
		revealed = append(revealed, pre...)
		others = append(others, other[:]...)
	}
	out = append(out, revealed...)
	out = append(out, others...)

	node := tree.leafCount + leafIndex
	for level := 0; level < height; level++ {
		sibling := tree.nodes[node^1]
		out = append(out, sibling[:]...)
		node >>= 1
	}
	return base64.StdEncoding.EncodeToString(out), nil
}

// Verify reports whether signature is a valid signature of message under the
// base64 publicRootHash. Malformed input yields false.
func (s *Scheme) Verify(message []byte, signature, publicRootHash string) bool {
	root, err := types.Base64ToHash(publicRootHash)
	if err != nil {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(raw) < sigHeaderSize {
		return false
	}
	leaf := binary.BigEndian.Uint32(raw[:4])
	height := int(raw[4])
	if height != s.height {
		return false
	}
	if len(raw) != sigHeaderSize+2*keyBits*types.HashSize+height*types.HashSize {
		return false
	}
	if leaf >= uint32(1)<<height {
		return false
	}

	digest := crypto.Hash(message)
	body := raw[sigHeaderSize:]
	revealed := body[:keyBits*types.HashSize]
	others := body[keyBits*types.HashSize : 2*keyBits*types.HashSize]
	path := body[2*keyBits*types.HashSize:]

	pub := make([]byte, 2*keyBits*types.HashSize)
	for i := 0; i < keyBits; i++ {
		b := bitAt(digest, i)
		h := crypto.Hash(revealed[i*types.HashSize : (i+1)*types.HashSize])
		copy(pub[(2*i+b)*types.HashSize:], h[:])
		copy(pub[(2*i+1-b)*types.HashSize:], others[i*types.HashSize:(i+1)*types.HashSize])
	}

	computed := crypto.Hash(pub)
	idx := leaf
	for level := 0; level < height; level++ {
		var sibling types.Hash
		copy(sibling[:], path[level*types.HashSize:(level+1)*types.HashSize])
		if idx&1 == 0 {
			computed = crypto.HashConcat(computed, sibling)
		} else {
			computed = crypto.HashConcat(sibling, computed)
		}
		idx >>= 1
	}
	return computed == root
}

// Hash returns the scheme's message digest.
func (s *Scheme) Hash(message []byte) []byte {
	h := crypto.Hash(message)
	return h[:]
}

func (s *Scheme) heightOf(leafCount int) int {
	if leafCount == s.leafCount {
		return s.height
	}
	h := 0
	for 1<<h < leafCount {
		h++
	}
	return h
}

// preimage derives the secret for (leaf, bit, side).
func (t *Tree) preimage(leaf uint32, bit, side int) []byte {
	var buf [7]byte
	binary.BigEndian.PutUint32(buf[:4], leaf)
	binary.BigEndian.PutUint16(buf[4:6], uint16(bit))
	buf[6] = byte(side)
	h := crypto.HashParts(t.secret[:], buf[:])
	return h[:]
}

// leafHash hashes the full Lamport public key of a leaf, laid out as
// [bit][side] pairs.
func (t *Tree) leafHash(leaf uint32) types.Hash {
	pub := make([]byte, 0, 2*keyBits*types.HashSize)
	for i := 0; i < keyBits; i++ {
		for side := 0; side < 2; side++ {
			h := crypto.Hash(t.preimage(leaf, i, side))
			pub = append(pub, h[:]...)
		}
	}
	return crypto.Hash(pub)
}

// bitAt returns bit i of digest, most significant bit first.
func bitAt(digest types.Hash, i int) int {
	return int(digest[i/8]>>(7-uint(i%8))) & 1
}
