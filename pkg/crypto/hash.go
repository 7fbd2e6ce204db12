// Package crypto provides the hash primitive used for content IDs, addresses
// and the Merkle signature scheme.
package crypto

import (
	"encoding/hex"

	"github.com/Klingon-tech/ldpos-client/pkg/types"
	"github.com/zeebo/blake3"
)

// Hash computes a BLAKE3-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake3.Sum256(data)
}

// HashParts hashes the concatenation of parts without copying them into a
// single buffer.
func HashParts(parts ...[]byte) types.Hash {
	h := blake3.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out types.Hash
	h.Sum(out[:0])
	return out
}

// HashConcat hashes the concatenation of two hashes.
// Used for building merkle trees.
func HashConcat(a, b types.Hash) types.Hash {
	var buf [64]byte
	copy(buf[:32], a[:])
	copy(buf[32:], b[:])
	return Hash(buf[:])
}

// TruncatedHex returns the hex encoding of the first n bytes of Hash(data).
// n is clamped to the hash size.
func TruncatedHex(data []byte, n int) string {
	h := Hash(data)
	if n > types.HashSize {
		n = types.HashSize
	}
	if n < 0 {
		n = 0
	}
	return hex.EncodeToString(h[:n])
}
