package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/Klingon-tech/ldpos-client/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	var h types.Hash
	copy(h[:], b)
	return h
}

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "af1349b9f5f9a1a6a0404dea36dcc9499bcb25c9adc112b7cc9a93cae41f3262",
		},
		{
			name:  "hello",
			input: []byte("hello"),
			want:  "ea8f163db38682925e4491c5e58d4bb3506ef8c14eb78a86e908c5624a67200f",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("Hash(%q) = %x, want %x", tt.input, got, want)
			}
		})
	}
}

func TestHashParts_EqualsHashOfConcat(t *testing.T) {
	got := HashParts([]byte("hel"), []byte(""), []byte("lo"))
	want := Hash([]byte("hello"))
	if got != want {
		t.Errorf("HashParts = %x, want %x", got, want)
	}
}

func TestHashConcat(t *testing.T) {
	a := Hash([]byte("left"))
	b := Hash([]byte("right"))
	result := HashConcat(a, b)

	if result.IsZero() {
		t.Error("HashConcat returned zero hash")
	}

	// Order matters
	if result == HashConcat(b, a) {
		t.Error("HashConcat(a,b) should differ from HashConcat(b,a)")
	}

	if result != HashParts(a[:], b[:]) {
		t.Error("HashConcat should equal the hash of both halves")
	}
}

func TestTruncatedHex(t *testing.T) {
	full := Hash([]byte("hello")).String()

	tests := []struct {
		n    int
		want string
	}{
		{20, full[:40]},
		{32, full},
		{64, full},
		{0, ""},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := TruncatedHex([]byte("hello"), tt.n); got != tt.want {
			t.Errorf("TruncatedHex(n=%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
