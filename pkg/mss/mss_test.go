package mss

import (
	"errors"
	"testing"
)

func testTree(t *testing.T, s *Scheme, name string) *Tree {
	t.Helper()
	return s.GenerateTree([]byte("test seed"), name)
}

func TestNew_LeafCount(t *testing.T) {
	tests := []struct {
		leafCount int
		valid     bool
	}{
		{2, true},
		{8, true},
		{32, true},
		{0, false},
		{1, false},
		{12, false},
		{-4, false},
	}
	for _, tt := range tests {
		_, err := New(tt.leafCount)
		if tt.valid && err != nil {
			t.Errorf("New(%d) error: %v", tt.leafCount, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidLeafCount) {
			t.Errorf("New(%d) error = %v, want ErrInvalidLeafCount", tt.leafCount, err)
		}
	}
}

func TestGenerateTree_Deterministic(t *testing.T) {
	s := Default()
	a := testTree(t, s, "ldpos-sig-0")
	b := testTree(t, s, "ldpos-sig-0")
	if a.PublicRootHash() != b.PublicRootHash() {
		t.Error("same seed and name should produce the same root")
	}
	if a.LeafCount() != DefaultLeafCount {
		t.Errorf("LeafCount() = %d, want %d", a.LeafCount(), DefaultLeafCount)
	}
}

func TestGenerateTree_NameSeparatesTrees(t *testing.T) {
	s := Default()
	names := []string{"ldpos-sig-0", "ldpos-sig-1", "ldpos-multisig-0", "other-sig-0"}
	seen := make(map[string]string)
	for _, name := range names {
		root := testTree(t, s, name).PublicRootHash()
		if prev, ok := seen[root]; ok {
			t.Fatalf("trees %q and %q share a root", prev, name)
		}
		seen[root] = name
	}

	other := s.GenerateTree([]byte("other seed"), "ldpos-sig-0")
	if other.PublicRootHash() == testTree(t, s, "ldpos-sig-0").PublicRootHash() {
		t.Error("different seeds should produce different roots")
	}
}

func TestSignVerify_AllLeaves(t *testing.T) {
	s, err := New(8)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	tree := testTree(t, s, "ldpos-sig-0")
	root := tree.PublicRootHash()

	for leaf := 0; leaf < tree.LeafCount(); leaf++ {
		msg := []byte{byte(leaf), 'm', 's', 'g'}
		sig, err := s.Sign(msg, tree, leaf)
		if err != nil {
			t.Fatalf("Sign(leaf=%d) error: %v", leaf, err)
		}
		if !s.Verify(msg, sig, root) {
			t.Errorf("Verify(leaf=%d) = false, want true", leaf)
		}
	}
}

func TestVerify_Rejects(t *testing.T) {
	s := Default()
	tree := testTree(t, s, "ldpos-sig-0")
	otherTree := testTree(t, s, "ldpos-sig-1")
	msg := []byte("transfer 10")

	sig, err := s.Sign(msg, tree, 3)
	if err != nil {
		t.Fatalf("Sign() error: %v", err)
	}

	if s.Verify([]byte("transfer 11"), sig, tree.PublicRootHash()) {
		t.Error("signature should not verify a different message")
	}
	if s.Verify(msg, sig, otherTree.PublicRootHash()) {
		t.Error("signature should not verify under a different root")
	}
	if s.Verify(msg, "not-base64!", tree.PublicRootHash()) {
		t.Error("malformed signature should not verify")
	}
	if s.Verify(msg, sig, "bad root") {
		t.Error("malformed root should not verify")
	}
	if s.Verify(msg, sig[:len(sig)-8], tree.PublicRootHash()) {
		t.Error("truncated signature should not verify")
	}

	small, _ := New(4)
	if small.Verify(msg, sig, tree.PublicRootHash()) {
		t.Error("scheme with a different height should reject the signature")
	}
}

func TestSign_LeafOutOfRange(t *testing.T) {
	s := Default()
	tree := testTree(t, s, "ldpos-sig-0")

	for _, leaf := range []int{-1, DefaultLeafCount} {
		if _, err := s.Sign([]byte("x"), tree, leaf); !errors.Is(err, ErrLeafOutOfRange) {
			t.Errorf("Sign(leaf=%d) error = %v, want ErrLeafOutOfRange", leaf, err)
		}
	}
	if _, err := s.Sign([]byte("x"), nil, 0); !errors.Is(err, ErrNilTree) {
		t.Errorf("Sign(nil tree) error = %v, want ErrNilTree", err)
	}
}

func TestSign_WipedTree(t *testing.T) {
	s := Default()
	tree := testTree(t, s, "ldpos-sig-0")
	root := tree.PublicRootHash()
	tree.Wipe()

	if _, err := s.Sign([]byte("x"), tree, 0); !errors.Is(err, ErrWipedTree) {
		t.Errorf("Sign() after Wipe error = %v, want ErrWipedTree", err)
	}
	if tree.PublicRootHash() != root {
		t.Error("Wipe should not change the public root")
	}
}

func TestHash_Length(t *testing.T) {
	if got := len(Default().Hash([]byte("abc"))); got != 32 {
		t.Errorf("Hash length = %d, want 32", got)
	}
}
