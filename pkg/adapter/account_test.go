package adapter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Klingon-tech/ldpos-client/pkg/keys"
)

func TestAccount_KeyInfo(t *testing.T) {
	a := &Account{
		SigPublicKey: "s", NextSigPublicKey: "ns", NextSigKeyIndex: 1,
		MultisigPublicKey: "m", NextMultisigPublicKey: "nm", NextMultisigKeyIndex: 2,
		ForgingPublicKey: "f", NextForgingPublicKey: "nf", NextForgingKeyIndex: 3,
	}
	tests := []struct {
		d    keys.Domain
		want KeyInfo
	}{
		{keys.Sig, KeyInfo{1, "s", "ns"}},
		{keys.Multisig, KeyInfo{2, "m", "nm"}},
		{keys.Forging, KeyInfo{3, "f", "nf"}},
	}
	for _, tt := range tests {
		if got := a.KeyInfo(tt.d); got != tt.want {
			t.Errorf("KeyInfo(%s) = %+v, want %+v", tt.d, got, tt.want)
		}
	}
}

func TestUnsupportedMethodError(t *testing.T) {
	err := fmt.Errorf("post: %w", &UnsupportedMethodError{Method: "PostBlock"})
	if !errors.Is(err, ErrUnsupportedMethod) {
		t.Error("wrapped UnsupportedMethodError should match ErrUnsupportedMethod")
	}
	var uerr *UnsupportedMethodError
	if !errors.As(err, &uerr) || uerr.Method != "PostBlock" {
		t.Errorf("errors.As = %v", uerr)
	}
	if errors.Is(err, ErrAccountNotFound) {
		t.Error("should not match ErrAccountNotFound")
	}
}
