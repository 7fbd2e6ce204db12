package client

import (
	"errors"
	"fmt"

	"github.com/Klingon-tech/ldpos-client/pkg/keys"
)

// Client errors.
var (
	// ErrNotConnected is returned by identity and signing operations called
	// before a successful Connect.
	ErrNotConnected = errors.New("client is not connected")

	// ErrNotPrepared is returned when co-signing a payload that has no ID.
	ErrNotPrepared = errors.New("payload has not been prepared")
)

// KeyIndexMismatchError is returned when the key state a network reports for
// an account is not what the local seed produces. The reported index is
// never trusted in that case.
type KeyIndexMismatchError struct {
	Domain   keys.Domain
	KeyIndex uint64
}

func (e *KeyIndexMismatchError) Error() string {
	return fmt.Sprintf("network reported %s key index %d with public keys that do not match the local seed", e.Domain, e.KeyIndex)
}
