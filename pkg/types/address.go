package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// AddressSize is the number of root-hash bytes carried in an address.
const AddressSize = 20

// Address errors.
var (
	ErrInvalidAddress = errors.New("invalid address")
	ErrWrongNetwork   = errors.New("address belongs to another network")
)

// Address is a wallet address: the network symbol followed by the hex
// encoding of the first AddressSize bytes of the sig domain's tree 0 root.
type Address string

// NewAddress builds the address for root on the given network.
func NewAddress(networkSymbol string, root Hash) Address {
	return Address(networkSymbol + hex.EncodeToString(root[:AddressSize]))
}

// String returns the address text.
func (a Address) String() string {
	return string(a)
}

// NetworkSymbol returns the prefix before the hex body.
func (a Address) NetworkSymbol() string {
	if len(a) < 2*AddressSize {
		return ""
	}
	return string(a[:len(a)-2*AddressSize])
}

// Hex returns the hex body without the network symbol.
func (a Address) Hex() string {
	if len(a) < 2*AddressSize {
		return ""
	}
	return string(a[len(a)-2*AddressSize:])
}

// Validate checks the address shape. If networkSymbol is non-empty the
// prefix must match it.
func (a Address) Validate(networkSymbol string) error {
	symbol := a.NetworkSymbol()
	if symbol == "" {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, string(a))
	}
	body := a.Hex()
	if strings.ToLower(body) != body {
		return fmt.Errorf("%w: hex body must be lowercase", ErrInvalidAddress)
	}
	if _, err := hex.DecodeString(body); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if networkSymbol != "" && symbol != networkSymbol {
		return fmt.Errorf("%w: got %q, want %q", ErrWrongNetwork, symbol, networkSymbol)
	}
	return nil
}

// ParseAddress validates s for networkSymbol and returns it as an Address.
func ParseAddress(s, networkSymbol string) (Address, error) {
	a := Address(strings.TrimSpace(s))
	if err := a.Validate(networkSymbol); err != nil {
		return "", err
	}
	return a, nil
}
