package types

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressLength is the byte length of every state address.
const AddressLength = 20

// Address identifies an account, an avatar, or a derived state slot. All
// derived addresses are produced with Keccak256 so any replaying node arrives
// at the same key material from the same inputs.
type Address [AddressLength]byte

// BytesToAddress converts a byte slice into an Address, left-truncating when
// the input is longer than AddressLength.
func BytesToAddress(b []byte) Address {
	var a Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(a[AddressLength-len(b):], b)
	return a
}

// ParseAddress decodes a hex string (with or without 0x prefix) into an
// Address.
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(s), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return Address{}, fmt.Errorf("types: invalid address %q: %w", s, err)
	}
	if len(raw) != AddressLength {
		return Address{}, fmt.Errorf("types: invalid address length %d", len(raw))
	}
	return BytesToAddress(raw), nil
}

// NamedAddress derives a well-known address from a namespace label. Used for
// protocol roots such as the shop namespace and the fee treasury.
func NamedAddress(name string) Address {
	return BytesToAddress(ethcrypto.Keccak256([]byte(name)))
}

// Derive produces a child address from the receiver and a salt. The
// derivation is a pure function of its inputs; no state lookups are involved.
func (a Address) Derive(salt string) Address {
	return BytesToAddress(ethcrypto.Keccak256(a[:], []byte(salt)))
}

// Bytes returns the address as a byte slice.
func (a Address) Bytes() []byte { return a[:] }

// Hex returns the lowercase hex encoding of the address.
func (a Address) Hex() string { return hex.EncodeToString(a[:]) }

func (a Address) String() string { return "0x" + a.Hex() }

// IsZero reports whether the address is the all-zero value.
func (a Address) IsZero() bool { return a == Address{} }

// Cmp compares two addresses lexicographically.
func (a Address) Cmp(other Address) int { return bytes.Compare(a[:], other[:]) }
