package address

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the byte length of every ledger address.
const Size = 32

// Address identifies a record, a program, or a signing identity.
// Addresses render as base58 text, matching how wallets display them.
type Address [Size]byte

// Zero is the all-zero address. The system program owns plain wallet
// records, and its identifier is Zero.
var Zero Address

// ErrInvalidAddress indicates text that does not decode to 32 bytes.
var ErrInvalidAddress = errors.New("invalid address")

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != Size {
		return Zero, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// MustParse is Parse for constants and tests. It panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromPublicKey converts an ed25519 public key into the address it signs for.
func FromPublicKey(pub ed25519.PublicKey) Address {
	var a Address
	copy(a[:], pub)
	return a
}

// ProgramID returns the well-known identifier of a named program.
// Program identifiers are fixed hashes of the program name so that every
// ledger instance agrees on them without configuration.
func ProgramID(name string) Address {
	return Address(sha256.Sum256([]byte("disco/program/v1\x00" + name)))
}

// String returns the base58 form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Short returns an abbreviated form for log lines.
func (a Address) Short() string {
	s := a.String()
	if len(s) <= 8 {
		return s
	}
	return s[:4] + ".." + s[len(s)-4:]
}

// Bytes returns a copy of the raw bytes, suitable as a derivation seed.
func (a Address) Bytes() []byte {
	b := make([]byte, Size)
	copy(b, a[:])
	return b
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Zero
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
