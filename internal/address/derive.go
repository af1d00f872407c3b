package address

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
)

// Derivation limits. A bump occupies one seed slot, so Find accepts at most
// MaxSeeds-1 caller seeds.
const (
	MaxSeeds   = 16
	MaxSeedLen = 32
)

// derivationMarker is appended after the program identifier so that derived
// addresses live in a hash domain of their own.
const derivationMarker = "ProgramDerivedAddress"

var (
	// ErrTooManySeeds indicates more than MaxSeeds seeds.
	ErrTooManySeeds = errors.New("too many seeds")

	// ErrSeedTooLong indicates a seed longer than MaxSeedLen bytes.
	ErrSeedTooLong = errors.New("seed too long")

	// ErrOnCurve indicates that the hash landed on a valid ed25519 point.
	// Such an address could have a private key and must not be used.
	ErrOnCurve = errors.New("derived address is on the ed25519 curve")

	// ErrNoViableBump indicates that every bump in [0,255] landed on curve.
	ErrNoViableBump = errors.New("no viable bump seed")

	// ErrSeedsMismatch indicates that re-deriving from the supplied seeds and
	// stored bump does not reproduce the referenced address.
	ErrSeedsMismatch = errors.New("seeds do not derive the referenced address")
)

// IsOnCurve reports whether b decodes to a point on the ed25519 curve.
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// Create computes the derived address for seeds under program.
//
// Format: SHA256(seed_0 || ... || seed_n || program || "ProgramDerivedAddress")
//
// The result must fall off the curve; callers that need a guaranteed hit
// use Find instead.
func Create(seeds [][]byte, program Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Zero, fmt.Errorf("%w: %d > %d", ErrTooManySeeds, len(seeds), MaxSeeds)
	}
	h := sha256.New()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return Zero, fmt.Errorf("%w: seed %d is %d bytes", ErrSeedTooLong, i, len(seed))
		}
		h.Write(seed)
	}
	h.Write(program[:])
	h.Write([]byte(derivationMarker))

	var a Address
	copy(a[:], h.Sum(nil))
	if IsOnCurve(a[:]) {
		return Zero, ErrOnCurve
	}
	return a, nil
}

// Find searches bumps from 255 down to 0 and returns the first derived
// address that lies off the curve, together with its bump. The highest
// viable bump is canonical: every record stores it at creation and every
// later reference must present it again.
func Find(seeds [][]byte, program Address) (Address, uint8, error) {
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{uint8(bump)}
		a, err := Create(withBump, program)
		if err == nil {
			return a, uint8(bump), nil
		}
		if !errors.Is(err, ErrOnCurve) {
			return Zero, 0, err
		}
	}
	return Zero, 0, ErrNoViableBump
}

// Verify re-derives the address from seeds and a previously stored bump and
// compares it with claimed. Any failure is reported as ErrSeedsMismatch.
func Verify(seeds [][]byte, bump uint8, program, claimed Address) error {
	withBump := append(append([][]byte{}, seeds...), []byte{bump})
	derived, err := Create(withBump, program)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSeedsMismatch, err)
	}
	if derived != claimed {
		return fmt.Errorf("%w: derived %s, referenced %s", ErrSeedsMismatch, derived, claimed)
	}
	return nil
}

// WithBump returns seeds followed by the one-byte bump, the form used when
// a program signs for one of its derived addresses.
func WithBump(seeds [][]byte, bump uint8) [][]byte {
	return append(append([][]byte{}, seeds...), []byte{bump})
}
