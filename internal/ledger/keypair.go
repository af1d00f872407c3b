package ledger

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/roach88/disco/internal/address"
)

// Keypair is an ed25519 signing identity.
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypair generates a random keypair.
func NewKeypair() (Keypair, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Keypair{}, fmt.Errorf("generate keypair: %w", err)
	}
	return Keypair{priv: priv}, nil
}

// KeypairFromSeed derives a keypair deterministically from arbitrary seed
// bytes. Scenario files and tests name their identities this way.
func KeypairFromSeed(seed []byte) Keypair {
	sum := sha256.Sum256(seed)
	return Keypair{priv: ed25519.NewKeyFromSeed(sum[:])}
}

// Address returns the public identity.
func (k Keypair) Address() address.Address {
	return address.FromPublicKey(k.priv.Public().(ed25519.PublicKey))
}

// Sign signs msg.
func (k Keypair) Sign(msg []byte) []byte {
	return ed25519.Sign(k.priv, msg)
}
