package testutil

import (
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// nonceNamespace scopes generated nonces so they never collide with random
// (version 4) ones.
var nonceNamespace = uuid.MustParse("6f1c2a4e-7d3b-4c59-9a0e-2b8f5d61c7a3")

// NonceSequence generates a deterministic series of transaction nonces.
//
// With deterministic keys, the same scenario run twice produces the same
// messages, signatures and transaction IDs, which golden traces rely on.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type NonceSequence struct {
	mu  sync.Mutex
	seq int64
}

// NewNonceSequence creates a sequence whose first nonce is number 1.
func NewNonceSequence() *NonceSequence {
	return &NonceSequence{}
}

// NewNonceSequenceAt creates a sequence whose first nonce is number start+1.
// Resuming at a ledger's last seq keeps reruns against a durable store from
// repeating transaction IDs.
func NewNonceSequenceAt(start int64) *NonceSequence {
	return &NonceSequence{seq: start}
}

// Next returns the next nonce.
func (s *NonceSequence) Next() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return uuid.NewSHA1(nonceNamespace, []byte(strconv.FormatInt(s.seq, 10)))
}

// Current returns how many nonces have been issued.
func (s *NonceSequence) Current() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Reset restarts the sequence. After Reset, Next repeats its earlier output.
func (s *NonceSequence) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = 0
}
