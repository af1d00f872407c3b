package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/disco/internal/address"
)

// Status is the outcome recorded for a transaction.
type Status string

const (
	StatusCommitted Status = "committed"
	StatusFailed    Status = "failed"
)

// Entry is one transaction log record.
type Entry struct {
	Seq          int64
	ID           string
	Signers      []address.Address
	Instructions []string
	Status       Status
	ErrorName    string
	ErrorMessage string
	Message      []byte
	Logs         []string
}

// Batch is everything one transaction writes. Backends must apply it
// atomically: the entry and all account changes, or nothing.
type Batch struct {
	Entry   Entry
	Upserts []*Account
	Deletes []address.Address
}

// Backend persists accounts and the transaction log.
type Backend interface {
	// Load returns a copy of the account, or ErrAccountNotFound.
	Load(ctx context.Context, addr address.Address) (*Account, error)

	// Commit applies a batch atomically.
	Commit(ctx context.Context, b *Batch) error

	// Seen reports whether a transaction ID is already in the log.
	Seen(ctx context.Context, id string) (bool, error)

	// LastSeq returns the highest logged seq, 0 when empty.
	LastSeq(ctx context.Context) (int64, error)

	// Entries returns the log ordered by seq.
	Entries(ctx context.Context) ([]Entry, error)

	// ByOwner returns all accounts owned by a program, ordered by address.
	ByOwner(ctx context.Context, owner address.Address) ([]*Account, error)
}

// MemoryBackend keeps state in process memory.
type MemoryBackend struct {
	mu       sync.RWMutex
	accounts map[address.Address]*Account
	entries  []Entry
	ids      map[string]bool
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		accounts: make(map[address.Address]*Account),
		ids:      make(map[string]bool),
	}
}

func (m *MemoryBackend) Load(_ context.Context, addr address.Address) (*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	acc, ok := m.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	return acc.Clone(), nil
}

func (m *MemoryBackend) Commit(_ context.Context, b *Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.Entry.ID != "" && m.ids[b.Entry.ID] {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, b.Entry.ID)
	}
	for _, acc := range b.Upserts {
		m.accounts[acc.Address] = acc.Clone()
	}
	for _, addr := range b.Deletes {
		delete(m.accounts, addr)
	}
	m.entries = append(m.entries, b.Entry)
	m.ids[b.Entry.ID] = true
	return nil
}

func (m *MemoryBackend) Seen(_ context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ids[id], nil
}

func (m *MemoryBackend) LastSeq(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.entries) == 0 {
		return 0, nil
	}
	return m.entries[len(m.entries)-1].Seq, nil
}

func (m *MemoryBackend) Entries(_ context.Context) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Entry(nil), m.entries...), nil
}

func (m *MemoryBackend) ByOwner(_ context.Context, owner address.Address) ([]*Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Account
	for _, acc := range m.accounts {
		if acc.Owner == owner {
			out = append(out, acc.Clone())
		}
	}
	SortAccounts(out)
	return out, nil
}
