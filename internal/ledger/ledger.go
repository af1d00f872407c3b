package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/disco/internal/address"
)

// Program executes instructions addressed to its ID.
type Program interface {
	// ID is the program's address.
	ID() address.Address

	// Name is a short label used in logs and instruction labels.
	Name() string

	// Execute applies one instruction. Returning an error aborts the whole
	// transaction.
	Execute(c *Call, ix Instruction) error
}

// Ledger applies signed transactions to a Backend.
type Ledger struct {
	mu       sync.Mutex
	backend  Backend
	programs map[address.Address]Program
	clock    *Clock
	rent     Rent
	logger   *slog.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
	}
}

// WithRent overrides the rent schedule.
func WithRent(rent Rent) Option {
	return func(l *Ledger) {
		l.rent = rent
	}
}

// New creates a ledger over backend and resumes its clock from the
// backend's last seq.
func New(ctx context.Context, backend Backend, opts ...Option) (*Ledger, error) {
	last, err := backend.LastSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("read last seq: %w", err)
	}
	l := &Ledger{
		backend:  backend,
		programs: make(map[address.Address]Program),
		clock:    NewClockAt(last),
		rent:     DefaultRent(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Register makes programs callable. Registering an ID twice replaces the
// earlier program.
func (l *Ledger) Register(programs ...Program) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range programs {
		l.programs[p.ID()] = p
	}
}

// Rent returns the rent schedule.
func (l *Ledger) Rent() Rent {
	return l.rent
}

// Backend returns the underlying backend.
func (l *Ledger) Backend() Backend {
	return l.backend
}

// Account returns a committed account.
func (l *Ledger) Account(ctx context.Context, addr address.Address) (*Account, error) {
	return l.backend.Load(ctx, addr)
}

// Entries returns the transaction log.
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	return l.backend.Entries(ctx)
}

// Airdrop credits lamports to addr, creating a wallet if none exists.
// It is logged like a transaction under the ID "airdrop:<seq>".
func (l *Ledger) Airdrop(ctx context.Context, addr address.Address, lamports uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, err := l.backend.Load(ctx, addr)
	if isNotFound(err) {
		acc = &Account{Address: addr, Owner: SystemProgramID}
	} else if err != nil {
		return fmt.Errorf("airdrop: %w", err)
	}
	acc.Lamports += lamports

	seq := l.clock.Next()
	batch := &Batch{
		Entry: Entry{
			Seq:          seq,
			ID:           fmt.Sprintf("airdrop:%d", seq),
			Instructions: []string{"system.airdrop"},
			Status:       StatusCommitted,
			Logs:         []string{fmt.Sprintf("system: airdrop %d lamports to %s", lamports, addr)},
		},
		Upserts: []*Account{acc},
	}
	if err := l.backend.Commit(ctx, batch); err != nil {
		return fmt.Errorf("airdrop: %w", err)
	}
	return nil
}

// Submit verifies, executes and commits a transaction.
//
// On success every write is committed atomically and a Receipt is returned.
// On failure no account changes are kept; the attempt is still logged with
// its error so the transaction ID cannot be replayed.
func (l *Ledger) Submit(ctx context.Context, tx *Transaction) (*Receipt, error) {
	if err := tx.Verify(); err != nil {
		return nil, err
	}
	msg, err := tx.Message()
	if err != nil {
		return nil, err
	}
	id := tx.ID()

	l.mu.Lock()
	defer l.mu.Unlock()

	seen, err := l.backend.Seen(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}
	if seen {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateTransaction, id)
	}

	state := newOverlay(ctx, l.backend)
	logs, execErr := l.execute(state, tx)

	seq := l.clock.Next()
	entry := Entry{
		Seq:          seq,
		ID:           id,
		Signers:      signerList(tx),
		Instructions: l.labels(tx),
		Status:       StatusCommitted,
		Message:      msg,
		Logs:         logs,
	}
	batch := &Batch{}
	if execErr != nil {
		entry.Status = StatusFailed
		entry.ErrorName = ErrorName(execErr)
		entry.ErrorMessage = execErr.Error()
	} else {
		batch.Upserts, batch.Deletes = state.changes()
	}
	batch.Entry = entry

	if err := l.backend.Commit(ctx, batch); err != nil {
		return nil, fmt.Errorf("commit transaction %s: %w", id, err)
	}

	if execErr != nil {
		l.logger.Info("transaction failed",
			"seq", seq,
			"id", id,
			"instructions", entry.Instructions,
			"error", entry.ErrorName,
		)
		return nil, execErr
	}

	l.logger.Info("transaction committed",
		"seq", seq,
		"id", id,
		"instructions", entry.Instructions,
		"writes", len(batch.Upserts),
		"deletes", len(batch.Deletes),
	)
	return &Receipt{ID: id, Seq: seq, Logs: logs}, nil
}

// Simulate executes a transaction against current state without committing
// or logging it. Signatures are still verified.
func (l *Ledger) Simulate(ctx context.Context, tx *Transaction) (*Receipt, error) {
	if err := tx.Verify(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	logs, err := l.execute(newOverlay(ctx, l.backend), tx)
	if err != nil {
		return nil, err
	}
	return &Receipt{ID: tx.ID(), Seq: l.clock.Current(), Logs: logs}, nil
}

func (l *Ledger) execute(state *overlay, tx *Transaction) ([]string, error) {
	if len(tx.Instructions) == 0 {
		return nil, ErrEmptyTransaction
	}
	logs := []string{}
	signers := tx.Signers()
	for i, ix := range tx.Instructions {
		call := &Call{
			ledger:  l,
			state:   state,
			signers: signers,
			depth:   1,
			logs:    &logs,
		}
		if err := l.dispatch(call, ix); err != nil {
			return logs, &InstructionError{Index: i, Instruction: l.label(ix), Err: err}
		}
	}
	return logs, nil
}

// dispatch routes ix to its program, binding the call to that program.
func (l *Ledger) dispatch(c *Call, ix Instruction) error {
	p, ok := l.programs[ix.ProgramID()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownProgram, ix.ProgramID())
	}
	c.program = p.ID()
	return p.Execute(c, ix)
}

func (l *Ledger) label(ix Instruction) string {
	if p, ok := l.programs[ix.ProgramID()]; ok {
		return p.Name() + "." + ix.InstructionName()
	}
	return ix.ProgramID().Short() + "." + ix.InstructionName()
}

func (l *Ledger) labels(tx *Transaction) []string {
	out := make([]string, len(tx.Instructions))
	for i, ix := range tx.Instructions {
		out[i] = l.label(ix)
	}
	return out
}

func signerList(tx *Transaction) []address.Address {
	out := make([]address.Address, len(tx.Signatures))
	for i, sig := range tx.Signatures {
		out[i] = sig.Signer
	}
	return out
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}
