package testutil

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/metadata"
	"github.com/roach88/disco/internal/token"
)

// CurrencyDecimals is the precision of the bootstrap currency.
const CurrencyDecimals = 6

// Keypair returns the deterministic keypair for a named identity. The same
// name always yields the same address.
func Keypair(name string) ledger.Keypair {
	return ledger.KeypairFromSeed([]byte("disco/identity/" + name))
}

// Env is a ledger with every program registered and a currency mint that
// events can accept. The treasury identity holds the currency's mint
// authority.
type Env struct {
	Ledger   *ledger.Ledger
	Program  *disco.Program
	Treasury ledger.Keypair
	Currency ledger.Keypair

	nonces *NonceSequence
}

// NewEnv opens a ledger over backend and registers the programs. Nonces
// continue from the backend's last logged seq.
func NewEnv(ctx context.Context, backend ledger.Backend, policy disco.Policy, logger *slog.Logger, opts ...ledger.Option) (*Env, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	last, err := backend.LastSeq(ctx)
	if err != nil {
		return nil, err
	}
	l, err := ledger.New(ctx, backend, append([]ledger.Option{ledger.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	program := disco.New(policy, logger)
	l.Register(token.Program{}, token.AssociatedProgram{}, metadata.Program{}, program)

	return &Env{
		Ledger:   l,
		Program:  program,
		Treasury: Keypair("treasury"),
		Currency: Keypair("currency"),
		nonces:   NewNonceSequenceAt(last),
	}, nil
}

// Bootstrap creates the currency mint unless it already exists.
func (e *Env) Bootstrap(ctx context.Context) error {
	_, err := e.Ledger.Account(ctx, e.Currency.Address())
	if err == nil {
		return nil
	}
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		return err
	}
	if err := e.Ledger.Airdrop(ctx, e.Treasury.Address(), 1_000_000_000_000); err != nil {
		return err
	}
	_, err = e.Submit(ctx, []ledger.Keypair{e.Treasury, e.Currency}, token.InitializeMint{
		Mint:          e.Currency.Address(),
		Payer:         e.Treasury.Address(),
		MintAuthority: e.Treasury.Address(),
		Decimals:      CurrencyDecimals,
	})
	if err != nil {
		return fmt.Errorf("create currency mint: %w", err)
	}
	return nil
}

// Transaction builds a transaction with the next deterministic nonce and
// signs it. The first signer is the fee payer.
func (e *Env) Transaction(signers []ledger.Keypair, ixs ...ledger.Instruction) (*ledger.Transaction, error) {
	tx := ledger.NewTransaction(ixs...)
	tx.Nonce = e.nonces.Next()
	if err := tx.Sign(signers...); err != nil {
		return nil, err
	}
	return tx, nil
}

// Submit signs and submits ixs as one transaction.
func (e *Env) Submit(ctx context.Context, signers []ledger.Keypair, ixs ...ledger.Instruction) (*ledger.Receipt, error) {
	tx, err := e.Transaction(signers, ixs...)
	if err != nil {
		return nil, err
	}
	return e.Ledger.Submit(ctx, tx)
}

// Fund airdrops lamports to k and mints currency into its canonical
// currency holding, creating the holding if needed. It returns the holding.
func (e *Env) Fund(ctx context.Context, k ledger.Keypair, lamports, currency uint64) (address.Address, error) {
	if lamports > 0 {
		if err := e.Ledger.Airdrop(ctx, k.Address(), lamports); err != nil {
			return address.Zero, err
		}
	}
	holding, _, err := token.FindAssociated(k.Address(), e.Currency.Address())
	if err != nil {
		return address.Zero, err
	}

	var ixs []ledger.Instruction
	if _, err := e.Ledger.Account(ctx, holding); errors.Is(err, ledger.ErrAccountNotFound) {
		ixs = append(ixs, token.CreateAssociated{
			Payer: e.Treasury.Address(),
			Owner: k.Address(),
			Mint:  e.Currency.Address(),
		})
	} else if err != nil {
		return address.Zero, err
	}
	if currency > 0 {
		ixs = append(ixs, token.MintTo{
			Mint:        e.Currency.Address(),
			Destination: holding,
			Authority:   e.Treasury.Address(),
			Amount:      currency,
		})
	}
	if len(ixs) > 0 {
		if _, err := e.Submit(ctx, []ledger.Keypair{e.Treasury}, ixs...); err != nil {
			return address.Zero, fmt.Errorf("fund %s: %w", k.Address(), err)
		}
	}
	return holding, nil
}

// Balance returns the amount in a token holding.
func (e *Env) Balance(ctx context.Context, holding address.Address) (uint64, error) {
	acc, err := e.Ledger.Account(ctx, holding)
	if err != nil {
		return 0, err
	}
	h, err := token.DecodeAccount(acc)
	if err != nil {
		return 0, err
	}
	return h.Amount, nil
}

// New returns a bootstrapped in-memory Env for tests.
func New(t testing.TB, policy disco.Policy) *Env {
	t.Helper()
	ctx := context.Background()
	e, err := NewEnv(ctx, ledger.NewMemoryBackend(), policy, nil)
	require.NoError(t, err)
	require.NoError(t, e.Bootstrap(ctx))
	return e
}
