package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/ledger"
)

// Load returns the committed account at addr, or an error wrapping
// ledger.ErrAccountNotFound.
func (s *Store) Load(ctx context.Context, addr address.Address) (*ledger.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT address, owner, lamports, data
		FROM accounts
		WHERE address = ?
	`, addr.String())
	acc, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, addr)
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", addr, err)
	}
	return acc, nil
}

// Seen reports whether a transaction with this ID was ever logged.
func (s *Store) Seen(ctx context.Context, id string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("query transaction %s: %w", id, err)
	}
	return n > 0, nil
}

// LastSeq returns the highest logged sequence number, 0 for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM transactions`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

// Entries returns the transaction log ordered by seq.
func (s *Store) Entries(ctx context.Context) ([]ledger.Entry, error) {
	return s.FindEntries(ctx, EntryFilter{})
}

// EntryFilter narrows FindEntries. Zero fields match everything.
type EntryFilter struct {
	After  int64         // only seq > After
	Status ledger.Status // only this status
}

// FindEntries returns the log entries matching f, ordered by seq.
func (s *Store) FindEntries(ctx context.Context, f EntryFilter) ([]ledger.Entry, error) {
	query := `
		SELECT seq, id, signers, instructions, status, error_name, error_message, message, logs
		FROM transactions
		WHERE seq > ?`
	args := []any{f.After}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	entries := []ledger.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return entries, nil
}

// ByOwner returns every account owned by owner, ordered by address.
func (s *Store) ByOwner(ctx context.Context, owner address.Address) ([]*ledger.Account, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT address, owner, lamports, data
		FROM accounts
		WHERE owner = ?
	`, owner.String())
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*ledger.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	// Text order of base58 is not byte order
	ledger.SortAccounts(accounts)
	return accounts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (*ledger.Account, error) {
	var (
		addr, owner string
		lamports    int64
		data        []byte
	)
	if err := row.Scan(&addr, &owner, &lamports, &data); err != nil {
		return nil, err
	}
	acc := &ledger.Account{Lamports: uint64(lamports), Data: data}
	var err error
	if acc.Address, err = address.Parse(addr); err != nil {
		return nil, fmt.Errorf("scan account address: %w", err)
	}
	if acc.Owner, err = address.Parse(owner); err != nil {
		return nil, fmt.Errorf("scan account owner: %w", err)
	}
	if acc.Data == nil {
		acc.Data = []byte{}
	}
	return acc, nil
}

func scanEntry(row scanner) (ledger.Entry, error) {
	var (
		e                          ledger.Entry
		status                     string
		signers, instructions, lgs string
	)
	err := row.Scan(&e.Seq, &e.ID, &signers, &instructions, &status, &e.ErrorName, &e.ErrorMessage, &e.Message, &lgs)
	if err != nil {
		return ledger.Entry{}, fmt.Errorf("scan transaction: %w", err)
	}
	e.Status = ledger.Status(status)
	if e.Signers, err = unmarshalAddresses(signers); err != nil {
		return ledger.Entry{}, err
	}
	if e.Instructions, err = unmarshalStrings(instructions); err != nil {
		return ledger.Entry{}, err
	}
	if e.Logs, err = unmarshalStrings(lgs); err != nil {
		return ledger.Entry{}, err
	}
	return e, nil
}
