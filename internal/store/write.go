package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/disco/internal/ledger"
)

// Commit applies a batch atomically: the log entry, every upsert and every
// delete land in one SQL transaction or not at all.
//
// A second entry with an already logged ID fails with
// ledger.ErrDuplicateTransaction.
func (s *Store) Commit(ctx context.Context, b *ledger.Batch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("commit: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertEntry(ctx, tx, &b.Entry); err != nil {
		return err
	}

	for _, acc := range b.Upserts {
		lamports, err := toInt64(acc.Lamports)
		if err != nil {
			return fmt.Errorf("commit: %s: %w", acc.Address, err)
		}
		data := acc.Data
		if data == nil {
			data = []byte{}
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO accounts (address, owner, lamports, data, updated_seq)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(address) DO UPDATE SET
				owner = excluded.owner,
				lamports = excluded.lamports,
				data = excluded.data,
				updated_seq = excluded.updated_seq
		`,
			acc.Address.String(),
			acc.Owner.String(),
			lamports,
			data,
			b.Entry.Seq,
		)
		if err != nil {
			return fmt.Errorf("commit: upsert %s: %w", acc.Address, err)
		}
	}

	for _, addr := range b.Deletes {
		if _, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE address = ?`, addr.String()); err != nil {
			return fmt.Errorf("commit: delete %s: %w", addr, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// insertEntry appends e to the transaction log.
func insertEntry(ctx context.Context, tx *sql.Tx, e *ledger.Entry) error {
	signers, err := marshalAddresses(e.Signers)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	instructions, err := marshalStrings(e.Instructions)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	logs, err := marshalStrings(e.Logs)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO transactions
		(seq, id, signers, instructions, status, error_name, error_message, message, logs)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Seq,
		e.ID,
		signers,
		instructions,
		string(e.Status),
		e.ErrorName,
		e.ErrorMessage,
		e.Message,
		logs,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", ledger.ErrDuplicateTransaction, e.ID)
	}
	if err != nil {
		return fmt.Errorf("commit: log entry %d: %w", e.Seq, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
