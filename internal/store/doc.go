// Package store provides SQLite-backed durable storage for the ledger.
//
// Store implements ledger.Backend with two tables:
//   - accounts: committed state, one row per live address
//   - transactions: append-only log of every submitted transaction,
//     committed or failed
//
// # Guarantees
//
// Atomic batches
//   - Commit writes the log entry, upserts and deletes in one SQL transaction
//   - A failed transaction's entry is logged with no state changes
//
// Logical time
//   - Ordering uses the seq column (logical clock), never timestamps
//   - LastSeq lets a reopened ledger resume its clock
//
// Replay protection
//   - transactions.id is UNIQUE; a duplicate surfaces as
//     ledger.ErrDuplicateTransaction
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Addresses are stored as base58 TEXT so the database is readable with the
// sqlite3 shell; record data is stored as raw BLOB.
package store
