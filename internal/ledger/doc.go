// Package ledger is the host runtime the ticketing program executes on.
//
// A Ledger holds keyed account records and applies signed transactions to
// them. Each transaction is an ordered list of instructions routed to
// registered programs. Programs never touch the backend directly; they act
// through a Call, which buffers every write in a per-transaction overlay.
// The overlay is committed to the Backend as one batch only if every
// instruction succeeds. Any error discards it, so a transaction either
// applies in full or has no effect on account state.
//
// # Single Writer
//
// Submit holds the ledger mutex for the whole execute-and-commit sequence.
// Two transactions touching the same record are therefore serialized, and
// the second one observes the first one's effects. Every committed or failed
// transaction is stamped with a seq from a monotonic logical Clock.
//
// # Signers and Derived Authority
//
// Signer status comes from ed25519 signatures over the transaction message.
// A program may extend signer status to addresses derived from its own
// identifier when it invokes another program (Call.InvokeSigned). That is
// the only way a derived address can ever sign.
//
// # Rent
//
// Creating a record moves Rent.MinimumBalance(len(data)) lamports from the
// payer into the record. Closing a record returns its lamports to the chosen
// recipient.
package ledger
