// Package address implements ledger identities and derived record addresses.
//
// Every record the ticketing program keeps lives at an address derived from a
// namespace tag, its parent record addresses, and sometimes a caller-chosen
// base key. Derivation hashes those seeds together with the owning program's
// identifier and then appends a one-byte bump chosen so the result is not a
// valid ed25519 public key. Nobody holds a private key for such an address,
// so only the owning program can sign for it.
//
// # Capability Checks
//
// Derived addresses double as capability checks. A record stores its bump at
// creation; every later reference re-derives the address from caller-supplied
// seeds plus the stored bump and rejects the operation if the result differs
// from the record actually referenced (Verify). This is what stops a caller
// from substituting an unrelated record with the same shape.
package address
