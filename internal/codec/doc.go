// Package codec holds the byte encodings used across the ledger.
//
//   - layout.go: fixed record layout for stored records (discriminator,
//     little-endian integers, length-prefixed strings)
//   - cbor.go: deterministic CBOR for signed transaction messages
//   - canonical.go: canonical JSON for golden traces and CLI output
//
// Stored records and signed messages must reproduce byte for byte, so none
// of these encodings depend on map iteration order or platform defaults.
package codec
