// Package disco is the event ticketing program.
//
// An event authority creates an Event keyed by (base, id) with a payment
// vault for one accepted mint and a collection representing the event.
// Ticket machines define ticket types with a fixed price, supply and use
// allowance. Buying a ticket pays the machine price into the event vault
// and mints a single-supply unit to the buyer, tagged as a verified member
// of the event collection. Staff (the authority or a collaborator) check
// tickets in, consuming one use; checked-in tickets are frozen to their
// holder.
//
// Every record lives at an address derived from fixed seed prefixes and
// identifying keys under ProgramID. Instructions name records by claimed
// address plus the keys they were derived from; the program re-derives each
// claim with the bump stored in the record before trusting it.
//
// All failures are *Error values with stable names and codes. A failure at
// any step of an instruction, including inside the token and metadata
// programs it invokes, leaves the ledger unchanged.
package disco
