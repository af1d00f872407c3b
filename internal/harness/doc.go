// Package harness runs scripted scenarios against the ticketing program.
//
// A scenario is a YAML file: named identities with starting balances, a list
// of steps (one transaction each) and assertions over the final state and
// the step trace. Steps refer to events, machines and tickets by name; the
// harness derives their addresses from deterministic keys, so the same
// scenario always produces the same transactions.
//
// Example:
//
//	name: sold_out
//	description: the third buyer of a two-ticket machine is turned away
//	identities:
//	  - name: organizer
//	  - name: alice
//	    currency: 500
//	steps:
//	  - op: create_event
//	    signer: organizer
//	    args: {event: launch}
//	  - op: create_ticket_machine
//	    signer: organizer
//	    args: {event: launch, machine: ga, price: 100, quantity: 2}
//	  - op: mint_ticket
//	    signer: alice
//	    args: {machine: ga, tickets: [a1, a2, a3]}
//	    expect: {error: NotEnoughTicketsAvailable}
//	assertions:
//	  - type: machine
//	    machine: ga
//	    expect: {sold: 0}
//
// # Steps
//
// A step without expect must commit; a step with expect must fail with that
// error name. Mismatches are collected in Result.Errors and execution
// continues, so one run reports every divergence. Unknown names and
// malformed arguments abort the run.
//
// # Golden Traces
//
// MarshalSnapshot renders the trace and final state as canonical JSON.
// Addresses appear as identity names and ledger seqs are omitted, so the
// output is stable across runs and across changes to bootstrap.
// RunWithGolden compares it with testdata/golden using goldie.
package harness
