package disco

import (
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/ledger"
)

// Program is the ticketing program. It is stateless apart from its policy;
// all state lives in ledger records.
type Program struct {
	policy Policy
	logger *slog.Logger
}

// New returns the program with the given policy. It panics on an invalid
// policy, which is a configuration error caught at startup.
func New(policy Policy, logger *slog.Logger) *Program {
	if err := policy.Validate(); err != nil {
		panic(err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Program{policy: policy, logger: logger}
}

// Policy returns the program's authorization policy.
func (p *Program) Policy() Policy {
	return p.policy
}

// ID implements ledger.Program.
func (p *Program) ID() address.Address { return ProgramID }

// Name implements ledger.Program.
func (p *Program) Name() string { return "disco" }

// Execute implements ledger.Program.
func (p *Program) Execute(c *ledger.Call, ix ledger.Instruction) error {
	switch ix := ix.(type) {
	case CreateEvent:
		return p.createEvent(c, ix)
	case CreateCollaborator:
		return p.createCollaborator(c, ix)
	case DeleteCollaborator:
		return p.deleteCollaborator(c, ix)
	case CreateTicketMachine:
		return p.createTicketMachine(c, ix)
	case MintTicket:
		return p.mintTicket(c, ix)
	case CheckIn:
		return p.checkIn(c, ix)
	case SetTicketAuthority:
		return p.setTicketAuthority(c, ix)
	case VerifyTicketOwnership:
		return p.verifyTicketOwnership(c, ix)
	case WithdrawFromEventVault:
		return p.withdraw(c, ix)
	default:
		return fmt.Errorf("%w: %s", ledger.ErrInvalidInstruction, ix.InstructionName())
	}
}

// loadRecord reads a program-owned record at addr and decodes it.
func loadRecord[T any](c *ledger.Call, addr address.Address, kind string, decode func([]byte) (*T, error)) (*T, error) {
	acc, err := c.Load(addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, fail(ErrRecordNotFound, "%s %s", kind, addr)
	}
	if err != nil {
		return nil, err
	}
	if acc.Owner != ProgramID {
		return nil, fail(ErrRecordTypeMismatch, "%s %s is owned by %s", kind, addr, acc.Owner)
	}
	rec, err := decode(acc.Data)
	if err != nil {
		return nil, fail(ErrRecordTypeMismatch, "%s %s: %v", kind, addr, err)
	}
	return rec, nil
}

// verify re-derives claimed from seeds and its stored bump under program.
func verify(seeds [][]byte, bump uint8, program, claimed address.Address, kind string) error {
	if err := address.Verify(seeds, bump, program, claimed); err != nil {
		return fail(ErrAddressMismatch, "%s %s: %v", kind, claimed, err)
	}
	return nil
}

// derive computes a sub-record address from its stored bump.
func derive(seeds [][]byte, bump uint8, program address.Address, kind string) (address.Address, error) {
	addr, err := address.Create(address.WithBump(seeds, bump), program)
	if err != nil {
		return address.Zero, fail(ErrAddressMismatch, "%s: %v", kind, err)
	}
	return addr, nil
}

// fresh finds the canonical address for a new record and fails if a record
// already lives there.
func fresh(c *ledger.Call, seeds [][]byte, program address.Address, kind string) (address.Address, uint8, error) {
	addr, bump, err := address.Find(seeds, program)
	if err != nil {
		return address.Zero, 0, fail(ErrAddressMismatch, "%s: %v", kind, err)
	}
	exists, err := c.Exists(addr)
	if err != nil {
		return address.Zero, 0, err
	}
	if exists {
		return address.Zero, 0, fail(ErrRecordAlreadyExists, "%s %s", kind, addr)
	}
	return addr, bump, nil
}

func (p *Program) loadEvent(c *ledger.Call, ref EventRef) (*Event, error) {
	ev, err := loadRecord(c, ref.Address, "event", UnmarshalEvent)
	if err != nil {
		return nil, err
	}
	if err := verify(EventSeeds(ref.Base, ref.ID), ev.Bump, ProgramID, ref.Address, "event"); err != nil {
		return nil, err
	}
	return ev, nil
}

func (p *Program) loadMachine(c *ledger.Call, event address.Address, ref MachineRef) (*TicketMachine, error) {
	m, err := loadRecord(c, ref.Address, "ticket machine", UnmarshalTicketMachine)
	if err != nil {
		return nil, err
	}
	if err := verify(TicketMachineSeeds(event, ref.Base), m.Bump, ProgramID, ref.Address, "ticket machine"); err != nil {
		return nil, err
	}
	return m, nil
}

// loadTicket verifies the ticket record against its mint and the mint
// against the machine it was sold from.
func (p *Program) loadTicket(c *ledger.Call, event, machine address.Address, ref TicketRef) (*Ticket, error) {
	t, err := loadRecord(c, ref.Ticket, "ticket", UnmarshalTicket)
	if err != nil {
		return nil, err
	}
	if err := verify(TicketSeeds(ref.Mint), t.Bump, ProgramID, ref.Ticket, "ticket"); err != nil {
		return nil, err
	}
	if err := verify(TicketMintSeeds(event, machine, ref.MintBase), t.MintBump, ProgramID, ref.Mint, "ticket mint"); err != nil {
		return nil, err
	}
	return t, nil
}

// authorizeStaff admits the event authority, or the base key of a live
// collaborator record of this event, or any signer under CheckInAnySigner.
func (p *Program) authorizeStaff(c *ledger.Call, ev *Event, event, staff, collaborator address.Address, denied *Error) error {
	if err := c.RequireSigner(staff); err != nil {
		return err
	}
	if p.policy.CheckIn == CheckInAnySigner || staff == ev.Authority {
		return nil
	}
	if collaborator.IsZero() {
		return fail(denied, "%s is not the event authority", staff)
	}
	rec, err := loadRecord(c, collaborator, "collaborator", UnmarshalCollaborator)
	if err != nil {
		return fail(denied, "%s: %v", staff, err)
	}
	if err := address.Verify(CollaboratorSeeds(event, staff), rec.Bump, ProgramID, collaborator); err != nil {
		return fail(denied, "collaborator %s does not belong to %s", collaborator, staff)
	}
	return nil
}

func (p *Program) store(c *ledger.Call, addr address.Address, rec interface{ Marshal() ([]byte, error) }) error {
	data, err := rec.Marshal()
	if err != nil {
		return err
	}
	return c.Store(addr, data)
}

// display holds normalized display metadata.
type display struct {
	name, symbol, uri string
}

// normalizeDisplay NFC-normalizes the fields and checks their capacities so
// equal-looking names encode to equal bytes.
func normalizeDisplay(name, symbol, uri string) (display, error) {
	d := display{
		name:   norm.NFC.String(name),
		symbol: norm.NFC.String(symbol),
		uri:    norm.NFC.String(uri),
	}
	for _, f := range []struct {
		field, value string
		max          int
	}{
		{"name", d.name, MaxNameLength},
		{"symbol", d.symbol, MaxSymbolLength},
		{"uri", d.uri, MaxURILength},
	} {
		if !utf8.ValidString(f.value) {
			return display{}, fail(ErrInvalidDisplayMetadata, "%s is not valid UTF-8", f.field)
		}
		if len(f.value) > f.max {
			return display{}, fail(ErrInvalidDisplayMetadata, "%s is %d bytes, max %d", f.field, len(f.value), f.max)
		}
	}
	return d, nil
}
