package disco

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/token"
)

// NewEventRef derives the reference for the event keyed by (base, id).
func NewEventRef(base address.Address, id string) (EventRef, error) {
	addr, _, err := FindEvent(base, id)
	if err != nil {
		return EventRef{}, fmt.Errorf("derive event %q: %w", id, err)
	}
	return EventRef{Address: addr, Base: base, ID: id}, nil
}

// NewMachineRef derives the reference for the machine keyed by base.
func NewMachineRef(event, base address.Address) (MachineRef, error) {
	addr, _, err := FindTicketMachine(event, base)
	if err != nil {
		return MachineRef{}, fmt.Errorf("derive ticket machine: %w", err)
	}
	return MachineRef{Address: addr, Base: base}, nil
}

// NewTicketRef derives the mint and ticket record of the unit minted with
// mintBase from machine.
func NewTicketRef(event, machine, mintBase address.Address) (TicketRef, error) {
	mint, _, err := FindTicketMint(event, machine, mintBase)
	if err != nil {
		return TicketRef{}, fmt.Errorf("derive ticket mint: %w", err)
	}
	ticket, _, err := FindTicket(mint)
	if err != nil {
		return TicketRef{}, fmt.Errorf("derive ticket: %w", err)
	}
	return TicketRef{Ticket: ticket, Mint: mint, MintBase: mintBase}, nil
}

// BuyTickets builds a purchase paid from the buyer's canonical holding of
// the accepted mint.
func BuyTickets(buyer, acceptedMint address.Address, event EventRef, machine MachineRef, mintBases ...address.Address) (MintTicket, error) {
	vault, _, err := FindEventVault(event.Address)
	if err != nil {
		return MintTicket{}, err
	}
	payment, _, err := token.FindAssociated(buyer, acceptedMint)
	if err != nil {
		return MintTicket{}, err
	}
	return MintTicket{
		Buyer:      buyer,
		Event:      event,
		Machine:    machine,
		BuyerVault: payment,
		EventVault: vault,
		MintBases:  mintBases,
	}, nil
}

// TransferTicket moves the unit from holder to recipient and records the
// recipient as the ticket authority. With createHolding set, the holder
// also pays for the recipient's canonical holding of the unit.
func TransferTicket(holder, recipient address.Address, ticket TicketRef, createHolding bool) ([]ledger.Instruction, error) {
	from, _, err := token.FindAssociated(holder, ticket.Mint)
	if err != nil {
		return nil, err
	}
	to, bump, err := token.FindAssociated(recipient, ticket.Mint)
	if err != nil {
		return nil, err
	}
	var ixs []ledger.Instruction
	if createHolding {
		ixs = append(ixs, token.CreateAssociated{Payer: holder, Owner: recipient, Mint: ticket.Mint})
	}
	return append(ixs,
		token.Transfer{From: from, To: to, Authority: holder, Amount: 1},
		SetTicketAuthority{
			Authority:         holder,
			Ticket:            ticket.Ticket,
			Mint:              ticket.Mint,
			NewAuthority:      recipient,
			NewAuthorityVault: to,
			NewVaultBump:      bump,
		},
	), nil
}

// AccountReader reads committed accounts. *ledger.Ledger implements it.
type AccountReader interface {
	Account(ctx context.Context, addr address.Address) (*ledger.Account, error)
}

// ErrNotProgramRecord is returned when reading an account the program does
// not own as one of its records.
var ErrNotProgramRecord = errors.New("account is not a disco record")

func read[T any](ctx context.Context, r AccountReader, addr address.Address, decode func([]byte) (*T, error)) (*T, error) {
	acc, err := r.Account(ctx, addr)
	if err != nil {
		return nil, err
	}
	if acc.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s is owned by %s", ErrNotProgramRecord, addr, acc.Owner)
	}
	return decode(acc.Data)
}

func ReadEvent(ctx context.Context, r AccountReader, addr address.Address) (*Event, error) {
	return read(ctx, r, addr, UnmarshalEvent)
}

func ReadCollaborator(ctx context.Context, r AccountReader, addr address.Address) (*Collaborator, error) {
	return read(ctx, r, addr, UnmarshalCollaborator)
}

func ReadTicketMachine(ctx context.Context, r AccountReader, addr address.Address) (*TicketMachine, error) {
	return read(ctx, r, addr, UnmarshalTicketMachine)
}

func ReadTicket(ctx context.Context, r AccountReader, addr address.Address) (*Ticket, error) {
	return read(ctx, r, addr, UnmarshalTicket)
}
