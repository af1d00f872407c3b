package disco

import (
	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/codec"
)

// Display field capacities in bytes.
const (
	MaxNameLength    = 32
	MaxSymbolLength  = 10
	MaxURILength     = 200
	MaxEventIDLength = address.MaxSeedLen
)

var (
	eventDiscriminator        = codec.Discriminator("Event")
	collaboratorDiscriminator = codec.Discriminator("Collaborator")
	machineDiscriminator      = codec.Discriminator("TicketMachine")
	ticketDiscriminator       = codec.Discriminator("Ticket")
)

// Event is the root record of one event. It stores the bumps of every
// sub-record it signs for so later operations can re-derive them.
type Event struct {
	AcceptedMint        address.Address
	Authority           address.Address
	Bump                uint8
	VaultBump           uint8
	MintBump            uint8
	MetadataBump        uint8
	MasterEditionBump   uint8
	CollectionVaultBump uint8
}

func (e *Event) Marshal() ([]byte, error) {
	enc := codec.NewEncoder(eventDiscriminator)
	enc.Address(e.AcceptedMint)
	enc.Address(e.Authority)
	enc.U8(e.Bump)
	enc.U8(e.VaultBump)
	enc.U8(e.MintBump)
	enc.U8(e.MetadataBump)
	enc.U8(e.MasterEditionBump)
	enc.U8(e.CollectionVaultBump)
	return enc.Bytes()
}

func UnmarshalEvent(data []byte) (*Event, error) {
	dec := codec.NewDecoder(data, eventDiscriminator)
	e := &Event{
		AcceptedMint:        dec.Address(),
		Authority:           dec.Address(),
		Bump:                dec.U8(),
		VaultBump:           dec.U8(),
		MintBump:            dec.U8(),
		MetadataBump:        dec.U8(),
		MasterEditionBump:   dec.U8(),
		CollectionVaultBump: dec.U8(),
	}
	return e, dec.Finish()
}

// Collaborator grants its base key staff rights on an event. The record
// carries no data beyond its bump: existence is the permission.
type Collaborator struct {
	Bump uint8
}

func (c *Collaborator) Marshal() ([]byte, error) {
	enc := codec.NewEncoder(collaboratorDiscriminator)
	enc.U8(c.Bump)
	return enc.Bytes()
}

func UnmarshalCollaborator(data []byte) (*Collaborator, error) {
	dec := codec.NewDecoder(data, collaboratorDiscriminator)
	c := &Collaborator{Bump: dec.U8()}
	return c, dec.Finish()
}

// TicketMachine is the bounded-supply inventory of one ticket type.
//
// Invariants: Sold <= Quantity and Used <= Sold. Price, Quantity and Uses
// never change after creation.
type TicketMachine struct {
	Name     string
	Symbol   string
	URI      string
	Price    uint64
	Quantity uint64
	Sold     uint64
	Used     uint64
	Uses     uint64
	Bump     uint8
}

// Available is the number of tickets still for sale.
func (m *TicketMachine) Available() uint64 {
	return m.Quantity - m.Sold
}

// Unredeemed is the number of sold tickets not yet checked in.
func (m *TicketMachine) Unredeemed() uint64 {
	return m.Sold - m.Used
}

func (m *TicketMachine) Marshal() ([]byte, error) {
	enc := codec.NewEncoder(machineDiscriminator)
	enc.String("name", m.Name, MaxNameLength)
	enc.String("symbol", m.Symbol, MaxSymbolLength)
	enc.String("uri", m.URI, MaxURILength)
	enc.U64(m.Price)
	enc.U64(m.Quantity)
	enc.U64(m.Sold)
	enc.U64(m.Used)
	enc.U64(m.Uses)
	enc.U8(m.Bump)
	return enc.Bytes()
}

func UnmarshalTicketMachine(data []byte) (*TicketMachine, error) {
	dec := codec.NewDecoder(data, machineDiscriminator)
	m := &TicketMachine{
		Name:     dec.String(MaxNameLength),
		Symbol:   dec.String(MaxSymbolLength),
		URI:      dec.String(MaxURILength),
		Price:    dec.U64(),
		Quantity: dec.U64(),
		Sold:     dec.U64(),
		Used:     dec.U64(),
		Uses:     dec.U64(),
		Bump:     dec.U8(),
	}
	return m, dec.Finish()
}

// Ticket tracks one minted unit: who holds it and whether it was redeemed.
// VaultBump belongs to the current authority's holding and changes with it.
type Ticket struct {
	Authority         address.Address
	CheckedIn         bool
	Bump              uint8
	VaultBump         uint8
	MintBump          uint8
	MetadataBump      uint8
	MasterEditionBump uint8
}

func (t *Ticket) Marshal() ([]byte, error) {
	enc := codec.NewEncoder(ticketDiscriminator)
	enc.Address(t.Authority)
	enc.Bool(t.CheckedIn)
	enc.U8(t.Bump)
	enc.U8(t.VaultBump)
	enc.U8(t.MintBump)
	enc.U8(t.MetadataBump)
	enc.U8(t.MasterEditionBump)
	return enc.Bytes()
}

func UnmarshalTicket(data []byte) (*Ticket, error) {
	dec := codec.NewDecoder(data, ticketDiscriminator)
	t := &Ticket{
		Authority:         dec.Address(),
		CheckedIn:         dec.Bool(),
		Bump:              dec.U8(),
		VaultBump:         dec.U8(),
		MintBump:          dec.U8(),
		MetadataBump:      dec.U8(),
		MasterEditionBump: dec.U8(),
	}
	return t, dec.Finish()
}

// RecordKind names the record type stored in data, or "" if unknown.
func RecordKind(data []byte) string {
	switch {
	case codec.HasDiscriminator(data, eventDiscriminator):
		return "Event"
	case codec.HasDiscriminator(data, collaboratorDiscriminator):
		return "Collaborator"
	case codec.HasDiscriminator(data, machineDiscriminator):
		return "TicketMachine"
	case codec.HasDiscriminator(data, ticketDiscriminator):
		return "Ticket"
	default:
		return ""
	}
}
