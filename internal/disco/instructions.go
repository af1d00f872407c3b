package disco

import "github.com/roach88/disco/internal/address"

// EventRef names an event record by its claimed address and the inputs it
// was derived from. The program checks the claim against the stored bump.
type EventRef struct {
	Address address.Address
	Base    address.Address
	ID      string
}

// MachineRef names a ticket machine under an event.
type MachineRef struct {
	Address address.Address
	Base    address.Address
}

// TicketRef names a ticket record and its unit mint.
type TicketRef struct {
	Ticket   address.Address
	Mint     address.Address
	MintBase address.Address
}

// CreateEvent registers a new event keyed by (EventBase, EventID) and
// provisions its payment vault and collection.
type CreateEvent struct {
	Authority    address.Address
	EventBase    address.Address
	EventID      string
	AcceptedMint address.Address

	// Collection display metadata.
	Name   string
	Symbol string
	URI    string
}

// CreateCollaborator grants CollaboratorBase staff rights on Event.
type CreateCollaborator struct {
	Authority        address.Address
	Event            EventRef
	CollaboratorBase address.Address
}

// DeleteCollaborator revokes a collaborator and refunds its stake to the
// event authority.
type DeleteCollaborator struct {
	Authority        address.Address
	Event            EventRef
	CollaboratorBase address.Address
	Collaborator     address.Address
}

// CreateTicketMachine defines a ticket type with fixed supply and price.
type CreateTicketMachine struct {
	Authority   address.Address
	Event       EventRef
	MachineBase address.Address
	Name        string
	Symbol      string
	URI         string
	Price       uint64
	Quantity    uint64
	Uses        uint64
}

// MintTicket buys one ticket per entry in MintBases, paying the machine
// price for each from BuyerVault into EventVault.
type MintTicket struct {
	Buyer      address.Address
	Event      EventRef
	Machine    MachineRef
	BuyerVault address.Address
	EventVault address.Address
	MintBases  []address.Address
}

// CheckIn redeems every listed ticket. Staff is the event authority or the
// base of Collaborator; leave Collaborator zero for the authority.
type CheckIn struct {
	Staff        address.Address
	Collaborator address.Address
	Event        EventRef
	Machine      MachineRef
	Tickets      []TicketRef
}

// SetTicketAuthority records NewAuthority as the ticket's holder. The new
// holder's canonical holding, derived with NewVaultBump, must already exist.
type SetTicketAuthority struct {
	Authority         address.Address
	Ticket            address.Address
	Mint              address.Address
	NewAuthority      address.Address
	NewAuthorityVault address.Address
	NewVaultBump      uint8
}

// VerifyTicketOwnership checks that Authority holds the ticket. It changes
// nothing; both Authority and Verifier must sign.
type VerifyTicketOwnership struct {
	Authority    address.Address
	Verifier     address.Address
	Collaborator address.Address
	Event        EventRef
	Machine      MachineRef
	Ticket       TicketRef
}

// WithdrawFromEventVault moves Amount of sale proceeds to Destination.
type WithdrawFromEventVault struct {
	Authority   address.Address
	Event       EventRef
	EventVault  address.Address
	Destination address.Address
	Amount      uint64
}

func (CreateEvent) ProgramID() address.Address            { return ProgramID }
func (CreateEvent) InstructionName() string               { return "create_event" }
func (CreateCollaborator) ProgramID() address.Address     { return ProgramID }
func (CreateCollaborator) InstructionName() string        { return "create_collaborator" }
func (DeleteCollaborator) ProgramID() address.Address     { return ProgramID }
func (DeleteCollaborator) InstructionName() string        { return "delete_collaborator" }
func (CreateTicketMachine) ProgramID() address.Address    { return ProgramID }
func (CreateTicketMachine) InstructionName() string       { return "create_ticket_machine" }
func (MintTicket) ProgramID() address.Address             { return ProgramID }
func (MintTicket) InstructionName() string                { return "mint_ticket" }
func (CheckIn) ProgramID() address.Address                { return ProgramID }
func (CheckIn) InstructionName() string                   { return "check_in" }
func (SetTicketAuthority) ProgramID() address.Address     { return ProgramID }
func (SetTicketAuthority) InstructionName() string        { return "set_ticket_authority" }
func (VerifyTicketOwnership) ProgramID() address.Address  { return ProgramID }
func (VerifyTicketOwnership) InstructionName() string     { return "verify_ticket_ownership" }
func (WithdrawFromEventVault) ProgramID() address.Address { return ProgramID }
func (WithdrawFromEventVault) InstructionName() string    { return "withdraw_from_event_vault" }
