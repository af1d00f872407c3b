package disco

import (
	"github.com/roach88/disco/internal/address"
)

// ProgramID is the ticketing program's address.
var ProgramID = address.ProgramID("disco")

// Seed prefixes. Every record address is derived under ProgramID from one
// of these followed by the identifying addresses.
const (
	seedEvent           = "event"
	seedEventVault      = "event_vault"
	seedEventMint       = "event_mint"
	seedCollectionVault = "event_collection_vault"
	seedCollaborator    = "collaborator"
	seedTicketMachine   = "ticket_machine"
	seedTicketMint      = "ticket_mint"
	seedTicket          = "ticket"
)

func EventSeeds(base address.Address, id string) [][]byte {
	return [][]byte{[]byte(seedEvent), base.Bytes(), []byte(id)}
}

func EventVaultSeeds(event address.Address) [][]byte {
	return [][]byte{[]byte(seedEventVault), event.Bytes()}
}

func EventMintSeeds(event address.Address) [][]byte {
	return [][]byte{[]byte(seedEventMint), event.Bytes()}
}

func CollectionVaultSeeds(event address.Address) [][]byte {
	return [][]byte{[]byte(seedCollectionVault), event.Bytes()}
}

func CollaboratorSeeds(event, base address.Address) [][]byte {
	return [][]byte{[]byte(seedCollaborator), event.Bytes(), base.Bytes()}
}

func TicketMachineSeeds(event, base address.Address) [][]byte {
	return [][]byte{[]byte(seedTicketMachine), event.Bytes(), base.Bytes()}
}

func TicketMintSeeds(event, machine, base address.Address) [][]byte {
	return [][]byte{[]byte(seedTicketMint), event.Bytes(), machine.Bytes(), base.Bytes()}
}

func TicketSeeds(mint address.Address) [][]byte {
	return [][]byte{[]byte(seedTicket), mint.Bytes()}
}

func find(seeds [][]byte) (address.Address, uint8, error) {
	return address.Find(seeds, ProgramID)
}

// FindEvent derives the event address for (base, id).
func FindEvent(base address.Address, id string) (address.Address, uint8, error) {
	return find(EventSeeds(base, id))
}

func FindEventVault(event address.Address) (address.Address, uint8, error) {
	return find(EventVaultSeeds(event))
}

func FindEventMint(event address.Address) (address.Address, uint8, error) {
	return find(EventMintSeeds(event))
}

func FindCollectionVault(event address.Address) (address.Address, uint8, error) {
	return find(CollectionVaultSeeds(event))
}

func FindCollaborator(event, base address.Address) (address.Address, uint8, error) {
	return find(CollaboratorSeeds(event, base))
}

func FindTicketMachine(event, base address.Address) (address.Address, uint8, error) {
	return find(TicketMachineSeeds(event, base))
}

func FindTicketMint(event, machine, base address.Address) (address.Address, uint8, error) {
	return find(TicketMintSeeds(event, machine, base))
}

func FindTicket(mint address.Address) (address.Address, uint8, error) {
	return find(TicketSeeds(mint))
}
