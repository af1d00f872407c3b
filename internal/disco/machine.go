package disco

import (
	"fmt"

	"github.com/roach88/disco/internal/ledger"
)

func (p *Program) createTicketMachine(c *ledger.Call, ix CreateTicketMachine) error {
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	ev, err := p.loadEvent(c, ix.Event)
	if err != nil {
		return err
	}
	if p.policy.MachineCreation == MachineCreationAuthorityOnly && ev.Authority != ix.Authority {
		return fail(ErrOnlyEventAuthorityCanCreateTicketMachines, "%s", ix.Authority)
	}
	if ix.Quantity == 0 {
		return fail(ErrInvalidQuantity, "ticket machine quantity is zero")
	}
	if ix.Uses == 0 {
		return fail(ErrInvalidUses, "ticket machine uses is zero")
	}
	d, err := normalizeDisplay(ix.Name, ix.Symbol, ix.URI)
	if err != nil {
		return err
	}

	seeds := TicketMachineSeeds(ix.Event.Address, ix.MachineBase)
	addr, bump, err := fresh(c, seeds, ProgramID, "ticket machine")
	if err != nil {
		return err
	}
	data, err := (&TicketMachine{
		Name:     d.name,
		Symbol:   d.symbol,
		URI:      d.uri,
		Price:    ix.Price,
		Quantity: ix.Quantity,
		Uses:     ix.Uses,
		Bump:     bump,
	}).Marshal()
	if err != nil {
		return err
	}
	if _, err := c.CreateDerived(seeds, bump, ix.Authority, ProgramID, data); err != nil {
		return fmt.Errorf("create ticket machine: %w", err)
	}
	c.Logf("created ticket machine %s: %d at %d", addr, ix.Quantity, ix.Price)
	return nil
}
