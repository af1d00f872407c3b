package disco

import (
	"errors"
	"math/bits"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/metadata"
	"github.com/roach88/disco/internal/token"
)

func (p *Program) mintTicket(c *ledger.Call, ix MintTicket) error {
	if err := c.RequireSigner(ix.Buyer); err != nil {
		return err
	}
	n := uint64(len(ix.MintBases))
	if n == 0 {
		return fail(ErrInvalidQuantity, "no tickets requested")
	}
	ev, err := p.loadEvent(c, ix.Event)
	if err != nil {
		return err
	}
	if p.policy.Minting == MintingAuthorityOnly && ev.Authority != ix.Buyer {
		return fail(ErrOnlyEventAuthorityCanMintTickets, "%s", ix.Buyer)
	}
	event := ix.Event.Address
	machine, err := p.loadMachine(c, event, ix.Machine)
	if err != nil {
		return err
	}
	if n > machine.Available() {
		return fail(ErrNotEnoughTicketsAvailable, "%d requested, %d of %d left", n, machine.Available(), machine.Quantity)
	}
	hi, total := bits.Mul64(machine.Price, n)
	if hi != 0 {
		return fail(ErrArithmeticOverflow, "%d tickets at %d", n, machine.Price)
	}

	if err := verify(EventVaultSeeds(event), ev.VaultBump, ProgramID, ix.EventVault, "event vault"); err != nil {
		return err
	}
	payment, err := token.LoadAccount(c, ix.BuyerVault)
	if err != nil {
		return err
	}
	if payment.Mint != ev.AcceptedMint {
		return fail(ErrAcceptedMintMismatch, "%s holds %s, event accepts %s", ix.BuyerVault, payment.Mint, ev.AcceptedMint)
	}
	collection, err := derive(EventMintSeeds(event), ev.MintBump, ProgramID, "event mint")
	if err != nil {
		return err
	}

	machine.Sold += n
	if err := p.store(c, ix.Machine.Address, machine); err != nil {
		return err
	}
	if total > 0 {
		err := c.Invoke(token.Transfer{From: ix.BuyerVault, To: ix.EventVault, Authority: ix.Buyer, Amount: total})
		if err != nil {
			return err
		}
	}

	signer := address.WithBump(EventSeeds(ix.Event.Base, ix.Event.ID), ev.Bump)
	for _, base := range ix.MintBases {
		if err := p.mintUnit(c, ix, event, machine, collection, signer, base); err != nil {
			return err
		}
	}

	p.logger.Debug("tickets minted",
		"event", event.String(),
		"machine", ix.Machine.Address.String(),
		"buyer", ix.Buyer.String(),
		"count", n,
		"sold", machine.Sold)
	return nil
}

// mintUnit creates one ticket: a single-supply mint held by the buyer,
// its display and use metadata as a verified member of the event
// collection, and the ticket record.
func (p *Program) mintUnit(c *ledger.Call, ix MintTicket, event address.Address, machine *TicketMachine, collection address.Address, signer [][]byte, base address.Address) error {
	mintSeeds := TicketMintSeeds(event, ix.Machine.Address, base)
	mint, mintBump, err := fresh(c, mintSeeds, ProgramID, "ticket mint")
	if err != nil {
		return err
	}
	vault, vaultBump, err := token.FindAssociated(ix.Buyer, mint)
	if err != nil {
		return err
	}
	_, metadataBump, err := metadata.FindMetadata(mint)
	if err != nil {
		return err
	}
	_, editionBump, err := metadata.FindEdition(mint)
	if err != nil {
		return err
	}

	if err := c.InvokeSigned(token.InitializeMint{
		Mint:            mint,
		Payer:           ix.Buyer,
		MintAuthority:   event,
		FreezeAuthority: event,
	}, address.WithBump(mintSeeds, mintBump)); err != nil {
		return err
	}
	if err := c.Invoke(token.CreateAssociated{Payer: ix.Buyer, Owner: ix.Buyer, Mint: mint}); err != nil {
		return err
	}

	steps := []ledger.Instruction{
		token.MintTo{Mint: mint, Destination: vault, Authority: event, Amount: 1},
		metadata.CreateMetadata{
			Mint:            mint,
			MintAuthority:   event,
			Payer:           ix.Buyer,
			UpdateAuthority: event,
			Name:            machine.Name,
			Symbol:          machine.Symbol,
			URI:             machine.URI,
			Uses: &metadata.Uses{
				Method:    metadata.UseMethodFor(machine.Uses),
				Remaining: machine.Uses,
				Total:     machine.Uses,
			},
		},
		metadata.CreateMasterEdition{
			Mint:            mint,
			UpdateAuthority: event,
			MintAuthority:   event,
			Payer:           ix.Buyer,
			MaxSupply:       new(uint64),
		},
		metadata.SetAndVerifyCollection{
			Mint:                mint,
			UpdateAuthority:     event,
			CollectionMint:      collection,
			CollectionAuthority: event,
		},
	}
	for _, step := range steps {
		if err := c.InvokeSigned(step, signer); err != nil {
			return err
		}
	}

	ticketSeeds := TicketSeeds(mint)
	ticket, ticketBump, err := fresh(c, ticketSeeds, ProgramID, "ticket")
	if err != nil {
		return err
	}
	data, err := (&Ticket{
		Authority:         ix.Buyer,
		Bump:              ticketBump,
		VaultBump:         vaultBump,
		MintBump:          mintBump,
		MetadataBump:      metadataBump,
		MasterEditionBump: editionBump,
	}).Marshal()
	if err != nil {
		return err
	}
	if _, err := c.CreateDerived(ticketSeeds, ticketBump, ix.Buyer, ProgramID, data); err != nil {
		return err
	}
	c.Logf("minted ticket %s to %s", ticket, ix.Buyer)
	return nil
}

func (p *Program) checkIn(c *ledger.Call, ix CheckIn) error {
	n := uint64(len(ix.Tickets))
	if n == 0 {
		return fail(ErrInvalidQuantity, "no tickets to check in")
	}
	ev, err := p.loadEvent(c, ix.Event)
	if err != nil {
		return err
	}
	event := ix.Event.Address
	if err := p.authorizeStaff(c, ev, event, ix.Staff, ix.Collaborator, ErrOnlyEventStaffCanCheckIn); err != nil {
		return err
	}
	machine, err := p.loadMachine(c, event, ix.Machine)
	if err != nil {
		return err
	}

	signer := address.WithBump(EventSeeds(ix.Event.Base, ix.Event.ID), ev.Bump)
	seen := make(map[address.Address]bool, len(ix.Tickets))
	for _, ref := range ix.Tickets {
		if seen[ref.Ticket] {
			return fail(ErrTicketAlreadyCheckedIn, "%s listed twice", ref.Ticket)
		}
		seen[ref.Ticket] = true

		t, err := p.loadTicket(c, event, ix.Machine.Address, ref)
		if err != nil {
			return err
		}
		if t.CheckedIn {
			return fail(ErrTicketAlreadyCheckedIn, "%s", ref.Ticket)
		}
		holding, err := derive(token.AssociatedSeeds(t.Authority, ref.Mint), t.VaultBump, token.AssociatedProgramID, "ticket vault")
		if err != nil {
			return err
		}
		if err := c.InvokeSigned(metadata.Utilize{
			Mint:      ref.Mint,
			Holding:   holding,
			Authority: event,
			Count:     1,
		}, signer); err != nil {
			return err
		}

		t.CheckedIn = true
		if err := p.store(c, ref.Ticket, t); err != nil {
			return err
		}
		c.Logf("checked in %s", ref.Ticket)
	}

	if n > machine.Unredeemed() {
		return fail(ErrNotEnoughTicketsToCheckIn, "%d requested, %d unredeemed", n, machine.Unredeemed())
	}
	machine.Used += n
	return p.store(c, ix.Machine.Address, machine)
}

func (p *Program) setTicketAuthority(c *ledger.Call, ix SetTicketAuthority) error {
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	t, err := loadRecord(c, ix.Ticket, "ticket", UnmarshalTicket)
	if err != nil {
		return err
	}
	if err := verify(TicketSeeds(ix.Mint), t.Bump, ProgramID, ix.Ticket, "ticket"); err != nil {
		return err
	}
	if t.Authority != ix.Authority {
		return fail(ErrOnlyTicketAuthorityCanChangeAuthority, "%s", ix.Authority)
	}
	if t.CheckedIn {
		return fail(ErrCheckedInTicketsCantChangeAuthority, "%s", ix.Ticket)
	}

	seeds := token.AssociatedSeeds(ix.NewAuthority, ix.Mint)
	if err := verify(seeds, ix.NewVaultBump, token.AssociatedProgramID, ix.NewAuthorityVault, "new authority vault"); err != nil {
		return err
	}
	holding, err := token.LoadAccount(c, ix.NewAuthorityVault)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return fail(ErrRecordNotFound, "new authority vault %s", ix.NewAuthorityVault)
	}
	if err != nil {
		return err
	}
	if holding.Mint != ix.Mint || holding.Owner != ix.NewAuthority {
		return fail(ErrAddressMismatch, "new authority vault %s", ix.NewAuthorityVault)
	}

	t.Authority = ix.NewAuthority
	t.VaultBump = ix.NewVaultBump
	if err := p.store(c, ix.Ticket, t); err != nil {
		return err
	}
	c.Logf("ticket %s now held by %s", ix.Ticket, ix.NewAuthority)
	return nil
}

func (p *Program) verifyTicketOwnership(c *ledger.Call, ix VerifyTicketOwnership) error {
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	ev, err := p.loadEvent(c, ix.Event)
	if err != nil {
		return err
	}
	event := ix.Event.Address
	if err := p.authorizeStaff(c, ev, event, ix.Verifier, ix.Collaborator, ErrOnlyEventStaffCanVerifyTickets); err != nil {
		return err
	}
	if _, err := p.loadMachine(c, event, ix.Machine); err != nil {
		return err
	}
	t, err := p.loadTicket(c, event, ix.Machine.Address, ix.Ticket)
	if err != nil {
		return err
	}
	if t.Authority != ix.Authority {
		return fail(ErrInvalidAuthorityForTicket, "%s is held by %s", ix.Ticket.Ticket, t.Authority)
	}

	vault, err := derive(token.AssociatedSeeds(t.Authority, ix.Ticket.Mint), t.VaultBump, token.AssociatedProgramID, "ticket vault")
	if err != nil {
		return err
	}
	holding, err := token.LoadAccount(c, vault)
	if err != nil || holding.Amount == 0 {
		return fail(ErrInvalidAuthorityForTicket, "%s does not hold %s", ix.Authority, ix.Ticket.Mint)
	}
	c.Logf("verified %s holds %s", ix.Authority, ix.Ticket.Ticket)
	return nil
}
