package disco

import (
	"fmt"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/metadata"
	"github.com/roach88/disco/internal/token"
)

func (p *Program) createEvent(c *ledger.Call, ix CreateEvent) error {
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	if len(ix.EventID) == 0 || len(ix.EventID) > MaxEventIDLength {
		return fail(ErrInvalidEventID, "%q is %d bytes", ix.EventID, len(ix.EventID))
	}
	d, err := normalizeDisplay(ix.Name, ix.Symbol, ix.URI)
	if err != nil {
		return err
	}
	if _, err := token.LoadMint(c, ix.AcceptedMint); err != nil {
		return fail(ErrRecordTypeMismatch, "accepted mint: %v", err)
	}

	eventSeeds := EventSeeds(ix.EventBase, ix.EventID)
	event, bump, err := fresh(c, eventSeeds, ProgramID, "event")
	if err != nil {
		return err
	}
	vault, vaultBump, err := FindEventVault(event)
	if err != nil {
		return err
	}
	mint, mintBump, err := FindEventMint(event)
	if err != nil {
		return err
	}
	collectionVault, collectionVaultBump, err := FindCollectionVault(event)
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

	data, err := (&Event{
		AcceptedMint:        ix.AcceptedMint,
		Authority:           ix.Authority,
		Bump:                bump,
		VaultBump:           vaultBump,
		MintBump:            mintBump,
		MetadataBump:        metadataBump,
		MasterEditionBump:   editionBump,
		CollectionVaultBump: collectionVaultBump,
	}).Marshal()
	if err != nil {
		return err
	}
	if _, err := c.CreateDerived(eventSeeds, bump, ix.Authority, ProgramID, data); err != nil {
		return fmt.Errorf("create event: %w", err)
	}

	signer := address.WithBump(eventSeeds, bump)
	steps := []struct {
		ix    ledger.Instruction
		seeds [][]byte
	}{
		{token.InitializeAccount{Account: vault, Payer: ix.Authority, Mint: ix.AcceptedMint, Owner: event},
			address.WithBump(EventVaultSeeds(event), vaultBump)},
		{token.InitializeMint{Mint: mint, Payer: ix.Authority, MintAuthority: event, FreezeAuthority: event},
			address.WithBump(EventMintSeeds(event), mintBump)},
		{token.InitializeAccount{Account: collectionVault, Payer: ix.Authority, Mint: mint, Owner: event},
			address.WithBump(CollectionVaultSeeds(event), collectionVaultBump)},
		{token.MintTo{Mint: mint, Destination: collectionVault, Authority: event, Amount: 1}, signer},
		{metadata.CreateMetadata{
			Mint:            mint,
			MintAuthority:   event,
			Payer:           ix.Authority,
			UpdateAuthority: event,
			Name:            d.name,
			Symbol:          d.symbol,
			URI:             d.uri,
		}, signer},
		{metadata.CreateMasterEdition{
			Mint:            mint,
			UpdateAuthority: event,
			MintAuthority:   event,
			Payer:           ix.Authority,
			MaxSupply:       new(uint64),
		}, signer},
	}
	for _, s := range steps {
		if err := c.InvokeSigned(s.ix, s.seeds); err != nil {
			return err
		}
	}

	c.Logf("created event %s (%s) for %s", event, ix.EventID, ix.Authority)
	return nil
}

func (p *Program) withdraw(c *ledger.Call, ix WithdrawFromEventVault) error {
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	ev, err := p.loadEvent(c, ix.Event)
	if err != nil {
		return err
	}
	if ev.Authority != ix.Authority {
		return fail(ErrOnlyEventAuthorityCanWithdrawFromFeeVault, "%s", ix.Authority)
	}
	if err := verify(EventVaultSeeds(ix.Event.Address), ev.VaultBump, ProgramID, ix.EventVault, "event vault"); err != nil {
		return err
	}

	err = c.InvokeSigned(token.Transfer{
		From:      ix.EventVault,
		To:        ix.Destination,
		Authority: ix.Event.Address,
		Amount:    ix.Amount,
	}, address.WithBump(EventSeeds(ix.Event.Base, ix.Event.ID), ev.Bump))
	if err != nil {
		return err
	}
	c.Logf("withdrew %d from %s to %s", ix.Amount, ix.EventVault, ix.Destination)
	return nil
}
