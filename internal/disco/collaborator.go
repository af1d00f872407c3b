package disco

import (
	"fmt"

	"github.com/roach88/disco/internal/ledger"
)

func (p *Program) createCollaborator(c *ledger.Call, ix CreateCollaborator) error {
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	ev, err := p.loadEvent(c, ix.Event)
	if err != nil {
		return err
	}
	if ev.Authority != ix.Authority {
		return fail(ErrOnlyEventAuthorityCanCreateCollaborators, "%s", ix.Authority)
	}

	seeds := CollaboratorSeeds(ix.Event.Address, ix.CollaboratorBase)
	addr, bump, err := fresh(c, seeds, ProgramID, "collaborator")
	if err != nil {
		return err
	}
	data, err := (&Collaborator{Bump: bump}).Marshal()
	if err != nil {
		return err
	}
	if _, err := c.CreateDerived(seeds, bump, ix.Authority, ProgramID, data); err != nil {
		return fmt.Errorf("create collaborator: %w", err)
	}
	c.Logf("added collaborator %s (%s)", ix.CollaboratorBase, addr)
	return nil
}

func (p *Program) deleteCollaborator(c *ledger.Call, ix DeleteCollaborator) error {
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	ev, err := p.loadEvent(c, ix.Event)
	if err != nil {
		return err
	}
	if ev.Authority != ix.Authority {
		return fail(ErrOnlyEventAuthorityCanDeleteCollaborators, "%s", ix.Authority)
	}
	rec, err := loadRecord(c, ix.Collaborator, "collaborator", UnmarshalCollaborator)
	if err != nil {
		return err
	}
	seeds := CollaboratorSeeds(ix.Event.Address, ix.CollaboratorBase)
	if err := verify(seeds, rec.Bump, ProgramID, ix.Collaborator, "collaborator"); err != nil {
		return err
	}

	if err := c.Close(ix.Collaborator, ix.Authority); err != nil {
		return err
	}
	c.Logf("removed collaborator %s", ix.CollaboratorBase)
	return nil
}
