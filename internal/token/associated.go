package token

import (
	"fmt"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/ledger"
)

// AssociatedSeeds are the derivation seeds of owner's canonical holding for
// mint, under AssociatedProgramID.
func AssociatedSeeds(owner, mint address.Address) [][]byte {
	return [][]byte{owner.Bytes(), ProgramID.Bytes(), mint.Bytes()}
}

// FindAssociated returns owner's canonical holding address for mint and its
// bump.
func FindAssociated(owner, mint address.Address) (address.Address, uint8, error) {
	return address.Find(AssociatedSeeds(owner, mint), AssociatedProgramID)
}

// CreateAssociated creates owner's canonical holding for mint.
type CreateAssociated struct {
	Payer address.Address
	Owner address.Address
	Mint  address.Address
}

func (CreateAssociated) ProgramID() address.Address { return AssociatedProgramID }
func (CreateAssociated) InstructionName() string    { return "create" }

// AssociatedProgram derives holdings and asks the token program to
// initialize them, signing for the derived address.
type AssociatedProgram struct{}

// ID implements ledger.Program.
func (AssociatedProgram) ID() address.Address { return AssociatedProgramID }

// Name implements ledger.Program.
func (AssociatedProgram) Name() string { return "associated-token" }

// Execute implements ledger.Program.
func (AssociatedProgram) Execute(c *ledger.Call, ix ledger.Instruction) error {
	create, ok := ix.(CreateAssociated)
	if !ok {
		return fmt.Errorf("%w: %s", ledger.ErrInvalidInstruction, ix.InstructionName())
	}
	seeds := AssociatedSeeds(create.Owner, create.Mint)
	holding, bump, err := address.Find(seeds, AssociatedProgramID)
	if err != nil {
		return err
	}
	return c.InvokeSigned(InitializeAccount{
		Account: holding,
		Payer:   create.Payer,
		Mint:    create.Mint,
		Owner:   create.Owner,
	}, address.WithBump(seeds, bump))
}
