// Package token is the value-transfer and unit-mint service.
//
// Two programs live here. Program keeps mints and value-holding records and
// moves balances between them. AssociatedProgram creates each owner's
// canonical holding for a mint at a derived address, so anyone can locate
// it from (owner, mint) alone.
package token

import (
	"fmt"
	"math"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/ledger"
)

var (
	// ProgramID is the token program's address.
	ProgramID = address.ProgramID("token")

	// AssociatedProgramID is the associated-holding program's address.
	AssociatedProgramID = address.ProgramID("associated-token")
)

var (
	ErrInsufficientFunds  = ledger.NewError("InsufficientFunds", "insufficient funds")
	ErrMintMismatch       = ledger.NewError("MintMismatch", "account not associated with this mint")
	ErrOwnerMismatch      = ledger.NewError("OwnerMismatch", "owner does not match")
	ErrInvalidAccountData = ledger.NewError("InvalidAccountData", "invalid token account data")
	ErrOverflow           = ledger.NewError("Overflow", "operation overflowed")
)

// InitializeMint creates a mint at Mint. Mint must sign, directly or as a
// derived address of the invoking program.
type InitializeMint struct {
	Mint            address.Address
	Payer           address.Address
	MintAuthority   address.Address
	FreezeAuthority address.Address
	Decimals        uint8
}

// InitializeAccount creates a holding of Mint for Owner at Account.
type InitializeAccount struct {
	Account address.Address
	Payer   address.Address
	Mint    address.Address
	Owner   address.Address
}

// Transfer moves Amount from From to To. Authority must be From's owner.
type Transfer struct {
	From      address.Address
	To        address.Address
	Authority address.Address
	Amount    uint64
}

// MintTo creates Amount new units in Destination. Authority must be the
// mint's recorded mint authority.
type MintTo struct {
	Mint        address.Address
	Destination address.Address
	Authority   address.Address
	Amount      uint64
}

// SetMintAuthority hands minting rights to New.
type SetMintAuthority struct {
	Mint    address.Address
	Current address.Address
	New     address.Address
}

func (InitializeMint) ProgramID() address.Address    { return ProgramID }
func (InitializeMint) InstructionName() string       { return "initialize_mint" }
func (InitializeAccount) ProgramID() address.Address { return ProgramID }
func (InitializeAccount) InstructionName() string    { return "initialize_account" }
func (Transfer) ProgramID() address.Address          { return ProgramID }
func (Transfer) InstructionName() string             { return "transfer" }
func (MintTo) ProgramID() address.Address            { return ProgramID }
func (MintTo) InstructionName() string               { return "mint_to" }
func (SetMintAuthority) ProgramID() address.Address  { return ProgramID }
func (SetMintAuthority) InstructionName() string     { return "set_mint_authority" }

// Program is the token program.
type Program struct{}

// ID implements ledger.Program.
func (Program) ID() address.Address { return ProgramID }

// Name implements ledger.Program.
func (Program) Name() string { return "token" }

// Execute implements ledger.Program.
func (p Program) Execute(c *ledger.Call, ix ledger.Instruction) error {
	switch ix := ix.(type) {
	case InitializeMint:
		return p.initializeMint(c, ix)
	case InitializeAccount:
		return p.initializeAccount(c, ix)
	case Transfer:
		return p.transfer(c, ix)
	case MintTo:
		return p.mintTo(c, ix)
	case SetMintAuthority:
		return p.setMintAuthority(c, ix)
	default:
		return fmt.Errorf("%w: %s", ledger.ErrInvalidInstruction, ix.InstructionName())
	}
}

func (Program) initializeMint(c *ledger.Call, ix InitializeMint) error {
	data, err := (&Mint{
		MintAuthority:   ix.MintAuthority,
		FreezeAuthority: ix.FreezeAuthority,
		Decimals:        ix.Decimals,
	}).Marshal()
	if err != nil {
		return err
	}
	if err := c.Create(ix.Mint, ix.Payer, ProgramID, data); err != nil {
		return fmt.Errorf("create mint: %w", err)
	}
	c.Logf("initialized mint %s", ix.Mint)
	return nil
}

func (Program) initializeAccount(c *ledger.Call, ix InitializeAccount) error {
	if _, err := LoadMint(c, ix.Mint); err != nil {
		return err
	}
	data, err := (&Account{Mint: ix.Mint, Owner: ix.Owner}).Marshal()
	if err != nil {
		return err
	}
	if err := c.Create(ix.Account, ix.Payer, ProgramID, data); err != nil {
		return fmt.Errorf("create holding: %w", err)
	}
	return nil
}

func (Program) transfer(c *ledger.Call, ix Transfer) error {
	from, err := LoadAccount(c, ix.From)
	if err != nil {
		return err
	}
	to, err := LoadAccount(c, ix.To)
	if err != nil {
		return err
	}
	if from.Owner != ix.Authority {
		return fmt.Errorf("%w: %s is held by %s", ErrOwnerMismatch, ix.From, from.Owner)
	}
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	if from.Mint != to.Mint {
		return fmt.Errorf("%w: %s and %s", ErrMintMismatch, ix.From, ix.To)
	}
	if from.Amount < ix.Amount {
		return fmt.Errorf("%w: %s holds %d, needs %d", ErrInsufficientFunds, ix.From, from.Amount, ix.Amount)
	}
	if ix.From == ix.To {
		return nil
	}
	if to.Amount > math.MaxUint64-ix.Amount {
		return ErrOverflow
	}

	from.Amount -= ix.Amount
	to.Amount += ix.Amount
	if err := store(c, ix.From, from); err != nil {
		return err
	}
	return store(c, ix.To, to)
}

func (Program) mintTo(c *ledger.Call, ix MintTo) error {
	mint, err := LoadMint(c, ix.Mint)
	if err != nil {
		return err
	}
	dest, err := LoadAccount(c, ix.Destination)
	if err != nil {
		return err
	}
	if mint.MintAuthority != ix.Authority {
		return fmt.Errorf("%w: mint authority of %s is %s", ErrOwnerMismatch, ix.Mint, mint.MintAuthority)
	}
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	if dest.Mint != ix.Mint {
		return fmt.Errorf("%w: %s", ErrMintMismatch, ix.Destination)
	}
	if mint.Supply > math.MaxUint64-ix.Amount || dest.Amount > math.MaxUint64-ix.Amount {
		return ErrOverflow
	}

	mint.Supply += ix.Amount
	dest.Amount += ix.Amount
	data, err := mint.Marshal()
	if err != nil {
		return err
	}
	if err := c.Store(ix.Mint, data); err != nil {
		return err
	}
	return store(c, ix.Destination, dest)
}

func (Program) setMintAuthority(c *ledger.Call, ix SetMintAuthority) error {
	mint, err := LoadMint(c, ix.Mint)
	if err != nil {
		return err
	}
	if mint.MintAuthority != ix.Current {
		return fmt.Errorf("%w: mint authority of %s is %s", ErrOwnerMismatch, ix.Mint, mint.MintAuthority)
	}
	if err := c.RequireSigner(ix.Current); err != nil {
		return err
	}
	mint.MintAuthority = ix.New
	data, err := mint.Marshal()
	if err != nil {
		return err
	}
	return c.Store(ix.Mint, data)
}

func store(c *ledger.Call, addr address.Address, a *Account) error {
	data, err := a.Marshal()
	if err != nil {
		return err
	}
	return c.Store(addr, data)
}
