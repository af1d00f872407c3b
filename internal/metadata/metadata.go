// Package metadata is the display-metadata and utility-tracking service.
//
// It attaches name, symbol, uri and an optional use allowance to a mint,
// marks single-supply mints as master editions, groups units into verified
// collections, and records uses against the allowance (Utilize).
package metadata

import (
	"errors"
	"fmt"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/codec"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/token"
)

// ProgramID is the metadata program's address.
var ProgramID = address.ProgramID("metadata")

var (
	ErrInvalidAccount          = ledger.NewError("InvalidMetadataAccount", "invalid metadata account")
	ErrDataTooLong             = ledger.NewError("DataTooLong", "metadata field exceeds its capacity")
	ErrUpdateAuthority         = ledger.NewError("UpdateAuthorityIncorrect", "update authority is incorrect")
	ErrMintAuthority           = ledger.NewError("InvalidMintAuthority", "mint authority is incorrect")
	ErrEditionSupply           = ledger.NewError("EditionsMustHaveExactlyOneToken", "master editions require a supply of exactly one")
	ErrInvalidUses             = ledger.NewError("InvalidUseMethod", "invalid use allowance")
	ErrUnusable                = ledger.NewError("Unusable", "unit has no use allowance")
	ErrNotEnoughUses           = ledger.NewError("NotEnoughUses", "not enough uses remaining")
	ErrInvalidUser             = ledger.NewError("InvalidUser", "authority may not use this unit")
	ErrNotEnoughTokens         = ledger.NewError("NotEnoughTokens", "holding does not contain the unit")
	ErrCollectionNotMasterEdit = ledger.NewError("CollectionMustBeAUniqueMasterEdition", "collection must be a unique master edition")
)

// CreateMetadata attaches display metadata to Mint. MintAuthority must be the
// mint's current authority and must sign.
type CreateMetadata struct {
	Mint            address.Address
	MintAuthority   address.Address
	Payer           address.Address
	UpdateAuthority address.Address
	Name            string
	Symbol          string
	URI             string
	Uses            *Uses
}

// CreateMasterEdition marks Mint as a unique original. The mint must have
// exactly one unit in circulation; minting rights pass to the edition
// record so the supply can never grow.
type CreateMasterEdition struct {
	Mint            address.Address
	UpdateAuthority address.Address
	MintAuthority   address.Address
	Payer           address.Address
	MaxSupply       *uint64
}

// SetAndVerifyCollection records Mint as a verified member of the collection
// represented by CollectionMint.
type SetAndVerifyCollection struct {
	Mint                address.Address
	UpdateAuthority     address.Address
	CollectionMint      address.Address
	CollectionAuthority address.Address
}

// Utilize consumes Count uses of Mint. Authority must sign and be either the
// holder of Holding or the metadata's update authority.
type Utilize struct {
	Mint      address.Address
	Holding   address.Address
	Authority address.Address
	Count     uint64
}

func (CreateMetadata) ProgramID() address.Address         { return ProgramID }
func (CreateMetadata) InstructionName() string            { return "create_metadata" }
func (CreateMasterEdition) ProgramID() address.Address    { return ProgramID }
func (CreateMasterEdition) InstructionName() string       { return "create_master_edition" }
func (SetAndVerifyCollection) ProgramID() address.Address { return ProgramID }
func (SetAndVerifyCollection) InstructionName() string    { return "set_and_verify_collection" }
func (Utilize) ProgramID() address.Address                { return ProgramID }
func (Utilize) InstructionName() string                   { return "utilize" }

// Program is the metadata program.
type Program struct{}

// ID implements ledger.Program.
func (Program) ID() address.Address { return ProgramID }

// Name implements ledger.Program.
func (Program) Name() string { return "metadata" }

// Execute implements ledger.Program.
func (p Program) Execute(c *ledger.Call, ix ledger.Instruction) error {
	switch ix := ix.(type) {
	case CreateMetadata:
		return p.createMetadata(c, ix)
	case CreateMasterEdition:
		return p.createMasterEdition(c, ix)
	case SetAndVerifyCollection:
		return p.setAndVerifyCollection(c, ix)
	case Utilize:
		return p.utilize(c, ix)
	default:
		return fmt.Errorf("%w: %s", ledger.ErrInvalidInstruction, ix.InstructionName())
	}
}

func (Program) createMetadata(c *ledger.Call, ix CreateMetadata) error {
	mint, err := token.LoadMint(c, ix.Mint)
	if err != nil {
		return err
	}
	if mint.MintAuthority != ix.MintAuthority {
		return fmt.Errorf("%w: %s", ErrMintAuthority, ix.MintAuthority)
	}
	if err := c.RequireSigner(ix.MintAuthority); err != nil {
		return err
	}
	if err := validateUses(ix.Uses); err != nil {
		return err
	}

	data, err := (&Metadata{
		Mint:            ix.Mint,
		UpdateAuthority: ix.UpdateAuthority,
		Name:            ix.Name,
		Symbol:          ix.Symbol,
		URI:             ix.URI,
		Uses:            ix.Uses,
	}).Marshal()
	if errors.Is(err, codec.ErrStringTooLong) {
		return fmt.Errorf("%w: %v", ErrDataTooLong, err)
	}
	if err != nil {
		return err
	}

	_, bump, err := FindMetadata(ix.Mint)
	if err != nil {
		return err
	}
	if _, err := c.CreateDerived(MetadataSeeds(ix.Mint), bump, ix.Payer, ProgramID, data); err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}
	return nil
}

func validateUses(u *Uses) error {
	if u == nil {
		return nil
	}
	switch {
	case u.Method != UseSingle && u.Method != UseMultiple:
		return fmt.Errorf("%w: method %s", ErrInvalidUses, u.Method)
	case u.Total == 0:
		return fmt.Errorf("%w: total must be positive", ErrInvalidUses)
	case u.Method == UseSingle && u.Total != 1:
		return fmt.Errorf("%w: single use with total %d", ErrInvalidUses, u.Total)
	case u.Remaining > u.Total:
		return fmt.Errorf("%w: remaining %d exceeds total %d", ErrInvalidUses, u.Remaining, u.Total)
	}
	return nil
}

func (Program) createMasterEdition(c *ledger.Call, ix CreateMasterEdition) error {
	md, _, err := LoadMetadata(c, ix.Mint)
	if err != nil {
		return err
	}
	if md.UpdateAuthority != ix.UpdateAuthority {
		return fmt.Errorf("%w: %s", ErrUpdateAuthority, ix.UpdateAuthority)
	}
	if err := c.RequireSigner(ix.UpdateAuthority); err != nil {
		return err
	}
	mint, err := token.LoadMint(c, ix.Mint)
	if err != nil {
		return err
	}
	if mint.MintAuthority != ix.MintAuthority {
		return fmt.Errorf("%w: %s", ErrMintAuthority, ix.MintAuthority)
	}
	if mint.Supply != 1 || mint.Decimals != 0 {
		return fmt.Errorf("%w: supply %d, decimals %d", ErrEditionSupply, mint.Supply, mint.Decimals)
	}

	data, err := (&MasterEdition{MaxSupply: ix.MaxSupply}).Marshal()
	if err != nil {
		return err
	}
	_, bump, err := FindEdition(ix.Mint)
	if err != nil {
		return err
	}
	edition, err := c.CreateDerived(EditionSeeds(ix.Mint), bump, ix.Payer, ProgramID, data)
	if err != nil {
		return fmt.Errorf("create master edition: %w", err)
	}

	// The edition takes over minting so supply stays at one.
	return c.Invoke(token.SetMintAuthority{Mint: ix.Mint, Current: ix.MintAuthority, New: edition})
}

func (Program) setAndVerifyCollection(c *ledger.Call, ix SetAndVerifyCollection) error {
	md, addr, err := LoadMetadata(c, ix.Mint)
	if err != nil {
		return err
	}
	if md.UpdateAuthority != ix.UpdateAuthority {
		return fmt.Errorf("%w: %s", ErrUpdateAuthority, ix.UpdateAuthority)
	}
	if err := c.RequireSigner(ix.UpdateAuthority); err != nil {
		return err
	}

	collection, _, err := LoadMetadata(c, ix.CollectionMint)
	if err != nil {
		return fmt.Errorf("load collection metadata: %w", err)
	}
	if collection.UpdateAuthority != ix.CollectionAuthority {
		return fmt.Errorf("%w: collection authority %s", ErrUpdateAuthority, ix.CollectionAuthority)
	}
	if err := c.RequireSigner(ix.CollectionAuthority); err != nil {
		return err
	}
	editionAddr, _, err := FindEdition(ix.CollectionMint)
	if err != nil {
		return err
	}
	edition, err := c.Load(editionAddr)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCollectionNotMasterEdit, err)
	}
	if _, err := UnmarshalMasterEdition(edition.Data); err != nil || edition.Owner != ProgramID {
		return fmt.Errorf("%w: %s", ErrCollectionNotMasterEdit, editionAddr)
	}

	md.Collection = &Collection{Key: ix.CollectionMint, Verified: true}
	data, err := md.Marshal()
	if err != nil {
		return err
	}
	return c.Store(addr, data)
}

func (Program) utilize(c *ledger.Call, ix Utilize) error {
	md, addr, err := LoadMetadata(c, ix.Mint)
	if err != nil {
		return err
	}
	if md.Uses == nil {
		return fmt.Errorf("%w: %s", ErrUnusable, ix.Mint)
	}
	holding, err := token.LoadAccount(c, ix.Holding)
	if err != nil {
		return err
	}
	if holding.Mint != ix.Mint {
		return fmt.Errorf("%w: %s", token.ErrMintMismatch, ix.Holding)
	}
	if holding.Amount == 0 {
		return fmt.Errorf("%w: %s", ErrNotEnoughTokens, ix.Holding)
	}
	if ix.Authority != holding.Owner && ix.Authority != md.UpdateAuthority {
		return fmt.Errorf("%w: %s", ErrInvalidUser, ix.Authority)
	}
	if err := c.RequireSigner(ix.Authority); err != nil {
		return err
	}
	if md.Uses.Remaining < ix.Count {
		return fmt.Errorf("%w: %d remaining, %d requested", ErrNotEnoughUses, md.Uses.Remaining, ix.Count)
	}

	md.Uses.Remaining -= ix.Count
	data, err := md.Marshal()
	if err != nil {
		return err
	}
	if err := c.Store(addr, data); err != nil {
		return err
	}
	c.Logf("utilized %d of %s, %d remaining", ix.Count, ix.Mint, md.Uses.Remaining)
	return nil
}
