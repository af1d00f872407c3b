package metadata

import (
	"fmt"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/codec"
	"github.com/roach88/disco/internal/ledger"
)

// Display field capacities in bytes.
const (
	MaxNameLength   = 32
	MaxSymbolLength = 10
	MaxURILength    = 200
)

var (
	metadataDiscriminator = codec.Discriminator("Metadata")
	editionDiscriminator  = codec.Discriminator("MasterEdition")
)

// UseMethod says how a unit's uses are consumed.
type UseMethod uint8

const (
	// UseMultiple allows Total uses.
	UseMultiple UseMethod = 1
	// UseSingle allows exactly one use.
	UseSingle UseMethod = 2
)

// String returns the method name.
func (m UseMethod) String() string {
	switch m {
	case UseMultiple:
		return "Multiple"
	case UseSingle:
		return "Single"
	default:
		return fmt.Sprintf("UseMethod(%d)", uint8(m))
	}
}

// UseMethodFor picks Single for an allowance of one, Multiple otherwise.
func UseMethodFor(allowance uint64) UseMethod {
	if allowance == 1 {
		return UseSingle
	}
	return UseMultiple
}

// Uses is a unit's utility allowance.
type Uses struct {
	Method    UseMethod
	Remaining uint64
	Total     uint64
}

// Collection links a unit to the collection it belongs to.
type Collection struct {
	Key      address.Address
	Verified bool
}

// Metadata is the display record attached to a mint.
type Metadata struct {
	Mint            address.Address
	UpdateAuthority address.Address
	Name            string
	Symbol          string
	URI             string
	Uses            *Uses
	Collection      *Collection
}

// Marshal encodes the record. Optional parts always occupy their full
// width so later updates never resize the record.
func (m *Metadata) Marshal() ([]byte, error) {
	enc := codec.NewEncoder(metadataDiscriminator)
	enc.Address(m.Mint)
	enc.Address(m.UpdateAuthority)
	enc.String("name", m.Name, MaxNameLength)
	enc.String("symbol", m.Symbol, MaxSymbolLength)
	enc.String("uri", m.URI, MaxURILength)

	uses := Uses{}
	if m.Uses != nil {
		uses = *m.Uses
	}
	enc.Bool(m.Uses != nil)
	enc.U8(uint8(uses.Method))
	enc.U64(uses.Remaining)
	enc.U64(uses.Total)

	collection := Collection{}
	if m.Collection != nil {
		collection = *m.Collection
	}
	enc.Bool(m.Collection != nil)
	enc.Address(collection.Key)
	enc.Bool(collection.Verified)
	return enc.Bytes()
}

// UnmarshalMetadata decodes a metadata record.
func UnmarshalMetadata(data []byte) (*Metadata, error) {
	dec := codec.NewDecoder(data, metadataDiscriminator)
	m := &Metadata{
		Mint:            dec.Address(),
		UpdateAuthority: dec.Address(),
		Name:            dec.String(MaxNameLength),
		Symbol:          dec.String(MaxSymbolLength),
		URI:             dec.String(MaxURILength),
	}
	hasUses := dec.Bool()
	uses := Uses{Method: UseMethod(dec.U8()), Remaining: dec.U64(), Total: dec.U64()}
	hasCollection := dec.Bool()
	collection := Collection{Key: dec.Address(), Verified: dec.Bool()}
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	if hasUses {
		m.Uses = &uses
	}
	if hasCollection {
		m.Collection = &collection
	}
	return m, nil
}

// MasterEdition marks a mint as a unique original.
type MasterEdition struct {
	Supply    uint64
	MaxSupply *uint64
}

// Marshal encodes the record.
func (e *MasterEdition) Marshal() ([]byte, error) {
	enc := codec.NewEncoder(editionDiscriminator)
	enc.U64(e.Supply)
	enc.Bool(e.MaxSupply != nil)
	if e.MaxSupply != nil {
		enc.U64(*e.MaxSupply)
	} else {
		enc.U64(0)
	}
	return enc.Bytes()
}

// UnmarshalMasterEdition decodes a master edition record.
func UnmarshalMasterEdition(data []byte) (*MasterEdition, error) {
	dec := codec.NewDecoder(data, editionDiscriminator)
	e := &MasterEdition{Supply: dec.U64()}
	capped := dec.Bool()
	maxSupply := dec.U64()
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	if capped {
		e.MaxSupply = &maxSupply
	}
	return e, nil
}

// MetadataSeeds are the derivation seeds of mint's metadata record.
func MetadataSeeds(mint address.Address) [][]byte {
	return [][]byte{[]byte("metadata"), ProgramID.Bytes(), mint.Bytes()}
}

// EditionSeeds are the derivation seeds of mint's master edition record.
func EditionSeeds(mint address.Address) [][]byte {
	return append(MetadataSeeds(mint), []byte("edition"))
}

// FindMetadata returns the metadata address of mint and its bump.
func FindMetadata(mint address.Address) (address.Address, uint8, error) {
	return address.Find(MetadataSeeds(mint), ProgramID)
}

// FindEdition returns the master edition address of mint and its bump.
func FindEdition(mint address.Address) (address.Address, uint8, error) {
	return address.Find(EditionSeeds(mint), ProgramID)
}

// Loader reads ledger accounts.
type Loader interface {
	Load(addr address.Address) (*ledger.Account, error)
}

// LoadMetadata reads the metadata record of mint.
func LoadMetadata(l Loader, mint address.Address) (*Metadata, address.Address, error) {
	addr, _, err := FindMetadata(mint)
	if err != nil {
		return nil, address.Zero, err
	}
	acc, err := l.Load(addr)
	if err != nil {
		return nil, address.Zero, err
	}
	m, err := DecodeMetadata(acc)
	if err != nil {
		return nil, address.Zero, err
	}
	return m, addr, nil
}

// DecodeMetadata decodes a ledger account as metadata, checking its owner.
func DecodeMetadata(acc *ledger.Account) (*Metadata, error) {
	if acc.Owner != ProgramID {
		return nil, fmt.Errorf("%w: %s owned by %s", ErrInvalidAccount, acc.Address, acc.Owner)
	}
	m, err := UnmarshalMetadata(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidAccount, acc.Address, err)
	}
	return m, nil
}
