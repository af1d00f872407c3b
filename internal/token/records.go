package token

import (
	"fmt"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/codec"
	"github.com/roach88/disco/internal/ledger"
)

var (
	mintDiscriminator    = codec.Discriminator("Mint")
	accountDiscriminator = codec.Discriminator("TokenAccount")
)

// Mint describes one unit type: who may mint it and how many exist.
type Mint struct {
	MintAuthority   address.Address
	FreezeAuthority address.Address
	Supply          uint64
	Decimals        uint8
}

// Marshal encodes the mint record.
func (m *Mint) Marshal() ([]byte, error) {
	enc := codec.NewEncoder(mintDiscriminator)
	enc.Address(m.MintAuthority)
	enc.Address(m.FreezeAuthority)
	enc.U64(m.Supply)
	enc.U8(m.Decimals)
	return enc.Bytes()
}

// UnmarshalMint decodes a mint record.
func UnmarshalMint(data []byte) (*Mint, error) {
	dec := codec.NewDecoder(data, mintDiscriminator)
	m := &Mint{
		MintAuthority:   dec.Address(),
		FreezeAuthority: dec.Address(),
		Supply:          dec.U64(),
		Decimals:        dec.U8(),
	}
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	return m, nil
}

// Account is a value-holding record: a balance of one mint for one owner.
type Account struct {
	Mint   address.Address
	Owner  address.Address
	Amount uint64
}

// Marshal encodes the holding record.
func (a *Account) Marshal() ([]byte, error) {
	enc := codec.NewEncoder(accountDiscriminator)
	enc.Address(a.Mint)
	enc.Address(a.Owner)
	enc.U64(a.Amount)
	return enc.Bytes()
}

// UnmarshalAccount decodes a holding record.
func UnmarshalAccount(data []byte) (*Account, error) {
	dec := codec.NewDecoder(data, accountDiscriminator)
	a := &Account{
		Mint:   dec.Address(),
		Owner:  dec.Address(),
		Amount: dec.U64(),
	}
	if err := dec.Finish(); err != nil {
		return nil, err
	}
	return a, nil
}

// Loader is anything that can read ledger accounts: a *ledger.Call inside a
// transaction, or a committed-state reader outside one.
type Loader interface {
	Load(addr address.Address) (*ledger.Account, error)
}

// LoadMint reads and decodes a mint owned by the token program.
func LoadMint(l Loader, addr address.Address) (*Mint, error) {
	acc, err := l.Load(addr)
	if err != nil {
		return nil, err
	}
	return DecodeMint(acc)
}

// LoadAccount reads and decodes a holding owned by the token program.
func LoadAccount(l Loader, addr address.Address) (*Account, error) {
	acc, err := l.Load(addr)
	if err != nil {
		return nil, err
	}
	return DecodeAccount(acc)
}

// DecodeMint decodes a ledger account as a mint, checking its owner.
func DecodeMint(acc *ledger.Account) (*Mint, error) {
	if acc.Owner != ProgramID {
		return nil, fmt.Errorf("%w: mint %s owned by %s", ErrInvalidAccountData, acc.Address, acc.Owner)
	}
	m, err := UnmarshalMint(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: mint %s: %v", ErrInvalidAccountData, acc.Address, err)
	}
	return m, nil
}

// DecodeAccount decodes a ledger account as a holding, checking its owner.
func DecodeAccount(acc *ledger.Account) (*Account, error) {
	if acc.Owner != ProgramID {
		return nil, fmt.Errorf("%w: holding %s owned by %s", ErrInvalidAccountData, acc.Address, acc.Owner)
	}
	a, err := UnmarshalAccount(acc.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: holding %s: %v", ErrInvalidAccountData, acc.Address, err)
	}
	return a, nil
}
