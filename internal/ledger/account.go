package ledger

import (
	"bytes"
	"sort"

	"github.com/roach88/disco/internal/address"
)

// SystemProgramID owns plain wallet accounts.
var SystemProgramID = address.Zero

// Account is one keyed record on the ledger.
type Account struct {
	Address  address.Address
	Owner    address.Address
	Lamports uint64
	Data     []byte
}

// Clone returns a deep copy.
func (a *Account) Clone() *Account {
	c := *a
	c.Data = append([]byte(nil), a.Data...)
	return &c
}

// IsWallet reports whether the account is a plain, data-free system account.
func (a *Account) IsWallet() bool {
	return a.Owner == SystemProgramID && len(a.Data) == 0
}

// Rent prices record storage in lamports.
type Rent struct {
	// LamportsPerByte is charged for every stored byte, overhead included.
	LamportsPerByte uint64

	// Overhead is the fixed per-record byte count added to the data length.
	Overhead uint64
}

// DefaultRent matches the exemption threshold of the reference network:
// 3480 lamports per byte-year for two years, plus 128 bytes of overhead.
func DefaultRent() Rent {
	return Rent{LamportsPerByte: 6960, Overhead: 128}
}

// MinimumBalance is the stake a record of size bytes must hold.
func (r Rent) MinimumBalance(size int) uint64 {
	return (r.Overhead + uint64(size)) * r.LamportsPerByte
}

// SortAccounts orders accounts by address bytes.
func SortAccounts(accounts []*Account) {
	sort.Slice(accounts, func(i, j int) bool {
		return bytes.Compare(accounts[i].Address[:], accounts[j].Address[:]) < 0
	})
}

func sortAddresses(addrs []address.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}
