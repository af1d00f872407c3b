package ledger

import (
	"context"
	"fmt"

	"github.com/roach88/disco/internal/address"
)

// overlay buffers one transaction's writes over the backend. Reads see the
// transaction's own writes first. Nothing reaches the backend until changes
// is turned into a Batch.
type overlay struct {
	ctx     context.Context
	backend Backend
	writes  map[address.Address]*Account
	deleted map[address.Address]bool
}

func newOverlay(ctx context.Context, backend Backend) *overlay {
	return &overlay{
		ctx:     ctx,
		backend: backend,
		writes:  make(map[address.Address]*Account),
		deleted: make(map[address.Address]bool),
	}
}

func (o *overlay) load(addr address.Address) (*Account, error) {
	if o.deleted[addr] {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, addr)
	}
	if acc, ok := o.writes[addr]; ok {
		return acc.Clone(), nil
	}
	return o.backend.Load(o.ctx, addr)
}

func (o *overlay) exists(addr address.Address) (bool, error) {
	_, err := o.load(addr)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func (o *overlay) put(acc *Account) {
	delete(o.deleted, acc.Address)
	o.writes[acc.Address] = acc.Clone()
}

func (o *overlay) remove(addr address.Address) {
	delete(o.writes, addr)
	o.deleted[addr] = true
}

// changes returns the write set in address order so batches are
// deterministic.
func (o *overlay) changes() ([]*Account, []address.Address) {
	upserts := make([]*Account, 0, len(o.writes))
	for _, acc := range o.writes {
		upserts = append(upserts, acc)
	}
	SortAccounts(upserts)

	deletes := make([]address.Address, 0, len(o.deleted))
	for addr := range o.deleted {
		deletes = append(deletes, addr)
	}
	sortAddresses(deletes)
	return upserts, deletes
}
