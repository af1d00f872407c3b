package harness

import (
	"context"
	"errors"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/metadata"
	"github.com/roach88/disco/internal/token"
)

// snapshot reads the final state of every named record. Records whose
// creation failed are absent; addresses are rendered as identity names.
func (h *Harness) snapshot(ctx context.Context) (map[string]interface{}, error) {
	l := h.env.Ledger

	machines := make(map[string]interface{})
	for name, m := range h.machines {
		rec, err := disco.ReadTicketMachine(ctx, l, m.ref.Address)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		machines[name] = map[string]interface{}{
			"event":    m.event,
			"name":     rec.Name,
			"price":    rec.Price,
			"quantity": rec.Quantity,
			"sold":     rec.Sold,
			"used":     rec.Used,
			"uses":     rec.Uses,
		}
	}

	tickets := make(map[string]interface{})
	for name, t := range h.tickets {
		rec, err := disco.ReadTicket(ctx, l, t.ref.Ticket)
		if errors.Is(err, ledger.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		remaining, err := h.usesRemaining(ctx, t.ref.Mint)
		if err != nil {
			return nil, err
		}
		tickets[name] = map[string]interface{}{
			"machine":        t.machine,
			"authority":      h.nameOf(rec.Authority),
			"checked_in":     rec.CheckedIn,
			"uses_remaining": remaining,
		}
	}

	balances := make(map[string]interface{})
	for name, k := range h.identities {
		holding, _, err := token.FindAssociated(k.Address(), h.env.Currency.Address())
		if err != nil {
			return nil, err
		}
		amount, err := h.balance(ctx, holding)
		if err != nil {
			return nil, err
		}
		balances[name] = amount
	}

	vaults := make(map[string]interface{})
	for name, ev := range h.events {
		if _, err := disco.ReadEvent(ctx, l, ev.Address); errors.Is(err, ledger.ErrAccountNotFound) {
			continue
		} else if err != nil {
			return nil, err
		}
		vault, _, err := disco.FindEventVault(ev.Address)
		if err != nil {
			return nil, err
		}
		amount, err := h.balance(ctx, vault)
		if err != nil {
			return nil, err
		}
		vaults[name] = amount
	}

	collaborators := make(map[string]interface{})
	for key, c := range h.collaborators {
		_, err := disco.ReadCollaborator(ctx, l, c.addr)
		switch {
		case errors.Is(err, ledger.ErrAccountNotFound):
			collaborators[key] = false
		case err != nil:
			return nil, err
		default:
			collaborators[key] = true
		}
	}

	return map[string]interface{}{
		"machines":      machines,
		"tickets":       tickets,
		"balances":      balances,
		"vaults":        vaults,
		"collaborators": collaborators,
	}, nil
}

// balance is the amount in a token holding, 0 if it does not exist.
func (h *Harness) balance(ctx context.Context, holding address.Address) (uint64, error) {
	amount, err := h.env.Balance(ctx, holding)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return 0, nil
	}
	return amount, err
}

func (h *Harness) usesRemaining(ctx context.Context, mint address.Address) (uint64, error) {
	addr, _, err := metadata.FindMetadata(mint)
	if err != nil {
		return 0, err
	}
	acc, err := h.env.Ledger.Account(ctx, addr)
	if err != nil {
		return 0, err
	}
	md, err := metadata.DecodeMetadata(acc)
	if err != nil {
		return 0, err
	}
	if md.Uses == nil {
		return 0, nil
	}
	return md.Uses.Remaining, nil
}
