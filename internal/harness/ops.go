package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/testutil"
	"github.com/roach88/disco/internal/token"
)

// stepPlan is what a step submits: either a signed transaction or, for
// ops outside the program (funding), a direct action.
type stepPlan struct {
	signers      []ledger.Keypair
	instructions []ledger.Instruction
	run          func(ctx context.Context) error
}

// plan resolves a step's names and arguments into a transaction.
func (h *Harness) plan(step Step) (*stepPlan, error) {
	a := stepArgs{op: step.Op, m: step.Args}

	var signer ledger.Keypair
	if step.Signer != "" {
		var err error
		if signer, err = h.identity(step.Signer); err != nil {
			return nil, err
		}
	}

	switch step.Op {
	case OpFund:
		return h.planFund(a)
	case OpCreateEvent:
		return h.planCreateEvent(a, signer)
	case OpCreateCollaborator:
		return h.planCollaborator(a, signer, false)
	case OpDeleteCollaborator:
		return h.planCollaborator(a, signer, true)
	case OpCreateTicketMachine:
		return h.planCreateTicketMachine(a, signer)
	case OpMintTicket:
		return h.planMintTicket(a, signer)
	case OpCheckIn:
		return h.planCheckIn(a, signer)
	case OpTransferTicket:
		return h.planTransferTicket(a, signer)
	case OpSetTicketAuthority:
		return h.planSetTicketAuthority(a, signer)
	case OpVerifyTicketOwnership:
		return h.planVerifyTicketOwnership(a, signer)
	case OpWithdraw:
		return h.planWithdraw(a, signer)
	default:
		return nil, fmt.Errorf("unknown op %q", step.Op)
	}
}

func sign(signer ledger.Keypair, ixs ...ledger.Instruction) *stepPlan {
	return &stepPlan{signers: []ledger.Keypair{signer}, instructions: ixs}
}

func (h *Harness) planFund(a stepArgs) (*stepPlan, error) {
	if err := a.allow("identity", "lamports", "currency"); err != nil {
		return nil, err
	}
	name, err := a.str("identity")
	if err != nil {
		return nil, err
	}
	k, err := h.identity(name)
	if err != nil {
		return nil, err
	}
	lamports, err := a.uint("lamports", 0)
	if err != nil {
		return nil, err
	}
	currency, err := a.uint("currency", 0)
	if err != nil {
		return nil, err
	}
	return &stepPlan{run: func(ctx context.Context) error {
		_, err := h.env.Fund(ctx, k, lamports, currency)
		return err
	}}, nil
}

func (h *Harness) planCreateEvent(a stepArgs, signer ledger.Keypair) (*stepPlan, error) {
	if err := a.allow("event", "id", "base", "name", "symbol", "uri"); err != nil {
		return nil, err
	}
	name, err := a.str("event")
	if err != nil {
		return nil, err
	}

	ref, ok := h.events[name]
	if !ok {
		id, err := a.optStr("id", name)
		if err != nil {
			return nil, err
		}
		base := signer
		if baseName, err := a.optStr("base", ""); err != nil {
			return nil, err
		} else if baseName != "" {
			if base, err = h.identity(baseName); err != nil {
				return nil, err
			}
		}
		// Ids past the seed limit cannot be derived; the program rejects them
		// before derivation, so submit with a zero address.
		ref = disco.EventRef{Base: base.Address(), ID: id}
		if derived, err := disco.NewEventRef(base.Address(), id); err == nil {
			ref = derived
			h.events[name] = ref
		}
	}

	display, err := a.display(name, "EVT")
	if err != nil {
		return nil, err
	}
	return sign(signer, disco.CreateEvent{
		Authority:    signer.Address(),
		EventBase:    ref.Base,
		EventID:      ref.ID,
		AcceptedMint: h.env.Currency.Address(),
		Name:         display.name,
		Symbol:       display.symbol,
		URI:          display.uri,
	}), nil
}

func (h *Harness) planCollaborator(a stepArgs, signer ledger.Keypair, remove bool) (*stepPlan, error) {
	if err := a.allow("event", "collaborator"); err != nil {
		return nil, err
	}
	event, err := h.event(a)
	if err != nil {
		return nil, err
	}
	name, err := a.str("collaborator")
	if err != nil {
		return nil, err
	}
	k, err := h.identity(name)
	if err != nil {
		return nil, err
	}
	addr, _, err := disco.FindCollaborator(event.Address, k.Address())
	if err != nil {
		return nil, err
	}
	eventName, _ := a.str("event")
	h.collaborators[eventName+"/"+name] = collaboratorEntry{event: eventName, identity: name, addr: addr}

	if remove {
		return sign(signer, disco.DeleteCollaborator{
			Authority:        signer.Address(),
			Event:            event,
			CollaboratorBase: k.Address(),
			Collaborator:     addr,
		}), nil
	}
	return sign(signer, disco.CreateCollaborator{
		Authority:        signer.Address(),
		Event:            event,
		CollaboratorBase: k.Address(),
	}), nil
}

func (h *Harness) planCreateTicketMachine(a stepArgs, signer ledger.Keypair) (*stepPlan, error) {
	if err := a.allow("event", "machine", "name", "symbol", "uri", "price", "quantity", "uses"); err != nil {
		return nil, err
	}
	event, err := h.event(a)
	if err != nil {
		return nil, err
	}
	eventName, _ := a.str("event")
	name, err := a.str("machine")
	if err != nil {
		return nil, err
	}
	entry, ok := h.machines[name]
	if !ok {
		base := testutil.Keypair("machine/" + eventName + "/" + name).Address()
		ref, err := disco.NewMachineRef(event.Address, base)
		if err != nil {
			return nil, err
		}
		entry = machineEntry{event: eventName, ref: ref}
		h.machines[name] = entry
	}

	display, err := a.display(name, "TIX")
	if err != nil {
		return nil, err
	}
	price, err := a.uint("price", 0)
	if err != nil {
		return nil, err
	}
	quantity, err := a.uint("quantity", 1)
	if err != nil {
		return nil, err
	}
	uses, err := a.uint("uses", 1)
	if err != nil {
		return nil, err
	}
	return sign(signer, disco.CreateTicketMachine{
		Authority:   signer.Address(),
		Event:       event,
		MachineBase: entry.ref.Base,
		Name:        display.name,
		Symbol:      display.symbol,
		URI:         display.uri,
		Price:       price,
		Quantity:    quantity,
		Uses:        uses,
	}), nil
}

func (h *Harness) planMintTicket(a stepArgs, signer ledger.Keypair) (*stepPlan, error) {
	if err := a.allow("machine", "tickets"); err != nil {
		return nil, err
	}
	machineName, err := a.str("machine")
	if err != nil {
		return nil, err
	}
	m, err := h.machine(machineName)
	if err != nil {
		return nil, err
	}
	names, err := a.list("tickets")
	if err != nil {
		return nil, err
	}

	event := h.events[m.event]
	bases := make([]address.Address, len(names))
	for i, name := range names {
		bases[i] = testutil.Keypair("unit/" + name).Address()
		ref, err := disco.NewTicketRef(event.Address, m.ref.Address, bases[i])
		if err != nil {
			return nil, err
		}
		if _, ok := h.tickets[name]; !ok {
			h.tickets[name] = ticketEntry{event: m.event, machine: machineName, ref: ref}
		}
	}

	ix, err := disco.BuyTickets(signer.Address(), h.env.Currency.Address(), event, m.ref, bases...)
	if err != nil {
		return nil, err
	}
	return sign(signer, ix), nil
}

func (h *Harness) planCheckIn(a stepArgs, signer ledger.Keypair) (*stepPlan, error) {
	if err := a.allow("machine", "tickets"); err != nil {
		return nil, err
	}
	machineName, err := a.str("machine")
	if err != nil {
		return nil, err
	}
	m, err := h.machine(machineName)
	if err != nil {
		return nil, err
	}
	names, err := a.list("tickets")
	if err != nil {
		return nil, err
	}
	refs := make([]disco.TicketRef, len(names))
	for i, name := range names {
		t, err := h.ticket(name)
		if err != nil {
			return nil, err
		}
		refs[i] = t.ref
	}

	event := h.events[m.event]
	collaborator, _, err := disco.FindCollaborator(event.Address, signer.Address())
	if err != nil {
		return nil, err
	}
	return sign(signer, disco.CheckIn{
		Staff:        signer.Address(),
		Collaborator: collaborator,
		Event:        event,
		Machine:      m.ref,
		Tickets:      refs,
	}), nil
}

func (h *Harness) planTransferTicket(a stepArgs, signer ledger.Keypair) (*stepPlan, error) {
	if err := a.allow("ticket", "to", "create_holding"); err != nil {
		return nil, err
	}
	t, recipient, err := h.ticketAndRecipient(a)
	if err != nil {
		return nil, err
	}
	createHolding, err := a.boolean("create_holding", true)
	if err != nil {
		return nil, err
	}
	ixs, err := disco.TransferTicket(signer.Address(), recipient.Address(), t.ref, createHolding)
	if err != nil {
		return nil, err
	}
	return sign(signer, ixs...), nil
}

func (h *Harness) planSetTicketAuthority(a stepArgs, signer ledger.Keypair) (*stepPlan, error) {
	if err := a.allow("ticket", "to"); err != nil {
		return nil, err
	}
	t, recipient, err := h.ticketAndRecipient(a)
	if err != nil {
		return nil, err
	}
	vault, bump, err := token.FindAssociated(recipient.Address(), t.ref.Mint)
	if err != nil {
		return nil, err
	}
	return sign(signer, disco.SetTicketAuthority{
		Authority:         signer.Address(),
		Ticket:            t.ref.Ticket,
		Mint:              t.ref.Mint,
		NewAuthority:      recipient.Address(),
		NewAuthorityVault: vault,
		NewVaultBump:      bump,
	}), nil
}

func (h *Harness) planVerifyTicketOwnership(a stepArgs, signer ledger.Keypair) (*stepPlan, error) {
	if err := a.allow("ticket", "holder"); err != nil {
		return nil, err
	}
	name, err := a.str("ticket")
	if err != nil {
		return nil, err
	}
	t, err := h.ticket(name)
	if err != nil {
		return nil, err
	}
	holderName, err := a.str("holder")
	if err != nil {
		return nil, err
	}
	holder, err := h.identity(holderName)
	if err != nil {
		return nil, err
	}

	event := h.events[t.event]
	collaborator, _, err := disco.FindCollaborator(event.Address, signer.Address())
	if err != nil {
		return nil, err
	}
	p := sign(signer, disco.VerifyTicketOwnership{
		Authority:    holder.Address(),
		Verifier:     signer.Address(),
		Collaborator: collaborator,
		Event:        event,
		Machine:      h.machines[t.machine].ref,
		Ticket:       t.ref,
	})
	if holder.Address() != signer.Address() {
		p.signers = append(p.signers, holder)
	}
	return p, nil
}

func (h *Harness) planWithdraw(a stepArgs, signer ledger.Keypair) (*stepPlan, error) {
	if err := a.allow("event", "to", "amount"); err != nil {
		return nil, err
	}
	event, err := h.event(a)
	if err != nil {
		return nil, err
	}
	toName, err := a.optStr("to", "")
	if err != nil {
		return nil, err
	}
	to := signer
	if toName != "" {
		if to, err = h.identity(toName); err != nil {
			return nil, err
		}
	}
	amount, err := a.uint("amount", 0)
	if err != nil {
		return nil, err
	}
	vault, _, err := disco.FindEventVault(event.Address)
	if err != nil {
		return nil, err
	}
	destination, _, err := token.FindAssociated(to.Address(), h.env.Currency.Address())
	if err != nil {
		return nil, err
	}
	return sign(signer, disco.WithdrawFromEventVault{
		Authority:   signer.Address(),
		Event:       event,
		EventVault:  vault,
		Destination: destination,
		Amount:      amount,
	}), nil
}

func (h *Harness) event(a stepArgs) (disco.EventRef, error) {
	name, err := a.str("event")
	if err != nil {
		return disco.EventRef{}, err
	}
	ref, ok := h.events[name]
	if !ok {
		return disco.EventRef{}, fmt.Errorf("unknown event %q", name)
	}
	return ref, nil
}

func (h *Harness) machine(name string) (machineEntry, error) {
	m, ok := h.machines[name]
	if !ok {
		return machineEntry{}, fmt.Errorf("unknown machine %q", name)
	}
	return m, nil
}

func (h *Harness) ticket(name string) (ticketEntry, error) {
	t, ok := h.tickets[name]
	if !ok {
		return ticketEntry{}, fmt.Errorf("unknown ticket %q", name)
	}
	return t, nil
}

func (h *Harness) ticketAndRecipient(a stepArgs) (ticketEntry, ledger.Keypair, error) {
	name, err := a.str("ticket")
	if err != nil {
		return ticketEntry{}, ledger.Keypair{}, err
	}
	t, err := h.ticket(name)
	if err != nil {
		return ticketEntry{}, ledger.Keypair{}, err
	}
	to, err := a.str("to")
	if err != nil {
		return ticketEntry{}, ledger.Keypair{}, err
	}
	k, err := h.identity(to)
	if err != nil {
		return ticketEntry{}, ledger.Keypair{}, err
	}
	return t, k, nil
}

// stepArgs reads typed values from a step's YAML arguments.
type stepArgs struct {
	op string
	m  map[string]interface{}
}

// allow rejects argument keys the op does not use.
func (a stepArgs) allow(keys ...string) error {
	allowed := make(map[string]bool, len(keys))
	for _, k := range keys {
		allowed[k] = true
	}
	var unknown []string
	for k := range a.m {
		if !allowed[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%s: unknown args %s", a.op, strings.Join(unknown, ", "))
	}
	return nil
}

func (a stepArgs) str(key string) (string, error) {
	v, ok := a.m[key]
	if !ok {
		return "", fmt.Errorf("%s: %s is required", a.op, key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%s: %s must be a string, got %T", a.op, key, v)
	}
	return s, nil
}

func (a stepArgs) optStr(key, def string) (string, error) {
	if _, ok := a.m[key]; !ok {
		return def, nil
	}
	return a.str(key)
}

func (a stepArgs) uint(key string, def uint64) (uint64, error) {
	v, ok := a.m[key]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		if n >= 0 {
			return uint64(n), nil
		}
	case int64:
		if n >= 0 {
			return uint64(n), nil
		}
	case uint64:
		return n, nil
	}
	return 0, fmt.Errorf("%s: %s must be a non-negative integer, got %v", a.op, key, v)
}

func (a stepArgs) boolean(key string, def bool) (bool, error) {
	v, ok := a.m[key]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%s: %s must be a boolean, got %T", a.op, key, v)
	}
	return b, nil
}

func (a stepArgs) list(key string) ([]string, error) {
	v, ok := a.m[key]
	if !ok {
		return nil, fmt.Errorf("%s: %s is required", a.op, key)
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s: %s must be a list, got %T", a.op, key, v)
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s: %s[%d] must be a string, got %T", a.op, key, i, item)
		}
		out[i] = s
	}
	return out, nil
}

type displayFields struct {
	name, symbol, uri string
}

// display reads name, symbol and uri, defaulting from the record's key.
func (a stepArgs) display(key, symbol string) (displayFields, error) {
	var d displayFields
	var err error
	if d.name, err = a.optStr("name", key); err != nil {
		return d, err
	}
	if d.symbol, err = a.optStr("symbol", symbol); err != nil {
		return d, err
	}
	if d.uri, err = a.optStr("uri", "https://example.com/"+key+".json"); err != nil {
		return d, err
	}
	return d, nil
}
