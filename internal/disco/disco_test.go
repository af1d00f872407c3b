package disco_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/metadata"
	"github.com/roach88/disco/internal/testutil"
	"github.com/roach88/disco/internal/token"
)

const lamports = 10_000_000_000

type fixture struct {
	t         *testing.T
	ctx       context.Context
	env       *testutil.Env
	authority ledger.Keypair
	event     disco.EventRef
}

func setup(t *testing.T, policy disco.Policy) *fixture {
	t.Helper()
	f := &fixture{
		t:         t,
		ctx:       context.Background(),
		env:       testutil.New(t, policy),
		authority: testutil.Keypair("organizer"),
	}
	_, err := f.env.Fund(f.ctx, f.authority, lamports, 0)
	require.NoError(t, err)
	f.event = f.createEvent("launch-party")
	return f
}

func (f *fixture) try(signers []ledger.Keypair, ixs ...ledger.Instruction) error {
	_, err := f.env.Submit(f.ctx, signers, ixs...)
	return err
}

func (f *fixture) createEvent(id string) disco.EventRef {
	f.t.Helper()
	require.NoError(f.t, f.try([]ledger.Keypair{f.authority}, disco.CreateEvent{
		Authority:    f.authority.Address(),
		EventBase:    f.authority.Address(),
		EventID:      id,
		AcceptedMint: f.env.Currency.Address(),
		Name:         "Launch Party",
		Symbol:       "LP",
		URI:          "https://example.com/launch.json",
	}))
	ref, err := disco.NewEventRef(f.authority.Address(), id)
	require.NoError(f.t, err)
	return ref
}

func (f *fixture) machineIx(event disco.EventRef, creator ledger.Keypair, name string, price, quantity, uses uint64) disco.CreateTicketMachine {
	return disco.CreateTicketMachine{
		Authority:   creator.Address(),
		Event:       event,
		MachineBase: testutil.Keypair("machine/" + name).Address(),
		Name:        "General Admission",
		Symbol:      "GA",
		URI:         "https://example.com/ga.json",
		Price:       price,
		Quantity:    quantity,
		Uses:        uses,
	}
}

func (f *fixture) createMachine(name string, price, quantity uint64) disco.MachineRef {
	f.t.Helper()
	return f.createMachineFor(f.event, name, price, quantity)
}

func (f *fixture) createMachineFor(event disco.EventRef, name string, price, quantity uint64) disco.MachineRef {
	f.t.Helper()
	ix := f.machineIx(event, f.authority, name, price, quantity, 1)
	require.NoError(f.t, f.try([]ledger.Keypair{f.authority}, ix))
	ref, err := disco.NewMachineRef(event.Address, ix.MachineBase)
	require.NoError(f.t, err)
	return ref
}

// buyer funds a named identity and returns it with its currency holding.
func (f *fixture) buyer(name string, currency uint64) (ledger.Keypair, address.Address) {
	f.t.Helper()
	k := testutil.Keypair(name)
	holding, err := f.env.Fund(f.ctx, k, lamports, currency)
	require.NoError(f.t, err)
	return k, holding
}

func (f *fixture) buy(buyer ledger.Keypair, machine disco.MachineRef, units ...string) ([]disco.TicketRef, error) {
	bases := make([]address.Address, len(units))
	refs := make([]disco.TicketRef, len(units))
	for i, u := range units {
		bases[i] = testutil.Keypair("unit/" + u).Address()
		ref, err := disco.NewTicketRef(f.event.Address, machine.Address, bases[i])
		require.NoError(f.t, err)
		refs[i] = ref
	}
	ix, err := disco.BuyTickets(buyer.Address(), f.env.Currency.Address(), f.event, machine, bases...)
	require.NoError(f.t, err)
	return refs, f.try([]ledger.Keypair{buyer}, ix)
}

func (f *fixture) mustBuy(buyer ledger.Keypair, machine disco.MachineRef, units ...string) []disco.TicketRef {
	f.t.Helper()
	refs, err := f.buy(buyer, machine, units...)
	require.NoError(f.t, err)
	return refs
}

func (f *fixture) checkIn(staff ledger.Keypair, collaborator address.Address, machine disco.MachineRef, tickets ...disco.TicketRef) error {
	return f.try([]ledger.Keypair{staff}, disco.CheckIn{
		Staff:        staff.Address(),
		Collaborator: collaborator,
		Event:        f.event,
		Machine:      machine,
		Tickets:      tickets,
	})
}

func (f *fixture) machine(ref disco.MachineRef) *disco.TicketMachine {
	f.t.Helper()
	m, err := disco.ReadTicketMachine(f.ctx, f.env.Ledger, ref.Address)
	require.NoError(f.t, err)
	return m
}

func (f *fixture) ticket(ref disco.TicketRef) *disco.Ticket {
	f.t.Helper()
	tk, err := disco.ReadTicket(f.ctx, f.env.Ledger, ref.Ticket)
	require.NoError(f.t, err)
	return tk
}

func (f *fixture) balance(holding address.Address) uint64 {
	f.t.Helper()
	b, err := f.env.Balance(f.ctx, holding)
	require.NoError(f.t, err)
	return b
}

func (f *fixture) eventVault() address.Address {
	f.t.Helper()
	vault, _, err := disco.FindEventVault(f.event.Address)
	require.NoError(f.t, err)
	return vault
}

func (f *fixture) metadata(mint address.Address) *metadata.Metadata {
	f.t.Helper()
	addr, _, err := metadata.FindMetadata(mint)
	require.NoError(f.t, err)
	acc, err := f.env.Ledger.Account(f.ctx, addr)
	require.NoError(f.t, err)
	md, err := metadata.DecodeMetadata(acc)
	require.NoError(f.t, err)
	return md
}

func TestCreateEvent(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())

	ev, err := disco.ReadEvent(f.ctx, f.env.Ledger, f.event.Address)
	require.NoError(t, err)
	assert.Equal(t, f.authority.Address(), ev.Authority)
	assert.Equal(t, f.env.Currency.Address(), ev.AcceptedMint)

	vault, err := token.LoadAccount(ledgerLoader(f), f.eventVault())
	require.NoError(t, err)
	assert.Equal(t, f.event.Address, vault.Owner)
	assert.Equal(t, f.env.Currency.Address(), vault.Mint)
	assert.Zero(t, vault.Amount)

	mint, _, err := disco.FindEventMint(f.event.Address)
	require.NoError(t, err)
	collectionVault, _, err := disco.FindCollectionVault(f.event.Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.balance(collectionVault))

	m, err := token.LoadMint(ledgerLoader(f), mint)
	require.NoError(t, err)
	edition, _, err := metadata.FindEdition(mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), m.Supply)
	assert.Equal(t, edition, m.MintAuthority, "collection supply is sealed")

	md := f.metadata(mint)
	assert.Equal(t, "Launch Party", md.Name)
	assert.Equal(t, f.event.Address, md.UpdateAuthority)
}

func TestCreateEvent_Rejects(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())

	base := disco.CreateEvent{
		Authority:    f.authority.Address(),
		EventBase:    f.authority.Address(),
		AcceptedMint: f.env.Currency.Address(),
	}

	tests := []struct {
		name   string
		mutate func(*disco.CreateEvent)
		want   error
	}{
		{"duplicate", func(ix *disco.CreateEvent) { ix.EventID = "launch-party" }, disco.ErrRecordAlreadyExists},
		{"empty id", func(ix *disco.CreateEvent) { ix.EventID = "" }, disco.ErrInvalidEventID},
		{"long id", func(ix *disco.CreateEvent) { ix.EventID = "0123456789abcdef0123456789abcdefX" }, disco.ErrInvalidEventID},
		{"long symbol", func(ix *disco.CreateEvent) { ix.EventID = "x"; ix.Symbol = "ELEVENCHARS" }, disco.ErrInvalidDisplayMetadata},
		{"mint is not a mint", func(ix *disco.CreateEvent) { ix.EventID = "x"; ix.AcceptedMint = f.authority.Address() }, disco.ErrRecordTypeMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := base
			tt.mutate(&ix)
			err := f.try([]ledger.Keypair{f.authority}, ix)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMintTicket(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 100, 2)
	alice, wallet := f.buyer("alice", 250)

	refs := f.mustBuy(alice, machine, "a1")

	assert.Equal(t, uint64(150), f.balance(wallet))
	assert.Equal(t, uint64(100), f.balance(f.eventVault()))
	assert.Equal(t, uint64(1), f.machine(machine).Sold)

	tk := f.ticket(refs[0])
	assert.Equal(t, alice.Address(), tk.Authority)
	assert.False(t, tk.CheckedIn)

	holding, _, err := token.FindAssociated(alice.Address(), refs[0].Mint)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.balance(holding))

	md := f.metadata(refs[0].Mint)
	assert.Equal(t, "General Admission", md.Name)
	require.NotNil(t, md.Uses)
	assert.Equal(t, metadata.UseSingle, md.Uses.Method)
	assert.Equal(t, uint64(1), md.Uses.Remaining)
	collection, _, err := disco.FindEventMint(f.event.Address)
	require.NoError(t, err)
	require.NotNil(t, md.Collection)
	assert.Equal(t, collection, md.Collection.Key)
	assert.True(t, md.Collection.Verified)

	// Only one left: a pair is refused without charge.
	_, err = f.buy(alice, machine, "a2", "a3")
	assert.ErrorIs(t, err, disco.ErrNotEnoughTicketsAvailable)
	assert.Equal(t, uint64(150), f.balance(wallet))
	assert.Equal(t, uint64(1), f.machine(machine).Sold)

	f.mustBuy(alice, machine, "a2")
	assert.Equal(t, uint64(50), f.balance(wallet))

	_, err = f.buy(alice, machine, "a3")
	assert.ErrorIs(t, err, disco.ErrNotEnoughTicketsAvailable)
	assert.Equal(t, uint64(2), f.machine(machine).Sold)
}

func TestMintTicket_Batch(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 10, 5)
	alice, wallet := f.buyer("alice", 100)

	refs := f.mustBuy(alice, machine, "a1", "a2", "a3")

	assert.Equal(t, uint64(70), f.balance(wallet))
	assert.Equal(t, uint64(3), f.machine(machine).Sold)
	for _, ref := range refs {
		assert.Equal(t, alice.Address(), f.ticket(ref).Authority)
	}

	_, err := f.buy(alice, machine, "a4", "a4")
	assert.ErrorIs(t, err, disco.ErrRecordAlreadyExists, "a unit base can only be used once")
	assert.Equal(t, uint64(3), f.machine(machine).Sold)
}

func TestMintTicket_PaymentFailures(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 100, 5)

	t.Run("insufficient funds", func(t *testing.T) {
		poor, wallet := f.buyer("poor", 99)
		_, err := f.buy(poor, machine, "p1")
		assert.ErrorIs(t, err, token.ErrInsufficientFunds)
		assert.Equal(t, uint64(99), f.balance(wallet))
		assert.Zero(t, f.machine(machine).Sold)
	})

	t.Run("wrong currency", func(t *testing.T) {
		bob, _ := f.buyer("bob", 0)
		other := testutil.Keypair("other-currency")
		otherHolding, _, err := token.FindAssociated(bob.Address(), other.Address())
		require.NoError(t, err)
		require.NoError(t, f.try([]ledger.Keypair{f.env.Treasury, other},
			token.InitializeMint{Mint: other.Address(), Payer: f.env.Treasury.Address(), MintAuthority: f.env.Treasury.Address()},
			token.CreateAssociated{Payer: f.env.Treasury.Address(), Owner: bob.Address(), Mint: other.Address()},
			token.MintTo{Mint: other.Address(), Destination: otherHolding, Authority: f.env.Treasury.Address(), Amount: 1000},
		))

		ix, err := disco.BuyTickets(bob.Address(), f.env.Currency.Address(), f.event, machine, testutil.Keypair("unit/b1").Address())
		require.NoError(t, err)
		ix.BuyerVault = otherHolding
		err = f.try([]ledger.Keypair{bob}, ix)
		assert.ErrorIs(t, err, disco.ErrAcceptedMintMismatch)
	})

	t.Run("proceeds to a foreign vault", func(t *testing.T) {
		carol, wallet := f.buyer("carol", 500)
		ix, err := disco.BuyTickets(carol.Address(), f.env.Currency.Address(), f.event, machine, testutil.Keypair("unit/c1").Address())
		require.NoError(t, err)
		ix.EventVault = wallet
		err = f.try([]ledger.Keypair{carol}, ix)
		assert.ErrorIs(t, err, disco.ErrAddressMismatch)
		assert.Equal(t, uint64(500), f.balance(wallet))
	})
}

func TestMintTicket_FreeTickets(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("free", 0, 3)
	alice, wallet := f.buyer("alice", 0)

	f.mustBuy(alice, machine, "a1")
	assert.Zero(t, f.balance(wallet))
	assert.Equal(t, uint64(1), f.machine(machine).Sold)
}

func TestLifecycle_QuantityFive(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 20, 5)
	alice, _ := f.buyer("alice", 1000)

	var refs []disco.TicketRef
	for _, u := range []string{"1", "2", "3", "4", "5"} {
		refs = append(refs, f.mustBuy(alice, machine, u)...)
	}
	_, err := f.buy(alice, machine, "6")
	assert.ErrorIs(t, err, disco.ErrNotEnoughTicketsAvailable)

	for _, ref := range refs {
		require.NoError(t, f.checkIn(f.authority, address.Zero, machine, ref))
	}
	m := f.machine(machine)
	assert.Equal(t, uint64(5), m.Sold)
	assert.Equal(t, uint64(5), m.Used)
	for _, ref := range refs {
		assert.True(t, f.ticket(ref).CheckedIn)
	}

	err = f.checkIn(f.authority, address.Zero, machine, refs[0])
	assert.ErrorIs(t, err, disco.ErrTicketAlreadyCheckedIn)
	assert.Equal(t, disco.KindRedemption, disco.KindOf(err))
	assert.Equal(t, uint64(100), f.balance(f.eventVault()))
}

func TestCheckIn(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 100, 2)
	alice, _ := f.buyer("alice", 1000)
	refs := f.mustBuy(alice, machine, "a1", "a2")

	require.NoError(t, f.checkIn(f.authority, address.Zero, machine, refs[0]))
	assert.True(t, f.ticket(refs[0]).CheckedIn)
	assert.Equal(t, uint64(1), f.machine(machine).Used)
	assert.Zero(t, f.metadata(refs[0].Mint).Uses.Remaining)

	t.Run("again", func(t *testing.T) {
		err := f.checkIn(f.authority, address.Zero, machine, refs[0])
		assert.ErrorIs(t, err, disco.ErrTicketAlreadyCheckedIn)
		assert.Equal(t, uint64(1), f.machine(machine).Used)
	})

	t.Run("listed twice", func(t *testing.T) {
		err := f.checkIn(f.authority, address.Zero, machine, refs[1], refs[1])
		assert.ErrorIs(t, err, disco.ErrTicketAlreadyCheckedIn)
		assert.False(t, f.ticket(refs[1]).CheckedIn, "batch rolled back")
		assert.Equal(t, uint64(1), f.machine(machine).Used)
		assert.Equal(t, uint64(1), f.metadata(refs[1].Mint).Uses.Remaining)
	})

	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, f.checkIn(f.authority, address.Zero, machine), disco.ErrInvalidQuantity)
	})
}

func TestCheckIn_Staff(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 10, 5)
	alice, _ := f.buyer("alice", 1000)
	refs := f.mustBuy(alice, machine, "a1", "a2", "a3")

	staff := testutil.Keypair("door-staff")
	stranger := testutil.Keypair("stranger")
	collaborator, _, err := disco.FindCollaborator(f.event.Address, staff.Address())
	require.NoError(t, err)

	assert.ErrorIs(t, f.checkIn(stranger, address.Zero, machine, refs[0]), disco.ErrOnlyEventStaffCanCheckIn)
	assert.ErrorIs(t, f.checkIn(staff, collaborator, machine, refs[0]), disco.ErrOnlyEventStaffCanCheckIn, "not yet a collaborator")

	add := disco.CreateCollaborator{Authority: stranger.Address(), Event: f.event, CollaboratorBase: stranger.Address()}
	_, err = f.env.Fund(f.ctx, stranger, lamports, 0)
	require.NoError(t, err)
	assert.ErrorIs(t, f.try([]ledger.Keypair{stranger}, add), disco.ErrOnlyEventAuthorityCanCreateCollaborators)

	add = disco.CreateCollaborator{Authority: f.authority.Address(), Event: f.event, CollaboratorBase: staff.Address()}
	require.NoError(t, f.try([]ledger.Keypair{f.authority}, add))
	assert.ErrorIs(t, f.try([]ledger.Keypair{f.authority}, add), disco.ErrRecordAlreadyExists)

	require.NoError(t, f.checkIn(staff, collaborator, machine, refs[0]))
	assert.ErrorIs(t, f.checkIn(stranger, collaborator, machine, refs[1]), disco.ErrOnlyEventStaffCanCheckIn,
		"a collaborator record only admits its own base")

	del := disco.DeleteCollaborator{
		Authority:        stranger.Address(),
		Event:            f.event,
		CollaboratorBase: staff.Address(),
		Collaborator:     collaborator,
	}
	assert.ErrorIs(t, f.try([]ledger.Keypair{stranger}, del), disco.ErrOnlyEventAuthorityCanDeleteCollaborators)

	del.Authority = f.authority.Address()
	require.NoError(t, f.try([]ledger.Keypair{f.authority}, del))
	_, err = f.env.Ledger.Account(f.ctx, collaborator)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	assert.ErrorIs(t, f.checkIn(staff, collaborator, machine, refs[1]), disco.ErrOnlyEventStaffCanCheckIn, "revoked")
	assert.Equal(t, uint64(1), f.machine(machine).Used)
}

func TestCheckIn_AnySignerPolicy(t *testing.T) {
	policy := disco.DefaultPolicy()
	policy.CheckIn = disco.CheckInAnySigner
	f := setup(t, policy)
	machine := f.createMachine("ga", 10, 5)
	alice, _ := f.buyer("alice", 1000)
	refs := f.mustBuy(alice, machine, "a1")

	require.NoError(t, f.checkIn(testutil.Keypair("anyone"), address.Zero, machine, refs[0]))
	assert.True(t, f.ticket(refs[0]).CheckedIn)
}

func TestCreateTicketMachine(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	stranger, _ := f.buyer("stranger", 0)

	ix := f.machineIx(f.event, stranger, "rogue", 1, 10, 1)
	assert.ErrorIs(t, f.try([]ledger.Keypair{stranger}, ix), disco.ErrOnlyEventAuthorityCanCreateTicketMachines)

	ix = f.machineIx(f.event, f.authority, "zero", 1, 0, 1)
	assert.ErrorIs(t, f.try([]ledger.Keypair{f.authority}, ix), disco.ErrInvalidQuantity)

	ix = f.machineIx(f.event, f.authority, "unusable", 1, 10, 0)
	assert.ErrorIs(t, f.try([]ledger.Keypair{f.authority}, ix), disco.ErrInvalidUses)

	ix = f.machineIx(f.event, f.authority, "vip", 500, 10, 3)
	ix.Name = "Cafe\u0301 VIP"
	require.NoError(t, f.try([]ledger.Keypair{f.authority}, ix))
	assert.ErrorIs(t, f.try([]ledger.Keypair{f.authority}, ix), disco.ErrRecordAlreadyExists)

	ref, err := disco.NewMachineRef(f.event.Address, ix.MachineBase)
	require.NoError(t, err)
	m := f.machine(ref)
	assert.Equal(t, "Caf\u00e9 VIP", m.Name, "names are stored NFC")
	assert.Equal(t, uint64(500), m.Price)
	assert.Equal(t, uint64(10), m.Quantity)
	assert.Equal(t, uint64(3), m.Uses)
	assert.Zero(t, m.Sold)
	assert.Zero(t, m.Used)

	alice, _ := f.buyer("alice", 500)
	refs := f.mustBuy(alice, ref, "v1")
	md := f.metadata(refs[0].Mint)
	assert.Equal(t, metadata.UseMultiple, md.Uses.Method)
	assert.Equal(t, uint64(3), md.Uses.Total)
}

func TestCreateTicketMachine_OpenPolicy(t *testing.T) {
	policy := disco.DefaultPolicy()
	policy.MachineCreation = disco.MachineCreationOpen
	f := setup(t, policy)
	stranger, _ := f.buyer("stranger", 0)

	require.NoError(t, f.try([]ledger.Keypair{stranger}, f.machineIx(f.event, stranger, "open", 1, 10, 1)))
}

func TestMintTicket_AuthorityOnlyPolicy(t *testing.T) {
	policy := disco.DefaultPolicy()
	policy.Minting = disco.MintingAuthorityOnly
	f := setup(t, policy)
	machine := f.createMachine("ga", 0, 5)
	alice, _ := f.buyer("alice", 0)

	_, err := f.buy(alice, machine, "a1")
	assert.ErrorIs(t, err, disco.ErrOnlyEventAuthorityCanMintTickets)

	_, err = f.env.Fund(f.ctx, f.authority, 0, 0)
	require.NoError(t, err)
	f.mustBuy(f.authority, machine, "comp-1")
	assert.Equal(t, uint64(1), f.machine(machine).Sold)
}

func TestTransferTicket(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 10, 5)
	alice, _ := f.buyer("alice", 100)
	bob, _ := f.buyer("bob", 0)
	ref := f.mustBuy(alice, machine, "a1")[0]

	verify := func(holder ledger.Keypair) error {
		return f.try([]ledger.Keypair{holder, f.authority}, disco.VerifyTicketOwnership{
			Authority: holder.Address(),
			Verifier:  f.authority.Address(),
			Event:     f.event,
			Machine:   machine,
			Ticket:    ref,
		})
	}
	require.NoError(t, verify(alice))
	assert.ErrorIs(t, verify(bob), disco.ErrInvalidAuthorityForTicket)

	steal := disco.SetTicketAuthority{
		Authority:    bob.Address(),
		Ticket:       ref.Ticket,
		Mint:         ref.Mint,
		NewAuthority: bob.Address(),
	}
	assert.ErrorIs(t, f.try([]ledger.Keypair{bob}, steal), disco.ErrOnlyTicketAuthorityCanChangeAuthority)

	ixs, err := disco.TransferTicket(alice.Address(), bob.Address(), ref, true)
	require.NoError(t, err)
	require.NoError(t, f.try([]ledger.Keypair{alice}, ixs...))

	assert.Equal(t, bob.Address(), f.ticket(ref).Authority)
	require.NoError(t, verify(bob))
	assert.ErrorIs(t, verify(alice), disco.ErrInvalidAuthorityForTicket)

	require.NoError(t, f.checkIn(f.authority, address.Zero, machine, ref))

	back, err := disco.TransferTicket(bob.Address(), alice.Address(), ref, false)
	require.NoError(t, err)
	err = f.try([]ledger.Keypair{bob}, back...)
	assert.ErrorIs(t, err, disco.ErrCheckedInTicketsCantChangeAuthority)
	assert.Equal(t, disco.KindIrreversibility, disco.KindOf(err))
	assert.Equal(t, bob.Address(), f.ticket(ref).Authority)
}

func TestSetTicketAuthority_RequiresHolding(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 10, 5)
	alice, _ := f.buyer("alice", 100)
	bob := testutil.Keypair("bob")
	ref := f.mustBuy(alice, machine, "a1")[0]

	vault, bump, err := token.FindAssociated(bob.Address(), ref.Mint)
	require.NoError(t, err)
	ix := disco.SetTicketAuthority{
		Authority:         alice.Address(),
		Ticket:            ref.Ticket,
		Mint:              ref.Mint,
		NewAuthority:      bob.Address(),
		NewAuthorityVault: vault,
		NewVaultBump:      bump,
	}
	assert.ErrorIs(t, f.try([]ledger.Keypair{alice}, ix), disco.ErrRecordNotFound)

	ix.NewAuthorityVault = f.eventVault()
	assert.ErrorIs(t, f.try([]ledger.Keypair{alice}, ix), disco.ErrAddressMismatch)
}

func TestVerifyTicketOwnership_RequiresStaff(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 10, 5)
	alice, _ := f.buyer("alice", 100)
	ref := f.mustBuy(alice, machine, "a1")[0]
	stranger := testutil.Keypair("stranger")

	err := f.try([]ledger.Keypair{alice, stranger}, disco.VerifyTicketOwnership{
		Authority: alice.Address(),
		Verifier:  stranger.Address(),
		Event:     f.event,
		Machine:   machine,
		Ticket:    ref,
	})
	assert.ErrorIs(t, err, disco.ErrOnlyEventStaffCanVerifyTickets)
}

func TestWithdrawFromEventVault(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 100, 5)
	alice, aliceWallet := f.buyer("alice", 300)
	f.mustBuy(alice, machine, "a1", "a2")
	payout, err := f.env.Fund(f.ctx, f.authority, 0, 0)
	require.NoError(t, err)

	withdraw := disco.WithdrawFromEventVault{
		Authority:   f.authority.Address(),
		Event:       f.event,
		EventVault:  f.eventVault(),
		Destination: payout,
		Amount:      150,
	}

	stolen := withdraw
	stolen.Authority = alice.Address()
	stolen.Destination = aliceWallet
	assert.ErrorIs(t, f.try([]ledger.Keypair{alice}, stolen), disco.ErrOnlyEventAuthorityCanWithdrawFromFeeVault)

	require.NoError(t, f.try([]ledger.Keypair{f.authority}, withdraw))
	assert.Equal(t, uint64(150), f.balance(payout))
	assert.Equal(t, uint64(50), f.balance(f.eventVault()))

	assert.ErrorIs(t, f.try([]ledger.Keypair{f.authority}, withdraw), token.ErrInsufficientFunds)
}

func TestAddressIntegrity(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 10, 5)
	second := f.createEvent("after-party")
	foreign := f.createMachineFor(second, "ga", 10, 5)
	alice, _ := f.buyer("alice", 100)

	machineIx := func(event disco.EventRef) error {
		return f.try([]ledger.Keypair{f.authority}, f.machineIx(event, f.authority, "probe", 1, 1, 1))
	}

	t.Run("wrong event id", func(t *testing.T) {
		ref := f.event
		ref.ID = "after-party"
		assert.ErrorIs(t, machineIx(ref), disco.ErrAddressMismatch)
	})

	t.Run("record of another type", func(t *testing.T) {
		ref := f.event
		ref.Address = machine.Address
		assert.ErrorIs(t, machineIx(ref), disco.ErrRecordTypeMismatch)
	})

	t.Run("not a program record", func(t *testing.T) {
		ref := f.event
		ref.Address = f.eventVault()
		err := machineIx(ref)
		assert.ErrorIs(t, err, disco.ErrRecordTypeMismatch)
		assert.Equal(t, disco.KindAddressIntegrity, disco.KindOf(err))
	})

	t.Run("missing event", func(t *testing.T) {
		ref, err := disco.NewEventRef(f.authority.Address(), "never-created")
		require.NoError(t, err)
		assert.ErrorIs(t, machineIx(ref), disco.ErrRecordNotFound)
	})

	t.Run("machine of another event", func(t *testing.T) {
		_, err := f.buy(alice, foreign, "x1")
		assert.ErrorIs(t, err, disco.ErrAddressMismatch)
		assert.Zero(t, f.machine(foreign).Sold)
	})

	t.Run("ticket of another machine", func(t *testing.T) {
		ref := f.mustBuy(alice, machine, "a1")[0]
		other := f.createMachine("other", 10, 5)
		err := f.checkIn(f.authority, address.Zero, other, ref)
		assert.ErrorIs(t, err, disco.ErrAddressMismatch)
		assert.False(t, f.ticket(ref).CheckedIn)
	})
}

func TestConcurrentBuysNeverOversell(t *testing.T) {
	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 10, 5)

	const buyers = 12
	keys := make([]ledger.Keypair, buyers)
	for i := range keys {
		keys[i], _ = f.buyer("buyer-"+string(rune('a'+i)), 10)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		ok      int
		soldOut int
	)
	wg.Add(buyers)
	for i, k := range keys {
		i, k := i, k
		go func() {
			defer wg.Done()
			_, err := f.buy(k, machine, "unit-"+string(rune('a'+i)))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case assert.ErrorIs(t, err, disco.ErrNotEnoughTicketsAvailable):
				soldOut++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, buyers-5, soldOut)
	m := f.machine(machine)
	assert.Equal(t, uint64(5), m.Sold)
	assert.Equal(t, uint64(50), f.balance(f.eventVault()))
}

func TestErrors(t *testing.T) {
	names := make(map[string]bool)
	for i, e := range disco.Errors {
		assert.Equal(t, uint32(6000+i), e.Code, e.Name)
		assert.False(t, names[e.Name], "duplicate name %s", e.Name)
		names[e.Name] = true
		assert.NotEmpty(t, e.Kind)
	}

	f := setup(t, disco.DefaultPolicy())
	machine := f.createMachine("ga", 10, 1)
	alice, _ := f.buyer("alice", 100)
	f.mustBuy(alice, machine, "a1")
	_, err := f.buy(alice, machine, "a2")
	assert.Equal(t, "NotEnoughTicketsAvailable", ledger.ErrorName(err))
	assert.Equal(t, disco.KindCapacity, disco.KindOf(err))

	entries, err := f.env.Ledger.Entries(f.ctx)
	require.NoError(t, err)
	last := entries[len(entries)-1]
	assert.Equal(t, ledger.StatusFailed, last.Status)
	assert.Equal(t, "NotEnoughTicketsAvailable", last.ErrorName)
}

func TestPolicy_Validate(t *testing.T) {
	require.NoError(t, disco.DefaultPolicy().Validate())

	p := disco.DefaultPolicy()
	p.CheckIn = "everyone"
	assert.Error(t, p.Validate())

	assert.Panics(t, func() { disco.New(p, nil) })
}

func TestRecords_RoundTrip(t *testing.T) {
	m := &disco.TicketMachine{Name: "GA", Symbol: "GA", URI: "u", Price: 1, Quantity: 2, Sold: 1, Uses: 1, Bump: 254}
	data, err := m.Marshal()
	require.NoError(t, err)
	out, err := disco.UnmarshalTicketMachine(data)
	require.NoError(t, err)
	assert.Equal(t, m, out)
	assert.Equal(t, "TicketMachine", disco.RecordKind(data))

	_, err = disco.UnmarshalTicket(data)
	assert.Error(t, err)

	long := *m
	long.Name = "this name is far longer than thirty-two bytes"
	_, err = long.Marshal()
	assert.Error(t, err)

	short := *m
	short.Name = ""
	shortData, err := short.Marshal()
	require.NoError(t, err)
	assert.Len(t, shortData, len(data)-2, "strings are length-prefixed")
}

type loader struct {
	f *fixture
}

func (l loader) Load(addr address.Address) (*ledger.Account, error) {
	return l.f.env.Ledger.Account(l.f.ctx, addr)
}

func ledgerLoader(f *fixture) token.Loader {
	return loader{f: f}
}
