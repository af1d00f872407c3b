package ledger

import (
	"fmt"

	"github.com/roach88/disco/internal/address"
)

// MaxInvokeDepth bounds nested cross-program invocations. The top-level
// instruction runs at depth 1.
const MaxInvokeDepth = 4

// Call is a program's view of the running transaction. Each invocation,
// top-level or nested, gets its own Call carrying the executing program's
// identity and the signer set it was granted.
type Call struct {
	ledger  *Ledger
	state   *overlay
	program address.Address
	signers map[address.Address]bool
	depth   int
	logs    *[]string
}

// Program returns the identifier of the executing program.
func (c *Call) Program() address.Address {
	return c.program
}

// Depth returns the invocation depth, 1 for top-level instructions.
func (c *Call) Depth() int {
	return c.depth
}

// Rent returns the ledger's rent schedule.
func (c *Call) Rent() Rent {
	return c.ledger.rent
}

// IsSigner reports whether addr signed this invocation.
func (c *Call) IsSigner(addr address.Address) bool {
	return c.signers[addr]
}

// RequireSigner fails with ErrMissingSignature unless addr signed.
func (c *Call) RequireSigner(addr address.Address) error {
	if !c.signers[addr] {
		return fmt.Errorf("%w: %s", ErrMissingSignature, addr)
	}
	return nil
}

// Load returns a copy of the account at addr.
func (c *Call) Load(addr address.Address) (*Account, error) {
	return c.state.load(addr)
}

// Exists reports whether an account is present at addr.
func (c *Call) Exists(addr address.Address) (bool, error) {
	return c.state.exists(addr)
}

// Create allocates a new record at addr, owned by owner, funded by payer.
// Both addr and payer must have signed; a derived addr signs only through
// InvokeSigned from the program it was derived under.
func (c *Call) Create(addr, payer, owner address.Address, data []byte) error {
	if err := c.RequireSigner(addr); err != nil {
		return err
	}
	return c.create(addr, payer, owner, data)
}

// CreateDerived allocates a record at the address derived from seeds and
// bump under the executing program. The program's own derivation is its
// authority to create there, so no signature for the record is needed.
func (c *Call) CreateDerived(seeds [][]byte, bump uint8, payer, owner address.Address, data []byte) (address.Address, error) {
	addr, err := address.Create(address.WithBump(seeds, bump), c.program)
	if err != nil {
		return address.Zero, fmt.Errorf("derive record address: %w", err)
	}
	if err := c.create(addr, payer, owner, data); err != nil {
		return address.Zero, err
	}
	return addr, nil
}

func (c *Call) create(addr, payer, owner address.Address, data []byte) error {
	if err := c.RequireSigner(payer); err != nil {
		return err
	}
	inUse, err := c.state.exists(addr)
	if err != nil {
		return err
	}
	if inUse {
		return fmt.Errorf("%w: %s", ErrAccountInUse, addr)
	}

	funder, err := c.state.load(payer)
	if err != nil {
		return fmt.Errorf("load payer: %w", err)
	}
	if funder.Owner != SystemProgramID {
		return fmt.Errorf("%w: payer %s is not a wallet", ErrIllegalOwner, payer)
	}
	stake := c.ledger.rent.MinimumBalance(len(data))
	if funder.Lamports < stake {
		return fmt.Errorf("%w: payer %s has %d, needs %d", ErrInsufficientLamports, payer, funder.Lamports, stake)
	}
	funder.Lamports -= stake
	c.state.put(funder)

	c.state.put(&Account{
		Address:  addr,
		Owner:    owner,
		Lamports: stake,
		Data:     append([]byte(nil), data...),
	})
	return nil
}

// Store replaces the data of a record owned by the executing program.
// Record sizes are fixed at creation.
func (c *Call) Store(addr address.Address, data []byte) error {
	acc, err := c.state.load(addr)
	if err != nil {
		return err
	}
	if acc.Owner != c.program {
		return fmt.Errorf("%w: %s is owned by %s", ErrIllegalOwner, addr, acc.Owner)
	}
	if len(data) != len(acc.Data) {
		return fmt.Errorf("%w: %s has %d bytes, got %d", ErrDataSizeMismatch, addr, len(acc.Data), len(data))
	}
	acc.Data = append(acc.Data[:0], data...)
	c.state.put(acc)
	return nil
}

// Close deletes a record owned by the executing program and refunds its
// lamports to recipient.
func (c *Call) Close(addr, recipient address.Address) error {
	acc, err := c.state.load(addr)
	if err != nil {
		return err
	}
	if acc.Owner != c.program {
		return fmt.Errorf("%w: %s is owned by %s", ErrIllegalOwner, addr, acc.Owner)
	}
	to, err := c.state.load(recipient)
	if err != nil {
		return fmt.Errorf("load recipient: %w", err)
	}
	to.Lamports += acc.Lamports
	c.state.put(to)
	c.state.remove(addr)
	return nil
}

// Invoke runs ix in its target program with the caller's signers.
func (c *Call) Invoke(ix Instruction) error {
	return c.InvokeSigned(ix)
}

// InvokeSigned runs ix in its target program. Each seed set (bump
// included) is derived under the executing program and the resulting
// address is added to the callee's signers.
func (c *Call) InvokeSigned(ix Instruction, seedSets ...[][]byte) error {
	if c.depth >= MaxInvokeDepth {
		return fmt.Errorf("%w: depth %d", ErrCallDepth, c.depth+1)
	}

	signers := make(map[address.Address]bool, len(c.signers)+len(seedSets))
	for a := range c.signers {
		signers[a] = true
	}
	for _, seeds := range seedSets {
		a, err := address.Create(seeds, c.program)
		if err != nil {
			return fmt.Errorf("derive signer: %w", err)
		}
		signers[a] = true
	}

	child := &Call{
		ledger:  c.ledger,
		state:   c.state,
		signers: signers,
		depth:   c.depth + 1,
		logs:    c.logs,
	}
	if err := c.ledger.dispatch(child, ix); err != nil {
		return fmt.Errorf("invoke %s: %w", c.ledger.label(ix), err)
	}
	return nil
}

// Logf appends a line to the transaction's program log.
func (c *Call) Logf(format string, args ...any) {
	name := c.program.Short()
	if p, ok := c.ledger.programs[c.program]; ok {
		name = p.Name()
	}
	*c.logs = append(*c.logs, name+": "+fmt.Sprintf(format, args...))
}
