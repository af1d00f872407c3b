package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/store"
	"github.com/roach88/disco/internal/testutil"
)

// Option configures a run.
type Option func(*options)

type options struct {
	backend ledger.Backend
	policy  disco.Policy
	rent    *ledger.Rent
	logger  *slog.Logger
}

// WithBackend runs against backend instead of a fresh in-memory store.
func WithBackend(b ledger.Backend) Option {
	return func(o *options) { o.backend = b }
}

// WithPolicy sets the base policy that scenario overrides apply to.
func WithPolicy(p disco.Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithRent overrides the ledger's rent schedule.
func WithRent(r ledger.Rent) Option {
	return func(o *options) { o.rent = &r }
}

// WithLogger routes ledger, program and harness logs. Logs are discarded
// by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Harness executes one scenario and resolves the names it uses.
type Harness struct {
	env    *testutil.Env
	logger *slog.Logger

	identities    map[string]ledger.Keypair
	names         map[address.Address]string
	events        map[string]disco.EventRef
	machines      map[string]machineEntry
	tickets       map[string]ticketEntry
	collaborators map[string]collaboratorEntry
}

type machineEntry struct {
	event string
	ref   disco.MachineRef
}

type ticketEntry struct {
	event   string
	machine string
	ref     disco.TicketRef
}

type collaboratorEntry struct {
	event    string
	identity string
	addr     address.Address
}

// Run executes a scenario and returns the result.
//
// Without WithBackend each run uses a fresh in-memory SQLite store, so runs
// are isolated. Keys and nonces are deterministic, which makes traces
// reproducible.
//
// Execution flow:
// 1. Open the ledger and create the currency mint
// 2. Fund declared identities
// 3. Submit each step and compare it with its expectation
// 4. Snapshot the final state and evaluate assertions
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{policy: disco.DefaultPolicy()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	policy := scenario.Policy.Apply(o.policy)
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}

	backend := o.backend
	if backend == nil {
		st, err := store.Open(":memory:")
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
		backend = st
	}

	var ledgerOpts []ledger.Option
	if o.rent != nil {
		ledgerOpts = append(ledgerOpts, ledger.WithRent(*o.rent))
	}
	env, err := testutil.NewEnv(ctx, backend, policy, o.logger, ledgerOpts...)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := env.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap ledger: %w", err)
	}

	h := &Harness{
		env:           env,
		logger:        o.logger,
		identities:    make(map[string]ledger.Keypair),
		names:         make(map[address.Address]string),
		events:        make(map[string]disco.EventRef),
		machines:      make(map[string]machineEntry),
		tickets:       make(map[string]ticketEntry),
		collaborators: make(map[string]collaboratorEntry),
	}

	for _, id := range scenario.Identities {
		k := testutil.Keypair(id.Name)
		h.identities[id.Name] = k
		h.names[k.Address()] = id.Name

		lamports := id.Lamports
		if lamports == 0 {
			lamports = DefaultLamports
		}
		if _, err := env.Fund(ctx, k, lamports, id.Currency); err != nil {
			return nil, fmt.Errorf("fund %s: %w", id.Name, err)
		}
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	state, err := h.snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot state: %w", err)
	}
	result.State = state

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", result.Pass,
	)
	return result, nil
}

// executeStep submits one step and checks it against its expectation.
// Only errors that make the scenario itself unusable (unknown names,
// malformed arguments) are returned; transaction failures go to the trace.
func (h *Harness) executeStep(ctx context.Context, i int, step Step, result *Result) error {
	p, err := h.plan(step)
	if err != nil {
		return err
	}

	event := TraceEvent{
		Step:   i + 1,
		Op:     step.Op,
		Signer: step.Signer,
		Args:   step.Args,
		Status: StatusCommitted,
	}

	var execErr error
	if p.run != nil {
		execErr = p.run(ctx)
	} else {
		receipt, err := h.env.Submit(ctx, p.signers, p.instructions...)
		if receipt != nil {
			event.Seq = receipt.Seq
		}
		execErr = err
	}
	if execErr != nil {
		event.Status = StatusFailed
		event.Error = ledger.ErrorName(execErr)
	}
	result.AddTrace(event)

	switch {
	case step.Expect == nil && execErr != nil:
		result.AddError(fmt.Sprintf("step %d (%s): unexpected failure: %v", event.Step, step.Op, execErr))
	case step.Expect != nil && execErr == nil:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, but the step committed", event.Step, step.Op, step.Expect.Error))
	case step.Expect != nil && event.Error != step.Expect.Error:
		result.AddError(fmt.Sprintf("step %d (%s): expected %s, got %s: %v", event.Step, step.Op, step.Expect.Error, event.Error, execErr))
	}

	h.logger.Debug("step executed",
		"step", event.Step,
		"op", step.Op,
		"signer", step.Signer,
		"status", event.Status,
		"error", event.Error,
	)
	return nil
}

// identity resolves a declared identity name.
func (h *Harness) identity(name string) (ledger.Keypair, error) {
	k, ok := h.identities[name]
	if !ok {
		return ledger.Keypair{}, fmt.Errorf("undeclared identity %q", name)
	}
	return k, nil
}

// nameOf renders addr as an identity name when it is one.
func (h *Harness) nameOf(addr address.Address) string {
	if name, ok := h.names[addr]; ok {
		return name
	}
	return addr.String()
}
