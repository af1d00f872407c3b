package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/disco/internal/disco"
)

// Scenario is a scripted run of the ticketing program: named identities are
// funded, steps are submitted as transactions in order, and assertions check
// the final ledger state and the step trace.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario demonstrates.
	Description string `yaml:"description"`

	// Policy overrides fields of the deployment policy for this run.
	Policy *PolicySpec `yaml:"policy,omitempty"`

	// Identities are funded before the first step. Every name a step or
	// assertion refers to must be declared here.
	Identities []Identity `yaml:"identities"`

	// Steps are submitted one transaction each.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state and trace.
	Assertions []Assertion `yaml:"assertions"`
}

// PolicySpec is a partial disco.Policy. Empty fields keep the base policy.
type PolicySpec struct {
	MachineCreation string `yaml:"machine_creation,omitempty"`
	Minting         string `yaml:"minting,omitempty"`
	CheckIn         string `yaml:"check_in,omitempty"`
}

// Apply overlays the non-empty fields on base.
func (p *PolicySpec) Apply(base disco.Policy) disco.Policy {
	if p == nil {
		return base
	}
	if p.MachineCreation != "" {
		base.MachineCreation = disco.MachineCreationPolicy(p.MachineCreation)
	}
	if p.Minting != "" {
		base.Minting = disco.MintingPolicy(p.Minting)
	}
	if p.CheckIn != "" {
		base.CheckIn = disco.CheckInPolicy(p.CheckIn)
	}
	return base
}

// Identity is a named keypair with its starting balances.
type Identity struct {
	Name string `yaml:"name"`

	// Lamports pays fees and rent. Defaults to DefaultLamports.
	Lamports uint64 `yaml:"lamports,omitempty"`

	// Currency is minted into the identity's currency holding.
	Currency uint64 `yaml:"currency,omitempty"`
}

// DefaultLamports funds identities that do not set lamports.
const DefaultLamports = 10_000_000_000

// Step is one transaction.
type Step struct {
	// Op names the operation, one of the Op constants.
	Op string `yaml:"op"`

	// Signer is the identity that signs and pays. Ops that need a second
	// signature add it themselves.
	Signer string `yaml:"signer,omitempty"`

	// Args are the operation arguments. Names refer to identities, events,
	// machines and tickets declared earlier in the scenario.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Expect declares an expected failure. Without it the step must commit.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect names the error a step must fail with.
type Expect struct {
	Error string `yaml:"error"`
}

// Operation names.
const (
	OpFund                  = "fund"
	OpCreateEvent           = "create_event"
	OpCreateCollaborator    = "create_collaborator"
	OpDeleteCollaborator    = "delete_collaborator"
	OpCreateTicketMachine   = "create_ticket_machine"
	OpMintTicket            = "mint_ticket"
	OpCheckIn               = "check_in"
	OpTransferTicket        = "transfer_ticket"
	OpSetTicketAuthority    = "set_ticket_authority"
	OpVerifyTicketOwnership = "verify_ticket_ownership"
	OpWithdraw              = "withdraw_from_event_vault"
)

var knownOps = map[string]bool{
	OpFund:                  true,
	OpCreateEvent:           true,
	OpCreateCollaborator:    true,
	OpDeleteCollaborator:    true,
	OpCreateTicketMachine:   true,
	OpMintTicket:            true,
	OpCheckIn:               true,
	OpTransferTicket:        true,
	OpSetTicketAuthority:    true,
	OpVerifyTicketOwnership: true,
	OpWithdraw:              true,
}

// Assertion validates final state or the step trace.
type Assertion struct {
	// Type is one of the Assert constants.
	Type string `yaml:"type"`

	Event        string `yaml:"event,omitempty"`
	Machine      string `yaml:"machine,omitempty"`
	Ticket       string `yaml:"ticket,omitempty"`
	Identity     string `yaml:"identity,omitempty"`
	Collaborator string `yaml:"collaborator,omitempty"`

	// Op and Status select steps for trace_count.
	Op     string `yaml:"op,omitempty"`
	Status string `yaml:"status,omitempty"`

	// Count is the expected number of matching steps (trace_count).
	Count int `yaml:"count,omitempty"`

	// Ops is the expected order of committed ops (trace_order).
	Ops []string `yaml:"ops,omitempty"`

	// Expect holds expected field values. Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion types.
const (
	AssertMachine      = "machine"
	AssertTicket       = "ticket"
	AssertBalance      = "balance"
	AssertVault        = "vault"
	AssertCollaborator = "collaborator"
	AssertTraceCount   = "trace_count"
	AssertTraceOrder   = "trace_order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks the structure. Name resolution happens at run
// time, since names are introduced by earlier steps.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Policy != nil {
		if err := s.Policy.Apply(disco.DefaultPolicy()).Validate(); err != nil {
			return fmt.Errorf("policy: %w", err)
		}
	}

	declared := make(map[string]bool, len(s.Identities))
	for i, id := range s.Identities {
		if id.Name == "" {
			return fmt.Errorf("identities[%d]: name is required", i)
		}
		if declared[id.Name] {
			return fmt.Errorf("identities[%d]: duplicate identity %q", i, id.Name)
		}
		declared[id.Name] = true
	}

	for i, step := range s.Steps {
		if !knownOps[step.Op] {
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
		if step.Op != OpFund && step.Signer == "" {
			return fmt.Errorf("steps[%d]: signer is required for %s", i, step.Op)
		}
		if step.Signer != "" && !declared[step.Signer] {
			return fmt.Errorf("steps[%d]: undeclared signer %q", i, step.Signer)
		}
		if step.Expect != nil && step.Expect.Error == "" {
			return fmt.Errorf("steps[%d].expect: error is required", i)
		}
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	require := func(field, value string) error {
		if value == "" {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, field, a.Type)
		}
		return nil
	}

	var err error
	switch a.Type {
	case AssertMachine:
		err = require("machine", a.Machine)
	case AssertTicket:
		err = require("ticket", a.Ticket)
	case AssertBalance:
		err = require("identity", a.Identity)
	case AssertVault:
		err = require("event", a.Event)
	case AssertCollaborator:
		if err = require("event", a.Event); err == nil {
			err = require("collaborator", a.Collaborator)
		}
	case AssertTraceCount:
		if err = require("op", a.Op); err == nil && a.Count < 0 {
			err = fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
		return err
	case AssertTraceOrder:
		if len(a.Ops) == 0 {
			return fmt.Errorf("assertions[%d]: ops list is required for trace_order", index)
		}
		return nil
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	if err != nil {
		return err
	}
	if len(a.Expect) == 0 {
		return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
	}
	return nil
}
