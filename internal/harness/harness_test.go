package harness

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/store"
)

func TestScenarios_Golden(t *testing.T) {
	paths, err := filepath.Glob("testdata/scenarios/*.yaml")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors:\n%s", strings.Join(result.Errors, "\n"))
		})
	}
}

const soldOut = `
name: sold_out
description: one ticket, two buyers
identities:
  - name: organizer
  - name: alice
    currency: 10
  - name: bob
    currency: 10
steps:
  - op: create_event
    signer: organizer
    args: {event: launch}
  - op: create_ticket_machine
    signer: organizer
    args: {event: launch, machine: ga, price: 10, quantity: 1}
  - op: mint_ticket
    signer: alice
    args: {machine: ga, tickets: [a1]}
  - op: mint_ticket
    signer: bob
    args: {machine: ga, tickets: [b1]}
    expect: {error: NotEnoughTicketsAvailable}
assertions:
  - type: machine
    machine: ga
    expect: {sold: 1}
`

func parse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_Passes(t *testing.T) {
	result, err := Run(context.Background(), parse(t, soldOut))
	require.NoError(t, err)

	assert.True(t, result.Pass, result.Errors)
	require.Len(t, result.Trace, 4)
	assert.Equal(t, StatusCommitted, result.Trace[2].Status)
	assert.Positive(t, result.Trace[2].Seq)
	assert.Equal(t, StatusFailed, result.Trace[3].Status)
	assert.Equal(t, "NotEnoughTicketsAvailable", result.Trace[3].Error)
}

func TestRun_Deterministic(t *testing.T) {
	s := parse(t, soldOut)

	first, err := Run(context.Background(), s)
	require.NoError(t, err)
	second, err := Run(context.Background(), s)
	require.NoError(t, err)

	a, err := MarshalSnapshot(s.Name, first)
	require.NoError(t, err)
	b, err := MarshalSnapshot(s.Name, second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestRun_ReportsDivergence(t *testing.T) {
	tests := []struct {
		name    string
		expect  string
		message string
	}{
		{"unexpected failure", "", "unexpected failure"},
		{"wrong error", "InvalidQuantity", "expected InvalidQuantity, got NotEnoughTicketsAvailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parse(t, soldOut)
			if tt.expect == "" {
				s.Steps[3].Expect = nil
			} else {
				s.Steps[3].Expect = &Expect{Error: tt.expect}
			}

			result, err := Run(context.Background(), s)
			require.NoError(t, err)
			assert.False(t, result.Pass)
			require.Len(t, result.Errors, 1)
			assert.Contains(t, result.Errors[0], tt.message)
		})
	}
}

func TestRun_ExpectedFailureCommits(t *testing.T) {
	s := parse(t, soldOut)
	s.Steps[2].Expect = &Expect{Error: "NotEnoughTicketsAvailable"}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, strings.Join(result.Errors, "\n"), "but the step committed")
}

func TestRun_FailedAssertion(t *testing.T) {
	s := parse(t, soldOut)
	s.Assertions[0].Expect = map[string]interface{}{"sold": 2}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ga sold = 2")
}

func TestRun_ScenarioErrors(t *testing.T) {
	tests := []struct {
		name string
		step Step
		want string
	}{
		{
			name: "unknown machine",
			step: Step{Op: OpMintTicket, Signer: "alice", Args: map[string]interface{}{"machine": "vip", "tickets": []interface{}{"x"}}},
			want: `unknown machine "vip"`,
		},
		{
			name: "unknown arg",
			step: Step{Op: OpMintTicket, Signer: "alice", Args: map[string]interface{}{"machine": "ga", "tickets": []interface{}{"x"}, "price": 3}},
			want: "unknown args price",
		},
		{
			name: "negative amount",
			step: Step{Op: OpWithdraw, Signer: "organizer", Args: map[string]interface{}{"event": "launch", "amount": -1}},
			want: "amount must be a non-negative integer",
		},
		{
			name: "undeclared recipient",
			step: Step{Op: OpTransferTicket, Signer: "alice", Args: map[string]interface{}{"ticket": "a1", "to": "mallory"}},
			want: `undeclared identity "mallory"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := parse(t, soldOut)
			s.Steps = append(s.Steps[:3], tt.step)

			_, err := Run(context.Background(), s)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRun_PolicyOverride(t *testing.T) {
	s := parse(t, soldOut)
	s.Policy = &PolicySpec{Minting: string(disco.MintingAuthorityOnly)}
	s.Steps[2].Expect = &Expect{Error: "OnlyEventAuthorityCanMintTickets"}
	s.Steps[3].Expect = &Expect{Error: "OnlyEventAuthorityCanMintTickets"}
	s.Assertions[0].Expect = map[string]interface{}{"sold": 0}

	result, err := Run(context.Background(), s)
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}

func TestRun_DurableBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disco.db")

	st, err := store.Open(path)
	require.NoError(t, err)
	result, err := Run(context.Background(), parse(t, soldOut), WithBackend(st))
	require.NoError(t, err)
	require.True(t, result.Pass, result.Errors)
	require.NoError(t, st.Close())

	// The event survives the reopen, so creating it again fails
	st, err = store.Open(path)
	require.NoError(t, err)
	defer st.Close()

	rerun := parse(t, `
name: rerun
description: the event from the first run is still there
identities:
  - name: organizer
steps:
  - op: create_event
    signer: organizer
    args: {event: launch}
    expect: {error: RecordAlreadyExists}
assertions:
  - type: vault
    event: launch
    expect: {amount: 10}
`)
	result, err = Run(context.Background(), rerun, WithBackend(st))
	require.NoError(t, err)
	assert.True(t, result.Pass, result.Errors)
}
