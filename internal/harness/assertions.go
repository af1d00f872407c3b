package harness

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/disco/internal/codec"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s by %s: %s", event.Step, event.Op, event.Signer, event.Status)
			if event.Error != "" {
				fmt.Fprintf(&buf, " (%s)", event.Error)
			}
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertMachine:
			err = assertRecord(result.State, "machines", assertion.Machine, assertion)
		case AssertTicket:
			err = assertRecord(result.State, "tickets", assertion.Ticket, assertion)
		case AssertBalance:
			err = assertAmount(result.State, "balances", assertion.Identity, assertion)
		case AssertVault:
			err = assertAmount(result.State, "vaults", assertion.Event, assertion)
		case AssertCollaborator:
			err = assertCollaborator(result.State, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertRecord checks a snapshot record against the expected fields
// (subset match).
func assertRecord(state map[string]interface{}, section, name string, a Assertion) error {
	records, _ := state[section].(map[string]interface{})
	rec, ok := records[name].(map[string]interface{})
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s %q to exist", a.Type, name),
			Actual:   "not found in final state",
		}
	}
	return matchFields(a.Type, name, rec, a.Expect)
}

// assertAmount checks a token amount. The expectation is {amount: N}.
func assertAmount(state map[string]interface{}, section, name string, a Assertion) error {
	amounts, _ := state[section].(map[string]interface{})
	amount, ok := amounts[name]
	if !ok {
		return &AssertionError{
			Type:     a.Type,
			Expected: fmt.Sprintf("%s of %q", a.Type, name),
			Actual:   "not found in final state",
		}
	}
	return matchFields(a.Type, name, map[string]interface{}{"amount": amount}, a.Expect)
}

// assertCollaborator checks whether a collaborator record is live. The
// expectation is {exists: bool}.
func assertCollaborator(state map[string]interface{}, a Assertion) error {
	key := a.Event + "/" + a.Collaborator
	collaborators, _ := state["collaborators"].(map[string]interface{})
	exists, ok := collaborators[key]
	if !ok {
		exists = false
	}
	return matchFields(a.Type, key, map[string]interface{}{"exists": exists}, a.Expect)
}

// matchFields reports the first expected field (in key order) whose value
// differs from actual.
func matchFields(kind, name string, actual, expected map[string]interface{}) error {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		actualValue, exists := actual[key]
		if !exists {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("%s field %q to exist", name, key),
				Actual:   fmt.Sprintf("fields present: %s", strings.Join(sortedKeys(actual), ", ")),
			}
		}
		if !valuesEqual(expected[key], actualValue) {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("%s %s = %v", name, key, expected[key]),
				Actual:   fmt.Sprintf("%s %s = %v", name, key, actualValue),
			}
		}
	}
	return nil
}

// valuesEqual compares by canonical JSON, so a YAML int matches a uint64
// counter and strings compare after NFC normalization.
func valuesEqual(expected, actual interface{}) bool {
	a, err := codec.MarshalCanonical(expected)
	if err != nil {
		return false
	}
	b, err := codec.MarshalCanonical(actual)
	if err != nil {
		return false
	}
	return bytes.Equal(a, b)
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// assertTraceCount checks how many steps ran the op, optionally only those
// with the given status.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op != assertion.Op {
			continue
		}
		if assertion.Status != "" && event.Status != assertion.Status {
			continue
		}
		count++
	}

	if count != assertion.Count {
		what := assertion.Op
		if assertion.Status != "" {
			what += " (" + assertion.Status + ")"
		}
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, what),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that committed steps ran the ops in the given
// order. Intervening steps are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Ops) {
			break
		}
		if event.Status == StatusCommitted && event.Op == assertion.Ops[next] {
			next++
		}
	}

	if next < len(assertion.Ops) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("committed ops in order: %v", assertion.Ops),
			Actual:   fmt.Sprintf("no committed %s after %v", assertion.Ops[next], assertion.Ops[:next]),
			Trace:    trace,
		}
	}
	return nil
}
