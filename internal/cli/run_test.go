package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runFixture runs the price_100_quantity_2 scenario into a fresh database
// and returns its path.
func runFixture(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "disco.db")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, filepath.Join(fixtureScenarios, "price_100_quantity_2.yaml")})
	require.NoError(t, cmd.Execute(), buf.String())
	return dbPath
}

func TestRunMissingArgs(t *testing.T) {
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestRunInvalidScenario(t *testing.T) {
	dir := t.TempDir()
	path := writeScenario(t, dir, "bad", "name: bad\ndescription: no steps\n")

	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", filepath.Join(dir, "disco.db"), path})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load scenario")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestRunCommitsToDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "disco.db")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, filepath.Join(fixtureScenarios, "price_100_quantity_2.yaml")})
	require.NoError(t, cmd.Execute(), buf.String())

	output := buf.String()
	assert.Contains(t, output, "[1] create_event by organizer: committed")
	assert.Contains(t, output, "[7] mint_ticket by carol: failed (NotEnoughTicketsAvailable)")
	assert.Contains(t, output, "✓ price_100_quantity_2 -> "+dbPath)

	// A second run finds the event already there
	buf.Reset()
	cmd = NewRunCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, filepath.Join(fixtureScenarios, "price_100_quantity_2.yaml")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var response struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.False(t, response.Data.Pass)
	require.NotEmpty(t, response.Data.Steps)
	assert.Equal(t, "RecordAlreadyExists", response.Data.Steps[0].Error)
}

func TestRunJSONCarriesSeqs(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "disco.db")

	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "json", Verbose: true})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath, filepath.Join(fixtureScenarios, "open_policy.yaml")})
	require.NoError(t, cmd.Execute(), buf.String())

	var response struct {
		Status string    `json:"status"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)
	assert.True(t, response.Data.Pass)

	var last int64
	for _, s := range response.Data.Steps {
		if s.Status != "committed" {
			assert.Zero(t, s.Seq, "step %d", s.Step)
			continue
		}
		assert.Greater(t, s.Seq, last, "step %d", s.Step)
		last = s.Seq
	}
	assert.Contains(t, response.Data.State, "machines")
}

func TestRunLogsAsJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "disco.db")

	logs := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text", LogFormat: "json"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(logs)
	cmd.SetArgs([]string{"--db", dbPath, filepath.Join(fixtureScenarios, "open_policy.yaml")})
	require.NoError(t, cmd.Execute())

	first, _, _ := bytes.Cut(logs.Bytes(), []byte("\n"))
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(first, &line))
	assert.Equal(t, "opening database", line["msg"])
	assert.Equal(t, dbPath, line["path"])
}
