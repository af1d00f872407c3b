package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogCommand(t *testing.T) {
	dbPath := runFixture(t)

	buf := &bytes.Buffer{}
	cmd := NewLogCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "committed system.airdrop")
	assert.Contains(t, output, "committed disco.create_event")
	assert.Contains(t, output, "failed disco.set_ticket_authority CheckedInTicketsCantChangeAuthority")
	assert.Contains(t, output, "failed disco.mint_ticket NotEnoughTicketsAvailable")
	assert.NotContains(t, output, "message:")
}

func TestLogCommandFailedOnlyJSON(t *testing.T) {
	dbPath := runFixture(t)

	buf := &bytes.Buffer{}
	cmd := NewLogCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--failed"})
	require.NoError(t, cmd.Execute())

	var response struct {
		Status string    `json:"status"`
		Data   LogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &response))
	assert.Equal(t, "ok", response.Status)

	var names []string
	for _, e := range response.Data.Entries {
		assert.Equal(t, "failed", e.Status)
		names = append(names, e.Error)
	}
	assert.Equal(t, []string{"CheckedInTicketsCantChangeAuthority", "NotEnoughTicketsAvailable"}, names)
}

func TestLogCommandSinceAndVerbose(t *testing.T) {
	dbPath := runFixture(t)

	buf := &bytes.Buffer{}
	cmd := NewLogCommand(&RootOptions{Format: "json", Verbose: true})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--db", dbPath})
	require.NoError(t, cmd.Execute())

	var all struct {
		Data LogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &all))
	require.NotEmpty(t, all.Data.Entries)

	last := all.Data.Entries[len(all.Data.Entries)-1]
	assert.Equal(t, "failed", last.Status)
	assert.NotEmpty(t, last.Message, "signed messages are shown in diagnostic notation")
	assert.NotEmpty(t, last.Signers)

	buf.Reset()
	cmd = NewLogCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--since", "2"})
	require.NoError(t, cmd.Execute())

	var tail struct {
		Data LogResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &tail))
	require.Len(t, tail.Data.Entries, len(all.Data.Entries)-2)
	assert.Equal(t, int64(3), tail.Data.Entries[0].Seq)
}

func TestLogCommandMissingDatabase(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewLogCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--db", filepath.Join(t.TempDir(), "absent.db")})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E_STORE]")
}
