package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/ledger"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, disco.DefaultPolicy(), cfg.DiscoPolicy())
	assert.Equal(t, ledger.DefaultRent(), cfg.LedgerRent())
	assert.Equal(t, "disco.db", cfg.Store.Path)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel())
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "disco.cue")
	src := `
policy: {
	machine_creation: "open"
	check_in:         "any_signer"
}
rent: lamports_per_byte: 0
store: path: ":memory:"
log: level: "debug"
`
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	policy := cfg.DiscoPolicy()
	assert.Equal(t, disco.MachineCreationOpen, policy.MachineCreation)
	assert.Equal(t, disco.MintingOpen, policy.Minting, "unset fields keep defaults")
	assert.Equal(t, disco.CheckInAnySigner, policy.CheckIn)
	require.NoError(t, policy.Validate())

	assert.Equal(t, ledger.Rent{LamportsPerByte: 0, Overhead: 128}, cfg.LedgerRent())
	assert.Equal(t, ":memory:", cfg.Store.Path)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel())
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown policy value", `policy: minting: "whitelist"`},
		{"unknown field", `policy: refunds: "open"`},
		{"unknown section", `network: "mainnet"`},
		{"negative rent", `rent: overhead: -1`},
		{"empty store path", `store: path: ""`},
		{"bad log format", `log: format: "xml"`},
		{"syntax error", `policy: {`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			var cfgErr *Error
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.cue")
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
