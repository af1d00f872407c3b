// Package config loads runtime configuration from a CUE file validated
// against an embedded schema. Every field has a default, so an empty or
// absent file yields a working configuration.
package config

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"

	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/ledger"
)

//go:embed schema.cue
var schemaCUE string

// Config is the decoded configuration.
type Config struct {
	Policy PolicyConfig `json:"policy"`
	Rent   RentConfig   `json:"rent"`
	Store  StoreConfig  `json:"store"`
	Log    LogConfig    `json:"log"`
}

type PolicyConfig struct {
	MachineCreation string `json:"machine_creation"`
	Minting         string `json:"minting"`
	CheckIn         string `json:"check_in"`
}

type RentConfig struct {
	LamportsPerByte uint64 `json:"lamports_per_byte"`
	Overhead        uint64 `json:"overhead"`
}

type StoreConfig struct {
	Path string `json:"path"`
}

type LogConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
}

// Error reports an invalid configuration with its source position.
type Error struct {
	Path    string
	Message string
}

func (e *Error) Error() string {
	if e.Path == "" {
		return "config: " + e.Message
	}
	return fmt.Sprintf("config %s: %s", e.Path, e.Message)
}

// Default returns the configuration an empty file produces.
func Default() *Config {
	cfg, err := parse("", nil)
	if err != nil {
		// The embedded schema is part of the binary
		panic(err)
	}
	return cfg
}

// Load reads the CUE file at path. An empty path returns Default().
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Message: err.Error()}
	}
	return parse(path, data)
}

// Parse validates CUE source against the schema.
func Parse(data []byte) (*Config, error) {
	return parse("", data)
}

func parse(path string, data []byte) (*Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &Error{Message: "schema: " + err.Error()}
	}
	v := schema.LookupPath(cue.ParsePath("#Config"))

	if len(data) > 0 {
		name := path
		if name == "" {
			name = "config.cue"
		}
		user := ctx.CompileBytes(data, cue.Filename(name))
		if err := user.Err(); err != nil {
			return nil, &Error{Path: path, Message: details(err)}
		}
		v = v.Unify(user)
	}

	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, &Error{Path: path, Message: details(err)}
	}
	var cfg Config
	if err := v.Decode(&cfg); err != nil {
		return nil, &Error{Path: path, Message: details(err)}
	}
	return &cfg, nil
}

func details(err error) string {
	return cueerrors.Details(err, nil)
}

// DiscoPolicy converts the policy section.
func (c *Config) DiscoPolicy() disco.Policy {
	return disco.Policy{
		MachineCreation: disco.MachineCreationPolicy(c.Policy.MachineCreation),
		Minting:         disco.MintingPolicy(c.Policy.Minting),
		CheckIn:         disco.CheckInPolicy(c.Policy.CheckIn),
	}
}

// LedgerRent converts the rent section.
func (c *Config) LedgerRent() ledger.Rent {
	return ledger.Rent{
		LamportsPerByte: c.Rent.LamportsPerByte,
		Overhead:        c.Rent.Overhead,
	}
}

// LogLevel converts the log level.
func (c *Config) LogLevel() slog.Level {
	switch c.Log.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
