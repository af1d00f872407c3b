package cli

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/metadata"
	"github.com/roach88/disco/internal/token"
)

// DeriveOptions holds flags for the derive command.
type DeriveOptions struct {
	*RootOptions
	Program string
	Seeds   []string
}

// DeriveResult is a derived address and the bump that produced it.
type DeriveResult struct {
	Program string `json:"program"`
	Address string `json:"address"`
	Bump    uint8  `json:"bump"`
}

// Text prints the address and bump.
func (r DeriveResult) Text(w io.Writer) {
	fmt.Fprintf(w, "%s (bump %d)\n", r.Address, r.Bump)
}

// NewDeriveCommand creates the derive command.
func NewDeriveCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DeriveOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Compute a derived address",
		Long: `Compute the program-derived address for a list of seeds, searching bumps
from 255 down to the first off-curve result.

Seeds are kind:value pairs, in order:
  str:<text>       UTF-8 bytes
  addr:<base58>    the 32 address bytes
  hex:<hex>        raw bytes
  u8:<n>           one byte
  u64:<n>          eight bytes, little-endian

--program takes disco, token, associated, metadata or a base58 program id.

Example:
  disco derive --program disco --seed str:event --seed addr:<authority> --seed str:launch`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDerive(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Program, "program", "disco", "program that owns the address")
	cmd.Flags().StringArrayVar(&opts.Seeds, "seed", nil, "seed as kind:value (repeatable)")

	return cmd
}

func runDerive(opts *DeriveOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	program, err := resolveProgram(opts.Program)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid program", err)
	}

	seeds := make([][]byte, 0, len(opts.Seeds))
	for _, s := range opts.Seeds {
		b, err := parseSeed(s)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid seed %q", s), err)
		}
		seeds = append(seeds, b)
	}

	addr, bump, err := address.Find(seeds, program)
	if err != nil {
		return WrapExitError(ExitFailure, "derivation failed", err)
	}
	out.VerboseLog("derived %s from %d seeds under %s", addr, len(seeds), program)

	return out.Success(DeriveResult{
		Program: program.String(),
		Address: addr.String(),
		Bump:    bump,
	})
}

func resolveProgram(name string) (address.Address, error) {
	switch name {
	case "disco":
		return disco.ProgramID, nil
	case "token":
		return token.ProgramID, nil
	case "associated":
		return token.AssociatedProgramID, nil
	case "metadata":
		return metadata.ProgramID, nil
	default:
		return address.Parse(name)
	}
}

func parseSeed(s string) ([]byte, error) {
	kind, value, ok := strings.Cut(s, ":")
	if !ok {
		return nil, fmt.Errorf("expected kind:value")
	}
	switch kind {
	case "str":
		return []byte(value), nil
	case "addr":
		a, err := address.Parse(value)
		if err != nil {
			return nil, err
		}
		return a.Bytes(), nil
	case "hex":
		return hex.DecodeString(value)
	case "u8":
		n, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return nil, err
		}
		return []byte{uint8(n)}, nil
	case "u64":
		n, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return nil, err
		}
		return binary.LittleEndian.AppendUint64(nil, n), nil
	default:
		return nil, fmt.Errorf("unknown seed kind %q", kind)
	}
}
