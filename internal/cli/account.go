package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/disco"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/metadata"
	"github.com/roach88/disco/internal/token"
)

// AccountOptions holds flags for the account command.
type AccountOptions struct {
	*RootOptions
	Database string
}

// Field is one decoded record field.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// AccountResult is a stored account with its record decoded.
type AccountResult struct {
	Address  string  `json:"address"`
	Owner    string  `json:"owner"`
	Program  string  `json:"program"`
	Lamports uint64  `json:"lamports"`
	Size     int     `json:"size"`
	Kind     string  `json:"kind"`
	Fields   []Field `json:"fields,omitempty"`
}

// Text prints the account header and the record fields.
func (r AccountResult) Text(w io.Writer) {
	fmt.Fprintf(w, "%s (%s)\n", r.Address, r.Kind)
	fmt.Fprintf(w, "  owner:    %s (%s)\n", r.Owner, r.Program)
	fmt.Fprintf(w, "  lamports: %d\n", r.Lamports)
	fmt.Fprintf(w, "  size:     %d\n", r.Size)
	for _, f := range r.Fields {
		fmt.Fprintf(w, "  %s: %s\n", f.Name, f.Value)
	}
}

// NewAccountCommand creates the account command.
func NewAccountCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AccountOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "account <address>",
		Short: "Decode a stored account",
		Long: `Load one account from a ledger database and decode its record by owner:
events, collaborators, ticket machines and tickets for the disco program,
mints and holdings for the token program, metadata and master editions for
the metadata program.

Example:
  disco account --db ./disco.db 7Yq3...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccount(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

func runAccount(opts *AccountOptions, arg string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	addr, err := address.Parse(arg)
	if err != nil {
		return out.Fail(ExitCommandError, CodeDecode, fmt.Sprintf("invalid address %q", arg), err)
	}

	st, err := openExisting(databasePath(opts.RootOptions, opts.Database))
	if err != nil {
		return out.Fail(ExitCommandError, CodeStore, "failed to open database", err)
	}
	defer st.Close()

	acc, err := st.Load(cmd.Context(), addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return out.Fail(ExitFailure, CodeNotFound, fmt.Sprintf("account %s not found", addr), nil)
	}
	if err != nil {
		return out.Fail(ExitCommandError, CodeStore, "failed to load account", err)
	}

	res, err := describeAccount(acc)
	if err != nil {
		return out.Fail(ExitFailure, CodeDecode, fmt.Sprintf("cannot decode %s", addr), err)
	}
	return out.Success(res)
}

// describeAccount decodes acc according to its owner.
func describeAccount(acc *ledger.Account) (AccountResult, error) {
	res := AccountResult{
		Address:  acc.Address.String(),
		Owner:    acc.Owner.String(),
		Program:  programName(acc.Owner),
		Lamports: acc.Lamports,
		Size:     len(acc.Data),
	}

	var err error
	switch acc.Owner {
	case ledger.SystemProgramID:
		res.Kind = "Wallet"
		if !acc.IsWallet() {
			err = fmt.Errorf("system account carries %d bytes of data", len(acc.Data))
		}
	case disco.ProgramID:
		res.Kind, res.Fields, err = describeDisco(acc.Data)
	case token.ProgramID:
		res.Kind, res.Fields, err = describeToken(acc)
	case metadata.ProgramID:
		res.Kind, res.Fields, err = describeMetadata(acc)
	default:
		err = fmt.Errorf("unknown owner %s", acc.Owner)
	}
	return res, err
}

func describeDisco(data []byte) (string, []Field, error) {
	kind := disco.RecordKind(data)
	switch kind {
	case "Event":
		ev, err := disco.UnmarshalEvent(data)
		if err != nil {
			return kind, nil, err
		}
		return kind, []Field{
			{"authority", ev.Authority.String()},
			{"accepted_mint", ev.AcceptedMint.String()},
			{"bump", u8(ev.Bump)},
			{"vault_bump", u8(ev.VaultBump)},
			{"mint_bump", u8(ev.MintBump)},
			{"metadata_bump", u8(ev.MetadataBump)},
			{"master_edition_bump", u8(ev.MasterEditionBump)},
			{"collection_vault_bump", u8(ev.CollectionVaultBump)},
		}, nil
	case "Collaborator":
		c, err := disco.UnmarshalCollaborator(data)
		if err != nil {
			return kind, nil, err
		}
		return kind, []Field{{"bump", u8(c.Bump)}}, nil
	case "TicketMachine":
		m, err := disco.UnmarshalTicketMachine(data)
		if err != nil {
			return kind, nil, err
		}
		return kind, []Field{
			{"name", m.Name},
			{"symbol", m.Symbol},
			{"uri", m.URI},
			{"price", u64(m.Price)},
			{"quantity", u64(m.Quantity)},
			{"sold", u64(m.Sold)},
			{"used", u64(m.Used)},
			{"uses", u64(m.Uses)},
			{"bump", u8(m.Bump)},
		}, nil
	case "Ticket":
		t, err := disco.UnmarshalTicket(data)
		if err != nil {
			return kind, nil, err
		}
		return kind, []Field{
			{"authority", t.Authority.String()},
			{"checked_in", strconv.FormatBool(t.CheckedIn)},
			{"bump", u8(t.Bump)},
			{"vault_bump", u8(t.VaultBump)},
			{"mint_bump", u8(t.MintBump)},
			{"metadata_bump", u8(t.MetadataBump)},
			{"master_edition_bump", u8(t.MasterEditionBump)},
		}, nil
	default:
		return "Unknown", nil, errors.New("unrecognised disco record")
	}
}

func describeToken(acc *ledger.Account) (string, []Field, error) {
	if m, err := token.DecodeMint(acc); err == nil {
		return "Mint", []Field{
			{"mint_authority", optAddress(m.MintAuthority)},
			{"freeze_authority", optAddress(m.FreezeAuthority)},
			{"supply", u64(m.Supply)},
			{"decimals", u8(m.Decimals)},
		}, nil
	}
	h, err := token.DecodeAccount(acc)
	if err != nil {
		return "Unknown", nil, err
	}
	return "TokenAccount", []Field{
		{"mint", h.Mint.String()},
		{"owner", h.Owner.String()},
		{"amount", u64(h.Amount)},
	}, nil
}

func describeMetadata(acc *ledger.Account) (string, []Field, error) {
	if md, err := metadata.DecodeMetadata(acc); err == nil {
		fields := []Field{
			{"mint", md.Mint.String()},
			{"update_authority", md.UpdateAuthority.String()},
			{"name", md.Name},
			{"symbol", md.Symbol},
			{"uri", md.URI},
		}
		if md.Uses != nil {
			fields = append(fields,
				Field{"uses.method", md.Uses.Method.String()},
				Field{"uses.remaining", u64(md.Uses.Remaining)},
				Field{"uses.total", u64(md.Uses.Total)},
			)
		}
		if md.Collection != nil {
			fields = append(fields,
				Field{"collection.key", md.Collection.Key.String()},
				Field{"collection.verified", strconv.FormatBool(md.Collection.Verified)},
			)
		}
		return "Metadata", fields, nil
	}
	ed, err := metadata.UnmarshalMasterEdition(acc.Data)
	if err != nil {
		return "Unknown", nil, err
	}
	maxSupply := "unlimited"
	if ed.MaxSupply != nil {
		maxSupply = u64(*ed.MaxSupply)
	}
	return "MasterEdition", []Field{
		{"supply", u64(ed.Supply)},
		{"max_supply", maxSupply},
	}, nil
}

// programName names the well-known programs.
func programName(id address.Address) string {
	switch id {
	case ledger.SystemProgramID:
		return "system"
	case disco.ProgramID:
		return "disco"
	case token.ProgramID:
		return "token"
	case token.AssociatedProgramID:
		return "associated"
	case metadata.ProgramID:
		return "metadata"
	default:
		return "unknown"
	}
}

func optAddress(a address.Address) string {
	if a.IsZero() {
		return "none"
	}
	return a.String()
}

func u8(v uint8) string   { return strconv.FormatUint(uint64(v), 10) }
func u64(v uint64) string { return strconv.FormatUint(v, 10) }
