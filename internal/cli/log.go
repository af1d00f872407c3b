package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/disco/internal/address"
	"github.com/roach88/disco/internal/codec"
	"github.com/roach88/disco/internal/ledger"
	"github.com/roach88/disco/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	Failed   bool  // only failed transactions
	Since    int64 // only seq > Since
}

// LogEntry is one transaction log entry as printed.
type LogEntry struct {
	Seq          int64    `json:"seq"`
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Instructions []string `json:"instructions"`
	Signers      []string `json:"signers"`
	Error        string   `json:"error,omitempty"`
	Message      string   `json:"message,omitempty"`
	Logs         []string `json:"logs,omitempty"`
}

// LogResult is the output of the log command.
type LogResult struct {
	Entries []LogEntry `json:"entries"`
}

// Text prints one line per transaction, with logs and the decoded message
// when they were collected.
func (r LogResult) Text(w io.Writer) {
	if len(r.Entries) == 0 {
		fmt.Fprintln(w, "No transactions.")
		return
	}
	for _, e := range r.Entries {
		line := fmt.Sprintf("#%d %s %s %s", e.Seq, shortID(e.ID), e.Status, strings.Join(e.Instructions, ","))
		if e.Error != "" {
			line += " " + e.Error
		}
		fmt.Fprintln(w, line)
		for _, l := range e.Logs {
			fmt.Fprintf(w, "    log: %s\n", l)
		}
		if e.Message != "" {
			fmt.Fprintf(w, "    message: %s\n", e.Message)
		}
	}
}

func shortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:12]
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List the transaction log",
		Long: `List every transaction recorded in a ledger database, committed and
failed, in seq order. With --verbose each entry also shows its program logs
and the signed message in CBOR diagnostic notation.

Example:
  disco log --db ./disco.db
  disco log --db ./disco.db --failed --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().BoolVar(&opts.Failed, "failed", false, "only show failed transactions")
	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only show transactions after this seq")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	st, err := openExisting(databasePath(opts.RootOptions, opts.Database))
	if err != nil {
		return out.Fail(ExitCommandError, CodeStore, "failed to open database", err)
	}
	defer st.Close()

	filter := store.EntryFilter{After: opts.Since}
	if opts.Failed {
		filter.Status = ledger.StatusFailed
	}
	entries, err := st.FindEntries(cmd.Context(), filter)
	if err != nil {
		return out.Fail(ExitCommandError, CodeStore, "failed to read transaction log", err)
	}

	res := LogResult{Entries: make([]LogEntry, 0, len(entries))}
	for _, e := range entries {
		le := LogEntry{
			Seq:          e.Seq,
			ID:           e.ID,
			Status:       string(e.Status),
			Instructions: e.Instructions,
			Signers:      addressStrings(e.Signers),
			Error:        e.ErrorName,
		}
		if opts.Verbose {
			le.Logs = e.Logs
			if len(e.Message) > 0 {
				diag, err := codec.Diagnose(e.Message)
				if err != nil {
					return out.Fail(ExitCommandError, CodeDecode, fmt.Sprintf("failed to decode message #%d", e.Seq), err)
				}
				le.Message = diag
			}
		}
		res.Entries = append(res.Entries, le)
	}

	return out.Success(res)
}

func addressStrings(addrs []address.Address) []string {
	s := make([]string, len(addrs))
	for i, a := range addrs {
		s[i] = a.String()
	}
	return s
}

// openExisting opens a database that must already exist; store.Open would
// silently create an empty one.
func openExisting(path string) (*store.Store, error) {
	if path != ":memory:" {
		if _, err := os.Stat(path); err != nil {
			return nil, err
		}
	}
	return store.Open(path)
}
