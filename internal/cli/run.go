package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/disco/internal/harness"
	"github.com/roach88/disco/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
}

// RunResult is the output of the run command.
type RunResult struct {
	Scenario string                 `json:"scenario"`
	Database string                 `json:"database"`
	Pass     bool                   `json:"pass"`
	Steps    []RunStep              `json:"steps"`
	Errors   []string               `json:"errors,omitempty"`
	State    map[string]interface{} `json:"state,omitempty"`
}

// RunStep is a trace event with the ledger seq it landed at.
type RunStep struct {
	harness.TraceEvent
	Seq int64 `json:"seq"`
}

// Text prints the step log followed by any failures.
func (r RunResult) Text(w io.Writer) {
	for _, s := range r.Steps {
		line := fmt.Sprintf("[%d] %s by %s: %s", s.Step, s.Op, s.Signer, s.Status)
		if s.Signer == "" {
			line = fmt.Sprintf("[%d] %s: %s", s.Step, s.Op, s.Status)
		}
		if s.Error != "" {
			line += " (" + s.Error + ")"
		}
		fmt.Fprintf(w, "%s  seq %d\n", line, s.Seq)
	}
	mark := "✓"
	if !r.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s -> %s\n", mark, r.Scenario, r.Database)
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run a scenario against a durable ledger",
		Long: `Run one scenario file against a SQLite ledger.

Unlike test, the ledger is kept: accounts and the transaction log remain in
the database for the log and account commands. Running the same scenario
twice against one database fails, since its events already exist.

Example:
  disco run --db ./disco.db ./scenarios/staff_and_transfer.yaml
  disco run ./scenarios/open_policy.yaml --config ./disco.cue --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")

	return cmd
}

// databasePath returns --db, falling back to the configured store path.
func databasePath(root *RootOptions, flag string) string {
	if flag != "" {
		return flag
	}
	return root.Config().Store.Path
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	cfg := opts.Config()

	logger, flush := opts.NewLogger(cmd.ErrOrStderr())
	defer flush()

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	dbPath := databasePath(opts.RootOptions, opts.Database)
	logger.Info("opening database", "path", dbPath)
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	result, err := harness.Run(cmd.Context(), scenario,
		harness.WithBackend(st),
		harness.WithPolicy(cfg.DiscoPolicy()),
		harness.WithRent(cfg.LedgerRent()),
		harness.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenario aborted", err)
	}

	res := RunResult{
		Scenario: scenario.Name,
		Database: dbPath,
		Pass:     result.Pass,
		Steps:    make([]RunStep, len(result.Trace)),
		Errors:   result.Errors,
	}
	for i, ev := range result.Trace {
		res.Steps[i] = RunStep{TraceEvent: ev, Seq: ev.Seq}
	}
	if opts.Verbose {
		res.State = result.State
	}

	if err := out.Success(res); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", scenario.Name))
	}
	return nil
}
