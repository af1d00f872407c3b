package harness

// Step statuses in the trace.
const (
	StatusCommitted = "committed"
	StatusFailed    = "failed"
)

// TraceEvent records one executed step.
type TraceEvent struct {
	Step   int                    `json:"step"` // 1-indexed
	Op     string                 `json:"op"`
	Signer string                 `json:"signer,omitempty"`
	Args   map[string]interface{} `json:"args,omitempty"`
	Status string                 `json:"status"`
	Error  string                 `json:"error,omitempty"`

	// Seq is the ledger seq of the step's last transaction. Not part of
	// golden traces: it depends on how many bootstrap transactions ran.
	Seq int64 `json:"-"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every step behaved as expected and
	// every assertion held.
	Pass bool `json:"pass"`

	// Trace contains every step in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final state snapshot keyed by section
	// ("machines", "tickets", "balances", "vaults", "collaborators").
	State map[string]interface{} `json:"state,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		State:  make(map[string]interface{}),
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step to the trace.
func (r *Result) AddTrace(e TraceEvent) {
	r.Trace = append(r.Trace, e)
}
