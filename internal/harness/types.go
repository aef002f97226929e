package harness

import (
	"github.com/roach88/unistate/internal/counter"
	"github.com/roach88/unistate/internal/trace"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Trace holds every engine event in recording order.
	Trace []trace.Event `json:"trace"`

	// Errors contains assertion failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the store state after the last step settled.
	State counter.State `json:"state"`

	// Changes counts didChange notifications.
	Changes int `json:"changes"`

	// Faults holds the messages of every reported fault.
	Faults []string `json:"faults,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []trace.Event{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
