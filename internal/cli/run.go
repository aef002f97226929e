package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/unistate/internal/counter"
	"github.com/roach88/unistate/internal/harness"
	"github.com/roach88/unistate/internal/journal"
	"github.com/roach88/unistate/internal/trace"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	Timeout  time.Duration
}

// RunOutput is the result payload of the run command.
type RunOutput struct {
	Scenario string        `json:"scenario"`
	Pass     bool          `json:"pass"`
	State    counter.State `json:"state"`
	Changes  int           `json:"changes"`
	Events   int           `json:"events"`
	Faults   []string      `json:"faults,omitempty"`
	Errors   []string      `json:"errors,omitempty"`
	RunID    string        `json:"run_id,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario>",
		Short: "Run one scenario against a fresh store",
		Long: `Run a scenario file against a fresh counter store and report the
final state, the number of state changes and the assertion results.

With --db the full trace is journaled to SQLite (the file is created if it
doesn't exist) and can be inspected later with "unistate trace".

Example:
  unistate run ./scenarios/fetch_success.yaml
  unistate run --db ./unistate.db ./scenarios/fetch_success.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (optional)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", harness.DefaultStepTimeout, "maximum time for one step to settle")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := formatter.Logger()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeInvalidScenario, "failed to load scenario", err)
	}

	// Journal bookkeeping must still land after an interrupt.
	journalCtx := context.WithoutCancel(ctx)

	runOpts := []harness.RunOption{
		harness.WithContext(ctx),
		harness.WithLogger(logger),
		harness.WithStepTimeout(opts.Timeout),
	}

	var run *journal.Run
	if opts.Database != "" {
		logger.Debug("opening journal", "path", opts.Database)
		j, err := journal.Open(opts.Database)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeJournal, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		run, err = j.BeginRun(journalCtx, scenario.Name)
		if err != nil {
			return fail(formatter, ExitCommandError, ErrCodeJournal, "failed to begin journal run", err)
		}
		run.WithLogger(logger)
		runOpts = append(runOpts, harness.WithRecorder(run))
	}

	logger.Info("running scenario", "scenario", scenario.Name, "steps", len(scenario.Steps))
	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		if run != nil {
			if finishErr := run.Finish(journalCtx, ""); finishErr != nil {
				logger.Error("error finishing journal run", "run_id", run.ID(), "error", finishErr)
			}
		}
		return fail(formatter, ExitFailure, ErrCodeRunFailed, "scenario execution failed", err)
	}

	out := RunOutput{
		Scenario: scenario.Name,
		Pass:     result.Pass,
		State:    result.State,
		Changes:  result.Changes,
		Events:   len(result.Trace),
		Faults:   result.Faults,
		Errors:   result.Errors,
	}

	if run != nil {
		out.RunID = run.ID()
		finalState, err := trace.MarshalCanonical(result.State.Canonical())
		if err != nil {
			return fail(formatter, ExitFailure, ErrCodeJournal, "failed to encode final state", err)
		}
		if err := run.Finish(journalCtx, string(finalState)); err != nil {
			return fail(formatter, ExitFailure, ErrCodeJournal, "failed to finish journal run", err)
		}
		logger.Debug("run journaled", "run_id", run.ID(), "events", run.Len())
	}

	if formatter.IsJSON() {
		if !out.Pass {
			if err := formatter.Failure(ErrCodeAssertions, "scenario assertions failed", out); err != nil {
				return err
			}
			return NewExitError(ExitFailure, "scenario assertions failed")
		}
		return formatter.Success(out)
	}

	outputRunText(cmd, out, result.Trace, opts.Verbose)
	if !out.Pass {
		return NewExitError(ExitFailure, "scenario assertions failed")
	}
	return nil
}

// outputRunText prints a run summary, with the full timeline when verbose.
func outputRunText(cmd *cobra.Command, out RunOutput, events []trace.Event, verbose bool) {
	w := cmd.OutOrStdout()

	mark := "✓"
	if !out.Pass {
		mark = "✗"
	}
	fmt.Fprintf(w, "%s %s (%d events, %d changes)\n", mark, out.Scenario, out.Events, out.Changes)
	fmt.Fprintf(w, "  state: %s\n", formatState(out.State))
	if out.RunID != "" {
		fmt.Fprintf(w, "  journal run: %s\n", out.RunID)
	}
	for _, f := range out.Faults {
		fmt.Fprintf(w, "  fault: %s\n", f)
	}
	for _, e := range out.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}

	if verbose {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Timeline ===")
		for i, ev := range events {
			formatTimelineEvent(w, i, ev)
		}
	}
}

// formatState renders a state on one line.
func formatState(s counter.State) string {
	return fmt.Sprintf("count=%d loading=%t data=%q error=%q", s.Count, s.Loading, s.Data, s.Error)
}
