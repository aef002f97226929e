package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/unistate/internal/journal"
	"github.com/roach88/unistate/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - defaults to the latest run
	Kind     string // optional - filter to one event kind
	List     bool   // list runs instead of showing one
}

// TraceResult holds the trace of one journaled run.
type TraceResult struct {
	RunID      string        `json:"run_id"`
	Label      string        `json:"label"`
	Status     string        `json:"status"`
	FinalState string        `json:"final_state,omitempty"`
	Timeline   []trace.Event `json:"timeline"`
	Stats      TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for a run.
type TraceStats struct {
	TotalEvents  int `json:"total_events"`
	Commits      int `json:"commits"`
	Units        int `json:"units"`
	Dropped      int `json:"dropped"`
	EffectFailed int `json:"effect_failed"`
	Faults       int `json:"faults"`
}

// RunSummary is one entry of the run list.
type RunSummary struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Status string `json:"status"`
	Events int    `json:"events"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the trace of a journaled run",
		Long: `Show the engine trace recorded by "unistate run --db".

The output includes:
- Timeline: every engine event of the run, in recording order
- Stats: commits, background units, dropped work, failures and faults

Without --run the most recent run is shown. --list prints all runs.

Examples:
  unistate trace --db ./unistate.db
  unistate trace --db ./unistate.db --list
  unistate trace --db ./unistate.db --run <id> --kind commit
  unistate trace --db ./unistate.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id (default: latest run)")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter timeline to one event kind")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list journaled runs")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	// journal.Open creates missing files; a typo in --db should not.
	if _, err := os.Stat(opts.Database); err != nil {
		return fail(formatter, ExitCommandError, ErrCodeNotFound,
			fmt.Sprintf("journal not found: %s", opts.Database), nil)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, "failed to open journal", err)
	}
	defer j.Close()

	if opts.List {
		return listRuns(ctx, j, formatter, cmd.OutOrStdout())
	}

	var info journal.RunInfo
	if opts.RunID == "" {
		info, err = j.LatestRun(ctx)
	} else {
		info, err = j.RunInfo(ctx, opts.RunID)
	}
	if errors.Is(err, journal.ErrRunNotFound) {
		return fail(formatter, ExitCommandError, ErrCodeNotFound, "run not found", err)
	}
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, "failed to read run", err)
	}

	events, err := j.ReadRun(ctx, info.ID)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, "failed to read events", err)
	}

	result := TraceResult{
		RunID:      info.ID,
		Label:      info.Label,
		Status:     info.Status,
		FinalState: info.FinalState,
		Timeline:   filterTimeline(events, opts.Kind),
		Stats:      buildStats(events),
	}

	if formatter.IsJSON() {
		return formatter.Success(result)
	}
	outputTraceText(cmd.OutOrStdout(), result)
	return nil
}

func listRuns(ctx context.Context, j *journal.Journal, formatter *OutputFormatter, w io.Writer) error {
	runs, err := j.Runs(ctx)
	if err != nil {
		return fail(formatter, ExitCommandError, ErrCodeJournal, "failed to list runs", err)
	}

	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{ID: r.ID, Label: r.Label, Status: r.Status, Events: r.Events}
	}

	if formatter.IsJSON() {
		return formatter.Success(summaries)
	}

	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs journaled.")
		return nil
	}
	for _, s := range summaries {
		fmt.Fprintf(w, "%s  %-9s %4d events  %s\n", s.ID, s.Status, s.Events, s.Label)
	}
	return nil
}

// filterTimeline keeps events of kind, or all events when kind is empty.
func filterTimeline(events []trace.Event, kind string) []trace.Event {
	if kind == "" {
		return events
	}
	out := trace.Filter(events, trace.Kind(kind))
	if out == nil {
		out = []trace.Event{}
	}
	return out
}

func buildStats(events []trace.Event) TraceStats {
	return TraceStats{
		TotalEvents:  len(events),
		Commits:      trace.Count(events, trace.KindCommit, ""),
		Units:        trace.Count(events, trace.KindSchedule, ""),
		Dropped:      trace.Count(events, trace.KindDropped, ""),
		EffectFailed: trace.Count(events, trace.KindEffectFailed, ""),
		Faults:       trace.Count(events, trace.KindFault, ""),
	}
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult) {
	fmt.Fprintf(w, "Trace for run: %s (%s)\n", result.RunID, result.Label)
	fmt.Fprintf(w, "Status: %s\n", result.Status)
	if result.FinalState != "" {
		fmt.Fprintf(w, "Final state: %s\n", result.FinalState)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for i, ev := range result.Timeline {
		formatTimelineEvent(w, i, ev)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events:  %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Commits:       %d\n", result.Stats.Commits)
	fmt.Fprintf(w, "  Units:         %d\n", result.Stats.Units)
	fmt.Fprintf(w, "  Dropped:       %d\n", result.Stats.Dropped)
	fmt.Fprintf(w, "  Effect Failed: %d\n", result.Stats.EffectFailed)
	fmt.Fprintf(w, "  Faults:        %d\n", result.Stats.Faults)
}

// formatTimelineEvent formats a single timeline event for text output.
func formatTimelineEvent(w io.Writer, i int, ev trace.Event) {
	fmt.Fprintf(w, "  %3d  %-13s", i+1, ev.Kind)
	if ev.Name != "" {
		fmt.Fprintf(w, " %s", ev.Name)
	}
	if ev.Seq != 0 {
		fmt.Fprintf(w, " seq=%d", ev.Seq)
	}
	if ev.TaskID != "" {
		fmt.Fprintf(w, " task=%s", ev.TaskID)
	}
	if ev.Detail != "" {
		fmt.Fprintf(w, " (%s)", ev.Detail)
	}
	fmt.Fprintln(w)
}
