package trace

// Kind identifies a pipeline stage.
type Kind string

const (
	// KindDispatch: a mutation entered the write path.
	KindDispatch Kind = "dispatch"
	// KindAction: an action was evaluated against a state snapshot.
	KindAction Kind = "action"
	// KindNoop: a no-op mutation short-circuited dispatch.
	KindNoop Kind = "noop"
	// KindUnchanged: reduce ran but produced an equal state; no notifications fired.
	KindUnchanged Kind = "unchanged"
	// KindCommit: a new state was committed. Seq carries the commit clock value.
	KindCommit Kind = "commit"
	// KindSchedule: a background unit was registered.
	KindSchedule Kind = "schedule"
	// KindComplete: a background unit finished and deregistered.
	KindComplete Kind = "complete"
	// KindDropped: work was skipped because its unit or the store was cancelled.
	KindDropped Kind = "dropped"
	// KindEffectFailed: a leaf effect returned an error; its chain ends.
	KindEffectFailed Kind = "effect_failed"
	// KindFault: a programming-error fault was reported.
	KindFault Kind = "fault"
	// KindIngestDone: an ingestion stream was exhausted.
	KindIngestDone Kind = "ingest_done"
	// KindShutdown: the store was torn down. Detail carries the cancelled unit count.
	KindShutdown Kind = "shutdown"
)

// Event is a single trace record.
//
// Name is the mutation, action or effect name (see engine.NameOf). TaskID is
// set for events that happen inside, or describe, a background unit. Seq is
// only set on commit events.
type Event struct {
	Kind   Kind   `json:"kind"`
	Name   string `json:"name,omitempty"`
	TaskID string `json:"task_id,omitempty"`
	Seq    int64  `json:"seq,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Canonical converts the event to a map suitable for MarshalCanonical.
// Empty fields are omitted, matching the JSON tags.
func (e Event) Canonical() map[string]any {
	m := map[string]any{"kind": string(e.Kind)}
	if e.Name != "" {
		m["name"] = e.Name
	}
	if e.TaskID != "" {
		m["task_id"] = e.TaskID
	}
	if e.Seq != 0 {
		m["seq"] = e.Seq
	}
	if e.Detail != "" {
		m["detail"] = e.Detail
	}
	return m
}

// Filter returns the events of the given kind, in order.
func Filter(events []Event, kind Kind) []Event {
	var out []Event
	for _, ev := range events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

// Count returns how many events match kind and, if name is non-empty, name.
func Count(events []Event, kind Kind, name string) int {
	n := 0
	for _, ev := range events {
		if ev.Kind != kind {
			continue
		}
		if name != "" && ev.Name != name {
			continue
		}
		n++
	}
	return n
}
