package trace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvent_Canonical_OmitsEmpty(t *testing.T) {
	ev := Event{Kind: KindShutdown}
	assert.Equal(t, map[string]any{"kind": "shutdown"}, ev.Canonical())
}

func TestEvent_Canonical_AllFields(t *testing.T) {
	ev := Event{Kind: KindCommit, Name: "Set", TaskID: "task-2", Seq: 7, Detail: "x"}
	assert.Equal(t, map[string]any{
		"kind":    "commit",
		"name":    "Set",
		"task_id": "task-2",
		"seq":     int64(7),
		"detail":  "x",
	}, ev.Canonical())
}

func TestFilterAndCount(t *testing.T) {
	events := []Event{
		{Kind: KindDispatch, Name: "A"},
		{Kind: KindCommit, Name: "A", Seq: 1},
		{Kind: KindDispatch, Name: "B"},
		{Kind: KindUnchanged, Name: "B"},
		{Kind: KindDispatch, Name: "A"},
		{Kind: KindCommit, Name: "A", Seq: 2},
	}

	commits := Filter(events, KindCommit)
	assert.Len(t, commits, 2)
	assert.Equal(t, int64(2), commits[1].Seq)
	assert.Empty(t, Filter(events, KindFault))

	assert.Equal(t, 3, Count(events, KindDispatch, ""))
	assert.Equal(t, 2, Count(events, KindDispatch, "A"))
	assert.Equal(t, 1, Count(events, KindUnchanged, "B"))
	assert.Equal(t, 0, Count(events, KindCommit, "B"))
}
