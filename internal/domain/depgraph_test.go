package domain

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestCheckCompletionListsBlockingIDs(t *testing.T) {
	snapshot := DependencySnapshot{
		"t2": TaskStatusDone,
		"t3": TaskStatusTodo,
		"t4": TaskStatusReview,
	}
	err := snapshot.CheckCompletion()
	var blocked *DependencyBlockedError
	if !errors.As(err, &blocked) {
		t.Fatalf("expected DependencyBlockedError, got %v", err)
	}
	if !slices.Equal(blocked.Blocking, []string{"t3", "t4"}) {
		t.Fatalf("unexpected blocking list %#v", blocked.Blocking)
	}
	if !errors.Is(err, ErrDependencyBlocked) {
		t.Fatal("expected errors.Is(err, ErrDependencyBlocked)")
	}
}

func TestCheckCompletionAllDone(t *testing.T) {
	snapshot := DependencySnapshot{"t2": TaskStatusDone}
	if err := snapshot.CheckCompletion(); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if err := (DependencySnapshot{}).CheckCompletion(); err != nil {
		t.Fatalf("expected nil for empty snapshot, got %v", err)
	}
}

func TestGraphCycleRejection(t *testing.T) {
	g := NewGraph()
	if err := g.AddEdge("a", "b"); err != nil {
		t.Fatalf("AddEdge(a, b) error = %v", err)
	}
	if err := g.AddEdge("b", "a"); err != ErrCycleDetected {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	// Rejection leaves the graph unchanged.
	if deps := g.DependsOn("b"); len(deps) != 0 {
		t.Fatalf("rejected edge persisted: %#v", deps)
	}
	if !slices.Equal(g.DependsOn("a"), []string{"b"}) {
		t.Fatalf("unexpected edges for a: %#v", g.DependsOn("a"))
	}
}

func TestGraphTransitiveCycle(t *testing.T) {
	g := NewGraph()
	for _, edge := range [][2]string{{"a", "b"}, {"b", "c"}, {"c", "d"}} {
		if err := g.AddEdge(edge[0], edge[1]); err != nil {
			t.Fatalf("AddEdge(%s, %s) error = %v", edge[0], edge[1], err)
		}
	}
	if err := g.AddEdge("d", "a"); err != ErrCycleDetected {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}
	if err := g.AddEdge("x", "x"); err != ErrCycleDetected {
		t.Fatalf("self edge expected ErrCycleDetected, got %v", err)
	}
}

func TestGraphAddEdgeIdempotent(t *testing.T) {
	g := NewGraph()
	if err := g.AddEdge("a", "b"); err != nil {
		t.Fatalf("AddEdge() error = %v", err)
	}
	if err := g.AddEdge("a", "b"); err != nil {
		t.Fatalf("duplicate AddEdge() error = %v", err)
	}
	if len(g.DependsOn("a")) != 1 {
		t.Fatalf("duplicate edge stored: %#v", g.DependsOn("a"))
	}
}

func TestGraphRemoveEdgeAndDependents(t *testing.T) {
	g := GraphFromEdges(map[string][]string{
		"a": {"c"},
		"b": {"c", "d"},
	})
	if !slices.Equal(g.Dependents("c"), []string{"a", "b"}) {
		t.Fatalf("unexpected dependents %#v", g.Dependents("c"))
	}
	g.RemoveEdge("a", "c")
	if !slices.Equal(g.Dependents("c"), []string{"b"}) {
		t.Fatalf("unexpected dependents after removal %#v", g.Dependents("c"))
	}
	// Removing an absent edge is a no-op.
	g.RemoveEdge("a", "c")
	if len(g.Dependents("d")) != 1 {
		t.Fatalf("unrelated edges disturbed: %#v", g.Dependents("d"))
	}
}

func TestTimerElapsed(t *testing.T) {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	event, err := NewTimerEvent("e1", "t1", "u1", start)
	if err != nil {
		t.Fatalf("NewTimerEvent() error = %v", err)
	}
	if !event.Open() {
		t.Fatal("expected open timer")
	}
	if got := event.Elapsed(start.Add(25 * time.Minute)); got != 25*time.Minute {
		t.Fatalf("Elapsed() = %v, want 25m", got)
	}
	stop := start.Add(40 * time.Minute)
	event.StoppedAt = &stop
	if event.Open() {
		t.Fatal("expected closed timer")
	}
	// Closed timers ignore now.
	if got := event.Elapsed(start.Add(5 * time.Hour)); got != 40*time.Minute {
		t.Fatalf("Elapsed() = %v, want 40m", got)
	}
}
