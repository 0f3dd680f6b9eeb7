package domain

import (
	"slices"
	"strings"
)

// DependencySnapshot maps the ids a task depends on to their current status.
type DependencySnapshot map[string]TaskStatus

// CheckCompletion reports whether every prerequisite is done. When not, the
// returned DependencyBlockedError lists exactly the incomplete ids, sorted.
func (s DependencySnapshot) CheckCompletion() error {
	blocking := make([]string, 0)
	for id, status := range s {
		if status != TaskStatusDone {
			blocking = append(blocking, id)
		}
	}
	if len(blocking) == 0 {
		return nil
	}
	slices.Sort(blocking)
	return &DependencyBlockedError{Blocking: blocking}
}

// Graph is a directed depends-on graph over opaque task ids. Edges are plain
// data keyed by id so cycle checks and snapshots stay independent of any
// persistence object graph.
type Graph struct {
	edges map[string][]string
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{edges: map[string][]string{}}
}

// GraphFromEdges builds a graph from an id -> depends-on adjacency map.
func GraphFromEdges(edges map[string][]string) *Graph {
	g := NewGraph()
	for id, deps := range edges {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		g.edges[id] = normalizeIDs(deps)
	}
	return g
}

// AddEdge records that taskID depends on dependsOnID. Inserting an edge that
// would close a cycle fails with ErrCycleDetected and leaves the graph
// unchanged; re-inserting an existing edge is a no-op.
func (g *Graph) AddEdge(taskID, dependsOnID string) error {
	taskID = strings.TrimSpace(taskID)
	dependsOnID = strings.TrimSpace(dependsOnID)
	if taskID == "" || dependsOnID == "" {
		return ErrInvalidID
	}
	if taskID == dependsOnID {
		return ErrCycleDetected
	}
	if slices.Contains(g.edges[taskID], dependsOnID) {
		return nil
	}
	// The edge closes a cycle when the prerequisite already reaches back to
	// the dependent task.
	if g.reaches(dependsOnID, taskID) {
		return ErrCycleDetected
	}
	g.edges[taskID] = append(g.edges[taskID], dependsOnID)
	return nil
}

// RemoveEdge severs a depends-on edge. Removing an absent edge is a no-op.
func (g *Graph) RemoveEdge(taskID, dependsOnID string) {
	deps := g.edges[taskID]
	idx := slices.Index(deps, dependsOnID)
	if idx < 0 {
		return
	}
	g.edges[taskID] = slices.Delete(deps, idx, idx+1)
	if len(g.edges[taskID]) == 0 {
		delete(g.edges, taskID)
	}
}

// DependsOn returns the direct prerequisites of a task, sorted.
func (g *Graph) DependsOn(taskID string) []string {
	out := slices.Clone(g.edges[taskID])
	slices.Sort(out)
	return out
}

// Dependents returns the ids that directly depend on the given task, sorted.
func (g *Graph) Dependents(taskID string) []string {
	out := make([]string, 0)
	for id, deps := range g.edges {
		if slices.Contains(deps, taskID) {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// reaches reports whether target is transitively reachable from start along
// depends-on edges. Depth-first, O(V+E).
func (g *Graph) reaches(start, target string) bool {
	visited := map[string]struct{}{}
	stack := []string{start}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id == target {
			return true
		}
		if _, ok := visited[id]; ok {
			continue
		}
		visited[id] = struct{}{}
		stack = append(stack, g.edges[id]...)
	}
	return false
}
