// Package graph assembles a goal's tasks into a dependency DAG.
//
// The graph is an arena: nodes live in one slice and edges are index lists
// computed once per build, in both directions.
package graph

import (
	"sort"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

// Node is one task and its edges as arena indexes.
type Node struct {
	Task  planning.Task
	Preds []int
	Succs []int
}

// TaskGraph is a validated, acyclic task set for one goal.
type TaskGraph struct {
	Goal   planning.Goal
	Anchor time.Time
	Nodes  []Node
	// Order lists node indexes in topological order.
	Order []int

	index map[string]int
	rank  []int
}

// Len returns the number of tasks.
func (g *TaskGraph) Len() int { return len(g.Nodes) }

// Index returns the arena index of a task id.
func (g *TaskGraph) Index(id string) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Has reports whether the graph contains a task id.
func (g *TaskGraph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Task returns a task by id.
func (g *TaskGraph) Task(id string) (planning.Task, bool) {
	i, ok := g.index[id]
	if !ok {
		return planning.Task{}, false
	}
	return g.Nodes[i].Task, true
}

// Tasks returns copies of every task in topological order.
func (g *TaskGraph) Tasks() []planning.Task {
	out := make([]planning.Task, 0, len(g.Order))
	for _, i := range g.Order {
		out = append(out, g.Nodes[i].Task.Clone())
	}
	return out
}

// IDs returns task ids in topological order.
func (g *TaskGraph) IDs() []string {
	out := make([]string, 0, len(g.Order))
	for _, i := range g.Order {
		out = append(out, g.Nodes[i].Task.ID)
	}
	return out
}

// Rank returns a node's position in the topological order.
func (g *TaskGraph) Rank(i int) int { return g.rank[i] }

// Deadline returns the effective deadline of node i.
func (g *TaskGraph) Deadline(i int) time.Time {
	return g.Nodes[i].Task.DeadlineWithin(g.Goal)
}

// Predecessors returns the ids a task depends on.
func (g *TaskGraph) Predecessors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.ids(g.Nodes[i].Preds)
}

// Successors returns the ids that depend directly on a task.
func (g *TaskGraph) Successors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.ids(g.Nodes[i].Succs)
}

// Dependents returns the seeds plus every transitive dependent. Unknown seeds
// are ignored.
func (g *TaskGraph) Dependents(seeds ...string) map[string]bool {
	out := make(map[string]bool)
	var stack []int
	for _, id := range seeds {
		if i, ok := g.index[id]; ok && !out[id] {
			out[id] = true
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range g.Nodes[i].Succs {
			id := g.Nodes[s].Task.ID
			if !out[id] {
				out[id] = true
				stack = append(stack, s)
			}
		}
	}
	return out
}

// Component returns the weakly connected component containing id.
func (g *TaskGraph) Component(id string) map[string]bool {
	out := make(map[string]bool)
	start, ok := g.index[id]
	if !ok {
		return out
	}
	out[id] = true
	stack := []int{start}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, edges := range [][]int{g.Nodes[i].Preds, g.Nodes[i].Succs} {
			for _, n := range edges {
				nid := g.Nodes[n].Task.ID
				if !out[nid] {
					out[nid] = true
					stack = append(stack, n)
				}
			}
		}
	}
	return out
}

// CriticalDeadline returns the latest effective deadline across tasks, or the
// goal deadline when the graph is empty.
func (g *TaskGraph) CriticalDeadline() time.Time {
	latest := g.Goal.Deadline
	for i := range g.Nodes {
		if d := g.Deadline(i); d.After(latest) {
			latest = d
		}
	}
	return latest
}

// Sorted returns ids of a set in topological order.
func (g *TaskGraph) Sorted(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		if _, ok := g.index[id]; ok {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return g.rank[g.index[out[a]]] < g.rank[g.index[out[b]]]
	})
	return out
}

func (g *TaskGraph) ids(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.Nodes[i].Task.ID)
	}
	return out
}
