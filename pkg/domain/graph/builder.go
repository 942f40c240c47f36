package graph

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

// DefaultMaxTasks bounds a goal's task count, which bounds every engine call.
const DefaultMaxTasks = 200

// Builder normalizes draft tasks and assembles them into a TaskGraph.
// It has no side effects.
type Builder struct {
	Policy   Actionability
	MaxTasks int
	// NewID names drafts that arrive without an id. n is 1-based.
	NewID func(goalID string, n int) string
}

// NewBuilder returns a builder with the default actionability policy.
func NewBuilder() *Builder {
	return &Builder{Policy: DefaultActionability(), MaxTasks: DefaultMaxTasks}
}

func (b *Builder) newID(goalID string, n int) string {
	if b.NewID != nil {
		return b.NewID(goalID, n)
	}
	return fmt.Sprintf("%s-t%02d", goalID, n)
}

// Build validates drafts for goal and returns the dependency graph anchored at
// the goal's creation time. Every problem is reported at once in a
// *ValidationError; a cycle yields a *CyclicDependencyError.
func (b *Builder) Build(goal planning.Goal, drafts []planning.DraftTask) (*TaskGraph, error) {
	var problems []Problem
	if b.MaxTasks > 0 && len(drafts) > b.MaxTasks {
		problems = append(problems, Problem{
			Kind:    ProblemTooManyTasks,
			Message: fmt.Sprintf("%d tasks exceeds the limit of %d", len(drafts), b.MaxTasks),
		})
	}

	anchor := goal.CreatedAt
	tasks := make([]planning.Task, 0, len(drafts))
	seen := make(map[string]bool, len(drafts))

	for i, d := range drafts {
		id := strings.TrimSpace(d.ID)
		if id == "" {
			id = b.newID(goal.ID, i+1)
		}
		report := func(kind, format string, args ...any) {
			problems = append(problems, Problem{TaskID: id, Kind: kind, Message: fmt.Sprintf(format, args...)})
		}

		if seen[id] {
			report(ProblemDuplicateID, "duplicate task id")
			continue
		}
		seen[id] = true

		effort, err := planning.ParseEstimate(d.Estimate)
		badEffort := err != nil
		if badEffort {
			report(ProblemInvalidEffort, "%v", err)
		}
		priority, err := planning.ParseTaskPriority(d.Priority)
		if err != nil {
			report(ProblemInvalidPriority, "%v", err)
			priority = planning.DefaultTaskPriority()
		}

		var deadline *time.Time
		if d.Deadline != nil {
			dl := *d.Deadline
			deadline = &dl
		}
		task, found := b.Normalize(planning.Task{
			ID:          id,
			GoalID:      goal.ID,
			Title:       d.Title,
			Description: d.Description,
			Effort:      effort,
			Priority:    priority,
			DependsOn:   d.DependsOn,
			Deadline:    deadline,
			Status:      planning.StatusPending,
		}, anchor)
		for _, p := range found {
			if badEffort && p.Kind == ProblemMissingEffort {
				continue
			}
			problems = append(problems, p)
		}
		tasks = append(tasks, task)
	}

	problems = append(problems, checkDependencies(tasks)...)
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return assemble(goal, tasks, anchor)
}

// Normalize checks one task the way Build checks a draft: a title, a positive
// effort, a known priority, a deadline no earlier than anchor, and the
// actionability policy. It returns the task with its title trimmed, an empty
// priority defaulted and dependencies deduplicated.
func (b *Builder) Normalize(t planning.Task, anchor time.Time) (planning.Task, []Problem) {
	t = t.Clone()
	t.Title = strings.TrimSpace(t.Title)
	t.DependsOn = dedupe(t.DependsOn)
	if t.Priority == "" {
		t.Priority = planning.DefaultTaskPriority()
	}

	var problems []Problem
	report := func(kind, format string, args ...any) {
		problems = append(problems, Problem{TaskID: t.ID, Kind: kind, Message: fmt.Sprintf(format, args...)})
	}
	if t.Title == "" {
		report(ProblemMissingTitle, "title is required")
	}
	if t.Effort.IsZero() {
		report(ProblemMissingEffort, "effort estimate is required")
	}
	if !t.Priority.IsValid() {
		report(ProblemInvalidPriority, "invalid task priority: %s", t.Priority)
	}
	if t.Deadline != nil && !anchor.IsZero() && t.Deadline.Before(anchor) {
		report(ProblemDeadlineTooEarly, "deadline %s is before the earliest possible start %s",
			t.Deadline.Format(time.RFC3339), anchor.Format(time.RFC3339))
	}
	if reason := b.Policy.Check(t.Title, t.Description); reason != "" {
		report(ProblemNotActionable, "not actionable: %s", reason)
	}
	return t, problems
}

// Rebuild assembles already-normalized tasks, checking structure only.
func (b *Builder) Rebuild(goal planning.Goal, tasks []planning.Task, anchor time.Time) (*TaskGraph, error) {
	var problems []Problem
	if b.MaxTasks > 0 && len(tasks) > b.MaxTasks {
		problems = append(problems, Problem{
			Kind:    ProblemTooManyTasks,
			Message: fmt.Sprintf("%d tasks exceeds the limit of %d", len(tasks), b.MaxTasks),
		})
	}
	seen := make(map[string]bool, len(tasks))
	cloned := make([]planning.Task, 0, len(tasks))
	for _, t := range tasks {
		if seen[t.ID] {
			problems = append(problems, Problem{TaskID: t.ID, Kind: ProblemDuplicateID, Message: "duplicate task id"})
			continue
		}
		seen[t.ID] = true
		c := t.Clone()
		c.DependsOn = dedupe(c.DependsOn)
		cloned = append(cloned, c)
	}
	problems = append(problems, checkDependencies(cloned)...)
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}
	return assemble(goal, cloned, anchor)
}

func checkDependencies(tasks []planning.Task) []Problem {
	known := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		known[t.ID] = true
	}
	var problems []Problem
	for _, t := range tasks {
		for _, dep := range t.DependsOn {
			switch {
			case dep == t.ID:
				problems = append(problems, Problem{TaskID: t.ID, Kind: ProblemSelfDependency, Message: "task depends on itself"})
			case !known[dep]:
				problems = append(problems, Problem{TaskID: t.ID, Kind: ProblemUnknownDependency, Message: fmt.Sprintf("unknown dependency %q", dep)})
			}
		}
	}
	return problems
}

func assemble(goal planning.Goal, tasks []planning.Task, anchor time.Time) (*TaskGraph, error) {
	g := &TaskGraph{
		Goal:   goal,
		Anchor: anchor,
		Nodes:  make([]Node, len(tasks)),
		index:  make(map[string]int, len(tasks)),
	}
	for i, t := range tasks {
		g.Nodes[i] = Node{Task: t}
		g.index[t.ID] = i
	}
	for i, t := range tasks {
		for _, dep := range t.DependsOn {
			p := g.index[dep]
			g.Nodes[i].Preds = append(g.Nodes[i].Preds, p)
			g.Nodes[p].Succs = append(g.Nodes[p].Succs, i)
		}
	}
	for i := range g.Nodes {
		sort.Ints(g.Nodes[i].Preds)
		sort.Ints(g.Nodes[i].Succs)
	}

	order, leftover := kahn(g.Nodes)
	if len(leftover) > 0 {
		return nil, &CyclicDependencyError{TaskIDs: findCycle(g.Nodes, leftover)}
	}
	g.Order = order
	g.rank = make([]int, len(g.Nodes))
	for r, i := range order {
		g.rank[i] = r
	}
	return g, nil
}

// kahn sorts topologically, breaking ties by input position. Nodes it cannot
// consume sit on or behind a cycle.
func kahn(nodes []Node) (order []int, leftover map[int]bool) {
	inDegree := make([]int, len(nodes))
	var ready []int
	for i, n := range nodes {
		inDegree[i] = len(n.Preds)
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	for len(ready) > 0 {
		node := ready[0]
		ready = ready[1:]
		order = append(order, node)
		for _, s := range nodes[node].Succs {
			inDegree[s]--
			if inDegree[s] == 0 {
				at := sort.SearchInts(ready, s)
				ready = append(ready, 0)
				copy(ready[at+1:], ready[at:])
				ready[at] = s
			}
		}
	}

	if len(order) == len(nodes) {
		return order, nil
	}
	leftover = make(map[int]bool)
	for i := range nodes {
		if inDegree[i] > 0 {
			leftover[i] = true
		}
	}
	return order, leftover
}

// findCycle walks predecessor edges inside the unsorted remainder. Every
// remaining node has a remaining predecessor, so the walk must revisit a node,
// and the revisited stretch is a cycle.
func findCycle(nodes []Node, leftover map[int]bool) []string {
	start := -1
	for i := range nodes {
		if leftover[i] {
			start = i
			break
		}
	}
	if start < 0 {
		return nil
	}

	pos := make(map[int]int)
	var walk []int
	cur := start
	for {
		if at, ok := pos[cur]; ok {
			walk = walk[at:]
			break
		}
		pos[cur] = len(walk)
		walk = append(walk, cur)
		next := -1
		for _, p := range nodes[cur].Preds {
			if leftover[p] {
				next = p
				break
			}
		}
		if next < 0 {
			return nil
		}
		cur = next
	}

	// The walk runs against dependency direction; flip it so each task
	// depends on the one before it, then start from the smallest id.
	ids := make([]string, len(walk))
	for i, n := range walk {
		ids[len(walk)-1-i] = nodes[n].Task.ID
	}
	least := 0
	for i, id := range ids {
		if id < ids[least] {
			least = i
		}
	}
	return append(ids[least:], ids[:least]...)
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
