package application

import (
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

// Transition is one task status change applied after scheduling.
type Transition struct {
	TaskID string              `json:"task_id"`
	From   planning.TaskStatus `json:"from"`
	To     planning.TaskStatus `json:"to"`
}

// syncStatuses moves every open task to the status its placement implies:
// placed tasks become scheduled (or stay in progress), unplaced ones return
// to pending. before holds statuses as they were prior to the engine call,
// so work already started is not demoted. Tasks are updated in place.
func syncStatuses(tasks []planning.Task, before map[string]planning.TaskStatus, s *schedule.Schedule) []Transition {
	placed := s.AssignmentMap()
	var out []Transition
	for i := range tasks {
		t := &tasks[i]
		if t.Status.IsComplete() {
			continue
		}
		from := t.Status
		if from == "" {
			from = planning.StatusPending
		}

		var events []string
		if _, ok := placed[t.ID]; ok {
			switch from {
			case planning.StatusPending:
				events = []string{planning.EventSchedule}
			case planning.StatusOverdue:
				if before[t.ID] == planning.StatusInProgress {
					events = []string{planning.EventStart}
				} else {
					events = []string{planning.EventReschedule}
				}
			}
		} else if s.IsUnschedulable(t.ID) {
			if from == planning.StatusScheduled || from == planning.StatusOverdue {
				events = []string{planning.EventUnschedule}
			}
		}

		to := from
		for _, ev := range events {
			next, err := planning.Advance(planning.Task{ID: t.ID, Status: to}, ev, nil)
			if err != nil {
				break
			}
			to = next
		}
		t.Status = to
		prev, ok := before[t.ID]
		if !ok {
			prev = planning.StatusPending
		}
		if to != prev {
			out = append(out, Transition{TaskID: t.ID, From: prev, To: to})
		}
	}
	return out
}

func statusesOf(tasks []planning.Task) map[string]planning.TaskStatus {
	m := make(map[string]planning.TaskStatus, len(tasks))
	for _, t := range tasks {
		s := t.Status
		if s == "" {
			s = planning.StatusPending
		}
		m[t.ID] = s
	}
	return m
}
