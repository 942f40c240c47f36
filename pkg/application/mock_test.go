package application_test

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/events"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

// MockRepo is an in-memory WorkspaceRepository.
type MockRepo struct {
	mu          sync.Mutex
	Initialized bool
	Goals       map[string]*planning.Goal
	TaskLists   map[string][]planning.Task
	Calendars   map[string]*calendar.Calendar
	Schedules   map[string]*schedule.Schedule
	Events      []*events.Event
	SaveError   error
}

func NewMockRepo() *MockRepo {
	return &MockRepo{
		Initialized: true,
		Goals:       map[string]*planning.Goal{},
		TaskLists:   map[string][]planning.Task{},
		Calendars:   map[string]*calendar.Calendar{},
		Schedules:   map[string]*schedule.Schedule{},
	}
}

func key(userID, goalID string) string { return userID + "/" + goalID }

func (m *MockRepo) Initialize() error   { m.Initialized = true; return nil }
func (m *MockRepo) IsInitialized() bool { return m.Initialized }

func (m *MockRepo) ListUsers() ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]bool{}
	for _, g := range m.Goals {
		seen[g.UserID] = true
	}
	for u := range m.Calendars {
		seen[u] = true
	}
	var out []string
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func (m *MockRepo) SaveGoal(g *planning.Goal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	c := *g
	m.Goals[key(g.UserID, g.ID)] = &c
	return nil
}

func (m *MockRepo) LoadGoal(userID, goalID string) (*planning.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.Goals[key(userID, goalID)]
	if !ok {
		return nil, fmt.Errorf("goal %s: %w", goalID, domain.ErrNotFound)
	}
	c := *g
	return &c, nil
}

func (m *MockRepo) ListGoals(userID string) ([]*planning.Goal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*planning.Goal
	for _, g := range m.Goals {
		if g.UserID == userID {
			c := *g
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockRepo) SaveTasks(userID, goalID string, tasks []planning.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	m.TaskLists[key(userID, goalID)] = cloneTasks(tasks)
	return nil
}

func (m *MockRepo) LoadTasks(userID, goalID string) ([]planning.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneTasks(m.TaskLists[key(userID, goalID)]), nil
}

func (m *MockRepo) SaveCalendar(userID string, cal *calendar.Calendar) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calendars[userID] = cal
	return nil
}

func (m *MockRepo) LoadCalendar(userID string) (*calendar.Calendar, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cal, ok := m.Calendars[userID]
	if !ok {
		return nil, fmt.Errorf("calendar for %s: %w", userID, domain.ErrNotFound)
	}
	return cal, nil
}

func (m *MockRepo) SaveSchedule(s *schedule.Schedule, expected int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveError != nil {
		return m.SaveError
	}
	actual := 0
	if cur, ok := m.Schedules[key(s.UserID, s.GoalID)]; ok {
		actual = cur.Version
	}
	if actual != expected {
		return &schedule.ConflictError{GoalID: s.GoalID, Expected: expected, Actual: actual}
	}
	s.Version = expected + 1
	m.Schedules[key(s.UserID, s.GoalID)] = s.Clone()
	return nil
}

func (m *MockRepo) LoadSchedule(userID, goalID string) (*schedule.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.Schedules[key(userID, goalID)]
	if !ok {
		return nil, fmt.Errorf("schedule: %w", domain.ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *MockRepo) Append(e *events.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

func (m *MockRepo) LoadAll() ([]*events.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*events.Event(nil), m.Events...), nil
}

func (m *MockRepo) LoadByGoal(userID, goalID string) ([]*events.Event, error) {
	all, _ := m.LoadAll()
	var out []*events.Event
	for _, e := range all {
		if e.UserID == userID && e.GoalID == goalID {
			out = append(out, e)
		}
	}
	return out, nil
}

// EventTypes returns the recorded event types in order.
func (m *MockRepo) EventTypes() []string {
	all, _ := m.LoadAll()
	out := make([]string, 0, len(all))
	for _, e := range all {
		out = append(out, e.Type)
	}
	return out
}

func cloneTasks(in []planning.Task) []planning.Task {
	if in == nil {
		return nil
	}
	out := make([]planning.Task, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

// MockClock is a settable clock.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock { return &MockClock{now: t} }

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
