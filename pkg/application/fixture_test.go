package application_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/application"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/events"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
)

var (
	monday   = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	deadline = time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC)
)

func at(day, hour, minute int) time.Time {
	return time.Date(2026, 3, day, hour, minute, 0, 0, time.UTC)
}

type fixture struct {
	repo      *MockRepo
	clock     *MockClock
	env       application.Env
	goals     *application.GoalService
	schedules *application.ScheduleService
	overdue   *application.OverdueService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := NewMockRepo()
	clock := NewMockClock(monday)
	d := events.NewDispatcher()
	d.Register(events.NewAuditHandler(repo).Registration())
	env := application.Env{
		Repo:       repo,
		Dispatcher: d,
		Clock:      clock.Now,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		Actor:      "test",
	}.WithDefaults()
	schedules := application.NewScheduleService(env)
	return &fixture{
		repo:      repo,
		clock:     clock,
		env:       env,
		goals:     application.NewGoalService(env),
		schedules: schedules,
		overdue:   application.NewOverdueService(schedules),
	}
}

func sampleDrafts() []planning.DraftTask {
	return []planning.DraftTask{
		{ID: "t1", Title: "Write outline", Description: "Done when 5 sections are listed", Estimate: "4h"},
		{ID: "t2", Title: "Draft chapter", Description: "Done when 3000 words exist", Estimate: "6h", DependsOn: []string{"t1"}},
		{ID: "t3", Title: "Review chapter", Description: "Done when 2 readers approved it", Estimate: "2h", Priority: "high", DependsOn: []string{"t2"}},
	}
}

// seed creates a calendar, a goal and its three tasks for userID.
func (f *fixture) seed(t *testing.T, userID string) *planning.Goal {
	t.Helper()
	ctx := context.Background()
	cal := calendar.Uniform(8*time.Hour, calendar.MustParseWindow("09:00-17:00"))
	if err := f.goals.SetCalendar(userID, cal); err != nil {
		t.Fatalf("SetCalendar: %v", err)
	}
	goal, err := f.goals.CreateGoal(ctx, userID, "Publish the guide", deadline, "")
	if err != nil {
		t.Fatalf("CreateGoal: %v", err)
	}
	if _, err := f.goals.ImportDrafts(ctx, userID, goal.ID, sampleDrafts()); err != nil {
		t.Fatalf("ImportDrafts: %v", err)
	}
	return goal
}

func taskByID(tasks []planning.Task, id string) planning.Task {
	for _, t := range tasks {
		if t.ID == id {
			return t
		}
	}
	return planning.Task{}
}
