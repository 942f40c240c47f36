package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/calendar"
	"github.com/felixgeelhaar/pacer/pkg/domain/planning"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

func newRepo(t *testing.T) *FilesystemRepository {
	t.Helper()
	repo := NewFilesystemRepository(t.TempDir())
	if err := repo.Initialize(); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return repo
}

func TestResolvePath(t *testing.T) {
	repo := NewFilesystemRepository("/ws")
	tests := []struct {
		name    string
		parts   []string
		want    string
		wantErr bool
	}{
		{"config", []string{ConfigFile}, filepath.Join("/ws", PacerDir, ConfigFile), false},
		{"nested", []string{UsersDir, "alice", CalendarFile}, filepath.Join("/ws", PacerDir, UsersDir, "alice", CalendarFile), false},
		{"empty", nil, "", true},
		{"parent", []string{".."}, "", true},
		{"separator", []string{"users/../../etc"}, "", true},
		{"empty part", []string{UsersDir, ""}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ResolvePath(tt.parts...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitialize(t *testing.T) {
	repo := NewFilesystemRepository(t.TempDir())
	if repo.IsInitialized() {
		t.Fatal("fresh directory should not be initialized")
	}
	if err := repo.Initialize(); err != nil {
		t.Fatal(err)
	}
	if !repo.IsInitialized() {
		t.Error("expected initialized workspace")
	}
}

func TestGoalsAndTasks(t *testing.T) {
	repo := newRepo(t)
	deadline := time.Date(2026, 3, 20, 17, 0, 0, 0, time.UTC)
	goal := &planning.Goal{ID: "g1", UserID: "alice", Title: "Ship v1", Deadline: deadline, CreatedAt: deadline.AddDate(0, 0, -10)}
	if err := repo.SaveGoal(goal); err != nil {
		t.Fatalf("SaveGoal: %v", err)
	}

	tasks := []planning.Task{
		{ID: "g1-t01", GoalID: "g1", Title: "Write the draft", Effort: planning.MustParseEstimate("4h"), Priority: planning.PriorityHigh, Status: planning.StatusPending},
		{ID: "g1-t02", GoalID: "g1", Title: "Review the draft", Effort: planning.MustParseEstimate("30m"), DependsOn: []string{"g1-t01"}, Status: planning.StatusPending},
	}
	if tasks, err := repo.LoadTasks("alice", "g1"); err != nil || tasks != nil {
		t.Fatalf("LoadTasks before save = %v, %v", tasks, err)
	}
	if err := repo.SaveTasks("alice", "g1", tasks); err != nil {
		t.Fatalf("SaveTasks: %v", err)
	}

	loadedGoal, err := repo.LoadGoal("alice", "g1")
	if err != nil {
		t.Fatalf("LoadGoal: %v", err)
	}
	if !loadedGoal.Deadline.Equal(deadline) || loadedGoal.Title != "Ship v1" {
		t.Errorf("goal = %+v", loadedGoal)
	}

	loaded, err := repo.LoadTasks("alice", "g1")
	if err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	if len(loaded) != 2 || loaded[0].Effort.Duration() != 4*time.Hour || loaded[1].DependsOn[0] != "g1-t01" {
		t.Errorf("tasks = %+v", loaded)
	}

	goals, err := repo.ListGoals("alice")
	if err != nil || len(goals) != 1 {
		t.Errorf("ListGoals = %v, %v", goals, err)
	}
	users, err := repo.ListUsers()
	if err != nil || len(users) != 1 || users[0] != "alice" {
		t.Errorf("ListUsers = %v, %v", users, err)
	}

	if _, err := repo.LoadGoal("alice", "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := repo.LoadGoal("../bob", "g1"); err == nil {
		t.Error("expected invalid user id error")
	}
}

func TestCalendar(t *testing.T) {
	repo := newRepo(t)
	cal := calendar.Uniform(6*time.Hour, calendar.MustParseWindow("09:00-12:00"), calendar.MustParseWindow("13:00-17:00"))
	cal.DaysOff = []string{"2026-03-14"}
	if err := repo.SaveCalendar("alice", cal); err != nil {
		t.Fatalf("SaveCalendar: %v", err)
	}
	loaded, err := repo.LoadCalendar("alice")
	if err != nil {
		t.Fatalf("LoadCalendar: %v", err)
	}
	if len(loaded.Weekly[calendar.DailyKey]) != 2 || loaded.DailyCapacity.Duration() != 6*time.Hour || loaded.DaysOff[0] != "2026-03-14" {
		t.Errorf("calendar = %+v", loaded)
	}

	bad := calendar.Uniform(0, calendar.Window{Start: 600, End: 540})
	if err := repo.SaveCalendar("alice", bad); err == nil {
		t.Error("expected invalid calendar to be rejected")
	}
}

func TestScheduleVersioning(t *testing.T) {
	repo := newRepo(t)
	s := &schedule.Schedule{ID: "s1", UserID: "alice", GoalID: "g1", Weights: schedule.DefaultWeights()}

	if _, err := repo.LoadSchedule("alice", "g1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := repo.SaveSchedule(s, 0); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}

	stale := &schedule.Schedule{ID: "s1", UserID: "alice", GoalID: "g1"}
	err := repo.SaveSchedule(stale, 0)
	if !errors.Is(err, schedule.ErrVersionConflict) {
		t.Fatalf("err = %v, want version conflict", err)
	}
	var ce *schedule.ConflictError
	if !errors.As(err, &ce) || ce.Actual != 1 {
		t.Errorf("conflict = %+v", ce)
	}

	if err := repo.SaveSchedule(s, 1); err != nil {
		t.Fatalf("second save: %v", err)
	}
	loaded, err := repo.LoadSchedule("alice", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Version != 2 || loaded.Weights != schedule.DefaultWeights() {
		t.Errorf("loaded = %+v", loaded)
	}
}
