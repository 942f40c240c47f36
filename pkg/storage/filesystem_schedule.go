package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/pacer/pkg/domain"
	"github.com/felixgeelhaar/pacer/pkg/domain/schedule"
)

// SaveSchedule writes s if the stored version still equals expectedVersion.
// A goal without a stored schedule is at version 0.
func (r *FilesystemRepository) SaveSchedule(s *schedule.Schedule, expectedVersion int) error {
	path, err := r.goalPath(s.UserID, s.GoalID, ScheduleFile)
	if err != nil {
		return err
	}

	actual := 0
	// #nosec G304 -- Path is resolved and validated via ResolvePath
	existing, err := os.ReadFile(path)
	switch {
	case err == nil:
		var disk schedule.Schedule
		if err := json.Unmarshal(existing, &disk); err != nil {
			return fmt.Errorf("failed to unmarshal stored schedule: %w", err)
		}
		actual = disk.Version
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to read schedule: %w", err)
	}
	if actual != expectedVersion {
		return &schedule.ConflictError{GoalID: s.GoalID, Expected: expectedVersion, Actual: actual}
	}

	s.Version = expectedVersion + 1
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}
	return writeFile(path, data)
}

func (r *FilesystemRepository) LoadSchedule(userID, goalID string) (*schedule.Schedule, error) {
	path, err := r.goalPath(userID, goalID, ScheduleFile)
	if err != nil {
		return nil, err
	}
	data, err := r.read(path)
	if err != nil {
		return nil, fmt.Errorf("schedule for goal %s: %w", goalID, err)
	}
	var s schedule.Schedule
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	return &s, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
