package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/pacer/pkg/domain/events"
	"github.com/oklog/ulid/v2"
)

// FileEventStore implements events.Store on a JSON Lines file.
type FileEventStore struct {
	mu       sync.Mutex
	path     string
	basePath string
	lastHash string
	loaded   bool
}

var _ events.Store = (*FileEventStore)(nil)

// NewFileEventStore creates a store in basePath. The directory is created on
// first write so opening a store never initializes a workspace.
func NewFileEventStore(basePath string) *FileEventStore {
	return &FileEventStore{path: filepath.Join(basePath, EventsFile), basePath: basePath}
}

// Append chains event to the last stored one and writes it.
func (s *FileEventStore) Append(event *events.Event) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.loaded {
		all, err := s.loadEvents()
		if err != nil {
			return err
		}
		if n := len(all); n > 0 {
			s.lastHash = all[n-1].Hash
		}
		s.loaded = true
	}

	if event.ID == "" {
		event.ID = ulid.Make().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	event.PrevHash = s.lastHash
	event.Hash = event.CalculateHash()

	if err := os.MkdirAll(s.basePath, 0700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close events file: %w", cerr)
		}
	}()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write event: %w", err)
	}

	s.lastHash = event.Hash
	return nil
}

// LoadAll returns all events in append order.
func (s *FileEventStore) LoadAll() ([]*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadEvents()
}

// LoadByGoal returns the events of one user's goal.
func (s *FileEventStore) LoadByGoal(userID, goalID string) ([]*events.Event, error) {
	all, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	var result []*events.Event
	for _, e := range all {
		if e.UserID == userID && e.GoalID == goalID {
			result = append(result, e)
		}
	}
	return result, nil
}

// VerifyIntegrity reports every broken link or tampered event.
func (s *FileEventStore) VerifyIntegrity() ([]string, error) {
	evts, err := s.LoadAll()
	if err != nil {
		return nil, err
	}
	var violations []string
	lastHash := ""
	for i, e := range evts {
		if e.PrevHash != lastHash {
			violations = append(violations, fmt.Sprintf("event %d (%s): PrevHash mismatch", i, e.ID))
		}
		if e.Hash != e.CalculateHash() {
			violations = append(violations, fmt.Sprintf("event %d (%s): Hash mismatch - possible tampering", i, e.ID))
		}
		lastHash = e.Hash
	}
	return violations, nil
}

func (s *FileEventStore) loadEvents() ([]*events.Event, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	var result []*events.Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event events.Event
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		result = append(result, &event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return result, nil
}

// Append records event in the workspace event log.
func (r *FilesystemRepository) Append(event *events.Event) error {
	return r.events.Append(event)
}

// LoadAll returns the workspace event log.
func (r *FilesystemRepository) LoadAll() ([]*events.Event, error) {
	return r.events.LoadAll()
}

// LoadByGoal returns the events of one user's goal.
func (r *FilesystemRepository) LoadByGoal(userID, goalID string) ([]*events.Event, error) {
	return r.events.LoadByGoal(userID, goalID)
}

// Events exposes the underlying event store.
func (r *FilesystemRepository) Events() *FileEventStore {
	return r.events
}
