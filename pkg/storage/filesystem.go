// Package storage persists pacer workspaces on the local filesystem.
package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/pacer/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Workspace layout, relative to the .pacer directory.
const (
	PacerDir     = ".pacer"
	ConfigFile   = "config.yaml"
	EventsFile   = "events.jsonl"
	UsersDir     = "users"
	GoalsDir     = "goals"
	CalendarFile = "calendar.yaml"
	GoalFile     = "goal.yaml"
	TasksFile    = "tasks.yaml"
	ScheduleFile = "schedule.json"
)

// FilesystemRepository implements domain.WorkspaceRepository under root/.pacer.
type FilesystemRepository struct {
	root        string
	retryConfig retry.Config
	events      *FileEventStore
}

var _ domain.WorkspaceRepository = (*FilesystemRepository)(nil)

func NewFilesystemRepository(root string) *FilesystemRepository {
	base := filepath.Join(root, PacerDir)
	return &FilesystemRepository{
		root: root,
		retryConfig: retry.Config{
			MaxAttempts:   3,
			InitialDelay:  10 * time.Millisecond,
			BackoffPolicy: retry.BackoffExponential,
		},
		events: NewFileEventStore(base),
	}
}

// Root returns the workspace root directory.
func (r *FilesystemRepository) Root() string {
	return r.root
}

// Dir returns the .pacer directory.
func (r *FilesystemRepository) Dir() string {
	return filepath.Join(r.root, PacerDir)
}

// ResolvePath joins parts below the .pacer directory. Every part must be a
// single path element, so ids taken from user input cannot escape it.
func (r *FilesystemRepository) ResolvePath(parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", fmt.Errorf("filename cannot be empty")
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `/\`) {
			return "", fmt.Errorf("invalid file path: %s", filepath.Join(parts...))
		}
	}

	baseDir := r.Dir()
	cleanPath := filepath.Clean(filepath.Join(append([]string{baseDir}, parts...)...))
	if !strings.HasPrefix(cleanPath, baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid file path: %s", filepath.Join(parts...))
	}
	return cleanPath, nil
}

func (r *FilesystemRepository) Initialize() error {
	// G301: Use 0700 for directories
	if err := os.MkdirAll(filepath.Join(r.Dir(), UsersDir), 0700); err != nil {
		return fmt.Errorf("failed to create %s directory: %w", PacerDir, err)
	}
	return nil
}

func (r *FilesystemRepository) IsInitialized() bool {
	_, err := os.Stat(r.Dir())
	return err == nil
}

// ListUsers returns every user with a directory in the workspace, sorted.
func (r *FilesystemRepository) ListUsers() ([]string, error) {
	dir, err := r.ResolvePath(UsersDir)
	if err != nil {
		return nil, err
	}
	return listDirs(dir)
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

// writeYAML writes v to path, creating parent directories.
func writeYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	// Write to a temp file and rename so readers never see a partial file.
	tmp := path + ".tmp"
	// G306: Use 0600 for files
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return os.Rename(tmp, path)
}

// readYAML loads path into a new T, retrying transient read failures. A
// missing file yields domain.ErrNotFound without retrying.
func readYAML[T any](r *FilesystemRepository, path string) (*T, error) {
	data, err := r.read(path)
	if err != nil {
		return nil, err
	}
	var v T
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", filepath.Base(path), err)
	}
	return &v, nil
}

func (r *FilesystemRepository) read(path string) ([]byte, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), domain.ErrNotFound)
	}
	retryer := retry.New[[]byte](r.retryConfig)
	return retryer.Do(context.Background(), func(ctx context.Context) ([]byte, error) {
		// #nosec G304 -- Path is resolved and validated via ResolvePath
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
		}
		return data, nil
	})
}
