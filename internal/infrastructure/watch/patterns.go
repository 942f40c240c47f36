package watch

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/felixgeelhaar/pacer/pkg/storage"
)

// PatternFilter filters file paths based on include/exclude glob patterns
// matched against the base name.
type PatternFilter struct {
	Include []string
	Exclude []string
}

func NewPatternFilter(include, exclude []string) *PatternFilter {
	return &PatternFilter{Include: include, Exclude: exclude}
}

// CalendarFilter passes user calendar files and skips the temp files the
// repository writes before renaming.
func CalendarFilter() *PatternFilter {
	return NewPatternFilter([]string{storage.CalendarFile}, []string{"*.tmp", ".*"})
}

// Matches reports whether path passes the filter. Excludes win over includes;
// with no includes everything not excluded passes.
func (f *PatternFilter) Matches(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range f.Exclude {
		if matched, _ := filepath.Match(pattern, base); matched {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// UsersIn returns the distinct users, sorted, whose directory under usersDir
// holds one of the changed paths.
func UsersIn(usersDir string, evs []ChangeEvent) []string {
	seen := map[string]bool{}
	for _, e := range evs {
		rel, err := filepath.Rel(usersDir, e.Path)
		if err != nil {
			continue
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		if len(parts) < 2 || parts[0] == ".." || parts[0] == "." {
			continue
		}
		seen[parts[0]] = true
	}
	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
