// Package dylib locates and loads native shared libraries by logical
// name and reverse-maps loaded symbols to the file that defines them.
//
// Handles are never closed: every load is process-scoped and released
// implicitly at exit. All failures are reported as absence; a library
// that exists on disk but cannot be loaded is indistinguishable from
// one that is not installed.
package dylib

import (
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
)

// ErrNotFound is returned when a library cannot be located or loaded.
var ErrNotFound = errors.New("library not found")

// Sentinels returned by SymbolPath when reverse lookup is impossible.
const (
	PathUnavailable = "N/A"
	PathError       = "(error)"
)

// Resolver opens libraries, searching the dynamic linker first and
// then any extra directories.
type Resolver struct {
	Dirs []string // extra search directories, tried in order
}

// Open locates a library by logical name ("cudart" for libcudart) and
// loads it. The dynamic linker's standard search runs first; extra
// directories are scanned afterwards for any versioned variant.
func (r *Resolver) Open(name string) (*Library, error) {
	for _, cand := range soNames(name) {
		if lib, err := open(cand); err == nil {
			slog.Debug("loaded library", "name", name, "candidate", cand)
			return lib, nil
		}
	}
	for _, dir := range r.Dirs {
		matches, err := filepath.Glob(filepath.Join(dir, soPattern(name)))
		if err != nil || len(matches) == 0 {
			continue
		}
		sort.Strings(matches)
		for _, path := range matches {
			if lib, err := open(path); err == nil {
				slog.Debug("loaded library", "name", name, "path", path)
				return lib, nil
			}
		}
	}
	slog.Debug("library not found", "name", name)
	return nil, ErrNotFound
}

// OpenPath loads a library from an explicit path. The library's own
// dependencies become resolvable by later lookups.
func (r *Resolver) OpenPath(path string) (*Library, error) {
	return open(path)
}
