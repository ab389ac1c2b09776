package dylib

import (
	"errors"
	"testing"
)

func TestOpenUnknownLibrary(t *testing.T) {
	t.Parallel()
	r := &Resolver{}

	_, err := r.Open("no-such-library-on-any-host")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenUnknownLibraryWithExtraDirs(t *testing.T) {
	t.Parallel()
	r := &Resolver{Dirs: []string{t.TempDir(), "/nonexistent/dir"}}

	_, err := r.Open("no-such-library-on-any-host")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestOpenPathMissingFile(t *testing.T) {
	t.Parallel()
	r := &Resolver{}

	if _, err := r.OpenPath("/nonexistent/libfoo.so"); err == nil {
		t.Error("expected error opening missing path")
	}
}
