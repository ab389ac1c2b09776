//go:build !linux && !darwin

package dylib

// Library is never constructed on platforms without dlopen support;
// every lookup reports absence.
type Library struct{}

func open(name string) (*Library, error) {
	return nil, ErrNotFound
}

func (l *Library) Bind(fptr any, name string) bool {
	return false
}

func (l *Library) SymbolPath(name string) string {
	return PathUnavailable
}

func soNames(name string) []string {
	return nil
}

func soPattern(name string) string {
	return "lib" + name + ".*"
}

// DefaultSearchDirs returns nothing on platforms without dlopen support.
func DefaultSearchDirs() []string {
	return nil
}
