//go:build linux || darwin

package dylib

import (
	"runtime"
	"unsafe"

	"github.com/ebitengine/purego"
)

// Library is a loaded shared library. Handles leak for process
// lifetime; the process exits immediately after reporting.
type Library struct {
	handle uintptr
}

func open(name string) (*Library, error) {
	handle, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return nil, ErrNotFound
	}
	return &Library{handle: handle}, nil
}

// Bind assigns to *fptr a Go function calling the named exported
// symbol, reporting whether the symbol exists.
func (l *Library) Bind(fptr any, name string) bool {
	if _, err := purego.Dlsym(l.handle, name); err != nil {
		return false
	}
	purego.RegisterLibFunc(fptr, l.handle, name)
	return true
}

// SymbolPath returns the filesystem path of the library defining the
// named symbol, via dladdr. Returns PathUnavailable when dladdr cannot
// be reached on this system and PathError when the lookup fails.
func (l *Library) SymbolPath(name string) string {
	addr, err := purego.Dlsym(l.handle, name)
	if err != nil {
		return PathError
	}
	return pathOf(addr)
}

type dlInfo struct {
	fname *byte
	fbase unsafe.Pointer
	sname *byte
	saddr unsafe.Pointer
}

var dladdr func(addr uintptr, info *dlInfo) int32

func loadDladdr() bool {
	if dladdr != nil {
		return true
	}
	var hosts []string
	if runtime.GOOS == "darwin" {
		hosts = []string{"/usr/lib/libSystem.B.dylib"}
	} else {
		hosts = []string{"libdl.so.2", "libc.so.6"}
	}
	for _, host := range hosts {
		handle, err := purego.Dlopen(host, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err != nil {
			continue
		}
		if _, err := purego.Dlsym(handle, "dladdr"); err != nil {
			continue
		}
		purego.RegisterLibFunc(&dladdr, handle, "dladdr")
		return true
	}
	return false
}

func pathOf(addr uintptr) string {
	if !loadDladdr() {
		return PathUnavailable
	}
	var info dlInfo
	if dladdr(addr, &info) == 0 {
		return PathError
	}
	return goString(info.fname)
}

func goString(c *byte) string {
	if c == nil {
		return ""
	}
	n := 0
	for p := unsafe.Pointer(c); *(*byte)(p) != 0; p = unsafe.Add(p, 1) {
		n++
	}
	return string(unsafe.Slice(c, n))
}

func soNames(name string) []string {
	if runtime.GOOS == "darwin" {
		return []string{"lib" + name + ".dylib"}
	}
	// Recent NVIDIA drivers ship only the versioned soname; the
	// unversioned symlink belongs to the -devel package.
	return []string{"lib" + name + ".so", "lib" + name + ".so.1"}
}

func soPattern(name string) string {
	if runtime.GOOS == "darwin" {
		return "lib" + name + "*.dylib"
	}
	return "lib" + name + ".so*"
}

// DefaultSearchDirs lists conventional NVIDIA library locations that
// are not always on the linker path.
func DefaultSearchDirs() []string {
	if runtime.GOOS == "darwin" {
		return []string{"/usr/local/cuda/lib"}
	}
	return []string{
		"/usr/local/cuda/lib64",
		"/usr/lib64",
		"/usr/lib/x86_64-linux-gnu",
		"/usr/lib/aarch64-linux-gnu",
		"/usr/lib/x86_64-linux-gnu/nvidia/current",
		"/usr/lib/aarch64-linux-gnu/nvidia/current",
		"/lib64",
		"/lib/x86_64-linux-gnu",
		"/lib/aarch64-linux-gnu",
	}
}
