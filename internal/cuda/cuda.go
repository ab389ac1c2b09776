// Package cuda probes the native NVIDIA stack: driver, runtime, cuDNN,
// NCCL, and NVRTC. Each probe locates the library, calls its version
// entry point, and reports the outcome with the defining file's path.
// Nothing here is fatal; every failure becomes a report line.
package cuda

import (
	"fmt"
	"log/slog"

	"github.com/kmaehashi/chainer-doctor/internal/report"
)

// Lib is a loaded native library, narrowed to what probes need.
type Lib interface {
	// Bind assigns a typed Go function calling the named symbol,
	// reporting whether the symbol exists.
	Bind(fptr any, name string) bool
	// SymbolPath reverse-looks-up the file defining the named symbol.
	SymbolPath(name string) string
}

// Opener resolves native libraries by logical name or explicit path.
type Opener interface {
	Open(name string) (Lib, error)
	OpenPath(path string) (Lib, error)
}

// Probes runs the native version checks, sharing one companion
// fallback: when a direct lookup fails, the libraries bundled inside
// the companion Python package are loaded best-effort and the lookup
// is retried exactly once.
type Probes struct {
	p      *report.Printer
	opener Opener

	companionName string
	companionLibs func() []string // candidate bundled library paths

	companionTried  bool
	companionLoaded bool
}

// NewProbes creates the probe set. companionLibs may be nil when no
// companion package is available for fallback.
func NewProbes(p *report.Printer, opener Opener, companionName string, companionLibs func() []string) *Probes {
	return &Probes{
		p:             p,
		opener:        opener,
		companionName: companionName,
		companionLibs: companionLibs,
	}
}

// Driver probes the CUDA driver (libcuda, cuDriverGetVersion).
func (pr *Probes) Driver() {
	pr.statusProbe("CUDA Driver", "cuda", "cuDriverGetVersion", false)
}

// Runtime probes the CUDA runtime (libcudart, cudaRuntimeGetVersion)
// and returns the detected version, or nil when it could not be
// obtained. The value feeds the package compatibility check.
func (pr *Probes) Runtime() *int {
	return pr.statusProbe("CUDA Runtime", "cudart", "cudaRuntimeGetVersion", false)
}

// CUDNN probes cuDNN (libcudnn, cudnnGetVersion). cuDNN returns its
// version directly as the function result, not through an out
// parameter.
func (pr *Probes) CUDNN() {
	pr.valueProbe("cuDNN", "cudnn", "cudnnGetVersion", true)
}

// NCCL probes NCCL (libnccl, ncclGetVersion).
func (pr *Probes) NCCL() {
	pr.statusProbe("NCCL", "nccl", "ncclGetVersion", true)
}

// NVRTC probes the runtime compiler (libnvrtc, nvrtcVersion), which
// reports a major/minor pair through two out parameters.
func (pr *Probes) NVRTC() {
	lib, label, ok := pr.resolve("NVRTC", "nvrtc")
	if !ok {
		pr.p.Report(label, "not found")
		return
	}
	var version func(major, minor *int32) int32
	if !lib.Bind(&version, "nvrtcVersion") {
		pr.p.Report(label, "not found")
		return
	}
	var major, minor int32
	if code := version(&major, &minor); code != 0 {
		pr.p.Report(label, fmt.Sprintf("(ERROR %d!)", code))
		return
	}
	pr.p.Report(label, fmt.Sprintf("OK (version %d.%d from %s)",
		major, minor, lib.SymbolPath("nvrtcVersion")))
}

// Builtins probes the NVRTC builtins library, reporting the path of
// the file defining getArchBuiltins for provenance.
func (pr *Probes) Builtins() {
	lib, label, ok := pr.resolve("NVRTC Builtins", "nvrtc-builtins")
	if !ok {
		pr.p.Report(label, "Not Found")
		return
	}
	pr.p.Report(label, fmt.Sprintf("Found (%s)", lib.SymbolPath("getArchBuiltins")))
}

// CompileTest compiles an empty program through NVRTC, verifying that
// the compiler is actually usable and not just present.
func (pr *Probes) CompileTest() {
	lib, label, ok := pr.resolve("Compiler Test", "nvrtc")
	if !ok {
		pr.p.Report(label, "not found")
		return
	}
	var (
		create  func(prog *uintptr, src, name string, numHeaders int32, headers, includeNames uintptr) int32
		compile func(prog uintptr, numOptions int32, options uintptr) int32
		destroy func(prog *uintptr) int32
	)
	if !lib.Bind(&create, "nvrtcCreateProgram") ||
		!lib.Bind(&compile, "nvrtcCompileProgram") ||
		!lib.Bind(&destroy, "nvrtcDestroyProgram") {
		pr.p.Report(label, "not found")
		return
	}
	var prog uintptr
	if code := create(&prog, "", "doctor.cu", 0, 0, 0); code != 0 {
		pr.p.Report(label, fmt.Sprintf("failed (%d)", code))
		return
	}
	code := compile(prog, 0, 0)
	destroy(&prog)
	if code != 0 {
		pr.p.Report(label, fmt.Sprintf("failed (%d)", code))
		return
	}
	pr.p.Report(label, "OK")
}

// statusProbe handles the out-parameter calling convention: the entry
// point fills the version and returns a status code, zero on success.
func (pr *Probes) statusProbe(label, libname, symbol string, optional bool) *int {
	lib, label, ok := pr.resolve(label, libname)
	if !ok {
		pr.reportNotFound(label, optional)
		return nil
	}
	var version func(out *int32) int32
	if !lib.Bind(&version, symbol) {
		pr.reportNotFound(label, optional)
		return nil
	}
	var v int32
	if code := version(&v); code != 0 {
		pr.p.Report(label, fmt.Sprintf("(ERROR %d!)", code))
		return nil
	}
	pr.p.Report(label, fmt.Sprintf("OK (version %d from %s)", v, lib.SymbolPath(symbol)))
	result := int(v)
	return &result
}

// valueProbe handles the direct calling convention: the entry point
// returns the version as its result and has no failure mode.
func (pr *Probes) valueProbe(label, libname, symbol string, optional bool) *int {
	lib, label, ok := pr.resolve(label, libname)
	if !ok {
		pr.reportNotFound(label, optional)
		return nil
	}
	var version func() uintptr
	if !lib.Bind(&version, symbol) {
		pr.reportNotFound(label, optional)
		return nil
	}
	v := int(version())
	pr.p.Report(label, fmt.Sprintf("OK (version %d from %s)", v, lib.SymbolPath(symbol)))
	return &v
}

func (pr *Probes) reportNotFound(label string, optional bool) {
	if optional {
		pr.p.Report(label, "not found (optional)")
		return
	}
	pr.p.Report(label, "not found")
}

// resolve opens a library by logical name, falling back once to the
// companion package's bundled libraries. The returned label carries
// the "(via <companion>)" suffix when the fallback supplied the
// library.
func (pr *Probes) resolve(label, libname string) (Lib, string, bool) {
	if lib, err := pr.opener.Open(libname); err == nil {
		return lib, label, true
	}
	if !pr.loadCompanion() {
		return nil, label, false
	}
	lib, err := pr.opener.Open(libname)
	if err != nil {
		return nil, label, false
	}
	return lib, fmt.Sprintf("%s (via %s)", label, pr.companionName), true
}

// loadCompanion loads the companion package's bundled libraries, at
// most once per run. Every failure is discarded; a missing or broken
// companion must never abort a probe.
func (pr *Probes) loadCompanion() bool {
	if pr.companionTried {
		return pr.companionLoaded
	}
	pr.companionTried = true
	if pr.companionLibs == nil {
		return false
	}
	for _, path := range pr.companionLibs() {
		if _, err := pr.opener.OpenPath(path); err != nil {
			slog.Debug("companion library failed to load", "path", path, "err", err)
			continue
		}
		pr.companionLoaded = true
	}
	return pr.companionLoaded
}
