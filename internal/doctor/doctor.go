// Package doctor sequences the diagnostic checks and assembles the
// report. It holds no state beyond the run itself; every probe outcome
// is converted to report text and the run always completes unless the
// output stream itself fails.
package doctor

import (
	"io"
	"os"
	"runtime"
	"strings"

	"golang.org/x/term"

	"github.com/kmaehashi/chainer-doctor/internal/compat"
	"github.com/kmaehashi/chainer-doctor/internal/config"
	"github.com/kmaehashi/chainer-doctor/internal/cuda"
	"github.com/kmaehashi/chainer-doctor/internal/nvml"
	"github.com/kmaehashi/chainer-doctor/internal/pypkg"
	"github.com/kmaehashi/chainer-doctor/internal/report"
)

// Run executes every check in order and writes the report to out. The
// returned error is non-nil only when writing the report itself failed;
// probe failures are findings, not errors.
func Run(cfg *config.Config, out io.Writer) error {
	p := report.NewPrinter(out, useColor(cfg, out))

	environment(p, out)

	finder := pypkg.NewFinder(cfg.SitePackages)
	opener := cuda.NewOpener(cfg.LibraryDirs)
	probes := cuda.NewProbes(p, opener, "cupy", func() []string {
		return finder.BundledLibraries("cupy")
	})

	p.Header("CUDA Libraries")
	probes.Driver()
	runtimeVersion := probes.Runtime()
	probes.CUDNN()
	probes.NCCL()
	probes.NVRTC()
	probes.Builtins()
	probes.CompileTest()

	p.Header("NVML")
	nvml.Section(p)

	p.Header("Python Modules")
	finder.ReportPackage(p, "Chainer", "chainer", finder.Distribution("chainer"))
	compat.Validate(p, finder, compat.CuPyRules, runtimeVersion)
	finder.ReportPackage(p, "NumPy", "numpy", finder.Distribution("numpy"))
	finder.ReportPackage(p, "iDeep", "ideep4py", finder.Distribution("ideep4py"))

	return p.Err()
}

// environment prints process-level context: where the tool runs and
// which dynamic-linker variables are set. Only LD_* and DYLD_* names
// are echoed; everything else in the environment stays private.
func environment(p *report.Printer, out io.Writer) {
	p.Header("Environment")
	if cwd, err := os.Getwd(); err == nil {
		p.Report("Current Directory", cwd)
	}
	if host, err := os.Hostname(); err == nil {
		p.Report("Hostname", host)
	}
	p.Report("Platform", runtime.GOOS+"/"+runtime.GOARCH)
	if k := kernelVersion(); k != "" {
		p.Report("Kernel", k)
	}
	if isTerminal(out) {
		p.Report("Terminal", "tty")
	} else {
		p.Report("Terminal", "not a tty")
	}
	for _, kv := range os.Environ() {
		name, value, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, "LD_") || strings.HasPrefix(name, "DYLD_") {
			p.Report("$"+name, value)
		}
	}
}

func useColor(cfg *config.Config, out io.Writer) bool {
	return !cfg.NoColor && isTerminal(out)
}

func isTerminal(out io.Writer) bool {
	f, ok := out.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
