package cuda

import (
	"errors"
	"strings"
	"testing"

	"github.com/kmaehashi/chainer-doctor/internal/report"
)

type fakeLib struct {
	syms map[string]any
	path string
}

func (f *fakeLib) Bind(fptr any, name string) bool {
	fn, ok := f.syms[name]
	if !ok {
		return false
	}
	switch p := fptr.(type) {
	case *func(*int32) int32:
		*p = fn.(func(*int32) int32)
	case *func() uintptr:
		*p = fn.(func() uintptr)
	case *func(*int32, *int32) int32:
		*p = fn.(func(*int32, *int32) int32)
	case *func(*uintptr, string, string, int32, uintptr, uintptr) int32:
		*p = fn.(func(*uintptr, string, string, int32, uintptr, uintptr) int32)
	case *func(uintptr, int32, uintptr) int32:
		*p = fn.(func(uintptr, int32, uintptr) int32)
	case *func(*uintptr) int32:
		*p = fn.(func(*uintptr) int32)
	default:
		return false
	}
	return true
}

func (f *fakeLib) SymbolPath(string) string {
	return f.path
}

// fakeOpener serves libraries by logical name. Entries in late become
// resolvable only after at least one successful OpenPath, modeling a
// companion package pulling its bundled natives into the process.
type fakeOpener struct {
	direct map[string]*fakeLib
	late   map[string]*fakeLib
	bundle map[string]*fakeLib // path -> library

	companionLoaded bool
	openPathCalls   int
}

func (o *fakeOpener) Open(name string) (Lib, error) {
	if lib, ok := o.direct[name]; ok {
		return lib, nil
	}
	if o.companionLoaded {
		if lib, ok := o.late[name]; ok {
			return lib, nil
		}
	}
	return nil, errors.New("not found")
}

func (o *fakeOpener) OpenPath(path string) (Lib, error) {
	o.openPathCalls++
	lib, ok := o.bundle[path]
	if !ok {
		return nil, errors.New("load failed")
	}
	o.companionLoaded = true
	return lib, nil
}

func newProbes(o *fakeOpener, libs func() []string) (*Probes, *strings.Builder) {
	var buf strings.Builder
	p := report.NewPrinter(&buf, false)
	return NewProbes(p, o, "cupy", libs), &buf
}

func TestRuntimeVersionSuccess(t *testing.T) {
	t.Parallel()
	o := &fakeOpener{direct: map[string]*fakeLib{
		"cudart": {
			path: "/usr/local/cuda/lib64/libcudart.so.9.0",
			syms: map[string]any{
				"cudaRuntimeGetVersion": func(out *int32) int32 {
					*out = 9050
					return 0
				},
			},
		},
	}}
	pr, buf := newProbes(o, nil)

	v := pr.Runtime()
	if v == nil || *v != 9050 {
		t.Fatalf("Runtime() = %v, want 9050", v)
	}
	want := "CUDA Runtime          : OK (version 9050 from /usr/local/cuda/lib64/libcudart.so.9.0)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestRuntimeVersionErrorCode(t *testing.T) {
	t.Parallel()
	o := &fakeOpener{direct: map[string]*fakeLib{
		"cudart": {
			syms: map[string]any{
				"cudaRuntimeGetVersion": func(out *int32) int32 { return 35 },
			},
		},
	}}
	pr, buf := newProbes(o, nil)

	if v := pr.Runtime(); v != nil {
		t.Errorf("Runtime() = %d, want nil on error status", *v)
	}
	if !strings.Contains(buf.String(), "CUDA Runtime") || !strings.Contains(buf.String(), "(ERROR 35!)") {
		t.Errorf("output = %q, want error code surfaced", buf.String())
	}
}

func TestRuntimeNotFound(t *testing.T) {
	t.Parallel()
	pr, buf := newProbes(&fakeOpener{}, nil)

	if v := pr.Runtime(); v != nil {
		t.Errorf("Runtime() = %d, want nil", *v)
	}
	if !strings.Contains(buf.String(), "CUDA Runtime          : not found\n") {
		t.Errorf("output = %q, want not found", buf.String())
	}
}

func TestOptionalProbesReportOptionalVariant(t *testing.T) {
	t.Parallel()
	pr, buf := newProbes(&fakeOpener{}, nil)

	pr.CUDNN()
	pr.NCCL()

	got := buf.String()
	if strings.Count(got, "not found (optional)") != 2 {
		t.Errorf("output = %q, want two optional not-found lines", got)
	}
}

func TestCUDNNDirectValueShape(t *testing.T) {
	t.Parallel()
	o := &fakeOpener{direct: map[string]*fakeLib{
		"cudnn": {
			path: "/usr/lib/libcudnn.so.7",
			syms: map[string]any{
				"cudnnGetVersion": func() uintptr { return 7102 },
			},
		},
	}}
	pr, buf := newProbes(o, nil)

	pr.CUDNN()

	want := "cuDNN                 : OK (version 7102 from /usr/lib/libcudnn.so.7)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestNVRTCMajorMinor(t *testing.T) {
	t.Parallel()
	o := &fakeOpener{direct: map[string]*fakeLib{
		"nvrtc": {
			path: "/usr/local/cuda/lib64/libnvrtc.so.9.0",
			syms: map[string]any{
				"nvrtcVersion": func(major, minor *int32) int32 {
					*major, *minor = 9, 0
					return 0
				},
			},
		},
	}}
	pr, buf := newProbes(o, nil)

	pr.NVRTC()

	if !strings.Contains(buf.String(), "OK (version 9.0 from /usr/local/cuda/lib64/libnvrtc.so.9.0)") {
		t.Errorf("output = %q, want major.minor version", buf.String())
	}
}

func TestCompanionFallbackLabelsProbe(t *testing.T) {
	t.Parallel()
	bundled := &fakeLib{
		path: "/site-packages/cupy/core/libcudart.so.9.0",
		syms: map[string]any{
			"cudaRuntimeGetVersion": func(out *int32) int32 {
				*out = 9000
				return 0
			},
		},
	}
	o := &fakeOpener{
		late:   map[string]*fakeLib{"cudart": bundled},
		bundle: map[string]*fakeLib{"/site-packages/cupy/core/libcudart.so.9.0": bundled},
	}
	pr, buf := newProbes(o, func() []string {
		return []string{"/site-packages/cupy/core/libcudart.so.9.0"}
	})

	v := pr.Runtime()
	if v == nil || *v != 9000 {
		t.Fatalf("Runtime() = %v, want 9000 via fallback", v)
	}
	if !strings.Contains(buf.String(), "CUDA Runtime (via cupy)") {
		t.Errorf("output = %q, want via-companion label", buf.String())
	}
}

func TestCompanionFailureIsSilent(t *testing.T) {
	t.Parallel()
	o := &fakeOpener{} // every OpenPath fails
	calls := 0
	pr, buf := newProbes(o, func() []string {
		calls++
		return []string{"/broken/libcudart.so", "/missing/libnccl.so"}
	})

	pr.Runtime()
	pr.NCCL()

	got := buf.String()
	if !strings.Contains(got, "CUDA Runtime          : not found\n") {
		t.Errorf("output = %q, want plain not found", got)
	}
	if !strings.Contains(got, "NCCL                  : not found (optional)\n") {
		t.Errorf("output = %q, want optional not found", got)
	}
	if calls != 1 {
		t.Errorf("companion import attempted %d times, want exactly 1", calls)
	}
}

func TestBuiltinsProvenance(t *testing.T) {
	t.Parallel()
	o := &fakeOpener{direct: map[string]*fakeLib{
		"nvrtc-builtins": {
			path: "/usr/local/cuda/lib64/libnvrtc-builtins.so",
			syms: map[string]any{},
		},
	}}
	pr, buf := newProbes(o, nil)

	pr.Builtins()

	want := "NVRTC Builtins        : Found (/usr/local/cuda/lib64/libnvrtc-builtins.so)\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestCompileTestSuccess(t *testing.T) {
	t.Parallel()
	o := &fakeOpener{direct: map[string]*fakeLib{
		"nvrtc": {
			syms: map[string]any{
				"nvrtcCreateProgram": func(prog *uintptr, src, name string, n int32, h, i uintptr) int32 {
					*prog = 1
					return 0
				},
				"nvrtcCompileProgram": func(prog uintptr, n int32, opts uintptr) int32 { return 0 },
				"nvrtcDestroyProgram": func(prog *uintptr) int32 { return 0 },
			},
		},
	}}
	pr, buf := newProbes(o, nil)

	pr.CompileTest()

	if !strings.Contains(buf.String(), "Compiler Test         : OK\n") {
		t.Errorf("output = %q, want OK", buf.String())
	}
}

func TestCompileTestFailureCode(t *testing.T) {
	t.Parallel()
	destroyed := false
	o := &fakeOpener{direct: map[string]*fakeLib{
		"nvrtc": {
			syms: map[string]any{
				"nvrtcCreateProgram": func(prog *uintptr, src, name string, n int32, h, i uintptr) int32 {
					*prog = 1
					return 0
				},
				"nvrtcCompileProgram": func(prog uintptr, n int32, opts uintptr) int32 { return 6 },
				"nvrtcDestroyProgram": func(prog *uintptr) int32 {
					destroyed = true
					return 0
				},
			},
		},
	}}
	pr, buf := newProbes(o, nil)

	pr.CompileTest()

	if !strings.Contains(buf.String(), "failed (6)") {
		t.Errorf("output = %q, want failure code", buf.String())
	}
	if !destroyed {
		t.Error("program not destroyed after failed compile")
	}
}

func TestMissingSymbolIsAbsence(t *testing.T) {
	t.Parallel()
	o := &fakeOpener{direct: map[string]*fakeLib{
		"cuda": {syms: map[string]any{}},
	}}
	pr, buf := newProbes(o, nil)

	pr.Driver()

	if !strings.Contains(buf.String(), "CUDA Driver           : not found\n") {
		t.Errorf("output = %q, want not found for missing symbol", buf.String())
	}
}
