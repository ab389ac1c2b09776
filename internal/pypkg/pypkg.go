// Package pypkg inspects the host's Python package installations
// without running an interpreter. It reads dist-info/egg-info metadata
// from site-packages directories and resolves importable module paths
// and version attributes directly from the installed files.
package pypkg

import (
	"bufio"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kmaehashi/chainer-doctor/internal/report"
)

// Dist is the installed metadata of one Python distribution.
type Dist struct {
	Name     string // project name as recorded in metadata
	Version  string
	Location string // site-packages directory containing it
}

// Module is the result of resolving an importable module.
type Module struct {
	Version string // declared version, or "(unknown version)"
	Path    string // package directory or module file
}

// ImportError describes why a module could not be resolved. Kind is
// the error category name, matching what an interpreter would raise.
type ImportError struct {
	Kind string
	Msg  string
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Finder looks up distributions and modules across a fixed set of
// site-packages directories, resolved once at construction.
type Finder struct {
	dirs []string
}

// NewFinder discovers site-packages directories: the supplied extras
// first, then the active virtualenv, PYTHONPATH entries, the user
// site, and the system locations. Directories that do not exist are
// dropped.
func NewFinder(extra []string) *Finder {
	var candidates []string
	candidates = append(candidates, extra...)

	if venv := os.Getenv("VIRTUAL_ENV"); venv != "" {
		candidates = append(candidates, globbed(filepath.Join(venv, "lib", "python*", "site-packages"))...)
	}
	if pp := os.Getenv("PYTHONPATH"); pp != "" {
		candidates = append(candidates, filepath.SplitList(pp)...)
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, globbed(filepath.Join(home, ".local", "lib", "python*", "site-packages"))...)
	}
	for _, root := range []string{"/usr/lib", "/usr/local/lib"} {
		candidates = append(candidates, globbed(filepath.Join(root, "python3*", "site-packages"))...)
		candidates = append(candidates, globbed(filepath.Join(root, "python3*", "dist-packages"))...)
	}

	f := &Finder{}
	seen := make(map[string]bool)
	for _, dir := range candidates {
		if dir == "" || seen[dir] {
			continue
		}
		seen[dir] = true
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			f.dirs = append(f.dirs, dir)
		}
	}
	slog.Debug("site-packages discovered", "dirs", f.dirs)
	return f
}

// NewFixedFinder creates a Finder over exactly the given directories,
// skipping discovery. Useful when the search set is fully known.
func NewFixedFinder(dirs ...string) *Finder {
	return &Finder{dirs: dirs}
}

func globbed(pattern string) []string {
	matches, _ := filepath.Glob(pattern)
	return matches
}

// Dirs returns the site-packages directories in search order.
func (f *Finder) Dirs() []string {
	return f.dirs
}

// Distribution returns the installed metadata for the named
// distribution, or nil when it is not installed. Not-installed is a
// normal outcome, never an error.
func (f *Finder) Distribution(name string) *Dist {
	want := normalize(name)
	for _, dir := range f.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			dist := parseMetadataDir(dir, e.Name())
			if dist == nil {
				continue
			}
			if normalize(dist.Name) == want {
				return dist
			}
		}
	}
	return nil
}

// parseMetadataDir interprets a "<name>-<version>.dist-info" or
// "<name>[-<version>].egg-info" entry, preferring the names recorded
// inside the metadata file over the directory name.
func parseMetadataDir(location, entry string) *Dist {
	var base, metaFile string
	switch {
	case strings.HasSuffix(entry, ".dist-info"):
		base = strings.TrimSuffix(entry, ".dist-info")
		metaFile = "METADATA"
	case strings.HasSuffix(entry, ".egg-info"):
		base = strings.TrimSuffix(entry, ".egg-info")
		metaFile = "PKG-INFO"
	default:
		return nil
	}

	dist := &Dist{Location: location}
	if i := strings.Index(base, "-"); i > 0 {
		dist.Name = base[:i]
		dist.Version = base[i+1:]
	} else {
		dist.Name = base
	}

	file, err := os.Open(filepath.Join(location, entry, metaFile))
	if err != nil {
		if dist.Name == "" {
			return nil
		}
		return dist
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			break // end of headers
		}
		if v, ok := strings.CutPrefix(line, "Name: "); ok {
			dist.Name = strings.TrimSpace(v)
		}
		if v, ok := strings.CutPrefix(line, "Version: "); ok {
			dist.Version = strings.TrimSpace(v)
		}
	}
	if dist.Name == "" {
		return nil
	}
	return dist
}

var versionRe = regexp.MustCompile(`(?m)^__version__\s*=\s*['"]([^'"]+)['"]`)

// ImportModule resolves an importable module by name. It mirrors what
// an import would observe: the package directory (or single-file
// module) and its declared __version__ attribute.
func (f *Finder) ImportModule(modname string) (*Module, *ImportError) {
	for _, dir := range f.dirs {
		pkgDir := filepath.Join(dir, modname)
		if init := filepath.Join(pkgDir, "__init__.py"); fileExists(init) {
			return &Module{
				Version: packageVersion(pkgDir),
				Path:    pkgDir,
			}, nil
		}
		if modFile := filepath.Join(dir, modname+".py"); fileExists(modFile) {
			return &Module{
				Version: fileVersion(modFile),
				Path:    modFile,
			}, nil
		}
	}
	return nil, &ImportError{
		Kind: "ModuleNotFoundError",
		Msg:  fmt.Sprintf("No module named '%s'", modname),
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// packageVersion extracts the declared version of a package directory
// from the conventional files, in the order an __init__ would usually
// populate it.
func packageVersion(pkgDir string) string {
	for _, name := range []string{"_version.py", "version.py", "__init__.py"} {
		if v := fileVersion(filepath.Join(pkgDir, name)); v != unknownVersion {
			return v
		}
	}
	return unknownVersion
}

const unknownVersion = "(unknown version)"

func fileVersion(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return unknownVersion
	}
	if m := versionRe.FindSubmatch(data); m != nil {
		return string(m[1])
	}
	return unknownVersion
}

// BundledLibraries returns the shared libraries shipped inside an
// installed package tree. Used to pull in natives that a package links
// privately, making them resolvable by name afterwards.
func (f *Finder) BundledLibraries(modname string) []string {
	mod, ierr := f.ImportModule(modname)
	if ierr != nil {
		return nil
	}
	var libs []string
	filepath.WalkDir(mod.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		base := d.Name()
		if strings.Contains(base, ".so") || strings.HasSuffix(base, ".dylib") {
			libs = append(libs, path)
		}
		return nil
	})
	return libs
}

// ReportPackage prints one package status line. The display label, the
// import name, and the distribution are independent: a project may be
// distributed under several names but imported under one.
func (f *Finder) ReportPackage(p *report.Printer, label, modname string, dist *Dist) {
	var importMsg string
	if mod, ierr := f.ImportModule(modname); ierr != nil {
		importMsg = fmt.Sprintf("import failed with %s: %s", ierr.Kind, ierr.Msg)
	} else {
		importMsg = fmt.Sprintf("importing %s from %s", mod.Version, mod.Path)
	}

	installMsg := "not installed"
	if dist != nil {
		installMsg = fmt.Sprintf("OK (%s version %s from %s)", dist.Name, dist.Version, dist.Location)
	}
	p.Report(label, fmt.Sprintf("%s (%s)", installMsg, importMsg))
}

var normalizeRe = regexp.MustCompile(`[-_.]+`)

// normalize applies distribution-name normalization so that
// "cupy_cuda90", "Cupy-CUDA90", and "cupy-cuda90" compare equal.
func normalize(name string) string {
	return strings.ToLower(normalizeRe.ReplaceAllString(name, "-"))
}
