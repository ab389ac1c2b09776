// Package compat checks installed CuPy packages against the detected
// CUDA runtime version. CuPy ships as one source distribution plus
// prebuilt per-CUDA wheels; exactly one variant is expected on a host,
// and each variant supports a fixed runtime version range.
package compat

import (
	"github.com/kmaehashi/chainer-doctor/internal/pypkg"
	"github.com/kmaehashi/chainer-doctor/internal/report"
)

// Rule pairs a distribution name with the runtime versions it supports.
type Rule struct {
	Package  string
	Supports func(version int) bool
}

// CuPyRules is the fixed table of CuPy distribution variants.
var CuPyRules = []Rule{
	{"cupy", func(v int) bool { return 7000 <= v && v < 10000 }},
	{"cupy-cuda80", func(v int) bool { return 8000 <= v && v < 9000 }},
	{"cupy-cuda90", func(v int) bool { return 9000 <= v && v < 9100 }},
	{"cupy-cuda91", func(v int) bool { return 9100 <= v && v < 9200 }},
}

// Validate reports every installed rule package and flags two error
// conditions: an installed variant whose supported range excludes the
// detected runtime version, and more than one variant installed at
// once. A nil runtimeVersion skips the range check (nothing to compare
// against) but the mutual-exclusion check still runs.
func Validate(p *report.Printer, f *pypkg.Finder, rules []Rule, runtimeVersion *int) {
	var found *pypkg.Dist
	for _, rule := range rules {
		dist := f.Distribution(rule.Package)
		if dist == nil {
			continue
		}
		f.ReportPackage(p, "CuPy", "cupy", dist)
		if runtimeVersion != nil && !rule.Supports(*runtimeVersion) {
			p.Warn("This CuPy package (%s) does not support CUDA version %d!",
				rule.Package, *runtimeVersion)
		}
		if found != nil {
			p.Warn("multiple CuPy packages are installed! You can only install one of %v.",
				ruleNames(rules))
		}
		found = dist
	}
	if found == nil {
		f.ReportPackage(p, "CuPy", "cupy", nil)
	}
}

func ruleNames(rules []Rule) []string {
	names := make([]string, len(rules))
	for i, r := range rules {
		names[i] = r.Package
	}
	return names
}
