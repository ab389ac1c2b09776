//go:build !linux

// Package nvml reports driver-level device information through the
// NVIDIA Management Library. Only available on Linux.
package nvml

import (
	"github.com/kmaehashi/chainer-doctor/internal/report"
)

// Section reports NVML as unavailable on platforms without it.
func Section(p *report.Printer) {
	p.Report("NVML", "not available on this platform")
}
