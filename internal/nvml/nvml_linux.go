//go:build linux

// Package nvml reports driver-level device information through the
// NVIDIA Management Library. The library ships with the driver, so its
// absence usually means no driver is installed; that is a normal
// finding, not an error.
package nvml

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"

	"github.com/kmaehashi/chainer-doctor/internal/report"
)

// Section prints the NVML report lines: driver and NVML versions plus
// the name of each device. Initialization failure is reported and
// swallowed.
func Section(p *report.Printer) {
	ret := nvml.Init()
	if ret == nvml.ERROR_LIBRARY_NOT_FOUND {
		p.Report("NVML", "not found (optional)")
		return
	}
	if ret != nvml.SUCCESS {
		p.Report("NVML", fmt.Sprintf("(ERROR %s!)", nvml.ErrorString(ret)))
		return
	}
	defer func() {
		_ = nvml.Shutdown()
	}()

	if v, ret := nvml.SystemGetDriverVersion(); ret == nvml.SUCCESS {
		p.Report("Driver Version", v)
	}
	if v, ret := nvml.SystemGetNVMLVersion(); ret == nvml.SUCCESS {
		p.Report("NVML Version", v)
	}

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		p.Report("Devices", fmt.Sprintf("(ERROR %s!)", nvml.ErrorString(ret)))
		return
	}
	p.Report("Devices", fmt.Sprintf("%d", count))
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			continue
		}
		name, ret := dev.GetName()
		if ret != nvml.SUCCESS {
			continue
		}
		p.Report(fmt.Sprintf("Device %d", i), name)
	}
}
