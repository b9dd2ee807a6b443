// Package sysinfo reports physical memory so memory tweaks can show how
// much RAM they released.
package sysinfo

import (
	"runtime"

	"github.com/dustin/go-humanize"
)

// Resources is a point-in-time view of the machine.
type Resources struct {
	// CPUCores is the number of logical CPUs.
	CPUCores int

	// TotalRAM is physical memory in bytes.
	TotalRAM uint64

	// AvailableRAM is memory that can be handed to applications without
	// paging, in bytes.
	AvailableRAM uint64
}

// Detect reads the current resources.
func Detect() (Resources, error) {
	total, avail, err := memory()
	return Resources{
		CPUCores:     runtime.NumCPU(),
		TotalRAM:     total,
		AvailableRAM: avail,
	}, err
}

// Available returns the currently available RAM in bytes.
func Available() (uint64, error) {
	_, avail, err := memory()
	return avail, err
}

// UsedPercent returns the share of RAM in use, 0 to 100.
func (r Resources) UsedPercent() float64 {
	if r.TotalRAM == 0 {
		return 0
	}
	return 100 * float64(r.TotalRAM-min(r.AvailableRAM, r.TotalRAM)) / float64(r.TotalRAM)
}

// Delta describes a change in available RAM, e.g. "+512 MiB" or "-3.0 MiB".
func Delta(before, after uint64) string {
	if after >= before {
		return "+" + humanize.IBytes(after-before)
	}
	return "-" + humanize.IBytes(before-after)
}
