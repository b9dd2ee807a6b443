//go:build linux

package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func memory() (total, avail uint64, err error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return 0, 0, fmt.Errorf("sysinfo: %w", err)
	}
	unit := uint64(info.Unit)
	if unit == 0 {
		unit = 1
	}
	total = uint64(info.Totalram) * unit
	avail = (uint64(info.Freeram) + uint64(info.Bufferram)) * unit
	return total, avail, nil
}
