//go:build darwin

package sysinfo

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func memory() (total, avail uint64, err error) {
	total, err = unix.SysctlUint64("hw.memsize")
	if err != nil {
		return 0, 0, fmt.Errorf("sysctl hw.memsize: %w", err)
	}
	free, err := unix.SysctlUint32("vm.page_free_count")
	if err != nil {
		return total, 0, fmt.Errorf("sysctl vm.page_free_count: %w", err)
	}
	return total, uint64(free) * uint64(unix.Getpagesize()), nil
}
