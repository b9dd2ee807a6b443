//go:build !windows && !linux && !darwin

package sysinfo

import (
	"errors"
	"fmt"
)

func memory() (total, avail uint64, err error) {
	return 0, 0, fmt.Errorf("memory detection: %w", errors.ErrUnsupported)
}
