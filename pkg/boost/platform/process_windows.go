//go:build windows

package platform

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modpsapi            = windows.NewLazySystemDLL("psapi.dll")
	procEmptyWorkingSet = modpsapi.NewProc("EmptyWorkingSet")
)

type processManager struct{}

// exeKey normalizes an executable or process name for matching.
func exeKey(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".exe")
}

// eachProcess calls fn for every process in a toolhelp snapshot.
func eachProcess(fn func(pid uint32, exe string)) error {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return fmt.Errorf("process snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var pe windows.ProcessEntry32
	pe.Size = uint32(unsafe.Sizeof(pe))
	for err = windows.Process32First(snap, &pe); err == nil; err = windows.Process32Next(snap, &pe) {
		fn(pe.ProcessID, windows.UTF16ToString(pe.ExeFile[:]))
	}
	if !errors.Is(err, windows.ERROR_NO_MORE_FILES) {
		return fmt.Errorf("walking processes: %w", err)
	}
	return nil
}

func (processManager) KillByName(names []string) (int, error) {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[exeKey(n)] = true
	}

	self := windows.GetCurrentProcessId()
	killed := 0
	err := eachProcess(func(pid uint32, exe string) {
		if pid == self || !want[exeKey(exe)] {
			return
		}
		h, err := windows.OpenProcess(windows.PROCESS_TERMINATE, false, pid)
		if err != nil {
			return
		}
		defer windows.CloseHandle(h)
		if windows.TerminateProcess(h, 1) == nil {
			killed++
		}
	})
	return killed, err
}

func (processManager) TrimWorkingSets() (int, error) {
	trimmed := 0
	err := eachProcess(func(pid uint32, _ string) {
		if pid == 0 {
			return
		}
		h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION|windows.PROCESS_SET_QUOTA, false, pid)
		if err != nil {
			return
		}
		defer windows.CloseHandle(h)
		if r, _, _ := procEmptyWorkingSet.Call(uintptr(h)); r != 0 {
			trimmed++
		}
	})
	return trimmed, err
}

func (processManager) RaisePriority() error {
	return windows.SetPriorityClass(windows.CurrentProcess(), windows.HIGH_PRIORITY_CLASS)
}
