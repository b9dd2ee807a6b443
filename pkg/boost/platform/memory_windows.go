//go:build windows

package platform

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modntdll                   = windows.NewLazySystemDLL("ntdll.dll")
	procNtSetSystemInformation = modntdll.NewProc("NtSetSystemInformation")
	procNtSetTimerResolution   = modntdll.NewProc("NtSetTimerResolution")
)

const (
	systemMemoryListInformation = 80
	memoryPurgeStandbyList      = 4
)

type memoryManager struct{}

func (memoryManager) PurgeStandbyList() error {
	if err := enablePrivilege("SeProfileSingleProcessPrivilege"); err != nil {
		return err
	}
	cmd := uint32(memoryPurgeStandbyList)
	r, _, _ := procNtSetSystemInformation.Call(
		systemMemoryListInformation,
		uintptr(unsafe.Pointer(&cmd)),
		unsafe.Sizeof(cmd),
	)
	if r != 0 {
		return fmt.Errorf("purging standby list: %w", windows.NTStatus(r))
	}
	return nil
}

func (memoryManager) SetTimerResolution(hundredNanos uint32) (uint32, error) {
	var actual uint32
	r, _, _ := procNtSetTimerResolution.Call(
		uintptr(hundredNanos),
		1,
		uintptr(unsafe.Pointer(&actual)),
	)
	if r != 0 {
		return 0, fmt.Errorf("setting timer resolution: %w", windows.NTStatus(r))
	}
	return actual, nil
}

// enablePrivilege turns on a privilege in the current process token.
func enablePrivilege(name string) error {
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_ADJUST_PRIVILEGES|windows.TOKEN_QUERY, &token); err != nil {
		return fmt.Errorf("opening process token: %w", err)
	}
	defer token.Close()

	var luid windows.LUID
	if err := windows.LookupPrivilegeValue(nil, windows.StringToUTF16Ptr(name), &luid); err != nil {
		return fmt.Errorf("looking up %s: %w", name, err)
	}

	tp := windows.Tokenprivileges{PrivilegeCount: 1}
	tp.Privileges[0] = windows.LUIDAndAttributes{Luid: luid, Attributes: windows.SE_PRIVILEGE_ENABLED}
	if err := windows.AdjustTokenPrivileges(token, false, &tp, 0, nil, nil); err != nil {
		return fmt.Errorf("enabling %s: %w", name, err)
	}
	return nil
}
