//go:build windows

package memory_map

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	memCommit = 0x1000
	memMapped = 0x40000
	memImage  = 0x1000000
)

var (
	modpsapi                 = windows.NewLazySystemDLL("psapi.dll")
	procGetMappedFileNameW   = modpsapi.NewProc("GetMappedFileNameW")
	maxUserAddress           = uintptr(0x7FFFFFFEFFFF)
	queryAccess       uint32 = windows.PROCESS_QUERY_INFORMATION | windows.PROCESS_VM_READ
)

// WindowsMemoryMap implements MemoryMap for Windows
type WindowsMemoryMap struct{}

// NewWindowsMemoryMap creates a new WindowsMemoryMap instance
func NewWindowsMemoryMap() *WindowsMemoryMap {
	return &WindowsMemoryMap{}
}

// ReadMemoryMap opens the process for query access and walks its address space
func (w *WindowsMemoryMap) ReadMemoryMap(pid int) ([]MemoryRange, error) {
	handle, err := windows.OpenProcess(queryAccess, false, uint32(pid))
	if err != nil {
		return nil, fmt.Errorf("OpenProcess: %w", err)
	}
	defer windows.CloseHandle(handle)

	return w.ReadMemoryMapHandle(handle)
}

// ReadMemoryMapHandle walks the address space of an already opened process with VirtualQueryEx
func (w *WindowsMemoryMap) ReadMemoryMapHandle(handle windows.Handle) ([]MemoryRange, error) {
	var (
		ranges []MemoryRange
		addr   uintptr
		mbi    windows.MemoryBasicInformation
	)

	for addr < maxUserAddress {
		if err := windows.VirtualQueryEx(handle, addr, &mbi, unsafe.Sizeof(mbi)); err != nil {
			break
		}
		if mbi.RegionSize == 0 {
			break
		}

		base := uintptr(mbi.BaseAddress)
		next := base + uintptr(mbi.RegionSize)

		if mbi.State == memCommit {
			perms, valid := protectToPerms(mbi.Protect)
			perms.Shared = mbi.Type == memMapped

			name := ""
			if mbi.Type == memMapped || mbi.Type == memImage {
				name = mappedFileName(handle, base)
			}

			ranges = append(ranges, MemoryRange{
				Start: uint64(base),
				End:   uint64(next),
				Perms: perms,
				Valid: valid,
				Name:  name,
				Base:  uint64(mbi.AllocationBase),
			})
		}

		if next <= addr {
			break
		}
		addr = next
	}

	return Coalesce(ranges), nil
}

// protectToPerms maps a PAGE_* value to permissions. Guard and no-access
// pages are reported as invalid.
func protectToPerms(protect uint32) (Permissions, bool) {
	if protect&windows.PAGE_GUARD != 0 || protect&windows.PAGE_NOACCESS != 0 {
		return Permissions{}, false
	}

	switch protect &^ (windows.PAGE_NOCACHE | windows.PAGE_WRITECOMBINE) {
	case windows.PAGE_READONLY:
		return Permissions{Read: true}, true
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		return Permissions{Read: true, Write: true}, true
	case windows.PAGE_EXECUTE:
		return Permissions{Execute: true}, true
	case windows.PAGE_EXECUTE_READ:
		return Permissions{Read: true, Execute: true}, true
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		return Permissions{Read: true, Write: true, Execute: true}, true
	}
	return Permissions{}, false
}

// PermsToProtect maps permissions to the closest PAGE_* value
func PermsToProtect(p Permissions) uint32 {
	switch {
	case p.Execute && p.Write:
		return windows.PAGE_EXECUTE_READWRITE
	case p.Execute && p.Read:
		return windows.PAGE_EXECUTE_READ
	case p.Execute:
		return windows.PAGE_EXECUTE
	case p.Write:
		return windows.PAGE_READWRITE
	case p.Read:
		return windows.PAGE_READONLY
	}
	return windows.PAGE_NOACCESS
}

func mappedFileName(handle windows.Handle, addr uintptr) string {
	buf := make([]uint16, windows.MAX_PATH)
	n, _, _ := procGetMappedFileNameW.Call(uintptr(handle), addr, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if n == 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}
