//go:build windows

package process_windows

import (
	"fmt"
	"regexp"
	"strings"
	"unsafe"

	"simhook/process"

	"golang.org/x/sys/windows"
)

// WindowsProcessFinder implements process.ProcessFinder with a toolhelp snapshot
type WindowsProcessFinder struct{}

func NewProcessFinder() process.ProcessFinder {
	return &WindowsProcessFinder{}
}

func (f *WindowsProcessFinder) FindProcessByPID(pid process.ProcessID) (*process.ProcessInfo, error) {
	list, err := snapshot(func(e *windows.ProcessEntry32) bool { return e.ProcessID == uint32(pid) })
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("process with PID %d does not exist", pid)
	}
	return &list[0], nil
}

func (f *WindowsProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	return snapshot(func(e *windows.ProcessEntry32) bool {
		return strings.EqualFold(windows.UTF16ToString(e.ExeFile[:]), name)
	})
}

func (f *WindowsProcessFinder) FindProcessByNamePattern(pattern string) ([]process.ProcessInfo, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	return snapshot(func(e *windows.ProcessEntry32) bool {
		return re.MatchString(windows.UTF16ToString(e.ExeFile[:]))
	})
}

func snapshot(match func(*windows.ProcessEntry32) bool) ([]process.ProcessInfo, error) {
	snap, err := windows.CreateToolhelp32Snapshot(windows.TH32CS_SNAPPROCESS, 0)
	if err != nil {
		return nil, fmt.Errorf("CreateToolhelp32Snapshot: %w", err)
	}
	defer windows.CloseHandle(snap)

	var entry windows.ProcessEntry32
	entry.Size = uint32(unsafe.Sizeof(entry))

	var results []process.ProcessInfo
	for err = windows.Process32First(snap, &entry); err == nil; err = windows.Process32Next(snap, &entry) {
		if !match(&entry) {
			continue
		}
		results = append(results, process.ProcessInfo{
			PID:  process.ProcessID(entry.ProcessID),
			PPID: process.ProcessID(entry.ParentProcessID),
			Name: windows.UTF16ToString(entry.ExeFile[:]),
			Exe:  exePath(entry.ProcessID),
		})
	}
	return results, nil
}

func exePath(pid uint32) string {
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)

	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return windows.UTF16ToString(buf[:size])
}
