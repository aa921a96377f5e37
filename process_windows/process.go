//go:build windows

package process_windows

import (
	"fmt"
	"sync"

	"simhook/process"
	"simhook/process/memory_map"
	"simhook/process_blob"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

var (
	modkernel32                = windows.NewLazySystemDLL("kernel32.dll")
	procFlushInstructionCache  = modkernel32.NewProc("FlushInstructionCache")
	openAccess          uint32 = windows.PROCESS_QUERY_INFORMATION | windows.PROCESS_VM_READ | windows.PROCESS_VM_WRITE | windows.PROCESS_VM_OPERATION
)

// WindowsProcess implements the process.Process interface over kernel32
type WindowsProcess struct {
	process_blob.Typed

	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger
	mu     sync.Mutex
}

var _ process.Process = (*WindowsProcess)(nil)

// New creates a WindowsProcess that is not yet attached
func New() *WindowsProcess {
	p := &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
	p.Typed = process_blob.Typed{Mem: p}
	return p
}

// NewWithPID creates a WindowsProcess attached to pid
func NewWithPID(pid process.ProcessID) (*WindowsProcess, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

// NewSelf creates the in-process host
func NewSelf() (*WindowsProcess, error) {
	return NewWithPID(process.ProcessID(windows.GetCurrentProcessId()))
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	handle, err := windows.OpenProcess(openAccess, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess failed: %w", err)
	}

	p.pid = pid
	p.handle = handle
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.log.Infoln("Process opened")
	return nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle failed: %w", err)
		}
		p.handle = 0
	}

	p.pid = 0
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	p.log.Infoln("Process closed")
	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// ExecutablePath is the full path of the target's executable image
func (p *WindowsProcess) ExecutablePath() string {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()
	if pid == 0 {
		return ""
	}
	return exePath(uint32(pid))
}

func (p *WindowsProcess) openHandle() (windows.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.handle == 0 {
		return 0, process.ErrProcessNotOpen
	}
	return p.handle, nil
}

// GetMemoryMap walks the address space with VirtualQueryEx. Every call is a fresh scan.
func (p *WindowsProcess) GetMemoryMap() ([]memory_map.MemoryRange, error) {
	handle, err := p.openHandle()
	if err != nil {
		return nil, err
	}
	return memory_map.NewWindowsMemoryMap().ReadMemoryMapHandle(handle)
}

func (p *WindowsProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	mm, err := p.GetMemoryMap()
	if err != nil {
		return false
	}
	return memory_map.IsValidAddress(uint64(addr), mm)
}

func (p *WindowsProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if size > process.MaxReadSize {
		return nil, fmt.Errorf("read 0x%x (%d bytes): %w", uint64(addr), uint64(size), process.ErrReadTooLarge)
	}

	handle, err := p.openHandle()
	if err != nil {
		return nil, err
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	if err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead); err != nil {
		return nil, fmt.Errorf("ReadProcessMemory 0x%x: %w", uint64(addr), err)
	}
	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("read incomplete: expected %d, got %d", size, bytesRead)
	}
	return buf, nil
}

// WriteMemory honours page protection, Protect must be used first on
// read-only pages.
func (p *WindowsProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	handle, err := p.openHandle()
	if err != nil {
		return err
	}

	var written uintptr
	if err := windows.WriteProcessMemory(handle, uintptr(addr), &data[0], uintptr(len(data)), &written); err != nil {
		return fmt.Errorf("WriteProcessMemory 0x%x: %w", uint64(addr), err)
	}
	if written != uintptr(len(data)) {
		return fmt.Errorf("only wrote %d of %d bytes: %w", written, len(data), process.ErrPartialWrite)
	}
	return nil
}

func (p *WindowsProcess) Protect(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, perms memory_map.Permissions) error {
	handle, err := p.openHandle()
	if err != nil {
		return err
	}

	var old uint32
	if err := windows.VirtualProtectEx(handle, uintptr(addr), uintptr(size), memory_map.PermsToProtect(perms), &old); err != nil {
		return fmt.Errorf("VirtualProtectEx 0x%x: %w", uint64(addr), err)
	}
	p.log.Debugln("protect", addr.ToString(), perms.String(), "was", fmt.Sprintf("0x%x", old))
	return nil
}

func (p *WindowsProcess) FlushInstructionCache(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) error {
	handle, err := p.openHandle()
	if err != nil {
		return err
	}

	ret, _, err := procFlushInstructionCache.Call(uintptr(handle), uintptr(addr), uintptr(size))
	if ret == 0 {
		return fmt.Errorf("FlushInstructionCache failed: %w", err)
	}
	return nil
}
