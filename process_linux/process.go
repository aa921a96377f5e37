//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"sync"

	"simhook/process"
	"simhook/process/memory_map"
	"simhook/process_blob"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// LinuxProcess implements process.Process over the /proc filesystem and the
// process_vm_readv/process_vm_writev syscalls. Opened on our own pid it
// becomes the in-process host and Protect uses mprotect directly.
type LinuxProcess struct {
	process_blob.Typed

	pid  process.ProcessID
	self bool
	log  *logger.Logger
	mu   sync.Mutex

	// ranges made writable by Protect on a remote target
	overrides []memory_map.MemoryRange
	mem       *os.File
}

var _ process.Process = (*LinuxProcess)(nil)

// New creates a LinuxProcess that is not yet attached
func New() *LinuxProcess {
	p := &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
	}
	p.Typed = process_blob.Typed{Mem: p}
	return p
}

// NewWithPID creates a LinuxProcess attached to pid
func NewWithPID(pid process.ProcessID) (*LinuxProcess, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

// NewSelf creates the in-process host
func NewSelf() (*LinuxProcess, error) {
	return NewWithPID(process.ProcessID(os.Getpid()))
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return fmt.Errorf("process with PID %d does not exist", pid)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pid = pid
	p.self = int(pid) == os.Getpid()
	p.overrides = nil
	name := fmt.Sprintf("process-%d", pid)
	if p.self {
		name = "process-self"
	}
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, name))
	p.log.Infoln("Process opened")
	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	if p.mem != nil {
		p.mem.Close()
		p.mem = nil
	}
	p.pid = 0
	p.self = false
	p.overrides = nil
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// IsSelf reports whether this is the in-process host
func (p *LinuxProcess) IsSelf() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.self
}

// ExecutablePath is the /proc link to the target's executable image
func (p *LinuxProcess) ExecutablePath() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid == 0 {
		return ""
	}
	return fmt.Sprintf("/proc/%d/exe", p.pid)
}

// GetMemoryMap reads /proc/<pid>/maps. Every call is a fresh scan.
func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryRange, error) {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	mm, err := memory_map.NewLinuxMemoryMap().ReadMemoryMap(int(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}
	return mm, nil
}

func (p *LinuxProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	if addr <= 0x10000 {
		return false
	}
	mm, err := p.GetMemoryMap()
	if err != nil {
		return false
	}
	return memory_map.IsValidAddress(uint64(addr), mm)
}
