//go:build linux

package process_linux

import (
	"fmt"
	"os"

	"simhook/process"
	"simhook/process/memory_map"

	"golang.org/x/sys/unix"
)

func permsToProt(perms memory_map.Permissions) int {
	prot := unix.PROT_NONE
	if perms.Read {
		prot |= unix.PROT_READ
	}
	if perms.Write {
		prot |= unix.PROT_WRITE
	}
	if perms.Execute {
		prot |= unix.PROT_EXEC
	}
	return prot
}

// Protect changes the protection of the pages spanning [addr, addr+size).
//
// In-process this is mprotect. A remote target cannot be mprotected, so a
// writable request records an override instead: writes inside it go through
// /proc/<pid>/mem, which ignores page protection. A non-writable request
// removes the override again.
func (p *LinuxProcess) Protect(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, perms memory_map.Permissions) error {
	pageSize := uint64(unix.Getpagesize())
	start := process.AlignDown(uint64(addr), pageSize)
	end := process.AlignUp(uint64(addr)+uint64(size), pageSize)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return process.ErrProcessNotOpen
	}

	if p.self {
		_, _, errno := unix.Syscall(unix.SYS_MPROTECT, uintptr(start), uintptr(end-start), uintptr(permsToProt(perms)))
		if errno != 0 {
			return fmt.Errorf("mprotect 0x%x-0x%x: %w", start, end, errno)
		}
		return nil
	}

	p.removeOverrideLocked(start, end)
	if perms.Write {
		p.overrides = append(p.overrides, memory_map.MemoryRange{Start: start, End: end, Perms: perms, Valid: true})
		p.log.Debugln("write override", fmt.Sprintf("0x%x-0x%x", start, end))
	}
	return nil
}

func (p *LinuxProcess) removeOverrideLocked(start, end uint64) {
	kept := p.overrides[:0]
	for _, o := range p.overrides {
		if o.End <= start || o.Start >= end {
			kept = append(kept, o)
			continue
		}
		if o.Start < start {
			kept = append(kept, memory_map.MemoryRange{Start: o.Start, End: start, Perms: o.Perms, Valid: true})
		}
		if o.End > end {
			kept = append(kept, memory_map.MemoryRange{Start: end, End: o.End, Perms: o.Perms, Valid: true})
		}
	}
	p.overrides = kept
}

func (p *LinuxProcess) overriddenLocked(addr, size uint64) bool {
	for _, o := range p.overrides {
		if addr < o.End && o.Start < addr+size {
			return true
		}
	}
	return false
}

func (p *LinuxProcess) writeProcMem(addr process.ProcessMemoryAddress, data []byte) error {
	p.mu.Lock()
	if p.mem == nil {
		f, err := os.OpenFile(fmt.Sprintf("/proc/%d/mem", p.pid), os.O_RDWR, 0)
		if err != nil {
			p.mu.Unlock()
			return fmt.Errorf("open mem: %w", err)
		}
		p.mem = f
	}
	fd := int(p.mem.Fd())
	p.mu.Unlock()

	n, err := unix.Pwrite(fd, data, int64(addr))
	if err != nil {
		return fmt.Errorf("write mem 0x%x: %w", uint64(addr), err)
	}
	if n != len(data) {
		return fmt.Errorf("only wrote %d of %d bytes: %w", n, len(data), process.ErrPartialWrite)
	}
	return nil
}

// FlushInstructionCache is a no-op: the kernel keeps remote writes
// coherent and amd64 snoops self-modifying code.
func (p *LinuxProcess) FlushInstructionCache(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) error {
	return nil
}
