//go:build linux

package process_linux

import (
	"fmt"

	"simhook/process"

	"golang.org/x/sys/unix"
)

// process_vm_readv reads size bytes at remoteAddr of pid
func process_vm_readv(pid process.ProcessID, remoteAddr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	buf := make([]byte, size)
	if size == 0 {
		return buf, nil
	}

	local := []unix.Iovec{{Base: &buf[0]}}
	local[0].SetLen(int(size))
	remote := []unix.RemoteIovec{{Base: uintptr(remoteAddr), Len: int(size)}}

	n, err := unix.ProcessVMReadv(int(pid), local, remote, 0)
	if err != nil {
		return nil, fmt.Errorf("process_vm_readv failed: %w", err)
	}
	if n != int(size) {
		return buf[:n], fmt.Errorf("partial read: %d of %d bytes", n, size)
	}
	return buf, nil
}

// process_vm_writev writes data at remoteAddr of pid. The kernel honours
// page protection, so read-only pages fail with EFAULT.
func process_vm_writev(pid process.ProcessID, remoteAddr process.ProcessMemoryAddress, data []byte) (int, error) {
	local := []unix.Iovec{{Base: &data[0]}}
	local[0].SetLen(len(data))
	remote := []unix.RemoteIovec{{Base: uintptr(remoteAddr), Len: len(data)}}

	n, err := unix.ProcessVMWritev(int(pid), local, remote, 0)
	if err != nil {
		return 0, fmt.Errorf("process_vm_writev failed: %w", err)
	}
	return n, nil
}

// ReadMemory reads memory from the process at the specified address
func (p *LinuxProcess) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}
	if size > process.MaxReadSize {
		return nil, fmt.Errorf("read 0x%x (%d bytes): %w", uint64(addr), uint64(size), process.ErrReadTooLarge)
	}

	data, err := process_vm_readv(pid, addr, size)
	if err != nil {
		return nil, fmt.Errorf("read 0x%x: %w", uint64(addr), err)
	}
	return data, nil
}

// WriteMemory writes data to the process memory at the specified address.
// Writes inside a range made writable by Protect on a remote target go
// through /proc/<pid>/mem.
func (p *LinuxProcess) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	if len(data) == 0 {
		return nil
	}

	p.mu.Lock()
	pid := p.pid
	override := !p.self && p.overriddenLocked(uint64(addr), uint64(len(data)))
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	if override {
		return p.writeProcMem(addr, buf)
	}

	written, err := process_vm_writev(pid, addr, buf)
	if err != nil {
		return fmt.Errorf("write 0x%x: %w", uint64(addr), err)
	}
	if written != len(buf) {
		return fmt.Errorf("only wrote %d of %d bytes: %w", written, len(buf), process.ErrPartialWrite)
	}
	return nil
}
