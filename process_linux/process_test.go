//go:build linux

package process_linux

import (
	"errors"
	"os"
	"testing"
	"unsafe"

	"simhook/process"
	"simhook/process/memory_map"
	"simhook/test"

	"golang.org/x/sys/unix"
)

func TestSelfReadWrite(t *testing.T) {
	p, err := NewSelf()
	test.DemandSuccess(t, err)
	defer p.Close()
	test.ExpectSuccess(t, p.IsSelf())

	buf := []byte{1, 2, 3, 4, 0, 0, 0, 0}
	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&buf[0])))

	v, err := p.ReadUINT32(addr)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0x04030201))

	test.DemandSuccess(t, p.WriteMemory(addr+4, []byte{9, 8}))
	test.ExpectEquality(t, buf[4], byte(9))
	test.ExpectEquality(t, buf[5], byte(8))
}

func TestSelfProtect(t *testing.T) {
	p, err := NewSelf()
	test.DemandSuccess(t, err)
	defer p.Close()

	page, err := unix.Mmap(-1, 0, unix.Getpagesize(), unix.PROT_READ, unix.MAP_PRIVATE|unix.MAP_ANON)
	test.DemandSuccess(t, err)
	defer unix.Munmap(page)
	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&page[0])))

	test.ExpectFailure(t, p.WriteMemory(addr, []byte{0x41}))

	test.DemandSuccess(t, p.Protect(addr, 1, memory_map.Permissions{Read: true, Write: true}))
	test.DemandSuccess(t, p.WriteMemory(addr, []byte{0x41}))
	test.ExpectEquality(t, page[0], byte(0x41))

	mm, err := p.GetMemoryMap()
	test.DemandSuccess(t, err)
	i, ok := memory_map.Find(mm, uint64(addr))
	test.DemandSuccess(t, ok)
	test.ExpectSuccess(t, mm[i].Perms.Write)

	test.DemandSuccess(t, p.Protect(addr, 1, memory_map.Permissions{Read: true}))
	test.ExpectFailure(t, p.WriteMemory(addr, []byte{0x42}))

	// nothing is mapped in the zero page
	err = p.Protect(0x10, 1, memory_map.Permissions{Read: true, Write: true})
	test.ExpectSuccess(t, errors.Is(err, unix.ENOMEM))
}

func TestRemoteOverrideBookkeeping(t *testing.T) {
	p := New()
	p.pid = process.ProcessID(os.Getpid())

	rw := memory_map.Permissions{Read: true, Write: true}
	test.DemandSuccess(t, p.Protect(0x10000, 0x3000, rw))
	test.ExpectSuccess(t, p.overriddenLocked(0x11000, 8))

	test.DemandSuccess(t, p.Protect(0x11000, 0x1000, memory_map.Permissions{Read: true}))
	test.ExpectFailure(t, p.overriddenLocked(0x11000, 8))
	test.ExpectSuccess(t, p.overriddenLocked(0x10000, 8))
	test.ExpectSuccess(t, p.overriddenLocked(0x12000, 8))
	test.ExpectEquality(t, len(p.overrides), 2)
}

func TestFindSelfByPID(t *testing.T) {
	info, err := NewProcessFinder().FindProcessByPID(process.ProcessID(os.Getpid()))
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, info.Name != "")
}
