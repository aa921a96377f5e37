package abi

import (
	"encoding/binary"
	"fmt"
	"strings"

	"simhook/process"
	"simhook/process_blob"

	"github.com/ianlancetaylor/demangle"
)

// Itanium is the GCC/libstdc++ ABI used on Linux and macOS.
//
// std::string is {char *ptr; size_t len; union { size_t cap; char buf[16]; }}
// and is in short-string mode when ptr points at its own buf.
type Itanium struct{}

var _ ABI = Itanium{}

func (Itanium) Name() string { return "itanium" }

func (Itanium) StringSize() process.ProcessMemorySize { return 32 }

func (Itanium) StringAt(r process.MemoryReader, addr process.ProcessMemoryAddress) (string, error) {
	hdr, err := r.ReadMemory(addr, 16)
	if err != nil {
		return "", err
	}
	ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(hdr[0:]))
	n := binary.LittleEndian.Uint64(hdr[8:])
	if ptr == 0 && n == 0 {
		return "", nil
	}
	return readBytes(r, ptr, n)
}

func (Itanium) WriteStringAt(rw ReadWriter, addr process.ProcessMemoryAddress, s string) error {
	t := process_blob.Typed{Mem: rw}
	ptr, err := t.ReadPOINTER(addr)
	if err != nil {
		return err
	}

	capacity := uint64(15)
	if ptr != addr+16 {
		if capacity, err = t.ReadUINT64(addr + 16); err != nil {
			return err
		}
	}
	if uint64(len(s)) > capacity {
		return fmt.Errorf("%d > %d: %w", len(s), capacity, ErrStringCapacity)
	}

	if err := rw.WriteMemory(ptr, append([]byte(s), 0)); err != nil {
		return err
	}
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
	return rw.WriteMemory(addr+8, n[:])
}

// TypeName follows vtable[-1] to the std::type_info, whose name field at +8
// holds the mangled class name without the _Z prefix. GCC marks names
// local to a translation unit with a leading '*'.
func (Itanium) TypeName(r process.MemoryReader, vtable process.ProcessMemoryAddress) (string, error) {
	if vtable < 8 {
		return "", ErrNoRTTI
	}
	t := process_blob.Typed{Mem: r}

	typeinfo, err := t.ReadPOINTER(vtable - 8)
	if err != nil {
		return "", ErrNoRTTI
	}
	namePtr, err := t.ReadPOINTER(typeinfo + 8)
	if err != nil {
		return "", ErrNoRTTI
	}
	mangled, err := t.ReadNTS(namePtr, 512)
	if err != nil {
		return "", ErrNoRTTI
	}

	mangled = strings.TrimPrefix(mangled, "*")
	if !printable(mangled) {
		return "", ErrNoRTTI
	}
	name, err := demangle.ToString("_Z"+mangled, demangle.NoParams)
	if err != nil {
		return "", ErrNoRTTI
	}
	return name, nil
}
