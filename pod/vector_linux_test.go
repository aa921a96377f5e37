//go:build linux

package pod

import (
	"encoding/binary"
	"errors"
	"runtime"
	"testing"
	"unsafe"

	"simhook/abi"
	"simhook/process"
	"simhook/process_linux"
	"simhook/test"
)

func TestGarbageVectorHeaderOnLiveHost(t *testing.T) {
	p, err := process_linux.NewSelf()
	test.DemandSuccess(t, err)
	defer p.Close()

	begin := uint64(0x1000)
	hdr := make([]byte, 0, 24)
	hdr = binary.LittleEndian.AppendUint64(hdr, begin)
	hdr = binary.LittleEndian.AppendUint64(hdr, begin+1<<50)
	hdr = binary.LittleEndian.AppendUint64(hdr, begin+1<<50)
	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&hdr[0])))

	ptrs, err := ReadPointerVector(p, addr)
	test.ExpectSuccess(t, errors.Is(err, abi.ErrBadLength))
	test.ExpectEquality(t, len(ptrs), 0)

	_, err = ReadSliceT[uint64](p, process.ProcessMemoryAddress(begin), 1<<47)
	test.ExpectSuccess(t, errors.Is(err, process.ErrReadTooLarge))

	_, err = p.ReadMemory(process.ProcessMemoryAddress(begin), 1<<40)
	test.ExpectSuccess(t, errors.Is(err, process.ErrReadTooLarge))
	runtime.KeepAlive(hdr)
}
