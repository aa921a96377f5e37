package pod

import (
	"fmt"

	"simhook/process"
)

// ReadPath reads a T at the end of a pointer path. Starting at base, every
// offset but the last is added and dereferenced; the last is added to the
// final pointer and T is read there. With no offsets T is read at base.
func ReadPath[T any](r process.MemoryReader, base process.ProcessMemoryAddress, offsets ...process.ProcessMemorySize) (T, error) {
	addr, err := ResolvePath(r, base, offsets...)
	if err != nil {
		var zero T
		return zero, err
	}
	return ReadT[T](r, addr)
}

// ResolvePath returns the address a pointer path ends at without reading it
func ResolvePath(r process.MemoryReader, base process.ProcessMemoryAddress, offsets ...process.ProcessMemorySize) (process.ProcessMemoryAddress, error) {
	current := base
	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := current.Add(offsets[i])
		ptr, err := ReadT[uint64](r, ptrAddr)
		if err != nil {
			return 0, fmt.Errorf("failed to read pointer at offset %d (addr 0x%x): %w", i, uint64(ptrAddr), err)
		}
		if ptr == 0 {
			return 0, fmt.Errorf("pointer at offset %d (addr 0x%x): %w", i, uint64(ptrAddr), process.ErrInvalidPointer)
		}
		current = process.ProcessMemoryAddress(ptr)
	}
	if len(offsets) > 0 {
		current = current.Add(offsets[len(offsets)-1])
	}
	return current, nil
}
