package process

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

// Add returns the address offset by n bytes
func (pma ProcessMemoryAddress) Add(n ProcessMemorySize) ProcessMemoryAddress {
	return pma + ProcessMemoryAddress(n)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// PointerSize is the width of a pointer in the target. Only 64-bit targets are supported.
const PointerSize ProcessMemorySize = 8

// AlignDown rounds a down to a multiple of b, b must be a power of two
func AlignDown[I constraints.Integer](a, b I) I {
	return a &^ (b - 1)
}

// AlignUp rounds a up to a multiple of b, b must be a power of two
func AlignUp[I constraints.Integer](a, b I) I {
	return (a + b - 1) &^ (b - 1)
}
