// Package abi isolates the host C++ ABI: the in-memory layout of the
// standard library's string and vector, and the RTTI walk from a vtable
// to a class name. Callers never see these layouts directly.
package abi

import (
	"errors"
	"fmt"

	"simhook/process"
	"simhook/process_blob"
)

var (
	// ErrNoRTTI is returned when a pointer does not lead to valid type info
	ErrNoRTTI = errors.New("no rtti at address")

	// ErrStringCapacity is returned when a string write does not fit the
	// existing buffer. The target's allocator is never called.
	ErrStringCapacity = errors.New("string does not fit capacity")

	ErrBadLength = errors.New("implausible container length")
)

const (
	// MaxStringLength bounds string reads so garbage lengths fail fast
	MaxStringLength = 1 << 20

	// MaxVectorLength bounds the element count of a vector read
	MaxVectorLength = 1 << 24
)

// ReadWriter is the memory surface the ABI accessors need
type ReadWriter interface {
	process.MemoryReader
	process.MemoryWriter
}

// Vector is the three pointers of a std::vector. Both supported ABIs lay
// them out in the same order.
type Vector struct {
	Begin process.ProcessMemoryAddress
	End   process.ProcessMemoryAddress
	Cap   process.ProcessMemoryAddress
}

// Len is the number of elements of size elem
func (v Vector) Len(elem process.ProcessMemorySize) int {
	if elem == 0 || v.End < v.Begin {
		return 0
	}
	return int(uint64(v.End-v.Begin) / uint64(elem))
}

// ABI is the host-specific layout of standard containers and RTTI
type ABI interface {
	Name() string

	// StringSize is sizeof(std::string)
	StringSize() process.ProcessMemorySize

	// StringAt reads the std::string object at addr
	StringAt(r process.MemoryReader, addr process.ProcessMemoryAddress) (string, error)

	// WriteStringAt replaces the contents of the std::string at addr in
	// place. It fails with ErrStringCapacity rather than reallocating.
	WriteStringAt(rw ReadWriter, addr process.ProcessMemoryAddress, s string) error

	// TypeName walks the RTTI of vtable and returns the demangled class name
	TypeName(r process.MemoryReader, vtable process.ProcessMemoryAddress) (string, error)
}

// VectorAt reads the std::vector header at addr
func VectorAt(r process.MemoryReader, addr process.ProcessMemoryAddress) (Vector, error) {
	blob, err := process_blob.Typed{Mem: r}.ReadBlob(addr, 3*process.PointerSize)
	if err != nil {
		return Vector{}, err
	}
	v := Vector{
		Begin: blob.OffsetPOINTER2(0),
		End:   blob.OffsetPOINTER2(8),
		Cap:   blob.OffsetPOINTER2(16),
	}
	if v.End < v.Begin || v.Cap < v.End || uint64(v.Cap-v.Begin) > process.MaxReadSize {
		return Vector{}, fmt.Errorf("vector at 0x%x: %w", uint64(addr), ErrBadLength)
	}
	return v, nil
}

// ByName returns the ABI called name ("itanium" or "msvc")
func ByName(name string) (ABI, error) {
	switch name {
	case "itanium", "gcc", "":
		return Itanium{}, nil
	case "msvc":
		return MSVC{}, nil
	}
	return nil, fmt.Errorf("unknown abi %q", name)
}

func readBytes(r process.MemoryReader, addr process.ProcessMemoryAddress, n uint64) (string, error) {
	if n == 0 {
		return "", nil
	}
	if n > MaxStringLength {
		return "", ErrBadLength
	}
	data, err := r.ReadMemory(addr, process.ProcessMemorySize(n))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// printable reports whether s looks like a mangled symbol
func printable(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] > 0x7e {
			return false
		}
	}
	return true
}
