package process

import (
	"simhook/process/memory_map"
)

// MemoryReader is the minimal surface needed for typed reads
type MemoryReader interface {
	// ReadMemory reads memory from the process at the specified address
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// MemoryWriter is the minimal surface needed for typed writes
type MemoryWriter interface {
	// WriteMemory writes data to the process memory at the specified address
	WriteMemory(addr ProcessMemoryAddress, data []byte) error
}

// Process is the interface that defines operations for interacting with a
// target process. Implementations may live in the target (direct memory
// access) or outside it (OS debug syscalls); call sites do not change.
type Process interface {
	MemoryReader
	MemoryWriter

	// Open opens a process with the given PID for memory operations
	Open(pid ProcessID) error

	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// GetMemoryMap scans the current memory map. The result is never cached
	// by the host: the target's mappings can change between calls.
	GetMemoryMap() ([]memory_map.MemoryRange, error)

	// IsValidAddress checks if the given memory address is valid and readable
	IsValidAddress(addr ProcessMemoryAddress) bool

	// Protect sets the OS protection of [addr, addr+size)
	Protect(addr ProcessMemoryAddress, size ProcessMemorySize, perms memory_map.Permissions) error

	// FlushInstructionCache makes patched code visible to the target's CPUs
	FlushInstructionCache(addr ProcessMemoryAddress, size ProcessMemorySize) error

	// Typed memory reading operations
	ProcessRead
}

// ProcessRead defines typed read operations for process memory
type ProcessRead interface {
	// ReadUINT8 reads an unsigned 8-bit integer from the specified address
	ReadUINT8(addr ProcessMemoryAddress) (uint8, error)

	// ReadUINT16 reads an unsigned 16-bit integer from the specified address
	ReadUINT16(addr ProcessMemoryAddress) (uint16, error)

	// ReadUINT32 reads an unsigned 32-bit integer from the specified address
	ReadUINT32(addr ProcessMemoryAddress) (uint32, error)

	// ReadUINT64 reads an unsigned 64-bit integer from the specified address
	ReadUINT64(addr ProcessMemoryAddress) (uint64, error)

	// ReadINT8 reads a signed 8-bit integer from the specified address
	ReadINT8(addr ProcessMemoryAddress) (int8, error)

	// ReadINT16 reads a signed 16-bit integer from the specified address
	ReadINT16(addr ProcessMemoryAddress) (int16, error)

	// ReadINT32 reads a signed 32-bit integer from the specified address
	ReadINT32(addr ProcessMemoryAddress) (int32, error)

	// ReadINT64 reads a signed 64-bit integer from the specified address
	ReadINT64(addr ProcessMemoryAddress) (int64, error)

	// ReadFLOAT32 reads a 32-bit floating point number from the specified address
	ReadFLOAT32(addr ProcessMemoryAddress) (float32, error)

	// ReadFLOAT64 reads a 64-bit floating point number from the specified address
	ReadFLOAT64(addr ProcessMemoryAddress) (float64, error)

	// ReadNTS reads a null-terminated string from the specified address with a maximum length
	ReadNTS(addr ProcessMemoryAddress, maxLength ProcessMemorySize) (string, error)

	// ReadPOINTER reads a pointer value from the specified address
	ReadPOINTER(addr ProcessMemoryAddress) (ProcessMemoryAddress, error)

	// ReadPOINTER2 reads a pointer value from the specified address, zero on error
	ReadPOINTER2(addr ProcessMemoryAddress) ProcessMemoryAddress

	// ReadBlob reads a blob of memory from the specified address with the given size
	ReadBlob(addr ProcessMemoryAddress, size ProcessMemorySize) (ProcessReadOffset, error)
}

// ProcessReadOffset combines both ProcessRead and ProcessOffset interfaces
type ProcessReadOffset interface {
	ProcessRead
	ProcessOffset
}

// ProcessOffset defines typed reads relative to the start of a blob
type ProcessOffset interface {
	// Data returns the raw data read from the process memory
	Data() []byte

	// Base returns the address the blob was read from
	Base() ProcessMemoryAddress

	OffsetUINT8(offset ProcessMemoryAddress) (uint8, error)
	OffsetUINT16(offset ProcessMemoryAddress) (uint16, error)
	OffsetUINT32(offset ProcessMemoryAddress) (uint32, error)
	OffsetUINT64(offset ProcessMemoryAddress) (uint64, error)
	OffsetINT16(offset ProcessMemoryAddress) (int16, error)
	OffsetINT32(offset ProcessMemoryAddress) (int32, error)

	// OffsetPOINTER2 Offsets a pointer value from the specified address, zero on error
	OffsetPOINTER2(offset ProcessMemoryAddress) ProcessMemoryAddress

	// OffsetBlob Offsets a blob of memory from the specified address with the given size
	OffsetBlob(offset ProcessMemoryAddress, size ProcessMemorySize) (ProcessReadOffset, error)
}
