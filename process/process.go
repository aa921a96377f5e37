// Package process provides interfaces and types for attaching to a target
// process and accessing its memory.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	ErrInvalidPointer = errors.New("invalid pointer read")

	// ErrProtectUnsupported is returned by hosts that cannot change page protection.
	ErrProtectUnsupported = errors.New("protection change not supported")

	// ErrNotWritable is returned when a write targets a region without write permission.
	ErrNotWritable = errors.New("memory region not writable")

	ErrPartialWrite = errors.New("partial write")

	// ErrReadTooLarge is returned for reads over MaxReadSize
	ErrReadTooLarge = errors.New("read size too large")
)

// MaxReadSize bounds a single read so a garbage length from target memory
// fails instead of exhausting the heap
const MaxReadSize = 1 << 30
