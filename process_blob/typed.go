package process_blob

import (
	"encoding/binary"
	"math"

	"simhook/process"
)

// Typed implements process.ProcessRead on top of any ReadMemory. Host
// backends embed it so the typed surface is written once.
type Typed struct {
	Mem process.MemoryReader
}

var _ process.ProcessRead = Typed{}

// ReadUINT8 reads an unsigned 8-bit integer from the specified address
func (t Typed) ReadUINT8(addr process.ProcessMemoryAddress) (uint8, error) {
	data, err := t.Mem.ReadMemory(addr, 1)
	if err != nil {
		return 0, err
	}
	return data[0], nil
}

// ReadUINT16 reads an unsigned 16-bit integer from the specified address
func (t Typed) ReadUINT16(addr process.ProcessMemoryAddress) (uint16, error) {
	data, err := t.Mem.ReadMemory(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(data), nil
}

// ReadUINT32 reads an unsigned 32-bit integer from the specified address
func (t Typed) ReadUINT32(addr process.ProcessMemoryAddress) (uint32, error) {
	data, err := t.Mem.ReadMemory(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(data), nil
}

// ReadUINT64 reads an unsigned 64-bit integer from the specified address
func (t Typed) ReadUINT64(addr process.ProcessMemoryAddress) (uint64, error) {
	data, err := t.Mem.ReadMemory(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(data), nil
}

func (t Typed) ReadINT8(addr process.ProcessMemoryAddress) (int8, error) {
	v, err := t.ReadUINT8(addr)
	return int8(v), err
}

func (t Typed) ReadINT16(addr process.ProcessMemoryAddress) (int16, error) {
	v, err := t.ReadUINT16(addr)
	return int16(v), err
}

func (t Typed) ReadINT32(addr process.ProcessMemoryAddress) (int32, error) {
	v, err := t.ReadUINT32(addr)
	return int32(v), err
}

func (t Typed) ReadINT64(addr process.ProcessMemoryAddress) (int64, error) {
	v, err := t.ReadUINT64(addr)
	return int64(v), err
}

func (t Typed) ReadFLOAT32(addr process.ProcessMemoryAddress) (float32, error) {
	v, err := t.ReadUINT32(addr)
	return math.Float32frombits(v), err
}

func (t Typed) ReadFLOAT64(addr process.ProcessMemoryAddress) (float64, error) {
	v, err := t.ReadUINT64(addr)
	return math.Float64frombits(v), err
}

// ReadNTS reads a null-terminated string from the specified address with a maximum length.
// The read shrinks toward the start address when the full length crosses
// into unmapped memory.
func (t Typed) ReadNTS(addr process.ProcessMemoryAddress, maxLength process.ProcessMemorySize) (string, error) {
	if maxLength == 0 {
		return "", nil
	}

	var (
		data []byte
		err  error
	)
	for n := maxLength; n > 0; n /= 2 {
		data, err = t.Mem.ReadMemory(addr, n)
		if err == nil {
			break
		}
	}
	if err != nil {
		return "", err
	}

	for i, b := range data {
		if b == 0 {
			return string(data[:i]), nil
		}
	}

	// If no null terminator found, return the whole buffer as string
	return string(data), nil
}

// ReadPOINTER reads a pointer value from the specified address
func (t Typed) ReadPOINTER(addr process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	if addr == 0 {
		return 0, process.ErrInvalidPointer
	}
	v, err := t.ReadUINT64(addr)
	return process.ProcessMemoryAddress(v), err
}

func (t Typed) ReadPOINTER2(addr process.ProcessMemoryAddress) process.ProcessMemoryAddress {
	ptr, err := t.ReadPOINTER(addr)
	if err != nil {
		return 0
	}
	return ptr
}

// ReadBlob reads a blob of memory from the specified address with the given size
func (t Typed) ReadBlob(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) (process.ProcessReadOffset, error) {
	data, err := t.Mem.ReadMemory(addr, size)
	if err != nil {
		return nil, err
	}
	return NewProcessBlob(addr, data), nil
}
