package process_blob

import (
	"errors"

	"simhook/process"
)

var ErrOutOfBounds = errors.New("address out of bounds")

// ProcessBlob is a snapshot of a contiguous piece of target memory. It
// answers typed reads by absolute address (ReadXXX) or by offset from its
// base (OffsetXXX) without touching the target again.
type ProcessBlob struct {
	Typed
	baseaddress process.ProcessMemoryAddress
	data        []byte
}

var _ process.ProcessReadOffset = (*ProcessBlob)(nil)

func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	p := &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
	}
	p.Typed = Typed{Mem: p}
	return p
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) Base() process.ProcessMemoryAddress {
	return p.baseaddress
}

func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if addr < p.baseaddress {
		return nil, ErrOutOfBounds
	}
	offset := uint64(addr - p.baseaddress)
	if offset+uint64(size) > uint64(len(p.data)) {
		return nil, ErrOutOfBounds
	}
	return p.data[offset : offset+uint64(size)], nil
}

func (p *ProcessBlob) OffsetUINT8(offset process.ProcessMemoryAddress) (uint8, error) {
	return p.ReadUINT8(p.baseaddress + offset)
}

func (p *ProcessBlob) OffsetUINT16(offset process.ProcessMemoryAddress) (uint16, error) {
	return p.ReadUINT16(p.baseaddress + offset)
}

func (p *ProcessBlob) OffsetUINT32(offset process.ProcessMemoryAddress) (uint32, error) {
	return p.ReadUINT32(p.baseaddress + offset)
}

func (p *ProcessBlob) OffsetUINT64(offset process.ProcessMemoryAddress) (uint64, error) {
	return p.ReadUINT64(p.baseaddress + offset)
}

func (p *ProcessBlob) OffsetINT16(offset process.ProcessMemoryAddress) (int16, error) {
	return p.ReadINT16(p.baseaddress + offset)
}

func (p *ProcessBlob) OffsetINT32(offset process.ProcessMemoryAddress) (int32, error) {
	return p.ReadINT32(p.baseaddress + offset)
}

// OffsetPOINTER2 returns a pointer value with offset from the specified address, zero on error
func (p *ProcessBlob) OffsetPOINTER2(offset process.ProcessMemoryAddress) process.ProcessMemoryAddress {
	return p.ReadPOINTER2(p.baseaddress + offset)
}

// OffsetBlob returns a blob of memory with offset from the specified address with the given size
func (p *ProcessBlob) OffsetBlob(offset process.ProcessMemoryAddress, size process.ProcessMemorySize) (process.ProcessReadOffset, error) {
	return p.ReadBlob(p.baseaddress+offset, size)
}
