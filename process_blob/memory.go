package process_blob

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"simhook/process"
	"simhook/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// PageSize is the default protection granularity of a Memory
const PageSize = 0x1000

var ErrRegionOverlap = errors.New("region overlaps an existing mapping")

type region struct {
	memory_map.MemoryRange
	data []byte
}

// Memory is a fabricated process: a set of mapped regions with backing
// bytes and OS-style permissions. It stands in for a live target in tests
// and serves loaded dumps. Writes honour permissions; Protect changes them
// with page granularity, splitting regions as the kernel would.
type Memory struct {
	Typed

	mu      sync.Mutex
	pid     process.ProcessID
	name    string
	regions []*region
	next    uint64
	page    uint64
	log     *logger.Logger

	writes   int
	scans    int
	protects int
	flushes  int
}

var _ process.Process = (*Memory)(nil)

// NewMemory creates an empty fabricated process
func NewMemory(name string) *Memory {
	m := &Memory{
		pid:  1,
		name: name,
		next: 0x10000000,
		page: PageSize,
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "memory-"+name)),
	}
	m.Typed = Typed{Mem: m}
	return m
}

// SetPageSize changes the protection granularity. A page size of 1 lets
// tests build byte-sized regions.
func (m *Memory) SetPageSize(size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.page = size
}

// Map adds a zero-filled region at start. Size is rounded up to a page.
func (m *Memory) Map(start uint64, size uint64, perms memory_map.Permissions, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mapLocked(start, size, perms, name)
}

func (m *Memory) mapLocked(start uint64, size uint64, perms memory_map.Permissions, name string) error {
	size = process.AlignUp(size, m.page)
	if size == 0 {
		return fmt.Errorf("map at 0x%x: empty region", start)
	}
	end := start + size
	for _, r := range m.regions {
		if start < r.End && r.Start < end {
			return fmt.Errorf("map at 0x%x: %w", start, ErrRegionOverlap)
		}
	}

	m.regions = append(m.regions, &region{
		MemoryRange: memory_map.MemoryRange{
			Start: start,
			End:   end,
			Perms: perms,
			Valid: true,
			Name:  name,
		},
		data: make([]byte, size),
	})
	sort.Slice(m.regions, func(i, j int) bool {
		return m.regions[i].Start < m.regions[j].Start
	})
	if end > m.next {
		m.next = end
	}
	return nil
}

// Alloc maps a fresh read-write region of at least size bytes after every
// existing mapping, leaving a guard gap, and returns its address.
func (m *Memory) Alloc(size uint64) process.ProcessMemoryAddress {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := process.AlignUp(m.next, PageSize) + PageSize
	if err := m.mapLocked(start, size, memory_map.Permissions{Read: true, Write: true}, ""); err != nil {
		// next is past every mapping so this cannot overlap
		panic(err)
	}
	return process.ProcessMemoryAddress(start)
}

// Poke writes data regardless of permissions. Used to build fixtures.
func (m *Memory) Poke(addr process.ProcessMemoryAddress, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.copyLocked(uint64(addr), data, false)
}

// SetValid marks the region containing addr valid or invalid
func (m *Memory) SetValid(addr process.ProcessMemoryAddress, valid bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.findLocked(uint64(addr)); r != nil {
		r.Valid = valid
	}
}

// SetShared marks the region containing addr as a shared mapping
func (m *Memory) SetShared(addr process.ProcessMemoryAddress, shared bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r := m.findLocked(uint64(addr)); r != nil {
		r.Perms.Shared = shared
	}
}

func (m *Memory) findLocked(addr uint64) *region {
	i := sort.Search(len(m.regions), func(i int) bool {
		return m.regions[i].End > addr
	})
	if i < len(m.regions) && m.regions[i].Start <= addr {
		return m.regions[i]
	}
	return nil
}

// spanLocked returns the regions covering [addr, addr+size) or nil if any byte is unmapped
func (m *Memory) spanLocked(addr, size uint64) []*region {
	var out []*region
	for cur, end := addr, addr+size; cur < end; {
		r := m.findLocked(cur)
		if r == nil || !r.Valid {
			return nil
		}
		out = append(out, r)
		cur = r.End
	}
	return out
}

func (m *Memory) copyLocked(addr uint64, data []byte, checkWrite bool) error {
	span := m.spanLocked(addr, uint64(len(data)))
	if span == nil {
		return process.ErrAddressNotMapped
	}
	if checkWrite {
		for _, r := range span {
			if !r.Perms.Write {
				return fmt.Errorf("write at 0x%x: %w", addr, process.ErrNotWritable)
			}
		}
	}

	done := 0
	for _, r := range span {
		off := addr + uint64(done) - r.Start
		done += copy(r.data[off:], data[done:])
	}
	return nil
}

func (m *Memory) Open(pid process.ProcessID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pid = pid
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log.Infoln("Memory closed", len(m.regions), "regions")
	return nil
}

func (m *Memory) GetPID() process.ProcessID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pid
}

func (m *Memory) GetMemoryMap() ([]memory_map.MemoryRange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.scans++
	ranges := make([]memory_map.MemoryRange, 0, len(m.regions))
	for _, r := range m.regions {
		ranges = append(ranges, r.MemoryRange)
	}
	return memory_map.Coalesce(ranges), nil
}

func (m *Memory) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.findLocked(uint64(addr))
	return r != nil && r.Valid && r.Perms.Read
}

func (m *Memory) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if size == 0 {
		return []byte{}, nil
	}
	span := m.spanLocked(uint64(addr), uint64(size))
	if span == nil {
		return nil, process.ErrAddressNotMapped
	}

	out := make([]byte, size)
	done := 0
	for _, r := range span {
		off := uint64(addr) + uint64(done) - r.Start
		done += copy(out[done:], r.data[off:])
	}
	return out, nil
}

func (m *Memory) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(data) == 0 {
		return nil
	}
	if err := m.copyLocked(uint64(addr), data, true); err != nil {
		return err
	}
	m.writes++
	return nil
}

// Protect changes permissions of every page in [addr, addr+size). The
// shared flag of a region is a property of the mapping and is kept.
func (m *Memory) Protect(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, perms memory_map.Permissions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := process.AlignDown(uint64(addr), m.page)
	end := process.AlignUp(uint64(addr)+uint64(size), m.page)
	if m.spanLocked(start, end-start) == nil {
		return process.ErrAddressNotMapped
	}

	m.splitLocked(start)
	m.splitLocked(end)
	for _, r := range m.spanLocked(start, end-start) {
		shared := r.Perms.Shared
		r.Perms = perms
		r.Perms.Shared = shared
	}
	m.protects++
	return nil
}

// splitLocked splits the region containing addr so that addr becomes a region boundary
func (m *Memory) splitLocked(addr uint64) {
	r := m.findLocked(addr)
	if r == nil || r.Start == addr {
		return
	}
	k := addr - r.Start
	tail := &region{MemoryRange: r.MemoryRange, data: r.data[k:]}
	tail.Start = addr
	r.End = addr
	r.data = r.data[:k]
	m.regions = append(m.regions, tail)
	sort.Slice(m.regions, func(i, j int) bool {
		return m.regions[i].Start < m.regions[j].Start
	})
}

func (m *Memory) FlushInstructionCache(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flushes++
	return nil
}

// WriteCount is the number of successful WriteMemory calls
func (m *Memory) WriteCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// ScanCount is the number of GetMemoryMap calls
func (m *Memory) ScanCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scans
}

// ProtectCount is the number of successful Protect calls
func (m *Memory) ProtectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.protects
}

// FlushCount is the number of FlushInstructionCache calls
func (m *Memory) FlushCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushes
}
