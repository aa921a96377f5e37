package memory_map

import (
	"fmt"
	"sort"
)

// Permissions is the OS-reported protection of a region
type Permissions struct {
	Read    bool
	Write   bool
	Execute bool
	Shared  bool
}

// String renders permissions the way /proc/<pid>/maps does, e.g. "r-xp"
func (p Permissions) String() string {
	b := []byte("---p")
	if p.Read {
		b[0] = 'r'
	}
	if p.Write {
		b[1] = 'w'
	}
	if p.Execute {
		b[2] = 'x'
	}
	if p.Shared {
		b[3] = 's'
	}
	return string(b)
}

// ParsePerms parses a maps-style permission string ("rwxp", "r--s")
func ParsePerms(perms string) Permissions {
	var p Permissions
	if len(perms) > 0 {
		p.Read = perms[0] == 'r'
	}
	if len(perms) > 1 {
		p.Write = perms[1] == 'w'
	}
	if len(perms) > 2 {
		p.Execute = perms[2] == 'x'
	}
	if len(perms) > 3 {
		p.Shared = perms[3] == 's'
	}
	return p
}

// MemoryRange represents one contiguous mapping in a process's address space.
// End is exclusive.
type MemoryRange struct {
	Start uint64
	End   uint64
	Perms Permissions
	Valid bool
	Name  string // backing file or pseudo name ("[heap]"), empty for anonymous
	Base  uint64 // file offset (Linux) or allocation base (Windows)
}

// String returns a string representation of the memory range
func (r MemoryRange) String() string {
	return fmt.Sprintf("%x-%x %s %s", r.Start, r.End, r.Perms, r.Name)
}

func (r MemoryRange) Size() uint64 {
	return r.End - r.Start
}

func (r MemoryRange) Contains(addr uint64) bool {
	return addr >= r.Start && addr < r.End
}

func (r MemoryRange) IsReadable() bool {
	return r.Perms.Read
}

func (r MemoryRange) IsWritable() bool {
	return r.Perms.Write
}

// MemoryMap defines the interface for reading a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryRange, error)
}

// Coalesce sorts ranges by address and merges neighbours that touch exactly
// and share permissions, validity and backing name. The input is not modified.
func Coalesce(ranges []MemoryRange) []MemoryRange {
	if len(ranges) == 0 {
		return []MemoryRange{}
	}

	sorted := make([]MemoryRange, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	out := make([]MemoryRange, 0, len(sorted))
	for _, r := range sorted {
		if r.End < r.Start {
			continue
		}
		if n := len(out); n > 0 {
			last := &out[n-1]
			if last.End == r.Start && last.Perms == r.Perms && last.Valid == r.Valid && last.Name == r.Name {
				last.End = r.End
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Find returns the index of the range containing addr, ranges must be sorted
func Find(ranges []MemoryRange, addr uint64) (int, bool) {
	i := sort.Search(len(ranges), func(i int) bool {
		return ranges[i].End > addr
	})
	if i < len(ranges) && ranges[i].Start <= addr {
		return i, true
	}
	return -1, false
}

// Span returns the run of ranges covering [addr, addr+size). It fails if
// any byte of the span is not covered or if two consecutive ranges are not
// exactly adjacent.
func Span(ranges []MemoryRange, addr, size uint64) ([]MemoryRange, bool) {
	if size == 0 {
		return nil, false
	}
	end := addr + size
	if end < addr {
		return nil, false
	}

	i, ok := Find(ranges, addr)
	if !ok {
		return nil, false
	}

	var out []MemoryRange
	for ; i < len(ranges); i++ {
		r := ranges[i]
		if len(out) > 0 && out[len(out)-1].End != r.Start {
			return nil, false
		}
		out = append(out, r)
		if r.End >= end {
			return out, true
		}
	}
	return nil, false
}

// IsValidAddress checks if an address is within a valid, readable memory region
func IsValidAddress(addr uint64, ranges []MemoryRange) bool {
	i, ok := Find(ranges, addr)
	return ok && ranges[i].Valid && ranges[i].Perms.Read
}
