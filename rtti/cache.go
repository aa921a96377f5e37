// Package rtti caches vtable to class name resolution. Vtables are static
// for the lifetime of a process, so entries are never invalidated.
package rtti

import (
	"encoding/binary"
	"sync"

	"simhook/process"
)

// Unknown is cached for vtables whose type info could not be walked
const Unknown = "unknown"

// Walker performs the raw, uncached RTTI walk. abi.ABI satisfies it.
type Walker interface {
	TypeName(r process.MemoryReader, vtable process.ProcessMemoryAddress) (string, error)
}

// ClassNameCache maps vtable addresses to demangled class names. It is
// shared by every caller of a process connection and has its own lock.
type ClassNameCache struct {
	mu     sync.RWMutex
	names  map[process.ProcessMemoryAddress]string
	walker Walker
	mem    process.MemoryReader
}

func NewClassNameCache(walker Walker, mem process.MemoryReader) *ClassNameCache {
	return &ClassNameCache{
		names:  make(map[process.ProcessMemoryAddress]string),
		walker: walker,
		mem:    mem,
	}
}

// Resolve returns the class name for vtable, walking the RTTI at most once
// per vtable. Failures resolve to Unknown and are cached too.
func (c *ClassNameCache) Resolve(vtable process.ProcessMemoryAddress) string {
	if name, ok := c.Lookup(vtable); ok {
		return name
	}

	name, err := c.walker.TypeName(c.mem, vtable)
	if err != nil || name == "" {
		name = Unknown
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// another caller may have raced us here; keep the first result
	if prev, ok := c.names[vtable]; ok {
		return prev
	}
	c.names[vtable] = name
	return name
}

// ResolveObject reads the vtable pointer at the start of obj and resolves it
func (c *ClassNameCache) ResolveObject(obj process.ProcessMemoryAddress) string {
	data, err := c.mem.ReadMemory(obj, process.PointerSize)
	if err != nil {
		return Unknown
	}
	vtable := binary.LittleEndian.Uint64(data)
	if vtable == 0 {
		return Unknown
	}
	return c.Resolve(process.ProcessMemoryAddress(vtable))
}

// Lookup checks the cache without walking
func (c *ClassNameCache) Lookup(vtable process.ProcessMemoryAddress) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[vtable]
	return name, ok
}

func (c *ClassNameCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.names)
}
