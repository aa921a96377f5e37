// Package search finds pointer paths from a known address to a value.
// A found path is what the symbol table records for a global that moves
// between runs:
//
//	globals:
//	  map_blocks:
//	    path: [base, off1, off2]
package search

import (
	"encoding/binary"
	"errors"

	"simhook/pod"
	"simhook/process"
)

var ErrNoTarget = errors.New("no search target")

// Target is the memory a search walks
type Target interface {
	process.MemoryReader
	IsValidAddress(addr process.ProcessMemoryAddress) bool
}

type Searcher struct {
	MaxStructSize uint
	MaxDepth      int
	MinAlignment  uint
	Match         func([]byte) bool
}

type Option func(*Searcher)

func WithMaxStructSize(size uint) Option {
	return func(s *Searcher) {
		s.MaxStructSize = size
	}
}

func WithMaxDepth(depth int) Option {
	return func(s *Searcher) {
		s.MaxDepth = depth
	}
}

func WithMinAlignment(align uint) Option {
	return func(s *Searcher) {
		s.MinAlignment = align
	}
}

// WithValue searches for the in-memory bytes of v
func WithValue[T any](v T) Option {
	want := pod.Bytes(v)
	return func(s *Searcher) {
		s.Match = func(data []byte) bool {
			if len(data) < len(want) {
				return false
			}
			for i, b := range want {
				if data[i] != b {
					return false
				}
			}
			return true
		}
	}
}

// Result is a path in pod.ResolvePath form: every offset but the last is
// followed as a pointer
type Result struct {
	Path    []process.ProcessMemorySize
	Address process.ProcessMemoryAddress
}

// GlobalPath is the symbol table form of r, starting at base
func (r Result) GlobalPath(base process.ProcessMemoryAddress) []uint64 {
	out := []uint64{uint64(base)}
	for _, o := range r.Path {
		out = append(out, uint64(o))
	}
	return out
}

// Search walks structs reachable from base, depth first, and returns every
// path that ends at a match. Each address is visited once.
func Search(mem Target, base process.ProcessMemoryAddress, options ...Option) ([]Result, error) {
	s := &Searcher{
		MaxStructSize: 256,
		MaxDepth:      3,
		MinAlignment:  4,
	}
	for _, opt := range options {
		opt(s)
	}
	if s.Match == nil {
		return nil, ErrNoTarget
	}
	if s.MinAlignment == 0 {
		s.MinAlignment = 1
	}

	var results []Result
	visited := make(map[process.ProcessMemoryAddress]bool)

	var walk func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemorySize)
	walk = func(addr process.ProcessMemoryAddress, depth int, path []process.ProcessMemorySize) {
		if depth > s.MaxDepth || visited[addr] {
			return
		}
		visited[addr] = true

		data, err := mem.ReadMemory(addr, process.ProcessMemorySize(s.MaxStructSize))
		if err != nil {
			return
		}

		for off := uint(0); off+s.MinAlignment <= uint(len(data)); off += s.MinAlignment {
			here := append(append([]process.ProcessMemorySize{}, path...), process.ProcessMemorySize(off))
			if s.Match(data[off:]) {
				results = append(results, Result{Path: here, Address: addr + process.ProcessMemoryAddress(off)})
			}
			if off%8 != 0 || depth == s.MaxDepth || off+8 > uint(len(data)) {
				continue
			}
			ptr := process.ProcessMemoryAddress(binary.LittleEndian.Uint64(data[off:]))
			if ptr != 0 && mem.IsValidAddress(ptr) {
				walk(ptr, depth+1, here)
			}
		}
	}
	walk(base, 0, nil)
	return results, nil
}
