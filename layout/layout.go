// Package layout turns symbol table offsets into typed field descriptors.
// Descriptors are resolved once per connection; every later access goes
// through Read and Write, which check the Go type against the field kind.
package layout

import (
	"errors"
	"fmt"

	"simhook/pod"
	"simhook/process"
	"simhook/symbols"
)

var (
	ErrMissing      = errors.New("missing from symbol table")
	ErrKindMismatch = errors.New("field kind does not match type")
)

// Kind is the type tag of a field
type Kind uint8

const (
	KindI16 Kind = iota + 1
	KindU16
	KindI32
	KindU32
	KindPointer
	KindVector
	KindCoord
	KindTileGrid
	KindWordGrid
	KindTempGrid
	KindByteGrid
	KindBitmask
	KindRegionOffsets
)

var kindSizes = map[Kind]uint64{
	KindI16:           2,
	KindU16:           2,
	KindI32:           4,
	KindU32:           4,
	KindPointer:       8,
	KindVector:        24,
	KindCoord:         6,
	KindTileGrid:      16 * 16 * 2,
	KindWordGrid:      16 * 16 * 4,
	KindTempGrid:      16 * 16 * 2,
	KindByteGrid:      16 * 16,
	KindBitmask:       16 * 2,
	KindRegionOffsets: 9,
}

func (k Kind) Size() uint64 {
	return kindSizes[k]
}

// Field is one resolved struct member
type Field struct {
	Struct string
	Name   string
	Offset uint64
	Kind   Kind
}

func (f Field) String() string {
	return fmt.Sprintf("%s.%s+0x%x", f.Struct, f.Name, f.Offset)
}

// At is the address of the field in the struct at base
func (f Field) At(base process.ProcessMemoryAddress) process.ProcessMemoryAddress {
	return base + process.ProcessMemoryAddress(f.Offset)
}

func check[T any](f Field) error {
	if uint64(pod.SizeOf[T]()) != f.Kind.Size() {
		return fmt.Errorf("%s: %w", f, ErrKindMismatch)
	}
	return nil
}

// Read reads field f of the struct at base
func Read[T any](r process.MemoryReader, base process.ProcessMemoryAddress, f Field) (T, error) {
	if err := check[T](f); err != nil {
		var zero T
		return zero, err
	}
	return pod.ReadT[T](r, f.At(base))
}

// Write replaces field f of the struct at base in one write
func Write[T any](w process.MemoryWriter, base process.ProcessMemoryAddress, f Field, v T) error {
	if err := check[T](f); err != nil {
		return err
	}
	return pod.WriteT(w, f.At(base), v)
}

func elemAt[T any](base process.ProcessMemoryAddress, f Field, i int) (process.ProcessMemoryAddress, error) {
	size := uint64(pod.SizeOf[T]())
	if size == 0 || i < 0 || f.Kind.Size()%size != 0 || uint64(i)*size >= f.Kind.Size() {
		return 0, fmt.Errorf("%s[%d]: %w", f, i, ErrKindMismatch)
	}
	return f.At(base) + process.ProcessMemoryAddress(uint64(i)*size), nil
}

// ReadElem reads element i of an array field whose elements are T
func ReadElem[T any](r process.MemoryReader, base process.ProcessMemoryAddress, f Field, i int) (T, error) {
	addr, err := elemAt[T](base, f, i)
	if err != nil {
		var zero T
		return zero, err
	}
	return pod.ReadT[T](r, addr)
}

// WriteElem writes element i of an array field whose elements are T
func WriteElem[T any](w process.MemoryWriter, base process.ProcessMemoryAddress, f Field, i int, v T) error {
	addr, err := elemAt[T](base, f, i)
	if err != nil {
		return err
	}
	return pod.WriteT(w, addr, v)
}

// Struct is a resolved struct size
type Struct struct {
	Name string
	Size uint64
}

type resolver struct {
	tab  *symbols.Table
	errs []error
}

func (r *resolver) strct(name string) Struct {
	size, ok := r.tab.StructSize(name)
	if !ok {
		r.errs = append(r.errs, fmt.Errorf("struct %s: %w", name, ErrMissing))
	}
	return Struct{Name: name, Size: size}
}

func (r *resolver) field(s Struct, name string, kind Kind) Field {
	off, ok := r.tab.Field(s.Name, name)
	if !ok {
		r.errs = append(r.errs, fmt.Errorf("field %s.%s: %w", s.Name, name, ErrMissing))
	} else if s.Size != 0 && off+kind.Size() > s.Size {
		r.errs = append(r.errs, fmt.Errorf("field %s.%s at 0x%x overruns size 0x%x", s.Name, name, off, s.Size))
	}
	return Field{Struct: s.Name, Name: name, Offset: off, Kind: kind}
}

// Global resolves a named global to an address. Pointer paths start at
// their first element and follow the rest as offsets.
func Global(tab *symbols.Table, r process.MemoryReader, name string) (process.ProcessMemoryAddress, error) {
	g, ok := tab.Global(name)
	if !ok {
		return 0, fmt.Errorf("global %s: %w", name, ErrMissing)
	}
	if !g.IsPath() {
		return process.ProcessMemoryAddress(g.Address), nil
	}
	offsets := make([]process.ProcessMemorySize, len(g.Path)-1)
	for i, o := range g.Path[1:] {
		offsets[i] = process.ProcessMemorySize(o)
	}
	addr, err := pod.ResolvePath(r, process.ProcessMemoryAddress(g.Path[0]), offsets...)
	if err != nil {
		return 0, fmt.Errorf("global %s: %w", name, err)
	}
	return addr, nil
}
