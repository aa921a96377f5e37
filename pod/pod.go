package pod

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"simhook/process"
	"simhook/process/memory_map"

	"github.com/modern-go/reflect2"
)

var (
	ErrNotPOD   = errors.New("type contains pointers; not POD-safe")
	ErrZeroSize = errors.New("size of T is zero")
	ErrShort    = errors.New("buffer too small")
)

// layout is the cached decoding plan for one Go type
type layout struct {
	typ    reflect2.Type
	size   int
	pod    bool
	fields []taggedField
}

var layouts sync.Map // reflect.Type -> *layout

func layoutOf[T any]() *layout {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	if v, ok := layouts.Load(rt); ok {
		return v.(*layout)
	}
	l := &layout{
		typ:    reflect2.Type2(rt),
		size:   int(rt.Size()),
		pod:    !typeHasPointers(rt),
		fields: taggedFields(rt, 0),
	}
	layouts.Store(rt, l)
	return l
}

func SizeOf[T any]() process.ProcessMemorySize {
	return process.ProcessMemorySize(layoutOf[T]().size)
}

// Decode copies the first sizeof(T) bytes of data into a new T. T must be
// POD: it and all of its fields contain no Go pointers.
func Decode[T any](data []byte) (T, error) {
	var zero T
	l := layoutOf[T]()
	if !l.pod {
		return zero, ErrNotPOD
	}
	if len(data) < l.size {
		return zero, ErrShort
	}
	ptr := l.typ.UnsafeNew()
	copy(unsafe.Slice((*byte)(ptr), l.size), data)
	return *(*T)(ptr), nil
}

// Bytes serializes a POD value using its in-memory layout
func Bytes[T any](v T) []byte {
	size := int(unsafe.Sizeof(v))
	out := make([]byte, size)
	if size > 0 {
		copy(out, unsafe.Slice((*byte)(unsafe.Pointer(&v)), size))
	}
	return out
}

// ReadT reads a T at addr. Fields tagged `pod:"valid_pointer"` are cleared
// when r can validate addresses and the pointer is not mapped; fields
// tagged `pod:"char_array"` are cut at the first NUL.
func ReadT[T any](r process.MemoryReader, addr process.ProcessMemoryAddress) (T, error) {
	var zero T
	l := layoutOf[T]()
	if l.size == 0 {
		return zero, ErrZeroSize
	}

	data, err := r.ReadMemory(addr, process.ProcessMemorySize(l.size))
	if err != nil {
		return zero, err
	}
	v, err := Decode[T](data)
	if err != nil {
		return zero, err
	}
	if len(l.fields) > 0 {
		cleanFields(unsafe.Pointer(&v), l.fields, r)
	}
	return v, nil
}

// WriteT writes v at addr with a single raw write. Page protection is not
// changed; use a patcher for read-only memory.
func WriteT[T any](w process.MemoryWriter, addr process.ProcessMemoryAddress, v T) error {
	if !layoutOf[T]().pod {
		return ErrNotPOD
	}
	return w.WriteMemory(addr, Bytes(v))
}

// ReadSliceT reads count consecutive T values with one read
func ReadSliceT[T any](r process.MemoryReader, addr process.ProcessMemoryAddress, count int) ([]T, error) {
	if count < 0 {
		return nil, errors.New("ReadSliceT: count must be positive")
	}
	l := layoutOf[T]()
	if !l.pod {
		return nil, ErrNotPOD
	}
	if l.size == 0 || count == 0 {
		return []T{}, nil
	}
	if count > process.MaxReadSize/l.size {
		return nil, fmt.Errorf("ReadSliceT: %d elements of %d bytes: %w", count, l.size, process.ErrReadTooLarge)
	}

	data, err := r.ReadMemory(addr, process.ProcessMemorySize(l.size*count))
	if err != nil {
		return nil, fmt.Errorf("ReadSliceT: %w", err)
	}

	result := make([]T, count)
	copy(unsafe.Slice((*byte)(unsafe.Pointer(&result[0])), l.size*count), data)
	return result, nil
}

// ReadPointerList reads count pointers at addr and keeps the non-null ones.
// When r can list its regions, pointers outside a readable region are
// dropped too; the region list is scanned once per call.
func ReadPointerList(r process.MemoryReader, addr process.ProcessMemoryAddress, count int) ([]process.ProcessMemoryAddress, error) {
	ptrs, err := ReadSliceT[uint64](r, addr, count)
	if err != nil {
		return nil, fmt.Errorf("ReadPointerList: failed to read at 0x%x: %w", uint64(addr), err)
	}

	src, scan := r.(memory_map.Source)
	var ranges []memory_map.MemoryRange
	if scan {
		ranges = memory_map.ScanRegions(src)
	}
	results := make([]process.ProcessMemoryAddress, 0, len(ptrs))
	for _, p := range ptrs {
		if p == 0 || scan && !memory_map.IsValidAddress(p, ranges) {
			continue
		}
		results = append(results, process.ProcessMemoryAddress(p))
	}
	return results, nil
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map, reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
