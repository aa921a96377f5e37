package pod

import (
	"reflect"
	"strings"
	"unsafe"

	"simhook/process"
)

type tagKind int

const (
	tagValidPointer tagKind = iota + 1
	tagCharArray
)

type taggedField struct {
	offset uintptr
	size   int
	kind   tagKind
}

// taggedFields flattens the `pod` tags of rt, including nested structs
func taggedFields(rt reflect.Type, base uintptr) []taggedField {
	if rt.Kind() != reflect.Struct {
		return nil
	}
	var out []taggedField
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.Type.Kind() == reflect.Struct {
			out = append(out, taggedFields(f.Type, base+f.Offset)...)
			continue
		}

		kind, _, _ := strings.Cut(f.Tag.Get("pod"), ",")
		switch {
		case kind == "valid_pointer" && f.Type.Kind() == reflect.Uint64:
			out = append(out, taggedField{offset: base + f.Offset, size: 8, kind: tagValidPointer})
		case kind == "char_array" && f.Type.Kind() == reflect.Array && f.Type.Elem().Kind() == reflect.Uint8:
			out = append(out, taggedField{offset: base + f.Offset, size: f.Type.Len(), kind: tagCharArray})
		}
	}
	return out
}

type addressValidator interface {
	IsValidAddress(addr process.ProcessMemoryAddress) bool
}

func cleanFields(ptr unsafe.Pointer, fields []taggedField, r process.MemoryReader) {
	validator, _ := r.(addressValidator)
	for _, f := range fields {
		switch f.kind {
		case tagValidPointer:
			p := (*uint64)(unsafe.Add(ptr, f.offset))
			if *p != 0 && validator != nil && !validator.IsValidAddress(process.ProcessMemoryAddress(*p)) {
				*p = 0
			}
		case tagCharArray:
			b := unsafe.Slice((*byte)(unsafe.Add(ptr, f.offset)), f.size)
			if i := strings.IndexByte(string(b), 0); i >= 0 {
				clear(b[i:])
			}
		}
	}
}
