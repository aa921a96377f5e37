package abi

import (
	"encoding/binary"
	"fmt"
	"strings"

	"simhook/process"
	"simhook/process_blob"
)

// MSVC is the Microsoft x64 ABI.
//
// std::string is { union { char buf[16]; char *ptr; }; size_t size; size_t cap; }
// with the characters inline while cap < 16.
type MSVC struct{}

var _ ABI = MSVC{}

const msvcInline = 16

func (MSVC) Name() string { return "msvc" }

func (MSVC) StringSize() process.ProcessMemorySize { return 32 }

func (MSVC) StringAt(r process.MemoryReader, addr process.ProcessMemoryAddress) (string, error) {
	hdr, err := r.ReadMemory(addr, 32)
	if err != nil {
		return "", err
	}
	size := binary.LittleEndian.Uint64(hdr[16:])
	capacity := binary.LittleEndian.Uint64(hdr[24:])
	if size > capacity {
		return "", fmt.Errorf("string at 0x%x: %w", uint64(addr), ErrBadLength)
	}
	if capacity < msvcInline {
		return string(hdr[:size]), nil
	}
	return readBytes(r, process.ProcessMemoryAddress(binary.LittleEndian.Uint64(hdr[0:])), size)
}

func (MSVC) WriteStringAt(rw ReadWriter, addr process.ProcessMemoryAddress, s string) error {
	t := process_blob.Typed{Mem: rw}
	capacity, err := t.ReadUINT64(addr + 24)
	if err != nil {
		return err
	}
	if uint64(len(s)) > capacity {
		return fmt.Errorf("%d > %d: %w", len(s), capacity, ErrStringCapacity)
	}

	data := addr
	if capacity >= msvcInline {
		if data, err = t.ReadPOINTER(addr); err != nil {
			return err
		}
	}
	if err := rw.WriteMemory(data, append([]byte(s), 0)); err != nil {
		return err
	}
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], uint64(len(s)))
	return rw.WriteMemory(addr+16, n[:])
}

// TypeName follows vtable[-1] to the RTTICompleteObjectLocator. On x64 its
// fields are image-relative; pSelf gives the image base back.
//
//	+0  signature (1)     +12 pTypeDescriptor
//	+4  offset            +16 pClassDescriptor
//	+8  cdOffset          +20 pSelf
//
// The TypeDescriptor name at +16 is a decorated ".?AVname@ns@@".
func (MSVC) TypeName(r process.MemoryReader, vtable process.ProcessMemoryAddress) (string, error) {
	if vtable < 8 {
		return "", ErrNoRTTI
	}
	t := process_blob.Typed{Mem: r}

	col, err := t.ReadPOINTER(vtable - 8)
	if err != nil {
		return "", ErrNoRTTI
	}
	blob, err := t.ReadBlob(col, 24)
	if err != nil {
		return "", ErrNoRTTI
	}
	sig, _ := blob.OffsetUINT32(0)
	typeRVA, _ := blob.OffsetUINT32(12)
	selfRVA, _ := blob.OffsetUINT32(20)
	if sig != 1 || uint64(selfRVA) > uint64(col) {
		return "", ErrNoRTTI
	}

	image := col - process.ProcessMemoryAddress(selfRVA)
	decorated, err := t.ReadNTS(image+process.ProcessMemoryAddress(typeRVA)+16, 512)
	if err != nil || !printable(decorated) {
		return "", ErrNoRTTI
	}
	return UndecorateClass(decorated)
}

// UndecorateClass turns ".?AVunit@df@@" into "df::unit". Only plain class
// and struct names are handled; template names are returned with their
// decoration stripped but otherwise untouched.
func UndecorateClass(decorated string) (string, error) {
	var body string
	switch {
	case strings.HasPrefix(decorated, ".?AV"), strings.HasPrefix(decorated, ".?AU"):
		body = decorated[4:]
	default:
		return "", ErrNoRTTI
	}
	body, ok := strings.CutSuffix(body, "@@")
	if !ok || body == "" {
		return "", ErrNoRTTI
	}
	if strings.HasPrefix(body, "?$") {
		return body, nil
	}

	parts := strings.Split(body, "@")
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "::"), nil
}
