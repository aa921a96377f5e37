package pod

import (
	"encoding/binary"
	"errors"
	"testing"

	"simhook/abi"
	"simhook/process"
	"simhook/process/memory_map"
	"simhook/process_blob"
	"simhook/test"
)

type unitHeader struct {
	ID      int32
	Flags   uint32
	Pos     [3]int16
	_       [2]byte
	Name    [8]byte `pod:"char_array"`
	Job     uint64  `pod:"valid_pointer"`
	Temp    float32
	Padding uint32
}

func TestReadWriteT(t *testing.T) {
	m := process_blob.NewMemory("pod")
	base := m.Alloc(0x1000)

	in := unitHeader{ID: 42, Flags: 0x81, Pos: [3]int16{10, -2, 150}, Temp: 10015.5}
	copy(in.Name[:], "urist")
	in.Job = uint64(base + 0x800)

	test.DemandSuccess(t, WriteT(m, base, in))
	out, err := ReadT[unitHeader](m, base)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, out, in)
	test.ExpectEquality(t, SizeOf[unitHeader](), process.ProcessMemorySize(40))
}

func TestReadTCleansTaggedFields(t *testing.T) {
	m := process_blob.NewMemory("pod")
	base := m.Alloc(0x1000)

	in := unitHeader{ID: 7, Job: 0xdead0000}
	copy(in.Name[:], "ab\x00garbag")
	test.DemandSuccess(t, m.Poke(base, Bytes(in)))

	out, err := ReadT[unitHeader](m, base)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, out.Job, uint64(0))
	test.ExpectEquality(t, out.Name, [8]byte{'a', 'b'})
}

func TestReadTRejectsPointers(t *testing.T) {
	m := process_blob.NewMemory("pod")
	base := m.Alloc(0x100)
	_, err := ReadT[struct{ S string }](m, base)
	test.ExpectSuccess(t, errors.Is(err, ErrNotPOD))
	_, err = ReadT[struct{}](m, base)
	test.ExpectSuccess(t, errors.Is(err, ErrZeroSize))
}

func TestReadSliceT(t *testing.T) {
	m := process_blob.NewMemory("pod")
	base := m.Alloc(0x100)
	test.DemandSuccess(t, m.Poke(base, []byte{1, 0, 2, 0, 3, 0, 4, 0}))

	s, err := ReadSliceT[uint16](m, base, 4)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(s), 4)
	test.ExpectEquality(t, s[3], uint16(4))

	_, err = ReadSliceT[uint16](m, base, -1)
	test.ExpectFailure(t, err)
}

func TestReadPath(t *testing.T) {
	m := process_blob.NewMemory("path")
	a := m.Alloc(0x100)
	b := m.Alloc(0x100)
	c := m.Alloc(0x100)

	// a+0x10 -> b, b+0x8 -> c, value at c+0x20
	test.DemandSuccess(t, m.Poke(a+0x10, binary.LittleEndian.AppendUint64(nil, uint64(b))))
	test.DemandSuccess(t, m.Poke(b+0x8, binary.LittleEndian.AppendUint64(nil, uint64(c))))
	test.DemandSuccess(t, m.Poke(c+0x20, binary.LittleEndian.AppendUint32(nil, 0xcafe)))

	v, err := ReadPath[uint32](m, a, 0x10, 0x8, 0x20)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xcafe))

	_, err = ReadPath[uint32](m, a, 0x18, 0x8, 0x20)
	test.ExpectSuccess(t, errors.Is(err, process.ErrInvalidPointer))
}

func TestReadCStringAtMappingEnd(t *testing.T) {
	m := process_blob.NewMemory("cstr")
	test.DemandSuccess(t, m.Map(0x10000, 0x1000, memory_map.Permissions{Read: true}, ""))
	test.DemandSuccess(t, m.Poke(0x10ffa, []byte("dwarf\x00")))

	s, err := ReadCString(m, 0x10ffa, 256)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, s, "dwarf")

	// no terminator before the mapping ends
	test.DemandSuccess(t, m.Poke(0x10ffa, []byte("dwarfs")))
	s, err = ReadCString(m, 0x10ffa, 256)
	test.ExpectFailure(t, err)
	test.ExpectEquality(t, s, "dwarfs")

	s, err = ReadCString(m, 0x10ffa, 3)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, s, "dwa")
}

func TestReadVector(t *testing.T) {
	m := process_blob.NewMemory("vec")
	hdr := m.Alloc(0x100)
	data := m.Alloc(0x100)
	test.DemandSuccess(t, m.Poke(data, []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}))

	var raw []byte
	raw = binary.LittleEndian.AppendUint64(raw, uint64(data))
	raw = binary.LittleEndian.AppendUint64(raw, uint64(data+12))
	raw = binary.LittleEndian.AppendUint64(raw, uint64(data+16))
	test.DemandSuccess(t, m.Poke(hdr, raw))

	v, err := ReadVector[int32](m, hdr)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(v), 3)
	test.ExpectEquality(t, v[2], int32(3))

	s, err := ReadString(m, abi.MSVC{}, hdr+0x40)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, s, "")
}

func TestReadVectorRejectsGarbageHeaders(t *testing.T) {
	m := process_blob.NewMemory("vec")
	hdr := m.Alloc(0x100)
	data := uint64(m.Alloc(0x100))

	header := func(begin, end, cap uint64) {
		var raw []byte
		raw = binary.LittleEndian.AppendUint64(raw, begin)
		raw = binary.LittleEndian.AppendUint64(raw, end)
		raw = binary.LittleEndian.AppendUint64(raw, cap)
		test.DemandSuccess(t, m.Poke(hdr, raw))
	}

	// more elements than any live vector holds
	n := uint64(abi.MaxVectorLength + 1)
	header(data, data+n*8, data+n*8)
	_, err := ReadPointerVector(m, hdr)
	test.ExpectSuccess(t, errors.Is(err, abi.ErrBadLength))

	header(data, data+1<<50, data+1<<50)
	_, err = ReadVector[byte](m, hdr)
	test.ExpectSuccess(t, errors.Is(err, abi.ErrBadLength))

	header(data, data+16, data+8)
	_, err = ReadVector[int32](m, hdr)
	test.ExpectSuccess(t, errors.Is(err, abi.ErrBadLength))

	_, err = ReadSliceT[[64]byte](m, process.ProcessMemoryAddress(data), 1<<40)
	test.ExpectSuccess(t, errors.Is(err, process.ErrReadTooLarge))
}

func TestReadValidPointerVector(t *testing.T) {
	m := process_blob.NewMemory("vec")
	hdr := m.Alloc(0x100)
	list := m.Alloc(0x100)
	obj := m.Alloc(0x100)

	var raw []byte
	for _, p := range []uint64{uint64(obj), 0, 0xdead0000, uint64(obj + 8)} {
		raw = binary.LittleEndian.AppendUint64(raw, p)
	}
	test.DemandSuccess(t, m.Poke(list, raw))
	raw = raw[:0]
	raw = binary.LittleEndian.AppendUint64(raw, uint64(list))
	raw = binary.LittleEndian.AppendUint64(raw, uint64(list+32))
	raw = binary.LittleEndian.AppendUint64(raw, uint64(list+32))
	test.DemandSuccess(t, m.Poke(hdr, raw))

	all, err := ReadPointerVector(m, hdr)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(all), 4)

	scans := m.ScanCount()
	ptrs, err := ReadValidPointerVector(m, hdr)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(ptrs), 2)
	test.ExpectEquality(t, ptrs[0], obj)
	test.ExpectEquality(t, ptrs[1], obj+8)
	test.ExpectEquality(t, m.ScanCount(), scans+1)
}
