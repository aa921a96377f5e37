package patcher

import (
	"errors"
	"testing"

	"simhook/process"
	"simhook/process/memory_map"
	"simhook/process_blob"
	"simhook/test"
)

var (
	rx = memory_map.Permissions{Read: true, Execute: true}
	xo = memory_map.Permissions{Execute: true}
	ro = memory_map.Permissions{Read: true}
	rw = memory_map.Permissions{Read: true, Write: true}
)

func snapshot(t *testing.T, m *process_blob.Memory) []memory_map.MemoryRange {
	t.Helper()
	ranges, err := m.GetMemoryMap()
	test.DemandSuccess(t, err)
	return ranges
}

func sameRanges(t *testing.T, a, b []memory_map.MemoryRange) {
	t.Helper()
	test.DemandEquality(t, len(a), len(b))
	for i := range a {
		test.ExpectEquality(t, a[i], b[i])
	}
}

// four byte-sized regions: r-x, --x, r-x, r-x
func fourRegions(t *testing.T) *process_blob.Memory {
	m := process_blob.NewMemory("patch")
	m.SetPageSize(1)
	test.DemandSuccess(t, m.Map(0x1000, 1, rx, "a"))
	test.DemandSuccess(t, m.Map(0x1001, 1, xo, "b"))
	test.DemandSuccess(t, m.Map(0x1002, 1, rx, "c"))
	test.DemandSuccess(t, m.Map(0x1003, 1, rx, "d"))
	return m
}

func TestWriteAcrossExecutableRegions(t *testing.T) {
	m := fourRegions(t)
	before := snapshot(t, m)
	scans := m.ScanCount()

	p := New(m)
	test.ExpectSuccess(t, p.Write(0x1000, []byte("ABCD")))

	s, err := m.ReadNTS(0x1000, 4)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, s, "ABCD")
	test.ExpectEquality(t, len(p.Patches()), 4)
	test.ExpectEquality(t, m.FlushCount(), 1)
	test.ExpectEquality(t, m.ScanCount(), scans+1)

	test.DemandSuccess(t, p.Close())
	sameRanges(t, snapshot(t, m), before)

	// original protections are back, so a raw write fails again
	test.ExpectSuccess(t, errors.Is(m.WriteMemory(0x1000, []byte("Z")), process.ErrNotWritable))
}

func TestVerifyAccessIsAllOrNothing(t *testing.T) {
	tests := []struct {
		name  string
		setup func(m *process_blob.Memory)
	}{
		{"shared", func(m *process_blob.Memory) { m.SetShared(0x1002, true) }},
		{"invalid", func(m *process_blob.Memory) { m.SetValid(0x1003, false) }},
		{"no access", func(m *process_blob.Memory) {
			test.DemandSuccess(t, m.Protect(0x1002, 1, memory_map.Permissions{}))
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := fourRegions(t)
			tc.setup(m)
			before := snapshot(t, m)
			protects := m.ProtectCount()

			p := New(m)
			defer p.Close()
			test.ExpectFailure(t, p.VerifyAccess(0x1000, 4, true))
			test.ExpectFailure(t, p.Write(0x1000, []byte("ABCD")))

			test.ExpectEquality(t, m.ProtectCount(), protects)
			test.ExpectEquality(t, m.WriteCount(), 0)
			test.ExpectEquality(t, len(p.Patches()), 0)
			sameRanges(t, snapshot(t, m), before)
		})
	}
}

func TestVerifyAccessGap(t *testing.T) {
	m := process_blob.NewMemory("gap")
	test.DemandSuccess(t, m.Map(0x10000, 0x1000, rx, "text"))
	test.DemandSuccess(t, m.Map(0x12000, 0x1000, rx, "text"))

	p := New(m)
	defer p.Close()
	test.ExpectSuccess(t, p.VerifyAccess(0x10ff0, 0x10, false))
	test.ExpectFailure(t, p.VerifyAccess(0x10ff0, 0x20, true))
	test.ExpectFailure(t, p.VerifyAccess(0x20000, 4, false))
	test.ExpectFailure(t, p.VerifyAccess(0x10000, 0, true))
	test.ExpectEquality(t, m.ProtectCount(), 0)
}

func TestReadOnlyCheckDoesNotEscalate(t *testing.T) {
	m := fourRegions(t)
	p := New(m)
	defer p.Close()
	test.ExpectSuccess(t, p.VerifyAccess(0x1000, 4, false))
	test.ExpectEquality(t, m.ProtectCount(), 0)
}

func TestRepeatedWritesPatchOnce(t *testing.T) {
	m := process_blob.NewMemory("repeat")
	test.DemandSuccess(t, m.Map(0x400000, 0x3000, ro, "rodata"))
	test.DemandSuccess(t, m.Map(0x403000, 0x1000, rw, "data"))
	before := snapshot(t, m)

	p := New(m)
	test.ExpectSuccess(t, p.Write(0x400010, []byte{1, 2, 3}))
	test.ExpectSuccess(t, p.Write(0x400020, []byte{4}))
	test.ExpectSuccess(t, p.Write(0x402ffe, []byte{5, 6, 7, 8}))
	test.ExpectEquality(t, len(p.Patches()), 1)
	test.ExpectEquality(t, m.ProtectCount(), 1)
	test.ExpectEquality(t, m.FlushCount(), 0)

	test.DemandSuccess(t, p.Close())
	test.DemandSuccess(t, p.Close())
	test.ExpectEquality(t, m.ProtectCount(), 2)
	sameRanges(t, snapshot(t, m), before)

	v, err := m.ReadUINT32(0x402ffe)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0x08070605))
}

func TestWithPatcherRestoresOnError(t *testing.T) {
	m := fourRegions(t)
	before := snapshot(t, m)
	boom := errors.New("boom")

	err := WithPatcher(m, func(p *MemoryPatcher) error {
		if !p.Write(0x1001, []byte{0x90}) {
			return errors.New("write failed")
		}
		return boom
	})
	test.ExpectSuccess(t, errors.Is(err, boom))
	sameRanges(t, snapshot(t, m), before)

	b, err := m.ReadUINT8(0x1001)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, b, uint8(0x90))
}
