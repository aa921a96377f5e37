package search

import (
	"testing"

	"simhook/pod"
	"simhook/process"
	"simhook/process_blob"
	"simhook/test"
)

func TestSearchFollowsPointers(t *testing.T) {
	m := process_blob.NewMemory("search")
	base := m.Alloc(0x100)
	mid := m.Alloc(0x100)
	leaf := m.Alloc(0x100)

	test.DemandSuccess(t, pod.WriteT(m, base+0x10, uint64(mid)))
	test.DemandSuccess(t, pod.WriteT(m, mid+0x20, uint64(leaf)))
	test.DemandSuccess(t, pod.WriteT(m, leaf+0x8, uint32(0xdeadbeef)))

	results, err := Search(m, base, WithValue(uint32(0xdeadbeef)))
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(results), 1)

	r := results[0]
	test.ExpectEquality(t, len(r.Path), 3)
	test.ExpectEquality(t, r.Address, leaf+0x8)
	v, err := pod.ReadPath[uint32](m, base, r.Path...)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xdeadbeef))

	gp := r.GlobalPath(base)
	test.ExpectEquality(t, gp[0], uint64(base))
	test.ExpectEquality(t, gp[1], uint64(0x10))
	test.ExpectEquality(t, gp[2], uint64(0x20))
	test.ExpectEquality(t, gp[3], uint64(0x8))
}

func TestSearchDepthLimit(t *testing.T) {
	m := process_blob.NewMemory("search")
	base := m.Alloc(0x100)
	next := m.Alloc(0x100)
	test.DemandSuccess(t, pod.WriteT(m, base, uint64(next)))
	test.DemandSuccess(t, pod.WriteT(m, next+0x40, uint64(0x1122334455667788)))

	results, err := Search(m, base, WithValue(uint64(0x1122334455667788)), WithMaxDepth(0))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, len(results), 0)

	results, err = Search(m, base, WithValue(uint64(0x1122334455667788)), WithMaxDepth(1), WithMinAlignment(8))
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(results), 1)
	test.ExpectEquality(t, results[0].Path[1], process.ProcessMemorySize(0x40))
}

func TestSearchCycles(t *testing.T) {
	m := process_blob.NewMemory("search")
	a := m.Alloc(0x100)
	b := m.Alloc(0x100)
	test.DemandSuccess(t, pod.WriteT(m, a, uint64(b)))
	test.DemandSuccess(t, pod.WriteT(m, b, uint64(a)))

	results, err := Search(m, a, WithValue(uint16(0xbeef)), WithMaxDepth(10))
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, len(results), 0)

	_, err = Search(m, a)
	test.ExpectEquality(t, err, ErrNoTarget)
}
