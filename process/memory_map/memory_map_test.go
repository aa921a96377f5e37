package memory_map

import (
	"errors"
	"strings"
	"testing"

	"simhook/test"
)

const sampleMaps = `00400000-0040b000 r-xp 00000000 08:01 1234       /usr/bin/target
0040b000-0040c000 r-xp 0000b000 08:01 1234       /usr/bin/target
0060a000-0060b000 r--p 0000a000 08:01 1234       /usr/bin/target
0060b000-0060c000 rw-p 0000b000 08:01 1234       /usr/bin/target
01a2c000-01a4d000 rw-p 00000000 00:00 0          [heap]
7f0000000000-7f0000001000 rw-s 00000000 00:05 99  /dev/shm/segment
7f0000001000-7f0000002000 rw-p 00000000 00:00 0
`

func TestParseMaps(t *testing.T) {
	ranges, err := ParseMaps(strings.NewReader(sampleMaps))
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(ranges), 7)

	test.ExpectEquality(t, ranges[0].Start, uint64(0x400000))
	test.ExpectEquality(t, ranges[0].End, uint64(0x40b000))
	test.ExpectEquality(t, ranges[0].Perms, Permissions{Read: true, Execute: true})
	test.ExpectEquality(t, ranges[0].Name, "/usr/bin/target")
	test.ExpectEquality(t, ranges[1].Base, uint64(0xb000))
	test.ExpectEquality(t, ranges[4].Name, "[heap]")
	test.ExpectSuccess(t, ranges[5].Perms.Shared)
	test.ExpectEquality(t, ranges[6].Name, "")
}

func TestCoalesce(t *testing.T) {
	ranges, err := ParseMaps(strings.NewReader(sampleMaps))
	test.DemandSuccess(t, err)

	merged := Coalesce(ranges)
	test.DemandEquality(t, len(merged), 6)
	test.ExpectEquality(t, merged[0].Start, uint64(0x400000))
	test.ExpectEquality(t, merged[0].End, uint64(0x40c000))

	for i := 1; i < len(merged); i++ {
		test.ExpectSuccess(t, merged[i-1].End <= merged[i].Start)
		test.ExpectSuccess(t, merged[i].Start <= merged[i].End)
	}
}

func TestCoalesceSortsInput(t *testing.T) {
	in := []MemoryRange{
		{Start: 0x3000, End: 0x4000, Perms: Permissions{Read: true}, Valid: true},
		{Start: 0x1000, End: 0x2000, Perms: Permissions{Read: true}, Valid: true},
		{Start: 0x2000, End: 0x3000, Perms: Permissions{Read: true}, Valid: true},
	}
	out := Coalesce(in)
	test.DemandEquality(t, len(out), 1)
	test.ExpectEquality(t, out[0].Start, uint64(0x1000))
	test.ExpectEquality(t, out[0].End, uint64(0x4000))

	// input untouched
	test.ExpectEquality(t, in[0].Start, uint64(0x3000))
}

func TestSpan(t *testing.T) {
	ranges := []MemoryRange{
		{Start: 0x1000, End: 0x2000, Valid: true},
		{Start: 0x2000, End: 0x3000, Valid: true},
		{Start: 0x4000, End: 0x5000, Valid: true},
	}

	span, ok := Span(ranges, 0x1ff0, 0x20)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, len(span), 2)

	_, ok = Span(ranges, 0x2ff0, 0x20)
	test.ExpectFailure(t, ok)

	_, ok = Span(ranges, 0x3800, 4)
	test.ExpectFailure(t, ok)

	span, ok = Span(ranges, 0x4000, 0x1000)
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, len(span), 1)

	_, ok = Span(ranges, 0x4000, 0)
	test.ExpectFailure(t, ok)
}

func TestPermissionsString(t *testing.T) {
	test.ExpectEquality(t, ParsePerms("r-xp").String(), "r-xp")
	test.ExpectEquality(t, ParsePerms("rw-s").String(), "rw-s")
	test.ExpectEquality(t, Permissions{}.String(), "---p")
}

type failingSource struct{}

func (failingSource) GetMemoryMap() ([]MemoryRange, error) {
	return nil, errors.New("no such process")
}

func TestScanRegionsNeverFails(t *testing.T) {
	ranges := ScanRegions(failingSource{})
	test.ExpectSuccess(t, ranges != nil)
	test.ExpectEquality(t, len(ranges), 0)
}
