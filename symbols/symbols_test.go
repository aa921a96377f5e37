package symbols_test

import (
	"errors"
	"testing"

	"simhook/symbols"
	"simhook/test"
)

func TestLoad(t *testing.T) {
	tab, err := symbols.Load("testdata/sim.yaml")
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, tab.ABI, "itanium")

	g, ok := tab.Global("world")
	test.ExpectSuccess(t, ok)
	test.ExpectSuccess(t, !g.IsPath())
	test.ExpectEquality(t, g.Address, uint64(0x1d4c7a0))

	g, ok = tab.Global("map_blocks")
	test.ExpectSuccess(t, ok)
	test.ExpectSuccess(t, g.IsPath())
	test.DemandEquality(t, len(g.Path), 3)
	test.ExpectEquality(t, g.Path[1], uint64(8))

	_, ok = tab.Global("missing")
	test.ExpectFailure(t, ok)

	off, ok := tab.Field("map_block", "designation")
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, off, uint64(0x240))
	_, ok = tab.Field("map_block", "nothing")
	test.ExpectFailure(t, ok)
	_, ok = tab.Field("nothing", "designation")
	test.ExpectFailure(t, ok)

	size, ok := tab.StructSize("world")
	test.ExpectSuccess(t, ok)
	test.ExpectEquality(t, size, uint64(0x200))

	test.DemandEquality(t, len(tab.TileTypes), 1)
	test.ExpectEquality(t, tab.TileTypes[0].ID, int16(200))
}

func TestMD5(t *testing.T) {
	tab, err := symbols.Load("testdata/sim.yaml")
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, tab.MatchesMD5("0123456789ABCDEF0123456789abcdef"))
	test.ExpectFailure(t, tab.MatchesMD5("ffffffffffffffffffffffffffffffff"))

	tab.MD5 = ""
	test.ExpectSuccess(t, tab.MatchesMD5("ffffffffffffffffffffffffffffffff"))
}

func TestEventKind(t *testing.T) {
	tab, err := symbols.Load("testdata/sim.yaml")
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, tab.EventKind("block_square_event_mineralst"), symbols.EventMineral)
	test.ExpectEquality(t, tab.EventKind("df::block_square_event_frozen_liquidst"), symbols.EventFrozenLiquid)
	test.ExpectEquality(t, tab.EventKind("block_square_event_grassst"), symbols.EventGrass)
	test.ExpectEquality(t, tab.EventKind("unit"), symbols.EventUnknown)
	test.ExpectEquality(t, symbols.EventMaterialSpatter.String(), "material_spatter")

	vt := tab.EventVtables()
	test.ExpectEquality(t, len(vt), 2)
	test.ExpectEquality(t, vt[0x1a2b100], symbols.EventFrozenLiquid)
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad abi", "version: x\nabi: arm\nglobals: {}\nstructs: {}\n"},
		{"missing structs", "version: x\nabi: msvc\nglobals: {}\n"},
		{"negative address", "version: x\nabi: msvc\nglobals: {a: -1}\nstructs: {}\n"},
		{"bad md5", "version: x\nmd5: abc\nabi: msvc\nglobals: {}\nstructs: {}\n"},
		{"bad event", "version: x\nabi: msvc\nglobals: {}\nstructs: {}\nvtables: {a: {event: fire}}\n"},
		{"unknown key", "version: x\nabi: msvc\nglobals: {}\nstructs: {}\nplugins: []\n"},
		{"not yaml", "version: [\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := symbols.Parse([]byte(tc.doc))
			test.ExpectSuccess(t, errors.Is(err, symbols.ErrInvalid))
		})
	}
}

func TestParseMinimal(t *testing.T) {
	tab, err := symbols.Parse([]byte("version: x\nabi: msvc\nglobals: {}\nstructs: {}\n"))
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, tab.ABI, "msvc")
	test.ExpectEquality(t, tab.EventKind("block_square_event_mineralst"), symbols.EventUnknown)
}
