package core_test

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"simhook/abi"
	"simhook/core"
	"simhook/layout"
	"simhook/mapcache"
	"simhook/pod"
	"simhook/process"
	"simhook/process/memory_map"
	"simhook/process_blob"
	"simhook/symbols"
	"simhook/test"
	"simhook/tiletype"
)

var rw = memory_map.Permissions{Read: true, Write: true}

// target writes an executable image and a symbol table that names it.
// A non-empty image overrides the hashed content.
func target(t *testing.T, image string) core.Config {
	t.Helper()
	dir := t.TempDir()

	exe := filepath.Join(dir, "sim")
	test.DemandSuccess(t, os.WriteFile(exe, []byte("sim binary"), 0o755))
	sum := md5.Sum([]byte("sim binary"))

	raw, err := os.ReadFile("../symbols/testdata/sim.yaml")
	test.DemandSuccess(t, err)
	yml := strings.Replace(string(raw), `"0123456789abcdef0123456789ABCDEF"`, `"`+hex.EncodeToString(sum[:])+`"`, 1)
	syms := filepath.Join(dir, "sim.yaml")
	test.DemandSuccess(t, os.WriteFile(syms, []byte(yml), 0o644))

	if image != "" {
		test.DemandSuccess(t, os.WriteFile(exe, []byte(image), 0o755))
	}
	return core.Config{Host: core.HostDump, DumpDir: dir, Symbols: syms, Executable: exe}
}

func memory(t *testing.T) *process_blob.Memory {
	t.Helper()
	m := process_blob.NewMemory("core")
	test.DemandSuccess(t, m.Map(0x1d4c000, 0x1000, rw, "globals"))
	return m
}

func TestNewIdentifies(t *testing.T) {
	c, err := core.New(target(t, ""), memory(t))
	test.DemandSuccess(t, err)
	test.ExpectFailure(t, c.Disabled())
	test.ExpectSuccess(t, c.Err())

	test.ExpectEquality(t, c.ABI().Name(), "itanium")
	test.ExpectEquality(t, c.Layout().WorldAddr, process.ProcessMemoryAddress(0x1d4c7a0))
	test.ExpectEquality(t, c.TileTypes().Name(200), "StoneWallWorn1")
	test.ExpectEquality(t, c.TileTypes().Name(tiletype.StoneFloor1), "StoneFloor1")

	_, err = c.Patcher()
	test.ExpectSuccess(t, err)
	_, err = c.Suspender()
	test.ExpectSuccess(t, err)
}

func TestNewDisabledOnMismatch(t *testing.T) {
	c, err := core.New(target(t, "other build"), memory(t))
	test.DemandFailure(t, err)
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	test.ExpectSuccess(t, errors.Is(err, core.ErrIdentify))
	test.DemandSuccess(t, c != nil)
	test.ExpectSuccess(t, c.Disabled())

	_, err = c.Patcher()
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	_, err = c.Suspender()
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	_, err = c.MapCache()
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	_, err = c.ReadClassName(0x1000)
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	_, err = c.Global("world")
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	_, err = c.ReadCString(0x1d4c000, 16)
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	_, err = core.Read[uint32](c, 0x1d4c000)
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	test.ExpectSuccess(t, errors.Is(core.Write(c, 0x1d4c000, uint32(1)), core.ErrDisabled))
	_, err = core.ReadVector[uint64](c, 0x1d4c000)
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	test.ExpectSuccess(t, errors.Is(c.WriteString(0x1d4c000, "x"), core.ErrDisabled))
	test.ExpectEquality(t, c.EventKind(0x1a2b000), symbols.EventUnknown)
	test.ExpectSuccess(t, errors.Is(c.RunDriver(context.Background(), time.Millisecond, nil), core.ErrDisabled))
}

func TestNewDisabledOnBadSymbols(t *testing.T) {
	cfg := target(t, "")
	test.DemandSuccess(t, os.WriteFile(cfg.Symbols, []byte("version: 1\n"), 0o644))
	c, err := core.New(cfg, memory(t))
	test.ExpectSuccess(t, errors.Is(err, core.ErrDisabled))
	test.ExpectSuccess(t, errors.Is(err, symbols.ErrInvalid))
	test.ExpectSuccess(t, c.Disabled())
}

func TestGlobal(t *testing.T) {
	c, err := core.New(target(t, ""), process_blob.NewMemory("empty"))
	test.DemandSuccess(t, err)

	addr, err := c.Global("world")
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, addr, process.ProcessMemoryAddress(0x1d4c7a0))

	// pointer paths read the target, which maps nothing
	_, err = c.Global("map_blocks")
	test.ExpectFailure(t, err)

	_, err = c.Global("nope")
	test.ExpectSuccess(t, errors.Is(err, layout.ErrMissing))
}

// itaniumObject fabricates an object whose vtable carries type info for
// the mangled class name
func itaniumObject(t *testing.T, m *process_blob.Memory, mangled string) (obj, vtable process.ProcessMemoryAddress) {
	t.Helper()
	name := m.Alloc(uint64(len(mangled) + 1))
	test.DemandSuccess(t, m.Poke(name, append([]byte(mangled), 0)))
	typeinfo := m.Alloc(16)
	test.DemandSuccess(t, pod.WriteT(m, typeinfo+8, uint64(name)))
	vt := m.Alloc(32)
	test.DemandSuccess(t, pod.WriteT(m, vt, uint64(typeinfo)))
	obj = m.Alloc(16)
	test.DemandSuccess(t, pod.WriteT(m, obj, uint64(vt+8)))
	return obj, vt + 8
}

func TestEventKind(t *testing.T) {
	m := memory(t)
	c, err := core.New(target(t, ""), m)
	test.DemandSuccess(t, err)

	// listed vtables never walk the type info
	test.ExpectEquality(t, c.EventKind(0x1a2b000), symbols.EventMineral)
	test.ExpectEquality(t, c.EventKind(0x1a2b100), symbols.EventFrozenLiquid)
	test.ExpectEquality(t, c.ClassNames().Len(), 0)

	obj, vt := itaniumObject(t, m, "N2df37block_square_event_material_spatterstE")
	test.ExpectEquality(t, c.EventKind(vt), symbols.EventMaterialSpatter)
	test.ExpectEquality(t, c.EventKind(vt), symbols.EventMaterialSpatter)
	test.ExpectEquality(t, c.ClassNames().Len(), 1)

	name, err := c.ReadClassName(obj)
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, name, "df::block_square_event_material_spatterst")

	_, unit := itaniumObject(t, m, "N2df4unitE")
	test.ExpectEquality(t, c.EventKind(unit), symbols.EventUnknown)

	_, err = c.ReadClassName(m.Alloc(16))
	test.ExpectSuccess(t, errors.Is(err, abi.ErrNoRTTI))
}

func TestRunDriver(t *testing.T) {
	c, err := core.New(target(t, ""), memory(t))
	test.DemandSuccess(t, err)
	coord, err := c.Suspender()
	test.DemandSuccess(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error)
	go func() {
		stopped <- c.RunDriver(ctx, time.Hour, nil)
	}()

	// the hour-long ticker never fires; requests are woken by Notify
	for i := 0; i < 3; i++ {
		g := coord.NewClient("worker").Lock()
		test.ExpectSuccess(t, coord.Owner() != nil)
		g.Unlock()
	}

	cancel()
	test.ExpectSuccess(t, errors.Is(<-stopped, context.Canceled))
}

func TestMapCache(t *testing.T) {
	m := memory(t)
	c, err := core.New(target(t, ""), m)
	test.DemandSuccess(t, err)

	// an empty world has no blocks
	mc, err := c.MapCache()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, mc.Len(), 0)
	test.ExpectSuccess(t, mc.BlockAtTile(mapcache.Coord{}) == nil)
}

func TestTypedAccess(t *testing.T) {
	m := memory(t)
	c, err := core.New(target(t, ""), m)
	test.DemandSuccess(t, err)

	test.DemandSuccess(t, core.Write(c, 0x1d4c010, uint32(0xfeed)))
	v, err := core.Read[uint32](c, 0x1d4c010)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, v, uint32(0xfeed))

	test.DemandSuccess(t, m.Poke(0x1d4c100, []byte("urist\x00mcdwarf")))
	s, err := c.ReadCString(0x1d4c100, 64)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, s, "urist")

	// begin, end, cap of a vector holding the two uint32 at 0x1d4c010
	var hdr []byte
	for _, p := range []uint64{0x1d4c010, 0x1d4c018, 0x1d4c018} {
		hdr = binary.LittleEndian.AppendUint64(hdr, p)
	}
	test.DemandSuccess(t, m.Poke(0x1d4c200, hdr))
	vec, err := core.ReadVector[uint32](c, 0x1d4c200)
	test.DemandSuccess(t, err)
	test.DemandEquality(t, len(vec), 2)
	test.ExpectEquality(t, vec[0], uint32(0xfeed))
}
