package mapcache_test

import (
	"testing"

	"simhook/abi"
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

const (
	vtMineral process.ProcessMemoryAddress = 0x7000 + iota*0x100
	vtFrozen
	vtGrass
	vtSpatter
	vtOther
)

// world is a fabricated map in a process_blob.Memory, laid out by the
// test symbol table. The map is 2x2 region tiles with the map at (0,0).
type world struct {
	t     *testing.T
	mem   *process_blob.Memory
	lay   *layout.Layout
	tt    *tiletype.Table
	kinds map[process.ProcessMemoryAddress]symbols.EventKind

	zArrays map[[2]int16]process.ProcessMemoryAddress
	events  map[process.ProcessMemoryAddress][]process.ProcessMemoryAddress

	// when set, the cache writes through rec
	rec *recorder
}

// recorder logs the address of every write
type recorder struct {
	abi.ReadWriter
	writes []process.ProcessMemoryAddress
}

func (r *recorder) WriteMemory(addr process.ProcessMemoryAddress, data []byte) error {
	r.writes = append(r.writes, addr)
	return r.ReadWriter.WriteMemory(addr, data)
}

func (w *world) Layout() *layout.Layout     { return w.lay }
func (w *world) TileTypes() *tiletype.Table { return w.tt }

func (w *world) Memory() abi.ReadWriter {
	if w.rec != nil {
		return w.rec
	}
	return w.mem
}

func (w *world) EventKind(vtable process.ProcessMemoryAddress) symbols.EventKind {
	return w.kinds[vtable]
}

func newWorld(t *testing.T, xb, yb, zb int16) *world {
	t.Helper()
	tab, err := symbols.Load("../symbols/testdata/sim.yaml")
	test.DemandSuccess(t, err)

	w := &world{
		t:   t,
		mem: process_blob.NewMemory("world"),
		tt:  tiletype.Default(),
		kinds: map[process.ProcessMemoryAddress]symbols.EventKind{
			vtMineral: symbols.EventMineral,
			vtFrozen:  symbols.EventFrozenLiquid,
			vtGrass:   symbols.EventGrass,
			vtSpatter: symbols.EventMaterialSpatter,
		},
		zArrays: make(map[[2]int16]process.ProcessMemoryAddress),
		events:  make(map[process.ProcessMemoryAddress][]process.ProcessMemoryAddress),
	}
	test.DemandSuccess(t, w.mem.Map(0x1d4c000, 0x1000, memory_map.Permissions{Read: true, Write: true}, "globals"))
	w.lay, err = layout.Resolve(tab, w.mem)
	test.DemandSuccess(t, err)

	lw, base := w.lay.World, w.lay.WorldAddr
	xs := w.mem.Alloc(uint64(xb) * 8)
	for x := int16(0); x < xb; x++ {
		ys := w.mem.Alloc(uint64(yb) * 8)
		w.poke64(xs+process.ProcessMemoryAddress(x)*8, uint64(ys))
		for y := int16(0); y < yb; y++ {
			zs := w.mem.Alloc(uint64(zb) * 8)
			w.poke64(ys+process.ProcessMemoryAddress(y)*8, uint64(zs))
			w.zArrays[[2]int16{x, y}] = zs
		}
	}
	w.field(base, lw.BlockIndex, uint64(xs))
	w.field(base, lw.XCount, int32(xb))
	w.field(base, lw.YCount, int32(yb))
	w.field(base, lw.ZCount, int32(zb))
	w.field(base, lw.RegionX, int32(0))
	w.field(base, lw.RegionY, int32(0))
	w.field(base, lw.WorldWidth, int32(2))
	w.field(base, lw.WorldHeight, int32(2))

	// region (1,1) points past the biome list
	re := w.lay.RegionMapEntry
	regionMap := w.mem.Alloc(4 * re.Size)
	for i := 0; i < 4; i++ {
		entry := regionMap + process.ProcessMemoryAddress(uint64(i)*re.Size)
		geo := int16(0)
		if i == 3 {
			geo = 5
		}
		w.field(entry, re.GeoIndex, geo)
		w.field(entry, re.LavaStone, int32(100+i))
	}
	w.field(base, lw.RegionMap, uint64(regionMap))

	// layer 0 is soil, layers 1 and 2 stone
	var layers []process.ProcessMemoryAddress
	for i, mat := range []int32{10, 11, 12} {
		l := w.mem.Alloc(w.lay.GeoLayer.Size)
		w.field(l, w.lay.GeoLayer.MatIndex, mat)
		if i > 0 {
			w.field(l, w.lay.GeoLayer.Type, int16(1))
		}
		layers = append(layers, l)
	}
	biome := w.mem.Alloc(w.lay.GeoBiome.Size)
	w.vector(w.lay.GeoBiome.Layers.At(biome), layers)
	w.vector(lw.GeoBiomes.At(base), []process.ProcessMemoryAddress{biome})
	w.vector(lw.Constructions.At(base), nil)
	return w
}

func (w *world) poke64(addr process.ProcessMemoryAddress, v uint64) {
	w.t.Helper()
	test.DemandSuccess(w.t, pod.WriteT(w.mem, addr, v))
}

func writeField[T any](w *world, base process.ProcessMemoryAddress, f layout.Field, v T) {
	w.t.Helper()
	test.DemandSuccess(w.t, layout.Write(w.mem, base, f, v))
}

func (w *world) field(base process.ProcessMemoryAddress, f layout.Field, v any) {
	w.t.Helper()
	switch v := v.(type) {
	case uint64:
		writeField(w, base, f, v)
	case int32:
		writeField(w, base, f, v)
	case int16:
		writeField(w, base, f, v)
	case uint32:
		writeField(w, base, f, v)
	case mapcache.Coord:
		writeField(w, base, f, v)
	case tiletype.TileType:
		writeField(w, base, f, v)
	default:
		w.t.Fatalf("unsupported field value %T", v)
	}
}

// vector writes a std::vector of pointers at addr
func (w *world) vector(addr process.ProcessMemoryAddress, ptrs []process.ProcessMemoryAddress) {
	w.t.Helper()
	var begin process.ProcessMemoryAddress
	if len(ptrs) > 0 {
		begin = w.mem.Alloc(uint64(len(ptrs)) * 8)
		for i, p := range ptrs {
			w.poke64(begin+process.ProcessMemoryAddress(i)*8, uint64(p))
		}
	}
	end := begin + process.ProcessMemoryAddress(len(ptrs))*8
	test.DemandSuccess(w.t, pod.WriteT(w.mem, addr, abi.Vector{Begin: begin, End: end, Cap: end}))
}

type blockData struct {
	tiles       [16][16]tiletype.TileType
	designation [16][16]mapcache.Designation
	occupancy   [16][16]mapcache.Occupancy
	temp1       [16][16]uint16
	temp2       [16][16]uint16
}

// addBlock allocates a live block at bc. Every tile is a stone floor on
// geological layer 1 of the map's own region.
func (w *world) addBlock(bc mapcache.BlockCoord) (process.ProcessMemoryAddress, *blockData) {
	w.t.Helper()
	lb := w.lay.Block
	addr := w.mem.Alloc(lb.Size)

	d := &blockData{}
	for x := 0; x < 16; x++ {
		for y := 0; y < 16; y++ {
			d.tiles[x][y] = tiletype.StoneFloor1
			d.designation[x][y] = mapcache.Designation(x*16 + y).WithGeolayer(1).WithBiome(0)
			d.occupancy[x][y] = mapcache.Occupancy(y)
			d.temp1[x][y] = uint16(10000 + x)
			d.temp2[x][y] = uint16(10000 + y)
		}
	}
	w.writeBlock(addr, d)

	test.DemandSuccess(w.t, layout.Write(w.mem, addr, lb.RegionOffset, [9]uint8{4, 0, 8, 4, 4, 4, 4, 4, 4}))
	w.field(addr, lb.MapPos, bc.Tile(0, 0))
	w.vector(lb.Events.At(addr), nil)
	w.vector(lb.Items.At(addr), nil)

	zs := w.zArrays[[2]int16{bc.X, bc.Y}]
	w.poke64(zs+process.ProcessMemoryAddress(bc.Z)*8, uint64(addr))
	return addr, d
}

func (w *world) writeBlock(addr process.ProcessMemoryAddress, d *blockData) {
	w.t.Helper()
	lb := w.lay.Block
	test.DemandSuccess(w.t, layout.Write(w.mem, addr, lb.TileType, d.tiles))
	test.DemandSuccess(w.t, layout.Write(w.mem, addr, lb.Designation, d.designation))
	test.DemandSuccess(w.t, layout.Write(w.mem, addr, lb.Occupancy, d.occupancy))
	test.DemandSuccess(w.t, layout.Write(w.mem, addr, lb.Temp1, d.temp1))
	test.DemandSuccess(w.t, layout.Write(w.mem, addr, lb.Temp2, d.temp2))
}

// addEvent appends an event object with the given vtable to the block
func (w *world) addEvent(block process.ProcessMemoryAddress, vtable process.ProcessMemoryAddress, size uint64) process.ProcessMemoryAddress {
	w.t.Helper()
	ev := w.mem.Alloc(size)
	w.poke64(ev, uint64(vtable))
	w.events[block] = append(w.events[block], ev)
	w.vector(w.lay.Block.Events.At(block), w.events[block])
	return ev
}

func (w *world) addConstructions(cons ...mapcache.Construction) {
	w.t.Helper()
	lc := w.lay.Construction
	var ptrs []process.ProcessMemoryAddress
	for _, con := range cons {
		p := w.mem.Alloc(lc.Size)
		w.field(p, lc.Pos, con.Pos)
		w.field(p, lc.MatType, con.Material.Type)
		w.field(p, lc.MatIndex, con.Material.Index)
		w.field(p, lc.OriginalTile, con.OriginalTile)
		ptrs = append(ptrs, p)
	}
	w.vector(w.lay.World.Constructions.At(w.lay.WorldAddr), ptrs)
}

// addFeatures fills the world's local or global feature list
func (w *world) addFeatures(global bool, mats ...mapcache.Material) {
	w.t.Helper()
	lf := w.lay.Feature
	var ptrs []process.ProcessMemoryAddress
	for _, m := range mats {
		p := w.mem.Alloc(lf.Size)
		w.field(p, lf.MatType, m.Type)
		w.field(p, lf.MatIndex, m.Index)
		ptrs = append(ptrs, p)
	}
	list := w.lay.World.LocalFeatures
	if global {
		list = w.lay.World.GlobalFeatures
	}
	w.vector(list.At(w.lay.WorldAddr), ptrs)
}

type item struct {
	pos    mapcache.Coord
	ground bool
}

func (w *world) addItems(block process.ProcessMemoryAddress, items ...item) {
	w.t.Helper()
	li := w.lay.Item
	var ptrs []process.ProcessMemoryAddress
	for _, it := range items {
		p := w.mem.Alloc(li.Size)
		w.field(p, li.Pos, it.pos)
		var flags uint32
		if it.ground {
			flags = mapcache.ItemOnGround
		}
		w.field(p, li.Flags, flags)
		ptrs = append(ptrs, p)
	}
	w.vector(w.lay.Block.Items.At(block), ptrs)
}

func (w *world) cache() *mapcache.MapCache {
	w.t.Helper()
	c, err := mapcache.New(w)
	test.DemandSuccess(w.t, err)
	return c
}

func at(x, y, z int16) mapcache.Coord {
	return mapcache.Coord{X: x, Y: y, Z: z}
}
