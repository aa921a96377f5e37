// Package mapcache is a write-back cache over the target's map blocks.
// Blocks are read on first access, edited in the cache and flushed with
// Write. A MapCache is not safe for concurrent use: build, use and drop it
// inside one held suspend token.
package mapcache

import (
	"fmt"
	"sort"

	"simhook/abi"
	"simhook/layout"
	"simhook/pod"
	"simhook/process"
	"simhook/symbols"
	"simhook/tiletype"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Source is what the cache needs from a process connection
type Source interface {
	Memory() abi.ReadWriter
	Layout() *layout.Layout
	TileTypes() *tiletype.Table
	EventKind(vtable process.ProcessMemoryAddress) symbols.EventKind
}

// Construction is one entry of the target's construction list
type Construction struct {
	Pos          Coord
	Material     Material
	OriginalTile tiletype.TileType
}

type MapCache struct {
	src  Source
	mem  abi.ReadWriter
	lay  *layout.Layout
	tt   *tiletype.Table
	log  *logger.Logger
	size BlockCoord

	blockIndex process.ProcessMemoryAddress
	biomes     [9]BiomeInfo
	blocks     map[BlockCoord]*Block

	constructions map[Coord]Construction

	// feature materials by index, read with the first feature lookup
	features       bool
	localFeatures  []Material
	globalFeatures []Material
}

// New reads the map dimensions and the 9 biomes around the map region
func New(src Source) (*MapCache, error) {
	c := &MapCache{
		src:    src,
		mem:    src.Memory(),
		lay:    src.Layout(),
		tt:     src.TileTypes(),
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorLimeGreen, coloransi.ColorIndigo, "mapcache")),
		blocks: make(map[BlockCoord]*Block),
	}

	w, world := c.lay.World, c.lay.WorldAddr
	index, err := layout.Read[uint64](c.mem, world, w.BlockIndex)
	if err != nil {
		return nil, fmt.Errorf("map block index: %w", err)
	}
	c.blockIndex = process.ProcessMemoryAddress(index)

	var dims [3]int32
	for i, f := range []layout.Field{w.XCount, w.YCount, w.ZCount} {
		if dims[i], err = layout.Read[int32](c.mem, world, f); err != nil {
			return nil, fmt.Errorf("map size: %w", err)
		}
		if dims[i] < 0 || dims[i] > 0x7fff {
			return nil, fmt.Errorf("map size: implausible %s %d", f.Name, dims[i])
		}
	}
	if c.blockIndex == 0 {
		dims = [3]int32{}
	}
	c.size = BlockCoord{X: int16(dims[0]), Y: int16(dims[1]), Z: int16(dims[2])}

	c.loadBiomes()
	c.log.Debugln("map", c.size.X, "x", c.size.Y, "x", c.size.Z, "blocks")
	return c, nil
}

// Size is the map size in blocks
func (c *MapCache) Size() BlockCoord {
	return c.size
}

func (c *MapCache) Len() int {
	return len(c.blocks)
}

func (c *MapCache) inBounds(bc BlockCoord) bool {
	return bc.X >= 0 && bc.Y >= 0 && bc.Z >= 0 &&
		bc.X < c.size.X && bc.Y < c.size.Y && bc.Z < c.size.Z
}

// BlockAt returns the cached block at bc, reading it on first access. It
// returns nil outside the map. A coordinate without a live block gets a
// stub that is never written.
func (c *MapCache) BlockAt(bc BlockCoord) *Block {
	if !c.inBounds(bc) {
		return nil
	}
	if b, ok := c.blocks[bc]; ok {
		return b
	}
	b := newBlock(c, bc, c.blockAddress(bc))
	c.blocks[bc] = b
	return b
}

// BlockAtTile returns the block holding tile pos
func (c *MapCache) BlockAtTile(pos Coord) *Block {
	if pos.X < 0 || pos.Y < 0 || pos.Z < 0 {
		return nil
	}
	return c.BlockAt(pos.Block())
}

// DiscardBlock drops b from the cache without writing it
func (c *MapCache) DiscardBlock(b *Block) {
	if b == nil {
		return
	}
	if cur, ok := c.blocks[b.coord]; ok && cur == b {
		delete(c.blocks, b.coord)
	}
}

// WriteAll flushes every cached block in coordinate order. Stub blocks are
// skipped. It returns false if any live block failed to write.
func (c *MapCache) WriteAll() bool {
	coords := make([]BlockCoord, 0, len(c.blocks))
	for bc := range c.blocks {
		coords = append(coords, bc)
	}
	sort.Slice(coords, func(i, j int) bool {
		a, b := coords[i], coords[j]
		if a.Z != b.Z {
			return a.Z < b.Z
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	ok := true
	for _, bc := range coords {
		b := c.blocks[bc]
		if b.valid && !b.Write() {
			ok = false
		}
	}
	return ok
}

// blockAddress walks block_index[x][y][z]; zero if there is no live block
func (c *MapCache) blockAddress(bc BlockCoord) process.ProcessMemoryAddress {
	addr := c.blockIndex
	for _, i := range []int16{bc.X, bc.Y, bc.Z} {
		if addr == 0 {
			return 0
		}
		next, err := pod.ReadT[uint64](c.mem, addr+process.ProcessMemoryAddress(i)*8)
		if err != nil {
			return 0
		}
		addr = process.ProcessMemoryAddress(next)
	}
	return addr
}

// ConstructionAt looks up the construction list, read once per cache
func (c *MapCache) ConstructionAt(pos Coord) (Construction, bool) {
	if c.constructions == nil {
		c.loadConstructions()
	}
	con, ok := c.constructions[pos]
	return con, ok
}

func (c *MapCache) loadConstructions() {
	c.constructions = make(map[Coord]Construction)

	ptrs, err := pod.ReadValidPointerVector(c.mem, c.lay.World.Constructions.At(c.lay.WorldAddr))
	if err != nil {
		c.log.Warn("construction list unreadable: ", err)
		return
	}
	lc := c.lay.Construction
	for _, p := range ptrs {
		pos, err := layout.Read[Coord](c.mem, p, lc.Pos)
		if err != nil {
			continue
		}
		mt, err1 := layout.Read[int16](c.mem, p, lc.MatType)
		mi, err2 := layout.Read[int32](c.mem, p, lc.MatIndex)
		orig, err3 := layout.Read[tiletype.TileType](c.mem, p, lc.OriginalTile)
		if err1 != nil || err2 != nil || err3 != nil {
			continue
		}
		c.constructions[pos] = Construction{
			Pos:          pos,
			Material:     Material{Type: mt, Index: mi},
			OriginalTile: orig,
		}
	}
}

// FeatureMaterial is the material of local or global feature index, or
// NoMaterial when there is no such feature
func (c *MapCache) FeatureMaterial(global bool, index int32) Material {
	if !c.features {
		c.loadFeatures()
	}
	list := c.localFeatures
	if global {
		list = c.globalFeatures
	}
	if index < 0 || int(index) >= len(list) {
		return NoMaterial
	}
	return list[index]
}

func (c *MapCache) loadFeatures() {
	c.features = true
	w, lf := c.lay.World, c.lay.Feature
	read := func(f layout.Field) []Material {
		ptrs, err := pod.ReadPointerVector(c.mem, f.At(c.lay.WorldAddr))
		if err != nil {
			c.log.Warn("feature list unreadable: ", err)
			return nil
		}
		mats := make([]Material, len(ptrs))
		for i, p := range ptrs {
			mats[i] = NoMaterial
			if p == 0 {
				continue
			}
			mt, err1 := layout.Read[int16](c.mem, p, lf.MatType)
			mi, err2 := layout.Read[int32](c.mem, p, lf.MatIndex)
			if err1 == nil && err2 == nil {
				mats[i] = Material{Type: mt, Index: mi}
			}
		}
		return mats
	}
	c.localFeatures = read(w.LocalFeatures)
	c.globalFeatures = read(w.GlobalFeatures)
}
