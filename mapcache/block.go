package mapcache

import (
	"simhook/layout"
	"simhook/process"
	"simhook/tiletype"
)

// Block is the cached state of one 16x16 map block. Four facets are dirty
// tracked on their own: designation, tile type, occupancy and temperature.
type Block struct {
	parent *MapCache
	coord  BlockCoord
	addr   process.ProcessMemoryAddress
	valid  bool

	tiles        tileGrid
	designation  designationGrid
	occupancy    occupancyGrid
	temp1        tempGrid
	temp2        tempGrid
	regionOffset [9]uint8

	// feature indices, -1 for none
	localFeature  int32
	globalFeature int32

	dirtyDesignations bool
	dirtyTiles        bool
	dirtyOccupancy    bool
	dirtyTemperatures bool
	dirtyRaw          BitGrid

	info       *BlockInfo
	basemats   *[BlockSize][BlockSize]Material
	itemCounts *[BlockSize][BlockSize]int
}

func newBlock(c *MapCache, bc BlockCoord, addr process.ProcessMemoryAddress) *Block {
	b := &Block{parent: c, coord: bc, addr: addr, localFeature: -1, globalFeature: -1}
	if addr == 0 {
		return b
	}
	if err := b.read(); err != nil {
		c.log.Warn("block ", bc.X, ",", bc.Y, ",", bc.Z, " unreadable: ", err)
		*b = Block{parent: c, coord: bc, localFeature: -1, globalFeature: -1}
		return b
	}
	b.valid = true
	return b
}

func (b *Block) read() error {
	mem, lb := b.parent.mem, b.parent.lay.Block
	var err error
	if b.tiles, err = layout.Read[tileGrid](mem, b.addr, lb.TileType); err != nil {
		return err
	}
	if b.designation, err = layout.Read[designationGrid](mem, b.addr, lb.Designation); err != nil {
		return err
	}
	if b.occupancy, err = layout.Read[occupancyGrid](mem, b.addr, lb.Occupancy); err != nil {
		return err
	}
	if b.temp1, err = layout.Read[tempGrid](mem, b.addr, lb.Temp1); err != nil {
		return err
	}
	if b.temp2, err = layout.Read[tempGrid](mem, b.addr, lb.Temp2); err != nil {
		return err
	}
	if b.regionOffset, err = layout.Read[[9]uint8](mem, b.addr, lb.RegionOffset); err != nil {
		return err
	}

	if b.localFeature, err = layout.Read[int32](mem, b.addr, lb.LocalFeature); err != nil {
		b.localFeature = -1
	}
	if b.globalFeature, err = layout.Read[int32](mem, b.addr, lb.GlobalFeature); err != nil {
		b.globalFeature = -1
	}

	pos, err := layout.Read[Coord](mem, b.addr, lb.MapPos)
	if err == nil && pos != b.coord.Tile(0, 0) {
		b.parent.log.Warn("block ", b.coord.X, ",", b.coord.Y, ",", b.coord.Z, " reports position ", pos.String())
	}
	return nil
}

func (b *Block) Coord() BlockCoord {
	return b.coord
}

// Valid is false for stubs with no live block behind them
func (b *Block) Valid() bool {
	return b.valid
}

func (b *Block) Address() process.ProcessMemoryAddress {
	return b.addr
}

func (b *Block) IsDirtyDesignations() bool { return b.dirtyDesignations }
func (b *Block) IsDirtyTiles() bool        { return b.dirtyTiles }
func (b *Block) IsDirtyOccupancy() bool    { return b.dirtyOccupancy }
func (b *Block) IsDirtyTemperatures() bool { return b.dirtyTemperatures }

func (b *Block) IsDirty() bool {
	return b.dirtyDesignations || b.dirtyTiles || b.dirtyOccupancy || b.dirtyTemperatures
}

// Info returns the block's overlay context, building it on first use
func (b *Block) Info() *BlockInfo {
	b.initInfo()
	return b.info
}

func (b *Block) initInfo() {
	if b.info != nil {
		return
	}
	c := b.parent
	bi := NewBlockInfo(c.tt, &c.biomes)
	bi.RegionOffset = b.regionOffset
	bi.Designation = b.designation
	if b.valid {
		c.scanEvents(b.addr, bi)
		bi.LocalFeature = c.FeatureMaterial(false, b.localFeature)
		bi.GlobalFeature = c.FeatureMaterial(true, b.globalFeature)
	}

	// constructions are detected on the tile under any ice
	for x := 0; x < BlockSize; x++ {
		for y := 0; y < BlockSize; y++ {
			st := bi.StaticTile(b.tiles[x][y], x, y)
			if c.tt.Material(st) != tiletype.MaterialConstruction {
				continue
			}
			con, ok := c.ConstructionAt(b.coord.Tile(x, y))
			if !ok {
				continue
			}
			bi.Constructed.Set(x, y, true)
			bi.ConMaterial[x][y] = con.Material
			bi.ConOriginal[x][y] = con.OriginalTile
		}
	}
	b.info = bi
}

func (b *Block) initBasemats() {
	if b.basemats != nil {
		return
	}
	b.initInfo()
	var mats [BlockSize][BlockSize]Material
	for x := 0; x < BlockSize; x++ {
		for y := 0; y < BlockSize; y++ {
			mats[x][y] = b.info.GetBaseMaterial(b.info.BaseTile(b.tiles[x][y], x, y), x, y)
		}
	}
	b.basemats = &mats
}

func (b *Block) TileTypeAt(pos Coord) tiletype.TileType {
	x, y := pos.Local()
	return b.tiles[x][y]
}

// StaticTiletypeAt is the tile type with any ice removed
func (b *Block) StaticTiletypeAt(pos Coord) tiletype.TileType {
	b.initInfo()
	x, y := pos.Local()
	return b.info.StaticTile(b.tiles[x][y], x, y)
}

// BaseTileTypeAt is the tile type with ice and constructions removed
func (b *Block) BaseTileTypeAt(pos Coord) tiletype.TileType {
	b.initInfo()
	x, y := pos.Local()
	return b.info.BaseTile(b.tiles[x][y], x, y)
}

// FrozenTileTypeAt is the tile under the ice, or tiletype.None
func (b *Block) FrozenTileTypeAt(pos Coord) tiletype.TileType {
	b.initInfo()
	x, y := pos.Local()
	if !b.info.Frozen.Get(x, y) {
		return tiletype.None
	}
	return b.info.FrozenTiles[x][y]
}

// ConstructionAt reports the construction over pos, if any
func (b *Block) ConstructionAt(pos Coord) (Construction, bool) {
	b.initInfo()
	x, y := pos.Local()
	if !b.info.Constructed.Get(x, y) {
		return Construction{}, false
	}
	return Construction{
		Pos:          b.coord.Tile(x, y),
		Material:     b.info.ConMaterial[x][y],
		OriginalTile: b.info.ConOriginal[x][y],
	}, true
}

// SetTileTypeAt changes the tile in the cache. Base materials are resolved
// first so they keep describing the tile as it was read.
func (b *Block) SetTileTypeAt(pos Coord, tt tiletype.TileType) bool {
	if !b.valid {
		return false
	}
	b.initBasemats()
	x, y := pos.Local()
	b.tiles[x][y] = tt
	b.dirtyRaw.Set(x, y, true)
	b.dirtyTiles = true
	return true
}

// BaseMaterialAt is the natural material of the tile as first read
func (b *Block) BaseMaterialAt(pos Coord) Material {
	b.initBasemats()
	x, y := pos.Local()
	return b.basemats[x][y]
}

// MaterialAt is the material of the tile as it currently looks:
// constructions report their own material.
func (b *Block) MaterialAt(pos Coord) Material {
	b.initInfo()
	x, y := pos.Local()
	return b.info.GetBaseMaterial(b.info.StaticTile(b.tiles[x][y], x, y), x, y)
}

func (b *Block) VeinMaterialAt(pos Coord) int32 {
	b.initInfo()
	x, y := pos.Local()
	return b.info.Veins[x][y]
}

func (b *Block) LayerMaterialAt(pos Coord) int32 {
	b.initInfo()
	x, y := pos.Local()
	return b.info.LayerMaterial(x, y)
}

// SpatterAt returns the heaviest material spatter on pos
func (b *Block) SpatterAt(pos Coord) (Material, uint8) {
	b.initInfo()
	x, y := pos.Local()
	best, amount := NoMaterial, uint8(0)
	for _, s := range b.info.Spatters {
		if s.Amount[x][y] > amount {
			best, amount = s.Material, s.Amount[x][y]
		}
	}
	return best, amount
}

func (b *Block) DesignationAt(pos Coord) Designation {
	x, y := pos.Local()
	return b.designation[x][y]
}

func (b *Block) SetDesignationAt(pos Coord, d Designation) bool {
	if !b.valid {
		return false
	}
	x, y := pos.Local()
	b.designation[x][y] = d
	b.dirtyDesignations = true
	return true
}

func (b *Block) OccupancyAt(pos Coord) Occupancy {
	x, y := pos.Local()
	return b.occupancy[x][y]
}

func (b *Block) SetOccupancyAt(pos Coord, o Occupancy) bool {
	if !b.valid {
		return false
	}
	x, y := pos.Local()
	b.occupancy[x][y] = o
	b.dirtyOccupancy = true
	return true
}

func (b *Block) Temp1At(pos Coord) uint16 {
	x, y := pos.Local()
	return b.temp1[x][y]
}

func (b *Block) Temp2At(pos Coord) uint16 {
	x, y := pos.Local()
	return b.temp2[x][y]
}

func (b *Block) SetTempAt(pos Coord, temp1, temp2 uint16) bool {
	if !b.valid {
		return false
	}
	x, y := pos.Local()
	b.temp1[x][y] = temp1
	b.temp2[x][y] = temp2
	b.dirtyTemperatures = true
	return true
}

// Write flushes the dirty facets to the live block in a fixed order:
// designation, occupancy, both temperature grids, then each changed tile.
// A facet stays dirty if its write fails. Stubs return false.
func (b *Block) Write() bool {
	if !b.valid {
		return false
	}
	c, lb := b.parent, b.parent.lay.Block
	ok := true
	fail := func(what string, err error) {
		c.log.Warn("block ", b.coord.X, ",", b.coord.Y, ",", b.coord.Z, " ", what, ": ", err)
		ok = false
	}

	if b.dirtyDesignations {
		if err := layout.Write(c.mem, b.addr, lb.Designation, b.designation); err != nil {
			fail("designation", err)
		} else {
			b.dirtyDesignations = false
		}
	}
	if b.dirtyOccupancy {
		if err := layout.Write(c.mem, b.addr, lb.Occupancy, b.occupancy); err != nil {
			fail("occupancy", err)
		} else {
			b.dirtyOccupancy = false
		}
	}
	if b.dirtyTemperatures {
		err := layout.Write(c.mem, b.addr, lb.Temp1, b.temp1)
		if err == nil {
			err = layout.Write(c.mem, b.addr, lb.Temp2, b.temp2)
		}
		if err != nil {
			fail("temperature", err)
		} else {
			b.dirtyTemperatures = false
		}
	}
	if b.dirtyTiles {
		for x := 0; x < BlockSize; x++ {
			for y := 0; y < BlockSize; y++ {
				if !b.dirtyRaw.Get(x, y) {
					continue
				}
				if err := layout.WriteElem(c.mem, b.addr, lb.TileType, index(x, y), b.tiles[x][y]); err != nil {
					fail("tiletype", err)
					continue
				}
				b.dirtyRaw.Set(x, y, false)
			}
		}
		b.dirtyTiles = b.dirtyRaw.Any()
	}
	return ok
}
