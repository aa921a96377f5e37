package mapcache

import (
	"fmt"

	"simhook/tiletype"
)

// BlockSize is the edge length of a map block in tiles
const BlockSize = 16

// Coord is a map position in tiles
type Coord struct {
	X, Y, Z int16
}

// BlockCoord is a map position in blocks
type BlockCoord struct {
	X, Y, Z int16
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d,%d)", c.X, c.Y, c.Z)
}

// Block is the coordinate of the block holding c
func (c Coord) Block() BlockCoord {
	return BlockCoord{X: c.X >> 4, Y: c.Y >> 4, Z: c.Z}
}

// Local is c's position inside its block
func (c Coord) Local() (x, y int) {
	return int(c.X & 15), int(c.Y & 15)
}

// Tile is the coordinate of tile (x, y) of the block
func (b BlockCoord) Tile(x, y int) Coord {
	return Coord{X: b.X*BlockSize + int16(x), Y: b.Y*BlockSize + int16(y), Z: b.Z}
}

// Material is a (type, index) pair; -1 marks an unresolved part
type Material struct {
	Type  int16
	Index int32
}

var NoMaterial = Material{Type: -1, Index: -1}

// Builtin material types
const (
	MatInorganic int16 = 0
	MatWater     int16 = 6
	MatAsh       int16 = 9
	MatPlant     int16 = 419
)

func (m Material) IsValid() bool {
	return m.Type >= 0
}

func inorganic(index int32) Material {
	if index < 0 {
		return NoMaterial
	}
	return Material{Type: MatInorganic, Index: index}
}

// Designation is the per-tile designation word
type Designation uint32

const (
	designationGeolayerShift = 10
	designationGeolayerMask  = 0xf
	designationBiomeShift    = 17
	designationBiomeMask     = 0xf
)

// Feature bits select which of the block's features a feature tile is made of
const (
	DesignationFeatureLocal  Designation = 1 << 28
	DesignationFeatureGlobal Designation = 1 << 29
)

// GeolayerIndex selects the layer of the tile's geological biome
func (d Designation) GeolayerIndex() int {
	return int(d>>designationGeolayerShift) & designationGeolayerMask
}

// Biome indexes the block's region offsets
func (d Designation) Biome() int {
	return int(d>>designationBiomeShift) & designationBiomeMask
}

func (d Designation) FeatureLocal() bool  { return d&DesignationFeatureLocal != 0 }
func (d Designation) FeatureGlobal() bool { return d&DesignationFeatureGlobal != 0 }

func (d Designation) WithGeolayer(i int) Designation {
	d &^= designationGeolayerMask << designationGeolayerShift
	return d | Designation(i&designationGeolayerMask)<<designationGeolayerShift
}

func (d Designation) WithBiome(i int) Designation {
	d &^= designationBiomeMask << designationBiomeShift
	return d | Designation(i&designationBiomeMask)<<designationBiomeShift
}

// Occupancy is the per-tile occupancy word
type Occupancy uint32

// OccupancyItem is set while at least one item lies on the tile
const OccupancyItem Occupancy = 1 << 5

// ItemOnGround is the item flag counted by the item side table
const ItemOnGround uint32 = 1 << 0

// BitGrid holds one bit per tile, row y bit x
type BitGrid [BlockSize]uint16

func (g *BitGrid) Get(x, y int) bool {
	return g[y]&(1<<x) != 0
}

func (g *BitGrid) Set(x, y int, v bool) {
	if v {
		g[y] |= 1 << x
	} else {
		g[y] &^= 1 << x
	}
}

func (g *BitGrid) Any() bool {
	for _, row := range g {
		if row != 0 {
			return true
		}
	}
	return false
}

func (g *BitGrid) Clear() {
	*g = BitGrid{}
}

type (
	tileGrid        [BlockSize][BlockSize]tiletype.TileType
	designationGrid [BlockSize][BlockSize]Designation
	occupancyGrid   [BlockSize][BlockSize]Occupancy
	tempGrid        [BlockSize][BlockSize]uint16
	byteGrid        [BlockSize][BlockSize]uint8
)

func index(x, y int) int {
	return x*BlockSize + y
}
