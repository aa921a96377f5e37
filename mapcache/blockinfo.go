package mapcache

import (
	"simhook/tiletype"
)

// Spatter is one material spatter event of a block
type Spatter struct {
	Material Material
	Amount   [BlockSize][BlockSize]uint8
}

// BlockInfo is the per-block context base material resolution needs:
// the event overlays, the construction overlay and the biome table.
// GetBaseMaterial only reads it.
type BlockInfo struct {
	TileTypes    *tiletype.Table
	Biomes       *[9]BiomeInfo
	RegionOffset [9]uint8
	Designation  [BlockSize][BlockSize]Designation

	// inorganic vein material per tile, -1 for none
	Veins [BlockSize][BlockSize]int32
	// grass plant per tile, -1 for none
	Grass [BlockSize][BlockSize]int32

	Frozen      BitGrid
	FrozenTiles [BlockSize][BlockSize]tiletype.TileType

	Constructed BitGrid
	ConMaterial [BlockSize][BlockSize]Material
	ConOriginal [BlockSize][BlockSize]tiletype.TileType

	Spatters []Spatter

	// materials of the block's local and global feature
	LocalFeature  Material
	GlobalFeature Material
}

// NewBlockInfo returns an info with empty overlays
func NewBlockInfo(tt *tiletype.Table, biomes *[9]BiomeInfo) *BlockInfo {
	bi := &BlockInfo{TileTypes: tt, Biomes: biomes, LocalFeature: NoMaterial, GlobalFeature: NoMaterial}
	for x := 0; x < BlockSize; x++ {
		for y := 0; y < BlockSize; y++ {
			bi.Veins[x][y] = -1
			bi.Grass[x][y] = -1
		}
	}
	return bi
}

// StaticTile removes the frozen liquid layer from raw
func (bi *BlockInfo) StaticTile(raw tiletype.TileType, x, y int) tiletype.TileType {
	if bi.Frozen.Get(x, y) && bi.TileTypes.Material(raw) == tiletype.MaterialFrozenLiquid {
		return bi.FrozenTiles[x][y]
	}
	return raw
}

// BaseTile removes the frozen liquid layer, then the construction layer
func (bi *BlockInfo) BaseTile(raw tiletype.TileType, x, y int) tiletype.TileType {
	tt := bi.StaticTile(raw, x, y)
	if bi.Constructed.Get(x, y) && bi.TileTypes.Material(tt) == tiletype.MaterialConstruction {
		return bi.ConOriginal[x][y]
	}
	return tt
}

func (bi *BlockInfo) biome(x, y int) *BiomeInfo {
	if bi.Biomes == nil {
		return nil
	}
	idx := bi.Designation[x][y].Biome()
	if idx >= len(bi.RegionOffset) {
		return nil
	}
	slot := int(bi.RegionOffset[idx])
	if slot >= len(bi.Biomes) {
		return nil
	}
	return &bi.Biomes[slot]
}

// LayerMaterial is the inorganic material of the tile's geological layer
func (bi *BlockInfo) LayerMaterial(x, y int) int32 {
	b := bi.biome(x, y)
	if b == nil {
		return -1
	}
	return b.Layer(bi.Designation[x][y].GeolayerIndex())
}

func (bi *BlockInfo) soil(x, y int) int32 {
	b := bi.biome(x, y)
	if b == nil {
		return -1
	}
	return b.SoilAt(bi.Designation[x][y].GeolayerIndex())
}

func (bi *BlockInfo) stone(x, y int) int32 {
	b := bi.biome(x, y)
	if b == nil {
		return -1
	}
	return b.StoneAt(bi.Designation[x][y].GeolayerIndex())
}

func (bi *BlockInfo) feature(x, y int) Material {
	switch d := bi.Designation[x][y]; {
	case d.FeatureLocal():
		return bi.LocalFeature
	case d.FeatureGlobal():
		return bi.GlobalFeature
	}
	return NoMaterial
}

func (bi *BlockInfo) lavaStone(x, y int) int32 {
	b := bi.biome(x, y)
	if b == nil || !b.Valid {
		return -1
	}
	return b.LavaStone
}

// GetBaseMaterial resolves the natural material of a tile of type tt at
// (x, y) in the block. Unresolvable parts are -1.
func (bi *BlockInfo) GetBaseMaterial(tt tiletype.TileType, x, y int) Material {
	switch m := bi.TileTypes.Material(tt); m {
	case tiletype.MaterialConstruction:
		if bi.Constructed.Get(x, y) {
			return bi.ConMaterial[x][y]
		}
		return NoMaterial

	case tiletype.MaterialSoil:
		return inorganic(bi.soil(x, y))

	case tiletype.MaterialStone:
		return inorganic(bi.stone(x, y))

	case tiletype.MaterialPool, tiletype.MaterialBrook, tiletype.MaterialRiver:
		return inorganic(bi.LayerMaterial(x, y))

	case tiletype.MaterialMineral:
		if v := bi.Veins[x][y]; v >= 0 {
			return inorganic(v)
		}
		return inorganic(bi.stone(x, y))

	case tiletype.MaterialFeature:
		return bi.feature(x, y)

	case tiletype.MaterialLavaStone, tiletype.MaterialMagma:
		return inorganic(bi.lavaStone(x, y))

	case tiletype.MaterialFrozenLiquid:
		return Material{Type: MatWater, Index: -1}

	case tiletype.MaterialAsh, tiletype.MaterialFire, tiletype.MaterialCampfire:
		return Material{Type: MatAsh, Index: -1}

	case tiletype.MaterialPlant, tiletype.MaterialTree, tiletype.MaterialRoot,
		tiletype.MaterialMushroom, tiletype.MaterialDriftwood:
		return Material{Type: MatPlant, Index: -1}

	default:
		if m.IsGrass() {
			if p := bi.Grass[x][y]; p >= 0 {
				return Material{Type: MatPlant, Index: p}
			}
			return inorganic(bi.soil(x, y))
		}
		return NoMaterial
	}
}
