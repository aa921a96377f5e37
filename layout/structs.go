package layout

import (
	"errors"

	"simhook/process"
	"simhook/symbols"
)

type World struct {
	Struct
	BlockIndex     Field
	XCount         Field
	YCount         Field
	ZCount         Field
	RegionX        Field
	RegionY        Field
	RegionZ        Field
	WorldWidth     Field
	WorldHeight    Field
	RegionMap      Field
	Constructions  Field
	GeoBiomes      Field
	LocalFeatures  Field
	GlobalFeatures Field
}

type Block struct {
	Struct
	MapPos        Field
	Events        Field
	Items         Field
	TileType      Field
	Designation   Field
	Occupancy     Field
	Temp1         Field
	Temp2         Field
	RegionOffset  Field
	LocalFeature  Field
	GlobalFeature Field
}

type RegionMapEntry struct {
	Struct
	GeoIndex  Field
	LavaStone Field
}

type GeoBiome struct {
	Struct
	Layers Field
}

type GeoLayer struct {
	Struct
	MatIndex Field
	Type     Field
}

// Feature is a local or global map feature; only its material is used
type Feature struct {
	Struct
	MatType  Field
	MatIndex Field
}

type Construction struct {
	Struct
	Pos          Field
	MatType      Field
	MatIndex     Field
	OriginalTile Field
}

type Item struct {
	Struct
	Pos   Field
	Flags Field
}

type MineralEvent struct {
	Struct
	InorganicMat Field
	TileBitmask  Field
	Flags        Field
}

type FrozenLiquidEvent struct {
	Struct
	Tiles Field
}

type GrassEvent struct {
	Struct
	PlantIndex Field
	Amount     Field
}

type SpatterEvent struct {
	Struct
	MatType  Field
	MatIndex Field
	Amount   Field
}

// Layout is every descriptor the map cache needs
type Layout struct {
	WorldAddr process.ProcessMemoryAddress

	World          World
	Block          Block
	RegionMapEntry RegionMapEntry
	GeoBiome       GeoBiome
	GeoLayer       GeoLayer
	Feature        Feature
	Construction   Construction
	Item           Item
	Mineral        MineralEvent
	FrozenLiquid   FrozenLiquidEvent
	Grass          GrassEvent
	Spatter        SpatterEvent
}

// Resolve builds the layout from tab. Every missing entry is reported.
func Resolve(tab *symbols.Table, r process.MemoryReader) (*Layout, error) {
	res := &resolver{tab: tab}
	l := &Layout{}

	w := res.strct("world")
	l.World = World{
		Struct:         w,
		BlockIndex:     res.field(w, "block_index", KindPointer),
		XCount:         res.field(w, "x_count_block", KindI32),
		YCount:         res.field(w, "y_count_block", KindI32),
		ZCount:         res.field(w, "z_count_block", KindI32),
		RegionX:        res.field(w, "region_x", KindI32),
		RegionY:        res.field(w, "region_y", KindI32),
		RegionZ:        res.field(w, "region_z", KindI32),
		WorldWidth:     res.field(w, "world_width", KindI32),
		WorldHeight:    res.field(w, "world_height", KindI32),
		RegionMap:      res.field(w, "region_map", KindPointer),
		Constructions:  res.field(w, "constructions", KindVector),
		GeoBiomes:      res.field(w, "geo_biomes", KindVector),
		LocalFeatures:  res.field(w, "local_features", KindVector),
		GlobalFeatures: res.field(w, "global_features", KindVector),
	}

	b := res.strct("map_block")
	l.Block = Block{
		Struct:        b,
		MapPos:        res.field(b, "map_pos", KindCoord),
		Events:        res.field(b, "events", KindVector),
		Items:         res.field(b, "items", KindVector),
		TileType:      res.field(b, "tiletype", KindTileGrid),
		Designation:   res.field(b, "designation", KindWordGrid),
		Occupancy:     res.field(b, "occupancy", KindWordGrid),
		Temp1:         res.field(b, "temperature_1", KindTempGrid),
		Temp2:         res.field(b, "temperature_2", KindTempGrid),
		RegionOffset:  res.field(b, "region_offset", KindRegionOffsets),
		LocalFeature:  res.field(b, "local_feature", KindI32),
		GlobalFeature: res.field(b, "global_feature", KindI32),
	}

	rm := res.strct("region_map_entry")
	l.RegionMapEntry = RegionMapEntry{
		Struct:    rm,
		GeoIndex:  res.field(rm, "geo_index", KindI16),
		LavaStone: res.field(rm, "lava_stone", KindI32),
	}

	gb := res.strct("geo_biome")
	l.GeoBiome = GeoBiome{Struct: gb, Layers: res.field(gb, "layers", KindVector)}

	gl := res.strct("geo_layer")
	l.GeoLayer = GeoLayer{
		Struct:   gl,
		MatIndex: res.field(gl, "mat_index", KindI32),
		Type:     res.field(gl, "type", KindI16),
	}

	f := res.strct("feature")
	l.Feature = Feature{
		Struct:   f,
		MatType:  res.field(f, "mat_type", KindI16),
		MatIndex: res.field(f, "mat_index", KindI32),
	}

	c := res.strct("construction")
	l.Construction = Construction{
		Struct:       c,
		Pos:          res.field(c, "pos", KindCoord),
		MatType:      res.field(c, "mat_type", KindI16),
		MatIndex:     res.field(c, "mat_index", KindI32),
		OriginalTile: res.field(c, "original_tile", KindI16),
	}

	it := res.strct("item")
	l.Item = Item{
		Struct: it,
		Pos:    res.field(it, "pos", KindCoord),
		Flags:  res.field(it, "flags", KindU32),
	}

	m := res.strct("block_event_mineral")
	l.Mineral = MineralEvent{
		Struct:       m,
		InorganicMat: res.field(m, "inorganic_mat", KindI32),
		TileBitmask:  res.field(m, "tile_bitmask", KindBitmask),
		Flags:        res.field(m, "flags", KindU32),
	}

	fl := res.strct("block_event_frozen_liquid")
	l.FrozenLiquid = FrozenLiquidEvent{Struct: fl, Tiles: res.field(fl, "tiles", KindTileGrid)}

	g := res.strct("block_event_grass")
	l.Grass = GrassEvent{
		Struct:     g,
		PlantIndex: res.field(g, "plant_index", KindI32),
		Amount:     res.field(g, "amount", KindByteGrid),
	}

	sp := res.strct("block_event_material_spatter")
	l.Spatter = SpatterEvent{
		Struct:   sp,
		MatType:  res.field(sp, "mat_type", KindI16),
		MatIndex: res.field(sp, "mat_index", KindI32),
		Amount:   res.field(sp, "amount", KindByteGrid),
	}

	addr, err := Global(tab, r, "world")
	if err != nil {
		res.errs = append(res.errs, err)
	}
	l.WorldAddr = addr

	if len(res.errs) > 0 {
		return nil, errors.Join(res.errs...)
	}
	return l, nil
}
