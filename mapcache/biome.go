package mapcache

import (
	"simhook/layout"
	"simhook/pod"
	"simhook/process"
)

// Geological layer types holding soil; every other type is stone
const (
	geoLayerSoil      = 0
	geoLayerSoilOcean = 5
	geoLayerSoilSand  = 6
)

// BiomeInfo is the geology of one region tile around the map. Slot i of
// the cache covers the region offset (i%3-1, i/3-1) from the map origin.
//
// DefaultSoil and DefaultStone are the first soil and stone layers of the
// biome. They stand in when a tile's own layer is of the other kind.
type BiomeInfo struct {
	Valid        bool
	RegionX      int32
	RegionY      int32
	GeoIndex     int16
	LavaStone    int32
	DefaultSoil  int32
	DefaultStone int32
	Layers       []int32
	// Soil[i] marks layer i as soil; missing entries are stone
	Soil []bool
}

// Layer is the inorganic material of geological layer i, or -1
func (bi *BiomeInfo) Layer(i int) int32 {
	if !bi.Valid || i < 0 || i >= len(bi.Layers) {
		return -1
	}
	return bi.Layers[i]
}

func (bi *BiomeInfo) IsSoilLayer(i int) bool {
	return i >= 0 && i < len(bi.Soil) && bi.Soil[i]
}

// SoilAt is the soil of layer i: the layer itself when it is soil, the
// biome's default soil otherwise. A layer past the end is -1.
func (bi *BiomeInfo) SoilAt(i int) int32 {
	mat := bi.Layer(i)
	if mat < 0 || bi.IsSoilLayer(i) {
		return mat
	}
	return bi.DefaultSoil
}

// StoneAt is SoilAt for stone
func (bi *BiomeInfo) StoneAt(i int) int32 {
	mat := bi.Layer(i)
	if mat < 0 || !bi.IsSoilLayer(i) {
		return mat
	}
	return bi.DefaultStone
}

// Biome returns slot i of the precomputed biome table
func (c *MapCache) Biome(i int) *BiomeInfo {
	if i < 0 || i >= len(c.biomes) {
		return nil
	}
	return &c.biomes[i]
}

func (c *MapCache) loadBiomes() {
	w, world := c.lay.World, c.lay.WorldAddr
	read := func(f layout.Field) int32 {
		v, err := layout.Read[int32](c.mem, world, f)
		if err != nil {
			return -1
		}
		return v
	}
	rx, ry := read(w.RegionX), read(w.RegionY)
	width, height := read(w.WorldWidth), read(w.WorldHeight)

	regionMap, err := layout.Read[uint64](c.mem, world, w.RegionMap)
	if err != nil {
		regionMap = 0
	}
	biomes, err := pod.ReadPointerVector(c.mem, w.GeoBiomes.At(world))
	if err != nil {
		c.log.Warn("geo biome list unreadable: ", err)
	}

	for i := range c.biomes {
		bi := &c.biomes[i]
		bi.RegionX = rx + int32(i%3) - 1
		bi.RegionY = ry + int32(i/3) - 1
		bi.LavaStone = -1
		bi.GeoIndex = -1
		bi.DefaultSoil = -1
		bi.DefaultStone = -1

		if regionMap == 0 || rx < 0 || ry < 0 ||
			bi.RegionX < 0 || bi.RegionY < 0 || bi.RegionX >= width || bi.RegionY >= height {
			continue
		}
		c.loadBiome(bi, process.ProcessMemoryAddress(regionMap), width, biomes)
	}
}

func (c *MapCache) loadBiome(bi *BiomeInfo, regionMap process.ProcessMemoryAddress, width int32, biomes []process.ProcessMemoryAddress) {
	re := c.lay.RegionMapEntry
	entry := regionMap + process.ProcessMemoryAddress(uint64(bi.RegionY*width+bi.RegionX)*re.Size)

	geo, err := layout.Read[int16](c.mem, entry, re.GeoIndex)
	if err != nil {
		return
	}
	lava, err := layout.Read[int32](c.mem, entry, re.LavaStone)
	if err != nil {
		return
	}
	bi.GeoIndex = geo
	bi.LavaStone = lava
	bi.Valid = true

	if geo < 0 || int(geo) >= len(biomes) {
		c.log.Debugln("region", bi.RegionX, bi.RegionY, "has no geo biome", geo)
		return
	}
	layers, err := pod.ReadPointerVector(c.mem, c.lay.GeoBiome.Layers.At(biomes[geo]))
	if err != nil {
		return
	}
	gl := c.lay.GeoLayer
	for _, l := range layers {
		mat, err := layout.Read[int32](c.mem, l, gl.MatIndex)
		if err != nil {
			mat = -1
		}
		kind, err := layout.Read[int16](c.mem, l, gl.Type)
		soil := err == nil && (kind == geoLayerSoil || kind == geoLayerSoilOcean || kind == geoLayerSoilSand)

		bi.Layers = append(bi.Layers, mat)
		bi.Soil = append(bi.Soil, soil)
		switch {
		case mat < 0:
		case soil && bi.DefaultSoil < 0:
			bi.DefaultSoil = mat
		case !soil && bi.DefaultStone < 0:
			bi.DefaultStone = mat
		}
	}
}
