package mapcache

import (
	"simhook/layout"
	"simhook/pod"
	"simhook/process"
	"simhook/symbols"
	"simhook/tiletype"
)

// scanEvents fills the event overlays of bi from the block's square
// events. Events are told apart by their vtable's resolved kind.
func (c *MapCache) scanEvents(block process.ProcessMemoryAddress, bi *BlockInfo) {
	events, err := pod.ReadValidPointerVector(c.mem, c.lay.Block.Events.At(block))
	if err != nil {
		c.log.Debugln("block events unreadable:", err)
		return
	}

	var grassAmount byteGrid
	for _, ev := range events {
		vtable, err := pod.ReadT[uint64](c.mem, ev)
		if err != nil {
			continue
		}
		switch c.src.EventKind(process.ProcessMemoryAddress(vtable)) {
		case symbols.EventMineral:
			c.mineralEvent(ev, bi)
		case symbols.EventFrozenLiquid:
			c.frozenEvent(ev, bi)
		case symbols.EventGrass:
			c.grassEvent(ev, bi, &grassAmount)
		case symbols.EventMaterialSpatter:
			c.spatterEvent(ev, bi)
		}
	}
}

func (c *MapCache) mineralEvent(ev process.ProcessMemoryAddress, bi *BlockInfo) {
	lm := c.lay.Mineral
	mat, err := layout.Read[int32](c.mem, ev, lm.InorganicMat)
	if err != nil {
		return
	}
	mask, err := layout.Read[BitGrid](c.mem, ev, lm.TileBitmask)
	if err != nil {
		return
	}
	for x := 0; x < BlockSize; x++ {
		for y := 0; y < BlockSize; y++ {
			if mask.Get(x, y) {
				bi.Veins[x][y] = mat
			}
		}
	}
}

func (c *MapCache) frozenEvent(ev process.ProcessMemoryAddress, bi *BlockInfo) {
	tiles, err := layout.Read[tileGrid](c.mem, ev, c.lay.FrozenLiquid.Tiles)
	if err != nil {
		return
	}
	for x := 0; x < BlockSize; x++ {
		for y := 0; y < BlockSize; y++ {
			if tiles[x][y] != tiletype.Void {
				bi.Frozen.Set(x, y, true)
				bi.FrozenTiles[x][y] = tiles[x][y]
			}
		}
	}
}

// grassEvent keeps the most abundant grass per tile
func (c *MapCache) grassEvent(ev process.ProcessMemoryAddress, bi *BlockInfo, best *byteGrid) {
	lg := c.lay.Grass
	plant, err := layout.Read[int32](c.mem, ev, lg.PlantIndex)
	if err != nil {
		return
	}
	amount, err := layout.Read[byteGrid](c.mem, ev, lg.Amount)
	if err != nil {
		return
	}
	for x := 0; x < BlockSize; x++ {
		for y := 0; y < BlockSize; y++ {
			if amount[x][y] > best[x][y] {
				best[x][y] = amount[x][y]
				bi.Grass[x][y] = plant
			}
		}
	}
}

func (c *MapCache) spatterEvent(ev process.ProcessMemoryAddress, bi *BlockInfo) {
	ls := c.lay.Spatter
	mt, err := layout.Read[int16](c.mem, ev, ls.MatType)
	if err != nil {
		return
	}
	mi, err := layout.Read[int32](c.mem, ev, ls.MatIndex)
	if err != nil {
		return
	}
	amount, err := layout.Read[byteGrid](c.mem, ev, ls.Amount)
	if err != nil {
		return
	}
	bi.Spatters = append(bi.Spatters, Spatter{Material: Material{Type: mt, Index: mi}, Amount: amount})
}
