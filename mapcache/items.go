package mapcache

import (
	"simhook/layout"
	"simhook/pod"
)

// initItemCounts counts on-ground items per tile from the block's item list
func (b *Block) initItemCounts() {
	if b.itemCounts != nil {
		return
	}
	var counts [BlockSize][BlockSize]int
	b.itemCounts = &counts
	if !b.valid {
		return
	}

	c := b.parent
	items, err := pod.ReadValidPointerVector(c.mem, c.lay.Block.Items.At(b.addr))
	if err != nil {
		c.log.Debugln("block items unreadable:", err)
		return
	}
	for _, it := range items {
		pos, err := layout.Read[Coord](c.mem, it, c.lay.Item.Pos)
		if err != nil || pos.Block() != b.coord {
			continue
		}
		flags, err := layout.Read[uint32](c.mem, it, c.lay.Item.Flags)
		if err != nil || flags&ItemOnGround == 0 {
			continue
		}
		x, y := pos.Local()
		counts[x][y]++
	}
}

func (b *Block) ItemCountAt(pos Coord) int {
	b.initItemCounts()
	x, y := pos.Local()
	return b.itemCounts[x][y]
}

// AddItemOnGround counts one more item on pos. The first item sets the
// occupancy item bit in the cache and in the live block at once; other
// occupancy changes wait for Write.
func (b *Block) AddItemOnGround(pos Coord) bool {
	if !b.valid || pos.Block() != b.coord {
		return false
	}
	b.initItemCounts()
	x, y := pos.Local()
	b.itemCounts[x][y]++
	if b.itemCounts[x][y] == 1 {
		b.occupancy[x][y] |= OccupancyItem
		b.setLiveItemBit(x, y, true)
	}
	return true
}

// RemoveItemOnGround undoes AddItemOnGround. The last item clears the
// occupancy item bit in the cache and the live block.
func (b *Block) RemoveItemOnGround(pos Coord) bool {
	if !b.valid || pos.Block() != b.coord {
		return false
	}
	b.initItemCounts()
	x, y := pos.Local()
	if b.itemCounts[x][y] == 0 {
		return false
	}
	b.itemCounts[x][y]--
	if b.itemCounts[x][y] == 0 {
		b.occupancy[x][y] &^= OccupancyItem
		b.setLiveItemBit(x, y, false)
	}
	return true
}

func (b *Block) setLiveItemBit(x, y int, set bool) {
	c, f := b.parent, b.parent.lay.Block.Occupancy
	live, err := layout.ReadElem[Occupancy](c.mem, b.addr, f, index(x, y))
	if err != nil {
		c.log.Warn("live occupancy unreadable: ", err)
		return
	}
	if set {
		live |= OccupancyItem
	} else {
		live &^= OccupancyItem
	}
	if err := layout.WriteElem(c.mem, b.addr, f, index(x, y), live); err != nil {
		c.log.Warn("live occupancy write: ", err)
	}
}
