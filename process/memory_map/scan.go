package memory_map

import (
	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "memory_map"))

// Source is anything that can enumerate a region list, a live host or a
// loaded dump
type Source interface {
	GetMemoryMap() ([]MemoryRange, error)
}

// ScanRegions returns a fresh region list from src. It never fails: an
// enumeration error is logged and an empty list returned.
func ScanRegions(src Source) []MemoryRange {
	ranges, err := src.GetMemoryMap()
	if err != nil {
		log.Warn("memory map scan failed:", err)
		return []MemoryRange{}
	}
	return ranges
}
