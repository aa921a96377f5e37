package table

import (
	"fmt"
	"strings"

	"simhook/process/memory_map"
)

// Regions lays out a memory map, one row per range
func Regions(ranges []memory_map.MemoryRange) *Table {
	t := New(
		Column{Header: "start"},
		Column{Header: "end"},
		Column{Header: "size", MinWidth: 8},
		Column{Header: "perms", Format: permsFormat},
		Column{Header: "name"},
	)
	for _, r := range ranges {
		perms := r.Perms.String()
		if !r.Valid {
			perms = "invalid"
		}
		t.AddRow(
			fmt.Sprintf("0x%x", r.Start),
			fmt.Sprintf("0x%x", r.End),
			fmt.Sprintf("0x%x", r.Size()),
			perms,
			r.Name,
		)
	}
	return t
}

func permsFormat(p string) string {
	switch {
	case p == "invalid" || strings.HasSuffix(p, "s"):
		return Gray(p)
	case strings.Contains(p, "w") && strings.Contains(p, "x"):
		return Red(p)
	case strings.Contains(p, "x"):
		return Yellow(p)
	case strings.Contains(p, "w"):
		return Green(p)
	}
	return p
}
