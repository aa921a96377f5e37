package symbols

import "strings"

// EventKind identifies the layout of a block square event
type EventKind uint8

const (
	EventUnknown EventKind = iota
	EventMineral
	EventFrozenLiquid
	EventMaterialSpatter
	EventGrass
)

var eventNames = map[string]EventKind{
	"mineral":          EventMineral,
	"frozen_liquid":    EventFrozenLiquid,
	"material_spatter": EventMaterialSpatter,
	"grass":            EventGrass,
}

func (k EventKind) String() string {
	for name, v := range eventNames {
		if v == k {
			return name
		}
	}
	return "unknown"
}

// EventKind maps a demangled class name to its event kind. Namespace
// qualifiers are ignored.
func (t *Table) EventKind(className string) EventKind {
	if i := strings.LastIndex(className, "::"); i >= 0 {
		className = className[i+2:]
	}
	vt, ok := t.Vtables[className]
	if !ok {
		return EventUnknown
	}
	return eventNames[vt.Event]
}

// EventVtables returns every vtable address the table knows, with its kind
func (t *Table) EventVtables() map[uint64]EventKind {
	out := make(map[uint64]EventKind)
	for _, vt := range t.Vtables {
		if vt.Address != 0 {
			out[vt.Address] = eventNames[vt.Event]
		}
	}
	return out
}
