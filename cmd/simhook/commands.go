package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"simhook/core"
	"simhook/hexdump"
	"simhook/mapcache"
	"simhook/process"
	"simhook/process_blob"
	"simhook/search"
	"simhook/table"
	"simhook/tiletype"
)

type env struct {
	proc process.Process
	core *core.Core
}

type command struct {
	name string
	args int
	// raw commands need no symbol table
	raw bool
	run func(e *env, args []string) error
}

var commands = map[string]command{}

func init() {
	for _, c := range []command{
		{name: "regions", raw: true, run: regions},
		{name: "read", args: 1, raw: true, run: read},
		{name: "dump", args: 1, raw: true, run: dump},
		{name: "classname", args: 1, run: classname},
		{name: "global", args: 1, run: global},
		{name: "find", args: 3, run: find},
		{name: "patch", args: 2, run: patch},
		{name: "tile", args: 3, run: tile},
		{name: "retarget", args: 4, run: retarget},
	} {
		commands[c.name] = c
	}
}

func parseAddr(s string) (process.ProcessMemoryAddress, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("bad address %q", s)
	}
	return process.ProcessMemoryAddress(v), nil
}

func parseCoord(args []string) (mapcache.Coord, error) {
	var v [3]int16
	for i := range v {
		n, err := strconv.ParseInt(args[i], 10, 16)
		if err != nil {
			return mapcache.Coord{}, fmt.Errorf("bad coordinate %q", args[i])
		}
		v[i] = int16(n)
	}
	return mapcache.Coord{X: v[0], Y: v[1], Z: v[2]}, nil
}

func regions(e *env, _ []string) error {
	ranges, err := e.proc.GetMemoryMap()
	if err != nil {
		return err
	}
	return table.Regions(ranges).Render(os.Stdout)
}

func read(e *env, args []string) error {
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	size := 256
	if len(args) > 1 {
		if size, err = strconv.Atoi(args[1]); err != nil || size <= 0 {
			return fmt.Errorf("bad size %q", args[1])
		}
	}
	data, err := e.proc.ReadMemory(addr, process.ProcessMemorySize(size))
	if err != nil {
		return err
	}
	ranges, _ := e.proc.GetMemoryMap()
	fmt.Print(hexdump.Memory(data, uint64(addr), ranges))
	return nil
}

func dump(e *env, args []string) error {
	name := fmt.Sprintf("pid-%d", e.proc.GetPID())
	if err := process_blob.SaveDump(e.proc, name, args[0]); err != nil {
		return err
	}
	fmt.Printf("Dump saved to %s\n", args[0])
	return nil
}

func classname(e *env, args []string) error {
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	name, err := e.core.ReadClassName(addr)
	if err != nil {
		return err
	}
	fmt.Println(name)
	return nil
}

func global(e *env, args []string) error {
	addr, err := e.core.Global(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s = 0x%x\n", args[0], uint64(addr))
	return nil
}

func find(e *env, args []string) error {
	base, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(strings.TrimPrefix(args[2], "0x"), 16, 64)
	if err != nil {
		return fmt.Errorf("bad value %q", args[2])
	}
	var opt search.Option
	switch args[1] {
	case "u32":
		opt = search.WithValue(uint32(value))
	case "u64":
		opt = search.WithValue(value)
	default:
		return fmt.Errorf("bad value type %q", args[1])
	}

	results, err := search.Search(e.proc, base, opt)
	if err != nil {
		return err
	}
	fmt.Printf("Found %d paths:\n", len(results))
	for _, r := range results {
		parts := make([]string, 0, len(r.Path)+1)
		for _, v := range r.GlobalPath(base) {
			parts = append(parts, fmt.Sprintf("0x%x", v))
		}
		fmt.Printf("  path: [%s]  # 0x%x\n", strings.Join(parts, ", "), uint64(r.Address))
	}
	return nil
}

func patch(e *env, args []string) error {
	addr, err := parseAddr(args[0])
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(strings.Join(args[1:], ""))
	if err != nil || len(data) == 0 {
		return fmt.Errorf("bad patch bytes")
	}
	before, err := e.proc.ReadMemory(addr, process.ProcessMemorySize(len(data)))
	if err != nil {
		return err
	}

	p, err := e.core.Patcher()
	if err != nil {
		return err
	}
	defer p.Close()
	if !p.Write(addr, data) {
		return fmt.Errorf("patch at 0x%x refused", uint64(addr))
	}
	fmt.Print(hexdump.Diff(before, data, uint64(addr)))
	return nil
}

func tile(e *env, args []string) error {
	pos, err := parseCoord(args)
	if err != nil {
		return err
	}
	mc, err := e.core.MapCache()
	if err != nil {
		return err
	}
	b := mc.BlockAtTile(pos)
	if b == nil {
		return fmt.Errorf("%s is outside the map", pos)
	}
	if !b.Valid() {
		return fmt.Errorf("%s has no block", pos)
	}

	tt := e.core.TileTypes()
	t := table.New(table.Column{Header: "field"}, table.Column{Header: "value"})
	name := func(v tiletype.TileType) string {
		return fmt.Sprintf("%s (%d)", tt.Name(v), v)
	}
	raw := b.TileTypeAt(pos)
	t.AddRow("tiletype", name(raw))
	t.AddRow("shape", tt.Shape(raw).String())
	t.AddRow("material", tt.Material(raw).String())
	if f := b.FrozenTileTypeAt(pos); f != tiletype.None {
		t.AddRow("under ice", name(f))
	}
	t.AddRow("base tiletype", name(b.BaseTileTypeAt(pos)))
	t.AddRow("base material", material(b.BaseMaterialAt(pos)))
	t.AddRow("material now", material(b.MaterialAt(pos)))
	if con, ok := b.ConstructionAt(pos); ok {
		t.AddRow("construction", material(con.Material))
	}
	if m, n := b.SpatterAt(pos); n > 0 {
		t.AddRow("spatter", fmt.Sprintf("%s x%d", material(m), n))
	}
	d := b.DesignationAt(pos)
	t.AddRow("designation", fmt.Sprintf("0x%08x biome %d layer %d", uint32(d), d.Biome(), d.GeolayerIndex()))
	t.AddRow("occupancy", fmt.Sprintf("0x%08x", uint32(b.OccupancyAt(pos))))
	t.AddRow("temperature", fmt.Sprintf("%d / %d", b.Temp1At(pos), b.Temp2At(pos)))
	t.AddRow("items", strconv.Itoa(b.ItemCountAt(pos)))
	return t.Render(os.Stdout)
}

func material(m mapcache.Material) string {
	if !m.IsValid() {
		return ""
	}
	return fmt.Sprintf("%d:%d", m.Type, m.Index)
}

func retarget(e *env, args []string) error {
	pos, err := parseCoord(args)
	if err != nil {
		return err
	}
	mat, err := tiletype.ParseMaterial(strings.ToUpper(args[3]))
	if err != nil {
		return err
	}
	mc, err := e.core.MapCache()
	if err != nil {
		return err
	}
	b := mc.BlockAtTile(pos)
	if b == nil || !b.Valid() {
		return fmt.Errorf("%s has no block", pos)
	}

	tt := e.core.TileTypes()
	from := b.TileTypeAt(pos)
	to := tt.Retarget(from, mat)
	if to == tiletype.None || to == from {
		return fmt.Errorf("no %s variant of %s", mat, tt.Name(from))
	}
	b.SetTileTypeAt(pos, to)
	if !mc.WriteAll() {
		return fmt.Errorf("write failed")
	}
	fmt.Printf("%s: %s -> %s\n", pos, tt.Name(from), tt.Name(to))
	return nil
}
