// Package core is the process-connection context. It identifies the target
// against a symbol table and owns everything shared by the callers of one
// connection: the ABI, the class name cache, the suspend coordinator, the
// struct layout and the tile type table.
//
// A target that fails identification leaves the core disabled. The
// failure is logged once and every operation returns ErrDisabled.
package core

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"simhook/abi"
	"simhook/layout"
	"simhook/mapcache"
	"simhook/patcher"
	"simhook/pod"
	"simhook/process"
	"simhook/rtti"
	"simhook/suspend"
	"simhook/symbols"
	"simhook/tiletype"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

var (
	ErrDisabled = errors.New("core disabled")
	ErrIdentify = errors.New("target not identified")
)

type executable interface {
	ExecutablePath() string
}

type Core struct {
	cfg  Config
	proc process.Process
	log  *logger.Logger

	errorstate bool
	err        error

	table   *symbols.Table
	abi     abi.ABI
	names   *rtti.ClassNameCache
	coord   *suspend.Coordinator
	layout  *layout.Layout
	tiles   *tiletype.Table
	vtables map[uint64]symbols.EventKind

	kindMu sync.Mutex
	kinds  map[process.ProcessMemoryAddress]symbols.EventKind
}

var _ mapcache.Source = (*Core)(nil)

// New identifies proc with the symbol table cfg names. On failure the
// returned core is disabled and the error wraps ErrDisabled.
func New(cfg Config, proc process.Process) (*Core, error) {
	cfg.SetDefaults()
	c := &Core{
		cfg:   cfg,
		proc:  proc,
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorLimeGreen, coloransi.ColorIndigo, "core")),
		kinds: make(map[process.ProcessMemoryAddress]symbols.EventKind),
	}
	if err := c.identify(); err != nil {
		c.errorstate = true
		c.err = fmt.Errorf("%w: %w", ErrDisabled, err)
		c.log.Warn("identification failed, core disabled: ", err)
		return c, c.err
	}
	c.log.Infoln("identified target, symbols", c.table.Version, "abi", c.abi.Name())
	return c, nil
}

func (c *Core) identify() error {
	tab, err := symbols.Load(c.cfg.Symbols)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIdentify, err)
	}

	sum, err := c.executableMD5()
	if err != nil {
		c.log.Debugln("no executable to hash:", err)
	}
	if !tab.MatchesMD5(sum) {
		return fmt.Errorf("%w: md5 %q, symbols expect %q", ErrIdentify, sum, tab.MD5)
	}

	a, err := abi.ByName(tab.ABI)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIdentify, err)
	}
	lay, err := layout.Resolve(tab, c.proc)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIdentify, err)
	}
	tiles := tiletype.Default()
	if err := tiles.Apply(tab.TileTypes); err != nil {
		return fmt.Errorf("%w: %w", ErrIdentify, err)
	}

	c.table = tab
	c.abi = a
	c.layout = lay
	c.tiles = tiles
	c.vtables = tab.EventVtables()
	c.names = rtti.NewClassNameCache(a, c.proc)
	c.coord = suspend.NewCoordinator()
	return nil
}

func (c *Core) executablePath() string {
	if c.cfg.Executable != "" {
		return c.cfg.Executable
	}
	if e, ok := c.proc.(executable); ok {
		return e.ExecutablePath()
	}
	return ""
}

func (c *Core) executableMD5() (string, error) {
	path := c.executablePath()
	if path == "" {
		return "", errors.New("executable path unknown")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Err is the identification failure, or nil
func (c *Core) Err() error     { return c.err }
func (c *Core) Disabled() bool { return c.errorstate }

func (c *Core) Process() process.Process { return c.proc }

// Memory, Layout and TileTypes make the core a mapcache.Source
func (c *Core) Memory() abi.ReadWriter           { return c.proc }
func (c *Core) Layout() *layout.Layout           { return c.layout }
func (c *Core) TileTypes() *tiletype.Table       { return c.tiles }
func (c *Core) Symbols() *symbols.Table          { return c.table }
func (c *Core) ABI() abi.ABI                     { return c.abi }
func (c *Core) ClassNames() *rtti.ClassNameCache { return c.names }

// EventKind resolves the event kind of a vtable. Vtables listed in the
// symbol table win; others go through the class name cache. The result
// is remembered either way.
func (c *Core) EventKind(vtable process.ProcessMemoryAddress) symbols.EventKind {
	if c.errorstate {
		return symbols.EventUnknown
	}
	if k, ok := c.vtables[uint64(vtable)]; ok {
		return k
	}

	c.kindMu.Lock()
	k, ok := c.kinds[vtable]
	c.kindMu.Unlock()
	if ok {
		return k
	}

	k = c.table.EventKind(c.names.Resolve(vtable))
	c.kindMu.Lock()
	c.kinds[vtable] = k
	c.kindMu.Unlock()
	return k
}

// ReadClassName returns the class name of the polymorphic object at obj
func (c *Core) ReadClassName(obj process.ProcessMemoryAddress) (string, error) {
	if c.errorstate {
		return "", ErrDisabled
	}
	name := c.names.ResolveObject(obj)
	if name == rtti.Unknown {
		return "", fmt.Errorf("object 0x%x: %w", uint64(obj), abi.ErrNoRTTI)
	}
	return name, nil
}

// ReadString reads the std::string at addr with the target's ABI
func (c *Core) ReadString(addr process.ProcessMemoryAddress) (string, error) {
	if c.errorstate {
		return "", ErrDisabled
	}
	return pod.ReadString(c.proc, c.abi, addr)
}

// WriteString replaces the contents of the std::string at addr in place
func (c *Core) WriteString(addr process.ProcessMemoryAddress, s string) error {
	if c.errorstate {
		return ErrDisabled
	}
	return pod.WriteString(c.proc, c.abi, addr, s)
}

// ReadCString reads a NUL-terminated string of at most limit bytes
func (c *Core) ReadCString(addr process.ProcessMemoryAddress, limit int) (string, error) {
	if c.errorstate {
		return "", ErrDisabled
	}
	return pod.ReadCString(c.proc, addr, limit)
}

// Read reads a POD value at addr of the connected target
func Read[T any](c *Core, addr process.ProcessMemoryAddress) (T, error) {
	if c.errorstate {
		var zero T
		return zero, ErrDisabled
	}
	return pod.ReadT[T](c.proc, addr)
}

// Write writes a POD value at addr without changing page protection
func Write[T any](c *Core, addr process.ProcessMemoryAddress, v T) error {
	if c.errorstate {
		return ErrDisabled
	}
	return pod.WriteT(c.proc, addr, v)
}

func ReadVector[T any](c *Core, addr process.ProcessMemoryAddress) ([]T, error) {
	if c.errorstate {
		return nil, ErrDisabled
	}
	return pod.ReadVector[T](c.proc, addr)
}

// Global resolves a named global of the symbol table
func (c *Core) Global(name string) (process.ProcessMemoryAddress, error) {
	if c.errorstate {
		return 0, ErrDisabled
	}
	return layout.Global(c.table, c.proc, name)
}

// Patcher returns a fresh patcher. Callers close it when done.
func (c *Core) Patcher() (*patcher.MemoryPatcher, error) {
	if c.errorstate {
		return nil, ErrDisabled
	}
	return patcher.New(c.proc), nil
}

func (c *Core) Suspender() (*suspend.Coordinator, error) {
	if c.errorstate {
		return nil, ErrDisabled
	}
	return c.coord, nil
}

// MapCache returns a new tile cache over the current map
func (c *Core) MapCache() (*mapcache.MapCache, error) {
	if c.errorstate {
		return nil, ErrDisabled
	}
	return mapcache.New(c)
}

// RunDriver services suspend requests for a target whose main loop is not
// hooked. Update runs every interval, and early whenever a request is
// queued. It returns when ctx is done.
func (c *Core) RunDriver(ctx context.Context, interval time.Duration, tick func()) error {
	if c.errorstate {
		return ErrDisabled
	}
	if interval <= 0 {
		interval = c.cfg.Interval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.log.Debugln("driver running every", interval)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.coord.Notify():
		case <-ticker.C:
		}
		c.coord.Update(tick)
	}
}

func (c *Core) Close() error {
	return c.proc.Close()
}
