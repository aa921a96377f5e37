// Package patcher makes read-only memory writable for the length of one
// patch and puts the original protection back afterwards.
//
//	p := patcher.New(proc)
//	defer p.Close()
//	ok := p.Write(addr, code)
package patcher

import (
	"fmt"
	"sync"

	"simhook/process"
	"simhook/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Patch records one region whose protection was raised
type Patch struct {
	Range    memory_map.MemoryRange
	Original memory_map.Permissions
}

// MemoryPatcher escalates page protection on demand and restores every
// change on Close. The region list is scanned once per patcher, never
// shared between patchers: protections can change in between.
type MemoryPatcher struct {
	mu      sync.Mutex
	proc    process.Process
	ranges  []memory_map.MemoryRange
	loaded  bool
	patches []Patch
	log     *logger.Logger
}

func New(proc process.Process) *MemoryPatcher {
	return &MemoryPatcher{
		proc: proc,
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "patcher")),
	}
}

// WithPatcher runs fn with a fresh patcher and always closes it
func WithPatcher(proc process.Process, fn func(*MemoryPatcher) error) error {
	p := New(proc)
	defer p.Close()
	return fn(p)
}

func (p *MemoryPatcher) regionsLocked() []memory_map.MemoryRange {
	if !p.loaded {
		p.ranges = memory_map.ScanRegions(p.proc)
		p.loaded = true
	}
	return p.ranges
}

// VerifyAccess checks that [addr, addr+size) is covered by adjacent,
// valid, private regions that are readable or executable. With wantWrite
// it then makes every region of the span writable.
//
// The whole span is validated before anything is changed; a failure
// leaves every protection as it was.
func (p *MemoryPatcher) VerifyAccess(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, wantWrite bool) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.verifyLocked(addr, size, wantWrite)
}

func (p *MemoryPatcher) verifyLocked(addr process.ProcessMemoryAddress, size process.ProcessMemorySize, wantWrite bool) bool {
	ranges := p.regionsLocked()
	span, ok := memory_map.Span(ranges, uint64(addr), uint64(size))
	if !ok {
		p.log.Debugln("no contiguous mapping for", addr.ToString(), size.ToString())
		return false
	}

	for _, r := range span {
		if !r.Valid || !(r.Perms.Read || r.Perms.Execute) || r.Perms.Shared {
			p.log.Debugln("region not patchable", r.String())
			return false
		}
	}
	if !wantWrite {
		return true
	}

	var raised []Patch
	for _, r := range span {
		if r.Perms.Write {
			continue
		}
		want := memory_map.Permissions{Read: true, Write: true, Execute: r.Perms.Execute}
		if err := p.proc.Protect(process.ProcessMemoryAddress(r.Start), process.ProcessMemorySize(r.Size()), want); err != nil {
			p.log.Warn("protect failed: ", r.String(), " ", err)
			p.restore(raised)
			return false
		}
		raised = append(raised, Patch{Range: r, Original: r.Perms})
	}

	for _, patch := range raised {
		if i, ok := memory_map.Find(ranges, patch.Range.Start); ok {
			ranges[i].Perms = memory_map.Permissions{Read: true, Write: true, Execute: patch.Original.Execute}
		}
	}
	p.patches = append(p.patches, raised...)
	return true
}

// Write makes the span writable, copies data and flushes the instruction
// cache when any spanned region holds code. It returns false without
// writing if the span cannot be patched.
func (p *MemoryPatcher) Write(addr process.ProcessMemoryAddress, data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	size := process.ProcessMemorySize(len(data))
	if !p.verifyLocked(addr, size, true) {
		return false
	}
	if err := p.proc.WriteMemory(addr, data); err != nil {
		p.log.Warn("write failed: ", addr.ToString(), " ", err)
		return false
	}

	span, _ := memory_map.Span(p.ranges, uint64(addr), uint64(size))
	for _, r := range span {
		if r.Perms.Execute {
			if err := p.proc.FlushInstructionCache(addr, size); err != nil {
				p.log.Warn("flush failed: ", err)
			}
			break
		}
	}
	return true
}

// Patches returns the regions currently escalated by this patcher
func (p *MemoryPatcher) Patches() []Patch {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Patch, len(p.patches))
	copy(out, p.patches)
	return out
}

// Close restores every recorded protection and forgets the region list.
// It is safe to call more than once.
func (p *MemoryPatcher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.restore(p.patches)
	p.patches = nil
	p.ranges = nil
	p.loaded = false
	return err
}

func (p *MemoryPatcher) restore(patches []Patch) error {
	var first error
	for i := len(patches) - 1; i >= 0; i-- {
		r := patches[i].Range
		if err := p.proc.Protect(process.ProcessMemoryAddress(r.Start), process.ProcessMemorySize(r.Size()), patches[i].Original); err != nil {
			p.log.Warn("restore failed: ", r.String(), " ", err)
			if first == nil {
				first = fmt.Errorf("restore 0x%x: %w", r.Start, err)
			}
		}
	}
	return first
}
