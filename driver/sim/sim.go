// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package sim implements a software backend for package
// driver.
// It reserves virtual address space from two heaps and
// keeps a page table at BlockSize granularity, so that
// bind operations can be observed without a device.
package sim

import (
	"log/slog"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/internal/vma"
)

// PageSize is the granularity of the page table.
const PageSize = 1 << 16

const (
	lowBase  = PageSize
	lowEnd   = 1 << 32
	highBase = 1 << 32
)

const prefix = "sim: "

// Config configures a GPU.
type Config struct {
	// Name of the simulated device.
	// Defaults to "sim".
	Name string
	// Hardware generation times ten.
	// Defaults to 125.
	VerX10 int
	// Size of the heap that serves driver.VA32Bit
	// requests. It starts at PageSize and must not
	// cross 4GiB. Defaults to the whole low range.
	LowSize uint64
	// Size of the heap that serves every other request.
	// It starts at 4GiB. Defaults to 64GiB.
	HighSize uint64
	// If positive, VMBind fails with
	// driver.ErrNoDeviceMemory once this many operations
	// have been applied.
	FailAfter int
	// Logger used by the GPU.
	// Defaults to slog.Default().
	Logger *slog.Logger
}

// State is the state of a page table entry.
type State int

// Page states.
const (
	// Unmapped pages have never been bound or were
	// unbound.
	Unmapped State = iota
	// Null pages are bound to no memory.
	Null
	// Bound pages are backed by a Memory.
	Bound
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Unmapped:
		return "unmapped"
	case Null:
		return "null"
	case Bound:
		return "bound"
	}
	return "State(?)"
}

type pte struct {
	mem driver.Memory
	off uint64
}

// GPU implements driver.GPU.
type GPU struct {
	drv     *Driver
	info    driver.DeviceInfo
	log     *slog.Logger
	mu      sync.Mutex
	low     *vma.Heap
	high    *vma.Heap
	pt      map[uint64]pte
	trace   []driver.VMBind
	calls   int
	applied int
	fail    int
}

// New creates a new GPU.
func New(cfg Config) *GPU {
	if cfg.Name == "" {
		cfg.Name = "sim"
	}
	if cfg.VerX10 == 0 {
		cfg.VerX10 = 125
	}
	if cfg.LowSize == 0 || cfg.LowSize > lowEnd-lowBase {
		cfg.LowSize = lowEnd - lowBase
	}
	if cfg.HighSize == 0 {
		cfg.HighSize = 64 << 30
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &GPU{
		info: driver.DeviceInfo{
			Name:   cfg.Name,
			VerX10: cfg.VerX10,
			VASize: highBase + cfg.HighSize,
		},
		log:  cfg.Logger,
		low:  vma.New(lowBase, cfg.LowSize, PageSize),
		high: vma.New(highBase, cfg.HighSize, PageSize),
		pt:   make(map[uint64]pte),
		fail: cfg.FailAfter,
	}
}

// Driver implements driver.GPU.
func (g *GPU) Driver() driver.Driver {
	if g.drv == nil {
		return nil
	}
	return g.drv
}

// Info implements driver.GPU.
func (g *GPU) Info() driver.DeviceInfo { return g.info }

func (g *GPU) heap(flags driver.VAFlags) *vma.Heap {
	if flags&driver.VA32Bit != 0 {
		return g.low
	}
	return g.high
}

// heapOf returns the heap that contains [addr, addr+size),
// or nil if there is none.
func (g *GPU) heapOf(addr, size uint64) *vma.Heap {
	switch {
	case g.low.Contains(addr, size):
		return g.low
	case g.high.Contains(addr, size):
		return g.high
	}
	return nil
}

// AllocVA implements driver.GPU.
func (g *GPU) AllocVA(size, align uint64, flags driver.VAFlags, addr uint64) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if size == 0 || size%PageSize != 0 {
		return 0, errors.Newf(prefix+"VA size %#x is not a multiple of %#x", size, PageSize)
	}
	h := g.heap(flags)
	if addr != 0 {
		if !h.AllocAt(addr, size) {
			return 0, errors.Wrapf(driver.ErrNoDeviceMemory, prefix+"VA range %#x+%#x is unavailable", addr, size)
		}
		return addr, nil
	}
	a, ok := h.Alloc(size, align)
	if !ok {
		return 0, errors.Wrapf(driver.ErrNoDeviceMemory, prefix+"no VA range of size %#x", size)
	}
	return a, nil
}

// FreeVA implements driver.GPU.
// Pages of the range that are still mapped are dropped
// and reported as a warning.
func (g *GPU) FreeVA(addr, size uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	h := g.heapOf(addr, size)
	if h == nil {
		panic(prefix + "FreeVA of foreign range")
	}
	var live int
	for a := addr; a < addr+size; a += PageSize {
		if _, ok := g.pt[a]; ok {
			delete(g.pt, a)
			live++
		}
	}
	if live > 0 {
		g.log.Warn(prefix+"freeing VA range with live bindings", "addr", addr, "size", size, "pages", live)
	}
	h.Release(addr, size)
}

// check validates b without applying it.
func (g *GPU) check(b *driver.VMBind) error {
	switch {
	case b.Size == 0:
		return errors.Newf(prefix+"%v: empty range", b)
	case b.Address%PageSize != 0 || b.Size%PageSize != 0:
		return errors.Newf(prefix+"%v: range is not page-aligned", b)
	case b.Op != driver.OpBind && b.Op != driver.OpUnbind:
		return errors.Newf(prefix+"%v: bad operation", b)
	}
	h := g.heapOf(b.Address, b.Size)
	if h == nil || !h.Reserved(b.Address, b.Size) {
		return errors.Newf(prefix+"%v: range is not reserved", b)
	}
	if b.Mem != nil {
		if b.Op == driver.OpUnbind {
			return errors.Newf(prefix+"%v: unbind with memory", b)
		}
		if b.MemOffset%PageSize != 0 {
			return errors.Newf(prefix+"%v: memory offset is not page-aligned", b)
		}
		if n := b.Mem.Size(); b.MemOffset > n || b.Size > n-b.MemOffset {
			return errors.Newf(prefix+"%v: out of memory bounds (%#x)", b, n)
		}
	}
	return nil
}

// VMBind implements driver.GPU.
// The whole list is validated before any operation is
// applied, so a failed call leaves the page table
// unchanged.
func (g *GPU) VMBind(ops []driver.VMBind) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	for i := range ops {
		if err := g.check(&ops[i]); err != nil {
			g.log.Warn(prefix+"VMBind rejected", "index", i, "err", err)
			return errors.Mark(err, driver.ErrUnknown)
		}
	}
	if g.fail > 0 && g.applied+len(ops) > g.fail {
		g.log.Warn(prefix+"VMBind failure injected", "applied", g.applied, "ops", len(ops))
		return errors.Wrapf(driver.ErrNoDeviceMemory, prefix+"page table update failed after %d operations", g.applied)
	}
	for i := range ops {
		b := &ops[i]
		for off := uint64(0); off < b.Size; off += PageSize {
			switch b.Op {
			case driver.OpBind:
				g.pt[b.Address+off] = pte{b.Mem, b.MemOffset + off}
			case driver.OpUnbind:
				delete(g.pt, b.Address+off)
			}
		}
	}
	g.trace = append(g.trace, ops...)
	g.applied += len(ops)
	g.log.Debug(prefix+"VMBind", "ops", len(ops))
	return nil
}

// Resolve returns the state of the page that contains addr
// and, if the page is bound, the memory and the offset
// that addr maps to.
func (g *GPU) Resolve(addr uint64) (mem driver.Memory, off uint64, st State) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.pt[addr&^(PageSize-1)]
	switch {
	case !ok:
		return nil, 0, Unmapped
	case e.mem == nil:
		return nil, 0, Null
	}
	return e.mem, e.off + addr&(PageSize-1), Bound
}

// SetFailAfter replaces Config.FailAfter.
// n counts from the operations already applied, and a
// non-positive n disables failure injection.
func (g *GPU) SetFailAfter(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > 0 {
		n += g.applied
	}
	g.fail = n
}

// Trace returns a copy of every operation applied so far,
// in order.
func (g *GPU) Trace() []driver.VMBind {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := make([]driver.VMBind, len(g.trace))
	copy(s, g.trace)
	return s
}

// ResetTrace clears the trace and the call counter.
// The page table is not affected.
func (g *GPU) ResetTrace() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trace = g.trace[:0]
	g.calls = 0
}

// Calls returns the number of VMBind calls made since the
// last ResetTrace, including failed ones.
func (g *GPU) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// Mapped returns the number of pages that are either null
// or bound.
func (g *GPU) Mapped() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pt)
}

// FreeVASpace returns the number of unreserved bytes in the
// heap selected by flags.
func (g *GPU) FreeVASpace(flags driver.VAFlags) uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.heap(flags).Free()
}
