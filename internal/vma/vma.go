// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package vma implements a page-granular heap of virtual
// addresses.
// Pages are tracked in a bit vector (one bit per page,
// set when reserved), so finding a free range is a search
// for a run of unset bits.
package vma

import "math/bits"

const nbit = 64

// Heap manages the range [Base, Base+Size) in units of
// Page bytes.
type Heap struct {
	base uint64
	size uint64
	page uint64
	s    []uint64
	npg  int
	rem  int
}

// New creates a heap covering [base, base+size).
// page must be a power of two and both base and size must
// be multiples of it.
func New(base, size, page uint64) *Heap {
	switch {
	case page == 0 || page&(page-1) != 0:
		panic("vma: page size is not a power of two")
	case base%page != 0 || size%page != 0:
		panic("vma: range is not page-aligned")
	case size == 0:
		panic("vma: empty range")
	}
	npg := int(size / page)
	h := &Heap{
		base: base,
		size: size,
		page: page,
		s:    make([]uint64, (npg+nbit-1)/nbit),
		npg:  npg,
		rem:  npg,
	}
	// Bits past the last page stay set so that
	// word-level skipping never crosses the end.
	if r := npg % nbit; r != 0 {
		h.s[len(h.s)-1] = ^uint64(0) << r
	}
	return h
}

// Base returns the first address of the heap.
func (h *Heap) Base() uint64 { return h.base }

// Size returns the size of the heap in bytes.
func (h *Heap) Size() uint64 { return h.size }

// Page returns the page size.
func (h *Heap) Page() uint64 { return h.page }

// Free returns the number of unreserved bytes.
func (h *Heap) Free() uint64 { return uint64(h.rem) * h.page }

// Contains reports whether [addr, addr+size) lies within
// the heap.
func (h *Heap) Contains(addr, size uint64) bool {
	return addr >= h.base && size <= h.size && addr-h.base <= h.size-size
}

// Alloc reserves size bytes at an address that is a
// multiple of align.
// size and align are rounded up to the page size.
// It returns false if no such range is free.
func (h *Heap) Alloc(size, align uint64) (addr uint64, ok bool) {
	n := h.pages(size)
	if n == 0 || n > h.rem {
		return
	}
	if align < h.page {
		align = h.page
	}
	if align&(align-1) != 0 {
		panic("vma: alignment is not a power of two")
	}
	step := int(align / h.page)
	first := int(((h.base+align-1)&^(align-1) - h.base) / h.page)
	i, ok := h.search(n, first, step)
	if !ok {
		return
	}
	h.setRange(i, n)
	return h.base + uint64(i)*h.page, true
}

// AllocAt reserves [addr, addr+size).
// It returns false if any page of the range is outside
// the heap or already reserved.
func (h *Heap) AllocAt(addr, size uint64) bool {
	n := h.pages(size)
	if n == 0 || addr%h.page != 0 || !h.Contains(addr, uint64(n)*h.page) {
		return false
	}
	i := int((addr - h.base) / h.page)
	if h.firstSet(i, i+n) >= 0 {
		return false
	}
	h.setRange(i, n)
	return true
}

// Release makes [addr, addr+size) available again.
// The range must have been reserved by Alloc or AllocAt.
func (h *Heap) Release(addr, size uint64) {
	n := h.pages(size)
	if addr%h.page != 0 || !h.Contains(addr, uint64(n)*h.page) {
		panic("vma: release of foreign range")
	}
	i := int((addr - h.base) / h.page)
	for j := i; j < i+n; j++ {
		h.unset(j)
	}
}

// Reserved reports whether every page of [addr, addr+size)
// is reserved.
func (h *Heap) Reserved(addr, size uint64) bool {
	n := h.pages(size)
	if n == 0 || !h.Contains(addr&^(h.page-1), uint64(n)*h.page) {
		return false
	}
	i := int((addr - h.base) / h.page)
	for j := i; j < i+n; j++ {
		if !h.isSet(j) {
			return false
		}
	}
	return true
}

// pages converts a byte count to a page count, rounding up.
func (h *Heap) pages(size uint64) int { return int((size + h.page - 1) / h.page) }

func (h *Heap) set(index int) {
	b := uint64(1) << (index & (nbit - 1))
	if w := &h.s[index/nbit]; *w&b == 0 {
		*w |= b
		h.rem--
	}
}

func (h *Heap) unset(index int) {
	b := uint64(1) << (index & (nbit - 1))
	if w := &h.s[index/nbit]; *w&b != 0 {
		*w &^= b
		h.rem++
	}
}

func (h *Heap) isSet(index int) bool {
	return h.s[index/nbit]&(1<<(index&(nbit-1))) != 0
}

func (h *Heap) setRange(index, n int) {
	for i := index; i < index+n; i++ {
		h.set(i)
	}
}

// firstSet returns the index of the first set bit in the
// range [from, to), or -1 if there is none.
func (h *Heap) firstSet(from, to int) int {
	for i := from; i < to; {
		w := h.s[i/nbit] >> (i & (nbit - 1))
		if w == 0 {
			i = (i | (nbit - 1)) + 1
			continue
		}
		if j := i + bits.TrailingZeros64(w); j < to {
			return j
		}
		break
	}
	return -1
}

// search locates n contiguous unset bits starting at an
// index of the form first + k*step.
func (h *Heap) search(n, first, step int) (index int, ok bool) {
	for i := first; i+n <= h.npg; {
		// Skip words that have no unset bits.
		if i&(nbit-1) == 0 && h.s[i/nbit] == ^uint64(0) {
			i = alignIndex(i+nbit, first, step)
			continue
		}
		j := h.firstSet(i, i+n)
		if j < 0 {
			return i, true
		}
		i = alignIndex(j+1, first, step)
	}
	return
}

// alignIndex returns the smallest index >= i of the form
// first + k*step.
func alignIndex(i, first, step int) int {
	if i <= first {
		return first
	}
	return first + (i-first+step-1)/step*step
}
