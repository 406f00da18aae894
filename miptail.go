// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"fmt"

	"github.com/gviegas/sparse/layout"
)

// MiptailKind is the outcome of CalcMiptail.
type MiptailKind int

// Miptail kinds.
const (
	// Every level can be bound per region.
	NoMiptail MiptailKind = iota
	// Levels from FirstLevel on share one block per
	// layer.
	PartialMiptail
	// The whole plane is a single miptail.
	WholeMiptail
)

// String implements fmt.Stringer.
func (k MiptailKind) String() string {
	switch k {
	case NoMiptail:
		return "none"
	case PartialMiptail:
		return "partial"
	case WholeMiptail:
		return "whole"
	}
	return fmt.Sprintf("MiptailKind(%d)", int(k))
}

// Miptail describes the levels of a plane that can only
// be bound as an opaque range.
// The miptail of layer n is at Offset + n*Stride.
type Miptail struct {
	Kind       MiptailKind
	FirstLevel int
	Size       uint64
	Offset     uint64
	Stride     uint64
}

// CalcMiptail computes the miptail of a plane laid out as
// surf, starting at planeOffset within its binding.
//
// A surface only gets a partial miptail when its tiles are
// BlockSize bytes, it is not linear, its layers are
// tile-aligned and its tiling has standard block shapes.
// Otherwise the whole plane is reported as miptail.
func CalcMiptail(surf layout.Surface, planeOffset uint64) Miptail {
	whole := Miptail{
		Kind:   WholeMiptail,
		Size:   surf.Size(),
		Offset: planeOffset,
	}

	te := surf.Tile().Extent
	tileSize := uint64(te.Width * surf.Format().Layout().Bytes() * te.Height * te.Depth)
	if tileSize != BlockSize {
		return whole
	}
	if surf.Tiling() == layout.Linear {
		return whole
	}

	layer1 := surf.Size()
	if surf.Layers() > 1 {
		var x, y int
		if layer1, x, y = surf.ImageOffset(0, 1, 0); x != 0 || y != 0 {
			return whole
		}
	}
	if layer1%tileSize != 0 {
		return whole
	}

	if !surf.Tiling().StandardShapes() {
		return whole
	}

	first := surf.MiptailStart()
	if first >= surf.Levels() {
		return Miptail{Kind: NoMiptail, FirstLevel: surf.Levels()}
	}
	off, x, y := surf.ImageOffset(first, 0, 0)
	invariant(x == 0 && y == 0, "miptail of level %d starts at (%d, %d) within a tile", first, x, y)
	invariant(off%tileSize == 0, "miptail offset %#x is not tile-aligned", off)
	return Miptail{
		Kind:       PartialMiptail,
		FirstLevel: first,
		Size:       tileSize,
		Offset:     planeOffset + off,
		Stride:     layer1,
	}
}
