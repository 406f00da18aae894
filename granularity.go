// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"strings"

	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/layout"
)

// FormatFlags describes properties of a sparse image
// format.
type FormatFlags int

// Format flags.
const (
	// FlagSingleMiptail means that the block size is not
	// BlockSize, so the image has a single miptail that
	// covers every level (and every layer).
	FlagSingleMiptail FormatFlags = 1 << iota
	// FlagNonstandardBlockSize means that the granularity
	// does not match the standard block shape.
	FlagNonstandardBlockSize
)

// String implements fmt.Stringer.
func (f FormatFlags) String() string {
	var s []string
	if f&FlagSingleMiptail != 0 {
		s = append(s, "single-miptail")
	}
	if f&FlagNonstandardBlockSize != 0 {
		s = append(s, "nonstandard-block-size")
	}
	if len(s) == 0 {
		return "none"
	}
	return strings.Join(s, "|")
}

// SparseImageFormatProperties describes the sparse block
// of one aspect of an image.
type SparseImageFormatProperties struct {
	Aspect driver.Aspect
	// Granularity in pixels.
	Granularity driver.Dim3D
	Flags       FormatFlags
}

// Granularity is the resolved sparse block shape of a
// surface.
type Granularity struct {
	// Extent in pixels.
	Extent driver.Dim3D
	// Standard is set when Extent matches the standard
	// block shape.
	Standard bool
	// KnownNonstandard is set when the surface cannot use
	// a tiling with standard shapes for a known reason.
	KnownNonstandard bool
}

// Standard block shapes in elements, indexed by log2 of
// the element size in bytes.
var (
	stdShape2D = [5]driver.Dim3D{
		{Width: 256, Height: 256, Depth: 1},
		{Width: 256, Height: 128, Depth: 1},
		{Width: 128, Height: 128, Depth: 1},
		{Width: 128, Height: 64, Depth: 1},
		{Width: 64, Height: 64, Depth: 1},
	}
	stdShape3D = [5]driver.Dim3D{
		{Width: 64, Height: 32, Depth: 32},
		{Width: 32, Height: 32, Depth: 32},
		{Width: 32, Height: 32, Depth: 16},
		{Width: 32, Height: 16, Depth: 16},
		{Width: 16, Height: 16, Depth: 16},
	}
)

func shapeIndex(bpb int) int {
	switch bpb {
	case 8:
		return 0
	case 16:
		return 1
	case 32:
		return 2
	case 64:
		return 3
	case 128:
		return 4
	}
	return -1
}

// StandardBlockShape returns the standard sparse block
// shape, in pixels, of a 2D or 3D image of format pf.
// 1D images have no standard shape.
func StandardBlockShape(pf driver.PixelFmt, typ driver.ImageType) driver.Dim3D {
	i := shapeIndex(pf.Layout().Bpb)
	invariant(i >= 0, "no standard block shape for %v", pf)
	if i < 0 {
		return driver.Dim3D{}
	}
	switch typ {
	case driver.Image2D:
		return ExtentElToPx(pf, stdShape2D[i])
	case driver.Image3D:
		return ExtentElToPx(pf, stdShape3D[i])
	}
	invariant(false, "no standard block shape for %v images", typ)
	return driver.Dim3D{}
}

// BlockShape returns the sparse block shape of surf in
// pixels.
// It is the logical extent of one tile, except for linear
// surfaces, whose block is synthesized as a run of whole
// rows that is exactly BlockSize bytes long.
func BlockShape(surf layout.Surface) driver.Dim3D {
	pf := surf.Format()
	tile := surf.Tile().Extent
	if surf.Tiling() != layout.Linear {
		return ExtentElToPx(pf, tile)
	}
	l := pf.Layout()
	bytes := l.Bytes()
	elemsPerRow := int(surf.RowPitch()) / (tile.Width * bytes)
	rowsPerBlock := BlockSize / (elemsPerRow * bytes)
	invariant(rowsPerBlock*elemsPerRow*bytes == BlockSize,
		"row pitch %d does not divide the block size", surf.RowPitch())
	return driver.Dim3D{
		Width:  elemsPerRow * l.BW,
		Height: rowsPerBlock * l.BH,
		Depth:  l.BD,
	}
}

// ResolveGranularity computes the sparse block shape of
// surf and compares it to the standard one.
// Surfaces that are neither linear nor 1D must either
// match the standard shape or be known to deviate from
// it.
func ResolveGranularity(info driver.DeviceInfo, surf layout.Surface, typ driver.ImageType) Granularity {
	g := Granularity{Extent: BlockShape(surf)}
	if typ == driver.Image1D || surf.Tiling() == layout.Linear {
		return g
	}
	std := StandardBlockShape(surf.Format(), typ)
	// YUV formats cannot use Tile64, which is what
	// gives standard shapes on newer generations.
	g.KnownNonstandard = info.VerX10 >= 125 && surf.Format().IsYUV()
	g.Standard = g.Extent == std
	invariant(g.Standard || g.KnownNonstandard,
		"%v block shape %v on %v tiling does not match standard shape %v",
		surf.Format(), g.Extent, surf.Tiling(), std)
	return g
}

// FormatProperties computes the sparse format properties
// of one aspect whose plane is laid out as surf.
func FormatProperties(info driver.DeviceInfo, aspect driver.Aspect, typ driver.ImageType, surf layout.Surface) SparseImageFormatProperties {
	l := surf.Format().Layout()
	invariant(l.PowerOfTwo(), "%v is not a power-of-two format", surf.Format())
	g := ResolveGranularity(info, surf, typ)
	var flags FormatFlags
	if !g.Standard && !g.KnownNonstandard {
		flags |= FlagNonstandardBlockSize
	}
	e := g.Extent
	if e.Width*e.Height*e.Depth*l.Bytes() != BlockSize {
		flags |= FlagSingleMiptail
	}
	return SparseImageFormatProperties{
		Aspect:      aspect,
		Granularity: e,
		Flags:       flags,
	}
}
