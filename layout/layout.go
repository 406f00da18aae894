// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package layout describes how the subresources of an
// image surface are arranged in memory.
// It provides the tile geometry, row pitch and byte
// offsets that sparse binding is computed from.
package layout

import (
	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse/driver"
)

const prefix = "layout: "

// ErrNotSupported means that the format cannot be laid out
// with the requested tiling.
var ErrNotSupported = errors.New(prefix + "format not supported by tiling")

// Surface is the interface that describes the memory
// layout of one plane of an image.
type Surface interface {
	// Format returns the format of the plane.
	Format() driver.PixelFmt
	// Type returns the dimensionality of the image.
	Type() driver.ImageType
	// Tiling returns the tiling class.
	Tiling() Tiling
	// Tile returns the tile geometry.
	// Linear surfaces report a single element.
	Tile() TileInfo
	// RowPitch returns the distance in bytes between
	// rows of tiles (or of elements, for linear surfaces).
	RowPitch() uint64
	// Size returns the size of the surface in bytes.
	Size() uint64
	// Levels returns the number of mip levels.
	Levels() int
	// Layers returns the number of array layers.
	Layers() int
	// LevelExtent returns the size of a mip level in
	// pixels.
	LevelExtent(level int) driver.Dim3D
	// MiptailStart returns the first mip level packed in
	// the miptail, or Levels if there is none.
	MiptailStart() int
	// ImageOffset returns the byte offset of the tile that
	// contains the element slice z of the given
	// subresource, and the intra-tile offset (in
	// elements) of the subresource's origin.
	ImageOffset(level, layer, z int) (off uint64, x, y int)
}

// Param describes the parameters of a surface.
type Param struct {
	Format driver.PixelFmt
	Type   driver.ImageType
	// Size in pixels.
	// Unused dimensions must be set to 1.
	driver.Dim3D
	Levels int
	Layers int
	Tiling Tiling
}

// ComputeLevels returns the maximum number of mip levels
// for the given size.
func ComputeLevels(size driver.Dim3D) int {
	n := max(size.Width, size.Height, size.Depth)
	levels := 1
	for n > 1 {
		n >>= 1
		levels++
	}
	return levels
}

type level struct {
	off    uint64
	px     driver.Dim3D
	el     driver.Dim3D
	tilesY int
}

// Surf implements Surface.
type Surf struct {
	param  Param
	layout driver.Layout
	tile   TileInfo
	pitch  uint64
	tilesX int
	levels []level
	mtail  int
	stride uint64
	size   uint64
}

func divRoundUp(n, d int) int { return (n + d - 1) / d }

func alignUp(n, a uint64) uint64 { return (n + a - 1) / a * a }

// New lays out a surface.
// param.Format must be a single-plane format; planar
// images are described by one Surf per plane.
func New(param *Param) (s *Surf, err error) {
	var reason string
	switch {
	case param == nil:
		reason = "nil param"
	case !param.Format.Valid():
		reason = "invalid format"
	case len(param.Format.Planes()) != 1:
		reason = "multi-planar format"
	case param.Tiling < Linear || param.Tiling > Tile64:
		reason = "invalid tiling"
	case param.Width < 1, param.Height < 1, param.Depth < 1:
		reason = "invalid size"
	case param.Type == driver.Image1D && (param.Height != 1 || param.Depth != 1):
		reason = "invalid 1D size"
	case param.Type == driver.Image2D && param.Depth != 1:
		reason = "invalid 2D size"
	case param.Type < driver.Image1D || param.Type > driver.Image3D:
		reason = "invalid image type"
	case param.Levels < 1, param.Levels > ComputeLevels(param.Dim3D):
		reason = "invalid level count"
	case param.Layers < 1, param.Type == driver.Image3D && param.Layers != 1:
		reason = "invalid layer count"
	default:
		goto validParam
	}
	err = errors.New(prefix + reason)
	return
validParam:
	l := param.Format.Layout()
	if param.Tiling != Linear && !l.PowerOfTwo() {
		err = errors.Wrapf(ErrNotSupported, "%v with %v tiling", param.Format, param.Tiling)
		return
	}
	s = &Surf{
		param:  *param,
		layout: l,
		tile:   tileInfo(param.Tiling, param.Type, l.Bytes()),
		levels: make([]level, param.Levels),
	}
	for i := range s.levels {
		px := driver.Dim3D{
			Width:  max(1, param.Width>>i),
			Height: max(1, param.Height>>i),
			Depth:  max(1, param.Depth>>i),
		}
		s.levels[i] = level{
			px: px,
			el: driver.Dim3D{
				Width:  divRoundUp(px.Width, l.BW),
				Height: divRoundUp(px.Height, l.BH),
				Depth:  divRoundUp(px.Depth, l.BD),
			},
		}
	}
	if param.Tiling == Linear {
		s.layLinear()
	} else {
		s.layTiled()
	}
	s.size = s.stride * uint64(param.Layers)
	return
}

// layLinear lays out levels one after another, all of them
// sharing the row pitch of level 0.
func (s *Surf) layLinear() {
	s.pitch = alignUp(uint64(s.levels[0].el.Width*s.layout.Bytes()), 64)
	s.tilesX = s.levels[0].el.Width
	s.mtail = len(s.levels)
	var off uint64
	for i := range s.levels {
		lv := &s.levels[i]
		lv.off = off
		lv.tilesY = lv.el.Height
		off += s.pitch * uint64(lv.el.Height*lv.el.Depth)
	}
	s.stride = alignUp(off, 4096)
}

// layTiled lays out levels as whole rows of tiles.
// Every level uses the tile row width of level 0, so the
// row pitch is the same for the entire surface.
// For tilings with standard shapes, levels that fit in
// half a tile in every tiled dimension are packed in a
// single trailing tile.
func (s *Surf) layTiled() {
	te := s.tile.Extent
	s.tilesX = divRoundUp(s.levels[0].el.Width, te.Width)
	s.pitch = uint64(s.tilesX * te.Width * s.layout.Bytes())
	s.mtail = len(s.levels)
	if s.param.Tiling.StandardShapes() {
		fits := func(n, t int) bool { return t == 1 || n <= t/2 }
		for i, lv := range s.levels {
			if fits(lv.el.Width, te.Width) && fits(lv.el.Height, te.Height) && fits(lv.el.Depth, te.Depth) {
				s.mtail = i
				break
			}
		}
	}
	var off uint64
	for i := 0; i < s.mtail; i++ {
		lv := &s.levels[i]
		lv.off = off
		lv.tilesY = divRoundUp(lv.el.Height, te.Height)
		tilesZ := divRoundUp(lv.el.Depth, te.Depth)
		off += uint64(s.tilesX*lv.tilesY*tilesZ) * s.tile.Size
	}
	if s.mtail < len(s.levels) {
		for i := s.mtail; i < len(s.levels); i++ {
			s.levels[i].off = off
			s.levels[i].tilesY = 1
		}
		off += s.tile.Size
	}
	s.stride = off
}

// Format implements Surface.
func (s *Surf) Format() driver.PixelFmt { return s.param.Format }

// Type implements Surface.
func (s *Surf) Type() driver.ImageType { return s.param.Type }

// Tiling implements Surface.
func (s *Surf) Tiling() Tiling { return s.param.Tiling }

// Tile implements Surface.
func (s *Surf) Tile() TileInfo { return s.tile }

// RowPitch implements Surface.
func (s *Surf) RowPitch() uint64 { return s.pitch }

// Size implements Surface.
func (s *Surf) Size() uint64 { return s.size }

// Levels implements Surface.
func (s *Surf) Levels() int { return len(s.levels) }

// Layers implements Surface.
func (s *Surf) Layers() int { return s.param.Layers }

// LayerStride returns the distance in bytes between array
// layers.
func (s *Surf) LayerStride() uint64 { return s.stride }

// LevelExtent implements Surface.
func (s *Surf) LevelExtent(level int) driver.Dim3D { return s.levels[level].px }

// MiptailStart implements Surface.
func (s *Surf) MiptailStart() int { return s.mtail }

// ImageOffset implements Surface.
// It panics if level, layer or z is out of bounds.
func (s *Surf) ImageOffset(level, layer, z int) (off uint64, x, y int) {
	if level < 0 || level >= len(s.levels) || layer < 0 || layer >= s.param.Layers {
		panic(prefix + "subresource out of bounds")
	}
	lv := &s.levels[level]
	if z < 0 || z >= lv.el.Depth {
		panic(prefix + "slice out of bounds")
	}
	off = s.stride*uint64(layer) + lv.off
	switch {
	case s.param.Tiling == Linear:
		off += s.pitch * uint64(z*lv.el.Height)
	case level < s.mtail:
		te := s.tile.Extent
		off += uint64(z/te.Depth*s.tilesX*lv.tilesY) * s.tile.Size
	default:
		// Levels past the first one in the miptail are
		// placed side by side along x.
		if k := level - s.mtail; k > 0 {
			w := s.tile.Extent.Width
			x = min(w-w>>k, w-1)
		}
	}
	return
}
