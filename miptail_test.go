// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/layout"
)

func TestCalcMiptailWhole(t *testing.T) {
	// 4KiB tiles.
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(256, 256, 1), 3, 1, layout.TileY)
	require.Equal(t, uint64(112*4096), s.Size())
	mt := CalcMiptail(s, 0x10000)
	require.Equal(t, Miptail{Kind: WholeMiptail, FirstLevel: 0, Size: s.Size(), Offset: 0x10000}, mt)

	s = newSurf(t, driver.RGBA8un, driver.Image2D, dim(1024, 16, 1), 1, 1, layout.Linear)
	mt = CalcMiptail(s, 0)
	require.Equal(t, Miptail{Kind: WholeMiptail, Size: s.Size()}, mt)

	s = newSurf(t, driver.YUYV, driver.Image2D, dim(512, 512, 1), 4, 2, layout.Tile4)
	mt = CalcMiptail(s, 0)
	require.Equal(t, WholeMiptail, mt.Kind)
	require.Equal(t, s.Size(), mt.Size)
	require.Zero(t, mt.Stride)
}

func TestCalcMiptailPartial(t *testing.T) {
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(1024, 1024, 1), 11, 1, layout.Tile64)
	mt := CalcMiptail(s, 0x20000)
	require.Equal(t, Miptail{
		Kind:       PartialMiptail,
		FirstLevel: 4,
		Size:       BlockSize,
		Offset:     0x20000 + 0x780000,
		Stride:     0x790000,
	}, mt)

	// 256x256 tiles; level 2 is the first one that fits
	// in half a tile.
	s = newSurf(t, driver.R8un, driver.Image2D, dim(512, 512, 1), 10, 3, layout.ICLYs)
	mt = CalcMiptail(s, 0)
	require.Equal(t, Miptail{
		Kind:       PartialMiptail,
		FirstLevel: 2,
		Size:       BlockSize,
		Offset:     6 * BlockSize,
		Stride:     7 * BlockSize,
	}, mt)
	require.Equal(t, 3*mt.Stride, s.Size())
}

func TestCalcMiptailNone(t *testing.T) {
	s := newSurf(t, driver.R8un, driver.Image2D, dim(512, 512, 1), 2, 1, layout.ICLYs)
	mt := CalcMiptail(s, 0x40000)
	require.Equal(t, Miptail{Kind: NoMiptail, FirstLevel: 2}, mt)
}

// Tilings with standard shapes never produce a whole
// miptail when layers are tile-aligned.
func TestCalcMiptailStandard(t *testing.T) {
	for _, tl := range [...]layout.Tiling{layout.SKLYs, layout.ICLYs, layout.Tile64} {
		for _, pf := range [...]driver.PixelFmt{driver.R8un, driver.RG16f, driver.RGBA8un, driver.RGBA16f, driver.RGBA32f, driver.BC7} {
			for _, size := range [...]int{4, 100, 512, 2048} {
				for _, layers := range [...]int{1, 6} {
					sz := dim(size, size, 1)
					s := newSurf(t, pf, driver.Image2D, sz, layout.ComputeLevels(sz), layers, tl)
					mt := CalcMiptail(s, 0)
					require.NotEqual(t, WholeMiptail, mt.Kind, "%v %v %d %d", tl, pf, size, layers)
					if mt.Kind == PartialMiptail {
						require.Equal(t, uint64(BlockSize), mt.Size)
						require.Zero(t, mt.Offset%BlockSize)
					} else {
						require.Equal(t, s.Levels(), mt.FirstLevel)
					}
				}
			}
		}
	}
}

// badSurface misplaces subresources of an otherwise valid
// surface.
type badSurface struct {
	layout.Surface
	layer1X  int
	layer1   uint64
	miptailX int
}

func (s *badSurface) ImageOffset(level, layer, z int) (uint64, int, int) {
	off, x, y := s.Surface.ImageOffset(level, layer, z)
	switch {
	case layer == 1 && level == 0:
		return off + s.layer1, x + s.layer1X, y
	case level == s.MiptailStart():
		return off, x + s.miptailX, y
	}
	return off, x, y
}

func TestCalcMiptailMisaligned(t *testing.T) {
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(1024, 1024, 1), 11, 2, layout.Tile64)
	require.Equal(t, PartialMiptail, CalcMiptail(s, 0).Kind)

	mt := CalcMiptail(&badSurface{Surface: s, layer1X: 16}, 0)
	require.Equal(t, Miptail{Kind: WholeMiptail, Size: s.Size()}, mt)

	mt = CalcMiptail(&badSurface{Surface: s, layer1: 4096}, 0)
	require.Equal(t, Miptail{Kind: WholeMiptail, Size: s.Size()}, mt)

	require.Panics(t, func() { CalcMiptail(&badSurface{Surface: s, miptailX: 8}, 0) })
}

func TestMiptailKindString(t *testing.T) {
	require.Equal(t, "none", NoMiptail.String())
	require.Equal(t, "partial", PartialMiptail.String())
	require.Equal(t, "whole", WholeMiptail.String())
	require.Equal(t, "MiptailKind(9)", MiptailKind(9).String())
}
