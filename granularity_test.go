// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/layout"
)

func TestStandardBlockShape(t *testing.T) {
	for _, x := range [...]struct {
		pf   driver.PixelFmt
		typ  driver.ImageType
		want driver.Dim3D
	}{
		{driver.R8un, driver.Image2D, dim(256, 256, 1)},
		{driver.RG8un, driver.Image2D, dim(256, 128, 1)},
		{driver.RGBA8un, driver.Image2D, dim(128, 128, 1)},
		{driver.RGBA16f, driver.Image2D, dim(128, 64, 1)},
		{driver.RGBA32f, driver.Image2D, dim(64, 64, 1)},
		{driver.R8un, driver.Image3D, dim(64, 32, 32)},
		{driver.R16un, driver.Image3D, dim(32, 32, 32)},
		{driver.RGBA8un, driver.Image3D, dim(32, 32, 16)},
		{driver.RG32f, driver.Image3D, dim(32, 16, 16)},
		{driver.RGBA32f, driver.Image3D, dim(16, 16, 16)},
		// Compressed shapes are scaled by the block.
		{driver.BC1, driver.Image2D, dim(512, 256, 1)},
		{driver.ASTC8x8, driver.Image2D, dim(512, 512, 1)},
		{driver.YUYV, driver.Image2D, dim(256, 128, 1)},
	} {
		require.Equal(t, x.want, StandardBlockShape(x.pf, x.typ), "%v %v", x.pf, x.typ)
	}
	require.Panics(t, func() { StandardBlockShape(driver.RGBA8un, driver.Image1D) })
	require.Panics(t, func() { StandardBlockShape(driver.RGB8un, driver.Image2D) })
}

func TestResolveGranularity(t *testing.T) {
	// 32-bit texels, 64KiB tiles and a row pitch of
	// 2048 bytes.
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(512, 512, 1), 1, 1, layout.Tile64)
	require.Equal(t, uint64(2048), s.RowPitch())
	g := ResolveGranularity(gen125, s, driver.Image2D)
	require.Equal(t, Granularity{Extent: dim(128, 128, 1), Standard: true}, g)

	s = newSurf(t, driver.RGBA16f, driver.Image2D, dim(512, 512, 1), 1, 1, layout.SKLYs)
	g = ResolveGranularity(gen90, s, driver.Image2D)
	require.Equal(t, Granularity{Extent: dim(128, 64, 1), Standard: true}, g)

	s = newSurf(t, driver.RGBA8un, driver.Image3D, dim(64, 64, 64), 1, 1, layout.ICLYs)
	g = ResolveGranularity(gen120, s, driver.Image3D)
	require.Equal(t, Granularity{Extent: dim(32, 32, 16), Standard: true}, g)

	// YUV cannot use Tile64.
	s = newSurf(t, driver.YUYV, driver.Image2D, dim(256, 256, 1), 1, 1, layout.Tile4)
	g = ResolveGranularity(gen125, s, driver.Image2D)
	require.Equal(t, Granularity{Extent: dim(64, 32, 1), KnownNonstandard: true}, g)
	s = newSurf(t, driver.YUYV, driver.Image2D, dim(256, 256, 1), 1, 1, layout.ICLYs)
	g = ResolveGranularity(gen120, s, driver.Image2D)
	require.Equal(t, Granularity{Extent: dim(256, 128, 1), Standard: true}, g)

	// 1D has no standard shape.
	s = newSurf(t, driver.R8un, driver.Image1D, dim(4096, 1, 1), 1, 1, layout.Tile64)
	g = ResolveGranularity(gen125, s, driver.Image1D)
	require.Equal(t, Granularity{Extent: dim(65536, 1, 1)}, g)
}

func TestResolveGranularityMismatch(t *testing.T) {
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(256, 256, 1), 1, 1, layout.TileY)
	require.Panics(t, func() { ResolveGranularity(gen125, s, driver.Image2D) })
}

func TestBlockShapeLinear(t *testing.T) {
	// Row pitch of 4096 bytes, 32-bit texels.
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(1024, 16, 1), 1, 1, layout.Linear)
	require.Equal(t, uint64(4096), s.RowPitch())
	require.Equal(t, dim(1024, 16, 1), BlockShape(s))
	g := ResolveGranularity(gen125, s, driver.Image2D)
	require.False(t, g.Standard)
	require.False(t, g.KnownNonstandard)
	p := FormatProperties(gen125, driver.AspectColor, driver.Image2D, s)
	require.Equal(t, SparseImageFormatProperties{driver.AspectColor, dim(1024, 16, 1), FlagNonstandardBlockSize}, p)

	s = newSurf(t, driver.RG16f, driver.Image2D, dim(4096, 8, 1), 1, 1, layout.Linear)
	require.Equal(t, dim(4096, 4, 1), BlockShape(s))

	// 320-byte rows do not divide a block.
	s = newSurf(t, driver.RGBA8un, driver.Image2D, dim(80, 16, 1), 1, 1, layout.Linear)
	require.Panics(t, func() { BlockShape(s) })
}

func TestFormatProperties(t *testing.T) {
	for _, x := range [...]struct {
		info driver.DeviceInfo
		pf   driver.PixelFmt
		typ  driver.ImageType
		t    layout.Tiling
		want SparseImageFormatProperties
	}{
		{gen125, driver.RGBA8un, driver.Image2D, layout.Tile64, SparseImageFormatProperties{driver.AspectColor, dim(128, 128, 1), 0}},
		{gen125, driver.R8un, driver.Image3D, layout.Tile64, SparseImageFormatProperties{driver.AspectColor, dim(64, 32, 32), 0}},
		{gen125, driver.R8un, driver.Image1D, layout.Tile64, SparseImageFormatProperties{driver.AspectColor, dim(65536, 1, 1), FlagNonstandardBlockSize}},
		{gen125, driver.YUYV, driver.Image2D, layout.Tile4, SparseImageFormatProperties{driver.AspectColor, dim(64, 32, 1), FlagSingleMiptail}},
		// The pixel footprint of compressed blocks is not
		// BlockSize bytes.
		{gen125, driver.BC1, driver.Image2D, layout.Tile64, SparseImageFormatProperties{driver.AspectColor, dim(512, 256, 1), FlagSingleMiptail}},
		{gen90, driver.D16un, driver.Image2D, layout.SKLYs, SparseImageFormatProperties{driver.AspectColor, dim(256, 128, 1), 0}},
	} {
		size := dim(256, 256, 1)
		switch x.typ {
		case driver.Image1D:
			size = dim(256, 1, 1)
		case driver.Image3D:
			size = dim(64, 64, 64)
		}
		s := newSurf(t, x.pf, x.typ, size, 1, 1, x.t)
		p := FormatProperties(x.info, driver.AspectColor, x.typ, s)
		require.Equal(t, x.want, p, "%v %v %v", x.pf, x.typ, x.t)
	}
}

// Every accepted format either has blocks of BlockSize
// bytes or requires a single miptail.
func TestFormatPropertiesBlockSize(t *testing.T) {
	for _, info := range [...]driver.DeviceInfo{gen90, gen120, gen125} {
		for _, typ := range [...]driver.ImageType{driver.Image1D, driver.Image2D, driver.Image3D} {
			for _, pf := range driver.Formats() {
				props, err := PhysicalDeviceFormatProperties(info, &FormatQuery{pf, typ, 1, TilingOptimal})
				if err != nil {
					continue
				}
				require.Len(t, props, len(pf.Planes()))
				for i, p := range props {
					e := p.Granularity
					bytes := pf.Planes()[i].Format.Layout().Bytes()
					if e.Width*e.Height*e.Depth*bytes != BlockSize {
						require.NotZero(t, p.Flags&FlagSingleMiptail, "%v %v %v", info.VerX10, typ, pf)
					}
				}
			}
		}
	}
}

func TestFormatFlagsString(t *testing.T) {
	require.Equal(t, "none", FormatFlags(0).String())
	require.Equal(t, "single-miptail", FlagSingleMiptail.String())
	require.Equal(t, "single-miptail|nonstandard-block-size", (FlagSingleMiptail | FlagNonstandardBlockSize).String())
}
