// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package layout

import (
	"fmt"

	"github.com/gviegas/sparse/driver"
)

// Tiling is the class of memory layout of a surface.
type Tiling int

// Tilings.
const (
	// Rows of elements, one after another.
	Linear Tiling = iota
	// 4KiB tiles of 512B×8 rows.
	TileX
	// 4KiB tiles of 16B×32 rows (column-major OWords).
	TileY
	// 4KiB tiles with the Y shape (newer generations).
	Tile4
	// 64KiB tiles, gfx9 layout.
	SKLYs
	// 64KiB tiles, gfx11/gfx12 layout.
	ICLYs
	// 64KiB tiles, gfx12.5+ layout.
	Tile64
)

var tilingNames = [...]string{
	Linear: "linear",
	TileX:  "X",
	TileY:  "Y",
	Tile4:  "4",
	SKLYs:  "SKL-Ys",
	ICLYs:  "ICL-Ys",
	Tile64: "64",
}

// String implements fmt.Stringer.
func (t Tiling) String() string {
	if t < 0 || int(t) >= len(tilingNames) {
		return fmt.Sprintf("Tiling(%d)", int(t))
	}
	return tilingNames[t]
}

// ParseTiling returns the tiling named s.
func ParseTiling(s string) (Tiling, bool) {
	for i, n := range tilingNames {
		if n == s {
			return Tiling(i), true
		}
	}
	return 0, false
}

// StandardShapes reports whether t produces the standard
// sparse block shapes. These are the 64KiB tilings.
func (t Tiling) StandardShapes() bool {
	switch t {
	case SKLYs, ICLYs, Tile64:
		return true
	}
	return false
}

// Choose selects the tiling that a plane of format pf
// would use on the given device.
// Formats whose elements are not power-of-two sized are
// always linear.
func Choose(info driver.DeviceInfo, pf driver.PixelFmt, linear bool) Tiling {
	if linear {
		return Linear
	}
	for _, p := range pf.Planes() {
		if !p.Format.Layout().PowerOfTwo() {
			return Linear
		}
	}
	switch {
	case info.VerX10 >= 125:
		// Tile64 does not support YUV.
		if pf.IsYUV() {
			return Tile4
		}
		return Tile64
	case info.VerX10 >= 110:
		return ICLYs
	}
	return SKLYs
}

// TileInfo describes one tile of a surface.
type TileInfo struct {
	// Logical extent in elements.
	Extent driver.Dim3D
	// Size in bytes.
	Size uint64
}

// 64KiB tile extents in elements, indexed by log2 of the
// element size in bytes.
var (
	tile1D = [5]driver.Dim3D{
		dim(65536, 1, 1), dim(32768, 1, 1), dim(16384, 1, 1), dim(8192, 1, 1), dim(4096, 1, 1),
	}
	tile2D = [5]driver.Dim3D{
		dim(256, 256, 1), dim(256, 128, 1), dim(128, 128, 1), dim(128, 64, 1), dim(64, 64, 1),
	}
	tile3D = [5]driver.Dim3D{
		dim(64, 32, 32), dim(32, 32, 32), dim(32, 32, 16), dim(32, 16, 16), dim(16, 16, 16),
	}
)

func dim(w, h, d int) driver.Dim3D { return driver.Dim3D{Width: w, Height: h, Depth: d} }

func log2(n int) (i int) {
	for n > 1 {
		n >>= 1
		i++
	}
	return
}

// tileInfo returns the tile of a surface with the given
// tiling, dimensionality and element size in bytes.
// Tiled surfaces require a power-of-two element size.
func tileInfo(t Tiling, typ driver.ImageType, bytes int) TileInfo {
	switch t {
	case Linear:
		return TileInfo{dim(1, 1, 1), uint64(bytes)}
	case TileX:
		return TileInfo{dim(512/bytes, 8, 1), 4096}
	case TileY, Tile4:
		return TileInfo{dim(128/bytes, 32, 1), 4096}
	}
	i := log2(bytes)
	switch typ {
	case driver.Image1D:
		return TileInfo{tile1D[i], 65536}
	case driver.Image3D:
		return TileInfo{tile3D[i], 65536}
	}
	return TileInfo{tile2D[i], 65536}
}
