// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import "github.com/gviegas/sparse/driver"

// Conversions between pixels and elements.
// An element is one block of the format (BW×BH×BD pixels).
// No rounding is done.

// OffsetPxToEl converts an offset from pixels to elements.
func OffsetPxToEl(pf driver.PixelFmt, off driver.Off3D) driver.Off3D {
	l := pf.Layout()
	return driver.Off3D{X: off.X / l.BW, Y: off.Y / l.BH, Z: off.Z / l.BD}
}

// OffsetElToPx converts an offset from elements to pixels.
func OffsetElToPx(pf driver.PixelFmt, off driver.Off3D) driver.Off3D {
	l := pf.Layout()
	return driver.Off3D{X: off.X * l.BW, Y: off.Y * l.BH, Z: off.Z * l.BD}
}

// ExtentPxToEl converts an extent from pixels to elements.
func ExtentPxToEl(pf driver.PixelFmt, ext driver.Dim3D) driver.Dim3D {
	l := pf.Layout()
	return driver.Dim3D{Width: ext.Width / l.BW, Height: ext.Height / l.BH, Depth: ext.Depth / l.BD}
}

// ExtentElToPx converts an extent from elements to pixels.
func ExtentElToPx(pf driver.PixelFmt, ext driver.Dim3D) driver.Dim3D {
	l := pf.Layout()
	return driver.Dim3D{Width: ext.Width * l.BW, Height: ext.Height * l.BH, Depth: ext.Depth * l.BD}
}

// alignNPOT rounds v up to a multiple of a.
// a need not be a power of two.
func alignNPOT(v, a int) int { return (v + a - 1) / a * a }

// align64 rounds v up to a multiple of a, which must be a
// power of two.
func align64(v, a uint64) uint64 { return (v + a - 1) &^ (a - 1) }
