// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import "fmt"

// PixelFmt describes the format of a pixel.
type PixelFmt int

// FInvalid is an invalid pixel format.
const FInvalid PixelFmt = -1

// Pixel formats.
const (
	// Color, 8-bit channels.
	R8un PixelFmt = iota
	RG8un
	RGB8un
	RGBA8un
	RGBA8sRGB
	BGRA8un
	// Color, 16-bit channels.
	R16un
	RG16un
	R16f
	RG16f
	RGB16f
	RGBA16f
	// Color, 32-bit channels.
	R32f
	RG32f
	RGB32f
	RGBA32f
	// Block-compressed.
	BC1
	BC3
	BC7
	ETC2RGB8
	ASTC4x4
	ASTC8x8
	// YUV.
	YUYV
	NV12
	P010
	// Depth/Stencil.
	D16un
	X8D24un
	D32f
	S8ui
	D24unS8ui
	D32fS8ui

	fmtN
)

// Layout describes the block footprint of a format.
// A block (element) covers BW×BH×BD pixels and takes
// Bpb bits.
type Layout struct {
	Bpb        int
	BW, BH, BD int
	YUV        bool
	Compressed bool
}

// Bytes returns the size of one element in bytes.
func (l Layout) Bytes() int { return l.Bpb / 8 }

// PowerOfTwo reports whether Bpb is one of 8, 16, 32, 64
// or 128.
func (l Layout) PowerOfTwo() bool {
	switch l.Bpb {
	case 8, 16, 32, 64, 128:
		return true
	}
	return false
}

// Plane describes one memory plane of a format.
// SubX and SubY are the horizontal and vertical
// subsampling factors relative to the image size.
type Plane struct {
	Format PixelFmt
	Aspect Aspect
	SubX   int
	SubY   int
}

type fmtInfo struct {
	name    string
	layout  Layout
	aspects Aspect
	planes  []Plane
}

var fmtTable = [fmtN]fmtInfo{
	R8un:      {"R8un", Layout{Bpb: 8, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RG8un:     {"RG8un", Layout{Bpb: 16, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RGB8un:    {"RGB8un", Layout{Bpb: 24, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RGBA8un:   {"RGBA8un", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RGBA8sRGB: {"RGBA8sRGB", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	BGRA8un:   {"BGRA8un", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	R16un:     {"R16un", Layout{Bpb: 16, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RG16un:    {"RG16un", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	R16f:      {"R16f", Layout{Bpb: 16, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RG16f:     {"RG16f", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RGB16f:    {"RGB16f", Layout{Bpb: 48, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RGBA16f:   {"RGBA16f", Layout{Bpb: 64, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	R32f:      {"R32f", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RG32f:     {"RG32f", Layout{Bpb: 64, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RGB32f:    {"RGB32f", Layout{Bpb: 96, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	RGBA32f:   {"RGBA32f", Layout{Bpb: 128, BW: 1, BH: 1, BD: 1}, AspectColor, nil},
	BC1:       {"BC1", Layout{Bpb: 64, BW: 4, BH: 4, BD: 1, Compressed: true}, AspectColor, nil},
	BC3:       {"BC3", Layout{Bpb: 128, BW: 4, BH: 4, BD: 1, Compressed: true}, AspectColor, nil},
	BC7:       {"BC7", Layout{Bpb: 128, BW: 4, BH: 4, BD: 1, Compressed: true}, AspectColor, nil},
	ETC2RGB8:  {"ETC2RGB8", Layout{Bpb: 64, BW: 4, BH: 4, BD: 1, Compressed: true}, AspectColor, nil},
	ASTC4x4:   {"ASTC4x4", Layout{Bpb: 128, BW: 4, BH: 4, BD: 1, Compressed: true}, AspectColor, nil},
	ASTC8x8:   {"ASTC8x8", Layout{Bpb: 128, BW: 8, BH: 8, BD: 1, Compressed: true}, AspectColor, nil},
	YUYV:      {"YUYV", Layout{Bpb: 32, BW: 2, BH: 1, BD: 1, YUV: true}, AspectColor, nil},
	NV12: {"NV12", Layout{Bpb: 8, BW: 1, BH: 1, BD: 1, YUV: true}, AspectPlane0 | AspectPlane1, []Plane{
		{R8un, AspectPlane0, 1, 1},
		{RG8un, AspectPlane1, 2, 2},
	}},
	P010: {"P010", Layout{Bpb: 16, BW: 1, BH: 1, BD: 1, YUV: true}, AspectPlane0 | AspectPlane1, []Plane{
		{R16un, AspectPlane0, 1, 1},
		{RG16un, AspectPlane1, 2, 2},
	}},
	D16un:   {"D16un", Layout{Bpb: 16, BW: 1, BH: 1, BD: 1}, AspectDepth, nil},
	X8D24un: {"X8D24un", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectDepth, nil},
	D32f:    {"D32f", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectDepth, nil},
	S8ui:    {"S8ui", Layout{Bpb: 8, BW: 1, BH: 1, BD: 1}, AspectStencil, nil},
	D24unS8ui: {"D24unS8ui", Layout{Bpb: 32, BW: 1, BH: 1, BD: 1}, AspectDepth | AspectStencil, []Plane{
		{X8D24un, AspectDepth, 1, 1},
		{S8ui, AspectStencil, 1, 1},
	}},
	D32fS8ui: {"D32fS8ui", Layout{Bpb: 64, BW: 1, BH: 1, BD: 1}, AspectDepth | AspectStencil, []Plane{
		{D32f, AspectDepth, 1, 1},
		{S8ui, AspectStencil, 1, 1},
	}},
}

// Valid reports whether f is a known format.
func (f PixelFmt) Valid() bool { return f >= 0 && f < fmtN }

// Layout returns the block layout of f.
// For multi-planar formats, it describes the first plane;
// use Planes to get the layout of each plane.
// It panics if f is not valid.
func (f PixelFmt) Layout() Layout {
	if !f.Valid() {
		panic("invalid driver.PixelFmt")
	}
	return fmtTable[f].layout
}

// Aspects returns the aspects of f.
func (f PixelFmt) Aspects() Aspect {
	if !f.Valid() {
		return 0
	}
	return fmtTable[f].aspects
}

// IsYUV reports whether f is a YUV format.
func (f PixelFmt) IsYUV() bool { return f.Valid() && fmtTable[f].layout.YUV }

// IsDepthStencil reports whether f has a depth or a
// stencil aspect.
func (f PixelFmt) IsDepthStencil() bool {
	return f.Aspects()&(AspectDepth|AspectStencil) != 0
}

// Planes returns the memory planes of f.
// Single-plane formats have a single Plane whose format
// is f itself.
func (f PixelFmt) Planes() []Plane {
	if !f.Valid() {
		return nil
	}
	if p := fmtTable[f].planes; p != nil {
		return p
	}
	return []Plane{{f, fmtTable[f].aspects, 1, 1}}
}

// PlaneOf returns the plane of f that holds aspect a.
func (f PixelFmt) PlaneOf(a Aspect) (idx int, p Plane, ok bool) {
	for i, x := range f.Planes() {
		if x.Aspect&a != 0 {
			return i, x, true
		}
	}
	return
}

// String implements fmt.Stringer.
func (f PixelFmt) String() string {
	if !f.Valid() {
		return fmt.Sprintf("PixelFmt(%d)", int(f))
	}
	return fmtTable[f].name
}

// ParseFormat returns the format named s.
func ParseFormat(s string) (PixelFmt, bool) {
	for i := range fmtTable {
		if fmtTable[i].name == s {
			return PixelFmt(i), true
		}
	}
	return FInvalid, false
}

// Formats returns every valid format.
func Formats() []PixelFmt {
	s := make([]PixelFmt, fmtN)
	for i := range s {
		s[i] = PixelFmt(i)
	}
	return s
}
