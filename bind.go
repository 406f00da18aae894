// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/layout"
)

// MemoryBind binds a byte range of a resource to memory.
// A nil Mem binds the range to nothing.
type MemoryBind struct {
	ResourceOffset uint64
	Size           uint64
	Mem            driver.Memory
	MemOffset      uint64
}

// ImageBind binds a region of one subresource of an image
// to memory.
// Offset and Extent are in pixels and must be aligned to
// the sparse block shape, except where the region ends at
// the edge of the subresource.
// Rows of blocks are bound to consecutive ranges of Mem,
// starting at MemOffset.
type ImageBind struct {
	Aspect    driver.Aspect
	Level     int
	Layer     int
	Offset    driver.Off3D
	Extent    driver.Dim3D
	Mem       driver.Memory
	MemOffset uint64
}

func invalidBind(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidBind, format, args...)
}

// TranslateMemoryBind converts mb into the operation that
// applies op to a range of b.
// When op is driver.OpUnbind, the memory of mb is
// ignored.
func TranslateMemoryBind(b *Binding, mb *MemoryBind, op driver.BindOp) ([]driver.VMBind, error) {
	switch {
	case mb.Size == 0:
		return nil, invalidBind("zero-sized bind")
	case mb.ResourceOffset%BlockSize != 0 || mb.Size%BlockSize != 0:
		return nil, invalidBind("range %#x+%#x is not block-aligned", mb.ResourceOffset, mb.Size)
	case !b.contains(mb.ResourceOffset, mb.Size):
		return nil, invalidBind("range %#x+%#x exceeds binding size %#x", mb.ResourceOffset, mb.Size, b.Size)
	}
	vb := driver.VMBind{
		Address: b.Address + mb.ResourceOffset,
		Size:    mb.Size,
		Op:      op,
	}
	if mb.Mem != nil && op == driver.OpBind {
		if mb.MemOffset%BlockSize != 0 {
			return nil, invalidBind("memory offset %#x is not block-aligned", mb.MemOffset)
		}
		if n := mb.Mem.Size(); mb.MemOffset > n || mb.Size > n-mb.MemOffset {
			return nil, invalidBind("memory range %#x+%#x exceeds memory size %#x", mb.MemOffset, mb.Size, n)
		}
		vb.Mem = mb.Mem
		vb.MemOffset = mb.MemOffset
	}
	return []driver.VMBind{vb}, nil
}

// checkImageBind validates ib against surf and returns
// the sparse block shape of surf.
func checkImageBind(surf layout.Surface, ib *ImageBind) (gran driver.Dim3D, err error) {
	switch {
	case !ib.Aspect.Single():
		err = invalidBind("aspect %v is not a single aspect", ib.Aspect)
		return
	case ib.Level < 0 || ib.Level >= surf.Levels():
		err = invalidBind("level %d out of range", ib.Level)
		return
	case ib.Layer < 0 || ib.Layer >= surf.Layers():
		err = invalidBind("layer %d out of range", ib.Layer)
		return
	}
	// Levels in the miptail can only be bound through
	// their opaque range.
	if mt := CalcMiptail(surf, 0); mt.Kind != NoMiptail && ib.Level >= mt.FirstLevel {
		err = invalidBind("level %d is in the miptail (first level %d)", ib.Level, mt.FirstLevel)
		return
	}
	gran = BlockShape(surf)
	ext := surf.LevelExtent(ib.Level)
	switch {
	case ib.Extent.Width < 1 || ib.Extent.Height < 1 || ib.Extent.Depth < 1:
		err = invalidBind("empty extent %v", ib.Extent)
		return
	case ib.Offset.X < 0 || ib.Offset.Y < 0 || ib.Offset.Z < 0:
		err = invalidBind("negative offset %v", ib.Offset)
		return
	case ib.Offset.X%gran.Width != 0 || ib.Offset.Y%gran.Height != 0 || ib.Offset.Z%gran.Depth != 0:
		err = invalidBind("offset %v is not aligned to granularity %v", ib.Offset, gran)
		return
	// Compared by difference so that offset+extent cannot
	// overflow.
	case ib.Offset.X > ext.Width || ib.Extent.Width > ext.Width-ib.Offset.X,
		ib.Offset.Y > ext.Height || ib.Extent.Height > ext.Height-ib.Offset.Y,
		ib.Offset.Z > ext.Depth || ib.Extent.Depth > ext.Depth-ib.Offset.Z:
		err = invalidBind("region %v+%v exceeds level %d extent %v", ib.Offset, ib.Extent, ib.Level, ext)
		return
	}
	end := driver.Off3D{
		X: ib.Offset.X + ib.Extent.Width,
		Y: ib.Offset.Y + ib.Extent.Height,
		Z: ib.Offset.Z + ib.Extent.Depth,
	}
	// Edges inside the subresource must be aligned too.
	if end.X != ext.Width && end.X%gran.Width != 0 ||
		end.Y != ext.Height && end.Y%gran.Height != 0 ||
		end.Z != ext.Depth && end.Z%gran.Depth != 0 {
		err = invalidBind("extent %v is not aligned to granularity %v", ib.Extent, gran)
	}
	return
}

// TranslateImageBind converts ib into the operations that
// apply op to a region of the plane laid out as surf,
// which starts at planeOffset within b.
//
// The region is rounded up to whole blocks on every axis.
// One operation is emitted per row of blocks of each
// depth slice, since a row is contiguous in tiled address
// order while the region generally is not.
// When op is driver.OpUnbind, the memory of ib is
// ignored.
func TranslateImageBind(b *Binding, surf layout.Surface, planeOffset uint64, ib *ImageBind, op driver.BindOp) ([]driver.VMBind, error) {
	pf := surf.Format()
	gran, err := checkImageBind(surf, ib)
	if err != nil {
		return nil, err
	}

	bytes := uint64(pf.Layout().Bytes())
	blockEl := ExtentPxToEl(pf, gran)
	offEl := OffsetPxToEl(pf, ib.Offset)
	extEl := ExtentPxToEl(pf, driver.Dim3D{
		Width:  alignNPOT(ib.Extent.Width, gran.Width),
		Height: alignNPOT(ib.Extent.Height, gran.Height),
		Depth:  alignNPOT(ib.Extent.Depth, gran.Depth),
	})

	blockSize := uint64(blockEl.Width*blockEl.Height*blockEl.Depth) * bytes
	invariant(blockSize == BlockSize, "block of %v is %d bytes", gran, blockSize)
	blocksPerRow := surf.RowPitch() / bytes / uint64(blockEl.Width)
	lineSize := uint64(extEl.Width/blockEl.Width) * blockSize
	invariant(lineSize != 0, "empty row for extent %v", extEl)

	rows := (extEl.Height + blockEl.Height - 1) / blockEl.Height
	slices := (extEl.Depth + blockEl.Depth - 1) / blockEl.Depth
	mem := ib.Mem
	memOff := ib.MemOffset
	if op == driver.OpUnbind {
		mem = nil
		memOff = 0
	}
	if mem != nil {
		total := lineSize * uint64(rows*slices)
		if memOff%BlockSize != 0 {
			return nil, invalidBind("memory offset %#x is not block-aligned", memOff)
		}
		if n := mem.Size(); memOff > n || total > n-memOff {
			return nil, invalidBind("memory range %#x+%#x exceeds memory size %#x", memOff, total, n)
		}
	}

	ops := make([]driver.VMBind, 0, rows*slices)
	for z := offEl.Z; z < offEl.Z+extEl.Depth; z += blockEl.Depth {
		sub, sx, sy := surf.ImageOffset(ib.Level, ib.Layer, z)
		invariant(sx == 0 && sy == 0, "subresource (%d, %d, %d) starts at (%d, %d) within a tile", ib.Level, ib.Layer, z, sx, sy)
		invariant(sub%blockSize == 0, "subresource offset %#x is not block-aligned", sub)

		for y := offEl.Y; y < offEl.Y+extEl.Height; y += blockEl.Height {
			line := sub + uint64(y/blockEl.Height)*blocksPerRow*blockSize
			off := planeOffset + line + uint64(offEl.X/blockEl.Width)*blockSize
			invariant(b.contains(off, lineSize), "row %#x+%#x exceeds binding size %#x", off, lineSize, b.Size)
			vb := driver.VMBind{
				Address: b.Address + off,
				Size:    lineSize,
				Op:      op,
			}
			if mem != nil {
				vb.Mem = mem
				vb.MemOffset = memOff
				memOff += lineSize
			}
			ops = append(ops, vb)
		}
	}
	return ops, nil
}

// BindResource binds a range of b to memory.
func (d *Device) BindResource(b *Binding, mb *MemoryBind) error {
	ops, err := TranslateMemoryBind(b, mb, driver.OpBind)
	if err != nil {
		return err
	}
	return d.exec(ops)
}

// UnbindResource unbinds a range of b.
func (d *Device) UnbindResource(b *Binding, mb *MemoryBind) error {
	ops, err := TranslateMemoryBind(b, mb, driver.OpUnbind)
	if err != nil {
		return err
	}
	return d.exec(ops)
}

// BindImage binds a region of img to memory.
func (d *Device) BindImage(img *Image, ib *ImageBind) error {
	ops, err := img.translate(ib, driver.OpBind)
	if err != nil {
		return err
	}
	return d.exec(ops)
}

// UnbindImage unbinds a region of img.
func (d *Device) UnbindImage(img *Image, ib *ImageBind) error {
	ops, err := img.translate(ib, driver.OpUnbind)
	if err != nil {
		return err
	}
	return d.exec(ops)
}
