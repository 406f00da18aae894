// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/layout"
)

// SparseImageMemoryRequirements describes the sparse
// block and the miptail of one aspect of an image.
type SparseImageMemoryRequirements struct {
	FormatProperties  SparseImageFormatProperties
	MipTailFirstLevel int
	MipTailSize       uint64
	MipTailOffset     uint64
	MipTailStride     uint64
}

// ImageParam describes the parameters of a sparse image.
type ImageParam struct {
	Format driver.PixelFmt
	Type   driver.ImageType
	// Size in pixels.
	// Unused dimensions must be set to 1.
	driver.Dim3D
	Levels  int
	Layers  int
	Samples int
	Flags   CreateFlags
	Tiling  ImageTiling
	// Disjoint gives each plane a Binding of its own.
	Disjoint bool
	// ClientAddress, if not zero, is the address that the
	// binding must be placed at.
	// It cannot be used with Disjoint.
	ClientAddress uint64
}

type imagePlane struct {
	driver.Plane
	surf    *layout.Surf
	offset  uint64
	binding *Binding
}

// Image is a sparse image.
type Image struct {
	dev      *Device
	param    ImageParam
	planes   []imagePlane
	bindings []*Binding
}

var (
	_ driver.Destroyer = (*Image)(nil)
	_ driver.Destroyer = (*Buffer)(nil)
)

// NewImage creates a sparse image.
// Each plane is laid out at a BlockSize-aligned offset of
// the image's Binding (or at offset 0 of its own, for
// disjoint images), which is bound to nothing.
func (d *Device) NewImage(param *ImageParam) (img *Image, err error) {
	var reason string
	switch {
	case param == nil:
		reason = "nil param"
	case !param.Format.Valid():
		reason = "invalid format"
	case param.Flags&CreateSparseBinding == 0:
		reason = "missing CreateSparseBinding flag"
	case param.Samples < 1:
		reason = "invalid sample count"
	case param.Disjoint && param.ClientAddress != 0:
		reason = "client address for disjoint image"
	default:
		goto validParam
	}
	err = errors.New(prefix + reason)
	return
validParam:
	if err = CheckImageSupport(d.info, param.Flags, param.Tiling, param.Samples, param.Type, param.Format); err != nil {
		return
	}
	// Surfaces are never multisampled, even though
	// CheckImageSupport accepts multisampled images that
	// lack CreateSparseResidency.
	if param.Samples != 1 {
		err = errors.Wrapf(ErrFeatureNotPresent, "%d samples", param.Samples)
		return
	}

	img = &Image{dev: d, param: *param}
	var end uint64
	for _, p := range param.Format.Planes() {
		s, err := layout.New(&layout.Param{
			Format: p.Format,
			Type:   param.Type,
			Dim3D: driver.Dim3D{
				Width:  (param.Width + p.SubX - 1) / p.SubX,
				Height: (param.Height + p.SubY - 1) / p.SubY,
				Depth:  param.Depth,
			},
			Levels: param.Levels,
			Layers: param.Layers,
			Tiling: layout.Choose(d.info, p.Format, param.Tiling == TilingLinear),
		})
		if err != nil {
			return nil, errors.Wrapf(err, prefix+"plane %v", p.Aspect)
		}
		var off uint64
		if !param.Disjoint {
			off = align64(end, BlockSize)
			end = off + s.Size()
		}
		img.planes = append(img.planes, imagePlane{p, s, off, nil})
	}

	var flags driver.VAFlags
	if param.ClientAddress != 0 {
		flags |= driver.VAClientVisible
	}
	if !param.Disjoint {
		b, err := d.InitBinding(end, flags, param.ClientAddress)
		if err != nil {
			return nil, err
		}
		img.bindings = []*Binding{b}
		for i := range img.planes {
			img.planes[i].binding = b
		}
	} else {
		for i := range img.planes {
			b, err := d.InitBinding(img.planes[i].surf.Size(), flags, 0)
			if err != nil {
				img.Destroy()
				return nil, err
			}
			img.bindings = append(img.bindings, b)
			img.planes[i].binding = b
		}
	}
	d.log.Debug(prefix+"image created", "format", param.Format, "size", param.Dim3D.String(), "planes", len(img.planes))
	return
}

// Param returns the parameters of img.
func (img *Image) Param() ImageParam { return img.param }

// plane returns the plane of img that holds aspect.
func (img *Image) plane(aspect driver.Aspect) (*imagePlane, error) {
	if !aspect.Single() {
		return nil, errors.Wrapf(ErrInvalidBind, "aspect %v is not a single aspect", aspect)
	}
	for i := range img.planes {
		if img.planes[i].Aspect == aspect {
			return &img.planes[i], nil
		}
	}
	return nil, errors.Wrapf(ErrInvalidBind, "%v has no %v aspect", img.param.Format, aspect)
}

// Binding returns the Binding that holds aspect, or nil if
// img has no such aspect.
// Images that are not disjoint have a single Binding.
func (img *Image) Binding(aspect driver.Aspect) *Binding {
	p, err := img.plane(aspect)
	if err != nil {
		return nil
	}
	return p.binding
}

// Surface returns the layout of the plane that holds
// aspect and its offset within the plane's Binding.
func (img *Image) Surface(aspect driver.Aspect) (s layout.Surface, offset uint64, ok bool) {
	p, err := img.plane(aspect)
	if err != nil {
		return
	}
	return p.surf, p.offset, true
}

// Size returns the total size of the bindings of img.
func (img *Image) Size() (n uint64) {
	for _, b := range img.bindings {
		n += b.Size
	}
	return
}

func (img *Image) translate(ib *ImageBind, op driver.BindOp) ([]driver.VMBind, error) {
	p, err := img.plane(ib.Aspect)
	if err != nil {
		return nil, err
	}
	if img.param.Flags&CreateSparseResidency == 0 {
		return nil, errors.Wrap(ErrInvalidBind, "image bind without CreateSparseResidency")
	}
	return TranslateImageBind(p.binding, p.surf, p.offset, ib, op)
}

// Destroy releases the bindings of img.
// Bindings that the backend fails to unbind are kept, so
// that a later call can retry, and the failure is logged.
func (img *Image) Destroy() {
	kept := img.bindings[:0]
	for _, b := range img.bindings {
		if err := img.dev.FreeBinding(b); err != nil {
			img.dev.log.Error(prefix+"failed to destroy image", "addr", b.Address, "err", err)
			kept = append(kept, b)
		}
	}
	if len(kept) == 0 {
		kept = nil
	}
	img.bindings = kept
}

// ImageMemoryRequirements returns the sparse memory
// requirements of each aspect of img.
// Images created without CreateSparseResidency have none.
func (d *Device) ImageMemoryRequirements(img *Image) []SparseImageMemoryRequirements {
	if img.param.Flags&CreateSparseResidency == 0 {
		return nil
	}
	reqs := make([]SparseImageMemoryRequirements, 0, len(img.planes))
	for i := range img.planes {
		p := &img.planes[i]
		mt := CalcMiptail(p.surf, p.offset)
		reqs = append(reqs, SparseImageMemoryRequirements{
			FormatProperties:  FormatProperties(d.info, p.Aspect, img.param.Type, p.surf),
			MipTailFirstLevel: mt.FirstLevel,
			MipTailSize:       mt.Size,
			MipTailOffset:     mt.Offset,
			MipTailStride:     mt.Stride,
		})
	}
	return reqs
}

// FormatQuery describes the images that
// PhysicalDeviceFormatProperties reports on.
type FormatQuery struct {
	Format  driver.PixelFmt
	Type    driver.ImageType
	Samples int
	Tiling  ImageTiling
}

// PhysicalDeviceFormatProperties returns the sparse
// properties of each aspect of images described by q.
// Combinations that do not support sparse residency
// produce an error from CheckImageSupport.
func PhysicalDeviceFormatProperties(info driver.DeviceInfo, q *FormatQuery) ([]SparseImageFormatProperties, error) {
	err := CheckImageSupport(info, CreateSparseBinding|CreateSparseResidency, q.Tiling, q.Samples, q.Type, q.Format)
	if err != nil {
		return nil, err
	}
	var props []SparseImageFormatProperties
	for _, p := range q.Format.Planes() {
		s, err := layout.New(&layout.Param{
			Format: p.Format,
			Type:   q.Type,
			Dim3D:  driver.Dim3D{Width: 1, Height: 1, Depth: 1},
			Levels: 1,
			Layers: 1,
			Tiling: layout.Choose(info, p.Format, false),
		})
		if err != nil {
			return nil, errors.Wrapf(err, prefix+"plane %v", p.Aspect)
		}
		props = append(props, FormatProperties(info, p.Aspect, q.Type, s))
	}
	return props, nil
}

// Buffer is a sparse buffer.
type Buffer struct {
	dev     *Device
	binding *Binding
	size    uint64
}

// BufferRequirements returns the size and the alignment of
// the memory that a sparse buffer of the given size needs.
func BufferRequirements(size uint64) (alignedSize, alignment uint64) {
	return align64(size, BlockSize), BlockSize
}

// NewBuffer creates a sparse buffer whose Binding is bound
// to nothing.
// If clientAddr is not zero, the binding is placed at that
// address.
func (d *Device) NewBuffer(size uint64, flags CreateFlags, clientAddr uint64) (*Buffer, error) {
	if flags&CreateSparseBinding == 0 {
		return nil, errors.New(prefix + "missing CreateSparseBinding flag")
	}
	var vaFlags driver.VAFlags
	if clientAddr != 0 {
		vaFlags |= driver.VAClientVisible
	}
	b, err := d.InitBinding(size, vaFlags, clientAddr)
	if err != nil {
		return nil, err
	}
	return &Buffer{d, b, size}, nil
}

// Binding returns the Binding of buf.
func (buf *Buffer) Binding() *Binding { return buf.binding }

// Size returns the size that buf was created with.
func (buf *Buffer) Size() uint64 { return buf.size }

// Destroy releases the binding of buf.
func (buf *Buffer) Destroy() {
	if buf.binding == nil {
		return
	}
	if err := buf.dev.FreeBinding(buf.binding); err != nil {
		buf.dev.log.Error(prefix+"failed to destroy buffer", "err", err)
		return
	}
	buf.binding = nil
}
