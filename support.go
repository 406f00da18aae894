// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse/driver"
)

// CreateFlags are the sparse flags of a resource.
type CreateFlags int

// Create flags.
const (
	// The resource is bound through a Binding.
	CreateSparseBinding CreateFlags = 1 << iota
	// Regions of the resource can be bound separately.
	// Requires CreateSparseBinding.
	CreateSparseResidency
	// Memory may be bound to more than one range.
	CreateSparseAliased
)

// ImageTiling is the tiling requested for an image.
type ImageTiling int

// Image tilings.
const (
	TilingOptimal ImageTiling = iota
	TilingLinear
)

// CheckImageSupport reports whether an image can be
// created with the given parameters.
// It returns nil, or an error that wraps either
// ErrFormatNotSupported or ErrFeatureNotPresent.
// flags must include CreateSparseBinding.
func CheckImageSupport(info driver.DeviceInfo, flags CreateFlags, tiling ImageTiling, samples int, typ driver.ImageType, pf driver.PixelFmt) error {
	invariant(flags&CreateSparseBinding != 0, "sparse image without CreateSparseBinding")

	// Sparse binding alone supports everything that
	// non-sparse images do.
	if flags&CreateSparseResidency == 0 {
		return nil
	}

	if tiling == TilingLinear {
		return errors.Wrap(ErrFormatNotSupported, "linear tiling")
	}

	// TODO: Support multi-sample images.
	if samples != 1 {
		return errors.Wrapf(ErrFeatureNotPresent, "%d samples", samples)
	}

	// Depth/stencil is limited to 2D in tilings with
	// standard shapes, and a 2D view of a 3D image would
	// need a different swizzle.
	if pf.IsDepthStencil() {
		if info.VerX10 >= 125 {
			if typ == driver.Image3D {
				return errors.Wrapf(ErrFormatNotSupported, "%v %v image", pf, typ)
			}
		} else if typ != driver.Image2D {
			return errors.Wrapf(ErrFormatNotSupported, "%v %v image", pf, typ)
		}
	}

	if !pf.Valid() {
		return errors.Wrapf(ErrFormatNotSupported, "%v", pf)
	}
	for _, p := range pf.Planes() {
		if !p.Format.Valid() {
			return errors.Wrapf(ErrFormatNotSupported, "%v plane %v", pf, p.Aspect)
		}
		// Non-power-of-two elements cannot evenly fill a
		// block.
		if !p.Format.Layout().PowerOfTwo() {
			return errors.Wrapf(ErrFormatNotSupported, "%v has %d-bit elements", p.Format, p.Format.Layout().Bpb)
		}
	}
	return nil
}
