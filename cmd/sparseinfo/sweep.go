// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"context"
	"runtime"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"

	"github.com/gviegas/sparse"
	"github.com/gviegas/sparse/driver"
)

type sweepEntry struct {
	format driver.PixelFmt
	typ    driver.ImageType
	props  []sparse.SparseImageFormatProperties
	// Why the combination is not supported.
	err error
}

var sweepTypes = [...]driver.ImageType{driver.Image1D, driver.Image2D, driver.Image3D}

// sweep queries the sparse properties of every format and
// image type on info.
// Entries are ordered by format, then by type.
func sweep(ctx context.Context, info driver.DeviceInfo) ([]sweepEntry, error) {
	formats := driver.Formats()
	entries := make([]sweepEntry, len(formats)*len(sweepTypes))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i := range entries {
		e := &entries[i]
		e.format = formats[i/len(sweepTypes)]
		e.typ = sweepTypes[i%len(sweepTypes)]
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			props, err := sparse.PhysicalDeviceFormatProperties(info, &sparse.FormatQuery{
				Format:  e.format,
				Type:    e.typ,
				Samples: 1,
			})
			switch {
			case errors.IsAny(err, sparse.ErrFormatNotSupported, sparse.ErrFeatureNotPresent):
				e.err = err
			case err != nil:
				return errors.Wrapf(err, "%v %v", e.format, e.typ)
			default:
				e.props = props
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}
