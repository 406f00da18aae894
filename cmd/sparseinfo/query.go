// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse"
	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/layout"
)

type aspectReport struct {
	aspect driver.Aspect
	format driver.PixelFmt
	tiling layout.Tiling
	offset uint64
	size   uint64
	// Not set without sparse residency.
	req *sparse.SparseImageMemoryRequirements
}

type report struct {
	opts *options
	info driver.DeviceInfo
	// Why the image could not be created, if it was not
	// supported.
	support error
	size    uint64
	aspects []aspectReport

	bindAspect driver.Aspect
	// Operations relative to the start of the binding.
	ops     []driver.VMBind
	bindErr error
}

// recorder is a driver.GPU that keeps the operations of
// every successful VMBind call.
type recorder struct {
	driver.GPU
	ops []driver.VMBind
}

func (r *recorder) VMBind(ops []driver.VMBind) error {
	if err := r.GPU.VMBind(ops); err != nil {
		return err
	}
	r.ops = append(r.ops, ops...)
	return nil
}

// query creates the image described by opts on gpu and
// collects its layout.
// With opts.bind set, the region is bound to memory of the
// size of the image and the resulting operations are
// recorded.
func query(gpu driver.GPU, opts *options, log *slog.Logger) (*report, error) {
	rec := &recorder{GPU: gpu}
	d := sparse.NewDevice(rec, &sparse.Options{Logger: log})
	rep := &report{opts: opts, info: d.Info()}

	flags := sparse.CreateSparseBinding
	if opts.residency {
		flags |= sparse.CreateSparseResidency
	}
	tiling := sparse.TilingOptimal
	if opts.linear {
		tiling = sparse.TilingLinear
	}
	img, err := d.NewImage(&sparse.ImageParam{
		Format:  opts.format,
		Type:    opts.typ,
		Dim3D:   opts.size,
		Levels:  opts.levels,
		Layers:  opts.layers,
		Samples: opts.samples,
		Flags:   flags,
		Tiling:  tiling,
	})
	switch {
	case errors.IsAny(err, sparse.ErrFormatNotSupported, sparse.ErrFeatureNotPresent):
		rep.support = err
		return rep, nil
	case err != nil:
		return nil, err
	}
	defer img.Destroy()

	rep.size = img.Size()
	reqs := d.ImageMemoryRequirements(img)
	for i, p := range opts.format.Planes() {
		s, off, _ := img.Surface(p.Aspect)
		ar := aspectReport{
			aspect: p.Aspect,
			format: p.Format,
			tiling: s.Tiling(),
			offset: off,
			size:   s.Size(),
		}
		if reqs != nil {
			ar.req = &reqs[i]
		}
		rep.aspects = append(rep.aspects, ar)
	}

	if opts.bind == nil {
		return rep, nil
	}
	ib := *opts.bind
	if ib.Aspect == 0 {
		ib.Aspect = rep.aspects[0].aspect
	}
	rep.bindAspect = ib.Aspect
	mem, err := gpu.NewMemory(img.Size())
	if err != nil {
		return nil, err
	}
	ib.Mem = mem
	rec.ops = nil
	if rep.bindErr = d.BindImage(img, &ib); rep.bindErr != nil {
		return rep, nil
	}
	base := img.Binding(ib.Aspect).Address
	for _, op := range rec.ops {
		op.Address -= base
		rep.ops = append(rep.ops, op)
	}
	return rep, nil
}
