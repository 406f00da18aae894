// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package sparse implements sparse binding of buffers and
// images.
//
// Every sparse resource owns a private range of GPU
// virtual address space. Binding a resource (or a region
// of an image) to memory is translated into a list of
// driver.VMBind operations over that range, each of them
// aligned to BlockSize.
//
// The geometry of an image comes from its layout.Surface:
// the sparse block shape is derived from the tile shape,
// and binds of pixel regions are decomposed into rows of
// blocks, which are contiguous in tiled address order.
package sparse

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse/driver"
)

// BlockSize is the granularity of sparse binding.
// Every address and size that reaches the backend is a
// multiple of it.
const BlockSize = 65536

const prefix = "sparse: "

// ErrFormatNotSupported means that the format, tiling or
// image type cannot be used with sparse residency.
var ErrFormatNotSupported = errors.New(prefix + "format not supported")

// ErrFeatureNotPresent means that the combination is valid
// but not implemented (e.g., multi-sample images).
var ErrFeatureNotPresent = errors.New(prefix + "feature not present")

// ErrInvalidBind means that a bind request does not
// describe a valid range of the resource.
var ErrInvalidBind = errors.New(prefix + "invalid bind")

// ErrUnknown means that the backend failed to release a
// binding.
var ErrUnknown = errors.New(prefix + "unknown error")

// SubmitMode controls how the operations of a single bind
// request reach the backend.
type SubmitMode int

// Submit modes.
const (
	// SubmitBatch submits all operations of a request in
	// a single driver.GPU.VMBind call. The backend applies
	// them all or none.
	SubmitBatch SubmitMode = iota
	// SubmitEach submits one operation per call and stops
	// at the first failure. Operations already applied
	// are not undone; the returned *PartialBindError
	// reports how many there were.
	SubmitEach
)

// String implements fmt.Stringer.
func (m SubmitMode) String() string {
	switch m {
	case SubmitBatch:
		return "batch"
	case SubmitEach:
		return "each"
	}
	return "SubmitMode(?)"
}

// Options configures a Device.
type Options struct {
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	Submit SubmitMode
}

// Device binds sparse resources through a driver.GPU.
// It holds no locks: callers must not bind overlapping
// ranges concurrently, and must fence binds against GPU
// work that reads the affected ranges.
type Device struct {
	gpu    driver.GPU
	info   driver.DeviceInfo
	log    *slog.Logger
	submit SubmitMode
}

// NewDevice creates a Device that uses gpu.
// opts may be nil.
func NewDevice(gpu driver.GPU, opts *Options) *Device {
	if gpu == nil {
		panic(prefix + "nil GPU")
	}
	d := &Device{
		gpu:  gpu,
		info: gpu.Info(),
		log:  slog.Default(),
	}
	if opts != nil {
		if opts.Logger != nil {
			d.log = opts.Logger
		}
		d.submit = opts.Submit
	}
	return d
}

// GPU returns the driver.GPU that d uses.
func (d *Device) GPU() driver.GPU { return d.gpu }

// Info returns the description of the device.
func (d *Device) Info() driver.DeviceInfo { return d.info }

// PartialBindError is returned in SubmitEach mode when
// the backend fails after some operations of a request
// were applied.
type PartialBindError struct {
	// Applied is the number of operations that took
	// effect.
	Applied int
	// Total is the number of operations in the request.
	Total int
	err   error
}

func (e *PartialBindError) Error() string {
	return fmt.Sprintf("%d of %d operations applied: %v", e.Applied, e.Total, e.err)
}

// Unwrap returns the backend error.
func (e *PartialBindError) Unwrap() error { return e.err }

// bindFailed converts a backend failure into a
// device-memory error.
func bindFailed(err error) error {
	return errors.Mark(errors.Wrap(err, prefix+"failed to bind sparse resource"), driver.ErrNoDeviceMemory)
}

// exec submits ops according to d's mode.
func (d *Device) exec(ops []driver.VMBind) error {
	if len(ops) == 0 {
		return nil
	}
	if d.log.Enabled(context.Background(), slog.LevelDebug) {
		for i := range ops {
			d.log.Debug(prefix+"vm_bind", "index", i, "op", ops[i].String())
		}
	}
	switch d.submit {
	case SubmitEach:
		for i := range ops {
			if err := d.gpu.VMBind(ops[i : i+1]); err != nil {
				d.log.Warn(prefix+"bind failed", "applied", i, "total", len(ops), "err", err)
				return &PartialBindError{Applied: i, Total: len(ops), err: bindFailed(err)}
			}
		}
	default:
		if err := d.gpu.VMBind(ops); err != nil {
			d.log.Warn(prefix+"bind failed", "total", len(ops), "err", err)
			return bindFailed(err)
		}
	}
	return nil
}
