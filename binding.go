// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse/driver"
)

// Binding is the virtual address range of a sparse
// resource.
// Its size is a multiple of BlockSize.
// The range belongs to a single resource and lives as
// long as the resource does.
type Binding struct {
	Address uint64
	Size    uint64
}

// Span returns the range [start, end) of b.
func (b *Binding) Span() (start, end uint64) { return b.Address, b.Address + b.Size }

// contains reports whether [off, off+size) is a range of b.
func (b *Binding) contains(off, size uint64) bool {
	return size <= b.Size && off <= b.Size-size
}

// InitBinding reserves a range of virtual address space
// of at least size bytes and binds it to nothing.
// If clientAddr is not zero, the range must be placed at
// that address (capture/replay).
// Failures of the backend are reported as
// driver.ErrNoDeviceMemory.
func (d *Device) InitBinding(size uint64, flags driver.VAFlags, clientAddr uint64) (*Binding, error) {
	if size == 0 {
		return nil, errors.Wrap(ErrInvalidBind, "zero-sized binding")
	}
	size = align64(size, BlockSize)
	addr, err := d.gpu.AllocVA(size, BlockSize, flags, clientAddr)
	if err != nil {
		d.log.Warn(prefix+"VA allocation failed", "size", size, "err", err)
		return nil, errors.Mark(errors.Wrapf(err, prefix+"failed to reserve %#x bytes", size), driver.ErrNoDeviceMemory)
	}
	invariant(addr%BlockSize == 0, "VA address %#x is not block-aligned", addr)
	null := []driver.VMBind{{Address: addr, Size: size, Op: driver.OpBind}}
	if err := d.gpu.VMBind(null); err != nil {
		d.gpu.FreeVA(addr, size)
		d.log.Warn(prefix+"null bind failed", "addr", addr, "size", size, "err", err)
		return nil, bindFailed(err)
	}
	d.log.Debug(prefix+"binding created", "addr", addr, "size", size)
	return &Binding{addr, size}, nil
}

// FreeBinding unbinds the whole range of b and releases
// it.
// A nil b or one whose address is zero is ignored.
// If the backend fails to unbind, the range is not
// released and an error wrapping ErrUnknown is returned.
func (d *Device) FreeBinding(b *Binding) error {
	if b == nil || b.Address == 0 {
		return nil
	}
	unbind := []driver.VMBind{{Address: b.Address, Size: b.Size, Op: driver.OpUnbind}}
	if err := d.gpu.VMBind(unbind); err != nil {
		d.log.Warn(prefix+"unbind failed", "addr", b.Address, "size", b.Size, "err", err)
		return errors.Mark(errors.Wrap(err, prefix+"failed to unbind sparse resource"), ErrUnknown)
	}
	d.gpu.FreeVA(b.Address, b.Size)
	d.log.Debug(prefix+"binding freed", "addr", b.Address, "size", b.Size)
	*b = Binding{}
	return nil
}
