// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import "fmt"

//go:generate mockgen -destination ../internal/mocks/gpu.go -package mocks . GPU

// GPU is the main interface to an underlying backend.
// It reserves ranges of GPU virtual address space and
// executes bind operations on them.
// A GPU is obtained from a call to Driver.Open.
//
// Implementations need not be safe for concurrent use
// by multiple goroutines; callers serialize bind
// operations that touch overlapping ranges and fence
// them against in-flight GPU work.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// Info returns the device description.
	// It is immutable for the lifetime of the GPU.
	Info() DeviceInfo

	// AllocVA reserves a range of virtual address space.
	// size and align must be multiples of the backend's
	// page size. If addr is not zero, the range must be
	// placed at addr or the call must fail.
	// It returns driver.ErrNoDeviceMemory when the
	// request cannot be satisfied.
	AllocVA(size, align uint64, flags VAFlags, addr uint64) (uint64, error)

	// FreeVA releases a range previously returned by
	// AllocVA. The range must not have live bindings.
	FreeVA(addr, size uint64)

	// NewMemory creates a backing memory object.
	// size is rounded up to the backend's page size.
	NewMemory(size uint64) (Memory, error)

	// VMBind executes an ordered list of bind operations.
	// It returns either nil or a single error; there is
	// no partial-success reporting.
	VMBind(ops []VMBind) error
}

// Destroyer is the interface that wraps the Destroy method.
type Destroyer interface {
	Destroy()
}

// Memory is the interface that defines a backing memory
// object that virtual ranges can be bound to.
type Memory interface {
	// Size returns the size of the memory in bytes.
	// This value is immutable.
	Size() uint64
}

// BindOp is the kind of a bind operation.
type BindOp int

// Bind operations.
const (
	// OpBind maps a virtual range. A nil Memory makes it
	// a null binding: reads return zero and writes are
	// discarded.
	OpBind BindOp = iota
	// OpUnbind removes the mapping of a virtual range.
	OpUnbind
)

// String implements fmt.Stringer.
func (op BindOp) String() string {
	switch op {
	case OpBind:
		return "BIND"
	case OpUnbind:
		return "UNBIND"
	}
	return fmt.Sprintf("BindOp(%d)", int(op))
}

// VMBind describes a single operation on a virtual range.
// Address and Size must be multiples of the backend's
// page size. When Mem is not nil, MemOffset+Size must not
// exceed Mem.Size().
type VMBind struct {
	Address   uint64
	Size      uint64
	Mem       Memory
	MemOffset uint64
	Op        BindOp
}

// String implements fmt.Stringer.
func (b VMBind) String() string {
	if b.Mem == nil {
		return fmt.Sprintf("%s %#x+%#x null", b.Op, b.Address, b.Size)
	}
	return fmt.Sprintf("%s %#x+%#x mem@%#x", b.Op, b.Address, b.Size, b.MemOffset)
}

// VAFlags modifies virtual address allocation.
type VAFlags int

// VA flags.
const (
	// VA32Bit restricts the range to the low 4GiB.
	VA32Bit VAFlags = 1 << iota
	// VAClientVisible marks an address that the client
	// can observe (and later request again on replay).
	VAClientVisible
)

// DeviceInfo describes the hardware that a GPU drives.
// It is passed explicitly to every function whose result
// depends on the hardware generation.
type DeviceInfo struct {
	// Name of the device.
	Name string
	// Hardware generation times ten
	// (e.g., 90, 110, 120, 125, 200).
	VerX10 int
	// Size of the virtual address space in bytes.
	VASize uint64
}

// Dim3D is a three-dimensional size.
type Dim3D struct {
	Width, Height, Depth int
}

// String implements fmt.Stringer.
func (d Dim3D) String() string { return fmt.Sprintf("%dx%dx%d", d.Width, d.Height, d.Depth) }

// Off3D is a three-dimensional offset.
type Off3D struct {
	X, Y, Z int
}

// String implements fmt.Stringer.
func (o Off3D) String() string { return fmt.Sprintf("(%d,%d,%d)", o.X, o.Y, o.Z) }

// ImageType is the dimensionality of an image.
type ImageType int

// Image types.
const (
	Image1D ImageType = iota
	Image2D
	Image3D
)

// String implements fmt.Stringer.
func (t ImageType) String() string {
	switch t {
	case Image1D:
		return "1D"
	case Image2D:
		return "2D"
	case Image3D:
		return "3D"
	}
	return fmt.Sprintf("ImageType(%d)", int(t))
}

// Aspect identifies a component of an image that is bound
// independently.
type Aspect int

// Aspects.
const (
	AspectColor Aspect = 1 << iota
	AspectDepth
	AspectStencil
	AspectPlane0
	AspectPlane1
	AspectPlane2
)

// Single reports whether exactly one aspect bit is set.
func (a Aspect) Single() bool { return a != 0 && a&(a-1) == 0 }

// String implements fmt.Stringer.
func (a Aspect) String() string {
	names := [...]string{"color", "depth", "stencil", "plane0", "plane1", "plane2"}
	var s string
	for i, n := range names {
		if a&(1<<i) != 0 {
			if s != "" {
				s += "|"
			}
			s += n
		}
	}
	if s == "" {
		return "none"
	}
	return s
}
