// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package driver defines the interfaces through which sparse
// resources reach a kernel-mode backend.
// It is designed so that a backend only has to provide
// virtual address reservation and an ordered bind
// executor; everything else (tiling geometry, bind
// translation) is computed above it.
package driver

import (
	"log/slog"
	"slices"
	"sync"

	"github.com/cockroachdb/errors"
)

// Driver is the interface that provides methods for
// loading and unloading an underlying backend.
type Driver interface {
	// Open returns the backend's GPU, initializing it on
	// first use. Until Close is called, every call returns
	// the same GPU.
	Open() (GPU, error)

	// Name identifies the driver in the registry.
	// It is available without opening the driver.
	Name() string

	// Close releases the GPU returned by Open, if any.
	Close()
}

// Emulator is implemented by Drivers that can present an
// arbitrary device.
// Emulate sets the Name and VerX10 that the GPU of the
// next Open reports. It has no effect on an open driver.
type Emulator interface {
	Driver
	Emulate(info DeviceInfo)
}

// ErrNoDevice means that no suitable device could be
// found.
var ErrNoDevice = errors.New("driver: no suitable device found")

// ErrNoDeviceMemory means that device memory or virtual
// address space could not be allocated, or that the
// backend failed to update its page tables.
var ErrNoDeviceMemory = errors.New("driver: out of device memory")

// ErrUnknown means that the backend failed in a way that
// does not map to any other error.
var ErrUnknown = errors.New("driver: unknown error")

var registry struct {
	sync.Mutex
	drivers []Driver
}

// Register adds drv to the registry.
// A registered driver of the same name is replaced.
// Backends call Register from an init function, so that
// importing a backend package is enough to select it.
func Register(drv Driver) {
	registry.Lock()
	defer registry.Unlock()
	i := slices.IndexFunc(registry.drivers, func(d Driver) bool { return d.Name() == drv.Name() })
	if i >= 0 {
		registry.drivers[i] = drv
		slog.Warn("driver replaced", "name", drv.Name())
		return
	}
	registry.drivers = append(registry.drivers, drv)
	slog.Debug("driver registered", "name", drv.Name())
}

// Drivers returns the registered Drivers in registration
// order.
func Drivers() []Driver {
	registry.Lock()
	defer registry.Unlock()
	return slices.Clone(registry.drivers)
}

// Lookup returns the registered Driver with the given
// name, or nil if there is none.
func Lookup(name string) Driver {
	registry.Lock()
	defer registry.Unlock()
	for _, d := range registry.drivers {
		if d.Name() == name {
			return d
		}
	}
	return nil
}

// OpenDevice opens the registered driver called name.
// If verX10 is not zero, the GPU must report that
// generation: Emulators are told to present it and other
// drivers are closed again when their hardware differs.
// It returns ErrNoDevice when no such driver or device
// exists.
func OpenDevice(name string, verX10 int) (Driver, GPU, error) {
	drv := Lookup(name)
	if drv == nil {
		return nil, nil, errors.Wrapf(ErrNoDevice, "driver: %q is not registered", name)
	}
	if e, ok := drv.(Emulator); ok && verX10 != 0 {
		e.Emulate(DeviceInfo{Name: name, VerX10: verX10})
	}
	gpu, err := drv.Open()
	if err != nil {
		return nil, nil, errors.Wrapf(err, "driver: failed to open %q", name)
	}
	if v := gpu.Info().VerX10; verX10 != 0 && v != verX10 {
		drv.Close()
		return nil, nil, errors.Wrapf(ErrNoDevice, "driver: %q drives generation %d, not %d", name, v, verX10)
	}
	return drv, gpu, nil
}
