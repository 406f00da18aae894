// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sim

import (
	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse/driver"
)

// Memory implements driver.Memory.
// It has no storage; it only exists to be referenced by
// bind operations.
type Memory struct {
	gpu  *GPU
	size uint64
}

// NewMemory implements driver.GPU.
// The Memory it returns is a *Memory.
func (g *GPU) NewMemory(size uint64) (driver.Memory, error) {
	if size == 0 {
		return nil, errors.New(prefix + "zero-sized memory")
	}
	if size > g.info.VASize {
		return nil, errors.Wrapf(driver.ErrNoDeviceMemory, prefix+"memory of size %#x", size)
	}
	return &Memory{g, (size + PageSize - 1) &^ (PageSize - 1)}, nil
}

// Size implements driver.Memory.
func (m *Memory) Size() uint64 { return m.size }
