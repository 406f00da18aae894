// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sim

import (
	"github.com/gviegas/sparse/driver"
)

func init() {
	driver.Register(&Driver{})
}

// Driver implements driver.Emulator.
// Its GPU uses the default Config, except for what
// Emulate sets.
type Driver struct {
	cfg Config
	gpu *GPU
}

// Open implements driver.Driver.
func (d *Driver) Open() (driver.GPU, error) {
	if d.gpu == nil {
		d.gpu = New(d.cfg)
		d.gpu.drv = d
	}
	return d.gpu, nil
}

// Name implements driver.Driver.
func (d *Driver) Name() string { return "sim" }

// Close implements driver.Driver.
func (d *Driver) Close() { d.gpu = nil }

// Emulate implements driver.Emulator.
func (d *Driver) Emulate(info driver.DeviceInfo) {
	if d.gpu != nil {
		return
	}
	d.cfg.Name = info.Name
	d.cfg.VerX10 = info.VerX10
}
