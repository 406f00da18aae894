// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/driver/sim"
	"github.com/gviegas/sparse/layout"
)

var (
	gen90  = driver.DeviceInfo{Name: "gen9", VerX10: 90}
	gen120 = driver.DeviceInfo{Name: "gen12", VerX10: 120}
	gen125 = driver.DeviceInfo{Name: "gen12.5", VerX10: 125}
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// newSim creates a Device backed by a new sim.GPU.
func newSim(t *testing.T, cfg sim.Config, mode SubmitMode) (*Device, *sim.GPU) {
	t.Helper()
	cfg.Logger = discard()
	g := sim.New(cfg)
	// Debug level so that every operation is logged.
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return NewDevice(g, &Options{Logger: logger, Submit: mode}), g
}

func newSurf(t *testing.T, pf driver.PixelFmt, typ driver.ImageType, size driver.Dim3D, levels, layers int, tiling layout.Tiling) *layout.Surf {
	t.Helper()
	s, err := layout.New(&layout.Param{
		Format: pf,
		Type:   typ,
		Dim3D:  size,
		Levels: levels,
		Layers: layers,
		Tiling: tiling,
	})
	require.NoError(t, err)
	return s
}

func dim(w, h, d int) driver.Dim3D { return driver.Dim3D{Width: w, Height: h, Depth: d} }

func off(x, y, z int) driver.Off3D { return driver.Off3D{X: x, Y: y, Z: z} }

// memory is a driver.Memory of fixed size.
type memory uint64

func (m memory) Size() uint64 { return uint64(m) }
