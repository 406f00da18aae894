// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package sparse

import (
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/sparse/driver"
	"github.com/gviegas/sparse/driver/sim"
	"github.com/gviegas/sparse/layout"
)

const base = 1 << 32

func TestTranslateMemoryBind(t *testing.T) {
	b := &Binding{Address: base, Size: 4 * BlockSize}
	mem := memory(2 * BlockSize)

	ops, err := TranslateMemoryBind(b, &MemoryBind{
		ResourceOffset: BlockSize,
		Size:           2 * BlockSize,
		Mem:            mem,
	}, driver.OpBind)
	require.NoError(t, err)
	require.Equal(t, []driver.VMBind{{
		Address: base + BlockSize,
		Size:    2 * BlockSize,
		Mem:     mem,
		Op:      driver.OpBind,
	}}, ops)

	// Memory is ignored when unbinding.
	ops, err = TranslateMemoryBind(b, &MemoryBind{
		ResourceOffset: 3 * BlockSize,
		Size:           BlockSize,
		Mem:            mem,
		MemOffset:      BlockSize,
	}, driver.OpUnbind)
	require.NoError(t, err)
	require.Equal(t, []driver.VMBind{{Address: base + 3*BlockSize, Size: BlockSize, Op: driver.OpUnbind}}, ops)

	ops, err = TranslateMemoryBind(b, &MemoryBind{Size: 4 * BlockSize}, driver.OpBind)
	require.NoError(t, err)
	require.Nil(t, ops[0].Mem)

	for i, mb := range [...]MemoryBind{
		{Size: 0},
		{ResourceOffset: 4096, Size: BlockSize},
		{Size: BlockSize + 4096},
		{ResourceOffset: 3 * BlockSize, Size: 2 * BlockSize},
		{ResourceOffset: 4 * BlockSize, Size: BlockSize},
		{Size: BlockSize, Mem: mem, MemOffset: 4096},
		{Size: 2 * BlockSize, Mem: mem, MemOffset: BlockSize},
		{Size: BlockSize, Mem: mem, MemOffset: 4 * BlockSize},
	} {
		ops, err := TranslateMemoryBind(b, &mb, driver.OpBind)
		require.Nil(t, ops, "%d", i)
		require.True(t, errors.Is(err, ErrInvalidBind), "%d: %v", i, err)
	}
}

func colorBind(o driver.Off3D, e driver.Dim3D, mem driver.Memory) *ImageBind {
	return &ImageBind{Aspect: driver.AspectColor, Offset: o, Extent: e, Mem: mem}
}

func TestTranslateImageBind(t *testing.T) {
	// 128x128 blocks, 4 per row.
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(512, 512, 1), 1, 1, layout.Tile64)
	require.Equal(t, dim(128, 128, 1), BlockShape(s))
	b := &Binding{Address: base, Size: BlockSize + s.Size()}
	mem := memory(1 << 20)

	ops, err := TranslateImageBind(b, s, BlockSize, colorBind(off(0, 0, 0), dim(512, 512, 1), mem), driver.OpBind)
	require.NoError(t, err)
	require.Len(t, ops, 4)
	for i, op := range ops {
		require.Equal(t, driver.VMBind{
			Address:   base + BlockSize + uint64(i)*4*BlockSize,
			Size:      4 * BlockSize,
			Mem:       mem,
			MemOffset: uint64(i) * 4 * BlockSize,
			Op:        driver.OpBind,
		}, op)
	}

	ib := colorBind(off(128, 256, 0), dim(256, 128, 1), mem)
	ib.MemOffset = 2 * BlockSize
	ops, err = TranslateImageBind(b, s, 0, ib, driver.OpBind)
	require.NoError(t, err)
	require.Equal(t, []driver.VMBind{{
		Address:   base + 9*BlockSize,
		Size:      2 * BlockSize,
		Mem:       mem,
		MemOffset: 2 * BlockSize,
		Op:        driver.OpBind,
	}}, ops)

	// Unbinding emits the same ranges with no memory.
	ops, err = TranslateImageBind(b, s, 0, ib, driver.OpUnbind)
	require.NoError(t, err)
	require.Equal(t, []driver.VMBind{{Address: base + 9*BlockSize, Size: 2 * BlockSize, Op: driver.OpUnbind}}, ops)
}

func TestTranslateImageBindEdge(t *testing.T) {
	// 4x3 tiles, the last ones partially covered.
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(500, 300, 1), 1, 1, layout.Tile64)
	require.Equal(t, uint64(12*BlockSize), s.Size())
	b := &Binding{Address: base, Size: s.Size()}

	ops, err := TranslateImageBind(b, s, 0, colorBind(off(384, 256, 0), dim(116, 44, 1), nil), driver.OpBind)
	require.NoError(t, err)
	require.Equal(t, []driver.VMBind{{Address: base + 11*BlockSize, Size: BlockSize, Op: driver.OpBind}}, ops)

	// The whole level rounds up to every tile.
	ops, err = TranslateImageBind(b, s, 0, colorBind(off(0, 0, 0), dim(500, 300, 1), nil), driver.OpBind)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	var n uint64
	for _, op := range ops {
		n += op.Size
	}
	require.Equal(t, s.Size(), n)
}

func TestTranslateImageBind3D(t *testing.T) {
	// 64x32x32 blocks; 4x8x2 of them.
	s := newSurf(t, driver.R8un, driver.Image3D, dim(256, 256, 64), 1, 1, layout.Tile64)
	require.Equal(t, uint64(4<<20), s.Size())
	b := &Binding{Address: base, Size: s.Size()}
	mem := memory(s.Size())

	ops, err := TranslateImageBind(b, s, 0, colorBind(off(0, 0, 0), dim(256, 256, 64), mem), driver.OpBind)
	require.NoError(t, err)
	require.Len(t, ops, 16)
	for i, op := range ops {
		require.Equal(t, 4*uint64(BlockSize), op.Size)
		require.Equal(t, base+uint64(i)*4*BlockSize, op.Address, "%d", i)
		require.Equal(t, uint64(i)*4*BlockSize, op.MemOffset)
	}
	require.Equal(t, uint64(base+32*BlockSize), ops[8].Address)

	// A single block of the second slice.
	ops, err = TranslateImageBind(b, s, 0, colorBind(off(64, 32, 32), dim(64, 32, 32), nil), driver.OpBind)
	require.NoError(t, err)
	require.Equal(t, []driver.VMBind{{Address: base + (32+4+1)*BlockSize, Size: BlockSize, Op: driver.OpBind}}, ops)
}

func TestTranslateImageBindInvalid(t *testing.T) {
	// Levels 4 and above are in the miptail.
	s := newSurf(t, driver.RGBA8un, driver.Image2D, dim(1024, 1024, 1), 11, 1, layout.Tile64)
	b := &Binding{Address: base, Size: s.Size()}
	small := memory(1 << 20)
	big := memory(1 << 30)

	for i, ib := range [...]ImageBind{
		{Level: -1, Extent: dim(128, 128, 1)},
		{Level: 11, Extent: dim(1, 1, 1)},
		{Layer: 1, Extent: dim(128, 128, 1)},
		{Level: 4, Extent: dim(64, 64, 1)},
		{Level: 10, Extent: dim(1, 1, 1)},
		{Extent: dim(0, 128, 1)},
		{Extent: dim(128, 128, 0)},
		{Offset: off(-128, 0, 0), Extent: dim(128, 128, 1)},
		{Offset: off(64, 0, 0), Extent: dim(128, 128, 1)},
		{Offset: off(0, 0, 1), Extent: dim(128, 128, 1)},
		{Extent: dim(1152, 128, 1)},
		{Offset: off(128, 0, 0), Extent: dim(math.MaxInt-127, 128, 1)},
		{Offset: off(0, 256, 0), Extent: dim(128, math.MaxInt, 1)},
		{Offset: off(1152, 0, 0), Extent: dim(128, 128, 1)},
		{Level: 1, Offset: off(384, 0, 0), Extent: dim(256, 128, 1)},
		{Extent: dim(100, 128, 1)},
		{Extent: dim(128, 200, 1)},
		{Extent: dim(1024, 1024, 1), Mem: small},
		{Extent: dim(128, 128, 1), Mem: big, MemOffset: 4096},
		{Extent: dim(128, 128, 1), Mem: small, MemOffset: 1 << 20},
	} {
		ib.Aspect = driver.AspectColor
		ops, err := TranslateImageBind(b, s, 0, &ib, driver.OpBind)
		require.Nil(t, ops, "%d", i)
		require.True(t, errors.Is(err, ErrInvalidBind), "%d: %v", i, err)
	}

	for _, a := range [...]driver.Aspect{0, driver.AspectDepth | driver.AspectStencil} {
		ib := colorBind(off(0, 0, 0), dim(128, 128, 1), nil)
		ib.Aspect = a
		_, err := TranslateImageBind(b, s, 0, ib, driver.OpBind)
		require.True(t, errors.Is(err, ErrInvalidBind), "%v: %v", a, err)
	}

	// Memory bounds do not apply to unbinds.
	ib := colorBind(off(0, 0, 0), dim(1024, 1024, 1), small)
	ops, err := TranslateImageBind(b, s, 0, ib, driver.OpUnbind)
	require.NoError(t, err)
	require.Len(t, ops, 8)

	// Linear surfaces have no block shape for regions.
	s = newSurf(t, driver.RGBA8un, driver.Image2D, dim(1024, 16, 1), 1, 1, layout.Linear)
	_, err = TranslateImageBind(&Binding{Address: base, Size: s.Size()}, s, 0, colorBind(off(0, 0, 0), dim(1024, 16, 1), nil), driver.OpBind)
	require.True(t, errors.Is(err, ErrInvalidBind))
}

func newColorImage(t *testing.T, d *Device, size driver.Dim3D, levels int) *Image {
	t.Helper()
	img, err := d.NewImage(&ImageParam{
		Format:  driver.RGBA8un,
		Type:    driver.Image2D,
		Dim3D:   size,
		Levels:  levels,
		Layers:  1,
		Samples: 1,
		Flags:   CreateSparseBinding | CreateSparseResidency,
	})
	require.NoError(t, err)
	return img
}

func TestBindImage(t *testing.T) {
	d, g := newSim(t, sim.Config{}, SubmitBatch)
	img := newColorImage(t, d, dim(512, 512, 1), 1)
	b := img.Binding(driver.AspectColor)
	mem, err := g.NewMemory(1 << 20)
	require.NoError(t, err)

	ib := colorBind(off(0, 0, 0), dim(512, 512, 1), mem)
	check := func(want sim.State) {
		for i := uint64(0); i < 16; i++ {
			m, o, st := g.Resolve(b.Address + i*BlockSize + 12)
			require.Equal(t, want, st, "block %d", i)
			if want == sim.Bound {
				require.Equal(t, driver.Memory(mem), m)
				require.Equal(t, i*BlockSize+12, o)
			}
		}
	}

	g.ResetTrace()
	require.NoError(t, d.BindImage(img, ib))
	require.Equal(t, 1, g.Calls())
	check(sim.Bound)

	// Binding the same region again gives the same
	// mappings.
	require.NoError(t, d.BindImage(img, ib))
	check(sim.Bound)
	require.Equal(t, 16, g.Mapped())

	require.NoError(t, d.UnbindImage(img, ib))
	check(sim.Unmapped)

	img.Destroy()
	require.Zero(t, g.Mapped())
}

func TestBindResource(t *testing.T) {
	d, g := newSim(t, sim.Config{}, SubmitBatch)
	buf, err := d.NewBuffer(4*BlockSize, CreateSparseBinding, 0)
	require.NoError(t, err)
	b := buf.Binding()
	mem, err := g.NewMemory(2 * BlockSize)
	require.NoError(t, err)

	mb := &MemoryBind{ResourceOffset: BlockSize, Size: 2 * BlockSize, Mem: mem}
	require.NoError(t, d.BindResource(b, mb))
	m, o, st := g.Resolve(b.Address + 2*BlockSize + 12)
	require.Equal(t, sim.Bound, st)
	require.Equal(t, driver.Memory(mem), m)
	require.Equal(t, uint64(BlockSize+12), o)
	_, _, st = g.Resolve(b.Address)
	require.Equal(t, sim.Null, st)

	require.NoError(t, d.UnbindResource(b, mb))
	_, _, st = g.Resolve(b.Address + BlockSize)
	require.Equal(t, sim.Unmapped, st)

	err = d.BindResource(b, &MemoryBind{ResourceOffset: 4 * BlockSize, Size: BlockSize})
	require.True(t, errors.Is(err, ErrInvalidBind))

	buf.Destroy()
	require.Nil(t, buf.Binding())
	require.Zero(t, g.Mapped())
}

func TestSubmitEach(t *testing.T) {
	// The null bind of the image is the first operation.
	d, g := newSim(t, sim.Config{FailAfter: 3}, SubmitEach)
	img := newColorImage(t, d, dim(512, 512, 1), 1)
	b := img.Binding(driver.AspectColor)
	mem, err := g.NewMemory(1 << 20)
	require.NoError(t, err)

	g.ResetTrace()
	err = d.BindImage(img, colorBind(off(0, 0, 0), dim(512, 512, 1), mem))
	var pe *PartialBindError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, 2, pe.Applied)
	require.Equal(t, 4, pe.Total)
	require.True(t, errors.Is(err, driver.ErrNoDeviceMemory))
	require.Equal(t, 3, g.Calls())
	require.Len(t, g.Trace(), 2)

	for i := uint64(0); i < 16; i++ {
		_, _, st := g.Resolve(b.Address + i*BlockSize)
		if i < 8 {
			require.Equal(t, sim.Bound, st, "block %d", i)
		} else {
			require.Equal(t, sim.Null, st, "block %d", i)
		}
	}
}

func TestSubmitBatchFailure(t *testing.T) {
	d, g := newSim(t, sim.Config{FailAfter: 3}, SubmitBatch)
	img := newColorImage(t, d, dim(512, 512, 1), 1)
	b := img.Binding(driver.AspectColor)
	mem, err := g.NewMemory(1 << 20)
	require.NoError(t, err)

	g.ResetTrace()
	err = d.BindImage(img, colorBind(off(0, 0, 0), dim(512, 512, 1), mem))
	require.True(t, errors.Is(err, driver.ErrNoDeviceMemory))
	var pe *PartialBindError
	require.False(t, errors.As(err, &pe))
	require.Equal(t, 1, g.Calls())
	require.Empty(t, g.Trace())
	for i := uint64(0); i < 16; i++ {
		_, _, st := g.Resolve(b.Address + i*BlockSize)
		require.Equal(t, sim.Null, st)
	}
}

func TestSubmitModeString(t *testing.T) {
	require.Equal(t, "batch", SubmitBatch.String())
	require.Equal(t, "each", SubmitEach.String())
}
