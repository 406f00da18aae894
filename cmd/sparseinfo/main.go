// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Sparseinfo reports how sparse images are laid out and
// bound on a device.
// The device is opened through a registered driver, which
// is the simulated one unless --driver says otherwise.
//
// Given a format and an image description, it prints
// whether sparse residency is supported, the block shape,
// flags and miptail of each aspect and, with --bind, the
// operations that binding a region translates to.
//
// Usage:
//
//	sparseinfo [flags]
//
// Examples:
//
//	sparseinfo -f NV12 -s 256x256 -g 125
//	sparseinfo -f RGBA8un -s 1024x1024 -l 0 -b 0/0@128,128,0+256,256,1
//	sparseinfo --sweep -g 120 --json
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"

	"github.com/gviegas/sparse"
	"github.com/gviegas/sparse/driver"
	_ "github.com/gviegas/sparse/driver/sim"
	"github.com/gviegas/sparse/layout"
)

type options struct {
	format    driver.PixelFmt
	typ       driver.ImageType
	size      driver.Dim3D
	levels    int
	layers    int
	samples   int
	gen       int
	driver    string
	linear    bool
	residency bool
	bind      *sparse.ImageBind
	json      bool
	sweep     bool
	verbose   bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := pflag.NewFlagSet("sparseinfo", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		format    = fs.StringP("format", "f", "RGBA8un", "pixel format")
		typ       = fs.StringP("type", "t", "2D", "image type (1D, 2D or 3D)")
		size      = fs.StringP("size", "s", "256x256", "image size as WxHxD")
		levels    = fs.IntP("levels", "l", 1, "number of mip levels (0 for a full chain)")
		layers    = fs.Int("layers", 1, "number of array layers")
		samples   = fs.Int("samples", 1, "number of samples")
		gen       = fs.IntP("gen", "g", 125, "hardware generation times ten")
		drv       = fs.StringP("driver", "d", "sim", "name of the driver to open")
		linear    = fs.Bool("linear", false, "request linear tiling")
		residency = fs.BoolP("residency", "r", true, "create with sparse residency")
		aspect    = fs.StringP("aspect", "a", "", "aspect to bind (defaults to the first one)")
		bind      = fs.StringP("bind", "b", "", "region to bind, as level/layer@x,y,z+w,h,d")
		jsonOut   = fs.Bool("json", false, "write JSON instead of text")
		sweep     = fs.Bool("sweep", false, "report every format and image type")
		verbose   = fs.BoolP("verbose", "v", false, "log bind operations to stderr")
	)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, errors.Newf("unexpected argument %q", fs.Arg(0))
	}

	opts := &options{
		levels:    *levels,
		layers:    *layers,
		samples:   *samples,
		gen:       *gen,
		driver:    *drv,
		linear:    *linear,
		residency: *residency,
		json:      *jsonOut,
		sweep:     *sweep,
		verbose:   *verbose,
	}
	if opts.gen <= 0 {
		return nil, errors.Newf("invalid generation %d", opts.gen)
	}
	if opts.sweep {
		return opts, nil
	}

	var ok bool
	if opts.format, ok = driver.ParseFormat(*format); !ok {
		return nil, errors.Newf("unknown format %q", *format)
	}
	var err error
	if opts.typ, err = parseType(*typ); err != nil {
		return nil, err
	}
	if opts.size, err = parseSize(*size); err != nil {
		return nil, err
	}
	if opts.levels == 0 {
		opts.levels = layout.ComputeLevels(opts.size)
	}
	if *bind != "" {
		if opts.bind, err = parseBind(*bind); err != nil {
			return nil, err
		}
		if *aspect != "" {
			if opts.bind.Aspect, err = parseAspect(*aspect); err != nil {
				return nil, err
			}
		}
	}
	return opts, nil
}

func run(stdout, stderr io.Writer, opts *options) error {
	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	drv, gpu, err := driver.OpenDevice(opts.driver, opts.gen)
	if err != nil {
		return err
	}
	defer drv.Close()
	info := gpu.Info()
	log.Debug("device opened", "driver", gpu.Driver().Name(), "device", info.Name, "gen", info.VerX10)

	if opts.sweep {
		entries, err := sweep(context.Background(), info)
		if err != nil {
			return err
		}
		if opts.json {
			_, err = stdout.Write(sweepJSON(info.VerX10, entries))
			return err
		}
		displaySweep(stdout, entries)
		return nil
	}

	rep, err := query(gpu, opts, log)
	if err != nil {
		return err
	}
	if opts.json {
		_, err = stdout.Write(reportJSON(rep))
		return err
	}
	displayReport(stdout, rep)
	return nil
}

func main() {
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return
	}
	checkError(err)
	checkError(run(os.Stdout, os.Stderr, opts))
}

func checkError(err error) {
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "sparseinfo: %v\n", err)
		os.Exit(1)
	}
}
