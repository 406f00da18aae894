// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/gviegas/sparse/driver"
)

func displayReport(w io.Writer, rep *report) {
	o := rep.opts
	fmt.Fprintf(w, "%s %v %v levels=%d layers=%d samples=%d on %s (gen %d)\n",
		color.CyanString("%v", o.format),
		o.typ, o.size, o.levels, o.layers, o.samples,
		rep.info.Name, rep.info.VerX10)

	if rep.support != nil {
		fmt.Fprintf(w, "%s %v\n", color.RedString("not supported:"), rep.support)
		return
	}
	fmt.Fprintf(w, "%s binding of %#x bytes\n", color.GreenString("supported:"), rep.size)

	var pad int
	for _, a := range rep.aspects {
		pad = max(pad, len(a.aspect.String()))
	}
	for _, a := range rep.aspects {
		fmt.Fprintf(w, "  %s %v %s tiling, offset %#x, size %#x\n",
			color.YellowString("%-*s", pad, a.aspect), a.format, a.tiling, a.offset, a.size)
		if a.req == nil {
			continue
		}
		fp := a.req.FormatProperties
		fmt.Fprintf(w, "    granularity %v, flags %v\n", fp.Granularity, fp.Flags)
		if a.req.MipTailFirstLevel >= o.levels {
			fmt.Fprintln(w, "    no miptail")
		} else {
			fmt.Fprintf(w, "    miptail from level %d: offset %#x, size %#x, stride %#x\n",
				a.req.MipTailFirstLevel, a.req.MipTailOffset, a.req.MipTailSize, a.req.MipTailStride)
		}
	}

	if o.bind == nil {
		return
	}
	b := o.bind
	fmt.Fprintf(w, "bind %v level %d layer %d at %v extent %v:\n", rep.bindAspect, b.Level, b.Layer, b.Offset, b.Extent)
	if rep.bindErr != nil {
		fmt.Fprintf(w, "  %s %v\n", color.RedString("failed:"), rep.bindErr)
		return
	}
	for i, op := range rep.ops {
		fmt.Fprintf(w, "  %s %s\n", color.CyanString("%3d", i), opString(op))
	}
}

// opString formats an operation whose address is relative
// to the start of its binding.
func opString(op driver.VMBind) string {
	s := fmt.Sprintf("%v +%#x size %#x", op.Op, op.Address, op.Size)
	if op.Mem != nil {
		s += fmt.Sprintf(" mem@%#x", op.MemOffset)
	}
	return s
}

func displaySweep(w io.Writer, entries []sweepEntry) {
	for _, e := range entries {
		name := color.CyanString("%-10v", e.format)
		if e.err != nil {
			fmt.Fprintf(w, "%s %v  %s\n", name, e.typ, color.RedString("%v", e.err))
			continue
		}
		for _, p := range e.props {
			flags := p.Flags.String()
			if p.Flags != 0 {
				flags = color.YellowString("%s", flags)
			}
			fmt.Fprintf(w, "%s %v  %-8v %-12v %s\n", name, e.typ, p.Aspect, p.Granularity, flags)
		}
	}
}
