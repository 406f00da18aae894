// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"

	"github.com/gviegas/sparse"
)

func reportJSON(rep *report) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	o := rep.opts
	obj.Name("format").String(o.format.String())
	obj.Name("type").String(o.typ.String())
	obj.Name("size").String(o.size.String())
	obj.Name("levels").Int(o.levels)
	obj.Name("layers").Int(o.layers)
	obj.Name("samples").Int(o.samples)
	obj.Name("gen").Int(rep.info.VerX10)
	obj.Name("supported").Bool(rep.support == nil)
	if rep.support != nil {
		obj.Name("error").String(rep.support.Error())
		obj.End()
		return w.Bytes()
	}
	obj.Name("bindingSize").Int(int(rep.size))

	arr := obj.Name("aspects").Array()
	for _, a := range rep.aspects {
		aobj := arr.Object()
		aobj.Name("aspect").String(a.aspect.String())
		aobj.Name("format").String(a.format.String())
		aobj.Name("tiling").String(a.tiling.String())
		aobj.Name("offset").Int(int(a.offset))
		aobj.Name("size").Int(int(a.size))
		if a.req != nil {
			writeProps(&aobj, &a.req.FormatProperties)
			mt := aobj.Name("miptail").Object()
			mt.Name("firstLevel").Int(a.req.MipTailFirstLevel)
			mt.Name("size").Int(int(a.req.MipTailSize))
			mt.Name("offset").Int(int(a.req.MipTailOffset))
			mt.Name("stride").Int(int(a.req.MipTailStride))
			mt.End()
		}
		aobj.End()
	}
	arr.End()

	if o.bind != nil {
		bobj := obj.Name("bind").Object()
		bobj.Name("aspect").String(rep.bindAspect.String())
		bobj.Name("level").Int(o.bind.Level)
		bobj.Name("layer").Int(o.bind.Layer)
		bobj.Name("offset").String(o.bind.Offset.String())
		bobj.Name("extent").String(o.bind.Extent.String())
		if rep.bindErr != nil {
			bobj.Name("error").String(rep.bindErr.Error())
		} else {
			ops := bobj.Name("ops").Array()
			for _, op := range rep.ops {
				oobj := ops.Object()
				oobj.Name("op").String(op.Op.String())
				oobj.Name("offset").Int(int(op.Address))
				oobj.Name("size").Int(int(op.Size))
				if op.Mem != nil {
					oobj.Name("memOffset").Int(int(op.MemOffset))
				}
				oobj.End()
			}
			ops.End()
		}
		bobj.End()
	}
	obj.End()
	return w.Bytes()
}

func writeProps(obj *jwriter.ObjectState, p *sparse.SparseImageFormatProperties) {
	obj.Name("granularity").String(p.Granularity.String())
	obj.Name("flags").String(p.Flags.String())
}

func sweepJSON(gen int, entries []sweepEntry) []byte {
	w := jwriter.NewWriter()
	obj := w.Object()
	obj.Name("gen").Int(gen)
	arr := obj.Name("formats").Array()
	for _, e := range entries {
		eobj := arr.Object()
		eobj.Name("format").String(e.format.String())
		eobj.Name("type").String(e.typ.String())
		eobj.Name("supported").Bool(e.err == nil)
		if e.err != nil {
			eobj.Name("error").String(e.err.Error())
		} else {
			parr := eobj.Name("aspects").Array()
			for i := range e.props {
				pobj := parr.Object()
				pobj.Name("aspect").String(e.props[i].Aspect.String())
				writeProps(&pobj, &e.props[i])
				pobj.End()
			}
			parr.End()
		}
		eobj.End()
	}
	arr.End()
	obj.End()
	return w.Bytes()
}
