// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/gviegas/sparse"
	"github.com/gviegas/sparse/driver"
)

func parseType(s string) (driver.ImageType, error) {
	for _, t := range [...]driver.ImageType{driver.Image1D, driver.Image2D, driver.Image3D} {
		if strings.EqualFold(s, t.String()) {
			return t, nil
		}
	}
	return 0, errors.Newf("unknown image type %q", s)
}

// parseInts parses n or fewer integers separated by sep.
// Missing trailing values are set to def.
func parseInts(s, sep string, n, def int) ([]int, error) {
	parts := strings.Split(s, sep)
	if len(parts) > n {
		return nil, errors.Newf("%q has more than %d components", s, n)
	}
	v := make([]int, n)
	for i := range v {
		if i >= len(parts) {
			v[i] = def
			continue
		}
		x, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid component of %q", s)
		}
		v[i] = x
	}
	return v, nil
}

// parseSize parses W, WxH or WxHxD.
func parseSize(s string) (driver.Dim3D, error) {
	v, err := parseInts(s, "x", 3, 1)
	if err != nil {
		return driver.Dim3D{}, err
	}
	if v[0] < 1 || v[1] < 1 || v[2] < 1 {
		return driver.Dim3D{}, errors.Newf("invalid size %q", s)
	}
	return driver.Dim3D{Width: v[0], Height: v[1], Depth: v[2]}, nil
}

func parseAspect(s string) (driver.Aspect, error) {
	for i := 0; i < 6; i++ {
		a := driver.Aspect(1 << i)
		if strings.EqualFold(s, a.String()) {
			return a, nil
		}
	}
	return 0, errors.Newf("unknown aspect %q", s)
}

// parseBind parses level/layer@x,y,z+w,h,d.
// The layer and the trailing components of the offset and
// of the extent can be omitted.
func parseBind(s string) (*sparse.ImageBind, error) {
	sub, region, ok := strings.Cut(s, "@")
	if !ok {
		return nil, errors.Newf("bind %q: missing '@'", s)
	}
	sr, err := parseInts(sub, "/", 2, 0)
	if err != nil {
		return nil, errors.Wrap(err, "bind")
	}
	o, e, ok := strings.Cut(region, "+")
	if !ok {
		return nil, errors.Newf("bind %q: missing '+'", s)
	}
	ov, err := parseInts(o, ",", 3, 0)
	if err != nil {
		return nil, errors.Wrap(err, "bind")
	}
	ev, err := parseInts(e, ",", 3, 1)
	if err != nil {
		return nil, errors.Wrap(err, "bind")
	}
	return &sparse.ImageBind{
		Level:  sr[0],
		Layer:  sr[1],
		Offset: driver.Off3D{X: ov[0], Y: ov[1], Z: ov[2]},
		Extent: driver.Dim3D{Width: ev[0], Height: ev[1], Depth: ev[2]},
	}, nil
}
