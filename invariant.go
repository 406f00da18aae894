// Copyright 2024 Gustavo C. Viegas. All rights reserved.

//go:build !sparse_nodebug

package sparse

import "github.com/cockroachdb/errors"

// invariant panics with an assertion failure if cond is
// false.
// Violations mean that a layout.Surface disagrees with
// the sparse block geometry, so nothing can be bound
// safely.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic(errors.AssertionFailedf(format, args...))
	}
}
