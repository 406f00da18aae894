// Copyright 2024 Gustavo C. Viegas. All rights reserved.

//go:build sparse_nodebug

package sparse

import (
	"log/slog"

	"github.com/cockroachdb/errors"
)

// invariant logs an assertion failure if cond is false.
func invariant(cond bool, format string, args ...any) {
	if !cond {
		slog.Error(prefix+"invariant violated", "err", errors.AssertionFailedf(format, args...))
	}
}
