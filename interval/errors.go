package interval

import "github.com/grailbio/base/errors"

// Errors returned by the feature store and chromosome filter.  Callers get
// them wrapped with context; use github.com/pkg/errors.Cause to recover them.
var (
	ErrTooManySources = errors.E(errors.Invalid, "interval: too many source files")
	ErrTooManyChroms  = errors.E(errors.Invalid, "interval: too many chromosomes")
	ErrOutOfMemory    = errors.E(errors.Unavailable, "interval: endpoint budget exhausted")
	ErrBadPattern     = errors.E(errors.Invalid, "interval: bad chromosome pattern")
)
