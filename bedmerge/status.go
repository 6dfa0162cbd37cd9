package bedmerge

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/bedmerge/interval"
	pkgerrors "github.com/pkg/errors"
)

// Errors returned by Merge and Overlay, wrapped with context.
var (
	ErrOpenFile  = errors.E(errors.NotExist, "bedmerge: unable to open file")
	ErrNoInput   = errors.E(errors.NotExist, "bedmerge: no input files loaded")
	ErrBadRegion = errors.E(errors.Invalid, "bedmerge: source lacks the gene detail the region needs")
	ErrConfig    = errors.E(errors.Invalid, "bedmerge: bad configuration")
	ErrParse     = errors.E(errors.Invalid, "bedmerge: malformed input")
)

// Status is the result code of a run.  Failures are negative.
type Status int

const (
	OK                 Status = 0
	OpenFileFailed     Status = -1
	OutOfMemory        Status = -2
	TooManySourceFiles Status = -3
	TooManyChromosomes Status = -4
	NoInputLoaded      Status = -5
	BadRegionForSource Status = -6
	ConfigError        Status = -7
	ParseError         Status = -8
	Failed             Status = -9
)

var statusNames = map[Status]string{
	OK:                 "OK",
	OpenFileFailed:     "OpenFileFailed",
	OutOfMemory:        "OutOfMemory",
	TooManySourceFiles: "TooManySourceFiles",
	TooManyChromosomes: "TooManyChromosomes",
	NoInputLoaded:      "NoInputLoaded",
	BadRegionForSource: "BadRegionForSource",
	ConfigError:        "ConfigError",
	ParseError:         "ParseError",
	Failed:             "Failed",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// StatusOf classifies an error returned by Merge or Overlay.
func StatusOf(err error) Status {
	if err == nil {
		return OK
	}
	switch pkgerrors.Cause(err) {
	case ErrOpenFile:
		return OpenFileFailed
	case interval.ErrOutOfMemory:
		return OutOfMemory
	case interval.ErrTooManySources:
		return TooManySourceFiles
	case interval.ErrTooManyChroms:
		return TooManyChromosomes
	case ErrNoInput:
		return NoInputLoaded
	case ErrBadRegion:
		return BadRegionForSource
	case ErrConfig, interval.ErrBadPattern:
		return ConfigError
	case ErrParse:
		return ParseError
	}
	return Failed
}
