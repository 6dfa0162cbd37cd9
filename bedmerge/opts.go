// Package bedmerge runs whole merge and overlay jobs: it expands input specs,
// loads and filters features, merges them and writes the result.
package bedmerge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/bedmerge/interval"
	"github.com/grailbio/bedmerge/region"
	pkgerrors "github.com/pkg/errors"
)

// Mode selects how strands are treated when merging.
type Mode int

const (
	// StrandIndependent pools features of all strands.
	StrandIndependent Mode = iota
	// StrandDependent merges '+' features separately from the rest.
	StrandDependent
)

// Length limits for Opts.MinLen and Opts.JoinLen.
const (
	MinMergeLen = 5
	MaxMergeLen = 1024000
)

type Opts struct {
	// Commandline options.
	Inputs         []string
	Output         string
	Mode           Mode
	Strand         interval.Strand
	MinLen         int
	JoinLen        int
	Region         region.Kind
	IncludeChroms  []string
	ExcludeChroms  []string
	TargetsPath    string
	TargetRegion   string
	ChromSizesPath string
	Parallelism    int

	// MaxEndpoints caps the feature store, see interval.StoreOpts.
	MaxEndpoints int
}

var DefaultOpts = Opts{
	Mode:   StrandIndependent,
	Strand: StrandAny,
	MinLen: 20,
	// Joining across one base is the default.
	JoinLen: 1,
	Region:  region.Any,
}

// StrandAny disables strand filtering.
const StrandAny interval.Strand = 0

// ParseStrandFilter accepts "any", "*" or "0" for no filtering, "+" or "1",
// and "-" or "2".
func ParseStrandFilter(s string) (interval.Strand, error) {
	switch strings.ToLower(s) {
	case "", "0", "*", "any":
		return StrandAny, nil
	case "1", "+":
		return interval.StrandPlus, nil
	case "2", "-":
		return interval.StrandMinus, nil
	}
	return StrandAny, pkgerrors.Wrapf(ErrConfig, "strand filter %q", s)
}

// ParseMode accepts the mode number or "independent"/"dependent".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "independent":
		return StrandIndependent, nil
	case "dependent":
		return StrandDependent, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < int(StrandIndependent) || n > int(StrandDependent) {
		return StrandIndependent, pkgerrors.Wrapf(ErrConfig, "mode %q is not in range 0..1", s)
	}
	return Mode(n), nil
}

func configErrorf(format string, args ...interface{}) error {
	return pkgerrors.Wrap(ErrConfig, fmt.Sprintf(format, args...))
}

func validate(opts *Opts) error {
	if len(opts.Inputs) == 0 {
		return configErrorf("at least one input file is required")
	}
	if opts.Output == "" {
		return configErrorf("an output path is required")
	}
	if opts.Mode != StrandIndependent && opts.Mode != StrandDependent {
		return configErrorf("mode %d is not in range 0..1", opts.Mode)
	}
	switch opts.Strand {
	case StrandAny, interval.StrandPlus, interval.StrandMinus:
	default:
		return configErrorf("strand filter %q", opts.Strand)
	}
	if opts.MinLen < MinMergeLen || opts.MinLen > MaxMergeLen {
		return configErrorf("minimum length %d is not in range %d..%d", opts.MinLen, MinMergeLen, MaxMergeLen)
	}
	if opts.JoinLen < 0 || opts.JoinLen > MaxMergeLen {
		return configErrorf("join length %d is not in range 0..%d", opts.JoinLen, MaxMergeLen)
	}
	if opts.Region < region.Any || opts.Region > region.UTR3 {
		return configErrorf("region %d is not in range %d..%d", opts.Region, region.Any, region.UTR3)
	}
	if opts.TargetsPath != "" && opts.TargetRegion != "" {
		return configErrorf("targets file and target region are mutually exclusive")
	}
	if opts.Parallelism < 0 || opts.MaxEndpoints < 0 {
		return configErrorf("negative parallelism or endpoint budget")
	}
	return nil
}
