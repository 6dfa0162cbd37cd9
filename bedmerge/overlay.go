package bedmerge

import (
	"context"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bedmerge/encoding/loci"
	"github.com/grailbio/bedmerge/interval"
	pkgerrors "github.com/pkg/errors"
)

// Limits for OverlayOpts.
const (
	MaxElementLength = 10000000
	MaxJoinDistance  = 1000000
	MaxExtend        = 1000000
)

// Source IDs of the two overlay inputs in the feature store.
const (
	refSource uint8 = 0
	relSource uint8 = 1
)

type OverlayOpts struct {
	// Commandline options.
	Ref            string
	Rel            string
	Output         string
	Op             interval.SetOp
	MinLength      int
	MaxLength      int
	RefExtend      int
	RelExtend      int
	JoinDistance   int
	MinMergeLength int
	MaxMergeLength int
	RefSpecies     string
	RelSpecies     string
	ElType         string
	IncludeChroms  []string
	ExcludeChroms  []string
	ChromSizesPath string
	SkipHeader     bool

	// MaxEndpoints caps the feature store, see interval.StoreOpts.
	MaxEndpoints int
}

var DefaultOverlayOpts = OverlayOpts{
	Op:             interval.Intersect,
	MinLength:      4,
	MaxLength:      1000000,
	MinMergeLength: 4,
	MaxMergeLength: 1000000,
	ElType:         "merged",
}

func validateOverlay(opts *OverlayOpts) error {
	switch {
	case opts.Ref == "":
		return configErrorf("a ref loci file is required")
	case opts.Rel == "" && opts.Op.NeedsRel():
		return configErrorf("a rel loci file is required for %v", opts.Op)
	case opts.Output == "":
		return configErrorf("an output path is required")
	case opts.Op < interval.Intersect || opts.Op > interval.Neither:
		return configErrorf("set operation %d is not in range 0..4", opts.Op)
	case opts.MinLength < 0 || opts.MinLength > MaxElementLength:
		return configErrorf("minimum element length %d is not in range 0..%d", opts.MinLength, MaxElementLength)
	case opts.MaxLength < opts.MinLength || opts.MaxLength > MaxElementLength:
		return configErrorf("maximum element length %d is not in range %d..%d", opts.MaxLength, opts.MinLength, MaxElementLength)
	case opts.MinMergeLength < 0 || opts.MinMergeLength > MaxElementLength:
		return configErrorf("minimum merged length %d is not in range 0..%d", opts.MinMergeLength, MaxElementLength)
	case opts.MaxMergeLength < opts.MinMergeLength || opts.MaxMergeLength > MaxElementLength:
		return configErrorf("maximum merged length %d is not in range %d..%d", opts.MaxMergeLength, opts.MinMergeLength, MaxElementLength)
	case opts.JoinDistance < 0 || opts.JoinDistance > MaxJoinDistance:
		return configErrorf("join distance %d is not in range 0..%d", opts.JoinDistance, MaxJoinDistance)
	case opts.RefExtend < -MaxExtend || opts.RefExtend > MaxExtend:
		return configErrorf("ref extension %d is not in range %d..%d", opts.RefExtend, -MaxExtend, MaxExtend)
	case opts.RelExtend < -MaxExtend || opts.RelExtend > MaxExtend:
		return configErrorf("rel extension %d is not in range %d..%d", opts.RelExtend, -MaxExtend, MaxExtend)
	case opts.MaxEndpoints < 0:
		return configErrorf("negative endpoint budget")
	}
	return nil
}

// elementStats counts what happened to one loci file's elements.
type elementStats struct {
	processed, accepted      int
	underLen, overLen        int
	flankUnderLen, flankOver int
	excluded                 int
}

// extendElement applies the length filter and flank extension to an element
// of length n covering [start, end].  The initial length check is skipped on
// the side the extension moves the length toward; the length is checked again
// after extending.  ok is false if the element is dropped.
func extendElement(start, end int64, n int, extend, minLen, maxLen int, stats *elementStats) (int64, int64, bool) {
	if extend <= 0 && n < minLen {
		stats.underLen++
		return 0, 0, false
	}
	if extend >= 0 && n > maxLen {
		stats.overLen++
		return 0, 0, false
	}
	if extend > 0 {
		start -= int64(extend)
		if start < 0 {
			start = 0
		}
		end += int64(extend)
	} else if extend < 0 {
		start -= int64(extend)
		end += int64(extend)
	}
	length := int64(0)
	if end >= start {
		length = 1 + end - start
	}
	if length > int64(maxLen) {
		stats.flankOver++
		return 0, 0, false
	}
	if length == 0 || length < int64(minLen) {
		stats.flankUnderLen++
		return 0, 0, false
	}
	return start, end, true
}

// loadLoci adds the elements of one loci file to the store under sourceKey.
func loadLoci(ctx context.Context, store *interval.FeatureStore, filter *interval.ChromFilter, sourceKey, path string, extend int, opts *OverlayOpts) error {
	if _, err := file.Stat(ctx, path); err != nil {
		return pkgerrors.Wrapf(ErrOpenFile, "%s: %v", path, err)
	}
	if _, err := store.RegisterSource(sourceKey); err != nil {
		return err
	}
	var stats elementStats
	err := loci.Load(ctx, path, loci.ReaderOpts{SkipHeader: opts.SkipHeader}, func(e *loci.Element) error {
		stats.processed++
		if filter.Excluded(e.Chrom) {
			stats.excluded++
			return nil
		}
		start, end, ok := extendElement(int64(e.Start), int64(e.End), e.Len, extend, opts.MinLength, opts.MaxLength, &stats)
		if !ok {
			return nil
		}
		if end >= int64(interval.PosTypeMax) {
			end = int64(interval.PosTypeMax) - 1
		}
		stats.accepted++
		return store.AddFeature(sourceKey, e.Chrom, interval.PosType(start), interval.PosType(end), interval.StrandNone)
	})
	if err != nil {
		// Store limits keep their own status; anything else is bad input.
		if StatusOf(err) == Failed {
			err = pkgerrors.Wrapf(ErrParse, "%v", err)
		}
		return err
	}
	log.Printf("bedmerge: %s: accepted %d, processed %d, excluded chromosome %d, underlength %d, overlength %d, under flank length %d, over flank length %d",
		path, stats.accepted, stats.processed, stats.excluded, stats.underLen, stats.overLen, stats.flankUnderLen, stats.flankOver)
	return nil
}

// runJoiner joins overlay runs separated by at most joinDistance bases and
// writes those within the merge length limits.
type runJoiner struct {
	w                 *loci.Writer
	opts              *OverlayOpts
	chrom             string
	start, end        interval.PosType
	open              bool
	runs, merged      int
	underLen, overLen int
}

func (j *runJoiner) add(chrom string, start, end interval.PosType) error {
	j.runs++
	if j.opts.JoinDistance > 0 && j.open && chrom == j.chrom &&
		int64(start)-int64(j.end)-1 <= int64(j.opts.JoinDistance) {
		j.end = end
		return nil
	}
	if err := j.flush(); err != nil {
		return err
	}
	j.chrom, j.start, j.end, j.open = chrom, start, end, true
	return nil
}

func (j *runJoiner) flush() error {
	if !j.open {
		return nil
	}
	j.open = false
	j.merged++
	n := int(1 + j.end - j.start)
	if n < j.opts.MinMergeLength {
		j.underLen++
		return nil
	}
	if n > j.opts.MaxMergeLength {
		j.overLen++
		return nil
	}
	return j.w.Write(&loci.Element{
		ID:       j.w.Count() + 1,
		Type:     j.opts.ElType,
		Species:  j.opts.RefSpecies,
		Chrom:    j.chrom,
		Start:    j.start,
		End:      j.end,
		Len:      n,
		Species2: j.opts.RelSpecies,
	})
}

// Overlay combines the ref and rel loci files with opts.Op and writes the
// resulting elements to opts.Output as loci CSV.  It returns the number of
// elements written.  Use StatusOf to classify a returned error.
func Overlay(ctx context.Context, opts OverlayOpts) (n int, err error) {
	if err = validateOverlay(&opts); err != nil {
		return 0, err
	}
	filter, err := interval.NewChromFilter(opts.IncludeChroms, opts.ExcludeChroms)
	if err != nil {
		return 0, err
	}
	sizes, err := loadSizes(ctx, opts.ChromSizesPath)
	if err != nil {
		return 0, err
	}
	// Sources are registered ref first, so the ref gets ID 0 and the rel ID 1.
	// The keys differ even when both inputs are the same file.
	store := interval.NewFeatureStore(interval.StoreOpts{MaxSources: 2, MaxEndpoints: opts.MaxEndpoints})
	if err = loadLoci(ctx, store, filter, "ref:"+opts.Ref, opts.Ref, opts.RefExtend, &opts); err != nil {
		return 0, err
	}
	if opts.Rel != "" {
		if err = loadLoci(ctx, store, filter, "rel:"+opts.Rel, opts.Rel, opts.RelExtend, &opts); err != nil {
			return 0, err
		}
	}

	out, err := file.Create(ctx, opts.Output)
	if err != nil {
		return 0, pkgerrors.Wrapf(ErrOpenFile, "%s: %v", opts.Output, err)
	}
	defer file.CloseAndReport(ctx, out, &err)
	w := loci.NewWriter(out.Writer(ctx))
	j := &runJoiner{w: w, opts: &opts}
	for _, c := range store.ChromsByName() {
		interval.SortEndpoints(c.Endpoints)
		limit := c.Max + 1
		if size := sizes[strings.ToLower(c.Name)]; size > limit {
			limit = size
		}
		err = interval.Overlay(c, opts.Op, refSource, relSource, limit, func(start, end interval.PosType) error {
			return j.add(c.Name, start, end)
		})
		if err != nil {
			return w.Count(), err
		}
	}
	if err = j.flush(); err != nil {
		return w.Count(), err
	}
	if err = w.Flush(); err != nil {
		return w.Count(), err
	}
	log.Printf("bedmerge: %v: %d elements output, %d runs before joining, %d after, %d under length, %d over length",
		opts.Op, w.Count(), j.runs, j.merged, j.underLen, j.overLen)
	return w.Count(), nil
}
