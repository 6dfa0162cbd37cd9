package bedmerge

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/bedmerge/encoding/bed"
	"github.com/grailbio/bedmerge/encoding/fasta"
	"github.com/grailbio/bedmerge/interval"
	"github.com/grailbio/bedmerge/region"
	pkgerrors "github.com/pkg/errors"
)

// loadStats counts what happened to one input file's features.
type loadStats struct {
	features    int
	added       int
	otherStrand int
	excluded    int
	offTarget   int
}

// expandInputs expands each input pattern.  Patterns without glob metacharacters
// are kept as is, so non-local paths pass through to file.Open.  A pattern that
// matches nothing is logged and skipped.
func expandInputs(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*?[") {
			paths = append(paths, pattern)
			continue
		}
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, pkgerrors.Wrapf(ErrOpenFile, "unable to glob %q: %v", pattern, err)
		}
		if len(matches) == 0 {
			log.Printf("bedmerge: no source file matches %q", pattern)
			continue
		}
		// filepath.Glob returns matches in lexical order.
		paths = append(paths, matches...)
	}
	return paths, nil
}

// loadSizes reads chromosome lengths, clamped to the coordinate range and
// keyed by lower-cased name.  An empty path yields nil.
func loadSizes(ctx context.Context, path string) (map[string]interval.PosType, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := file.Stat(ctx, path); err != nil {
		return nil, pkgerrors.Wrapf(ErrOpenFile, "%s: %v", path, err)
	}
	lengths, err := fasta.LoadReferenceLengths(ctx, path)
	if err != nil {
		return nil, pkgerrors.Wrapf(ErrParse, "%s: %v", path, err)
	}
	sizes := make(map[string]interval.PosType, len(lengths))
	for name, n := range lengths {
		if n >= uint64(interval.PosTypeMax) {
			n = uint64(interval.PosTypeMax) - 1
		}
		sizes[strings.ToLower(name)] = interval.PosType(n)
	}
	return sizes, nil
}

// loadTargets builds the target restriction, or returns nil if there is none.
func loadTargets(ctx context.Context, opts *Opts) (*interval.BEDUnion, error) {
	switch {
	case opts.TargetsPath != "":
		if _, err := file.Stat(ctx, opts.TargetsPath); err != nil {
			return nil, pkgerrors.Wrapf(ErrOpenFile, "%s: %v", opts.TargetsPath, err)
		}
		u, err := interval.NewBEDUnionFromPath(ctx, opts.TargetsPath, interval.NewBEDOpts{})
		if err != nil {
			return nil, pkgerrors.Wrapf(ErrParse, "%s: %v", opts.TargetsPath, err)
		}
		return &u, nil
	case opts.TargetRegion != "":
		entry, err := interval.ParseRegionString(opts.TargetRegion)
		if err != nil {
			return nil, pkgerrors.Wrapf(ErrConfig, "target region %q: %v", opts.TargetRegion, err)
		}
		u, err := interval.NewBEDUnionFromEntries([]interval.Entry{entry})
		if err != nil {
			return nil, pkgerrors.Wrapf(ErrConfig, "target region %q: %v", opts.TargetRegion, err)
		}
		return &u, nil
	}
	return nil, nil
}

// merger holds the state of one Merge run.
type merger struct {
	opts    *Opts
	store   *interval.FeatureStore
	filter  *interval.ChromFilter
	targets *interval.BEDUnion
	sizes   map[string]interval.PosType
}

// loadBED adds the features of one BED file to the store.
func (m *merger) loadBED(ctx context.Context, path string) error {
	if _, err := file.Stat(ctx, path); err != nil {
		return pkgerrors.Wrapf(ErrOpenFile, "%s: %v", path, err)
	}
	f, err := bed.Load(ctx, path)
	if err != nil {
		return pkgerrors.Wrapf(ErrParse, "%v", err)
	}
	if m.opts.Region.NeedsGeneDetail() && !f.GeneDetail {
		return pkgerrors.Wrapf(ErrBadRegion, "%s: region %v needs BED12 input", path, m.opts.Region)
	}
	if _, err = m.store.RegisterSource(path); err != nil {
		return err
	}

	var stats loadStats
	add := func(chrom string, start, end interval.PosType, strand interval.Strand) error {
		if m.targets == nil {
			stats.added++
			return m.store.AddFeature(path, chrom, start, end, strand)
		}
		n := stats.added
		err := m.targets.Clip(chrom, start, end, func(start, end interval.PosType) error {
			stats.added++
			return m.store.AddFeature(path, chrom, start, end, strand)
		})
		if stats.added == n {
			stats.offTarget++
		}
		return err
	}
	extractor := region.NewExtractor(m.opts.Region, m.sizes)
	for i := range f.Features {
		feat := &f.Features[i]
		stats.features++
		if m.filter.Excluded(feat.Chrom) {
			stats.excluded++
			continue
		}
		if m.opts.Strand != StrandAny && feat.Strand != m.opts.Strand {
			stats.otherStrand++
			continue
		}
		if m.targets != nil && !m.targets.HasChrom(feat.Chrom) {
			stats.offTarget++
			continue
		}
		if err = extractor.Extract(feat.Chrom, feat.Strand, feat, add); err != nil {
			return pkgerrors.Wrap(err, path)
		}
	}
	if err = extractor.Finish(add); err != nil {
		return pkgerrors.Wrap(err, path)
	}
	log.Printf("bedmerge: %s: %d features, %d intervals added, %d excluded chromosome, %d other strand, %d off target",
		path, stats.features, stats.added, stats.excluded, stats.otherStrand, stats.offTarget)
	return nil
}

// Merge loads every input, merges the features and writes the runs to
// opts.Output as BED.  It returns the number of runs written.  Use StatusOf
// to classify a returned error.
func Merge(ctx context.Context, opts Opts) (n int, err error) {
	if err = validate(&opts); err != nil {
		return 0, err
	}
	m := &merger{
		opts:  &opts,
		store: interval.NewFeatureStore(interval.StoreOpts{MaxEndpoints: opts.MaxEndpoints}),
	}
	if m.filter, err = interval.NewChromFilter(opts.IncludeChroms, opts.ExcludeChroms); err != nil {
		return 0, err
	}
	if m.targets, err = loadTargets(ctx, &opts); err != nil {
		return 0, err
	}
	if m.sizes, err = loadSizes(ctx, opts.ChromSizesPath); err != nil {
		return 0, err
	}
	paths, err := expandInputs(opts.Inputs)
	if err != nil {
		return 0, err
	}
	if len(paths) == 0 {
		return 0, pkgerrors.Wrapf(ErrNoInput, "inputs %v", opts.Inputs)
	}
	for i, path := range paths {
		log.Printf("bedmerge: processing input BED file %d of %d: %s", i+1, len(paths), path)
		if err = m.loadBED(ctx, path); err != nil {
			return 0, err
		}
	}

	out, err := bed.Create(ctx, opts.Output, bed.WriterOpts{Parallelism: opts.Parallelism})
	if err != nil {
		return 0, pkgerrors.Wrapf(ErrOpenFile, "%s: %v", opts.Output, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	mergeOpts := interval.MergeOpts{
		MinLen:          interval.PosType(opts.MinLen),
		JoinDistance:    interval.PosType(opts.JoinLen),
		StrandDependent: opts.Mode == StrandDependent,
	}
	if n, err = interval.MergeStore(ctx, m.store, mergeOpts, opts.Parallelism, out.Write); err != nil {
		return n, err
	}
	log.Printf("bedmerge: %d merged features from %d chromosomes written to %s, checksum %016x",
		n, m.store.NumChroms(), opts.Output, out.Checksum())
	return n, nil
}
