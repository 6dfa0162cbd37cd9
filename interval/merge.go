package interval

import (
	"context"
	"runtime"

	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
)

// MergeOpts controls how endpoints are merged into runs.
type MergeOpts struct {
	// MinLen is the minimum length (1 + end - start) of an emitted run.
	MinLen PosType
	// JoinDistance is the largest position difference between the end of one
	// run and the start of the next that still joins them.  Runs that share
	// or abut a base always merge; zero disables joining across gaps.
	JoinDistance PosType
	// StrandDependent merges '+' features separately from all others.  When
	// false every feature is pooled and runs are reported on '+'.
	StrandDependent bool
}

// Merged is one merged run.  Start and End are inclusive.
type Merged struct {
	Chrom  string
	Start  PosType
	End    PosType
	Strand Strand
	// ID is the 1-based sequence number of the run in its merge.
	ID int
}

// Len returns the number of bases covered by the run.
func (m Merged) Len() PosType { return 1 + m.End - m.Start }

// Merger sweeps sorted chromosomes and numbers the runs it emits.
type Merger struct {
	opts   MergeOpts
	bridge PosType
	n      int
}

// NewMerger returns a Merger with no runs emitted yet.
func NewMerger(opts MergeOpts) *Merger {
	bridge := opts.JoinDistance
	if bridge < 1 {
		bridge = 1
	}
	return &Merger{opts: opts, bridge: bridge}
}

// Count returns the number of runs emitted so far.
func (m *Merger) Count() int { return m.n }

func (m *Merger) bucket(s Strand) int {
	if !m.opts.StrandDependent || s == StrandPlus {
		return 0
	}
	return 1
}

// next returns the index of the first endpoint after i that can extend a run
// closing at endpoints[i], or -1.  In strand-dependent mode that is the next
// endpoint on the same strand; a '.' feature never bridges a '-' run even
// though both share a bucket.
func (m *Merger) next(endpoints []Endpoint, i int) int {
	strand := endpoints[i].Strand
	for j := i + 1; j < len(endpoints); j++ {
		if !m.opts.StrandDependent || endpoints[j].Strand == strand {
			return j
		}
	}
	return -1
}

// Sweep walks c's endpoints, which must already be in SortEndpoints order,
// and calls emit for every run of at least MinLen bases.  Each strand bucket
// keeps its own depth, run start and joining state.
func (m *Merger) Sweep(c *Chrom, emit func(Merged) error) error {
	var (
		depth      [2]int
		mergeStart [2]PosType
		joining    [2]bool
	)
	endpoints := c.Endpoints
	for i := range endpoints {
		ep := &endpoints[i]
		b := m.bucket(ep.Strand)
		if ep.Kind == Start {
			if depth[b] == 0 {
				mergeStart[b] = ep.Pos
				depth[b] = 1
			} else if !joining[b] {
				depth[b]++
			}
			joining[b] = false
			continue
		}
		if depth[b] == 1 {
			// The run would close here unless the next start in this bucket is
			// within reach; in that case keep it open across the gap.
			if j := m.next(endpoints, i); j >= 0 && endpoints[j].Pos-ep.Pos <= m.bridge {
				joining[b] = true
				continue
			}
			if 1+ep.Pos-mergeStart[b] >= m.opts.MinLen {
				m.n++
				strand := ep.Strand
				if !m.opts.StrandDependent {
					strand = StrandPlus
				}
				if err := emit(Merged{
					Chrom:  c.Name,
					Start:  mergeStart[b],
					End:    ep.Pos,
					Strand: strand,
					ID:     m.n,
				}); err != nil {
					return err
				}
			}
		}
		if depth[b] > 0 {
			depth[b]--
		}
	}
	return nil
}

// MergeStore sorts every chromosome of s, using up to parallelism goroutines
// (runtime.NumCPU() if parallelism <= 0), then sweeps them in first-seen
// order.  Runs are numbered across chromosomes in emission order.  It returns
// the number of runs emitted.
func MergeStore(ctx context.Context, s *FeatureStore, opts MergeOpts, parallelism int, emit func(Merged) error) (int, error) {
	chroms := s.Chroms()
	if err := sortChroms(ctx, chroms, parallelism); err != nil {
		return 0, err
	}
	m := NewMerger(opts)
	for _, c := range chroms {
		before := m.Count()
		if err := m.Sweep(c, emit); err != nil {
			return m.Count(), err
		}
		log.Debug.Printf("interval.MergeStore: %s: %d features, %d runs", c.Name, c.NumFeatures(), m.Count()-before)
	}
	return m.Count(), nil
}

// sortChroms sorts each chromosome's endpoints.  Chromosomes are striped over
// the workers; each slice is touched by exactly one of them.
func sortChroms(ctx context.Context, chroms []*Chrom, parallelism int) error {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism > len(chroms) {
		parallelism = len(chroms)
	}
	if parallelism == 0 {
		return nil
	}
	return traverse.Each(parallelism, func(jobIdx int) error {
		for i := jobIdx; i < len(chroms); i += parallelism {
			if err := ctx.Err(); err != nil {
				return err
			}
			SortEndpoints(chroms[i].Endpoints)
		}
		return nil
	})
}
