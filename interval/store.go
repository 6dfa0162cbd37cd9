package interval

import (
	"fmt"
	"math"
	"strings"

	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	pkgerrors "github.com/pkg/errors"
)

// StoreOpts bounds the resources a FeatureStore may use.
type StoreOpts struct {
	// MaxSources is the maximum number of distinct source files.
	MaxSources int
	// MaxChroms is the maximum number of distinct chromosomes.
	MaxChroms int
	// AllocFeatures is the number of features a chromosome's endpoint slice is
	// sized for on creation, and the number it grows by when full.
	AllocFeatures int
	// MaxEndpoints, if positive, caps the total endpoint capacity reserved
	// across all chromosomes.  Exceeding it fails with ErrOutOfMemory.
	MaxEndpoints int
}

// DefaultStoreOpts supplies the limits for zero StoreOpts fields.
var DefaultStoreOpts = StoreOpts{
	MaxSources:    20,
	MaxChroms:     200,
	AllocFeatures: 10000,
}

// Source is an input file registered with a FeatureStore.
type Source struct {
	ID          uint8
	Path        string
	NumFeatures int
}

// Chrom holds the endpoints of all the features added on one chromosome.
type Chrom struct {
	// ID is assigned in first-seen order, starting at 0.
	ID   uint16
	Name string
	// Min and Max are the smallest start and the largest (inclusive) end
	// seen on this chromosome.
	Min, Max  PosType
	Endpoints []Endpoint

	nextFeature uint32
}

// NumFeatures returns the number of features added to the chromosome.
func (c *Chrom) NumFeatures() int { return len(c.Endpoints) / 2 }

// chromKey orders chromosomes by case-folded name in the store's index.
type chromKey struct {
	folded string
	chrom  *Chrom
}

func (k chromKey) Compare(b llrb.Comparable) int {
	return strings.Compare(k.folded, b.(chromKey).folded)
}

// FeatureStore accumulates feature endpoints per chromosome.  It is populated
// from a single goroutine; once population is done each Chrom may be handed
// to a different goroutine.
type FeatureStore struct {
	opts    StoreOpts
	sources []*Source
	chroms  []*Chrom
	index   llrb.Tree

	// One-entry caches.  Callers add features grouped by source and by
	// chromosome, so the full lookups are rare.
	lastSource *Source
	lastChrom  *Chrom

	nFeatures int
	reserved  int
}

// NewFeatureStore creates an empty store.  Zero fields of opts take their
// value from DefaultStoreOpts.
func NewFeatureStore(opts StoreOpts) *FeatureStore {
	if opts.MaxSources <= 0 {
		opts.MaxSources = DefaultStoreOpts.MaxSources
	}
	if opts.MaxSources > math.MaxUint8+1 {
		opts.MaxSources = math.MaxUint8 + 1
	}
	if opts.MaxChroms <= 0 {
		opts.MaxChroms = DefaultStoreOpts.MaxChroms
	}
	if opts.MaxChroms > math.MaxUint16+1 {
		opts.MaxChroms = math.MaxUint16 + 1
	}
	if opts.AllocFeatures <= 0 {
		opts.AllocFeatures = DefaultStoreOpts.AllocFeatures
	}
	return &FeatureStore{opts: opts}
}

// AddFeature records the inclusive interval [start, end] on chrom, read from
// source.  Source paths and chromosome names are compared case-insensitively.
func (s *FeatureStore) AddFeature(source, chrom string, start, end PosType, strand Strand) error {
	if start > end || end >= PosTypeMax {
		return errors.E(errors.Invalid, fmt.Sprintf("interval.AddFeature: invalid interval %s:[%d, %d]", chrom, start, end))
	}
	src, err := s.source(source)
	if err != nil {
		return err
	}
	c, err := s.chrom(chrom)
	if err != nil {
		return err
	}
	if err = s.reserve(c); err != nil {
		return pkgerrors.Wrapf(err, "%s: chromosome %s, %d features", source, chrom, c.NumFeatures())
	}
	if c.NumFeatures() == 0 {
		c.Min, c.Max = start, end
	} else {
		if start < c.Min {
			c.Min = start
		}
		if end > c.Max {
			c.Max = end
		}
	}
	c.nextFeature++
	c.Endpoints = append(c.Endpoints,
		Endpoint{Pos: start, Feature: c.nextFeature, Chrom: c.ID, Source: src.ID, Kind: Start, Strand: strand},
		Endpoint{Pos: end, Feature: c.nextFeature, Chrom: c.ID, Source: src.ID, Kind: End, Strand: strand})
	src.NumFeatures++
	s.nFeatures++
	return nil
}

// RegisterSource makes sure path has a Source record and returns it, even if
// no feature is ever added from it.
func (s *FeatureStore) RegisterSource(path string) (*Source, error) {
	return s.source(path)
}

func (s *FeatureStore) source(path string) (*Source, error) {
	if s.lastSource != nil && strings.EqualFold(s.lastSource.Path, path) {
		return s.lastSource, nil
	}
	for _, src := range s.sources {
		if strings.EqualFold(src.Path, path) {
			s.lastSource = src
			return src, nil
		}
	}
	if len(s.sources) >= s.opts.MaxSources {
		return nil, pkgerrors.Wrapf(ErrTooManySources, "%s: limit is %d", path, s.opts.MaxSources)
	}
	src := &Source{ID: uint8(len(s.sources)), Path: path}
	s.sources = append(s.sources, src)
	s.lastSource = src
	return src, nil
}

func (s *FeatureStore) chrom(name string) (*Chrom, error) {
	if s.lastChrom != nil && strings.EqualFold(s.lastChrom.Name, name) {
		return s.lastChrom, nil
	}
	key := chromKey{folded: strings.ToLower(name)}
	if found := s.index.Get(key); found != nil {
		s.lastChrom = found.(chromKey).chrom
		return s.lastChrom, nil
	}
	if len(s.chroms) >= s.opts.MaxChroms {
		return nil, pkgerrors.Wrapf(ErrTooManyChroms, "%s: limit is %d", name, s.opts.MaxChroms)
	}
	c := &Chrom{ID: uint16(len(s.chroms)), Name: name}
	key.chrom = c
	s.index.Insert(key)
	s.chroms = append(s.chroms, c)
	s.lastChrom = c
	return c, nil
}

// reserve makes room for two more endpoints on c, growing its slice by
// opts.AllocFeatures features at a time.
func (s *FeatureStore) reserve(c *Chrom) error {
	if len(c.Endpoints)+2 <= cap(c.Endpoints) {
		return nil
	}
	grow := 2 * s.opts.AllocFeatures
	if s.opts.MaxEndpoints > 0 && s.reserved+grow > s.opts.MaxEndpoints {
		return ErrOutOfMemory
	}
	endpoints := make([]Endpoint, len(c.Endpoints), cap(c.Endpoints)+grow)
	copy(endpoints, c.Endpoints)
	c.Endpoints = endpoints
	s.reserved += grow
	return nil
}

// Lookup returns the chromosome with the given name (compared
// case-insensitively), or nil.
func (s *FeatureStore) Lookup(name string) *Chrom {
	if found := s.index.Get(chromKey{folded: strings.ToLower(name)}); found != nil {
		return found.(chromKey).chrom
	}
	return nil
}

// NumChroms returns the number of chromosomes seen so far.
func (s *FeatureStore) NumChroms() int { return len(s.chroms) }

// Chroms returns the chromosomes in first-seen order.
func (s *FeatureStore) Chroms() []*Chrom { return s.chroms }

// ChromsByName returns the chromosomes in case-insensitive name order.
func (s *FeatureStore) ChromsByName() []*Chrom {
	res := make([]*Chrom, 0, len(s.chroms))
	s.index.Do(func(c llrb.Comparable) bool {
		res = append(res, c.(chromKey).chrom)
		return false
	})
	return res
}

// Sources returns the registered sources in first-seen order.
func (s *FeatureStore) Sources() []*Source { return s.sources }

// NumFeatures returns the number of features added across all chromosomes.
func (s *FeatureStore) NumFeatures() int { return s.nFeatures }

// Reset discards all sources, chromosomes and endpoints.
func (s *FeatureStore) Reset() {
	*s = FeatureStore{opts: s.opts}
}
