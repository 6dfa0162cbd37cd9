// Package region cuts annotated features down to a functional region (exons,
// introns, coding sequence, UTRs or the gaps between features) before they
// are merged.
package region

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/bedmerge/interval"
)

// Kind is the functional region to extract.  The numbering matches the
// command-line -region values.
type Kind int

const (
	// Any keeps the whole feature.
	Any Kind = iota
	// Intergenic keeps the gaps between features.
	Intergenic
	// Exons keeps each exon.
	Exons
	// Introns keeps the gaps between consecutive exons.
	Introns
	// CDS keeps the coding part of each exon.
	CDS
	// UTR keeps the non-coding parts of each exon, on both sides of the CDS.
	UTR
	// UTR5 keeps the 5' untranslated parts of each exon.
	UTR5
	// UTR3 keeps the 3' untranslated parts of each exon.
	UTR3
)

var kindNames = [...]string{"any", "intergenic", "exons", "introns", "cds", "utr", "5utr", "3utr"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts a kind name (case-insensitive) or its number.
func ParseKind(s string) (Kind, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(kindNames) {
			return Any, fmt.Errorf("region.ParseKind: %d not in range 0..%d", n, len(kindNames)-1)
		}
		return Kind(n), nil
	}
	for i, name := range kindNames {
		if strings.EqualFold(s, name) {
			return Kind(i), nil
		}
	}
	return Any, fmt.Errorf("region.ParseKind: unknown region %q", s)
}

// NeedsGeneDetail reports whether the kind needs exon and CDS boundaries.
func (k Kind) NeedsGeneDetail() bool {
	return k != Any && k != Intergenic
}

// Gene exposes the gene-model structure of a feature.  Coordinates are
// inclusive; exons are in increasing order.
type Gene interface {
	Span() (start, end interval.PosType)
	// CDS returns the coding region; ok is false for non-coding features.
	CDS() (start, end interval.PosType, ok bool)
	NumExons() int
	Exon(i int) (start, end interval.PosType)
}

// EmitFunc receives an extracted inclusive interval and the strand of the
// feature it came from.
type EmitFunc func(chrom string, start, end interval.PosType, strand interval.Strand) error

// Extractor applies one Kind to a stream of features.  Intergenic extraction
// is stateful: features must arrive grouped by chromosome and sorted by start
// within each chromosome, and Finish must be called after the last one.
type Extractor struct {
	kind Kind
	// sizes maps lower-cased chromosome names to their lengths.  When a
	// chromosome's length is known, intergenic extraction also emits the gap
	// after its last feature.
	sizes map[string]interval.PosType

	chrom   string
	strand  interval.Strand
	cursor  interval.PosType
	started bool
}

// NewExtractor returns an Extractor for kind.  sizes may be nil.
func NewExtractor(kind Kind, sizes map[string]interval.PosType) *Extractor {
	lower := make(map[string]interval.PosType, len(sizes))
	for name, size := range sizes {
		lower[strings.ToLower(name)] = size
	}
	return &Extractor{kind: kind, sizes: lower}
}

// Extract calls emit for each interval of the requested kind in g, which lies
// on chrom.  Empty intervals are skipped.
func (e *Extractor) Extract(chrom string, strand interval.Strand, g Gene, emit EmitFunc) error {
	switch e.kind {
	case Any:
		start, end := g.Span()
		return emit(chrom, start, end, strand)
	case Intergenic:
		return e.intergenic(chrom, strand, g, emit)
	case Exons:
		for i := 0; i < g.NumExons(); i++ {
			start, end := g.Exon(i)
			if err := emit(chrom, start, end, strand); err != nil {
				return err
			}
		}
	case Introns:
		for i := 1; i < g.NumExons(); i++ {
			_, prevEnd := g.Exon(i - 1)
			start, _ := g.Exon(i)
			if prevEnd+1 < start {
				if err := emit(chrom, prevEnd+1, start-1, strand); err != nil {
					return err
				}
			}
		}
	case CDS:
		cdsStart, cdsEnd, ok := g.CDS()
		if !ok {
			return nil
		}
		for i := 0; i < g.NumExons(); i++ {
			start, end := g.Exon(i)
			if start < cdsStart {
				start = cdsStart
			}
			if end > cdsEnd {
				end = cdsEnd
			}
			if start <= end {
				if err := emit(chrom, start, end, strand); err != nil {
					return err
				}
			}
		}
	case UTR, UTR5, UTR3:
		return e.utr(chrom, strand, g, emit)
	default:
		return fmt.Errorf("region.Extract: unknown kind %v", e.kind)
	}
	return nil
}

func (e *Extractor) utr(chrom string, strand interval.Strand, g Gene, emit EmitFunc) error {
	cdsStart, cdsEnd, coding := g.CDS()
	if !coding {
		// Without a CDS there is no 5'/3' orientation; every exon is UTR.
		if e.kind != UTR {
			return nil
		}
		for i := 0; i < g.NumExons(); i++ {
			start, end := g.Exon(i)
			if err := emit(chrom, start, end, strand); err != nil {
				return err
			}
		}
		return nil
	}
	left, right := true, true
	switch e.kind {
	case UTR5:
		left, right = strand != interval.StrandMinus, strand == interval.StrandMinus
	case UTR3:
		left, right = strand == interval.StrandMinus, strand != interval.StrandMinus
	}
	for i := 0; i < g.NumExons(); i++ {
		start, end := g.Exon(i)
		if left && start < cdsStart {
			leftEnd := end
			if leftEnd >= cdsStart {
				leftEnd = cdsStart - 1
			}
			if err := emit(chrom, start, leftEnd, strand); err != nil {
				return err
			}
		}
		if right && end > cdsEnd {
			rightStart := start
			if rightStart <= cdsEnd {
				rightStart = cdsEnd + 1
			}
			if err := emit(chrom, rightStart, end, strand); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Extractor) intergenic(chrom string, strand interval.Strand, g Gene, emit EmitFunc) error {
	if !e.started || !strings.EqualFold(chrom, e.chrom) {
		if err := e.Finish(emit); err != nil {
			return err
		}
		e.chrom, e.cursor, e.started = chrom, 0, true
	}
	e.strand = strand
	start, end := g.Span()
	if e.cursor < start {
		if err := emit(chrom, e.cursor, start-1, strand); err != nil {
			return err
		}
	}
	if end+1 > e.cursor {
		e.cursor = end + 1
	}
	return nil
}

// Finish emits the gap after the last feature of the current chromosome, if
// the chromosome's size is known, and resets the intergenic state.  The gap
// takes the strand of that last feature.
func (e *Extractor) Finish(emit EmitFunc) error {
	if e.kind != Intergenic || !e.started {
		return nil
	}
	e.started = false
	size, ok := e.sizes[strings.ToLower(e.chrom)]
	if !ok || e.cursor >= size {
		return nil
	}
	return emit(e.chrom, e.cursor, size-1, e.strand)
}
