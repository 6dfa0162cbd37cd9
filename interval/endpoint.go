package interval

import "sort"

// Strand is a feature's strand character.
type Strand byte

const (
	// StrandNone marks a feature without strand information.
	StrandNone Strand = '.'
	// StrandPlus is the forward strand.
	StrandPlus Strand = '+'
	// StrandMinus is the reverse strand.
	StrandMinus Strand = '-'
)

// ParseStrand maps a BED strand column to a Strand.  Anything other than "+"
// or "-" is StrandNone.
func ParseStrand(s string) Strand {
	if len(s) == 1 {
		switch s[0] {
		case '+':
			return StrandPlus
		case '-':
			return StrandMinus
		}
	}
	return StrandNone
}

// EndpointKind tells whether an Endpoint opens or closes its feature.
type EndpointKind uint8

const (
	// Start is the first base of a feature.
	Start EndpointKind = iota
	// End is the last base of a feature (inclusive).
	End
)

// Endpoint is one of the two sweep events contributed by a feature.
type Endpoint struct {
	// Pos is the 0-based coordinate.  For an End event it is the last base
	// covered by the feature.
	Pos PosType
	// Feature is shared by the Start and End events of one feature; it is
	// assigned in increasing order within a chromosome.
	Feature uint32
	// Chrom is the owning Chrom's ID.
	Chrom uint16
	// Source is the ID of the source that supplied the feature.
	Source uint8
	Kind   EndpointKind
	Strand Strand
}

// lessEndpoint orders endpoints by position, with starts before ends at the
// same position.  The start-first tie-break is what makes features that share
// a base merge: the run's depth is raised before the closing end is seen.
func lessEndpoint(a, b *Endpoint) bool {
	if a.Pos != b.Pos {
		return a.Pos < b.Pos
	}
	if a.Kind != b.Kind {
		return a.Kind == Start
	}
	return a.Feature < b.Feature
}

// SortEndpoints sorts a chromosome's endpoints into sweep order.
func SortEndpoints(endpoints []Endpoint) {
	sort.Slice(endpoints, func(i, j int) bool {
		return lessEndpoint(&endpoints[i], &endpoints[j])
	})
}
