package interval

import (
	"math"
	"sort"
)

// This file includes support datatypes and functions for representing an
// interval-union as a []PosType containing a sorted sequence of half-open
// interval endpoints, and iterating over the intervals.
//
// For example, given the inclusive intervals
//   [5, 14]
//   [7, 16]
//   [20, 24]
// the interval-union would be
//   [5, 17) U [20, 25)
// so the sorted sequence of endpoints would be
//   {5, 17, 20, 25}.
//
// UnionScanner iterates over the intervals:
//   us := NewUnionScanner([]PosType{5, 17, 20, 25})
//   var start, end PosType
//   for us.Scan(&start, &end, PosTypeMax) {
//     fmt.Printf("[%d, %d) ", start, end)
//   }
// prints "[5, 17) [20, 25) ".

// PosType is the type used to represent genomic coordinates.  Coordinates are
// 0-based and unsigned.
type PosType uint32

// PosTypeMax is the maximum value that can be represented by a PosType.  It is
// never a valid coordinate, since every inclusive end must be representable as
// an exclusive end as well.
const PosTypeMax = math.MaxUint32

// SearchPosTypes is sort.SearchInts for a sorted []PosType: the smallest index
// i with a[i] >= x, or len(a).
func SearchPosTypes(a []PosType, x PosType) EndpointIndex {
	return EndpointIndex(sort.Search(len(a), func(i int) bool { return a[i] >= x }))
}

// ExpsearchPosType returns SearchPosTypes(a, x) given that the answer is at
// least idx.  It gallops forward from idx in doubling steps and then bisects,
// so a sweep with slowly increasing x stays close to linear.
func ExpsearchPosType(a []PosType, x PosType, idx EndpointIndex) EndpointIndex {
	lo, hi := idx, EndpointIndex(len(a))
	for step := EndpointIndex(1); idx < hi; step *= 2 {
		if a[idx] >= x {
			hi = idx
			break
		}
		lo = idx + 1
		idx += step
	}
	return lo + EndpointIndex(sort.Search(int(hi-lo), func(i int) bool { return a[lo+EndpointIndex(i)] >= x }))
}

// EndpointIndex is SearchPosTypes(endpoints, pos+1) for some position pos.  The
// +1 lines the search up with half-open intervals: pos is covered iff the
// index is odd.
type EndpointIndex uint32

// NewEndpointIndex returns the EndpointIndex of pos.
func NewEndpointIndex(pos PosType, endpoints []PosType) EndpointIndex {
	return SearchPosTypes(endpoints, pos+1)
}

// Contained reports whether the position is covered by an interval.
func (ei EndpointIndex) Contained() bool {
	return ei&1 != 0
}

// Finished reports whether the position is past the last interval.
func (ei EndpointIndex) Finished(endpoints []PosType) bool {
	return ei >= EndpointIndex(len(endpoints))
}

// Begin returns the index of the start of the covering interval, or of the
// next interval if the position is uncovered.
func (ei EndpointIndex) Begin() EndpointIndex {
	return ei & (^EndpointIndex(1))
}

// Update moves the index forward to newPos, which must not precede the
// current position.
func (ei *EndpointIndex) Update(newPos PosType, endpoints []PosType) {
	*ei = ExpsearchPosType(endpoints, newPos+1, *ei)
}

// UnionScanner walks the intervals of an endpoint slice.  pos is always
// covered, or PosTypeMax once the scan is done, and endpointIdx is its
// EndpointIndex.
type UnionScanner struct {
	endpoints   []PosType
	pos         PosType
	endpointIdx EndpointIndex
}

// NewUnionScanner returns a UnionScanner positioned at the first interval.
func NewUnionScanner(endpoints []PosType) UnionScanner {
	us := UnionScanner{endpoints: endpoints, pos: PosTypeMax}
	if len(endpoints) > 0 {
		us.pos, us.endpointIdx = endpoints[0], 1
	}
	return us
}

// Pos returns the next covered position, or PosTypeMax.
func (us *UnionScanner) Pos() PosType {
	return us.pos
}

// Scan stores the next covered half-open range below limit in *start and
// *end.  A range crossing limit is cut there and the rest is left for the
// next call with a larger limit.  It returns false when nothing is left below
// limit.
func (us *UnionScanner) Scan(start *PosType, end *PosType, limit PosType) bool {
	if us.pos >= limit {
		return false
	}
	*start = us.pos
	intervalEnd := us.endpoints[us.endpointIdx]
	if intervalEnd > limit {
		us.pos = limit
		*end = limit
		return true
	}
	*end = intervalEnd
	us.endpointIdx++
	if us.endpointIdx.Finished(us.endpoints) {
		us.pos = PosTypeMax
	} else {
		us.pos = us.endpoints[us.endpointIdx]
		us.endpointIdx++
	}
	return true
}
