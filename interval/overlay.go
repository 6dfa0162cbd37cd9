package interval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// SetOp selects which combination of reference and relative coverage an
// overlay reports.
type SetOp int

const (
	// Intersect reports bases covered by both sets.
	Intersect SetOp = iota
	// RefExclusive reports bases covered by the reference set only.
	RefExclusive
	// RelExclusive reports bases covered by the relative set only.
	RelExclusive
	// Union reports bases covered by either set.
	Union
	// Neither reports bases covered by neither set.
	Neither
)

var setOpNames = [...]string{"intersect", "ref-exclusive", "rel-exclusive", "union", "neither"}

func (op SetOp) String() string {
	if op < 0 || int(op) >= len(setOpNames) {
		return fmt.Sprintf("SetOp(%d)", int(op))
	}
	return setOpNames[op]
}

// ParseSetOp accepts a SetOp name or its number.
func ParseSetOp(s string) (SetOp, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n >= len(setOpNames) {
			return 0, fmt.Errorf("interval.ParseSetOp: %d not in range 0..%d", n, len(setOpNames)-1)
		}
		return SetOp(n), nil
	}
	for i, name := range setOpNames {
		if strings.EqualFold(s, name) {
			return SetOp(i), nil
		}
	}
	return 0, fmt.Errorf("interval.ParseSetOp: unknown set operation %q", s)
}

// NeedsRel reports whether the operation is meaningless without a relative set.
func (op SetOp) NeedsRel() bool {
	return op != RefExclusive && op != Union
}

func (op SetOp) holds(inRef, inRel bool) bool {
	switch op {
	case Intersect:
		return inRef && inRel
	case RefExclusive:
		return inRef && !inRel
	case RelExclusive:
		return !inRef && inRel
	case Union:
		return inRef || inRel
	case Neither:
		return !inRef && !inRel
	}
	return false
}

// SourceUnion returns the half-open interval-union, as an endpoint sequence,
// of the features c received from the given source.  c's endpoints must be in
// SortEndpoints order.
func SourceUnion(c *Chrom, source uint8) []PosType {
	var res []PosType
	depth := 0
	for i := range c.Endpoints {
		ep := &c.Endpoints[i]
		if ep.Source != source {
			continue
		}
		if ep.Kind == Start {
			if depth == 0 {
				if n := len(res); n > 0 && res[n-1] >= ep.Pos {
					// Abuts the previous interval; reopen it.
					res = res[:n-1]
				} else {
					res = append(res, ep.Pos)
				}
			}
			depth++
			continue
		}
		depth--
		if depth == 0 {
			res = append(res, ep.Pos+1)
		}
	}
	return res
}

// Overlay calls emit with the maximal inclusive runs in [0, limit) where op
// holds for the unions of the ref and rel sources of c.  c's endpoints must be
// in SortEndpoints order.
func Overlay(c *Chrom, op SetOp, ref, rel uint8, limit PosType, emit func(start, end PosType) error) error {
	refUnion := SourceUnion(c, ref)
	relUnion := SourceUnion(c, rel)

	bounds := make([]PosType, 0, len(refUnion)+len(relUnion)+2)
	bounds = append(bounds, 0, limit)
	bounds = append(bounds, refUnion...)
	bounds = append(bounds, relUnion...)
	sort.Slice(bounds, func(i, j int) bool { return bounds[i] < bounds[j] })

	var (
		result         []PosType
		refIdx, relIdx EndpointIndex
	)
	for i := 0; i+1 < len(bounds); i++ {
		pos, next := bounds[i], bounds[i+1]
		if pos >= limit {
			break
		}
		if pos == next {
			continue
		}
		refIdx.Update(pos, refUnion)
		relIdx.Update(pos, relUnion)
		if !op.holds(refIdx.Contained(), relIdx.Contained()) {
			continue
		}
		if n := len(result); n > 0 && result[n-1] == pos {
			result[n-1] = next
		} else {
			result = append(result, pos, next)
		}
	}

	us := NewUnionScanner(result)
	var start, end PosType
	for us.Scan(&start, &end, PosTypeMax) {
		if err := emit(start, end-1); err != nil {
			return err
		}
	}
	return nil
}
