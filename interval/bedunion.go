package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		// These simple loops beat the standard library split functions when
		// only a handful of tokens are expected.
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// NewBEDOpts defines behavior of this package's BED-loading function(s).
type NewBEDOpts struct {
	// OneBasedInput interprets the BED interval boundaries as one-based [start,
	// end] instead of the usual zero-based [start, end).
	OneBasedInput bool
}

// BEDUnion is a set of target regions, used to restrict features to the
// parts that fall inside the targets.
//
// Each chromosome's set is a length-2N sequence, where N is the number of
// disjoint intervals: the (0-based) start of interval #k is in element [2k]
// and its exclusive end in element [2k+1], in increasing order.  Chromosome
// names are matched case-insensitively.
type BEDUnion struct {
	// nameMap is keyed by lower-cased chromosome name.  Always initialized.
	nameMap map[string][]PosType
	// lastChrIntervals is the set for lastChrName, the most recently queried
	// chromosome.
	lastChrIntervals []PosType
	lastChrName      string
	lastValid        bool
}

func (u *BEDUnion) chrIntervals(chrName string) []PosType {
	if u.lastValid && strings.EqualFold(chrName, u.lastChrName) {
		return u.lastChrIntervals
	}
	u.lastChrName = chrName
	u.lastChrIntervals = u.nameMap[strings.ToLower(chrName)]
	u.lastValid = true
	return u.lastChrIntervals
}

// HasChrom reports whether any target lies on the chromosome.
func (u *BEDUnion) HasChrom(chrName string) bool {
	return len(u.chrIntervals(chrName)) > 0
}

// Clip calls fn for each maximal piece of the inclusive interval [start, end]
// that lies inside the union, in increasing order.  The pieces are inclusive
// as well.
func (u *BEDUnion) Clip(chrName string, start, end PosType, fn func(start, end PosType) error) error {
	intervals := u.chrIntervals(chrName)
	limit := end + 1
	for idx := NewEndpointIndex(start, intervals).Begin(); !idx.Finished(intervals) && intervals[idx] < limit; idx += 2 {
		pieceStart, pieceLimit := intervals[idx], intervals[idx+1]
		if pieceStart < start {
			pieceStart = start
		}
		if pieceLimit > limit {
			pieceLimit = limit
		}
		if err := fn(pieceStart, pieceLimit-1); err != nil {
			return err
		}
	}
	return nil
}

// NumBases returns the number of bases covered by the union.
func (u *BEDUnion) NumBases() int64 {
	var n int64
	for _, intervals := range u.nameMap {
		us := NewUnionScanner(intervals)
		var start, end PosType
		for us.Scan(&start, &end, PosTypeMax) {
			n += int64(end - start)
		}
	}
	return n
}

func scanBEDUnion(scanner *bufio.Scanner, opts NewBEDOpts) (entries []Entry, err error) {
	var startSubtract int
	if opts.OneBasedInput {
		startSubtract++
	}
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		// gunsafe.BytesToString is only used for the strconv calls below, whose
		// results don't outlive the line buffer.
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken == 0 || tokens[0][0] == '#' ||
			gunsafe.BytesToString(tokens[0]) == "track" || gunsafe.BytesToString(tokens[0]) == "browser" {
			continue
		}
		if nToken != 3 {
			err = fmt.Errorf("interval.scanBEDUnion: line %d has fewer tokens than expected", lineIdx)
			return
		}
		var parsedStart, parsedEnd int
		if parsedStart, err = strconv.Atoi(gunsafe.BytesToString(tokens[1])); err != nil {
			err = fmt.Errorf("interval.scanBEDUnion: line %d: %v", lineIdx, err)
			return
		}
		parsedStart -= startSubtract
		if parsedStart < 0 {
			err = fmt.Errorf("interval.scanBEDUnion: negative start coordinate %s on line %d", tokens[1], lineIdx)
			return
		}
		if parsedEnd, err = strconv.Atoi(gunsafe.BytesToString(tokens[2])); err != nil {
			err = fmt.Errorf("interval.scanBEDUnion: line %d: %v", lineIdx, err)
			return
		}
		if parsedEnd < parsedStart || parsedEnd >= PosTypeMax {
			err = fmt.Errorf("interval.scanBEDUnion: invalid coordinate pair on line %d", lineIdx)
			return
		}
		// The chromosome name must be copied; tokens[0] points into the
		// scanner's buffer.
		entries = append(entries, Entry{
			ChrName: string(tokens[0]),
			Start0:  PosType(parsedStart),
			End:     PosType(parsedEnd),
		})
	}
	err = scanner.Err()
	return
}

// NewBEDUnion loads just the intervals from an interval-BED, merging
// touching/overlapping intervals and eliminating empty ones in the process.
// The input need not be sorted.
func NewBEDUnion(reader io.Reader, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	scanner := bufio.NewScanner(reader)
	var entries []Entry
	if entries, err = scanBEDUnion(scanner, opts); err != nil {
		return
	}
	if bedUnion, err = NewBEDUnionFromEntries(entries); err != nil {
		return
	}
	log.Printf("BED loaded, %d base(s) covered.", bedUnion.NumBases())
	return
}

// NewBEDUnionFromPath is a wrapper for NewBEDUnion that takes a path instead
// of an io.Reader.  Gzipped files are decompressed.
func NewBEDUnionFromPath(ctx context.Context, path string, opts NewBEDOpts) (bedUnion BEDUnion, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewBEDUnion(reader, opts)
}

// Entry represents a single interval, with 0-based half-open coordinates.
type Entry struct {
	ChrName string
	Start0  PosType
	End     PosType
}

// ParseRegionString parses a region string of one of the forms
//   [contig ID]:[1-based first pos]-[last pos]
//   [contig ID]:[1-based pos]
//   [contig ID]
// returning a contig ID and 0-based interval boundaries.  The interval
// [0, PosTypeMax - 1) is returned if there is no positional restriction.
func ParseRegionString(region string) (result Entry, err error) {
	if len(region) == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty region string")
		return
	}
	colonPos := strings.IndexByte(region, ':')
	if colonPos == -1 {
		result.ChrName = region
		result.Start0 = 0
		result.End = PosTypeMax - 1
		return
	}
	if colonPos == 0 {
		err = fmt.Errorf("interval.ParseRegionString: empty contig ID")
		return
	}
	result.ChrName = region[0:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		var pos1 uint64
		if pos1, err = strconv.ParseUint(rangeStr, 10, 32); err != nil {
			return
		}
		if pos1 == 0 || pos1 >= PosTypeMax {
			err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", rangeStr)
			return
		}
		result.Start0 = PosType(pos1 - 1)
		result.End = PosType(pos1)
		return
	}
	start1Str := rangeStr[:dashPos]
	endStr := rangeStr[dashPos+1:]
	var start1, end0 uint64
	if start1, err = strconv.ParseUint(start1Str, 10, 32); err != nil {
		return
	}
	if start1 == 0 {
		err = fmt.Errorf("interval.ParseRegionString: position %v in region string out of range", start1Str)
		return
	}
	if end0, err = strconv.ParseUint(endStr, 10, 32); err != nil {
		return
	}
	if end0 < start1 || end0 >= PosTypeMax {
		err = fmt.Errorf("interval.ParseRegionString: invalid range string %v", rangeStr)
		return
	}
	result.Start0 = PosType(start1 - 1)
	result.End = PosType(end0)
	return
}

// NewBEDUnionFromEntries initializes a BEDUnion from entries in any order.
// Empty entries are dropped; overlapping and touching ones are merged.
func NewBEDUnionFromEntries(entries []Entry) (bedUnion BEDUnion, err error) {
	bedUnion.nameMap = make(map[string][]PosType)
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	for i := range sorted {
		if sorted[i].End < sorted[i].Start0 || sorted[i].End >= PosTypeMax {
			err = fmt.Errorf("interval.NewBEDUnionFromEntries: invalid coordinate pair %s:[%d, %d)", sorted[i].ChrName, sorted[i].Start0, sorted[i].End)
			return
		}
		sorted[i].ChrName = strings.ToLower(sorted[i].ChrName)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].ChrName != sorted[j].ChrName {
			return sorted[i].ChrName < sorted[j].ChrName
		}
		return sorted[i].Start0 < sorted[j].Start0
	})
	for _, entry := range sorted {
		if entry.End == entry.Start0 {
			continue
		}
		chrIntervals := bedUnion.nameMap[entry.ChrName]
		n := len(chrIntervals)
		if n > 0 && entry.Start0 <= chrIntervals[n-1] {
			// Overlapping or touching the previous interval; extend it.
			if entry.End > chrIntervals[n-1] {
				chrIntervals[n-1] = entry.End
			}
			continue
		}
		bedUnion.nameMap[entry.ChrName] = append(chrIntervals, entry.Start0, entry.End)
	}
	return
}
