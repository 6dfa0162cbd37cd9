// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package bed reads annotation BED files (BED3 through BED12) and writes
// merged-interval BED6 files.
//
// BED coordinates are 0-based half-open.  Features returned by this package
// use inclusive ends: a line "chr1 10 20" becomes Start=10, End=19.
package bed

import (
	"bufio"
	"bytes"
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
	"github.com/grailbio/bedmerge/interval"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// MaxFields is the number of columns in a full BED12 line.  Columns past it
// are ignored.
const MaxFields = 12

// Exon is an inclusive block of a BED12 feature, in chromosome coordinates.
type Exon struct {
	Start, End interval.PosType
}

// Feature is one BED record.
type Feature struct {
	Chrom string
	// Start and End are 0-based and inclusive.
	Start, End interval.PosType
	Name       string
	Score      int
	Strand     interval.Strand
	// ThickStart and ThickEnd bound the coding region, inclusive.  They are
	// only meaningful when HasCDS is set.
	ThickStart, ThickEnd interval.PosType
	HasCDS               bool
	// Exons are in increasing order.  Features with fewer than 12 columns
	// have none.
	Exons []Exon
	// NumFields is the number of columns the record had.
	NumFields int
}

// Span returns the feature's inclusive extent.
func (f *Feature) Span() (start, end interval.PosType) { return f.Start, f.End }

// CDS returns the inclusive coding region, if any.
func (f *Feature) CDS() (start, end interval.PosType, ok bool) {
	return f.ThickStart, f.ThickEnd, f.HasCDS
}

// NumExons returns the number of blocks.
func (f *Feature) NumExons() int { return len(f.Exons) }

// Exon returns block i.
func (f *Feature) Exon(i int) (start, end interval.PosType) {
	return f.Exons[i].Start, f.Exons[i].End
}

// Reader parses BED records from a stream.  Blank lines, comments, and
// "track"/"browser" lines are skipped.
type Reader struct {
	scanner *bufio.Scanner
	lineIdx int
	fields  [MaxFields][]byte
	// Empty counts zero-length records (start == end), which are skipped.
	Empty int
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64<<10), 16<<20)
	return &Reader{scanner: scanner}
}

// splitFields splits a tab-separated line into up to len(fields) columns.
// Lines without tabs are split on runs of blanks.
func splitFields(fields [][]byte, line []byte) int {
	if bytes.IndexByte(line, '\t') < 0 {
		n := 0
		for _, f := range bytes.Fields(line) {
			if n == len(fields) {
				break
			}
			fields[n] = f
			n++
		}
		return n
	}
	n := 0
	for n < len(fields) {
		tab := bytes.IndexByte(line, '\t')
		if tab < 0 {
			fields[n] = bytes.TrimRight(line, " \r")
			n++
			break
		}
		fields[n] = line[:tab]
		n++
		line = line[tab+1:]
	}
	return n
}

func (r *Reader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("bed: line %d: %s", r.lineIdx, fmt.Sprintf(format, args...))
}

func (r *Reader) parsePos(field []byte, what string) (interval.PosType, error) {
	v, err := strconv.ParseUint(gunsafe.BytesToString(field), 10, 32)
	if err != nil || v >= interval.PosTypeMax {
		return 0, r.errorf("bad %s %q", what, field)
	}
	return interval.PosType(v), nil
}

// parseList parses a comma-separated list of n coordinates, allowing a
// trailing comma.
func (r *Reader) parseList(field []byte, n int, what string) ([]interval.PosType, error) {
	field = bytes.TrimSuffix(field, []byte{','})
	parts := bytes.Split(field, []byte{','})
	if len(parts) != n {
		return nil, r.errorf("%s has %d entries, blockCount is %d", what, len(parts), n)
	}
	res := make([]interval.PosType, n)
	for i, p := range parts {
		v, err := r.parsePos(p, what)
		if err != nil {
			return nil, err
		}
		res[i] = v
	}
	return res, nil
}

// Read fills f with the next record.  It returns io.EOF after the last one.
func (r *Reader) Read(f *Feature) error {
	for r.scanner.Scan() {
		r.lineIdx++
		line := r.scanner.Bytes()
		n := splitFields(r.fields[:], line)
		if n == 0 || len(r.fields[0]) == 0 || r.fields[0][0] == '#' ||
			bytes.Equal(r.fields[0], []byte("track")) || bytes.Equal(r.fields[0], []byte("browser")) {
			continue
		}
		if n < 3 {
			return r.errorf("expected at least 3 columns, got %d", n)
		}
		ok, err := r.parse(f, n)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	if err := r.scanner.Err(); err != nil {
		return errors.Wrapf(err, "bed: line %d", r.lineIdx)
	}
	return io.EOF
}

// parse converts the current line's n fields.  It returns false for records
// that are skipped.
func (r *Reader) parse(f *Feature, n int) (bool, error) {
	fields := r.fields[:n]
	start, err := r.parsePos(fields[1], "start")
	if err != nil {
		return false, err
	}
	limit, err := r.parsePos(fields[2], "end")
	if err != nil {
		return false, err
	}
	if limit < start {
		return false, r.errorf("end %d before start %d", limit, start)
	}
	if limit == start {
		r.Empty++
		return false, nil
	}
	*f = Feature{
		Chrom:     string(fields[0]),
		Start:     start,
		End:       limit - 1,
		Strand:    interval.StrandNone,
		NumFields: n,
	}
	if n > 3 {
		f.Name = string(fields[3])
	}
	if n > 4 {
		// Scores are informational; "." and non-integers read as 0.
		f.Score, _ = strconv.Atoi(gunsafe.BytesToString(fields[4]))
	}
	if n > 5 {
		f.Strand = interval.ParseStrand(gunsafe.BytesToString(fields[5]))
	}
	if n > 7 {
		thickStart, err := r.parsePos(fields[6], "thickStart")
		if err != nil {
			return false, err
		}
		thickEnd, err := r.parsePos(fields[7], "thickEnd")
		if err != nil {
			return false, err
		}
		if thickEnd > thickStart {
			f.ThickStart, f.ThickEnd, f.HasCDS = thickStart, thickEnd-1, true
		}
	}
	if n >= MaxFields {
		if err := r.parseBlocks(f, fields[9], fields[10], fields[11], limit); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (r *Reader) parseBlocks(f *Feature, countField, sizesField, startsField []byte, limit interval.PosType) error {
	count, err := strconv.Atoi(gunsafe.BytesToString(countField))
	if err != nil || count <= 0 {
		return r.errorf("bad blockCount %q", countField)
	}
	sizes, err := r.parseList(sizesField, count, "blockSizes")
	if err != nil {
		return err
	}
	starts, err := r.parseList(startsField, count, "blockStarts")
	if err != nil {
		return err
	}
	f.Exons = make([]Exon, 0, count)
	for i := 0; i < count; i++ {
		exonStart := f.Start + starts[i]
		exonLimit := exonStart + sizes[i]
		if sizes[i] == 0 || exonLimit > limit || exonStart < f.Start {
			return r.errorf("block %d [%d, %d) outside feature [%d, %d)", i, exonStart, exonLimit, f.Start, limit)
		}
		if i > 0 && exonStart <= f.Exons[i-1].End {
			return r.errorf("block %d overlaps or precedes block %d", i, i-1)
		}
		f.Exons = append(f.Exons, Exon{Start: exonStart, End: exonLimit - 1})
	}
	return nil
}

// File is a fully loaded BED file.
type File struct {
	Path     string
	Features []Feature
	// GeneDetail is set when every record has the block columns of BED12,
	// which the exon, intron, CDS and UTR region kinds need.
	GeneDetail bool
}

// ReadAll reads every record from r.
func ReadAll(r io.Reader) (*File, error) {
	reader := NewReader(r)
	f := &File{GeneDetail: true}
	for {
		var feat Feature
		err := reader.Read(&feat)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if feat.NumFields < MaxFields {
			f.GeneDetail = false
		}
		f.Features = append(f.Features, feat)
	}
	if len(f.Features) == 0 {
		f.GeneDetail = false
	}
	if reader.Empty > 0 {
		log.Printf("bed: skipped %d zero-length record(s)", reader.Empty)
	}
	return f, nil
}

// Load reads the BED file at path, which may be gzipped, and sorts its
// features with SortFeatures.
func Load(ctx context.Context, path string) (bedFile *File, err error) {
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
	if bedFile, err = ReadAll(reader); err != nil {
		err = errors.Wrap(err, path)
		return
	}
	bedFile.Path = path
	SortFeatures(bedFile.Features)
	return
}

// SortFeatures orders features by chromosome, in order of first appearance
// (names compared case-insensitively), then by start and end.
func SortFeatures(features []Feature) {
	rank := map[string]int{}
	keys := make([]int, len(features))
	for i := range features {
		name := strings.ToLower(features[i].Chrom)
		r, ok := rank[name]
		if !ok {
			r = len(rank)
			rank[name] = r
		}
		keys[i] = r
	}
	idx := make([]int, len(features))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		a, b := idx[i], idx[j]
		if keys[a] != keys[b] {
			return keys[a] < keys[b]
		}
		if features[a].Start != features[b].Start {
			return features[a].Start < features[b].Start
		}
		return features[a].End < features[b].End
	})
	sorted := make([]Feature, len(features))
	for i, j := range idx {
		sorted[i] = features[j]
	}
	copy(features, sorted)
}
