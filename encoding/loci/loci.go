// Package loci reads and writes loci CSV files, one genomic element per line:
//
//   id,"type","species","chrom",start,end,len,"species2",score
//
// Coordinates are 0-based and inclusive.  Only the first seven columns are
// required on input.
package loci

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/bedmerge/interval"
	"github.com/pkg/errors"
)

// MinFields is the number of columns an input line must have.
const MinFields = 7

// Element is one loci CSV record.
type Element struct {
	ID       int
	Type     string
	Species  string
	Chrom    string
	Start    interval.PosType
	End      interval.PosType
	Len      int
	Species2 string
	Score    int
}

// ReaderOpts configures NewReader.
type ReaderOpts struct {
	// SkipHeader drops the first line of the file.
	SkipHeader bool
}

// Reader parses loci CSV records.  Quoted fields follow RFC 4180.
type Reader struct {
	r          *tsv.Reader
	lineIdx    int
	skipHeader bool
}

// NewReader returns a Reader over in.
func NewReader(in io.Reader, opts ReaderOpts) *Reader {
	r := tsv.NewReader(in)
	r.Comma = ','
	r.Comment = '#'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	return &Reader{r: r, skipHeader: opts.SkipHeader}
}

func (r *Reader) errorf(format string, args ...interface{}) error {
	return fmt.Errorf("loci: line %d: %s", r.lineIdx, fmt.Sprintf(format, args...))
}

func (r *Reader) atoi(field, what string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil {
		return 0, r.errorf("bad %s %q", what, field)
	}
	return v, nil
}

// Read fills e with the next record.  It returns io.EOF after the last one.
func (r *Reader) Read(e *Element) error {
	fields, err := r.r.Reader.Read()
	if err == io.EOF {
		return err
	}
	r.lineIdx++
	if err != nil {
		return errors.Wrapf(err, "loci: line %d", r.lineIdx)
	}
	if r.skipHeader {
		r.skipHeader = false
		return r.Read(e)
	}
	if len(fields) < MinFields {
		return r.errorf("expected at least %d fields, got %d", MinFields, len(fields))
	}
	*e = Element{Type: fields[1], Species: fields[2], Chrom: fields[3]}
	if e.ID, err = r.atoi(fields[0], "id"); err != nil {
		return err
	}
	start, err := r.atoi(fields[4], "start")
	if err != nil {
		return err
	}
	end, err := r.atoi(fields[5], "end")
	if err != nil {
		return err
	}
	if start < 0 || end < start || int64(end) >= int64(interval.PosTypeMax) {
		return r.errorf("bad interval [%d, %d]", start, end)
	}
	e.Start, e.End = interval.PosType(start), interval.PosType(end)
	if e.Len, err = r.atoi(fields[6], "len"); err != nil {
		return err
	}
	if len(fields) > 7 {
		e.Species2 = fields[7]
	}
	if len(fields) > 8 {
		// Scores are informational.
		e.Score, _ = strconv.Atoi(strings.TrimSpace(fields[8]))
	}
	return nil
}

// Load reads every element of the loci file at path, which may be
// compressed, and passes it to fn.
func Load(ctx context.Context, path string, opts ReaderOpts, fn func(*Element) error) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var inr io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(inr, in.Name()); u != nil {
		inr = u
	}
	r := NewReader(bufio.NewReaderSize(inr, 64<<10), opts)
	var e Element
	for {
		if err = r.Read(&e); err != nil {
			if err == io.EOF {
				return nil
			}
			return errors.Wrap(err, path)
		}
		if err = fn(&e); err != nil {
			return err
		}
	}
}

// Writer writes loci CSV records.  Callers must Flush it.
type Writer struct {
	w *bufio.Writer
	n int
}

// NewWriter returns a Writer over w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriterSize(w, 64<<10)}
}

// Write appends e.  Score is always written as 0.
func (w *Writer) Write(e *Element) error {
	w.n++
	_, err := fmt.Fprintf(w.w, "%d,\"%s\",\"%s\",\"%s\",%d,%d,%d,\"%s\",0\n",
		e.ID, e.Type, e.Species, e.Chrom, e.Start, e.End, e.Len, e.Species2)
	return err
}

// Count returns the number of elements written.
func (w *Writer) Count() int { return w.n }

// Flush writes buffered output to the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }
