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
package bed

import (
	"context"
	"encoding/binary"
	"hash"
	"io"
	"runtime"
	"strings"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
	"github.com/grailbio/bedmerge/interval"
	"github.com/grailbio/hts/bgzf"
)

var mergedNamePrefix = []byte("MRG")

// WriterOpts configures Create.
type WriterOpts struct {
	// Parallelism is the number of BGZF compression goroutines used for
	// ".gz" paths.  Defaults to runtime.NumCPU().
	Parallelism int
}

// Writer writes merged runs as BED6 lines:
//   chrom  start  end+1  MRG<id>  0  strand
// Output goes through the tsv.Writer's fixed-size buffer, so callers must
// Close the Writer.
type Writer struct {
	ctx  context.Context
	out  file.File
	bgzf *bgzf.Writer
	tsv  *tsv.Writer
	n    int

	h     hash.Hash64
	csum  uint64
	coord [9]byte
}

// NewWriter returns a Writer over w.  Close flushes it but does not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{tsv: tsv.NewWriter(w), h: seahash.New()}
}

// Create creates (or truncates) path and returns a Writer for it.  Paths
// ending in ".gz" are BGZF-compressed.
func Create(ctx context.Context, path string, opts WriterOpts) (*Writer, error) {
	out, err := file.Create(ctx, path)
	if err != nil {
		return nil, err
	}
	var (
		sink io.Writer = out.Writer(ctx)
		bgz  *bgzf.Writer
	)
	if strings.HasSuffix(path, ".gz") {
		parallelism := opts.Parallelism
		if parallelism <= 0 {
			parallelism = runtime.NumCPU()
		}
		bgz = bgzf.NewWriter(sink, parallelism)
		sink = bgz
	}
	w := NewWriter(sink)
	w.ctx, w.out, w.bgzf = ctx, out, bgz
	return w, nil
}

// Write appends one run.  The run's inclusive end is written as an exclusive
// end.
func (w *Writer) Write(m interval.Merged) error {
	w.tsv.WriteString(m.Chrom)
	w.tsv.WriteUint32(uint32(m.Start))
	w.tsv.WriteUint32(uint32(m.End) + 1)
	w.tsv.WritePartialBytes(mergedNamePrefix)
	w.tsv.WriteUint32(uint32(m.ID))
	w.tsv.WriteByte('0')
	w.tsv.WriteByte(byte(m.Strand))
	if err := w.tsv.EndLine(); err != nil {
		return err
	}
	w.n++
	binary.LittleEndian.PutUint32(w.coord[:4], uint32(m.Start))
	binary.LittleEndian.PutUint32(w.coord[4:8], uint32(m.End))
	w.coord[8] = byte(m.Strand)
	w.h.Reset()
	w.h.Write([]byte(m.Chrom))
	w.h.Write(w.coord[:])
	w.csum += w.h.Sum64()
	return nil
}

// Count returns the number of runs written.
func (w *Writer) Count() int { return w.n }

// Checksum returns the sum of the seahashes of the runs written so far.  It
// covers chrom, coordinates and strand but not the run IDs, and does not
// depend on the order of the runs.
func (w *Writer) Checksum() uint64 { return w.csum }

// Close flushes buffered output and, for a Writer made by Create, closes the
// file.  It returns the first error encountered.
func (w *Writer) Close() (err error) {
	if w.out != nil {
		defer file.CloseAndReport(w.ctx, w.out, &err)
	}
	if e := w.tsv.Flush(); e != nil && err == nil {
		err = e
	}
	if w.bgzf != nil {
		if e := w.bgzf.Close(); e != nil && err == nil {
			err = e
		}
	}
	return
}
