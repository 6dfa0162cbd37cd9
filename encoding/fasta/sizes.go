// Package fasta reads reference sequence lengths, which bound intergenic and
// complement regions.  Lengths come from a FASTA index (*.fai), a two-column
// "name<TAB>length" table such as UCSC's chrom.sizes, or a FASTA file, which
// is indexed on the fly.  See http://www.htslib.org/doc/faidx.html.
//
// Sequence names are the characters after '>' up to the first space:
// '>chr1 A viral sequence' names 'chr1'.
package fasta

import (
	"bufio"
	"bytes"
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/tsv"
)

// sizeRow is the leading part of a .fai or chrom.sizes line.  Later columns
// are ignored.
type sizeRow struct {
	Name   string
	Length uint64
}

// FaiToReferenceLengths reads a FASTA index, or any table whose first two
// columns are a sequence name and its length, and returns a map from name to
// length.
func FaiToReferenceLengths(index io.Reader) (map[string]uint64, error) {
	r := tsv.NewReader(index)
	r.Comment = '#'
	r.FieldsPerRecord = -1
	lengths := make(map[string]uint64)
	for {
		var row sizeRow
		if err := r.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.E(errors.Invalid, "read sequence lengths", err)
		}
		if _, ok := lengths[row.Name]; ok {
			return nil, errors.E(errors.Invalid, "duplicate sequence", row.Name)
		}
		lengths[row.Name] = row.Length
	}
	return lengths, nil
}

// LoadReferenceLengths reads sequence lengths from path, which may be
// compressed.  A file whose first byte is '>' is treated as FASTA; anything
// else as an index table.
func LoadReferenceLengths(ctx context.Context, path string) (lengths map[string]uint64, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer file.CloseAndReport(ctx, in, &err)
	var r io.Reader = in.Reader(ctx)
	if u := compress.NewReaderPath(r, in.Name()); u != nil {
		r = u
	}
	br := bufio.NewReaderSize(r, 64<<10)
	head, err := br.Peek(1)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(head) == 1 && head[0] == '>' {
		var index bytes.Buffer
		if err = GenerateIndex(&index, br); err != nil {
			return nil, errors.E(err, path)
		}
		return FaiToReferenceLengths(&index)
	}
	if lengths, err = FaiToReferenceLengths(br); err != nil {
		return nil, errors.E(err, path)
	}
	return lengths, nil
}
