package fasta

import (
	"bufio"
	"bytes"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/tsv"
)

// indexEntry is one line of a .fai file.
type indexEntry struct {
	name      string
	length    int64
	offset    int64
	lineBases int64
	lineWidth int64
}

func (e *indexEntry) write(w *tsv.Writer) error {
	w.WriteString(e.name)
	w.WriteInt64(e.length)
	w.WriteInt64(e.offset)
	w.WriteInt64(e.lineBases)
	w.WriteInt64(e.lineWidth)
	return w.EndLine()
}

// GenerateIndex writes the samtools-style index (*.fai) of the FASTA data read
// from in.  Both "\n" and "\r\n" line endings are accepted.
func GenerateIndex(out io.Writer, in io.Reader) error {
	var (
		w     = tsv.NewWriter(out)
		r     = bufio.NewReader(in)
		cur   *indexEntry
		total int64
	)
	for {
		raw, err := r.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return err
		}
		total += int64(len(raw))
		line := bytes.TrimRight(raw, "\r\n")
		switch {
		case len(line) == 0:
		case line[0] == '>':
			if cur != nil {
				if err := cur.write(w); err != nil {
					return err
				}
			}
			name := line[1:]
			if i := bytes.IndexByte(name, ' '); i >= 0 {
				name = name[:i]
			}
			if len(name) == 0 {
				return errors.E(errors.Invalid, "malformed FASTA file: empty sequence name")
			}
			cur = &indexEntry{name: string(name), offset: total}
		default:
			if cur == nil {
				return errors.E(errors.Invalid, "malformed FASTA file: sequence data before the first header")
			}
			if cur.lineWidth == 0 {
				cur.lineBases, cur.lineWidth = int64(len(line)), int64(len(raw))
			}
			cur.length += int64(len(line))
		}
		if err == io.EOF {
			break
		}
	}
	if total == 0 {
		return errors.E(errors.Invalid, "empty FASTA file")
	}
	if cur != nil {
		if err := cur.write(w); err != nil {
			return err
		}
	}
	return w.Flush()
}
