package fasta_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/bedmerge/encoding/fasta"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
)

const (
	fastaData  = ">seq1\nACGTA\nCGTAC\nGT\n>seq2 A viral sequence\nACGT\nACGT\n"
	fastaIndex = "seq1\t12\t6\t5\t6\nseq2\t8\t44\t4\t5\n"
)

func TestFaiToReferenceLengths(t *testing.T) {
	lengths, err := fasta.FaiToReferenceLengths(strings.NewReader(
		"chr1\t250000000\t6\t60\t61\nchr2\t199000000\t6\t60\t61\n"))
	assert.NoError(t, err)
	expect.EQ(t, lengths, map[string]uint64{"chr1": 250000000, "chr2": 199000000})

	// chrom.sizes tables have only two columns.
	lengths, err = fasta.FaiToReferenceLengths(strings.NewReader("# hg19\nchrM\t16571\nchrY\t59373566\n"))
	assert.NoError(t, err)
	expect.EQ(t, lengths, map[string]uint64{"chrM": 16571, "chrY": 59373566})

	_, err = fasta.FaiToReferenceLengths(strings.NewReader("chr1\tlong\n"))
	expect.NotNil(t, err)
	_, err = fasta.FaiToReferenceLengths(strings.NewReader("chr1\t10\nchr1\t20\n"))
	expect.HasSubstr(t, err.Error(), "duplicate sequence")
}

func TestGenerateIndex(t *testing.T) {
	generateIndex := func(fa string) string {
		var idx bytes.Buffer
		assert.NoError(t, fasta.GenerateIndex(&idx, strings.NewReader(fa)))
		return idx.String()
	}

	expect.EQ(t, generateIndex(fastaData), fastaIndex)
	expect.EQ(t, generateIndex(`>E0
GGTGAAATC
CCTGAAATC
AAAATTGCT
>E1
GTCCCTCCCCAGACATGGCCCTGGGAGGC
>E2
CCGCGCCCGCGCCCCCGCCGCC
`), "E0\t27\t4\t9\t10\nE1\t29\t38\t29\t30\nE2\t22\t72\t22\t23\n")

	// CRLF line endings.
	expect.EQ(t, generateIndex(">E0\r\nGGGG\r\n>E1\r\nAAAAA\r\n"),
		"E0\t4\t5\t4\t6\nE1\t5\t16\t5\t7\n")
	// No newline at the end.
	expect.EQ(t, generateIndex(">E0\nGGGG\n>E1\nCCCCC\nAAAAA"),
		"E0\t4\t4\t4\t5\nE1\t10\t13\t5\t6\n")
	expect.EQ(t, generateIndex(">E0\nGGGG\n>E1\nAAAAA"),
		"E0\t4\t4\t4\t5\nE1\t5\t13\t5\t5\n")

	var idx bytes.Buffer
	expect.Regexp(t, fasta.GenerateIndex(&idx, strings.NewReader("")), "empty FASTA")
	expect.Regexp(t, fasta.GenerateIndex(&idx, strings.NewReader("ACGT\n>E0\nA\n")), "before the first header")
}

func TestLoadReferenceLengths(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	want := map[string]uint64{"seq1": 12, "seq2": 8}

	faPath := filepath.Join(tmpdir, "ref.fa")
	assert.NoError(t, ioutil.WriteFile(faPath, []byte(fastaData), 0600))
	lengths, err := fasta.LoadReferenceLengths(ctx, faPath)
	assert.NoError(t, err)
	expect.EQ(t, lengths, want)

	faiPath := filepath.Join(tmpdir, "ref.fa.fai")
	assert.NoError(t, ioutil.WriteFile(faiPath, []byte(fastaIndex), 0600))
	lengths, err = fasta.LoadReferenceLengths(ctx, faiPath)
	assert.NoError(t, err)
	expect.EQ(t, lengths, want)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err = zw.Write([]byte(fastaData))
	assert.NoError(t, err)
	assert.NoError(t, zw.Close())
	gzPath := filepath.Join(tmpdir, "ref.fa.gz")
	assert.NoError(t, ioutil.WriteFile(gzPath, gz.Bytes(), 0600))
	lengths, err = fasta.LoadReferenceLengths(ctx, gzPath)
	assert.NoError(t, err)
	expect.EQ(t, lengths, want)

	_, err = fasta.LoadReferenceLengths(ctx, filepath.Join(tmpdir, "missing.fa"))
	expect.NotNil(t, err)
}
