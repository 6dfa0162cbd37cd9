package bed

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/grailbio/bedmerge/interval"
	"github.com/grailbio/hts/bgzf"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRuns = []interval.Merged{
	{Chrom: "chr1", Start: 10, End: 30, Strand: interval.StrandPlus, ID: 1},
	{Chrom: "chr1", Start: 15, End: 25, Strand: interval.StrandMinus, ID: 2},
}

const testRunsBED = "chr1\t10\t31\tMRG1\t0\t+\nchr1\t15\t26\tMRG2\t0\t-\n"

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for _, m := range testRuns {
		require.NoError(t, w.Write(m))
	}
	assert.Equal(t, 0, buf.Len(), "output is buffered until Close")
	require.NoError(t, w.Close())
	assert.Equal(t, testRunsBED, buf.String())
	assert.Equal(t, 2, w.Count())
}

func TestWriterChecksum(t *testing.T) {
	var buf bytes.Buffer
	a := NewWriter(&buf)
	for _, m := range testRuns {
		require.NoError(t, a.Write(m))
	}
	b := NewWriter(&buf)
	for i := len(testRuns) - 1; i >= 0; i-- {
		m := testRuns[i]
		m.ID += 10
		require.NoError(t, b.Write(m))
	}
	assert.NotEqual(t, uint64(0), a.Checksum())
	assert.Equal(t, a.Checksum(), b.Checksum(), "independent of order and IDs")

	c := NewWriter(&buf)
	m := testRuns[0]
	m.End++
	require.NoError(t, c.Write(m))
	require.NoError(t, c.Write(testRuns[1]))
	assert.NotEqual(t, a.Checksum(), c.Checksum())
}

func TestWriterFlushesInChunks(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	for i := 0; i < 1000; i++ {
		require.NoError(t, w.Write(interval.Merged{Chrom: "chr1", Start: 0, End: 9, Strand: interval.StrandPlus, ID: i + 1}))
	}
	flushed := buf.Len()
	assert.True(t, flushed > 0)
	require.NoError(t, w.Close())
	assert.True(t, flushed < buf.Len(), "the tail stays buffered until Close")
	assert.Equal(t, 1000, bytes.Count(buf.Bytes(), []byte{'\n'}))
}

func TestCreate(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()

	path := filepath.Join(tmpdir, "out.bed")
	w, err := Create(ctx, path, WriterOpts{})
	require.NoError(t, err)
	for _, m := range testRuns {
		require.NoError(t, w.Write(m))
	}
	require.NoError(t, w.Close())
	data, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testRunsBED, string(data))

	gzPath := filepath.Join(tmpdir, "out.bed.gz")
	w, err = Create(ctx, gzPath, WriterOpts{Parallelism: 2})
	require.NoError(t, err)
	for _, m := range testRuns {
		require.NoError(t, w.Write(m))
	}
	require.NoError(t, w.Close())
	compressed, err := ioutil.ReadFile(gzPath)
	require.NoError(t, err)
	r, err := bgzf.NewReader(bytes.NewReader(compressed), 1)
	require.NoError(t, err)
	data, err = ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, testRunsBED, string(data))
}
