package bedmerge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/grailbio/bedmerge/interval"
	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	refCSV = `1,"hyper","hg19","chr1",10,29,20,"mm9",0
2,"hyper","hg19","chr1",100,149,50,"mm9",0
3,"hyper","hg19","chr2",0,9,10,"mm9",0
`
	relCSV = `1,"hyper","mm9","chr1",20,59,40,"hg19",0
2,"hyper","mm9","chr1",140,159,20,"hg19",0
`
)

func TestOverlay(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	ref := writeFile(t, tmpdir, "ref.csv", refCSV)
	rel := writeFile(t, tmpdir, "rel.csv", relCSV)
	sizes := writeFile(t, tmpdir, "sizes.fai", "chr1\t200\t0\t60\t61\nchr2\t10\t0\t60\t61\n")

	tests := []struct {
		name  string
		setup func(*OverlayOpts)
		want  string
	}{
		{
			"intersect", nil,
			`1,"merged","hg19","chr1",20,29,10,"mm9",0
2,"merged","hg19","chr1",140,149,10,"mm9",0
`,
		},
		{
			"ref exclusive", func(o *OverlayOpts) { o.Op = interval.RefExclusive },
			`1,"merged","hg19","chr1",10,19,10,"mm9",0
2,"merged","hg19","chr1",100,139,40,"mm9",0
3,"merged","hg19","chr2",0,9,10,"mm9",0
`,
		},
		{
			"rel exclusive", func(o *OverlayOpts) { o.Op = interval.RelExclusive },
			`1,"merged","hg19","chr1",30,59,30,"mm9",0
2,"merged","hg19","chr1",150,159,10,"mm9",0
`,
		},
		{
			"union", func(o *OverlayOpts) { o.Op = interval.Union },
			`1,"merged","hg19","chr1",10,59,50,"mm9",0
2,"merged","hg19","chr1",100,159,60,"mm9",0
3,"merged","hg19","chr2",0,9,10,"mm9",0
`,
		},
		{
			"neither", func(o *OverlayOpts) { o.Op = interval.Neither },
			`1,"merged","hg19","chr1",0,9,10,"mm9",0
2,"merged","hg19","chr1",60,99,40,"mm9",0
`,
		},
		{
			"neither with sizes", func(o *OverlayOpts) { o.Op, o.ChromSizesPath = interval.Neither, sizes },
			`1,"merged","hg19","chr1",0,9,10,"mm9",0
2,"merged","hg19","chr1",60,99,40,"mm9",0
3,"merged","hg19","chr1",160,199,40,"mm9",0
`,
		},
		{
			"joined", func(o *OverlayOpts) { o.JoinDistance = 200 },
			`1,"merged","hg19","chr1",20,149,130,"mm9",0
`,
		},
		{
			"join too short", func(o *OverlayOpts) { o.JoinDistance = 109 },
			`1,"merged","hg19","chr1",20,29,10,"mm9",0
2,"merged","hg19","chr1",140,149,10,"mm9",0
`,
		},
		{
			"merge length", func(o *OverlayOpts) { o.MinMergeLength = 11 },
			"",
		},
		{
			"ref extend", func(o *OverlayOpts) { o.RefExtend = 5 },
			`1,"merged","hg19","chr1",20,34,15,"mm9",0
2,"merged","hg19","chr1",140,154,15,"mm9",0
`,
		},
		{
			"excluded", func(o *OverlayOpts) { o.Op, o.ExcludeChroms = interval.Union, []string{"chr1"} },
			`1,"merged","hg19","chr2",0,9,10,"mm9",0
`,
		},
		{
			"no rel", func(o *OverlayOpts) { o.Op, o.Rel = interval.RefExclusive, "" },
			`1,"merged","hg19","chr1",10,29,20,"mm9",0
2,"merged","hg19","chr1",100,149,50,"mm9",0
3,"merged","hg19","chr2",0,9,10,"mm9",0
`,
		},
	}
	for _, tt := range tests {
		opts := DefaultOverlayOpts
		opts.Ref, opts.Rel = ref, rel
		opts.Output = filepath.Join(tmpdir, "out.csv")
		opts.RefSpecies, opts.RelSpecies = "hg19", "mm9"
		if tt.setup != nil {
			tt.setup(&opts)
		}
		n, err := Overlay(ctx, opts)
		require.NoError(t, err, tt.name)
		assert.Equal(t, tt.want, readFile(t, opts.Output), tt.name)
		if tt.want == "" {
			assert.Equal(t, 0, n, tt.name)
		}
	}
}

func TestOverlaySameFile(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ref := writeFile(t, tmpdir, "ref.csv", refCSV)
	opts := DefaultOverlayOpts
	opts.Ref, opts.Rel = ref, ref
	opts.Output = filepath.Join(tmpdir, "out.csv")
	opts.Op = interval.RefExclusive
	n, err := Overlay(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOverlayErrors(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ref := writeFile(t, tmpdir, "ref.csv", refCSV)
	bad := writeFile(t, tmpdir, "bad.csv", "1,\"a\",\"b\",\"chr1\",10\n")

	tests := []struct {
		name  string
		setup func(*OverlayOpts)
		want  Status
	}{
		{"rel required", func(o *OverlayOpts) { o.Rel = "" }, ConfigError},
		{"max length", func(o *OverlayOpts) { o.MaxLength = 2 }, ConfigError},
		{"extend", func(o *OverlayOpts) { o.RefExtend = -MaxExtend - 1 }, ConfigError},
		{"join", func(o *OverlayOpts) { o.JoinDistance = MaxJoinDistance + 1 }, ConfigError},
		{"op", func(o *OverlayOpts) { o.Op = 5 }, ConfigError},
		{"missing ref", func(o *OverlayOpts) { o.Ref = filepath.Join(tmpdir, "missing.csv") }, OpenFileFailed},
		{"malformed rel", func(o *OverlayOpts) { o.Rel = bad }, ParseError},
		{"out of memory", func(o *OverlayOpts) { o.MaxEndpoints = 1 }, OutOfMemory},
	}
	for _, tt := range tests {
		opts := DefaultOverlayOpts
		opts.Ref, opts.Rel = ref, ref
		opts.Output = filepath.Join(tmpdir, "out.csv")
		tt.setup(&opts)
		_, err := Overlay(context.Background(), opts)
		require.Error(t, err, tt.name)
		assert.Equal(t, tt.want, StatusOf(err), "%s: %v", tt.name, err)
	}
}

func TestExtendElement(t *testing.T) {
	tests := []struct {
		start, end       int64
		n, extend        int
		wantStart, wantE int64
		ok               bool
	}{
		{10, 19, 10, 0, 10, 19, true},
		{10, 19, 10, 15, 0, 34, true},
		{10, 19, 10, -3, 13, 16, true},
		{10, 19, 10, -5, 0, 0, false},
		// Too short before extending, long enough after.
		{10, 11, 2, 2, 8, 13, true},
		// Too long before shrinking, short enough after.
		{0, 99, 100, -30, 30, 69, true},
	}
	for _, tt := range tests {
		var stats elementStats
		start, end, ok := extendElement(tt.start, tt.end, tt.n, tt.extend, 4, 50, &stats)
		assert.Equal(t, tt.ok, ok, "%+v", tt)
		if ok {
			assert.Equal(t, []int64{tt.wantStart, tt.wantE}, []int64{start, end}, "%+v", tt)
		}
	}
}
