package region

import (
	"errors"
	"testing"

	"github.com/grailbio/bedmerge/encoding/bed"
	"github.com/grailbio/bedmerge/interval"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
)

type span struct {
	chrom      string
	start, end interval.PosType
}

func collect(out *[]span) EmitFunc {
	return func(chrom string, start, end interval.PosType, _ interval.Strand) error {
		*out = append(*out, span{chrom, start, end})
		return nil
	}
}

// codingGene has two exons, [100,129] and [160,199], and a CDS of [120,179].
var codingGene = bed.Feature{
	Chrom: "chr1", Start: 100, End: 199,
	ThickStart: 120, ThickEnd: 179, HasCDS: true,
	Exons:     []bed.Exon{{Start: 100, End: 129}, {Start: 160, End: 199}},
	NumFields: bed.MaxFields,
}

func TestExtractKinds(t *testing.T) {
	tests := []struct {
		kind   Kind
		strand interval.Strand
		want   []span
	}{
		{Any, interval.StrandPlus, []span{{"chr1", 100, 199}}},
		{Exons, interval.StrandPlus, []span{{"chr1", 100, 129}, {"chr1", 160, 199}}},
		{Introns, interval.StrandPlus, []span{{"chr1", 130, 159}}},
		{CDS, interval.StrandPlus, []span{{"chr1", 120, 129}, {"chr1", 160, 179}}},
		{UTR, interval.StrandPlus, []span{{"chr1", 100, 119}, {"chr1", 180, 199}}},
		{UTR5, interval.StrandPlus, []span{{"chr1", 100, 119}}},
		{UTR3, interval.StrandPlus, []span{{"chr1", 180, 199}}},
		{UTR5, interval.StrandMinus, []span{{"chr1", 180, 199}}},
		{UTR3, interval.StrandMinus, []span{{"chr1", 100, 119}}},
		{UTR5, interval.StrandNone, []span{{"chr1", 100, 119}}},
	}
	for _, tt := range tests {
		var got []span
		e := NewExtractor(tt.kind, nil)
		assert.NoError(t, e.Extract("chr1", tt.strand, &codingGene, collect(&got)))
		assert.NoError(t, e.Finish(collect(&got)))
		expect.EQ(t, got, tt.want, "kind %v strand %c", tt.kind, tt.strand)
	}
}

func TestExtractNonCoding(t *testing.T) {
	gene := bed.Feature{
		Chrom: "chr1", Start: 0, End: 99,
		Exons:     []bed.Exon{{Start: 0, End: 9}, {Start: 10, End: 99}},
		NumFields: bed.MaxFields,
	}
	for _, kind := range []Kind{CDS, UTR5, UTR3, Introns} {
		var got []span
		assert.NoError(t, NewExtractor(kind, nil).Extract("chr1", interval.StrandPlus, &gene, collect(&got)))
		expect.EQ(t, len(got), 0, "kind %v", kind)
	}
	var got []span
	assert.NoError(t, NewExtractor(UTR, nil).Extract("chr1", interval.StrandPlus, &gene, collect(&got)))
	expect.EQ(t, got, []span{{"chr1", 0, 9}, {"chr1", 10, 99}})
}

func TestExtractExonInsideCDS(t *testing.T) {
	// The CDS starts and ends inside the single exon; the exon is split.
	gene := bed.Feature{
		Chrom: "chr1", Start: 0, End: 99,
		ThickStart: 0, ThickEnd: 49, HasCDS: true,
		Exons:     []bed.Exon{{Start: 0, End: 99}},
		NumFields: bed.MaxFields,
	}
	var got []span
	assert.NoError(t, NewExtractor(UTR, nil).Extract("chr1", interval.StrandMinus, &gene, collect(&got)))
	expect.EQ(t, got, []span{{"chr1", 50, 99}})
	got = nil
	assert.NoError(t, NewExtractor(UTR3, nil).Extract("chr1", interval.StrandMinus, &gene, collect(&got)))
	expect.EQ(t, len(got), 0)
}

func TestIntergenic(t *testing.T) {
	features := []bed.Feature{
		{Chrom: "chr1", Start: 100, End: 199},
		{Chrom: "chr1", Start: 150, End: 250},
		{Chrom: "chr1", Start: 400, End: 499},
		{Chrom: "chr2", Start: 10, End: 20},
		{Chrom: "chr2", Start: 21, End: 30},
	}
	e := NewExtractor(Intergenic, map[string]interval.PosType{"CHR1": 1000})
	var got []span
	for i := range features {
		f := &features[i]
		assert.NoError(t, e.Extract(f.Chrom, f.Strand, f, collect(&got)))
	}
	assert.NoError(t, e.Finish(collect(&got)))
	expect.EQ(t, got, []span{
		{"chr1", 0, 99},
		{"chr1", 251, 399},
		{"chr1", 500, 999},
		{"chr2", 0, 9},
	})
	// A second Finish is a no-op.
	got = nil
	assert.NoError(t, e.Finish(collect(&got)))
	expect.EQ(t, len(got), 0)
}

func TestIntergenicFeatureAtOrigin(t *testing.T) {
	f := bed.Feature{Chrom: "chrM", Start: 0, End: 16568}
	e := NewExtractor(Intergenic, map[string]interval.PosType{"chrM": 16569})
	var got []span
	assert.NoError(t, e.Extract(f.Chrom, f.Strand, &f, collect(&got)))
	assert.NoError(t, e.Finish(collect(&got)))
	expect.EQ(t, len(got), 0)
}

func TestExtractEmitError(t *testing.T) {
	stop := errors.New("stop")
	err := NewExtractor(Exons, nil).Extract("chr1", interval.StrandPlus, &codingGene,
		func(string, interval.PosType, interval.PosType, interval.Strand) error { return stop })
	expect.EQ(t, err, stop)
}

func TestParseKind(t *testing.T) {
	for i, name := range []string{"any", "intergenic", "exons", "introns", "cds", "utr", "5utr", "3utr"} {
		k, err := ParseKind(name)
		assert.NoError(t, err)
		expect.EQ(t, k, Kind(i))
		expect.EQ(t, k.String(), name)
	}
	k, err := ParseKind("CDS")
	assert.NoError(t, err)
	expect.EQ(t, k, CDS)
	k, err = ParseKind("7")
	assert.NoError(t, err)
	expect.EQ(t, k, UTR3)
	_, err = ParseKind("8")
	expect.NotNil(t, err)
	_, err = ParseKind("promoter")
	expect.NotNil(t, err)

	expect.False(t, Any.NeedsGeneDetail())
	expect.False(t, Intergenic.NeedsGeneDetail())
	expect.True(t, Introns.NeedsGeneDetail())
}
