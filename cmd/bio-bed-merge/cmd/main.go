package cmd

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bedmerge/bedmerge"
	"github.com/grailbio/bedmerge/interval"
	"github.com/grailbio/bedmerge/region"
	pkgerrors "github.com/pkg/errors"
	"v.io/x/lib/cmdline"
)

// patternList is a repeatable flag collecting one regular expression per
// occurrence.  Patterns are kept whole since they may contain commas.
type patternList []string

func (p *patternList) String() string { return strings.Join(*p, " ") }

func (p *patternList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

// exitError logs err and converts it to the process exit code of its status.
func exitError(what string, err error) error {
	status := bedmerge.StatusOf(err)
	log.Error.Printf("%s: %v (%v)", what, err, status)
	return cmdline.ErrExitCode(-int(status))
}

func newCmdMerge() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "merge",
		Short:    "Merge the features of one or more BED files",
		ArgsName: "input...",
		ArgsLong: "Each input is a BED path or a glob pattern; gzipped files are read transparently.",
	}
	defaults := bedmerge.DefaultOpts
	output := cmd.Flags.String("out", "", "Output BED path; a .gz suffix selects BGZF compression")
	mode := cmd.Flags.String("mode", "0", "Processing mode: 0 (independent) pools all strands, 1 (dependent) merges '+' separately from the rest")
	strand := cmd.Flags.String("strand", "0", "Only load features on this strand: 0 (any), 1 ('+') or 2 ('-')")
	minLen := cmd.Flags.Int("min-len", defaults.MinLen, fmt.Sprintf("Minimum merged feature length, %d..%d", bedmerge.MinMergeLen, bedmerge.MaxMergeLen))
	joinLen := cmd.Flags.Int("join-len", defaults.JoinLen, "Join features separated by at most this many bases; 0 joins only overlapping or adjacent ones")
	regionFlag := cmd.Flags.String("region", "any", "Functional region to merge: any, intergenic, exons, introns, cds, utr, 5utr, 3utr (or 0..7)")
	var include, exclude patternList
	cmd.Flags.Var(&include, "include", "Case-insensitive regular expression of chromosomes to keep; repeat for more than one")
	cmd.Flags.Var(&exclude, "exclude", "Case-insensitive regular expression of chromosomes to drop; repeat for more than one")
	targets := cmd.Flags.String("targets", "", "Only keep the parts of features inside the intervals of this BED file; this xor -target-region")
	targetRegion := cmd.Flags.String("target-region", "", "Only keep the parts of features inside this region, as <chrom>:<1-based first pos>-<last pos>, <chrom>:<pos> or <chrom>")
	chromSizes := cmd.Flags.String("chrom-sizes", "", "FASTA, .fai or chrom.sizes file; intergenic regions then extend to the chromosome ends")
	parallelism := cmd.Flags.Int("parallelism", 0, "Number of goroutines used for sorting and compression; 0 = runtime.NumCPU()")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) == 0 {
			return exitError("merge", pkgerrors.Wrap(bedmerge.ErrConfig, "at least one input is required"))
		}
		opts := bedmerge.DefaultOpts
		opts.Inputs = argv
		opts.Output = *output
		opts.MinLen = *minLen
		opts.JoinLen = *joinLen
		opts.IncludeChroms = include
		opts.ExcludeChroms = exclude
		opts.TargetsPath = *targets
		opts.TargetRegion = *targetRegion
		opts.ChromSizesPath = *chromSizes
		opts.Parallelism = *parallelism
		var err error
		if opts.Mode, err = bedmerge.ParseMode(*mode); err != nil {
			return exitError("merge", err)
		}
		if opts.Strand, err = bedmerge.ParseStrandFilter(*strand); err != nil {
			return exitError("merge", err)
		}
		if opts.Region, err = region.ParseKind(*regionFlag); err != nil {
			return exitError("merge", pkgerrors.Wrap(bedmerge.ErrConfig, err.Error()))
		}
		n, err := bedmerge.Merge(vcontext.Background(), opts)
		if err != nil {
			return exitError("merge", err)
		}
		log.Printf("merge: %d merged features written to %s", n, opts.Output)
		return nil
	})
	return cmd
}

func newCmdOverlay() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "overlay",
		Short:    "Combine two loci CSV files with a set operation",
		ArgsName: "ref.csv [rel.csv]",
		ArgsLong: "rel.csv may be omitted for the ref-exclusive and union operations.",
	}
	defaults := bedmerge.DefaultOverlayOpts
	output := cmd.Flags.String("out", "", "Output loci CSV path")
	op := cmd.Flags.String("op", defaults.Op.String(), "Set operation: intersect, ref-exclusive, rel-exclusive, union, neither (or 0..4)")
	minLength := cmd.Flags.Int("min-length", defaults.MinLength, "Minimum input element length")
	maxLength := cmd.Flags.Int("max-length", defaults.MaxLength, "Maximum input element length")
	refExtend := cmd.Flags.Int("ref-extend", 0, "Extend (or, if negative, shrink) both flanks of ref elements by this many bases")
	relExtend := cmd.Flags.Int("rel-extend", 0, "Extend (or, if negative, shrink) both flanks of rel elements by this many bases")
	join := cmd.Flags.Int("join", defaults.JoinDistance, "Join output elements separated by at most this many bases")
	minMergeLength := cmd.Flags.Int("min-merge-length", defaults.MinMergeLength, "Minimum output element length")
	maxMergeLength := cmd.Flags.Int("max-merge-length", defaults.MaxMergeLength, "Maximum output element length")
	refSpecies := cmd.Flags.String("ref-species", "", "Species written in the third output column")
	relSpecies := cmd.Flags.String("rel-species", "", "Species written in the eighth output column")
	elType := cmd.Flags.String("el-type", defaults.ElType, "Element type written in the second output column")
	var include, exclude patternList
	cmd.Flags.Var(&include, "include", "Case-insensitive regular expression of chromosomes to keep; repeat for more than one")
	cmd.Flags.Var(&exclude, "exclude", "Case-insensitive regular expression of chromosomes to drop; repeat for more than one")
	chromSizes := cmd.Flags.String("chrom-sizes", "", "FASTA, .fai or chrom.sizes file; the neither operation then extends to the chromosome ends")
	skipHeader := cmd.Flags.Bool("skip-header", false, "Skip the first line of each input")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 1 || len(argv) > 2 {
			return exitError("overlay", pkgerrors.Wrapf(bedmerge.ErrConfig, "expected ref.csv and an optional rel.csv, got %v", argv))
		}
		opts := bedmerge.DefaultOverlayOpts
		opts.Ref = argv[0]
		if len(argv) == 2 {
			opts.Rel = argv[1]
		}
		opts.Output = *output
		opts.MinLength = *minLength
		opts.MaxLength = *maxLength
		opts.RefExtend = *refExtend
		opts.RelExtend = *relExtend
		opts.JoinDistance = *join
		opts.MinMergeLength = *minMergeLength
		opts.MaxMergeLength = *maxMergeLength
		opts.RefSpecies = *refSpecies
		opts.RelSpecies = *relSpecies
		opts.ElType = *elType
		opts.IncludeChroms = include
		opts.ExcludeChroms = exclude
		opts.ChromSizesPath = *chromSizes
		opts.SkipHeader = *skipHeader
		var err error
		if opts.Op, err = interval.ParseSetOp(*op); err != nil {
			return exitError("overlay", pkgerrors.Wrap(bedmerge.ErrConfig, err.Error()))
		}
		n, err := bedmerge.Overlay(vcontext.Background(), opts)
		if err != nil {
			return exitError("overlay", err)
		}
		log.Printf("overlay: %d elements written to %s", n, opts.Output)
		return nil
	})
	return cmd
}

// Run parses the command line and runs the selected subcommand.
func Run() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-bed-merge",
			Short:    "Merge and overlay genomic interval files",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdMerge(),
				newCmdOverlay(),
			},
		})
}
