package cmd

import (
	"testing"

	"github.com/grailbio/bedmerge/bedmerge"
	"github.com/grailbio/testutil/assert"
	"github.com/grailbio/testutil/expect"
	pkgerrors "github.com/pkg/errors"
	"v.io/x/lib/cmdline"
)

func TestPatternFlags(t *testing.T) {
	merge := newCmdMerge()
	assert.NoError(t, merge.Flags.Parse([]string{
		"-include", "^chr[0-9]{1,2}$", "-include", "chrX",
		"-exclude", "_random$",
		"in.bed",
	}))
	expect.EQ(t, []string(*merge.Flags.Lookup("include").Value.(*patternList)), []string{"^chr[0-9]{1,2}$", "chrX"})
	expect.EQ(t, []string(*merge.Flags.Lookup("exclude").Value.(*patternList)), []string{"_random$"})
	expect.EQ(t, merge.Flags.Args(), []string{"in.bed"})

	overlay := newCmdOverlay()
	assert.NoError(t, overlay.Flags.Parse([]string{"-exclude", "^chr(Un|M)[a-z]{0,3}$"}))
	expect.EQ(t, []string(*overlay.Flags.Lookup("exclude").Value.(*patternList)), []string{"^chr(Un|M)[a-z]{0,3}$"})
	expect.EQ(t, overlay.Flags.Lookup("include").Value.String(), "")
}

func TestExitError(t *testing.T) {
	expect.EQ(t, exitError("merge", pkgerrors.Wrap(bedmerge.ErrConfig, "bad flag")), cmdline.ErrExitCode(7))
	expect.EQ(t, exitError("merge", pkgerrors.Wrap(bedmerge.ErrOpenFile, "x.bed")), cmdline.ErrExitCode(1))
}

func TestCommands(t *testing.T) {
	merge := newCmdMerge()
	expect.EQ(t, merge.Flags.Lookup("join-len").DefValue, "1")
	expect.EQ(t, merge.Flags.Lookup("min-len").DefValue, "20")
	overlay := newCmdOverlay()
	expect.EQ(t, overlay.Flags.Lookup("op").DefValue, "intersect")
	expect.EQ(t, overlay.Flags.Lookup("el-type").DefValue, "merged")
}
