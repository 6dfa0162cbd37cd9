package interval

import (
	"regexp"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

// MaxChromPatterns is the maximum number of include (and, separately, exclude)
// patterns a ChromFilter accepts.
const MaxChromPatterns = 20

// ChromFilter decides which chromosomes take part in a run, based on
// case-insensitive include and exclude regular expressions.  A nil
// *ChromFilter excludes nothing.
//
// ChromFilter is not thread-safe; the last-name cache is mutated by Excluded.
type ChromFilter struct {
	include []*regexp.Regexp
	exclude []*regexp.Regexp

	// lastName/lastExcluded memoize the most recent query.  Inputs are grouped
	// by chromosome, so most queries hit.
	lastName     string
	lastExcluded bool
	lastValid    bool
}

func compilePatterns(kind string, patterns []string) ([]*regexp.Regexp, error) {
	if len(patterns) > MaxChromPatterns {
		return nil, pkgerrors.Wrapf(ErrBadPattern, "%d %s patterns given, at most %d allowed", len(patterns), kind, MaxChromPatterns)
	}
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, pkgerrors.Wrapf(ErrBadPattern, "%s pattern %q: %v", kind, p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

// NewChromFilter compiles the include and exclude patterns.  A pattern that
// fails to compile yields an error wrapping ErrBadPattern that names it.
func NewChromFilter(include, exclude []string) (*ChromFilter, error) {
	f := &ChromFilter{}
	var err error
	if f.include, err = compilePatterns("include", include); err != nil {
		return nil, err
	}
	if f.exclude, err = compilePatterns("exclude", exclude); err != nil {
		return nil, err
	}
	return f, nil
}

// Excluded reports whether features on the named chromosome should be
// dropped.  Exclude patterns take priority over include patterns; when any
// include pattern is configured, a chromosome matching none of them is
// excluded.
func (f *ChromFilter) Excluded(name string) bool {
	if f == nil || (len(f.include) == 0 && len(f.exclude) == 0) {
		return false
	}
	if f.lastValid && strings.EqualFold(name, f.lastName) {
		return f.lastExcluded
	}
	f.lastName = name
	f.lastExcluded = f.match(name)
	f.lastValid = true
	return f.lastExcluded
}

func (f *ChromFilter) match(name string) bool {
	for _, re := range f.exclude {
		if re.MatchString(name) {
			return true
		}
	}
	for _, re := range f.include {
		if re.MatchString(name) {
			return false
		}
	}
	return len(f.include) > 0
}
