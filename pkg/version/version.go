// Package version orders Maven artifact versions.
//
// Ordering follows Maven's ComparableVersion. Versions are split into items
// at '.' and at every transition between digits and letters, and a '-'
// opens a sublist, so "1-1" is older than "1.1". Numeric items compare
// numerically. Qualifiers compare by their release stage:
//
//	alpha < beta < milestone < rc < snapshot < "" (release) < sp < other
//
// where "ga" and "final" are aliases of the empty qualifier, "cr" is an
// alias of "rc", and single letters a, b, m directly followed by a number
// abbreviate alpha, beta and milestone. Unknown qualifiers sort after every
// known one.
//
// Trailing release items are insignificant, so "1", "1.0" and "1.0.0-ga"
// are equal.
package version

import (
	"slices"
	"strings"

	mvn "github.com/masahiro331/go-mvn-version"
)

// Version is a parsed version string. The zero value equals "0".
type Version struct {
	raw    string
	parsed mvn.Version
	valid  bool
}

// Parse parses v. Parse never fails: a string the Maven grammar rejects
// is kept as an opaque version that sorts before every valid one.
func Parse(v string) Version {
	s := strings.TrimSpace(v)
	if s == "" {
		s = "0"
	}
	parsed, err := mvn.NewVersion(s)
	return Version{raw: v, parsed: parsed, valid: err == nil}
}

// String returns the original version string.
func (v Version) String() string { return v.raw }

// Compare returns -1, 0 or +1 depending on whether v is older than, equal
// to or newer than o.
func (v Version) Compare(o Version) int {
	if v.raw == "" && !v.valid {
		v = Parse("0")
	}
	if o.raw == "" && !o.valid {
		o = Parse("0")
	}
	switch {
	case v.valid && o.valid:
		return sign(v.parsed.Compare(o.parsed))
	case v.valid:
		return 1
	case o.valid:
		return -1
	}
	return strings.Compare(v.raw, o.raw)
}

// Compare parses and compares two version strings.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// Newest returns the newest of the given versions, or "" if none are given.
// Among equal versions the first one wins.
func Newest(versions ...string) string {
	if len(versions) == 0 {
		return ""
	}
	newest := versions[0]
	for _, v := range versions[1:] {
		if Compare(v, newest) > 0 {
			newest = v
		}
	}
	return newest
}

// Sort sorts versions from oldest to newest.
func Sort(versions []string) {
	slices.SortStableFunc(versions, Compare)
}

func sign(c int) int {
	switch {
	case c < 0:
		return -1
	case c > 0:
		return 1
	}
	return 0
}
