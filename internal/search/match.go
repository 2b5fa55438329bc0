package search

import (
	"regexp"
	"strings"
)

// Query is a compiled search query. The zero value is invalid and
// matches nothing.
type Query struct {
	raw     string
	lowered string // set in substring mode, the name-match fast path
	re      *regexp.Regexp
	valid   bool
}

// CompileQuery builds a Query. Plain queries match as case-insensitive
// substrings and are also compiled as a quoted case-insensitive
// regexp, which is what locates in-line offsets; regex queries compile
// with a case-insensitive flag. An empty or uncompilable query yields
// an invalid Query rather than an error, so callers can return an
// empty result set.
func CompileQuery(raw string, useRegex bool) Query {
	if raw == "" {
		return Query{}
	}
	pattern := raw
	if !useRegex {
		pattern = regexp.QuoteMeta(raw)
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return Query{}
	}
	q := Query{raw: raw, re: re, valid: true}
	if !useRegex {
		q.lowered = strings.ToLower(raw)
	}
	return q
}

func (q Query) Valid() bool { return q.valid }

// MatchName reports whether a file or directory name matches.
func (q Query) MatchName(name string) bool {
	if !q.valid {
		return false
	}
	if q.lowered != "" {
		return strings.Contains(strings.ToLower(name), q.lowered)
	}
	return q.re.MatchString(name)
}

// ExactName reports whether the query matches the whole name, used to
// rank exact hits ahead of substring hits.
func (q Query) ExactName(name string) bool {
	if !q.valid {
		return false
	}
	if q.lowered != "" {
		return strings.EqualFold(name, q.raw)
	}
	loc := q.re.FindStringIndex(name)
	return loc != nil && loc[0] == 0 && loc[1] == len(name)
}

// FindInLine locates the first match within a line of text. The byte
// offsets index line itself, so they are safe to slice with; case
// folding that changes byte lengths must not skew them.
func (q Query) FindInLine(line string) (start, end int, ok bool) {
	if !q.valid {
		return 0, 0, false
	}
	loc := q.re.FindStringIndex(line)
	if loc == nil {
		return 0, 0, false
	}
	return loc[0], loc[1], true
}
