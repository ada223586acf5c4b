package scenario

import (
	"fmt"
	"regexp"

	"golang.org/x/text/unicode/norm"
)

// Pattern is a case-insensitive regular expression matched against URLs and
// accessible names. The source is kept so it can be evaluated in the page.
type Pattern struct {
	source string
	re     *regexp.Regexp
}

// NewPattern compiles source case-insensitively. The source is NFC normalised
// so that precomposed and decomposed Vietnamese text compare equal.
func NewPattern(source string) (Pattern, error) {
	source = norm.NFC.String(source)
	re, err := regexp.Compile("(?i)" + source)
	if err != nil {
		return Pattern{}, fmt.Errorf("invalid pattern %q: %w", source, err)
	}
	return Pattern{source: source, re: re}, nil
}

// MustPattern is NewPattern for literals known to compile
func MustPattern(source string) Pattern {
	p, err := NewPattern(source)
	if err != nil {
		panic(err)
	}
	return p
}

// Source returns the pattern without the case-insensitivity flag
func (p Pattern) Source() string {
	return p.source
}

// MatchString reports whether s contains a match
func (p Pattern) MatchString(s string) bool {
	if p.re == nil {
		return false
	}
	return p.re.MatchString(norm.NFC.String(s))
}

// IsZero reports whether the pattern was never compiled
func (p Pattern) IsZero() bool {
	return p.re == nil
}

func (p Pattern) String() string {
	return "/" + p.source + "/i"
}
