// Package safezone finds the safe place a description points readers to.
//
// Descriptions carry at most one recommendation of the form
// "... Safe Zone: <place>. ...". Extraction is pure and total: any input,
// including invalid UTF-8, yields either a non-empty place name or nothing.
package safezone

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMarker introduces a safe place in alert descriptions.
const DefaultMarker = "safe zone"

// Extractor locates the place named after a marker phrase.
type Extractor struct {
	marker string
}

// New creates an Extractor. Without options it looks for DefaultMarker.
func New(opts ...Option) *Extractor {
	e := &Extractor{marker: DefaultMarker}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var defaultExtractor = New() //nolint:gochecknoglobals // stateless

// Extract runs the default extractor on text.
func Extract(text string) (string, bool) {
	return defaultExtractor.Extract(text)
}

// Marker returns the phrase this extractor searches for.
func (e *Extractor) Marker() string { return e.marker }

// Extract returns the place named after the first case-insensitive occurrence
// of the marker, up to the next period.
func (e *Extractor) Extract(text string) (string, bool) {
	start, ok := indexFold(text, e.marker)
	if !ok {
		return "", false
	}

	rest := strings.TrimLeftFunc(text[start:], isDelimiter)
	name, _, _ := strings.Cut(rest, ".")
	name = strings.TrimFunc(name, isDelimiter)
	if name == "" {
		return "", false
	}
	return name, true
}

func isDelimiter(r rune) bool {
	return r == ':' || r == '-' || r == '.' || unicode.IsSpace(r)
}

// indexFold returns the byte offset just past the first occurrence of marker
// in s under Unicode simple case folding.
func indexFold(s, marker string) (int, bool) {
	if marker == "" {
		return 0, false
	}
	for i := 0; i < len(s); {
		if n, ok := prefixFold(s[i:], marker); ok {
			return i + n, true
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return 0, false
}

// prefixFold reports whether s starts with prefix under simple folding and
// how many bytes of s the match consumed.
func prefixFold(s, prefix string) (int, bool) {
	consumed := 0
	for prefix != "" {
		if s == "" {
			return 0, false
		}
		pr, psize := utf8.DecodeRuneInString(prefix)
		sr, ssize := utf8.DecodeRuneInString(s)
		if !equalFold(sr, pr) {
			return 0, false
		}
		prefix = prefix[psize:]
		s = s[ssize:]
		consumed += ssize
	}
	return consumed, true
}

func equalFold(a, b rune) bool {
	if a == b {
		return true
	}
	if a == utf8.RuneError || b == utf8.RuneError {
		return false
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}
