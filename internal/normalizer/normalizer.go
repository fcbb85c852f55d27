// Package normalizer canonicalizes identity strings before they are indexed.
//
// The similarity index compares strings byte for byte; any case folding,
// diacritic stripping or whitespace cleanup has to happen here, in the caller.
package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// letterMap maps letters without a canonical decomposition to ASCII.
var letterMap = map[rune]string{
	'ß': "ss",
	'æ': "ae", 'Æ': "ae",
	'œ': "oe", 'Œ': "oe",
	'ø': "o", 'Ø': "o",
	'ł': "l", 'Ł': "l",
	'đ': "d", 'Đ': "d",
	'ð': "d", 'Ð': "d",
	'þ': "th", 'Þ': "th",
	'ı': "i",
}

// Options selects the normalization steps.
type Options struct {
	FoldCase         bool
	StripDiacritics  bool
	CollapseSpace    bool
	StripPunctuation bool
}

// DefaultOptions folds case, strips diacritics and collapses whitespace.
// Punctuation is kept: it is significant in addresses and identifiers.
func DefaultOptions() Options {
	return Options{
		FoldCase:        true,
		StripDiacritics: true,
		CollapseSpace:   true,
	}
}

// Normalize applies opts to s.
func Normalize(s string, opts Options) string {
	if opts.FoldCase {
		// A Caser carries state, so each call gets its own.
		s = cases.Fold().String(s)
	}

	if opts.StripDiacritics {
		s = stripDiacritics(s)
	}

	if opts.StripPunctuation {
		s = strings.Map(func(r rune) rune {
			if unicode.IsPunct(r) || unicode.IsSymbol(r) {
				return ' '
			}
			return r
		}, s)
	}

	if opts.CollapseSpace {
		s = strings.Join(strings.Fields(s), " ")
	}

	return norm.NFC.String(s)
}

// NormalizeIdentity normalizes s with DefaultOptions.
func NormalizeIdentity(s string) string {
	return Normalize(s, DefaultOptions())
}

// stripDiacritics removes combining marks after canonical decomposition.
func stripDiacritics(s string) string {
	var result strings.Builder
	result.Grow(len(s))

	for _, r := range norm.NFD.String(s) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if ascii, ok := letterMap[r]; ok {
			result.WriteString(ascii)
			continue
		}
		result.WriteRune(r)
	}

	return result.String()
}

// FoldChar normalizes a single character: lowercased, without diacritics.
func FoldChar(r rune) string {
	return stripDiacritics(string(unicode.ToLower(r)))
}
