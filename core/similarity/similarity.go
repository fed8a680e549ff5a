package similarity

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize uppercases, strips diacritics and collapses whitespace
// (e.g. "  Martí   García " -> "MARTI GARCIA").
func Normalize(s string) string {
	stripped, _, err := transform.String(stripAccents, s)
	if err != nil {
		stripped = s
	}
	return strings.Join(strings.Fields(strings.ToUpper(stripped)), " ")
}

// NormalizePlate removes whitespace and hyphens and uppercases a plate
func NormalizePlate(s string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return r
	}, s))
}

// NormalizeID removes whitespace and uppercases a national ID
func NormalizeID(s string) string {
	return strings.ToUpper(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s))
}

// Ratio returns the similarity of a and b in [0,100] as
// (maxlen - distance) / maxlen * 100 over runes.
// Two empty strings are identical; one empty string scores 0.
func Ratio(a, b string) float64 {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	distance := levenshtein.ComputeDistance(a, b)
	return float64(maxLen-distance) / float64(maxLen) * 100
}

// Score is Ratio scaled to [0,1]
func Score(a, b string) float64 {
	return Ratio(a, b) / 100
}

// LengthWindow returns the range of string lengths that can still reach
// minScore (in [0,1]) against a string of length n. The edit distance is at
// least the length difference, so any length outside the window scores below
// minScore.
func LengthWindow(n int, minScore float64) (lo, hi int) {
	if minScore <= 0 || n == 0 {
		return 0, math.MaxInt32
	}
	if minScore > 1 {
		minScore = 1
	}

	const eps = 1e-9
	lo = int(math.Ceil(float64(n)*minScore - eps))
	hi = int(math.Floor(float64(n)/minScore + eps))
	return lo, hi
}
