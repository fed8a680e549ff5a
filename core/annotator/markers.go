package annotator

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/siherrmann/enricher/model"
)

// FindAll returns every case-insensitive occurrence of needle in text as byte
// spans. Occurrences may overlap.
func FindAll(text, needle string) []model.Span {
	if needle == "" {
		return nil
	}

	var spans []model.Span
	for i := 0; i < len(text); {
		if end, ok := matchFoldAt(text, i, needle); ok {
			spans = append(spans, model.Span{Start: i, End: end})
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
	}
	return spans
}

// matchFoldAt reports whether needle matches text at byte offset i and
// returns the end offset of the match.
func matchFoldAt(text string, i int, needle string) (int, bool) {
	j := i
	for _, nr := range needle {
		if j >= len(text) {
			return 0, false
		}
		tr, size := utf8.DecodeRuneInString(text[j:])
		if !equalFoldRune(tr, nr) {
			return 0, false
		}
		j += size
	}
	return j, true
}

func equalFoldRune(a, b rune) bool {
	if a == b {
		return true
	}
	for r := unicode.SimpleFold(a); r != a; r = unicode.SimpleFold(r) {
		if r == b {
			return true
		}
	}
	return false
}

// CandidateMarkers builds one marker per facet occurrence of every accepted
// match confident enough to be marked.
func CandidateMarkers(text string, matches []model.Resolved, config model.MatchConfig) []model.Marker {
	var markers []model.Marker
	for _, match := range matches {
		if !match.Status().Accepted() || match.Score() < config.MarkThreshold {
			continue
		}

		certain := match.Score() >= config.ExactThreshold
		style := model.Weak
		if certain {
			style = model.Strong
		}

		for _, facet := range match.Original().Facets() {
			if !facet.Key && !certain {
				continue
			}
			for _, span := range FindAll(text, facet.Text) {
				markers = append(markers, model.Marker{Span: span, Style: style, Label: facet.Text})
			}
		}
	}
	return markers
}

// ResolveOverlaps folds the candidates into a set of pairwise disjoint
// markers ordered by start offset. Candidates are visited by start, shortest
// first. A candidate is kept only if it wins against every kept marker it
// overlaps, which are then evicted. Strong wins over weak, and between equal
// styles the strictly shorter span wins.
func ResolveOverlaps(candidates []model.Marker) []model.Marker {
	sorted := slices.Clone(candidates)
	slices.SortStableFunc(sorted, func(a, b model.Marker) int {
		if c := cmp.Compare(a.Start, b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.Len(), b.Len())
	})

	accepted := []model.Marker{}
	for _, candidate := range sorted {
		if candidate.Len() <= 0 {
			continue
		}

		wins := true
		for _, kept := range accepted {
			if candidate.Overlaps(kept.Span) && !beats(candidate, kept) {
				wins = false
				break
			}
		}
		if !wins {
			continue
		}

		next := make([]model.Marker, 0, len(accepted)+1)
		for _, kept := range accepted {
			if !candidate.Overlaps(kept.Span) {
				next = append(next, kept)
			}
		}
		accepted = append(next, candidate)
	}

	slices.SortFunc(accepted, func(a, b model.Marker) int {
		return cmp.Compare(a.Start, b.Start)
	})
	return accepted
}

func beats(candidate, kept model.Marker) bool {
	if candidate.Style != kept.Style {
		return candidate.Style == model.Strong
	}
	return candidate.Len() < kept.Len()
}

// Rewrite decorates the marked spans of text. Markers must be disjoint and
// ordered by start offset; text outside of them is copied unchanged.
func Rewrite(text string, markers []model.Marker) string {
	if len(markers) == 0 {
		return text
	}

	overhead := 0
	for _, m := range markers {
		overhead += m.Style.Overhead()
	}

	var b strings.Builder
	b.Grow(len(text) + overhead)

	last := 0
	for _, m := range markers {
		b.WriteString(text[last:m.Start])
		b.WriteString(m.Style.Wrap(text[m.Start:m.End]))
		last = m.End
	}
	b.WriteString(text[last:])

	return b.String()
}
