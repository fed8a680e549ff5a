package annotator

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/siherrmann/enricher/model"
)

// AnnotatePositions lists every match whose entity carries a valid character
// offset into text, ordered by start offset. Entities without one are skipped
// with a warning. Overlapping annotations are kept as they are.
func (a *Annotator) AnnotatePositions(text string, result *model.MatchResult) model.PositionResult {
	annotations := []model.PositionAnnotation{}
	length := utf8.RuneCountInString(text)
	emitted := map[model.EntityKind]int{}

	for _, match := range result.All() {
		entity := match.Original()
		span := entity.Position()
		if span == nil || !span.Within(length) {
			a.logger.Warn("Skipping entity without valid position", slog.String("kind", string(entity.Kind())), slog.String("key", entity.NaturalKey()))
			continue
		}

		status := match.Status()
		if !status.Accepted() {
			status = model.MatchNone
		}

		kind := entity.Kind()
		start, end := byteRange(text, *span)
		annotations = append(annotations, model.PositionAnnotation{
			ID:     fmt.Sprintf("%s%d", kind.IDPrefix(), emitted[kind]),
			Entity: text[start:end],
			Type:   kind,
			Start:  span.Start,
			End:    span.End,
			Match:  status,
			DBData: match.DBData(),
		})
		emitted[kind]++
	}

	slices.SortStableFunc(annotations, func(x, y model.PositionAnnotation) int {
		return cmp.Compare(x.Start, y.Start)
	})

	a.logger.Info("Annotated positions", slog.Int("annotations", len(annotations)))

	return model.PositionResult{
		OriginalText: text,
		Annotations:  annotations,
	}
}

// LocateEntities returns a copy of entities where every entity without a
// position gets the character offsets of the first case-insensitive
// occurrence of its key text.
// Vehicles are located by plate, persons by DNI or else full name and
// locations by their free text or else street name. Entities that cannot be
// found keep a nil position.
func LocateEntities(text string, entities model.Entities) model.Entities {
	located := model.Entities{
		Vehicles:  slices.Clone(entities.Vehicles),
		Persons:   slices.Clone(entities.Persons),
		Locations: slices.Clone(entities.Locations),
	}

	for i := range located.Vehicles {
		v := &located.Vehicles[i]
		if v.Span == nil {
			v.Span = firstOccurrence(text, v.Plate)
		}
	}
	for i := range located.Persons {
		p := &located.Persons[i]
		if p.Span == nil {
			if strings.TrimSpace(p.DNI) != "" {
				p.Span = firstOccurrence(text, p.DNI)
			} else {
				p.Span = firstOccurrence(text, p.FullName())
			}
		}
	}
	for i := range located.Locations {
		l := &located.Locations[i]
		if l.Span == nil {
			l.Span = firstOccurrence(text, l.Label())
		}
	}

	return located
}

func firstOccurrence(text, needle string) *model.Span {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return nil
	}
	runes := 0
	for i := 0; i < len(text); {
		if end, ok := matchFoldAt(text, i, needle); ok {
			return &model.Span{Start: runes, End: runes + utf8.RuneCountInString(text[i:end])}
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		i += size
		runes++
	}
	return nil
}

// byteRange converts a character span that lies within text into byte offsets
func byteRange(text string, span model.Span) (int, int) {
	start, end := len(text), len(text)
	runes := 0
	for i := range text {
		if runes == span.Start {
			start = i
		}
		if runes == span.End {
			end = i
			break
		}
		runes++
	}
	return start, end
}
