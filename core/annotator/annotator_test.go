package annotator

import (
	"strings"
	"testing"

	"github.com/siherrmann/enricher/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnnotator(t *testing.T) *Annotator {
	annotator, err := NewAnnotator(model.DefaultMatchConfig(), nil)
	require.NoError(t, err, "Expected NewAnnotator to not return an error")
	return annotator
}

func exactVehicleMatch() model.VehicleMatch {
	return model.VehicleMatch{
		Entity:     model.VehicleEntity{Plate: "9915GBN", Brand: "Volkswagen", Model: "Golf"},
		Type:       model.MatchExact,
		Confidence: 1.0,
		Record:     &model.VehicleRecord{ID: 1, Plate: "9915GBN", Brand: "Volkswagen", Model: "Golf", OwnerID: "12345678A"},
		Enrichment: model.VehicleEnrichment{
			Owner:            &model.PersonRecord{DNI: "12345678A", GivenName: "Pepito", FamilyName: "de los Palotes"},
			PriorAppearances: 3,
			PriorEvents:      []string{"DRAG-2024-001234", "DRAG-2024-000987", "DRAG-2023-004321"},
			KnownDrivers: []model.KnownDriver{
				{DNI: "98765432B", GivenName: "Maria", FamilyName: "Antonieta", Relation: "conductor", Confidence: 0.85},
			},
		},
	}
}

func partialPersonMatch() model.PersonMatch {
	return model.PersonMatch{
		Entity:     model.PersonEntity{GivenName: "Joan", FamilyName: "Martí Garcia"},
		Type:       model.MatchPartial,
		Confidence: 0.88,
		Record:     &model.PersonRecord{DNI: "43123456X", GivenName: "Joan", FamilyName: "Martí García", Address: "Carrer de Baix, 5"},
		Enrichment: model.PersonEnrichment{
			PriorAppearances: 1,
			PriorRoles:       []string{"denunciant", "testimoni"},
			RelatedVehicles:  []model.RelatedVehicle{{ID: 2, Plate: "1234-BCD", Brand: "Seat", Model: "Ibiza", Relation: "titular"}},
		},
	}
}

func TestNewAnnotator(t *testing.T) {
	t.Run("Valid call NewAnnotator", func(t *testing.T) {
		annotator, err := NewAnnotator(model.DefaultMatchConfig(), nil)
		assert.NoError(t, err)
		require.NotNil(t, annotator)
		assert.NotNil(t, annotator.logger, "Expected a default logger")
	})

	t.Run("Invalid call NewAnnotator with invalid threshold", func(t *testing.T) {
		config := model.DefaultMatchConfig()
		config.MarkThreshold = 1.5

		_, err := NewAnnotator(config, nil)
		assert.Error(t, err)
	})
}

func TestAnnotate(t *testing.T) {
	t.Run("Exact vehicle marks plate brand and model", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		text := "El vehicle 9915GBN, un Volkswagen Golf de color blanc."

		result := annotator.Annotate(text, &model.MatchResult{Vehicles: []model.VehicleMatch{exactVehicleMatch()}})

		assert.Equal(t, "El vehicle @9915GBN, un @Volkswagen @Golf de color blanc.", result.EnrichedText)
		assert.Contains(t, result.Explanation, "VEHICLE MATRÍCULA 9915GBN:")
		assert.Contains(t, result.Explanation, "• Coincidència EXACTA amb registre de base de dades")
		assert.Contains(t, result.Explanation, "• Turisme Volkswagen Golf")
		assert.Contains(t, result.Explanation, "• Titular: Pepito de los Palotes (DNI 12345678A)")
		assert.Contains(t, result.Explanation, "  - Maria Antonieta (DNI 98765432B, confiança 85%)")
		assert.Contains(t, result.Explanation, "• Aquest vehicle ha estat identificat en 3 actuació(ns) prèvia(es)")
		assert.Contains(t, result.Explanation, "• Esdeveniments relacionats: DRAG-2024-001234, DRAG-2024-000987, DRAG-2023-004321")

		assert.Equal(t, 1, result.Metadata.Exact)
		assert.Equal(t, 0, result.Metadata.Partial)
		assert.Equal(t, 0, result.Metadata.None)
		assert.Equal(t, []string{WarningKnownDrivers}, result.Metadata.Warnings)
	})

	t.Run("Partial person is wrapped weakly", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		text := "La denunciant Joan Martí Garcia declara que li han robat el cotxe."

		result := annotator.Annotate(text, &model.MatchResult{Persons: []model.PersonMatch{partialPersonMatch()}})

		assert.Equal(t, "La denunciant **Joan Martí Garcia** declara que li han robat el cotxe.", result.EnrichedText)
		assert.Contains(t, result.Explanation, "PERSONA Joan Martí Garcia:")
		assert.Contains(t, result.Explanation, "• Coincidència PARCIAL (similitud 88%)")
		assert.Contains(t, result.Explanation, "• Nom a la base de dades: Joan Martí García")
		assert.Contains(t, result.Explanation, "• Consta 1 aparició(ns) prèvia(es)")
		assert.Contains(t, result.Explanation, "• Rols previs: denunciant, testimoni")
		assert.Contains(t, result.Explanation, "• Domicili conegut: Carrer de Baix, 5")
		assert.Contains(t, result.Explanation, "  - 1234-BCD (Seat Ibiza) - titular")
		assert.Equal(t, 1, result.Metadata.Partial)
		assert.Empty(t, result.Metadata.Warnings)
	})

	t.Run("Partial person does not mark name parts", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		text := "Joan va trucar. Joan Martí Garcia va arribar."

		result := annotator.Annotate(text, &model.MatchResult{Persons: []model.PersonMatch{partialPersonMatch()}})

		assert.Equal(t, "Joan va trucar. **Joan Martí Garcia** va arribar.", result.EnrichedText)
	})

	t.Run("Entity without natural key", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		text := "Un Seat de color vermell."
		matches := &model.MatchResult{Vehicles: []model.VehicleMatch{
			{Entity: model.VehicleEntity{Brand: "Seat"}, Type: model.MatchNone},
		}}

		assert.Empty(t, annotator.Markers(text, matches), "Expected no markers")

		result := annotator.Annotate(text, matches)
		assert.Equal(t, text, result.EnrichedText)
		assert.Equal(t, explanationHeader+"\n"+noMatchesSentence, result.Explanation)
		assert.Equal(t, 1, result.Metadata.None)
	})

	t.Run("Matches below the mark threshold are not marked", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		match := partialPersonMatch()
		match.Confidence = 0.5

		result := annotator.Annotate("Joan Martí Garcia", &model.MatchResult{Persons: []model.PersonMatch{match}})

		assert.Equal(t, "Joan Martí Garcia", result.EnrichedText)
		assert.Equal(t, 1, result.Metadata.None)
	})

	t.Run("Partial above exact threshold counts as exact", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		match := partialPersonMatch()
		match.Confidence = 1.0

		result := annotator.Annotate("Joan Martí Garcia", &model.MatchResult{Persons: []model.PersonMatch{match}})

		assert.Equal(t, 1, result.Metadata.Exact)
		assert.Equal(t, 0, result.Metadata.Partial)
	})

	t.Run("Error match renders the reason", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		matches := &model.MatchResult{Locations: []model.LocationMatch{
			{Entity: model.LocationEntity{StreetName: "Major", Number: "1"}, Type: model.MatchError, Error: "connection refused"},
		}}

		result := annotator.Annotate("Carrer Major, 1", matches)

		assert.Equal(t, "Carrer Major, 1", result.EnrichedText)
		assert.Contains(t, result.Explanation, "UBICACIÓ Major 1:")
		assert.Contains(t, result.Explanation, "connection refused")
		assert.Equal(t, 1, result.Metadata.None)
	})

	t.Run("Recurrent location", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		lat, lon := 41.4371, 2.241
		matches := &model.MatchResult{Locations: []model.LocationMatch{{
			Entity:     model.LocationEntity{StreetType: "carretera", StreetName: "Ribes", Number: "88", FullText: "Carretera de Ribes, 88"},
			Type:       model.MatchExact,
			Confidence: 1.0,
			Record:     &model.LocationRecord{ID: 15, CanonicalName: "Carretera de Ribes, 88", Latitude: &lat, Longitude: &lon},
			Enrichment: model.LocationEnrichment{
				PriorAppearances:    7,
				RecurringCategories: []string{"robatoris", "furts", "altercats"},
				Aliases:             []string{"Ctra. Ribes 88"},
			},
		}}}

		result := annotator.Annotate("Fets ocorreguts a la Carretera de Ribes, 88.", matches)

		assert.Equal(t, "Fets ocorreguts a la @Carretera de Ribes, 88.", result.EnrichedText)
		assert.Contains(t, result.Explanation, "UBICACIÓ Carretera de Ribes, 88:")
		assert.Contains(t, result.Explanation, "• Coincidència EXACTA\n")
		assert.Contains(t, result.Explanation, "• Coordenades: 41.4371, 2.2410")
		assert.Contains(t, result.Explanation, "• Ubicació recurrent: 7 aparició(ns) prèvia(es)")
		assert.Contains(t, result.Explanation, "• Tipologia habitual: robatoris, furts, altercats")
		assert.Contains(t, result.Explanation, "• CONSIDERACIÓ: Zona d'actuacions freqüents")
		assert.Contains(t, result.Explanation, "• Noms alternatius: Ctra. Ribes 88")
		assert.Equal(t, []string{WarningRecurrentLocation}, result.Metadata.Warnings)
	})

	t.Run("Sections follow kind order", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		matches := &model.MatchResult{
			Vehicles: []model.VehicleMatch{exactVehicleMatch()},
			Persons:  []model.PersonMatch{partialPersonMatch()},
		}

		result := annotator.Annotate("", matches)

		vehicle := strings.Index(result.Explanation, "VEHICLE MATRÍCULA")
		person := strings.Index(result.Explanation, "PERSONA")
		assert.Greater(t, vehicle, 0)
		assert.Greater(t, person, vehicle, "Expected persons after vehicles")
	})

	t.Run("Disjoint markers and length monotonic rewrite", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		text := "Pepito de los Palotes viu al Carrer Major, 1 i condueix el 9915GBN."
		matches := &model.MatchResult{
			Vehicles: []model.VehicleMatch{exactVehicleMatch()},
			Persons: []model.PersonMatch{{
				Entity:     model.PersonEntity{DNI: "12345678A", GivenName: "Pepito", FamilyName: "de los Palotes"},
				Type:       model.MatchExact,
				Confidence: 1.0,
				Record:     &model.PersonRecord{DNI: "12345678A", GivenName: "Pepito", FamilyName: "de los Palotes"},
			}},
			Locations: []model.LocationMatch{{
				Entity:     model.LocationEntity{StreetName: "Carrer Major"},
				Type:       model.MatchPartial,
				Confidence: 0.9,
				Record:     &model.LocationRecord{ID: 16},
			}},
		}

		markers := annotator.Markers(text, matches)
		for i := range markers {
			for j := i + 1; j < len(markers); j++ {
				assert.False(t, markers[i].Overlaps(markers[j].Span), "Expected markers %v and %v to be disjoint", markers[i], markers[j])
			}
		}

		enriched := annotator.Annotate(text, matches).EnrichedText
		assert.Equal(t, "@Pepito @de los Palotes viu al **Carrer Major**, 1 i condueix el @9915GBN.", enriched)

		overhead := 0
		for _, m := range markers {
			overhead += m.Style.Overhead()
		}
		assert.Equal(t, len(text)+overhead, len(enriched), "Expected output length to grow by the markup only")

		shift, last := 0, 0
		for _, m := range markers {
			assert.Equal(t, text[last:m.Start], enriched[last+shift:m.Start+shift], "Expected unmarked text to be unchanged")
			shift += m.Style.Overhead()
			last = m.End
		}
		assert.Equal(t, text[last:], enriched[last+shift:])
	})

	t.Run("No-op annotation is idempotent", func(t *testing.T) {
		annotator := newTestAnnotator(t)
		text := "El vehicle 9915GBN, un Volkswagen Golf."
		first := annotator.Annotate(text, &model.MatchResult{Vehicles: []model.VehicleMatch{exactVehicleMatch()}})

		again := annotator.Annotate(first.EnrichedText, &model.MatchResult{})
		assert.Equal(t, first.EnrichedText, again.EnrichedText)

		again = annotator.Annotate(first.EnrichedText, nil)
		assert.Equal(t, first.EnrichedText, again.EnrichedText)
		assert.Equal(t, model.AnnotationMetadata{Warnings: []string{}}, again.Metadata)
	})
}
