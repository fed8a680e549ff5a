package matcher

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/siherrmann/enricher/core/similarity"
	"github.com/siherrmann/enricher/model"
)

// NumberBonus is added to the street name similarity when the house number matches
const NumberBonus = 0.10

// LocationConfidence is the street name similarity plus the house number
// bonus, uncapped. Callers compare it against the candidate floor before
// capping it at 1.
func LocationConfidence(entity model.LocationEntity, record *model.LocationRecord) float64 {
	confidence := similarity.Score(similarity.Normalize(entity.StreetName), similarity.Normalize(record.StreetName))

	if number := strings.TrimSpace(entity.Number); number != "" && number == strings.TrimSpace(record.Number) {
		confidence += NumberBonus
	}

	return confidence
}

func (m *Matcher) resolveLocation(ctx context.Context, entity model.LocationEntity) (model.LocationMatch, error) {
	streetName := strings.TrimSpace(entity.StreetName)
	if streetName == "" {
		return m.resolveLocationText(ctx, entity)
	}

	record, err := m.gateway.SelectLocationByAddress(ctx, entity.StreetType, streetName, entity.Number)
	if err != nil {
		return model.LocationMatch{}, err
	}
	if record != nil {
		m.logger.Debug("Exact location match", slog.String("street", streetName), slog.Int64("location_id", record.ID))
		return m.acceptLocation(ctx, entity, record, model.MatchExact, 1.0), nil
	}

	record, err = m.gateway.SelectLocationByAlias(ctx, streetName)
	if err != nil {
		return model.LocationMatch{}, err
	}
	if record != nil {
		m.logger.Debug("Alias location match", slog.String("street", streetName), slog.Int64("location_id", record.ID))
		return m.acceptLocation(ctx, entity, record, model.MatchExact, m.config.AliasConfidence), nil
	}

	records, err := m.gateway.SelectLocationCandidates(ctx)
	if err != nil {
		return model.LocationMatch{}, err
	}

	var candidates []candidate[model.LocationRecord]
	for _, r := range records {
		confidence := LocationConfidence(entity, r)
		if confidence >= m.config.CandidateFloor {
			candidates = append(candidates, candidate[model.LocationRecord]{record: r, confidence: math.Min(confidence, 1.0)})
		}
	}
	candidates = rank(candidates, m.config.TopCandidates)

	best, confidence, ok := decide(candidates, m.config.AcceptThreshold)
	if !ok {
		m.logger.Debug("No location match", slog.String("street", streetName), slog.Int("candidates", len(candidates)))
		return noMatch[model.LocationEntity, model.LocationRecord, model.LocationEnrichment](entity), nil
	}

	m.logger.Debug("Partial location match", slog.String("street", streetName), slog.Int64("location_id", best.ID), slog.Float64("confidence", confidence))
	return m.acceptLocation(ctx, entity, best, model.MatchPartial, confidence), nil
}

// resolveLocationText handles locations only known by their free text. The
// text can only be resolved through a stored alias.
func (m *Matcher) resolveLocationText(ctx context.Context, entity model.LocationEntity) (model.LocationMatch, error) {
	text := strings.TrimSpace(entity.FullText)
	if text == "" {
		m.logger.Debug("Location without street name")
		return noMatch[model.LocationEntity, model.LocationRecord, model.LocationEnrichment](entity), nil
	}

	record, err := m.gateway.SelectLocationByAlias(ctx, text)
	if err != nil {
		return model.LocationMatch{}, err
	}
	if record == nil {
		m.logger.Debug("No location match for free text", slog.String("text", text))
		return noMatch[model.LocationEntity, model.LocationRecord, model.LocationEnrichment](entity), nil
	}

	m.logger.Debug("Alias location match", slog.String("text", text), slog.Int64("location_id", record.ID))
	return m.acceptLocation(ctx, entity, record, model.MatchExact, m.config.AliasConfidence), nil
}

func (m *Matcher) acceptLocation(ctx context.Context, entity model.LocationEntity, record *model.LocationRecord, matchType model.MatchType, confidence float64) model.LocationMatch {
	enrichment, err := m.enrichLocation(ctx, record)
	if err != nil {
		m.logger.Warn("Location enrichment failed", slog.Int64("location_id", record.ID), slog.String("error", err.Error()))
		enrichment = model.LocationEnrichment{}
	}

	return model.LocationMatch{
		Entity:     entity,
		Type:       matchType,
		Confidence: confidence,
		Record:     record,
		Enrichment: enrichment,
	}
}

func (m *Matcher) enrichLocation(ctx context.Context, record *model.LocationRecord) (model.LocationEnrichment, error) {
	enrichment := model.LocationEnrichment{}

	var err error
	enrichment.PriorAppearances, err = m.gateway.CountLocationAppearances(ctx, record.ID)
	if err != nil {
		return enrichment, err
	}

	enrichment.RecurringCategories, err = m.gateway.SelectLocationCategories(ctx, record.ID, m.config.MaxRecurringCategories)
	if err != nil {
		return enrichment, err
	}

	enrichment.Aliases, err = m.gateway.SelectLocationAliases(ctx, record.ID)
	if err != nil {
		return enrichment, err
	}

	return enrichment, nil
}
