package matcher

import (
	"context"
	"log/slog"

	"github.com/siherrmann/enricher/core/similarity"
	"github.com/siherrmann/enricher/model"
)

// Person confidence weights
const (
	GivenNameWeight  = 0.40
	FamilyNameWeight = 0.60
)

// PersonConfidence is the weighted given and family name similarity of an
// entity and a stored person. A name part only counts when both sides have
// a value.
func PersonConfidence(entity model.PersonEntity, record *model.PersonRecord) float64 {
	confidence := 0.0

	if a, b := similarity.Normalize(entity.GivenName), similarity.Normalize(record.GivenName); a != "" && b != "" {
		confidence += GivenNameWeight * similarity.Score(a, b)
	}
	if a, b := similarity.Normalize(entity.FamilyName), similarity.Normalize(record.FamilyName); a != "" && b != "" {
		confidence += FamilyNameWeight * similarity.Score(a, b)
	}

	return confidence
}

func (m *Matcher) resolvePerson(ctx context.Context, entity model.PersonEntity) (model.PersonMatch, error) {
	dni := similarity.NormalizeID(entity.DNI)
	hasName := similarity.Normalize(entity.GivenName) != "" || similarity.Normalize(entity.FamilyName) != ""
	if dni == "" && !hasName {
		m.logger.Debug("Person without DNI and name")
		return noMatch[model.PersonEntity, model.PersonRecord, model.PersonEnrichment](entity), nil
	}

	if dni != "" {
		record, err := m.gateway.SelectPersonByID(ctx, dni)
		if err != nil {
			return model.PersonMatch{}, err
		}
		if record != nil {
			m.logger.Debug("Exact person match", slog.String("dni", dni))
			return m.acceptPerson(ctx, entity, record, model.MatchExact, 1.0), nil
		}
	}

	// an unknown DNI still allows a match on the name
	if !hasName {
		return noMatch[model.PersonEntity, model.PersonRecord, model.PersonEnrichment](entity), nil
	}

	records, err := m.gateway.SelectPersonCandidates(ctx)
	if err != nil {
		return model.PersonMatch{}, err
	}

	var candidates []candidate[model.PersonRecord]
	for _, r := range records {
		confidence := PersonConfidence(entity, r)
		if confidence >= m.config.CandidateFloor {
			candidates = append(candidates, candidate[model.PersonRecord]{record: r, confidence: confidence})
		}
	}
	candidates = rank(candidates, m.config.TopCandidates)

	best, confidence, ok := decide(candidates, m.config.AcceptThreshold)
	if !ok {
		m.logger.Debug("No person match", slog.String("name", entity.FullName()), slog.Int("candidates", len(candidates)))
		return noMatch[model.PersonEntity, model.PersonRecord, model.PersonEnrichment](entity), nil
	}

	m.logger.Debug("Partial person match", slog.String("name", entity.FullName()), slog.String("dni", best.DNI), slog.Float64("confidence", confidence))
	return m.acceptPerson(ctx, entity, best, model.MatchPartial, confidence), nil
}

func (m *Matcher) acceptPerson(ctx context.Context, entity model.PersonEntity, record *model.PersonRecord, matchType model.MatchType, confidence float64) model.PersonMatch {
	enrichment, err := m.enrichPerson(ctx, record)
	if err != nil {
		m.logger.Warn("Person enrichment failed", slog.String("dni", record.DNI), slog.String("error", err.Error()))
		enrichment = model.PersonEnrichment{}
	}

	return model.PersonMatch{
		Entity:     entity,
		Type:       matchType,
		Confidence: confidence,
		Record:     record,
		Enrichment: enrichment,
	}
}

func (m *Matcher) enrichPerson(ctx context.Context, record *model.PersonRecord) (model.PersonEnrichment, error) {
	enrichment := model.PersonEnrichment{}

	var err error
	enrichment.PriorAppearances, err = m.gateway.CountPersonAppearances(ctx, record.DNI)
	if err != nil {
		return enrichment, err
	}

	enrichment.PriorRoles, err = m.gateway.SelectPersonRoles(ctx, record.DNI, m.config.MaxPriorRoles)
	if err != nil {
		return enrichment, err
	}

	enrichment.RelatedVehicles, err = m.gateway.SelectPersonVehicles(ctx, record.DNI, m.config.MaxRelatedVehicles)
	if err != nil {
		return enrichment, err
	}

	return enrichment, nil
}
