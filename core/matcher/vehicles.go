package matcher

import (
	"context"
	"log/slog"

	"github.com/siherrmann/enricher/core/similarity"
	"github.com/siherrmann/enricher/model"
)

// Vehicle confidence weights
const (
	PlateWeight = 0.70
	BrandWeight = 0.15
	ModelWeight = 0.15
)

// VehicleConfidence is the weighted plate, brand and model similarity of an
// entity and a stored vehicle. Brand and model only count when both sides
// have a value.
func VehicleConfidence(entity model.VehicleEntity, record *model.VehicleRecord) float64 {
	confidence := PlateWeight * similarity.Score(similarity.NormalizePlate(entity.Plate), similarity.NormalizePlate(record.Plate))

	if a, b := similarity.Normalize(entity.Brand), similarity.Normalize(record.Brand); a != "" && b != "" {
		confidence += BrandWeight * similarity.Score(a, b)
	}
	if a, b := similarity.Normalize(entity.Model), similarity.Normalize(record.Model); a != "" && b != "" {
		confidence += ModelWeight * similarity.Score(a, b)
	}

	return confidence
}

func (m *Matcher) resolveVehicle(ctx context.Context, entity model.VehicleEntity) (model.VehicleMatch, error) {
	plate := similarity.NormalizePlate(entity.Plate)
	if plate == "" {
		m.logger.Debug("Vehicle without plate", slog.String("brand", entity.Brand))
		return noMatch[model.VehicleEntity, model.VehicleRecord, model.VehicleEnrichment](entity), nil
	}

	record, err := m.gateway.SelectVehicleByPlate(ctx, plate)
	if err != nil {
		return model.VehicleMatch{}, err
	}
	if record != nil {
		m.logger.Debug("Exact vehicle match", slog.String("plate", plate), slog.Int64("vehicle_id", record.ID))
		return m.acceptVehicle(ctx, entity, record, model.MatchExact, 1.0), nil
	}

	// brand and model can add at most their weights to the plate similarity
	minPlateScore := (m.config.CandidateFloor - (BrandWeight + ModelWeight)) / PlateWeight
	records, err := m.gateway.SelectVehicleCandidates(ctx, plate, minPlateScore)
	if err != nil {
		return model.VehicleMatch{}, err
	}

	var candidates []candidate[model.VehicleRecord]
	for _, r := range records {
		confidence := VehicleConfidence(entity, r)
		if confidence >= m.config.CandidateFloor {
			candidates = append(candidates, candidate[model.VehicleRecord]{record: r, confidence: confidence})
		}
	}
	candidates = rank(candidates, m.config.TopCandidates)

	best, confidence, ok := decide(candidates, m.config.AcceptThreshold)
	if !ok {
		m.logger.Debug("No vehicle match", slog.String("plate", plate), slog.Int("candidates", len(candidates)))
		return noMatch[model.VehicleEntity, model.VehicleRecord, model.VehicleEnrichment](entity), nil
	}

	m.logger.Debug("Partial vehicle match", slog.String("plate", plate), slog.Int64("vehicle_id", best.ID), slog.Float64("confidence", confidence))
	return m.acceptVehicle(ctx, entity, best, model.MatchPartial, confidence), nil
}

func (m *Matcher) acceptVehicle(ctx context.Context, entity model.VehicleEntity, record *model.VehicleRecord, matchType model.MatchType, confidence float64) model.VehicleMatch {
	enrichment, err := m.enrichVehicle(ctx, record)
	if err != nil {
		m.logger.Warn("Vehicle enrichment failed", slog.Int64("vehicle_id", record.ID), slog.String("error", err.Error()))
		enrichment = model.VehicleEnrichment{}
	}

	return model.VehicleMatch{
		Entity:     entity,
		Type:       matchType,
		Confidence: confidence,
		Record:     record,
		Enrichment: enrichment,
	}
}

func (m *Matcher) enrichVehicle(ctx context.Context, record *model.VehicleRecord) (model.VehicleEnrichment, error) {
	enrichment := model.VehicleEnrichment{}

	if ownerID := similarity.NormalizeID(record.OwnerID); ownerID != "" {
		owner, err := m.gateway.SelectPersonByID(ctx, ownerID)
		if err != nil {
			return enrichment, err
		}
		enrichment.Owner = owner
	}

	var err error
	enrichment.PriorAppearances, err = m.gateway.CountVehicleAppearances(ctx, record.ID)
	if err != nil {
		return enrichment, err
	}

	enrichment.PriorEvents, err = m.gateway.SelectVehicleEvents(ctx, record.ID, m.config.MaxPriorEvents)
	if err != nil {
		return enrichment, err
	}

	enrichment.KnownDrivers, err = m.gateway.SelectVehicleDrivers(ctx, record.ID, m.config.MaxKnownDrivers)
	if err != nil {
		return enrichment, err
	}

	return enrichment, nil
}
