package explainer

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/siherrmann/enricher/database"
	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
)

// Risk thresholds
const (
	HighRiskEvents   = 5
	HighRiskDays     = 30
	MediumRiskEvents = 2
	MediumRiskDays   = 90
)

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
}

// Explainer builds the structured history of accepted matches
type Explainer struct {
	gateway database.HistoryDBHandlerFunctions
	logger  *slog.Logger
	now     func() time.Time
}

// NewExplainer creates a new explainer. A nil logger discards all records.
func NewExplainer(gateway database.HistoryDBHandlerFunctions, logger *slog.Logger) (*Explainer, error) {
	if gateway == nil {
		return nil, helper.NewError("gateway validation", fmt.Errorf("gateway is nil"))
	}
	if logger == nil {
		logger = helper.DiscardLogger()
	}

	return &Explainer{
		gateway: gateway,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Explain returns one explanation per accepted match: vehicles, then
// persons, then locations. A failing history query leaves an empty
// timeline.
func (e *Explainer) Explain(ctx context.Context, result *model.MatchResult) []model.Explanation {
	explanations := []model.Explanation{}
	if result == nil {
		return explanations
	}

	for _, match := range result.Vehicles {
		if match.Type.Accepted() && match.Record != nil {
			key := strconv.FormatInt(match.Record.ID, 10)
			explanations = append(explanations, e.explain(ctx, match, match.Entity.NaturalKey(), key))
		}
	}
	for _, match := range result.Persons {
		if match.Type.Accepted() && match.Record != nil {
			explanations = append(explanations, e.explain(ctx, match, match.Entity.NaturalKey(), match.Record.DNI))
		}
	}
	for _, match := range result.Locations {
		if match.Type.Accepted() && match.Record != nil {
			name := match.Entity.NaturalKey()
			if name == "" {
				name = match.Entity.Label()
			}
			key := strconv.FormatInt(match.Record.ID, 10)
			explanations = append(explanations, e.explain(ctx, match, name, key))
		}
	}

	e.logger.Info("Generated explanations", slog.Int("count", len(explanations)))

	return explanations
}

func (e *Explainer) explain(ctx context.Context, match model.Resolved, name string, key string) model.Explanation {
	kind := match.Original().Kind()

	history, err := e.gateway.SelectHistory(ctx, kind, key)
	if err != nil {
		e.logger.Error("Error selecting history", slog.String("kind", string(kind)), slog.String("key", key), slog.String("error", err.Error()))
		history = []model.HistoryEntry{}
	}

	indicators := model.Indicators{TotalEvents: len(history)}
	if len(history) > 0 {
		if last, ok := parseDate(history[0].Date); ok {
			days := int(e.now().Sub(last).Hours() / 24)
			indicators.DaysSinceLast = &days
		}
	}
	indicators.Risk = Risk(indicators.TotalEvents, indicators.DaysSinceLast)

	return model.Explanation{
		Entity:     name,
		Type:       kind,
		Match:      match.Status(),
		Confidence: match.Score(),
		Current:    match.DBData(),
		History:    history,
		Indicators: indicators,
	}
}

// Risk grades a history by its size and the age of its newest event.
// An unknown age never raises the risk.
func Risk(totalEvents int, daysSinceLast *int) model.RiskLevel {
	if totalEvents == 0 {
		return model.RiskLow
	}

	recent := func(days int) bool {
		return daysSinceLast != nil && *daysSinceLast <= days
	}

	switch {
	case totalEvents >= HighRiskEvents || recent(HighRiskDays):
		return model.RiskHigh
	case totalEvents >= MediumRiskEvents || recent(MediumRiskDays):
		return model.RiskMedium
	}
	return model.RiskLow
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
