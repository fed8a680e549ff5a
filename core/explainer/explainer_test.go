package explainer

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/siherrmann/enricher/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	entries map[string][]model.HistoryEntry
	fail    bool
	calls   []string
}

func (f *fakeHistory) SelectHistory(ctx context.Context, kind model.EntityKind, key string) ([]model.HistoryEntry, error) {
	f.calls = append(f.calls, string(kind)+":"+key)
	if f.fail {
		return nil, fmt.Errorf("no such table: entity_links")
	}
	return f.entries[string(kind)+":"+key], nil
}

func newTestExplainer(t *testing.T, history *fakeHistory) *Explainer {
	explainer, err := NewExplainer(history, nil)
	require.NoError(t, err, "Expected NewExplainer to not return an error")
	explainer.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return explainer
}

func intPtr(i int) *int {
	return &i
}

func TestNewExplainer(t *testing.T) {
	t.Run("Valid call NewExplainer", func(t *testing.T) {
		explainer, err := NewExplainer(&fakeHistory{}, nil)
		assert.NoError(t, err)
		require.NotNil(t, explainer)
		assert.NotNil(t, explainer.logger, "Expected a default logger")
	})

	t.Run("Invalid call NewExplainer with nil gateway", func(t *testing.T) {
		_, err := NewExplainer(nil, nil)
		assert.Error(t, err)
	})
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	history := &fakeHistory{entries: map[string][]model.HistoryEntry{
		"VEHICLE:1": {
			{EventID: "DRAG-2024-001234", Date: "2024-05-20", Category: "robatoris"},
			{EventID: "DRAG-2024-000987", Date: "2024-02-15", Category: "altercats"},
		},
		"PERSON:43123456X": {
			{EventID: "DRAG-2024-001234", Date: "2024-05-20", Category: "robatoris"},
		},
	}}

	t.Run("Accepted matches only in kind order", func(t *testing.T) {
		explainer := newTestExplainer(t, history)
		vehicle := &model.VehicleRecord{ID: 1, Plate: "9915GBN"}

		explanations := explainer.Explain(ctx, &model.MatchResult{
			Vehicles: []model.VehicleMatch{
				{Entity: model.VehicleEntity{Plate: "9915GBN"}, Type: model.MatchExact, Confidence: 1, Record: vehicle},
				{Entity: model.VehicleEntity{Plate: "0000AAA"}, Type: model.MatchNone},
			},
			Persons: []model.PersonMatch{
				{Entity: model.PersonEntity{DNI: "43123456X"}, Type: model.MatchPartial, Confidence: 0.9, Record: &model.PersonRecord{DNI: "43123456X"}},
				{Entity: model.PersonEntity{DNI: "1"}, Type: model.MatchError, Error: "timeout"},
			},
		})

		require.Len(t, explanations, 2)

		v := explanations[0]
		assert.Equal(t, "9915GBN", v.Entity)
		assert.Equal(t, model.KindVehicle, v.Type)
		assert.Equal(t, model.MatchExact, v.Match)
		assert.Equal(t, vehicle, v.Current)
		assert.Len(t, v.History, 2)
		assert.Equal(t, 2, v.Indicators.TotalEvents)
		assert.Equal(t, intPtr(26), v.Indicators.DaysSinceLast)
		assert.Equal(t, model.RiskHigh, v.Indicators.Risk)

		p := explanations[1]
		assert.Equal(t, model.KindPerson, p.Type)
		assert.Equal(t, 0.9, p.Confidence)
		assert.Equal(t, model.RiskHigh, p.Indicators.Risk)
	})

	t.Run("Location keyed by record id", func(t *testing.T) {
		explainer := newTestExplainer(t, &fakeHistory{})

		explanations := explainer.Explain(ctx, &model.MatchResult{Locations: []model.LocationMatch{
			{Entity: model.LocationEntity{FullText: "Ctra. Ribes 88"}, Type: model.MatchExact, Confidence: 0.95, Record: &model.LocationRecord{ID: 15}},
		}})

		require.Len(t, explanations, 1)
		assert.Equal(t, "Ctra. Ribes 88", explanations[0].Entity)
		assert.Empty(t, explanations[0].History)
		assert.Nil(t, explanations[0].Indicators.DaysSinceLast)
		assert.Equal(t, model.RiskLow, explanations[0].Indicators.Risk)
	})

	t.Run("History failure leaves an empty timeline", func(t *testing.T) {
		explainer := newTestExplainer(t, &fakeHistory{fail: true})

		explanations := explainer.Explain(ctx, &model.MatchResult{Vehicles: []model.VehicleMatch{
			{Entity: model.VehicleEntity{Plate: "9915GBN"}, Type: model.MatchExact, Confidence: 1, Record: &model.VehicleRecord{ID: 1}},
		}})

		require.Len(t, explanations, 1)
		assert.NotNil(t, explanations[0].History)
		assert.Empty(t, explanations[0].History)
		assert.Equal(t, 0, explanations[0].Indicators.TotalEvents)
	})

	t.Run("Nil result", func(t *testing.T) {
		explainer := newTestExplainer(t, &fakeHistory{})
		assert.Empty(t, explainer.Explain(ctx, nil))
	})
}

func TestRisk(t *testing.T) {
	t.Run("No events", func(t *testing.T) {
		assert.Equal(t, model.RiskLow, Risk(0, intPtr(1)))
	})

	t.Run("Many events", func(t *testing.T) {
		assert.Equal(t, model.RiskHigh, Risk(5, intPtr(400)))
	})

	t.Run("Recent event", func(t *testing.T) {
		assert.Equal(t, model.RiskHigh, Risk(1, intPtr(30)))
	})

	t.Run("Repeated events", func(t *testing.T) {
		assert.Equal(t, model.RiskMedium, Risk(2, intPtr(400)))
	})

	t.Run("Event within three months", func(t *testing.T) {
		assert.Equal(t, model.RiskMedium, Risk(1, intPtr(90)))
	})

	t.Run("Single old event", func(t *testing.T) {
		assert.Equal(t, model.RiskLow, Risk(1, intPtr(91)))
	})

	t.Run("Unknown age", func(t *testing.T) {
		assert.Equal(t, model.RiskLow, Risk(1, nil))
		assert.Equal(t, model.RiskMedium, Risk(3, nil))
	})
}

func TestParseDate(t *testing.T) {
	for _, value := range []string{"2024-05-20", "2024-05-20T10:00:00Z", "2024-05-20 10:00:00"} {
		parsed, ok := parseDate(value)
		assert.True(t, ok, "Expected %q to parse", value)
		assert.Equal(t, 2024, parsed.Year())
	}

	_, ok := parseDate("20/05/2024")
	assert.False(t, ok)
}
