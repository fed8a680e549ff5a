package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/siherrmann/enricher/database"
	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
	"golang.org/x/sync/errgroup"
)

// Matcher resolves extracted entities against the reference store
type Matcher struct {
	gateway database.ReferenceGatewayFunctions
	config  model.MatchConfig
	logger  *slog.Logger
}

// NewMatcher creates a new matcher. A nil logger discards all records.
func NewMatcher(gateway database.ReferenceGatewayFunctions, config model.MatchConfig, logger *slog.Logger) (*Matcher, error) {
	if gateway == nil {
		return nil, helper.NewError("gateway validation", fmt.Errorf("gateway is nil"))
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = helper.DiscardLogger()
	}

	return &Matcher{
		gateway: gateway,
		config:  config,
		logger:  logger,
	}, nil
}

// Config returns the thresholds the matcher was created with
func (m *Matcher) Config() model.MatchConfig {
	return m.config
}

// Resolve returns one match per input entity, in input order. Entities are
// resolved concurrently; a failing entity becomes an error match and never
// aborts the batch.
func (m *Matcher) Resolve(ctx context.Context, entities model.Entities) *model.MatchResult {
	result := model.NewMatchResult(entities)

	g := errgroup.Group{}
	g.SetLimit(m.config.Workers)

	for i, entity := range entities.Vehicles {
		g.Go(func() error {
			result.Vehicles[i] = guard(m.logger, entity, func() (model.VehicleMatch, error) {
				return m.resolveVehicle(ctx, entity)
			})
			return nil
		})
	}
	for i, entity := range entities.Persons {
		g.Go(func() error {
			result.Persons[i] = guard(m.logger, entity, func() (model.PersonMatch, error) {
				return m.resolvePerson(ctx, entity)
			})
			return nil
		})
	}
	for i, entity := range entities.Locations {
		g.Go(func() error {
			result.Locations[i] = guard(m.logger, entity, func() (model.LocationMatch, error) {
				return m.resolveLocation(ctx, entity)
			})
			return nil
		})
	}

	// workers never return an error
	_ = g.Wait()

	counts := map[model.MatchType]int{}
	for _, match := range result.All() {
		counts[match.Status()]++
	}
	m.logger.Info(
		"Resolved entities",
		slog.Int("vehicles", len(result.Vehicles)),
		slog.Int("persons", len(result.Persons)),
		slog.Int("locations", len(result.Locations)),
		slog.Int("exact", counts[model.MatchExact]),
		slog.Int("partial", counts[model.MatchPartial]),
		slog.Int("none", counts[model.MatchNone]),
		slog.Int("error", counts[model.MatchError]),
	)

	return result
}

// guard runs one resolution and turns errors and panics into an error match
func guard[E model.ResolvableEntity, R any, X any](logger *slog.Logger, entity E, resolve func() (model.Match[E, R, X], error)) (match model.Match[E, R, X]) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Recovered panic while resolving entity", slog.String("kind", string(entity.Kind())), slog.Any("panic", r))
			match = errorMatch[E, R, X](entity, fmt.Errorf("panic: %v", r))
		}
	}()

	var err error
	match, err = resolve()
	if err != nil {
		logger.Error("Error resolving entity", slog.String("kind", string(entity.Kind())), slog.String("key", entity.NaturalKey()), slog.String("error", err.Error()))
		return errorMatch[E, R, X](entity, err)
	}
	return match
}

func noMatch[E model.ResolvableEntity, R any, X any](entity E) model.Match[E, R, X] {
	return model.Match[E, R, X]{Entity: entity, Type: model.MatchNone}
}

func errorMatch[E model.ResolvableEntity, R any, X any](entity E, err error) model.Match[E, R, X] {
	return model.Match[E, R, X]{Entity: entity, Type: model.MatchError, Error: err.Error()}
}

type candidate[R any] struct {
	record     *R
	confidence float64
}

// rank keeps the n most confident candidates. Equal confidences keep the
// gateway row order.
func rank[R any](candidates []candidate[R], n int) []candidate[R] {
	slices.SortStableFunc(candidates, func(a, b candidate[R]) int {
		switch {
		case a.confidence > b.confidence:
			return -1
		case a.confidence < b.confidence:
			return 1
		}
		return 0
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// decide accepts the best ranked candidate as partial match if it reaches
// the accept threshold
func decide[R any](candidates []candidate[R], threshold float64) (*R, float64, bool) {
	if len(candidates) == 0 || candidates[0].confidence < threshold {
		return nil, 0, false
	}
	return candidates[0].record, candidates[0].confidence, true
}
