package enricher

import (
	"context"
	"log/slog"
	"os"

	"github.com/siherrmann/enricher/core/annotator"
	"github.com/siherrmann/enricher/core/explainer"
	"github.com/siherrmann/enricher/core/matcher"
	"github.com/siherrmann/enricher/database"
	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
)

// Enricher provides a unified interface to resolve, annotate and explain
// the entities of a police report against the reference store
type Enricher struct {
	DB        *helper.Database
	Gateway   *database.ReferenceGateway
	Matcher   *matcher.Matcher
	Annotator *annotator.Annotator
	Explainer *explainer.Explainer
	// Logging
	log *slog.Logger
}

// NewEnricher connects to the reference store and initializes all
// components. A reference store without the required tables is an error.
// A nil logger logs at info level to stdout.
func NewEnricher(config *helper.DatabaseConfiguration, matchConfig model.MatchConfig, logger *slog.Logger) (*Enricher, error) {
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}

	db, err := helper.NewDatabase("enricher", config, logger)
	if err != nil {
		return nil, helper.NewError("connect reference store", err)
	}

	e, err := NewEnricherFromDatabase(db, matchConfig, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// NewEnricherFromDatabase initializes all components on an open database.
// Closing the enricher closes the database.
func NewEnricherFromDatabase(db *helper.Database, matchConfig model.MatchConfig, logger *slog.Logger) (*Enricher, error) {
	if logger == nil {
		logger = helper.NewLogger(os.Stdout, slog.LevelInfo)
	}

	gateway, err := database.NewReferenceGateway(db)
	if err != nil {
		return nil, helper.NewError("create reference gateway", err)
	}

	m, err := matcher.NewMatcher(gateway, matchConfig, logger)
	if err != nil {
		return nil, helper.NewError("create matcher", err)
	}

	a, err := annotator.NewAnnotator(matchConfig, logger)
	if err != nil {
		return nil, helper.NewError("create annotator", err)
	}

	x, err := explainer.NewExplainer(gateway, logger)
	if err != nil {
		return nil, helper.NewError("create explainer", err)
	}

	return &Enricher{
		DB:        db,
		Gateway:   gateway,
		Matcher:   m,
		Annotator: a,
		Explainer: x,
		log:       logger,
	}, nil
}

// Close closes the database connection
func (e *Enricher) Close() error {
	if e.DB != nil {
		return e.DB.Close()
	}
	return nil
}

// Resolve matches the entities against the reference store
func (e *Enricher) Resolve(ctx context.Context, entities model.Entities) *model.MatchResult {
	return e.Matcher.Resolve(ctx, entities)
}

// Annotate marks the matched entities inline and renders the explanation
func (e *Enricher) Annotate(text string, result *model.MatchResult) model.AnnotationResult {
	return e.Annotator.Annotate(text, result)
}

// AnnotatePositions lists the matched entities by their offsets in text
func (e *Enricher) AnnotatePositions(text string, result *model.MatchResult) model.PositionResult {
	return e.Annotator.AnnotatePositions(text, result)
}

// Explain builds the history timeline of every accepted match
func (e *Enricher) Explain(ctx context.Context, result *model.MatchResult) []model.Explanation {
	return e.Explainer.Explain(ctx, result)
}

// Enrich resolves the entities of a report, annotates its text and explains
// the accepted matches.
func (e *Enricher) Enrich(ctx context.Context, text string, entities model.Entities) *model.Report {
	report := model.NewReport()

	report.Matches = e.Resolve(ctx, entities)
	report.Annotation = e.Annotate(text, report.Matches)
	report.Explanations = e.Explain(ctx, report.Matches)

	e.log.Info(
		"Enriched report",
		slog.String("rid", report.RID.String()),
		slog.Int("entities", entities.Len()),
		slog.Int("explanations", len(report.Explanations)),
	)

	return report
}

// EnrichPositions locates entities without offsets in text, resolves them
// and returns the offset indexed annotations.
func (e *Enricher) EnrichPositions(ctx context.Context, text string, entities model.Entities) model.PositionResult {
	located := annotator.LocateEntities(text, entities)
	return e.AnnotatePositions(text, e.Resolve(ctx, located))
}
