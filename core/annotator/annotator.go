package annotator

import (
	"log/slog"
	"slices"

	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
)

// Metadata warnings
const (
	WarningKnownDrivers      = "Vehicle amb conductors habituals coneguts"
	WarningRecurrentLocation = "Ubicació amb alta recurrència d'incidents"
)

// Annotator turns match results into marked up text or position lists
type Annotator struct {
	config model.MatchConfig
	logger *slog.Logger
}

// NewAnnotator creates a new annotator. A nil logger discards all records.
func NewAnnotator(config model.MatchConfig, logger *slog.Logger) (*Annotator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = helper.DiscardLogger()
	}

	return &Annotator{
		config: config,
		logger: logger,
	}, nil
}

// Annotate marks the matched entities inline, renders the explanation block
// and counts the matches. It never fails; a nil result annotates nothing.
func (a *Annotator) Annotate(text string, result *model.MatchResult) model.AnnotationResult {
	markers := a.Markers(text, result)
	enriched := Rewrite(text, markers)

	metadata := a.Metadata(result)
	a.logger.Info(
		"Annotated text",
		slog.Int("markers", len(markers)),
		slog.Int("exact", metadata.Exact),
		slog.Int("partial", metadata.Partial),
		slog.Int("none", metadata.None),
	)

	return model.AnnotationResult{
		EnrichedText: enriched,
		Explanation:  Explain(result),
		Metadata:     metadata,
	}
}

// Markers returns the disjoint markers Annotate applies to text
func (a *Annotator) Markers(text string, result *model.MatchResult) []model.Marker {
	candidates := CandidateMarkers(text, result.All(), a.config)
	markers := ResolveOverlaps(candidates)
	a.logger.Debug("Resolved markers", slog.Int("candidates", len(candidates)), slog.Int("markers", len(markers)))
	return markers
}

// Metadata classifies the matches and collects the warnings. A partial match
// at or above the exact threshold counts as exact.
func (a *Annotator) Metadata(result *model.MatchResult) model.AnnotationMetadata {
	metadata := model.AnnotationMetadata{Warnings: []string{}}

	for _, match := range result.All() {
		switch status, score := match.Status(), match.Score(); {
		case status == model.MatchExact || (status == model.MatchPartial && score >= a.config.ExactThreshold):
			metadata.Exact++
		case status == model.MatchPartial && score >= a.config.MarkThreshold:
			metadata.Partial++
		default:
			metadata.None++
		}
	}

	if result == nil {
		return metadata
	}

	for _, match := range result.Vehicles {
		if match.Type.Accepted() && len(match.Enrichment.KnownDrivers) > 0 {
			metadata.Warnings = appendWarning(metadata.Warnings, WarningKnownDrivers)
		}
	}
	for _, match := range result.Locations {
		if match.Type.Accepted() && match.Enrichment.PriorAppearances >= a.config.RecurrentLocationEvents {
			metadata.Warnings = appendWarning(metadata.Warnings, WarningRecurrentLocation)
		}
	}

	return metadata
}

func appendWarning(warnings []string, warning string) []string {
	if slices.Contains(warnings, warning) {
		return warnings
	}
	return append(warnings, warning)
}
