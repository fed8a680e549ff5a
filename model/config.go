package model

import (
	"fmt"
	"os"

	"github.com/siherrmann/enricher/helper"
	"gopkg.in/yaml.v3"
)

// MatchConfig represents the thresholds and limits of matching and annotation
type MatchConfig struct {
	// Decision thresholds, all in [0,1]
	ExactThreshold  float64 `json:"exact_threshold" yaml:"exact_threshold"`   // Strong markers and secondary facets
	AcceptThreshold float64 `json:"accept_threshold" yaml:"accept_threshold"` // Fuzzy candidate accepted as partial
	MarkThreshold   float64 `json:"mark_threshold" yaml:"mark_threshold"`     // Minimum confidence to mark text
	CandidateFloor  float64 `json:"candidate_floor" yaml:"candidate_floor"`   // Fuzzy candidates below are discarded
	AliasConfidence float64 `json:"alias_confidence" yaml:"alias_confidence"`

	TopCandidates int `json:"top_candidates" yaml:"top_candidates"`

	// Enrichment limits
	MaxPriorEvents          int `json:"max_prior_events" yaml:"max_prior_events"`
	MaxKnownDrivers         int `json:"max_known_drivers" yaml:"max_known_drivers"`
	MaxPriorRoles           int `json:"max_prior_roles" yaml:"max_prior_roles"`
	MaxRelatedVehicles      int `json:"max_related_vehicles" yaml:"max_related_vehicles"`
	MaxRecurringCategories  int `json:"max_recurring_categories" yaml:"max_recurring_categories"`
	RecurrentLocationEvents int `json:"recurrent_location_events" yaml:"recurrent_location_events"`

	// Concurrent entity resolutions per kind
	Workers int `json:"workers" yaml:"workers"`
}

// DefaultMatchConfig returns the default thresholds
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		ExactThreshold:          0.95,
		AcceptThreshold:         0.85,
		MarkThreshold:           0.70,
		CandidateFloor:          0.70,
		AliasConfidence:         0.95,
		TopCandidates:           3,
		MaxPriorEvents:          5,
		MaxKnownDrivers:         3,
		MaxPriorRoles:           5,
		MaxRelatedVehicles:      5,
		MaxRecurringCategories:  5,
		RecurrentLocationEvents: 5,
		Workers:                 4,
	}
}

// Validate checks that the thresholds are ordered and the limits positive
func (c MatchConfig) Validate() error {
	thresholds := map[string]float64{
		"exact_threshold":  c.ExactThreshold,
		"accept_threshold": c.AcceptThreshold,
		"mark_threshold":   c.MarkThreshold,
		"candidate_floor":  c.CandidateFloor,
		"alias_confidence": c.AliasConfidence,
	}
	for name, v := range thresholds {
		if v < 0 || v > 1 {
			return helper.NewError("match config", fmt.Errorf("%s must be in [0,1], got %v", name, v))
		}
	}

	if c.AcceptThreshold < c.CandidateFloor {
		return helper.NewError("match config", fmt.Errorf("accept_threshold %v is below candidate_floor %v", c.AcceptThreshold, c.CandidateFloor))
	}
	if c.ExactThreshold < c.AcceptThreshold {
		return helper.NewError("match config", fmt.Errorf("exact_threshold %v is below accept_threshold %v", c.ExactThreshold, c.AcceptThreshold))
	}
	if c.TopCandidates < 1 {
		return helper.NewError("match config", fmt.Errorf("top_candidates must be positive, got %d", c.TopCandidates))
	}
	if c.Workers < 1 {
		return helper.NewError("match config", fmt.Errorf("workers must be positive, got %d", c.Workers))
	}

	limits := map[string]int{
		"max_prior_events":          c.MaxPriorEvents,
		"max_known_drivers":         c.MaxKnownDrivers,
		"max_prior_roles":           c.MaxPriorRoles,
		"max_related_vehicles":      c.MaxRelatedVehicles,
		"max_recurring_categories":  c.MaxRecurringCategories,
		"recurrent_location_events": c.RecurrentLocationEvents,
	}
	for name, v := range limits {
		if v < 0 {
			return helper.NewError("match config", fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}

	return nil
}

// LoadMatchConfig reads a YAML file on top of the defaults.
// Keys missing from the file keep their default value.
func LoadMatchConfig(path string) (MatchConfig, error) {
	config := DefaultMatchConfig()
	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return config, helper.NewError("read match config", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, helper.NewError("parse match config", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}

	return config, nil
}
