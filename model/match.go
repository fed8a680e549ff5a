package model

// MatchType is the terminal state of resolving one entity
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchPartial MatchType = "partial"
	MatchNone    MatchType = "none"
	MatchError   MatchType = "error"
)

// Accepted reports whether the match links the entity to a stored record
func (t MatchType) Accepted() bool {
	return t == MatchExact || t == MatchPartial
}

// Match is the resolution of one extracted entity against the reference store
type Match[E ResolvableEntity, R any, X any] struct {
	Entity     E         `json:"entidad_original"`
	Type       MatchType `json:"match_type"`
	Confidence float64   `json:"confidence"`
	Record     *R        `json:"db_record"`
	Enrichment X         `json:"enrichment"`
	Error      string    `json:"error,omitempty"`
}

func (m Match[E, R, X]) Original() ResolvableEntity { return m.Entity }
func (m Match[E, R, X]) Status() MatchType          { return m.Type }
func (m Match[E, R, X]) Score() float64             { return m.Confidence }

// DBData returns the matched record or an untyped nil
func (m Match[E, R, X]) DBData() any {
	if m.Record == nil {
		return nil
	}
	return m.Record
}

// Resolved is the kind independent view of a match used by the annotator
type Resolved interface {
	Original() ResolvableEntity
	Status() MatchType
	Score() float64
	DBData() any
}

// VehicleEnrichment holds the history of a matched vehicle
type VehicleEnrichment struct {
	Owner            *PersonRecord `json:"titular,omitempty"`
	PriorAppearances int           `json:"apariciones_previas,omitempty"`
	PriorEvents      []string      `json:"eventos_previos,omitempty"`
	KnownDrivers     []KnownDriver `json:"conductores_habituales,omitempty"`
}

// PersonEnrichment holds the history of a matched person
type PersonEnrichment struct {
	PriorAppearances int              `json:"apariciones_previas,omitempty"`
	PriorRoles       []string         `json:"roles_previos,omitempty"`
	RelatedVehicles  []RelatedVehicle `json:"vehiculos_relacionados,omitempty"`
}

// LocationEnrichment holds the history of a matched location
type LocationEnrichment struct {
	PriorAppearances    int      `json:"apariciones_previas,omitempty"`
	RecurringCategories []string `json:"eventos_recurrentes,omitempty"`
	Aliases             []string `json:"alias,omitempty"`
}

type (
	VehicleMatch  = Match[VehicleEntity, VehicleRecord, VehicleEnrichment]
	PersonMatch   = Match[PersonEntity, PersonRecord, PersonEnrichment]
	LocationMatch = Match[LocationEntity, LocationRecord, LocationEnrichment]
)

// MatchResult holds one match per input entity, in input order
type MatchResult struct {
	Vehicles  []VehicleMatch  `json:"vehicles"`
	Persons   []PersonMatch   `json:"persons"`
	Locations []LocationMatch `json:"locations"`
}

// NewMatchResult allocates a result sized for the given batch
func NewMatchResult(entities Entities) *MatchResult {
	return &MatchResult{
		Vehicles:  make([]VehicleMatch, len(entities.Vehicles)),
		Persons:   make([]PersonMatch, len(entities.Persons)),
		Locations: make([]LocationMatch, len(entities.Locations)),
	}
}

// All returns every match: vehicles, then persons, then locations
func (r *MatchResult) All() []Resolved {
	if r == nil {
		return nil
	}

	all := make([]Resolved, 0, len(r.Vehicles)+len(r.Persons)+len(r.Locations))
	for _, m := range r.Vehicles {
		all = append(all, m)
	}
	for _, m := range r.Persons {
		all = append(all, m)
	}
	for _, m := range r.Locations {
		all = append(all, m)
	}
	return all
}
