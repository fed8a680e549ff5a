package model

import (
	"encoding/json"
	"strings"
)

// EntityKind is the type of an extracted entity
type EntityKind string

const (
	KindVehicle  EntityKind = "VEHICLE"
	KindPerson   EntityKind = "PERSON"
	KindLocation EntityKind = "LOCATION"
)

// IDPrefix returns the prefix used for position annotation identifiers
func (k EntityKind) IDPrefix() string {
	switch k {
	case KindVehicle:
		return "v"
	case KindPerson:
		return "p"
	case KindLocation:
		return "u"
	}
	return "x"
}

// Span is a half-open range [Start, End) in the source text. Entity
// positions count characters, markers count bytes.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of units covered by the span
func (s Span) Len() int {
	return s.End - s.Start
}

// Overlaps reports whether two half-open spans share at least one unit
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Within reports whether the span is a valid range of a text of length n
func (s Span) Within(n int) bool {
	return s.Start >= 0 && s.Start <= s.End && s.End <= n
}

// Facet is a textual field of an entity that can be located in the source text.
// Key facets are the identifiers a match was made on; the others are only
// marked on near-certain matches.
type Facet struct {
	Text string
	Key  bool
}

// ResolvableEntity is implemented by every extracted entity kind
type ResolvableEntity interface {
	Kind() EntityKind
	NaturalKey() string
	Facets() []Facet
	Position() *Span
}

// Entities is the batch handed to the matcher
type Entities struct {
	Vehicles  []VehicleEntity  `json:"vehicles"`
	Persons   []PersonEntity   `json:"persons"`
	Locations []LocationEntity `json:"locations"`
}

// UnmarshalJSON accepts both the Spanish and the English group names
func (e *Entities) UnmarshalJSON(data []byte) error {
	var raw struct {
		Vehicles    []VehicleEntity  `json:"vehicles"`
		Vehiculos   []VehicleEntity  `json:"vehiculos"`
		Persons     []PersonEntity   `json:"persons"`
		Personas    []PersonEntity   `json:"personas"`
		Locations   []LocationEntity `json:"locations"`
		Ubicaciones []LocationEntity `json:"ubicaciones"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*e = Entities{
		Vehicles:  append(raw.Vehicles, raw.Vehiculos...),
		Persons:   append(raw.Persons, raw.Personas...),
		Locations: append(raw.Locations, raw.Ubicaciones...),
	}
	return nil
}

// Len returns the total number of entities in the batch
func (e Entities) Len() int {
	return len(e.Vehicles) + len(e.Persons) + len(e.Locations)
}

// VehicleEntity is a vehicle mentioned in the report
type VehicleEntity struct {
	Plate string `json:"matricula,omitempty"`
	Brand string `json:"marca,omitempty"`
	Model string `json:"modelo,omitempty"`
	Span  *Span  `json:"position,omitempty"`
}

func (v VehicleEntity) Kind() EntityKind   { return KindVehicle }
func (v VehicleEntity) NaturalKey() string { return strings.TrimSpace(v.Plate) }
func (v VehicleEntity) Position() *Span    { return v.Span }

func (v VehicleEntity) Facets() []Facet {
	return compactFacets(
		Facet{Text: v.Plate, Key: true},
		Facet{Text: v.Brand},
		Facet{Text: v.Model},
	)
}

// UnmarshalJSON accepts both the Spanish and the English field names
func (v *VehicleEntity) UnmarshalJSON(data []byte) error {
	var raw struct {
		Matricula string `json:"matricula"`
		Plate     string `json:"plate"`
		Marca     string `json:"marca"`
		Brand     string `json:"brand"`
		Modelo    string `json:"modelo"`
		Model     string `json:"model"`
		rawPosition
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*v = VehicleEntity{
		Plate: firstNonEmpty(raw.Matricula, raw.Plate),
		Brand: firstNonEmpty(raw.Marca, raw.Brand),
		Model: firstNonEmpty(raw.Modelo, raw.Model),
		Span:  raw.span(),
	}
	return nil
}

// PersonEntity is a person mentioned in the report
type PersonEntity struct {
	DNI        string `json:"dni,omitempty"`
	GivenName  string `json:"nombre,omitempty"`
	FamilyName string `json:"apellidos,omitempty"`
	Span       *Span  `json:"position,omitempty"`
}

func (p PersonEntity) Kind() EntityKind { return KindPerson }
func (p PersonEntity) Position() *Span  { return p.Span }

// NaturalKey is the DNI, or the full name when no DNI was extracted
func (p PersonEntity) NaturalKey() string {
	if dni := strings.TrimSpace(p.DNI); dni != "" {
		return dni
	}
	return p.FullName()
}

// FullName joins given and family name
func (p PersonEntity) FullName() string {
	return strings.TrimSpace(strings.TrimSpace(p.GivenName) + " " + strings.TrimSpace(p.FamilyName))
}

func (p PersonEntity) Facets() []Facet {
	facets := []Facet{
		{Text: p.DNI, Key: true},
		{Text: p.FullName(), Key: true},
	}
	// a lone name part is already covered by the full name facet
	if strings.TrimSpace(p.GivenName) != "" && strings.TrimSpace(p.FamilyName) != "" {
		facets = append(facets, Facet{Text: p.GivenName}, Facet{Text: p.FamilyName})
	}
	return compactFacets(facets...)
}

// UnmarshalJSON accepts both the Spanish and the English field names
func (p *PersonEntity) UnmarshalJSON(data []byte) error {
	var raw struct {
		DNI        string `json:"dni"`
		ID         string `json:"id_number"`
		Nombre     string `json:"nombre"`
		GivenName  string `json:"given_name"`
		Apellidos  string `json:"apellidos"`
		FamilyName string `json:"family_name"`
		rawPosition
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = PersonEntity{
		DNI:        firstNonEmpty(raw.DNI, raw.ID),
		GivenName:  firstNonEmpty(raw.Nombre, raw.GivenName),
		FamilyName: firstNonEmpty(raw.Apellidos, raw.FamilyName),
		Span:       raw.span(),
	}
	return nil
}

// LocationEntity is an address mentioned in the report, either structured
// or as the free text found in the report
type LocationEntity struct {
	StreetType string `json:"tipo_via,omitempty"`
	StreetName string `json:"nombre_via,omitempty"`
	Number     string `json:"numero,omitempty"`
	FullText   string `json:"texto_completo,omitempty"`
	Span       *Span  `json:"position,omitempty"`
}

func (l LocationEntity) Kind() EntityKind { return KindLocation }
func (l LocationEntity) Position() *Span  { return l.Span }

// NaturalKey is the street name followed by the number
func (l LocationEntity) NaturalKey() string {
	return strings.TrimSpace(strings.TrimSpace(l.StreetName) + " " + strings.TrimSpace(l.Number))
}

// Label is the text used to refer to the location in the report
func (l LocationEntity) Label() string {
	if strings.TrimSpace(l.FullText) != "" {
		return l.FullText
	}
	return l.StreetName
}

func (l LocationEntity) Facets() []Facet {
	return compactFacets(Facet{Text: l.Label(), Key: true})
}

// UnmarshalJSON accepts both the Spanish and the English field names
func (l *LocationEntity) UnmarshalJSON(data []byte) error {
	var raw struct {
		TipoVia       string     `json:"tipo_via"`
		StreetType    string     `json:"street_type"`
		NombreVia     string     `json:"nombre_via"`
		StreetName    string     `json:"street_name"`
		Numero        flexString `json:"numero"`
		Number        flexString `json:"number"`
		TextoCompleto string     `json:"texto_completo"`
		FullText      string     `json:"full_text"`
		rawPosition
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = LocationEntity{
		StreetType: firstNonEmpty(raw.TipoVia, raw.StreetType),
		StreetName: firstNonEmpty(raw.NombreVia, raw.StreetName),
		Number:     firstNonEmpty(string(raw.Numero), string(raw.Number)),
		FullText:   firstNonEmpty(raw.TextoCompleto, raw.FullText),
		Span:       raw.span(),
	}
	return nil
}

// rawPosition accepts either a nested position object or top-level offsets
type rawPosition struct {
	Position *Span `json:"position"`
	Start    *int  `json:"start"`
	End      *int  `json:"end"`
}

func (r rawPosition) span() *Span {
	if r.Position != nil {
		return r.Position
	}
	if r.Start != nil && r.End != nil {
		return &Span{Start: *r.Start, End: *r.End}
	}
	return nil
}

// flexString accepts house numbers given either as JSON strings or numbers
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(strings.TrimSpace(string(data)))
	return nil
}

func compactFacets(facets ...Facet) []Facet {
	out := facets[:0]
	for _, f := range facets {
		if text := strings.TrimSpace(f.Text); text != "" {
			out = append(out, Facet{Text: text, Key: f.Key})
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
