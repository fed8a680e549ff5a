package model

import "strings"

// VehicleRecord is a stored vehicle row
type VehicleRecord struct {
	ID      int64  `json:"vehicle_id"`
	Plate   string `json:"plate"`
	Brand   string `json:"brand,omitempty"`
	Model   string `json:"model,omitempty"`
	OwnerID string `json:"dni_titular,omitempty"`
}

// PersonRecord is a stored person row keyed by the national ID
type PersonRecord struct {
	DNI        string `json:"dni"`
	GivenName  string `json:"nombre,omitempty"`
	FamilyName string `json:"apellidos,omitempty"`
	Address    string `json:"direccion,omitempty"`
	Phone      string `json:"telefono,omitempty"`
	BirthDate  string `json:"fecha_nacimiento,omitempty"`
	Sex        string `json:"sexo,omitempty"`
	Notes      string `json:"observaciones,omitempty"`
}

// FullName joins given and family name
func (p PersonRecord) FullName() string {
	return strings.TrimSpace(p.GivenName + " " + p.FamilyName)
}

// LocationRecord is a stored location row
type LocationRecord struct {
	ID            int64    `json:"location_id"`
	StreetType    string   `json:"street_type,omitempty"`
	StreetName    string   `json:"street_name,omitempty"`
	Number        string   `json:"number,omitempty"`
	CanonicalName string   `json:"canonical_name,omitempty"`
	City          string   `json:"city,omitempty"`
	PostalCode    string   `json:"postal_code,omitempty"`
	Latitude      *float64 `json:"latitude,omitempty"`
	Longitude     *float64 `json:"longitude,omitempty"`
}

// HasCoordinates reports whether both coordinates are known
func (l LocationRecord) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// KnownDriver is a person linked to a vehicle
type KnownDriver struct {
	DNI        string  `json:"dni"`
	GivenName  string  `json:"nombre,omitempty"`
	FamilyName string  `json:"apellidos,omitempty"`
	Relation   string  `json:"relation_type,omitempty"`
	Confidence float64 `json:"confidence"`
}

// FullName joins given and family name
func (d KnownDriver) FullName() string {
	return strings.TrimSpace(d.GivenName + " " + d.FamilyName)
}

// RelatedVehicle is a vehicle linked to a person
type RelatedVehicle struct {
	ID       int64  `json:"vehicle_id"`
	Plate    string `json:"plate"`
	Brand    string `json:"brand,omitempty"`
	Model    string `json:"model,omitempty"`
	Relation string `json:"relation_type,omitempty"`
}

// HistoryEntry is one prior event an entity appeared in
type HistoryEntry struct {
	EventID  string `json:"event_id"`
	Date     string `json:"fecha,omitempty"`
	Category string `json:"categoria,omitempty"`
}
