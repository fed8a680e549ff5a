package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
)

// LocationsDBHandlerFunctions defines the interface for location reference queries.
type LocationsDBHandlerFunctions interface {
	SelectLocationByAddress(ctx context.Context, streetType, streetName, number string) (*model.LocationRecord, error)
	SelectLocationByAlias(ctx context.Context, name string) (*model.LocationRecord, error)
	SelectLocationCandidates(ctx context.Context) ([]*model.LocationRecord, error)
	CountLocationAppearances(ctx context.Context, id int64) (int, error)
	SelectLocationCategories(ctx context.Context, id int64, limit int) ([]string, error)
	SelectLocationAliases(ctx context.Context, id int64) ([]string, error)
}

// LocationsDBHandler handles location related reference queries
type LocationsDBHandler struct {
	db *helper.Database
}

const selectLocationColumns = `SELECT l.location_id, COALESCE(l.street_type, ''), COALESCE(l.street_name, ''), COALESCE(l.number, ''),
	COALESCE(l.canonical_name, ''), COALESCE(l.city, ''), COALESCE(l.postal_code, ''), l.latitude, l.longitude
	FROM locations l`

// NewLocationsDBHandler creates a new locations database handler.
func NewLocationsDBHandler(db *helper.Database) (*LocationsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	db.Logger.Info("Initialized LocationsDBHandler")

	return &LocationsDBHandler{db: db}, nil
}

func scanLocation(scanner interface{ Scan(...interface{}) error }) (*model.LocationRecord, error) {
	location := &model.LocationRecord{}
	var latitude, longitude sql.NullFloat64
	err := scanner.Scan(
		&location.ID,
		&location.StreetType,
		&location.StreetName,
		&location.Number,
		&location.CanonicalName,
		&location.City,
		&location.PostalCode,
		&latitude,
		&longitude,
	)
	if err != nil {
		return nil, err
	}

	if latitude.Valid {
		location.Latitude = &latitude.Float64
	}
	if longitude.Valid {
		location.Longitude = &longitude.Float64
	}
	return location, nil
}

// SelectLocationByAddress retrieves a location by its structured address.
// Street type and number are only compared when given. It returns nil
// without error if no location matches.
func (h *LocationsDBHandler) SelectLocationByAddress(ctx context.Context, streetType, streetName, number string) (*model.LocationRecord, error) {
	var conditions []string
	var args []interface{}
	if streetType = strings.TrimSpace(streetType); streetType != "" {
		conditions = append(conditions, `UPPER(l.street_type) = UPPER(?)`)
		args = append(args, streetType)
	}
	if streetName = strings.TrimSpace(streetName); streetName != "" {
		conditions = append(conditions, `UPPER(l.street_name) = UPPER(?)`)
		args = append(args, streetName)
	}
	if number = strings.TrimSpace(number); number != "" {
		conditions = append(conditions, `l.number = ?`)
		args = append(args, number)
	}
	if len(conditions) == 0 {
		return nil, nil
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		h.db.Rebind(selectLocationColumns+` WHERE `+strings.Join(conditions, " AND ")+` ORDER BY l.location_id LIMIT 1`),
		args...,
	)

	location, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, NewGatewayError("select location by address", helper.NewError("scan", err))
	}

	return location, nil
}

// SelectLocationByAlias retrieves the first location with an alias containing name
func (h *LocationsDBHandler) SelectLocationByAlias(ctx context.Context, name string) (*model.LocationRecord, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}

	row := h.db.Instance.QueryRowContext(
		ctx,
		h.db.Rebind(selectLocationColumns+`
		JOIN location_aliases a ON l.location_id = a.location_id
		WHERE UPPER(a.alias_name) LIKE UPPER(?)
		ORDER BY a.alias_id, l.location_id
		LIMIT 1`),
		"%"+name+"%",
	)

	location, err := scanLocation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, NewGatewayError("select location by alias", helper.NewError("scan", err))
	}

	return location, nil
}

// SelectLocationCandidates retrieves every location, ordered by id
func (h *LocationsDBHandler) SelectLocationCandidates(ctx context.Context) ([]*model.LocationRecord, error) {
	rows, err := h.db.Instance.QueryContext(ctx, selectLocationColumns+` ORDER BY l.location_id`)
	if err != nil {
		return nil, NewGatewayError("select location candidates", helper.NewError("query", err))
	}
	defer rows.Close()

	var locations []*model.LocationRecord
	for rows.Next() {
		location, err := scanLocation(rows)
		if err != nil {
			return nil, NewGatewayError("select location candidates", helper.NewError("scan", err))
		}

		locations = append(locations, location)
	}

	err = rows.Err()
	if err != nil {
		return nil, NewGatewayError("select location candidates", helper.NewError("rows error", err))
	}

	return locations, nil
}

// CountLocationAppearances counts the events a location is linked to
func (h *LocationsDBHandler) CountLocationAppearances(ctx context.Context, id int64) (int, error) {
	return countRows(
		ctx, h.db, "count location appearances",
		`SELECT COUNT(*) FROM entity_links WHERE entity_type = 'location' AND entity_id = ?`,
		strconv.FormatInt(id, 10),
	)
}

// SelectLocationCategories retrieves the distinct event categories recorded
// at a location, most recent first
func (h *LocationsDBHandler) SelectLocationCategories(ctx context.Context, id int64, limit int) ([]string, error) {
	return selectStrings(
		ctx, h.db, "select location categories",
		`SELECT e.capitulo
		FROM events_drag e
		JOIN entity_links el ON e.event_id = el.source_event_id
		WHERE el.entity_type = 'location' AND el.entity_id = ? AND e.capitulo IS NOT NULL
		GROUP BY e.capitulo
		ORDER BY MAX(e.fecha_evento) DESC, e.capitulo
		LIMIT ?`,
		strconv.FormatInt(id, 10),
		limit,
	)
}

// SelectLocationAliases retrieves all alternative names of a location
func (h *LocationsDBHandler) SelectLocationAliases(ctx context.Context, id int64) ([]string, error) {
	return selectStrings(
		ctx, h.db, "select location aliases",
		`SELECT alias_name FROM location_aliases WHERE location_id = ? ORDER BY alias_id`,
		id,
	)
}
