package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/siherrmann/enricher/core/similarity"
	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
)

// VehiclesDBHandlerFunctions defines the interface for vehicle reference queries.
type VehiclesDBHandlerFunctions interface {
	SelectVehicleByPlate(ctx context.Context, normPlate string) (*model.VehicleRecord, error)
	SelectVehicleCandidates(ctx context.Context, normPlate string, minScore float64) ([]*model.VehicleRecord, error)
	CountVehicleAppearances(ctx context.Context, id int64) (int, error)
	SelectVehicleEvents(ctx context.Context, id int64, limit int) ([]string, error)
	SelectVehicleDrivers(ctx context.Context, id int64, limit int) ([]model.KnownDriver, error)
}

// VehiclesDBHandler handles vehicle related reference queries
type VehiclesDBHandler struct {
	db *helper.Database
}

const selectVehicleColumns = `SELECT vehicle_id, plate, COALESCE(brand, ''), COALESCE(model, ''), COALESCE(dni_titular, '') FROM vehicles`

// normalizedPlateSQL mirrors similarity.NormalizePlate for the stored column
const normalizedPlateSQL = `UPPER(REPLACE(REPLACE(plate, ' ', ''), '-', ''))`

// NewVehiclesDBHandler creates a new vehicles database handler.
func NewVehiclesDBHandler(db *helper.Database) (*VehiclesDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	db.Logger.Info("Initialized VehiclesDBHandler")

	return &VehiclesDBHandler{db: db}, nil
}

// SelectVehicleByPlate retrieves a vehicle by its normalized plate.
// It returns nil without error if no vehicle matches.
func (h *VehiclesDBHandler) SelectVehicleByPlate(ctx context.Context, normPlate string) (*model.VehicleRecord, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		h.db.Rebind(selectVehicleColumns+` WHERE `+normalizedPlateSQL+` = ? ORDER BY vehicle_id LIMIT 1`),
		normPlate,
	)

	vehicle := &model.VehicleRecord{}
	err := row.Scan(
		&vehicle.ID,
		&vehicle.Plate,
		&vehicle.Brand,
		&vehicle.Model,
		&vehicle.OwnerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, NewGatewayError("select vehicle by plate", helper.NewError("scan", err))
	}

	return vehicle, nil
}

// SelectVehicleCandidates retrieves the vehicles whose normalized plate length
// can still reach minScore against normPlate, ordered by id.
func (h *VehiclesDBHandler) SelectVehicleCandidates(ctx context.Context, normPlate string, minScore float64) ([]*model.VehicleRecord, error) {
	lo, hi := similarity.LengthWindow(len([]rune(normPlate)), minScore)

	rows, err := h.db.Instance.QueryContext(
		ctx,
		h.db.Rebind(selectVehicleColumns+` WHERE LENGTH(`+normalizedPlateSQL+`) BETWEEN ? AND ? ORDER BY vehicle_id`),
		lo,
		hi,
	)
	if err != nil {
		return nil, NewGatewayError("select vehicle candidates", helper.NewError("query", err))
	}
	defer rows.Close()

	var vehicles []*model.VehicleRecord
	for rows.Next() {
		vehicle := &model.VehicleRecord{}
		err := rows.Scan(
			&vehicle.ID,
			&vehicle.Plate,
			&vehicle.Brand,
			&vehicle.Model,
			&vehicle.OwnerID,
		)
		if err != nil {
			return nil, NewGatewayError("select vehicle candidates", helper.NewError("scan", err))
		}

		vehicles = append(vehicles, vehicle)
	}

	err = rows.Err()
	if err != nil {
		return nil, NewGatewayError("select vehicle candidates", helper.NewError("rows error", err))
	}

	return vehicles, nil
}

// CountVehicleAppearances counts the events a vehicle is linked to
func (h *VehiclesDBHandler) CountVehicleAppearances(ctx context.Context, id int64) (int, error) {
	return countRows(
		ctx, h.db, "count vehicle appearances",
		`SELECT COUNT(*) FROM entity_links WHERE entity_type = 'vehicle' AND entity_id = ?`,
		strconv.FormatInt(id, 10),
	)
}

// SelectVehicleEvents retrieves the most recent event ids of a vehicle
func (h *VehiclesDBHandler) SelectVehicleEvents(ctx context.Context, id int64, limit int) ([]string, error) {
	return selectStrings(
		ctx, h.db, "select vehicle events",
		`SELECT source_event_id FROM entity_links
		WHERE entity_type = 'vehicle' AND entity_id = ?
		ORDER BY created_at_ts DESC, link_id DESC
		LIMIT ?`,
		strconv.FormatInt(id, 10),
		limit,
	)
}

// SelectVehicleDrivers retrieves the persons linked to a vehicle, most
// confident first
func (h *VehiclesDBHandler) SelectVehicleDrivers(ctx context.Context, id int64, limit int) ([]model.KnownDriver, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		h.db.Rebind(`SELECT p.dni, COALESCE(p.nombre, ''), COALESCE(p.apellidos, ''), COALESCE(l.relation_type, ''), COALESCE(l.confidence, 0)
		FROM vehicle_person_links l
		JOIN persons p ON l.person_id = p.dni
		WHERE l.vehicle_id = ?
		ORDER BY l.confidence DESC, p.dni
		LIMIT ?`),
		id,
		limit,
	)
	if err != nil {
		return nil, NewGatewayError("select vehicle drivers", helper.NewError("query", err))
	}
	defer rows.Close()

	drivers := []model.KnownDriver{}
	for rows.Next() {
		driver := model.KnownDriver{}
		err := rows.Scan(
			&driver.DNI,
			&driver.GivenName,
			&driver.FamilyName,
			&driver.Relation,
			&driver.Confidence,
		)
		if err != nil {
			return nil, NewGatewayError("select vehicle drivers", helper.NewError("scan", err))
		}

		drivers = append(drivers, driver)
	}

	err = rows.Err()
	if err != nil {
		return nil, NewGatewayError("select vehicle drivers", helper.NewError("rows error", err))
	}

	return drivers, nil
}
