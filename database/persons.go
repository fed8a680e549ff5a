package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
)

// PersonsDBHandlerFunctions defines the interface for person reference queries.
type PersonsDBHandlerFunctions interface {
	SelectPersonByID(ctx context.Context, normID string) (*model.PersonRecord, error)
	SelectPersonCandidates(ctx context.Context) ([]*model.PersonRecord, error)
	CountPersonAppearances(ctx context.Context, dni string) (int, error)
	SelectPersonRoles(ctx context.Context, dni string, limit int) ([]string, error)
	SelectPersonVehicles(ctx context.Context, dni string, limit int) ([]model.RelatedVehicle, error)
}

// PersonsDBHandler handles person related reference queries
type PersonsDBHandler struct {
	db *helper.Database
}

const selectPersonColumns = `SELECT dni, COALESCE(nombre, ''), COALESCE(apellidos, ''), COALESCE(direccion, ''),
	COALESCE(telefono, ''), COALESCE(fecha_nacimiento, ''), COALESCE(sexo, ''), COALESCE(observaciones, '')
	FROM persons`

// NewPersonsDBHandler creates a new persons database handler.
func NewPersonsDBHandler(db *helper.Database) (*PersonsDBHandler, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	db.Logger.Info("Initialized PersonsDBHandler")

	return &PersonsDBHandler{db: db}, nil
}

func scanPerson(scanner interface{ Scan(...interface{}) error }) (*model.PersonRecord, error) {
	person := &model.PersonRecord{}
	err := scanner.Scan(
		&person.DNI,
		&person.GivenName,
		&person.FamilyName,
		&person.Address,
		&person.Phone,
		&person.BirthDate,
		&person.Sex,
		&person.Notes,
	)
	return person, err
}

// SelectPersonByID retrieves a person by normalized national ID.
// It returns nil without error if no person matches.
func (h *PersonsDBHandler) SelectPersonByID(ctx context.Context, normID string) (*model.PersonRecord, error) {
	row := h.db.Instance.QueryRowContext(
		ctx,
		h.db.Rebind(selectPersonColumns+` WHERE UPPER(REPLACE(dni, ' ', '')) = ? ORDER BY dni LIMIT 1`),
		normID,
	)

	person, err := scanPerson(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, NewGatewayError("select person by id", helper.NewError("scan", err))
	}

	return person, nil
}

// SelectPersonCandidates retrieves every person with a name, ordered by DNI
func (h *PersonsDBHandler) SelectPersonCandidates(ctx context.Context) ([]*model.PersonRecord, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		selectPersonColumns+` WHERE nombre IS NOT NULL OR apellidos IS NOT NULL ORDER BY dni`,
	)
	if err != nil {
		return nil, NewGatewayError("select person candidates", helper.NewError("query", err))
	}
	defer rows.Close()

	var persons []*model.PersonRecord
	for rows.Next() {
		person, err := scanPerson(rows)
		if err != nil {
			return nil, NewGatewayError("select person candidates", helper.NewError("scan", err))
		}

		persons = append(persons, person)
	}

	err = rows.Err()
	if err != nil {
		return nil, NewGatewayError("select person candidates", helper.NewError("rows error", err))
	}

	return persons, nil
}

// CountPersonAppearances counts the events a person is linked to
func (h *PersonsDBHandler) CountPersonAppearances(ctx context.Context, dni string) (int, error) {
	return countRows(
		ctx, h.db, "count person appearances",
		`SELECT COUNT(*) FROM entity_links WHERE entity_type = 'person' AND entity_id = ?`,
		dni,
	)
}

// SelectPersonRoles retrieves the distinct roles of a person, most recent first
func (h *PersonsDBHandler) SelectPersonRoles(ctx context.Context, dni string, limit int) ([]string, error) {
	return selectStrings(
		ctx, h.db, "select person roles",
		`SELECT role FROM person_roles
		WHERE dni = ?
		GROUP BY role
		ORDER BY MAX(created_at) DESC, role
		LIMIT ?`,
		dni,
		limit,
	)
}

// SelectPersonVehicles retrieves the vehicles linked to a person
func (h *PersonsDBHandler) SelectPersonVehicles(ctx context.Context, dni string, limit int) ([]model.RelatedVehicle, error) {
	rows, err := h.db.Instance.QueryContext(
		ctx,
		h.db.Rebind(`SELECT v.vehicle_id, v.plate, COALESCE(v.brand, ''), COALESCE(v.model, ''), COALESCE(l.relation_type, '')
		FROM vehicle_person_links l
		JOIN vehicles v ON l.vehicle_id = v.vehicle_id
		WHERE l.person_id = ?
		ORDER BY v.vehicle_id
		LIMIT ?`),
		dni,
		limit,
	)
	if err != nil {
		return nil, NewGatewayError("select person vehicles", helper.NewError("query", err))
	}
	defer rows.Close()

	vehicles := []model.RelatedVehicle{}
	for rows.Next() {
		vehicle := model.RelatedVehicle{}
		err := rows.Scan(
			&vehicle.ID,
			&vehicle.Plate,
			&vehicle.Brand,
			&vehicle.Model,
			&vehicle.Relation,
		)
		if err != nil {
			return nil, NewGatewayError("select person vehicles", helper.NewError("scan", err))
		}

		vehicles = append(vehicles, vehicle)
	}

	err = rows.Err()
	if err != nil {
		return nil, NewGatewayError("select person vehicles", helper.NewError("rows error", err))
	}

	return vehicles, nil
}
