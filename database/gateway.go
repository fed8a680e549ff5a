package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/siherrmann/enricher/helper"
	loadSql "github.com/siherrmann/enricher/sql"
)

// GatewayError is returned for every failed reference store query
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// NewGatewayError wraps err, returning nil for a nil err
func NewGatewayError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &GatewayError{Op: op, Err: err}
}

// IsGatewayError reports whether err is or wraps a GatewayError
func IsGatewayError(err error) bool {
	var gatewayErr *GatewayError
	return errors.As(err, &gatewayErr)
}

// ReferenceGatewayFunctions is the complete read-only query surface of the
// reference store.
type ReferenceGatewayFunctions interface {
	VehiclesDBHandlerFunctions
	PersonsDBHandlerFunctions
	LocationsDBHandlerFunctions
	HistoryDBHandlerFunctions
}

// ReferenceGateway bundles the handlers of all reference tables
type ReferenceGateway struct {
	*VehiclesDBHandler
	*PersonsDBHandler
	*LocationsDBHandler
	*HistoryDBHandler
}

// NewReferenceGateway verifies the schema and creates all handlers.
// A missing required table is a fatal GatewayError.
func NewReferenceGateway(db *helper.Database) (*ReferenceGateway, error) {
	if db == nil {
		return nil, helper.NewError("database connection validation", fmt.Errorf("database connection is nil"))
	}

	err := loadSql.Validate(db)
	if err != nil {
		return nil, NewGatewayError("validate schema", err)
	}

	vehicles, err := NewVehiclesDBHandler(db)
	if err != nil {
		return nil, err
	}
	persons, err := NewPersonsDBHandler(db)
	if err != nil {
		return nil, err
	}
	locations, err := NewLocationsDBHandler(db)
	if err != nil {
		return nil, err
	}
	history, err := NewHistoryDBHandler(db)
	if err != nil {
		return nil, err
	}

	return &ReferenceGateway{
		VehiclesDBHandler:  vehicles,
		PersonsDBHandler:   persons,
		LocationsDBHandler: locations,
		HistoryDBHandler:   history,
	}, nil
}

func selectStrings(ctx context.Context, db *helper.Database, op string, query string, args ...interface{}) ([]string, error) {
	rows, err := db.Instance.QueryContext(ctx, db.Rebind(query), args...)
	if err != nil {
		return nil, NewGatewayError(op, helper.NewError("query", err))
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var value sql.NullString
		err := rows.Scan(&value)
		if err != nil {
			return nil, NewGatewayError(op, helper.NewError("scan", err))
		}
		if value.Valid && value.String != "" {
			values = append(values, value.String)
		}
	}

	err = rows.Err()
	if err != nil {
		return nil, NewGatewayError(op, helper.NewError("rows error", err))
	}

	return values, nil
}

func countRows(ctx context.Context, db *helper.Database, op string, query string, args ...interface{}) (int, error) {
	var count int
	err := db.Instance.QueryRowContext(ctx, db.Rebind(query), args...).Scan(&count)
	if err != nil {
		return 0, NewGatewayError(op, helper.NewError("scan", err))
	}
	return count, nil
}
