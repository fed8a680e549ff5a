package sql

import (
	_ "embed"
	"errors"
	"fmt"

	"github.com/siherrmann/enricher/helper"
)

//go:embed schema.sql
var schemaSQL string

//go:embed fixtures.sql
var fixturesSQL string

// ErrMissingTables is returned when the reference store lacks required tables
var ErrMissingTables = errors.New("missing required tables")

// RequiredTables must exist for the matcher to run at all
var RequiredTables = []string{
	"vehicles",
	"persons",
	"locations",
}

// HistoryTables back the enrichment and history queries
var HistoryTables = []string{
	"location_aliases",
	"entity_links",
	"vehicle_person_links",
	"person_roles",
	"events_drag",
}

// Init creates the reference schema. The matcher never writes; this is only
// used to prepare fixtures and examples.
func Init(db *helper.Database) error {
	_, err := db.Instance.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("error executing schema SQL: %w", err)
	}

	db.Logger.Info("Reference schema initialized")
	return nil
}

// LoadFixtures inserts the sample reference data
func LoadFixtures(db *helper.Database) error {
	_, err := db.Instance.Exec(fixturesSQL)
	if err != nil {
		return fmt.Errorf("error executing fixtures SQL: %w", err)
	}

	db.Logger.Info("Reference fixtures loaded")
	return nil
}

// CheckTables verifies that all given tables exist and returns the missing ones
func CheckTables(db *helper.Database, tables []string) ([]string, error) {
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
	if db.Driver == helper.DriverPostgres {
		query = `SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = current_schema() AND table_name = ?`
	}
	query = db.Rebind(query)

	var missing []string
	for _, table := range tables {
		var count int
		err := db.Instance.QueryRow(query, table).Scan(&count)
		if err != nil {
			return nil, fmt.Errorf("error checking existence of table %s: %w", table, err)
		}
		if count == 0 {
			missing = append(missing, table)
		}
	}
	return missing, nil
}

// Validate fails with ErrMissingTables if a required table is absent and
// logs a warning for absent history tables.
func Validate(db *helper.Database) error {
	missing, err := CheckTables(db, RequiredTables)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingTables, missing)
	}

	missingHistory, err := CheckTables(db, HistoryTables)
	if err != nil {
		return err
	}
	if len(missingHistory) > 0 {
		db.Logger.Warn("Reference store without history tables, enrichment will be empty", "tables", missingHistory)
	}

	db.Logger.Info("Reference schema validated", "tables", len(RequiredTables)+len(HistoryTables)-len(missingHistory))
	return nil
}
