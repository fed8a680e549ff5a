package database

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/siherrmann/enricher/helper"
	loadSql "github.com/siherrmann/enricher/sql"
	"github.com/stretchr/testify/require"
)

var dbCounter atomic.Int64

// initDB opens a fresh in-memory reference store with the fixture data
func initDB(t *testing.T) *helper.Database {
	name := fmt.Sprintf("database_test_%d", dbCounter.Add(1))
	db := helper.NewTestDatabase(helper.NewMemoryDatabaseConfiguration(name))
	t.Cleanup(func() { db.Close() })

	err := loadSql.Init(db)
	require.NoError(t, err)
	err = loadSql.LoadFixtures(db)
	require.NoError(t, err)

	return db
}

func initGateway(t *testing.T) *ReferenceGateway {
	gateway, err := NewReferenceGateway(initDB(t))
	require.NoError(t, err, "Expected NewReferenceGateway to not return an error")
	return gateway
}
