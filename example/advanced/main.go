package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/siherrmann/enricher"
	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
	loadSql "github.com/siherrmann/enricher/sql"
)

const sampleReport = `Es rep avís d'un robatori a la Ctra. Ribes 88. A l'arribada, la patrulla
localitza el turisme 9915-GBX, un Volkswagen Golf, i identifica la conductora Maria Antonieta.
Un segon vehicle, 0000ZZZ, abandona el lloc a gran velocitat.`

// Entities as returned by the extraction step, without offsets
const sampleEntities = `{
  "vehiculos": [
    {"matricula": "9915-GBX", "marca": "Volkswagen", "modelo": "Golf"},
    {"matricula": "0000ZZZ"}
  ],
  "personas": [
    {"nombre": "Maria", "apellidos": "Antonieta"}
  ],
  "ubicaciones": [
    {"texto_completo": "Ctra. Ribes 88"}
  ]
}`

func main() {
	ctx := context.Background()
	logger := helper.NewLogger(os.Stdout, slog.LevelDebug)

	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration
	dbConfig := &helper.DatabaseConfiguration{
		Driver:   helper.DriverPostgres,
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	// Seed the reference store
	db, err := helper.NewDatabase("seed", dbConfig, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := loadSql.Init(db); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	if err := loadSql.LoadFixtures(db); err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}
	db.Close()

	// Stricter partial acceptance than the default
	matchConfig := model.DefaultMatchConfig()
	matchConfig.AcceptThreshold = 0.88
	matchConfig.Workers = 8

	e, err := enricher.NewEnricher(dbConfig, matchConfig, logger)
	if err != nil {
		log.Fatalf("Failed to create enricher: %v", err)
	}
	defer e.Close()

	var entities model.Entities
	if err := json.Unmarshal([]byte(sampleEntities), &entities); err != nil {
		log.Fatalf("Failed to parse entities: %v", err)
	}

	// Offset indexed annotations for an external renderer
	positions := e.EnrichPositions(ctx, sampleReport, entities)
	printJSON("Positions", positions)

	// Inline annotation and structured history
	report := e.Enrich(ctx, sampleReport, entities)
	fmt.Println(report.Annotation.EnrichedText)
	fmt.Println()
	fmt.Println(report.Annotation.Explanation)
	printJSON("Explanations", report.Explanations)
}

func printJSON(title string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal %s: %v", title, err)
	}
	fmt.Printf("=== %s ===\n%s\n\n", title, data)
}
