package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/siherrmann/enricher"
	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
	loadSql "github.com/siherrmann/enricher/sql"
)

const sampleReport = `A les 22:15 una patrulla observa el vehicle 9915GBN, un Volkswagen Golf de color gris,
estacionat a la Carretera de Ribes, 88. El conductor s'identifica com Juan Martí Garcia
amb DNI 43123456X i manifesta que el vehicle és propietat d'un familiar.`

func main() {
	ctx := context.Background()
	logger := helper.NewLogger(os.Stdout, slog.LevelInfo)

	// In-memory reference store with the sample data
	db, err := helper.NewDatabase("basic_example", helper.NewMemoryDatabaseConfiguration("basic_example"), logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := loadSql.Init(db); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	if err := loadSql.LoadFixtures(db); err != nil {
		log.Fatalf("Failed to load fixtures: %v", err)
	}

	e, err := enricher.NewEnricherFromDatabase(db, model.DefaultMatchConfig(), logger)
	if err != nil {
		log.Fatalf("Failed to create enricher: %v", err)
	}
	defer e.Close()

	entities := model.Entities{
		Vehicles: []model.VehicleEntity{
			{Plate: "9915GBN", Brand: "Volkswagen", Model: "Golf"},
		},
		Persons: []model.PersonEntity{
			{DNI: "43123456X", GivenName: "Juan", FamilyName: "Martí Garcia"},
		},
		Locations: []model.LocationEntity{
			{StreetType: "carretera", StreetName: "Ribes", Number: "88", FullText: "Carretera de Ribes, 88"},
		},
	}

	report := e.Enrich(ctx, sampleReport, entities)

	fmt.Printf("Report %s\n\n", report.RID)
	fmt.Println(report.Annotation.EnrichedText)
	fmt.Println()
	fmt.Println(report.Annotation.Explanation)

	fmt.Printf("Exact: %d, partial: %d, none: %d\n",
		report.Annotation.Metadata.Exact,
		report.Annotation.Metadata.Partial,
		report.Annotation.Metadata.None,
	)
	for _, warning := range report.Annotation.Metadata.Warnings {
		fmt.Printf("WARNING: %s\n", warning)
	}

	fmt.Println("\nHistory:")
	for _, explanation := range report.Explanations {
		fmt.Printf("  %s %s: %d events, risk %s\n",
			explanation.Type,
			explanation.Entity,
			explanation.Indicators.TotalEvents,
			explanation.Indicators.Risk,
		)
	}
}
