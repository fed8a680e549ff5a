package annotator

import (
	"fmt"
	"strings"

	"github.com/siherrmann/enricher/model"
)

const (
	explanationHeader = "=== INFORMACIÓ DE BASE DE DADES ===\n"
	noMatchesSentence = "No s'han trobat coincidències amb la base de dades.\n"
)

// Maximum number of list items rendered per explanation line
const (
	shownDrivers  = 3
	shownEvents   = 5
	shownRoles    = 5
	shownVehicles = 3
	shownAliases  = 3
)

// Explain renders the Catalan explanation block with one section per
// matched vehicle, person and location, in input order.
func Explain(result *model.MatchResult) string {
	sections := []string{explanationHeader}

	if result != nil {
		for _, match := range result.Vehicles {
			if match.Type != model.MatchNone {
				sections = append(sections, explainVehicle(match))
			}
		}
		for _, match := range result.Persons {
			if match.Type != model.MatchNone {
				sections = append(sections, explainPerson(match))
			}
		}
		for _, match := range result.Locations {
			if match.Type != model.MatchNone {
				sections = append(sections, explainLocation(match))
			}
		}
	}

	if len(sections) == 1 {
		sections = append(sections, noMatchesSentence)
	}

	return strings.Join(sections, "\n")
}

func matchLine(matchType model.MatchType, confidence float64, exactLine string) string {
	switch matchType {
	case model.MatchExact:
		return exactLine
	case model.MatchPartial:
		return fmt.Sprintf("• Coincidència PARCIAL (similitud %.0f%%)", confidence*100)
	}
	return ""
}

func errorLine(reason string) string {
	return "• Error consultant la base de dades: " + reason
}

func explainVehicle(match model.VehicleMatch) string {
	plate := strings.TrimSpace(match.Entity.Plate)
	if plate == "" {
		plate = "DESCONEGUDA"
	}

	lines := []string{fmt.Sprintf("VEHICLE MATRÍCULA %s:", plate)}
	if match.Type == model.MatchError {
		lines = append(lines, errorLine(match.Error), "")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, matchLine(match.Type, match.Confidence, "• Coincidència EXACTA amb registre de base de dades"))

	if r := match.Record; r != nil && (r.Brand != "" || r.Model != "") {
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("• Turisme %s %s", r.Brand, r.Model)))
	}

	e := match.Enrichment
	if e.Owner != nil {
		lines = append(lines, fmt.Sprintf("• Titular: %s (DNI %s)", e.Owner.FullName(), e.Owner.DNI))
	}

	if len(e.KnownDrivers) > 0 {
		lines = append(lines, "• Conductors habituals coneguts:")
		for _, d := range head(e.KnownDrivers, shownDrivers) {
			lines = append(lines, fmt.Sprintf("  - %s (DNI %s, confiança %.0f%%)", d.FullName(), d.DNI, d.Confidence*100))
		}
	}

	if e.PriorAppearances > 0 {
		lines = append(lines, fmt.Sprintf("• Aquest vehicle ha estat identificat en %d actuació(ns) prèvia(es)", e.PriorAppearances))
		if len(e.PriorEvents) > 0 {
			lines = append(lines, "• Esdeveniments relacionats: "+strings.Join(head(e.PriorEvents, shownEvents), ", "))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func explainPerson(match model.PersonMatch) string {
	name := match.Entity.FullName()
	dni := strings.TrimSpace(match.Entity.DNI)

	var lines []string
	if dni != "" {
		lines = append(lines, fmt.Sprintf("PERSONA %s (%s):", name, dni))
	} else {
		lines = append(lines, fmt.Sprintf("PERSONA %s:", name))
	}
	if match.Type == model.MatchError {
		lines = append(lines, errorLine(match.Error), "")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, matchLine(match.Type, match.Confidence, "• Coincidència EXACTA amb registre de base de dades"))
	if match.Type == model.MatchPartial && match.Record != nil {
		if stored := match.Record.FullName(); !strings.EqualFold(stored, name) {
			lines = append(lines, "• Nom a la base de dades: "+stored)
		}
	}

	e := match.Enrichment
	if e.PriorAppearances > 0 {
		lines = append(lines, fmt.Sprintf("• Consta %d aparició(ns) prèvia(es)", e.PriorAppearances))
	} else {
		lines = append(lines, "• Primera aparició en el sistema")
	}

	if len(e.PriorRoles) > 0 {
		lines = append(lines, "• Rols previs: "+strings.Join(head(e.PriorRoles, shownRoles), ", "))
	}

	if match.Record != nil && match.Record.Address != "" {
		lines = append(lines, "• Domicili conegut: "+match.Record.Address)
	}

	if len(e.RelatedVehicles) > 0 {
		lines = append(lines, "• Vehicles relacionats:")
		for _, v := range head(e.RelatedVehicles, shownVehicles) {
			lines = append(lines, fmt.Sprintf("  - %s (%s %s) - %s", v.Plate, v.Brand, v.Model, v.Relation))
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func explainLocation(match model.LocationMatch) string {
	canonical := match.Entity.NaturalKey()
	if match.Record != nil && strings.TrimSpace(match.Record.CanonicalName) != "" {
		canonical = strings.TrimSpace(match.Record.CanonicalName)
	} else if canonical == "" {
		canonical = strings.TrimSpace(match.Entity.FullText)
	}

	lines := []string{fmt.Sprintf("UBICACIÓ %s:", canonical)}
	if match.Type == model.MatchError {
		lines = append(lines, errorLine(match.Error), "")
		return strings.Join(lines, "\n")
	}

	lines = append(lines, matchLine(match.Type, match.Confidence, "• Coincidència EXACTA"))

	if r := match.Record; r != nil && r.HasCoordinates() {
		lines = append(lines, fmt.Sprintf("• Coordenades: %.4f, %.4f", *r.Latitude, *r.Longitude))
	}

	e := match.Enrichment
	if e.PriorAppearances > 0 {
		lines = append(lines, fmt.Sprintf("• Ubicació recurrent: %d aparició(ns) prèvia(es)", e.PriorAppearances))
		if len(e.RecurringCategories) > 0 {
			lines = append(lines, "• Tipologia habitual: "+strings.Join(head(e.RecurringCategories, shownEvents), ", "))
		}
		lines = append(lines, "• CONSIDERACIÓ: Zona d'actuacions freqüents")
	}

	if len(e.Aliases) > 0 {
		lines = append(lines, "• Noms alternatius: "+strings.Join(head(e.Aliases, shownAliases), ", "))
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
