package matcher

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/siherrmann/enricher/core/similarity"
	"github.com/siherrmann/enricher/database"
	"github.com/siherrmann/enricher/model"
)

// fakeGateway is an in-memory reference store. failOn maps a method name to
// the key that makes it fail; panicOn does the same with a panic.
type fakeGateway struct {
	vehicles  []*model.VehicleRecord
	persons   []*model.PersonRecord
	locations []*model.LocationRecord
	aliases   map[int64][]string
	links     map[string][]string // "vehicle:1" -> event ids, newest first
	drivers   map[int64][]model.KnownDriver
	roles     map[string][]string
	related   map[string][]model.RelatedVehicle
	history   map[string][]model.HistoryEntry

	failOn  map[string]string
	panicOn map[string]string

	mu    sync.Mutex
	calls map[string]int
}

var _ database.ReferenceGatewayFunctions = (*fakeGateway)(nil)

func newFakeGateway() *fakeGateway {
	lat, lon := 41.4371, 2.2410
	return &fakeGateway{
		vehicles: []*model.VehicleRecord{
			{ID: 1, Plate: "9915GBN", Brand: "Volkswagen", Model: "Golf", OwnerID: "12345678A"},
			{ID: 2, Plate: "1234-BCD", Brand: "Seat", Model: "Ibiza", OwnerID: "43123456X"},
			{ID: 3, Plate: "5678 FGH", Brand: "Renault", Model: "Clio"},
			{ID: 4, Plate: "9915GBM", Brand: "Volkswagen", Model: "Polo", OwnerID: "98765432B"},
		},
		persons: []*model.PersonRecord{
			{DNI: "12345678A", GivenName: "Pepito", FamilyName: "de los Palotes", Address: "Carrer Major, 1"},
			{DNI: "43123456X", GivenName: "Joan", FamilyName: "Martí García", Address: "Carrer de Baix, 5"},
			{DNI: "98765432B", GivenName: "Maria", FamilyName: "Antonieta"},
		},
		locations: []*model.LocationRecord{
			{ID: 15, StreetType: "carretera", StreetName: "Ribes", Number: "88", CanonicalName: "Carretera de Ribes, 88", Latitude: &lat, Longitude: &lon},
			{ID: 16, StreetType: "carrer", StreetName: "Major", Number: "1", CanonicalName: "Carrer Major, 1"},
		},
		aliases: map[int64][]string{15: {"Ctra. Ribes 88"}, 16: {"Plaça Vella"}},
		links: map[string][]string{
			"vehicle:1":        {"DRAG-2024-001234", "DRAG-2024-000987", "DRAG-2023-004321"},
			"person:43123456X": {"DRAG-2024-001234"},
			"location:15":      {"E7", "E6", "E5", "E4", "E3", "E2", "E1"},
		},
		drivers: map[int64][]model.KnownDriver{
			1: {{DNI: "98765432B", GivenName: "Maria", FamilyName: "Antonieta", Relation: "conductor", Confidence: 0.85}},
		},
		roles:   map[string][]string{"43123456X": {"denunciant", "testimoni"}},
		related: map[string][]model.RelatedVehicle{"43123456X": {{ID: 2, Plate: "1234-BCD", Brand: "Seat", Model: "Ibiza", Relation: "titular"}}},
		history: map[string][]model.HistoryEntry{},
		failOn:  map[string]string{},
		panicOn: map[string]string{},
		calls:   map[string]int{},
	}
}

func (g *fakeGateway) check(method string, key string) error {
	g.mu.Lock()
	g.calls[method]++
	g.mu.Unlock()

	if k, ok := g.panicOn[method]; ok && (k == "" || k == key) {
		panic("boom in " + method)
	}
	if k, ok := g.failOn[method]; ok && (k == "" || k == key) {
		return database.NewGatewayError(method, errors.New("connection lost"))
	}
	return nil
}

func (g *fakeGateway) callCount(method string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[method]
}

func limit[T any](values []T, n int) []T {
	if len(values) > n {
		return values[:n]
	}
	return values
}

func (g *fakeGateway) SelectVehicleByPlate(ctx context.Context, normPlate string) (*model.VehicleRecord, error) {
	if err := g.check("SelectVehicleByPlate", normPlate); err != nil {
		return nil, err
	}
	for _, v := range g.vehicles {
		if similarity.NormalizePlate(v.Plate) == normPlate {
			return v, nil
		}
	}
	return nil, nil
}

func (g *fakeGateway) SelectVehicleCandidates(ctx context.Context, normPlate string, minScore float64) ([]*model.VehicleRecord, error) {
	if err := g.check("SelectVehicleCandidates", normPlate); err != nil {
		return nil, err
	}
	lo, hi := similarity.LengthWindow(len([]rune(normPlate)), minScore)
	var out []*model.VehicleRecord
	for _, v := range g.vehicles {
		if n := len([]rune(similarity.NormalizePlate(v.Plate))); n >= lo && n <= hi {
			out = append(out, v)
		}
	}
	return out, nil
}

func (g *fakeGateway) CountVehicleAppearances(ctx context.Context, id int64) (int, error) {
	key := strconv.FormatInt(id, 10)
	if err := g.check("CountVehicleAppearances", key); err != nil {
		return 0, err
	}
	return len(g.links["vehicle:"+key]), nil
}

func (g *fakeGateway) SelectVehicleEvents(ctx context.Context, id int64, n int) ([]string, error) {
	key := strconv.FormatInt(id, 10)
	if err := g.check("SelectVehicleEvents", key); err != nil {
		return nil, err
	}
	return limit(g.links["vehicle:"+key], n), nil
}

func (g *fakeGateway) SelectVehicleDrivers(ctx context.Context, id int64, n int) ([]model.KnownDriver, error) {
	if err := g.check("SelectVehicleDrivers", strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	return limit(g.drivers[id], n), nil
}

func (g *fakeGateway) SelectPersonByID(ctx context.Context, normID string) (*model.PersonRecord, error) {
	if err := g.check("SelectPersonByID", normID); err != nil {
		return nil, err
	}
	for _, p := range g.persons {
		if similarity.NormalizeID(p.DNI) == normID {
			return p, nil
		}
	}
	return nil, nil
}

func (g *fakeGateway) SelectPersonCandidates(ctx context.Context) ([]*model.PersonRecord, error) {
	if err := g.check("SelectPersonCandidates", ""); err != nil {
		return nil, err
	}
	return g.persons, nil
}

func (g *fakeGateway) CountPersonAppearances(ctx context.Context, dni string) (int, error) {
	if err := g.check("CountPersonAppearances", dni); err != nil {
		return 0, err
	}
	return len(g.links["person:"+dni]), nil
}

func (g *fakeGateway) SelectPersonRoles(ctx context.Context, dni string, n int) ([]string, error) {
	if err := g.check("SelectPersonRoles", dni); err != nil {
		return nil, err
	}
	return limit(g.roles[dni], n), nil
}

func (g *fakeGateway) SelectPersonVehicles(ctx context.Context, dni string, n int) ([]model.RelatedVehicle, error) {
	if err := g.check("SelectPersonVehicles", dni); err != nil {
		return nil, err
	}
	return limit(g.related[dni], n), nil
}

func (g *fakeGateway) SelectLocationByAddress(ctx context.Context, streetType, streetName, number string) (*model.LocationRecord, error) {
	if err := g.check("SelectLocationByAddress", streetName); err != nil {
		return nil, err
	}
	for _, l := range g.locations {
		if streetType != "" && !strings.EqualFold(l.StreetType, streetType) {
			continue
		}
		if !strings.EqualFold(l.StreetName, streetName) {
			continue
		}
		if number != "" && l.Number != number {
			continue
		}
		return l, nil
	}
	return nil, nil
}

func (g *fakeGateway) SelectLocationByAlias(ctx context.Context, name string) (*model.LocationRecord, error) {
	if err := g.check("SelectLocationByAlias", name); err != nil {
		return nil, err
	}
	for _, l := range g.locations {
		for _, alias := range g.aliases[l.ID] {
			if strings.Contains(strings.ToUpper(alias), strings.ToUpper(name)) {
				return l, nil
			}
		}
	}
	return nil, nil
}

func (g *fakeGateway) SelectLocationCandidates(ctx context.Context) ([]*model.LocationRecord, error) {
	if err := g.check("SelectLocationCandidates", ""); err != nil {
		return nil, err
	}
	return g.locations, nil
}

func (g *fakeGateway) CountLocationAppearances(ctx context.Context, id int64) (int, error) {
	key := strconv.FormatInt(id, 10)
	if err := g.check("CountLocationAppearances", key); err != nil {
		return 0, err
	}
	return len(g.links["location:"+key]), nil
}

func (g *fakeGateway) SelectLocationCategories(ctx context.Context, id int64, n int) ([]string, error) {
	if err := g.check("SelectLocationCategories", strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	if id == 15 {
		return limit([]string{"robatoris", "furts", "altercats"}, n), nil
	}
	return []string{}, nil
}

func (g *fakeGateway) SelectLocationAliases(ctx context.Context, id int64) ([]string, error) {
	if err := g.check("SelectLocationAliases", strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	return g.aliases[id], nil
}

func (g *fakeGateway) SelectHistory(ctx context.Context, kind model.EntityKind, key string) ([]model.HistoryEntry, error) {
	if err := g.check("SelectHistory", key); err != nil {
		return nil, err
	}
	return g.history[string(kind)+":"+key], nil
}
