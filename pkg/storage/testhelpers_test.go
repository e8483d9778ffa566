package storage

import (
	"testing"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
)

const (
	biosphereDB = "ecoinvent-3.11-biosphere"
	ecoinventDB = "ecoinvent-3.11-cutoff"
	bikeDB      = "bike_example"
)

func record(db, code, name, unit string, categories ...string) *inventory.Process {
	return &inventory.Process{Flow: inventory.Flow{
		Key:        inventory.Key{Database: db, Code: code},
		Name:       name,
		Unit:       unit,
		Categories: categories,
		Type:       inventory.NodeEmission,
	}}
}

func biosphereRecords() []*inventory.Process {
	return []*inventory.Process{
		record(biosphereDB, "co2", "Carbon dioxide, fossil", "kilogram", "air"),
		record(biosphereDB, "co2-urban", "Carbon dioxide, fossil", "kilogram", "air", "urban air close to ground"),
		record(biosphereDB, "ch4", "Methane, fossil", "kilogram", "air"),
		record(biosphereDB, "water", "Water, river", "cubic meter", "natural resource", "in water"),
	}
}

func marketRecords() []*inventory.Process {
	var out []*inventory.Process
	for _, loc := range []string{"NO", "SE", "DE"} {
		out = append(out, &inventory.Process{Flow: inventory.Flow{
			Key:              inventory.Key{Database: ecoinventDB, Code: "market-elec-mv-" + loc},
			Name:             "market for electricity, medium voltage",
			ReferenceProduct: "electricity, medium voltage",
			Unit:             "kilowatt hour",
			Location:         loc,
			Type:             inventory.NodeProcess,
		}})
	}
	return out
}

// bikeRecords is a linked bike import referencing the biosphere database
func bikeRecords() []*inventory.Process {
	bike := &inventory.Process{Flow: inventory.Flow{Key: inventory.Key{Database: bikeDB, Code: "bike"}, Name: "Bike", Unit: "unit", Type: inventory.NodeProduct}}
	production := &inventory.Process{
		Flow: inventory.Flow{Key: inventory.Key{Database: bikeDB, Code: "bike-production"}, Name: "Bike production", Unit: "unit", Type: inventory.NodeProcess},
		Exchanges: []*inventory.Exchange{
			{Type: inventory.TypeProduction, Name: "Bike", Unit: "unit", Amount: 1, Input: &inventory.Key{Database: bikeDB, Code: "bike"}},
			{Type: inventory.TypeBiosphere, Name: "Carbon dioxide, fossil", Unit: "kilogram", Amount: 2, Categories: []string{"air"}, Input: &inventory.Key{Database: biosphereDB, Code: "co2"}},
		},
	}
	return []*inventory.Process{bike, production}
}

func newTestCatalog(t *testing.T, opts ...Option) *Catalog {
	t.Helper()
	opts = append([]Option{WithLogger(logging.NewNopLogger()), WithMetrics(metrics.NewRegistry())}, opts...)
	c := NewCatalog(opts...)
	if err := c.Register(NewDatabase(biosphereDB, biosphereRecords())); err != nil {
		t.Fatalf("Failed to register biosphere: %v", err)
	}
	return c
}
