package linker

import (
	"context"
	"testing"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
)

const (
	bikeDB       = "bike_example"
	biosphereDB  = "ecoinvent-3.11-biosphere"
	ecoinventDB  = "ecoinvent-3.11-cutoff"
	electricity  = "Electricity, medium voltage {NO}| market for electricity, medium voltage | Cut-off, U"
	co2Name      = "Carbon dioxide, fossil"
	marketName   = "market for electricity, medium voltage"
	marketRefPro = "electricity, medium voltage"
)

func product(name, unit string) *inventory.Process {
	return &inventory.Process{Flow: inventory.Flow{Name: name, Unit: unit, Type: inventory.NodeProduct}}
}

func process(name, unit string, exchanges ...*inventory.Exchange) *inventory.Process {
	return &inventory.Process{
		Flow:      inventory.Flow{Name: name, Unit: unit, Type: inventory.NodeProcess},
		Exchanges: exchanges,
	}
}

func exchange(typ, name, unit string, amount float64) *inventory.Exchange {
	return &inventory.Exchange{Type: typ, Name: name, Unit: unit, Amount: amount}
}

// bikeProcesses is the bike supply chain: three products, three processes and
// six edges, one of them a CO2 emission.
func bikeProcesses() []*inventory.Process {
	co2 := exchange(inventory.TypeBiosphere, co2Name, "kilogram", 26.6)
	co2.Categories = []string{"Air", "(unspecified)"}

	return []*inventory.Process{
		product("Bike", "unit"),
		product("Carbon fibre", "kilogram"),
		product("Natural gas", "cubic meter"),
		process("Bike production", "unit",
			exchange(inventory.TypeProduction, "Bike", "unit", 1),
			exchange(inventory.TypeTechnosphere, "Carbon fibre", "kilogram", 2.5),
		),
		process("CF production", "kilogram",
			exchange(inventory.TypeProduction, "Carbon fibre", "kilogram", 1),
			exchange(inventory.TypeTechnosphere, "Natural gas", "cubic meter", 237),
			co2,
		),
		process("NG production", "cubic meter",
			exchange(inventory.TypeProduction, "Natural gas", "cubic meter", 1),
		),
	}
}

// bikeWithElectricity adds an electricity input from an external database to
// carbon fibre production.
func bikeWithElectricity() []*inventory.Process {
	processes := bikeProcesses()
	for _, p := range processes {
		if p.Name == "CF production" {
			p.Exchanges = append(p.Exchanges, exchange(inventory.TypeTechnosphere, electricity, "kilowatt hour", 10))
		}
	}
	return processes
}

func co2Flow() *inventory.Flow {
	return &inventory.Flow{
		Key:        inventory.Key{Database: biosphereDB, Code: "349b29d1-3e58-4c66-98b9-9d1a076efd2e"},
		Name:       co2Name,
		Unit:       "kilogram",
		Categories: []string{"air"},
		Type:       inventory.NodeEmission,
	}
}

func marketFlow(location string) *inventory.Flow {
	return &inventory.Flow{
		Key:              inventory.Key{Database: ecoinventDB, Code: "market-elec-mv-" + location},
		Name:             marketName,
		ReferenceProduct: marketRefPro,
		Unit:             "kilowatt hour",
		Location:         location,
		Type:             inventory.NodeProcess,
	}
}

func biospherePool() *FlowPool {
	return NewFlowPool(biosphereDB,
		co2Flow(),
		&inventory.Flow{Key: inventory.Key{Database: biosphereDB, Code: "ch4"}, Name: "Methane, fossil", Unit: "kilogram", Categories: []string{"air"}},
	)
}

func ecoinventPool() *FlowPool {
	return NewFlowPool(ecoinventDB, marketFlow("NO"), marketFlow("SE"), marketFlow("DE"))
}

func newTestLinker(t *testing.T, processes []*inventory.Process) *Linker {
	t.Helper()
	l, err := New(bikeDB, processes, WithLogger(logging.NewNopLogger()), WithMetrics(metrics.NewRegistry()))
	if err != nil {
		t.Fatalf("Failed to create linker: %v", err)
	}
	return l
}

// memoryStore records what was written
type memoryStore struct {
	name      string
	processes []*inventory.Process
	err       error
}

func (s *memoryStore) WriteDatabase(ctx context.Context, name string, processes []*inventory.Process) error {
	if s.err != nil {
		return s.err
	}
	s.name = name
	s.processes = processes
	return nil
}

func exchangesOfType(l *Linker, t string) func(func(*inventory.Exchange) bool) {
	return func(yield func(*inventory.Exchange) bool) {
		for _, exc := range l.exchanges {
			if exc.Type == t && !yield(exc) {
				return
			}
		}
	}
}
