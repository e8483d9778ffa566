package graphql

import (
	"context"
	"strings"
	"testing"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/dd0wney/cluso-lci/pkg/linker"
	"github.com/dd0wney/cluso-lci/pkg/logging"
	"github.com/dd0wney/cluso-lci/pkg/metrics"
	"github.com/dd0wney/cluso-lci/pkg/storage"
)

const (
	biosphereDB = "ecoinvent-3.11-biosphere"
	cutoffDB    = "ecoinvent-3.11-cutoff"
)

func newTestCatalog(t *testing.T) *storage.Catalog {
	t.Helper()
	c := storage.NewCatalog(storage.WithLogger(logging.NewNopLogger()), storage.WithMetrics(metrics.NewRegistry()))

	biosphere := []*inventory.Process{
		{Flow: inventory.Flow{Key: inventory.Key{Database: biosphereDB, Code: "co2"}, Name: "Carbon dioxide, fossil", Unit: "kilogram", Categories: []string{"air"}, Type: inventory.NodeEmission}},
		{Flow: inventory.Flow{Key: inventory.Key{Database: biosphereDB, Code: "ch4"}, Name: "Methane, fossil", Unit: "kilogram", Categories: []string{"air"}, Type: inventory.NodeEmission}},
	}
	var markets []*inventory.Process
	for _, loc := range []string{"NO", "SE"} {
		markets = append(markets, &inventory.Process{Flow: inventory.Flow{
			Key:              inventory.Key{Database: cutoffDB, Code: "market-elec-mv-" + loc},
			Name:             "market for electricity, medium voltage",
			ReferenceProduct: "electricity, medium voltage",
			Unit:             "kilowatt hour",
			Location:         loc,
			Type:             inventory.NodeProcess,
		}})
	}

	for _, db := range []*storage.Database{storage.NewDatabase(biosphereDB, biosphere), storage.NewDatabase(cutoffDB, markets)} {
		if err := c.Register(db); err != nil {
			t.Fatalf("Failed to register %s: %v", db.Name(), err)
		}
	}
	return c
}

// newTestLinker returns a bike import with the CO2 and electricity edges
// left unlinked after a self pass
func newTestLinker(t *testing.T) *linker.Linker {
	t.Helper()
	processes := []*inventory.Process{
		{Flow: inventory.Flow{Key: inventory.Key{Code: "bike"}, Name: "Bike", Unit: "unit", Type: inventory.NodeProduct}},
		{
			Flow: inventory.Flow{Key: inventory.Key{Code: "bike-production"}, Name: "Bike production", Unit: "unit", Type: inventory.NodeProcess},
			Exchanges: []*inventory.Exchange{
				{Type: inventory.TypeProduction, Name: "Bike", Unit: "unit", Amount: 1},
				{Type: inventory.TypeBiosphere, Name: "Carbon dioxide, fossil", Unit: "kilogram", Amount: 26.6, Categories: []string{"air", "urban"}},
				{Type: inventory.TypeTechnosphere, Name: "market for electricity, medium voltage", Unit: "kilowatt hour", Amount: 0.3},
			},
		},
	}
	l, err := linker.New("bike_example", processes, linker.WithLogger(logging.NewNopLogger()), linker.WithMetrics(metrics.NewRegistry()))
	if err != nil {
		t.Fatalf("Failed to create linker: %v", err)
	}
	l.MatchSelf()
	return l
}

func execute(t *testing.T, l *linker.Linker, c *storage.Catalog, query string) map[string]any {
	t.Helper()
	schema, err := NewSchema(l, c)
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}
	result := Execute(context.Background(), schema, query)
	if result.HasErrors() {
		t.Fatalf("Query execution failed: %v", result.Errors)
	}
	return result.Data.(map[string]any)
}

func TestStatisticsQuery(t *testing.T) {
	data := execute(t, newTestLinker(t), nil, `{
		statistics { nodes edges unlinked complete unlinkedByType { key count } }
	}`)

	stats := data["statistics"].(map[string]any)
	if stats["nodes"] != 2 {
		t.Errorf("nodes = %v, want 2", stats["nodes"])
	}
	if stats["edges"] != 3 {
		t.Errorf("edges = %v, want 3", stats["edges"])
	}
	if stats["unlinked"] != 2 {
		t.Errorf("unlinked = %v, want 2", stats["unlinked"])
	}
	if stats["complete"] != false {
		t.Errorf("complete = %v, want false", stats["complete"])
	}

	byType := stats["unlinkedByType"].([]any)
	if len(byType) != 2 {
		t.Fatalf("unlinkedByType has %d entries, want 2", len(byType))
	}
}

func TestUnlinkedQuery(t *testing.T) {
	l := newTestLinker(t)

	data := execute(t, l, nil, `{
		unlinked { process { name } exchange { type name linked input } }
	}`)
	unlinked := data["unlinked"].([]any)
	if len(unlinked) != 2 {
		t.Fatalf("unlinked returned %d exchanges, want 2", len(unlinked))
	}
	first := unlinked[0].(map[string]any)
	if name := first["process"].(map[string]any)["name"]; name != "Bike production" {
		t.Errorf("process name = %v, want Bike production", name)
	}
	exc := first["exchange"].(map[string]any)
	if exc["linked"] != false || exc["input"] != nil {
		t.Errorf("exchange = %v, want unlinked without input", exc)
	}

	data = execute(t, l, nil, `{ unlinked(type: "biosphere") { exchange { name } } }`)
	if n := len(data["unlinked"].([]any)); n != 1 {
		t.Errorf("biosphere filter returned %d exchanges, want 1", n)
	}

	data = execute(t, l, nil, `{ unlinked(limit: 1) { exchange { name } } }`)
	if n := len(data["unlinked"].([]any)); n != 1 {
		t.Errorf("limit returned %d exchanges, want 1", n)
	}

	data = execute(t, l, nil, `{ unlinked(unique: true) { process { name } exchange { name } } }`)
	entry := data["unlinked"].([]any)[0].(map[string]any)
	if entry["process"] != nil {
		t.Errorf("unique listing should not carry a process, got %v", entry["process"])
	}
}

func TestDatabasesQuery(t *testing.T) {
	data := execute(t, nil, newTestCatalog(t), `{
		databases { name records unlinked byType { key count } }
	}`)

	dbs := data["databases"].([]any)
	if len(dbs) != 2 {
		t.Fatalf("databases returned %d entries, want 2", len(dbs))
	}
	first := dbs[0].(map[string]any)
	if first["name"] != biosphereDB {
		t.Errorf("first database = %v, want %s", first["name"], biosphereDB)
	}
	if first["records"] != 2 {
		t.Errorf("records = %v, want 2", first["records"])
	}
}

func TestDatabaseRecordQuery(t *testing.T) {
	c := newTestCatalog(t)

	data := execute(t, nil, c, `{
		database(name: "ecoinvent-3.11-cutoff") { name record(code: "market-elec-mv-NO") { key location } }
	}`)
	rec := data["database"].(map[string]any)["record"].(map[string]any)
	if rec["key"] != cutoffDB+"/market-elec-mv-NO" {
		t.Errorf("key = %v", rec["key"])
	}
	if rec["location"] != "NO" {
		t.Errorf("location = %v, want NO", rec["location"])
	}

	data = execute(t, nil, c, `{ database(name: "ecoinvent-3.11-cutoff") { record(code: "missing") { key } } }`)
	if rec := data["database"].(map[string]any)["record"]; rec != nil {
		t.Errorf("missing record = %v, want null", rec)
	}
}

func TestRecordQuery(t *testing.T) {
	l := newTestLinker(t)
	c := newTestCatalog(t)

	data := execute(t, l, c, `{ record(key: "ecoinvent-3.11-biosphere/co2") { name categories } }`)
	rec := data["record"].(map[string]any)
	if rec["name"] != "Carbon dioxide, fossil" {
		t.Errorf("name = %v", rec["name"])
	}

	data = execute(t, l, c, `{ record(key: "bike_example/bike-production") { name exchanges { name linked } } }`)
	excs := data["record"].(map[string]any)["exchanges"].([]any)
	if len(excs) != 3 {
		t.Fatalf("exchanges = %d, want 3", len(excs))
	}
	if excs[0].(map[string]any)["linked"] != true {
		t.Error("production exchange should be linked by the self pass")
	}
}

func TestSearchQuery(t *testing.T) {
	data := execute(t, nil, newTestCatalog(t), `{
		search(database: "ecoinvent-3.11-cutoff", term: "electricity NO") { score flow { code } }
	}`)

	results := data["search"].([]any)
	if len(results) != 1 {
		t.Fatalf("search returned %d results, want 1", len(results))
	}
	flow := results[0].(map[string]any)["flow"].(map[string]any)
	if flow["code"] != "market-elec-mv-NO" {
		t.Errorf("code = %v, want market-elec-mv-NO", flow["code"])
	}
}

func TestQueryErrors(t *testing.T) {
	schema, err := NewSchema(nil, newTestCatalog(t))
	if err != nil {
		t.Fatalf("NewSchema() error = %v", err)
	}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"no import", `{ statistics { nodes } }`, ErrNoImport.Error()},
		{"unknown database", `{ database(name: "nope") { name } }`, "database not found"},
		{"bad key", `{ record(key: "nokey") { name } }`, "invalid key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Execute(context.Background(), schema, tt.query)
			if !result.HasErrors() {
				t.Fatal("expected an error")
			}
			if !strings.Contains(result.Errors[0].Message, tt.want) {
				t.Errorf("error = %q, want it to contain %q", result.Errors[0].Message, tt.want)
			}
		})
	}
}

func TestLimits(t *testing.T) {
	if _, err := NewSchemaWithLimits(nil, nil, LimitConfig{DefaultLimit: 10, MaxLimit: 5}); err == nil {
		t.Error("expected default above max to be rejected")
	}

	cfg := LimitConfig{DefaultLimit: 10, MaxLimit: 50}
	tests := []struct {
		requested, want int
	}{
		{-1, 10},
		{0, 0},
		{20, 20},
		{100, 50},
	}
	for _, tt := range tests {
		if got := applyLimit(tt.requested, &cfg); got != tt.want {
			t.Errorf("applyLimit(%d) = %d, want %d", tt.requested, got, tt.want)
		}
	}
}
