package storage

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

func TestDatabase_GetAndLen(t *testing.T) {
	db := NewDatabase(biosphereDB, biosphereRecords())
	assert.Equal(t, biosphereDB, db.Name())
	assert.Equal(t, 4, db.Len())

	rec, err := db.Get("ch4")
	require.NoError(t, err)
	assert.Equal(t, "Methane, fossil", rec.Name)

	_, err = db.Get("n2o")
	assert.ErrorIs(t, err, ErrRecordNotFound)
	assert.True(t, IsNotFound(err))
}

func TestDatabase_CopiesInput(t *testing.T) {
	records := biosphereRecords()
	db := NewDatabase(biosphereDB, records)

	records[0].Name = "mutated"
	rec, err := db.Get("co2")
	require.NoError(t, err)
	assert.Equal(t, "Carbon dioxide, fossil", rec.Name)

	rec.Name = "mutated again"
	again, _ := db.Get("co2")
	assert.Equal(t, "Carbon dioxide, fossil", again.Name)
}

func TestDatabase_SkipsUncodedAndReplacesDuplicates(t *testing.T) {
	records := biosphereRecords()
	records = append(records,
		record(biosphereDB, "", "Nameless", "kilogram"),
		record(biosphereDB, "ch4", "Methane, fossil, replaced", "kilogram", "air"),
	)
	db := NewDatabase(biosphereDB, records)

	assert.Equal(t, 4, db.Len())
	rec, _ := db.Get("ch4")
	assert.Equal(t, "Methane, fossil, replaced", rec.Name)
}

func TestDatabase_ForcesDatabaseName(t *testing.T) {
	db := NewDatabase("renamed", biosphereRecords())
	for f := range db.Entries() {
		assert.Equal(t, "renamed", f.Database)
	}
}

func TestDatabase_EntriesInInsertionOrder(t *testing.T) {
	db := NewDatabase(biosphereDB, biosphereRecords())

	var codes []string
	for f := range db.Entries() {
		codes = append(codes, f.Code)
	}
	assert.Equal(t, []string{"co2", "co2-urban", "ch4", "water"}, codes)

	// stops early
	n := 0
	for range db.Entries() {
		n++
		break
	}
	assert.Equal(t, 1, n)
}

func TestDatabase_ByTypeAndTypes(t *testing.T) {
	records := slices.Concat(biosphereRecords(), marketRecords())
	db := NewDatabase("mixed", records)

	assert.Equal(t, []string{inventory.NodeEmission, inventory.NodeProcess}, db.Types())
	assert.Len(t, db.ByType(inventory.NodeProcess), 3)
	assert.Empty(t, db.ByType(inventory.NodeProduct))
}

func TestDatabase_Search(t *testing.T) {
	db := NewDatabase(biosphereDB, biosphereRecords())

	results := db.Search("carbon dioxide", 0)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "Carbon dioxide, fossil", r.Flow.Name)
		assert.Greater(t, r.Score, 0.0)
	}

	// AND semantics across terms
	results = db.Search("carbon urban", 0)
	require.Len(t, results, 1)
	assert.Equal(t, "co2-urban", results[0].Flow.Code)

	assert.Empty(t, db.Search("nitrous", 0))
	assert.Empty(t, db.Search("", 0))
	assert.Empty(t, db.Search("  ,, ", 0))
}

func TestDatabase_SearchRanksAndLimits(t *testing.T) {
	db := NewDatabase(biosphereDB, biosphereRecords())

	// "air" occurs twice in co2-urban's text
	results := db.Search("air", 0)
	require.Len(t, results, 3)
	assert.Equal(t, "co2-urban", results[0].Flow.Code)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.GreaterOrEqual(t, results[1].Score, results[2].Score)

	limited := db.Search("air", 2)
	assert.Len(t, limited, 2)
	assert.Equal(t, results[:2], limited)
}

func TestDatabase_SearchReferenceProductAndLocation(t *testing.T) {
	db := NewDatabase(ecoinventDB, marketRecords())

	results := db.Search("electricity NO", 0)
	require.Len(t, results, 1)
	assert.Equal(t, "NO", results[0].Flow.Location)
}

func TestDatabase_Stats(t *testing.T) {
	records := bikeRecords()
	records[1].Exchanges = append(records[1].Exchanges, &inventory.Exchange{Type: inventory.TypeTechnosphere, Name: "Carbon fibre"})
	db := NewDatabase(bikeDB, records)

	stats := db.Stats()
	assert.Equal(t, bikeDB, stats.Name)
	assert.Equal(t, 2, stats.Records)
	assert.Equal(t, 3, stats.Exchanges)
	assert.Equal(t, 1, stats.Unlinked)
	assert.Equal(t, map[string]int{inventory.NodeProduct: 1, inventory.NodeProcess: 1}, stats.ByType)
}
