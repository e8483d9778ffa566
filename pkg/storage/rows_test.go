package storage

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
)

func TestRows_RoundTrip(t *testing.T) {
	records := bikeRecords()
	records[1].Exchanges = append(records[1].Exchanges, &inventory.Exchange{
		Type: inventory.TypeTechnosphere, Name: "Carbon fibre", Unit: "kilogram", Amount: 2.5,
	})

	activities, exchanges, err := Flatten(bikeDB, records)
	require.NoError(t, err)
	assert.Len(t, activities, 2)
	assert.Len(t, exchanges, 3)
	assert.Nil(t, exchanges[2].InputCode)
	assert.Equal(t, `["air"]`, exchanges[1].Categories)

	// reverse row order to check positions drive reassembly
	for i, j := 0, len(exchanges)-1; i < j; i, j = i+1, j-1 {
		exchanges[i], exchanges[j] = exchanges[j], exchanges[i]
	}

	rebuilt, err := Assemble(activities, exchanges)
	require.NoError(t, err)
	if diff := cmp.Diff(records, rebuilt); diff != "" {
		t.Errorf("Assemble mismatch (-want +got):\n%s", diff)
	}
}

func TestRows_RejectsUncoded(t *testing.T) {
	records := bikeRecords()
	records[0].Code = ""

	_, _, err := Flatten(bikeDB, records)
	assert.ErrorIs(t, err, ErrMissingCode)
}

func TestRows_OrphanExchange(t *testing.T) {
	_, err := Assemble(nil, []ExchangeRow{{Database: bikeDB, ActivityCode: "ghost", Categories: "[]"}})
	assert.ErrorIs(t, err, ErrRecordNotFound)
}
