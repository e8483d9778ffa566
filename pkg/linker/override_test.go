package linker

import (
	"testing"

	"github.com/dd0wney/cluso-lci/pkg/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualOverrideIsIdempotent(t *testing.T) {
	l := newTestLinker(t, bikeWithElectricity())
	l.MatchSelf()

	co2 := co2Flow()
	assert.Equal(t, 1, l.ManualOverride(ByType(inventory.TypeBiosphere), LinkTo(co2)))
	assert.Equal(t, 0, l.ManualOverride(ByType(inventory.TypeBiosphere), LinkTo(co2)))

	market := marketFlow("NO")
	assert.Equal(t, 1, l.ManualOverride(ByName(electricity), LinkTo(market), Rename()))
	// Renamed exchanges are selected by their new name now
	assert.Equal(t, 0, l.ManualOverride(ByName(electricity), LinkTo(market), Rename()))
	assert.Equal(t, 0, l.ManualOverride(ByName(marketName), LinkTo(market), Rename()))
}

func TestManualOverrideReplacesExistingLinks(t *testing.T) {
	l := newTestLinker(t, bikeProcesses())
	l.ManualOverride(ByType(inventory.TypeBiosphere), LinkTo(co2Flow()))

	methane := &inventory.Flow{
		Key:        inventory.Key{Database: biosphereDB, Code: "ch4"},
		Name:       "Methane, fossil",
		Categories: []string{"air", "urban air close to ground"},
	}
	assert.Equal(t, 1, l.ManualOverride(ByType(inventory.TypeBiosphere), LinkTo(methane)))

	for exc := range exchangesOfType(l, inventory.TypeBiosphere) {
		require.NotNil(t, exc.Input)
		assert.Equal(t, methane.Key, *exc.Input)
		assert.Equal(t, methane.Categories, exc.Categories)
		assert.Equal(t, co2Name, exc.Name, "name is kept without Rename")
	}
}

func TestManualOverrideResolverDecides(t *testing.T) {
	l := newTestLinker(t, bikeWithElectricity())

	markets := map[string]*inventory.Flow{"NO": marketFlow("NO")}
	resolve := func(exc *inventory.Exchange) (*inventory.Flow, bool) {
		f, ok := markets[exc.Location]
		return f, ok
	}

	// No location yet: resolver declines
	assert.Equal(t, 0, l.ManualOverride(ByName(electricity), resolve))

	for exc := range l.Unlinked() {
		if exc.Name == electricity {
			exc.Location = "NO"
		}
	}
	assert.Equal(t, 1, l.ManualOverride(And(ByName(electricity), UnlinkedOnly()), resolve))
}

func TestLinkToRejectsUncodedFlows(t *testing.T) {
	l := newTestLinker(t, bikeProcesses())

	assert.Equal(t, 0, l.ManualOverride(ByType(inventory.TypeBiosphere), LinkTo(nil)))
	assert.Equal(t, 0, l.ManualOverride(ByType(inventory.TypeBiosphere), LinkTo(&inventory.Flow{Name: co2Name})))
	assert.Equal(t, 6, l.Statistics().Unlinked)
}

func TestPredicates(t *testing.T) {
	exc := exchange(inventory.TypeBiosphere, co2Name, "kilogram", 1)

	assert.True(t, ByType(inventory.TypeBiosphere)(exc))
	assert.False(t, ByType(inventory.TypeTechnosphere)(exc))
	assert.True(t, ByName(co2Name)(exc))
	assert.True(t, UnlinkedOnly()(exc))
	assert.True(t, And()(exc))
	assert.False(t, And(ByType(inventory.TypeBiosphere), ByName("Water"))(exc))
}
