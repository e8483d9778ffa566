package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Key
		wantErr bool
	}{
		{"simple", "bike_example/abc", Key{Database: "bike_example", Code: "abc"}, false},
		{"database with slash", "ecoinvent/3.11/xyz", Key{Database: "ecoinvent/3.11", Code: "xyz"}, false},
		{"missing code", "bike_example/", Key{}, true},
		{"missing database", "/abc", Key{}, true},
		{"no separator", "abc", Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestExchangeClone(t *testing.T) {
	exc := &Exchange{
		Type:       TypeBiosphere,
		Name:       "Carbon dioxide, fossil",
		Categories: []string{"air"},
		Input:      &Key{Database: "biosphere", Code: "co2"},
	}

	clone := exc.Clone()
	clone.Categories[0] = "water"
	clone.Input.Code = "other"

	assert.Equal(t, "air", exc.Categories[0])
	assert.Equal(t, "co2", exc.Input.Code)
	assert.True(t, clone.Linked())
}

func TestProcessClone(t *testing.T) {
	p := &Process{
		Flow: Flow{Key: Key{Database: "db", Code: "p1"}, Name: "Bike production", Type: NodeProcess},
		Exchanges: []*Exchange{
			{Type: TypeProduction, Name: "Bike", Unit: "unit"},
		},
	}

	clone := p.Clone()
	clone.Exchanges[0].Name = "Car"
	clone.Name = "Car production"

	assert.Equal(t, "Bike", p.Exchanges[0].Name)
	assert.Equal(t, "Bike production", p.Name)
	assert.Len(t, CloneAll([]*Process{p, clone}), 2)
}
