package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActivityHash(t *testing.T) {
	a := &Flow{Name: "Bike production", Unit: "unit", Location: "GLO"}
	b := &Flow{Name: "  bike PRODUCTION ", Unit: "Unit", Location: "glo"}
	c := &Flow{Name: "Bike production", Unit: "unit", Location: "NO"}

	ha, err := ActivityHash(a)
	require.NoError(t, err)
	hb, err := ActivityHash(b)
	require.NoError(t, err)
	hc, err := ActivityHash(c)
	require.NoError(t, err)

	assert.Len(t, ha, 16)
	assert.Equal(t, ha, hb, "hash should ignore case and surrounding whitespace")
	assert.NotEqual(t, ha, hc)
}

func TestEnsureCode(t *testing.T) {
	p := &Process{Flow: Flow{Name: "CF production", Unit: "kilogram"}}
	require.NoError(t, EnsureCode(p, "bike_example"))
	assert.Equal(t, "bike_example", p.Database)
	assert.NotEmpty(t, p.Code)

	kept := &Process{Flow: Flow{Key: Key{Database: "other", Code: "fixed"}, Name: "x"}}
	require.NoError(t, EnsureCode(kept, "bike_example"))
	assert.Equal(t, Key{Database: "other", Code: "fixed"}, kept.Key)
}
