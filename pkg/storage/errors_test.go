package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStorageError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"database", DatabaseNotFoundError("biosphere3"), "get database biosphere3: database not found"},
		{"record", RecordNotFoundError("biosphere3", "co2"), "get record biosphere3/co2: record not found"},
		{"context", NewError("write").Database("bike").Context("2 exchanges").Cause(ErrUnlinkedExchanges).Err(),
			"write database bike (2 exchanges): database has unlinked exchanges"},
		{"snapshot", NewError("load").Snapshot("/tmp/x.lcis").Cause(ErrCorruptSnapshot).Err(),
			"load snapshot (/tmp/x.lcis): corrupt snapshot"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestStorageError_Chain(t *testing.T) {
	err := fmt.Errorf("import: %w", NewError("write").Database("bike").Cause(ErrDanglingReference).Err())

	assert.True(t, errors.Is(err, ErrDanglingReference))
	assert.True(t, IsIntegrity(err))
	assert.False(t, IsNotFound(err))

	var se *StorageError
	assert.True(t, errors.As(err, &se))
	assert.Equal(t, "bike", se.Database)
	assert.False(t, se.Is(nil))
}
