package utils

import (
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDGenerator_Generate(t *testing.T) {
	gen := NewUUIDGenerator()

	id := gen.Generate()
	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestUUIDGenerator_IDsSortInCreationOrder(t *testing.T) {
	gen := NewUUIDGenerator()

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, gen.Generate())
		time.Sleep(2 * time.Millisecond) // v7 timestamp precision is 1ms
	}

	assert.True(t, sort.StringsAreSorted(ids))
}
