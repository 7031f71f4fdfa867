package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequenceGenerator_CountsFromOne(t *testing.T) {
	gen := NewSequenceGenerator()

	assert.Equal(t, "0190a0e4-0000-7000-8000-000000000001", gen.Generate())
	assert.Equal(t, "0190a0e4-0000-7000-8000-000000000002", gen.Generate())
	assert.Equal(t, SequenceID(3), gen.Generate())
}

func TestSequenceGenerator_ParsesAsV7(t *testing.T) {
	parsed, err := uuid.Parse(NewSequenceGenerator().Generate())
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
}

func TestSequenceGenerator_SortsInOrder(t *testing.T) {
	gen := NewSequenceGenerator()
	prev := gen.Generate()
	for i := 0; i < 20; i++ {
		next := gen.Generate()
		assert.Less(t, prev, next)
		prev = next
	}
}

func TestFixedGenerator(t *testing.T) {
	gen := FixedGenerator{ID: "abc"}
	assert.Equal(t, "abc", gen.Generate())
	assert.Equal(t, "abc", gen.Generate())
}

func TestNewOrigin_IsValidOrigin(t *testing.T) {
	rec := NewOrigin(SequenceID(1), "device-a", Epoch)

	require.NoError(t, rec.Validate())
	assert.True(t, rec.IsOrigin())
	assert.Equal(t, rec.CreatedAt, rec.UpdatedAt)
}
