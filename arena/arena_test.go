package arena

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaValuesAndAdjoints(t *testing.T) {
	a := New(3, 1)
	require.Equal(t, 3, a.Len())
	require.Equal(t, 1, a.TransformedLen())

	a.SetValue(0, 1.5)
	a.SetValue(1, -2.0)
	a.AddAdjoint(0, 0.5)
	a.AddAdjoint(0, 0.25)

	assert.Equal(t, 1.5, a.Value(0))
	assert.Equal(t, -2.0, a.Value(1))
	assert.Equal(t, 0.75, a.Adjoint(0))

	a.SetTransformedValue(0, 3.0)
	a.AddTransformedAdjoint(0, 2.0)
	assert.Equal(t, 3.0, a.TransformedValue(0))
	assert.Equal(t, 2.0, a.TransformedAdjoint(0))

	a.ZeroAdjoints()
	assert.Equal(t, 0.0, a.Adjoint(0))
	assert.Equal(t, 0.0, a.TransformedAdjoint(0))
	// values survive a ZeroAdjoints pass
	assert.Equal(t, 1.5, a.Value(0))
	assert.Equal(t, 3.0, a.TransformedValue(0))
}

func TestArenaVisited(t *testing.T) {
	a := New(2, 0)
	a.ResetVisited()
	assert.False(t, a.Visited(0))
	assert.True(t, a.Visited(0))
	assert.False(t, a.Visited(1))
	a.ResetVisited()
	assert.False(t, a.Visited(0))
}
