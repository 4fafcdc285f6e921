package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVolumeValidation(t *testing.T) {
	dims := Dims{X: 2, Y: 3, Z: 4}
	sp := Spacing{X: 1, Y: 1, Z: 1}

	v, err := NewVolume(dims, sp, nil)
	require.NoError(t, err)
	assert.Len(t, v.Data, 24)

	_, err = NewVolume(dims, sp, make([]float64, 5))
	var ge *GeometryError
	require.ErrorAs(t, err, &ge)

	_, err = NewVolume(Dims{X: 0, Y: 1, Z: 1}, sp, nil)
	require.ErrorAs(t, err, &ge)

	_, err = NewVolume(dims, Spacing{X: 1, Y: -1, Z: 1}, nil)
	require.ErrorAs(t, err, &ge)
}

func TestIndexCoordsRoundTrip(t *testing.T) {
	dims := Dims{X: 3, Y: 4, Z: 5}
	for i := 0; i < dims.Count(); i++ {
		x, y, z := dims.Coords(i)
		assert.True(t, dims.Inside(x, y, z))
		assert.Equal(t, i, dims.Index(x, y, z))
	}
	assert.False(t, dims.Inside(-1, 0, 0))
	assert.False(t, dims.Inside(3, 0, 0))
}

func TestMaskedStats(t *testing.T) {
	dims := Dims{X: 4, Y: 1, Z: 1}
	sp := Spacing{X: 1, Y: 1, Z: 1}
	v, err := NewVolume(dims, sp, []float64{1, 2, 3, 100})
	require.NoError(t, err)
	m, err := NewMask(dims, sp, []bool{true, true, true, false})
	require.NoError(t, err)

	st, err := MaskedStats(v, m)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Count)
	assert.Equal(t, 1.0, st.Min)
	assert.Equal(t, 3.0, st.Max)
	assert.InDelta(t, 2.0, st.Mean, 1e-12)

	assert.Equal(t, []float64{1, 2, 3}, MaskedValues(v, m))
}

func TestBoundingBox(t *testing.T) {
	dims := Dims{X: 4, Y: 4, Z: 4}
	sp := Spacing{X: 1, Y: 1, Z: 1}
	m, err := NewMask(dims, sp, nil)
	require.NoError(t, err)

	_, _, ok := m.BoundingBox()
	assert.False(t, ok)
	assert.True(t, m.Empty())

	m.Set(1, 2, 3, true)
	m.Set(2, 1, 3, true)
	min, max, ok := m.BoundingBox()
	require.True(t, ok)
	assert.Equal(t, [3]int{1, 1, 3}, min)
	assert.Equal(t, [3]int{2, 2, 3}, max)
	assert.Equal(t, 2, m.Count())
}

func TestCheckGeometryMismatch(t *testing.T) {
	sp := Spacing{X: 1, Y: 1, Z: 1}
	v, err := NewVolume(Dims{X: 2, Y: 2, Z: 2}, sp, nil)
	require.NoError(t, err)
	m, err := NewMask(Dims{X: 2, Y: 2, Z: 3}, sp, nil)
	require.NoError(t, err)

	var ge *GeometryError
	require.ErrorAs(t, CheckGeometry(v, m), &ge)

	m2, err := NewMask(v.Dims, Spacing{X: 2, Y: 1, Z: 1}, nil)
	require.NoError(t, err)
	require.ErrorAs(t, CheckGeometry(v, m2), &ge)

	m3, err := NewMask(v.Dims, sp, nil)
	require.NoError(t, err)
	assert.NoError(t, CheckGeometry(v, m3))
}
