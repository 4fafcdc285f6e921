package discretize

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomica/pkg/volume"
)

func rampVolume(t *testing.T) (*volume.Volume, *volume.Mask) {
	t.Helper()
	dims := volume.Dims{X: 6, Y: 1, Z: 1}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	v, err := volume.NewVolume(dims, sp, []float64{0, 10, 20, 30, 40, 50})
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, []bool{true, true, true, true, true, true})
	require.NoError(t, err)
	return v, m
}

func TestDiscretizeFBN(t *testing.T) {
	v, m := rampVolume(t)

	d, err := Discretize(v, m, NewFBN(6))
	require.NoError(t, err)
	assert.Equal(t, 6, d.Ng)
	assert.Equal(t, 0.0, d.Lo)
	assert.Equal(t, 50.0, d.Hi)
	// The maximum intensity folds into the last bin instead of opening a
	// seventh one.
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, d.Levels)
	assert.Equal(t, 6, d.ValidCount())
}

func TestDiscretizeFBS(t *testing.T) {
	v, m := rampVolume(t)

	d, err := Discretize(v, m, NewFBS(10))
	require.NoError(t, err)
	assert.Equal(t, 5, d.Ng)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 4}, d.Levels)
}

func TestDiscretizeExcludesOutOfRange(t *testing.T) {
	v, m := rampVolume(t)

	s := NewFBN(4)
	s.Min, s.Max = 10, 40
	d, err := Discretize(v, m, s)
	require.NoError(t, err)
	// Intensities beyond the explicit bounds are excluded, never clamped
	// into the first or last bin.
	assert.Equal(t, Excluded, d.Levels[0])
	assert.Equal(t, Excluded, d.Levels[5])
	assert.Equal(t, 4, d.ValidCount())
}

func TestDiscretizeMaskedOut(t *testing.T) {
	v, m := rampVolume(t)
	m.Data[2] = false

	d, err := Discretize(v, m, NewFBN(6))
	require.NoError(t, err)
	assert.Equal(t, Excluded, d.Levels[2])
	assert.Equal(t, 5, d.ValidCount())
}

func TestDiscretizeConstantRegion(t *testing.T) {
	dims := volume.Dims{X: 3, Y: 1, Z: 1}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	v, err := volume.NewVolume(dims, sp, []float64{7, 7, 7})
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, []bool{true, true, true})
	require.NoError(t, err)

	d, err := Discretize(v, m, NewFBN(16))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Ng)
	assert.Equal(t, []int{0, 0, 0}, d.Levels)

	// Fixed bin size keeps the single-bin behavior on a point range.
	d, err = Discretize(v, m, NewFBS(10))
	require.NoError(t, err)
	assert.Equal(t, 1, d.Ng)
	assert.Equal(t, []int{0, 0, 0}, d.Levels)
}

func TestDiscretizeErrors(t *testing.T) {
	v, m := rampVolume(t)

	var de *DiscretizationError
	_, err := Discretize(v, m, NewFBN(0))
	require.ErrorAs(t, err, &de)

	_, err = Discretize(v, m, NewFBS(-1))
	require.ErrorAs(t, err, &de)

	empty, err := volume.NewMask(v.Dims, v.Spacing, nil)
	require.NoError(t, err)
	_, err = Discretize(v, empty, NewFBN(8))
	require.ErrorAs(t, err, &de)
}

func TestDiscretizeBoundsProperty(t *testing.T) {
	dims := volume.Dims{X: 8, Y: 8, Z: 4}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	rng := rand.New(rand.NewSource(11))

	data := make([]float64, dims.Count())
	bits := make([]bool, dims.Count())
	for i := range data {
		data[i] = rng.NormFloat64() * 40
		bits[i] = rng.Intn(3) > 0
	}
	v, err := volume.NewVolume(dims, sp, data)
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, bits)
	require.NoError(t, err)

	for _, s := range []Scheme{NewFBN(17), NewFBS(12.5)} {
		d, err := Discretize(v, m, s)
		require.NoError(t, err)
		for i, l := range d.Levels {
			if !m.Data[i] {
				assert.Equal(t, Excluded, l)
				continue
			}
			assert.GreaterOrEqual(t, l, 0)
			assert.Less(t, l, d.Ng)
		}
		// With data-derived bounds every masked voxel keeps a level.
		assert.Equal(t, m.Count(), d.ValidCount())

		total := 0
		for _, c := range d.Histogram() {
			total += c
		}
		assert.Equal(t, d.ValidCount(), total)
	}
}

func TestResegmentRange(t *testing.T) {
	v, m := rampVolume(t)

	out, err := ResegmentRange(v, m, 10, 40)
	require.NoError(t, err)
	assert.Equal(t, 4, out.Count())
	assert.False(t, out.Data[0])
	assert.False(t, out.Data[5])
	// Input mask untouched.
	assert.Equal(t, 6, m.Count())

	var ge *volume.GeometryError
	_, err = ResegmentRange(v, m, 40, 10)
	require.ErrorAs(t, err, &ge)
}

func TestResegmentOutliers(t *testing.T) {
	dims := volume.Dims{X: 7, Y: 1, Z: 1}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	v, err := volume.NewVolume(dims, sp, []float64{10, 11, 9, 10, 10, 11, 1000})
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, []bool{true, true, true, true, true, true, true})
	require.NoError(t, err)

	out, err := ResegmentOutliers(v, m, 1)
	require.NoError(t, err)
	assert.False(t, out.Data[6])
	assert.Equal(t, 6, out.Count())
}
