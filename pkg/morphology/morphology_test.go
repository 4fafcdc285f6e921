package morphology

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomica/pkg/texture"
	"radiomica/pkg/volume"
)

func TestFeaturesSingleVoxel(t *testing.T) {
	dims := volume.Dims{X: 3, Y: 3, Z: 3}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	v, err := volume.NewVolume(dims, sp, nil)
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, nil)
	require.NoError(t, err)
	m.Set(1, 1, 1, true)
	v.Set(1, 1, 1, 10)

	f, err := Features(v, m)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f["morph_volume"], 1e-12)
	assert.InDelta(t, 6.0, f["morph_surface_area"], 1e-12)
	assert.InDelta(t, 0.0, f["morph_major_axis_length"], 1e-12)
	assert.InDelta(t, 0.0, f["morph_centre_of_mass_shift"], 1e-12)
}

func TestFeaturesTwoVoxelBar(t *testing.T) {
	dims := volume.Dims{X: 3, Y: 1, Z: 1}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	v, err := volume.NewVolume(dims, sp, []float64{5, 5, 0})
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, []bool{true, true, false})
	require.NoError(t, err)

	f, err := Features(v, m)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, f["morph_volume"], 1e-12)
	// Two cubes sharing one face expose ten of their twelve faces.
	assert.InDelta(t, 10.0, f["morph_surface_area"], 1e-12)
	assert.InDelta(t, 5.0, f["morph_surface_to_volume_ratio"], 1e-12)
	// Coordinate variance along x is 0.5, so the major axis spans
	// 4*sqrt(0.5) and the other two vanish.
	assert.InDelta(t, 4*math.Sqrt(0.5), f["morph_major_axis_length"], 1e-9)
	assert.InDelta(t, 0.0, f["morph_minor_axis_length"], 1e-9)
	// Uniform intensities keep both centroids identical.
	assert.InDelta(t, 0.0, f["morph_centre_of_mass_shift"], 1e-12)
}

func TestFeaturesSpacingScalesMeasures(t *testing.T) {
	dims := volume.Dims{X: 2, Y: 1, Z: 1}
	sp := volume.Spacing{X: 2, Y: 3, Z: 4}
	v, err := volume.NewVolume(dims, sp, []float64{1, 1})
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, []bool{true, true})
	require.NoError(t, err)

	f, err := Features(v, m)
	require.NoError(t, err)
	assert.InDelta(t, 2*2*3*4, f["morph_volume"], 1e-12)
	// Exposed faces: two yz faces (12 each), four xz (8 each), four xy
	// (6 each).
	assert.InDelta(t, 2*12.0+4*8+4*6, f["morph_surface_area"], 1e-12)
}

func TestFeaturesCentreOfMassShift(t *testing.T) {
	dims := volume.Dims{X: 2, Y: 1, Z: 1}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	v, err := volume.NewVolume(dims, sp, []float64{1, 3})
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, []bool{true, true})
	require.NoError(t, err)

	f, err := Features(v, m)
	require.NoError(t, err)
	// Geometric center x = 0.5, weighted center x = 3/4.
	assert.InDelta(t, 0.25, f["morph_centre_of_mass_shift"], 1e-12)
}

func TestFeaturesEmptyMask(t *testing.T) {
	dims := volume.Dims{X: 2, Y: 2, Z: 2}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	v, err := volume.NewVolume(dims, sp, nil)
	require.NoError(t, err)
	m, err := volume.NewMask(dims, sp, nil)
	require.NoError(t, err)

	var ide *texture.InsufficientDataError
	_, err = Features(v, m)
	require.ErrorAs(t, err, &ide)
}
