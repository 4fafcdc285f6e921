package intensity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomica/internal/phantom"
	"radiomica/pkg/discretize"
	"radiomica/pkg/texture"
	"radiomica/pkg/volume"
)

func maskedVolume(t *testing.T, vals []float64) (*volume.Volume, *volume.Mask) {
	t.Helper()
	dims := volume.Dims{X: len(vals), Y: 1, Z: 1}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}
	v, err := volume.NewVolume(dims, sp, vals)
	require.NoError(t, err)
	bits := make([]bool, len(vals))
	for i := range bits {
		bits[i] = true
	}
	m, err := volume.NewMask(dims, sp, bits)
	require.NoError(t, err)
	return v, m
}

func TestStatisticalFeatures(t *testing.T) {
	v, m := maskedVolume(t, []float64{1, 2, 3, 4})

	f, err := StatisticalFeatures(v, m)
	require.NoError(t, err)

	assert.InDelta(t, 2.5, f["stat_mean"], 1e-12)
	assert.InDelta(t, 1.25, f["stat_variance"], 1e-12)
	assert.InDelta(t, 2.5, f["stat_median"], 1e-12)
	assert.InDelta(t, 1.0, f["stat_minimum"], 1e-12)
	assert.InDelta(t, 4.0, f["stat_maximum"], 1e-12)
	assert.InDelta(t, 3.0, f["stat_range"], 1e-12)
	assert.InDelta(t, 30.0, f["stat_energy"], 1e-12)
	assert.InDelta(t, 2.7386127875, f["stat_root_mean_square"], 1e-9)
	assert.InDelta(t, 1.0, f["stat_mean_absolute_deviation"], 1e-12)
	// Symmetric distribution.
	assert.InDelta(t, 0.0, f["stat_skewness"], 1e-12)
	assert.LessOrEqual(t, f["stat_p10"], f["stat_median"])
	assert.LessOrEqual(t, f["stat_median"], f["stat_p90"])
	assert.GreaterOrEqual(t, f["stat_interquartile_range"], 0.0)
}

func TestStatisticalFeaturesEmptyMask(t *testing.T) {
	v, m := maskedVolume(t, []float64{1, 2, 3})
	for i := range m.Data {
		m.Data[i] = false
	}
	var ide *texture.InsufficientDataError
	_, err := StatisticalFeatures(v, m)
	require.ErrorAs(t, err, &ide)
	_, err = IVHFeatures(v, m, 0)
	require.ErrorAs(t, err, &ide)
}

func TestHistogramFeatures(t *testing.T) {
	d := &discretize.Discrete{
		Levels:  []int{0, 0, 1, 1},
		Ng:      2,
		Dims:    volume.Dims{X: 4, Y: 1, Z: 1},
		Spacing: volume.Spacing{X: 1, Y: 1, Z: 1},
	}

	f, err := HistogramFeatures(d)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f["hist_mean"], 1e-12)
	assert.InDelta(t, 0.25, f["hist_variance"], 1e-12)
	assert.InDelta(t, 1.0, f["hist_entropy"], 1e-12)
	assert.InDelta(t, 0.5, f["hist_uniformity"], 1e-12)
	assert.InDelta(t, 1.0, f["hist_mode"], 1e-12)
}

func TestHistogramFeaturesAllExcluded(t *testing.T) {
	d := &discretize.Discrete{
		Levels:  []int{discretize.Excluded, discretize.Excluded},
		Ng:      4,
		Dims:    volume.Dims{X: 2, Y: 1, Z: 1},
		Spacing: volume.Spacing{X: 1, Y: 1, Z: 1},
	}
	var ide *texture.InsufficientDataError
	_, err := HistogramFeatures(d)
	require.ErrorAs(t, err, &ide)
}

func TestIVHFeatures(t *testing.T) {
	v, m := maskedVolume(t, []float64{0, 10, 20, 30, 40, 50})

	f, err := IVHFeatures(v, m, 0)
	require.NoError(t, err)
	// Threshold at 10% of the range keeps five of six voxels, at 90% one.
	assert.InDelta(t, 5.0/6, f["ivh_v10"], 1e-12)
	assert.InDelta(t, 1.0/6, f["ivh_v90"], 1e-12)
	assert.InDelta(t, 50.0, f["ivh_i10"], 1e-12)
	assert.InDelta(t, 10.0, f["ivh_i90"], 1e-12)
	assert.InDelta(t, f["ivh_v10"]-f["ivh_v90"], f["ivh_v10_minus_v90"], 1e-12)
	assert.InDelta(t, 40.0, f["ivh_i10_minus_i90"], 1e-12)
}

// The IBSI digital phantom pins the gray-value-axis behavior: level 5 is
// absent from the data but is still the lowest level whose volume fraction
// drops to 10%, and level 2 the lowest at or under 90%.
func TestIVHDigitalPhantom(t *testing.T) {
	v, m := phantom.Digital()

	f, err := IVHFeatures(v, m, 1)
	require.NoError(t, err)
	assert.InDelta(t, 24.0/74, f["ivh_v10"], 1e-12)
	assert.InDelta(t, 7.0/74, f["ivh_v90"], 1e-12)
	assert.InDelta(t, 5.0, f["ivh_i10"], 1e-12)
	assert.InDelta(t, 2.0, f["ivh_i90"], 1e-12)
	assert.InDelta(t, 17.0/74, f["ivh_v10_minus_v90"], 1e-12)
	assert.InDelta(t, 3.0, f["ivh_i10_minus_i90"], 1e-12)
}

func TestIVHConstantRegion(t *testing.T) {
	v, m := maskedVolume(t, []float64{7, 7, 7})

	f, err := IVHFeatures(v, m, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f["ivh_v10"], 1e-12)
	assert.InDelta(t, 1.0, f["ivh_v90"], 1e-12)
	assert.InDelta(t, 7.0, f["ivh_i10"], 1e-12)
}
