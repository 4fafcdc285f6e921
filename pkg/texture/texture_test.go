package texture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomica/pkg/discretize"
	"radiomica/pkg/volume"
)

func makeDiscrete(t *testing.T, dims volume.Dims, ng int, levels []int) *discretize.Discrete {
	t.Helper()
	require.Len(t, levels, dims.Count())
	return &discretize.Discrete{
		Levels:  levels,
		Ng:      ng,
		Dims:    dims,
		Spacing: volume.Spacing{X: 1, Y: 1, Z: 1},
	}
}

// rampDiscrete is a 6x2x1 plane whose gray level equals the x coordinate on
// both rows. Its matrices are small enough to enumerate by hand.
func rampDiscrete(t *testing.T) *discretize.Discrete {
	return makeDiscrete(t, volume.Dims{X: 6, Y: 2, Z: 1}, 6, []int{
		0, 1, 2, 3, 4, 5,
		0, 1, 2, 3, 4, 5,
	})
}

func TestNeighborOffsets(t *testing.T) {
	assert.Len(t, neighborOffsets(Connect6, false), 6)
	assert.Len(t, neighborOffsets(Connect18, false), 18)
	assert.Len(t, neighborOffsets(Connect26, false), 26)
	// In-plane restriction degrades to the 4- and 8-neighborhoods.
	assert.Len(t, neighborOffsets(Connect6, true), 4)
	assert.Len(t, neighborOffsets(Connect26, true), 8)
}

func TestGLCMHandExample(t *testing.T) {
	// Levels 0 0 1 1 along a single row: symmetric unit-offset pairs are
	// (0,0)x2, (0,1)x1, (1,0)x1, (1,1)x2, six in total.
	d := makeDiscrete(t, volume.Dims{X: 4, Y: 1, Z: 1}, 2, []int{0, 0, 1, 1})

	f, err := GLCMFeatures(d, Volume3DMerged, true)
	require.NoError(t, err)

	wantEntropy := -(2.0/6)*math.Log2(2.0/6)*2 - (1.0/6)*math.Log2(1.0/6)*2
	assert.InDelta(t, wantEntropy, f["glcm_joint_entropy"], 1e-12)
	assert.InDelta(t, 2.0/6, f["glcm_joint_maximum"], 1e-12)
	assert.InDelta(t, 2.0/6, f["glcm_contrast"], 1e-12)
	assert.InDelta(t, 2.0/6, f["glcm_dissimilarity"], 1e-12)
}

func TestGLCMMatrixNormalization(t *testing.T) {
	d := rampDiscrete(t)

	// Merged over the 13 directions: the in-plane offsets contribute 52
	// symmetric pair counts, the out-of-plane ones none.
	merged := newGLCMMatrix(d.Ng)
	for _, dir := range directions3D {
		m := newGLCMMatrix(d.Ng)
		accumulateGLCM(d, m, 0, d.Dims.Z, dir, true)
		merged.add(m)
	}
	assert.InDelta(t, 52.0, merged.total(), 1e-9)

	var sum float64
	for _, c := range merged.c {
		sum += c / merged.total()
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestGLCMRampBenchmark(t *testing.T) {
	d := rampDiscrete(t)

	f, err := GLCMFeatures(d, Volume3DMerged, true)
	require.NoError(t, err)
	// 10 off-diagonal cells of probability 1/13 and 6 diagonal cells of
	// probability 1/26.
	want := (10.0/13)*math.Log2(13) + (6.0/26)*math.Log2(26)
	assert.InDelta(t, want, f["glcm_joint_entropy"], 1e-12)
	assert.InDelta(t, 3.9312, f["glcm_joint_entropy"], 5e-5)
}

func TestGLCMMergedDiffersFromAveraged(t *testing.T) {
	d := rampDiscrete(t)

	merged, err := GLCMFeatures(d, Volume3DMerged, true)
	require.NoError(t, err)
	averaged, err := GLCMFeatures(d, Volume3DAveraged, true)
	require.NoError(t, err)
	assert.Greater(t, math.Abs(merged["glcm_joint_entropy"]-averaged["glcm_joint_entropy"]), 1e-6)
}

func TestGLCMEmptyScope(t *testing.T) {
	d := makeDiscrete(t, volume.Dims{X: 2, Y: 2, Z: 1}, 3, []int{
		discretize.Excluded, discretize.Excluded,
		discretize.Excluded, discretize.Excluded,
	})
	var ide *InsufficientDataError
	_, err := GLCMFeatures(d, Volume3DMerged, true)
	require.ErrorAs(t, err, &ide)
}

func TestGLRLMHandExample(t *testing.T) {
	// Levels 0 0 1 2 2 2 along x yield runs (0, len 2), (1, len 1),
	// (2, len 3) in that direction.
	d := makeDiscrete(t, volume.Dims{X: 6, Y: 1, Z: 1}, 3, []int{0, 0, 1, 2, 2, 2})

	m := newGLRLMMatrix(d.Ng, maxRunLength(d, false), 6)
	accumulateGLRLM(d, m, 0, 1, [3]int{1, 0, 0})
	require.InDelta(t, 3.0, m.total(), 1e-12)

	f := glrlmFeatureMap(m)
	assert.InDelta(t, 49.0/108, f["glrlm_short_runs_emphasis"], 1e-12)
	assert.InDelta(t, (4.0+1+9)/3, f["glrlm_long_runs_emphasis"], 1e-12)
	assert.InDelta(t, 3.0/6, f["glrlm_run_percentage"], 1e-12)
}

func TestGLRLMRampBenchmark(t *testing.T) {
	d := rampDiscrete(t)

	f, err := GLRLMFeatures(d, Volume3DMerged)
	require.NoError(t, err)
	// 13 directions over 12 voxels: 144 runs of length one and the 6
	// two-voxel column runs along y, 150 runs in total.
	assert.InDelta(t, 145.5/150, f["glrlm_short_runs_emphasis"], 1e-12)
	assert.InDelta(t, 0.9700, f["glrlm_short_runs_emphasis"], 5e-5)
	assert.InDelta(t, 150.0/(12*13), f["glrlm_run_percentage"], 1e-12)
}

func TestGLRLMRunsBreakAtExcludedVoxels(t *testing.T) {
	d := makeDiscrete(t, volume.Dims{X: 5, Y: 1, Z: 1}, 1, []int{
		0, 0, discretize.Excluded, 0, 0,
	})
	m := newGLRLMMatrix(d.Ng, maxRunLength(d, false), 4)
	accumulateGLRLM(d, m, 0, 1, [3]int{1, 0, 0})
	// Two runs of length two, not one run of length four.
	assert.InDelta(t, 2.0, m.total(), 1e-12)
	assert.InDelta(t, 2.0, m.c[1], 1e-12)
}

func TestGLSZMHandExample(t *testing.T) {
	// Zones: level 0 of size 2, level 0 of size 1, level 1 of size 1.
	d := makeDiscrete(t, volume.Dims{X: 4, Y: 1, Z: 1}, 2, []int{0, 0, 1, 0})

	f, err := GLSZMFeatures(d, Connect26, Volume3DMerged)
	require.NoError(t, err)
	assert.InDelta(t, (1.0/4+1+1)/3, f["glszm_small_zone_emphasis"], 1e-12)
	assert.InDelta(t, 3.0/4, f["glszm_zone_percentage"], 1e-12)
	assert.InDelta(t, (4.0+1)/3, f["glszm_grey_level_non_uniformity"], 1e-12)
}

func TestZoneConnectivity(t *testing.T) {
	// Two same-level voxels touching only diagonally: one zone under
	// 8/26-connectivity, two zones under 4/6-connectivity.
	d := makeDiscrete(t, volume.Dims{X: 2, Y: 2, Z: 1}, 2, []int{
		0, 1,
		1, 0,
	})
	zones26 := labelZones(d, 0, 1, Connect26, false)
	assert.Len(t, zones26, 2)
	zones6 := labelZones(d, 0, 1, Connect6, false)
	assert.Len(t, zones6, 4)
}

func TestGLDZMDistanceMap(t *testing.T) {
	// A 3x3 plane fully inside the ROI: the ring is at city-block distance
	// one from the ROI border, the center at two.
	levels := make([]int, 9)
	d := makeDiscrete(t, volume.Dims{X: 3, Y: 3, Z: 1}, 1, levels)
	roi := make([]bool, 9)
	for i := range roi {
		roi[i] = true
	}

	dist := distanceMap(roi, d, 0, 1, true)
	assert.Equal(t, 2, dist[4])
	for i, want := range []int{1, 1, 1, 1, 2, 1, 1, 1, 1} {
		assert.Equal(t, want, dist[i], "index %d", i)
	}
}

func TestGLDZMHandExample(t *testing.T) {
	// Every voxel of a flat 1D strip touches the ROI border, so the single
	// zone sits at distance one and small distance emphasis is exactly one.
	d := makeDiscrete(t, volume.Dims{X: 4, Y: 1, Z: 1}, 1, []int{0, 0, 0, 0})

	f, err := GLDZMFeatures(d, Connect26, Volume3DMerged, nil)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, f["gldzm_small_distance_emphasis"], 1e-12)
	assert.InDelta(t, 1.0/4, f["gldzm_zone_percentage"], 1e-12)
}

func TestGLDZMRejectsBadROILength(t *testing.T) {
	d := makeDiscrete(t, volume.Dims{X: 4, Y: 1, Z: 1}, 1, []int{0, 0, 0, 0})
	_, err := GLDZMFeatures(d, Connect26, Volume3DMerged, make([]bool, 3))
	require.Error(t, err)
}

func TestNGTDMHandExample(t *testing.T) {
	// Levels 0 1 0: both outer voxels differ from their single neighbor by
	// one, the center differs from its neighborhood mean by one as well.
	d := makeDiscrete(t, volume.Dims{X: 3, Y: 1, Z: 1}, 2, []int{0, 1, 0})

	f, err := NGTDMFeatures(d, Volume3DMerged)
	require.NoError(t, err)
	// s(0) = 2, s(1) = 1, p = (2/3, 1/3): coarseness = 1 / (4/3 + 1/3).
	assert.InDelta(t, 0.6, f["ngtdm_coarseness"], 1e-12)
}

func TestNGTDMFlatRegionCapsCoarseness(t *testing.T) {
	d := makeDiscrete(t, volume.Dims{X: 3, Y: 3, Z: 1}, 1, make([]int, 9))
	f, err := NGTDMFeatures(d, Volume3DMerged)
	require.NoError(t, err)
	assert.Equal(t, 1e6, f["ngtdm_coarseness"])
	assert.Equal(t, 0.0, f["ngtdm_contrast"])
}

func TestNGLDMHandExample(t *testing.T) {
	// Levels 0 0 1 with zero tolerance: the two level-0 voxels each depend
	// on one neighbor, the level-1 voxel on none.
	d := makeDiscrete(t, volume.Dims{X: 3, Y: 1, Z: 1}, 2, []int{0, 0, 1})

	f, err := NGLDMFeatures(d, 0, 1, Volume3DMerged)
	require.NoError(t, err)
	assert.InDelta(t, (1.0+2.0/4)/3, f["ngldm_low_dependence_emphasis"], 1e-12)
	assert.InDelta(t, 1.0, f["ngldm_dependence_count_percentage"], 1e-12)
}

func TestNGLDMToleranceWidensDependence(t *testing.T) {
	d := makeDiscrete(t, volume.Dims{X: 3, Y: 1, Z: 1}, 3, []int{0, 1, 2})

	strict, err := NGLDMFeatures(d, 0, 1, Volume3DMerged)
	require.NoError(t, err)
	loose, err := NGLDMFeatures(d, 1, 1, Volume3DMerged)
	require.NoError(t, err)
	// With tolerance one every neighbor is dependent, pushing the high
	// dependence emphasis up.
	assert.Greater(t, loose["ngldm_high_dependence_emphasis"], strict["ngldm_high_dependence_emphasis"])

	_, err = NGLDMFeatures(d, -1, 1, Volume3DMerged)
	require.Error(t, err)
}

func TestSingleSliceMergedEqualsAveragedForNGTDM(t *testing.T) {
	// NGTDM has no directions, so on a single slice the 2D merged and
	// averaged scopes reduce identically.
	d := makeDiscrete(t, volume.Dims{X: 4, Y: 4, Z: 1}, 3, []int{
		0, 1, 2, 0,
		1, 2, 0, 1,
		2, 0, 1, 2,
		0, 1, 2, 0,
	})
	merged, err := NGTDMFeatures(d, Slice2DMerged)
	require.NoError(t, err)
	averaged, err := NGTDMFeatures(d, Slice2DAveraged)
	require.NoError(t, err)
	for k, v := range merged {
		assert.InDelta(t, v, averaged[k], 1e-12, k)
	}
}

func TestAggregationNames(t *testing.T) {
	assert.Equal(t, "slice2d_averaged", Slice2DAveraged.String())
	assert.Equal(t, "volume3d_merged", Volume3DMerged.String())
	assert.True(t, Slice2DMerged.is2D())
	assert.False(t, Volume3DAveraged.is2D())
}
