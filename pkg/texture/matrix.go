// Package texture builds the IBSI texture matrix families from a
// discretized volume and reduces them to scalar biomarkers: co-occurrence
// (GLCM), run-length (GLRLM), size-zone (GLSZM), distance-zone (GLDZM),
// neighborhood gray-tone difference (NGTDM) and neighborhood gray-level
// dependence (NGLDM) matrices.
//
// The aggregation policy is a first-class parameter. Merged aggregations sum
// raw counts across slices and directions before normalizing; averaged
// aggregations compute features per slice/direction and average the scalar
// results. These produce numerically different values and both are
// supported.
package texture

import (
	"fmt"
	"math"

	"radiomica/pkg/discretize"
)

// Aggregation selects the scope over which matrices are accumulated and
// features reduced.
type Aggregation int

const (
	// Slice2DAveraged computes features per slice (and per direction for
	// directional families) and averages the scalars.
	Slice2DAveraged Aggregation = iota
	// Slice2DMerged sums counts over all slices and directions before
	// normalizing.
	Slice2DMerged
	// Volume3DAveraged computes features per 3D direction and averages the
	// scalars. For families without directions it equals Volume3DMerged.
	Volume3DAveraged
	// Volume3DMerged sums counts over all 3D directions.
	Volume3DMerged
)

// String returns the configuration name of the aggregation.
func (a Aggregation) String() string {
	switch a {
	case Slice2DAveraged:
		return "slice2d_averaged"
	case Slice2DMerged:
		return "slice2d_merged"
	case Volume3DAveraged:
		return "volume3d_averaged"
	case Volume3DMerged:
		return "volume3d_merged"
	}
	return fmt.Sprintf("aggregation(%d)", int(a))
}

func (a Aggregation) is2D() bool { return a == Slice2DAveraged || a == Slice2DMerged }

// Connectivity is the 3D voxel neighborhood used for zone growth: 6, 18 or
// 26. In 2D scopes it degrades to the in-plane 4- or 8-neighborhood.
type Connectivity int

const (
	Connect6  Connectivity = 6
	Connect18 Connectivity = 18
	Connect26 Connectivity = 26
)

// Valid reports whether the connectivity is one of the supported values.
func (c Connectivity) Valid() bool {
	return c == Connect6 || c == Connect18 || c == Connect26
}

// InsufficientDataError reports a masked region with zero voxels left after
// discretization exclusion.
type InsufficientDataError struct {
	Detail string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Detail
}

// directions3D holds the 13 unique 3D directions of the co-occurrence and
// run-length families (the other 13 are their negations).
var directions3D = [][3]int{
	{1, 0, 0}, {0, 1, 0}, {0, 0, 1},
	{1, 1, 0}, {1, -1, 0}, {1, 0, 1}, {1, 0, -1},
	{0, 1, 1}, {0, 1, -1},
	{1, 1, 1}, {1, 1, -1}, {1, -1, 1}, {1, -1, -1},
}

// directions2D holds the 4 unique in-plane directions.
var directions2D = [][3]int{
	{1, 0, 0}, {1, 1, 0}, {0, 1, 0}, {-1, 1, 0},
}

// neighborOffsets returns the offset set of a connectivity. twoD restricts
// the set to the slice plane.
func neighborOffsets(c Connectivity, twoD bool) [][3]int {
	var offs [][3]int
	for dz := -1; dz <= 1; dz++ {
		if twoD && dz != 0 {
			continue
		}
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				order := abs(dx) + abs(dy) + abs(dz)
				switch c {
				case Connect6:
					if order > 1 {
						continue
					}
				case Connect18:
					if order > 2 {
						continue
					}
				}
				offs = append(offs, [3]int{dx, dy, dz})
			}
		}
	}
	return offs
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// checkInput rejects discretized volumes without any valid voxel.
func checkInput(d *discretize.Discrete) error {
	if d.ValidCount() == 0 {
		return &InsufficientDataError{Detail: "no voxels carry a gray level after discretization exclusion"}
	}
	return nil
}

// sliceRange yields the z ranges of the aggregation scopes: one range per
// slice in 2D scopes, the full extent otherwise.
func sliceRange(d *discretize.Discrete, twoD bool) [][2]int {
	if !twoD {
		return [][2]int{{0, d.Dims.Z}}
	}
	out := make([][2]int, d.Dims.Z)
	for z := 0; z < d.Dims.Z; z++ {
		out[z] = [2]int{z, z + 1}
	}
	return out
}

// validVoxels counts voxels with a gray level within a z range.
func validVoxels(d *discretize.Discrete, z0, z1 int) int {
	n := 0
	for z := z0; z < z1; z++ {
		base := z * d.Dims.X * d.Dims.Y
		for i := 0; i < d.Dims.X*d.Dims.Y; i++ {
			if d.Levels[base+i] >= 0 {
				n++
			}
		}
	}
	return n
}

// averageMaps averages feature maps computed per sub-scope.
func averageMaps(ms []map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	if len(ms) == 0 {
		return out
	}
	for _, m := range ms {
		for k, v := range m {
			out[k] += v
		}
	}
	for k := range out {
		out[k] /= float64(len(ms))
	}
	return out
}

// plog2p returns p*log2(p) with the zero-probability case excluded from the
// logarithm, so entropy sums never propagate NaN.
func plog2p(p float64) float64 {
	if p <= 0 {
		return 0
	}
	return p * math.Log2(p)
}
