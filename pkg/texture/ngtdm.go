package texture

import (
	"math"

	"radiomica/pkg/discretize"
)

// ngtdmData accumulates, per gray level, the number of contributing voxels
// and the summed absolute difference between each voxel's level and the
// mean level of its valid neighborhood.
type ngtdmData struct {
	n  []float64 // voxel count per level
	s  []float64 // summed |i - neighborhood mean|
	ng int
}

func newNGTDMData(ng int) *ngtdmData {
	return &ngtdmData{n: make([]float64, ng), s: make([]float64, ng), ng: ng}
}

func (m *ngtdmData) add(o *ngtdmData) {
	for i := range o.n {
		m.n[i] += o.n[i]
		m.s[i] += o.s[i]
	}
}

func (m *ngtdmData) total() float64 {
	var t float64
	for _, v := range m.n {
		t += v
	}
	return t
}

// accumulateNGTDM visits every valid voxel in the z range and records its
// absolute difference to the mean of its Chebyshev radius-1 neighborhood.
// Voxels without any valid neighbor do not contribute.
func accumulateNGTDM(d *discretize.Discrete, m *ngtdmData, z0, z1 int, twoD bool) {
	dims := d.Dims
	offs := neighborOffsets(Connect26, twoD)
	for z := z0; z < z1; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				level := d.Levels[dims.Index(x, y, z)]
				if level < 0 {
					continue
				}
				var sum float64
				var count int
				for _, o := range offs {
					nx, ny, nz := x+o[0], y+o[1], z+o[2]
					if nx < 0 || nx >= dims.X || ny < 0 || ny >= dims.Y || nz < z0 || nz >= z1 {
						continue
					}
					nl := d.Levels[dims.Index(nx, ny, nz)]
					if nl < 0 {
						continue
					}
					sum += float64(nl + 1)
					count++
				}
				if count == 0 {
					continue
				}
				m.n[level]++
				m.s[level] += math.Abs(float64(level+1) - sum/float64(count))
			}
		}
	}
}

// NGTDMFeatures computes the neighborhood gray-tone difference features:
// coarseness, contrast, busyness, complexity and strength.
func NGTDMFeatures(d *discretize.Discrete, agg Aggregation) (map[string]float64, error) {
	if err := checkInput(d); err != nil {
		return nil, err
	}

	var mats []*ngtdmData
	for _, zr := range sliceRange(d, agg.is2D()) {
		m := newNGTDMData(d.Ng)
		accumulateNGTDM(d, m, zr[0], zr[1], agg.is2D())
		mats = append(mats, m)
	}

	if agg == Slice2DAveraged {
		var maps []map[string]float64
		for _, m := range mats {
			if m.total() == 0 {
				continue
			}
			maps = append(maps, ngtdmFeatureMap(m))
		}
		if len(maps) == 0 {
			return nil, &InsufficientDataError{Detail: "no voxels with valid neighborhoods in scope"}
		}
		return averageMaps(maps), nil
	}

	merged := newNGTDMData(d.Ng)
	for _, m := range mats {
		merged.add(m)
	}
	if merged.total() == 0 {
		return nil, &InsufficientDataError{Detail: "no voxels with valid neighborhoods in scope"}
	}
	return ngtdmFeatureMap(merged), nil
}

func ngtdmFeatureMap(m *ngtdmData) map[string]float64 {
	nvc := m.total()
	ng := m.ng

	p := make([]float64, ng)
	for i := range m.n {
		p[i] = m.n[i] / nvc
	}
	ngp := 0
	for _, pi := range p {
		if pi > 0 {
			ngp++
		}
	}

	var sumPS, sumS float64
	for i := 0; i < ng; i++ {
		sumPS += p[i] * m.s[i]
		sumS += m.s[i]
	}

	// Coarseness, with the IBSI cap for flat regions.
	coarseness := 1e6
	if sumPS > 0 {
		coarseness = 1 / sumPS
		if coarseness > 1e6 {
			coarseness = 1e6
		}
	}

	var contrast float64
	if ngp > 1 {
		var pairTerm float64
		for i := 0; i < ng; i++ {
			if p[i] == 0 {
				continue
			}
			for j := 0; j < ng; j++ {
				if p[j] == 0 {
					continue
				}
				diff := float64(i - j)
				pairTerm += p[i] * p[j] * diff * diff
			}
		}
		contrast = pairTerm / float64(ngp*(ngp-1)) * (sumS / nvc)
	}

	var busyDen float64
	for i := 0; i < ng; i++ {
		if p[i] == 0 {
			continue
		}
		for j := 0; j < ng; j++ {
			if p[j] == 0 {
				continue
			}
			busyDen += math.Abs(float64(i+1)*p[i] - float64(j+1)*p[j])
		}
	}
	busyness := 0.0
	if busyDen > 0 {
		busyness = sumPS / busyDen
	}

	var complexity float64
	for i := 0; i < ng; i++ {
		if p[i] == 0 {
			continue
		}
		for j := 0; j < ng; j++ {
			if p[j] == 0 {
				continue
			}
			complexity += math.Abs(float64(i-j)) * (p[i]*m.s[i] + p[j]*m.s[j]) / (p[i] + p[j])
		}
	}
	complexity /= nvc

	strength := 0.0
	if sumS > 0 {
		var num float64
		for i := 0; i < ng; i++ {
			if p[i] == 0 {
				continue
			}
			for j := 0; j < ng; j++ {
				if p[j] == 0 {
					continue
				}
				diff := float64(i - j)
				num += (p[i] + p[j]) * diff * diff
			}
		}
		strength = num / sumS
	}

	return map[string]float64{
		"ngtdm_coarseness": coarseness,
		"ngtdm_contrast":   contrast,
		"ngtdm_busyness":   busyness,
		"ngtdm_complexity": complexity,
		"ngtdm_strength":   strength,
	}
}
