package texture

import (
	"fmt"
	"math"

	"radiomica/pkg/discretize"
)

// ngldmMatrix holds dependence counts: s[i][j] is the number of voxels with
// gray level i whose neighborhood contains j-1 dependent neighbors (levels
// within the coarseness tolerance alpha), so column indices start at 1.
type ngldmMatrix struct {
	c      []float64 // ng x maxDep
	ng     int
	maxDep int
	nv     int
}

func newNGLDMMatrix(ng, maxDep, nv int) *ngldmMatrix {
	if maxDep < 1 {
		maxDep = 1
	}
	return &ngldmMatrix{c: make([]float64, ng*maxDep), ng: ng, maxDep: maxDep, nv: nv}
}

func (m *ngldmMatrix) add(o *ngldmMatrix) {
	for i := 0; i < o.ng; i++ {
		for j := 0; j < o.maxDep; j++ {
			m.c[i*m.maxDep+j] += o.c[i*o.maxDep+j]
		}
	}
}

func (m *ngldmMatrix) total() float64 {
	var t float64
	for _, v := range m.c {
		t += v
	}
	return t
}

// accumulateNGLDM counts, for every valid voxel, the neighbors within a
// Chebyshev radius whose level differs by at most alpha.
func accumulateNGLDM(d *discretize.Discrete, m *ngldmMatrix, z0, z1 int, alpha float64, radius int, twoD bool) {
	dims := d.Dims
	for z := z0; z < z1; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				level := d.Levels[dims.Index(x, y, z)]
				if level < 0 {
					continue
				}
				dep := 0
				for dz := -radius; dz <= radius; dz++ {
					if twoD && dz != 0 {
						continue
					}
					nz := z + dz
					if nz < z0 || nz >= z1 {
						continue
					}
					for dy := -radius; dy <= radius; dy++ {
						ny := y + dy
						if ny < 0 || ny >= dims.Y {
							continue
						}
						for dx := -radius; dx <= radius; dx++ {
							if dx == 0 && dy == 0 && dz == 0 {
								continue
							}
							nx := x + dx
							if nx < 0 || nx >= dims.X {
								continue
							}
							nl := d.Levels[dims.Index(nx, ny, nz)]
							if nl < 0 {
								continue
							}
							if math.Abs(float64(nl-level)) <= alpha {
								dep++
							}
						}
					}
				}
				m.c[level*m.maxDep+dep]++
			}
		}
	}
}

// NGLDMFeatures computes the neighborhood gray-level dependence features.
// alpha is the coarseness tolerance; radius the Chebyshev neighborhood
// radius (1 for the IBSI default).
func NGLDMFeatures(d *discretize.Discrete, alpha float64, radius int, agg Aggregation) (map[string]float64, error) {
	if err := checkInput(d); err != nil {
		return nil, err
	}
	if alpha < 0 {
		return nil, fmt.Errorf("texture: NGLDM tolerance alpha %g must be non-negative", alpha)
	}
	if radius <= 0 {
		radius = 1
	}

	side := 2*radius + 1
	maxDep := side * side * side // neighborhood size plus the zero-dependence column
	if agg.is2D() {
		maxDep = side * side
	}

	var mats []*ngldmMatrix
	for _, zr := range sliceRange(d, agg.is2D()) {
		m := newNGLDMMatrix(d.Ng, maxDep, validVoxels(d, zr[0], zr[1]))
		accumulateNGLDM(d, m, zr[0], zr[1], alpha, radius, agg.is2D())
		mats = append(mats, m)
	}

	if agg == Slice2DAveraged {
		var maps []map[string]float64
		for _, m := range mats {
			if m.total() == 0 {
				continue
			}
			maps = append(maps, ngldmFeatureMap(m))
		}
		if len(maps) == 0 {
			return nil, &InsufficientDataError{Detail: "no valid voxels in scope"}
		}
		return averageMaps(maps), nil
	}

	merged := newNGLDMMatrix(d.Ng, maxDep, 0)
	for _, m := range mats {
		merged.add(m)
		merged.nv += m.nv
	}
	if merged.total() == 0 {
		return nil, &InsufficientDataError{Detail: "no valid voxels in scope"}
	}
	return ngldmFeatureMap(merged), nil
}

func ngldmFeatureMap(m *ngldmMatrix) map[string]float64 {
	ns := m.total()
	ng, nd := m.ng, m.maxDep

	rowSum := make([]float64, ng)
	colSum := make([]float64, nd)
	for i := 0; i < ng; i++ {
		for j := 0; j < nd; j++ {
			v := m.c[i*nd+j]
			rowSum[i] += v
			colSum[j] += v
		}
	}

	var (
		lde, hde, lgce, hgce       float64
		ldlge, ldhge, hdlge, hdhge float64
		glnu, dcnu                 float64
		muG, muD, ent, energy      float64
	)
	for i := 0; i < ng; i++ {
		gi := float64(i + 1)
		lgce += rowSum[i] / (gi * gi)
		hgce += rowSum[i] * gi * gi
		glnu += rowSum[i] * rowSum[i]
	}
	for j := 0; j < nd; j++ {
		dj := float64(j + 1)
		lde += colSum[j] / (dj * dj)
		hde += colSum[j] * dj * dj
		dcnu += colSum[j] * colSum[j]
	}
	for i := 0; i < ng; i++ {
		gi := float64(i + 1)
		for j := 0; j < nd; j++ {
			v := m.c[i*nd+j]
			if v == 0 {
				continue
			}
			dj := float64(j + 1)
			p := v / ns
			ldlge += v / (gi * gi * dj * dj)
			ldhge += v * gi * gi / (dj * dj)
			hdlge += v * dj * dj / (gi * gi)
			hdhge += v * gi * gi * dj * dj
			muG += gi * p
			muD += dj * p
			ent -= plog2p(p)
			energy += p * p
		}
	}
	var glVar, dcVar float64
	for i := 0; i < ng; i++ {
		gi := float64(i + 1)
		for j := 0; j < nd; j++ {
			p := m.c[i*nd+j] / ns
			dj := float64(j + 1)
			glVar += (gi - muG) * (gi - muG) * p
			dcVar += (dj - muD) * (dj - muD) * p
		}
	}

	f := map[string]float64{
		"ngldm_low_dependence_emphasis":                    lde / ns,
		"ngldm_high_dependence_emphasis":                   hde / ns,
		"ngldm_low_grey_level_count_emphasis":              lgce / ns,
		"ngldm_high_grey_level_count_emphasis":             hgce / ns,
		"ngldm_low_dependence_low_grey_level_emphasis":     ldlge / ns,
		"ngldm_low_dependence_high_grey_level_emphasis":    ldhge / ns,
		"ngldm_high_dependence_low_grey_level_emphasis":    hdlge / ns,
		"ngldm_high_dependence_high_grey_level_emphasis":   hdhge / ns,
		"ngldm_grey_level_non_uniformity":                  glnu / ns,
		"ngldm_grey_level_non_uniformity_normalized":       glnu / (ns * ns),
		"ngldm_dependence_count_non_uniformity":            dcnu / ns,
		"ngldm_dependence_count_non_uniformity_normalized": dcnu / (ns * ns),
		"ngldm_dependence_count_variance":                  dcVar,
		"ngldm_grey_level_variance":                        glVar,
		"ngldm_dependence_count_entropy":                   ent,
		"ngldm_dependence_count_energy":                    energy,
	}
	if m.nv > 0 {
		f["ngldm_dependence_count_percentage"] = ns / float64(m.nv)
	} else {
		f["ngldm_dependence_count_percentage"] = 0
	}
	return f
}
