package texture

import (
	"radiomica/pkg/discretize"
)

// glrlmMatrix holds run counts indexed by gray level and run length.
type glrlmMatrix struct {
	c      []float64 // ng x maxRun
	ng     int
	maxRun int
	nv     int // valid voxels in scope, for run percentage
}

func newGLRLMMatrix(ng, maxRun, nv int) *glrlmMatrix {
	if maxRun < 1 {
		maxRun = 1
	}
	return &glrlmMatrix{c: make([]float64, ng*maxRun), ng: ng, maxRun: maxRun, nv: nv}
}

func (m *glrlmMatrix) addRun(level, length int) {
	m.c[level*m.maxRun+(length-1)]++
}

func (m *glrlmMatrix) add(o *glrlmMatrix) {
	for i := 0; i < o.ng; i++ {
		for j := 0; j < o.maxRun; j++ {
			m.c[i*m.maxRun+j] += o.c[i*o.maxRun+j]
		}
	}
}

func (m *glrlmMatrix) total() float64 {
	var t float64
	for _, v := range m.c {
		t += v
	}
	return t
}

// accumulateGLRLM traces maximal same-level runs along one direction within
// a z range. Runs break at excluded voxels and at scope borders.
func accumulateGLRLM(d *discretize.Discrete, m *glrlmMatrix, z0, z1 int, dir [3]int) {
	dims := d.Dims
	inScope := func(x, y, z int) bool {
		return x >= 0 && x < dims.X && y >= 0 && y < dims.Y && z >= z0 && z < z1
	}
	for z := z0; z < z1; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				level := d.Levels[dims.Index(x, y, z)]
				if level < 0 {
					continue
				}
				// Only start runs at voxels without a same-level
				// predecessor along the direction.
				px, py, pz := x-dir[0], y-dir[1], z-dir[2]
				if inScope(px, py, pz) && d.Levels[dims.Index(px, py, pz)] == level {
					continue
				}
				length := 1
				nx, ny, nz := x+dir[0], y+dir[1], z+dir[2]
				for inScope(nx, ny, nz) && d.Levels[dims.Index(nx, ny, nz)] == level {
					length++
					nx += dir[0]
					ny += dir[1]
					nz += dir[2]
				}
				m.addRun(level, length)
			}
		}
	}
}

// maxRunLength bounds the longest possible run in a scope.
func maxRunLength(d *discretize.Discrete, twoD bool) int {
	m := d.Dims.X
	if d.Dims.Y > m {
		m = d.Dims.Y
	}
	if !twoD && d.Dims.Z > m {
		m = d.Dims.Z
	}
	// Diagonal runs cannot exceed the longest axis either.
	return m
}

// GLRLMFeatures computes the run-length feature set of a discretized volume
// under the given aggregation.
func GLRLMFeatures(d *discretize.Discrete, agg Aggregation) (map[string]float64, error) {
	if err := checkInput(d); err != nil {
		return nil, err
	}
	dirs := directions3D
	if agg.is2D() {
		dirs = directions2D
	}
	maxRun := maxRunLength(d, agg.is2D())

	var mats []*glrlmMatrix
	for _, zr := range sliceRange(d, agg.is2D()) {
		nv := validVoxels(d, zr[0], zr[1])
		for _, dir := range dirs {
			m := newGLRLMMatrix(d.Ng, maxRun, nv)
			accumulateGLRLM(d, m, zr[0], zr[1], dir)
			mats = append(mats, m)
		}
	}

	if agg == Slice2DMerged || agg == Volume3DMerged {
		merged := newGLRLMMatrix(d.Ng, maxRun, 0)
		for _, m := range mats {
			merged.add(m)
			merged.nv += m.nv
		}
		// Each direction revisits every voxel, so the voxel total counts
		// once per direction in the merged scope.
		if merged.total() == 0 {
			return nil, &InsufficientDataError{Detail: "no runs in scope"}
		}
		return glrlmFeatureMap(merged), nil
	}

	var maps []map[string]float64
	for _, m := range mats {
		if m.total() == 0 {
			continue
		}
		maps = append(maps, glrlmFeatureMap(m))
	}
	if len(maps) == 0 {
		return nil, &InsufficientDataError{Detail: "no runs in scope"}
	}
	return averageMaps(maps), nil
}

func glrlmFeatureMap(m *glrlmMatrix) map[string]float64 {
	ns := m.total()
	ng, nr := m.ng, m.maxRun

	rowSum := make([]float64, ng) // per gray level
	colSum := make([]float64, nr) // per run length
	for i := 0; i < ng; i++ {
		for j := 0; j < nr; j++ {
			v := m.c[i*nr+j]
			rowSum[i] += v
			colSum[j] += v
		}
	}

	var (
		sre, lre, lglre, hglre         float64
		srlgle, srhgle, lrlgle, lrhgle float64
		glnu, rlnu                     float64
		muG, muR                       float64
		runEnt                         float64
	)
	for i := 0; i < ng; i++ {
		gi := float64(i + 1)
		lglre += rowSum[i] / (gi * gi)
		hglre += rowSum[i] * gi * gi
		glnu += rowSum[i] * rowSum[i]
	}
	for j := 0; j < nr; j++ {
		rj := float64(j + 1)
		sre += colSum[j] / (rj * rj)
		lre += colSum[j] * rj * rj
		rlnu += colSum[j] * colSum[j]
	}
	for i := 0; i < ng; i++ {
		gi := float64(i + 1)
		for j := 0; j < nr; j++ {
			v := m.c[i*nr+j]
			if v == 0 {
				continue
			}
			rj := float64(j + 1)
			p := v / ns
			srlgle += v / (gi * gi * rj * rj)
			srhgle += v * gi * gi / (rj * rj)
			lrlgle += v * rj * rj / (gi * gi)
			lrhgle += v * gi * gi * rj * rj
			muG += gi * p
			muR += rj * p
			runEnt -= plog2p(p)
		}
	}
	var glVar, rlVar float64
	for i := 0; i < ng; i++ {
		gi := float64(i + 1)
		for j := 0; j < nr; j++ {
			p := m.c[i*nr+j] / ns
			rj := float64(j + 1)
			glVar += (gi - muG) * (gi - muG) * p
			rlVar += (rj - muR) * (rj - muR) * p
		}
	}

	f := map[string]float64{
		"glrlm_short_runs_emphasis":                  sre / ns,
		"glrlm_long_runs_emphasis":                   lre / ns,
		"glrlm_low_grey_level_run_emphasis":          lglre / ns,
		"glrlm_high_grey_level_run_emphasis":         hglre / ns,
		"glrlm_short_run_low_grey_level_emphasis":    srlgle / ns,
		"glrlm_short_run_high_grey_level_emphasis":   srhgle / ns,
		"glrlm_long_run_low_grey_level_emphasis":     lrlgle / ns,
		"glrlm_long_run_high_grey_level_emphasis":    lrhgle / ns,
		"glrlm_grey_level_non_uniformity":            glnu / ns,
		"glrlm_grey_level_non_uniformity_normalized": glnu / (ns * ns),
		"glrlm_run_length_non_uniformity":            rlnu / ns,
		"glrlm_run_length_non_uniformity_normalized": rlnu / (ns * ns),
		"glrlm_grey_level_variance":                  glVar,
		"glrlm_run_length_variance":                  rlVar,
		"glrlm_run_entropy":                          runEnt,
	}
	if m.nv > 0 {
		f["glrlm_run_percentage"] = ns / float64(m.nv)
	} else {
		f["glrlm_run_percentage"] = 0
	}
	return f
}
