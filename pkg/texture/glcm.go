package texture

import (
	"math"

	"radiomica/pkg/discretize"
)

// glcmMatrix holds co-occurrence counts for gray-level pairs.
type glcmMatrix struct {
	c  []float64
	ng int
}

func newGLCMMatrix(ng int) *glcmMatrix {
	return &glcmMatrix{c: make([]float64, ng*ng), ng: ng}
}

func (m *glcmMatrix) add(o *glcmMatrix) {
	for i, v := range o.c {
		m.c[i] += v
	}
}

func (m *glcmMatrix) total() float64 {
	var t float64
	for _, v := range m.c {
		t += v
	}
	return t
}

// accumulateGLCM counts gray-level pairs at the given offset within one z
// range. Symmetric accumulation counts each pair in both orientations.
func accumulateGLCM(d *discretize.Discrete, m *glcmMatrix, z0, z1 int, dir [3]int, symmetric bool) {
	dims := d.Dims
	for z := z0; z < z1; z++ {
		nz := z + dir[2]
		if nz < z0 || nz >= z1 {
			continue
		}
		for y := 0; y < dims.Y; y++ {
			ny := y + dir[1]
			if ny < 0 || ny >= dims.Y {
				continue
			}
			for x := 0; x < dims.X; x++ {
				nx := x + dir[0]
				if nx < 0 || nx >= dims.X {
					continue
				}
				i := d.Levels[dims.Index(x, y, z)]
				j := d.Levels[dims.Index(nx, ny, nz)]
				if i < 0 || j < 0 {
					continue
				}
				m.c[i*m.ng+j]++
				if symmetric {
					m.c[j*m.ng+i]++
				}
			}
		}
	}
}

// GLCMFeatures computes the co-occurrence feature set of a discretized
// volume under the given aggregation. Pairs are counted at unit offset along
// the 13 3D directions, or the 4 in-plane directions for 2D scopes.
func GLCMFeatures(d *discretize.Discrete, agg Aggregation, symmetric bool) (map[string]float64, error) {
	if err := checkInput(d); err != nil {
		return nil, err
	}
	dirs := directions3D
	if agg.is2D() {
		dirs = directions2D
	}

	var mats []*glcmMatrix
	for _, zr := range sliceRange(d, agg.is2D()) {
		for _, dir := range dirs {
			m := newGLCMMatrix(d.Ng)
			accumulateGLCM(d, m, zr[0], zr[1], dir, symmetric)
			mats = append(mats, m)
		}
	}

	if agg == Slice2DMerged || agg == Volume3DMerged {
		merged := newGLCMMatrix(d.Ng)
		for _, m := range mats {
			merged.add(m)
		}
		if merged.total() == 0 {
			return nil, &InsufficientDataError{Detail: "no co-occurring voxel pairs in scope"}
		}
		return glcmFeatureMap(merged), nil
	}

	var maps []map[string]float64
	for _, m := range mats {
		if m.total() == 0 {
			continue
		}
		maps = append(maps, glcmFeatureMap(m))
	}
	if len(maps) == 0 {
		return nil, &InsufficientDataError{Detail: "no co-occurring voxel pairs in scope"}
	}
	return averageMaps(maps), nil
}

// glcmFeatureMap reduces one matrix to its scalar features. Formulas operate
// on the normalized joint distribution; gray values are 1-based.
func glcmFeatureMap(m *glcmMatrix) map[string]float64 {
	ng := m.ng
	total := m.total()
	p := make([]float64, len(m.c))
	for i, v := range m.c {
		p[i] = v / total
	}

	px := make([]float64, ng)
	py := make([]float64, ng)
	for i := 0; i < ng; i++ {
		for j := 0; j < ng; j++ {
			px[i] += p[i*ng+j]
			py[j] += p[i*ng+j]
		}
	}

	// Diagonal (difference) and cross-diagonal (sum) distributions.
	pDiff := make([]float64, ng)
	pSum := make([]float64, 2*ng-1) // index k-2 for k = i+j in [2, 2Ng]
	for i := 0; i < ng; i++ {
		for j := 0; j < ng; j++ {
			pDiff[abs(i-j)] += p[i*ng+j]
			pSum[i+j] += p[i*ng+j]
		}
	}

	var muX, muY float64
	for i := 0; i < ng; i++ {
		muX += float64(i+1) * px[i]
		muY += float64(i+1) * py[i]
	}
	var sigX, sigY float64
	for i := 0; i < ng; i++ {
		sigX += (float64(i+1) - muX) * (float64(i+1) - muX) * px[i]
		sigY += (float64(i+1) - muY) * (float64(i+1) - muY) * py[i]
	}
	sigX = math.Sqrt(sigX)
	sigY = math.Sqrt(sigY)

	f := make(map[string]float64, 25)

	var (
		jointMax, jointAvg, jointEnt    float64
		asm, contrast, dissim           float64
		invDiff, invDiffNorm, idm, idmn float64
		invVar                          float64
		autocorr, crossTerm             float64
		clusterT, clusterS, clusterP    float64
		hxy1, hxy2                      float64
	)
	for i := 0; i < ng; i++ {
		for j := 0; j < ng; j++ {
			pij := p[i*ng+j]
			gi, gj := float64(i+1), float64(j+1)
			diff := math.Abs(gi - gj)
			if pij > jointMax {
				jointMax = pij
			}
			jointAvg += gi * pij
			jointEnt -= plog2p(pij)
			asm += pij * pij
			contrast += diff * diff * pij
			dissim += diff * pij
			invDiff += pij / (1 + diff)
			invDiffNorm += pij / (1 + diff/float64(ng))
			idm += pij / (1 + diff*diff)
			idmn += pij / (1 + diff*diff/float64(ng*ng))
			if i != j {
				invVar += pij / (diff * diff)
			}
			autocorr += gi * gj * pij
			crossTerm += (gi - muX) * (gj - muY) * pij
			dev := gi + gj - muX - muY
			clusterT += dev * dev * pij
			clusterS += dev * dev * dev * pij
			clusterP += dev * dev * dev * dev * pij
			if pij > 0 && px[i] > 0 && py[j] > 0 {
				hxy1 -= pij * math.Log2(px[i]*py[j])
			}
			if px[i] > 0 && py[j] > 0 {
				hxy2 -= px[i] * py[j] * math.Log2(px[i]*py[j])
			}
		}
	}

	var jointVar float64
	for i := 0; i < ng; i++ {
		for j := 0; j < ng; j++ {
			gi := float64(i + 1)
			jointVar += (gi - jointAvg) * (gi - jointAvg) * p[i*ng+j]
		}
	}

	var diffAvg, diffVar, diffEnt float64
	for k, pk := range pDiff {
		diffAvg += float64(k) * pk
	}
	for k, pk := range pDiff {
		diffVar += (float64(k) - diffAvg) * (float64(k) - diffAvg) * pk
		diffEnt -= plog2p(pk)
	}

	var sumAvg, sumVar, sumEnt float64
	for k, pk := range pSum {
		sumAvg += float64(k+2) * pk
	}
	for k, pk := range pSum {
		sumVar += (float64(k+2) - sumAvg) * (float64(k+2) - sumAvg) * pk
		sumEnt -= plog2p(pk)
	}

	var hx, hy float64
	for i := 0; i < ng; i++ {
		hx -= plog2p(px[i])
		hy -= plog2p(py[i])
	}

	f["glcm_joint_maximum"] = jointMax
	f["glcm_joint_average"] = jointAvg
	f["glcm_joint_variance"] = jointVar
	f["glcm_joint_entropy"] = jointEnt
	f["glcm_angular_second_moment"] = asm
	f["glcm_contrast"] = contrast
	f["glcm_dissimilarity"] = dissim
	f["glcm_inverse_difference"] = invDiff
	f["glcm_inverse_difference_normalized"] = invDiffNorm
	f["glcm_inverse_difference_moment"] = idm
	f["glcm_inverse_difference_moment_normalized"] = idmn
	f["glcm_inverse_variance"] = invVar
	f["glcm_autocorrelation"] = autocorr
	f["glcm_cluster_tendency"] = clusterT
	f["glcm_cluster_shade"] = clusterS
	f["glcm_cluster_prominence"] = clusterP
	f["glcm_sum_average"] = sumAvg
	f["glcm_sum_variance"] = sumVar
	f["glcm_sum_entropy"] = sumEnt
	f["glcm_difference_average"] = diffAvg
	f["glcm_difference_variance"] = diffVar
	f["glcm_difference_entropy"] = diffEnt

	if sigX > 0 && sigY > 0 {
		f["glcm_correlation"] = crossTerm / (sigX * sigY)
	} else {
		f["glcm_correlation"] = 0
	}
	if hmax := math.Max(hx, hy); hmax > 0 {
		f["glcm_information_correlation_1"] = (jointEnt - hxy1) / hmax
	} else {
		f["glcm_information_correlation_1"] = 0
	}
	if hxy2 >= jointEnt {
		f["glcm_information_correlation_2"] = math.Sqrt(1 - math.Exp(-2*(hxy2-jointEnt)))
	} else {
		f["glcm_information_correlation_2"] = 0
	}
	return f
}
