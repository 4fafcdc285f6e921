// Package morphology computes shape features of the region of interest:
// voxel-counted volume, face-counted surface area, principal axis lengths
// from the eigenvalues of the ROI coordinate covariance, and the shift
// between the geometric and intensity-weighted centers of mass.
package morphology

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"radiomica/pkg/texture"
	"radiomica/pkg/volume"
)

// Features computes the morphology feature set of a masked volume.
func Features(v *volume.Volume, m *volume.Mask) (map[string]float64, error) {
	if err := volume.CheckGeometry(v, m); err != nil {
		return nil, err
	}
	n := m.Count()
	if n == 0 {
		return nil, &texture.InsufficientDataError{Detail: "empty mask"}
	}

	voxelVol := m.Spacing.X * m.Spacing.Y * m.Spacing.Z
	roiVolume := float64(n) * voxelVol

	// Surface area by counting exposed faces; each face contributes the
	// product of the two spacings spanning it.
	faceAreas := [3]float64{
		m.Spacing.Y * m.Spacing.Z,
		m.Spacing.X * m.Spacing.Z,
		m.Spacing.X * m.Spacing.Y,
	}
	steps := [][4]int{
		{1, 0, 0, 0}, {-1, 0, 0, 0},
		{0, 1, 0, 1}, {0, -1, 0, 1},
		{0, 0, 1, 2}, {0, 0, -1, 2},
	}
	var surface float64
	for i, set := range m.Data {
		if !set {
			continue
		}
		x, y, z := m.Dims.Coords(i)
		for _, s := range steps {
			nx, ny, nz := x+s[0], y+s[1], z+s[2]
			if !m.Dims.Inside(nx, ny, nz) || !m.At(nx, ny, nz) {
				surface += faceAreas[s[3]]
			}
		}
	}

	// Physical coordinates of the masked voxel centers.
	coords := make([][3]float64, 0, n)
	var geoC [3]float64
	var wC [3]float64
	var wSum float64
	for i, set := range m.Data {
		if !set {
			continue
		}
		x, y, z := m.Dims.Coords(i)
		p := [3]float64{
			float64(x) * m.Spacing.X,
			float64(y) * m.Spacing.Y,
			float64(z) * m.Spacing.Z,
		}
		coords = append(coords, p)
		w := v.Data[i]
		for a := 0; a < 3; a++ {
			geoC[a] += p[a]
			wC[a] += w * p[a]
		}
		wSum += w
	}
	for a := 0; a < 3; a++ {
		geoC[a] /= float64(n)
	}
	comShift := 0.0
	if wSum != 0 {
		var d2 float64
		for a := 0; a < 3; a++ {
			wC[a] /= wSum
			d := wC[a] - geoC[a]
			d2 += d * d
		}
		comShift = math.Sqrt(d2)
	}

	major, minor, least := axisLengths(coords, geoC)

	f := map[string]float64{
		"morph_volume":               roiVolume,
		"morph_surface_area":         surface,
		"morph_major_axis_length":    major,
		"morph_minor_axis_length":    minor,
		"morph_least_axis_length":    least,
		"morph_centre_of_mass_shift": comShift,
	}
	if roiVolume > 0 {
		f["morph_surface_to_volume_ratio"] = surface / roiVolume
	}
	if major > 0 {
		f["morph_elongation"] = math.Sqrt(minor / major)
		f["morph_flatness"] = math.Sqrt(least / major)
	} else {
		f["morph_elongation"] = 1
		f["morph_flatness"] = 1
	}
	return f, nil
}

// axisLengths computes the principal axis lengths 4*sqrt(eigenvalue) of the
// covariance of the centered ROI coordinates.
func axisLengths(coords [][3]float64, center [3]float64) (major, minor, least float64) {
	n := len(coords)
	if n < 2 {
		return 0, 0, 0
	}
	var cov [3][3]float64
	for _, p := range coords {
		var d [3]float64
		for a := 0; a < 3; a++ {
			d[a] = p[a] - center[a]
		}
		for a := 0; a < 3; a++ {
			for b := 0; b < 3; b++ {
				cov[a][b] += d[a] * d[b]
			}
		}
	}
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			cov[a][b] /= float64(n - 1)
		}
	}

	sym := mat.NewSymDense(3, []float64{
		cov[0][0], cov[0][1], cov[0][2],
		cov[0][1], cov[1][1], cov[1][2],
		cov[0][2], cov[1][2], cov[2][2],
	})
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return 0, 0, 0
	}
	ev := eig.Values(nil) // ascending order
	for i := range ev {
		if ev[i] < 0 {
			ev[i] = 0
		}
	}
	return 4 * math.Sqrt(ev[2]), 4 * math.Sqrt(ev[1]), 4 * math.Sqrt(ev[0])
}
