// Package phantom provides small synthetic volumes with hand-computable
// feature values, used by the benchmark tests and the demo mode of the CLI.
package phantom

import (
	"math"

	"radiomica/pkg/volume"
)

// digitalValues holds the IBSI chapter 1 digital phantom intensities,
// indexed [z][y][x] on a 5x4x4 grid of 2 mm isotropic voxels.
var digitalValues = [4][4][5]float64{
	{
		{1, 4, 4, 1, 1},
		{1, 4, 6, 1, 1},
		{4, 1, 6, 4, 1},
		{4, 4, 6, 4, 1},
	},
	{
		{1, 4, 4, 1, 1},
		{1, 1, 6, 1, 1},
		{1, 1, 3, 1, 1},
		{4, 4, 6, 1, 1},
	},
	{
		{1, 4, 4, 1, 1},
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
		{1, 1, 6, 1, 1},
	},
	{
		{1, 4, 4, 1, 1},
		{1, 1, 1, 1, 1},
		{1, 1, 1, 1, 1},
		{1, 1, 6, 1, 1},
	},
}

// digitalExcluded lists the six voxels outside the phantom's ROI: two at
// the top right of the second slice and a 2x2 block at the bottom left of
// the last slice.
var digitalExcluded = [][3]int{
	{3, 0, 1}, {4, 0, 1},
	{0, 2, 3}, {1, 2, 3},
	{0, 3, 3}, {1, 3, 3},
}

// Digital returns the IBSI digital phantom: 5x4x4 voxels of 2 mm, six gray
// values used directly as levels, and a 74-voxel ROI. Feature values
// computed on it can be checked against the published reference values.
func Digital() (*volume.Volume, *volume.Mask) {
	dims := volume.Dims{X: 5, Y: 4, Z: 4}
	sp := volume.Spacing{X: 2, Y: 2, Z: 2}

	v, _ := volume.NewVolume(dims, sp, nil)
	m, _ := volume.NewMask(dims, sp, nil)
	for z := 0; z < dims.Z; z++ {
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				v.Set(x, y, z, digitalValues[z][y][x])
				m.Set(x, y, z, true)
			}
		}
	}
	for _, p := range digitalExcluded {
		m.Set(p[0], p[1], p[2], false)
	}
	return v, m
}

// Ramp returns a 6x2x1 volume whose intensity grows linearly along x in
// steps of 10 (both rows identical) together with a full mask. Under a
// six-bin discretization over [0, 50] every column maps to its own gray
// level, which makes the texture matrices small enough to enumerate by
// hand.
func Ramp() (*volume.Volume, *volume.Mask) {
	dims := volume.Dims{X: 6, Y: 2, Z: 1}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}

	v, _ := volume.NewVolume(dims, sp, nil)
	m, _ := volume.NewMask(dims, sp, nil)
	for y := 0; y < dims.Y; y++ {
		for x := 0; x < dims.X; x++ {
			v.Set(x, y, 0, float64(10*x))
			m.Set(x, y, 0, true)
		}
	}
	return v, m
}

// Checker returns a cube of the given side with alternating intensities lo
// and hi on the 3D checkerboard parity, fully masked. Useful for exercising
// neighborhood features on a volume with maximal local contrast.
func Checker(side int, lo, hi float64) (*volume.Volume, *volume.Mask) {
	dims := volume.Dims{X: side, Y: side, Z: side}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}

	v, _ := volume.NewVolume(dims, sp, nil)
	m, _ := volume.NewMask(dims, sp, nil)
	for z := 0; z < side; z++ {
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				val := lo
				if (x+y+z)%2 == 1 {
					val = hi
				}
				v.Set(x, y, z, val)
				m.Set(x, y, z, true)
			}
		}
	}
	return v, m
}

// Sphere returns a cubic volume with a centered spherical ROI of the given
// radius in voxels. Intensities fall off with the distance from the center,
// so the volume carries usable texture in every direction.
func Sphere(side int, radius float64) (*volume.Volume, *volume.Mask) {
	dims := volume.Dims{X: side, Y: side, Z: side}
	sp := volume.Spacing{X: 1, Y: 1, Z: 1}

	v, _ := volume.NewVolume(dims, sp, nil)
	m, _ := volume.NewMask(dims, sp, nil)
	c := float64(side-1) / 2
	for z := 0; z < side; z++ {
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				dx, dy, dz := float64(x)-c, float64(y)-c, float64(z)-c
				r := math.Sqrt(dx*dx + dy*dy + dz*dz)
				v.Set(x, y, z, 100*math.Exp(-r*r/(2*radius*radius)))
				m.Set(x, y, z, r <= radius)
			}
		}
	}
	return v, m
}
