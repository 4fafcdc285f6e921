// Package interpolation resamples a volume and its mask onto a target voxel
// grid. Intensities support nearest, trilinear and tricubic (Keys cubic
// convolution) kernels; masks are restored to binary form by interpolating a
// continuous indicator and thresholding it, so that resampled ROI boundaries
// do not staircase.
package interpolation

import (
	"fmt"
	"math"

	"radiomica/pkg/volume"
)

// Method selects the interpolation kernel for intensities.
type Method int

const (
	Nearest Method = iota
	Trilinear
	Tricubic
)

// String returns the configuration name of the method.
func (m Method) String() string {
	switch m {
	case Nearest:
		return "nearest"
	case Trilinear:
		return "trilinear"
	case Tricubic:
		return "tricubic"
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// MaskMethod selects how the mask is carried onto the new grid.
type MaskMethod int

const (
	// MaskLinearThreshold interpolates the 0/1 indicator trilinearly and
	// thresholds it to restore a binary mask. This is the default.
	MaskLinearThreshold MaskMethod = iota
	// MaskNearest copies the nearest mask voxel.
	MaskNearest
)

// FillMode controls the value used for samples outside the input grid.
type FillMode int

const (
	// FillMinimum uses the global minimum of the input volume.
	FillMinimum FillMode = iota
	// FillConstant uses Options.FillValue.
	FillConstant
)

// Options configures a resampling run.
type Options struct {
	Method     Method
	MaskMethod MaskMethod
	// MaskThreshold restores the binary mask from the interpolated
	// indicator; 0 means the default of 0.5.
	MaskThreshold float64
	Fill          FillMode
	FillValue     float64
}

// Resample maps the volume and mask onto a grid with the target spacing.
// The output grid shares its physical center with the input grid, which
// preserves the ROI bounding box location. Out-of-grid samples take the
// configured fill value, never an implicit zero.
func Resample(v *volume.Volume, m *volume.Mask, target volume.Spacing, opts Options) (*volume.Volume, *volume.Mask, error) {
	if err := volume.CheckGeometry(v, m); err != nil {
		return nil, nil, err
	}
	if !target.Valid() {
		return nil, nil, &volume.GeometryError{Op: "Resample", Detail: fmt.Sprintf("non-positive target spacing %+v", target)}
	}

	out := volume.Dims{
		X: outDim(v.Dims.X, v.Spacing.X, target.X),
		Y: outDim(v.Dims.Y, v.Spacing.Y, target.Y),
		Z: outDim(v.Dims.Z, v.Spacing.Z, target.Z),
	}

	fill := opts.FillValue
	if opts.Fill == FillMinimum {
		fill = math.Inf(1)
		for _, x := range v.Data {
			if x < fill {
				fill = x
			}
		}
		if math.IsInf(fill, 1) {
			fill = 0
		}
	}

	rv, err := volume.NewVolume(out, target, nil)
	if err != nil {
		return nil, nil, err
	}
	rv.Origin = v.Origin

	src := &grid{data: v.Data, dims: v.Dims, fill: fill}
	for z := 0; z < out.Z; z++ {
		wz := sourceCoord(z, v.Dims.Z, v.Spacing.Z, out.Z, target.Z)
		for y := 0; y < out.Y; y++ {
			wy := sourceCoord(y, v.Dims.Y, v.Spacing.Y, out.Y, target.Y)
			for x := 0; x < out.X; x++ {
				wx := sourceCoord(x, v.Dims.X, v.Spacing.X, out.X, target.X)
				var val float64
				switch opts.Method {
				case Nearest:
					val = src.nearest(wx, wy, wz)
				case Tricubic:
					val = src.tricubic(wx, wy, wz)
				default:
					val = src.trilinear(wx, wy, wz)
				}
				rv.Set(x, y, z, val)
			}
		}
	}

	rm, err := resampleMask(m, out, target, opts)
	if err != nil {
		return nil, nil, err
	}
	return rv, rm, nil
}

func resampleMask(m *volume.Mask, out volume.Dims, target volume.Spacing, opts Options) (*volume.Mask, error) {
	rm, err := volume.NewMask(out, target, nil)
	if err != nil {
		return nil, err
	}
	threshold := opts.MaskThreshold
	if threshold == 0 {
		threshold = 0.5
	}

	ind := make([]float64, m.Dims.Count())
	for i, set := range m.Data {
		if set {
			ind[i] = 1
		}
	}
	src := &grid{data: ind, dims: m.Dims, fill: 0}

	for z := 0; z < out.Z; z++ {
		wz := sourceCoord(z, m.Dims.Z, m.Spacing.Z, out.Z, target.Z)
		for y := 0; y < out.Y; y++ {
			wy := sourceCoord(y, m.Dims.Y, m.Spacing.Y, out.Y, target.Y)
			for x := 0; x < out.X; x++ {
				wx := sourceCoord(x, m.Dims.X, m.Spacing.X, out.X, target.X)
				var set bool
				if opts.MaskMethod == MaskNearest {
					set = src.nearest(wx, wy, wz) > 0.5
				} else {
					set = src.trilinear(wx, wy, wz) >= threshold
				}
				rm.Set(x, y, z, set)
			}
		}
	}
	return rm, nil
}

// outDim computes the output extent so the physical field of view is
// covered: ceil(n*spacing/target).
func outDim(n int, spacing, target float64) int {
	d := int(math.Ceil(float64(n) * spacing / target))
	if d < 1 {
		d = 1
	}
	return d
}

// sourceCoord maps output voxel index i to a continuous input index, with
// both grids aligned on their physical centers.
func sourceCoord(i, nIn int, sIn float64, nOut int, sOut float64) float64 {
	cIn := float64(nIn) * sIn / 2
	cOut := float64(nOut) * sOut / 2
	p := (float64(i)+0.5)*sOut + (cIn - cOut)
	return p/sIn - 0.5
}

// grid samples a 3D array at continuous coordinates with a fill value
// outside the extent.
type grid struct {
	data []float64
	dims volume.Dims
	fill float64
}

func (g *grid) at(x, y, z int) float64 {
	if !g.dims.Inside(x, y, z) {
		return g.fill
	}
	return g.data[g.dims.Index(x, y, z)]
}

func (g *grid) nearest(x, y, z float64) float64 {
	return g.at(int(math.Round(x)), int(math.Round(y)), int(math.Round(z)))
}

func (g *grid) trilinear(x, y, z float64) float64 {
	x0, y0, z0 := int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z))
	fx, fy, fz := x-float64(x0), y-float64(y0), z-float64(z0)

	var acc float64
	for dz := 0; dz <= 1; dz++ {
		wz := 1 - fz
		if dz == 1 {
			wz = fz
		}
		for dy := 0; dy <= 1; dy++ {
			wy := 1 - fy
			if dy == 1 {
				wy = fy
			}
			for dx := 0; dx <= 1; dx++ {
				wx := 1 - fx
				if dx == 1 {
					wx = fx
				}
				acc += wx * wy * wz * g.at(x0+dx, y0+dy, z0+dz)
			}
		}
	}
	return acc
}

func (g *grid) tricubic(x, y, z float64) float64 {
	x0, y0, z0 := int(math.Floor(x)), int(math.Floor(y)), int(math.Floor(z))
	fx, fy, fz := x-float64(x0), y-float64(y0), z-float64(z0)

	var wx, wy, wz [4]float64
	cubicWeights(fx, &wx)
	cubicWeights(fy, &wy)
	cubicWeights(fz, &wz)

	var acc float64
	for dz := -1; dz <= 2; dz++ {
		for dy := -1; dy <= 2; dy++ {
			for dx := -1; dx <= 2; dx++ {
				w := wx[dx+1] * wy[dy+1] * wz[dz+1]
				if w == 0 {
					continue
				}
				acc += w * g.at(x0+dx, y0+dy, z0+dz)
			}
		}
	}
	return acc
}

// cubicWeights fills the four tap weights of the Keys cubic convolution
// kernel (a = -0.5) for fractional offset t in [0, 1).
func cubicWeights(t float64, w *[4]float64) {
	const a = -0.5
	// Taps at offsets -1, 0, 1, 2 relative to the floor coordinate.
	d := [4]float64{1 + t, t, 1 - t, 2 - t}
	for i, h := range d {
		h = math.Abs(h)
		switch {
		case h < 1:
			w[i] = (a+2)*h*h*h - (a+3)*h*h + 1
		case h < 2:
			w[i] = a*h*h*h - 5*a*h*h + 8*a*h - 4*a
		default:
			w[i] = 0
		}
	}
}
