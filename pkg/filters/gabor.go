package filters

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/pkg/errors"

	"radiomica/pkg/volume"
)

// gaborFilter applies an oriented sinusoidal-Gaussian kernel and returns the
// modulus of the complex response. The filter runs per axial slice unless
// ThreeD is requested; a 3D request is only honored on isotropic grids,
// since the kernel orientation is defined in physical space.
//
// Periodic padding goes through the 2D FFT, where circular convolution is
// exact; every other padding mode convolves spatially.
func gaborFilter(v *volume.Volume, spec Spec) (*volume.Volume, error) {
	if spec.SigmaMM <= 0 || spec.Lambda <= 0 {
		return nil, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("Gabor sigma %g and wavelength %g must be positive", spec.SigmaMM, spec.Lambda)})
	}
	gamma := spec.Gamma
	if gamma <= 0 {
		gamma = 1
	}
	cutoff := spec.Cutoff
	if cutoff <= 0 {
		cutoff = 4
	}

	if spec.ThreeD {
		if !isotropic(v.Spacing) {
			return nil, errors.WithStack(&BadSpecError{Detail: "3D Gabor requires an isotropic grid; resample first or use per-slice application"})
		}
		return gabor3D(v, spec, gamma, cutoff)
	}
	return gabor2D(v, spec, gamma, cutoff)
}

func isotropic(s volume.Spacing) bool {
	rel := func(a, b float64) float64 { return math.Abs(a-b) / math.Max(a, b) }
	return rel(s.X, s.Y) < 1e-6 && rel(s.X, s.Z) < 1e-6
}

// gaborKernel2D samples the complex Gabor kernel on the in-plane grid.
func gaborKernel2D(spec Spec, gamma, cutoff, sx, sy float64) (k []complex128, rx, ry int) {
	rx = int(math.Ceil(cutoff * spec.SigmaMM / sx))
	ry = int(math.Ceil(cutoff * spec.SigmaMM / sy))
	if rx < 1 {
		rx = 1
	}
	if ry < 1 {
		ry = 1
	}
	sin, cos := math.Sincos(spec.Theta)
	s2 := 2 * spec.SigmaMM * spec.SigmaMM
	k = make([]complex128, (2*rx+1)*(2*ry+1))
	for dy := -ry; dy <= ry; dy++ {
		ymm := float64(dy) * sy
		for dx := -rx; dx <= rx; dx++ {
			xmm := float64(dx) * sx
			xr := xmm*cos + ymm*sin
			yr := -xmm*sin + ymm*cos
			env := math.Exp(-(xr*xr + gamma*gamma*yr*yr) / s2)
			phase := 2 * math.Pi * xr / spec.Lambda
			k[(dy+ry)*(2*rx+1)+(dx+rx)] = complex(env*math.Cos(phase), env*math.Sin(phase))
		}
	}
	return k, rx, ry
}

func gabor2D(v *volume.Volume, spec Spec, gamma, cutoff float64) (*volume.Volume, error) {
	w, h := v.Dims.X, v.Dims.Y
	kernel, rx, ry := gaborKernel2D(spec, gamma, cutoff, v.Spacing.X, v.Spacing.Y)
	kw := 2*rx + 1

	out := make([]float64, len(v.Data))
	plane := make([]float64, w*h)
	for z := 0; z < v.Dims.Z; z++ {
		copy(plane, v.Data[z*w*h:(z+1)*w*h])

		if spec.Padding == PadPeriodic {
			resp := circularConvolve2D(plane, w, h, kernel, rx, ry)
			for i, c := range resp {
				out[z*w*h+i] = cmplx.Abs(c)
			}
			continue
		}

		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var acc complex128
				for dy := -ry; dy <= ry; dy++ {
					sy, oky := padIndex(y-dy, h, spec.Padding)
					if !oky {
						continue
					}
					for dx := -rx; dx <= rx; dx++ {
						sx, okx := padIndex(x-dx, w, spec.Padding)
						if !okx {
							continue
						}
						acc += kernel[(dy+ry)*kw+(dx+rx)] * complex(plane[sy*w+sx], 0)
					}
				}
				out[z*w*h+y*w+x] = cmplx.Abs(acc)
			}
		}
	}
	return response(v, out), nil
}

func gabor3D(v *volume.Volume, spec Spec, gamma, cutoff float64) (*volume.Volume, error) {
	s := v.Spacing.X
	r := int(math.Ceil(cutoff * spec.SigmaMM / s))
	if r < 1 {
		r = 1
	}
	sin, cos := math.Sincos(spec.Theta)
	s2 := 2 * spec.SigmaMM * spec.SigmaMM
	n := 2*r + 1
	kernel := make([]complex128, n*n*n)
	for dz := -r; dz <= r; dz++ {
		zmm := float64(dz) * s
		for dy := -r; dy <= r; dy++ {
			ymm := float64(dy) * s
			for dx := -r; dx <= r; dx++ {
				xmm := float64(dx) * s
				xr := xmm*cos + ymm*sin
				yr := -xmm*sin + ymm*cos
				env := math.Exp(-(xr*xr + gamma*gamma*(yr*yr+zmm*zmm)) / s2)
				phase := 2 * math.Pi * xr / spec.Lambda
				kernel[((dz+r)*n+(dy+r))*n+(dx+r)] = complex(env*math.Cos(phase), env*math.Sin(phase))
			}
		}
	}

	out := make([]float64, len(v.Data))
	for z := 0; z < v.Dims.Z; z++ {
		for y := 0; y < v.Dims.Y; y++ {
			for x := 0; x < v.Dims.X; x++ {
				var acc complex128
				for dz := -r; dz <= r; dz++ {
					sz, okz := padIndex(z-dz, v.Dims.Z, spec.Padding)
					if !okz {
						continue
					}
					for dy := -r; dy <= r; dy++ {
						sy, oky := padIndex(y-dy, v.Dims.Y, spec.Padding)
						if !oky {
							continue
						}
						for dx := -r; dx <= r; dx++ {
							sx, okx := padIndex(x-dx, v.Dims.X, spec.Padding)
							if !okx {
								continue
							}
							acc += kernel[((dz+r)*n+(dy+r))*n+(dx+r)] * complex(v.At(sx, sy, sz), 0)
						}
					}
				}
				out[v.Dims.Index(x, y, z)] = cmplx.Abs(acc)
			}
		}
	}
	return response(v, out), nil
}
