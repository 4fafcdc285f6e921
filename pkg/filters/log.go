package filters

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"radiomica/pkg/volume"
)

// logFilter applies the Laplacian-of-Gaussian. Sigma is given in physical
// units and converted to voxel units per axis, so the smoothing stays
// isotropic in physical space even on anisotropic grids. The Laplacian is
// the sum over axes of a second-derivative-of-Gaussian pass combined with
// plain Gaussian passes along the other two axes, each axis term scaled by
// 1/spacing^2 to express the derivative in physical units.
func logFilter(v *volume.Volume, spec Spec) (*volume.Volume, error) {
	if spec.SigmaMM <= 0 {
		return nil, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("LoG sigma %g must be positive", spec.SigmaMM)})
	}
	cutoff := spec.Cutoff
	if cutoff <= 0 {
		cutoff = 4
	}

	spacings := [3]float64{v.Spacing.X, v.Spacing.Y, v.Spacing.Z}
	var smooth, deriv [3][]float64
	for a := 0; a < 3; a++ {
		sigma := spec.SigmaMM / spacings[a]
		smooth[a] = gaussianKernel(sigma, cutoff)
		deriv[a] = gaussianSecondDerivative(sigma, cutoff)
	}

	acc := make([]float64, len(v.Data))
	for a := 0; a < 3; a++ {
		kx, ky, kz := smooth[0], smooth[1], smooth[2]
		switch a {
		case 0:
			kx = deriv[0]
		case 1:
			ky = deriv[1]
		case 2:
			kz = deriv[2]
		}
		term := convolveSeparable(v.Data, v.Dims, kx, ky, kz, spec.Padding)
		scale := 1 / (spacings[a] * spacings[a])
		for i, t := range term {
			acc[i] += t * scale
		}
	}
	return response(v, acc), nil
}

// gaussianSecondDerivative samples d²/dt² of a Gaussian at integer offsets.
// The kernel is forced to zero sum so that constant regions produce a zero
// response.
func gaussianSecondDerivative(sigma, cutoff float64) []float64 {
	r := int(math.Ceil(cutoff * sigma))
	if r < 1 {
		r = 1
	}
	k := make([]float64, 2*r+1)
	s2 := sigma * sigma
	norm := 1 / (math.Sqrt(2*math.Pi) * sigma)
	sum := 0.0
	for i := -r; i <= r; i++ {
		t2 := float64(i * i)
		g := norm * math.Exp(-t2/(2*s2))
		k[i+r] = g * (t2 - s2) / (s2 * s2)
		sum += k[i+r]
	}
	// Remove the residual DC component left by truncation.
	adj := sum / float64(len(k))
	for i := range k {
		k[i] -= adj
	}
	return k
}
