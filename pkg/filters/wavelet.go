package filters

import (
	"fmt"

	"github.com/pkg/errors"

	"radiomica/pkg/volume"
)

// Orthonormal decomposition low-pass filters. High-pass counterparts follow
// from the quadrature mirror relation.
var waveletLowPass = map[string][]float64{
	"haar": {
		0.7071067811865476, 0.7071067811865476,
	},
	"db2": {
		-0.12940952255126037, 0.22414386804201339,
		0.8365163037378079, 0.48296291314453416,
	},
	"coif1": {
		-0.015655728135465012, -0.07273261951285112,
		0.38486484686486083, 0.8525720202122554,
		0.33789766245780922, -0.07273261951285112,
	},
}

// qmfHighPass derives the decomposition high-pass filter from a low-pass
// filter: g[k] = (-1)^k h[L-1-k].
func qmfHighPass(lo []float64) []float64 {
	n := len(lo)
	hi := make([]float64, n)
	for k := 0; k < n; k++ {
		v := lo[n-1-k]
		if k%2 == 1 {
			v = -v
		}
		hi[k] = v
	}
	return hi
}

// waveletFilter computes one sub-band of an undecimated separable wavelet
// decomposition. The sub-band string names the low/high filter per axis
// ("LLH" applies low-pass along X and Y, high-pass along Z). Levels beyond
// the first cascade low-pass passes with a-trous dilated kernels before the
// sub-band filters are applied at the final dilation.
func waveletFilter(v *volume.Volume, spec Spec) (*volume.Volume, error) {
	lo, ok := waveletLowPass[spec.Family]
	if !ok {
		return nil, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("unknown wavelet family %q", spec.Family)})
	}
	hi := qmfHighPass(lo)

	band := spec.SubBand
	if len(band) != 3 {
		return nil, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("wavelet sub-band %q must name three axes, e.g. LLH", band)})
	}
	level := spec.Level
	if level <= 0 {
		level = 1
	}

	data := v.Data
	// Approximation cascade up to the requested level.
	for l := 1; l < level; l++ {
		dilation := 1 << (l - 1)
		for axis := 0; axis < 3; axis++ {
			data = convolveAxis(data, v.Dims, lo, len(lo)/2, axis, spec.Padding, dilation)
		}
	}

	dilation := 1 << (level - 1)
	for axis := 0; axis < 3; axis++ {
		var k []float64
		switch band[axis] {
		case 'L', 'l':
			k = lo
		case 'H', 'h':
			k = hi
		default:
			return nil, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("wavelet sub-band letter %q must be L or H", string(band[axis]))})
		}
		data = convolveAxis(data, v.Dims, k, len(k)/2, axis, spec.Padding, dilation)
	}
	return response(v, data), nil
}
