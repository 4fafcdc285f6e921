package filters

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"radiomica/pkg/volume"
)

// lawsKernels is the fixed bank of 1D Laws kernels: level, edge, spot, wave
// and ripple detectors at lengths 3 and 5.
var lawsKernels = map[string][]float64{
	"L3": {1, 2, 1},
	"E3": {-1, 0, 1},
	"S3": {-1, 2, -1},
	"L5": {1, 4, 6, 4, 1},
	"E5": {-1, -2, 0, 2, 1},
	"S5": {-1, 0, 2, 0, -1},
	"W5": {-1, 2, 0, -2, 1},
	"R5": {1, -4, 6, -4, 1},
}

// lawsFilter convolves the volume with the outer product of three named 1D
// Laws kernels, one per axis, e.g. "L5E5S5". When Energy is set a second,
// explicit pooling pass computes the local L1 or L2 energy over a Chebyshev
// window of radius EnergyDelta.
func lawsFilter(v *volume.Volume, spec Spec) (*volume.Volume, error) {
	names, err := splitLawsName(spec.Name)
	if err != nil {
		return nil, err
	}
	kernels := make([][]float64, 3)
	for i, name := range names {
		k, ok := lawsKernels[name]
		if !ok {
			return nil, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("unknown Laws kernel %q", name)})
		}
		if spec.Normalize {
			k = normalizeL2(k)
		}
		kernels[i] = k
	}

	out := convolveSeparable(v.Data, v.Dims, kernels[0], kernels[1], kernels[2], spec.Padding)
	if spec.Energy {
		delta := spec.EnergyDelta
		if delta <= 0 {
			delta = 7
		}
		out = energyPool(out, v.Dims, delta, spec.EnergyL2, spec.Padding)
	}
	return response(v, out), nil
}

// splitLawsName cuts a combined kernel name such as "L5E5S5" into its three
// per-axis parts.
func splitLawsName(name string) ([3]string, error) {
	var parts [3]string
	if len(name) != 6 {
		return parts, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("Laws kernel name %q must name three kernels, e.g. L5E5S5", name)})
	}
	for i := 0; i < 3; i++ {
		parts[i] = name[2*i : 2*i+2]
	}
	return parts, nil
}

func normalizeL2(k []float64) []float64 {
	var ss float64
	for _, x := range k {
		ss += x * x
	}
	n := math.Sqrt(ss)
	out := make([]float64, len(k))
	for i, x := range k {
		out[i] = x / n
	}
	return out
}

// energyPool computes the mean absolute (L1) or root-mean-square (L2)
// response over a cubic window. Pooling is a separate stage on top of the
// convolution response, not fused into it.
func energyPool(data []float64, dims volume.Dims, delta int, l2 bool, pad Padding) []float64 {
	n := 2*delta + 1
	k := make([]float64, n)
	for i := range k {
		k[i] = 1 / float64(n)
	}
	tmp := make([]float64, len(data))
	if l2 {
		for i, x := range data {
			tmp[i] = x * x
		}
	} else {
		for i, x := range data {
			tmp[i] = math.Abs(x)
		}
	}
	out := convolveSeparable(tmp, dims, k, k, k, pad)
	if l2 {
		for i, x := range out {
			if x < 0 {
				x = 0
			}
			out[i] = math.Sqrt(x)
		}
	}
	return out
}
