package filters

import (
	"fmt"

	"radiomica/pkg/volume"
)

// Padding selects how samples beyond the volume extent are synthesized
// during convolution. Benchmark compliance requires matching the reference
// padding mode of each test case exactly.
type Padding int

const (
	PadZero Padding = iota
	PadReflect
	PadNearest
	PadPeriodic
)

// String returns the configuration name of the padding mode.
func (p Padding) String() string {
	switch p {
	case PadZero:
		return "zero"
	case PadReflect:
		return "reflect"
	case PadNearest:
		return "nearest"
	case PadPeriodic:
		return "periodic"
	}
	return fmt.Sprintf("padding(%d)", int(p))
}

// padIndex maps a possibly out-of-range index onto [0, n-1] according to the
// padding mode. ok is false only for zero padding, where the sample
// contributes nothing.
func padIndex(i, n int, pad Padding) (int, bool) {
	if i >= 0 && i < n {
		return i, true
	}
	switch pad {
	case PadZero:
		return 0, false
	case PadNearest:
		if i < 0 {
			return 0, true
		}
		return n - 1, true
	case PadPeriodic:
		i %= n
		if i < 0 {
			i += n
		}
		return i, true
	case PadReflect:
		if n == 1 {
			return 0, true
		}
		// Mirror without repeating the edge sample: period 2n-2.
		period := 2*n - 2
		i %= period
		if i < 0 {
			i += period
		}
		if i >= n {
			i = period - i
		}
		return i, true
	}
	return 0, false
}

// axis identifiers for separable passes.
const (
	axisX = 0
	axisY = 1
	axisZ = 2
)

// convolveAxis convolves the volume with a 1D kernel along one axis.
// The kernel origin is its center index; dilation d inserts d-1 zeros
// between taps (used by stationary wavelet levels beyond the first).
func convolveAxis(data []float64, dims volume.Dims, kernel []float64, origin, axis int, pad Padding, dilation int) []float64 {
	if dilation < 1 {
		dilation = 1
	}
	out := make([]float64, len(data))

	var n, strideA int
	switch axis {
	case axisX:
		n, strideA = dims.X, 1
	case axisY:
		n, strideA = dims.Y, dims.X
	default:
		n, strideA = dims.Z, dims.X*dims.Y
	}

	line := make([]float64, n)
	res := make([]float64, n)

	// Iterate every line parallel to the axis.
	forEachLine(dims, axis, func(base int) {
		for i := 0; i < n; i++ {
			line[i] = data[base+i*strideA]
		}
		for i := 0; i < n; i++ {
			var acc float64
			for k, w := range kernel {
				if w == 0 {
					continue
				}
				// Convolution: the kernel is flipped relative to the signal.
				j := i - (k-origin)*dilation
				src, ok := padIndex(j, n, pad)
				if !ok {
					continue
				}
				acc += w * line[src]
			}
			res[i] = acc
		}
		for i := 0; i < n; i++ {
			out[base+i*strideA] = res[i]
		}
	})
	return out
}

// forEachLine invokes fn with the flat base index of every line parallel to
// the given axis.
func forEachLine(dims volume.Dims, axis int, fn func(base int)) {
	switch axis {
	case axisX:
		for z := 0; z < dims.Z; z++ {
			for y := 0; y < dims.Y; y++ {
				fn(dims.Index(0, y, z))
			}
		}
	case axisY:
		for z := 0; z < dims.Z; z++ {
			for x := 0; x < dims.X; x++ {
				fn(dims.Index(x, 0, z))
			}
		}
	default:
		for y := 0; y < dims.Y; y++ {
			for x := 0; x < dims.X; x++ {
				fn(dims.Index(x, y, 0))
			}
		}
	}
}

// convolveSeparable applies one 1D kernel per axis in X, Y, Z order.
func convolveSeparable(data []float64, dims volume.Dims, kx, ky, kz []float64, pad Padding) []float64 {
	out := convolveAxis(data, dims, kx, len(kx)/2, axisX, pad, 1)
	out = convolveAxis(out, dims, ky, len(ky)/2, axisY, pad, 1)
	out = convolveAxis(out, dims, kz, len(kz)/2, axisZ, pad, 1)
	return out
}
