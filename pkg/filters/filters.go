// Package filters implements the IBSI chapter 2 spatial filter bank: mean,
// Laplacian-of-Gaussian, Laws kernels with energy pooling, stationary
// wavelet decomposition and Gabor filtering. Every filter maps a volume to a
// response map of identical shape; response maps are re-fed into
// discretization and texture analysis by the extraction pipeline.
//
// Padding and normalization follow the IBSI reference conventions, which is
// the highest-risk correctness surface of the whole system: each benchmark
// case prescribes its own padding mode and the response values must match
// the published constants.
package filters

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"radiomica/pkg/volume"
)

// Kind enumerates the supported filter types.
type Kind string

const (
	KindMean    Kind = "mean"
	KindLoG     Kind = "log"
	KindLaws    Kind = "laws"
	KindWavelet Kind = "wavelet"
	KindGabor   Kind = "gabor"
)

// BadSpecError reports an invalid or unknown filter specification.
type BadSpecError struct {
	Detail string
}

func (e *BadSpecError) Error() string {
	return "invalid filter spec: " + e.Detail
}

// Spec describes one filter application. Only the fields of the selected
// kind are read.
type Spec struct {
	Kind    Kind
	Padding Padding

	// Mean filter.
	Radius int

	// Laplacian-of-Gaussian. SigmaMM is in millimetres and converted to
	// voxel units per axis; Cutoff truncates the kernel at Cutoff·sigma
	// (0 means the default of 4).
	SigmaMM float64
	Cutoff  float64

	// Laws. Name such as "L5E5S5" (two letters and a digit per axis);
	// Normalize scales each 1D kernel to unit Euclidean norm. Energy
	// enables the pooling pass over a Chebyshev window of EnergyDelta.
	Name        string
	Normalize   bool
	Energy      bool
	EnergyDelta int
	EnergyL2    bool

	// Wavelet. Family is one of haar, db2, coif1; SubBand is a string of
	// L/H letters per axis such as "LLH"; Level counts decompositions.
	Family  string
	SubBand string
	Level   int

	// Gabor. Wavelength (lambda) and sigma in millimetres, Gamma is the
	// spatial aspect ratio, Theta the orientation in radians. ThreeD
	// requests true 3D application, valid only on isotropic grids.
	Lambda float64
	Gamma  float64
	Theta  float64
	ThreeD bool
}

// Label renders the spec in a compact form used for result naming.
func (s Spec) Label() string {
	switch s.Kind {
	case KindMean:
		return fmt.Sprintf("mean_r%d", s.Radius)
	case KindLoG:
		return fmt.Sprintf("log_s%g", s.SigmaMM)
	case KindLaws:
		if s.Energy {
			return fmt.Sprintf("laws_%s_energy", s.Name)
		}
		return "laws_" + s.Name
	case KindWavelet:
		return fmt.Sprintf("wavelet_%s_%s", s.Family, s.SubBand)
	case KindGabor:
		return fmt.Sprintf("gabor_l%g_t%g", s.Lambda, s.Theta)
	}
	return string(s.Kind)
}

// Apply runs the filter described by the spec over the volume and returns
// the response map on the same grid.
func Apply(v *volume.Volume, spec Spec) (*volume.Volume, error) {
	switch spec.Kind {
	case KindMean:
		return meanFilter(v, spec)
	case KindLoG:
		return logFilter(v, spec)
	case KindLaws:
		return lawsFilter(v, spec)
	case KindWavelet:
		return waveletFilter(v, spec)
	case KindGabor:
		return gaborFilter(v, spec)
	}
	return nil, errors.WithStack(&BadSpecError{Detail: fmt.Sprintf("unknown filter kind %q", spec.Kind)})
}

// response wraps a raw data array in a volume sharing the input geometry.
func response(v *volume.Volume, data []float64) *volume.Volume {
	return &volume.Volume{Data: data, Dims: v.Dims, Spacing: v.Spacing, Origin: v.Origin}
}

// gaussianKernel samples a normalized Gaussian at integer offsets,
// truncated at cutoff·sigma. Sigma is in voxel units.
func gaussianKernel(sigma, cutoff float64) []float64 {
	r := int(math.Ceil(cutoff * sigma))
	if r < 1 {
		r = 1
	}
	k := make([]float64, 2*r+1)
	sum := 0.0
	for i := -r; i <= r; i++ {
		g := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+r] = g
		sum += g
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}
