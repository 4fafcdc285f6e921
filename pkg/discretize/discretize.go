// Package discretize implements intensity re-segmentation and gray-level
// discretization. Re-segmentation restricts the analyzed intensity range
// before discretization; discretization maps the remaining continuous
// intensities onto a finite integer gray-level alphabet, either with a fixed
// number of bins or a fixed bin width.
package discretize

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"radiomica/pkg/volume"
)

// Mode selects the discretization rule.
type Mode int

const (
	// FixedBinNumber spreads a fixed number of bins over [Min, Max].
	FixedBinNumber Mode = iota
	// FixedBinSize uses bins of constant width anchored at Min.
	FixedBinSize
)

// String returns the conventional short name of the mode.
func (m Mode) String() string {
	switch m {
	case FixedBinNumber:
		return "fbn"
	case FixedBinSize:
		return "fbs"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Scheme describes one discretization of a volume. Min and Max bound the
// analyzed range; leave them NaN to derive them from the masked intensities.
type Scheme struct {
	Mode Mode
	// Bins is the bin count for FixedBinNumber.
	Bins int
	// Width is the bin width for FixedBinSize, in intensity units.
	Width float64
	// Min and Max bound the range. NaN derives the bound from the data.
	Min, Max float64
}

// NewFBN returns a fixed-bin-number scheme with data-derived bounds.
func NewFBN(bins int) Scheme {
	return Scheme{Mode: FixedBinNumber, Bins: bins, Min: math.NaN(), Max: math.NaN()}
}

// NewFBS returns a fixed-bin-size scheme with data-derived bounds.
func NewFBS(width float64) Scheme {
	return Scheme{Mode: FixedBinSize, Width: width, Min: math.NaN(), Max: math.NaN()}
}

// Label renders the scheme in a compact form used for result naming.
func (s Scheme) Label() string {
	if s.Mode == FixedBinNumber {
		return fmt.Sprintf("fbn%d", s.Bins)
	}
	return fmt.Sprintf("fbs%g", s.Width)
}

// DiscretizationError reports degenerate or invalid binning parameters.
type DiscretizationError struct {
	Detail string
}

func (e *DiscretizationError) Error() string {
	return "discretization error: " + e.Detail
}

// Excluded marks a voxel that carries no gray level, either because it lies
// outside the mask or outside the re-segmentation range.
const Excluded = -1

// Discrete is a discretized volume: integer gray levels in [0, Ng-1] for
// every included voxel and Excluded everywhere else.
type Discrete struct {
	Levels  []int
	Ng      int
	Dims    volume.Dims
	Spacing volume.Spacing
	Scheme  Scheme
	// Lo and Hi are the bounds actually used after derivation.
	Lo, Hi float64
}

// ValidCount returns the number of voxels carrying a gray level.
func (d *Discrete) ValidCount() int {
	n := 0
	for _, l := range d.Levels {
		if l >= 0 {
			n++
		}
	}
	return n
}

// ResegmentRange returns a copy of the mask with voxels whose intensity lies
// outside [lo, hi] removed. Voxels are excluded, never clamped.
func ResegmentRange(v *volume.Volume, m *volume.Mask, lo, hi float64) (*volume.Mask, error) {
	if err := volume.CheckGeometry(v, m); err != nil {
		return nil, err
	}
	if hi < lo {
		return nil, &volume.GeometryError{Op: "ResegmentRange", Detail: fmt.Sprintf("upper bound %g below lower bound %g", hi, lo)}
	}
	out := m.Clone()
	for i, set := range out.Data {
		if set && (v.Data[i] < lo || v.Data[i] > hi) {
			out.Data[i] = false
		}
	}
	return out, nil
}

// ResegmentOutliers removes voxels whose intensity falls outside
// mean ± sigmas·stdev of the masked intensities (the IBSI outlier rule,
// normally sigmas = 3).
func ResegmentOutliers(v *volume.Volume, m *volume.Mask, sigmas float64) (*volume.Mask, error) {
	if err := volume.CheckGeometry(v, m); err != nil {
		return nil, err
	}
	vals := volume.MaskedValues(v, m)
	if len(vals) == 0 {
		return m.Clone(), nil
	}
	mean, sd := stat.MeanStdDev(vals, nil)
	if len(vals) == 1 || math.IsNaN(sd) {
		sd = 0
	}
	return ResegmentRange(v, m, mean-sigmas*sd, mean+sigmas*sd)
}

// Discretize maps the masked intensities of v onto integer gray levels
// according to the scheme. Masked voxels outside the scheme bounds are
// excluded rather than clamped into the first or last bin. A constant
// region (upper bound equal to the lower) occupies a single bin in either
// mode.
func Discretize(v *volume.Volume, m *volume.Mask, s Scheme) (*Discrete, error) {
	if err := volume.CheckGeometry(v, m); err != nil {
		return nil, err
	}
	switch s.Mode {
	case FixedBinNumber:
		if s.Bins <= 0 {
			return nil, &DiscretizationError{Detail: fmt.Sprintf("bin number %d must be positive", s.Bins)}
		}
	case FixedBinSize:
		if s.Width <= 0 {
			return nil, &DiscretizationError{Detail: fmt.Sprintf("bin width %g must be positive", s.Width)}
		}
	default:
		return nil, &DiscretizationError{Detail: fmt.Sprintf("unknown mode %d", int(s.Mode))}
	}

	lo, hi := s.Min, s.Max
	if math.IsNaN(lo) || math.IsNaN(hi) {
		st, err := volume.MaskedStats(v, m)
		if err != nil {
			return nil, err
		}
		if st.Count == 0 {
			return nil, &DiscretizationError{Detail: "empty mask: no intensities to derive bounds from"}
		}
		if math.IsNaN(lo) {
			lo = st.Min
		}
		if math.IsNaN(hi) {
			hi = st.Max
		}
	}
	if hi < lo {
		return nil, &DiscretizationError{Detail: fmt.Sprintf("upper bound %g below lower bound %g", hi, lo)}
	}

	var ng int
	switch s.Mode {
	case FixedBinNumber:
		if hi == lo {
			ng = 1
		} else {
			ng = s.Bins
		}
	case FixedBinSize:
		ng = int(math.Ceil((hi - lo) / s.Width))
		if ng == 0 {
			ng = 1
		}
	}

	d := &Discrete{
		Levels:  make([]int, v.Dims.Count()),
		Ng:      ng,
		Dims:    v.Dims,
		Spacing: v.Spacing,
		Scheme:  s,
		Lo:      lo,
		Hi:      hi,
	}
	for i := range d.Levels {
		d.Levels[i] = Excluded
	}

	for i, set := range m.Data {
		if !set {
			continue
		}
		x := v.Data[i]
		if x < lo || x > hi || math.IsNaN(x) {
			continue
		}
		var level int
		switch s.Mode {
		case FixedBinNumber:
			if hi == lo {
				level = 0
			} else {
				// Half-open bins with the maximum intensity folded into
				// the last bin.
				level = int(math.Floor(float64(s.Bins) * (x - lo) / (hi - lo)))
				if level >= s.Bins {
					level = s.Bins - 1
				}
			}
		case FixedBinSize:
			level = int(math.Floor((x - lo) / s.Width))
			if level >= ng {
				level = ng - 1
			}
		}
		d.Levels[i] = level
	}
	return d, nil
}

// Histogram returns the per-level voxel counts of a discretized volume.
func (d *Discrete) Histogram() []int {
	h := make([]int, d.Ng)
	for _, l := range d.Levels {
		if l >= 0 {
			h[l]++
		}
	}
	return h
}
