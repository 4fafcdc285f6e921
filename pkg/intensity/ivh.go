package intensity

import (
	"math"
	"sort"

	"radiomica/pkg/texture"
	"radiomica/pkg/volume"
)

// IVHFeatures computes intensity-volume-histogram features. The histogram
// relates the fraction of the ROI volume above an intensity to that
// intensity's position in the intensity range: Vx is the volume fraction at
// the intensity fraction x, Ix the lowest intensity covering at most the
// volume fraction x.
//
// When width is positive the histogram is evaluated on a gray-value axis of
// that step anchored at the ROI minimum, so Ix can land on axis values not
// present in the data. A zero width evaluates on the observed intensities.
func IVHFeatures(v *volume.Volume, m *volume.Mask, width float64) (map[string]float64, error) {
	if err := volume.CheckGeometry(v, m); err != nil {
		return nil, err
	}
	vals := volume.MaskedValues(v, m)
	if len(vals) == 0 {
		return nil, &texture.InsufficientDataError{Detail: "empty mask"}
	}
	sort.Float64s(vals)
	lo, hi := vals[0], vals[len(vals)-1]

	axis := grayAxis(vals, lo, hi, width)

	v10 := volumeAtIntensityFraction(vals, axis, lo, hi, 0.10)
	v90 := volumeAtIntensityFraction(vals, axis, lo, hi, 0.90)
	i10 := intensityAtVolumeFraction(vals, axis, hi, 0.10)
	i90 := intensityAtVolumeFraction(vals, axis, hi, 0.90)

	return map[string]float64{
		"ivh_v10":           v10,
		"ivh_v90":           v90,
		"ivh_i10":           i10,
		"ivh_i90":           i90,
		"ivh_v10_minus_v90": v10 - v90,
		"ivh_i10_minus_i90": i10 - i90,
	}, nil
}

// grayAxis returns the ascending gray values the histogram is evaluated at:
// a regular grid of the given step from lo through hi, or the distinct
// observed intensities when the step is zero.
func grayAxis(sorted []float64, lo, hi, width float64) []float64 {
	if width > 0 && hi > lo {
		n := int(math.Ceil((hi - lo) / width))
		axis := make([]float64, n+1)
		for k := range axis {
			axis[k] = lo + float64(k)*width
		}
		return axis
	}
	var axis []float64
	for i, x := range sorted {
		if i == 0 || x != sorted[i-1] {
			axis = append(axis, x)
		}
	}
	return axis
}

// fractionAtOrAbove returns the fraction of ROI voxels with intensity >= g.
func fractionAtOrAbove(sorted []float64, g float64) float64 {
	idx := sort.SearchFloat64s(sorted, g)
	return float64(len(sorted)-idx) / float64(len(sorted))
}

// volumeAtIntensityFraction returns the volume fraction at the lowest axis
// value reaching the given fraction of the intensity range.
func volumeAtIntensityFraction(sorted, axis []float64, lo, hi, fraction float64) float64 {
	if hi == lo {
		return 1
	}
	threshold := lo + fraction*(hi-lo)
	for _, g := range axis {
		if g >= threshold {
			return fractionAtOrAbove(sorted, g)
		}
	}
	return fractionAtOrAbove(sorted, threshold)
}

// intensityAtVolumeFraction returns the lowest axis value whose at-or-above
// volume fraction does not exceed the given fraction.
func intensityAtVolumeFraction(sorted, axis []float64, hi, fraction float64) float64 {
	for _, g := range axis {
		if fractionAtOrAbove(sorted, g) <= fraction {
			return g
		}
	}
	return hi
}
