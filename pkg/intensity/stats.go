// Package intensity computes first-order features of the masked
// intensities: descriptive statistics of the raw values, histogram features
// of a discretized volume, and intensity-volume-histogram features.
package intensity

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"radiomica/pkg/discretize"
	"radiomica/pkg/texture"
	"radiomica/pkg/volume"
)

// StatisticalFeatures computes the descriptive statistics of the masked
// intensities.
func StatisticalFeatures(v *volume.Volume, m *volume.Mask) (map[string]float64, error) {
	if err := volume.CheckGeometry(v, m); err != nil {
		return nil, err
	}
	vals := volume.MaskedValues(v, m)
	if len(vals) == 0 {
		return nil, &texture.InsufficientDataError{Detail: "empty mask"}
	}

	mean := stat.Mean(vals, nil)

	min, max := vals[0], vals[0]
	var energy, variance float64
	for _, x := range vals {
		if x < min {
			min = x
		}
		if x > max {
			max = x
		}
		energy += x * x
		variance += (x - mean) * (x - mean)
	}
	// Population variance, matching the reference feature definitions.
	variance /= float64(len(vals))
	sd := math.Sqrt(variance)

	median, _ := stats.Median(vals)
	p10, _ := stats.Percentile(vals, 10)
	p25, _ := stats.Percentile(vals, 25)
	p75, _ := stats.Percentile(vals, 75)
	p90, _ := stats.Percentile(vals, 90)

	var skew, kurt float64
	if sd > 0 {
		for _, x := range vals {
			d := (x - mean) / sd
			skew += d * d * d
			kurt += d * d * d * d
		}
		n := float64(len(vals))
		skew /= n
		kurt = kurt/n - 3 // excess kurtosis, the IBSI convention
	}

	var mad float64
	for _, x := range vals {
		mad += math.Abs(x - mean)
	}
	mad /= float64(len(vals))

	// Robust MAD: mean absolute deviation of the values inside the
	// [p10, p90] closed interval, about their own mean.
	var robust []float64
	for _, x := range vals {
		if x >= p10 && x <= p90 {
			robust = append(robust, x)
		}
	}
	var rmad float64
	if len(robust) > 0 {
		rmean := stat.Mean(robust, nil)
		for _, x := range robust {
			rmad += math.Abs(x - rmean)
		}
		rmad /= float64(len(robust))
	}

	n := float64(len(vals))
	f := map[string]float64{
		"stat_mean":                           mean,
		"stat_variance":                       variance,
		"stat_skewness":                       skew,
		"stat_kurtosis":                       kurt,
		"stat_median":                         median,
		"stat_minimum":                        min,
		"stat_maximum":                        max,
		"stat_range":                          max - min,
		"stat_p10":                            p10,
		"stat_p90":                            p90,
		"stat_interquartile_range":            p75 - p25,
		"stat_mean_absolute_deviation":        mad,
		"stat_robust_mean_absolute_deviation": rmad,
		"stat_energy":                         energy,
		"stat_root_mean_square":               math.Sqrt(energy / n),
	}
	if mean != 0 {
		f["stat_coefficient_of_variation"] = sd / mean
	} else {
		f["stat_coefficient_of_variation"] = 0
	}
	if p75+p25 != 0 {
		f["stat_quartile_coefficient_of_dispersion"] = (p75 - p25) / (p75 + p25)
	} else {
		f["stat_quartile_coefficient_of_dispersion"] = 0
	}
	return f, nil
}

// HistogramFeatures computes features of the gray-level histogram of a
// discretized volume.
func HistogramFeatures(d *discretize.Discrete) (map[string]float64, error) {
	hist := d.Histogram()
	total := 0
	for _, c := range hist {
		total += c
	}
	if total == 0 {
		return nil, &texture.InsufficientDataError{Detail: "no voxels carry a gray level"}
	}

	var mean, entropy, uniformity float64
	mode, modeCount := 0, -1
	for i, c := range hist {
		p := float64(c) / float64(total)
		mean += float64(i+1) * p
		uniformity += p * p
		if p > 0 {
			entropy -= p * math.Log2(p)
		}
		if c > modeCount {
			mode, modeCount = i+1, c
		}
	}
	var variance float64
	for i, c := range hist {
		p := float64(c) / float64(total)
		variance += (float64(i+1) - mean) * (float64(i+1) - mean) * p
	}

	// Maximum and minimum histogram gradient over central differences.
	maxGrad, minGrad := 0.0, 0.0
	maxGradLevel, minGradLevel := 1, 1
	if d.Ng > 1 {
		grad := make([]float64, d.Ng)
		for i := range hist {
			switch {
			case i == 0:
				grad[i] = float64(hist[1] - hist[0])
			case i == d.Ng-1:
				grad[i] = float64(hist[i] - hist[i-1])
			default:
				grad[i] = float64(hist[i+1]-hist[i-1]) / 2
			}
		}
		maxGrad, minGrad = grad[0], grad[0]
		for i, g := range grad {
			if g > maxGrad {
				maxGrad, maxGradLevel = g, i+1
			}
			if g < minGrad {
				minGrad, minGradLevel = g, i+1
			}
		}
	}

	return map[string]float64{
		"hist_mean":               mean,
		"hist_variance":           variance,
		"hist_entropy":            entropy,
		"hist_uniformity":         uniformity,
		"hist_mode":               float64(mode),
		"hist_max_gradient":       maxGrad,
		"hist_max_gradient_level": float64(maxGradLevel),
		"hist_min_gradient":       minGrad,
		"hist_min_gradient_level": float64(minGradLevel),
	}, nil
}
