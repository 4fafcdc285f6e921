// Package extraction runs the full feature extraction pipeline: optional
// resampling to a target grid, intensity re-segmentation, the spatial filter
// bank, per-scheme discretization and the texture, histogram, first-order
// and morphology feature families. Jobs run concurrently; result ordering is
// deterministic regardless of scheduling.
package extraction

import (
	"context"
	"fmt"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"radiomica/pkg/discretize"
	"radiomica/pkg/filters"
	"radiomica/pkg/intensity"
	"radiomica/pkg/interpolation"
	"radiomica/pkg/morphology"
	"radiomica/pkg/texture"
	"radiomica/pkg/volume"
)

// ConfigurationError reports invalid extraction settings, detected before
// any computation starts.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Detail
}

// BaseImage names the unfiltered input in results.
const BaseImage = "original"

// Settings configures an extraction run.
type Settings struct {
	// TargetSpacing resamples the volume and mask before analysis when
	// non-nil.
	TargetSpacing *volume.Spacing
	Interpolation interpolation.Options

	// ResegmentLo and ResegmentHi restrict the analyzed intensity range
	// when Resegment is true. OutlierSigmas additionally removes values
	// beyond mean ± sigmas·stdev when positive.
	Resegment     bool
	ResegmentLo   float64
	ResegmentHi   float64
	OutlierSigmas float64

	// Filters lists the response maps to analyze in addition to the
	// unfiltered image.
	Filters []filters.Spec

	// Schemes lists the discretizations applied to each image.
	Schemes []discretize.Scheme

	// IVHWidth is the gray-value step of the intensity-volume histogram;
	// 0 evaluates it on the observed intensities.
	IVHWidth float64

	Aggregation  texture.Aggregation
	Connectivity texture.Connectivity

	// SymmetricGLCM adds each co-occurrence pair in both directions.
	SymmetricGLCM bool
	// NGLDMAlpha is the dependence coarseness tolerance; NGLDMRadius the
	// Chebyshev neighborhood radius (0 means 1).
	NGLDMAlpha  float64
	NGLDMRadius int

	// Workers bounds job concurrency; 0 means GOMAXPROCS.
	Workers int
}

// DefaultSettings returns settings matching the common benchmark
// configuration: no resampling, one 32-bin discretization, merged 3D
// aggregation and 26-connectivity.
func DefaultSettings() Settings {
	return Settings{
		Schemes:       []discretize.Scheme{discretize.NewFBN(32)},
		Aggregation:   texture.Volume3DMerged,
		Connectivity:  texture.Connect26,
		SymmetricGLCM: true,
	}
}

// Validate rejects settings the pipeline cannot run.
func (s *Settings) Validate() error {
	for _, f := range s.Filters {
		switch f.Kind {
		case filters.KindMean, filters.KindLoG, filters.KindLaws,
			filters.KindWavelet, filters.KindGabor:
		default:
			return &ConfigurationError{Detail: fmt.Sprintf("unknown filter kind %q", f.Kind)}
		}
	}
	if len(s.Schemes) == 0 {
		return &ConfigurationError{Detail: "no discretization scheme configured"}
	}
	for _, sc := range s.Schemes {
		switch sc.Mode {
		case discretize.FixedBinNumber:
			if sc.Bins <= 0 {
				return &ConfigurationError{Detail: fmt.Sprintf("scheme %s: bin number must be positive", sc.Label())}
			}
		case discretize.FixedBinSize:
			if sc.Width <= 0 {
				return &ConfigurationError{Detail: fmt.Sprintf("scheme %s: bin width must be positive", sc.Label())}
			}
		default:
			return &ConfigurationError{Detail: fmt.Sprintf("unknown discretization mode %d", int(sc.Mode))}
		}
	}
	switch s.Aggregation {
	case texture.Slice2DAveraged, texture.Slice2DMerged,
		texture.Volume3DAveraged, texture.Volume3DMerged:
	default:
		return &ConfigurationError{Detail: fmt.Sprintf("unsupported aggregation %d", int(s.Aggregation))}
	}
	if !s.Connectivity.Valid() {
		return &ConfigurationError{Detail: fmt.Sprintf("connectivity must be 6, 18 or 26, got %d", int(s.Connectivity))}
	}
	if s.Resegment && s.ResegmentHi < s.ResegmentLo {
		return &ConfigurationError{Detail: fmt.Sprintf("re-segmentation range [%g, %g] is inverted", s.ResegmentLo, s.ResegmentHi)}
	}
	if s.IVHWidth < 0 {
		return &ConfigurationError{Detail: fmt.Sprintf("intensity-volume-histogram step %g must be non-negative", s.IVHWidth)}
	}
	if s.NGLDMAlpha < 0 {
		return &ConfigurationError{Detail: fmt.Sprintf("dependence tolerance %g must be non-negative", s.NGLDMAlpha)}
	}
	if s.Workers < 0 {
		return &ConfigurationError{Detail: fmt.Sprintf("worker count %d must be non-negative", s.Workers)}
	}
	return nil
}

// Result holds the features of one (image, scheme) pair. Scheme is empty for
// the first-order and morphology families, which do not discretize.
type Result struct {
	Image    string
	Scheme   string
	Features map[string]float64
}

// Extractor runs the configured pipeline over volumes.
type Extractor struct {
	settings Settings
}

// New validates the settings and builds an extractor.
func New(s Settings) (*Extractor, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Workers == 0 {
		s.Workers = runtime.GOMAXPROCS(0)
	}
	if s.NGLDMRadius == 0 {
		s.NGLDMRadius = 1
	}
	return &Extractor{settings: s}, nil
}

// Run extracts all configured feature families from the masked volume.
// Results are ordered by image (unfiltered first, then filters in
// configuration order) and scheme in configuration order; the first result
// carries the first-order statistics, volume histogram and morphology
// features of the unfiltered image.
func (e *Extractor) Run(ctx context.Context, v *volume.Volume, m *volume.Mask) ([]Result, error) {
	if err := volume.CheckGeometry(v, m); err != nil {
		return nil, err
	}
	if m.Empty() {
		return nil, errors.WithStack(&texture.InsufficientDataError{Detail: "empty mask"})
	}
	s := e.settings

	if s.TargetSpacing != nil {
		var err error
		v, m, err = interpolation.Resample(v, m, *s.TargetSpacing, s.Interpolation)
		if err != nil {
			return nil, errors.Wrap(err, "resampling")
		}
		if m.Empty() {
			return nil, errors.WithStack(&texture.InsufficientDataError{Detail: "mask lost all voxels during resampling"})
		}
	}

	if s.Resegment {
		var err error
		m, err = discretize.ResegmentRange(v, m, s.ResegmentLo, s.ResegmentHi)
		if err != nil {
			return nil, errors.Wrap(err, "re-segmentation")
		}
	}
	if s.OutlierSigmas > 0 {
		var err error
		m, err = discretize.ResegmentOutliers(v, m, s.OutlierSigmas)
		if err != nil {
			return nil, errors.Wrap(err, "outlier re-segmentation")
		}
	}
	if m.Empty() {
		return nil, errors.WithStack(&texture.InsufficientDataError{Detail: "mask empty after re-segmentation"})
	}

	base, err := e.baseFeatures(v, m)
	if err != nil {
		return nil, err
	}

	type job struct {
		image  string
		filter *filters.Spec
		scheme discretize.Scheme
	}
	var jobs []job
	for _, sc := range s.Schemes {
		jobs = append(jobs, job{image: BaseImage, scheme: sc})
	}
	for i := range s.Filters {
		f := &s.Filters[i]
		for _, sc := range s.Schemes {
			jobs = append(jobs, job{image: f.Label(), filter: f, scheme: sc})
		}
	}

	// Each filter response is computed once and shared by its schemes.
	responses := make(map[string]*volume.Volume, len(s.Filters)+1)
	responses[BaseImage] = v
	for i := range s.Filters {
		f := &s.Filters[i]
		r, err := filters.Apply(v, *f)
		if err != nil {
			return nil, errors.Wrapf(err, "filter %s", f.Label())
		}
		responses[f.Label()] = r
	}

	results := make([]Result, len(jobs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.Workers)
	for i, j := range jobs {
		i, j := i, j
		g.Go(func() error {
			feats, err := e.textureFeatures(responses[j.image], m, j.scheme)
			if err != nil {
				return errors.Wrapf(err, "%s %s", j.image, j.scheme.Label())
			}
			results[i] = Result{Image: j.image, Scheme: j.scheme.Label(), Features: feats}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return append([]Result{base}, results...), nil
}

// baseFeatures computes the families that work on raw intensities.
func (e *Extractor) baseFeatures(v *volume.Volume, m *volume.Mask) (Result, error) {
	feats := make(map[string]float64)

	stats, err := intensity.StatisticalFeatures(v, m)
	if err != nil {
		return Result{}, err
	}
	for k, val := range stats {
		feats[k] = val
	}

	ivh, err := intensity.IVHFeatures(v, m, e.settings.IVHWidth)
	if err != nil {
		return Result{}, err
	}
	for k, val := range ivh {
		feats[k] = val
	}

	morph, err := morphology.Features(v, m)
	if err != nil {
		return Result{}, err
	}
	for k, val := range morph {
		feats[k] = val
	}

	return Result{Image: BaseImage, Features: feats}, nil
}

// textureFeatures discretizes one image under one scheme and reduces all six
// matrix families plus the gray-level histogram.
func (e *Extractor) textureFeatures(v *volume.Volume, m *volume.Mask, sc discretize.Scheme) (map[string]float64, error) {
	s := e.settings
	d, err := discretize.Discretize(v, m, sc)
	if err != nil {
		return nil, err
	}

	feats := make(map[string]float64)
	hist, err := intensity.HistogramFeatures(d)
	if err != nil {
		return nil, err
	}
	for k, val := range hist {
		feats[k] = val
	}

	roi := make([]bool, len(m.Data))
	copy(roi, m.Data)

	type family func() (map[string]float64, error)
	families := []family{
		func() (map[string]float64, error) { return texture.GLCMFeatures(d, s.Aggregation, s.SymmetricGLCM) },
		func() (map[string]float64, error) { return texture.GLRLMFeatures(d, s.Aggregation) },
		func() (map[string]float64, error) { return texture.GLSZMFeatures(d, s.Connectivity, s.Aggregation) },
		func() (map[string]float64, error) {
			return texture.GLDZMFeatures(d, s.Connectivity, s.Aggregation, roi)
		},
		func() (map[string]float64, error) { return texture.NGTDMFeatures(d, s.Aggregation) },
		func() (map[string]float64, error) {
			return texture.NGLDMFeatures(d, s.NGLDMAlpha, s.NGLDMRadius, s.Aggregation)
		},
	}
	for _, f := range families {
		fm, err := f()
		if err != nil {
			return nil, err
		}
		for k, val := range fm {
			feats[k] = val
		}
	}
	return feats, nil
}
