package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"radiomica/pkg/discretize"
	"radiomica/pkg/extraction"
	"radiomica/pkg/filters"
	"radiomica/pkg/texture"
)

func TestDefaultConfigMapsToValidSettings(t *testing.T) {
	cfg := DefaultConfig()

	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.Equal(t, texture.Volume3DMerged, s.Aggregation)
	assert.Equal(t, texture.Connect26, s.Connectivity)
	assert.True(t, s.SymmetricGLCM)
	require.Len(t, s.Schemes, 1)
	assert.Equal(t, discretize.FixedBinNumber, s.Schemes[0].Mode)
	assert.Equal(t, 32, s.Schemes[0].Bins)
	assert.True(t, math.IsNaN(s.Schemes[0].Min))
	assert.Nil(t, s.TargetSpacing)

	_, err = extraction.New(s)
	assert.NoError(t, err)
}

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Discretization.Bins, cfg.Discretization.Bins)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "radiomica.yaml")

	cfg := DefaultConfig()
	cfg.Processing.TargetSpacing = 2
	cfg.Processing.Interpolation = "tricubic"
	cfg.Discretization.Mode = "fbs"
	cfg.Discretization.BinWidth = 25
	cfg.Texture.Aggregation = "slice2d_averaged"
	cfg.Discretization.IVHBinWidth = 1
	cfg.Filters = []FilterConfig{
		{Kind: "mean", Radius: 2, Padding: "reflect"},
		{Kind: "log", Sigma: 1.5, Padding: "zero"},
		{Kind: "laws", Name: "L5E5E5", Energy: true, EnergyDelta: 7, EnergyL2: true},
	}
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 2.0, loaded.Processing.TargetSpacing)
	assert.Equal(t, "fbs", loaded.Discretization.Mode)
	assert.Equal(t, 25.0, loaded.Discretization.BinWidth)
	require.Len(t, loaded.Filters, 3)

	s, err := loaded.Settings()
	require.NoError(t, err)
	require.NotNil(t, s.TargetSpacing)
	assert.Equal(t, 2.0, s.TargetSpacing.X)
	assert.Equal(t, texture.Slice2DAveraged, s.Aggregation)
	assert.Equal(t, 1.0, s.IVHWidth)
	require.Len(t, s.Filters, 3)
	assert.Equal(t, filters.KindMean, s.Filters[0].Kind)
	assert.Equal(t, filters.PadReflect, s.Filters[0].Padding)
	assert.Equal(t, filters.PadZero, s.Filters[1].Padding)
	assert.True(t, s.Filters[2].Energy)
	assert.Equal(t, 7, s.Filters[2].EnergyDelta)
	assert.True(t, s.Filters[2].EnergyL2)
}

func TestLoadConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("processing: [not a map"), 0644))

	_, err := LoadConfig(path)
	require.Error(t, err)
}

func TestSettingsErrors(t *testing.T) {
	var ce *extraction.ConfigurationError

	cfg := DefaultConfig()
	cfg.Texture.Aggregation = "diagonal"
	_, err := cfg.Settings()
	require.ErrorAs(t, err, &ce)

	cfg = DefaultConfig()
	cfg.Processing.Interpolation = "sinc"
	_, err = cfg.Settings()
	require.ErrorAs(t, err, &ce)

	cfg = DefaultConfig()
	cfg.Discretization.Mode = "adaptive"
	_, err = cfg.Settings()
	require.ErrorAs(t, err, &ce)

	cfg = DefaultConfig()
	cfg.Filters = []FilterConfig{{Kind: "mean", Radius: 1, Padding: "extend"}}
	_, err = cfg.Settings()
	require.ErrorAs(t, err, &ce)
}

func TestResegmentationMapping(t *testing.T) {
	cfg := DefaultConfig()
	assert.NotPanics(t, func() {
		s, err := cfg.Settings()
		require.NoError(t, err)
		assert.False(t, s.Resegment)
	})

	cfg.Processing.ResegmentLo = -100
	cfg.Processing.ResegmentHi = 300
	s, err := cfg.Settings()
	require.NoError(t, err)
	assert.True(t, s.Resegment)
	assert.Equal(t, -100.0, s.ResegmentLo)
	assert.Equal(t, 300.0, s.ResegmentHi)
}
