package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.ngs.io/climate-trends/internal/domain"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "output_figures", cfg.SaveDir)
	assert.Equal(t, "png", cfg.Format)
	assert.Equal(t, []string{"cesmlme_PRECTvolc"}, cfg.Scenarios)
	assert.Empty(t, cfg.Variables)
	assert.Equal(t, domain.Region{LatMin: -30, LatMax: 30, LonMin: 90, LonMax: 270}, cfg.Region)
	assert.Equal(t, "coolwarm", cfg.Colormap)
	require.NoError(t, cfg.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATA_DIR", "/srv/climate")
	t.Setenv("SAVE_DIR", "/tmp/figs")
	t.Setenv("FIG_FORMAT", "jpg")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/srv/climate", cfg.DataDir)
	assert.Equal(t, "/tmp/figs", cfg.SaveDir)
	assert.Equal(t, "jpg", cfg.Format)
	assert.Equal(t, "debug", cfg.LogLevel)
	// Non-env settings keep their defaults.
	assert.Equal(t, "coolwarm", cfg.Colormap)
}

func TestWithRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.hcl")
	content := `
variables = ["PRECT", "TS"]
scenarios = ["cesmlme_PRECTvolc", "cesmlme_TScontrol"]
colormap  = "kindlmann"

region {
  lat_min = -10
  lat_max = 10
  lon_min = 120
  lon_max = 160
}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Default().WithRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"PRECT", "TS"}, cfg.Variables)
	assert.Equal(t, []string{"cesmlme_PRECTvolc", "cesmlme_TScontrol"}, cfg.Scenarios)
	assert.Equal(t, "kindlmann", cfg.Colormap)
	assert.Equal(t, domain.Region{LatMin: -10, LatMax: 10, LonMin: 120, LonMax: 160}, cfg.Region)

	// Unset attributes keep previous values.
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "png", cfg.Format)
}

func TestWithRunFilePartial(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`colormap = "blackbody"`), 0o644))

	cfg, err := Default().WithRunFile(path)
	require.NoError(t, err)
	assert.Equal(t, "blackbody", cfg.Colormap)
	assert.Equal(t, []string{"cesmlme_PRECTvolc"}, cfg.Scenarios)
}

func TestWithRunFileErrors(t *testing.T) {
	_, err := Default().WithRunFile("does/not/exist.hcl")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.hcl")
	require.NoError(t, os.WriteFile(bad, []byte(`region {`), 0o644))
	_, err = Default().WithRunFile(bad)
	assert.Error(t, err)

	// A run file producing an invalid region is rejected.
	inverted := filepath.Join(dir, "inverted.hcl")
	require.NoError(t, os.WriteFile(inverted, []byte(`
region {
  lat_min = 30
  lat_max = -30
  lon_min = 0
  lon_max = 10
}
`), 0o644))
	_, err = Default().WithRunFile(inverted)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.DataDir = ""
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Scenarios = nil
	assert.Error(t, cfg.Validate())
}
