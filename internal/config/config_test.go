package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/amaranth-kb/amaranth/internal/config"
)

func TestLoadConfigDefaultsWhenNoFilesExist(t *testing.T) {
	dir := t.TempDir()

	cfg, sources, err := config.LoadConfig(dir, "", config.Overrides{}, nil)
	require.NoError(t, err)
	require.Equal(t, config.DefaultConfig().KBDir, cfg.KBDir)
	require.Equal(t, 20, cfg.SearchLimit)
	require.Equal(t, "summary", cfg.DetailTier)
	require.Empty(t, sources.Global)
	require.Empty(t, sources.Project)
}

func TestLoadConfigProjectFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.ConfigFileName), `{
		// project-local override
		"search_limit": 50,
		"detail_tier": "full",
	}`)

	cfg, sources, err := config.LoadConfig(dir, "", config.Overrides{}, nil)
	require.NoError(t, err)
	require.Equal(t, 50, cfg.SearchLimit)
	require.Equal(t, "full", cfg.DetailTier)
	require.Equal(t, filepath.Join(dir, config.ConfigFileName), sources.Project)
}

func TestLoadConfigExplicitPathOverridesProjectFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.ConfigFileName), `{"search_limit": 50}`)

	explicit := filepath.Join(dir, "other.json")
	writeFile(t, explicit, `{"search_limit": 99}`)

	cfg, sources, err := config.LoadConfig(dir, explicit, config.Overrides{}, nil)
	require.NoError(t, err)
	require.Equal(t, 99, cfg.SearchLimit)
	require.Equal(t, explicit, sources.Project)
}

func TestLoadConfigGlobalThenProjectPrecedence(t *testing.T) {
	home := t.TempDir()
	globalDir := filepath.Join(home, ".config", "amaranth")
	require.NoError(t, os.MkdirAll(globalDir, 0o755))
	writeFile(t, filepath.Join(globalDir, "config.json"), `{"kb_dir": "/global/kb", "search_limit": 30}`)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.ConfigFileName), `{"search_limit": 50}`)

	cfg, sources, err := config.LoadConfig(dir, "", config.Overrides{}, []string{"HOME=" + home})
	require.NoError(t, err)
	require.Equal(t, "/global/kb", cfg.KBDir, "global value survives when project file doesn't override it")
	require.Equal(t, 50, cfg.SearchLimit, "project file takes precedence over global")
	require.NotEmpty(t, sources.Global)
}

func TestLoadConfigCLIOverrideWinsOverEverything(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.ConfigFileName), `{"search_limit": 50}`)

	cfg, _, err := config.LoadConfig(dir, "", config.Overrides{
		SearchLimit: 7, HasSearchLimit: true,
	}, nil)
	require.NoError(t, err)
	require.Equal(t, 7, cfg.SearchLimit)
}

func TestLoadConfigRejectsInvalidDetailTier(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.ConfigFileName), `{"detail_tier": "nonsense"}`)

	_, _, err := config.LoadConfig(dir, "", config.Overrides{}, nil)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoadConfigRejectsNonPositiveSearchLimit(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, config.ConfigFileName), `{"search_limit": 0}`)

	_, _, err := config.LoadConfig(dir, "", config.Overrides{}, nil)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestFormatConfigIncludesSources(t *testing.T) {
	out := config.FormatConfig(config.DefaultConfig(), config.Sources{Project: "/x/.amaranth.json"})
	require.Contains(t, out, "kb_dir=.")
	require.Contains(t, out, "/x/.amaranth.json")
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
