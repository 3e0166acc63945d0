package config

import (
	"testing"

	"github.com/jgivc/pluginmaster/internal/common"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvBranchRef, "refs/heads/main")

	cfg, err := LoadWithFS(afero.NewMemMapFs(), "config.yml")
	require.NoError(t, err)

	require.Equal(t, "main", cfg.Branch)
	require.Equal(t, defaultPluginsDir, cfg.PluginsDir)
	require.Equal(t, defaultOutput, cfg.Output)
	require.Equal(t, LogLevelInfo, cfg.LogLevel)
	require.Equal(t, LogFormatPretty, cfg.LogFormat)
	require.Empty(t, cfg.RedisURL)
	require.Equal(t, DefaultCatalogConfig(), cfg.Catalog)
	require.Len(t, cfg.Catalog.TrimmedKeys, 19)
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvBranchRef, "refs/heads/dev")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.yml", []byte(`plugins_dir: src/plugins
log_level: debug
log_format: text
redis_url: redis://localhost:6379/0
catalog:
  download_url: https://example.com/{branch}/{plugin_name}.zip
  trimmed_keys: [Name, InternalName]
  defaults:
    - key: IsHide
      value: true
    - key: Priority
      value: 3
`), 0644))

	cfg, err := LoadWithFS(fs, "config.yml")
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Branch)
	require.Equal(t, "src/plugins", cfg.PluginsDir)
	require.Equal(t, defaultOutput, cfg.Output)
	require.Equal(t, LogLevelDebug, cfg.LogLevel)
	require.Equal(t, LogFormatText, cfg.LogFormat)
	require.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
	require.Equal(t, "https://example.com/{branch}/{plugin_name}.zip", cfg.Catalog.DownloadURL)
	require.Equal(t, []string{"Name", "InternalName"}, cfg.Catalog.TrimmedKeys)
	require.Equal(t, []Default{{Key: "IsHide", Value: true}, {Key: "Priority", Value: 3}}, cfg.Catalog.Defaults)
	require.Equal(t, DefaultCatalogConfig().Duplicates, cfg.Catalog.Duplicates)
}

func TestLoadErrors(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "Broken yaml", content: "log_level: [debug"},
		{name: "Unknown level", content: "log_level: trace"},
		{name: "Unknown format", content: "log_format: json"},
		{name: "Empty output", content: `output: ""`},
		{name: "Empty download url", content: "catalog:\n  download_url: \"\""},
		{name: "Non scalar default", content: "catalog:\n  defaults:\n    - key: Tags\n      value: [a, b]"},
		{name: "Duplicate without source", content: "catalog:\n  duplicates:\n    - keys: [A]"},
	}

	t.Setenv(EnvBranchRef, "refs/heads/main")

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, "config.yml", []byte(tc.content), 0644))

			_, err := LoadWithFS(fs, "config.yml")
			require.Error(t, err)
		})
	}
}

func TestLoadWithoutBranch(t *testing.T) {
	t.Setenv(EnvBranchRef, "")

	_, err := LoadWithFS(afero.NewMemMapFs(), "")
	require.ErrorIs(t, err, common.ErrBranchNotSet)
}

func TestBranchFromEnv(t *testing.T) {
	testCases := []struct {
		ref    string
		expect string
	}{
		{ref: "refs/heads/main", expect: "main"},
		{ref: "refs/heads/feature/x", expect: "feature/x"},
		{ref: "release", expect: "release"},
		{ref: "refs/tags/v1.0.0", expect: "refs/tags/v1.0.0"},
	}

	for _, tc := range testCases {
		t.Run(tc.ref, func(t *testing.T) {
			t.Setenv(EnvBranchRef, tc.ref)

			branch, err := BranchFromEnv()
			require.NoError(t, err)
			require.Equal(t, tc.expect, branch)
		})
	}
}
