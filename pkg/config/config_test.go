package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/coolbeans/ddiharvest/pkg/cmm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadSettings(t *testing.T) {
	t.Run("defaults_without_file", func(t *testing.T) {
		t.Setenv(EnvDBPath, "")
		settings, err := LoadSettings("")
		require.NoError(t, err)
		assert.Equal(t, []string{"en"}, settings.Languages)
		assert.True(t, settings.Backfill)
		assert.Equal(t, 4, settings.Harvest.Concurrency)
	})

	t.Run("file_and_env_overrides", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "ddiharvest.yaml")
		writeFile(t, path, `
languages: [en, fi, sv]
default_language: fi
backfill: false
repositories_dir: repos
harvest:
  concurrency: 2
  record_concurrency: 4
  timeout: 10s
server:
  interval: 1h
`)
		t.Setenv(EnvDBPath, "/tmp/index.db")
		t.Setenv(EnvJWTSecret, "secret")

		settings, err := LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"en", "fi", "sv"}, settings.Languages)
		assert.Equal(t, "fi", settings.DefaultLanguage)
		assert.False(t, settings.Backfill)
		assert.Equal(t, filepath.Join(dir, "repos"), settings.RepositoriesDir)
		assert.Equal(t, 10*time.Second, settings.Harvest.Timeout)
		assert.Equal(t, time.Hour, settings.Server.Interval)
		assert.Equal(t, "/tmp/index.db", settings.Database.Path)
		assert.Equal(t, "secret", settings.Server.JWTSecret)
		assert.Equal(t, 3, settings.Harvest.MaxRetries, "unset values keep their defaults")
	})

	t.Run("invalid_language", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ddiharvest.yaml")
		writeFile(t, path, "languages: [en, 'not a language']\n")
		_, err := LoadSettings(path)
		assert.Error(t, err)
	})

	t.Run("missing_file", func(t *testing.T) {
		_, err := LoadSettings(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.Error(t, err)
	})
}

func TestSettingsValidate(t *testing.T) {
	settings := DefaultSettings()
	require.NoError(t, settings.Validate())

	empty := settings
	empty.Languages = nil
	assert.Error(t, empty.Validate())

	serial := settings
	serial.Harvest.Concurrency = 0
	assert.Error(t, serial.Validate())
}

const fsdRepository = `code: FSD
name: Finnish Social Science Data Archive
url: https://services.fsd.tuni.fi/v0/oai
metadata_prefix: oai_ddi25
default_language: fi
`

func TestRepositoryRegistry(t *testing.T) {
	t.Run("load_directory", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "fsd.yaml"), fsdRepository)
		writeFile(t, filepath.Join(dir, "local.yml"), "code: LOCAL\nname: Local files\ntype: directory\nurl: https://example.org\npath: data\n")
		writeFile(t, filepath.Join(dir, "README.md"), "ignored")

		registry, err := NewRepositoryRegistryWithDirectory(dir)
		require.NoError(t, err)
		require.Equal(t, 2, registry.Count())

		repos := registry.List()
		assert.Equal(t, "FSD", repos[0].Code)
		assert.Equal(t, "LOCAL", repos[1].Code)
		assert.Equal(t, SourceOAI, repos[0].SourceType())
		assert.Equal(t, filepath.Join(dir, "data"), repos[1].Path)

		fsd, ok := registry.Get("FSD")
		require.True(t, ok)
		assert.Equal(t, "fi", fsd.DefaultLanguage)
	})

	t.Run("missing_directory_is_empty", func(t *testing.T) {
		registry, err := NewRepositoryRegistryWithDirectory(filepath.Join(t.TempDir(), "missing"))
		require.NoError(t, err)
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("invalid_definitions", func(t *testing.T) {
		cases := map[string]string{
			"no_code":   "name: x\nurl: https://example.org\nmetadata_prefix: oai_ddi25\n",
			"no_prefix": "code: X\nurl: https://example.org\n",
			"bad_type":  "code: X\nurl: https://example.org\ntype: ftp\n",
			"bad_lang":  "code: X\nurl: https://example.org\nmetadata_prefix: p\ndefault_language: '!!'\n",
		}
		for name, content := range cases {
			t.Run(name, func(t *testing.T) {
				dir := t.TempDir()
				writeFile(t, filepath.Join(dir, "repo.yaml"), content)
				_, err := NewRepositoryRegistryWithDirectory(dir)
				assert.Error(t, err)
			})
		}
	})

	t.Run("reload", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, filepath.Join(dir, "fsd.yaml"), fsdRepository)
		registry, err := NewRepositoryRegistryWithDirectory(dir)
		require.NoError(t, err)

		require.NoError(t, os.Remove(filepath.Join(dir, "fsd.yaml")))
		require.NoError(t, registry.Reload())
		assert.Equal(t, 0, registry.Count())
	})
}

func TestRepositoryRegistryWatch(t *testing.T) {
	dir := t.TempDir()
	registry, err := NewRepositoryRegistryWithDirectory(dir)
	require.NoError(t, err)

	changes := make(chan string, 10)
	registry.SetOnChange(func(event string, repo *Repository) {
		if repo != nil {
			changes <- event + ":" + repo.Code
		}
	})
	require.NoError(t, registry.Watch())
	defer registry.StopWatch()

	writeFile(t, filepath.Join(dir, "fsd.yaml"), fsdRepository)

	select {
	case change := <-changes:
		assert.Contains(t, change, "FSD")
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for repository change")
	}
	_, ok := registry.Get("FSD")
	assert.True(t, ok)
}

func TestAccessMappings(t *testing.T) {
	t.Run("bundled", func(t *testing.T) {
		mappings, err := LoadAccessMappings("")
		require.NoError(t, err)
		rules := mappings.For("FSD")["restrctn"]
		require.NotEmpty(t, rules)
		assert.Equal(t, cmm.DataAccessRestricted, rules[0].Category)
		assert.Nil(t, mappings.For("UNKNOWN"))
	})

	t.Run("override_file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "mappings.json")
		writeFile(t, path, `{"X": {"conditions": [{"content": "free", "category": "Open"}]}}`)
		mappings, err := LoadAccessMappings(path)
		require.NoError(t, err)
		assert.Equal(t, cmm.DataAccessOpen, mappings.For("X")["conditions"][0].Category)
	})

	t.Run("unknown_category", func(t *testing.T) {
		_, err := ParseAccessMappings([]byte(`{"X": {"conditions": [{"content": "a", "category": "Secret"}]}}`))
		assert.Error(t, err)
	})
}

func TestExampleConfiguration(t *testing.T) {
	t.Setenv(EnvDBPath, "")
	t.Setenv(EnvJWTSecret, "")

	settings, err := LoadSettings(filepath.Join("..", "..", "configs", "ddiharvest.yaml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "fi", "sv", "de", "fr"}, settings.Languages)
	assert.Equal(t, 250*time.Millisecond, settings.Harvest.RequestInterval)
	assert.Equal(t, 6*time.Hour, settings.Server.Interval)

	registry, err := NewRepositoryRegistryWithDirectory(settings.RepositoriesDir)
	require.NoError(t, err)
	assert.Equal(t, 4, registry.Count())

	local, ok := registry.Get("LOCAL")
	require.True(t, ok)
	assert.True(t, local.Disabled)
	assert.Equal(t, SourceDirectory, local.SourceType())
	assert.True(t, filepath.IsAbs(local.Path) || filepath.Base(local.Path) == "records")

	mappings, err := LoadAccessMappings(settings.AccessMappingsFile)
	require.NoError(t, err)
	assert.NotEmpty(t, mappings.For("FSD"))
}
