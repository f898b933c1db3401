package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/handiism/xivextract/internal/manifest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.Equal(t, manifest.DefaultURL, s.ManifestURL)
	assert.Equal(t, "pathlist", s.ManifestFormat)
	assert.Equal(t, 1, s.Workers)
	assert.Equal(t, 1000, s.ProgressInterval)
	assert.Equal(t, 60*time.Second, s.HTTPTimeout)
	require.NoError(t, s.Validate())
}

func TestLoad_MissingFileGivesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoad_OverridesOnlyGivenKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xivextract.yaml")
	content := `
manifest_url: https://example.org/paths.csv
manifest_format: csv
csv_has_header: true
workers: 8
http_timeout: 2m
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/paths.csv", s.ManifestURL)
	assert.Equal(t, "csv", s.ManifestFormat)
	assert.True(t, s.CSVHasHeader)
	assert.Equal(t, 8, s.Workers)
	assert.Equal(t, 2*time.Minute, s.HTTPTimeout)

	// Untouched keys keep defaults.
	assert.Equal(t, manifest.DefaultPathColumn, s.CSVPathColumn)
	assert.Equal(t, 1000, s.ProgressInterval)
	assert.Equal(t, "xivextract", s.UserAgent)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [1, 2"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config file")
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "xivextract.yaml")

	s := DefaultSettings()
	s.Workers = 12
	s.ManifestCompression = "zstd"
	s.HTTPTimeout = 90 * time.Second
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XIVEXTRACT_MANIFEST_URL", "https://mirror.example.org/list.gz")
	t.Setenv("XIVEXTRACT_WORKERS", "6")
	t.Setenv("XIVEXTRACT_HTTP_TIMEOUT", "15s")

	s := DefaultSettings()
	require.NoError(t, s.LoadFromEnv())

	assert.Equal(t, "https://mirror.example.org/list.gz", s.ManifestURL)
	assert.Equal(t, 6, s.Workers)
	assert.Equal(t, 15*time.Second, s.HTTPTimeout)
}

func TestLoadFromEnv_InvalidWorkers(t *testing.T) {
	t.Setenv("XIVEXTRACT_WORKERS", "many")

	s := DefaultSettings()
	require.Error(t, s.LoadFromEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"empty url", func(s *Settings) { s.ManifestURL = "" }},
		{"unknown format", func(s *Settings) { s.ManifestFormat = "xml" }},
		{"unknown compression", func(s *Settings) { s.ManifestCompression = "brotli" }},
		{"negative column", func(s *Settings) { s.CSVPathColumn = -1 }},
		{"zero workers", func(s *Settings) { s.Workers = 0 }},
		{"negative timeout", func(s *Settings) { s.HTTPTimeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestToManifestOptions(t *testing.T) {
	s := DefaultSettings()
	opts := s.ToManifestOptions()
	assert.Equal(t, manifest.FormatPathList, opts.Format)
	assert.Equal(t, manifest.Compression(""), opts.Compression, "empty compression keeps the format default")

	s.ManifestFormat = "CSV"
	s.ManifestCompression = "gzip"
	s.CSVPathColumn = 0
	s.CSVHasHeader = true
	opts = s.ToManifestOptions()
	assert.Equal(t, manifest.Options{
		Format:      manifest.FormatCSV,
		URL:         manifest.DefaultURL,
		Compression: manifest.CompressionGzip,
		PathColumn:  0,
		SkipHeader:  true,
	}, opts)
}
