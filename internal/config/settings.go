package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/handiism/xivextract/internal/manifest"
	"gopkg.in/yaml.v3"
)

// Settings holds all configuration options.
type Settings struct {
	// Manifest settings
	ManifestURL         string `yaml:"manifest_url"`
	ManifestFormat      string `yaml:"manifest_format"`      // pathlist, csv
	ManifestCompression string `yaml:"manifest_compression"` // empty, none, gzip, zstd
	CSVPathColumn       int    `yaml:"csv_path_column"`
	CSVHasHeader        bool   `yaml:"csv_has_header"`

	// Extraction settings
	Workers          int `yaml:"workers"`
	ProgressInterval int `yaml:"progress_interval"`

	// HTTP settings
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	UserAgent   string        `yaml:"user_agent"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		ManifestURL:    manifest.DefaultURL,
		ManifestFormat: string(manifest.FormatPathList),
		CSVPathColumn:  manifest.DefaultPathColumn,

		Workers:          1,
		ProgressInterval: 1000,

		HTTPTimeout: 60 * time.Second,
		UserAgent:   "xivextract",
	}
}

// Load reads settings from a YAML file. Keys missing from the file keep
// their default values; a missing file yields the defaults.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	settings := DefaultSettings()
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return settings, nil
}

// LoadFromEnv overrides settings from XIVEXTRACT_ environment variables.
func (s *Settings) LoadFromEnv() error {
	if v := os.Getenv("XIVEXTRACT_MANIFEST_URL"); v != "" {
		s.ManifestURL = v
	}
	if v := os.Getenv("XIVEXTRACT_MANIFEST_FORMAT"); v != "" {
		s.ManifestFormat = v
	}
	if v := os.Getenv("XIVEXTRACT_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse XIVEXTRACT_WORKERS: %w", err)
		}
		s.Workers = n
	}
	if v := os.Getenv("XIVEXTRACT_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse XIVEXTRACT_HTTP_TIMEOUT: %w", err)
		}
		s.HTTPTimeout = d
	}
	return nil
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports the first invalid setting.
func (s *Settings) Validate() error {
	if s.ManifestURL == "" {
		return errors.New("config: manifest_url is required")
	}
	if _, err := manifest.ParseFormat(s.ManifestFormat); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := manifest.ParseCompression(s.ManifestCompression); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if s.CSVPathColumn < 0 {
		return errors.New("config: csv_path_column must not be negative")
	}
	if s.Workers <= 0 {
		return errors.New("config: workers must be positive")
	}
	if s.HTTPTimeout < 0 {
		return errors.New("config: http_timeout must not be negative")
	}
	return nil
}

// ToManifestOptions converts settings to manifest.Options. Settings must
// have passed Validate.
func (s *Settings) ToManifestOptions() manifest.Options {
	format, _ := manifest.ParseFormat(s.ManifestFormat)

	opts := manifest.Options{
		Format:     format,
		URL:        s.ManifestURL,
		PathColumn: s.CSVPathColumn,
		SkipHeader: s.CSVHasHeader,
	}
	// Empty keeps the format's own default.
	if s.ManifestCompression != "" {
		opts.Compression, _ = manifest.ParseCompression(s.ManifestCompression)
	}
	return opts
}
