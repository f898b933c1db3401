// Package config provides configuration management for xivextract.
//
// This package handles:
//   - Loading and saving settings from YAML files
//   - Default configuration values
//   - Environment variable overrides
//   - Conversion to manifest.Options for the manifest package
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Gzip path list from manifest.DefaultURL
//	// One worker, a progress line every 1000 files
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/xivextract.yaml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// A file for a CSV manifest might read:
//
//	manifest_url: https://example.org/paths.csv
//	manifest_format: csv
//	csv_path_column: 2
//	csv_has_header: true
//	workers: 8
//	http_timeout: 2m
//
// # Saving Settings
//
//	settings.Workers = 16
//	err := settings.Save("/path/to/xivextract.yaml")
package config
