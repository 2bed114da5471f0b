// Package config provides configuration structures and utilities for patternscan.
// It defines the options for fetching pages with the headless browser,
// report generation preferences, the HTTP API server and the per-site
// overrides loaded from the .patternscan YAML file.
package config
