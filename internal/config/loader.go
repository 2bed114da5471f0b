package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".patternscan"

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrInvalidSiteConfig is returned when a site entry carries a negative
	// duration. The message names the offending site.
	ErrInvalidSiteConfig = errors.New("invalid site configuration")
)

// LoadConfigFile loads site configurations from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound.
// Callers should handle this error appropriately based on whether
// the config file path was explicitly specified by the user.
//
// Durations use Go syntax ("1500ms", "20s").
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}
	return ParseConfig(data)
}

// ParseConfig decodes a configuration file body.
func ParseConfig(data []byte) (*File, error) {
	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if cf.Sites == nil {
		cf.Sites = make(map[string]SiteConfig)
	}

	if err := checkSite("defaults", cf.Defaults); err != nil {
		return nil, err
	}
	for host, site := range cf.Sites {
		if err := checkSite(host, site); err != nil {
			return nil, err
		}
	}
	return &cf, nil
}

func checkSite(name string, sc SiteConfig) error {
	if sc.SettleDelay < 0 {
		return fmt.Errorf("%w: %s: settleDelay must be non-negative", ErrInvalidSiteConfig, name)
	}
	if sc.Timeout < 0 {
		return fmt.Errorf("%w: %s: timeout must be non-negative", ErrInvalidSiteConfig, name)
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .patternscan in the current directory
// 3. Look for .patternscan in the XDG config directory
// 4. Look for .patternscan in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var candidates []string
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, DefaultConfigFile))
	}
	candidates = append(candidates, filepath.Join(XDGConfigDir(), DefaultConfigFile))
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, DefaultConfigFile))
	}

	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
