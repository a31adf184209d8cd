package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load loads settings with priority: defaults < file. An empty path looks for
// ./pathtracer.yaml and otherwise returns the defaults.
func Load(path string) (*Settings, error) {
	settings := Default()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		if err := loadFromFile(settings, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// findConfigFile looks for a settings file in the working directory.
func findConfigFile() string {
	for _, path := range []string{"./pathtracer.yaml", "./pathtracer.yml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// loadFromFile loads settings from a YAML file, merging with existing values.
func loadFromFile(settings *Settings, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, settings)
}

// SaveTo writes the settings to a specific path.
func (s *Settings) SaveTo(path string) error {
	// Create parent directory if needed
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy of the settings.
func (s *Settings) Clone() *Settings {
	clone := *s
	return &clone
}
