package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cmlabs-hris/hris-analytics/internal/domain/analytics"
	"gopkg.in/yaml.v3"
)

// LoadAnalyticsSettings overlays the YAML file at path onto the default
// settings. An empty path returns the defaults.
func LoadAnalyticsSettings(path string) (analytics.Settings, error) {
	settings := analytics.DefaultSettings()
	if path == "" {
		return settings, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return analytics.Settings{}, fmt.Errorf("failed to read analytics settings: %w", err)
	}
	return parseAnalyticsSettings(raw, settings)
}

func parseAnalyticsSettings(raw []byte, settings analytics.Settings) (analytics.Settings, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&settings); err != nil && !errors.Is(err, io.EOF) {
		return analytics.Settings{}, fmt.Errorf("failed to parse analytics settings: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return analytics.Settings{}, fmt.Errorf("invalid analytics settings: %w", err)
	}
	return settings, nil
}
