package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"

	"valux/pkg/core/projection"
	"valux/pkg/core/utils"
)

// LoadSnapshot reads a company snapshot from a YAML or JSON file
func LoadSnapshot(path string) (projection.HistoricalSnapshot, error) {
	var s projection.HistoricalSnapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return s, fmt.Errorf("read snapshot %s: %w", path, err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.UnmarshalStrict(data, &s)
	default:
		err = utils.DecodeLenient(data, &s)
	}
	if err != nil {
		return s, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return s, nil
}

// LoadDefaults reads a DefaultsProvider (market profile and growth defaults) from YAML
func LoadDefaults(path string) (*DefaultsProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read defaults %s: %w", path, err)
	}
	var p DefaultsProvider
	if err := yaml.UnmarshalStrict(data, &p); err != nil {
		return nil, fmt.Errorf("parse defaults %s: %w", path, err)
	}
	return &p, nil
}
