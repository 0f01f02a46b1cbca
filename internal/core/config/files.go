package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/bcchr/detbuilder/internal/types"
)

// documentExts are the file types DecodeFile accepts. JSON is read by the
// YAML decoder as a subset.
var documentExts = map[string]bool{".yaml": true, ".yml": true, ".json": true}

// IsDocument reports whether path has a supported settings extension.
func IsDocument(path string) bool {
	return documentExts[strings.ToLower(filepath.Ext(path))]
}

// DecodeFile decodes a YAML or JSON document into v, rejecting unknown keys.
func DecodeFile(path string, v any) error {
	if !IsDocument(path) {
		return fmt.Errorf("%s: unsupported file type (want .yaml, .yml or .json)", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ProjectFromPath derives the project id from a settings file name:
// "settings/42.yaml" configures project 42.
func ProjectFromPath(path string) types.ProjectID {
	base := filepath.Base(path)
	return types.ProjectID(strings.TrimSuffix(base, filepath.Ext(base)))
}

// LoadSettingsFile reads and validates DET settings for the project named
// by the file.
func LoadSettingsFile(path string) (types.ProjectID, *types.Settings, error) {
	var s types.Settings
	if err := DecodeFile(path, &s); err != nil {
		return "", nil, err
	}
	if err := s.Validate(); err != nil {
		return "", nil, fmt.Errorf("%s: %w", path, err)
	}
	return ProjectFromPath(path), &s, nil
}
