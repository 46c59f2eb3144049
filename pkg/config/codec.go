package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a configuration file encoding
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatOf picks the format from the file extension, defaulting to YAML
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON
	default:
		return FormatYAML
	}
}

// Decode unmarshals data into target. Unknown keys are rejected so that a
// misspelt option fails loudly instead of silently keeping its default.
// Empty input leaves target untouched.
func Decode(data []byte, format Format, target interface{}) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(target); err != nil {
			return fmt.Errorf("failed to unmarshal JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(target); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", format)
	}
	return nil
}

// Encode marshals config in the given format
func Encode(config interface{}, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(config, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return data, nil
	case FormatYAML:
		data, err := yaml.Marshal(config)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported config format %q", format)
	}
}

func loadFile(path string, format Format, target interface{}) error {
	// #nosec G304 -- path is provided by the caller (library function); callers should validate/lock down inputs if untrusted.
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s file %s: %w", format, path, err)
	}
	return Decode(data, format, target)
}

func saveFile(path string, format Format, config interface{}) error {
	data, err := Encode(config, format)
	if err != nil {
		return err
	}
	// Use restrictive permissions by default since configs may contain secrets.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

// LoadYAML loads configuration from a YAML file
func LoadYAML(path string, target interface{}) error {
	return loadFile(path, FormatYAML, target)
}

// SaveYAML saves configuration to a YAML file
func SaveYAML(path string, config interface{}) error {
	return saveFile(path, FormatYAML, config)
}

// LoadJSON loads configuration from a JSON file
func LoadJSON(path string, target interface{}) error {
	return loadFile(path, FormatJSON, target)
}

// SaveJSON saves configuration to a JSON file
func SaveJSON(path string, config interface{}) error {
	return saveFile(path, FormatJSON, config)
}
