package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// tomlFile mirrors Config with TOML field tags. Only the keys present in the
// file override the built-in defaults.
type tomlFile struct {
	Version *int `toml:"version"`
	Project struct {
		Root *string `toml:"root"`
		Name *string `toml:"name"`
	} `toml:"project"`
	Index struct {
		Include     []string `toml:"include"`
		Exclude     []string `toml:"exclude"`
		MaxFileSize *int64   `toml:"max_file_size"`
	} `toml:"index"`
	Runtime struct {
		LifecycleMethods     []string `toml:"lifecycle_methods"`
		SerializationMarkers []string `toml:"serialization_markers"`
		StringCallPatterns   []string `toml:"string_call_patterns"`
		ReflectionMarkers    []string `toml:"reflection_markers"`
	} `toml:"runtime"`
	Search struct {
		Fuzzy          *bool    `toml:"fuzzy"`
		FuzzyThreshold *float64 `toml:"fuzzy_threshold"`
		MaxResults     *int     `toml:"max_results"`
	} `toml:"search"`
}

// LoadTOML attempts to load configuration from a .refx.toml file in
// projectRoot. Returns (nil, nil) when the file does not exist.
func LoadTOML(projectRoot string) (*Config, error) {
	tomlPath := filepath.Join(projectRoot, ".refx.toml")
	if !fileExists(tomlPath) {
		return nil, nil
	}

	content, err := os.ReadFile(tomlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .refx.toml: %w", err)
	}

	var tf tomlFile
	if err := toml.Unmarshal(content, &tf); err != nil {
		return nil, fmt.Errorf("failed to parse .refx.toml: %w", err)
	}

	cfg := Default()
	if tf.Version != nil {
		cfg.Version = *tf.Version
	}
	if tf.Project.Root != nil {
		cfg.Project.Root = *tf.Project.Root
	}
	if tf.Project.Name != nil {
		cfg.Project.Name = *tf.Project.Name
	}
	if len(tf.Index.Include) > 0 {
		cfg.Index.Include = tf.Index.Include
	}
	if len(tf.Index.Exclude) > 0 {
		cfg.Index.Exclude = tf.Index.Exclude
	}
	if tf.Index.MaxFileSize != nil {
		cfg.Index.MaxFileSize = *tf.Index.MaxFileSize
	}
	if len(tf.Runtime.LifecycleMethods) > 0 {
		cfg.Runtime.LifecycleMethods = tf.Runtime.LifecycleMethods
	}
	if len(tf.Runtime.SerializationMarkers) > 0 {
		cfg.Runtime.SerializationMarkers = tf.Runtime.SerializationMarkers
	}
	if len(tf.Runtime.StringCallPatterns) > 0 {
		cfg.Runtime.StringCallPatterns = tf.Runtime.StringCallPatterns
	}
	if len(tf.Runtime.ReflectionMarkers) > 0 {
		cfg.Runtime.ReflectionMarkers = tf.Runtime.ReflectionMarkers
	}
	if tf.Search.Fuzzy != nil {
		cfg.Search.Fuzzy = *tf.Search.Fuzzy
	}
	if tf.Search.FuzzyThreshold != nil {
		cfg.Search.FuzzyThreshold = *tf.Search.FuzzyThreshold
	}
	if tf.Search.MaxResults != nil {
		cfg.Search.MaxResults = *tf.Search.MaxResults
	}

	return cfg, nil
}
