package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Config is the full runtime configuration for refx.
type Config struct {
	Version int
	Project Project
	Index   Index
	Runtime Runtime
	Search  Search
}

type Project struct {
	Root string
	Name string
}

type Index struct {
	Include     []string // doublestar patterns, relative to project root
	Exclude     []string
	MaxFileSize int64 // files larger than this are skipped during scan
}

// Runtime holds the rule sets that must match whatever target runtime the
// analyzed code runs on. They are configuration, never hard-coded.
type Runtime struct {
	// LifecycleMethods are method names reserved by the host runtime for
	// automatic invocation (renaming one breaks that contract).
	LifecycleMethods []string

	// SerializationMarkers are attribute/marker substrings that expose a
	// field's name to persisted data.
	SerializationMarkers []string

	// StringCallPatterns are dispatch-by-name API call prefixes used to
	// detect indirect string-literal invocations of a method.
	StringCallPatterns []string

	// ReflectionMarkers are introspection API markers whose presence in a
	// file downgrades confidence in purely textual analysis.
	ReflectionMarkers []string
}

type Search struct {
	Fuzzy          bool
	FuzzyThreshold float64
	MaxResults     int
}

// Default returns the built-in configuration. The runtime rule sets default
// to Unity-style conventions; projects targeting other runtimes override
// them in .refx.kdl or .refx.toml.
func Default() *Config {
	return &Config{
		Version: 1,
		Project: Project{Root: "."},
		Index: Index{
			Include:     []string{"**/*.cs"},
			Exclude:     []string{"**/obj/**", "**/bin/**", "**/Library/**", "**/.git/**"},
			MaxFileSize: 2 * 1024 * 1024,
		},
		Runtime: Runtime{
			LifecycleMethods: []string{
				"Awake", "Start", "Update", "FixedUpdate", "LateUpdate",
				"OnEnable", "OnDisable", "OnDestroy", "OnGUI",
				"OnCollisionEnter", "OnCollisionExit", "OnTriggerEnter", "OnTriggerExit",
				"OnApplicationPause", "OnApplicationQuit",
			},
			SerializationMarkers: []string{"SerializeField", "SerializeReference"},
			StringCallPatterns: []string{
				"Invoke(", "InvokeRepeating(", "CancelInvoke(",
				"SendMessage(", "BroadcastMessage(", "StartCoroutine(", "StopCoroutine(",
			},
			ReflectionMarkers: []string{
				"GetMethod(", "GetField(", "GetProperty(", "GetType()", "typeof(",
			},
		},
		Search: Search{
			Fuzzy:          true,
			FuzzyThreshold: 0.80,
			MaxResults:     100,
		},
	}
}

// Load reads configuration for a project root. It tries .refx.kdl first,
// then .refx.toml, and falls back to Default when neither exists. The
// resolved Project.Root is always absolute.
func Load(projectRoot string) (*Config, error) {
	cfg, err := LoadKDL(projectRoot)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg, err = LoadTOML(projectRoot)
		if err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		cfg = Default()
		cfg.Project.Root = projectRoot
	}
	return finalize(cfg, projectRoot)
}

// finalize normalizes the project root to an absolute path.
func finalize(cfg *Config, projectRoot string) (*Config, error) {
	root := cfg.Project.Root
	if root == "" {
		root = projectRoot
	}
	if !filepath.IsAbs(root) {
		abs, err := filepath.Abs(filepath.Join(projectRoot, root))
		if err != nil {
			return nil, fmt.Errorf("failed to resolve project root %q: %w", root, err)
		}
		root = abs
	}
	cfg.Project.Root = filepath.Clean(root)
	return cfg, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
