package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"
)

// LoadKDL attempts to load configuration from a .refx.kdl file in
// projectRoot. Returns (nil, nil) when the file does not exist.
func LoadKDL(projectRoot string) (*Config, error) {
	kdlPath := filepath.Join(projectRoot, ".refx.kdl")
	if !fileExists(kdlPath) {
		return nil, nil
	}

	content, err := os.ReadFile(kdlPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read .refx.kdl: %w", err)
	}

	return parseKDL(string(content))
}

// parseKDL parses KDL configuration text over the built-in defaults, so a
// config file only needs to name the sections it overrides.
func parseKDL(content string) (*Config, error) {
	cfg := Default()

	doc, err := kdl.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse KDL config: %w", err)
	}

	for _, n := range doc.Nodes {
		switch nodeName(n) {
		case "project":
			for _, cn := range n.Children {
				assignSimpleString(cn, "root", func(v string) { cfg.Project.Root = v })
				assignSimpleString(cn, "name", func(v string) { cfg.Project.Name = v })
			}
		case "index":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "include":
					if v := collectStringArgs(cn); len(v) > 0 {
						cfg.Index.Include = v
					}
				case "exclude":
					if v := collectStringArgs(cn); len(v) > 0 {
						cfg.Index.Exclude = v
					}
				case "max_file_size":
					if v, ok := firstIntArg(cn); ok {
						cfg.Index.MaxFileSize = int64(v)
					}
				}
			}
		case "runtime":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "lifecycle_methods":
					if v := collectStringArgs(cn); len(v) > 0 {
						cfg.Runtime.LifecycleMethods = v
					}
				case "serialization_markers":
					if v := collectStringArgs(cn); len(v) > 0 {
						cfg.Runtime.SerializationMarkers = v
					}
				case "string_call_patterns":
					if v := collectStringArgs(cn); len(v) > 0 {
						cfg.Runtime.StringCallPatterns = v
					}
				case "reflection_markers":
					if v := collectStringArgs(cn); len(v) > 0 {
						cfg.Runtime.ReflectionMarkers = v
					}
				}
			}
		case "search":
			for _, cn := range n.Children {
				switch nodeName(cn) {
				case "fuzzy":
					if v, ok := firstBoolArg(cn); ok {
						cfg.Search.Fuzzy = v
					}
				case "fuzzy_threshold":
					if v, ok := firstFloatArg(cn); ok {
						cfg.Search.FuzzyThreshold = v
					}
				case "max_results":
					if v, ok := firstIntArg(cn); ok {
						cfg.Search.MaxResults = v
					}
				}
			}
		case "version":
			if v, ok := firstIntArg(n); ok {
				cfg.Version = v
			}
		}
	}

	return cfg, nil
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstIntArg(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func firstStringArg(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	if s, ok := n.Arguments[0].Value.(string); ok {
		return s, true
	}
	return "", false
}

func firstBoolArg(n *document.Node) (bool, bool) {
	if len(n.Arguments) == 0 {
		return false, false
	}
	if b, ok := n.Arguments[0].Value.(bool); ok {
		return b, true
	}
	return false, false
}

func firstFloatArg(n *document.Node) (float64, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// collectStringArgs gathers string values from inline arguments or, for
// block format like exclude { "pattern" }, from child nodes.
func collectStringArgs(n *document.Node) []string {
	if n == nil {
		return nil
	}
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}

	if len(out) == 0 && len(n.Children) > 0 {
		out = make([]string, 0, len(n.Children))
		for _, child := range n.Children {
			if s, ok := firstStringArg(child); ok {
				out = append(out, s)
			} else if child.Name != nil {
				if s, ok := child.Name.Value.(string); ok {
					out = append(out, s)
				}
			}
		}
	}

	return out
}

func assignSimpleString(n *document.Node, target string, set func(string)) {
	if nodeName(n) == target {
		if s, ok := firstStringArg(n); ok {
			set(s)
		}
	}
}
