// Package testhelpers provides shared utilities for building temporary
// source-tree fixtures in tests.
package testhelpers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/refx-dev/refx/internal/analyzer"
	"github.com/refx-dev/refx/internal/config"
	"github.com/refx-dev/refx/internal/index"
)

// WriteProject materializes files (relative path -> content) under a fresh
// temp directory and returns its root.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("failed to create %s: %v", filepath.Dir(path), err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return root
}

// TestConfig returns the default configuration rooted at root.
func TestConfig(root string) *config.Config {
	cfg := config.Default()
	cfg.Project.Root = root
	return cfg
}

// BuildIndex writes a fixture project, builds an index over it, and returns
// both. Build failures fail the test.
func BuildIndex(t *testing.T, files map[string]string) (*index.Index, string) {
	t.Helper()
	root := WriteProject(t, files)
	cfg := TestConfig(root)
	ix := index.New(cfg, analyzer.New(cfg.Runtime))
	if _, err := ix.Build(root, nil); err != nil {
		t.Fatalf("failed to build index: %v", err)
	}
	return ix, root
}

// PlayerSource is the canonical fixture used across packages: a class with a
// lifecycle method calling a plain method.
const PlayerSource = `using UnityEngine;

public class Player : MonoBehaviour
{
    [SerializeField] private int health = 100;

    void Update()
    {
        Move();
    }

    void Move()
    {
    }
}
`
