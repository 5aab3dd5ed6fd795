package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, []string{"**/*.cs"}, cfg.Index.Include)
	assert.Contains(t, cfg.Runtime.LifecycleMethods, "Update")
	assert.Contains(t, cfg.Runtime.LifecycleMethods, "OnCollisionEnter")
	assert.Contains(t, cfg.Runtime.SerializationMarkers, "SerializeField")
	assert.Contains(t, cfg.Runtime.StringCallPatterns, "Invoke(")
	assert.True(t, cfg.Search.Fuzzy)
	assert.Equal(t, 100, cfg.Search.MaxResults)
}

func TestLoadFallsBackToDefault(t *testing.T) {
	root := t.TempDir()
	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, root, cfg.Project.Root)
	assert.Equal(t, Default().Index.Include, cfg.Index.Include)
}

func TestLoadKDL(t *testing.T) {
	root := t.TempDir()
	content := `
version 2
project {
    name "my-game"
}
index {
    include "Assets/**/*.cs"
    max_file_size 1024
}
runtime {
    lifecycle_methods "Awake" "Start"
}
search {
    fuzzy false
    fuzzy_threshold 0.9
    max_results 25
}
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".refx.kdl"), []byte(content), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Version)
	assert.Equal(t, "my-game", cfg.Project.Name)
	assert.Equal(t, []string{"Assets/**/*.cs"}, cfg.Index.Include)
	assert.Equal(t, int64(1024), cfg.Index.MaxFileSize)
	assert.Equal(t, []string{"Awake", "Start"}, cfg.Runtime.LifecycleMethods)
	assert.False(t, cfg.Search.Fuzzy)
	assert.InDelta(t, 0.9, cfg.Search.FuzzyThreshold, 1e-9)
	assert.Equal(t, 25, cfg.Search.MaxResults)

	// Unset sections keep their defaults.
	assert.Equal(t, Default().Runtime.SerializationMarkers, cfg.Runtime.SerializationMarkers)
}

func TestLoadTOML(t *testing.T) {
	root := t.TempDir()
	content := `
version = 3

[project]
name = "toml-project"

[index]
exclude = ["**/Temp/**"]

[runtime]
string_call_patterns = ["Dispatch("]

[search]
max_results = 10
`
	require.NoError(t, os.WriteFile(filepath.Join(root, ".refx.toml"), []byte(content), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Version)
	assert.Equal(t, "toml-project", cfg.Project.Name)
	assert.Equal(t, []string{"**/Temp/**"}, cfg.Index.Exclude)
	assert.Equal(t, []string{"Dispatch("}, cfg.Runtime.StringCallPatterns)
	assert.Equal(t, 10, cfg.Search.MaxResults)
	assert.Equal(t, Default().Index.Include, cfg.Index.Include)
}

func TestKDLTakesPrecedenceOverTOML(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".refx.kdl"), []byte("project {\n    name \"from-kdl\"\n}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".refx.toml"), []byte("[project]\nname = \"from-toml\"\n"), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "from-kdl", cfg.Project.Name)
}

func TestLoadInvalidKDL(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".refx.kdl"), []byte(`index { include "unclosed`), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestFinalizeRelativeRoot(t *testing.T) {
	root := t.TempDir()
	cfg := Default()
	cfg.Project.Root = "src"

	out, err := finalize(cfg, root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "src"), out.Project.Root)
	assert.True(t, filepath.IsAbs(out.Project.Root))
}
