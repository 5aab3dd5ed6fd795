package index_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refx-dev/refx/internal/analyzer"
	"github.com/refx-dev/refx/internal/index"
	"github.com/refx-dev/refx/internal/types"
	"github.com/refx-dev/refx/testhelpers"
)

func TestBuild(t *testing.T) {
	ix, root := testhelpers.BuildIndex(t, map[string]string{
		"Player.cs":         testhelpers.PlayerSource,
		"Enemy.cs":          "class Enemy\n{\n    void Chase()\n    {\n        Move();\n    }\n}\n",
		"notes.txt":         "not a source file",
		"obj/Generated.cs":  "class Generated { }",
		"Library/Cached.cs": "class Cached { }",
	})

	t.Run("discovery_respects_globs", func(t *testing.T) {
		files := ix.Files()
		require.Len(t, files, 2)
		assert.Equal(t, filepath.Join(root, "Enemy.cs"), files[0])
		assert.Equal(t, filepath.Join(root, "Player.cs"), files[1])
	})

	t.Run("symbols_indexed_by_key", func(t *testing.T) {
		assert.NotNil(t, ix.FindSymbol("Player"))
		assert.NotNil(t, ix.FindSymbol("Player.Update"))
		assert.NotNil(t, ix.FindSymbol("Enemy.Chase"))
		assert.Nil(t, ix.FindSymbol("Generated"))
	})

	t.Run("file_hashes_recorded", func(t *testing.T) {
		for _, path := range ix.Files() {
			_, ok := ix.FileHash(path)
			assert.True(t, ok, "missing hash for %s", path)
		}
	})
}

func TestBuildStats(t *testing.T) {
	root := testhelpers.WriteProject(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})
	cfg := testhelpers.TestConfig(root)
	ix := index.New(cfg, analyzer.New(cfg.Runtime))

	stats, err := ix.Build(root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesScanned)
	assert.Equal(t, 4, stats.SymbolCount)
	assert.Empty(t, stats.ScanErrors)
	assert.Equal(t, uint64(1), stats.Generation)

	stats, err = ix.Build(root, nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), stats.Generation, "each rebuild bumps the generation")
}

func TestBuildFileFilter(t *testing.T) {
	root := testhelpers.WriteProject(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
		"Enemy.cs":  "class Enemy { }",
	})
	cfg := testhelpers.TestConfig(root)
	ix := index.New(cfg, analyzer.New(cfg.Runtime))

	_, err := ix.Build(root, func(path string) bool {
		return strings.HasSuffix(path, "Player.cs")
	})
	require.NoError(t, err)
	assert.Len(t, ix.Files(), 1)
	assert.Nil(t, ix.FindSymbol("Enemy"))
}

func TestBuildMaxFileSize(t *testing.T) {
	root := testhelpers.WriteProject(t, map[string]string{
		"Big.cs":   "class Big { }\n" + strings.Repeat("// padding\n", 100),
		"Small.cs": "class Small { }\n",
	})
	cfg := testhelpers.TestConfig(root)
	cfg.Index.MaxFileSize = 64
	ix := index.New(cfg, analyzer.New(cfg.Runtime))

	_, err := ix.Build(root, nil)
	require.NoError(t, err)
	assert.Nil(t, ix.FindSymbol("Big"))
	assert.NotNil(t, ix.FindSymbol("Small"))
}

func TestKeyCollisionLastFileWins(t *testing.T) {
	ix, root := testhelpers.BuildIndex(t, map[string]string{
		"AcmeOne.cs": "class Acme\n{\n}\n",
		"AcmeTwo.cs": "class Acme\n{\n}\n",
	})

	sym := ix.FindSymbol("Acme")
	require.NotNil(t, sym)
	// Files are scanned in sorted order, so the later file overwrites.
	assert.Equal(t, filepath.Join(root, "AcmeTwo.cs"), sym.FilePath)
}

func TestFindSymbolTiers(t *testing.T) {
	ix, _ := testhelpers.BuildIndex(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	t.Run("exact_key", func(t *testing.T) {
		sym := ix.FindSymbol("Player.Move")
		require.NotNil(t, sym)
		assert.Equal(t, "Move", sym.Name)
	})

	t.Run("bare_member_name", func(t *testing.T) {
		sym := ix.FindSymbol("Move")
		require.NotNil(t, sym)
		assert.Equal(t, "Player.Move", sym.Key())
	})

	t.Run("missing", func(t *testing.T) {
		assert.Nil(t, ix.FindSymbol("Teleport"))
	})
}

func TestSearchSymbols(t *testing.T) {
	ix, _ := testhelpers.BuildIndex(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
		"Enemy.cs":  "class Enemy\n{\n    void MoveTo()\n    {\n    }\n}\n",
	})

	t.Run("case_insensitive_substring", func(t *testing.T) {
		out := ix.SearchSymbols("move")
		require.Len(t, out, 2)
		assert.Equal(t, "Move", out[0].Name)
		assert.Equal(t, "MoveTo", out[1].Name)
	})

	t.Run("kind_filter", func(t *testing.T) {
		out := ix.SearchSymbols("", types.SymbolKindClass)
		require.Len(t, out, 2)
		assert.Equal(t, "Enemy", out[0].Name)
		assert.Equal(t, "Player", out[1].Name)
	})
}

func TestSearchSymbolsMaxResults(t *testing.T) {
	root := testhelpers.WriteProject(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})
	cfg := testhelpers.TestConfig(root)
	cfg.Search.MaxResults = 2
	ix := index.New(cfg, analyzer.New(cfg.Runtime))
	_, err := ix.Build(root, nil)
	require.NoError(t, err)

	out := ix.SearchSymbols("")
	assert.Len(t, out, 2)
}

func TestReferencesMemoization(t *testing.T) {
	ix, root := testhelpers.BuildIndex(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	first := ix.References("Move")
	require.Len(t, first, 2)

	// A direct file edit is invisible until the next rebuild.
	path := filepath.Join(root, "Player.cs")
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, append(content, []byte("// Move Move\n")...), 0o644))
	assert.Len(t, ix.References("Move"), 2, "cached result survives external edits")

	_, err = ix.Build(root, nil)
	require.NoError(t, err)
	assert.Len(t, ix.References("Move"), 4, "rebuild invalidates the cache")
}

func TestSymbolsInFile(t *testing.T) {
	ix, root := testhelpers.BuildIndex(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	out := ix.SymbolsInFile(filepath.Join(root, "Player.cs"))
	require.Len(t, out, 4)
	assert.Equal(t, "Player", out[0].Name, "sorted by start line")
	assert.Equal(t, "health", out[1].Name)
	assert.Equal(t, "Update", out[2].Name)
	assert.Equal(t, "Move", out[3].Name)
}

func TestClassMembers(t *testing.T) {
	ix, _ := testhelpers.BuildIndex(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	methods := ix.ClassMethods("Player")
	require.Len(t, methods, 2)
	assert.Equal(t, "Move", methods[0].Name)
	assert.Equal(t, "Update", methods[1].Name)

	fields := ix.ClassFields("Player")
	require.Len(t, fields, 1)
	assert.Equal(t, "health", fields[0].Name)

	assert.Empty(t, ix.ClassMethods("Ghost"))
}

func TestCallHierarchy(t *testing.T) {
	ix, _ := testhelpers.BuildIndex(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	t.Run("callees_of_update", func(t *testing.T) {
		update := ix.FindSymbol("Player.Update")
		require.NotNil(t, update)

		node := ix.CallHierarchy(update, 1)
		require.NotNil(t, node)
		require.Len(t, node.Callees, 1)
		assert.Equal(t, "Player.Move", node.Callees[0].Symbol.Key())
		assert.Empty(t, node.Callers)
	})

	t.Run("callers_of_move", func(t *testing.T) {
		move := ix.FindSymbol("Player.Move")
		require.NotNil(t, move)

		node := ix.CallHierarchy(move, 1)
		require.NotNil(t, node)
		require.Len(t, node.Callers, 1)
		assert.Equal(t, "Player.Update", node.Callers[0].Symbol.Key())
		assert.Empty(t, node.Callees)
	})

	t.Run("depth_clamped", func(t *testing.T) {
		move := ix.FindSymbol("Player.Move")
		node := ix.CallHierarchy(move, 0)
		require.NotNil(t, node)
		require.Len(t, node.Callers, 1)
		assert.Empty(t, node.Callers[0].Callers, "expansion stays one level deep")
	})

	t.Run("nil_method", func(t *testing.T) {
		assert.Nil(t, ix.CallHierarchy(nil, 3))
	})
}

func TestSuggestSymbols(t *testing.T) {
	ix, _ := testhelpers.BuildIndex(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	t.Run("close_misspelling", func(t *testing.T) {
		got := ix.SuggestSymbols("Playr", 5)
		assert.Contains(t, got, "Player")
	})

	t.Run("empty_name", func(t *testing.T) {
		assert.Empty(t, ix.SuggestSymbols("", 5))
	})
}

func TestSuggestSymbolsDisabled(t *testing.T) {
	root := testhelpers.WriteProject(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})
	cfg := testhelpers.TestConfig(root)
	cfg.Search.Fuzzy = false
	ix := index.New(cfg, analyzer.New(cfg.Runtime))
	_, err := ix.Build(root, nil)
	require.NoError(t, err)

	assert.Empty(t, ix.SuggestSymbols("Playr", 5))
}
