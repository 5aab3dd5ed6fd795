package mcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/refx-dev/refx/testhelpers"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(t *testing.T, files map[string]string) (*Server, string) {
	t.Helper()
	root := testhelpers.WriteProject(t, files)
	s := NewServer(testhelpers.TestConfig(root))
	_, err := s.CallTool("scan", nil)
	require.NoError(t, err)
	return s, root
}

func decode(t *testing.T, text string) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	return out
}

func TestScanTool(t *testing.T) {
	root := testhelpers.WriteProject(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})
	s := NewServer(testhelpers.TestConfig(root))

	text, err := s.CallTool("scan", nil)
	require.NoError(t, err)

	out := decode(t, text)
	assert.Equal(t, float64(1), out["files_scanned"])
	assert.Equal(t, float64(4), out["symbol_count"])
	assert.Empty(t, out["scan_errors"])
}

func TestFindSymbolTool(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	t.Run("found", func(t *testing.T) {
		text, err := s.CallTool("find_symbol", map[string]interface{}{"name": "Player.Update"})
		require.NoError(t, err)

		out := decode(t, text)
		assert.Equal(t, true, out["found"])
		sym := out["symbol"].(map[string]interface{})
		assert.Equal(t, "Update", sym["name"])
		assert.Equal(t, "method", sym["kind"])
		assert.Equal(t, true, sym["framework_lifecycle"])
	})

	t.Run("missing_with_suggestions", func(t *testing.T) {
		text, err := s.CallTool("find_symbol", map[string]interface{}{"name": "Playr"})
		require.NoError(t, err)

		out := decode(t, text)
		assert.Equal(t, false, out["found"])
		assert.Contains(t, out["suggestions"], "Player")
	})
}

func TestSearchSymbolsTool(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	t.Run("by_kind", func(t *testing.T) {
		text, err := s.CallTool("search_symbols", map[string]interface{}{
			"pattern": "", "kind": "method",
		})
		require.NoError(t, err)

		out := decode(t, text)
		assert.Equal(t, float64(2), out["count"])
	})

	t.Run("unknown_kind", func(t *testing.T) {
		_, err := s.CallTool("search_symbols", map[string]interface{}{
			"pattern": "x", "kind": "gadget",
		})
		assert.Error(t, err)
	})
}

func TestReferencesTool(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	text, err := s.CallTool("references", map[string]interface{}{"name": "Move"})
	require.NoError(t, err)

	out := decode(t, text)
	assert.Equal(t, float64(2), out["count"])
}

func TestCallHierarchyTool(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	text, err := s.CallTool("call_hierarchy", map[string]interface{}{"method": "Player.Move"})
	require.NoError(t, err)
	assert.Contains(t, text, "Call hierarchy for 'Player.Move'")
	assert.Contains(t, text, "Player.Update")

	t.Run("max_depth_accepted", func(t *testing.T) {
		text, err := s.CallTool("call_hierarchy", map[string]interface{}{
			"method": "Player.Move", "max_depth": 5,
		})
		require.NoError(t, err)
		assert.Contains(t, text, "Player.Update")
	})

	t.Run("not_a_method", func(t *testing.T) {
		_, err := s.CallTool("call_hierarchy", map[string]interface{}{"method": "Player"})
		assert.Error(t, err)
	})
}

func TestFileSymbolsTool(t *testing.T) {
	s, root := newTestServer(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	text, err := s.CallTool("file_symbols", map[string]interface{}{
		"path": filepath.Join(root, "Player.cs"),
	})
	require.NoError(t, err)

	out := decode(t, text)
	assert.Equal(t, float64(4), out["count"])
}

func TestClassMembersTool(t *testing.T) {
	s, _ := newTestServer(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	t.Run("methods_default", func(t *testing.T) {
		text, err := s.CallTool("class_members", map[string]interface{}{"class": "Player"})
		require.NoError(t, err)
		out := decode(t, text)
		assert.Equal(t, float64(2), out["count"])
	})

	t.Run("fields", func(t *testing.T) {
		text, err := s.CallTool("class_members", map[string]interface{}{
			"class": "Player", "member_kind": "fields",
		})
		require.NoError(t, err)
		out := decode(t, text)
		assert.Equal(t, float64(1), out["count"])
	})

	t.Run("bad_member_kind", func(t *testing.T) {
		_, err := s.CallTool("class_members", map[string]interface{}{
			"class": "Player", "member_kind": "events",
		})
		assert.Error(t, err)
	})
}

func TestRenameTool(t *testing.T) {
	t.Run("preview_only", func(t *testing.T) {
		s, root := newTestServer(t, map[string]string{
			"Player.cs": testhelpers.PlayerSource,
		})

		text, err := s.CallTool("rename", map[string]interface{}{
			"name": "Player.Move", "new_name": "Relocate",
		})
		require.NoError(t, err)

		out := decode(t, text)
		assert.Equal(t, float64(2), out["total_changes"])
		safety := out["safety"].(map[string]interface{})
		assert.Equal(t, true, safety["can_proceed"])
		files := out["files"].([]interface{})
		require.Len(t, files, 1)
		fileOut := files[0].(map[string]interface{})
		assert.Contains(t, fileOut["diff"], "+    void Relocate()")
		_, applied := out["applied"]
		assert.False(t, applied, "preview must not report an apply")

		content, readErr := os.ReadFile(filepath.Join(root, "Player.cs"))
		require.NoError(t, readErr)
		assert.Equal(t, testhelpers.PlayerSource, string(content), "preview writes nothing")
	})

	t.Run("apply", func(t *testing.T) {
		s, root := newTestServer(t, map[string]string{
			"Player.cs": testhelpers.PlayerSource,
		})

		text, err := s.CallTool("rename", map[string]interface{}{
			"name": "Player.Move", "new_name": "Relocate", "apply": true,
		})
		require.NoError(t, err)

		out := decode(t, text)
		assert.Equal(t, true, out["applied"])

		content, readErr := os.ReadFile(filepath.Join(root, "Player.cs"))
		require.NoError(t, readErr)
		assert.Contains(t, string(content), "void Relocate()")

		// The post-apply rebuild makes the new name immediately queryable.
		findText, findErr := s.CallTool("find_symbol", map[string]interface{}{"name": "Player.Relocate"})
		require.NoError(t, findErr)
		assert.Equal(t, true, decode(t, findText)["found"])
	})

	t.Run("blocked_apply_refused", func(t *testing.T) {
		s, root := newTestServer(t, map[string]string{
			"Player.cs": testhelpers.PlayerSource,
		})

		text, err := s.CallTool("rename", map[string]interface{}{
			"name": "Player.Update", "new_name": "Tick", "apply": true,
		})
		require.NoError(t, err)

		out := decode(t, text)
		assert.Equal(t, false, out["applied"])
		safety := out["safety"].(map[string]interface{})
		assert.Equal(t, false, safety["can_proceed"])
		assert.NotEmpty(t, safety["blockers"])

		content, readErr := os.ReadFile(filepath.Join(root, "Player.cs"))
		require.NoError(t, readErr)
		assert.Equal(t, testhelpers.PlayerSource, string(content))
	})

	t.Run("unknown_symbol", func(t *testing.T) {
		s, _ := newTestServer(t, map[string]string{
			"Player.cs": testhelpers.PlayerSource,
		})
		_, err := s.CallTool("rename", map[string]interface{}{
			"name": "Ghost", "new_name": "Phantom",
		})
		assert.Error(t, err)
	})
}

func TestExtractMethodTool(t *testing.T) {
	s, root := newTestServer(t, map[string]string{
		"Player.cs": testhelpers.PlayerSource,
	})

	text, err := s.CallTool("extract_method", map[string]interface{}{
		"method":    "Player.Update",
		"selection": "Move();",
		"new_name":  "Step",
		"apply":     true,
	})
	require.NoError(t, err)

	out := decode(t, text)
	assert.Equal(t, true, out["applied"])
	assert.Equal(t, float64(2), out["total_changes"])

	content, readErr := os.ReadFile(filepath.Join(root, "Player.cs"))
	require.NoError(t, readErr)
	assert.Contains(t, string(content), "private void Step()")
}
