package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/refx-dev/refx/internal/types"
)

func TestUnifiedDiff(t *testing.T) {
	t.Run("identical_texts", func(t *testing.T) {
		out, err := UnifiedDiff("Player.cs", "same\n", "same\n")
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("single_line_change", func(t *testing.T) {
		before := "one\ntwo\nthree\nfour\nfive\nsix\nseven\n"
		after := "one\ntwo\nthree\nFOUR\nfive\nsix\nseven\n"

		out, err := UnifiedDiff("Player.cs", before, after)
		require.NoError(t, err)

		assert.Contains(t, out, "--- a/Player.cs")
		assert.Contains(t, out, "+++ b/Player.cs")
		assert.Contains(t, out, "-four\n")
		assert.Contains(t, out, "+FOUR\n")
		assert.Contains(t, out, " three\n")
		assert.Contains(t, out, " five\n")
		assert.NotContains(t, out, "-one", "context is capped at three lines")
	})

	t.Run("added_line", func(t *testing.T) {
		out, err := UnifiedDiff("f.cs", "a\nb\n", "a\nnew\nb\n")
		require.NoError(t, err)
		assert.Contains(t, out, "+new\n")
		assert.NotContains(t, out, "-a")
		assert.NotContains(t, out, "-b")
	})

	t.Run("removed_line", func(t *testing.T) {
		out, err := UnifiedDiff("f.cs", "a\ngone\nb\n", "a\nb\n")
		require.NoError(t, err)
		assert.Contains(t, out, "-gone\n")
	})

	t.Run("change_at_start_of_file", func(t *testing.T) {
		out, err := UnifiedDiff("f.cs", "old\nrest\n", "new\nrest\n")
		require.NoError(t, err)
		assert.Contains(t, out, "-old\n")
		assert.Contains(t, out, "+new\n")
	})
}

func TestCallHierarchyText(t *testing.T) {
	move := &types.CodeSymbol{Name: "Move", EnclosingClass: "Player", FilePath: "Player.cs", StartLine: 12}
	update := &types.CodeSymbol{Name: "Update", EnclosingClass: "Player", FilePath: "Player.cs", StartLine: 7}

	t.Run("callers_and_callees", func(t *testing.T) {
		node := &types.CallHierarchyNode{
			Symbol:  move,
			Callers: []*types.CallHierarchyNode{{Symbol: update}},
		}

		out := CallHierarchyText(node)
		lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
		require.Len(t, lines, 5)
		assert.Equal(t, "Call hierarchy for 'Player.Move'", lines[0])
		assert.Equal(t, "Callers:", lines[1])
		assert.Equal(t, "  Player.Update (Player.cs:7)", lines[2])
		assert.Equal(t, "Callees:", lines[3])
		assert.Equal(t, "  (none)", lines[4])
	})

	t.Run("nil_node", func(t *testing.T) {
		assert.Equal(t, "No call hierarchy available\n", CallHierarchyText(nil))
	})
}
