package render

import (
	"fmt"
	"strings"

	"github.com/refx-dev/refx/internal/types"
)

// CallHierarchyText formats a call-hierarchy node as indented text.
func CallHierarchyText(node *types.CallHierarchyNode) string {
	if node == nil || node.Symbol == nil {
		return "No call hierarchy available\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Call hierarchy for '%s'\n", node.Symbol.Key())

	b.WriteString("Callers:\n")
	writeNodes(&b, node.Callers, 1)
	b.WriteString("Callees:\n")
	writeNodes(&b, node.Callees, 1)

	return b.String()
}

func writeNodes(b *strings.Builder, nodes []*types.CallHierarchyNode, depth int) {
	indent := strings.Repeat("  ", depth)
	if len(nodes) == 0 {
		b.WriteString(indent + "(none)\n")
		return
	}
	for _, n := range nodes {
		fmt.Fprintf(b, "%s%s (%s)\n", indent, n.Symbol.Key(), n.Symbol.Location())
		// Nested levels appear here if the hierarchy is ever expanded
		// beyond one level in each direction.
		writeChildren(b, n, depth+1)
	}
}

func writeChildren(b *strings.Builder, n *types.CallHierarchyNode, depth int) {
	writeNested(b, n.Callers, depth)
	writeNested(b, n.Callees, depth)
}

func writeNested(b *strings.Builder, nodes []*types.CallHierarchyNode, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		fmt.Fprintf(b, "%s%s (%s)\n", indent, n.Symbol.Key(), n.Symbol.Location())
		writeChildren(b, n, depth+1)
	}
}
