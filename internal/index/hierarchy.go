package index

import (
	"strings"

	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/types"
)

// CallHierarchy builds one level of callers and one level of callees for a
// method symbol.
//
// Callers: every reference to the method's name, excluding the reference that
// is the definition site itself (matched by identical file and start line),
// is mapped to the enclosing method symbol whose line range contains the
// reference line.
//
// Callees: every other method symbol whose name occurs in the method's body
// immediately followed by '(' - a textual call heuristic, not verified
// invocation resolution.
//
// maxDepth is accepted for interface stability but expansion is one level in
// each direction; deeper recursive expansion is a bounded extension point.
func (ix *Index) CallHierarchy(method *types.CodeSymbol, maxDepth int) *types.CallHierarchyNode {
	if method == nil {
		return nil
	}
	if maxDepth < 1 {
		maxDepth = 1
	}

	root := &types.CallHierarchyNode{Symbol: method}

	seen := make(map[string]bool)
	for _, ref := range ix.References(method.Name) {
		if ref.FilePath == method.FilePath && ref.Line == method.StartLine {
			continue // the definition site is not a caller
		}
		caller := ix.enclosingMethod(ref.FilePath, ref.Line)
		if caller == nil || caller.Key() == method.Key() {
			continue
		}
		if seen[caller.Key()] {
			continue
		}
		seen[caller.Key()] = true
		root.Callers = append(root.Callers, &types.CallHierarchyNode{Symbol: caller})
	}

	if method.Body != "" {
		for _, sym := range ix.Symbols() {
			if sym.Kind != types.SymbolKindMethod || sym.Key() == method.Key() {
				continue
			}
			if containsCall(method.Body, sym.Name) {
				root.Callees = append(root.Callees, &types.CallHierarchyNode{Symbol: sym})
			}
		}
	}

	debug.LogIndex("call hierarchy for %s: %d callers, %d callees\n",
		method.Key(), len(root.Callers), len(root.Callees))
	return root
}

// enclosingMethod finds the method symbol whose line range contains the given
// line of the given file.
func (ix *Index) enclosingMethod(path string, line int) *types.CodeSymbol {
	for _, sym := range ix.table {
		if sym.Kind != types.SymbolKindMethod {
			continue
		}
		if sym.FilePath == path && sym.StartLine <= line && line <= sym.EndLine {
			return sym
		}
	}
	return nil
}

// containsCall reports whether body contains name as a whole word immediately
// followed by an opening parenthesis.
func containsCall(body, name string) bool {
	idx := 0
	for {
		rel := strings.Index(body[idx:], name)
		if rel < 0 {
			return false
		}
		start := idx + rel
		end := start + len(name)
		idx = end
		if start > 0 && isIdentChar(body[start-1]) {
			continue
		}
		if end < len(body) && body[end] == '(' {
			return true
		}
	}
}

func isIdentChar(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
