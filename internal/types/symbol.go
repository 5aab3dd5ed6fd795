package types

import (
	"fmt"
	"sort"
	"strings"
)

// SymbolKind represents the kind of a parsed code symbol
type SymbolKind int

const (
	SymbolKindUnknown SymbolKind = iota
	SymbolKindClass
	SymbolKindStruct
	SymbolKindInterface
	SymbolKindEnum
	SymbolKindMethod
	SymbolKindField
	SymbolKindProperty
	SymbolKindEvent
)

// symbolKindStrings provides O(1) lookup for symbol kind names
var symbolKindStrings = map[SymbolKind]string{
	SymbolKindClass:     "class",
	SymbolKindStruct:    "struct",
	SymbolKindInterface: "interface",
	SymbolKindEnum:      "enum",
	SymbolKindMethod:    "method",
	SymbolKindField:     "field",
	SymbolKindProperty:  "property",
	SymbolKindEvent:     "event",
}

// String returns a string representation of the symbol kind
func (sk SymbolKind) String() string {
	if name, ok := symbolKindStrings[sk]; ok {
		return name
	}
	return "unknown"
}

// ParseSymbolKind converts a kind name into a SymbolKind.
// Unrecognized names map to SymbolKindUnknown.
func ParseSymbolKind(name string) SymbolKind {
	lower := strings.ToLower(strings.TrimSpace(name))
	for kind, str := range symbolKindStrings {
		if str == lower {
			return kind
		}
	}
	return SymbolKindUnknown
}

// IsTypeDeclaration reports whether the kind declares a class-like container.
func (sk SymbolKind) IsTypeDeclaration() bool {
	switch sk {
	case SymbolKindClass, SymbolKindStruct, SymbolKindInterface, SymbolKindEnum:
		return true
	}
	return false
}

// CodeSymbol is a structural element extracted from one source file.
// Symbols are created fresh on every rebuild and never partially mutated
// afterwards. EnclosingClass is a name-based weak reference, resolved on
// demand against the current symbol table, never an owning pointer.
type CodeSymbol struct {
	Name           string
	Kind           SymbolKind
	FilePath       string
	StartLine      int // 1-based, inclusive
	EndLine        int // 1-based, inclusive; >= StartLine
	EnclosingClass string
	Signature      string
	Body           string
	Modifiers      []string
	Attributes     []string

	// FrameworkLifecycle marks methods whose name is reserved by the host
	// runtime for automatic invocation. Renaming one breaks that contract.
	FrameworkLifecycle bool

	// SerializationExposed marks fields whose name is persisted in external
	// data. Renaming one orphans existing persisted references.
	SerializationExposed bool
}

// Key returns the symbol table key: "EnclosingClass.Name" when the enclosing
// class is known, otherwise the bare name. Collisions overwrite; the last
// file scanned wins.
func (s *CodeSymbol) Key() string {
	if s.EnclosingClass != "" {
		return s.EnclosingClass + "." + s.Name
	}
	return s.Name
}

// HasModifier reports whether the symbol carries the given modifier keyword.
func (s *CodeSymbol) HasModifier(mod string) bool {
	for _, m := range s.Modifiers {
		if m == mod {
			return true
		}
	}
	return false
}

// IsPublic reports whether the symbol carries a public visibility modifier.
func (s *CodeSymbol) IsPublic() bool {
	return s.HasModifier("public")
}

// Location returns a human-readable "file:line" for the symbol.
func (s *CodeSymbol) Location() string {
	return fmt.Sprintf("%s:%d", s.FilePath, s.StartLine)
}

// SymbolReference is one whole-word textual occurrence of a symbol name.
// References are produced by word-boundary search and are not scope-aware:
// any identical token anywhere in scanned files counts.
type SymbolReference struct {
	FilePath string
	Line     int // 1-based
	Column   int // 1-based
	Context  string
}

// CallHierarchyNode holds one symbol plus one level of callers and callees.
// Expansion is one level in each direction; deeper expansion is a bounded
// extension point.
type CallHierarchyNode struct {
	Symbol  *CodeSymbol
	Callers []*CallHierarchyNode
	Callees []*CallHierarchyNode
}

// SortSymbols orders symbols ascending by name, then by file and line for
// stable output when names collide.
func SortSymbols(symbols []*CodeSymbol) {
	sort.Slice(symbols, func(i, j int) bool {
		if symbols[i].Name != symbols[j].Name {
			return symbols[i].Name < symbols[j].Name
		}
		if symbols[i].FilePath != symbols[j].FilePath {
			return symbols[i].FilePath < symbols[j].FilePath
		}
		return symbols[i].StartLine < symbols[j].StartLine
	})
}
