// Package analyzer extracts structural symbols and textual references from
// individual source files. It is a deliberate heuristic text scanner, not a
// compiler front end: declarations are recognized by line patterns and symbol
// extents by brace counting. Brace characters inside string or comment
// literals are counted too - an accepted parsing approximation.
package analyzer

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/refx-dev/refx/internal/config"
	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/types"
)

var (
	// typeDeclRe matches class-like declarations: class/struct/interface/enum.
	typeDeclRe = regexp.MustCompile(`^\s*((?:(?:public|private|protected|internal|static|abstract|sealed|partial|readonly)\s+)*)(class|struct|interface|enum)\s+([A-Za-z_][A-Za-z0-9_]*)`)

	// eventDeclRe matches event declarations.
	eventDeclRe = regexp.MustCompile(`^\s*((?:(?:public|private|protected|internal|static)\s+)*)event\s+[\w<>,\.\s]+?\s([A-Za-z_][A-Za-z0-9_]*)\s*;`)

	// methodDeclRe matches method declarations: optional modifiers, a return
	// type token, then the method name immediately followed by a parameter
	// list. Single-identifier call statements do not match because the
	// pattern requires both a type and a name.
	methodDeclRe = regexp.MustCompile(`^\s*((?:(?:public|private|protected|internal|static|virtual|override|abstract|async|sealed|new|extern|unsafe|partial)\s+)*)([A-Za-z_][\w<>\[\],\.]*)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?:<[^>]*>)?\s*\(`)

	// propertyDeclRe matches single-line auto/body properties: a type, a
	// name, then a brace block containing a get or set accessor.
	propertyDeclRe = regexp.MustCompile(`^\s*((?:(?:public|private|protected|internal|static|virtual|override|abstract)\s+)*)([A-Za-z_][\w<>\[\],\.]*)\s+([A-Za-z_][A-Za-z0-9_]*)\s*\{`)

	// fieldDeclRe matches field declarations ending in a semicolon with no
	// parameter list on the line.
	fieldDeclRe = regexp.MustCompile(`^\s*((?:(?:public|private|protected|internal|static|readonly|const|volatile)\s+)*)([A-Za-z_][\w<>\[\],\.]*)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?:=[^;]*)?;`)

	// attrGroupRe matches a leading [Attribute] group on a line.
	attrGroupRe = regexp.MustCompile(`^\s*\[([^\]]+)\]`)

	// modifierSplitRe splits a captured modifier prefix into keywords.
	modifierSplitRe = regexp.MustCompile(`\s+`)
)

// controlKeywords are statement keywords that disqualify a line from being a
// member declaration even when the declaration shapes happen to match.
var controlKeywords = map[string]bool{
	"if": true, "else": true, "for": true, "foreach": true, "while": true,
	"do": true, "switch": true, "case": true, "return": true, "using": true,
	"catch": true, "lock": true, "throw": true, "new": true, "var": true,
	"await": true, "yield": true, "namespace": true, "get": true, "set": true,
}

// Analyzer parses one file at a time. It has no cross-file knowledge; the
// symbol index composes per-file results into the project-wide table.
type Analyzer struct {
	runtime       config.Runtime
	lifecycle     map[string]bool
	serialization []string
}

// New creates an analyzer configured with the target runtime's rule sets.
func New(rt config.Runtime) *Analyzer {
	lifecycle := make(map[string]bool, len(rt.LifecycleMethods))
	for _, name := range rt.LifecycleMethods {
		lifecycle[name] = true
	}
	return &Analyzer{
		runtime:       rt,
		lifecycle:     lifecycle,
		serialization: rt.SerializationMarkers,
	}
}

// Analyze reads one source file and extracts its structural symbols.
// A missing or unreadable file yields (nil, err); callers treat that as a
// non-fatal per-file failure, log it, and continue. A readable file with no
// recognizable structure yields an empty slice and a nil error.
//
// Every member symbol found in the file is attributed to the first class-like
// declaration in the file. Files with multiple top-level or nested classes
// get all members attributed to the first one - a known limitation of the
// single-enclosing-class-per-file heuristic, preserved for predictability.
func (a *Analyzer) Analyze(path string) ([]types.CodeSymbol, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	lines := strings.Split(string(content), "\n")
	symbols := make([]types.CodeSymbol, 0, 16)
	firstClass := ""
	var pendingAttrs []string

	for i, raw := range lines {
		line := raw
		lineAttrs, rest := consumeAttributes(line)
		if len(lineAttrs) > 0 && strings.TrimSpace(rest) == "" {
			// Attribute-only line: applies to the next declaration.
			pendingAttrs = append(pendingAttrs, lineAttrs...)
			continue
		}
		if strings.TrimSpace(rest) == "" {
			continue
		}
		attrs := append(append([]string{}, pendingAttrs...), lineAttrs...)
		pendingAttrs = nil
		line = rest

		if m := typeDeclRe.FindStringSubmatch(line); m != nil {
			kind := types.ParseSymbolKind(m[2])
			sym := types.CodeSymbol{
				Name:       m[3],
				Kind:       kind,
				FilePath:   path,
				StartLine:  i + 1,
				EndLine:    braceEnd(lines, i),
				Signature:  signatureOf(line),
				Modifiers:  splitModifiers(m[1]),
				Attributes: attrs,
			}
			symbols = append(symbols, sym)
			if firstClass == "" {
				firstClass = m[3]
			}
			debug.LogScan("%s:%d %s %s\n", path, i+1, kind, m[3])
			continue
		}

		if m := eventDeclRe.FindStringSubmatch(line); m != nil {
			symbols = append(symbols, types.CodeSymbol{
				Name:           m[2],
				Kind:           types.SymbolKindEvent,
				FilePath:       path,
				StartLine:      i + 1,
				EndLine:        i + 1,
				EnclosingClass: firstClass,
				Signature:      signatureOf(line),
				Modifiers:      splitModifiers(m[1]),
				Attributes:     attrs,
			})
			continue
		}

		if m := methodDeclRe.FindStringSubmatch(line); m != nil && !controlKeywords[m[2]] && !controlKeywords[m[3]] {
			end := memberEnd(lines, i)
			sym := types.CodeSymbol{
				Name:               m[3],
				Kind:               types.SymbolKindMethod,
				FilePath:           path,
				StartLine:          i + 1,
				EndLine:            end,
				EnclosingClass:     firstClass,
				Signature:          signatureOf(line),
				Body:               strings.Join(lines[i:end], "\n"),
				Modifiers:          splitModifiers(m[1]),
				Attributes:         attrs,
				FrameworkLifecycle: a.lifecycle[m[3]],
			}
			symbols = append(symbols, sym)
			debug.LogScan("%s:%d method %s (lines %d-%d)\n", path, i+1, m[3], i+1, end)
			continue
		}

		if m := propertyDeclRe.FindStringSubmatch(line); m != nil && !controlKeywords[m[2]] &&
			(strings.Contains(line, "get") || strings.Contains(line, "set")) {
			symbols = append(symbols, types.CodeSymbol{
				Name:           m[3],
				Kind:           types.SymbolKindProperty,
				FilePath:       path,
				StartLine:      i + 1,
				EndLine:        braceEnd(lines, i),
				EnclosingClass: firstClass,
				Signature:      signatureOf(line),
				Modifiers:      splitModifiers(m[1]),
				Attributes:     attrs,
			})
			continue
		}

		if m := fieldDeclRe.FindStringSubmatch(line); m != nil && !controlKeywords[m[2]] && !strings.Contains(line, "(") {
			symbols = append(symbols, types.CodeSymbol{
				Name:                 m[3],
				Kind:                 types.SymbolKindField,
				FilePath:             path,
				StartLine:            i + 1,
				EndLine:              i + 1,
				EnclosingClass:       firstClass,
				Signature:            signatureOf(line),
				Modifiers:            splitModifiers(m[1]),
				Attributes:           attrs,
				SerializationExposed: a.isSerializationExposed(attrs, line),
			})
			continue
		}
	}

	return symbols, nil
}

// isSerializationExposed reports whether a field declaration carries one of
// the configured serialization-exposure markers, either as an attribute or
// inline on the declaration line.
func (a *Analyzer) isSerializationExposed(attrs []string, line string) bool {
	for _, marker := range a.serialization {
		for _, attr := range attrs {
			if strings.Contains(attr, marker) {
				return true
			}
		}
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// consumeAttributes strips leading [Attribute] groups from a line, returning
// the attribute contents and the remaining text.
func consumeAttributes(line string) ([]string, string) {
	var attrs []string
	rest := line
	for {
		m := attrGroupRe.FindStringSubmatch(rest)
		if m == nil {
			return attrs, rest
		}
		attrs = append(attrs, m[1])
		loc := attrGroupRe.FindStringIndex(rest)
		rest = rest[loc[1]:]
	}
}

// braceEnd scans forward from the declaration line, incrementing a counter
// on '{' and decrementing on '}'. The line where the counter returns to zero
// after first becoming positive is the end line (1-based). A declaration
// whose block never closes extends to the last line of the file.
func braceEnd(lines []string, declIdx int) int {
	depth := 0
	opened := false
	for i := declIdx; i < len(lines); i++ {
		for _, ch := range lines[i] {
			switch ch {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			return i + 1
		}
	}
	return len(lines)
}

// memberEnd determines the end line of a member that may be either a brace
// block or a bodyless declaration terminated by a semicolon (abstract and
// interface members).
func memberEnd(lines []string, declIdx int) int {
	for i := declIdx; i < len(lines); i++ {
		if strings.Contains(lines[i], "{") {
			return braceEnd(lines, declIdx)
		}
		if strings.Contains(lines[i], ";") {
			return i + 1
		}
	}
	return len(lines)
}

// signatureOf trims a declaration line down to its signature text.
func signatureOf(line string) string {
	sig := strings.TrimSpace(line)
	if idx := strings.Index(sig, "{"); idx >= 0 {
		sig = strings.TrimSpace(sig[:idx])
	}
	return sig
}

// splitModifiers splits the captured modifier prefix into its keywords.
func splitModifiers(prefix string) []string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil
	}
	return modifierSplitRe.Split(prefix, -1)
}

// FindReferences performs a whole-word textual search for name across the
// given files. Every match counts: the search does not disambiguate by type,
// scope, or shadowing, trading precision for recall. Unreadable files are
// logged and skipped.
func (a *Analyzer) FindReferences(name string, files []string) []types.SymbolReference {
	re, err := WordBoundaryRegexp(name)
	if err != nil {
		debug.LogScan("invalid reference pattern %q: %v\n", name, err)
		return nil
	}

	var refs []types.SymbolReference
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			debug.LogScan("skipping unreadable file %s: %v\n", path, err)
			continue
		}
		for lineIdx, line := range strings.Split(string(content), "\n") {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				refs = append(refs, types.SymbolReference{
					FilePath: path,
					Line:     lineIdx + 1,
					Column:   loc[0] + 1,
					Context:  strings.TrimSpace(line),
				})
			}
		}
	}
	return refs
}

// WordBoundaryRegexp compiles a whole-word match pattern for an identifier.
func WordBoundaryRegexp(name string) (*regexp.Regexp, error) {
	return regexp.Compile(`\b` + regexp.QuoteMeta(name) + `\b`)
}
