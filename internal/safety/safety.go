// Package safety is a stateless rule engine scoring the risk of a proposed
// refactoring operation. Rules read symbol metadata plus supplementary file
// scans; nothing here mutates state or touches the symbol index's caches, so
// risk assessment stays decoupled from index cache lifetime.
package safety

import (
	"fmt"
	"os"
	"strings"

	"github.com/refx-dev/refx/internal/config"
	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/types"
)

// FileSet supplies the project file list for supplementary scans. The
// analyzer re-reads file contents itself rather than consulting any cache.
type FileSet interface {
	Files() []string
}

// Analyzer evaluates the safety rule table for proposed operations.
type Analyzer struct {
	runtime config.Runtime
	files   FileSet
}

// New creates a safety analyzer over the given runtime rule sets and project
// file set.
func New(rt config.Runtime, files FileSet) *Analyzer {
	return &Analyzer{runtime: rt, files: files}
}

// Check scores the risk of applying the given operation to the symbol. The
// report's risk level is the maximum over all triggered rules; a blocker
// entry means the operation must not proceed. newName, when non-empty, is
// validated as an identifier; an invalid name escalates to a blocker.
// Check never mutates state and never returns an error: every condition is
// surfaced as structured data on the report.
func (a *Analyzer) Check(sym *types.CodeSymbol, op types.OperationKind, newName string) types.SafetyReport {
	report := types.SafetyReport{
		Symbol:    sym,
		Operation: op,
		Risk:      types.RiskLow,
	}

	if newName != "" && !IsValidIdentifier(newName) {
		report.Blockers = append(report.Blockers,
			fmt.Sprintf("%q is not a valid identifier", newName))
		report.Risk = report.Risk.Max(types.RiskHigh)
	}

	if op == types.OperationRename {
		a.checkRenameRules(sym, &report)
	}

	a.checkReflectionMarkers(sym, &report)

	debug.LogSafety("%s %s: risk=%s warnings=%d blockers=%d\n",
		op, sym.Key(), report.Risk, len(report.Warnings), len(report.Blockers))
	return report
}

func (a *Analyzer) checkRenameRules(sym *types.CodeSymbol, report *types.SafetyReport) {
	if sym.FrameworkLifecycle {
		report.Blockers = append(report.Blockers, fmt.Sprintf(
			"%q is a framework lifecycle method; renaming it breaks the runtime invocation contract", sym.Name))
		report.Risk = report.Risk.Max(types.RiskHigh)
	}

	if sym.SerializationExposed {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%q is serialization-exposed; persisted data referencing the old name will be orphaned", sym.Name))
		report.Risk = report.Risk.Max(types.RiskHigh)
	}

	if sym.Kind == types.SymbolKindMethod {
		if hits := a.StringLiteralReferences(sym.Name); len(hits) > 0 {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"%d indirect string-literal invocation(s) of %q detected; textual rename will not update them", len(hits), sym.Name))
			report.Risk = report.Risk.Max(types.RiskMedium)
		}
	}

	if sym.IsPublic() {
		report.Warnings = append(report.Warnings, fmt.Sprintf(
			"%q is public; external callers may depend on the name", sym.Name))
		report.Risk = report.Risk.Max(types.RiskMedium)
	}
}

// checkReflectionMarkers adds an informational warning when the symbol's
// defining file contains reflection/introspection markers. The risk level is
// left unchanged.
func (a *Analyzer) checkReflectionMarkers(sym *types.CodeSymbol, report *types.SafetyReport) {
	content, err := os.ReadFile(sym.FilePath)
	if err != nil {
		return
	}
	text := string(content)
	for _, marker := range a.runtime.ReflectionMarkers {
		if strings.Contains(text, marker) {
			report.Warnings = append(report.Warnings, fmt.Sprintf(
				"file %s uses reflection (%s); textual analysis may miss dynamic references", sym.FilePath, strings.TrimSuffix(marker, "(")))
			return
		}
	}
}

// StringLiteralReferences rescans every project file for lines containing
// both a configured indirect-invocation call pattern and a quoted occurrence
// of the method name. The scan reads files directly, independent of the
// symbol index's reference cache.
func (a *Analyzer) StringLiteralReferences(method string) []types.StringReference {
	quoted := `"` + method + `"`
	var hits []types.StringReference
	for _, path := range a.files.Files() {
		content, err := os.ReadFile(path)
		if err != nil {
			debug.LogSafety("skipping unreadable file %s: %v\n", path, err)
			continue
		}
		for lineIdx, line := range strings.Split(string(content), "\n") {
			if !strings.Contains(line, quoted) {
				continue
			}
			for _, pattern := range a.runtime.StringCallPatterns {
				if strings.Contains(line, pattern) {
					hits = append(hits, types.StringReference{
						FilePath: path,
						Line:     lineIdx + 1,
						Context:  strings.TrimSpace(line),
					})
					break
				}
			}
		}
	}
	return hits
}

// IsValidIdentifier reports whether name is a legal identifier: non-empty,
// first character a letter or underscore, remaining characters alphanumeric
// or underscore.
func IsValidIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		isLetter := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
		isDigit := r >= '0' && r <= '9'
		if i == 0 {
			if !isLetter && r != '_' {
				return false
			}
			continue
		}
		if !isLetter && !isDigit && r != '_' {
			return false
		}
	}
	return true
}
