package refactor

import (
	"context"
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/index"
	"github.com/refx-dev/refx/internal/safety"
	"github.com/refx-dev/refx/internal/types"
)

// ExtractMethod moves a verbatim selected fragment of a containing method
// into a newly synthesized private method placed immediately after the
// containing method, and replaces the first literal occurrence of the
// fragment with a call to the new method. If the fragment recurs elsewhere
// in the file the first occurrence found is the one rewritten; callers are
// expected to supply a fragment that uniquely identifies the intended
// occurrence.
type ExtractMethod struct {
	op
	Container *types.CodeSymbol
	Selection string
	NewName   string
}

// NewExtractMethod creates an extract-method operation. container must be
// the method symbol holding the selection.
func NewExtractMethod(ix *index.Index, sa *safety.Analyzer, container *types.CodeSymbol, selection, newName string, opts ...Option) *ExtractMethod {
	return &ExtractMethod{
		op:        newOp(ix, sa, opts),
		Container: container,
		Selection: selection,
		NewName:   newName,
	}
}

// Prepare validates the proposed name and builds the two changes against the
// single source file: an Insert of the synthesized method after the
// containing method's end line, and a Replace of the selection with a call.
// Prepare performs no writes and is re-callable.
func (e *ExtractMethod) Prepare() (*types.RefactoringPreview, error) {
	e.reset()

	report := e.safety.Check(e.Container, types.OperationExtractMethod, e.NewName)
	preview := &types.RefactoringPreview{
		Operation: types.OperationExtractMethod,
		Target:    e.Container,
		Safety:    report,
	}
	if !report.CanProceed() {
		e.preview = preview
		e.state = StatePrepared
		return preview, nil
	}

	content, err := e.fs.ReadFile(e.Container.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", e.Container.FilePath, err)
	}
	text := string(content)

	selIdx := strings.Index(text, e.Selection)
	if selIdx < 0 || strings.TrimSpace(e.Selection) == "" {
		preview.Safety.Blockers = append(preview.Safety.Blockers,
			"selection not found in the containing method's file")
		e.preview = preview
		e.state = StatePrepared
		return preview, nil
	}

	methodIndent := lineIndent(text, lineStartOffset(text, e.Container.StartLine))
	methodText := synthesizeMethod(e.NewName, e.Selection, methodIndent)
	insertAt := lineEndOffset(text, e.Container.EndLine)

	// The call takes the selection's place, re-indented to the fragment's
	// original leading indentation. A whole-line selection carries its own
	// indent and trailing newline, so both are re-emitted around the call;
	// an inline selection leaves the surrounding text untouched.
	call := selectionIndent(e.Selection) + e.NewName + "();"
	if strings.HasSuffix(e.Selection, "\n") {
		call += "\n"
	}

	e.changes = append(e.changes,
		types.FileChange{
			FilePath:    e.Container.FilePath,
			Kind:        types.ChangeInsert,
			StartOffset: insertAt,
			EndOffset:   insertAt,
			NewText:     methodText,
		},
		types.FileChange{
			FilePath:    e.Container.FilePath,
			Kind:        types.ChangeReplace,
			StartOffset: selIdx,
			EndOffset:   selIdx + len(e.Selection),
			OldText:     e.Selection,
			NewText:     call,
		},
	)

	after := text[:insertAt] + methodText + text[insertAt:]
	after = after[:selIdx] + call + after[selIdx+len(e.Selection):]
	preview.Files = append(preview.Files, types.FilePreview{
		FilePath:    e.Container.FilePath,
		Before:      text,
		After:       after,
		ChangeCount: 2,
	})
	preview.TotalChanges = 2
	e.baseHashes[e.Container.FilePath] = xxhash.Sum64(content)

	e.preview = preview
	e.state = StatePrepared
	debug.LogRefactor("extract %s from %s prepared\n", e.NewName, e.Container.Key())
	return preview, nil
}

// Apply commits the prepared changes transactionally.
func (e *ExtractMethod) Apply(ctx context.Context) error {
	return e.apply(ctx)
}

// synthesizeMethod builds the new method text: fixed private visibility, the
// selection re-indented and copied verbatim into the body. declIndent is the
// indentation of the containing method's declaration line.
func synthesizeMethod(name, selection, declIndent string) string {
	bodyIndent := declIndent + "    "
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(declIndent)
	b.WriteString("private void ")
	b.WriteString(name)
	b.WriteString("()\n")
	b.WriteString(declIndent)
	b.WriteString("{\n")
	b.WriteString(reindent(selection, bodyIndent))
	b.WriteString(declIndent)
	b.WriteString("}\n")
	return b.String()
}

// selectionIndent returns the leading whitespace of the selection's first
// line. Inline selections that start at their line's content have none.
func selectionIndent(selection string) string {
	return selection[:len(selection)-len(strings.TrimLeft(selection, " \t"))]
}

// reindent strips the selection's common leading whitespace and prefixes each
// non-empty line with indent. Line content is otherwise untouched.
func reindent(selection, indent string) string {
	lines := strings.Split(strings.TrimRight(selection, "\n"), "\n")

	common := -1
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lead := len(line) - len(strings.TrimLeft(line, " \t"))
		if common < 0 || lead < common {
			common = lead
		}
	}
	if common < 0 {
		common = 0
	}

	var b strings.Builder
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			b.WriteString("\n")
			continue
		}
		if len(line) >= common {
			line = line[common:]
		}
		b.WriteString(indent)
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}

// lineStartOffset returns the byte offset of the start of a 1-based line.
func lineStartOffset(text string, line int) int {
	offset := 0
	for n := 1; n < line; n++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return offset
		}
		offset += next + 1
	}
	return offset
}

// lineEndOffset returns the byte offset just past the end of a 1-based line,
// including its newline when present.
func lineEndOffset(text string, line int) int {
	start := lineStartOffset(text, line)
	next := strings.IndexByte(text[start:], '\n')
	if next < 0 {
		return len(text)
	}
	return start + next + 1
}

// lineIndent returns the leading whitespace of the line starting at offset.
func lineIndent(text string, offset int) string {
	end := offset
	for end < len(text) && (text[end] == ' ' || text[end] == '\t') {
		end++
	}
	return text[offset:end]
}
