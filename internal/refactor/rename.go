package refactor

import (
	"context"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/refx-dev/refx/internal/analyzer"
	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/index"
	"github.com/refx-dev/refx/internal/safety"
	"github.com/refx-dev/refx/internal/types"
)

// Rename rewrites every whole-word occurrence of a symbol's name across the
// definition's file and every file holding a reference. The rewrite is
// textual: identically named tokens in unrelated scopes are renamed too,
// which is why the safety report accompanies every preview.
type Rename struct {
	op
	Target  *types.CodeSymbol
	NewName string
}

// NewRename creates a rename operation for target.
func NewRename(ix *index.Index, sa *safety.Analyzer, target *types.CodeSymbol, newName string, opts ...Option) *Rename {
	return &Rename{
		op:      newOp(ix, sa, opts),
		Target:  target,
		NewName: newName,
	}
}

// Prepare runs the safety check plus identifier validation, and when not
// blocked computes one Replace change per whole-word match of the old name
// in each affected file. Prepare performs no writes and is re-callable; each
// call discards previously computed changes.
func (r *Rename) Prepare() (*types.RefactoringPreview, error) {
	r.reset()

	report := r.safety.Check(r.Target, types.OperationRename, r.NewName)
	preview := &types.RefactoringPreview{
		Operation: types.OperationRename,
		Target:    r.Target,
		Safety:    report,
	}
	if !report.CanProceed() {
		r.preview = preview
		r.state = StatePrepared
		debug.LogRefactor("rename %s -> %s blocked: %v\n", r.Target.Name, r.NewName, report.Blockers)
		return preview, nil
	}

	re, err := analyzer.WordBoundaryRegexp(r.Target.Name)
	if err != nil {
		return nil, fmt.Errorf("cannot build match pattern for %q: %w", r.Target.Name, err)
	}

	fileSet := map[string]bool{r.Target.FilePath: true}
	for _, ref := range r.index.References(r.Target.Name) {
		fileSet[ref.FilePath] = true
	}
	files := make([]string, 0, len(fileSet))
	for file := range fileSet {
		files = append(files, file)
	}
	sort.Strings(files)

	for _, file := range files {
		content, err := r.fs.ReadFile(file)
		if err != nil {
			// A file that cannot be read cannot be edited; skip it and say so.
			preview.Safety.Warnings = append(preview.Safety.Warnings,
				fmt.Sprintf("skipped unreadable file %s: %v", file, err))
			continue
		}
		matches := re.FindAllIndex(content, -1)
		if len(matches) == 0 {
			continue
		}
		for _, loc := range matches {
			r.changes = append(r.changes, types.FileChange{
				FilePath:    file,
				Kind:        types.ChangeReplace,
				StartOffset: loc[0],
				EndOffset:   loc[1],
				OldText:     r.Target.Name,
				NewText:     r.NewName,
			})
		}
		after := re.ReplaceAllLiteral(content, []byte(r.NewName))
		preview.Files = append(preview.Files, types.FilePreview{
			FilePath:    file,
			Before:      string(content),
			After:       string(after),
			ChangeCount: len(matches),
		})
		preview.TotalChanges += len(matches)
		r.baseHashes[file] = xxhash.Sum64(content)
	}

	r.preview = preview
	r.state = StatePrepared
	debug.LogRefactor("rename %s -> %s prepared: %d change(s) in %d file(s)\n",
		r.Target.Name, r.NewName, preview.TotalChanges, len(preview.Files))
	return preview, nil
}

// Apply commits the prepared changes transactionally.
func (r *Rename) Apply(ctx context.Context) error {
	return r.apply(ctx)
}
