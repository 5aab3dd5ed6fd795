// Package refactor implements safety-checked refactoring operations over the
// symbol index: each operation prepares a preview without writing anything,
// then commits its file changes transactionally with restore-from-backup on
// failure. At most one apply may be in flight project-wide; interleaving two
// prepared operations can silently clobber one with the other's stale
// offsets, so serialization is a caller responsibility.
package refactor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/index"
	"github.com/refx-dev/refx/internal/safety"
	"github.com/refx-dev/refx/internal/types"
)

// State tracks an operation instance through its lifecycle:
// Created -> Prepared -> Applied, or Created -> Prepared -> Failed (restored).
type State int

const (
	StateCreated State = iota
	StatePrepared
	StateApplied
	StateFailed
)

var stateStrings = map[State]string{
	StateCreated:  "created",
	StatePrepared: "prepared",
	StateApplied:  "applied",
	StateFailed:   "failed",
}

// String returns a string representation of the operation state
func (s State) String() string {
	if name, ok := stateStrings[s]; ok {
		return name
	}
	return "unknown"
}

// FS abstracts the raw file read/write primitives so tests can inject
// failures mid-commit.
type FS interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm os.FileMode) error
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }
func (osFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	return os.WriteFile(path, data, perm)
}

// Notifier receives the "project changed" signal after a successful apply.
// The engine performs no file-system refresh itself.
type Notifier interface {
	ProjectChanged(files []string)
}

type noopNotifier struct{}

func (noopNotifier) ProjectChanged([]string) {}

// Option customizes an operation's collaborators.
type Option func(*op)

// WithFS overrides the file system used for reads and the final commit.
func WithFS(fs FS) Option {
	return func(o *op) { o.fs = fs }
}

// WithNotifier sets the host notification sink fired after a successful apply.
func WithNotifier(n Notifier) Option {
	return func(o *op) { o.notifier = n }
}

// op is the shared core of all operation types: collaborators, the pending
// change list, per-file content hashes recorded at prepare time, and the
// state machine.
type op struct {
	index    *index.Index
	safety   *safety.Analyzer
	fs       FS
	notifier Notifier

	state      State
	changes    []types.FileChange
	baseHashes map[string]uint64
	preview    *types.RefactoringPreview
}

func newOp(ix *index.Index, sa *safety.Analyzer, opts []Option) op {
	o := op{
		index:      ix,
		safety:     sa,
		fs:         osFS{},
		notifier:   noopNotifier{},
		baseHashes: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// State returns the operation's current lifecycle state.
func (o *op) State() State { return o.state }

// Preview returns the preview from the last Prepare, or nil.
func (o *op) Preview() *types.RefactoringPreview { return o.preview }

// reset discards any previously computed changes so Prepare is re-callable.
func (o *op) reset() {
	o.state = StateCreated
	o.changes = nil
	o.baseHashes = make(map[string]uint64)
	o.preview = nil
}

// apply is the transactional multi-file commit shared by all operations:
// snapshot every distinct target file, apply each file's changes against
// absolute byte offsets in descending start order, then write the final
// texts. Any failure restores every file in the backup set to its pre-apply
// content. The restore is best-effort, not a durable two-phase commit: a
// crash during restoration can leave partial state.
func (o *op) apply(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if o.state != StatePrepared {
		return fmt.Errorf("operation is %s, not prepared", o.state)
	}
	if len(o.changes) == 0 {
		return errors.New("no pending changes to apply")
	}

	files := o.targetFiles()

	// Snapshot the full current text of every target file. Content that
	// drifted since Prepare would invalidate the recorded offsets, so a
	// hash mismatch aborts before anything is written.
	tx := newTxn()
	for _, file := range files {
		content, err := o.fs.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to snapshot %s: %w", file, err)
		}
		if base, ok := o.baseHashes[file]; ok && xxhash.Sum64(content) != base {
			return fmt.Errorf("%s was modified after prepare; re-run prepare", file)
		}
		tx.snapshot(file, content)
	}

	grouped := make(map[string][]types.FileChange, len(files))
	for _, ch := range o.changes {
		grouped[ch.FilePath] = append(grouped[ch.FilePath], ch)
	}

	// Compute every file's final text before the first write, so offset
	// validation failures cost nothing.
	final := make(map[string][]byte, len(grouped))
	for file, changes := range grouped {
		sort.Slice(changes, func(i, j int) bool {
			return changes[i].StartOffset > changes[j].StartOffset
		})
		content := tx.content(file)
		for _, ch := range changes {
			next, err := applyChange(content, ch)
			if err != nil {
				o.state = StateFailed
				return fmt.Errorf("invalid change for %s: %w", file, err)
			}
			content = next
		}
		final[file] = content
	}

	for _, file := range files {
		if err := o.fs.WriteFile(file, final[file], 0644); err != nil {
			o.state = StateFailed
			if rbErr := tx.rollback(o.fs); rbErr != nil {
				return fmt.Errorf("apply failed writing %s and rollback incomplete: %w", file, errors.Join(err, rbErr))
			}
			debug.LogRefactor("apply failed writing %s; all %d files restored\n", file, len(files))
			return fmt.Errorf("apply failed writing %s (all files restored): %w", file, err)
		}
	}

	o.state = StateApplied
	o.changes = nil
	debug.LogRefactor("apply committed %d file(s)\n", len(files))
	o.notifier.ProjectChanged(files)
	return nil
}

// targetFiles returns the distinct files touched by the pending changes, in
// sorted order for deterministic write sequencing.
func (o *op) targetFiles() []string {
	seen := make(map[string]bool)
	var files []string
	for _, ch := range o.changes {
		if !seen[ch.FilePath] {
			seen[ch.FilePath] = true
			files = append(files, ch.FilePath)
		}
	}
	sort.Strings(files)
	return files
}

// applyChange applies one offset-addressed edit to content.
// Replace and Delete verify the recorded old text still occupies the range.
func applyChange(content []byte, ch types.FileChange) ([]byte, error) {
	if ch.StartOffset < 0 || ch.EndOffset < ch.StartOffset || ch.EndOffset > len(content) {
		return nil, fmt.Errorf("offset range [%d,%d) out of bounds (len %d)", ch.StartOffset, ch.EndOffset, len(content))
	}

	switch ch.Kind {
	case types.ChangeReplace, types.ChangeDelete:
		if ch.OldText != "" && string(content[ch.StartOffset:ch.EndOffset]) != ch.OldText {
			return nil, fmt.Errorf("content at [%d,%d) no longer matches recorded text", ch.StartOffset, ch.EndOffset)
		}
	}

	var newText string
	if ch.Kind != types.ChangeDelete {
		newText = ch.NewText
	}

	out := make([]byte, 0, len(content)-(ch.EndOffset-ch.StartOffset)+len(newText))
	out = append(out, content[:ch.StartOffset]...)
	out = append(out, newText...)
	out = append(out, content[ch.EndOffset:]...)
	return out, nil
}
