package refactor

import (
	"errors"
	"fmt"
	"os"

	"github.com/refx-dev/refx/internal/debug"
)

// txn is the explicit transaction context for one apply: the backup snapshot
// of every target file's pre-apply content. It is passed through the commit
// routine as a value rather than held as hidden engine state, so rollback is
// a pure function of the snapshot.
type txn struct {
	backups map[string][]byte
}

func newTxn() *txn {
	return &txn{backups: make(map[string][]byte)}
}

// snapshot records a file's full pre-apply content.
func (t *txn) snapshot(path string, content []byte) {
	t.backups[path] = content
}

// content returns the snapshotted content for a file.
func (t *txn) content(path string) []byte {
	return t.backups[path]
}

// rollback restores every snapshotted file to its pre-apply content.
// Restoration is best-effort: it keeps going past individual write failures
// and reports them joined, rather than stopping at the first.
func (t *txn) rollback(fs FS) error {
	var errs []error
	for path, content := range t.backups {
		if err := fs.WriteFile(path, content, os.FileMode(0644)); err != nil {
			errs = append(errs, fmt.Errorf("failed to restore %s: %w", path, err))
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	debug.LogRefactor("rolled back %d file(s)\n", len(t.backups))
	return nil
}
