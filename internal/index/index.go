// Package index owns the project-wide symbol table, the reference cache, and
// call-hierarchy construction. The table is rebuilt wholesale by Build; there
// is no partial invalidation. Any edit to source files outside the refactor
// engine's own apply invalidates cached data silently until the next rebuild.
//
// The index performs no internal locking: callers must not query it while a
// rebuild is in progress, and at most one refactor apply may be in flight.
// Serialization is a caller responsibility.
package index

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"

	"github.com/refx-dev/refx/internal/analyzer"
	"github.com/refx-dev/refx/internal/config"
	"github.com/refx-dev/refx/internal/debug"
	"github.com/refx-dev/refx/internal/types"
)

// FileFilter is a caller-supplied inclusion predicate applied on top of the
// configured include/exclude globs during discovery. A nil filter includes
// every file the globs admit.
type FileFilter func(path string) bool

// ScanError records one non-fatal per-file failure during a build.
type ScanError struct {
	Path string
	Err  error
}

// BuildStats summarizes one full rebuild.
type BuildStats struct {
	FilesScanned int
	SymbolCount  int
	ScanErrors   []ScanError
	Duration     time.Duration
	Generation   uint64
}

// refCacheEntry memoizes one reference lookup together with the table
// generation it was computed at, so staleness is explicit rather than
// ambient state.
type refCacheEntry struct {
	refs       []types.SymbolReference
	generation uint64
}

// Index is the project-wide symbol table plus reference and call caches.
type Index struct {
	cfg      *config.Config
	analyzer *analyzer.Analyzer

	root       string
	table      map[string]*types.CodeSymbol
	files      []string
	fileHashes map[string]uint64
	refCache   map[string]refCacheEntry
	generation uint64
}

// New creates an empty index. Call Build before querying.
func New(cfg *config.Config, a *analyzer.Analyzer) *Index {
	return &Index{
		cfg:        cfg,
		analyzer:   a,
		table:      make(map[string]*types.CodeSymbol),
		fileHashes: make(map[string]uint64),
		refCache:   make(map[string]refCacheEntry),
	}
}

// Build discovers all source files under root matching the configured globs
// and the caller's filter, analyzes each, and merges the results into one
// key-to-symbol mapping. Later files overwrite earlier ones on key collision.
// The symbol table, reference cache, and call caches are cleared before the
// rescan; the generation counter is bumped so stale cache entries are
// detectable. This is a blocking full rescan, intended as an explicit
// user-triggered operation, not something run per edit.
func (ix *Index) Build(root string, filter FileFilter) (*BuildStats, error) {
	start := time.Now()

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}

	files, err := ix.discover(absRoot, filter)
	if err != nil {
		return nil, err
	}

	// Wholesale invalidation: no partial state survives a rebuild.
	ix.root = absRoot
	ix.table = make(map[string]*types.CodeSymbol)
	ix.fileHashes = make(map[string]uint64, len(files))
	ix.refCache = make(map[string]refCacheEntry)
	ix.files = files
	ix.generation++

	stats := &BuildStats{Generation: ix.generation}
	for _, path := range files {
		symbols, err := ix.analyzer.Analyze(path)
		if err != nil {
			debug.LogIndex("scan failure for %s: %v\n", path, err)
			stats.ScanErrors = append(stats.ScanErrors, ScanError{Path: path, Err: err})
			continue
		}
		stats.FilesScanned++
		for i := range symbols {
			sym := symbols[i]
			ix.table[sym.Key()] = &sym
		}
		if content, err := os.ReadFile(path); err == nil {
			ix.fileHashes[path] = xxhash.Sum64(content)
		}
	}

	stats.SymbolCount = len(ix.table)
	stats.Duration = time.Since(start)
	debug.LogIndex("build complete: %d files, %d symbols, generation %d (%s)\n",
		stats.FilesScanned, stats.SymbolCount, stats.Generation, stats.Duration)
	return stats, nil
}

// discover walks root collecting files admitted by the include/exclude globs,
// the max file size limit, and the caller filter.
func (ix *Index) discover(root string, filter FileFilter) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			debug.LogIndex("walk error at %s: %v\n", path, err)
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if ix.excluded(rel + "/") {
				return filepath.SkipDir
			}
			return nil
		}
		if ix.excluded(rel) || !ix.included(rel) {
			return nil
		}
		if ix.cfg.Index.MaxFileSize > 0 {
			if info, err := d.Info(); err == nil && info.Size() > ix.cfg.Index.MaxFileSize {
				debug.LogIndex("skipping oversized file %s (%d bytes)\n", path, info.Size())
				return nil
			}
		}
		if filter != nil && !filter(path) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

func (ix *Index) included(rel string) bool {
	if len(ix.cfg.Index.Include) == 0 {
		return true
	}
	for _, pattern := range ix.cfg.Index.Include {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func (ix *Index) excluded(rel string) bool {
	for _, pattern := range ix.cfg.Index.Exclude {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, strings.TrimSuffix(rel, "/")); ok {
			return true
		}
	}
	return false
}

// FindSymbol resolves a name against the table: exact key match first, then
// suffix match on ".name", then bare-name match. When several symbols share a
// bare name the result is whichever the map iteration reaches first - the
// ambiguity is documented nondeterminism, not a relevance ranking.
func (ix *Index) FindSymbol(name string) *types.CodeSymbol {
	if sym, ok := ix.table[name]; ok {
		return sym
	}
	suffix := "." + name
	for key, sym := range ix.table {
		if strings.HasSuffix(key, suffix) {
			return sym
		}
	}
	for _, sym := range ix.table {
		if sym.Name == name {
			return sym
		}
	}
	return nil
}

// SearchSymbols returns symbols whose name contains pattern
// (case-insensitive), optionally restricted to the given kinds, sorted
// ascending by name.
func (ix *Index) SearchSymbols(pattern string, kinds ...types.SymbolKind) []*types.CodeSymbol {
	lower := strings.ToLower(pattern)
	var out []*types.CodeSymbol
	for _, sym := range ix.table {
		if !strings.Contains(strings.ToLower(sym.Name), lower) {
			continue
		}
		if len(kinds) > 0 && !kindMatches(sym.Kind, kinds) {
			continue
		}
		out = append(out, sym)
	}
	types.SortSymbols(out)
	if max := ix.cfg.Search.MaxResults; max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

func kindMatches(kind types.SymbolKind, kinds []types.SymbolKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

// References returns every whole-word textual occurrence of name across the
// discovered file set. Results are memoized per name; the cache survives
// until the next Build. Entries computed under an older generation are
// recomputed, which makes staleness observable instead of silent.
func (ix *Index) References(name string) []types.SymbolReference {
	if entry, ok := ix.refCache[name]; ok && entry.generation == ix.generation {
		return entry.refs
	}
	refs := ix.analyzer.FindReferences(name, ix.files)
	ix.refCache[name] = refCacheEntry{refs: refs, generation: ix.generation}
	debug.LogIndex("cached %d references for %q at generation %d\n", len(refs), name, ix.generation)
	return refs
}

// SymbolsInFile returns all symbols declared in the given file, sorted by
// start line.
func (ix *Index) SymbolsInFile(path string) []*types.CodeSymbol {
	var out []*types.CodeSymbol
	for _, sym := range ix.table {
		if sym.FilePath == path {
			out = append(out, sym)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartLine < out[j].StartLine })
	return out
}

// ClassMethods returns the methods attributed to the named class, sorted by name.
func (ix *Index) ClassMethods(class string) []*types.CodeSymbol {
	return ix.classMembers(class, types.SymbolKindMethod)
}

// ClassFields returns the fields attributed to the named class, sorted by name.
func (ix *Index) ClassFields(class string) []*types.CodeSymbol {
	return ix.classMembers(class, types.SymbolKindField)
}

func (ix *Index) classMembers(class string, kind types.SymbolKind) []*types.CodeSymbol {
	var out []*types.CodeSymbol
	for _, sym := range ix.table {
		if sym.EnclosingClass == class && sym.Kind == kind {
			out = append(out, sym)
		}
	}
	types.SortSymbols(out)
	return out
}

// Files returns the discovered file set from the last Build.
func (ix *Index) Files() []string {
	return ix.files
}

// FileHash returns the xxhash64 of a file's content as recorded at the last
// Build, for stale-content detection.
func (ix *Index) FileHash(path string) (uint64, bool) {
	h, ok := ix.fileHashes[path]
	return h, ok
}

// Generation returns the current rebuild generation counter.
func (ix *Index) Generation() uint64 {
	return ix.generation
}

// Root returns the project root of the last Build.
func (ix *Index) Root() string {
	return ix.root
}

// Symbols returns every symbol in the table, sorted by name. Intended for
// renderings and diagnostics, not hot paths.
func (ix *Index) Symbols() []*types.CodeSymbol {
	out := make([]*types.CodeSymbol, 0, len(ix.table))
	for _, sym := range ix.table {
		out = append(out, sym)
	}
	types.SortSymbols(out)
	return out
}
