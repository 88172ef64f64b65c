package trellis

import (
	"context"
	"fmt"
	"sort"

	"github.com/mkerner/trellis/internal/store"
)

var diffStatusOrder = map[string]int{
	DiffRemoved:  0,
	DiffModified: 1,
	DiffAdded:    2,
}

// Diff compares the graphs persisted under two scan ids. Unlike the query
// operations, a missing version on either side is an error wrapping
// ErrScanNotFound: diffing against nothing is a caller mistake, not an
// empty result.
func (e *Engine) Diff(ctx context.Context, baseScanID, headScanID string) (*DiffResult, error) {
	base, err := e.loadVersionGraph(ctx, baseScanID)
	if err != nil {
		return nil, err
	}
	if base == nil {
		return nil, fmt.Errorf("base scan %q: %w", baseScanID, ErrScanNotFound)
	}
	head, err := e.loadVersionGraph(ctx, headScanID)
	if err != nil {
		return nil, err
	}
	if head == nil {
		return nil, fmt.Errorf("head scan %q: %w", headScanID, ErrScanNotFound)
	}

	baseSyms := groupSymbolsByFile(base.symbols)
	headSyms := groupSymbolsByFile(head.symbols)

	baseFiles := make(map[string]*store.File, len(base.files))
	for _, f := range base.files {
		baseFiles[f.Path] = f
	}
	headFiles := make(map[string]*store.File, len(head.files))
	for _, f := range head.files {
		headFiles[f.Path] = f
	}

	out := &DiffResult{
		BaseScanID:   baseScanID,
		HeadScanID:   headScanID,
		FilesChanged: []FileDiff{},
	}

	// Files only in head: every symbol counts as added.
	for path, f := range headFiles {
		if _, ok := baseFiles[path]; ok {
			continue
		}
		n := len(headSyms[f.ID])
		out.SymbolsChanged += n
		out.TotalFilesAdded++
		out.FilesChanged = append(out.FilesChanged, FileDiff{
			File:         path,
			Status:       DiffAdded,
			SymbolsAdded: n,
		})
	}

	// Files only in base: every symbol counts as removed.
	for path, f := range baseFiles {
		if _, ok := headFiles[path]; ok {
			continue
		}
		n := len(baseSyms[f.ID])
		out.SymbolsChanged += n
		out.TotalFilesRemoved++
		out.FilesChanged = append(out.FilesChanged, FileDiff{
			File:           path,
			Status:         DiffRemoved,
			SymbolsRemoved: n,
		})
	}

	// Common files: compare symbol sets; untouched files are omitted.
	for path, bf := range baseFiles {
		hf, ok := headFiles[path]
		if !ok {
			continue
		}
		d := diffSymbols(baseSyms[bf.ID], headSyms[hf.ID])
		if d.SymbolsAdded == 0 && d.SymbolsRemoved == 0 && d.SymbolsModified == 0 {
			continue
		}
		d.File = path
		d.Status = DiffModified
		out.SymbolsChanged += d.SymbolsAdded + d.SymbolsRemoved + d.SymbolsModified
		out.TotalFilesModified++
		out.FilesChanged = append(out.FilesChanged, d)
	}

	sort.Slice(out.FilesChanged, func(i, j int) bool {
		a, b := out.FilesChanged[i], out.FilesChanged[j]
		if diffStatusOrder[a.Status] != diffStatusOrder[b.Status] {
			return diffStatusOrder[a.Status] < diffStatusOrder[b.Status]
		}
		return a.File < b.File
	})
	return out, nil
}

// diffSymbols compares two symbol sets keyed by qualified name (falling
// back to name). A symbol present on both sides counts as modified when its
// start or end line moved.
func diffSymbols(baseSyms, headSyms []*store.Symbol) FileDiff {
	baseByKey := symbolKeyMap(baseSyms)
	headByKey := symbolKeyMap(headSyms)

	var d FileDiff
	for key := range headByKey {
		if _, ok := baseByKey[key]; !ok {
			d.SymbolsAdded++
		}
	}
	for key, bs := range baseByKey {
		hs, ok := headByKey[key]
		if !ok {
			d.SymbolsRemoved++
			continue
		}
		if bs.StartLine != hs.StartLine || bs.EndLine != hs.EndLine {
			d.SymbolsModified++
		}
	}
	return d
}

func symbolKeyMap(syms []*store.Symbol) map[string]*store.Symbol {
	m := make(map[string]*store.Symbol, len(syms))
	for _, s := range syms {
		key := s.QualifiedName
		if key == "" {
			key = s.Name
		}
		m[key] = s
	}
	return m
}

func groupSymbolsByFile(syms []*store.Symbol) map[int64][]*store.Symbol {
	m := make(map[int64][]*store.Symbol)
	for _, s := range syms {
		m[s.FileID] = append(m[s.FileID], s)
	}
	return m
}
