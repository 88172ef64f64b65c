package trellis

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mkerner/trellis/internal/discover"
	"github.com/mkerner/trellis/internal/metrics"
	"github.com/mkerner/trellis/internal/parse"
	"github.com/mkerner/trellis/internal/store"
)

// topHotspotCount caps the hotspot list in a BuildResult.
const topHotspotCount = 5

// workItem holds everything a parse worker needs for one source file.
type workItem struct {
	relPath string
	lang    string
}

// parsedFile is a worker's output, consumed by the serial aggregation phase.
type parsedFile struct {
	relPath    string
	analysis   *parse.FileAnalysis
	complexity int
	err        error
}

// BuildGraph scans the repository at repoRoot and persists a new Version
// under scanID, using a three-phase pipeline:
//
//	Phase A (serial):   discover files, filter by language and ignore set.
//	Phase B (parallel): parse and score each file via a worker pool.
//	Phase C (serial):   aggregate in sorted file order, resolve edges,
//	                    commit one atomic snapshot.
//
// Every call creates a new Version; scan ids are not deduplicated. Files
// that fail to parse are logged and skipped, never fatal. An empty
// repository still persists an empty Version so the scan id resolves.
func (e *Engine) BuildGraph(ctx context.Context, scanID, repoRoot, revision string) (*BuildResult, error) {
	start := time.Now()
	root, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	// ---- Phase A: serial discovery ----
	disc, err := discover.Repository(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", root, err)
	}
	items := e.planItems(disc.Files)
	e.log.Info("repository discovered",
		"scan_id", scanID, "root", root,
		"files", len(items), "manifests", len(disc.Manifests))

	// ---- Phase B: parallel parse ----
	parsed := e.parseAll(ctx, root, items)

	// ---- Phase C: serial aggregation, one atomic commit ----
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].relPath < parsed[j].relPath })

	snap := store.NewSnapshot(root, store.Version{
		ScanID:     scanID,
		CommitHash: revision,
		CreatedAt:  time.Now().UTC(),
	})

	b := newGraphBuilder(snap)
	scores := make([]metrics.FileScore, 0, len(parsed))
	for _, pf := range parsed {
		b.addFile(pf.analysis)
		scores = append(scores, metrics.FileScore{File: pf.relPath, Score: pf.complexity})
	}
	b.resolveEdges()

	deps := manifestDependencies(root, disc.Manifests)
	snap.Version.ComplexityScore = metrics.ComplexityScore(scores)
	snap.Version.RiskScore = metrics.RiskScore(deps, scores)

	v, err := e.store.CommitSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("commit snapshot: %w", err)
	}

	e.log.Info("graph persisted",
		"scan_id", scanID,
		"files", len(snap.Files), "symbols", len(snap.Symbols), "edges", len(snap.Edges),
		"elapsed", time.Since(start))

	return &BuildResult{
		ScanID:          scanID,
		VersionID:       v.ID,
		Revision:        v.CommitHash,
		Files:           len(snap.Files),
		Symbols:         len(snap.Symbols),
		Edges:           len(snap.Edges),
		ComplexityScore: v.ComplexityScore,
		RiskScore:       v.RiskScore,
		Hotspots:        metrics.TopHotspots(scores, topHotspotCount),
	}, nil
}

// planItems filters discovered files down to the languages and directories
// this Engine processes.
func (e *Engine) planItems(files []string) []workItem {
	var items []workItem
	for _, rel := range files {
		lang, ok := parse.LanguageForFile(rel)
		if !ok {
			continue
		}
		if e.languages != nil && !e.languages[lang] {
			continue
		}
		if e.skipPath(rel) {
			continue
		}
		items = append(items, workItem{relPath: rel, lang: lang})
	}
	return items
}

// skipPath reports whether any directory segment of the relative slash path
// is in the Engine's extra ignore set.
func (e *Engine) skipPath(rel string) bool {
	if len(e.ignoreDirs) == 0 {
		return false
	}
	dir := path.Dir(rel)
	if dir == "." {
		return false
	}
	for _, seg := range strings.Split(dir, "/") {
		if e.ignoreDirs[seg] {
			return true
		}
	}
	return false
}

// parseAll runs Phase B: a bounded worker pool parses and scores every item.
// Parse failures are logged and dropped; the returned slice holds successes
// only, in arbitrary order.
func (e *Engine) parseAll(ctx context.Context, root string, items []workItem) []parsedFile {
	if len(items) == 0 {
		return nil
	}

	numWorkers := e.workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	if numWorkers > len(items) {
		numWorkers = len(items)
	}

	workCh := make(chan workItem, len(items))
	for _, item := range items {
		workCh <- item
	}
	close(workCh)

	resultCh := make(chan parsedFile, len(items))

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Each worker builds its own parser instances; nothing mutable
			// is shared across files.
			for item := range workCh {
				resultCh <- parseOne(ctx, root, item)
			}
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	parsed := make([]parsedFile, 0, len(items))
	for res := range resultCh {
		if res.err != nil {
			e.log.Warn("skipping file", "path", res.relPath, "error", res.err)
			continue
		}
		parsed = append(parsed, res)
	}
	return parsed
}

func parseOne(ctx context.Context, root string, item workItem) parsedFile {
	out := parsedFile{relPath: item.relPath}

	src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(item.relPath)))
	if err != nil {
		out.err = fmt.Errorf("read file: %w", err)
		return out
	}

	p, ok := parse.ForFile(item.relPath)
	if !ok {
		out.err = fmt.Errorf("no parser for %s", item.relPath)
		return out
	}
	analysis, err := p.Parse(ctx, item.relPath, src)
	if err != nil {
		out.err = fmt.Errorf("parse: %w", err)
		return out
	}

	out.analysis = analysis
	out.complexity = metrics.Complexity(src)
	return out
}

// manifestDependencies sums declared dependency counts across every
// discovered manifest. Unreadable manifests count zero.
func manifestDependencies(root string, manifests []string) int {
	total := 0
	for _, rel := range manifests {
		src, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		total += metrics.ManifestDependencies(rel, src)
	}
	return total
}
