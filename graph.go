package trellis

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/mkerner/trellis/internal/store"
)

// versionGraph bundles one Version's persisted rows.
type versionGraph struct {
	version *store.Version
	files   []*store.File
	symbols []*store.Symbol
	edges   []*store.Edge
}

// loadVersionGraph fetches the most recent Version for scanID together with
// its files, symbols, and edges, loading the three row sets concurrently.
// Returns (nil, nil) when the scan id has no Version.
func (e *Engine) loadVersionGraph(_ context.Context, scanID string) (*versionGraph, error) {
	v, err := e.store.VersionByScanID(scanID)
	if err != nil {
		return nil, fmt.Errorf("load version %s: %w", scanID, err)
	}
	if v == nil {
		return nil, nil
	}

	vg := &versionGraph{version: v}
	var g errgroup.Group
	g.Go(func() error {
		var err error
		vg.files, err = e.store.FilesByVersion(v.ID)
		return err
	})
	g.Go(func() error {
		var err error
		vg.symbols, err = e.store.SymbolsByVersion(v.ID)
		return err
	})
	g.Go(func() error {
		var err error
		vg.edges, err = e.store.EdgesByVersion(v.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load graph %s: %w", scanID, err)
	}
	return vg, nil
}

// GetGraph returns the rendered graph for a scan id. A scan id with no
// persisted Version yields an empty Graph, not an error. When several
// Versions share the scan id, the most recent one is rendered.
func (e *Engine) GetGraph(ctx context.Context, scanID string) (*Graph, error) {
	out := &Graph{
		ScanID: scanID,
		Nodes:  []Node{},
		Edges:  []GraphEdge{},
		Cycles: []Cycle{},
	}

	vg, err := e.loadVersionGraph(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if vg == nil {
		return out, nil
	}

	filePath := make(map[int64]string, len(vg.files))
	for _, f := range vg.files {
		filePath[f.ID] = f.Path
	}

	for _, s := range vg.symbols {
		fpath, ok := filePath[s.FileID]
		if !ok {
			fpath = "unknown"
		}
		out.Nodes = append(out.Nodes, Node{
			ID:            s.ID,
			Name:          s.Name,
			QualifiedName: s.QualifiedName,
			Kind:          s.Kind,
			File:          fpath,
			StartLine:     s.StartLine,
			EndLine:       s.EndLine,
		})
	}

	for _, edge := range vg.edges {
		out.Edges = append(out.Edges, GraphEdge{
			SourceID: edge.SourceID,
			TargetID: edge.TargetID,
			Relation: edge.Relation,
		})
	}

	if cycles := detectCycles(vg.symbols, vg.edges); cycles != nil {
		out.Cycles = cycles
	}

	out.TotalFiles = len(vg.files)
	out.TotalSymbols = len(vg.symbols)
	out.TotalEdges = len(out.Edges)
	return out, nil
}

// Versions lists persisted versions, newest first. A non-empty root
// restricts the listing to that repository.
func (e *Engine) Versions(_ context.Context, root string) ([]VersionInfo, error) {
	rows, err := e.store.ListVersions(root)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}

	out := make([]VersionInfo, 0, len(rows))
	for _, r := range rows {
		out = append(out, VersionInfo{
			ScanID:          r.ScanID,
			Revision:        r.CommitHash,
			RootPath:        r.RootPath,
			CreatedAt:       r.CreatedAt,
			Files:           r.FileCount,
			ComplexityScore: r.ComplexityScore,
			RiskScore:       r.RiskScore,
		})
	}
	return out, nil
}
