// Package trellis builds versioned structural graphs of source repositories:
// which symbols a codebase defines, which modules import each other, and who
// calls whom. Every scan persists an immutable snapshot to SQLite, so graphs
// from different points in a repository's history can be queried, diffed, and
// stress-tested without re-parsing.
//
// # Pipeline
//
// A build runs in three phases:
//
//  1. Discover: enumerate source files under the repository root, preferring
//     git's file listing (which honors .gitignore) and falling back to a
//     filesystem walk that prunes dependency caches, build output, and
//     virtual environments.
//
//  2. Parse: a worker pool extracts symbols, imports, and call sites from
//     each file. Python goes through a real tree-sitter grammar; the other
//     supported languages (JavaScript, TypeScript, Java, Go, Rust, C, C++)
//     use per-line pattern tables that trade call extraction for breadth.
//
//  3. Persist: aggregation runs serially in sorted file order, resolves
//     defines/imports/calls edges by name, and commits the whole Version in
//     one transaction.
//
// # Usage
//
// Create an Engine, build a graph, and query it:
//
//	e, err := trellis.New("trellis.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	res, err := e.BuildGraph(ctx, scanID, "path/to/project", revision)
//
//	g, err := e.GetGraph(ctx, scanID)
//	impact, err := e.SimulateImpact(ctx, scanID, trellis.ImpactRequest{Symbol: "Service.save", MaxDepth: 3})
//	diff, err := e.Diff(ctx, baseScanID, headScanID)
//
// # Operations
//
// The Engine provides five read/write operations:
//
//   - [Engine.BuildGraph] — scan a repository and persist a new Version.
//   - [Engine.GetGraph] — render one Version's nodes, edges, and circular
//     dependencies.
//   - [Engine.SimulateImpact] — bounded bidirectional traversal from a file
//     or symbol seed, scoring the blast radius of a hypothetical change.
//   - [Engine.Diff] — compare the file and symbol sets of two Versions.
//   - [Engine.Versions] — list persisted Versions, newest first.
//
// # Versioning
//
// Each build creates a new Version even for an unchanged tree; scan ids are
// caller-chosen labels and are not deduplicated. Edge resolution is
// heuristic and name-based: it optimizes for "mostly right, cheap, and
// deterministic for a fixed input" rather than full semantic accuracy, so
// the same repository state always yields the same graph. Readers take
// consistent snapshots (SQLite WAL) and never block concurrent builds.
package trellis
