package trellis

import (
	"time"

	"github.com/mkerner/trellis/internal/metrics"
	"github.com/mkerner/trellis/internal/store"
)

// Store is the underlying SQLite persistence layer, exposed for direct
// access via [Engine.Store]. It is a Go type alias (=), identical to the
// internal type at compile time.
type Store = store.Store

// Hotspot pairs a file path with its complexity score.
type Hotspot = metrics.FileScore

// Node is one symbol in a rendered graph, joined with its file path.
type Node struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name,omitempty"`
	Kind          string `json:"type"`
	File          string `json:"file"`
	StartLine     int    `json:"start_line"`
	EndLine       int    `json:"end_line"`
}

// GraphEdge is one directed relation between two nodes.
type GraphEdge struct {
	SourceID int64  `json:"source_id"`
	TargetID int64  `json:"target_id"`
	Relation string `json:"relation"`
}

// Cycle is one circular dependency path: an ordered list of symbol display
// names, closed by repeating the first entry.
type Cycle struct {
	Nodes []string `json:"cycle"`
	Kind  string   `json:"type"`
}

// Cycle kinds.
const (
	CycleKindImport = "import"
	CycleKindCall   = "call"
)

// Graph is the rendered structural graph for one scan.
type Graph struct {
	ScanID       string      `json:"scan_id"`
	TotalFiles   int         `json:"total_files"`
	TotalSymbols int         `json:"total_symbols"`
	TotalEdges   int         `json:"total_edges"`
	Nodes        []Node      `json:"nodes"`
	Edges        []GraphEdge `json:"edges"`
	Cycles       []Cycle     `json:"circular_dependencies"`
}

// ImpactRequest selects the seed and depth bound for a simulation. At least
// one of File or Symbol must be set; when both are, their seed sets union.
type ImpactRequest struct {
	File     string
	Symbol   string
	MaxDepth int
}

// AffectedSymbol is one symbol reached by an impact traversal.
type AffectedSymbol struct {
	Name          string `json:"name"`
	QualifiedName string `json:"qualified_name"`
	Kind          string `json:"type"`
	File          string `json:"file"`
	Depth         int    `json:"depth"`
}

// ImpactResult is the blast-radius report for one simulation.
type ImpactResult struct {
	AffectedFiles   []string         `json:"affected_files"`
	AffectedSymbols []AffectedSymbol `json:"affected_symbols"`
	ImpactScore     float64          `json:"impact_score"`
	RiskIncrease    float64          `json:"risk_increase"`
	MaxDepth        int              `json:"max_depth"`
	TotalAffected   int              `json:"total_affected"`
	CircularRisk    bool             `json:"circular_risk"`
}

// FileDiff describes how one file changed between two scans.
type FileDiff struct {
	File            string `json:"file"`
	Status          string `json:"status"`
	SymbolsAdded    int    `json:"symbols_added"`
	SymbolsRemoved  int    `json:"symbols_removed"`
	SymbolsModified int    `json:"symbols_modified"`
}

// FileDiff statuses.
const (
	DiffAdded    = "added"
	DiffRemoved  = "removed"
	DiffModified = "modified"
)

// DiffResult compares the head scan against the base scan. Files present in
// both scans with identical symbol sets are omitted from FilesChanged.
type DiffResult struct {
	BaseScanID         string     `json:"base_scan_id"`
	HeadScanID         string     `json:"head_scan_id"`
	FilesChanged       []FileDiff `json:"files_changed"`
	TotalFilesAdded    int        `json:"total_files_added"`
	TotalFilesRemoved  int        `json:"total_files_removed"`
	TotalFilesModified int        `json:"total_files_modified"`
	SymbolsChanged     int        `json:"symbols_changed"`
}

// BuildResult summarizes one completed build.
type BuildResult struct {
	ScanID          string    `json:"scan_id"`
	VersionID       int64     `json:"version_id"`
	Revision        string    `json:"revision"`
	Files           int       `json:"files"`
	Symbols         int       `json:"symbols"`
	Edges           int       `json:"edges"`
	ComplexityScore int       `json:"complexity_score"`
	RiskScore       int       `json:"risk_score"`
	Hotspots        []Hotspot `json:"hotspots,omitempty"`
}

// VersionInfo is one entry in a version listing.
type VersionInfo struct {
	ScanID          string    `json:"scan_id"`
	Revision        string    `json:"revision"`
	RootPath        string    `json:"root_path"`
	CreatedAt       time.Time `json:"created_at"`
	Files           int       `json:"files"`
	ComplexityScore int       `json:"complexity_score"`
	RiskScore       int       `json:"risk_score"`
}
