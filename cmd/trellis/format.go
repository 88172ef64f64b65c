package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mkerner/trellis"
)

// formatBuildText summarizes one committed build.
func formatBuildText(w io.Writer, res *trellis.BuildResult) {
	fmt.Fprintf(w, "Scan: %s\n", res.ScanID)
	fmt.Fprintf(w, "Revision: %s\n", res.Revision)
	fmt.Fprintf(w, "Files: %d  Symbols: %d  Edges: %d\n", res.Files, res.Symbols, res.Edges)
	fmt.Fprintf(w, "Complexity: %d  Risk: %d\n", res.ComplexityScore, res.RiskScore)

	if len(res.Hotspots) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Hotspots:")
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "  FILE\tSCORE")
		for _, h := range res.Hotspots {
			fmt.Fprintf(tw, "  %s\t%d\n", h.File, h.Score)
		}
		tw.Flush()
	}
}

// formatGraphText prints graph totals and cycles, plus node and edge tables
// when requested.
func formatGraphText(w io.Writer, g *trellis.Graph, showNodes, showEdges bool) {
	fmt.Fprintf(w, "Scan: %s\n", g.ScanID)
	fmt.Fprintf(w, "Files: %d  Symbols: %d  Edges: %d\n", g.TotalFiles, g.TotalSymbols, g.TotalEdges)

	if len(g.Cycles) == 0 {
		fmt.Fprintln(w, "No circular dependencies.")
	} else {
		fmt.Fprintf(w, "Circular dependencies (%d):\n", len(g.Cycles))
		for _, c := range g.Cycles {
			fmt.Fprintf(w, "  [%s] %s\n", c.Kind, strings.Join(c.Nodes, " -> "))
		}
	}

	if showNodes {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tKIND\tFILE\tLINES")
		for _, n := range g.Nodes {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d-%d\n",
				n.ID, n.Name, n.Kind, n.File, n.StartLine, n.EndLine)
		}
		tw.Flush()
	}

	if showEdges {
		fmt.Fprintln(w)
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "SOURCE\tTARGET\tRELATION")
		for _, e := range g.Edges {
			fmt.Fprintf(tw, "%d\t%d\t%s\n", e.SourceID, e.TargetID, e.Relation)
		}
		tw.Flush()
	}
}

// formatImpactText prints an impact report.
func formatImpactText(w io.Writer, res *trellis.ImpactResult) {
	fmt.Fprintf(w, "Impact score: %.2f\n", res.ImpactScore)
	fmt.Fprintf(w, "Risk increase: +%.2f\n", res.RiskIncrease)
	fmt.Fprintf(w, "Max depth: %d\n", res.MaxDepth)
	if res.CircularRisk {
		fmt.Fprintln(w, "Circular risk: yes")
	}

	fmt.Fprintf(w, "\nAffected files (%d):\n", len(res.AffectedFiles))
	for _, f := range res.AffectedFiles {
		fmt.Fprintf(w, "  %s\n", f)
	}

	fmt.Fprintf(w, "\nAffected symbols (%d):\n", res.TotalAffected)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  NAME\tKIND\tFILE\tDEPTH")
	for _, s := range res.AffectedSymbols {
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%d\n", s.QualifiedName, s.Kind, s.File, s.Depth)
	}
	tw.Flush()
}

// formatDiffText prints a per-file change table between two scans.
func formatDiffText(w io.Writer, res *trellis.DiffResult) {
	fmt.Fprintf(w, "Base: %s\n", res.BaseScanID)
	fmt.Fprintf(w, "Head: %s\n", res.HeadScanID)
	fmt.Fprintf(w, "Files: +%d -%d ~%d  Symbols changed: %d\n",
		res.TotalFilesAdded, res.TotalFilesRemoved, res.TotalFilesModified, res.SymbolsChanged)

	if len(res.FilesChanged) == 0 {
		return
	}
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FILE\tSTATUS\tADDED\tREMOVED\tMODIFIED")
	for _, fd := range res.FilesChanged {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n",
			fd.File, fd.Status, fd.SymbolsAdded, fd.SymbolsRemoved, fd.SymbolsModified)
	}
	tw.Flush()
}

// formatVersionsText prints one row per stored version, newest first.
func formatVersionsText(w io.Writer, versions []trellis.VersionInfo) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCAN\tREVISION\tCREATED\tFILES\tCOMPLEXITY\tRISK")
	for _, v := range versions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%d\n",
			v.ScanID, shortRevision(v.Revision), v.CreatedAt.Format("2006-01-02 15:04:05"),
			v.Files, v.ComplexityScore, v.RiskScore)
	}
	tw.Flush()
}

// shortRevision abbreviates full-length git hashes for table display.
func shortRevision(rev string) string {
	if len(rev) == 40 {
		return rev[:12]
	}
	return rev
}

// outputResultText dispatches to the text formatter for the result type.
// It writes to os.Stdout.
func outputResultText(result any) error {
	w := io.Writer(os.Stdout)

	switch v := result.(type) {
	case *trellis.BuildResult:
		formatBuildText(w, v)
	case *trellis.Graph:
		formatGraphText(w, v, flagNodes, flagEdges)
	case *trellis.ImpactResult:
		formatImpactText(w, v)
	case *trellis.DiffResult:
		formatDiffText(w, v)
	case []trellis.VersionInfo:
		formatVersionsText(w, v)
	default:
		return fmt.Errorf("unsupported result type for text format: %T", v)
	}
	return nil
}

// validFormats lists accepted values for --format.
var validFormats = []string{"json", "text"}

// validateFormat checks that the --format flag value is recognized.
func validateFormat(format string) error {
	for _, f := range validFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("invalid format %q: must be %s", format, strings.Join(validFormats, " or "))
}
