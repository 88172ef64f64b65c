package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mkerner/trellis"
)

func init() {
	rootCmd.AddCommand(graphCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(versionsCmd)
}

// openEngine opens the engine on the database resolved from the current
// directory's repo root. The database must already exist.
func openEngine() (*trellis.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting cwd: %w", err)
	}
	repoRoot := findRepoRoot(cwd)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return nil, err
	}
	dbPath := resolveDBPath(repoRoot, cfg)

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("database not found: %s (run 'trellis build' first)", dbPath)
	}
	return trellis.New(dbPath, trellis.WithLogger(logger))
}

// cliError is the JSON envelope for command failures.
type cliError struct {
	Command string `json:"command"`
	Error   string `json:"error"`
}

// outputResult writes a result to stdout in the selected format.
func outputResult(result any) error {
	if flagFormat == "text" {
		return outputResultText(result)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// outputError writes an error in the selected format and returns it so RunE
// can propagate it to Cobra. In JSON mode the error is written to stdout as
// a {command, error} envelope. In text mode it goes to stderr.
func outputError(command string, err error) error {
	errorHandled = true
	if flagFormat == "text" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(cliError{Command: command, Error: err.Error()})
	return err
}

var (
	flagNodes bool
	flagEdges bool
)

var graphCmd = &cobra.Command{
	Use:   "graph <scan-id>",
	Short: "Render the stored graph for a scan",
	Long:  "Prints the graph committed under a scan ID: totals, circular dependencies, and optionally every node and edge.",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&flagNodes, "nodes", false, "list nodes (text format)")
	graphCmd.Flags().BoolVar(&flagEdges, "edges", false, "list edges (text format)")
}

func runGraph(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("graph", err)
	}
	defer engine.Close()

	g, err := engine.GetGraph(cmd.Context(), args[0])
	if err != nil {
		return outputError("graph", err)
	}
	return outputResult(g)
}

var (
	flagFile   string
	flagSymbol string
	flagDepth  int
)

var impactCmd = &cobra.Command{
	Use:   "impact <scan-id>",
	Short: "Simulate the blast radius of changing a file or symbol",
	Long:  "Walks dependency edges out from the seed in both directions, scoring each affected symbol by relation weight and distance.",
	Args:  cobra.ExactArgs(1),
	RunE:  runImpact,
}

func init() {
	impactCmd.Flags().StringVar(&flagFile, "file", "", "seed file path (repo-relative)")
	impactCmd.Flags().StringVar(&flagSymbol, "symbol", "", "seed symbol name or qualified name")
	impactCmd.Flags().IntVar(&flagDepth, "depth", 3, "traversal depth limit (clamped to 1..10)")
}

func runImpact(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("impact", err)
	}
	defer engine.Close()

	res, err := engine.SimulateImpact(cmd.Context(), args[0], trellis.ImpactRequest{
		File:     flagFile,
		Symbol:   flagSymbol,
		MaxDepth: flagDepth,
	})
	if err != nil {
		return outputError("impact", err)
	}
	return outputResult(res)
}

var diffCmd = &cobra.Command{
	Use:   "diff <base-scan-id> <head-scan-id>",
	Short: "Compare two stored graph versions",
	Args:  cobra.ExactArgs(2),
	RunE:  runDiff,
}

func runDiff(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("diff", err)
	}
	defer engine.Close()

	res, err := engine.Diff(cmd.Context(), args[0], args[1])
	if err != nil {
		return outputError("diff", err)
	}
	return outputResult(res)
}

var versionsCmd = &cobra.Command{
	Use:   "versions [path]",
	Short: "List stored graph versions",
	Long:  "Lists every stored version, newest first. With a path argument, only versions of that repository are shown.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runVersions,
}

func runVersions(cmd *cobra.Command, args []string) error {
	engine, err := openEngine()
	if err != nil {
		return outputError("versions", err)
	}
	defer engine.Close()

	root := ""
	if len(args) > 0 {
		root, err = filepath.Abs(args[0])
		if err != nil {
			return outputError("versions", fmt.Errorf("resolving path %q: %w", args[0], err))
		}
	}

	versions, err := engine.Versions(cmd.Context(), root)
	if err != nil {
		return outputError("versions", err)
	}
	return outputResult(versions)
}
