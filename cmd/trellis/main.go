package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mkerner/trellis"
	"github.com/mkerner/trellis/internal/config"
	"github.com/mkerner/trellis/internal/watch"
)

var (
	flagDB      string
	flagConfig  string
	flagFormat  string
	flagVerbose bool
)

// logger is reconfigured by the root command before any subcommand runs.
var logger = slog.New(slog.NewTextHandler(os.Stderr, nil))

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "trellis",
	Short:         "Versioned structural graphs for source repositories",
	Long:          "Trellis parses a repository into a symbol and dependency graph, stores every scan as a version in SQLite, and answers impact, cycle, and diff queries against it.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		level := slog.LevelInfo
		if flagVerbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
	// No Run — prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: trellis.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: trellis.yml in repo root, if present)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "enable debug logging")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
}

var (
	flagScan      string
	flagRev       string
	flagLanguages string
)

var buildCmd = &cobra.Command{
	Use:   "build [path]",
	Short: "Parse a repository and store a new graph version",
	Long:  "Discovers source files, parses them into symbols and relations, and commits the graph as a new version in the SQLite database.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&flagScan, "scan", "", "scan identifier (default: random UUID)")
	buildCmd.Flags().StringVar(&flagRev, "rev", "", "revision label (default: git HEAD, or \"unknown\")")
	buildCmd.Flags().StringVar(&flagLanguages, "languages", "", "comma-separated language filter (e.g. python,go)")
}

func runBuild(cmd *cobra.Command, args []string) error {
	start := time.Now()

	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("build", err)
	}
	repoRoot := findRepoRoot(targetDir)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return outputError("build", err)
	}
	dbPath := resolveDBPath(repoRoot, cfg)

	engine, err := trellis.New(dbPath, engineOptions(cfg)...)
	if err != nil {
		return outputError("build", fmt.Errorf("opening engine: %w", err))
	}
	defer engine.Close()

	scanID := flagScan
	if scanID == "" {
		scanID = uuid.NewString()
	}
	revision := flagRev
	if revision == "" {
		revision = gitRevision(repoRoot)
	}

	res, err := engine.BuildGraph(cmd.Context(), scanID, targetDir, revision)
	if err != nil {
		return outputError("build", fmt.Errorf("building graph: %w", err))
	}

	fmt.Fprintf(os.Stderr, "Built %s in %s\n", targetDir, time.Since(start).Round(time.Millisecond))
	fmt.Fprintf(os.Stderr, "Database: %s\n", dbPath)

	return outputResult(res)
}

var flagDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Rebuild the graph whenever source files change",
	Long:  "Builds once, then watches the repository tree and commits a fresh graph version after each quiet period. Stops on interrupt.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&flagDebounce, "debounce", 0, "quiet period before a rebuild (default: from config, 500ms)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	targetDir, err := resolveTargetDir(args)
	if err != nil {
		return outputError("watch", err)
	}
	repoRoot := findRepoRoot(targetDir)

	cfg, err := loadConfig(repoRoot)
	if err != nil {
		return outputError("watch", err)
	}
	dbPath := resolveDBPath(repoRoot, cfg)

	debounce := flagDebounce
	if debounce <= 0 {
		debounce = cfg.Debounce.Std()
	}

	engine, err := trellis.New(dbPath, engineOptions(cfg)...)
	if err != nil {
		return outputError("watch", fmt.Errorf("opening engine: %w", err))
	}
	defer engine.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The database lives inside the watched tree; without the ignore prefix
	// every commit would trigger the next rebuild.
	w, err := watch.New(targetDir, debounce,
		watch.WithLogger(logger),
		watch.WithIgnorePrefixes(dbPath),
	)
	if err != nil {
		return outputError("watch", err)
	}
	defer w.Close()

	rebuild := func() {
		res, err := engine.BuildGraph(ctx, uuid.NewString(), targetDir, gitRevision(repoRoot))
		if err != nil {
			logger.Error("rebuild failed", "error", err)
			return
		}
		logger.Info("graph version committed",
			"scan_id", res.ScanID, "files", res.Files, "symbols", res.Symbols, "edges", res.Edges)
	}

	rebuild()
	logger.Info("watching", "path", targetDir, "debounce", debounce)

	runErr := make(chan error, 1)
	go func() { runErr <- w.Run(ctx) }()

	for {
		select {
		case <-ctx.Done():
			<-runErr
			return nil
		case err := <-runErr:
			if err != nil && !errors.Is(err, context.Canceled) {
				return outputError("watch", err)
			}
			return nil
		case <-w.Changes():
			rebuild()
		}
	}
}

// engineOptions assembles engine options from the config file and flags.
// The --languages flag overrides the config's language list.
func engineOptions(cfg config.Config) []trellis.Option {
	opts := []trellis.Option{trellis.WithLogger(logger)}

	languages := cfg.Languages
	if flagLanguages != "" {
		languages = splitList(flagLanguages)
	}
	if len(languages) > 0 {
		opts = append(opts, trellis.WithLanguages(languages...))
	}
	if cfg.Workers > 0 {
		opts = append(opts, trellis.WithWorkers(cfg.Workers))
	}
	if len(cfg.Ignore) > 0 {
		opts = append(opts, trellis.WithIgnoreDirs(cfg.Ignore...))
	}
	return opts
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// gitRevision returns the current HEAD commit hash, or "unknown" when the
// directory is not a git checkout or git is unavailable.
func gitRevision(root string) string {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return "unknown"
	}
	rev := strings.TrimSpace(string(out))
	if rev == "" {
		return "unknown"
	}
	return rev
}

// loadConfig reads the config file named by --config, or trellis.yml in the
// repo root when present. Absent files mean defaults.
func loadConfig(repoRoot string) (config.Config, error) {
	if flagConfig != "" {
		return config.Load(flagConfig)
	}
	path := filepath.Join(repoRoot, "trellis.yml")
	if _, err := os.Stat(path); err != nil {
		return config.Default(), nil
	}
	return config.Load(path)
}

// resolveTargetDir returns the absolute path of the directory to scan.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag, the config
// file, or the default, resolving relative paths against the repo root.
func resolveDBPath(repoRoot string, cfg config.Config) string {
	p := flagDB
	if p == "" {
		p = cfg.DB
	}
	if p == "" {
		p = "trellis.db"
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(repoRoot, p)
}
