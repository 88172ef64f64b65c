package discover

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/mkerner/trellis/internal/parse"
)

// Result lists what a repository enumeration found: parseable source files
// and dependency manifests, both as sorted repo-relative slash paths.
type Result struct {
	Files     []string
	Manifests []string
}

var skipDirs = map[string]bool{
	"node_modules":  true,
	".git":          true,
	"__pycache__":   true,
	"venv":          true,
	".venv":         true,
	"env":           true,
	".env":          true,
	"dist":          true,
	"build":         true,
	".mypy_cache":   true,
	".pytest_cache": true,
	".tox":          true,
	"eggs":          true,
}

var manifestNames = map[string]bool{
	"package.json":     true,
	"requirements.txt": true,
}

// PrunedDir reports whether a directory with this name is excluded from
// enumeration: the fixed ignore set, Python egg-info, and hidden directories.
func PrunedDir(name string) bool {
	return skipDirs[name] || strings.HasSuffix(name, ".egg-info") || strings.HasPrefix(name, ".")
}

// ManifestFile reports whether the base name is a recognized dependency
// manifest.
func ManifestFile(base string) bool {
	return manifestNames[base]
}

// Repository enumerates source files and manifests under root. Inside a git
// repository, git ls-files supplies the candidates; otherwise a filesystem
// walk that honors .gitignore. Ignored directories are pruned either way.
func Repository(ctx context.Context, root string) (*Result, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("discover: %s is not a directory", root)
	}

	paths, err := gitListFiles(ctx, root)
	if err != nil {
		paths, err = walkListFiles(root)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{}
	for _, rel := range paths {
		if prunedPath(rel) {
			continue
		}
		base := path.Base(rel)
		if ManifestFile(base) {
			res.Manifests = append(res.Manifests, rel)
			continue
		}
		if _, ok := parse.LanguageForFile(rel); ok {
			res.Files = append(res.Files, rel)
		}
	}
	sort.Strings(res.Files)
	sort.Strings(res.Manifests)
	return res, nil
}

// prunedPath reports whether any directory segment of the relative path is
// in the ignore set. git ls-files can surface committed files under such
// directories; they are dropped for parity with the walk.
func prunedPath(rel string) bool {
	segs := strings.Split(rel, "/")
	for _, seg := range segs[:len(segs)-1] {
		if skipDirs[seg] || strings.HasSuffix(seg, ".egg-info") {
			return true
		}
	}
	return false
}

// gitListFiles lists tracked and untracked (not ignored) files via git.
// Fails when root is not a git repository or git is unavailable.
func gitListFiles(ctx context.Context, root string) ([]string, error) {
	gitDir := filepath.Join(root, ".git")
	if info, err := os.Stat(gitDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("discover: %s is not a git repository", root)
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore and global excludes.
	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("discover: git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, nil
}

// walkListFiles enumerates the tree directly, pruning ignored and hidden
// directories and skipping symlinks. A top-level .gitignore is honored when
// present.
func walkListFiles(root string) ([]string, error) {
	gi := loadGitignore(root)

	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if p == root {
				return nil
			}
			if PrunedDir(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("discover: walk %s: %w", root, err)
	}
	return paths, nil
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
