package discover

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestRepository_CollectsSupportedFiles(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "src/app.py", "x = 1\n")
	writeFile(t, root, "src/util.js", "const a = 1\n")
	writeFile(t, root, "README.md", "# readme\n")

	res, err := Repository(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.py", "src/util.js"}, res.Files)
	assert.Empty(t, res.Manifests)
}

func TestRepository_PrunesIgnoredDirs(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "keep/app.py", "x = 1\n")
	writeFile(t, root, "node_modules/pkg/index.js", "x\n")
	writeFile(t, root, "build/out.py", "x\n")
	writeFile(t, root, "venv/lib/site.py", "x\n")
	writeFile(t, root, "pkg.egg-info/meta.py", "x\n")
	writeFile(t, root, ".hidden/secret.py", "x\n")

	res, err := Repository(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep/app.py"}, res.Files)
}

func TestRepository_Manifests(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "package.json", "{}\n")
	writeFile(t, root, "web/requirements.txt", "flask\n")
	writeFile(t, root, "api/main.py", "x = 1\n")

	res, err := Repository(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"api/main.py"}, res.Files)
	assert.Equal(t, []string{"package.json", "web/requirements.txt"}, res.Manifests)
}

func TestRepository_GitignoreHonored(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated/\n*.gen.py\n")
	writeFile(t, root, "app.py", "x = 1\n")
	writeFile(t, root, "generated/skip.py", "x\n")
	writeFile(t, root, "schema.gen.py", "x\n")

	res, err := Repository(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py"}, res.Files)
}

func TestRepository_SortedOutput(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "z.py", "x\n")
	writeFile(t, root, "a/m.py", "x\n")
	writeFile(t, root, "b.py", "x\n")

	res, err := Repository(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/m.py", "b.py", "z.py"}, res.Files)
}

func TestRepository_MissingRoot(t *testing.T) {
	t.Parallel()
	_, err := Repository(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestRepository_RootIsFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeFile(t, root, "plain.py", "x\n")
	_, err := Repository(context.Background(), filepath.Join(root, "plain.py"))
	require.Error(t, err)
}

func TestPrunedPath(t *testing.T) {
	t.Parallel()
	assert.True(t, prunedPath("node_modules/a/b.js"))
	assert.True(t, prunedPath("a/__pycache__/m.py"))
	assert.True(t, prunedPath("pkg.egg-info/meta.py"))
	assert.False(t, prunedPath("src/dist.py"))
	assert.False(t, prunedPath("a/b.py"))
}
