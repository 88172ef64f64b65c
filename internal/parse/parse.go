package parse

import (
	"bytes"
	"context"
	"path"
	"strings"
)

// Parser extracts a FileAnalysis from one source file. relPath is the
// repository-relative slash path; src is the raw file contents.
type Parser interface {
	Parse(ctx context.Context, relPath string, src []byte) (*FileAnalysis, error)
}

var extLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "typescript",
	".tsx":  "typescript",
	".java": "java",
	".go":   "go",
	".rs":   "rust",
	".cpp":  "cpp",
	".cc":   "cpp",
	".cxx":  "cpp",
	".hpp":  "cpp",
	".h":    "c",
	".c":    "c",
}

// LanguageForFile maps a file path to its language by extension.
func LanguageForFile(p string) (string, bool) {
	lang, ok := extLanguages[strings.ToLower(fileExt(p))]
	return lang, ok
}

// ForFile returns the parser responsible for the file, or false when the
// extension is unsupported. The dispatch set is fixed: Python goes through
// the grammar parser, every other supported language through the pattern
// parser.
func ForFile(p string) (Parser, bool) {
	lang, ok := LanguageForFile(p)
	if !ok {
		return nil, false
	}
	if lang == "python" {
		return PythonParser{}, true
	}
	return PatternParser{Language: lang}, true
}

// ModuleName derives the dotted module name from a repository-relative
// path: extension stripped, separators replaced by dots.
func ModuleName(relPath string) string {
	p := strings.ReplaceAll(relPath, "\\", "/")
	p = strings.TrimSuffix(p, fileExt(p))
	return strings.ReplaceAll(p, "/", ".")
}

// fileExt returns the extension of the path's base name. A leading dot in a
// hidden file name does not count as an extension separator.
func fileExt(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	i := strings.LastIndex(base, ".")
	if i <= 0 {
		return ""
	}
	return base[i:]
}

// splitLines splits src on newlines, dropping the empty remainder after a
// trailing newline so that line counts match editor line numbering.
func splitLines(src []byte) []string {
	if len(src) == 0 {
		return nil
	}
	lines := strings.Split(string(src), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func lineCount(src []byte) int {
	n := bytes.Count(src, []byte("\n"))
	if len(src) > 0 && !bytes.HasSuffix(src, []byte("\n")) {
		n++
	}
	return n
}

// newAnalysis seeds a FileAnalysis with the module-kind symbol spanning the
// whole file. Empty files still span line 1.
func newAnalysis(relPath, lang string, lines int) *FileAnalysis {
	if lines < 1 {
		lines = 1
	}
	mod := ModuleName(relPath)
	return &FileAnalysis{
		RelativePath: strings.ReplaceAll(relPath, "\\", "/"),
		ModuleName:   mod,
		Language:     lang,
		Symbols: []SymbolInfo{{
			Name:          mod,
			QualifiedName: mod,
			Kind:          KindModule,
			StartLine:     1,
			EndLine:       lines,
		}},
	}
}
