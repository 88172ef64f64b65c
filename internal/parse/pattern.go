package parse

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// patternRule matches one symbol or import form at the start of a line.
type patternRule struct {
	kind string
	re   *regexp.Regexp
}

// languagePatterns holds the per-language rule tables, applied in order to
// every line. Every matching rule fires; the first non-empty capture group
// is the name. The python table exists for completeness; .py files are
// always routed to the grammar parser.
var languagePatterns = map[string][]patternRule{
	"python": {
		{KindClass, regexp.MustCompile(`^\s*class\s+(\w+)`)},
		{KindFunction, regexp.MustCompile(`^\s*(?:async\s+)?def\s+(\w+)`)},
		{KindImport, regexp.MustCompile(`^\s*(?:from\s+[\w.]+\s+)?import\s+([\w\s,.*]+)`)},
	},
	"javascript": {
		{KindClass, regexp.MustCompile(`^\s*class\s+(\w+)`)},
		{KindFunction, regexp.MustCompile(`^\s*(?:async\s+)?function\s+(\w+)|^\s*(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?\(`)},
		{KindImport, regexp.MustCompile(`^\s*import\s+.*?from\s+['"](.+?)['"]`)},
	},
	"typescript": {
		{KindClass, regexp.MustCompile(`^\s*(?:export\s+)?class\s+(\w+)`)},
		{KindInterface, regexp.MustCompile(`^\s*(?:export\s+)?interface\s+(\w+)`)},
		{KindFunction, regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?function\s+(\w+)|^\s*(?:const|let|var)\s+(\w+)\s*=\s*(?:async\s*)?\(`)},
		{KindImport, regexp.MustCompile(`^\s*import\s+.*?from\s+['"](.+?)['"]`)},
	},
	"java": {
		{KindClass, regexp.MustCompile(`^\s*(?:public\s+)?(?:abstract\s+)?class\s+(\w+)`)},
		{KindInterface, regexp.MustCompile(`^\s*(?:public\s+)?interface\s+(\w+)`)},
		{KindFunction, regexp.MustCompile(`^\s*(?:public|private|protected)\s+(?:static\s+)?[\w<>]+\s+(\w+)\s*\(`)},
		{KindImport, regexp.MustCompile(`^\s*import\s+([\w.]+)`)},
	},
	"go": {
		{KindStruct, regexp.MustCompile(`^\s*type\s+(\w+)\s+struct`)},
		{KindInterface, regexp.MustCompile(`^\s*type\s+(\w+)\s+interface`)},
		{KindFunction, regexp.MustCompile(`^\s*func\s+(?:\(\w+\s+\*?\w+\)\s+)?(\w+)\s*\(`)},
		{KindImport, regexp.MustCompile(`^\s*import\s+["'](.+?)["']`)},
	},
	"rust": {
		{KindStruct, regexp.MustCompile(`^\s*(?:pub\s+)?struct\s+(\w+)`)},
		{KindTrait, regexp.MustCompile(`^\s*(?:pub\s+)?trait\s+(\w+)`)},
		{KindFunction, regexp.MustCompile(`^\s*(?:pub\s+)?fn\s+(\w+)`)},
		{KindImport, regexp.MustCompile(`^\s*use\s+([\w:]+)`)},
	},
	"cpp": {
		{KindClass, regexp.MustCompile(`^\s*class\s+(\w+)`)},
		{KindStruct, regexp.MustCompile(`^\s*struct\s+(\w+)`)},
		{KindFunction, regexp.MustCompile(`^\s*[\w:<>]+\s+(\w+)\s*\([^)]*\)\s*(?:const\s*)?\{`)},
		{KindImport, regexp.MustCompile(`^\s*#include\s+[<"](.+?)[>"]`)},
	},
	"c": {
		{KindStruct, regexp.MustCompile(`^\s*(?:typedef\s+)?struct\s+(\w+)`)},
		{KindFunction, regexp.MustCompile(`^\s*[\w\s*]+\s+(\w+)\s*\([^)]*\)\s*\{`)},
		{KindImport, regexp.MustCompile(`^\s*#include\s+[<"](.+?)[>"]`)},
	},
}

// PatternParser extracts symbols and imports with per-line regular
// expressions. It covers the languages without a wired grammar; call sites
// are not extracted at this level.
type PatternParser struct {
	Language string
}

func (p PatternParser) Parse(ctx context.Context, relPath string, src []byte) (*FileAnalysis, error) {
	rules, ok := languagePatterns[p.Language]
	if !ok {
		return nil, fmt.Errorf("parse %s: no patterns for language %q", relPath, p.Language)
	}

	lines := splitLines(src)
	a := newAnalysis(relPath, p.Language, len(lines))

	for idx, line := range lines {
		lineNum := idx + 1
		for _, rule := range rules {
			m := rule.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			name := firstGroup(m)
			if name == "" {
				continue
			}
			if rule.kind == KindImport {
				a.Imports = append(a.Imports, ImportInfo{Module: name, Line: lineNum})
				continue
			}
			a.Symbols = append(a.Symbols, SymbolInfo{
				Name:          name,
				QualifiedName: a.ModuleName + "." + name,
				Kind:          rule.kind,
				StartLine:     lineNum,
				EndLine:       estimateEnd(lines, lineNum),
			})
		}
	}
	return a, nil
}

func firstGroup(m []string) string {
	for _, g := range m[1:] {
		if g != "" {
			return g
		}
	}
	return ""
}

// estimateEnd scans up to 100 lines past the declaration for the next blank
// line and returns the line before it, falling back to the declaration line.
func estimateEnd(lines []string, lineNum int) int {
	end := lineNum
	limit := lineNum + 100
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := lineNum; i < limit; i++ {
		if strings.TrimSpace(lines[i]) == "" {
			return i
		}
	}
	return end
}
