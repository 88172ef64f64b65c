package metrics

import (
	"encoding/json"
	"path"
	"sort"
	"strings"
	"unicode"
)

// FileScore pairs a repository-relative path with its complexity score.
type FileScore struct {
	File  string `json:"file"`
	Score int    `json:"score"`
}

// riskPatterns flag constructs that historically correlate with injection
// and XSS defects.
var riskPatterns = []string{"eval(", "exec(", "dangerouslySetInnerHTML"}

// Complexity scores one source file: one point per line, two extra per line
// indented beyond 12 columns, ten extra per line containing a risk pattern.
func Complexity(src []byte) int {
	if len(src) == 0 {
		return 0
	}
	lines := strings.SplitAfter(string(src), "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	score := len(lines)
	for _, line := range lines {
		indent := len(line) - len(strings.TrimLeftFunc(line, unicode.IsSpace))
		if indent > 12 {
			score += 2
		}
		for _, pat := range riskPatterns {
			if strings.Contains(line, pat) {
				score += 10
				break
			}
		}
	}
	return score
}

// ManifestDependencies counts declared dependencies in a known manifest
// file. Unknown manifests and malformed content count zero.
func ManifestDependencies(name string, src []byte) int {
	switch path.Base(strings.ReplaceAll(name, "\\", "/")) {
	case "package.json":
		return npmDependencies(src)
	case "requirements.txt":
		return pipDependencies(src)
	}
	return 0
}

func npmDependencies(src []byte) int {
	var pkg struct {
		Dependencies    map[string]json.RawMessage `json:"dependencies"`
		DevDependencies map[string]json.RawMessage `json:"devDependencies"`
	}
	if err := json.Unmarshal(src, &pkg); err != nil {
		return 0
	}
	return len(pkg.Dependencies) + len(pkg.DevDependencies)
}

func pipDependencies(src []byte) int {
	count := 0
	for _, line := range strings.Split(string(src), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			count++
		}
	}
	return count
}

func averageComplexity(files []FileScore) float64 {
	if len(files) == 0 {
		return 0
	}
	sum := 0
	for _, f := range files {
		sum += f.Score
	}
	return float64(sum) / float64(len(files))
}

// ComplexityScore is the truncated mean per-file complexity.
func ComplexityScore(files []FileScore) int {
	return int(averageComplexity(files))
}

// RiskScore combines dependency pressure and average complexity into a
// 0-100 score.
func RiskScore(dependencies int, files []FileScore) int {
	risk := int(float64(dependencies)*0.5 + averageComplexity(files)*0.2)
	if risk > 100 {
		risk = 100
	}
	return risk
}

// TopHotspots returns the n highest-scoring files, ties broken by input
// order.
func TopHotspots(files []FileScore, n int) []FileScore {
	sorted := append([]FileScore(nil), files...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
