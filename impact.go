package trellis

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/mkerner/trellis/internal/parse"
	"github.com/mkerner/trellis/internal/store"
)

// Relation weights for impact scoring. Direct calls carry the most impact,
// module imports a little less, structural containment the least.
var impactWeights = map[string]float64{
	store.RelationCalls:   1.0,
	store.RelationImports: 0.8,
	store.RelationDefines: 0.3,
}

const (
	// impactDecay shrinks each contribution by 30% per hop.
	impactDecay = 0.7

	// unknownRelationWeight scores relations outside impactWeights.
	unknownRelationWeight = 0.5

	// maxImpactDepth caps the traversal bound a request may ask for.
	maxImpactDepth = 10
)

// SimulateImpact runs a bounded blast-radius traversal from the requested
// seed on the persisted graph for scanID. The request must carry a file or
// a symbol (or both, their seeds union); MaxDepth is clamped into
// [1, maxImpactDepth]. A missing version or an unmatched seed yields an
// empty result, not an error. Output is deterministic for a fixed graph
// state and fixed request.
func (e *Engine) SimulateImpact(ctx context.Context, scanID string, req ImpactRequest) (*ImpactResult, error) {
	if req.File == "" && req.Symbol == "" {
		return nil, ErrNoSeed
	}
	maxDepth := req.MaxDepth
	if maxDepth < 1 {
		maxDepth = 1
	}
	if maxDepth > maxImpactDepth {
		maxDepth = maxImpactDepth
	}

	out := &ImpactResult{
		AffectedFiles:   []string{},
		AffectedSymbols: []AffectedSymbol{},
	}

	vg, err := e.loadVersionGraph(ctx, scanID)
	if err != nil {
		return nil, err
	}
	if vg == nil {
		return out, nil
	}

	idx := newSymbolIndex(vg)
	seeds := idx.findSeeds(req.Symbol, req.File)
	if len(seeds) == 0 {
		return out, nil
	}

	visited, depthOf, impactSum := idx.traverse(seeds, maxDepth)

	// Affected set = visited minus seeds. Import symbols still count toward
	// file membership and score but are left off the symbol list.
	fileSet := make(map[string]bool)
	affected := make([]AffectedSymbol, 0, len(visited))
	for _, s := range vg.symbols {
		if !visited[s.ID] || seeds[s.ID] {
			continue
		}
		fpath, ok := idx.filePath[s.FileID]
		if !ok {
			fpath = "unknown"
		}
		fileSet[fpath] = true
		if s.Kind == parse.KindImport {
			continue
		}
		qname := s.QualifiedName
		if qname == "" {
			qname = s.Name
		}
		affected = append(affected, AffectedSymbol{
			Name:          s.Name,
			QualifiedName: qname,
			Kind:          s.Kind,
			File:          fpath,
			Depth:         depthOf[s.ID],
		})
	}
	sort.SliceStable(affected, func(i, j int) bool {
		if affected[i].Depth != affected[j].Depth {
			return affected[i].Depth < affected[j].Depth
		}
		return affected[i].Name < affected[j].Name
	})

	// Risk has two independent terms: cycle exposure (5 points per affected
	// symbol implicated in a cycle, capped at 25) and breadth (up to 15
	// points for the fraction of repository files touched).
	cycleNames := make(map[string]bool)
	for _, c := range detectCycles(vg.symbols, vg.edges) {
		for _, n := range c.Nodes {
			cycleNames[n] = true
		}
	}
	cycleHits := 0
	for _, a := range affected {
		if cycleNames[a.QualifiedName] || cycleNames[a.Name] {
			cycleHits++
		}
	}
	riskIncrease := 0.0
	if cycleHits > 0 {
		riskIncrease = math.Min(25, float64(cycleHits)*5)
	}
	if len(vg.files) > 0 {
		riskIncrease += float64(len(fileSet)) / float64(len(vg.files)) * 15
	}

	maxSeen := 0
	for _, d := range depthOf {
		if d > maxSeen {
			maxSeen = d
		}
	}

	files := make([]string, 0, len(fileSet))
	for f := range fileSet {
		files = append(files, f)
	}
	sort.Strings(files)

	out.AffectedFiles = files
	out.AffectedSymbols = affected
	out.ImpactScore = round2(impactSum)
	out.RiskIncrease = round2(riskIncrease)
	out.MaxDepth = maxSeen
	out.TotalAffected = len(affected)
	out.CircularRisk = cycleHits > 0
	return out, nil
}

// symbolIndex is the in-memory view of one version's graph used by impact
// traversal: symbol lookups by id, qualified name, and short name, plus
// forward and reverse adjacency.
type symbolIndex struct {
	files    []*store.File
	symbols  []*store.Symbol
	filePath map[int64]string

	byID    map[int64]*store.Symbol
	byQName map[string]*store.Symbol
	byName  map[string][]*store.Symbol
	qnames  []string // sorted keys of byQName, for deterministic fuzzy scans

	forward map[int64][]adjEdge
	reverse map[int64][]adjEdge
}

type adjEdge struct {
	node     int64
	relation string
}

func newSymbolIndex(vg *versionGraph) *symbolIndex {
	idx := &symbolIndex{
		files:    vg.files,
		symbols:  vg.symbols,
		filePath: make(map[int64]string, len(vg.files)),
		byID:     make(map[int64]*store.Symbol, len(vg.symbols)),
		byQName:  make(map[string]*store.Symbol, len(vg.symbols)),
		byName:   make(map[string][]*store.Symbol),
		forward:  make(map[int64][]adjEdge),
		reverse:  make(map[int64][]adjEdge),
	}
	for _, f := range vg.files {
		idx.filePath[f.ID] = f.Path
	}
	for _, s := range vg.symbols {
		idx.byID[s.ID] = s
		if s.QualifiedName != "" {
			idx.byQName[s.QualifiedName] = s
		}
		idx.byName[s.Name] = append(idx.byName[s.Name], s)
	}
	idx.qnames = make([]string, 0, len(idx.byQName))
	for q := range idx.byQName {
		idx.qnames = append(idx.qnames, q)
	}
	sort.Strings(idx.qnames)

	for _, edge := range vg.edges {
		idx.forward[edge.SourceID] = append(idx.forward[edge.SourceID], adjEdge{node: edge.TargetID, relation: edge.Relation})
		idx.reverse[edge.TargetID] = append(idx.reverse[edge.TargetID], adjEdge{node: edge.SourceID, relation: edge.Relation})
	}
	return idx
}

// findSeeds resolves the request's symbol and file selectors to symbol ids.
// Symbol: exact qualified name, else every short-name match, else the first
// fuzzy match (qualified name contains or ends with the query) over sorted
// qualified names. File: every symbol of the first file whose path equals,
// is suffixed by, or is a suffix of the query.
func (idx *symbolIndex) findSeeds(symbol, file string) map[int64]bool {
	seeds := make(map[int64]bool)

	if symbol != "" {
		if s, ok := idx.byQName[symbol]; ok {
			seeds[s.ID] = true
		} else if matches, ok := idx.byName[symbol]; ok {
			for _, s := range matches {
				seeds[s.ID] = true
			}
		} else {
			for _, q := range idx.qnames {
				if strings.Contains(q, symbol) || strings.HasSuffix(q, symbol) {
					seeds[idx.byQName[q].ID] = true
					break
				}
			}
		}
	}

	if file != "" {
		norm := strings.ReplaceAll(file, "\\", "/")
		for _, f := range idx.files {
			p := strings.ReplaceAll(f.Path, "\\", "/")
			if p == norm || strings.HasSuffix(p, norm) || strings.HasSuffix(norm, p) {
				for _, s := range idx.symbols {
					if s.FileID == f.ID {
						seeds[s.ID] = true
					}
				}
				break
			}
		}
	}
	return seeds
}

// traverse runs the multi-source BFS over both edge directions, seeds at
// depth 0. A node is scored exactly once, at first discovery, with
// weight(relation) x decay^(depth of the discovering node).
func (idx *symbolIndex) traverse(seeds map[int64]bool, maxDepth int) (map[int64]bool, map[int64]int, float64) {
	type queued struct {
		id    int64
		depth int
	}

	seedIDs := make([]int64, 0, len(seeds))
	for id := range seeds {
		seedIDs = append(seedIDs, id)
	}
	sort.Slice(seedIDs, func(i, j int) bool { return seedIDs[i] < seedIDs[j] })

	visited := make(map[int64]bool, len(seeds))
	depthOf := make(map[int64]int, len(seeds))
	queue := make([]queued, 0, len(seeds))
	for _, id := range seedIDs {
		visited[id] = true
		depthOf[id] = 0
		queue = append(queue, queued{id: id})
	}

	impactSum := 0.0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.depth >= maxDepth {
			continue
		}
		for _, neighbors := range [2][]adjEdge{idx.forward[cur.id], idx.reverse[cur.id]} {
			for _, ae := range neighbors {
				if visited[ae.node] || idx.byID[ae.node] == nil {
					continue
				}
				visited[ae.node] = true
				depthOf[ae.node] = cur.depth + 1
				queue = append(queue, queued{id: ae.node, depth: cur.depth + 1})

				weight, ok := impactWeights[ae.relation]
				if !ok {
					weight = unknownRelationWeight
				}
				impactSum += weight * math.Pow(impactDecay, float64(cur.depth))
			}
		}
	}
	return visited, depthOf, impactSum
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
