package trellis

import (
	"sort"
	"strconv"

	"github.com/mkerner/trellis/internal/store"
)

// detectCycles finds circular dependencies, independently for the imports
// and calls relations (never mixed). One cycle is recorded per back-edge;
// overlapping reports inside a strongly connected region are accepted and
// not deduplicated.
func detectCycles(symbols []*store.Symbol, edges []*store.Edge) []Cycle {
	displayName := make(map[int64]string, len(symbols))
	for _, s := range symbols {
		name := s.QualifiedName
		if name == "" {
			name = s.Name
		}
		displayName[s.ID] = name
	}

	var cycles []Cycle
	cycles = append(cycles, relationCycles(store.RelationImports, CycleKindImport, edges, displayName)...)
	cycles = append(cycles, relationCycles(store.RelationCalls, CycleKindCall, edges, displayName)...)
	return cycles
}

// relationCycles runs a three-color depth-first search with an explicit
// frame stack over the adjacency restricted to one relation. The DFS starts
// from every not-yet-colored node in sorted id order, so the same graph
// always reports the same cycles.
func relationCycles(relation, kind string, edges []*store.Edge, displayName map[int64]string) []Cycle {
	adj := make(map[int64][]int64)
	nodeSet := make(map[int64]bool)
	for _, e := range edges {
		if e.Relation != relation {
			continue
		}
		adj[e.SourceID] = append(adj[e.SourceID], e.TargetID)
		nodeSet[e.SourceID] = true
		nodeSet[e.TargetID] = true
	}
	if len(nodeSet) == 0 {
		return nil
	}

	nodes := make([]int64, 0, len(nodeSet))
	for n := range nodeSet {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	const (
		white = iota
		gray
		black
	)
	color := make(map[int64]int, len(nodeSet))

	// frame mirrors one recursion level: the node and the index of its next
	// unexplored out-edge.
	type frame struct {
		node int64
		next int
	}

	var (
		cycles []Cycle
		stack  []frame
		path   []int64
	)

	// record captures the current path suffix from the gray node back to
	// itself, mapped to display names.
	record := func(grayNode int64) {
		start := 0
		for i, n := range path {
			if n == grayNode {
				start = i
				break
			}
		}
		ids := append(append([]int64(nil), path[start:]...), grayNode)
		names := make([]string, len(ids))
		for i, id := range ids {
			name, ok := displayName[id]
			if !ok {
				name = strconv.FormatInt(id, 10)
			}
			names[i] = name
		}
		cycles = append(cycles, Cycle{Nodes: names, Kind: kind})
	}

	for _, startNode := range nodes {
		if color[startNode] != white {
			continue
		}
		color[startNode] = gray
		stack = append(stack[:0], frame{node: startNode})
		path = append(path[:0], startNode)

		for len(stack) > 0 {
			f := &stack[len(stack)-1]
			targets := adj[f.node]
			if f.next < len(targets) {
				v := targets[f.next]
				f.next++
				switch color[v] {
				case gray:
					record(v)
				case white:
					color[v] = gray
					stack = append(stack, frame{node: v})
					path = append(path, v)
				}
				continue
			}
			color[f.node] = black
			path = path[:len(path)-1]
			stack = stack[:len(stack)-1]
		}
	}
	return cycles
}
