package trellis

import (
	"sort"
	"strings"

	"github.com/mkerner/trellis/internal/parse"
	"github.com/mkerner/trellis/internal/store"
)

// graphBuilder accumulates parsed files into a snapshot and resolves edges
// between their symbols. Resolution is name-based and best-effort: a miss
// omits the edge, never errors. Files must be added in sorted path order so
// the same repository always yields the same graph.
type graphBuilder struct {
	snap     *store.Snapshot
	analyses []*parse.FileAnalysis

	symByQName map[string]int64 // qualified name -> snapshot symbol id (later files win)
	moduleSyms map[string]int64 // module name -> module symbol id
}

func newGraphBuilder(snap *store.Snapshot) *graphBuilder {
	return &graphBuilder{
		snap:       snap,
		symByQName: make(map[string]int64),
		moduleSyms: make(map[string]int64),
	}
}

// addFile records one parsed file and its symbols in the snapshot and
// indexes them for edge resolution.
func (b *graphBuilder) addFile(a *parse.FileAnalysis) {
	fileID := b.snap.AddFile(store.File{
		Path:       a.RelativePath,
		ModuleName: a.ModuleName,
	})

	for _, si := range a.Symbols {
		kind := si.Kind
		if !store.ValidSymbolKinds[kind] {
			kind = parse.KindFunction
		}
		symID := b.snap.AddSymbol(store.Symbol{
			FileID:        fileID,
			Name:          si.Name,
			QualifiedName: si.QualifiedName,
			Kind:          kind,
			StartLine:     si.StartLine,
			EndLine:       si.EndLine,
		})
		b.symByQName[si.QualifiedName] = symID
		if si.Kind == parse.KindModule {
			b.moduleSyms[a.ModuleName] = symID
		}
	}

	b.analyses = append(b.analyses, a)
}

// resolveEdges runs the three resolution passes in fixed order.
func (b *graphBuilder) resolveEdges() {
	b.resolveDefines()
	b.resolveImports()
	b.resolveCalls()
}

// resolveDefines links each file's module symbol to its top-level classes
// and functions. Nested definitions (a dot remains after stripping the
// module prefix from the qualified name) belong to their enclosing scope,
// not the module.
func (b *graphBuilder) resolveDefines() {
	for _, a := range b.analyses {
		moduleID, ok := b.symByQName[a.ModuleName]
		if !ok {
			continue
		}
		for _, si := range a.Symbols {
			if si.Kind != parse.KindClass && si.Kind != parse.KindFunction {
				continue
			}
			local := strings.TrimPrefix(si.QualifiedName, a.ModuleName+".")
			if strings.Contains(local, ".") {
				continue
			}
			targetID, ok := b.symByQName[si.QualifiedName]
			if !ok || targetID == moduleID {
				continue
			}
			b.snap.AddEdge(store.Edge{
				SourceID: moduleID,
				TargetID: targetID,
				Relation: store.RelationDefines,
			})
		}
	}
}

// resolveImports links each file's module symbol to the module symbols it
// imports. An exact module-name match is tried first; failing that, a
// suffix containment match in either direction recovers partial import
// paths (e.g. "app.config" against a repo module "config").
func (b *graphBuilder) resolveImports() {
	moduleNames := make([]string, 0, len(b.moduleSyms))
	for name := range b.moduleSyms {
		moduleNames = append(moduleNames, name)
	}
	sort.Strings(moduleNames)

	for _, a := range b.analyses {
		sourceID, ok := b.symByQName[a.ModuleName]
		if !ok {
			continue
		}
		for _, imp := range a.Imports {
			if imp.Module == "" {
				// A bare relative import has no module text to match;
				// matching would pair it with an arbitrary module.
				continue
			}
			targetID, found := b.moduleSyms[imp.Module]
			if !found {
				for _, mname := range moduleNames {
					if strings.HasSuffix(mname, imp.Module) || strings.HasSuffix(imp.Module, mname) {
						targetID = b.moduleSyms[mname]
						found = true
						break
					}
				}
			}
			if !found || targetID == sourceID {
				continue
			}
			b.snap.AddEdge(store.Edge{
				SourceID: sourceID,
				TargetID: targetID,
				Relation: store.RelationImports,
			})
		}
	}
}

// resolveCalls links caller symbols to callee symbols. The caller is looked
// up by qualified name (the module name alone for module-level calls,
// module.scope otherwise); unresolvable callers drop the call.
func (b *graphBuilder) resolveCalls() {
	qnames := make([]string, 0, len(b.symByQName))
	for q := range b.symByQName {
		qnames = append(qnames, q)
	}
	sort.Strings(qnames)

	for _, a := range b.analyses {
		for _, call := range a.Calls {
			callerKey := a.ModuleName
			if call.Caller != parse.ModuleCaller {
				callerKey = a.ModuleName + "." + call.Caller
			}
			callerID, ok := b.symByQName[callerKey]
			if !ok {
				continue
			}
			calleeID, ok := b.resolveCallee(call.Callee, a.ModuleName, qnames)
			if !ok || calleeID == callerID {
				continue
			}
			b.snap.AddEdge(store.Edge{
				SourceID: callerID,
				TargetID: calleeID,
				Relation: store.RelationCalls,
			})
		}
	}
}

// resolveCallee maps a callee name to a known symbol, trying progressively
// looser matches: the caller module's local name, a global qualified name,
// then suffix scans on the last two parts (handles self.method ->
// Class.method) and the bare last part. First match wins; the suffix scans
// run over sorted qualified names so resolution is deterministic.
func (b *graphBuilder) resolveCallee(callee, callerModule string, qnames []string) (int64, bool) {
	if id, ok := b.symByQName[callerModule+"."+callee]; ok {
		return id, true
	}
	if id, ok := b.symByQName[callee]; ok {
		return id, true
	}

	parts := strings.Split(callee, ".")
	if len(parts) >= 2 {
		suffix := strings.Join(parts[len(parts)-2:], ".")
		for _, q := range qnames {
			if strings.HasSuffix(q, suffix) {
				return b.symByQName[q], true
			}
		}
		last := "." + parts[len(parts)-1]
		for _, q := range qnames {
			if strings.HasSuffix(q, last) {
				return b.symByQName[q], true
			}
		}
	}
	return 0, false
}
