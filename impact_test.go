package trellis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkerner/trellis/internal/store"
)

// commitImpactFixture persists a two-file graph under scanID:
//
//	svc/api.py  module svc.api, functions handler and helper, import of svc.db
//	svc/db.py   module svc.db, function query
//
// handler calls helper and query; svc.api imports svc.db; each module defines
// its top-level functions. With cyclic set, svc.db imports svc.api back,
// closing an import cycle.
func commitImpactFixture(t *testing.T, e *Engine, scanID string, cyclic bool) {
	t.Helper()
	snap := store.NewSnapshot("/repo/impact", store.Version{
		ScanID:     scanID,
		CommitHash: "abc123",
		CreatedAt:  time.Now().UTC(),
	})

	api := snap.AddFile(store.File{Path: "svc/api.py", ModuleName: "svc.api"})
	apiMod := snap.AddSymbol(store.Symbol{FileID: api, Name: "svc.api", QualifiedName: "svc.api", Kind: "module", StartLine: 1, EndLine: 20})
	handler := snap.AddSymbol(store.Symbol{FileID: api, Name: "handler", QualifiedName: "handler", Kind: "function", StartLine: 3, EndLine: 8})
	helper := snap.AddSymbol(store.Symbol{FileID: api, Name: "helper", QualifiedName: "helper", Kind: "function", StartLine: 10, EndLine: 12})
	snap.AddSymbol(store.Symbol{FileID: api, Name: "svc.db", QualifiedName: "svc.api::svc.db", Kind: "import", StartLine: 1, EndLine: 1})

	db := snap.AddFile(store.File{Path: "svc/db.py", ModuleName: "svc.db"})
	dbMod := snap.AddSymbol(store.Symbol{FileID: db, Name: "svc.db", QualifiedName: "svc.db", Kind: "module", StartLine: 1, EndLine: 10})
	query := snap.AddSymbol(store.Symbol{FileID: db, Name: "query", QualifiedName: "query", Kind: "function", StartLine: 3, EndLine: 6})

	snap.AddEdge(store.Edge{SourceID: apiMod, TargetID: handler, Relation: store.RelationDefines})
	snap.AddEdge(store.Edge{SourceID: apiMod, TargetID: helper, Relation: store.RelationDefines})
	snap.AddEdge(store.Edge{SourceID: handler, TargetID: helper, Relation: store.RelationCalls})
	snap.AddEdge(store.Edge{SourceID: handler, TargetID: query, Relation: store.RelationCalls})
	snap.AddEdge(store.Edge{SourceID: apiMod, TargetID: dbMod, Relation: store.RelationImports})
	snap.AddEdge(store.Edge{SourceID: dbMod, TargetID: query, Relation: store.RelationDefines})
	if cyclic {
		snap.AddEdge(store.Edge{SourceID: dbMod, TargetID: apiMod, Relation: store.RelationImports})
	}

	_, err := e.Store().CommitSnapshot(snap)
	require.NoError(t, err)
}

func affectedNames(res *ImpactResult) []string {
	names := make([]string, 0, len(res.AffectedSymbols))
	for _, a := range res.AffectedSymbols {
		names = append(names, a.Name)
	}
	return names
}

func TestSimulateImpact_RequiresSeed(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)

	_, err := e.SimulateImpact(context.Background(), "scan-1", ImpactRequest{MaxDepth: 3})
	require.ErrorIs(t, err, ErrNoSeed)
}

func TestSimulateImpact_MissingScanIsEmpty(t *testing.T) {
	e := newTestEngine(t)

	res, err := e.SimulateImpact(context.Background(), "missing", ImpactRequest{Symbol: "handler"})
	require.NoError(t, err)
	assert.NotNil(t, res.AffectedFiles)
	assert.Empty(t, res.AffectedFiles)
	assert.NotNil(t, res.AffectedSymbols)
	assert.Empty(t, res.AffectedSymbols)
	assert.Zero(t, res.ImpactScore)
	assert.Zero(t, res.TotalAffected)
	assert.False(t, res.CircularRisk)
}

func TestSimulateImpact_UnmatchedSeedIsEmpty(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)

	res, err := e.SimulateImpact(context.Background(), "scan-1", ImpactRequest{Symbol: "does_not_exist"})
	require.NoError(t, err)
	assert.Empty(t, res.AffectedSymbols)
	assert.Empty(t, res.AffectedFiles)
	assert.Zero(t, res.TotalAffected)
}

func TestSimulateImpact_DepthOne(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)

	res, err := e.SimulateImpact(context.Background(), "scan-1", ImpactRequest{Symbol: "handler", MaxDepth: 1})
	require.NoError(t, err)

	// One hop from handler: its two callees plus the defining module.
	assert.Equal(t, []string{"helper", "query", "svc.api"}, affectedNames(res))
	assert.Equal(t, []string{"svc/api.py", "svc/db.py"}, res.AffectedFiles)
	assert.Equal(t, 3, res.TotalAffected)
	assert.Equal(t, 1, res.MaxDepth)
	for _, a := range res.AffectedSymbols {
		assert.Equal(t, 1, a.Depth)
	}

	// calls 1.0 + calls 1.0 + defines 0.3, no decay at depth zero.
	assert.InDelta(t, 2.3, res.ImpactScore, 0.001)

	// No cycles; both of two files touched.
	assert.False(t, res.CircularRisk)
	assert.InDelta(t, 15.0, res.RiskIncrease, 0.001)
}

func TestSimulateImpact_DeeperDepthGrowsResult(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)
	ctx := context.Background()

	shallow, err := e.SimulateImpact(ctx, "scan-1", ImpactRequest{Symbol: "handler", MaxDepth: 1})
	require.NoError(t, err)
	deep, err := e.SimulateImpact(ctx, "scan-1", ImpactRequest{Symbol: "handler", MaxDepth: 2})
	require.NoError(t, err)

	// svc.db is reached at depth 2 through query's defining module.
	assert.Equal(t, []string{"helper", "query", "svc.api", "svc.db"}, affectedNames(deep))
	assert.Equal(t, 2, deep.MaxDepth)
	assert.InDelta(t, 2.51, deep.ImpactScore, 0.001)

	assert.Subset(t, affectedNames(deep), affectedNames(shallow))
	assert.GreaterOrEqual(t, deep.ImpactScore, shallow.ImpactScore)
	assert.GreaterOrEqual(t, deep.TotalAffected, shallow.TotalAffected)
}

func TestSimulateImpact_ClampsDepth(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)
	ctx := context.Background()

	// Zero clamps up to one.
	zero, err := e.SimulateImpact(ctx, "scan-1", ImpactRequest{Symbol: "handler"})
	require.NoError(t, err)
	one, err := e.SimulateImpact(ctx, "scan-1", ImpactRequest{Symbol: "handler", MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, one, zero)

	// Fifty clamps down to ten.
	fifty, err := e.SimulateImpact(ctx, "scan-1", ImpactRequest{Symbol: "handler", MaxDepth: 50})
	require.NoError(t, err)
	ten, err := e.SimulateImpact(ctx, "scan-1", ImpactRequest{Symbol: "handler", MaxDepth: 10})
	require.NoError(t, err)
	assert.Equal(t, ten, fifty)
}

func TestSimulateImpact_SeedByFile(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)

	res, err := e.SimulateImpact(context.Background(), "scan-1", ImpactRequest{File: "svc/db.py", MaxDepth: 2})
	require.NoError(t, err)

	// Every symbol of svc/db.py seeds; seeds themselves are not reported.
	assert.Equal(t, []string{"handler", "svc.api", "helper"}, affectedNames(res))
	assert.Equal(t, []string{"svc/api.py"}, res.AffectedFiles)
	assert.Equal(t, 2, res.MaxDepth)
}

func TestSimulateImpact_SeedByFileSuffix(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)
	ctx := context.Background()

	full, err := e.SimulateImpact(ctx, "scan-1", ImpactRequest{File: "svc/db.py", MaxDepth: 1})
	require.NoError(t, err)
	suffix, err := e.SimulateImpact(ctx, "scan-1", ImpactRequest{File: "db.py", MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, full, suffix)
}

func TestSimulateImpact_FuzzySymbolSeed(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)

	// "api" is neither a qualified name nor a short name; the first sorted
	// qualified name containing it is svc.api.
	res, err := e.SimulateImpact(context.Background(), "scan-1", ImpactRequest{Symbol: "api", MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"handler", "helper", "svc.db"}, affectedNames(res))
}

func TestSimulateImpact_ExactQualifiedNameWinsOverFuzzy(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", false)

	// "svc.db" matches the module's qualified name exactly, so the import
	// symbol of the same short name does not seed.
	res, err := e.SimulateImpact(context.Background(), "scan-1", ImpactRequest{Symbol: "svc.db", MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"query", "svc.api"}, affectedNames(res))
	assert.InDelta(t, 1.1, res.ImpactScore, 0.001)
}

func TestSimulateImpact_CycleRaisesRisk(t *testing.T) {
	e := newTestEngine(t)
	commitImpactFixture(t, e, "scan-1", true)

	res, err := e.SimulateImpact(context.Background(), "scan-1", ImpactRequest{Symbol: "handler", MaxDepth: 1})
	require.NoError(t, err)

	// svc.api sits on the svc.api <-> svc.db import cycle: 5 points for one
	// cycle hit plus 15 for touching both files.
	assert.True(t, res.CircularRisk)
	assert.InDelta(t, 20.0, res.RiskIncrease, 0.001)
}

func TestSimulateImpact_ShortNameSeedsAllMatches(t *testing.T) {
	e := newTestEngine(t)

	snap := store.NewSnapshot("/repo/shop", store.Version{
		ScanID:    "scan-shop",
		CreatedAt: time.Now().UTC(),
	})
	f := snap.AddFile(store.File{Path: "shop/models.py", ModuleName: "shop.models"})
	snap.AddSymbol(store.Symbol{FileID: f, Name: "shop.models", QualifiedName: "shop.models", Kind: "module", StartLine: 1, EndLine: 30})
	userSave := snap.AddSymbol(store.Symbol{FileID: f, Name: "save", QualifiedName: "User.save", Kind: "method", StartLine: 5, EndLine: 8})
	orderSave := snap.AddSymbol(store.Symbol{FileID: f, Name: "save", QualifiedName: "Order.save", Kind: "method", StartLine: 15, EndLine: 18})
	validate := snap.AddSymbol(store.Symbol{FileID: f, Name: "validate", QualifiedName: "validate", Kind: "function", StartLine: 25, EndLine: 28})
	snap.AddEdge(store.Edge{SourceID: userSave, TargetID: validate, Relation: store.RelationCalls})
	snap.AddEdge(store.Edge{SourceID: orderSave, TargetID: validate, Relation: store.RelationCalls})
	_, err := e.Store().CommitSnapshot(snap)
	require.NoError(t, err)

	res, err := e.SimulateImpact(context.Background(), "scan-shop", ImpactRequest{Symbol: "save", MaxDepth: 1})
	require.NoError(t, err)

	// Both save methods seed. validate is discovered once, so the two call
	// edges into it contribute a single 1.0.
	assert.Equal(t, []string{"validate"}, affectedNames(res))
	assert.InDelta(t, 1.0, res.ImpactScore, 0.001)
	assert.Equal(t, 1, res.TotalAffected)
}

func TestSimulateImpact_ImportSymbolsCountForFilesNotList(t *testing.T) {
	e := newTestEngine(t)

	snap := store.NewSnapshot("/repo/imports", store.Version{
		ScanID:    "scan-imports",
		CreatedAt: time.Now().UTC(),
	})
	f := snap.AddFile(store.File{Path: "pkg/a.py", ModuleName: "pkg.a"})
	mod := snap.AddSymbol(store.Symbol{FileID: f, Name: "pkg.a", QualifiedName: "pkg.a", Kind: "module", StartLine: 1, EndLine: 5})
	imp := snap.AddSymbol(store.Symbol{FileID: f, Name: "pkg.b", QualifiedName: "pkg.a::pkg.b", Kind: "import", StartLine: 1, EndLine: 1})
	snap.AddEdge(store.Edge{SourceID: mod, TargetID: imp, Relation: store.RelationDefines})
	_, err := e.Store().CommitSnapshot(snap)
	require.NoError(t, err)

	res, err := e.SimulateImpact(context.Background(), "scan-imports", ImpactRequest{Symbol: "pkg.a", MaxDepth: 1})
	require.NoError(t, err)

	assert.Empty(t, res.AffectedSymbols)
	assert.Zero(t, res.TotalAffected)
	assert.Equal(t, []string{"pkg/a.py"}, res.AffectedFiles)
	assert.InDelta(t, 0.3, res.ImpactScore, 0.001)
	assert.Equal(t, 1, res.MaxDepth)
}
