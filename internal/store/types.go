package store

import "time"

// Graph domain types

type Repository struct {
	ID        int64
	RootPath  string
	CreatedAt time.Time
}

type Version struct {
	ID              int64
	RepoID          int64
	ScanID          string
	CommitHash      string
	CreatedAt       time.Time
	ComplexityScore int
	RiskScore       int
}

type File struct {
	ID         int64
	VersionID  int64
	Path       string
	ModuleName string
}

type Symbol struct {
	ID            int64
	FileID        int64
	Name          string
	QualifiedName string
	Kind          string // persisted in the "type" column
	StartLine     int
	EndLine       int
}

type Edge struct {
	ID       int64
	SourceID int64
	TargetID int64
	Relation string
}

// Edge relations.
const (
	RelationDefines = "defines"
	RelationImports = "imports"
	RelationCalls   = "calls"
)

// Symbol kinds accepted by the symbols.type column.
var ValidSymbolKinds = map[string]bool{
	"module":   true,
	"class":    true,
	"function": true,
	"method":   true,
	"import":   true,
}

// VersionSummary is a Version joined with its repository root and file
// count, for listings.
type VersionSummary struct {
	Version
	RootPath  string
	FileCount int
}
