package parse

// Symbol kinds persisted to the graph.
const (
	KindModule   = "module"
	KindClass    = "class"
	KindFunction = "function"
	KindMethod   = "method"
	KindImport   = "import"
)

// Kinds the pattern parser emits for non-Python languages. The builder maps
// anything outside the five persisted kinds to "function" before storing.
const (
	KindStruct    = "struct"
	KindInterface = "interface"
	KindTrait     = "trait"
)

// ModuleCaller marks a call made at module top level, outside any function
// or class body.
const ModuleCaller = "<module>"

type SymbolInfo struct {
	Name          string
	QualifiedName string
	Kind          string
	StartLine     int
	EndLine       int
}

type ImportInfo struct {
	Module string
	Names  []string
	Line   int
}

type CallInfo struct {
	Caller string
	Callee string
	Line   int
}

// FileAnalysis is the language-neutral result of parsing one source file.
// Symbols always starts with a module-kind entry spanning the whole file.
type FileAnalysis struct {
	RelativePath string
	ModuleName   string
	Language     string
	Symbols      []SymbolInfo
	Imports      []ImportInfo
	Calls        []CallInfo
}
