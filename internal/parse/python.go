package parse

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// PythonParser extracts symbols, imports, and call sites from Python source
// using the tree-sitter grammar.
type PythonParser struct{}

func (PythonParser) Parse(ctx context.Context, relPath string, src []byte) (*FileAnalysis, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", relPath, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, fmt.Errorf("parse %s: source has syntax errors", relPath)
	}

	v := &pyVisitor{src: src}
	v.walk(root)

	a := newAnalysis(relPath, "python", lineCount(src))
	a.Imports = v.imports
	a.Calls = v.calls
	a.Symbols = append(a.Symbols, importSymbols(a.ModuleName, v.imports)...)
	a.Symbols = append(a.Symbols, v.symbols...)
	return a, nil
}

// importSymbols materializes one import-kind symbol per imported name. Bare
// imports are labeled by the module path; from-imports by "module.name",
// both qualified as "<file module>::<label>".
func importSymbols(moduleName string, imports []ImportInfo) []SymbolInfo {
	var syms []SymbolInfo
	for _, imp := range imports {
		if len(imp.Names) == 0 {
			syms = append(syms, SymbolInfo{
				Name:          imp.Module,
				QualifiedName: moduleName + "::" + imp.Module,
				Kind:          KindImport,
				StartLine:     imp.Line,
				EndLine:       imp.Line,
			})
			continue
		}
		for _, name := range imp.Names {
			label := name
			if imp.Module != "" {
				label = imp.Module + "." + name
			}
			syms = append(syms, SymbolInfo{
				Name:          label,
				QualifiedName: moduleName + "::" + label,
				Kind:          KindImport,
				StartLine:     imp.Line,
				EndLine:       imp.Line,
			})
		}
	}
	return syms
}

// pyVisitor walks the syntax tree collecting structural facts. The scope
// stack of enclosing class/function names builds qualified names.
type pyVisitor struct {
	src     []byte
	scope   []string
	symbols []SymbolInfo
	imports []ImportInfo
	calls   []CallInfo
}

func (v *pyVisitor) walk(node *sitter.Node) {
	switch node.Type() {
	case "class_definition", "function_definition":
		v.visitDefinition(node, nil)
		return
	case "decorated_definition":
		if def := node.ChildByFieldName("definition"); def != nil {
			var decorators []*sitter.Node
			for i := 0; i < int(node.NamedChildCount()); i++ {
				if c := node.NamedChild(i); c.Type() == "decorator" {
					decorators = append(decorators, c)
				}
			}
			v.visitDefinition(def, decorators)
			return
		}
	case "import_statement":
		v.visitImport(node)
		return
	case "import_from_statement":
		v.visitImportFrom(node)
		return
	case "call":
		v.visitCall(node)
	}
	v.walkChildren(node)
}

func (v *pyVisitor) walkChildren(node *sitter.Node) {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		v.walk(node.NamedChild(i))
	}
}

// visitDefinition records a class/function/method symbol and walks its body
// inside the new scope. Decorator expressions are walked inside that scope
// too, so calls in decorators are attributed to the decorated symbol.
func (v *pyVisitor) visitDefinition(def *sitter.Node, decorators []*sitter.Node) {
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		v.walkChildren(def)
		return
	}
	name := v.text(nameNode)

	kind := KindClass
	if def.Type() == "function_definition" {
		kind = KindFunction
		if len(v.scope) > 0 {
			kind = KindMethod
		}
	}
	v.symbols = append(v.symbols, SymbolInfo{
		Name:          name,
		QualifiedName: v.qualified(name),
		Kind:          kind,
		StartLine:     int(def.StartPoint().Row) + 1,
		EndLine:       int(def.EndPoint().Row) + 1,
	})

	v.scope = append(v.scope, name)
	for _, d := range decorators {
		v.walk(d)
	}
	v.walkChildren(def)
	v.scope = v.scope[:len(v.scope)-1]
}

// visitImport handles "import a.b, c as d": one ImportInfo per module, no
// sub-names.
func (v *pyVisitor) visitImport(node *sitter.Node) {
	line := int(node.StartPoint().Row) + 1
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		var module string
		switch c.Type() {
		case "dotted_name":
			module = v.text(c)
		case "aliased_import":
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				module = v.text(nameNode)
			}
		}
		if module == "" {
			continue
		}
		v.imports = append(v.imports, ImportInfo{Module: module, Line: line})
	}
}

// visitImportFrom handles "from x.y import a, b as c" and "from x import *".
// Relative imports keep only the dotted suffix; "from . import x" yields an
// empty module.
func (v *pyVisitor) visitImportFrom(node *sitter.Node) {
	moduleNode := node.ChildByFieldName("module_name")
	var module string
	var moduleStart uint32
	if moduleNode != nil {
		moduleStart = moduleNode.StartByte()
		if moduleNode.Type() == "relative_import" {
			for i := 0; i < int(moduleNode.NamedChildCount()); i++ {
				if c := moduleNode.NamedChild(i); c.Type() == "dotted_name" {
					module = v.text(c)
					break
				}
			}
		} else {
			module = v.text(moduleNode)
		}
	}

	var names []string
	for i := 0; i < int(node.NamedChildCount()); i++ {
		c := node.NamedChild(i)
		if moduleNode != nil && c.StartByte() == moduleStart {
			continue
		}
		switch c.Type() {
		case "wildcard_import":
			names = append(names, "*")
		case "dotted_name":
			names = append(names, v.text(c))
		case "aliased_import":
			if nameNode := c.ChildByFieldName("name"); nameNode != nil {
				names = append(names, v.text(nameNode))
			}
		}
	}
	if len(names) == 0 {
		names = []string{"*"}
	}

	v.imports = append(v.imports, ImportInfo{
		Module: module,
		Names:  names,
		Line:   int(node.StartPoint().Row) + 1,
	})
}

func (v *pyVisitor) visitCall(node *sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}
	callee := v.callName(fn)
	if callee == "" {
		return
	}
	caller := ModuleCaller
	if len(v.scope) > 0 {
		caller = strings.Join(v.scope, ".")
	}
	v.calls = append(v.calls, CallInfo{
		Caller: caller,
		Callee: callee,
		Line:   int(node.StartPoint().Row) + 1,
	})
}

// callName resolves a call target to a dotted name: a bare identifier, or
// an attribute chain ending in one ("a.b.c"). Computed targets like
// subscripts or nested calls yield "".
func (v *pyVisitor) callName(node *sitter.Node) string {
	switch node.Type() {
	case "identifier":
		return v.text(node)
	case "attribute":
		var parts []string
		current := node
		for current.Type() == "attribute" {
			attr := current.ChildByFieldName("attribute")
			obj := current.ChildByFieldName("object")
			if attr == nil || obj == nil {
				return ""
			}
			parts = append(parts, v.text(attr))
			current = obj
		}
		if current.Type() != "identifier" {
			return ""
		}
		parts = append(parts, v.text(current))
		for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
			parts[i], parts[j] = parts[j], parts[i]
		}
		return strings.Join(parts, ".")
	}
	return ""
}

func (v *pyVisitor) qualified(name string) string {
	if len(v.scope) == 0 {
		return name
	}
	return strings.Join(v.scope, ".") + "." + name
}

func (v *pyVisitor) text(node *sitter.Node) string {
	return string(v.src[node.StartByte():node.EndByte()])
}
