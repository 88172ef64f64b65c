package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const greeterSrc = `import os.path
from collections import OrderedDict, defaultdict
from . import sibling
from .util import helper
from models import *


def top(value):
    return transform(value)


class Greeter:
    def __init__(self, name):
        self.name = normalize(name)

    def greet(self):
        print(self.name)

    class Inner:
        pass


def main():
    g = Greeter("world")
    g.greet()


main()
`

func parsePython(t *testing.T, relPath, src string) *FileAnalysis {
	t.Helper()
	a, err := PythonParser{}.Parse(context.Background(), relPath, []byte(src))
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func findSymbol(t *testing.T, a *FileAnalysis, qualified string) SymbolInfo {
	t.Helper()
	for _, s := range a.Symbols {
		if s.QualifiedName == qualified {
			return s
		}
	}
	t.Fatalf("symbol %q not found", qualified)
	return SymbolInfo{}
}

func TestPython_ModuleSymbol(t *testing.T) {
	t.Parallel()
	a := parsePython(t, "app/greeter.py", greeterSrc)

	require.Equal(t, "app/greeter.py", a.RelativePath)
	require.Equal(t, "app.greeter", a.ModuleName)
	require.Equal(t, "python", a.Language)

	mod := a.Symbols[0]
	assert.Equal(t, KindModule, mod.Kind)
	assert.Equal(t, "app.greeter", mod.Name)
	assert.Equal(t, "app.greeter", mod.QualifiedName)
	assert.Equal(t, 1, mod.StartLine)
	assert.Equal(t, 28, mod.EndLine)
}

func TestPython_ClassesAndFunctions(t *testing.T) {
	t.Parallel()
	a := parsePython(t, "app/greeter.py", greeterSrc)

	top := findSymbol(t, a, "top")
	assert.Equal(t, KindFunction, top.Kind)
	assert.Equal(t, 8, top.StartLine)
	assert.Equal(t, 9, top.EndLine)

	greeter := findSymbol(t, a, "Greeter")
	assert.Equal(t, KindClass, greeter.Kind)
	assert.Equal(t, 12, greeter.StartLine)
	assert.Equal(t, 20, greeter.EndLine)

	init := findSymbol(t, a, "Greeter.__init__")
	assert.Equal(t, KindMethod, init.Kind)
	assert.Equal(t, "__init__", init.Name)
	assert.Equal(t, 13, init.StartLine)
	assert.Equal(t, 14, init.EndLine)

	greet := findSymbol(t, a, "Greeter.greet")
	assert.Equal(t, KindMethod, greet.Kind)

	inner := findSymbol(t, a, "Greeter.Inner")
	assert.Equal(t, KindClass, inner.Kind)

	main := findSymbol(t, a, "main")
	assert.Equal(t, KindFunction, main.Kind)
	assert.Equal(t, 23, main.StartLine)
	assert.Equal(t, 25, main.EndLine)
}

func TestPython_Imports(t *testing.T) {
	t.Parallel()
	a := parsePython(t, "app/greeter.py", greeterSrc)

	want := []ImportInfo{
		{Module: "os.path", Line: 1},
		{Module: "collections", Names: []string{"OrderedDict", "defaultdict"}, Line: 2},
		{Module: "", Names: []string{"sibling"}, Line: 3},
		{Module: "util", Names: []string{"helper"}, Line: 4},
		{Module: "models", Names: []string{"*"}, Line: 5},
	}
	require.Equal(t, want, a.Imports)
}

func TestPython_ImportSymbols(t *testing.T) {
	t.Parallel()
	a := parsePython(t, "app/greeter.py", greeterSrc)

	for _, qualified := range []string{
		"app.greeter::os.path",
		"app.greeter::collections.OrderedDict",
		"app.greeter::collections.defaultdict",
		"app.greeter::sibling",
		"app.greeter::util.helper",
		"app.greeter::models.*",
	} {
		sym := findSymbol(t, a, qualified)
		assert.Equal(t, KindImport, sym.Kind, qualified)
		assert.Equal(t, sym.StartLine, sym.EndLine, qualified)
	}

	sibling := findSymbol(t, a, "app.greeter::sibling")
	assert.Equal(t, "sibling", sibling.Name)
	assert.Equal(t, 3, sibling.StartLine)
}

func TestPython_Calls(t *testing.T) {
	t.Parallel()
	a := parsePython(t, "app/greeter.py", greeterSrc)

	want := []CallInfo{
		{Caller: "top", Callee: "transform", Line: 9},
		{Caller: "Greeter.__init__", Callee: "normalize", Line: 14},
		{Caller: "Greeter.greet", Callee: "print", Line: 17},
		{Caller: "main", Callee: "Greeter", Line: 24},
		{Caller: "main", Callee: "g.greet", Line: 25},
		{Caller: ModuleCaller, Callee: "main", Line: 28},
	}
	require.Equal(t, want, a.Calls)
}

func TestPython_AsyncFunction(t *testing.T) {
	t.Parallel()
	src := `async def fetch(url):
    return url


class Client:
    async def get(self, url):
        return url
`
	a := parsePython(t, "client.py", src)

	fetch := findSymbol(t, a, "fetch")
	assert.Equal(t, KindFunction, fetch.Kind)

	get := findSymbol(t, a, "Client.get")
	assert.Equal(t, KindMethod, get.Kind)
}

func TestPython_DecoratedDefinition(t *testing.T) {
	t.Parallel()
	src := `def wrap(f):
    return f


@wrap
def handler(event):
    return event
`
	a := parsePython(t, "mod.py", src)

	handler := findSymbol(t, a, "handler")
	assert.Equal(t, KindFunction, handler.Kind)
	assert.Equal(t, 6, handler.StartLine)
	assert.Equal(t, 7, handler.EndLine)
}

func TestPython_DecoratorCallAttribution(t *testing.T) {
	t.Parallel()
	src := `@register("task")
def task():
    pass
`
	a := parsePython(t, "mod.py", src)

	require.Len(t, a.Calls, 1)
	assert.Equal(t, "task", a.Calls[0].Caller)
	assert.Equal(t, "register", a.Calls[0].Callee)
}

func TestPython_AttributeChainCallee(t *testing.T) {
	t.Parallel()
	src := `import json


def dump(obj):
    return json.dumps.more(obj)
`
	a := parsePython(t, "mod.py", src)

	require.Len(t, a.Calls, 1)
	assert.Equal(t, "json.dumps.more", a.Calls[0].Callee)
}

func TestPython_ComputedCalleeSkipped(t *testing.T) {
	t.Parallel()
	src := `def run(handlers):
    handlers[0]()
    get_handler()()
`
	a := parsePython(t, "mod.py", src)

	// The subscript call and the call-of-a-call result are unresolvable;
	// only the inner get_handler reference survives.
	require.Len(t, a.Calls, 1)
	assert.Equal(t, "get_handler", a.Calls[0].Callee)
	assert.Equal(t, "run", a.Calls[0].Caller)
}

func TestPython_EmptyFile(t *testing.T) {
	t.Parallel()
	a := parsePython(t, "empty.py", "")

	require.Len(t, a.Symbols, 1)
	mod := a.Symbols[0]
	assert.Equal(t, KindModule, mod.Kind)
	assert.Equal(t, 1, mod.StartLine)
	assert.Equal(t, 1, mod.EndLine)
}

func TestPython_SyntaxError(t *testing.T) {
	t.Parallel()
	_, err := PythonParser{}.Parse(context.Background(), "broken.py", []byte("def broken(:\n"))
	require.Error(t, err)
}

func TestPython_NestedFunctionScope(t *testing.T) {
	t.Parallel()
	src := `def outer():
    def inner():
        helper()
    inner()
`
	a := parsePython(t, "mod.py", src)

	inner := findSymbol(t, a, "outer.inner")
	assert.Equal(t, KindMethod, inner.Kind)

	want := []CallInfo{
		{Caller: "outer.inner", Callee: "helper", Line: 3},
		{Caller: "outer", Callee: "inner", Line: 4},
	}
	require.Equal(t, want, a.Calls)
}
