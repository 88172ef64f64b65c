package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parsePattern(t *testing.T, relPath, src string) *FileAnalysis {
	t.Helper()
	p, ok := ForFile(relPath)
	require.True(t, ok)
	a, err := p.Parse(context.Background(), relPath, []byte(src))
	require.NoError(t, err)
	return a
}

func TestPattern_JavaScript(t *testing.T) {
	t.Parallel()
	src := `import React from 'react'
import { useState } from "react"

class Widget {
  render() {}
}

function main() {
  console.log('hi')
}

const handler = async (event) => {
  return event
}
`
	a := parsePattern(t, "src/widget.js", src)
	require.Equal(t, "javascript", a.Language)
	require.Equal(t, "src.widget", a.ModuleName)

	want := []ImportInfo{
		{Module: "react", Line: 1},
		{Module: "react", Line: 2},
	}
	require.Equal(t, want, a.Imports)

	widget := findSymbol(t, a, "src.widget.Widget")
	assert.Equal(t, KindClass, widget.Kind)
	assert.Equal(t, 4, widget.StartLine)
	assert.Equal(t, 6, widget.EndLine)

	main := findSymbol(t, a, "src.widget.main")
	assert.Equal(t, KindFunction, main.Kind)
	assert.Equal(t, 8, main.StartLine)
	assert.Equal(t, 10, main.EndLine)

	handler := findSymbol(t, a, "src.widget.handler")
	assert.Equal(t, KindFunction, handler.Kind)
	assert.Equal(t, 12, handler.StartLine)
}

func TestPattern_TypeScriptInterface(t *testing.T) {
	t.Parallel()
	src := `export interface Props {
  name: string
}

export class Card {
}

export async function load(id: string) {
  return id
}
`
	a := parsePattern(t, "card.tsx", src)
	require.Equal(t, "typescript", a.Language)

	props := findSymbol(t, a, "card.Props")
	assert.Equal(t, KindInterface, props.Kind)

	card := findSymbol(t, a, "card.Card")
	assert.Equal(t, KindClass, card.Kind)

	load := findSymbol(t, a, "card.load")
	assert.Equal(t, KindFunction, load.Kind)
}

func TestPattern_Go(t *testing.T) {
	t.Parallel()
	src := `package server

import "fmt"

type Config struct {
	Addr string
}

type Handler interface {
	Handle()
}

func (s *Server) Start() error {
	return nil
}

func main() {
	fmt.Println("up")
}
`
	a := parsePattern(t, "cmd/server/main.go", src)
	require.Equal(t, "go", a.Language)
	require.Equal(t, "cmd.server.main", a.ModuleName)

	require.Equal(t, []ImportInfo{{Module: "fmt", Line: 3}}, a.Imports)

	cfg := findSymbol(t, a, "cmd.server.main.Config")
	assert.Equal(t, KindStruct, cfg.Kind)

	h := findSymbol(t, a, "cmd.server.main.Handler")
	assert.Equal(t, KindInterface, h.Kind)

	start := findSymbol(t, a, "cmd.server.main.Start")
	assert.Equal(t, KindFunction, start.Kind)

	findSymbol(t, a, "cmd.server.main.main")
}

func TestPattern_Java(t *testing.T) {
	t.Parallel()
	src := `import java.util.List;

public abstract class Repo {
    public static void main(String[] args) {
    }
}
`
	a := parsePattern(t, "Repo.java", src)

	require.Equal(t, []ImportInfo{{Module: "java.util.List", Line: 1}}, a.Imports)
	assert.Equal(t, KindClass, findSymbol(t, a, "Repo.Repo").Kind)
	assert.Equal(t, KindFunction, findSymbol(t, a, "Repo.main").Kind)
}

func TestPattern_Rust(t *testing.T) {
	t.Parallel()
	src := `use std::collections::HashMap;

pub struct Point {
    x: f64,
}

pub trait Shape {
    fn area(&self) -> f64;
}
`
	a := parsePattern(t, "geo.rs", src)

	require.Equal(t, []ImportInfo{{Module: "std::collections::HashMap", Line: 1}}, a.Imports)
	assert.Equal(t, KindStruct, findSymbol(t, a, "geo.Point").Kind)
	assert.Equal(t, KindTrait, findSymbol(t, a, "geo.Shape").Kind)
	assert.Equal(t, KindFunction, findSymbol(t, a, "geo.area").Kind)
}

func TestPattern_C(t *testing.T) {
	t.Parallel()
	src := `#include <stdio.h>
#include "util.h"

typedef struct Point {
    int x;
} Point;

int main(void) {
    return 0;
}
`
	a := parsePattern(t, "main.c", src)

	want := []ImportInfo{
		{Module: "stdio.h", Line: 1},
		{Module: "util.h", Line: 2},
	}
	require.Equal(t, want, a.Imports)
	assert.Equal(t, KindStruct, findSymbol(t, a, "main.Point").Kind)
	assert.Equal(t, KindFunction, findSymbol(t, a, "main.main").Kind)
}

func TestPattern_EndLineCapped(t *testing.T) {
	t.Parallel()
	// No blank line after the declaration: the end line stays on the
	// declaration itself.
	src := "class Dense {\n  render() {}\n}\n"
	a := parsePattern(t, "dense.js", src)

	dense := findSymbol(t, a, "dense.Dense")
	assert.Equal(t, 1, dense.StartLine)
	assert.Equal(t, 1, dense.EndLine)
}

func TestPattern_ModuleSymbolSpansFile(t *testing.T) {
	t.Parallel()
	src := "function a() {}\nfunction b() {}\n"
	a := parsePattern(t, "two.js", src)

	mod := a.Symbols[0]
	assert.Equal(t, KindModule, mod.Kind)
	assert.Equal(t, "two", mod.Name)
	assert.Equal(t, 1, mod.StartLine)
	assert.Equal(t, 2, mod.EndLine)
}

func TestPattern_EmptyFile(t *testing.T) {
	t.Parallel()
	a := parsePattern(t, "empty.ts", "")

	require.Len(t, a.Symbols, 1)
	assert.Equal(t, 1, a.Symbols[0].EndLine)
	assert.Empty(t, a.Imports)
}
