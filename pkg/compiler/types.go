package compiler

import (
	"github.com/gloxlang/glox/pkg/chunk"
	"github.com/gloxlang/glox/pkg/gc"
	"github.com/gloxlang/glox/pkg/lexer"
	"github.com/gloxlang/glox/pkg/value"
)

// FunctionType distinguishes what kind of callable a FunctionCompiler is
// building, since scripts, plain functions, methods, and initializers
// each need slightly different prologue/epilogue codegen (an
// initializer implicitly returns its receiver; a script and a function
// implicitly return nil; slot 0 means "the receiver" only in methods and
// initializers).
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeScript
	TypeMethod
	TypeInitializer
)

const maxLocals = 256
const maxUpvalues = 256

// local is one entry in a FunctionCompiler's compile-time scope stack.
// depth is -1 between a local's declaration and its definition (the
// window in which its own initializer can't refer to it, spec.md
// §4.5's shadowing edge case).
type local struct {
	name       lexer.Token
	depth      int
	isCaptured bool
}

// upvalueRef records how a compiled function reaches one free variable:
// either directly off the enclosing function's stack frame (isLocal)
// or by forwarding one of the enclosing function's own upvalues.
type upvalueRef struct {
	index   uint8
	isLocal bool
}

// FunctionCompiler holds all compile-time state for one function body
// being compiled: its locals, its upvalue list, and the chunk it is
// emitting into. The compiler keeps a chain of these (one per lexically
// enclosing function) exactly mirroring the runtime CallFrame chain the
// VM will build later.
type FunctionCompiler struct {
	enclosing *FunctionCompiler

	function    *value.ObjFunction
	functionObj *value.Obj
	chunk       *chunk.Chunk
	fnType      FunctionType

	locals     []local
	scopeDepth int

	upvalues []upvalueRef
}

// MarkRoots marks every Obj reachable from this (and enclosing)
// function compilers' in-progress chunks, so a collection triggered
// mid-compile — e.g. by interning a string constant — never frees a
// function still being built. Registered as a gc.RootProvider only
// while compilation is in flight.
func (fc *FunctionCompiler) MarkRoots(g *gc.GC) {
	for c := fc; c != nil; c = c.enclosing {
		g.MarkObject(c.functionObj)
		for _, v := range c.chunk.Constants() {
			g.MarkValue(v)
		}
	}
}

// classCompiler tracks the class currently being compiled, so `this`
// resolves correctly inside method bodies and nested class/function
// declarations don't leak receiver binding into each other.
type classCompiler struct {
	enclosing *classCompiler
}
