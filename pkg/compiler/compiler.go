// Package compiler implements glox's single-pass Pratt-parser compiler:
// source goes in, bytecode comes out, with no intermediate AST. Parsing
// and code generation are interleaved exactly as in the reference
// single-pass design spec.md §4.5 calls for — each parse function emits
// bytecode as it recognizes syntax rather than building a tree for a
// later pass to walk.
package compiler

import (
	"fmt"

	"github.com/gloxlang/glox/pkg/chunk"
	"github.com/gloxlang/glox/pkg/gc"
	"github.com/gloxlang/glox/pkg/lexer"
	"github.com/gloxlang/glox/pkg/value"
)

const maxArgs = 255

// CompileError reports every syntax error found, not just the first:
// the compiler keeps parsing after an error (via synchronize) purely so
// it can report more of them in one pass, the way clox's panicMode
// recovery does.
type CompileError struct {
	Errors []string
}

func (e *CompileError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return fmt.Sprintf("%d compile errors, first: %s", len(e.Errors), e.Errors[0])
}

// Compiler holds all state for one Compile call: the token stream, the
// chain of in-progress FunctionCompilers (one per lexically nested
// function), and the class currently being compiled (for `this`).
type Compiler struct {
	lx *lexer.Lexer
	gc *gc.GC

	current *FunctionCompiler
	class   *classCompiler

	previous lexer.Token
	curTok   lexer.Token

	errs      []string
	hadError  bool
	panicMode bool
}

// Compile compiles source into a top-level script function object,
// registering itself as a GC root for the duration so an allocation
// mid-compile can't collect a function still under construction.
func Compile(source string, g *gc.GC) (*value.Obj, error) {
	c := &Compiler{lx: lexer.New(source), gc: g}
	c.beginFunction(TypeScript, "")

	g.AddRoot(c)
	defer g.RemoveRoot(c)

	c.advance()
	for !c.match(lexer.TokenEOF) {
		c.declaration()
	}

	fn := c.endFunction()
	if c.hadError {
		return nil, &CompileError{Errors: c.errs}
	}
	return fn, nil
}

// MarkRoots implements gc.RootProvider. It always marks from whichever
// FunctionCompiler is currently active (c.current), not a fixed one
// captured at registration time — compilation descends into and back
// out of nested function/method bodies, and an allocation triggered
// deep in that descent must protect the whole live enclosing chain, not
// just the outermost script compiler.
func (c *Compiler) MarkRoots(g *gc.GC) {
	if c.current != nil {
		c.current.MarkRoots(g)
	}
}

// --- token stream ----------------------------------------------------------

func (c *Compiler) advance() {
	c.previous = c.curTok
	for {
		c.curTok = c.lx.Next()
		if c.curTok.Type != lexer.TokenError {
			break
		}
		c.errorAtCurrent(c.curTok.Lexeme)
	}
}

func (c *Compiler) check(tt lexer.TokenType) bool { return c.curTok.Type == tt }

func (c *Compiler) match(tt lexer.TokenType) bool {
	if !c.check(tt) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(tt lexer.TokenType, msg string) {
	if c.curTok.Type == tt {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.curTok, msg) }
func (c *Compiler) error(msg string)          { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok lexer.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	where := ""
	switch tok.Type {
	case lexer.TokenEOF:
		where = " at end"
	case lexer.TokenError:
		// lexeme is already the message
	default:
		where = fmt.Sprintf(" at '%s'", tok.Lexeme)
	}
	c.errs = append(c.errs, fmt.Sprintf("[line %d] Error%s: %s", tok.Line, where, msg))
}

// synchronize skips tokens until it reaches one that plausibly begins a
// new statement, so one syntax error doesn't cascade into a wall of
// spurious follow-on errors.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.curTok.Type != lexer.TokenEOF {
		if c.previous.Type == lexer.TokenSemicolon {
			return
		}
		switch c.curTok.Type {
		case lexer.TokenClass, lexer.TokenFun, lexer.TokenVar, lexer.TokenFor,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenPrint, lexer.TokenReturn:
			return
		}
		c.advance()
	}
}

// --- emission ----------------------------------------------------------

func (c *Compiler) emitByte(b byte)      { c.current.chunk.Write(b, c.previous.Line) }
func (c *Compiler) emitOp(op chunk.OpCode) { c.current.chunk.WriteOp(op, c.previous.Line) }

func (c *Compiler) emitOpByte(op chunk.OpCode, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(chunk.OpLoop)
	offset := len(c.current.chunk.Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte((offset >> 8) & 0xff))
	c.emitByte(byte(offset & 0xff))
}

func (c *Compiler) emitJump(op chunk.OpCode) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.current.chunk.Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.current.chunk.Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
	}
	c.current.chunk.Code[offset] = byte((jump >> 8) & 0xff)
	c.current.chunk.Code[offset+1] = byte(jump & 0xff)
}

func (c *Compiler) emitReturn() {
	if c.current.fnType == TypeInitializer {
		// `init` implicitly returns the receiver, always in slot 0.
		c.emitOpByte(chunk.OpGetLocal, 0)
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.emitOp(chunk.OpReturn)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	idx, err := c.current.chunk.AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOpByte(chunk.OpConstant, c.makeConstant(v))
}

// --- function compiler lifecycle ----------------------------------------

func (c *Compiler) beginFunction(fnType FunctionType, name string) {
	ch := chunk.New()
	fn := &value.ObjFunction{Chunk: ch}
	if name != "" {
		fn.Name = c.gc.InternString(name)
	}
	fnObj := c.gc.NewFunction(fn)

	fc := &FunctionCompiler{
		enclosing:   c.current,
		function:    fn,
		functionObj: fnObj,
		chunk:       ch,
		fnType:      fnType,
	}

	// Slot 0 is reserved: the receiver in methods/initializers, an
	// unnameable sentinel everywhere else (matches clox's layout so
	// OP_GET_LOCAL 0 means "this" uniformly inside methods).
	receiverName := ""
	if fnType == TypeMethod || fnType == TypeInitializer {
		receiverName = "this"
	}
	fc.locals = append(fc.locals, local{name: lexer.Token{Lexeme: receiverName}, depth: 0})

	c.current = fc
}

func (c *Compiler) endFunction() *value.Obj {
	c.emitReturn()
	fn := c.current.function
	fn.UpvalueCount = len(c.current.upvalues)
	obj := c.current.functionObj
	c.current = c.current.enclosing
	return obj
}

// --- scopes and locals ---------------------------------------------------

func (c *Compiler) beginScope() { c.current.scopeDepth++ }

func (c *Compiler) endScope() {
	c.current.scopeDepth--
	fc := c.current
	for len(fc.locals) > 0 && fc.locals[len(fc.locals)-1].depth > fc.scopeDepth {
		last := fc.locals[len(fc.locals)-1]
		if last.isCaptured {
			c.emitOp(chunk.OpCloseUpvalue)
		} else {
			c.emitOp(chunk.OpPop)
		}
		fc.locals = fc.locals[:len(fc.locals)-1]
	}
}

func identifiersEqual(a, b lexer.Token) bool { return a.Lexeme == b.Lexeme }

func (c *Compiler) addLocal(name lexer.Token) {
	if len(c.current.locals) >= maxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.current.locals = append(c.current.locals, local{name: name, depth: -1})
}

func (c *Compiler) declareVariable() {
	if c.current.scopeDepth == 0 {
		return
	}
	name := c.previous
	fc := c.current
	for i := len(fc.locals) - 1; i >= 0; i-- {
		l := fc.locals[i]
		if l.depth != -1 && l.depth < fc.scopeDepth {
			break
		}
		if identifiersEqual(name, l.name) {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

func (c *Compiler) markInitialized() {
	if c.current.scopeDepth == 0 {
		return
	}
	c.current.locals[len(c.current.locals)-1].depth = c.current.scopeDepth
}

func resolveLocal(fc *FunctionCompiler, name lexer.Token) int {
	for i := len(fc.locals) - 1; i >= 0; i-- {
		if identifiersEqual(name, fc.locals[i].name) {
			return i
		}
	}
	return -1
}

func (c *Compiler) addUpvalue(fc *FunctionCompiler, index uint8, isLocal bool) int {
	for i, uv := range fc.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fc.upvalues) >= maxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fc.upvalues = append(fc.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fc.upvalues) - 1
}

// resolveUpvalue walks the enclosing-function chain recursively, adding
// a forwarding upvalue at each level between the defining scope and the
// function that actually closes over it (spec.md §4.5's upvalue chain).
func (c *Compiler) resolveUpvalue(fc *FunctionCompiler, name lexer.Token) int {
	if fc.enclosing == nil {
		return -1
	}
	if local := resolveLocal(fc.enclosing, name); local != -1 {
		fc.enclosing.locals[local].isCaptured = true
		return c.addUpvalue(fc, uint8(local), true)
	}
	if up := c.resolveUpvalue(fc.enclosing, name); up != -1 {
		return c.addUpvalue(fc, uint8(up), false)
	}
	return -1
}

func (c *Compiler) identifierConstant(name lexer.Token) byte {
	return c.makeConstant(value.FromObj(c.gc.InternString(name.Lexeme)))
}

func (c *Compiler) parseVariable(msg string) byte {
	c.consume(lexer.TokenIdentifier, msg)
	c.declareVariable()
	if c.current.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) defineVariable(global byte) {
	if c.current.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(chunk.OpDefineGlobal, global)
}
