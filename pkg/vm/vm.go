// Package vm implements glox's stack-based bytecode virtual machine.
//
// The VM is the final stage of the pipeline: source goes through
// pkg/lexer and pkg/compiler to produce a chunk of bytecode, and this
// package executes it directly, with no further lowering.
//
// Execution model:
//
//	Value Stack:  holds every intermediate and local value; fixed
//	              capacity (StackMax), preallocated once so that a
//	              pointer into it (what an open upvalue holds) never
//	              dangles from a slice reallocation.
//	Call Frames:  one per active closure invocation, each a window
//	              (slots) into the shared value stack plus its own
//	              instruction pointer — there is no separate Go call
//	              stack mirroring Lox calls, so deep Lox recursion costs
//	              one CallFrame, not one goroutine stack frame.
//	Globals:      a single pkg/table.Table keyed by interned names.
//	Open upvalues: a singly linked list of ObjUpvalue threaded through
//	              Obj.Next-like NextOpen pointers, kept sorted by stack
//	              slot descending so closing upvalues at scope exit is a
//	              simple prefix walk.
//
// Instruction dispatch is a plain switch over chunk.OpCode in run.go;
// there's no computed-goto trick available in Go, so the switch is the
// whole dispatch cost, same as any bytecode interpreter written in a
// language without that feature.
package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/gloxlang/glox/pkg/compiler"
	"github.com/gloxlang/glox/pkg/gc"
	"github.com/gloxlang/glox/pkg/table"
	"github.com/gloxlang/glox/pkg/value"
	"github.com/rs/zerolog"
)

const (
	FramesMax = 64
	StackMax  = FramesMax * 256
)

// CallFrame is one active invocation of a closure: its own instruction
// pointer and a window onto the shared value stack starting at slots.
type CallFrame struct {
	closure *value.Obj // a KindClosure Obj
	ip      int
	slots   int // index into VM.stack where this frame's locals begin
}

// Options configures a VM. The zero value is usable: it logs nothing,
// runs without GC stress-testing, and writes OP_PRINT output to
// os.Stdout.
type Options struct {
	StressGC bool
	Stdout   io.Writer
	Log      zerolog.Logger
}

// VM executes compiled glox bytecode. One VM corresponds to one REPL
// or script-run session: globals and interned strings persist across
// multiple Interpret calls against the same VM, the way a REPL needs.
type VM struct {
	stack []value.Value
	sp    int

	frames   []CallFrame
	frameCnt int

	globals *table.Table
	gc      *gc.GC

	openUpvalues *value.Obj // head of NextOpen chain, sorted by slot descending

	stdout io.Writer
	log    zerolog.Logger
}

// New creates a VM backed by gc, registers it as a GC root for its
// entire lifetime, and installs the native function library.
func New(g *gc.GC, opts Options) *VM {
	out := opts.Stdout
	if out == nil {
		out = os.Stdout
	}
	vm := &VM{
		stack:   make([]value.Value, StackMax),
		frames:  make([]CallFrame, FramesMax),
		globals: table.New(),
		gc:      g,
		stdout:  out,
		log:     opts.Log,
	}
	g.StressMode = opts.StressGC
	g.AddRoot(vm)
	vm.defineNatives()
	return vm
}

// Interpret compiles and runs one chunk of source against this VM,
// preserving globals and interned strings from any previous call.
func (vm *VM) Interpret(source string) error {
	fnObj, err := compiler.Compile(source, vm.gc)
	if err != nil {
		return err
	}

	vm.push(value.FromObj(fnObj))
	closure := vm.gc.NewClosure(fnObj, make([]*value.Obj, fnObj.AsFunction().UpvalueCount))
	vm.pop()
	vm.push(value.FromObj(closure))
	vm.callClosure(closure, 0)

	return vm.run()
}

// --- stack ---------------------------------------------------------------

func (vm *VM) push(v value.Value) {
	if vm.sp >= len(vm.stack) {
		panic("glox: value stack overflow")
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VM) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VM) resetStack() {
	vm.sp = 0
	vm.frameCnt = 0
	vm.openUpvalues = nil
}

// runtimeError builds a RuntimeError carrying the current call stack,
// then resets the VM to a clean state so the next Interpret call (a
// REPL's next line, say) starts fresh.
func (vm *VM) runtimeError(format string, args ...interface{}) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	trace := make([]StackFrame, 0, vm.frameCnt)
	for i := 0; i < vm.frameCnt; i++ {
		f := &vm.frames[i]
		fn := f.closure.AsClosure().Function.AsFunction()
		name := "script"
		if fn.Name != nil {
			name = fn.Name.AsString().Chars
		}
		line := fn.Chunk.LineAt(f.ip - 1)
		trace = append(trace, StackFrame{Name: name, SourceLine: line})
	}
	vm.resetStack()
	return newRuntimeError(msg, trace)
}

// --- GC root marking -------------------------------------------------------

// MarkRoots implements gc.RootProvider: every live stack slot, every
// active frame's closure, the globals table, and every open upvalue are
// roots for as long as this VM exists.
func (vm *VM) MarkRoots(g *gc.GC) {
	for i := 0; i < vm.sp; i++ {
		g.MarkValue(vm.stack[i])
	}
	for i := 0; i < vm.frameCnt; i++ {
		g.MarkObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.AsUpvalue().NextOpen {
		g.MarkObject(uv)
	}
	g.MarkTable(vm.globals)
}

// --- upvalues --------------------------------------------------------------

// captureUpvalue returns the existing open upvalue for the stack slot
// at index if one is already on the chain, or creates and inserts a new
// one in slot-descending order otherwise (spec.md §3's sharing
// invariant: two closures over the same local must observe the same
// upvalue object).
func (vm *VM) captureUpvalue(index int) *value.Obj {
	var prev *value.Obj
	cur := vm.openUpvalues

	for cur != nil && cur.AsUpvalue().SlotIndex > index {
		prev = cur
		cur = cur.AsUpvalue().NextOpen
	}
	if cur != nil && cur.AsUpvalue().SlotIndex == index {
		return cur
	}

	created := vm.gc.NewUpvalue(&vm.stack[index], index)
	created.AsUpvalue().NextOpen = cur
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.AsUpvalue().NextOpen = created
	}
	return created
}

// closeUpvalues moves every open upvalue at or above stack index from
// into its own storage and unlinks it, called on scope exit and on
// return.
func (vm *VM) closeUpvalues(from int) {
	for vm.openUpvalues != nil && vm.openUpvalues.AsUpvalue().SlotIndex >= from {
		uv := vm.openUpvalues
		uv.AsUpvalue().Close()
		vm.openUpvalues = uv.AsUpvalue().NextOpen
	}
}

func (vm *VM) defineNatives() {
	for name, fn := range nativeFns {
		vm.globals.Set(vm.gc.InternString(name), value.FromObj(vm.gc.NewNative(name, fn)))
	}
}
