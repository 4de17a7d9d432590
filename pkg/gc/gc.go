// Package gc implements glox's precise, non-generational mark-sweep
// collector. It owns the single intrusive linked list of every managed
// object ever allocated and is the only place in the module permitted
// to allocate a *value.Obj: pkg/vm and pkg/compiler ask the collector
// for new strings, closures, classes, and instances rather than
// constructing value.Obj values themselves, so every live object is
// always reachable from GC.objects and nothing escapes accounting.
package gc

import (
	"github.com/gloxlang/glox/pkg/table"
	"github.com/gloxlang/glox/pkg/value"
	"github.com/rs/zerolog"
)

// growFactor is how much the next collection's threshold grows by,
// relative to the heap size survived after this collection.
const growFactor = 2

// RootProvider is implemented by whatever owns a set of GC roots — the
// VM (its value stack, call frames, globals table, open upvalues) and,
// during compilation, the compiler (its in-flight FunctionCompiler
// chain). GC depends on neither package directly: both would import GC,
// so root marking is inverted through this interface instead.
type RootProvider interface {
	MarkRoots(gc *GC)
}

// GC is the collector. It is not safe for concurrent use; glox runs a
// single-threaded VM, so no locking is attempted anywhere in this
// package.
type GC struct {
	objects *value.Obj
	strings *table.Table

	bytesAllocated int64
	nextGC         int64

	gray []*value.Obj

	roots []RootProvider

	// StressMode runs a full collection before every allocation, the way
	// clox's stress-test build does, to shake out missing roots.
	StressMode bool

	Log zerolog.Logger
}

// New returns a collector with an empty heap and an initial 1MiB
// threshold before its first collection.
func New(log zerolog.Logger) *GC {
	return &GC{
		strings: table.New(),
		nextGC:  1 << 20,
		Log:     log,
	}
}

// AddRoot registers a root provider. The VM registers itself once at
// startup; the compiler registers itself only while compiling, so that
// a GC triggered mid-compile (by allocating a string constant, say)
// still marks in-flight FunctionCompiler locals.
func (gc *GC) AddRoot(r RootProvider) {
	gc.roots = append(gc.roots, r)
}

// RemoveRoot unregisters a root provider, e.g. when the compiler
// finishes and its locals stop being reachable roots.
func (gc *GC) RemoveRoot(r RootProvider) {
	for i, existing := range gc.roots {
		if existing == r {
			gc.roots = append(gc.roots[:i], gc.roots[i+1:]...)
			return
		}
	}
}

// Strings returns the intern table so the VM can look up or register
// canonical string Objs directly (used by InternString below and by
// concatenation in pkg/vm).
func (gc *GC) Strings() *table.Table { return gc.strings }

func (gc *GC) track(o *value.Obj, size int64) {
	o.Next = gc.objects
	gc.objects = o
	gc.bytesAllocated += size
}

// collectIfDue runs a collection when StressMode is set or the
// allocation threshold has been crossed; every allocator in this
// package calls it before linking its new object in.
func (gc *GC) collectIfDue() {
	if gc.StressMode || gc.bytesAllocated >= gc.nextGC {
		gc.Collect()
	}
}

// --- allocation ----------------------------------------------------------

// InternString returns the canonical Obj for s, allocating and
// interning a new one only if s has never been seen before. Callers
// never construct ObjString themselves, which is what makes pointer
// equality a valid string-equality test everywhere else in the module
// (spec.md §4.2).
func (gc *GC) InternString(s string) *value.Obj {
	hash := value.HashString(s)
	if existing := gc.strings.FindString(s, hash); existing != nil {
		return existing
	}
	gc.collectIfDue()
	o := value.NewStringObj(s, hash)
	gc.track(o, int64(len(s))+32)
	gc.strings.Set(o, value.Bool(true))
	return o
}

// NewFunction allocates a function object wrapping fn.
func (gc *GC) NewFunction(fn *value.ObjFunction) *value.Obj {
	gc.collectIfDue()
	o := value.NewFunctionObj(fn)
	gc.track(o, 64)
	return o
}

// NewNative allocates a native function object.
func (gc *GC) NewNative(name string, fn value.NativeFn) *value.Obj {
	gc.collectIfDue()
	o := value.NewNativeObj(name, fn)
	gc.track(o, 32)
	return o
}

// NewClosure allocates a closure over fn capturing upvalues.
func (gc *GC) NewClosure(fn *value.Obj, upvalues []*value.Obj) *value.Obj {
	gc.collectIfDue()
	o := value.NewClosureObj(fn, upvalues)
	gc.track(o, int64(24+8*len(upvalues)))
	return o
}

// NewUpvalue allocates an open upvalue pointing at the stack slot at
// slotIndex.
func (gc *GC) NewUpvalue(slot *value.Value, slotIndex int) *value.Obj {
	gc.collectIfDue()
	o := value.NewUpvalueObj(slot, slotIndex)
	gc.track(o, 40)
	return o
}

// NewClass allocates a class named name with an empty method table.
func (gc *GC) NewClass(name string) *value.Obj {
	gc.collectIfDue()
	o := value.NewClassObj(name, table.New())
	gc.track(o, 48)
	return o
}

// NewInstance allocates an instance of class with an empty field table.
func (gc *GC) NewInstance(class *value.Obj) *value.Obj {
	gc.collectIfDue()
	o := value.NewInstanceObj(class, table.New())
	gc.track(o, 48)
	return o
}

// NewBoundMethod allocates a bound method pairing receiver with method.
func (gc *GC) NewBoundMethod(receiver value.Value, method *value.Obj) *value.Obj {
	gc.collectIfDue()
	o := value.NewBoundMethodObj(receiver, method)
	gc.track(o, 32)
	return o
}
