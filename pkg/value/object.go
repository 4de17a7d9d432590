package value

import "fmt"

// Kind discriminates the managed object variants. The set is closed and
// small, so dispatch on Kind (rather than a Go interface per variant)
// keeps printing, tracing, and freeing as flat switches — the shape
// spec.md §9 calls out as preferable to a deep interface hierarchy for a
// closed, small set of kinds.
type Kind uint8

const (
	KindString Kind = iota
	KindFunction
	KindNative
	KindClosure
	KindUpvalue
	KindClass
	KindInstance
	KindBoundMethod
)

// ObjHeader is embedded in every managed object. Marked and Next are
// owned exclusively by pkg/gc; nothing outside the collector should
// write them.
type ObjHeader struct {
	Kind   Kind
	Marked bool
	Next   *Obj
}

// Obj is the uniform representation the GC walks and every
// object-to-object reference in the data model points at — a function's
// name, a closure's captured function, a bound method's method closure,
// a table's keys — so the collector never needs anything but *Obj to
// link, mark, blacken, or sweep regardless of kind.
type Obj struct {
	ObjHeader
	data interface{}
}

func newObj(kind Kind, data interface{}) *Obj {
	return &Obj{ObjHeader: ObjHeader{Kind: kind}, data: data}
}

// String dispatches on Kind to produce OP_PRINT's textual form.
func (o *Obj) String() string {
	switch o.Kind {
	case KindString:
		return o.AsString().Chars
	case KindFunction:
		return o.AsFunction().String()
	case KindNative:
		return "<native fn>"
	case KindClosure:
		return o.AsClosure().Function.String()
	case KindClass:
		return o.AsClass().Name
	case KindInstance:
		return o.AsInstance().Class.AsClass().Name + " instance"
	case KindBoundMethod:
		return o.AsBoundMethod().Method.String()
	default:
		return "<obj>"
	}
}

// --- ObjString ---------------------------------------------------------

// ObjString is an immutable, interned byte string with a precomputed
// FNV-1a hash (see pkg/table for why the hash is cached rather than
// recomputed per lookup).
type ObjString struct {
	Chars string
	Hash  uint32
}

func NewStringObj(s string, hash uint32) *Obj {
	return newObj(KindString, &ObjString{Chars: s, Hash: hash})
}

func (o *Obj) AsString() *ObjString { return o.data.(*ObjString) }

// HashString computes FNV-1a over s, matching clox's hashString exactly
// so that, were bytecode ever persisted, hashes would be stable; glox
// does not persist bytecode (spec.md §6) but keeping the well-known
// constant avoids inventing a new hash function for no reason.
func HashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// --- ObjFunction ---------------------------------------------------------

// Chunk is the interface pkg/chunk.Chunk satisfies. value can't import
// chunk directly (chunk imports value, for its constant pool's element
// type), so the GC reaches a function's bytecode only through this
// narrow seam: enough to walk the constant pool for marking and to read
// line numbers for stack traces.
type Chunk interface {
	Constants() []Value
	LineAt(ip int) int
}

// ObjFunction is a compiled function: its arity, how many upvalues its
// closures must capture, its code (opaque to this package as a Chunk),
// and an optional name (nil *Obj for the top-level script).
type ObjFunction struct {
	Arity        int
	UpvalueCount int
	Chunk        Chunk
	Name         *Obj // nil, or a KindString Obj
}

func NewFunctionObj(fn *ObjFunction) *Obj { return newObj(KindFunction, fn) }
func (o *Obj) AsFunction() *ObjFunction   { return o.data.(*ObjFunction) }

func (f *ObjFunction) String() string {
	if f.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fn %s>", f.Name.AsString().Chars)
}

// --- ObjNative ---------------------------------------------------------

// NativeFn is the native-function ABI: receives the arguments slice and
// returns a Value. Natives signal failure via their return value, never
// by raising a VM-visible error (spec.md §4.6).
type NativeFn func(args []Value) Value

type ObjNative struct {
	Name string
	Fn   NativeFn
}

func NewNativeObj(name string, fn NativeFn) *Obj {
	return newObj(KindNative, &ObjNative{Name: name, Fn: fn})
}
func (o *Obj) AsNative() *ObjNative { return o.data.(*ObjNative) }

// --- ObjUpvalue ---------------------------------------------------------

// ObjUpvalue is "open" while Location points into the live value stack
// and "closed" once the variable it names has been moved into Closed
// (Location then points at &Closed). NextOpen threads the VM's
// open-upvalue list, kept sorted by stack address descending (spec.md §3
// invariant).
type ObjUpvalue struct {
	Location  *Value
	Closed    Value
	NextOpen  *Obj
	SlotIndex int // stack index Location pointed at while open; used to order/find this upvalue among others
}

func NewUpvalueObj(slot *Value, slotIndex int) *Obj {
	return newObj(KindUpvalue, &ObjUpvalue{Location: slot, SlotIndex: slotIndex})
}
func (o *Obj) AsUpvalue() *ObjUpvalue { return o.data.(*ObjUpvalue) }

// Close moves the referenced value into the upvalue's own storage and
// retargets Location at it, severing the link to the stack slot.
func (u *ObjUpvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}

// --- ObjClosure ---------------------------------------------------------

// ObjClosure binds an ObjFunction to the upvalues it captured. Upvalues'
// length always equals the function's UpvalueCount (set at compile time).
type ObjClosure struct {
	Function *Obj   // a KindFunction Obj
	Upvalues []*Obj // each a KindUpvalue Obj
}

func NewClosureObj(fn *Obj, upvalues []*Obj) *Obj {
	return newObj(KindClosure, &ObjClosure{Function: fn, Upvalues: upvalues})
}
func (o *Obj) AsClosure() *ObjClosure { return o.data.(*ObjClosure) }

func (c *ObjClosure) String() string { return c.Function.AsFunction().String() }

// --- ObjClass / ObjInstance / ObjBoundMethod ----------------------------

// Table is the interface pkg/table.Table satisfies, letting value avoid
// importing table (table depends on value for Obj/Value, so the
// dependency can only run one way). It exposes exactly what the GC and
// VM need from a class's method table or an instance's field table. Keys
// are always KindString Objs.
type Table interface {
	Set(key *Obj, v Value) bool
	Get(key *Obj) (Value, bool)
	Delete(key *Obj) bool
	Each(func(key *Obj, v Value))
}

type ObjClass struct {
	Name    string
	Methods Table // String Obj -> Closure Obj
}

func NewClassObj(name string, methods Table) *Obj {
	return newObj(KindClass, &ObjClass{Name: name, Methods: methods})
}
func (o *Obj) AsClass() *ObjClass { return o.data.(*ObjClass) }

type ObjInstance struct {
	Class  *Obj // a KindClass Obj
	Fields Table // String Obj -> Value
}

func NewInstanceObj(class *Obj, fields Table) *Obj {
	return newObj(KindInstance, &ObjInstance{Class: class, Fields: fields})
}
func (o *Obj) AsInstance() *ObjInstance { return o.data.(*ObjInstance) }

type ObjBoundMethod struct {
	Receiver Value
	Method   *Obj // a KindClosure Obj
}

func NewBoundMethodObj(receiver Value, method *Obj) *Obj {
	return newObj(KindBoundMethod, &ObjBoundMethod{Receiver: receiver, Method: method})
}
func (o *Obj) AsBoundMethod() *ObjBoundMethod { return o.data.(*ObjBoundMethod) }
