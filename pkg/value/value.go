// Package value defines glox's runtime value representation and managed
// object model.
//
// A Value is a small tagged union: booleans, nil, numbers, and object
// references share one struct (a type tag plus one payload field per
// variant). Everything heap-allocated — strings, functions, closures,
// upvalues, classes, instances, bound methods — is an Obj, reached
// through Value.AsObj. Objects carry an ObjHeader so the
// garbage collector (pkg/gc) can walk them uniformly regardless of kind:
// a type tag for dispatch, a mark bit for tri-color mark-sweep, and a
// next pointer threading every live object into one intrusive list.
//
// This package has no knowledge of the collector, the compiler, or the
// VM: it only describes what a value IS, never how it is allocated,
// traced, or swept.
package value

import (
	"strconv"
)

// Type tags a Value's payload.
type Type uint8

const (
	TNil Type = iota
	TBool
	TNumber
	TObj
)

// Value is glox's tagged runtime value. The zero Value is nil.
type Value struct {
	Type Type
	num  float64
	b    bool
	obj  *Obj
}

func Nil() Value              { return Value{Type: TNil} }
func Bool(b bool) Value       { return Value{Type: TBool, b: b} }
func Number(n float64) Value  { return Value{Type: TNumber, num: n} }
func FromObj(o *Obj) Value    { return Value{Type: TObj, obj: o} }

func (v Value) IsNil() bool    { return v.Type == TNil }
func (v Value) IsBool() bool   { return v.Type == TBool }
func (v Value) IsNumber() bool { return v.Type == TNumber }
func (v Value) IsObj() bool    { return v.Type == TObj }

func (v Value) AsBool() bool    { return v.b }
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsObj() *Obj    { return v.obj }

// IsObjKind reports whether v is an object of the given kind.
func (v Value) IsObjKind(k Kind) bool {
	return v.Type == TObj && v.obj != nil && v.obj.Kind == k
}

// IsFalsey implements Lox truthiness: nil and false are falsey, every
// other value (including 0 and "") is truthy.
func (v Value) IsFalsey() bool {
	switch v.Type {
	case TNil:
		return true
	case TBool:
		return !v.b
	default:
		return false
	}
}

// Equal implements Lox value equality: same tag required, numbers and
// bools compare by value, nil always equals nil, objects compare by
// reference (string equality reduces to reference equality via interning).
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case TNil:
		return true
	case TBool:
		return a.b == b.b
	case TNumber:
		return a.num == b.num
	case TObj:
		return a.obj == b.obj
	default:
		return false
	}
}

// String renders v the way OP_PRINT does.
func (v Value) String() string {
	switch v.Type {
	case TNil:
		return "nil"
	case TBool:
		if v.b {
			return "true"
		}
		return "false"
	case TNumber:
		return formatNumber(v.num)
	case TObj:
		return v.obj.String()
	default:
		return "<invalid value>"
	}
}

// formatNumber uses a locale-independent, %g-ish decimal form: integral
// floats print without a trailing ".0" the way Lox's reference programs
// expect ("print 7;" -> "7", not "7.0").
func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'g', -1, 64)
}
