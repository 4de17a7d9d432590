package vm

import (
	"fmt"

	"github.com/gloxlang/glox/pkg/chunk"
	"github.com/gloxlang/glox/pkg/value"
)

func (vm *VM) frame() *CallFrame { return &vm.frames[vm.frameCnt-1] }

func (f *CallFrame) fnChunk() *value.ObjFunction {
	return f.closure.AsClosure().Function.AsFunction()
}

// readCode and readCodeShort reach past the narrow value.Chunk
// interface (which exposes only constants and line numbers) to the
// concrete *chunk.Chunk's Code slice, since only this package needs raw
// instruction bytes — keeping value.Chunk narrow is what lets pkg/value
// avoid importing pkg/chunk (see pkg/value/object.go).
func readCode(f *CallFrame) byte {
	c := f.fnChunk().Chunk.(*chunk.Chunk)
	b := c.Code[f.ip]
	f.ip++
	return b
}

func readCodeShort(f *CallFrame) int {
	hi := readCode(f)
	lo := readCode(f)
	return int(hi)<<8 | int(lo)
}

// Chunk.Constant isn't part of value.Chunk either, so reach through the
// concrete type the same way readCode does.
func (f *CallFrame) constantAt(idx byte) value.Value {
	c := f.fnChunk().Chunk.(*chunk.Chunk)
	return c.Constant(int(idx))
}

// run executes bytecode starting from the current top call frame until
// the outermost frame returns, an uncaught runtime error occurs, or a
// native panics (recovered into a RuntimeError by Interpret's caller is
// not needed here: natives never panic by contract, spec.md §4.6).
func (vm *VM) run() (err error) {
	f := vm.frame()

	for {
		op := chunk.OpCode(readCode(f))

		switch op {
		case chunk.OpConstant:
			vm.push(f.constantAt(readCode(f)))

		case chunk.OpNil:
			vm.push(value.Nil())
		case chunk.OpTrue:
			vm.push(value.Bool(true))
		case chunk.OpFalse:
			vm.push(value.Bool(false))
		case chunk.OpPop:
			vm.pop()

		case chunk.OpGetLocal:
			slot := readCode(f)
			vm.push(vm.stack[f.slots+int(slot)])
		case chunk.OpSetLocal:
			slot := readCode(f)
			vm.stack[f.slots+int(slot)] = vm.peek(0)

		case chunk.OpGetGlobal:
			name := f.constantAt(readCode(f)).AsObj()
			v, ok := vm.globals.Get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.AsString().Chars)
			}
			vm.push(v)
		case chunk.OpDefineGlobal:
			name := f.constantAt(readCode(f)).AsObj()
			vm.globals.Set(name, vm.peek(0))
			vm.pop()
		case chunk.OpSetGlobal:
			name := f.constantAt(readCode(f)).AsObj()
			if _, ok := vm.globals.Get(name); !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.AsString().Chars)
			}
			vm.globals.Set(name, vm.peek(0))

		case chunk.OpGetUpvalue:
			slot := readCode(f)
			vm.push(*f.closure.AsClosure().Upvalues[slot].AsUpvalue().Location)
		case chunk.OpSetUpvalue:
			slot := readCode(f)
			*f.closure.AsClosure().Upvalues[slot].AsUpvalue().Location = vm.peek(0)

		case chunk.OpGetProperty:
			if !vm.peek(0).IsObjKind(value.KindInstance) {
				return vm.runtimeError("Only instances have properties.")
			}
			instance := vm.peek(0).AsObj().AsInstance()
			name := f.constantAt(readCode(f)).AsObj()
			if field, ok := instance.Fields.Get(name); ok {
				vm.pop() // instance
				vm.push(field)
				break
			}
			bound, bindErr := vm.bindMethod(instance.Class.AsClass(), name)
			if bindErr != nil {
				return bindErr
			}
			vm.pop() // instance
			vm.push(value.FromObj(bound))
		case chunk.OpSetProperty:
			if !vm.peek(1).IsObjKind(value.KindInstance) {
				return vm.runtimeError("Only instances have fields.")
			}
			instance := vm.peek(1).AsObj().AsInstance()
			name := f.constantAt(readCode(f)).AsObj()
			instance.Fields.Set(name, vm.peek(0))
			v := vm.pop()
			vm.pop() // instance
			vm.push(v)

		case chunk.OpEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.Bool(value.Equal(a, b)))
		case chunk.OpGreater:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Bool(a > b) }); err != nil {
				return err
			}
		case chunk.OpLess:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Bool(a < b) }); err != nil {
				return err
			}

		case chunk.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case chunk.OpSubtract:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a - b) }); err != nil {
				return err
			}
		case chunk.OpMultiply:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a * b) }); err != nil {
				return err
			}
		case chunk.OpDivide:
			if err := vm.numericBinary(func(a, b float64) value.Value { return value.Number(a / b) }); err != nil {
				return err
			}

		case chunk.OpNot:
			vm.push(value.Bool(vm.pop().IsFalsey()))
		case chunk.OpNegate:
			if !vm.peek(0).IsNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(value.Number(-vm.pop().AsNumber()))

		case chunk.OpPrint:
			fmt.Fprintln(vm.stdout, vm.pop().String())

		case chunk.OpJump:
			offset := readCodeShort(f)
			f.ip += offset
		case chunk.OpJumpIfFalse:
			offset := readCodeShort(f)
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case chunk.OpLoop:
			offset := readCodeShort(f)
			f.ip -= offset

		case chunk.OpCall:
			argCount := int(readCode(f))
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
			f = vm.frame()

		case chunk.OpClosure:
			fnObj := f.constantAt(readCode(f)).AsObj()
			fn := fnObj.AsFunction()
			upvalues := make([]*value.Obj, fn.UpvalueCount)
			for i := 0; i < fn.UpvalueCount; i++ {
				isLocal := readCode(f)
				index := readCode(f)
				if isLocal == 1 {
					upvalues[i] = vm.captureUpvalue(f.slots + int(index))
				} else {
					upvalues[i] = f.closure.AsClosure().Upvalues[index]
				}
			}
			vm.push(value.FromObj(vm.gc.NewClosure(fnObj, upvalues)))

		case chunk.OpCloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()

		case chunk.OpReturn:
			result := vm.pop()
			vm.closeUpvalues(f.slots)
			vm.frameCnt--
			if vm.frameCnt == 0 {
				vm.pop()
				return nil
			}
			vm.sp = f.slots
			vm.push(result)
			f = vm.frame()

		case chunk.OpClass:
			name := f.constantAt(readCode(f)).AsObj()
			vm.push(value.FromObj(vm.gc.NewClass(name.AsString().Chars)))

		case chunk.OpMethod:
			name := f.constantAt(readCode(f)).AsObj()
			method := vm.peek(0)
			class := vm.peek(1).AsObj().AsClass()
			class.Methods.Set(name, method)
			vm.pop()

		default:
			return vm.runtimeError("Unknown opcode %d.", op)
		}
	}
}

func (vm *VM) numericBinary(op func(a, b float64) value.Value) error {
	if !vm.peek(0).IsNumber() || !vm.peek(1).IsNumber() {
		return vm.runtimeError("Operands must be numbers.")
	}
	b := vm.pop().AsNumber()
	a := vm.pop().AsNumber()
	vm.push(op(a, b))
	return nil
}

// add implements OP_ADD's dual numeric/string overload (spec.md §4.6):
// two numbers add, two strings concatenate (interning the result so it
// participates in pointer-equality like every other glox string), and
// any other combination is a runtime error.
func (vm *VM) add() error {
	b := vm.peek(0)
	a := vm.peek(1)

	switch {
	case a.IsNumber() && b.IsNumber():
		vm.pop()
		vm.pop()
		vm.push(value.Number(a.AsNumber() + b.AsNumber()))
	case a.IsObjKind(value.KindString) && b.IsObjKind(value.KindString):
		vm.pop()
		vm.pop()
		concatenated := a.AsObj().AsString().Chars + b.AsObj().AsString().Chars
		vm.push(value.FromObj(vm.gc.InternString(concatenated)))
	default:
		return vm.runtimeError("Operands must be two numbers or two strings.")
	}
	return nil
}
