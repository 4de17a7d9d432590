package vm

import "github.com/gloxlang/glox/pkg/value"

// callValue dispatches a call to whatever is at the top of the operand
// stack below its arguments: a closure, a native, a class (construction),
// or a bound method. Anything else is a runtime error (spec.md §4.6,
// "Only callable values may be called").
func (vm *VM) callValue(callee value.Value, argCount int) error {
	if !callee.IsObj() {
		return vm.runtimeError("Can only call functions and classes.")
	}

	switch callee.AsObj().Kind {
	case value.KindClosure:
		return vm.callClosure(callee.AsObj(), argCount)
	case value.KindNative:
		return vm.callNative(callee.AsObj(), argCount)
	case value.KindClass:
		return vm.callClass(callee.AsObj(), argCount)
	case value.KindBoundMethod:
		bm := callee.AsObj().AsBoundMethod()
		vm.stack[vm.sp-argCount-1] = bm.Receiver
		return vm.callClosure(bm.Method, argCount)
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

// callClosure pushes a new CallFrame for closure, enforcing that
// argCount matches the function's declared arity exactly (spec.md §4.6;
// glox has no variadic or default-argument calls).
func (vm *VM) callClosure(closureObj *value.Obj, argCount int) error {
	closure := closureObj.AsClosure()
	fn := closure.Function.AsFunction()

	if argCount != fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", fn.Arity, argCount)
	}
	if vm.frameCnt == FramesMax {
		return vm.runtimeError("Stack overflow.")
	}

	frame := &vm.frames[vm.frameCnt]
	vm.frameCnt++
	frame.closure = closureObj
	frame.ip = 0
	frame.slots = vm.sp - argCount - 1
	return nil
}

func (vm *VM) callNative(nativeObj *value.Obj, argCount int) error {
	native := nativeObj.AsNative()
	args := make([]value.Value, argCount)
	copy(args, vm.stack[vm.sp-argCount:vm.sp])
	result := native.Fn(args)
	vm.sp -= argCount + 1
	vm.push(result)
	return nil
}

// callClass implements `Class(...)` construction: allocates a fresh
// instance, replaces the callee slot with it (so a bare class call
// yields the new instance), and if the class defines `init`, calls it
// with the same arguments — enforcing init's arity like any other call
// (spec.md §4.6's class-as-callable behavior).
func (vm *VM) callClass(classObj *value.Obj, argCount int) error {
	class := classObj.AsClass()
	instance := vm.gc.NewInstance(classObj)
	vm.stack[vm.sp-argCount-1] = value.FromObj(instance)

	if initializer, ok := class.Methods.Get(vm.gc.InternString("init")); ok {
		return vm.callClosure(initializer.AsObj(), argCount)
	}
	if argCount != 0 {
		return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
	}
	return nil
}

// bindMethod looks up name in class's method table and wraps it with
// the current top-of-stack receiver into a bound method Obj.
func (vm *VM) bindMethod(class *value.ObjClass, name *value.Obj) (*value.Obj, error) {
	method, ok := class.Methods.Get(name)
	if !ok {
		return nil, vm.runtimeError("Undefined property '%s'.", name.AsString().Chars)
	}
	bound := vm.gc.NewBoundMethod(vm.peek(0), method.AsObj())
	return bound, nil
}
