package gc

import "github.com/gloxlang/glox/pkg/value"

// Collect runs one full mark-sweep cycle: mark every root, trace the
// gray worklist to black, drop intern-table entries for strings that
// turned out unreachable, then sweep the object list. It is synchronous
// and stop-the-world — glox has no concurrent mutator to race against.
func (gc *GC) Collect() {
	before := gc.bytesAllocated
	gc.Log.Debug().Int64("bytes_before", before).Msg("gc begin")

	for _, r := range gc.roots {
		r.MarkRoots(gc)
	}
	gc.traceReferences()
	gc.removeUnmarkedStrings()
	gc.sweep()

	gc.nextGC = gc.bytesAllocated * growFactor
	if gc.nextGC < 1<<20 {
		gc.nextGC = 1 << 20
	}

	gc.Log.Debug().
		Int64("bytes_before", before).
		Int64("bytes_after", gc.bytesAllocated).
		Int64("next_gc", gc.nextGC).
		Msg("gc end")
}

// MarkValue marks v's underlying Obj, if it has one. Numbers, bools,
// and nil need no marking: they carry no heap references.
func (gc *GC) MarkValue(v value.Value) {
	if v.IsObj() {
		gc.MarkObject(v.AsObj())
	}
}

// MarkObject marks o reachable and pushes it onto the gray worklist,
// unless it's nil or already marked (which also breaks reference
// cycles, e.g. a closure capturing its own enclosing class).
func (gc *GC) MarkObject(o *value.Obj) {
	if o == nil || o.Marked {
		return
	}
	o.Marked = true
	gc.gray = append(gc.gray, o)
}

// MarkTable marks every key and every value in a table: a class's
// method table, an instance's field table, or the VM's globals.
func (gc *GC) MarkTable(t value.Table) {
	if t == nil {
		return
	}
	t.Each(func(key *value.Obj, v value.Value) {
		gc.MarkObject(key)
		gc.MarkValue(v)
	})
}

// traceReferences pops the gray worklist until empty, blackening each
// object by marking everything it points to.
func (gc *GC) traceReferences() {
	for len(gc.gray) > 0 {
		o := gc.gray[len(gc.gray)-1]
		gc.gray = gc.gray[:len(gc.gray)-1]
		gc.blacken(o)
	}
}

// blacken marks every Obj and Value directly reachable from o. The
// switch mirrors value.Obj.String's — one arm per Kind — because each
// kind has a different shape of outgoing references.
func (gc *GC) blacken(o *value.Obj) {
	switch o.Kind {
	case value.KindString, value.KindNative:
		// No outgoing references.
	case value.KindUpvalue:
		gc.MarkValue(*o.AsUpvalue().Location)
	case value.KindFunction:
		fn := o.AsFunction()
		gc.MarkObject(fn.Name)
		if fn.Chunk != nil {
			for _, c := range fn.Chunk.Constants() {
				gc.MarkValue(c)
			}
		}
	case value.KindClosure:
		c := o.AsClosure()
		gc.MarkObject(c.Function)
		for _, uv := range c.Upvalues {
			gc.MarkObject(uv)
		}
	case value.KindClass:
		gc.MarkTable(o.AsClass().Methods)
	case value.KindInstance:
		inst := o.AsInstance()
		gc.MarkObject(inst.Class)
		gc.MarkTable(inst.Fields)
	case value.KindBoundMethod:
		bm := o.AsBoundMethod()
		gc.MarkValue(bm.Receiver)
		gc.MarkObject(bm.Method)
	}
}

// removeUnmarkedStrings drops intern-table entries for strings that
// were not marked this cycle, so a string with no other referents
// doesn't survive collection just for having been interned (spec.md
// §4.1 step 3 — this must run before sweep, which is what actually
// frees the Obj).
func (gc *GC) removeUnmarkedStrings() {
	gc.strings.RemoveUnmarked(func(key *value.Obj) bool {
		return !key.Marked
	})
}

// sweep walks the intrusive object list, freeing (unlinking) every
// unmarked object and clearing Marked on every survivor for the next
// cycle.
func (gc *GC) sweep() {
	var prev *value.Obj
	obj := gc.objects
	for obj != nil {
		if obj.Marked {
			obj.Marked = false
			prev = obj
			obj = obj.Next
			continue
		}
		unreached := obj
		obj = obj.Next
		if prev != nil {
			prev.Next = obj
		} else {
			gc.objects = obj
		}
		gc.bytesAllocated -= sizeOf(unreached)
	}
}

// sizeOf returns the byte estimate used when unreached was tracked, so
// sweep can reverse the accounting done at allocation time. Matching
// the same per-kind estimates as track's callers keeps bytesAllocated
// converging on 0 for a fully idle heap.
func sizeOf(o *value.Obj) int64 {
	switch o.Kind {
	case value.KindString:
		return int64(len(o.AsString().Chars)) + 32
	case value.KindFunction:
		return 64
	case value.KindNative:
		return 32
	case value.KindClosure:
		return int64(24 + 8*len(o.AsClosure().Upvalues))
	case value.KindUpvalue:
		return 40
	case value.KindClass:
		return 48
	case value.KindInstance:
		return 48
	case value.KindBoundMethod:
		return 32
	default:
		return 16
	}
}
